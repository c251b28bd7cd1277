package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"mc-test-service/internal/domain"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

type countingLoader struct {
	calls int64
	sets  map[string][]domain.Question
}

func (l *countingLoader) LoadQuestionSet(_ context.Context, file string) (domain.QuestionSet, error) {
	atomic.AddInt64(&l.calls, 1)
	if questions, ok := l.sets[file]; ok {
		return domain.QuestionSet{File: file, Questions: questions}, nil
	}
	return domain.QuestionSet{}, domain.ErrQuestionSetNotFound
}

func testLoader() *countingLoader {
	return &countingLoader{sets: map[string][]domain.Question{
		"questions_demo.json": {
			{Text: "1. q", Options: []string{"a", "b"}, CorrectIndex: 0, Weight: 2},
		},
	}}
}

func TestQuestionCacheFillsRedis(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	loader := testLoader()
	cache := NewQuestionCache(client, loader, time.Minute)

	set, err := cache.GetQuestionSet(ctx, "questions_demo.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(set.Questions) != 1 || set.Questions[0].Weight != 2 {
		t.Fatalf("unexpected set %+v", set)
	}
	if !mr.Exists("mc:questions:questions_demo.json") {
		t.Fatalf("expected the set cached in redis")
	}

	// Second read is served from Redis without touching the loader.
	if _, err := cache.GetQuestionSet(ctx, "questions_demo.json"); err != nil {
		t.Fatalf("cached get: %v", err)
	}
	if got := atomic.LoadInt64(&loader.calls); got != 1 {
		t.Fatalf("expected a single loader call, got %d", got)
	}
}

func TestQuestionCacheReloadsAfterExpiry(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	loader := testLoader()
	cache := NewQuestionCache(client, loader, time.Minute)

	if _, err := cache.GetQuestionSet(ctx, "questions_demo.json"); err != nil {
		t.Fatalf("get: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := cache.GetQuestionSet(ctx, "questions_demo.json"); err != nil {
		t.Fatalf("get after expiry: %v", err)
	}
	if got := atomic.LoadInt64(&loader.calls); got != 2 {
		t.Fatalf("expected reload after TTL, got %d calls", got)
	}
}

func TestQuestionCacheIgnoresCorruptEntry(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	loader := testLoader()
	cache := NewQuestionCache(client, loader, time.Minute)

	mr.Set("mc:questions:questions_demo.json", "{not json")
	set, err := cache.GetQuestionSet(ctx, "questions_demo.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(set.Questions) != 1 {
		t.Fatalf("corrupt cache entry must fall through to the loader, got %+v", set)
	}
}

func TestQuestionCachePropagatesNotFound(t *testing.T) {
	_, client := newTestRedis(t)
	cache := NewQuestionCache(client, testLoader(), time.Minute)
	_, err := cache.GetQuestionSet(context.Background(), "questions_missing.json")
	if !errors.Is(err, domain.ErrQuestionSetNotFound) {
		t.Fatalf("expected ErrQuestionSetNotFound, got %v", err)
	}
}
