package memory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"mc-test-service/internal/domain"
)

type countingLoader struct {
	calls int64
	inner QuestionSetLoader
}

func (l *countingLoader) LoadQuestionSet(ctx context.Context, file string) (domain.QuestionSet, error) {
	atomic.AddInt64(&l.calls, 1)
	return l.inner.LoadQuestionSet(ctx, file)
}

func staticSets() map[string][]domain.Question {
	return map[string][]domain.Question{
		"questions_demo.json": {
			{Text: "1. q", Options: []string{"a", "b"}, CorrectIndex: 0},
		},
	}
}

func TestQuestionRepositoryCachesWithinTTL(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{inner: NewStaticQuestionLoader(staticSets())}
	repo := NewQuestionRepository(loader, time.Minute)

	for i := 0; i < 3; i++ {
		set, err := repo.GetQuestionSet(ctx, "questions_demo.json")
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		if len(set.Questions) != 1 {
			t.Fatalf("get %d: unexpected set %+v", i, set)
		}
	}
	if got := atomic.LoadInt64(&loader.calls); got != 1 {
		t.Fatalf("expected a single loader call, got %d", got)
	}
}

func TestQuestionRepositoryReloadsAfterExpiry(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{inner: NewStaticQuestionLoader(staticSets())}
	repo := NewQuestionRepository(loader, time.Minute)

	current := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return current }

	if _, err := repo.GetQuestionSet(ctx, "questions_demo.json"); err != nil {
		t.Fatalf("get: %v", err)
	}
	// jitter adds at most 10%, so 2x TTL is always past expiry
	current = current.Add(2 * time.Minute)
	if _, err := repo.GetQuestionSet(ctx, "questions_demo.json"); err != nil {
		t.Fatalf("get after expiry: %v", err)
	}
	if got := atomic.LoadInt64(&loader.calls); got != 2 {
		t.Fatalf("expected reload after TTL, got %d calls", got)
	}
}

func TestQuestionRepositoryPropagatesNotFound(t *testing.T) {
	repo := NewQuestionRepository(NewStaticQuestionLoader(staticSets()), time.Minute)
	_, err := repo.GetQuestionSet(context.Background(), "questions_missing.json")
	if !errors.Is(err, domain.ErrQuestionSetNotFound) {
		t.Fatalf("expected ErrQuestionSetNotFound, got %v", err)
	}
}
