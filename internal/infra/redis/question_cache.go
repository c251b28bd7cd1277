package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"mc-test-service/internal/domain"
)

// QuestionSetLoader fetches question sets from a backing store (files, Postgres).
type QuestionSetLoader interface {
	LoadQuestionSet(ctx context.Context, file string) (domain.QuestionSet, error)
}

// QuestionCache keeps parsed question sets in Redis as JSON blobs so multiple
// service processes share one parse. Key: mc:questions:{file}.
type QuestionCache struct {
	client *redis.Client
	loader QuestionSetLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader QuestionSetLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) GetQuestionSet(ctx context.Context, file string) (domain.QuestionSet, error) {
	key := c.key(file)

	if set, ok := c.fromCache(ctx, key, file); ok {
		return set, nil
	}

	result, err, _ := c.sf.Do(file, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if set, ok := c.fromCache(ctx, key, file); ok {
			return set, nil
		}

		set, err := c.loader.LoadQuestionSet(ctx, file)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		if data, err := json.Marshal(set.Questions); err == nil {
			// best-effort: a failed cache write only costs the next reader a reload
			_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		}
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

func (c *QuestionCache) fromCache(ctx context.Context, key, file string) (domain.QuestionSet, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil || len(data) == 0 {
		return domain.QuestionSet{}, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return domain.QuestionSet{}, false
	}
	return domain.QuestionSet{File: file, Questions: questions}, true
}

func (c *QuestionCache) key(file string) string {
	return "mc:questions:" + file
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
