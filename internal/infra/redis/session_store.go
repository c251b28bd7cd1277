package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"mc-test-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions themselves stay in-process (they hold mutexes and shuffled
// orders); Redis marks session liveness so an operator can see who is
// active across instances.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Get(key string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[key]
	return session, ok
}

func (s *SessionStore) Put(key string, session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[key] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.redisKey(key), "1", s.ttl).Err()
}

func (s *SessionStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
	_ = s.client.Del(context.Background(), s.redisKey(key)).Err()
}

func (s *SessionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.sessions {
		_ = s.client.Del(context.Background(), s.redisKey(key)).Err()
	}
	s.sessions = make(map[string]*app.Session)
}

func (s *SessionStore) redisKey(key string) string {
	return "mc:session:" + key
}
