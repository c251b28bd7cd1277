package app

import (
	"sync"

	"mc-test-service/internal/domain"
)

// LeaderboardHub fans leaderboard snapshots out to subscribed dashboards.
type LeaderboardHub struct {
	mu          sync.Mutex
	subscribers map[chan domain.Leaderboard]struct{}
	last        *domain.Leaderboard
}

func NewLeaderboardHub() *LeaderboardHub {
	return &LeaderboardHub{subscribers: make(map[chan domain.Leaderboard]struct{})}
}

// Subscribe returns a channel of leaderboard updates. The caller must invoke
// the returned cancel function to avoid leaks. The latest known snapshot, if
// any, is delivered immediately.
func (h *LeaderboardHub) Subscribe() (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	if h.last != nil {
		ch <- *h.last
	}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Broadcast pushes a snapshot to all subscribers. Slow consumers have their
// stale update dropped instead of blocking the sender.
func (h *LeaderboardHub) Broadcast(lb domain.Leaderboard) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = &lb
	for ch := range h.subscribers {
		select {
		case ch <- lb:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}
