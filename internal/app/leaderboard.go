package app

import (
	"context"
	"sort"
	"sync"

	"ramadan-quiz-service/internal/domain"
)

// Leaderboard ranks users by lifetime total, summing every attempt row. The
// attempts table is authoritative; the Redis projection only accelerates Top
// queries and is reconciled lazily.
func (s *QuizService) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	attempts, err := s.sessions.ListAttempts(ctx)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int)
	for _, a := range attempts {
		totals[a.UserID] += a.Score
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	entries := make([]domain.LeaderboardEntry, 0, len(totals))
	for userID, total := range totals {
		entries = append(entries, domain.LeaderboardEntry{
			UserID: userID,
			Name:   names[userID],
			Total:  total,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Total != entries[j].Total {
			return entries[i].Total > entries[j].Total
		}
		return entries[i].Name < entries[j].Name
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// publishLeaderboard pushes a fresh snapshot to websocket subscribers.
func (s *QuizService) publishLeaderboard(ctx context.Context) {
	if s.hub == nil {
		return
	}
	entries, err := s.Leaderboard(ctx, leaderboardBroadcastLimit)
	if err != nil {
		return
	}
	s.hub.Publish(entries)
}

const leaderboardBroadcastLimit = 50

// LeaderboardHub fans leaderboard snapshots out to subscribers. Slow consumers
// have their stale snapshot replaced rather than blocking the publisher.
type LeaderboardHub struct {
	mu          sync.Mutex
	subscribers map[chan []domain.LeaderboardEntry]struct{}
	last        []domain.LeaderboardEntry
}

func NewLeaderboardHub() *LeaderboardHub {
	return &LeaderboardHub{
		subscribers: make(map[chan []domain.LeaderboardEntry]struct{}),
	}
}

// Subscribe returns a channel of snapshots, primed with the latest one if any.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *LeaderboardHub) Subscribe() (<-chan []domain.LeaderboardEntry, func()) {
	ch := make(chan []domain.LeaderboardEntry, 8)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	if h.last != nil {
		ch <- h.last
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

// Publish delivers a snapshot to every subscriber.
func (h *LeaderboardHub) Publish(entries []domain.LeaderboardEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = entries
	for ch := range h.subscribers {
		select {
		case ch <- entries:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- entries
		}
	}
}
