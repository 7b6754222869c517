package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"ramadan-quiz-service/internal/domain"
)

// leaderboardKey holds lifetime totals as a ZSet member per user.
const leaderboardKey = "quiz:leaderboard:total"

// Leaderboard mirrors score totals into a Redis ZSet for fast Top queries.
// The attempts table stays authoritative; this projection receives the same
// deltas the attempts upserts produce.
type Leaderboard struct {
	client *redis.Client
}

func NewLeaderboard(client *redis.Client) *Leaderboard {
	return &Leaderboard{client: client}
}

func (l *Leaderboard) IncrTotal(ctx context.Context, userID string, delta int) error {
	return l.client.ZIncrBy(ctx, leaderboardKey, float64(delta), userID).Err()
}

func (l *Leaderboard) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	results, err := l.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]domain.LeaderboardEntry, len(results))
	for i, r := range results {
		entries[i] = domain.LeaderboardEntry{
			Rank:   i + 1,
			UserID: r.Member.(string),
			Total:  int(r.Score),
		}
	}
	return entries, nil
}
