// Package cache wraps the Redis sorted set that ranks problems by how often
// they were selected.
//
// The cache is a best-effort secondary index, never the source of truth:
// the user_problems table holds the authoritative selection records, and the
// sorted set can always be reseeded from them (Rebuild). Score updates use
// Redis's atomic ZINCRBY — no read-modify-write from the application, so
// concurrent selects can't lose increments.
package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// popularKey is the single sorted set holding problem id → score.
const popularKey = "popular_problems"

// Entry is one (problem, score) pair of the ranking.
type Entry struct {
	ProblemID int64
	Score     int64
}

// Ranker is the ranked-cache surface the service layer consumes. Tests
// substitute an in-memory fake.
type Ranker interface {
	Increment(ctx context.Context, problemID, delta int64) error
	TopN(ctx context.Context, n int64) ([]Entry, error)
	Rebuild(ctx context.Context, entries []Entry) error
}

// PopularityIndex implements Ranker on a live Redis client.
type PopularityIndex struct {
	client *redis.Client
}

// NewPopularityIndex creates a PopularityIndex on the given client.
func NewPopularityIndex(client *redis.Client) *PopularityIndex {
	return &PopularityIndex{client: client}
}

var _ Ranker = (*PopularityIndex)(nil)

// Increment adjusts a problem's score by delta (negative to decrement).
func (p *PopularityIndex) Increment(ctx context.Context, problemID, delta int64) error {
	member := strconv.FormatInt(problemID, 10)
	if err := p.client.ZIncrBy(ctx, popularKey, float64(delta), member).Err(); err != nil {
		return fmt.Errorf("cache: incrementing score for problem %d: %w", problemID, err)
	}
	return nil
}

// TopN returns the n highest-scored problems, best first.
func (p *PopularityIndex) TopN(ctx context.Context, n int64) ([]Entry, error) {
	if n <= 0 {
		return []Entry{}, nil
	}

	members, err := p.client.ZRevRangeWithScores(ctx, popularKey, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("cache: reading top %d problems: %w", n, err)
	}

	entries := make([]Entry, 0, len(members))
	for _, m := range members {
		member, ok := m.Member.(string)
		if !ok {
			continue
		}
		problemID, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			// A foreign member in the set is unexpected but shouldn't sink
			// the whole ranking.
			continue
		}
		entries = append(entries, Entry{ProblemID: problemID, Score: int64(m.Score)})
	}

	return entries, nil
}

// Rebuild replaces the whole sorted set with the given entries in one
// pipelined round trip. Used to reseed the index from the relational
// selection records after cache loss or drift.
func (p *PopularityIndex) Rebuild(ctx context.Context, entries []Entry) error {
	pipe := p.client.TxPipeline()
	pipe.Del(ctx, popularKey)
	for _, e := range entries {
		pipe.ZAdd(ctx, popularKey, redis.Z{
			Score:  float64(e.Score),
			Member: strconv.FormatInt(e.ProblemID, 10),
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache: rebuilding popularity index: %w", err)
	}
	return nil
}
