package policy

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RedisWindowStore keeps hit timestamps in a sorted set per client so that
// every instance shares the same budget
type RedisWindowStore struct {
	client redis.UniversalClient
}

var _ WindowStore = (*RedisWindowStore)(nil)

// NewRedisWindowStore creates a store on top of an existing client
func NewRedisWindowStore(client redis.UniversalClient) *RedisWindowStore {
	return &RedisWindowStore{client: client}
}

// Hit adds the hit and counts the window in one MULTI/EXEC. When the count
// exceeds the budget the hit is removed again.
func (s *RedisWindowStore) Hit(ctx context.Context, key string, w Window, now time.Time) (WindowResult, error) {
	member := uuid.NewString()
	nowMs := now.UnixMilli()
	cutoff := strconv.FormatInt(nowMs-w.Interval.Milliseconds(), 10)

	var (
		count  *redis.IntCmd
		oldest *redis.ZSliceCmd
	)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", cutoff)
		pipe.ZAdd(ctx, key, &redis.Z{Score: float64(nowMs), Member: member})
		count = pipe.ZCard(ctx, key)
		oldest = pipe.ZRangeWithScores(ctx, key, 0, 0)
		pipe.PExpire(ctx, key, w.Interval)
		return nil
	})
	if err != nil {
		return WindowResult{}, fmt.Errorf("record hit: %w", err)
	}

	reset := now.Add(w.Interval)
	if z := oldest.Val(); len(z) > 0 {
		reset = time.UnixMilli(int64(z[0].Score)).Add(w.Interval)
	}

	n := int(count.Val())
	if n > w.Max {
		if err := s.client.ZRem(ctx, key, member).Err(); err != nil {
			return WindowResult{}, fmt.Errorf("discard denied hit: %w", err)
		}
		return WindowResult{Allowed: false, Remaining: 0, Reset: reset}, nil
	}

	return WindowResult{
		Allowed:   true,
		Remaining: w.Max - n,
		Reset:     reset,
	}, nil
}
