package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis shares failure counters across instances. INCR and EXPIRE NX run in
// one MULTI so the window is set exactly once, on the first failure.
type Redis struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func (s *Redis) RecordFailure(ctx context.Context, key string, window time.Duration) (int, error) {
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("record throttle failure: %w", err)
	}
	return int(incr.Val()), nil
}

func (s *Redis) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("clear throttle counter: %w", err)
	}
	return nil
}
