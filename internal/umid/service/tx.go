package service

import (
	"context"
	"sync"
	"time"

	"github.com/zeebo/xxh3"

	dErrors "umid/pkg/domain-errors"
)

// numTxShards spreads in-process transactions across independent locks keyed
// by patient, so issuance for different patients never contends.
const numTxShards = 128

const defaultTxTimeout = 5 * time.Second

// shardedTx is the in-memory tx.Runner. It serializes work per shard key; the
// stores still enforce their own atomicity.
type shardedTx struct {
	shards  [numTxShards]sync.Mutex
	timeout time.Duration
}

func newShardedTx(timeout time.Duration) *shardedTx {
	if timeout <= 0 {
		timeout = defaultTxTimeout
	}
	return &shardedTx{timeout: timeout}
}

func (t *shardedTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	shard := selectShard(ctx)
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx)
}

// selectShard picks a shard from the key in context, or shard 0.
func selectShard(ctx context.Context) int {
	if key, ok := ctx.Value(txShardKeyCtx).(string); ok && key != "" {
		return int(xxh3.HashString(key) % numTxShards)
	}
	return 0
}

type txShardKey struct{}

var txShardKeyCtx = txShardKey{}

func withShardKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, txShardKeyCtx, key)
}
