package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
)

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisLedger keeps counters in Redis. Fill uses WATCH/MULTI so that a concurrent
// writer on the same order aborts the transaction with redis.TxFailedErr.
type RedisLedger struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisLedger creates a RedisLedger; prefix namespaces the keys
func NewRedisLedger(client redis.UniversalClient, prefix string) *RedisLedger {
	return &RedisLedger{client: client, prefix: prefix}
}

// Filled implements Ledger
func (l *RedisLedger) Filled(ctx context.Context, orderHash common.Hash) (*big.Int, error) {
	return l.read(ctx, l.client, orderHash)
}

// Fill implements Ledger
func (l *RedisLedger) Fill(ctx context.Context, orderHash common.Hash, count, total *big.Int) (*big.Int, bool, error) {
	k, done := l.key(orderHash), l.doneKey(orderHash)
	var (
		updated   *big.Int
		completed bool
	)
	err := l.client.Watch(ctx, func(tx *redis.Tx) error {
		isDone, err := l.completed(ctx, tx, orderHash)
		if err != nil {
			return err
		}
		if isDone {
			return completedError(orderHash)
		}
		current, err := l.read(ctx, tx, orderHash)
		if err != nil {
			return err
		}
		updated, completed, err = next(current, count, total)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if completed {
				pipe.Del(ctx, k)
				pipe.Set(ctx, done, "1", 0)
			} else {
				pipe.Set(ctx, k, updated.String(), 0)
			}
			return nil
		})
		return err
	}, k, done)
	if err != nil {
		return nil, false, err
	}
	return updated, completed, nil
}

// Completed implements Ledger
func (l *RedisLedger) Completed(ctx context.Context, orderHash common.Hash) (bool, error) {
	return l.completed(ctx, l.client, orderHash)
}

// MarkCompleted implements Ledger
func (l *RedisLedger) MarkCompleted(ctx context.Context, orderHash common.Hash) error {
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, l.key(orderHash))
		pipe.Set(ctx, l.doneKey(orderHash), "1", 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("mark order completed: %w", err)
	}
	return nil
}

func (l *RedisLedger) completed(ctx context.Context, c getter, orderHash common.Hash) (bool, error) {
	n, err := c.Exists(ctx, l.doneKey(orderHash)).Result()
	if err != nil {
		return false, fmt.Errorf("read completion marker: %w", err)
	}
	return n > 0, nil
}

func (l *RedisLedger) read(ctx context.Context, c getter, orderHash common.Hash) (*big.Int, error) {
	v, err := c.Get(ctx, l.key(orderHash)).Result()
	if errors.Is(err, redis.Nil) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read fill counter: %w", err)
	}
	counter, ok := new(big.Int).SetString(v, 10)
	if !ok {
		return nil, fmt.Errorf("corrupt fill counter for %s", orderHash.Hex())
	}
	return counter, nil
}

func (l *RedisLedger) key(orderHash common.Hash) string {
	return l.prefix + key(orderHash)
}

func (l *RedisLedger) doneKey(orderHash common.Hash) string {
	return l.prefix + doneKey(orderHash)
}
