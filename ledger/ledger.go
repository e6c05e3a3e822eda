// Package ledger tracks cumulative fills of maker orders satisfied across many calls.
//
// A counter is created on the first partial fill, incremented by each later fill
// and deleted once the cumulative fill reaches the declared total. Completion
// leaves a marker behind that rejects every later fill of the same order.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Ledger errors
var (
	ErrFillExceedsTotal = errors.New("fill exceeds declared total")
	ErrInvalidFill      = errors.New("invalid fill count")
	ErrOrderCompleted   = errors.New("order already completed")
)

// Ledger is a per-order-hash fill counter. Fill is a single atomic read-modify-write.
type Ledger interface {
	// Filled returns the cumulative fill recorded for orderHash (zero when absent)
	Filled(ctx context.Context, orderHash common.Hash) (*big.Int, error)

	// Fill adds count to the counter. It fails without mutation when the result would
	// exceed total or the order is completed. When the result equals total the counter
	// is deleted and the order marked completed in the same write.
	Fill(ctx context.Context, orderHash common.Hash, count, total *big.Int) (filled *big.Int, completed bool, err error)

	// Completed reports whether orderHash has been marked completed
	Completed(ctx context.Context, orderHash common.Hash) (bool, error)

	// MarkCompleted marks orderHash completed. Marking twice is not an error.
	MarkCompleted(ctx context.Context, orderHash common.Hash) error
}

// next computes the new counter value for a fill against current
func next(current, count, total *big.Int) (*big.Int, bool, error) {
	if count == nil || count.Sign() <= 0 || total == nil || total.Sign() <= 0 {
		return nil, false, ErrInvalidFill
	}
	updated := new(big.Int).Add(current, count)
	switch updated.Cmp(total) {
	case 1:
		return nil, false, fmt.Errorf("%w: %s + %s > %s", ErrFillExceedsTotal, current, count, total)
	case 0:
		return updated, true, nil
	default:
		return updated, false, nil
	}
}

func key(orderHash common.Hash) string {
	return "fill:" + orderHash.Hex()
}

func doneKey(orderHash common.Hash) string {
	return "done:" + orderHash.Hex()
}

func completedError(orderHash common.Hash) error {
	return fmt.Errorf("%w: %s", ErrOrderCompleted, orderHash.Hex())
}

// MemoryLedger keeps counters in process memory
type MemoryLedger struct {
	mu       sync.Mutex
	counters map[common.Hash]*big.Int
	done     map[common.Hash]struct{}
}

// NewMemoryLedger creates an empty MemoryLedger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		counters: make(map[common.Hash]*big.Int),
		done:     make(map[common.Hash]struct{}),
	}
}

// Filled implements Ledger
func (l *MemoryLedger) Filled(ctx context.Context, orderHash common.Hash) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.counters[orderHash]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

// Fill implements Ledger
func (l *MemoryLedger) Fill(ctx context.Context, orderHash common.Hash, count, total *big.Int) (*big.Int, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.done[orderHash]; ok {
		return nil, false, completedError(orderHash)
	}
	current, ok := l.counters[orderHash]
	if !ok {
		current = new(big.Int)
	}
	updated, completed, err := next(current, count, total)
	if err != nil {
		return nil, false, err
	}
	if completed {
		delete(l.counters, orderHash)
		l.done[orderHash] = struct{}{}
	} else {
		l.counters[orderHash] = updated
	}
	return new(big.Int).Set(updated), completed, nil
}

// Completed implements Ledger
func (l *MemoryLedger) Completed(ctx context.Context, orderHash common.Hash) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.done[orderHash]
	return ok, nil
}

// MarkCompleted implements Ledger
func (l *MemoryLedger) MarkCompleted(ctx context.Context, orderHash common.Hash) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.counters, orderHash)
	l.done[orderHash] = struct{}{}
	return nil
}

// Len returns the number of live counters
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counters)
}
