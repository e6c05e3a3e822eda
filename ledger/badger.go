package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/dgraph-io/badger/v3"
	"github.com/ethereum/go-ethereum/common"
)

// BadgerLedger persists counters in BadgerDB. Each fill runs in one serializable
// transaction; a concurrent conflicting fill surfaces badger.ErrConflict.
type BadgerLedger struct {
	db *badger.DB
}

// NewBadgerLedger opens a BadgerLedger at path. An empty path keeps data in memory.
func NewBadgerLedger(path string) (*BadgerLedger, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // disable internal logging
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger db: %w", err)
	}
	return &BadgerLedger{db: db}, nil
}

// Filled implements Ledger
func (l *BadgerLedger) Filled(ctx context.Context, orderHash common.Hash) (*big.Int, error) {
	var filled *big.Int
	err := l.db.View(func(txn *badger.Txn) error {
		var err error
		filled, err = readCounter(txn, orderHash)
		return err
	})
	if err != nil {
		return nil, err
	}
	return filled, nil
}

// Fill implements Ledger
func (l *BadgerLedger) Fill(ctx context.Context, orderHash common.Hash, count, total *big.Int) (*big.Int, bool, error) {
	var (
		updated   *big.Int
		completed bool
	)
	err := l.db.Update(func(txn *badger.Txn) error {
		done, err := isDone(txn, orderHash)
		if err != nil {
			return err
		}
		if done {
			return completedError(orderHash)
		}
		current, err := readCounter(txn, orderHash)
		if err != nil {
			return err
		}
		updated, completed, err = next(current, count, total)
		if err != nil {
			return err
		}
		if completed {
			return markDone(txn, orderHash)
		}
		return txn.Set([]byte(key(orderHash)), []byte(updated.String()))
	})
	if err != nil {
		return nil, false, err
	}
	return updated, completed, nil
}

// Completed implements Ledger
func (l *BadgerLedger) Completed(ctx context.Context, orderHash common.Hash) (bool, error) {
	var done bool
	err := l.db.View(func(txn *badger.Txn) error {
		var err error
		done, err = isDone(txn, orderHash)
		return err
	})
	return done, err
}

// MarkCompleted implements Ledger
func (l *BadgerLedger) MarkCompleted(ctx context.Context, orderHash common.Hash) error {
	return l.db.Update(func(txn *badger.Txn) error {
		return markDone(txn, orderHash)
	})
}

// Close closes the underlying database
func (l *BadgerLedger) Close() error {
	return l.db.Close()
}

func readCounter(txn *badger.Txn, orderHash common.Hash) (*big.Int, error) {
	item, err := txn.Get([]byte(key(orderHash)))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, err
	}
	var counter *big.Int
	err = item.Value(func(v []byte) error {
		var ok bool
		counter, ok = new(big.Int).SetString(string(v), 10)
		if !ok {
			return fmt.Errorf("corrupt fill counter for %s", orderHash.Hex())
		}
		return nil
	})
	return counter, err
}

func isDone(txn *badger.Txn, orderHash common.Hash) (bool, error) {
	_, err := txn.Get([]byte(doneKey(orderHash)))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// markDone drops the counter and writes the completion marker
func markDone(txn *badger.Txn, orderHash common.Hash) error {
	if err := txn.Delete([]byte(key(orderHash))); err != nil {
		return err
	}
	return txn.Set([]byte(doneKey(orderHash)), []byte{1})
}
