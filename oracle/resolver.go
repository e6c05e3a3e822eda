// Package oracle resolves per-collection floor prices from owner-registered feeds.
//
// Every read is checked for a positive answer and a timestamp inside the
// configured staleness window.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const (
	// MaximumLatencyLimit caps the configurable staleness window, in seconds
	MaximumLatencyLimit uint64 = 3600

	// PriceFeedDecimals is the precision every registered feed must report
	PriceFeedDecimals uint8 = 18
)

// Resolver errors
var (
	ErrPriceFeedNotAvailable = errors.New("price feed not available")
	ErrPriceNotRecentEnough  = errors.New("price not recent enough")
	ErrInvalidOraclePrice    = errors.New("invalid oracle price")
	ErrNotOwner              = errors.New("caller is not the owner")
	ErrLatencyTooHigh        = errors.New("latency exceeds maximum")
	ErrDecimalsInvalid       = errors.New("price feed decimals invalid")
)

// Event is a configuration change notification
type Event interface {
	isEvent()
}

// PriceFeedUpdated is emitted when a collection feed is set or removed (Feed == nil)
type PriceFeedUpdated struct {
	Collection common.Address
	Feed       Feed
}

// MaximumLatencyUpdated is emitted when the staleness window changes
type MaximumLatencyUpdated struct {
	Seconds uint64
}

func (PriceFeedUpdated) isEvent()      {}
func (MaximumLatencyUpdated) isEvent() {}

// Resolver reads per-collection floor prices and enforces sign and staleness checks.
// Configuration is owner-mutable and safe for concurrent use.
type Resolver struct {
	mu         sync.RWMutex
	owner      common.Address
	feeds      map[common.Address]Feed
	maxLatency uint64
	listeners  []func(Event)
	now        func() time.Time
	logger     *zap.Logger
}

// Option configures a Resolver
type Option func(*Resolver)

// WithClock overrides the time source used for staleness checks
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a Resolver owned by owner with the given staleness window
func NewResolver(owner common.Address, maxLatency uint64, opts ...Option) (*Resolver, error) {
	if maxLatency > MaximumLatencyLimit {
		return nil, fmt.Errorf("%w: %d > %d", ErrLatencyTooHigh, maxLatency, MaximumLatencyLimit)
	}
	r := &Resolver{
		owner:      owner,
		feeds:      make(map[common.Address]Feed),
		maxLatency: maxLatency,
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Owner returns the owner address
func (r *Resolver) Owner() common.Address {
	return r.owner
}

// MaximumLatency returns the staleness window in seconds
func (r *Resolver) MaximumLatency() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.maxLatency
}

// PriceFeed returns the feed registered for collection
func (r *Resolver) PriceFeed(collection common.Address) (Feed, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	feed, ok := r.feeds[collection]
	return feed, ok
}

// OnChange registers a listener for configuration changes
func (r *Resolver) OnChange(fn func(Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// SetPriceFeed registers feed for collection. A nil feed removes the registration.
func (r *Resolver) SetPriceFeed(ctx context.Context, caller, collection common.Address, feed Feed) error {
	if caller != r.owner {
		return ErrNotOwner
	}
	if feed != nil {
		decimals, err := feed.Decimals(ctx)
		if err != nil {
			return fmt.Errorf("failed to read feed decimals: %w", err)
		}
		if decimals != PriceFeedDecimals {
			return fmt.Errorf("%w: %d", ErrDecimalsInvalid, decimals)
		}
	}

	r.mu.Lock()
	if feed == nil {
		delete(r.feeds, collection)
	} else {
		r.feeds[collection] = feed
	}
	listeners := append([]func(Event){}, r.listeners...)
	r.mu.Unlock()

	r.logger.Info("price feed updated",
		zap.String("collection", collection.Hex()),
		zap.Bool("removed", feed == nil),
	)
	r.emit(listeners, PriceFeedUpdated{Collection: collection, Feed: feed})
	return nil
}

// SetMaximumLatency sets the staleness window in seconds
func (r *Resolver) SetMaximumLatency(caller common.Address, seconds uint64) error {
	if caller != r.owner {
		return ErrNotOwner
	}
	if seconds > MaximumLatencyLimit {
		return fmt.Errorf("%w: %d > %d", ErrLatencyTooHigh, seconds, MaximumLatencyLimit)
	}

	r.mu.Lock()
	r.maxLatency = seconds
	listeners := append([]func(Event){}, r.listeners...)
	r.mu.Unlock()

	r.logger.Info("maximum latency updated", zap.Uint64("seconds", seconds))
	r.emit(listeners, MaximumLatencyUpdated{Seconds: seconds})
	return nil
}

// FloorPrice returns the current floor price of collection.
// A non-positive answer is corrupt; an answer older than the staleness window is rejected.
func (r *Resolver) FloorPrice(ctx context.Context, collection common.Address) (*big.Int, error) {
	r.mu.RLock()
	feed, ok := r.feeds[collection]
	maxLatency := r.maxLatency
	r.mu.RUnlock()

	if !ok {
		return nil, ErrPriceFeedNotAvailable
	}

	round, err := feed.LatestRoundData(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPriceFeedNotAvailable, err)
	}
	if round.Answer == nil || round.Answer.Sign() <= 0 {
		return nil, ErrInvalidOraclePrice
	}

	now := uint64(r.now().Unix())
	// updatedAt in the future cannot come from a healthy feed
	if round.UpdatedAt > now {
		return nil, fmt.Errorf("%w: updated in the future", ErrInvalidOraclePrice)
	}
	if now-round.UpdatedAt > maxLatency {
		return nil, ErrPriceNotRecentEnough
	}

	return new(big.Int).Set(round.Answer), nil
}

func (r *Resolver) emit(listeners []func(Event), ev Event) {
	for _, fn := range listeners {
		fn(ev)
	}
}
