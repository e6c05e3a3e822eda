// Package nftexchange dispatches maker/taker pairs to execution strategies and
// pre-checks maker orders for indexers.
package nftexchange

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kaifufi/nft-exchange-strategies-go/chain"
	"github.com/kaifufi/nft-exchange-strategies-go/ledger"
	"github.com/kaifufi/nft-exchange-strategies-go/oracle"
	"github.com/kaifufi/nft-exchange-strategies-go/strategy"
)

// Engine is the strategy registry. Executions are applied one at a time; each
// either returns its terms or fails without side effects. Orders whose nonce was
// invalidated are recorded in the ledger and rejected from then on.
type Engine struct {
	chainID  ChainID
	protocol common.Address
	resolver *oracle.Resolver
	ledger   ledger.Ledger
	logger   *zap.Logger
	metrics  *metrics
	now      func() time.Time
	closers  []func() error

	mu         sync.RWMutex
	strategies map[chain.StrategyID]strategy.Strategy
	routes     map[route]strategy.Strategy

	execMu sync.Mutex
}

type engineOptions struct {
	logger     *zap.Logger
	registerer prometheus.Registerer
	now        func() time.Time
	ledger     ledger.Ledger
	feeds      map[common.Address]oracle.Feed
}

// Option configures an Engine
type Option func(*engineOptions)

// WithLogger sets the logger instead of building one from Config.LogLevel
func WithLogger(logger *zap.Logger) Option {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// WithRegisterer registers the engine metrics on reg. By default they go to a private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *engineOptions) {
		o.registerer = reg
	}
}

// WithClock overrides the time source used for auction pricing and oracle staleness
func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) {
		o.now = now
	}
}

// WithLedger uses l for multi-fill counters instead of the configured backend
func WithLedger(l ledger.Ledger) Option {
	return func(o *engineOptions) {
		o.ledger = l
	}
}

// WithPriceFeed registers feed for collection in addition to the configured feeds
func WithPriceFeed(collection common.Address, feed oracle.Feed) Option {
	return func(o *engineOptions) {
		if o.feeds == nil {
			o.feeds = make(map[common.Address]oracle.Feed)
		}
		o.feeds[collection] = feed
	}
}

// NewEngine creates an engine with every built-in strategy registered
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := engineOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		logger, err := NewLogger(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		o.logger = logger
	}
	if o.registerer == nil {
		o.registerer = prometheus.NewRegistry()
	}

	owner := common.HexToAddress(cfg.Owner)
	resolver, err := oracle.NewResolver(owner, cfg.MaxLatency,
		oracle.WithClock(o.now),
		oracle.WithLogger(o.logger.Named("oracle")),
	)
	if err != nil {
		return nil, &InvalidParamError{Message: err.Error()}
	}

	e := &Engine{
		chainID:    cfg.ChainID,
		protocol:   common.HexToAddress(cfg.ProtocolAddress),
		resolver:   resolver,
		logger:     o.logger,
		metrics:    newMetrics(o.registerer),
		now:        o.now,
		strategies: make(map[chain.StrategyID]strategy.Strategy),
		routes:     make(map[route]strategy.Strategy),
	}

	e.ledger = o.ledger
	if e.ledger == nil {
		if e.ledger, err = e.openLedger(cfg.Ledger); err != nil {
			e.Close()
			return nil, err
		}
	}

	ctx := context.Background()
	for collection, aggregator := range cfg.PriceFeeds {
		feed, err := chain.DialAggregator(ctx, cfg.RPCURL, common.HexToAddress(aggregator))
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("failed to dial price feed %s: %w", aggregator, err)
		}
		e.closers = append(e.closers, func() error { feed.Close(); return nil })
		if err := resolver.SetPriceFeed(ctx, owner, common.HexToAddress(collection), feed); err != nil {
			e.Close()
			return nil, fmt.Errorf("failed to register price feed for %s: %w", collection, err)
		}
	}
	for collection, feed := range o.feeds {
		if err := resolver.SetPriceFeed(ctx, owner, collection, feed); err != nil {
			e.Close()
			return nil, fmt.Errorf("failed to register price feed for %s: %w", collection.Hex(), err)
		}
	}

	weth := common.HexToAddress(cfg.WETH)
	builtins := []strategy.Strategy{
		strategy.NewStandard(e.protocol),
		strategy.NewCollectionOffer(e.protocol),
		strategy.NewDutchAuction(e.protocol, o.now),
		strategy.NewItemIDsRange(e.protocol),
		strategy.NewFloorFromOracle(e.protocol, resolver, weth),
		strategy.NewMultiFillCollection(e.protocol, e.ledger),
	}
	for _, s := range builtins {
		if err := e.Register(s); err != nil {
			e.Close()
			return nil, err
		}
	}

	resolver.OnChange(func(ev oracle.Event) {
		e.logger.Debug("oracle configuration changed", zap.Any("event", ev))
	})

	e.logger.Info("engine started",
		zap.Int("chain_id", int(cfg.ChainID)),
		zap.String("protocol", e.protocol.Hex()),
		zap.String("ledger", cfg.Ledger.Backend),
		zap.Int("price_feeds", len(cfg.PriceFeeds)+len(o.feeds)),
	)
	return e, nil
}

func (e *Engine) openLedger(cfg LedgerConfig) (ledger.Ledger, error) {
	switch cfg.Backend {
	case LedgerBadger:
		l, err := ledger.NewBadgerLedger(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger ledger: %w", err)
		}
		e.closers = append(e.closers, l.Close)
		return l, nil
	case LedgerRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		e.closers = append(e.closers, client.Close)
		return ledger.NewRedisLedger(client, cfg.RedisPrefix), nil
	default:
		return ledger.NewMemoryLedger(), nil
	}
}

// Close releases ledger and price feed connections
func (e *Engine) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.logger.Warn("failed to close resource", zap.Error(err))
		}
	}
	e.closers = nil
}

// Register adds s under its id and selectors. Ids and selectors must be unused.
func (e *Engine) Register(s strategy.Strategy) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.strategies[s.ID()]; ok {
		return fmt.Errorf("%w: id %d", ErrStrategyExists, s.ID())
	}
	for _, sel := range s.Selectors() {
		for r := range e.routes {
			if r.selector == sel {
				return fmt.Errorf("%w: selector %s", ErrStrategyExists, sel)
			}
		}
	}

	e.strategies[s.ID()] = s
	for _, sel := range s.Selectors() {
		e.routes[route{id: s.ID(), selector: sel}] = s
	}
	return nil
}

// Strategy returns the strategy registered under id
func (e *Engine) Strategy(id chain.StrategyID) (strategy.Strategy, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.strategies[id]
	return s, ok
}

// StrategyIDs returns the registered ids in ascending order
func (e *Engine) StrategyIDs() []chain.StrategyID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]chain.StrategyID, 0, len(e.strategies))
	for id := range e.strategies {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (e *Engine) lookup(id chain.StrategyID, selector strategy.Selector) (strategy.Strategy, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.routes[route{id: id, selector: selector}]
	return s, ok
}

// Execute runs the strategy entry point (strategyID, selector) for a taker/maker
// pair forwarded by caller.
func (e *Engine) Execute(ctx context.Context, strategyID chain.StrategyID, selector strategy.Selector, caller common.Address, taker *chain.Taker, maker *chain.Maker) (*strategy.Execution, error) {
	e.execMu.Lock()
	defer e.execMu.Unlock()

	start := e.now()
	exec, err := e.execute(ctx, strategyID, selector, caller, taker, maker)
	e.metrics.fillLatency.Observe(e.now().Sub(start).Seconds())

	outcome := "success"
	if err != nil {
		outcome = strategy.KindOf(err).String()
		e.logger.Debug("execution rejected",
			zap.Uint64("strategy", uint64(strategyID)),
			zap.Stringer("selector", selector),
			zap.String("kind", outcome),
			zap.Error(err),
		)
	} else {
		e.logger.Info("execution filled",
			zap.Uint64("strategy", uint64(strategyID)),
			zap.Stringer("selector", selector),
			zap.String("price", exec.Price.String()),
			zap.Int("items", len(exec.ItemIDs)),
			zap.Bool("nonce_invalidated", exec.IsNonceInvalidated),
		)
	}
	e.metrics.executions.WithLabelValues(strategyLabel(strategyID), selector.String(), outcome).Inc()
	return exec, err
}

func (e *Engine) execute(ctx context.Context, strategyID chain.StrategyID, selector strategy.Selector, caller common.Address, taker *chain.Taker, maker *chain.Maker) (*strategy.Execution, error) {
	if caller != e.protocol {
		return nil, fmt.Errorf("%w: %s is not the protocol", strategy.ErrWrongCaller, caller.Hex())
	}
	s, ok := e.lookup(strategyID, selector)
	if !ok {
		return nil, fmt.Errorf("%w: strategy %d has no entry point %s", strategy.ErrFunctionSelectorInvalid, strategyID, selector)
	}
	if maker == nil || maker.StrategyID != strategyID {
		return nil, fmt.Errorf("%w: maker order is not for strategy %d", strategy.ErrOrderInvalid, strategyID)
	}

	hash := maker.Hash()
	if err := e.checkNotConsumed(ctx, hash); err != nil {
		return nil, err
	}

	exec, err := s.Execute(ctx, strategy.Call{Caller: caller, Selector: selector, Taker: taker, Maker: maker})
	if err != nil {
		return nil, err
	}
	if exec.IsNonceInvalidated {
		if err := e.ledger.MarkCompleted(ctx, hash); err != nil {
			return nil, fmt.Errorf("%w: recording consumed order %s: %v", strategy.ErrInternal, hash.Hex(), err)
		}
	}
	return exec, nil
}

// IsMakerValid pre-checks maker for the entry point (strategyID, selector). It
// reports failures as data and never panics.
func (e *Engine) IsMakerValid(ctx context.Context, strategyID chain.StrategyID, selector strategy.Selector, maker *chain.Maker) (valid bool, kind strategy.ErrorKind) {
	defer func() {
		if r := recover(); r != nil {
			valid, kind = false, strategy.KindOrderInvalid
		}
		outcome := "valid"
		if !valid {
			outcome = kind.String()
		}
		e.metrics.checks.WithLabelValues(strategyLabel(strategyID), outcome).Inc()
	}()

	s, ok := e.lookup(strategyID, selector)
	if !ok {
		return false, strategy.KindFunctionSelectorInvalid
	}
	if maker == nil || maker.StrategyID != strategyID {
		return false, strategy.KindOrderInvalid
	}
	if err := e.checkNotConsumed(ctx, maker.Hash()); err != nil {
		return false, strategy.KindOf(err)
	}
	return s.IsMakerValid(ctx, maker, selector)
}

// CheckMakers pre-checks a batch of maker orders
func (e *Engine) CheckMakers(ctx context.Context, checks []Check) []Validity {
	out := make([]Validity, len(checks))
	for i, c := range checks {
		valid, kind := e.IsMakerValid(ctx, c.StrategyID, c.Selector, c.Maker)
		out[i] = Validity{Valid: valid, Kind: kind}
	}
	return out
}

// Filled returns the cumulative multi-fill progress of maker
func (e *Engine) Filled(ctx context.Context, maker *chain.Maker) (*big.Int, error) {
	return e.ledger.Filled(ctx, maker.Hash())
}

// Resolver returns the oracle resolver backing the floor strategies
func (e *Engine) Resolver() *oracle.Resolver {
	return e.resolver
}

// SetPriceFeed registers feed for collection. Only the resolver owner may call it.
func (e *Engine) SetPriceFeed(ctx context.Context, caller, collection common.Address, feed oracle.Feed) error {
	return e.resolver.SetPriceFeed(ctx, caller, collection, feed)
}

// SetMaximumLatency sets the oracle staleness window. Only the resolver owner may call it.
func (e *Engine) SetMaximumLatency(caller common.Address, seconds uint64) error {
	return e.resolver.SetMaximumLatency(caller, seconds)
}

func (e *Engine) checkNotConsumed(ctx context.Context, hash common.Hash) error {
	done, err := e.ledger.Completed(ctx, hash)
	if err != nil {
		return fmt.Errorf("%w: reading consumed orders: %v", strategy.ErrInternal, err)
	}
	if done {
		return fmt.Errorf("%w: maker order %s already consumed", strategy.ErrOrderInvalid, hash.Hex())
	}
	return nil
}

func strategyLabel(id chain.StrategyID) string {
	return fmt.Sprintf("%d", id)
}
