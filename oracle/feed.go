package oracle

import (
	"context"
	"math/big"
	"sync"
)

// RoundData is the latest answer reported by a price feed.
// Answer is signed; UpdatedAt is a unix timestamp in seconds.
type RoundData struct {
	Answer    *big.Int
	UpdatedAt uint64
}

// Feed is a per-collection price oracle
type Feed interface {
	LatestRoundData(ctx context.Context) (RoundData, error)
	Decimals(ctx context.Context) (uint8, error)
}

// StaticFeed is an in-memory Feed whose answer is set by the caller
type StaticFeed struct {
	mu        sync.RWMutex
	answer    *big.Int
	updatedAt uint64
	decimals  uint8
	err       error
}

// NewStaticFeed creates a feed reporting answer at updatedAt with 18 decimals
func NewStaticFeed(answer *big.Int, updatedAt uint64) *StaticFeed {
	return &StaticFeed{
		answer:    new(big.Int).Set(answer),
		updatedAt: updatedAt,
		decimals:  PriceFeedDecimals,
	}
}

// Set replaces the reported answer and update time
func (f *StaticFeed) Set(answer *big.Int, updatedAt uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answer = new(big.Int).Set(answer)
	f.updatedAt = updatedAt
}

// SetDecimals replaces the reported decimals
func (f *StaticFeed) SetDecimals(decimals uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decimals = decimals
}

// SetError makes subsequent reads fail with err; nil clears it
func (f *StaticFeed) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// LatestRoundData implements Feed
func (f *StaticFeed) LatestRoundData(ctx context.Context) (RoundData, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.err != nil {
		return RoundData{}, f.err
	}
	return RoundData{Answer: new(big.Int).Set(f.answer), UpdatedAt: f.updatedAt}, nil
}

// Decimals implements Feed
func (f *StaticFeed) Decimals(ctx context.Context) (uint8, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.decimals, nil
}
