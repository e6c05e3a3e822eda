package strategy

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/kaifufi/nft-exchange-strategies-go/chain"
)

// DutchAuction is a maker ask whose price decays linearly from a start price to the
// maker's floor price over the order's time window.
type DutchAuction struct {
	base
	now func() time.Time
}

// NewDutchAuction creates the dutch auction strategy. A nil clock uses time.Now.
func NewDutchAuction(protocol common.Address, now func() time.Time) *DutchAuction {
	if now == nil {
		now = time.Now
	}
	return &DutchAuction{base: base{id: IDDutchAuction, protocol: protocol}, now: now}
}

// Selectors implements Strategy
func (s *DutchAuction) Selectors() []Selector {
	return []Selector{SelectorDutchAuctionWithTakerBid}
}

// Execute implements Strategy
func (s *DutchAuction) Execute(ctx context.Context, call Call) (*Execution, error) {
	if err := s.checkCaller(call.Caller); err != nil {
		return nil, err
	}
	if call.Selector != SelectorDutchAuctionWithTakerBid {
		return nil, fail(KindFunctionSelectorInvalid, "%s", call.Selector)
	}
	if err := s.validateShape(call.Maker); err != nil {
		return nil, err
	}
	if err := checkTaker(call.Taker); err != nil {
		return nil, err
	}
	if err := checkSameItems(call.Taker, call.Maker); err != nil {
		return nil, err
	}
	startPrice, err := s.startPrice(call.Maker)
	if err != nil {
		return nil, err
	}

	maker := call.Maker
	price := CurrentAuctionPrice(startPrice, maker.Price, maker.StartTime, maker.EndTime, uint64(s.now().Unix()))
	if call.Taker.Price.Cmp(price) < 0 {
		return nil, fail(KindBidTooLow, "taker bid %s below current price %s", call.Taker.Price, price)
	}

	return &Execution{
		Price:              price,
		ItemIDs:            copyInts(maker.ItemIDs),
		Amounts:            copyInts(maker.Amounts),
		IsNonceInvalidated: true,
	}, nil
}

// IsMakerValid implements Strategy
func (s *DutchAuction) IsMakerValid(ctx context.Context, maker *chain.Maker, selector Selector) (bool, ErrorKind) {
	return precheck(func() error {
		if selector != SelectorDutchAuctionWithTakerBid {
			return fail(KindFunctionSelectorInvalid, "%s", selector)
		}
		if err := s.validateShape(maker); err != nil {
			return err
		}
		_, err := s.startPrice(maker)
		return err
	})
}

func (s *DutchAuction) validateShape(maker *chain.Maker) error {
	if err := checkQuote(maker, chain.QuoteTypeAsk); err != nil {
		return err
	}
	if err := checkShape(maker.ItemIDs, maker.Amounts); err != nil {
		return err
	}
	if err := checkAmounts(maker.Amounts, maker.CollectionType); err != nil {
		return err
	}
	if maker.EndTime < maker.StartTime {
		return fail(KindOrderInvalid, "end time %d before start time %d", maker.EndTime, maker.StartTime)
	}
	return nil
}

// startPrice decodes the start price and requires it to be at least the floor price
func (s *DutchAuction) startPrice(maker *chain.Maker) (*big.Int, error) {
	startPrice, err := chain.DecodeUint256(maker.AdditionalParameters)
	if err != nil {
		return nil, decodeParams(err)
	}
	if startPrice.Cmp(maker.Price) < 0 {
		return nil, fail(KindOrderInvalid, "start price %s below floor price %s", startPrice, maker.Price)
	}
	return startPrice, nil
}

// CurrentAuctionPrice returns the decayed price at now. Elapsed time is clamped to
// [0, endTime-startTime]: the start price holds before the window and the floor price
// from endTime on. Requires startPrice >= floorPrice and endTime >= startTime.
func CurrentAuctionPrice(startPrice, floorPrice *big.Int, startTime, endTime, now uint64) *big.Int {
	if now >= endTime {
		return new(big.Int).Set(floorPrice)
	}
	if now <= startTime {
		return new(big.Int).Set(startPrice)
	}

	duration := new(big.Int).SetUint64(endTime - startTime)
	elapsed := new(big.Int).SetUint64(now - startTime)

	decay := new(big.Int).Sub(startPrice, floorPrice)
	decay.Mul(decay, elapsed)
	decay.Div(decay, duration)

	return new(big.Int).Sub(startPrice, decay)
}
