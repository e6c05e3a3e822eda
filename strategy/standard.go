package strategy

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/kaifufi/nft-exchange-strategies-go/chain"
)

// Standard sells the maker's exact items at the maker's price
type Standard struct {
	base
}

// NewStandard creates the standard sale strategy
func NewStandard(protocol common.Address) *Standard {
	return &Standard{base: base{id: IDStandard, protocol: protocol}}
}

// Selectors implements Strategy
func (s *Standard) Selectors() []Selector {
	return []Selector{SelectorStandardSaleWithTakerBid, SelectorStandardSaleWithTakerAsk}
}

// Execute implements Strategy
func (s *Standard) Execute(ctx context.Context, call Call) (*Execution, error) {
	if err := s.checkCaller(call.Caller); err != nil {
		return nil, err
	}
	quote, err := s.quoteFor(call.Selector)
	if err != nil {
		return nil, err
	}
	if err := s.validateMaker(call.Maker, quote); err != nil {
		return nil, err
	}
	if err := checkTaker(call.Taker); err != nil {
		return nil, err
	}
	if err := checkSameItems(call.Taker, call.Maker); err != nil {
		return nil, err
	}

	maker := call.Maker
	switch quote {
	case chain.QuoteTypeAsk:
		if call.Taker.Price.Cmp(maker.Price) < 0 {
			return nil, fail(KindBidTooLow, "taker bid %s below ask %s", call.Taker.Price, maker.Price)
		}
	case chain.QuoteTypeBid:
		if call.Taker.Price.Cmp(maker.Price) > 0 {
			return nil, fail(KindAskTooHigh, "taker ask %s above bid %s", call.Taker.Price, maker.Price)
		}
	}

	return &Execution{
		Price:              new(big.Int).Set(maker.Price),
		ItemIDs:            copyInts(maker.ItemIDs),
		Amounts:            copyInts(maker.Amounts),
		IsNonceInvalidated: true,
	}, nil
}

// IsMakerValid implements Strategy
func (s *Standard) IsMakerValid(ctx context.Context, maker *chain.Maker, selector Selector) (bool, ErrorKind) {
	return precheck(func() error {
		quote, err := s.quoteFor(selector)
		if err != nil {
			return err
		}
		return s.validateMaker(maker, quote)
	})
}

func (s *Standard) quoteFor(selector Selector) (chain.QuoteType, error) {
	switch selector {
	case SelectorStandardSaleWithTakerBid:
		return chain.QuoteTypeAsk, nil
	case SelectorStandardSaleWithTakerAsk:
		return chain.QuoteTypeBid, nil
	default:
		return 0, fail(KindFunctionSelectorInvalid, "%s", selector)
	}
}

func (s *Standard) validateMaker(maker *chain.Maker, quote chain.QuoteType) error {
	if err := checkQuote(maker, quote); err != nil {
		return err
	}
	if err := checkShape(maker.ItemIDs, maker.Amounts); err != nil {
		return err
	}
	return checkAmounts(maker.Amounts, maker.CollectionType)
}
