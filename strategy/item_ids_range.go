package strategy

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/kaifufi/nft-exchange-strategies-go/chain"
)

// ItemIDsRange is a maker bid for a cumulative amount of items whose ids fall in
// the half-open range [min, max). The taker picks which items to sell.
type ItemIDsRange struct {
	base
}

// NewItemIDsRange creates the item id range strategy
func NewItemIDsRange(protocol common.Address) *ItemIDsRange {
	return &ItemIDsRange{base: base{id: IDItemIDsRange, protocol: protocol}}
}

// Selectors implements Strategy
func (s *ItemIDsRange) Selectors() []Selector {
	return []Selector{SelectorItemIDsRangeWithTakerAsk}
}

// Execute implements Strategy
func (s *ItemIDsRange) Execute(ctx context.Context, call Call) (*Execution, error) {
	if err := s.checkCaller(call.Caller); err != nil {
		return nil, err
	}
	params, err := s.validateMaker(call.Maker, call.Selector)
	if err != nil {
		return nil, err
	}
	if err := checkTaker(call.Taker); err != nil {
		return nil, err
	}

	taker := call.Taker
	if err := checkShape(taker.ItemIDs, taker.Amounts); err != nil {
		return nil, err
	}
	for i := 1; i < len(taker.ItemIDs); i++ {
		if taker.ItemIDs[i].Cmp(taker.ItemIDs[i-1]) <= 0 {
			return nil, fail(KindOrderInvalid, "item ids must be strictly ascending at index %d", i)
		}
	}
	if err := checkAmounts(taker.Amounts, call.Maker.CollectionType); err != nil {
		return nil, err
	}

	// Ids outside the range do not count toward the desired amount but are not rejected.
	total := new(big.Int)
	for i, id := range taker.ItemIDs {
		if id.Cmp(params.MinItemID) >= 0 && id.Cmp(params.MaxItemID) < 0 {
			total.Add(total, taker.Amounts[i])
		}
	}
	if total.Cmp(params.DesiredAmount) != 0 {
		return nil, fail(KindOrderInvalid, "in-range amount %s differs from desired amount %s", total, params.DesiredAmount)
	}

	maker := call.Maker
	if taker.Price.Cmp(maker.Price) > 0 {
		return nil, fail(KindAskTooHigh, "taker ask %s above bid %s", taker.Price, maker.Price)
	}

	return &Execution{
		Price:              new(big.Int).Set(maker.Price),
		ItemIDs:            copyInts(taker.ItemIDs),
		Amounts:            copyInts(taker.Amounts),
		IsNonceInvalidated: true,
	}, nil
}

// IsMakerValid implements Strategy
func (s *ItemIDsRange) IsMakerValid(ctx context.Context, maker *chain.Maker, selector Selector) (bool, ErrorKind) {
	return precheck(func() error {
		_, err := s.validateMaker(maker, selector)
		return err
	})
}

func (s *ItemIDsRange) validateMaker(maker *chain.Maker, selector Selector) (*chain.RangeParams, error) {
	if selector != SelectorItemIDsRangeWithTakerAsk {
		return nil, fail(KindFunctionSelectorInvalid, "%s", selector)
	}
	if err := checkQuote(maker, chain.QuoteTypeBid); err != nil {
		return nil, err
	}
	params, err := chain.DecodeRange(maker.AdditionalParameters)
	if err != nil {
		return nil, decodeParams(err)
	}
	if params.MinItemID.Cmp(params.MaxItemID) >= 0 {
		return nil, fail(KindOrderInvalid, "empty item id range [%s, %s)", params.MinItemID, params.MaxItemID)
	}
	if params.DesiredAmount.Sign() == 0 {
		return nil, fail(KindOrderInvalid, "desired amount is zero")
	}
	return params, nil
}
