package strategy

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/kaifufi/nft-exchange-strategies-go/chain"
	"github.com/kaifufi/nft-exchange-strategies-go/ledger"
)

// MultiFillCollection is a maker bid for a number of identical ERC721 items that
// can be filled by several takers. Progress is kept in a ledger keyed by the maker
// order hash; the nonce is invalidated only once the total is reached.
type MultiFillCollection struct {
	base
	ledger ledger.Ledger
}

// NewMultiFillCollection creates the multi-fill strategy on top of l
func NewMultiFillCollection(protocol common.Address, l ledger.Ledger) *MultiFillCollection {
	return &MultiFillCollection{base: base{id: IDMultiFillCollection, protocol: protocol}, ledger: l}
}

// Selectors implements Strategy
func (s *MultiFillCollection) Selectors() []Selector {
	return []Selector{SelectorMultiFillCollectionWithTakerAsk}
}

// Execute implements Strategy. The taker's minimum is compared against the total
// maker price for the items offered (unit price times count). The ledger is written
// last so a rejected call never touches the counter.
func (s *MultiFillCollection) Execute(ctx context.Context, call Call) (*Execution, error) {
	if err := s.checkCaller(call.Caller); err != nil {
		return nil, err
	}
	total, err := s.validateMaker(call.Maker, call.Selector)
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
	seen := make(map[string]struct{}, len(taker.ItemIDs))
	for i, amount := range taker.Amounts {
		if !equal(amount, common.Big1) {
			return nil, fail(KindOrderInvalid, "amount at index %d must be 1", i)
		}
		id := taker.ItemIDs[i].String()
		if _, dup := seen[id]; dup {
			return nil, fail(KindOrderInvalid, "item %s offered twice", id)
		}
		seen[id] = struct{}{}
	}

	count := big.NewInt(int64(len(taker.ItemIDs)))
	if count.Cmp(total) > 0 {
		return nil, fail(KindOrderInvalid, "%s items offered for a total of %s", count, total)
	}
	maker := call.Maker
	price := new(big.Int).Mul(maker.Price, count)
	if taker.Price.Cmp(price) > 0 {
		return nil, fail(KindAskTooHigh, "taker ask %s above %s for %s items", taker.Price, price, count)
	}

	_, completed, err := s.ledger.Fill(ctx, maker.Hash(), count, total)
	if err != nil {
		return nil, wrap(KindOf(err), err)
	}

	return &Execution{
		Price:              price,
		ItemIDs:            copyInts(taker.ItemIDs),
		Amounts:            copyInts(taker.Amounts),
		IsNonceInvalidated: completed,
	}, nil
}

// IsMakerValid implements Strategy
func (s *MultiFillCollection) IsMakerValid(ctx context.Context, maker *chain.Maker, selector Selector) (bool, ErrorKind) {
	return precheck(func() error {
		_, err := s.validateMaker(maker, selector)
		return err
	})
}

// Filled returns how much of maker has been filled so far
func (s *MultiFillCollection) Filled(ctx context.Context, maker *chain.Maker) (*big.Int, error) {
	return s.ledger.Filled(ctx, maker.Hash())
}

// validateMaker returns the declared total
func (s *MultiFillCollection) validateMaker(maker *chain.Maker, selector Selector) (*big.Int, error) {
	if selector != SelectorMultiFillCollectionWithTakerAsk {
		return nil, fail(KindFunctionSelectorInvalid, "%s", selector)
	}
	if err := checkQuote(maker, chain.QuoteTypeBid); err != nil {
		return nil, err
	}
	if maker.CollectionType != chain.CollectionTypeERC721 {
		return nil, fail(KindOrderInvalid, "multi-fill orders are ERC721 only")
	}
	if len(maker.Amounts) != 1 || maker.Amounts[0] == nil || maker.Amounts[0].Sign() <= 0 {
		return nil, fail(KindOrderInvalid, "multi-fill order needs one positive total")
	}
	return maker.Amounts[0], nil
}
