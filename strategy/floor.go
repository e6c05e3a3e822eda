package strategy

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/kaifufi/nft-exchange-strategies-go/chain"
	"github.com/kaifufi/nft-exchange-strategies-go/merkle"
)

// FloorFromOracle prices single-item orders relative to the collection floor price
// reported by an oracle. Asks add a premium to the floor, bids subtract a discount.
type FloorFromOracle struct {
	base
	pricer FloorPricer
	weth   common.Address
}

// NewFloorFromOracle creates the floor strategy. weth is the only currency accepted
// for bids; asks may also settle in the native currency (zero address).
func NewFloorFromOracle(protocol common.Address, pricer FloorPricer, weth common.Address) *FloorFromOracle {
	return &FloorFromOracle{
		base:   base{id: IDFloorFromOracle, protocol: protocol},
		pricer: pricer,
		weth:   weth,
	}
}

// Selectors implements Strategy
func (s *FloorFromOracle) Selectors() []Selector {
	return []Selector{
		SelectorFixedPremiumWithTakerBid,
		SelectorBasisPointsPremiumWithTakerBid,
		SelectorFixedDiscountWithTakerAsk,
		SelectorBasisPointsDiscountWithTakerAsk,
		SelectorFixedDiscountWithTakerAskWithProof,
		SelectorBasisPointsDiscountWithTakerAskWithProof,
	}
}

type floorMode struct {
	quote       chain.QuoteType
	basisPoints bool
	proof       bool
}

var floorModes = map[Selector]floorMode{
	SelectorFixedPremiumWithTakerBid:                 {quote: chain.QuoteTypeAsk},
	SelectorBasisPointsPremiumWithTakerBid:           {quote: chain.QuoteTypeAsk, basisPoints: true},
	SelectorFixedDiscountWithTakerAsk:                {quote: chain.QuoteTypeBid},
	SelectorBasisPointsDiscountWithTakerAsk:          {quote: chain.QuoteTypeBid, basisPoints: true},
	SelectorFixedDiscountWithTakerAskWithProof:       {quote: chain.QuoteTypeBid, proof: true},
	SelectorBasisPointsDiscountWithTakerAskWithProof: {quote: chain.QuoteTypeBid, basisPoints: true, proof: true},
}

// floorTerms is a validated maker order together with its decoded parameters
type floorTerms struct {
	mode       floorMode
	adjustment *big.Int
	root       common.Hash
}

// Execute implements Strategy
func (s *FloorFromOracle) Execute(ctx context.Context, call Call) (*Execution, error) {
	if err := s.checkCaller(call.Caller); err != nil {
		return nil, err
	}
	terms, err := s.validateMaker(call.Maker, call.Selector)
	if err != nil {
		return nil, err
	}
	if err := checkTaker(call.Taker); err != nil {
		return nil, err
	}

	maker := call.Maker
	if terms.mode.quote == chain.QuoteTypeAsk {
		price, err := s.desiredPrice(ctx, maker, terms)
		if err != nil {
			return nil, err
		}
		if price.Cmp(maker.Price) < 0 {
			price.Set(maker.Price)
		}
		if call.Taker.Price.Cmp(price) < 0 {
			return nil, fail(KindBidTooLow, "taker bid %s below price %s", call.Taker.Price, price)
		}
		return &Execution{
			Price:              price,
			ItemIDs:            copyInts(maker.ItemIDs),
			Amounts:            []*big.Int{big.NewInt(1)},
			IsNonceInvalidated: true,
		}, nil
	}

	itemID, proof, err := s.decodeOffer(terms.mode, call.Taker.AdditionalParameters)
	if err != nil {
		return nil, err
	}
	price, err := s.desiredPrice(ctx, maker, terms)
	if err != nil {
		return nil, err
	}
	if price.Cmp(maker.Price) > 0 {
		price.Set(maker.Price)
	}
	if call.Taker.Price.Cmp(price) > 0 {
		return nil, fail(KindAskTooHigh, "taker ask %s above price %s", call.Taker.Price, price)
	}
	if terms.mode.proof && !merkle.Verify(proof, terms.root, merkle.Leaf(itemID)) {
		return nil, fail(KindMerkleProofInvalid, "item %s not in committed set", itemID)
	}

	return &Execution{
		Price:              price,
		ItemIDs:            []*big.Int{itemID},
		Amounts:            []*big.Int{big.NewInt(1)},
		IsNonceInvalidated: true,
	}, nil
}

// IsMakerValid implements Strategy. Oracle failures and a discount at or above the
// current floor price are reported with their own kinds since they depend on the
// reference price rather than on the order.
func (s *FloorFromOracle) IsMakerValid(ctx context.Context, maker *chain.Maker, selector Selector) (bool, ErrorKind) {
	return precheck(func() error {
		terms, err := s.validateMaker(maker, selector)
		if err != nil {
			return err
		}
		_, err = s.desiredPrice(ctx, maker, terms)
		return err
	})
}

func (s *FloorFromOracle) validateMaker(maker *chain.Maker, selector Selector) (*floorTerms, error) {
	mode, ok := floorModes[selector]
	if !ok {
		return nil, fail(KindFunctionSelectorInvalid, "%s", selector)
	}
	if err := checkQuote(maker, mode.quote); err != nil {
		return nil, err
	}

	if mode.quote == chain.QuoteTypeAsk {
		if len(maker.ItemIDs) != 1 || len(maker.Amounts) != 1 {
			return nil, fail(KindOrderInvalid, "floor premium ask needs exactly one item")
		}
		if err := checkShape(maker.ItemIDs, maker.Amounts); err != nil {
			return nil, err
		}
	} else if len(maker.Amounts) != 1 {
		return nil, fail(KindOrderInvalid, "floor discount bid needs exactly one amount")
	}
	if !equal(maker.Amounts[0], common.Big1) {
		return nil, fail(KindOrderInvalid, "amount must be 1, got %v", maker.Amounts[0])
	}

	if err := s.checkCurrency(maker.Currency, mode.quote); err != nil {
		return nil, err
	}

	terms := &floorTerms{mode: mode}
	var err error
	if mode.proof {
		terms.adjustment, terms.root, err = chain.DecodeDiscountWithRoot(maker.AdditionalParameters)
	} else {
		terms.adjustment, err = chain.DecodeUint256(maker.AdditionalParameters)
	}
	if err != nil {
		return nil, decodeParams(err)
	}

	if mode.quote == chain.QuoteTypeBid && mode.basisPoints && terms.adjustment.Cmp(basisPoints) >= 0 {
		return nil, fail(KindOrderInvalid, "discount of %s basis points is not below %d", terms.adjustment, BasisPoints)
	}
	return terms, nil
}

func (s *FloorFromOracle) checkCurrency(currency common.Address, quote chain.QuoteType) error {
	if currency == s.weth {
		return nil
	}
	if quote == chain.QuoteTypeAsk && currency == (common.Address{}) {
		return nil
	}
	return fail(KindWrongCurrency, "currency %s not accepted", currency.Hex())
}

// desiredPrice reads the floor price and applies the maker's premium or discount
func (s *FloorFromOracle) desiredPrice(ctx context.Context, maker *chain.Maker, terms *floorTerms) (*big.Int, error) {
	floor, err := s.pricer.FloorPrice(ctx, maker.Collection)
	if err != nil {
		return nil, oracleError(err)
	}

	adjustment := terms.adjustment
	switch {
	case terms.mode.quote == chain.QuoteTypeAsk && terms.mode.basisPoints:
		return PremiumBasisPoints(floor, adjustment), nil
	case terms.mode.quote == chain.QuoteTypeAsk:
		return new(big.Int).Add(floor, adjustment), nil
	case terms.mode.basisPoints:
		return DiscountBasisPoints(floor, adjustment), nil
	default:
		if adjustment.Cmp(floor) >= 0 {
			return nil, fail(KindDiscountExceedsReferencePrice, "discount %s not below floor price %s", adjustment, floor)
		}
		return new(big.Int).Sub(floor, adjustment), nil
	}
}

func (s *FloorFromOracle) decodeOffer(mode floorMode, data []byte) (*big.Int, []common.Hash, error) {
	if !mode.proof {
		itemID, err := chain.DecodeUint256(data)
		if err != nil {
			return nil, nil, decodeParams(err)
		}
		return itemID, nil, nil
	}
	p, err := chain.DecodeItemProof(data)
	if err != nil {
		return nil, nil, decodeParams(err)
	}
	return p.ItemID, p.Proof, nil
}

// PremiumBasisPoints returns floor * (10000 + bp) / 10000, truncated
func PremiumBasisPoints(floor, bp *big.Int) *big.Int {
	out := new(big.Int).Add(basisPoints, bp)
	out.Mul(out, floor)
	return out.Quo(out, basisPoints)
}

// DiscountBasisPoints returns floor * (10000 - bp) / 10000, truncated. bp must not exceed 10000.
func DiscountBasisPoints(floor, bp *big.Int) *big.Int {
	out := new(big.Int).Sub(basisPoints, bp)
	out.Mul(out, floor)
	return out.Quo(out, basisPoints)
}
