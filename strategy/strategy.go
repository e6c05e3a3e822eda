// Package strategy implements the pricing and validation algorithms that turn a
// (taker, maker) pair into final trade terms.
//
// Each strategy validates through a single function returning an error. Execute
// returns that error to abort the call; IsMakerValid reports its kind as data and
// never panics.
package strategy

import (
	"context"
	"encoding/hex"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/kaifufi/nft-exchange-strategies-go/chain"
)

// Strategy ids
const (
	IDStandard            chain.StrategyID = 0
	IDCollectionOffer     chain.StrategyID = 1
	IDDutchAuction        chain.StrategyID = 2
	IDItemIDsRange        chain.StrategyID = 3
	IDFloorFromOracle     chain.StrategyID = 4
	IDMultiFillCollection chain.StrategyID = 5
)

// BasisPoints is the percentage base; 10000 represents 100%
const BasisPoints = 10_000

var basisPoints = big.NewInt(BasisPoints)

// Selector is a 4-byte function selector identifying an execution entry point
type Selector [4]byte

// NewSelector derives the selector of a function signature
func NewSelector(signature string) Selector {
	var s Selector
	copy(s[:], crypto.Keccak256([]byte(signature))[:4])
	return s
}

func (s Selector) String() string {
	return "0x" + hex.EncodeToString(s[:])
}

const (
	takerTuple = "(address,uint256,uint256[],uint256[],bytes)"
	makerTuple = "(uint8,uint256,uint256,uint256,uint256,uint8,address,address,address,uint256,uint256,uint256,uint256[],uint256[],bytes)"
)

func entryPoint(name string) Selector {
	return NewSelector(name + "(" + takerTuple + "," + makerTuple + ")")
}

// Execution entry points
var (
	SelectorStandardSaleWithTakerBid = entryPoint("executeStandardSaleStrategyWithTakerBid")
	SelectorStandardSaleWithTakerAsk = entryPoint("executeStandardSaleStrategyWithTakerAsk")

	SelectorCollectionWithTakerAsk                    = entryPoint("executeCollectionStrategyWithTakerAsk")
	SelectorCollectionWithTakerAskWithProof           = entryPoint("executeCollectionStrategyWithTakerAskWithProof")
	SelectorCollectionWithTakerAskWithPositionalProof = entryPoint("executeCollectionStrategyWithTakerAskWithPositionalProof")
	SelectorCollectionWithTakerAskWithRarityProof     = entryPoint("executeCollectionStrategyWithTakerAskWithRarityProof")

	SelectorDutchAuctionWithTakerBid = entryPoint("executeDutchAuctionStrategyWithTakerBid")

	SelectorItemIDsRangeWithTakerAsk = entryPoint("executeItemIdsRangeStrategyWithTakerAsk")

	SelectorFixedPremiumWithTakerBid                 = entryPoint("executeFixedPremiumStrategyWithTakerBid")
	SelectorBasisPointsPremiumWithTakerBid           = entryPoint("executeBasisPointsPremiumStrategyWithTakerBid")
	SelectorFixedDiscountWithTakerAsk                = entryPoint("executeFixedDiscountCollectionOfferStrategyWithTakerAsk")
	SelectorBasisPointsDiscountWithTakerAsk          = entryPoint("executeBasisPointsDiscountCollectionOfferStrategyWithTakerAsk")
	SelectorFixedDiscountWithTakerAskWithProof       = entryPoint("executeFixedDiscountCollectionOfferStrategyWithTakerAskWithProof")
	SelectorBasisPointsDiscountWithTakerAskWithProof = entryPoint("executeBasisPointsDiscountCollectionOfferStrategyWithTakerAskWithProof")

	SelectorMultiFillCollectionWithTakerAsk = entryPoint("executeMultiFillCollectionStrategyWithTakerAsk")
)

// Call is one execution request forwarded by the settlement caller
type Call struct {
	Caller   common.Address
	Selector Selector
	Taker    *chain.Taker
	Maker    *chain.Maker
}

// Execution is the outcome of a successful strategy execution
type Execution struct {
	Price              *big.Int
	ItemIDs            []*big.Int
	Amounts            []*big.Int
	IsNonceInvalidated bool
}

// Strategy is one pluggable trading mode
type Strategy interface {
	ID() chain.StrategyID
	Selectors() []Selector
	Execute(ctx context.Context, call Call) (*Execution, error)
	IsMakerValid(ctx context.Context, maker *chain.Maker, selector Selector) (bool, ErrorKind)
}

// FloorPricer resolves the reference floor price of a collection
type FloorPricer interface {
	FloorPrice(ctx context.Context, collection common.Address) (*big.Int, error)
}

// base holds what every strategy shares
type base struct {
	id       chain.StrategyID
	protocol common.Address
}

func (b base) ID() chain.StrategyID {
	return b.id
}

func (b base) checkCaller(caller common.Address) error {
	if caller != b.protocol {
		return fail(KindWrongCaller, "caller %s is not the protocol", caller.Hex())
	}
	return nil
}

// precheck runs validate and reports its outcome as data, converting panics into OrderInvalid
func precheck(validate func() error) (valid bool, kind ErrorKind) {
	defer func() {
		if r := recover(); r != nil {
			valid, kind = false, KindOrderInvalid
		}
	}()
	if err := validate(); err != nil {
		return false, KindOf(err)
	}
	return true, KindNone
}

func hasSelector(selectors []Selector, s Selector) bool {
	for _, candidate := range selectors {
		if candidate == s {
			return true
		}
	}
	return false
}

func checkQuote(maker *chain.Maker, want chain.QuoteType) error {
	if maker == nil {
		return fail(KindOrderInvalid, "missing maker order")
	}
	if maker.QuoteType != want {
		return fail(KindOrderInvalid, "maker must be a %s", want)
	}
	if maker.Price == nil || maker.Price.Sign() < 0 {
		return fail(KindOrderInvalid, "maker price missing")
	}
	return nil
}

func checkTaker(taker *chain.Taker) error {
	if taker == nil || taker.Price == nil || taker.Price.Sign() < 0 {
		return fail(KindOrderInvalid, "taker price missing")
	}
	return nil
}

// checkShape requires non-empty, equal-length item and amount arrays
func checkShape(itemIDs, amounts []*big.Int) error {
	if len(itemIDs) == 0 || len(itemIDs) != len(amounts) {
		return fail(KindOrderInvalid, "%d item ids for %d amounts", len(itemIDs), len(amounts))
	}
	for _, id := range itemIDs {
		if id == nil || id.Sign() < 0 {
			return fail(KindOrderInvalid, "invalid item id")
		}
	}
	return nil
}

// checkAmount enforces positive amounts and amount 1 for non-fungible items
func checkAmount(amount *big.Int, collectionType chain.CollectionType) error {
	if amount == nil || amount.Sign() <= 0 {
		return fail(KindOrderInvalid, "amount must be positive")
	}
	if collectionType == chain.CollectionTypeERC721 && amount.Cmp(common.Big1) != 0 {
		return fail(KindOrderInvalid, "ERC721 amount must be 1, got %s", amount)
	}
	return nil
}

func checkAmounts(amounts []*big.Int, collectionType chain.CollectionType) error {
	for _, amount := range amounts {
		if err := checkAmount(amount, collectionType); err != nil {
			return err
		}
	}
	return nil
}

// checkSameItems requires the taker to name exactly the maker's items and amounts
func checkSameItems(taker *chain.Taker, maker *chain.Maker) error {
	if len(taker.ItemIDs) != len(maker.ItemIDs) || len(taker.Amounts) != len(maker.Amounts) {
		return fail(KindOrderInvalid, "taker items do not match maker items")
	}
	for i := range maker.ItemIDs {
		if !equal(taker.ItemIDs[i], maker.ItemIDs[i]) || !equal(taker.Amounts[i], maker.Amounts[i]) {
			return fail(KindOrderInvalid, "taker item %d does not match maker", i)
		}
	}
	return nil
}

func equal(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}

func copyInts(values []*big.Int) []*big.Int {
	out := make([]*big.Int, len(values))
	for i, v := range values {
		out[i] = new(big.Int).Set(v)
	}
	return out
}

func decodeParams(err error) error {
	return fail(KindOrderInvalid, "%v", err)
}
