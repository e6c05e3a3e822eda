package nftexchange

import (
	"github.com/kaifufi/nft-exchange-strategies-go/chain"
	"github.com/kaifufi/nft-exchange-strategies-go/strategy"
)

// Check is one maker order to pre-check against a strategy entry point
type Check struct {
	StrategyID chain.StrategyID
	Selector   strategy.Selector
	Maker      *chain.Maker
}

// Validity is the outcome of a pre-check. Kind is KindNone when Valid is true.
type Validity struct {
	Valid bool
	Kind  strategy.ErrorKind
}

// Reference reports whether the order failed on a reference-price dependent
// condition that may clear by itself once the oracle price moves.
func (v Validity) Reference() bool {
	switch v.Kind {
	case strategy.KindDiscountExceedsReferencePrice,
		strategy.KindPriceNotRecentEnough,
		strategy.KindPriceFeedNotAvailable,
		strategy.KindInvalidOraclePrice:
		return true
	default:
		return false
	}
}

type route struct {
	id       chain.StrategyID
	selector strategy.Selector
}
