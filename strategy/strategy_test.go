package strategy

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaifufi/nft-exchange-strategies-go/chain"
	"github.com/kaifufi/nft-exchange-strategies-go/ledger"
	"github.com/kaifufi/nft-exchange-strategies-go/oracle"
)

var (
	protocol   = common.HexToAddress("0x0000000000E655fAe4d56241588680F86E3b2377")
	stranger   = common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	collection = common.HexToAddress("0xBC4CA0EdA7647A8aB7C2061c2E118A18a936f13D")
	weth       = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
)

// ether converts a decimal amount into its 18-decimal integer form
func ether(amount string) *big.Int {
	return decimal.RequireFromString(amount).Shift(18).BigInt()
}

func ints(values ...int64) []*big.Int {
	out := make([]*big.Int, len(values))
	for i, v := range values {
		out[i] = big.NewInt(v)
	}
	return out
}

func mustEncode(data []byte, err error) []byte {
	if err != nil {
		panic(err)
	}
	return data
}

func requireKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, KindOf(err), "error: %v", err)
	assert.ErrorIs(t, err, kind.Err())
}

func TestSelectors_AreDistinct(t *testing.T) {
	all := []Strategy{
		NewStandard(protocol),
		NewCollectionOffer(protocol),
		NewDutchAuction(protocol, nil),
		NewItemIDsRange(protocol),
		NewFloorFromOracle(protocol, nil, weth),
		NewMultiFillCollection(protocol, ledger.NewMemoryLedger()),
	}

	seen := make(map[Selector]chain.StrategyID)
	ids := make(map[chain.StrategyID]bool)
	for _, s := range all {
		assert.False(t, ids[s.ID()], "duplicate id %d", s.ID())
		ids[s.ID()] = true
		for _, sel := range s.Selectors() {
			prev, dup := seen[sel]
			assert.False(t, dup, "selector %s shared by %d and %d", sel, prev, s.ID())
			seen[sel] = s.ID()
		}
	}
	assert.Len(t, seen, 15)
}

func TestNewSelector(t *testing.T) {
	// transfer(address,uint256)
	assert.Equal(t, "0xa9059cbb", NewSelector("transfer(address,uint256)").String())
}

func TestWrongCaller_CheckedFirst(t *testing.T) {
	all := []Strategy{
		NewStandard(protocol),
		NewCollectionOffer(protocol),
		NewDutchAuction(protocol, nil),
		NewItemIDsRange(protocol),
		NewFloorFromOracle(protocol, nil, weth),
		NewMultiFillCollection(protocol, ledger.NewMemoryLedger()),
	}
	for _, s := range all {
		t.Run(fmt.Sprintf("strategy-%d", s.ID()), func(t *testing.T) {
			// nil orders would fail validation, so the caller check must come before it
			_, err := s.Execute(context.Background(), Call{Caller: stranger, Selector: s.Selectors()[0]})
			requireKind(t, err, KindWrongCaller)
		})
	}
}

func TestIsMakerValid_NeverPanics(t *testing.T) {
	all := []Strategy{
		NewStandard(protocol),
		NewCollectionOffer(protocol),
		NewDutchAuction(protocol, nil),
		NewItemIDsRange(protocol),
		NewFloorFromOracle(protocol, nil, weth),
		NewMultiFillCollection(protocol, ledger.NewMemoryLedger()),
	}
	for _, s := range all {
		for _, sel := range s.Selectors() {
			valid, kind := s.IsMakerValid(context.Background(), nil, sel)
			assert.False(t, valid)
			assert.Equal(t, KindOrderInvalid, kind)
		}
		valid, kind := s.IsMakerValid(context.Background(), &chain.Maker{}, Selector{0xde, 0xad, 0xbe, 0xef})
		assert.False(t, valid)
		assert.Equal(t, KindFunctionSelectorInvalid, kind)
	}
}

func TestPrecheck_RecoversPanics(t *testing.T) {
	valid, kind := precheck(func() error {
		var m *chain.Maker
		_ = m.Price.Sign()
		return nil
	})
	assert.False(t, valid)
	assert.Equal(t, KindOrderInvalid, kind)

	valid, kind = precheck(func() error { return nil })
	assert.True(t, valid)
	assert.Equal(t, KindNone, kind)
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{nil, KindNone},
		{fail(KindBidTooLow, "x"), KindBidTooLow},
		{fmt.Errorf("outer: %w", fail(KindMerkleProofInvalid, "x")), KindMerkleProofInvalid},
		{oracle.ErrPriceNotRecentEnough, KindPriceNotRecentEnough},
		{fmt.Errorf("%w: rpc down", oracle.ErrPriceFeedNotAvailable), KindPriceFeedNotAvailable},
		{oracle.ErrInvalidOraclePrice, KindInvalidOraclePrice},
		{ledger.ErrFillExceedsTotal, KindOrderInvalid},
		{ErrWrongCurrency, KindWrongCurrency},
		{errors.New("disk on fire"), KindInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, KindOf(tc.err), "%v", tc.err)
	}
}

func TestError_UnwrapsKindAndCause(t *testing.T) {
	err := oracleError(oracle.ErrPriceNotRecentEnough)
	assert.ErrorIs(t, err, ErrPriceNotRecentEnough)
	assert.Equal(t, "PriceNotRecentEnough", KindOf(err).String())

	cause := errors.New("connection refused")
	err = wrap(KindInternal, cause)
	assert.ErrorIs(t, err, ErrInternal)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "internal error: connection refused", err.Error())
}
