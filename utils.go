package nftexchange

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/kaifufi/nft-exchange-strategies-go/chain"
)

// MaxDecimals is the largest precision ParseUnits accepts
const MaxDecimals = 18

// ParseUnits converts a human-readable amount such as "9.7" into integer units
// with the given number of decimals. Amounts with more fractional digits than
// decimals are rejected rather than truncated.
func ParseUnits(amount string, decimals int32) (*big.Int, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return nil, &InvalidParamError{Message: fmt.Sprintf("decimals must be between 0 and %d, got: %d", MaxDecimals, decimals)}
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, &InvalidParamError{Message: fmt.Sprintf("invalid amount %q: %v", amount, err)}
	}
	if d.IsNegative() {
		return nil, &InvalidParamError{Message: fmt.Sprintf("amount must not be negative, got: %s", amount)}
	}

	shifted := d.Shift(decimals)
	if !shifted.IsInteger() {
		return nil, &InvalidParamError{Message: fmt.Sprintf("amount %s has more than %d decimals", amount, decimals)}
	}

	result := shifted.BigInt()
	if err := chain.CheckUint256(result); err != nil {
		return nil, &InvalidParamError{Message: fmt.Sprintf("amount too large for uint256: %s", result.String())}
	}
	return result, nil
}

// FormatUnits renders value with the given number of decimals, e.g. 9.7e18 -> "9.7"
func FormatUnits(value *big.Int, decimals int32) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value, -decimals).String()
}
