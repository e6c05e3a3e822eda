package strategy

import (
	"errors"
	"fmt"

	"github.com/kaifufi/nft-exchange-strategies-go/ledger"
	"github.com/kaifufi/nft-exchange-strategies-go/oracle"
)

// ErrorKind classifies why a strategy rejected an order
type ErrorKind uint8

const (
	KindNone ErrorKind = iota
	KindOrderInvalid
	KindBidTooLow
	KindAskTooHigh
	KindWrongCaller
	KindWrongCurrency
	KindPriceFeedNotAvailable
	KindPriceNotRecentEnough
	KindInvalidOraclePrice
	KindDiscountExceedsReferencePrice
	KindMerkleProofInvalid
	KindFunctionSelectorInvalid
	// KindInternal reports a backend failure rather than a property of the order
	KindInternal
)

// Sentinel errors, one per kind
var (
	ErrOrderInvalid                  = errors.New("order invalid")
	ErrBidTooLow                     = errors.New("bid too low")
	ErrAskTooHigh                    = errors.New("ask too high")
	ErrWrongCaller                   = errors.New("wrong caller")
	ErrWrongCurrency                 = errors.New("wrong currency")
	ErrPriceFeedNotAvailable         = oracle.ErrPriceFeedNotAvailable
	ErrPriceNotRecentEnough          = oracle.ErrPriceNotRecentEnough
	ErrInvalidOraclePrice            = oracle.ErrInvalidOraclePrice
	ErrDiscountExceedsReferencePrice = errors.New("discount exceeds reference price")
	ErrMerkleProofInvalid            = errors.New("merkle proof invalid")
	ErrFunctionSelectorInvalid       = errors.New("function selector invalid")
	ErrInternal                      = errors.New("internal error")
)

var kindErrors = map[ErrorKind]error{
	KindOrderInvalid:                  ErrOrderInvalid,
	KindBidTooLow:                     ErrBidTooLow,
	KindAskTooHigh:                    ErrAskTooHigh,
	KindWrongCaller:                   ErrWrongCaller,
	KindWrongCurrency:                 ErrWrongCurrency,
	KindPriceFeedNotAvailable:         ErrPriceFeedNotAvailable,
	KindPriceNotRecentEnough:          ErrPriceNotRecentEnough,
	KindInvalidOraclePrice:            ErrInvalidOraclePrice,
	KindDiscountExceedsReferencePrice: ErrDiscountExceedsReferencePrice,
	KindMerkleProofInvalid:            ErrMerkleProofInvalid,
	KindFunctionSelectorInvalid:       ErrFunctionSelectorInvalid,
	KindInternal:                      ErrInternal,
}

var kindNames = map[ErrorKind]string{
	KindNone:                          "None",
	KindOrderInvalid:                  "OrderInvalid",
	KindBidTooLow:                     "BidTooLow",
	KindAskTooHigh:                    "AskTooHigh",
	KindWrongCaller:                   "WrongCaller",
	KindWrongCurrency:                 "WrongCurrency",
	KindPriceFeedNotAvailable:         "PriceFeedNotAvailable",
	KindPriceNotRecentEnough:          "PriceNotRecentEnough",
	KindInvalidOraclePrice:            "InvalidOraclePrice",
	KindDiscountExceedsReferencePrice: "DiscountExceedsReferencePrice",
	KindMerkleProofInvalid:            "MerkleProofInvalid",
	KindFunctionSelectorInvalid:       "FunctionSelectorInvalid",
	KindInternal:                      "Internal",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", uint8(k))
}

// Err returns the sentinel error for k, or nil for KindNone
func (k ErrorKind) Err() error {
	return kindErrors[k]
}

// Error is a rejection raised by a strategy
type Error struct {
	Kind   ErrorKind
	Detail string
	cause  error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.Err().Error()
	}
	return e.Kind.Err().Error() + ": " + e.Detail
}

// Unwrap exposes both the kind sentinel and the underlying cause to errors.Is
func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Kind.Err(), e.cause}
	}
	return []error{e.Kind.Err()}
}

func fail(kind ErrorKind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func wrap(kind ErrorKind, cause error) error {
	return &Error{Kind: kind, Detail: cause.Error(), cause: cause}
}

// KindOf classifies err. Nil maps to KindNone and unrecognised errors to KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Kind
	}
	switch {
	case errors.Is(err, oracle.ErrPriceFeedNotAvailable):
		return KindPriceFeedNotAvailable
	case errors.Is(err, oracle.ErrPriceNotRecentEnough):
		return KindPriceNotRecentEnough
	case errors.Is(err, oracle.ErrInvalidOraclePrice):
		return KindInvalidOraclePrice
	case errors.Is(err, ledger.ErrFillExceedsTotal), errors.Is(err, ledger.ErrInvalidFill), errors.Is(err, ledger.ErrOrderCompleted):
		return KindOrderInvalid
	}
	for kind, sentinel := range kindErrors {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindInternal
}

// oracleError converts a resolver failure into a strategy rejection
func oracleError(err error) error {
	return wrap(KindOf(err), err)
}
