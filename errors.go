package nftexchange

import "errors"

var (
	// ErrInvalidParam represents an invalid parameter error
	ErrInvalidParam = errors.New("invalid parameter")

	// ErrStrategyExists is returned when registering a strategy id or selector twice
	ErrStrategyExists = errors.New("strategy already registered")
)

// InvalidParamError represents an invalid parameter error with context
type InvalidParamError struct {
	Message string
}

func (e *InvalidParamError) Error() string {
	return e.Message
}

// Is reports whether target is ErrInvalidParam
func (e *InvalidParamError) Is(target error) bool {
	return target == ErrInvalidParam
}
