package engine

import "errors"

// Per-item skip reasons. None of them fails a pass.
var (
	ErrDataUnavailable = errors.New("price, volume or metadata unavailable")
	ErrInvalidSpread   = errors.New("buy price not below sell price")
	ErrZeroQuantity    = errors.New("position size is zero")
)
