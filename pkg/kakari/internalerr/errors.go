package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrCapacity          = errors.New("capacity exceeded")
	ErrUnsupportedPosSet = errors.New("unsupported POS set")
)
