package patch

import "errors"

// Sentinel errors for patch application.
var (
	ErrInvalidPath  = errors.New("invalid patch path")
	ErrTypeMismatch = errors.New("patch value type mismatch")
	ErrUncopyable   = errors.New("value cannot be copied")
)
