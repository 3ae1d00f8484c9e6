package editbuffer

import "errors"

var (
	ErrUnknownField  = errors.New("unknown edit field")
	ErrNothingStaged = errors.New("no pending value for this key")
)
