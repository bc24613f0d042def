package agent

import "errors"

var (
	// ErrStepLimitExceeded indicates the loop hit its step ceiling before
	// the model produced a terminal answer
	ErrStepLimitExceeded = errors.New("step limit exceeded")
)
