package sigs

import (
	"github.com/onramp-one/ramp/errors"
)

var (
	// ErrInvalidSequence is raised whenever the sequence of a signature
	// does not match the expected next value for the signing account.
	ErrInvalidSequence = errors.Register(1010, "invalid sequence")
)
