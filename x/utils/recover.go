package utils

import (
	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/errors"
)

// Recovery is a decorator to recover from panics in transactions,
// so we can log them as errors
type Recovery struct{}

var _ ramp.Decorator = Recovery{}

// NewRecovery creates a Recovery decorator
func NewRecovery() Recovery {
	return Recovery{}
}

// Check turns panics into normal errors
func (r Recovery) Check(ctx ramp.Context, store ramp.KVStore, tx ramp.Tx, next ramp.Checker) (_ *ramp.CheckResult, err error) {
	defer errors.Recover(&err)
	return next.Check(ctx, store, tx)
}

// Deliver turns panics into normal errors
func (r Recovery) Deliver(ctx ramp.Context, store ramp.KVStore, tx ramp.Tx, next ramp.Deliverer) (_ *ramp.DeliverResult, err error) {
	defer errors.Recover(&err)
	return next.Deliver(ctx, store, tx)
}
