package sigs

import (
	"context"

	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/x"
)

type contextKey int // local to the sigs module

const (
	contextKeySigners contextKey = iota
)

// withSigners is a private method, as only this module
// can add a signer
func withSigners(ctx ramp.Context, signers []ramp.Condition) ramp.Context {
	return context.WithValue(ctx, contextKeySigners, signers)
}

// SignedBy returns who signed the current Context.
// May be empty
func SignedBy(ctx ramp.Context) []ramp.Condition {
	val, _ := ctx.Value(contextKeySigners).([]ramp.Condition)
	return val
}

// Authenticate implements x.Authenticator and provides
// authentication based on public-key signatures.
type Authenticate struct{}

var _ x.Authenticator = Authenticate{}

// GetConditions returns who signed the current Context.
// May be empty
func (a Authenticate) GetConditions(ctx ramp.Context) []ramp.Condition {
	// (val, ok) form to return nil instead of panic if unset
	return SignedBy(ctx)
}

// HasAddress returns true if the given address
// had signed in the current Context.
func (a Authenticate) HasAddress(ctx ramp.Context, addr ramp.Address) bool {
	for _, s := range SignedBy(ctx) {
		if addr.Equals(s.Address()) {
			return true
		}
	}
	return false
}
