package app

import (
	"github.com/onramp-one/ramp"
)

// Decorators holds a chain of decorators, not yet resolved by a Handler
type Decorators struct {
	chain []ramp.Decorator
}

// ChainDecorators takes a chain of decorators,
// and upon adding a final Handler (WithHandler),
// returns a Handler that will execute this whole stack.
func ChainDecorators(chain ...ramp.Decorator) Decorators {
	return Decorators{
		chain: chain,
	}
}

// Chain appends more decorators to the current chain
func (d Decorators) Chain(chain ...ramp.Decorator) Decorators {
	return Decorators{
		chain: append(d.chain, chain...),
	}
}

// WithHandler resolves the stack and returns a concrete Handler
// that will pass through the chain of decorators before calling
// the final Handler.
func (d Decorators) WithHandler(h ramp.Handler) ramp.Handler {
	for i := len(d.chain) - 1; i >= 0; i-- {
		h = chainedHandler{
			decorator: d.chain[i],
			next:      h,
		}
	}
	return h
}

// chainedHandler resolves one decorator with the rest of the stack
type chainedHandler struct {
	decorator ramp.Decorator
	next      ramp.Handler
}

var _ ramp.Handler = chainedHandler{}

func (c chainedHandler) Check(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.CheckResult, error) {
	return c.decorator.Check(ctx, db, tx, c.next)
}

func (c chainedHandler) Deliver(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.DeliverResult, error) {
	return c.decorator.Deliver(ctx, db, tx, c.next)
}
