package app

import (
	"fmt"
	"regexp"

	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/errors"
)

// isPath describes what a valid routing path looks like.
var isPath = regexp.MustCompile(`^[a-z0-9_/]+$`).MatchString

// Router allows us to register many handlers with different
// paths and then direct each message to the registered handler.
type Router struct {
	routes map[string]ramp.Handler
}

var _ ramp.Registry = (*Router)(nil)
var _ ramp.Handler = (*Router)(nil)

// NewRouter initializes a router with no routes
func NewRouter() *Router {
	return &Router{
		routes: make(map[string]ramp.Handler),
	}
}

// Handle implements ramp.Registry interface. All registered messages must
// have a unique and valid path.
func (r *Router) Handle(m ramp.Msg, h ramp.Handler) {
	path := m.Path()
	if !isPath(path) {
		panic(fmt.Sprintf("invalid path: %q", path))
	}
	if _, ok := r.routes[path]; ok {
		panic(fmt.Sprintf("re-registering route: %q", path))
	}
	r.routes[path] = h
}

// handler returns the registered Handler for this message path. If no path is
// found, it returns a handler that always returns a not found error.
func (r *Router) handler(m ramp.Msg) ramp.Handler {
	path := m.Path()
	if h, ok := r.routes[path]; ok {
		return h
	}
	return notFoundHandler(path)
}

// Check dispatches to the proper handler based on path
func (r *Router) Check(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.CheckResult, error) {
	msg, err := tx.GetMsg()
	if err != nil {
		return nil, errors.Wrap(err, "cannot load msg")
	}
	h := r.handler(msg)
	return h.Check(ctx, db, tx)
}

// Deliver dispatches to the proper handler based on path
func (r *Router) Deliver(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.DeliverResult, error) {
	msg, err := tx.GetMsg()
	if err != nil {
		return nil, errors.Wrap(err, "cannot load msg")
	}
	h := r.handler(msg)
	return h.Deliver(ctx, db, tx)
}

// notFoundHandler always returns ErrNotFound error regardless of the
// arguments provided.
type notFoundHandler string

func (path notFoundHandler) Check(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.CheckResult, error) {
	return nil, errors.Wrapf(errors.ErrNotFound, "no handler for message path %q", string(path))
}

func (path notFoundHandler) Deliver(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.DeliverResult, error) {
	return nil, errors.Wrapf(errors.ErrNotFound, "no handler for message path %q", string(path))
}
