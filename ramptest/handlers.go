package ramptest

import "github.com/onramp-one/ramp"

// Handler is a mock implementation of the ramp.Handler interface.
//
// Each method call is counted. Regardless of the method call result the
// counter is incremented.
type Handler struct {
	checkCall   int
	CheckResult ramp.CheckResult
	CheckErr    error

	deliverCall   int
	DeliverResult ramp.DeliverResult
	DeliverErr    error
}

var _ ramp.Handler = (*Handler)(nil)

func (h *Handler) Check(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.CheckResult, error) {
	h.checkCall++
	return &h.CheckResult, h.CheckErr
}

func (h *Handler) Deliver(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.DeliverResult, error) {
	h.deliverCall++
	return &h.DeliverResult, h.DeliverErr
}

func (h *Handler) CheckCallCount() int {
	return h.checkCall
}

func (h *Handler) DeliverCallCount() int {
	return h.deliverCall
}

func (h *Handler) CallCount() int {
	return h.checkCall + h.deliverCall
}
