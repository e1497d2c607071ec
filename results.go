package ramp

import (
	common "github.com/tendermint/tendermint/libs/common"
)

// CheckResult captures any non-error response from a Check call.
type CheckResult struct {
	// Data is a machine-parseable return value, like id of created entity
	Data []byte
	// Log is human-readable informational string
	Log string
	// GasAllocated is the maximum units of work we allow this tx to perform
	GasAllocated int64
	// GasPayment is the total fees for this tx (or other source of payment)
	GasPayment int64
}

// DeliverResult captures any non-error response from a Deliver call.
type DeliverResult struct {
	// Data is a machine-parseable return value, like id of created entity
	Data []byte
	// Log is human-readable informational string
	Log string
	// GasUsed is the units of work performed by this transaction
	GasUsed int64
	// Tags are indexed by the node and can be used by clients to subscribe
	// to state transitions. This is the event mechanism of the engine.
	Tags []common.KVPair
}
