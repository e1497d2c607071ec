package payverify

import (
	"github.com/onramp-one/ramp/errors"
)

var (
	// ErrAttestation is raised when the attestation carried by a proof
	// does not verify against the expected signer set.
	ErrAttestation = errors.Register(1200, "invalid attestation")

	// ErrProcessor is raised when the claimed payment processor is not
	// authorized for the payment method.
	ErrProcessor = errors.Register(1201, "processor not authorized")

	// ErrPaymentStatus is raised when the payment is not in the
	// accepted terminal status.
	ErrPaymentStatus = errors.Register(1202, "payment status not accepted")

	// ErrPayee is raised when the payee commitment of the claim does
	// not match the intent.
	ErrPayee = errors.Register(1203, "payee commitment mismatch")

	// ErrTimestamp is raised when the payment timestamp is outside of
	// the tolerated window around the intent creation.
	ErrTimestamp = errors.Register(1204, "payment timestamp out of range")

	// ErrWitness is raised when not enough distinct witness signatures
	// are present.
	ErrWitness = errors.Register(1205, "not enough witness signatures")
)
