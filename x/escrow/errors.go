package escrow

import (
	"github.com/onramp-one/ramp/errors"
)

var (
	// ErrInsufficientLiquidity is raised when a deposit cannot cover a
	// reservation even after reclaiming all expired intents.
	ErrInsufficientLiquidity = errors.Register(1100, "insufficient liquidity")

	// ErrNotAccepting is raised when an intent is signaled against a
	// draining deposit.
	ErrNotAccepting = errors.Register(1101, "deposit not accepting intents")

	// ErrLiveIntent is raised when an owner signals a second intent
	// while multiple intents are disabled.
	ErrLiveIntent = errors.Register(1102, "owner already has a live intent")

	// ErrGatingSignature is raised when the deposit's gating authority
	// did not approve the intent.
	ErrGatingSignature = errors.Register(1103, "invalid gating signature")

	// ErrVerifierNotWhitelisted is raised when a payment method is
	// backed by a verifier outside of the whitelist.
	ErrVerifierNotWhitelisted = errors.Register(1104, "verifier not whitelisted")
)
