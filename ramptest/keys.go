package ramptest

import (
	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/crypto"
)

func NewKey() crypto.Signer {
	return crypto.GenPrivKeyEd25519()
}

func NewCondition() ramp.Condition {
	return NewKey().PublicKey().Condition()
}
