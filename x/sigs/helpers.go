package sigs

import (
	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/ramptest"
)

//----- mock objects for testing...

type StdTx struct {
	ramp.Tx
	Signatures []*StdSignature
}

var _ SignedTx = (*StdTx)(nil)
var _ ramp.Tx = (*StdTx)(nil)

func NewStdTx(payload []byte) *StdTx {
	msg := &ramptest.Msg{Serialized: payload}
	tx := &ramptest.Tx{Msg: msg}
	return &StdTx{Tx: tx}
}

func (tx StdTx) GetSignatures() []*StdSignature {
	return tx.Signatures
}

func (tx StdTx) GetSignBytes() ([]byte, error) {
	// marshal self w/o sigs
	s := tx.Signatures
	tx.Signatures = nil
	defer func() { tx.Signatures = s }()

	msg, err := tx.GetMsg()
	if err != nil {
		return nil, err
	}
	return msg.Marshal()
}
