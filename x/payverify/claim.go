package payverify

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"

	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/crypto"
	"github.com/onramp-one/ramp/errors"
)

// PaymentClaim is the provider-independent shape every payment proof
// must reduce to. Attestors and witnesses sign its canonical digest.
type PaymentClaim struct {
	// Method names the payment method the claim belongs to.
	Method string `json:"method"`
	// Processor is the fingerprint of the payment provider that
	// produced the claim.
	Processor []byte `json:"processor"`
	// PaymentID is the off-ledger payment's unique identifier.
	PaymentID string `json:"payment_id"`
	// PayeeHash commits to the payee identifier without revealing it.
	PayeeHash []byte `json:"payee_hash"`
	// Currency is the fiat currency code of the payment.
	Currency string `json:"currency"`
	// Amount is the payment amount in fiat minor units.
	Amount int64 `json:"amount"`
	// Status is the payment state as reported by the provider.
	Status string `json:"status"`
	// Timestamp is when the payment settled.
	Timestamp ramp.UnixTime `json:"timestamp"`
}

// Validate ensures the claim carries all required fields.
func (c *PaymentClaim) Validate() error {
	var err error
	if c.Method == "" {
		err = errors.AppendField(err, "Method", errors.ErrEmpty)
	}
	if len(c.Processor) == 0 {
		err = errors.AppendField(err, "Processor", errors.ErrEmpty)
	}
	if c.PaymentID == "" {
		err = errors.AppendField(err, "PaymentID", errors.ErrEmpty)
	}
	if len(c.PayeeHash) == 0 {
		err = errors.AppendField(err, "PayeeHash", errors.ErrEmpty)
	}
	if c.Currency == "" {
		err = errors.AppendField(err, "Currency", errors.ErrEmpty)
	}
	if c.Amount < 0 {
		err = errors.AppendField(err, "Amount", errors.ErrAmount)
	}
	if c.Status == "" {
		err = errors.AppendField(err, "Status", errors.ErrEmpty)
	}
	return err
}

// Digest returns the canonical signing payload of the claim. Every
// field is length-prefixed so no two distinct claims can collide.
func (c *PaymentClaim) Digest() []byte {
	h := sha256.New()
	writeField := func(raw []byte) {
		var length [8]byte
		binary.BigEndian.PutUint64(length[:], uint64(len(raw)))
		h.Write(length[:])
		h.Write(raw)
	}
	var num [8]byte

	writeField([]byte(c.Method))
	writeField(c.Processor)
	writeField([]byte(c.PaymentID))
	writeField(c.PayeeHash)
	writeField([]byte(c.Currency))
	binary.BigEndian.PutUint64(num[:], uint64(c.Amount))
	writeField(num[:])
	writeField([]byte(c.Status))
	binary.BigEndian.PutUint64(num[:], uint64(c.Timestamp))
	writeField(num[:])

	return h.Sum(nil)
}

// WitnessSignature is one attestor's signature over a claim digest.
// The public key identifies the signer.
type WitnessSignature struct {
	Pubkey    *crypto.PublicKey `json:"pubkey"`
	Signature *crypto.Signature `json:"signature"`
}

// Validate ensures both parts are present.
func (s *WitnessSignature) Validate() error {
	if s.Pubkey == nil {
		return errors.Wrap(errors.ErrEmpty, "pubkey")
	}
	if s.Signature == nil {
		return errors.Wrap(errors.ErrEmpty, "signature")
	}
	return nil
}

// PaymentProof is what a counterparty submits to fulfill an intent.
type PaymentProof struct {
	// IntentHash is the correlation identifier binding the proof to
	// one intent.
	IntentHash []byte `json:"intent_hash"`
	// Claim is the parsed payment information.
	Claim PaymentClaim `json:"claim"`
	// Attestations are signatures over the claim digest.
	Attestations []*WitnessSignature `json:"attestations"`
}

// Marshal serializes the proof.
func (p *PaymentProof) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// Unmarshal deserializes the proof.
func (p *PaymentProof) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, p)
}

// Validate ensures the proof is complete.
func (p *PaymentProof) Validate() error {
	var err error
	if len(p.IntentHash) == 0 {
		err = errors.AppendField(err, "IntentHash", errors.ErrEmpty)
	}
	if e := p.Claim.Validate(); e != nil {
		err = errors.AppendField(err, "Claim", e)
	}
	if len(p.Attestations) == 0 {
		err = errors.AppendField(err, "Attestations", errors.ErrEmpty)
	}
	for _, a := range p.Attestations {
		if e := a.Validate(); e != nil {
			err = errors.AppendField(err, "Attestations", e)
		}
	}
	return err
}
