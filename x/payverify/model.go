package payverify

import (
	"bytes"
	"encoding/json"

	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/errors"
	"github.com/onramp-one/ramp/orm"
)

// BucketName is where we store the payment methods
const BucketName = "pmt"

// PaymentMethod configures one payment rail and the single verifier
// responsible for it.
type PaymentMethod struct {
	// Method is the payment method identifier, also the storage key.
	Method string `json:"method"`
	// VerifierID names the verifier that judges claims for this rail.
	VerifierID string `json:"verifier_id"`
	// Currencies is the ordered allow-list of fiat currency codes.
	Currencies []string `json:"currencies"`
	// Processors are the authorized provider fingerprints.
	Processors [][]byte `json:"processors"`
	// TimestampBuffer is the tolerated clock skew between the intent
	// creation and the reported payment time.
	TimestampBuffer ramp.UnixDuration `json:"timestamp_buffer"`
	// MinWitnessSigs is the signature threshold for witness-backed
	// methods.
	MinWitnessSigs uint32 `json:"min_witness_sigs"`
	// Witnesses are the addresses of the designated attestors.
	Witnesses []ramp.Address `json:"witnesses"`
	// AcceptedStatus is the terminal payment state that releases funds.
	AcceptedStatus string `json:"accepted_status"`
}

var _ orm.Model = (*PaymentMethod)(nil)

// Marshal serializes the payment method.
func (m *PaymentMethod) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal deserializes the payment method.
func (m *PaymentMethod) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

// Validate ensures the payment method is complete and free of
// duplicate entries.
func (m *PaymentMethod) Validate() error {
	var err error
	if m.Method == "" {
		err = errors.AppendField(err, "Method", errors.ErrEmpty)
	}
	if m.VerifierID == "" {
		err = errors.AppendField(err, "VerifierID", errors.ErrEmpty)
	}
	if len(m.Currencies) == 0 {
		err = errors.AppendField(err, "Currencies", errors.ErrEmpty)
	}
	if e := validateCurrencies(m.Currencies); e != nil {
		err = errors.AppendField(err, "Currencies", e)
	}
	if e := validateProcessors(m.Processors); e != nil {
		err = errors.AppendField(err, "Processors", e)
	}
	if e := m.TimestampBuffer.Validate(); e != nil {
		err = errors.AppendField(err, "TimestampBuffer", e)
	}
	for _, w := range m.Witnesses {
		if e := w.Validate(); e != nil {
			err = errors.AppendField(err, "Witnesses", e)
		}
	}
	if int(m.MinWitnessSigs) > len(m.Witnesses) && m.MinWitnessSigs > 0 {
		err = errors.AppendField(err, "MinWitnessSigs", errors.Wrap(errors.ErrInput, "exceeds witness count"))
	}
	if m.AcceptedStatus == "" {
		err = errors.AppendField(err, "AcceptedStatus", errors.ErrEmpty)
	}
	return err
}

// HasCurrency returns true if the currency code is on the allow-list.
func (m *PaymentMethod) HasCurrency(currency string) bool {
	for _, c := range m.Currencies {
		if c == currency {
			return true
		}
	}
	return false
}

// HasProcessor returns true if the fingerprint is authorized.
func (m *PaymentMethod) HasProcessor(fingerprint []byte) bool {
	for _, p := range m.Processors {
		if bytes.Equal(p, fingerprint) {
			return true
		}
	}
	return false
}

func validateCurrencies(currencies []string) error {
	seen := make(map[string]struct{}, len(currencies))
	for _, c := range currencies {
		if c == "" {
			return errors.Wrap(errors.ErrEmpty, "currency code")
		}
		if _, ok := seen[c]; ok {
			return errors.Wrapf(errors.ErrDuplicate, "currency %q", c)
		}
		seen[c] = struct{}{}
	}
	return nil
}

func validateProcessors(processors [][]byte) error {
	for i, p := range processors {
		if len(p) == 0 {
			return errors.Wrap(errors.ErrEmpty, "processor fingerprint")
		}
		for _, o := range processors[:i] {
			if bytes.Equal(o, p) {
				return errors.Wrapf(errors.ErrDuplicate, "processor %X", p)
			}
		}
	}
	return nil
}

// NewBucket returns the payment method bucket, keyed by method name.
func NewBucket() orm.ModelBucket {
	return orm.NewModelBucket(BucketName, &PaymentMethod{})
}
