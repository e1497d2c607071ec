package cash

import (
	"encoding/json"

	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/coin"
	"github.com/onramp-one/ramp/errors"
)

var _ ramp.Msg = (*SendMsg)(nil)

const (
	sendTxCost int64 = 100

	maxMemoSize int = 128
	maxRefSize  int = 64
)

// SendMsg moves tokens from the source account to the destination.
type SendMsg struct {
	Source      ramp.Address `json:"source"`
	Destination ramp.Address `json:"destination"`
	Amount      *coin.Coin   `json:"amount"`
	// Memo is a free-form message to attach to the transfer.
	Memo string `json:"memo,omitempty"`
	// Ref is a reference to a payment or another transaction.
	Ref []byte `json:"ref,omitempty"`
}

// Path returns the routing path for this message
func (SendMsg) Path() string {
	return "cash/send"
}

// Marshal serializes the message.
func (s *SendMsg) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// Unmarshal deserializes the message.
func (s *SendMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, s)
}

// Validate makes sure that this is sensible
func (s *SendMsg) Validate() error {
	var err error
	if coin.IsEmpty(s.Amount) || !s.Amount.IsPositive() {
		err = errors.Wrapf(errors.ErrAmount, "non-positive SendMsg: %#v", s.Amount)
	} else {
		err = errors.Append(err, errors.Wrap(s.Amount.Validate(), "amount"))
	}
	err = errors.Append(err, errors.Wrap(s.Source.Validate(), "source"))
	err = errors.Append(err, errors.Wrap(s.Destination.Validate(), "destination"))
	if len(s.Memo) > maxMemoSize {
		err = errors.Append(err, errors.Wrap(errors.ErrState, "memo too long"))
	}
	if len(s.Ref) > maxRefSize {
		err = errors.Append(err, errors.Wrap(errors.ErrState, "ref too long"))
	}
	return err
}

var _ ramp.Msg = (*UpdateConfigurationMsg)(nil)

// UpdateConfigurationMsg updates the cash configuration. Only fields
// set in the patch are applied.
type UpdateConfigurationMsg struct {
	Patch *Configuration `json:"patch"`
}

// Path returns the routing path for this message
func (*UpdateConfigurationMsg) Path() string {
	return "cash/update_configuration"
}

// Marshal serializes the message.
func (m *UpdateConfigurationMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal deserializes the message.
func (m *UpdateConfigurationMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

// Validate will skip any zero fields and validate the set ones
func (m *UpdateConfigurationMsg) Validate() error {
	var err error
	if m.Patch == nil {
		return errors.Wrap(errors.ErrEmpty, "patch")
	}
	c := m.Patch
	if len(c.Owner) != 0 {
		err = errors.Wrap(c.Owner.Validate(), "owner")
	}
	if len(c.CollectorAddress) != 0 {
		err = errors.Append(err, errors.Wrap(c.CollectorAddress.Validate(), "collector"))
	}
	if !c.MinimalFee.IsZero() {
		err = errors.Append(err, errors.Wrap(c.MinimalFee.Validate(), "minimal fee"))
		if !c.MinimalFee.IsNonNegative() {
			err = errors.Append(err, errors.Wrap(errors.ErrState, "minimal fee cannot be negative"))
		}
	}
	return err
}
