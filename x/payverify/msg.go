package payverify

import (
	"encoding/json"

	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/errors"
)

var _ ramp.Msg = (*AddPaymentMethodMsg)(nil)
var _ ramp.Msg = (*RemovePaymentMethodMsg)(nil)
var _ ramp.Msg = (*AddCurrenciesMsg)(nil)
var _ ramp.Msg = (*RemoveCurrenciesMsg)(nil)
var _ ramp.Msg = (*AddProcessorsMsg)(nil)
var _ ramp.Msg = (*RemoveProcessorsMsg)(nil)
var _ ramp.Msg = (*SetTimestampBufferMsg)(nil)
var _ ramp.Msg = (*SetMinWitnessSigsMsg)(nil)
var _ ramp.Msg = (*UpdateConfigurationMsg)(nil)

// AddPaymentMethodMsg registers a new payment method. Fails if the
// method already exists.
type AddPaymentMethodMsg struct {
	PaymentMethod PaymentMethod `json:"payment_method"`
}

func (AddPaymentMethodMsg) Path() string {
	return "payverify/add_payment_method"
}

func (m *AddPaymentMethodMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *AddPaymentMethodMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *AddPaymentMethodMsg) Validate() error {
	return m.PaymentMethod.Validate()
}

// RemovePaymentMethodMsg deletes a payment method. Fails if the method
// does not exist.
type RemovePaymentMethodMsg struct {
	Method string `json:"method"`
}

func (RemovePaymentMethodMsg) Path() string {
	return "payverify/remove_payment_method"
}

func (m *RemovePaymentMethodMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *RemovePaymentMethodMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *RemovePaymentMethodMsg) Validate() error {
	if m.Method == "" {
		return errors.Wrap(errors.ErrEmpty, "method")
	}
	return nil
}

// AddCurrenciesMsg extends the currency allow-list of a method.
// Zero-value and duplicate codes are rejected.
type AddCurrenciesMsg struct {
	Method     string   `json:"method"`
	Currencies []string `json:"currencies"`
}

func (AddCurrenciesMsg) Path() string {
	return "payverify/add_currencies"
}

func (m *AddCurrenciesMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *AddCurrenciesMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *AddCurrenciesMsg) Validate() error {
	var err error
	if m.Method == "" {
		err = errors.AppendField(err, "Method", errors.ErrEmpty)
	}
	if len(m.Currencies) == 0 {
		err = errors.AppendField(err, "Currencies", errors.ErrEmpty)
	}
	if e := validateCurrencies(m.Currencies); e != nil {
		err = errors.AppendField(err, "Currencies", e)
	}
	return err
}

// RemoveCurrenciesMsg removes codes from the currency allow-list of a
// method. Missing codes are rejected.
type RemoveCurrenciesMsg struct {
	Method     string   `json:"method"`
	Currencies []string `json:"currencies"`
}

func (RemoveCurrenciesMsg) Path() string {
	return "payverify/remove_currencies"
}

func (m *RemoveCurrenciesMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *RemoveCurrenciesMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *RemoveCurrenciesMsg) Validate() error {
	var err error
	if m.Method == "" {
		err = errors.AppendField(err, "Method", errors.ErrEmpty)
	}
	if len(m.Currencies) == 0 {
		err = errors.AppendField(err, "Currencies", errors.ErrEmpty)
	}
	if e := validateCurrencies(m.Currencies); e != nil {
		err = errors.AppendField(err, "Currencies", e)
	}
	return err
}

// AddProcessorsMsg authorizes additional provider fingerprints for a
// method.
type AddProcessorsMsg struct {
	Method     string   `json:"method"`
	Processors [][]byte `json:"processors"`
}

func (AddProcessorsMsg) Path() string {
	return "payverify/add_processors"
}

func (m *AddProcessorsMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *AddProcessorsMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *AddProcessorsMsg) Validate() error {
	var err error
	if m.Method == "" {
		err = errors.AppendField(err, "Method", errors.ErrEmpty)
	}
	if len(m.Processors) == 0 {
		err = errors.AppendField(err, "Processors", errors.ErrEmpty)
	}
	if e := validateProcessors(m.Processors); e != nil {
		err = errors.AppendField(err, "Processors", e)
	}
	return err
}

// RemoveProcessorsMsg revokes provider fingerprints from a method.
type RemoveProcessorsMsg struct {
	Method     string   `json:"method"`
	Processors [][]byte `json:"processors"`
}

func (RemoveProcessorsMsg) Path() string {
	return "payverify/remove_processors"
}

func (m *RemoveProcessorsMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *RemoveProcessorsMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *RemoveProcessorsMsg) Validate() error {
	var err error
	if m.Method == "" {
		err = errors.AppendField(err, "Method", errors.ErrEmpty)
	}
	if len(m.Processors) == 0 {
		err = errors.AppendField(err, "Processors", errors.ErrEmpty)
	}
	if e := validateProcessors(m.Processors); e != nil {
		err = errors.AppendField(err, "Processors", e)
	}
	return err
}

// SetTimestampBufferMsg changes the tolerated clock skew of a method.
type SetTimestampBufferMsg struct {
	Method string            `json:"method"`
	Buffer ramp.UnixDuration `json:"buffer"`
}

func (SetTimestampBufferMsg) Path() string {
	return "payverify/set_timestamp_buffer"
}

func (m *SetTimestampBufferMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *SetTimestampBufferMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *SetTimestampBufferMsg) Validate() error {
	var err error
	if m.Method == "" {
		err = errors.AppendField(err, "Method", errors.ErrEmpty)
	}
	if e := m.Buffer.Validate(); e != nil {
		err = errors.AppendField(err, "Buffer", e)
	}
	return err
}

// SetMinWitnessSigsMsg changes the witness signature threshold of a
// method.
type SetMinWitnessSigsMsg struct {
	Method         string `json:"method"`
	MinWitnessSigs uint32 `json:"min_witness_sigs"`
}

func (SetMinWitnessSigsMsg) Path() string {
	return "payverify/set_min_witness_sigs"
}

func (m *SetMinWitnessSigsMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *SetMinWitnessSigsMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *SetMinWitnessSigsMsg) Validate() error {
	var err error
	if m.Method == "" {
		err = errors.AppendField(err, "Method", errors.ErrEmpty)
	}
	if m.MinWitnessSigs == 0 {
		err = errors.AppendField(err, "MinWitnessSigs", errors.ErrEmpty)
	}
	return err
}

// UpdateConfigurationMsg patches the package configuration.
type UpdateConfigurationMsg struct {
	Patch *Configuration `json:"patch"`
}

func (*UpdateConfigurationMsg) Path() string {
	return "payverify/update_configuration"
}

func (m *UpdateConfigurationMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *UpdateConfigurationMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *UpdateConfigurationMsg) Validate() error {
	if m.Patch == nil {
		return errors.Wrap(errors.ErrEmpty, "patch")
	}
	if len(m.Patch.Owner) != 0 {
		return errors.Wrap(m.Patch.Owner.Validate(), "owner")
	}
	return nil
}
