package escrow

import (
	"encoding/json"

	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/coin"
	"github.com/onramp-one/ramp/crypto"
	"github.com/onramp-one/ramp/errors"
	"github.com/onramp-one/ramp/x/payverify"
)

var _ ramp.Msg = (*CreateDepositMsg)(nil)
var _ ramp.Msg = (*SignalIntentMsg)(nil)
var _ ramp.Msg = (*FulfillIntentMsg)(nil)
var _ ramp.Msg = (*ReleaseFundsMsg)(nil)
var _ ramp.Msg = (*CancelIntentMsg)(nil)
var _ ramp.Msg = (*WithdrawDepositMsg)(nil)
var _ ramp.Msg = (*AddVerifierMsg)(nil)
var _ ramp.Msg = (*RemoveVerifierMsg)(nil)
var _ ramp.Msg = (*UpdateVerifierFeeMsg)(nil)
var _ ramp.Msg = (*UpdateConfigurationMsg)(nil)

// CreateDepositMsg escrows tokens and opens them for sale.
type CreateDepositMsg struct {
	// Source pays for the deposit. Defaults to the main signer.
	Source ramp.Address `json:"source,omitempty"`
	// Amount is the value to escrow.
	Amount coin.Coin `json:"amount"`
	// MinIntent and MaxIntent bound a single reservation.
	MinIntent coin.Coin `json:"min_intent"`
	MaxIntent coin.Coin `json:"max_intent"`
	// PaymentMethods are the rails buyers can pay through.
	PaymentMethods []DepositPaymentMethod `json:"payment_methods"`
}

func (CreateDepositMsg) Path() string {
	return "escrow/create_deposit"
}

func (m *CreateDepositMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *CreateDepositMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *CreateDepositMsg) Validate() error {
	var err error
	if len(m.Source) != 0 {
		if e := m.Source.Validate(); e != nil {
			err = errors.AppendField(err, "Source", e)
		}
	}
	if !m.Amount.IsPositive() {
		err = errors.AppendField(err, "Amount", errors.Wrap(errors.ErrAmount, "must be positive"))
	}
	if e := m.Amount.Validate(); e != nil {
		err = errors.AppendField(err, "Amount", e)
	}
	if !m.MinIntent.IsPositive() {
		err = errors.AppendField(err, "MinIntent", errors.Wrap(errors.ErrAmount, "must be positive"))
	}
	if !m.MinIntent.SameType(m.Amount) || !m.MaxIntent.SameType(m.Amount) {
		err = errors.AppendField(err, "MinIntent", errors.Wrap(errors.ErrCurrency, "ticker mismatch"))
	} else if !m.MaxIntent.IsGTE(m.MinIntent) {
		err = errors.AppendField(err, "MaxIntent", errors.Wrap(errors.ErrAmount, "below minimum"))
	} else if !m.Amount.IsGTE(m.MaxIntent) {
		err = errors.AppendField(err, "MaxIntent", errors.Wrap(errors.ErrAmount, "exceeds deposit amount"))
	}
	if len(m.PaymentMethods) == 0 {
		err = errors.AppendField(err, "PaymentMethods", errors.ErrEmpty)
	}
	for i := range m.PaymentMethods {
		if e := m.PaymentMethods[i].Validate(); e != nil {
			err = errors.AppendField(err, "PaymentMethods", e)
		}
	}
	return err
}

// SignalIntentMsg reserves deposit liquidity for an off-chain payment.
type SignalIntentMsg struct {
	// DepositID references the deposit to reserve against.
	DepositID []byte `json:"deposit_id"`
	// Amount is the token value to reserve.
	Amount coin.Coin `json:"amount"`
	// To receives the tokens once the payment is verified.
	To ramp.Address `json:"to"`
	// Method is the payment rail the buyer will pay through.
	Method string `json:"method"`
	// Currency is the fiat currency the buyer pays in.
	Currency string `json:"currency"`
	// Rate is the agreed conversion rate in fiat minor units per whole
	// token. Must meet the depositor's floor.
	Rate int64 `json:"rate"`
	// GatingSignature is the gating authority's approval of this
	// reservation.
	GatingSignature *crypto.Signature `json:"gating_signature,omitempty"`
	// Data is opaque verifier specific payload.
	Data []byte `json:"data,omitempty"`
}

func (SignalIntentMsg) Path() string {
	return "escrow/signal_intent"
}

func (m *SignalIntentMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *SignalIntentMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *SignalIntentMsg) Validate() error {
	var err error
	if len(m.DepositID) == 0 {
		err = errors.AppendField(err, "DepositID", errors.ErrEmpty)
	}
	if !m.Amount.IsPositive() {
		err = errors.AppendField(err, "Amount", errors.Wrap(errors.ErrAmount, "must be positive"))
	}
	if e := m.Amount.Validate(); e != nil {
		err = errors.AppendField(err, "Amount", e)
	}
	if e := m.To.Validate(); e != nil {
		err = errors.AppendField(err, "To", e)
	}
	if m.Method == "" {
		err = errors.AppendField(err, "Method", errors.ErrEmpty)
	}
	if m.Currency == "" {
		err = errors.AppendField(err, "Currency", errors.ErrEmpty)
	}
	if m.Rate <= 0 {
		err = errors.AppendField(err, "Rate", errors.Wrap(errors.ErrAmount, "must be greater than zero"))
	}
	if m.GatingSignature != nil {
		if e := m.GatingSignature.Validate(); e != nil {
			err = errors.AppendField(err, "GatingSignature", e)
		}
	}
	return err
}

// FulfillIntentMsg redeems an intent with a payment proof.
type FulfillIntentMsg struct {
	// IntentHash is the primary key of the intent to redeem.
	IntentHash []byte `json:"intent_hash"`
	// Proof carries the payment claim and its attestations.
	Proof payverify.PaymentProof `json:"proof"`
}

func (FulfillIntentMsg) Path() string {
	return "escrow/fulfill_intent"
}

func (m *FulfillIntentMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *FulfillIntentMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *FulfillIntentMsg) Validate() error {
	var err error
	if len(m.IntentHash) == 0 {
		err = errors.AppendField(err, "IntentHash", errors.ErrEmpty)
	}
	if e := m.Proof.Validate(); e != nil {
		err = errors.AppendField(err, "Proof", e)
	}
	return err
}

// ReleaseFundsMsg releases a reservation to the buyer without a proof.
// Only the depositor can do this, for payments settled out of band.
type ReleaseFundsMsg struct {
	IntentHash []byte `json:"intent_hash"`
}

func (ReleaseFundsMsg) Path() string {
	return "escrow/release_funds"
}

func (m *ReleaseFundsMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *ReleaseFundsMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *ReleaseFundsMsg) Validate() error {
	if len(m.IntentHash) == 0 {
		return errors.Wrap(errors.ErrEmpty, "intent hash")
	}
	return nil
}

// CancelIntentMsg returns a reservation to the deposit. Only the intent
// owner can cancel before expiration.
type CancelIntentMsg struct {
	IntentHash []byte `json:"intent_hash"`
}

func (CancelIntentMsg) Path() string {
	return "escrow/cancel_intent"
}

func (m *CancelIntentMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *CancelIntentMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *CancelIntentMsg) Validate() error {
	if len(m.IntentHash) == 0 {
		return errors.Wrap(errors.ErrEmpty, "intent hash")
	}
	return nil
}

// WithdrawDepositMsg pays the unreserved balance back to the depositor.
// The deposit closes once the last reservation is settled.
type WithdrawDepositMsg struct {
	DepositID []byte `json:"deposit_id"`
}

func (WithdrawDepositMsg) Path() string {
	return "escrow/withdraw_deposit"
}

func (m *WithdrawDepositMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *WithdrawDepositMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *WithdrawDepositMsg) Validate() error {
	if len(m.DepositID) == 0 {
		return errors.Wrap(errors.ErrEmpty, "deposit id")
	}
	return nil
}

// AddVerifierMsg whitelists a payment verifier.
type AddVerifierMsg struct {
	VerifierID   string        `json:"verifier_id"`
	FeeShare     ramp.Fraction `json:"fee_share"`
	FeeRecipient ramp.Address  `json:"fee_recipient"`
}

func (AddVerifierMsg) Path() string {
	return "escrow/add_verifier"
}

func (m *AddVerifierMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *AddVerifierMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *AddVerifierMsg) Validate() error {
	info := VerifierInfo{
		VerifierID:   m.VerifierID,
		FeeShare:     m.FeeShare,
		FeeRecipient: m.FeeRecipient,
	}
	return info.Validate()
}

// RemoveVerifierMsg removes a verifier from the whitelist.
type RemoveVerifierMsg struct {
	VerifierID string `json:"verifier_id"`
}

func (RemoveVerifierMsg) Path() string {
	return "escrow/remove_verifier"
}

func (m *RemoveVerifierMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *RemoveVerifierMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *RemoveVerifierMsg) Validate() error {
	if m.VerifierID == "" {
		return errors.Wrap(errors.ErrEmpty, "verifier id")
	}
	return nil
}

// UpdateVerifierFeeMsg changes the fee terms of a whitelisted verifier.
type UpdateVerifierFeeMsg struct {
	VerifierID   string        `json:"verifier_id"`
	FeeShare     ramp.Fraction `json:"fee_share"`
	FeeRecipient ramp.Address  `json:"fee_recipient"`
}

func (UpdateVerifierFeeMsg) Path() string {
	return "escrow/update_verifier_fee"
}

func (m *UpdateVerifierFeeMsg) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func (m *UpdateVerifierFeeMsg) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, m)
}

func (m *UpdateVerifierFeeMsg) Validate() error {
	info := VerifierInfo{
		VerifierID:   m.VerifierID,
		FeeShare:     m.FeeShare,
		FeeRecipient: m.FeeRecipient,
	}
	return info.Validate()
}

// UpdateConfigurationMsg patches the package configuration.
type UpdateConfigurationMsg struct {
	Patch *Configuration `json:"patch"`
}

func (*UpdateConfigurationMsg) Path() string {
	return "escrow/update_configuration"
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
