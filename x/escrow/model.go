package escrow

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"

	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/coin"
	"github.com/onramp-one/ramp/errors"
	"github.com/onramp-one/ramp/orm"
)

const (
	// DepositBucketName is where deposits are stored.
	DepositBucketName = "dep"
	// IntentBucketName is where live intents are stored.
	IntentBucketName = "int"
	// VerifierBucketName is where whitelisted verifiers are stored.
	VerifierBucketName = "vrf"
)

var depositSeq = orm.NewSequence("deposit", "id")
var intentSeq = orm.NewSequence("intent", "id")

// Condition returns the condition guarding the funds of a deposit.
func Condition(depositID []byte) ramp.Condition {
	return ramp.NewCondition("escrow", "seq", depositID)
}

// CurrencyRate pairs a fiat currency with the minimum conversion rate a
// depositor accepts, expressed in fiat minor units per whole token.
type CurrencyRate struct {
	Currency string `json:"currency"`
	MinRate  int64  `json:"min_rate"`
}

// Validate ensures the currency rate is usable.
func (c *CurrencyRate) Validate() error {
	var err error
	if c.Currency == "" {
		err = errors.AppendField(err, "Currency", errors.ErrEmpty)
	}
	if c.MinRate <= 0 {
		err = errors.AppendField(err, "MinRate", errors.Wrap(errors.ErrAmount, "must be greater than zero"))
	}
	return err
}

// DepositPaymentMethod attaches one payment rail to a deposit, together
// with the depositor specific data needed to verify payments through it.
type DepositPaymentMethod struct {
	// Method references a registered payment method by name.
	Method string `json:"method"`
	// GatingKey is an ed25519 public key that must co-sign every intent
	// signaled against this rail.
	GatingKey []byte `json:"gating_key"`
	// PayeeHash commits to the depositor's off-chain account identity.
	PayeeHash []byte `json:"payee_hash"`
	// Data is opaque verifier specific payload.
	Data []byte `json:"data,omitempty"`
	// Currencies lists accepted fiat currencies with their floor rates.
	Currencies []CurrencyRate `json:"currencies"`
}

// Validate ensures the payment rail declaration is complete.
func (m *DepositPaymentMethod) Validate() error {
	var err error
	if m.Method == "" {
		err = errors.AppendField(err, "Method", errors.ErrEmpty)
	}
	if len(m.GatingKey) == 0 {
		err = errors.AppendField(err, "GatingKey", errors.ErrEmpty)
	}
	if len(m.PayeeHash) == 0 {
		err = errors.AppendField(err, "PayeeHash", errors.ErrEmpty)
	}
	if len(m.Currencies) == 0 {
		err = errors.AppendField(err, "Currencies", errors.ErrEmpty)
	}
	seen := make(map[string]struct{}, len(m.Currencies))
	for i := range m.Currencies {
		c := &m.Currencies[i]
		if e := c.Validate(); e != nil {
			err = errors.AppendField(err, "Currencies", e)
			continue
		}
		if _, ok := seen[c.Currency]; ok {
			err = errors.AppendField(err, "Currencies", errors.Wrapf(errors.ErrDuplicate, "currency %q", c.Currency))
		}
		seen[c.Currency] = struct{}{}
	}
	return err
}

// RateFor returns the floor rate for the given currency and whether the
// currency is accepted at all.
func (m *DepositPaymentMethod) RateFor(currency string) (int64, bool) {
	for i := range m.Currencies {
		if m.Currencies[i].Currency == currency {
			return m.Currencies[i].MinRate, true
		}
	}
	return 0, false
}

// Deposit is a pool of escrowed tokens offered for sale. Funds are held
// on the deposit's condition address, never on the model itself.
type Deposit struct {
	// Depositor owns the deposit and receives withdrawn funds.
	Depositor ramp.Address `json:"depositor"`
	// Amount is the initially escrowed value.
	Amount coin.Coin `json:"amount"`
	// Remaining is the unreserved part of the escrow.
	Remaining coin.Coin `json:"remaining"`
	// Outstanding is the sum reserved by live intents.
	Outstanding coin.Coin `json:"outstanding"`
	// MinIntent and MaxIntent bound a single reservation.
	MinIntent coin.Coin `json:"min_intent"`
	MaxIntent coin.Coin `json:"max_intent"`
	// AcceptingIntents is false once the deposit is draining.
	AcceptingIntents bool `json:"accepting_intents"`
	// PaymentMethods are the rails a buyer can pay through.
	PaymentMethods []DepositPaymentMethod `json:"payment_methods"`
	// IntentHashes keys the live intents reserving this deposit.
	IntentHashes [][]byte `json:"intent_hashes,omitempty"`
	// CreatedAt is the block time of creation.
	CreatedAt ramp.UnixTime `json:"created_at"`
}

var _ orm.Model = (*Deposit)(nil)

// Marshal serializes the deposit.
func (d *Deposit) Marshal() ([]byte, error) {
	return json.Marshal(d)
}

// Unmarshal deserializes the deposit.
func (d *Deposit) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, d)
}

// Validate ensures the deposit is in a consistent state.
func (d *Deposit) Validate() error {
	var err error
	if e := d.Depositor.Validate(); e != nil {
		err = errors.AppendField(err, "Depositor", e)
	}
	if !d.Amount.IsPositive() {
		err = errors.AppendField(err, "Amount", errors.Wrap(errors.ErrAmount, "must be positive"))
	}
	if e := d.Amount.Validate(); e != nil {
		err = errors.AppendField(err, "Amount", e)
	}
	if e := d.Remaining.Validate(); e != nil {
		err = errors.AppendField(err, "Remaining", e)
	}
	if !d.Remaining.IsNonNegative() {
		err = errors.AppendField(err, "Remaining", errors.Wrap(errors.ErrAmount, "negative"))
	}
	if e := d.Outstanding.Validate(); e != nil {
		err = errors.AppendField(err, "Outstanding", e)
	}
	if !d.Outstanding.IsNonNegative() {
		err = errors.AppendField(err, "Outstanding", errors.Wrap(errors.ErrAmount, "negative"))
	}
	if !d.Amount.SameType(d.Remaining) || !d.Amount.SameType(d.Outstanding) {
		err = errors.AppendField(err, "Remaining", errors.Wrap(errors.ErrCurrency, "ticker mismatch"))
	}
	if !d.MinIntent.SameType(d.Amount) || !d.MaxIntent.SameType(d.Amount) {
		err = errors.AppendField(err, "MinIntent", errors.Wrap(errors.ErrCurrency, "ticker mismatch"))
	}
	if !d.MinIntent.IsPositive() {
		err = errors.AppendField(err, "MinIntent", errors.Wrap(errors.ErrAmount, "must be positive"))
	}
	if !d.MaxIntent.IsGTE(d.MinIntent) {
		err = errors.AppendField(err, "MaxIntent", errors.Wrap(errors.ErrAmount, "below minimum"))
	}
	if len(d.PaymentMethods) == 0 {
		err = errors.AppendField(err, "PaymentMethods", errors.ErrEmpty)
	}
	seen := make(map[string]struct{}, len(d.PaymentMethods))
	for i := range d.PaymentMethods {
		m := &d.PaymentMethods[i]
		if e := m.Validate(); e != nil {
			err = errors.AppendField(err, "PaymentMethods", e)
			continue
		}
		if _, ok := seen[m.Method]; ok {
			err = errors.AppendField(err, "PaymentMethods", errors.Wrapf(errors.ErrDuplicate, "method %q", m.Method))
		}
		seen[m.Method] = struct{}{}
	}
	if e := d.CreatedAt.Validate(); e != nil {
		err = errors.AppendField(err, "CreatedAt", e)
	}
	return err
}

// Method returns the payment rail with the given name, or nil if the
// deposit does not offer it.
func (d *Deposit) Method(name string) *DepositPaymentMethod {
	for i := range d.PaymentMethods {
		if d.PaymentMethods[i].Method == name {
			return &d.PaymentMethods[i]
		}
	}
	return nil
}

// RemoveIntentHash drops the given hash from the live intent list.
func (d *Deposit) RemoveIntentHash(hash []byte) {
	for i, h := range d.IntentHashes {
		if bytes.Equal(h, hash) {
			d.IntentHashes = append(d.IntentHashes[:i], d.IntentHashes[i+1:]...)
			return
		}
	}
}

// Intent is a buyer's reservation of deposit liquidity.
type Intent struct {
	// Owner signaled the intent and may cancel it.
	Owner ramp.Address `json:"owner"`
	// DepositID references the deposit the reservation is against.
	DepositID []byte `json:"deposit_id"`
	// Method is the payment rail the buyer will pay through.
	Method string `json:"method"`
	// To receives the released tokens.
	To ramp.Address `json:"to"`
	// Amount is the reserved token value.
	Amount coin.Coin `json:"amount"`
	// Currency is the fiat currency the buyer pays in.
	Currency string `json:"currency"`
	// Rate locks the conversion rate in fiat minor units per whole token.
	Rate int64 `json:"rate"`
	// CreatedAt starts the expiration clock.
	CreatedAt ramp.UnixTime `json:"created_at"`
	// Data is opaque verifier specific payload.
	Data []byte `json:"data,omitempty"`
}

var _ orm.Model = (*Intent)(nil)

// Marshal serializes the intent.
func (i *Intent) Marshal() ([]byte, error) {
	return json.Marshal(i)
}

// Unmarshal deserializes the intent.
func (i *Intent) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, i)
}

// Validate ensures the intent is complete.
func (i *Intent) Validate() error {
	var err error
	if e := i.Owner.Validate(); e != nil {
		err = errors.AppendField(err, "Owner", e)
	}
	if len(i.DepositID) == 0 {
		err = errors.AppendField(err, "DepositID", errors.ErrEmpty)
	}
	if i.Method == "" {
		err = errors.AppendField(err, "Method", errors.ErrEmpty)
	}
	if e := i.To.Validate(); e != nil {
		err = errors.AppendField(err, "To", e)
	}
	if !i.Amount.IsPositive() {
		err = errors.AppendField(err, "Amount", errors.Wrap(errors.ErrAmount, "must be positive"))
	}
	if e := i.Amount.Validate(); e != nil {
		err = errors.AppendField(err, "Amount", e)
	}
	if i.Currency == "" {
		err = errors.AppendField(err, "Currency", errors.ErrEmpty)
	}
	if i.Rate <= 0 {
		err = errors.AppendField(err, "Rate", errors.Wrap(errors.ErrAmount, "must be greater than zero"))
	}
	if e := i.CreatedAt.Validate(); e != nil {
		err = errors.AppendField(err, "CreatedAt", e)
	}
	return err
}

// Expired returns true once the reservation can be reclaimed.
func (i *Intent) Expired(period ramp.UnixDuration, now ramp.UnixTime) bool {
	return i.CreatedAt.Add(period.Duration()) <= now
}

// intentKey derives a unique primary key for an intent. The sequence
// value makes the key unique even for repeated reservations with the
// same parameters.
func intentKey(depositID []byte, owner ramp.Address, method string, seq []byte) []byte {
	h := sha256.New()
	h.Write(depositID)
	h.Write(owner)
	h.Write([]byte(method))
	h.Write(seq)
	return h.Sum(nil)
}

// VerifierInfo whitelists a payment verifier and configures its fee cut.
type VerifierInfo struct {
	// VerifierID matches the registry identifier.
	VerifierID string `json:"verifier_id"`
	// FeeShare is the fraction of every release paid to the verifier.
	FeeShare ramp.Fraction `json:"fee_share"`
	// FeeRecipient collects the verifier fee.
	FeeRecipient ramp.Address `json:"fee_recipient"`
}

var _ orm.Model = (*VerifierInfo)(nil)

// Marshal serializes the verifier info.
func (v *VerifierInfo) Marshal() ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal deserializes the verifier info.
func (v *VerifierInfo) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, v)
}

// Validate ensures the verifier info is complete and the fee share is
// not above one.
func (v *VerifierInfo) Validate() error {
	var err error
	if v.VerifierID == "" {
		err = errors.AppendField(err, "VerifierID", errors.ErrEmpty)
	}
	if e := v.FeeShare.Validate(); e != nil {
		err = errors.AppendField(err, "FeeShare", e)
	}
	if v.FeeShare.Compare(ramp.Fraction{Numerator: 1, Denominator: 1}) > 0 {
		err = errors.AppendField(err, "FeeShare", errors.Wrap(errors.ErrAmount, "above one"))
	}
	if !v.FeeShare.IsZero() {
		if e := v.FeeRecipient.Validate(); e != nil {
			err = errors.AppendField(err, "FeeRecipient", e)
		}
	}
	return err
}

// NewDepositBucket returns the deposit bucket. Keys are assigned from
// a sequence and deposits are additionally indexed by depositor.
func NewDepositBucket() orm.ModelBucket {
	return orm.NewModelBucket(DepositBucketName, &Deposit{},
		orm.WithIDSequence(depositSeq),
		orm.WithIndex("depositor", idxDepositor, false),
	)
}

// NewIntentBucket returns the intent bucket, indexed by owner and by
// deposit.
func NewIntentBucket() orm.ModelBucket {
	return orm.NewModelBucket(IntentBucketName, &Intent{},
		orm.WithIndex("owner", idxIntentOwner, false),
		orm.WithIndex("deposit", idxIntentDeposit, false),
	)
}

// NewVerifierBucket returns the verifier whitelist bucket, keyed by
// verifier identifier.
func NewVerifierBucket() orm.ModelBucket {
	return orm.NewModelBucket(VerifierBucketName, &VerifierInfo{})
}

func idxDepositor(obj orm.Object) ([]byte, error) {
	d, err := asDeposit(obj)
	if err != nil {
		return nil, err
	}
	return d.Depositor, nil
}

func asDeposit(obj orm.Object) (*Deposit, error) {
	if obj == nil || obj.Value() == nil {
		return nil, errors.Wrap(errors.ErrEmpty, "no deposit")
	}
	d, ok := obj.Value().(*Deposit)
	if !ok {
		return nil, errors.Wrapf(errors.ErrType, "%T", obj.Value())
	}
	return d, nil
}

func idxIntentOwner(obj orm.Object) ([]byte, error) {
	i, err := asIntent(obj)
	if err != nil {
		return nil, err
	}
	return i.Owner, nil
}

func idxIntentDeposit(obj orm.Object) ([]byte, error) {
	i, err := asIntent(obj)
	if err != nil {
		return nil, err
	}
	return i.DepositID, nil
}

func asIntent(obj orm.Object) (*Intent, error) {
	if obj == nil || obj.Value() == nil {
		return nil, errors.Wrap(errors.ErrEmpty, "no intent")
	}
	i, ok := obj.Value().(*Intent)
	if !ok {
		return nil, errors.Wrapf(errors.ErrType, "%T", obj.Value())
	}
	return i, nil
}
