package escrow

import (
	"encoding/json"

	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/errors"
	"github.com/onramp-one/ramp/gconf"
)

// Configuration holds the escrow parameters. It can be changed by the
// owner via an UpdateConfigurationMsg.
type Configuration struct {
	// Owner can update this configuration and manage the verifier
	// whitelist.
	Owner ramp.Address `json:"owner"`
	// IntentExpirationPeriod is how long a reservation holds liquidity
	// before it can be reclaimed.
	IntentExpirationPeriod ramp.UnixDuration `json:"intent_expiration_period"`
	// SustainabilityFee is the protocol cut of every verified release.
	SustainabilityFee ramp.Fraction `json:"sustainability_fee"`
	// FeeRecipient collects the sustainability fee.
	FeeRecipient ramp.Address `json:"fee_recipient"`
	// AcceptAllVerifiers disables the verifier whitelist.
	AcceptAllVerifiers bool `json:"accept_all_verifiers"`
	// MultipleIntents allows one owner to hold several live intents.
	MultipleIntents bool `json:"multiple_intents"`
	// MaxPaymentMethods bounds the rails attached to one deposit.
	MaxPaymentMethods uint32 `json:"max_payment_methods"`
	// MaxCurrenciesPerMethod bounds the currencies per rail.
	MaxCurrenciesPerMethod uint32 `json:"max_currencies_per_method"`
	// MaxIntentsPerDeposit bounds the live reservations per deposit.
	MaxIntentsPerDeposit uint32 `json:"max_intents_per_deposit"`
}

var _ gconf.Configuration = (*Configuration)(nil)

// Marshal serializes the configuration.
func (c *Configuration) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// Unmarshal deserializes the configuration.
func (c *Configuration) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, c)
}

// GetOwner implements the gconf owned configuration interface.
func (c *Configuration) GetOwner() ramp.Address {
	return c.Owner
}

// Validate ensures the configuration is usable.
func (c *Configuration) Validate() error {
	var err error
	if e := c.Owner.Validate(); e != nil {
		err = errors.AppendField(err, "Owner", e)
	}
	if c.IntentExpirationPeriod <= 0 {
		err = errors.AppendField(err, "IntentExpirationPeriod", errors.Wrap(errors.ErrInput, "must be greater than zero"))
	}
	if e := c.SustainabilityFee.Validate(); e != nil {
		err = errors.AppendField(err, "SustainabilityFee", e)
	}
	if c.SustainabilityFee.Compare(ramp.Fraction{Numerator: 1, Denominator: 1}) > 0 {
		err = errors.AppendField(err, "SustainabilityFee", errors.Wrap(errors.ErrAmount, "above one"))
	}
	if !c.SustainabilityFee.IsZero() {
		if e := c.FeeRecipient.Validate(); e != nil {
			err = errors.AppendField(err, "FeeRecipient", e)
		}
	}
	if c.MaxPaymentMethods == 0 {
		err = errors.AppendField(err, "MaxPaymentMethods", errors.ErrEmpty)
	}
	if c.MaxCurrenciesPerMethod == 0 {
		err = errors.AppendField(err, "MaxCurrenciesPerMethod", errors.ErrEmpty)
	}
	if c.MaxIntentsPerDeposit == 0 {
		err = errors.AppendField(err, "MaxIntentsPerDeposit", errors.ErrEmpty)
	}
	return err
}

func loadConf(db gconf.ReadStore) (*Configuration, error) {
	var conf Configuration
	if err := gconf.Load(db, "escrow", &conf); err != nil {
		return nil, errors.Wrap(err, "load configuration")
	}
	return &conf, nil
}
