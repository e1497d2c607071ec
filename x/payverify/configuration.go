package payverify

import (
	"encoding/json"

	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/errors"
	"github.com/onramp-one/ramp/gconf"
)

// Configuration holds the payment verification settings.
type Configuration struct {
	// Owner is allowed to update the configuration and manage payment
	// methods.
	Owner ramp.Address `json:"owner"`
	// MaxCurrencies bounds the currency allow-list of one method.
	MaxCurrencies uint32 `json:"max_currencies"`
	// MaxProcessors bounds the processor set of one method.
	MaxProcessors uint32 `json:"max_processors"`
	// MaxWitnesses bounds the witness set of one method.
	MaxWitnesses uint32 `json:"max_witnesses"`
}

var _ gconf.Configuration = (*Configuration)(nil)

// GetOwner returns the address allowed to update the configuration.
func (c *Configuration) GetOwner() ramp.Address {
	return c.Owner
}

// Marshal serializes the configuration.
func (c *Configuration) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// Unmarshal deserializes the configuration.
func (c *Configuration) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, c)
}

// Validate ensures the configuration is complete.
func (c *Configuration) Validate() error {
	var err error
	err = errors.AppendField(err, "Owner", c.Owner.Validate())
	if c.MaxCurrencies == 0 {
		err = errors.AppendField(err, "MaxCurrencies", errors.ErrEmpty)
	}
	if c.MaxProcessors == 0 {
		err = errors.AppendField(err, "MaxProcessors", errors.ErrEmpty)
	}
	if c.MaxWitnesses == 0 {
		err = errors.AppendField(err, "MaxWitnesses", errors.ErrEmpty)
	}
	return err
}

func loadConf(db gconf.ReadStore) (Configuration, error) {
	var conf Configuration
	if err := gconf.Load(db, "payverify", &conf); err != nil {
		return conf, errors.Wrap(err, "load configuration")
	}
	return conf, nil
}
