package cash

import (
	"encoding/json"

	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/coin"
	"github.com/onramp-one/ramp/errors"
	"github.com/onramp-one/ramp/gconf"
)

// Configuration is the cash package settings. MinimalFee is collected
// for every processed transaction and sent to the collector.
type Configuration struct {
	// Owner is allowed to update the configuration.
	Owner ramp.Address `json:"owner"`
	// CollectorAddress is the address that the fees are sent to.
	CollectorAddress ramp.Address `json:"collector_address"`
	// MinimalFee that is required for all transactions.
	MinimalFee coin.Coin `json:"minimal_fee"`
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
	err = errors.AppendField(err, "CollectorAddress", c.CollectorAddress.Validate())
	if !c.MinimalFee.IsZero() {
		if e := c.MinimalFee.Validate(); e != nil {
			err = errors.AppendField(err, "MinimalFee", e)
		} else if !c.MinimalFee.IsNonNegative() {
			err = errors.AppendField(err, "MinimalFee", errors.Wrap(errors.ErrState, "cannot be negative"))
		}
	}
	return err
}

func mustLoadConf(db gconf.ReadStore) Configuration {
	var conf Configuration
	if err := gconf.Load(db, "cash", &conf); err != nil {
		err = errors.Wrap(err, "load configuration")
		panic(err)
	}
	return conf
}
