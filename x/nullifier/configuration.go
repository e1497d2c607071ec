package nullifier

import (
	"encoding/json"

	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/errors"
	"github.com/onramp-one/ramp/gconf"
)

// Configuration holds the capability list of addresses that are
// allowed to record nullifiers.
type Configuration struct {
	// Owner is allowed to update the configuration.
	Owner ramp.Address `json:"owner"`
	// Writers are the only addresses allowed to add nullifiers.
	Writers []ramp.Address `json:"writers"`
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
	if len(c.Writers) == 0 {
		err = errors.AppendField(err, "Writers", errors.ErrEmpty)
	}
	for _, w := range c.Writers {
		if e := w.Validate(); e != nil {
			err = errors.AppendField(err, "Writers", e)
		}
	}
	return err
}

func loadConf(db gconf.ReadStore) (Configuration, error) {
	var conf Configuration
	if err := gconf.Load(db, "nullifier", &conf); err != nil {
		return conf, errors.Wrap(err, "load configuration")
	}
	return conf, nil
}
