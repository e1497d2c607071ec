package nullifier

import (
	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/errors"
	"github.com/onramp-one/ramp/gconf"
	"github.com/onramp-one/ramp/x"
)

// RegisterRoutes will instantiate and register
// all handlers in this package
func RegisterRoutes(r ramp.Registry, auth x.Authenticator) {
	r.Handle(&UpdateConfigurationMsg{}, NewConfigHandler(auth))
}

// RegisterQuery will register this bucket as "/nullifiers"
func RegisterQuery(qr ramp.QueryRouter) {
	NewBucket().Register("nullifiers", qr)
}

// NewConfigHandler returns a handler for the configuration update message.
func NewConfigHandler(auth x.Authenticator) ramp.Handler {
	var conf Configuration
	return gconf.NewUpdateConfigurationHandler("nullifier", &conf, auth, nil)
}

// Initializer fulfils the Initializer interface to load data from
// the genesis file
type Initializer struct{}

var _ ramp.Initializer = Initializer{}

// FromGenesis will parse the initial configuration from genesis
// and save it to the database
func (Initializer) FromGenesis(opts ramp.Options, kv ramp.KVStore) error {
	if err := gconf.InitConfig(kv, opts, "nullifier", &Configuration{}); err != nil {
		return errors.Wrap(err, "init config")
	}
	return nil
}
