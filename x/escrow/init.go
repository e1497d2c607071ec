package escrow

import (
	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/errors"
	"github.com/onramp-one/ramp/gconf"
)

// Initializer fulfils the Initializer interface to load data from the
// genesis file
type Initializer struct{}

var _ ramp.Initializer = Initializer{}

// FromGenesis will parse the configuration and the initial verifier
// whitelist from genesis and save them to the database
func (Initializer) FromGenesis(opts ramp.Options, kv ramp.KVStore) error {
	if err := gconf.InitConfig(kv, opts, "escrow", &Configuration{}); err != nil {
		return errors.Wrap(err, "init config")
	}

	var verifiers []VerifierInfo
	if err := opts.ReadOptions("escrow", &verifiers); err != nil {
		return err
	}
	bucket := NewVerifierBucket()
	for i := range verifiers {
		v := verifiers[i]
		if _, err := bucket.Put(kv, []byte(v.VerifierID), &v); err != nil {
			return errors.Wrapf(err, "verifier %q", v.VerifierID)
		}
	}
	return nil
}
