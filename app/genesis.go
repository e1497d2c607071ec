package app

import (
	"github.com/onramp-one/ramp"
)

// ChainInitializers lets you initialize many extensions with one function
func ChainInitializers(inits ...ramp.Initializer) ramp.Initializer {
	return chainInitializer{inits: inits}
}

type chainInitializer struct {
	inits []ramp.Initializer
}

// FromGenesis will pass opts to all Initializers in the list,
// aborting at the first error.
func (c chainInitializer) FromGenesis(opts ramp.Options, kv ramp.KVStore) error {
	for _, i := range c.inits {
		if err := i.FromGenesis(opts, kv); err != nil {
			return err
		}
	}
	return nil
}
