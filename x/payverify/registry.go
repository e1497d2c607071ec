package payverify

import (
	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/errors"
	"github.com/onramp-one/ramp/orm"
)

// Registry resolves a payment method to the single verifier that is
// responsible for it.
type Registry struct {
	bucket    orm.ModelBucket
	verifiers map[string]PaymentVerifier
}

// NewRegistry returns an empty verifier registry.
func NewRegistry() *Registry {
	return &Registry{
		bucket:    NewBucket(),
		verifiers: make(map[string]PaymentVerifier),
	}
}

// Register binds a verifier implementation to an identifier. Using the
// same identifier twice is a programmer error and panics.
func (r *Registry) Register(id string, v PaymentVerifier) {
	if id == "" {
		panic("empty verifier id")
	}
	if _, ok := r.verifiers[id]; ok {
		panic("verifier registered twice: " + id)
	}
	r.verifiers[id] = v
}

// Resolve loads the payment method and returns the verifier bound to
// it. An unknown method or an unregistered verifier id fails.
func (r *Registry) Resolve(db ramp.ReadOnlyKVStore, method string) (PaymentVerifier, *PaymentMethod, error) {
	var pm PaymentMethod
	if err := r.bucket.One(db, []byte(method), &pm); err != nil {
		return nil, nil, errors.Wrapf(err, "payment method %q", method)
	}
	v, ok := r.verifiers[pm.VerifierID]
	if !ok {
		return nil, nil, errors.Wrapf(errors.ErrNotFound, "verifier %q", pm.VerifierID)
	}
	return v, &pm, nil
}
