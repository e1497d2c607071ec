package nullifier

import (
	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/errors"
	"github.com/onramp-one/ramp/orm"
)

// Controller is the interface other extensions use to consult and
// extend the registry.
type Controller interface {
	// IsNullified returns true if the payment identifier was already
	// consumed.
	IsNullified(db ramp.KVStore, paymentID string) (bool, error)
	// Add records the payment identifier. A second Add for the same
	// identifier fails with a duplicate error. The writer must be on
	// the configured capability list.
	Add(db ramp.KVStore, paymentID string, usedBy []byte, now ramp.UnixTime, writer ramp.Address) error
}

// BaseController implements Controller on top of the nullifier bucket.
type BaseController struct {
	bucket orm.ModelBucket
}

var _ Controller = BaseController{}

// NewController returns a controller over the default bucket.
func NewController() BaseController {
	return BaseController{bucket: NewBucket()}
}

// IsNullified returns true if the payment identifier was already consumed.
func (c BaseController) IsNullified(db ramp.KVStore, paymentID string) (bool, error) {
	switch err := c.bucket.Has(db, Key(paymentID)); {
	case err == nil:
		return true, nil
	case errors.ErrNotFound.Is(err):
		return false, nil
	default:
		return false, err
	}
}

// Add records the payment identifier, write-once.
func (c BaseController) Add(db ramp.KVStore, paymentID string, usedBy []byte, now ramp.UnixTime, writer ramp.Address) error {
	conf, err := loadConf(db)
	if err != nil {
		return err
	}
	var allowed bool
	for _, w := range conf.Writers {
		if w.Equals(writer) {
			allowed = true
			break
		}
	}
	if !allowed {
		return errors.Wrapf(errors.ErrUnauthorized, "%s is not a nullifier writer", writer)
	}

	key := Key(paymentID)
	switch err := c.bucket.Has(db, key); {
	case err == nil:
		return errors.Wrapf(errors.ErrDuplicate, "payment %q already nullified", paymentID)
	case errors.ErrNotFound.Is(err):
		// free to write
	default:
		return err
	}

	n := &Nullifier{
		PaymentID:   paymentID,
		UsedBy:      usedBy,
		NullifiedAt: now,
	}
	_, err = c.bucket.Put(db, key, n)
	return err
}
