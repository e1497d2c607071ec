package nullifier

import (
	"crypto/sha256"
	"encoding/json"

	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/errors"
	"github.com/onramp-one/ramp/orm"
)

// BucketName is where we store the used payment identifiers
const BucketName = "nlf"

// Nullifier records one consumed payment identifier. The record is
// never updated or deleted.
type Nullifier struct {
	// PaymentID is the off-ledger payment's unique identifier.
	PaymentID string `json:"payment_id"`
	// UsedBy is the intent hash the payment was redeemed for.
	UsedBy []byte `json:"used_by"`
	// NullifiedAt is the block time of the write.
	NullifiedAt ramp.UnixTime `json:"nullified_at"`
}

var _ orm.Model = (*Nullifier)(nil)

// Marshal serializes the nullifier.
func (n *Nullifier) Marshal() ([]byte, error) {
	return json.Marshal(n)
}

// Unmarshal deserializes the nullifier.
func (n *Nullifier) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, n)
}

// Validate ensures the nullifier is complete.
func (n *Nullifier) Validate() error {
	var err error
	if n.PaymentID == "" {
		err = errors.AppendField(err, "PaymentID", errors.ErrEmpty)
	}
	if len(n.UsedBy) == 0 {
		err = errors.AppendField(err, "UsedBy", errors.ErrEmpty)
	}
	if e := n.NullifiedAt.Validate(); e != nil {
		err = errors.AppendField(err, "NullifiedAt", e)
	} else if n.NullifiedAt == 0 {
		err = errors.AppendField(err, "NullifiedAt", errors.ErrEmpty)
	}
	return err
}

// NewBucket returns the nullifier bucket, keyed by hashed payment id.
func NewBucket() orm.ModelBucket {
	return orm.NewModelBucket(BucketName, &Nullifier{})
}

// Key derives the storage key for a payment identifier.
func Key(paymentID string) []byte {
	h := sha256.Sum256([]byte(paymentID))
	return h[:]
}
