package sigs

import (
	"encoding/json"

	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/crypto"
	"github.com/onramp-one/ramp/errors"
	"github.com/onramp-one/ramp/orm"
)

// BucketName is where we store the accounts
const BucketName = "sigs"

// The sequence is an int64, but we do not allow it to grow beyond 2^53
// so it can be safely represented by a javascript client as well.
const maxSequenceValue = 1<<53 - 1

// UserData maintains the signing state of one account. The pubkey binds
// the address to a key, and the sequence provides replay protection.
type UserData struct {
	Pubkey   *crypto.PublicKey `json:"pubkey"`
	Sequence int64             `json:"sequence"`
}

var _ orm.Model = (*UserData)(nil)

// Marshal serializes the user data.
func (u *UserData) Marshal() ([]byte, error) {
	return json.Marshal(u)
}

// Unmarshal deserializes the user data.
func (u *UserData) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, u)
}

// Validate requires a valid sequence, and a valid pubkey if one is set.
func (u *UserData) Validate() error {
	if u.Sequence < 0 {
		return errors.Wrap(ErrInvalidSequence, "negative")
	}
	if u.Sequence > maxSequenceValue {
		return errors.Wrap(ErrInvalidSequence, "overflow")
	}
	if u.Pubkey != nil {
		if err := u.Pubkey.Validate(); err != nil {
			return errors.Wrap(err, "pubkey")
		}
	}
	return nil
}

// SetPubkey will set the pubkey on first use, and panic if it was
// already set. An account is bound to one key forever.
func (u *UserData) SetPubkey(pubkey *crypto.PublicKey) {
	if u.Pubkey != nil {
		panic("Cannot change pubkey for a user")
	}
	u.Pubkey = pubkey
}

// CheckAndIncrementSequence checks if the current sequence matches the
// expected value. If so, it will increase the sequence by one.
func (u *UserData) CheckAndIncrementSequence(check int64) error {
	if u.Sequence != check {
		return errors.Wrapf(ErrInvalidSequence, "mismatch expected %d, got %d", u.Sequence, check)
	}
	u.Sequence++
	if u.Sequence > maxSequenceValue {
		return errors.Wrap(ErrInvalidSequence, "overflow")
	}
	return nil
}

// Copy returns a deep copy of the user data.
func (u *UserData) Copy() *UserData {
	var pubkey *crypto.PublicKey
	if u.Pubkey != nil {
		pubkey = &crypto.PublicKey{
			Ed25519: append([]byte{}, u.Pubkey.Ed25519...),
		}
	}
	return &UserData{
		Pubkey:   pubkey,
		Sequence: u.Sequence,
	}
}

//---- user wrapper ----

// AsUser will safely type-cast any value from Bucket to a UserData
func AsUser(obj orm.Object) *UserData {
	if obj == nil || obj.Value() == nil {
		return nil
	}
	return obj.Value().(*UserData)
}

// NewUser constructs an object from an address and pubkey
func NewUser(pubkey *crypto.PublicKey) orm.Object {
	var key ramp.Address
	if pubkey != nil {
		key = pubkey.Address()
	}
	value := &UserData{Pubkey: pubkey}
	return orm.NewSimpleObj(key, value)
}

//------ bucket ------

// Bucket extends orm.Bucket with GetOrCreate
type Bucket struct {
	orm.Bucket
}

// NewBucket creates the account bucket
func NewBucket() Bucket {
	return Bucket{
		Bucket: orm.NewBucket(BucketName, &UserData{}),
	}
}

// GetOrCreate initializes a UserData if none exists for that address
func (b Bucket) GetOrCreate(db ramp.KVStore, pubkey *crypto.PublicKey) (orm.Object, error) {
	obj, err := b.Get(db, pubkey.Address())
	if err == nil && obj == nil {
		obj = NewUser(pubkey)
	}
	return obj, err
}
