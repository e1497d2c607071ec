package cash

import (
	"encoding/json"

	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/coin"
	"github.com/onramp-one/ramp/errors"
	"github.com/onramp-one/ramp/orm"
)

// BucketName is where we store the balances
const BucketName = "cash"

// Set keeps the balance of one account.
type Set struct {
	Coins coin.Coins `json:"coins"`
}

var _ orm.Model = (*Set)(nil)

// Marshal serializes the balance.
func (s *Set) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// Unmarshal deserializes the balance.
func (s *Set) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, s)
}

// Validate requires that all coins are in alphabetical order
func (s *Set) Validate() error {
	return s.Coins.Validate()
}

// Copy makes a new set with the same coins
func (s *Set) Copy() *Set {
	return &Set{
		Coins: s.Coins.Clone(),
	}
}

// Add modifies the set to add the given coin
func (s *Set) Add(c coin.Coin) error {
	cs, err := s.Coins.Add(c)
	if err != nil {
		return err
	}
	s.Coins = cs
	return nil
}

// Subtract modifies the set to remove the given coin
func (s *Set) Subtract(c coin.Coin) error {
	return s.Add(c.Negative())
}

// AsCoins will safely extract the coins stored in a wallet object
func AsCoins(obj orm.Object) coin.Coins {
	if obj == nil || obj.Value() == nil {
		return nil
	}
	return obj.Value().(*Set).Coins
}

// AsSet will safely type-cast any value from the Bucket to a Set
func AsSet(obj orm.Object) *Set {
	if obj == nil || obj.Value() == nil {
		return nil
	}
	return obj.Value().(*Set)
}

// NewWallet creates an empty wallet with this address
func NewWallet(key ramp.Address) orm.Object {
	return orm.NewSimpleObj(key, new(Set))
}

// WalletWith creates a wallet with a balance
func WalletWith(key ramp.Address, coins ...*coin.Coin) (orm.Object, error) {
	obj := NewWallet(key)
	normalized, err := coin.NormalizeCoins(coins)
	if err != nil {
		return nil, err
	}
	AsSet(obj).Coins = normalized
	return obj, nil
}

// WalletBucket is what we expect to be able to do with wallets. The
// plain Bucket satisfies this interface and gives us compatibility
// with any other implementation (eg. when sending coins requires
// extra checks).
type WalletBucket interface {
	GetOrCreate(db ramp.KVStore, key ramp.Address) (orm.Object, error)
	Get(db ramp.ReadOnlyKVStore, key []byte) (orm.Object, error)
	Save(db ramp.KVStore, obj orm.Object) error
}

// Bucket is a type-safe wrapper around orm.Bucket
type Bucket struct {
	orm.Bucket
}

var _ WalletBucket = Bucket{}

// NewBucket initializes a cash.Bucket with the default name
func NewBucket() Bucket {
	return Bucket{
		Bucket: orm.NewBucket(BucketName, &Set{}),
	}
}

// GetOrCreate will return the object at the address, or create an
// empty wallet there if none exists
func (b Bucket) GetOrCreate(db ramp.KVStore, key ramp.Address) (orm.Object, error) {
	obj, err := b.Get(db, key)
	if err == nil && obj == nil {
		obj = NewWallet(key)
	}
	return obj, err
}

// ValidateWalletBucket makes sure that it supports queries on wallets.
// Panics on error to be called during setup.
func ValidateWalletBucket(bucket WalletBucket) {
	type registrar interface {
		Register(name string, r ramp.QueryRouter)
	}
	if _, ok := bucket.(registrar); !ok {
		panic(errors.Wrapf(errors.ErrDatabase, "wallet bucket cannot handle queries: %T", bucket))
	}
}
