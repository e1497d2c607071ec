package cash

import (
	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/coin"
	"github.com/onramp-one/ramp/errors"
)

// Controller is the functionality needed by other modules to move and
// inspect funds. BaseController should work plenty fine, but you can
// add other logic if you wish
type Controller interface {
	CoinMover
	Balance(ramp.KVStore, ramp.Address) (coin.Coins, error)
}

// CoinMover is the interface that must be implemented by the token
// ledger so other extensions can move tokens between accounts.
type CoinMover interface {
	// MoveCoins removes funds from the source account and adds them
	// to the destination account. This operation is atomic.
	MoveCoins(store ramp.KVStore, src ramp.Address, dest ramp.Address, amount coin.Coin) error
}

// CoinMinter is the interface that must be implemented to issue new
// tokens out of thin air.
type CoinMinter interface {
	// CoinMint increase the number of funds on an account by a given
	// amount.
	CoinMint(ramp.KVStore, ramp.Address, coin.Coin) error
}

// BaseController implements Controller interface, using WalletBucket
// as the storage engine. Wallet must be able to handle deduplication
// of coins
type BaseController struct {
	bucket WalletBucket
}

var _ Controller = BaseController{}
var _ CoinMinter = BaseController{}

// NewController returns a base controller implementation.
func NewController(bucket WalletBucket) BaseController {
	ValidateWalletBucket(bucket)
	return BaseController{bucket: bucket}
}

// Balance returns the amount of funds stored under given account address.
func (c BaseController) Balance(store ramp.KVStore, src ramp.Address) (coin.Coins, error) {
	state, err := c.bucket.Get(store, src)
	if err != nil {
		return nil, errors.Wrap(err, "cannot get account state")
	}
	if state == nil {
		return nil, errors.Wrap(errors.ErrEmpty, "no account")
	}
	return AsCoins(state), nil
}

// MoveCoins moves the given amount from src to dest.
// If src doesn't exist, or doesn't have sufficient
// coins, it fails.
func (c BaseController) MoveCoins(store ramp.KVStore, src ramp.Address, dest ramp.Address, amount coin.Coin) error {
	if !amount.IsPositive() {
		return errors.Wrapf(errors.ErrAmount, "non-positive amount: %#v", &amount)
	}

	sender, err := c.bucket.Get(store, src)
	if err != nil {
		return err
	}
	if sender == nil {
		return errors.Wrapf(errors.ErrEmpty, "empty account %s", src)
	}
	if !AsCoins(sender).Contains(amount) {
		return errors.Wrap(errors.ErrAmount, "insufficient funds")
	}

	recipient, err := c.bucket.GetOrCreate(store, dest)
	if err != nil {
		return err
	}
	if err := AsSet(sender).Subtract(amount); err != nil {
		return err
	}
	if err := AsSet(recipient).Add(amount); err != nil {
		return err
	}

	if err := c.bucket.Save(store, sender); err != nil {
		return err
	}
	return c.bucket.Save(store, recipient)
}

// CoinMint attempts to add the given amount of coins to
// the destination address. Fails if it overflows the wallet.
//
// Note the amount may also be negative:
// "the lord giveth and the lord taketh away"
func (c BaseController) CoinMint(store ramp.KVStore, dest ramp.Address, amount coin.Coin) error {
	recipient, err := c.bucket.GetOrCreate(store, dest)
	if err != nil {
		return err
	}
	if err := AsSet(recipient).Add(amount); err != nil {
		return err
	}
	return c.bucket.Save(store, recipient)
}
