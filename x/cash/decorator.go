/*

FeeDecorator ensures that the fee can be deducted from the account. All
deducted fees are sent to the collector, which can be set to an address
controlled by another extension ("smart contract").
Collector address is configured via gconf package.

Minimal fee is configured via gconf package. If minimal is zero, no fees
required, but will speed processing. If a currency is set on minimal fee, then
all fees must be paid in that currency

It uses auth to verify the source.

*/

package cash

import (
	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/coin"
	"github.com/onramp-one/ramp/errors"
	"github.com/onramp-one/ramp/x"
)

// FeeInfo describes the fee of a transaction and the account paying it.
type FeeInfo struct {
	Payer ramp.Address `json:"payer"`
	Fees  *coin.Coin   `json:"fees"`
}

// FeeTx exposes information about the fees that
// should be paid
type FeeTx interface {
	GetFees() *FeeInfo
}

// GetFees returns the fee coin, nil-safe.
func (f *FeeInfo) GetFees() *coin.Coin {
	if f == nil {
		return nil
	}
	return f.Fees
}

// DefaultPayer makes sure there is a payer.
// If it was already set, returns f.
// If none was set, returns a new FeeInfo, with the
// new address set
func (f *FeeInfo) DefaultPayer(addr ramp.Address) *FeeInfo {
	if f != nil && len(f.Payer) != 0 {
		return f
	}
	return &FeeInfo{
		Payer: addr,
		Fees:  f.GetFees(),
	}
}

// Validate makes sure that this is sensible.
// Note that fee must be present, even if 0
func (f *FeeInfo) Validate() error {
	var err error
	if f == nil {
		return errors.Wrap(errors.ErrInput, "nil fee info")
	}
	fee := f.GetFees()
	if fee == nil {
		err = errors.Append(err, errors.Wrap(errors.ErrAmount, "fees nil"))
	} else {
		err = errors.Append(err, errors.Wrap(fee.Validate(), "fee"))
		if !fee.IsNonNegative() {
			err = errors.Append(err, errors.Wrap(errors.ErrAmount, "negative fees"))
		}
	}
	return errors.Append(err, errors.Wrap(f.Payer.Validate(), "payer"))
}

// FeeDecorator deducts the transaction fee and passes it on to the
// configured collector.
type FeeDecorator struct {
	auth x.Authenticator
	ctrl CoinMover
}

var _ ramp.Decorator = FeeDecorator{}

// NewFeeDecorator returns a FeeDecorator with the given
// minimum fee, and all collected fees going to a
// default address.
func NewFeeDecorator(auth x.Authenticator, ctrl CoinMover) FeeDecorator {
	return FeeDecorator{
		auth: auth,
		ctrl: ctrl,
	}
}

// Check verifies and deducts fees before calling down the stack
func (d FeeDecorator) Check(ctx ramp.Context, store ramp.KVStore, tx ramp.Tx, next ramp.Checker) (*ramp.CheckResult, error) {
	finfo, err := d.extractFee(ctx, tx, store)
	if err != nil {
		return nil, err
	}

	// if nothing returned, but no error, just move along
	fee := finfo.GetFees()
	if coin.IsEmpty(fee) {
		return next.Check(ctx, store, tx)
	}

	// verify we have access to the money
	if !d.auth.HasAddress(ctx, finfo.Payer) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "fee payer signature missing")
	}
	// and have enough
	collector := mustLoadConf(store).CollectorAddress
	if err := d.ctrl.MoveCoins(store, finfo.Payer, collector, *fee); err != nil {
		return nil, err
	}

	// now update the importance...
	paid := toPayment(*fee)
	res, err := next.Check(ctx, store, tx)
	if err != nil {
		return nil, err
	}
	res.GasPayment += paid
	return res, nil
}

// Deliver verifies and deducts fees before calling down the stack
func (d FeeDecorator) Deliver(ctx ramp.Context, store ramp.KVStore, tx ramp.Tx, next ramp.Deliverer) (*ramp.DeliverResult, error) {
	finfo, err := d.extractFee(ctx, tx, store)
	if err != nil {
		return nil, err
	}

	// if nothing returned, but no error, just move along
	fee := finfo.GetFees()
	if coin.IsEmpty(fee) {
		return next.Deliver(ctx, store, tx)
	}

	// verify we have access to the money
	if !d.auth.HasAddress(ctx, finfo.Payer) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "fee payer signature missing")
	}
	// and subtract it from the account
	collector := mustLoadConf(store).CollectorAddress
	if err := d.ctrl.MoveCoins(store, finfo.Payer, collector, *fee); err != nil {
		return nil, err
	}

	return next.Deliver(ctx, store, tx)
}

func (d FeeDecorator) extractFee(ctx ramp.Context, tx ramp.Tx, store ramp.KVStore) (*FeeInfo, error) {
	var finfo *FeeInfo
	if ftx, ok := tx.(FeeTx); ok {
		payer := x.MainSigner(ctx, d.auth).Address()
		finfo = ftx.GetFees().DefaultPayer(payer)
	}

	fee := finfo.GetFees()
	if coin.IsEmpty(fee) {
		minFee := mustLoadConf(store).MinimalFee
		if minFee.IsZero() {
			return finfo, nil
		}
		return nil, errors.Wrapf(errors.ErrAmount, "fees %#v", fee)
	}

	// make sure it is a valid fee (non-negative, going somewhere)
	if err := finfo.Validate(); err != nil {
		return nil, err
	}

	cmp := mustLoadConf(store).MinimalFee
	if cmp.IsZero() {
		return finfo, nil
	}
	if cmp.Ticker == "" {
		return nil, errors.Wrap(errors.ErrCurrency, "no ticker")
	}

	if !fee.SameType(cmp) {
		return nil, errors.Wrapf(errors.ErrCurrency, "%s vs fee %s", cmp.Ticker, fee.Ticker)
	}
	if !fee.IsGTE(cmp) {
		return nil, errors.Wrapf(errors.ErrAmount, "fees %#v", fee)
	}
	return finfo, nil
}

// toPayment calculates how much we prioritize the tx
// one point per fractional unit
func toPayment(fee coin.Coin) int64 {
	base := fee.Fractional
	base += fee.Whole * int64(coin.FracUnit)
	return base
}
