package quote

import (
	"bytes"
	"math"

	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/coin"
	"github.com/onramp-one/ramp/errors"
	"github.com/onramp-one/ramp/gconf"
	"github.com/onramp-one/ramp/orm"
	"github.com/onramp-one/ramp/x/escrow"
	"github.com/onramp-one/ramp/x/payverify"
)

// Quote is one tradeable offer, the answer to a price inquiry.
type Quote struct {
	// DepositID is the deposit to signal an intent against.
	DepositID []byte `json:"deposit_id"`
	// Method is the payment rail of the offer.
	Method string `json:"method"`
	// Rate is the conversion rate in fiat minor units per whole token.
	Rate int64 `json:"rate"`
	// FiatAmount is what the buyer pays, in fiat minor units.
	FiatAmount int64 `json:"fiat_amount"`
	// Output is what the buyer receives.
	Output coin.Coin `json:"output"`
}

// Filter narrows an inquiry to rails the buyer can actually use.
// Zero value fields do not filter.
type Filter struct {
	// VerifierID keeps only rails judged by this verifier.
	VerifierID string `json:"verifier_id,omitempty"`
	// GatingKey keeps only rails gated by this key. A buyer without
	// an approval from the gating authority cannot trade gated rails.
	GatingKey []byte `json:"gating_key,omitempty"`
}

// Engine answers price inquiries using the escrow state.
type Engine struct {
	deposits orm.ModelBucket
	intents  orm.ModelBucket
	methods  orm.ModelBucket
}

// NewEngine returns a quoting engine reading the escrow buckets.
func NewEngine() *Engine {
	return &Engine{
		deposits: escrow.NewDepositBucket(),
		intents:  escrow.NewIntentBucket(),
		methods:  payverify.NewBucket(),
	}
}

// MaxOutputForExactInput returns the offer delivering the most tokens
// for a fixed fiat amount. Deposits are compared by rate, the lowest
// rate wins, the first candidate wins a tie.
func (e *Engine) MaxOutputForExactInput(
	db ramp.ReadOnlyKVStore,
	now ramp.UnixTime,
	depositIDs [][]byte,
	filter Filter,
	token string,
	currency string,
	fiatAmount int64,
) (*Quote, error) {
	if fiatAmount <= 0 {
		return nil, errors.Wrap(errors.ErrAmount, "fiat amount must be positive")
	}
	if len(depositIDs) == 0 {
		return nil, errors.Wrap(errors.ErrEmpty, "no candidate deposits")
	}
	if token == "" || currency == "" {
		return nil, errors.Wrap(errors.ErrEmpty, "token and currency required")
	}
	period, err := expirationPeriod(db)
	if err != nil {
		return nil, err
	}

	var best *Quote
	for _, id := range depositIDs {
		deposit, available, err := e.tradeable(db, id, period, now, token)
		if err != nil {
			return nil, err
		}
		if deposit == nil {
			continue
		}
		for i := range deposit.PaymentMethods {
			dm := &deposit.PaymentMethods[i]
			ok, err := e.passes(db, dm, filter)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			rate, ok := dm.RateFor(currency)
			if !ok {
				continue
			}
			output, err := outputForFiat(fiatAmount, rate, token)
			if err != nil {
				continue
			}
			if !fits(output, deposit, available) {
				continue
			}
			if best == nil || rate < best.Rate {
				best = &Quote{
					DepositID:  id,
					Method:     dm.Method,
					Rate:       rate,
					FiatAmount: fiatAmount,
					Output:     output,
				}
			}
		}
	}
	if best == nil {
		return nil, errors.Wrapf(ErrNoQuote, "%d %s for %s", fiatAmount, currency, token)
	}
	return best, nil
}

// MinInputForExactOutput returns the offer costing the least fiat for
// a fixed token amount. The fiat side is rounded up so the depositor
// is never underpaid.
func (e *Engine) MinInputForExactOutput(
	db ramp.ReadOnlyKVStore,
	now ramp.UnixTime,
	depositIDs [][]byte,
	filter Filter,
	currency string,
	output coin.Coin,
) (*Quote, error) {
	if !output.IsPositive() {
		return nil, errors.Wrap(errors.ErrAmount, "output must be positive")
	}
	if len(depositIDs) == 0 {
		return nil, errors.Wrap(errors.ErrEmpty, "no candidate deposits")
	}
	if output.Ticker == "" || currency == "" {
		return nil, errors.Wrap(errors.ErrEmpty, "token and currency required")
	}
	period, err := expirationPeriod(db)
	if err != nil {
		return nil, err
	}

	var best *Quote
	for _, id := range depositIDs {
		deposit, available, err := e.tradeable(db, id, period, now, output.Ticker)
		if err != nil {
			return nil, err
		}
		if deposit == nil {
			continue
		}
		if !fits(output, deposit, available) {
			continue
		}
		for i := range deposit.PaymentMethods {
			dm := &deposit.PaymentMethods[i]
			ok, err := e.passes(db, dm, filter)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			rate, ok := dm.RateFor(currency)
			if !ok {
				continue
			}
			fiat, err := fiatForOutput(output, rate)
			if err != nil {
				continue
			}
			if best == nil || rate < best.Rate {
				best = &Quote{
					DepositID:  id,
					Method:     dm.Method,
					Rate:       rate,
					FiatAmount: fiat,
					Output:     output,
				}
			}
		}
	}
	if best == nil {
		return nil, errors.Wrapf(ErrNoQuote, "%s for %s", output, currency)
	}
	return best, nil
}

// tradeable loads a deposit and computes how much of it a new intent
// could reserve right now. Reservations past their expiration count as
// available because signaling would reclaim them inline. Draining or
// missing deposits and a token mismatch return a nil deposit, not an
// error, so one bad candidate does not void the inquiry.
func (e *Engine) tradeable(
	db ramp.ReadOnlyKVStore,
	depositID []byte,
	period ramp.UnixDuration,
	now ramp.UnixTime,
	token string,
) (*escrow.Deposit, coin.Coin, error) {
	var deposit escrow.Deposit
	switch err := e.deposits.One(db, depositID, &deposit); {
	case err == nil:
		// continue below
	case errors.ErrNotFound.Is(err):
		return nil, coin.Coin{}, nil
	default:
		return nil, coin.Coin{}, errors.Wrapf(err, "deposit %X", depositID)
	}
	if !deposit.AcceptingIntents || deposit.Amount.Ticker != token {
		return nil, coin.Coin{}, nil
	}

	available := deposit.Remaining
	for _, hash := range deposit.IntentHashes {
		var intent escrow.Intent
		if err := e.intents.One(db, hash, &intent); err != nil {
			return nil, coin.Coin{}, errors.Wrapf(err, "intent %X", hash)
		}
		if !intent.Expired(period, now) {
			continue
		}
		sum, err := available.Add(intent.Amount)
		if err != nil {
			return nil, coin.Coin{}, err
		}
		available = sum
	}
	return &deposit, available, nil
}

// passes applies the buyer's rail filter to one payment method.
func (e *Engine) passes(db ramp.ReadOnlyKVStore, dm *escrow.DepositPaymentMethod, filter Filter) (bool, error) {
	if len(filter.GatingKey) != 0 && !bytes.Equal(dm.GatingKey, filter.GatingKey) {
		return false, nil
	}
	if filter.VerifierID != "" {
		var method payverify.PaymentMethod
		switch err := e.methods.One(db, []byte(dm.Method), &method); {
		case err == nil:
			if method.VerifierID != filter.VerifierID {
				return false, nil
			}
		case errors.ErrNotFound.Is(err):
			return false, nil
		default:
			return false, err
		}
	}
	return true, nil
}

// fits reports whether an output amount is a valid reservation against
// the deposit.
func fits(output coin.Coin, deposit *escrow.Deposit, available coin.Coin) bool {
	if !output.SameType(deposit.Amount) {
		return false
	}
	if !output.IsGTE(deposit.MinIntent) || !deposit.MaxIntent.IsGTE(output) {
		return false
	}
	return available.IsGTE(output)
}

// outputForFiat converts fiat into tokens at the given rate, floor
// rounded to the token's precision.
func outputForFiat(fiatAmount, rate int64, ticker string) (coin.Coin, error) {
	if rate <= 0 {
		return coin.Coin{}, errors.Wrap(errors.ErrAmount, "non-positive rate")
	}
	if fiatAmount > math.MaxInt64/coin.FracUnit {
		return coin.Coin{}, errors.Wrapf(errors.ErrOverflow, "amount %d", fiatAmount)
	}
	frac := fiatAmount * coin.FracUnit / rate
	return coin.NewCoin(frac/coin.FracUnit, frac%coin.FracUnit, ticker), nil
}

// fiatForOutput converts tokens into fiat at the given rate, rounded
// up to the next fiat minor unit.
func fiatForOutput(output coin.Coin, rate int64) (int64, error) {
	if rate <= 0 {
		return 0, errors.Wrap(errors.ErrAmount, "non-positive rate")
	}
	if output.Whole > math.MaxInt64/rate {
		return 0, errors.Wrapf(errors.ErrOverflow, "amount %s", output)
	}
	frac := output.Whole*coin.FracUnit + output.Fractional
	fiat := frac / coin.FracUnit * rate
	rest := frac % coin.FracUnit
	if rest > 0 {
		if rest > math.MaxInt64/rate {
			return 0, errors.Wrapf(errors.ErrOverflow, "amount %s", output)
		}
		part := rest * rate
		fiat += part / coin.FracUnit
		if part%coin.FracUnit != 0 {
			fiat++
		}
	}
	return fiat, nil
}

func expirationPeriod(db ramp.ReadOnlyKVStore) (ramp.UnixDuration, error) {
	var conf escrow.Configuration
	if err := gconf.Load(db, "escrow", &conf); err != nil {
		return 0, errors.Wrap(err, "load configuration")
	}
	return conf.IntentExpirationPeriod, nil
}
