package payverify

import (
	"bytes"
	"math"

	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/coin"
	"github.com/onramp-one/ramp/errors"
	"github.com/onramp-one/ramp/x/nullifier"
)

// VerificationRequest carries everything the escrow knows about the
// intent a proof is supposed to settle.
type VerificationRequest struct {
	// IntentHash is the correlation identifier the result must echo.
	IntentHash []byte
	// Token is the ticker of the escrowed asset.
	Token string
	// IntentAmount is the reserved amount, the release cap.
	IntentAmount coin.Coin
	// IntentTimestamp is when the intent was signaled.
	IntentTimestamp ramp.UnixTime
	// PayeeHash is the deposit's payee commitment for the method.
	PayeeHash []byte
	// Currency is the fiat currency the intent was signaled for.
	Currency string
	// Rate is the snapshot conversion rate, fiat minor units per
	// whole token.
	Rate int64
	// Data is opaque verifier data attached to the deposit.
	Data []byte
}

// Validate ensures the request is complete.
func (r *VerificationRequest) Validate() error {
	var err error
	if len(r.IntentHash) == 0 {
		err = errors.AppendField(err, "IntentHash", errors.ErrEmpty)
	}
	if r.Token == "" {
		err = errors.AppendField(err, "Token", errors.ErrEmpty)
	}
	if !r.IntentAmount.IsPositive() {
		err = errors.AppendField(err, "IntentAmount", errors.ErrAmount)
	}
	if len(r.PayeeHash) == 0 {
		err = errors.AppendField(err, "PayeeHash", errors.ErrEmpty)
	}
	if r.Currency == "" {
		err = errors.AppendField(err, "Currency", errors.ErrEmpty)
	}
	if r.Rate <= 0 {
		err = errors.AppendField(err, "Rate", errors.ErrAmount)
	}
	return err
}

// VerificationResult is what a verifier hands back to the escrow.
type VerificationResult struct {
	// Success is true only if every check passed.
	Success bool
	// IntentHash echoes the request's correlation identifier.
	IntentHash []byte
	// ReleaseAmount is the amount of the escrowed asset to release,
	// capped at the intent amount.
	ReleaseAmount coin.Coin
	// Currency is the fiat currency of the verified payment.
	Currency string
	// PaymentID is the consumed payment identifier.
	PaymentID string
}

// PaymentVerifier decides whether an off-ledger payment happened and
// how much of the escrowed asset it releases.
type PaymentVerifier interface {
	VerifyPayment(ctx ramp.Context, db ramp.KVStore, req VerificationRequest, proof *PaymentProof) (*VerificationResult, error)
}

// Condition returns the identity a verifier acts under, eg. when
// writing to the nullifier registry.
func Condition(verifierID string) ramp.Condition {
	return ramp.NewCondition("payverify", "verifier", []byte(verifierID))
}

// verifyClaim runs the common check pipeline shared by all verifier
// variants. The attestation itself was already checked by the caller.
// On success the payment identifier is written to the nullifier
// registry and the release amount is computed.
func verifyClaim(
	ctx ramp.Context,
	db ramp.KVStore,
	req VerificationRequest,
	proof *PaymentProof,
	method *PaymentMethod,
	nullifiers nullifier.Controller,
	writer ramp.Address,
) (*VerificationResult, error) {
	claim := &proof.Claim

	if !method.HasProcessor(claim.Processor) {
		return nil, errors.Wrapf(ErrProcessor, "%X", claim.Processor)
	}
	if claim.Status != method.AcceptedStatus {
		return nil, errors.Wrapf(ErrPaymentStatus, "%q", claim.Status)
	}
	if claim.Amount <= 0 {
		return nil, errors.Wrap(errors.ErrAmount, "non-positive payment amount")
	}
	if !bytes.Equal(claim.PayeeHash, req.PayeeHash) {
		return nil, errors.Wrap(ErrPayee, "payment went to an unknown payee")
	}
	if claim.Currency != req.Currency {
		return nil, errors.Wrapf(errors.ErrCurrency, "payment in %q, intent in %q", claim.Currency, req.Currency)
	}
	if !method.HasCurrency(claim.Currency) {
		return nil, errors.Wrapf(errors.ErrCurrency, "%q not accepted by method %q", claim.Currency, method.Method)
	}
	if err := checkTimestamp(claim.Timestamp, req.IntentTimestamp, method.TimestampBuffer); err != nil {
		return nil, err
	}

	blockNow, err := ramp.BlockTime(ctx)
	if err != nil {
		return nil, err
	}
	if err := nullifiers.Add(db, claim.PaymentID, req.IntentHash, ramp.AsUnixTime(blockNow), writer); err != nil {
		return nil, errors.Wrap(err, "nullifier")
	}

	release, err := releaseAmount(claim.Amount, req.Rate, req.Token)
	if err != nil {
		return nil, err
	}
	if release.IsGTE(req.IntentAmount) {
		release = req.IntentAmount
	}

	return &VerificationResult{
		Success:       true,
		IntentHash:    req.IntentHash,
		ReleaseAmount: release,
		Currency:      claim.Currency,
		PaymentID:     claim.PaymentID,
	}, nil
}

func checkTimestamp(payment, intent ramp.UnixTime, buffer ramp.UnixDuration) error {
	lo := int64(intent) - int64(buffer)
	hi := int64(intent) + int64(buffer)
	if int64(payment) < lo || int64(payment) > hi {
		return errors.Wrapf(ErrTimestamp, "payment at %d, intent at %d", payment, intent)
	}
	return nil
}

// releaseAmount converts a fiat amount into the escrowed asset using
// the snapshot rate. The rate is expressed in fiat minor units per
// whole token, the result is floor-rounded to the asset's precision.
func releaseAmount(fiatAmount, rate int64, ticker string) (coin.Coin, error) {
	if rate <= 0 {
		return coin.Coin{}, errors.Wrap(errors.ErrAmount, "non-positive rate")
	}
	if fiatAmount < 0 {
		return coin.Coin{}, errors.Wrap(errors.ErrAmount, "negative amount")
	}
	if fiatAmount > math.MaxInt64/coin.FracUnit {
		return coin.Coin{}, errors.Wrapf(errors.ErrOverflow, "amount %d", fiatAmount)
	}
	frac := fiatAmount * coin.FracUnit / rate
	return coin.NewCoin(frac/coin.FracUnit, frac%coin.FracUnit, ticker), nil
}
