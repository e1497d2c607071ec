package escrow

import (
	"bytes"
	"encoding/hex"

	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/coin"
	"github.com/onramp-one/ramp/crypto"
	"github.com/onramp-one/ramp/errors"
	"github.com/onramp-one/ramp/gconf"
	"github.com/onramp-one/ramp/orm"
	"github.com/onramp-one/ramp/x"
	"github.com/onramp-one/ramp/x/cash"
	"github.com/onramp-one/ramp/x/payverify"
	"github.com/tendermint/tendermint/libs/common"
)

const (
	createDepositCost   int64 = 300
	signalIntentCost    int64 = 200
	fulfillIntentCost   int64 = 500
	releaseFundsCost    int64 = 150
	cancelIntentCost    int64 = 100
	withdrawDepositCost int64 = 200
	updateVerifierCost  int64 = 50
)

// RegisterRoutes will instantiate and register all handlers in this
// package. The coin mover is the cash ledger, the registry resolves
// payment methods to their verifiers.
func RegisterRoutes(r ramp.Registry, auth x.Authenticator, mover cash.CoinMover, registry *payverify.Registry) {
	c := newController(mover)

	r.Handle(&CreateDepositMsg{}, CreateDepositHandler{auth: auth, ctrl: c, methods: payverify.NewBucket()})
	r.Handle(&SignalIntentMsg{}, SignalIntentHandler{auth: auth, ctrl: c})
	r.Handle(&FulfillIntentMsg{}, FulfillIntentHandler{auth: auth, ctrl: c, registry: registry})
	r.Handle(&ReleaseFundsMsg{}, ReleaseFundsHandler{auth: auth, ctrl: c})
	r.Handle(&CancelIntentMsg{}, CancelIntentHandler{auth: auth, ctrl: c})
	r.Handle(&WithdrawDepositMsg{}, WithdrawDepositHandler{auth: auth, ctrl: c})
	r.Handle(&AddVerifierMsg{}, AddVerifierHandler{auth: auth, bucket: c.verifiers})
	r.Handle(&RemoveVerifierMsg{}, RemoveVerifierHandler{auth: auth, bucket: c.verifiers})
	r.Handle(&UpdateVerifierFeeMsg{}, UpdateVerifierFeeHandler{auth: auth, bucket: c.verifiers})
	r.Handle(&UpdateConfigurationMsg{}, NewConfigHandler(auth))
}

// RegisterQuery will register the buckets of this package.
func RegisterQuery(qr ramp.QueryRouter) {
	NewDepositBucket().Register("deposits", qr)
	NewIntentBucket().Register("intents", qr)
	NewVerifierBucket().Register("verifiers", qr)
}

// NewConfigHandler returns a handler for the configuration update
// message.
func NewConfigHandler(auth x.Authenticator) ramp.Handler {
	var conf Configuration
	return gconf.NewUpdateConfigurationHandler("escrow", &conf, auth, nil)
}

func ownerSigned(ctx ramp.Context, db ramp.KVStore, auth x.Authenticator) error {
	conf, err := loadConf(db)
	if err != nil {
		return err
	}
	if !auth.HasAddress(ctx, conf.Owner) {
		return errors.Wrap(errors.ErrUnauthorized, "configuration owner signature required")
	}
	return nil
}

func actionTag(action string) common.KVPair {
	return common.KVPair{Key: []byte("action"), Value: []byte(action)}
}

func depositTag(id []byte) common.KVPair {
	return common.KVPair{Key: []byte("deposit"), Value: []byte(hex.EncodeToString(id))}
}

func intentTag(hash []byte) common.KVPair {
	return common.KVPair{Key: []byte("intent"), Value: []byte(hex.EncodeToString(hash))}
}

func prunedTags(tags []common.KVPair, hashes [][]byte) []common.KVPair {
	for _, h := range hashes {
		tags = append(tags, common.KVPair{Key: []byte("pruned-intent"), Value: []byte(hex.EncodeToString(h))})
	}
	return tags
}

// CreateDepositHandler escrows funds and opens a deposit.
type CreateDepositHandler struct {
	auth    x.Authenticator
	ctrl    *controller
	methods orm.ModelBucket
}

var _ ramp.Handler = CreateDepositHandler{}

func (h CreateDepositHandler) Check(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &ramp.CheckResult{GasAllocated: createDepositCost}, nil
}

func (h CreateDepositHandler) Deliver(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.DeliverResult, error) {
	msg, source, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	blockNow, err := ramp.BlockTime(ctx)
	if err != nil {
		return nil, err
	}

	deposit := Deposit{
		Depositor:        source,
		Amount:           msg.Amount,
		Remaining:        msg.Amount,
		Outstanding:      coin.Coin{Ticker: msg.Amount.Ticker},
		MinIntent:        msg.MinIntent,
		MaxIntent:        msg.MaxIntent,
		AcceptingIntents: true,
		PaymentMethods:   msg.PaymentMethods,
		CreatedAt:        ramp.AsUnixTime(blockNow),
	}
	key, err := h.ctrl.deposits.Put(db, nil, &deposit)
	if err != nil {
		return nil, errors.Wrap(err, "cannot store deposit")
	}
	if err := h.ctrl.mover.MoveCoins(db, source, Condition(key).Address(), msg.Amount); err != nil {
		return nil, errors.Wrap(err, "cannot escrow funds")
	}
	return &ramp.DeliverResult{
		Data: key,
		Tags: []common.KVPair{actionTag("create-deposit"), depositTag(key)},
	}, nil
}

func (h CreateDepositHandler) validate(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*CreateDepositMsg, ramp.Address, error) {
	var msg CreateDepositMsg
	if err := ramp.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, nil, err
	}
	if len(msg.PaymentMethods) > int(conf.MaxPaymentMethods) {
		return nil, nil, errors.Wrapf(errors.ErrInput, "more than %d payment methods", conf.MaxPaymentMethods)
	}
	for i := range msg.PaymentMethods {
		dm := &msg.PaymentMethods[i]
		if len(dm.Currencies) > int(conf.MaxCurrenciesPerMethod) {
			return nil, nil, errors.Wrapf(errors.ErrInput, "more than %d currencies for method %q", conf.MaxCurrenciesPerMethod, dm.Method)
		}
		var method payverify.PaymentMethod
		if err := h.methods.One(db, []byte(dm.Method), &method); err != nil {
			return nil, nil, errors.Wrapf(err, "payment method %q", dm.Method)
		}
		if !conf.AcceptAllVerifiers {
			switch err := h.ctrl.verifiers.Has(db, []byte(method.VerifierID)); {
			case err == nil:
				// whitelisted
			case errors.ErrNotFound.Is(err):
				return nil, nil, errors.Wrapf(ErrVerifierNotWhitelisted, "%q", method.VerifierID)
			default:
				return nil, nil, err
			}
		}
		for i := range dm.Currencies {
			if !method.HasCurrency(dm.Currencies[i].Currency) {
				return nil, nil, errors.Wrapf(errors.ErrCurrency, "%q not accepted by method %q", dm.Currencies[i].Currency, dm.Method)
			}
		}
	}

	source := msg.Source
	if len(source) == 0 {
		signer := x.MainSigner(ctx, h.auth)
		if signer == nil {
			return nil, nil, errors.Wrap(errors.ErrUnauthorized, "no signer")
		}
		source = signer.Address()
	}
	if !h.auth.HasAddress(ctx, source) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "source must be a signer")
	}
	return &msg, source, nil
}

// SignalIntentHandler reserves deposit liquidity. When the unreserved
// balance is too small, expired reservations are reclaimed first.
type SignalIntentHandler struct {
	auth x.Authenticator
	ctrl *controller
}

var _ ramp.Handler = SignalIntentHandler{}

func (h SignalIntentHandler) Check(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.CheckResult, error) {
	if _, _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &ramp.CheckResult{GasAllocated: signalIntentCost}, nil
}

func (h SignalIntentHandler) Deliver(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.DeliverResult, error) {
	msg, deposit, owner, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, err
	}
	blockNow, err := ramp.BlockTime(ctx)
	if err != nil {
		return nil, err
	}
	now := ramp.AsUnixTime(blockNow)

	var pruned [][]byte
	if !deposit.Remaining.IsGTE(msg.Amount) {
		pruned, err = h.ctrl.pruneExpired(db, deposit, conf.IntentExpirationPeriod, now, &msg.Amount)
		if err != nil {
			return nil, err
		}
		if !deposit.Remaining.IsGTE(msg.Amount) {
			// The reclaimed reservations stay reclaimed even though
			// this reservation fails.
			if _, err := h.ctrl.deposits.Put(db, msg.DepositID, deposit); err != nil {
				return nil, err
			}
			return nil, errors.Wrapf(ErrInsufficientLiquidity, "%s remaining", deposit.Remaining)
		}
	}
	if len(deposit.IntentHashes) >= int(conf.MaxIntentsPerDeposit) {
		if len(pruned) != 0 {
			// Keep the reclaimed reservations here as well.
			if _, err := h.ctrl.deposits.Put(db, msg.DepositID, deposit); err != nil {
				return nil, err
			}
		}
		return nil, errors.Wrapf(errors.ErrState, "more than %d live intents", conf.MaxIntentsPerDeposit)
	}

	seq, err := intentSeq.NextVal(db)
	if err != nil {
		return nil, err
	}
	hash := intentKey(msg.DepositID, owner, msg.Method, seq)
	intent := Intent{
		Owner:     owner,
		DepositID: msg.DepositID,
		Method:    msg.Method,
		To:        msg.To,
		Amount:    msg.Amount,
		Currency:  msg.Currency,
		Rate:      msg.Rate,
		CreatedAt: now,
		Data:      msg.Data,
	}
	if _, err := h.ctrl.intents.Put(db, hash, &intent); err != nil {
		return nil, errors.Wrap(err, "cannot store intent")
	}

	remaining, err := deposit.Remaining.Subtract(msg.Amount)
	if err != nil {
		return nil, err
	}
	outstanding, err := deposit.Outstanding.Add(msg.Amount)
	if err != nil {
		return nil, err
	}
	deposit.Remaining = remaining
	deposit.Outstanding = outstanding
	deposit.IntentHashes = append(deposit.IntentHashes, hash)
	if _, err := h.ctrl.deposits.Put(db, msg.DepositID, deposit); err != nil {
		return nil, errors.Wrap(err, "cannot store deposit")
	}

	tags := []common.KVPair{actionTag("signal-intent"), intentTag(hash), depositTag(msg.DepositID)}
	return &ramp.DeliverResult{
		Data: hash,
		Tags: prunedTags(tags, pruned),
	}, nil
}

func (h SignalIntentHandler) validate(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*SignalIntentMsg, *Deposit, ramp.Address, error) {
	var msg SignalIntentMsg
	if err := ramp.LoadMsg(tx, &msg); err != nil {
		return nil, nil, nil, errors.Wrap(err, "load msg")
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, nil, nil, err
	}

	var deposit Deposit
	if err := h.ctrl.deposits.One(db, msg.DepositID, &deposit); err != nil {
		return nil, nil, nil, errors.Wrapf(err, "deposit %X", msg.DepositID)
	}
	if !deposit.AcceptingIntents {
		return nil, nil, nil, errors.Wrapf(ErrNotAccepting, "deposit %X", msg.DepositID)
	}
	dm := deposit.Method(msg.Method)
	if dm == nil {
		return nil, nil, nil, errors.Wrapf(errors.ErrNotFound, "method %q not offered", msg.Method)
	}
	if !msg.Amount.SameType(deposit.Amount) {
		return nil, nil, nil, errors.Wrapf(errors.ErrCurrency, "deposit holds %s", deposit.Amount.Ticker)
	}
	if !msg.Amount.IsGTE(deposit.MinIntent) || !deposit.MaxIntent.IsGTE(msg.Amount) {
		return nil, nil, nil, errors.Wrapf(errors.ErrAmount, "amount outside [%s, %s]", deposit.MinIntent, deposit.MaxIntent)
	}
	minRate, ok := dm.RateFor(msg.Currency)
	if !ok {
		return nil, nil, nil, errors.Wrapf(errors.ErrCurrency, "%q not accepted by method %q", msg.Currency, msg.Method)
	}
	if msg.Rate < minRate {
		return nil, nil, nil, errors.Wrapf(errors.ErrAmount, "rate %d below floor %d", msg.Rate, minRate)
	}

	signer := x.MainSigner(ctx, h.auth)
	if signer == nil {
		return nil, nil, nil, errors.Wrap(errors.ErrUnauthorized, "no signer")
	}
	owner := signer.Address()

	if msg.GatingSignature == nil {
		return nil, nil, nil, errors.Wrap(ErrGatingSignature, "missing")
	}
	pub := crypto.PublicKey{Ed25519: dm.GatingKey}
	payload := GatingPayload(msg.DepositID, owner, msg.Amount, msg.To, msg.Method, msg.Currency, msg.Rate)
	if !pub.Verify(payload, msg.GatingSignature) {
		return nil, nil, nil, errors.Wrap(ErrGatingSignature, "gating key did not approve")
	}

	if !conf.MultipleIntents {
		var live []Intent
		if _, err := h.ctrl.intents.ByIndex(db, "owner", owner, &live); err != nil {
			return nil, nil, nil, err
		}
		if len(live) > 0 {
			return nil, nil, nil, errors.Wrapf(ErrLiveIntent, "owner %s", owner)
		}
	}
	return &msg, &deposit, owner, nil
}

// FulfillIntentHandler redeems an intent against a payment proof and
// releases the funds, net of fees, to the intent's beneficiary.
type FulfillIntentHandler struct {
	auth     x.Authenticator
	ctrl     *controller
	registry *payverify.Registry
}

var _ ramp.Handler = FulfillIntentHandler{}

func (h FulfillIntentHandler) Check(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.CheckResult, error) {
	var msg FulfillIntentMsg
	if err := ramp.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if err := h.ctrl.intents.Has(db, msg.IntentHash); err != nil {
		return nil, errors.Wrapf(err, "intent %X", msg.IntentHash)
	}
	return &ramp.CheckResult{GasAllocated: fulfillIntentCost}, nil
}

func (h FulfillIntentHandler) Deliver(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.DeliverResult, error) {
	var msg FulfillIntentMsg
	if err := ramp.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if !bytes.Equal(msg.Proof.IntentHash, msg.IntentHash) {
		return nil, errors.Wrap(errors.ErrInput, "proof is for a different intent")
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, err
	}

	var intent Intent
	if err := h.ctrl.intents.One(db, msg.IntentHash, &intent); err != nil {
		return nil, errors.Wrapf(err, "intent %X", msg.IntentHash)
	}
	var deposit Deposit
	if err := h.ctrl.deposits.One(db, intent.DepositID, &deposit); err != nil {
		return nil, errors.Wrapf(err, "deposit %X", intent.DepositID)
	}
	dm := deposit.Method(intent.Method)
	if dm == nil {
		return nil, errors.Wrapf(errors.ErrState, "method %q detached", intent.Method)
	}

	verifier, pm, err := h.registry.Resolve(db, intent.Method)
	if err != nil {
		return nil, errors.Wrapf(err, "method %q", intent.Method)
	}
	var info VerifierInfo
	switch err := h.ctrl.verifiers.One(db, []byte(pm.VerifierID), &info); {
	case err == nil:
		// whitelisted, fee terms apply
	case errors.ErrNotFound.Is(err):
		if !conf.AcceptAllVerifiers {
			return nil, errors.Wrapf(ErrVerifierNotWhitelisted, "%q", pm.VerifierID)
		}
		info = VerifierInfo{VerifierID: pm.VerifierID}
	default:
		return nil, err
	}

	req := payverify.VerificationRequest{
		IntentHash:      msg.IntentHash,
		Token:           intent.Amount.Ticker,
		IntentAmount:    intent.Amount,
		IntentTimestamp: intent.CreatedAt,
		PayeeHash:       dm.PayeeHash,
		Currency:        intent.Currency,
		Rate:            intent.Rate,
		Data:            dm.Data,
	}
	res, err := verifier.VerifyPayment(ctx, db, req, &msg.Proof)
	if err != nil {
		return nil, errors.Wrap(err, "verify payment")
	}
	if !res.Success || !bytes.Equal(res.IntentHash, msg.IntentHash) {
		return nil, errors.Wrap(errors.ErrState, "verification result does not match the intent")
	}
	release := res.ReleaseAmount
	if !release.IsPositive() {
		return nil, errors.Wrap(errors.ErrAmount, "nothing to release")
	}
	if !intent.Amount.IsGTE(release) {
		return nil, errors.Wrap(errors.ErrAmount, "release exceeds reservation")
	}

	sustainFee, err := feeCut(release, conf.SustainabilityFee)
	if err != nil {
		return nil, err
	}
	verifierFee, err := feeCut(release, info.FeeShare)
	if err != nil {
		return nil, err
	}
	net, err := release.Subtract(sustainFee)
	if err != nil {
		return nil, err
	}
	net, err = net.Subtract(verifierFee)
	if err != nil {
		return nil, err
	}

	escrowAddr := Condition(intent.DepositID).Address()
	if net.IsPositive() {
		if err := h.ctrl.mover.MoveCoins(db, escrowAddr, intent.To, net); err != nil {
			return nil, errors.Wrap(err, "release to beneficiary")
		}
	}
	if sustainFee.IsPositive() {
		if err := h.ctrl.mover.MoveCoins(db, escrowAddr, conf.FeeRecipient, sustainFee); err != nil {
			return nil, errors.Wrap(err, "sustainability fee")
		}
	}
	if verifierFee.IsPositive() {
		if err := h.ctrl.mover.MoveCoins(db, escrowAddr, info.FeeRecipient, verifierFee); err != nil {
			return nil, errors.Wrap(err, "verifier fee")
		}
	}

	closed, err := h.ctrl.settleIntent(db, intent.DepositID, &deposit, msg.IntentHash, intent.Amount, release)
	if err != nil {
		return nil, err
	}

	tags := []common.KVPair{actionTag("fulfill-intent"), intentTag(msg.IntentHash), depositTag(intent.DepositID)}
	if closed {
		tags = append(tags, actionTag("close-deposit"))
	}
	return &ramp.DeliverResult{Data: msg.IntentHash, Tags: tags}, nil
}

// ReleaseFundsHandler lets the depositor release a reservation without
// a payment proof, eg. when the payment was confirmed out of band. The
// full reservation is paid out and no fees are taken.
type ReleaseFundsHandler struct {
	auth x.Authenticator
	ctrl *controller
}

var _ ramp.Handler = ReleaseFundsHandler{}

func (h ReleaseFundsHandler) Check(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.CheckResult, error) {
	if _, _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &ramp.CheckResult{GasAllocated: releaseFundsCost}, nil
}

func (h ReleaseFundsHandler) Deliver(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.DeliverResult, error) {
	msg, intent, deposit, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	escrowAddr := Condition(intent.DepositID).Address()
	if err := h.ctrl.mover.MoveCoins(db, escrowAddr, intent.To, intent.Amount); err != nil {
		return nil, errors.Wrap(err, "release to beneficiary")
	}
	closed, err := h.ctrl.settleIntent(db, intent.DepositID, deposit, msg.IntentHash, intent.Amount, intent.Amount)
	if err != nil {
		return nil, err
	}
	tags := []common.KVPair{actionTag("release-funds"), intentTag(msg.IntentHash), depositTag(intent.DepositID)}
	if closed {
		tags = append(tags, actionTag("close-deposit"))
	}
	return &ramp.DeliverResult{Data: msg.IntentHash, Tags: tags}, nil
}

func (h ReleaseFundsHandler) validate(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ReleaseFundsMsg, *Intent, *Deposit, error) {
	var msg ReleaseFundsMsg
	if err := ramp.LoadMsg(tx, &msg); err != nil {
		return nil, nil, nil, errors.Wrap(err, "load msg")
	}
	var intent Intent
	if err := h.ctrl.intents.One(db, msg.IntentHash, &intent); err != nil {
		return nil, nil, nil, errors.Wrapf(err, "intent %X", msg.IntentHash)
	}
	var deposit Deposit
	if err := h.ctrl.deposits.One(db, intent.DepositID, &deposit); err != nil {
		return nil, nil, nil, errors.Wrapf(err, "deposit %X", intent.DepositID)
	}
	if !h.auth.HasAddress(ctx, deposit.Depositor) {
		return nil, nil, nil, errors.Wrap(errors.ErrUnauthorized, "depositor signature required")
	}
	return &msg, &intent, &deposit, nil
}

// CancelIntentHandler returns a reservation to the deposit.
type CancelIntentHandler struct {
	auth x.Authenticator
	ctrl *controller
}

var _ ramp.Handler = CancelIntentHandler{}

func (h CancelIntentHandler) Check(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.CheckResult, error) {
	if _, _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &ramp.CheckResult{GasAllocated: cancelIntentCost}, nil
}

func (h CancelIntentHandler) Deliver(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.DeliverResult, error) {
	msg, intent, deposit, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	nothing := coin.Coin{Ticker: intent.Amount.Ticker}
	if _, err := h.ctrl.settleIntent(db, intent.DepositID, deposit, msg.IntentHash, intent.Amount, nothing); err != nil {
		return nil, err
	}
	tags := []common.KVPair{actionTag("cancel-intent"), intentTag(msg.IntentHash), depositTag(intent.DepositID)}
	return &ramp.DeliverResult{Tags: tags}, nil
}

func (h CancelIntentHandler) validate(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*CancelIntentMsg, *Intent, *Deposit, error) {
	var msg CancelIntentMsg
	if err := ramp.LoadMsg(tx, &msg); err != nil {
		return nil, nil, nil, errors.Wrap(err, "load msg")
	}
	var intent Intent
	if err := h.ctrl.intents.One(db, msg.IntentHash, &intent); err != nil {
		return nil, nil, nil, errors.Wrapf(err, "intent %X", msg.IntentHash)
	}
	if !h.auth.HasAddress(ctx, intent.Owner) {
		return nil, nil, nil, errors.Wrap(errors.ErrUnauthorized, "owner signature required")
	}
	var deposit Deposit
	if err := h.ctrl.deposits.One(db, intent.DepositID, &deposit); err != nil {
		return nil, nil, nil, errors.Wrapf(err, "deposit %X", intent.DepositID)
	}
	return &msg, &intent, &deposit, nil
}

// WithdrawDepositHandler pays the unreserved balance back to the
// depositor. Expired reservations are reclaimed first. With live
// reservations left the deposit switches to draining, otherwise it
// closes.
type WithdrawDepositHandler struct {
	auth x.Authenticator
	ctrl *controller
}

var _ ramp.Handler = WithdrawDepositHandler{}

func (h WithdrawDepositHandler) Check(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.CheckResult, error) {
	if _, _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &ramp.CheckResult{GasAllocated: withdrawDepositCost}, nil
}

func (h WithdrawDepositHandler) Deliver(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.DeliverResult, error) {
	msg, deposit, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, err
	}
	blockNow, err := ramp.BlockTime(ctx)
	if err != nil {
		return nil, err
	}

	pruned, err := h.ctrl.pruneExpired(db, deposit, conf.IntentExpirationPeriod, ramp.AsUnixTime(blockNow), nil)
	if err != nil {
		return nil, err
	}

	payout := deposit.Remaining
	if payout.IsPositive() {
		escrowAddr := Condition(msg.DepositID).Address()
		if err := h.ctrl.mover.MoveCoins(db, escrowAddr, deposit.Depositor, payout); err != nil {
			return nil, errors.Wrap(err, "withdraw to depositor")
		}
	}
	deposit.Remaining = coin.Coin{Ticker: deposit.Amount.Ticker}
	deposit.AcceptingIntents = false

	closed, err := h.ctrl.saveOrClose(db, msg.DepositID, deposit)
	if err != nil {
		return nil, err
	}

	tags := []common.KVPair{actionTag("withdraw-deposit"), depositTag(msg.DepositID)}
	if closed {
		tags = append(tags, actionTag("close-deposit"))
	}
	return &ramp.DeliverResult{Tags: prunedTags(tags, pruned)}, nil
}

func (h WithdrawDepositHandler) validate(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*WithdrawDepositMsg, *Deposit, error) {
	var msg WithdrawDepositMsg
	if err := ramp.LoadMsg(tx, &msg); err != nil {
		return nil, nil, errors.Wrap(err, "load msg")
	}
	var deposit Deposit
	if err := h.ctrl.deposits.One(db, msg.DepositID, &deposit); err != nil {
		return nil, nil, errors.Wrapf(err, "deposit %X", msg.DepositID)
	}
	if !h.auth.HasAddress(ctx, deposit.Depositor) {
		return nil, nil, errors.Wrap(errors.ErrUnauthorized, "depositor signature required")
	}
	return &msg, &deposit, nil
}

// AddVerifierHandler whitelists a payment verifier.
type AddVerifierHandler struct {
	auth   x.Authenticator
	bucket orm.ModelBucket
}

var _ ramp.Handler = AddVerifierHandler{}

func (h AddVerifierHandler) Check(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &ramp.CheckResult{GasAllocated: updateVerifierCost}, nil
}

func (h AddVerifierHandler) Deliver(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	info := VerifierInfo{
		VerifierID:   msg.VerifierID,
		FeeShare:     msg.FeeShare,
		FeeRecipient: msg.FeeRecipient,
	}
	if _, err := h.bucket.Put(db, []byte(info.VerifierID), &info); err != nil {
		return nil, errors.Wrap(err, "cannot store verifier")
	}
	return &ramp.DeliverResult{Data: []byte(info.VerifierID)}, nil
}

func (h AddVerifierHandler) validate(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*AddVerifierMsg, error) {
	var msg AddVerifierMsg
	if err := ramp.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if err := ownerSigned(ctx, db, h.auth); err != nil {
		return nil, err
	}
	switch err := h.bucket.Has(db, []byte(msg.VerifierID)); {
	case err == nil:
		return nil, errors.Wrapf(errors.ErrDuplicate, "verifier %q", msg.VerifierID)
	case errors.ErrNotFound.Is(err):
		// free to create
	default:
		return nil, err
	}
	return &msg, nil
}

// RemoveVerifierHandler removes a verifier from the whitelist.
type RemoveVerifierHandler struct {
	auth   x.Authenticator
	bucket orm.ModelBucket
}

var _ ramp.Handler = RemoveVerifierHandler{}

func (h RemoveVerifierHandler) Check(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &ramp.CheckResult{GasAllocated: updateVerifierCost}, nil
}

func (h RemoveVerifierHandler) Deliver(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	if err := h.bucket.Delete(db, []byte(msg.VerifierID)); err != nil {
		return nil, errors.Wrapf(err, "verifier %q", msg.VerifierID)
	}
	return &ramp.DeliverResult{}, nil
}

func (h RemoveVerifierHandler) validate(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*RemoveVerifierMsg, error) {
	var msg RemoveVerifierMsg
	if err := ramp.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if err := ownerSigned(ctx, db, h.auth); err != nil {
		return nil, err
	}
	return &msg, nil
}

// UpdateVerifierFeeHandler changes the fee terms of a whitelisted
// verifier.
type UpdateVerifierFeeHandler struct {
	auth   x.Authenticator
	bucket orm.ModelBucket
}

var _ ramp.Handler = UpdateVerifierFeeHandler{}

func (h UpdateVerifierFeeHandler) Check(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.CheckResult, error) {
	if _, err := h.validate(ctx, db, tx); err != nil {
		return nil, err
	}
	return &ramp.CheckResult{GasAllocated: updateVerifierCost}, nil
}

func (h UpdateVerifierFeeHandler) Deliver(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*ramp.DeliverResult, error) {
	msg, err := h.validate(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	var info VerifierInfo
	if err := h.bucket.One(db, []byte(msg.VerifierID), &info); err != nil {
		return nil, errors.Wrapf(err, "verifier %q", msg.VerifierID)
	}
	info.FeeShare = msg.FeeShare
	info.FeeRecipient = msg.FeeRecipient
	if _, err := h.bucket.Put(db, []byte(info.VerifierID), &info); err != nil {
		return nil, errors.Wrap(err, "cannot store verifier")
	}
	return &ramp.DeliverResult{}, nil
}

func (h UpdateVerifierFeeHandler) validate(ctx ramp.Context, db ramp.KVStore, tx ramp.Tx) (*UpdateVerifierFeeMsg, error) {
	var msg UpdateVerifierFeeMsg
	if err := ramp.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if err := ownerSigned(ctx, db, h.auth); err != nil {
		return nil, err
	}
	return &msg, nil
}
