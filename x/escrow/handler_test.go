package escrow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/coin"
	"github.com/onramp-one/ramp/crypto"
	"github.com/onramp-one/ramp/errors"
	"github.com/onramp-one/ramp/gconf"
	"github.com/onramp-one/ramp/ramptest"
	"github.com/onramp-one/ramp/ramptest/assert"
	"github.com/onramp-one/ramp/store"
	"github.com/onramp-one/ramp/x/cash"
	"github.com/onramp-one/ramp/x/nullifier"
	"github.com/onramp-one/ramp/x/payverify"
)

const (
	testTicker = "IOV"
	testMethod = "bank/sepa"
	verifierID = "witness/v1"
)

type testEnv struct {
	db        ramp.CacheableKVStore
	auth      *ramptest.CtxAuth
	cash      cash.BaseController
	ctrl      *controller
	registry  *payverify.Registry
	witness   *crypto.PrivateKey
	gating    *crypto.PrivateKey
	owner     ramp.Condition
	depositor ramp.Condition
	buyer     ramp.Condition
	buyer2    ramp.Condition
	feeAddr   ramp.Address
	vFeeAddr  ramp.Address
	payments  int

	create   CreateDepositHandler
	signal   SignalIntentHandler
	fulfill  FulfillIntentHandler
	release  ReleaseFundsHandler
	cancel   CancelIntentHandler
	withdraw WithdrawDepositHandler
}

func newTestEnv(t testing.TB) *testEnv {
	t.Helper()

	db := store.MemStore()
	auth := &ramptest.CtxAuth{Key: "auth"}
	cashCtrl := cash.NewController(cash.NewBucket())
	ctrl := newController(cashCtrl)

	env := &testEnv{
		db:        db,
		auth:      auth,
		cash:      cashCtrl,
		ctrl:      ctrl,
		witness:   crypto.GenPrivKeyEd25519(),
		gating:    crypto.GenPrivKeyEd25519(),
		owner:     ramptest.NewCondition(),
		depositor: ramptest.NewCondition(),
		buyer:     ramptest.NewCondition(),
		buyer2:    ramptest.NewCondition(),
		feeAddr:   ramptest.RandomAddr(),
		vFeeAddr:  ramptest.RandomAddr(),
	}

	conf := Configuration{
		Owner:                  env.owner.Address(),
		IntentExpirationPeriod: 600,
		SustainabilityFee:      ramp.Fraction{Numerator: 1, Denominator: 100},
		FeeRecipient:           env.feeAddr,
		MaxPaymentMethods:      4,
		MaxCurrenciesPerMethod: 4,
		MaxIntentsPerDeposit:   8,
	}
	assert.Nil(t, gconf.Save(db, "escrow", &conf))

	nconf := nullifier.Configuration{
		Owner:   ramptest.RandomAddr(),
		Writers: []ramp.Address{payverify.Condition(verifierID).Address()},
	}
	assert.Nil(t, gconf.Save(db, "nullifier", &nconf))

	method := payverify.PaymentMethod{
		Method:          testMethod,
		VerifierID:      verifierID,
		Currencies:      []string{"EUR"},
		Processors:      [][]byte{[]byte("provider-1")},
		TimestampBuffer: 600,
		MinWitnessSigs:  1,
		Witnesses:       []ramp.Address{env.witness.PublicKey().Address()},
		AcceptedStatus:  "completed",
	}
	_, err := payverify.NewBucket().Put(db, []byte(testMethod), &method)
	assert.Nil(t, err)

	info := VerifierInfo{
		VerifierID:   verifierID,
		FeeShare:     ramp.Fraction{Numerator: 1, Denominator: 100},
		FeeRecipient: env.vFeeAddr,
	}
	_, err = ctrl.verifiers.Put(db, []byte(verifierID), &info)
	assert.Nil(t, err)

	env.registry = payverify.NewRegistry()
	env.registry.Register(verifierID, payverify.NewThresholdVerifier(verifierID, nullifier.NewController()))

	assert.Nil(t, cashCtrl.CoinMint(db, env.depositor.Address(), coin.NewCoin(1000, 0, testTicker)))

	env.create = CreateDepositHandler{auth: auth, ctrl: ctrl, methods: payverify.NewBucket()}
	env.signal = SignalIntentHandler{auth: auth, ctrl: ctrl}
	env.fulfill = FulfillIntentHandler{auth: auth, ctrl: ctrl, registry: env.registry}
	env.release = ReleaseFundsHandler{auth: auth, ctrl: ctrl}
	env.cancel = CancelIntentHandler{auth: auth, ctrl: ctrl}
	env.withdraw = WithdrawDepositHandler{auth: auth, ctrl: ctrl}
	return env
}

func (e *testEnv) ctx(at int64, signers ...ramp.Condition) ramp.Context {
	ctx := e.auth.SetConditions(context.Background(), signers...)
	return ramp.WithBlockTime(ctx, time.Unix(at, 0))
}

func (e *testEnv) createDeposit(t testing.TB, at int64, amount int64, methods ...DepositPaymentMethod) []byte {
	t.Helper()
	if len(methods) == 0 {
		methods = []DepositPaymentMethod{
			{
				Method:     testMethod,
				GatingKey:  e.gating.PublicKey().Ed25519,
				PayeeHash:  []byte("payee"),
				Currencies: []CurrencyRate{{Currency: "EUR", MinRate: 100}},
			},
		}
	}
	msg := &CreateDepositMsg{
		Amount:         coin.NewCoin(amount, 0, testTicker),
		MinIntent:      coin.NewCoin(1, 0, testTicker),
		MaxIntent:      coin.NewCoin(amount, 0, testTicker),
		PaymentMethods: methods,
	}
	res, err := e.create.Deliver(e.ctx(at, e.depositor), e.db, &ramptest.Tx{Msg: msg})
	assert.Nil(t, err)
	return res.Data
}

func (e *testEnv) signalIntent(t testing.TB, at int64, buyer ramp.Condition, msg *SignalIntentMsg) ([]byte, error) {
	t.Helper()
	res, err := e.signal.Deliver(e.ctx(at, buyer), e.db, &ramptest.Tx{Msg: e.gated(t, buyer, msg)})
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// gated approves the intent with the deposit's gating key, unless a
// signature was set explicitly.
func (e *testEnv) gated(t testing.TB, buyer ramp.Condition, msg *SignalIntentMsg) *SignalIntentMsg {
	t.Helper()
	if msg.GatingSignature == nil {
		payload := GatingPayload(msg.DepositID, buyer.Address(), msg.Amount, msg.To, msg.Method, msg.Currency, msg.Rate)
		sig, err := e.gating.Sign(payload)
		assert.Nil(t, err)
		msg.GatingSignature = sig
	}
	return msg
}

func (e *testEnv) intentMsg(depositID []byte, amount int64, to ramp.Address) *SignalIntentMsg {
	return &SignalIntentMsg{
		DepositID: depositID,
		Amount:    coin.NewCoin(amount, 0, testTicker),
		To:        to,
		Method:    testMethod,
		Currency:  "EUR",
		Rate:      100,
	}
}

// proofFor builds a threshold proof over a fresh payment identifier.
func (e *testEnv) proofFor(t testing.TB, intentHash []byte, fiatAmount, paidAt int64) payverify.PaymentProof {
	t.Helper()
	e.payments++
	claim := payverify.PaymentClaim{
		Method:    testMethod,
		Processor: []byte("provider-1"),
		PaymentID: fmt.Sprintf("pay-%d", e.payments),
		PayeeHash: []byte("payee"),
		Currency:  "EUR",
		Amount:    fiatAmount,
		Status:    "completed",
		Timestamp: ramp.UnixTime(paidAt),
	}
	sig, err := e.witness.Sign(claim.Digest())
	assert.Nil(t, err)
	return payverify.PaymentProof{
		IntentHash: intentHash,
		Claim:      claim,
		Attestations: []*payverify.WitnessSignature{
			{Pubkey: e.witness.PublicKey(), Signature: sig},
		},
	}
}

func (e *testEnv) balance(t testing.TB, addr ramp.Address) coin.Coins {
	t.Helper()
	coins, err := e.cash.Balance(e.db, addr)
	if err != nil && !errors.ErrEmpty.Is(err) {
		t.Fatalf("cannot read balance: %+v", err)
	}
	return coins
}

func TestDepositLifecycle(t *testing.T) {
	e := newTestEnv(t)

	depositID := e.createDeposit(t, 1000, 100)
	assert.Equal(t, true, e.balance(t, Condition(depositID).Address()).Contains(coin.NewCoin(100, 0, testTicker)))
	assert.Equal(t, true, e.balance(t, e.depositor.Address()).Contains(coin.NewCoin(900, 0, testTicker)))

	beneficiary := ramptest.RandomAddr()
	hash, err := e.signalIntent(t, 1000, e.buyer, e.intentMsg(depositID, 50, beneficiary))
	assert.Nil(t, err)

	var deposit Deposit
	assert.Nil(t, e.ctrl.deposits.One(e.db, depositID, &deposit))
	assert.Equal(t, coin.NewCoin(50, 0, testTicker), deposit.Remaining)
	assert.Equal(t, coin.NewCoin(50, 0, testTicker), deposit.Outstanding)
	assert.Equal(t, 1, len(deposit.IntentHashes))

	// 50 tokens at rate 100 is 5000 fiat minor units
	proof := e.proofFor(t, hash, 5000, 1050)
	res, err := e.fulfill.Deliver(e.ctx(1100, e.buyer), e.db, &ramptest.Tx{Msg: &FulfillIntentMsg{IntentHash: hash, Proof: proof}})
	assert.Nil(t, err)
	assert.Equal(t, hash, res.Data)

	// 1% sustainability fee and 1% verifier fee leave 49 for the buyer
	assert.Equal(t, true, e.balance(t, beneficiary).Contains(coin.NewCoin(49, 0, testTicker)))
	assert.Equal(t, true, e.balance(t, e.feeAddr).Contains(coin.NewCoin(0, 500000000, testTicker)))
	assert.Equal(t, true, e.balance(t, e.vFeeAddr).Contains(coin.NewCoin(0, 500000000, testTicker)))

	assert.Nil(t, e.ctrl.deposits.One(e.db, depositID, &deposit))
	assert.Equal(t, coin.NewCoin(50, 0, testTicker), deposit.Remaining)
	assert.Equal(t, true, deposit.Outstanding.IsZero())
	assert.Equal(t, 0, len(deposit.IntentHashes))
	if err := e.ctrl.intents.Has(e.db, hash); !errors.ErrNotFound.Is(err) {
		t.Fatalf("intent must be gone, got %+v", err)
	}

	// funds held in escrow always equal the deposit's books
	assert.Equal(t, true, e.balance(t, Condition(depositID).Address()).Contains(coin.NewCoin(50, 0, testTicker)))
}

func TestPartialFulfillKeepsRest(t *testing.T) {
	e := newTestEnv(t)

	depositID := e.createDeposit(t, 1000, 100)
	beneficiary := ramptest.RandomAddr()
	hash, err := e.signalIntent(t, 1000, e.buyer, e.intentMsg(depositID, 50, beneficiary))
	assert.Nil(t, err)

	// paying half the agreed fiat releases half the reservation
	proof := e.proofFor(t, hash, 2500, 1050)
	_, err = e.fulfill.Deliver(e.ctx(1100, e.buyer), e.db, &ramptest.Tx{Msg: &FulfillIntentMsg{IntentHash: hash, Proof: proof}})
	assert.Nil(t, err)

	var deposit Deposit
	assert.Nil(t, e.ctrl.deposits.One(e.db, depositID, &deposit))
	assert.Equal(t, coin.NewCoin(75, 0, testTicker), deposit.Remaining)
	assert.Equal(t, true, deposit.Outstanding.IsZero())
}

func TestCancelAndWithdraw(t *testing.T) {
	e := newTestEnv(t)

	depositID := e.createDeposit(t, 1000, 100)
	hash, err := e.signalIntent(t, 1000, e.buyer, e.intentMsg(depositID, 50, ramptest.RandomAddr()))
	assert.Nil(t, err)

	t.Run("only the owner can cancel", func(t *testing.T) {
		_, err := e.cancel.Deliver(e.ctx(1100, e.buyer2), e.db, &ramptest.Tx{Msg: &CancelIntentMsg{IntentHash: hash}})
		if !errors.ErrUnauthorized.Is(err) {
			t.Fatalf("expected unauthorized, got %+v", err)
		}
	})

	_, err = e.cancel.Deliver(e.ctx(1100, e.buyer), e.db, &ramptest.Tx{Msg: &CancelIntentMsg{IntentHash: hash}})
	assert.Nil(t, err)

	var deposit Deposit
	assert.Nil(t, e.ctrl.deposits.One(e.db, depositID, &deposit))
	assert.Equal(t, coin.NewCoin(100, 0, testTicker), deposit.Remaining)
	assert.Equal(t, 0, len(deposit.IntentHashes))

	t.Run("only the depositor can withdraw", func(t *testing.T) {
		_, err := e.withdraw.Deliver(e.ctx(1200, e.buyer), e.db, &ramptest.Tx{Msg: &WithdrawDepositMsg{DepositID: depositID}})
		if !errors.ErrUnauthorized.Is(err) {
			t.Fatalf("expected unauthorized, got %+v", err)
		}
	})

	_, err = e.withdraw.Deliver(e.ctx(1200, e.depositor), e.db, &ramptest.Tx{Msg: &WithdrawDepositMsg{DepositID: depositID}})
	assert.Nil(t, err)

	// everything returned, the deposit record is gone
	assert.Equal(t, true, e.balance(t, e.depositor.Address()).Contains(coin.NewCoin(1000, 0, testTicker)))
	if err := e.ctrl.deposits.Has(e.db, depositID); !errors.ErrNotFound.Is(err) {
		t.Fatalf("deposit must be gone, got %+v", err)
	}
}

func TestWithdrawWithLiveIntentDrains(t *testing.T) {
	e := newTestEnv(t)

	depositID := e.createDeposit(t, 1000, 100)
	hash, err := e.signalIntent(t, 1000, e.buyer, e.intentMsg(depositID, 50, ramptest.RandomAddr()))
	assert.Nil(t, err)

	_, err = e.withdraw.Deliver(e.ctx(1100, e.depositor), e.db, &ramptest.Tx{Msg: &WithdrawDepositMsg{DepositID: depositID}})
	assert.Nil(t, err)

	// the unreserved half is paid out, the reservation stays live
	assert.Equal(t, true, e.balance(t, e.depositor.Address()).Contains(coin.NewCoin(950, 0, testTicker)))
	var deposit Deposit
	assert.Nil(t, e.ctrl.deposits.One(e.db, depositID, &deposit))
	assert.Equal(t, false, deposit.AcceptingIntents)
	assert.Equal(t, coin.NewCoin(50, 0, testTicker), deposit.Outstanding)

	// a draining deposit accepts no new intents
	_, err = e.signalIntent(t, 1100, e.buyer2, e.intentMsg(depositID, 10, ramptest.RandomAddr()))
	if !ErrNotAccepting.Is(err) {
		t.Fatalf("expected not accepting, got %+v", err)
	}

	// settling the last reservation releases the remains for withdrawal
	_, err = e.cancel.Deliver(e.ctx(1200, e.buyer), e.db, &ramptest.Tx{Msg: &CancelIntentMsg{IntentHash: hash}})
	assert.Nil(t, err)
	_, err = e.withdraw.Deliver(e.ctx(1300, e.depositor), e.db, &ramptest.Tx{Msg: &WithdrawDepositMsg{DepositID: depositID}})
	assert.Nil(t, err)
	assert.Equal(t, true, e.balance(t, e.depositor.Address()).Contains(coin.NewCoin(1000, 0, testTicker)))
	if err := e.ctrl.deposits.Has(e.db, depositID); !errors.ErrNotFound.Is(err) {
		t.Fatalf("deposit must be gone, got %+v", err)
	}
}

func TestInlinePruning(t *testing.T) {
	e := newTestEnv(t)

	depositID := e.createDeposit(t, 1000, 100)
	stale, err := e.signalIntent(t, 1000, e.buyer, e.intentMsg(depositID, 60, ramptest.RandomAddr()))
	assert.Nil(t, err)

	// before expiration the liquidity is simply not there
	_, err = e.signalIntent(t, 1100, e.buyer2, e.intentMsg(depositID, 60, ramptest.RandomAddr()))
	if !ErrInsufficientLiquidity.Is(err) {
		t.Fatalf("expected insufficient liquidity, got %+v", err)
	}

	// after expiration the stale reservation is reclaimed inline
	res, err := e.signal.Deliver(e.ctx(1700, e.buyer2), e.db, &ramptest.Tx{Msg: e.gated(t, e.buyer2, e.intentMsg(depositID, 60, ramptest.RandomAddr()))})
	assert.Nil(t, err)

	var prunedTag bool
	for _, tag := range res.Tags {
		if string(tag.Key) == "pruned-intent" {
			prunedTag = true
		}
	}
	assert.Equal(t, true, prunedTag)

	if err := e.ctrl.intents.Has(e.db, stale); !errors.ErrNotFound.Is(err) {
		t.Fatalf("stale intent must be gone, got %+v", err)
	}
	var deposit Deposit
	assert.Nil(t, e.ctrl.deposits.One(e.db, depositID, &deposit))
	assert.Equal(t, coin.NewCoin(40, 0, testTicker), deposit.Remaining)
	assert.Equal(t, coin.NewCoin(60, 0, testTicker), deposit.Outstanding)
	assert.Equal(t, 1, len(deposit.IntentHashes))
}

func TestPruningProgressSurvivesRejection(t *testing.T) {
	e := newTestEnv(t)

	depositID := e.createDeposit(t, 1000, 100)
	stale, err := e.signalIntent(t, 1000, e.buyer, e.intentMsg(depositID, 30, ramptest.RandomAddr()))
	assert.Nil(t, err)
	_, err = e.signalIntent(t, 1200, e.buyer2, e.intentMsg(depositID, 60, ramptest.RandomAddr()))
	assert.Nil(t, err)

	// at 1700 only the first reservation is expired. Reclaiming it
	// frees 30, not enough for 50, so the call fails. The reclaimed
	// liquidity stays reclaimed.
	other := ramptest.NewCondition()
	_, err = e.signalIntent(t, 1700, other, e.intentMsg(depositID, 50, ramptest.RandomAddr()))
	if !ErrInsufficientLiquidity.Is(err) {
		t.Fatalf("expected insufficient liquidity, got %+v", err)
	}

	if err := e.ctrl.intents.Has(e.db, stale); !errors.ErrNotFound.Is(err) {
		t.Fatalf("stale intent must be gone, got %+v", err)
	}
	var deposit Deposit
	assert.Nil(t, e.ctrl.deposits.One(e.db, depositID, &deposit))
	assert.Equal(t, coin.NewCoin(40, 0, testTicker), deposit.Remaining)
	assert.Equal(t, coin.NewCoin(60, 0, testTicker), deposit.Outstanding)
}

func TestIntentCapKeepsPruningProgress(t *testing.T) {
	e := newTestEnv(t)

	depositID := e.createDeposit(t, 1000, 100)
	stale, err := e.signalIntent(t, 1000, e.buyer, e.intentMsg(depositID, 40, ramptest.RandomAddr()))
	assert.Nil(t, err)
	_, err = e.signalIntent(t, 1200, e.buyer2, e.intentMsg(depositID, 20, ramptest.RandomAddr()))
	assert.Nil(t, err)
	third := ramptest.NewCondition()
	_, err = e.signalIntent(t, 1200, third, e.intentMsg(depositID, 20, ramptest.RandomAddr()))
	assert.Nil(t, err)

	conf, err := loadConf(e.db)
	assert.Nil(t, err)
	conf.MaxIntentsPerDeposit = 2
	assert.Nil(t, gconf.Save(e.db, "escrow", conf))

	// at 1700 the first reservation is expired. Reclaiming it frees
	// enough liquidity, but the two live reservations already fill the
	// cap. The reclaimed liquidity stays reclaimed.
	fourth := ramptest.NewCondition()
	_, err = e.signalIntent(t, 1700, fourth, e.intentMsg(depositID, 30, ramptest.RandomAddr()))
	if !errors.ErrState.Is(err) {
		t.Fatalf("expected state error, got %+v", err)
	}

	if err := e.ctrl.intents.Has(e.db, stale); !errors.ErrNotFound.Is(err) {
		t.Fatalf("stale intent must be gone, got %+v", err)
	}
	var deposit Deposit
	assert.Nil(t, e.ctrl.deposits.One(e.db, depositID, &deposit))
	assert.Equal(t, coin.NewCoin(60, 0, testTicker), deposit.Remaining)
	assert.Equal(t, coin.NewCoin(40, 0, testTicker), deposit.Outstanding)
	assert.Equal(t, 2, len(deposit.IntentHashes))
}

func TestSignalIntentChecks(t *testing.T) {
	e := newTestEnv(t)
	depositID := e.createDeposit(t, 1000, 100)

	cases := map[string]struct {
		change  func(msg *SignalIntentMsg)
		wantErr *errors.Error
	}{
		"unknown deposit": {
			change:  func(m *SignalIntentMsg) { m.DepositID = []byte("no-such-id") },
			wantErr: errors.ErrNotFound,
		},
		"method not offered": {
			change:  func(m *SignalIntentMsg) { m.Method = "bank/wire" },
			wantErr: errors.ErrNotFound,
		},
		"amount above maximum": {
			change:  func(m *SignalIntentMsg) { m.Amount = coin.NewCoin(101, 0, testTicker) },
			wantErr: errors.ErrAmount,
		},
		"wrong token": {
			change:  func(m *SignalIntentMsg) { m.Amount = coin.NewCoin(10, 0, "BTC") },
			wantErr: errors.ErrCurrency,
		},
		"currency not offered": {
			change:  func(m *SignalIntentMsg) { m.Currency = "USD" },
			wantErr: errors.ErrCurrency,
		},
		"rate below floor": {
			change:  func(m *SignalIntentMsg) { m.Rate = 99 },
			wantErr: errors.ErrAmount,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			msg := e.intentMsg(depositID, 10, ramptest.RandomAddr())
			tc.change(msg)
			_, err := e.signalIntent(t, 1000, e.buyer, msg)
			if !tc.wantErr.Is(err) {
				t.Fatalf("expected %v, got %+v", tc.wantErr, err)
			}
		})
	}
}

func TestOneLiveIntentPerOwner(t *testing.T) {
	e := newTestEnv(t)
	depositID := e.createDeposit(t, 1000, 100)

	_, err := e.signalIntent(t, 1000, e.buyer, e.intentMsg(depositID, 10, ramptest.RandomAddr()))
	assert.Nil(t, err)
	_, err = e.signalIntent(t, 1000, e.buyer, e.intentMsg(depositID, 10, ramptest.RandomAddr()))
	if !ErrLiveIntent.Is(err) {
		t.Fatalf("expected live intent rejection, got %+v", err)
	}

	// allowed once multiple intents are enabled
	conf, err := loadConf(e.db)
	assert.Nil(t, err)
	conf.MultipleIntents = true
	assert.Nil(t, gconf.Save(e.db, "escrow", conf))
	_, err = e.signalIntent(t, 1000, e.buyer, e.intentMsg(depositID, 10, ramptest.RandomAddr()))
	assert.Nil(t, err)
}

func TestGatedIntent(t *testing.T) {
	e := newTestEnv(t)

	depositID := e.createDeposit(t, 1000, 100)
	to := ramptest.RandomAddr()

	t.Run("missing signature", func(t *testing.T) {
		msg := e.intentMsg(depositID, 10, to)
		_, err := e.signal.Deliver(e.ctx(1000, e.buyer), e.db, &ramptest.Tx{Msg: msg})
		if !ErrGatingSignature.Is(err) {
			t.Fatalf("expected gating rejection, got %+v", err)
		}
	})

	t.Run("signature from the wrong key", func(t *testing.T) {
		other := crypto.GenPrivKeyEd25519()
		payload := GatingPayload(depositID, e.buyer.Address(), coin.NewCoin(10, 0, testTicker), to, testMethod, "EUR", 100)
		sig, err := other.Sign(payload)
		assert.Nil(t, err)
		msg := e.intentMsg(depositID, 10, to)
		msg.GatingSignature = sig
		if _, err := e.signalIntent(t, 1000, e.buyer, msg); !ErrGatingSignature.Is(err) {
			t.Fatalf("expected gating rejection, got %+v", err)
		}
	})

	t.Run("signature over different parameters", func(t *testing.T) {
		payload := GatingPayload(depositID, e.buyer.Address(), coin.NewCoin(11, 0, testTicker), to, testMethod, "EUR", 100)
		sig, err := e.gating.Sign(payload)
		assert.Nil(t, err)
		msg := e.intentMsg(depositID, 10, to)
		msg.GatingSignature = sig
		if _, err := e.signalIntent(t, 1000, e.buyer, msg); !ErrGatingSignature.Is(err) {
			t.Fatalf("expected gating rejection, got %+v", err)
		}
	})

	t.Run("approved", func(t *testing.T) {
		payload := GatingPayload(depositID, e.buyer.Address(), coin.NewCoin(10, 0, testTicker), to, testMethod, "EUR", 100)
		sig, err := e.gating.Sign(payload)
		assert.Nil(t, err)
		msg := e.intentMsg(depositID, 10, to)
		msg.GatingSignature = sig
		_, err = e.signalIntent(t, 1000, e.buyer, msg)
		assert.Nil(t, err)
	})
}

func TestFulfillChecks(t *testing.T) {
	e := newTestEnv(t)
	depositID := e.createDeposit(t, 1000, 100)
	hash, err := e.signalIntent(t, 1000, e.buyer, e.intentMsg(depositID, 50, ramptest.RandomAddr()))
	assert.Nil(t, err)

	t.Run("proof for another intent", func(t *testing.T) {
		proof := e.proofFor(t, []byte("somewhere else"), 5000, 1050)
		_, err := e.fulfill.Deliver(e.ctx(1100, e.buyer), e.db, &ramptest.Tx{Msg: &FulfillIntentMsg{IntentHash: hash, Proof: proof}})
		if !errors.ErrInput.Is(err) {
			t.Fatalf("expected input error, got %+v", err)
		}
	})

	t.Run("verifier dropped from the whitelist", func(t *testing.T) {
		cache := e.db.CacheWrap()
		defer cache.Discard()
		assert.Nil(t, e.ctrl.verifiers.Delete(cache, []byte(verifierID)))

		proof := e.proofFor(t, hash, 5000, 1050)
		_, err := e.fulfill.Deliver(e.ctx(1100, e.buyer), cache, &ramptest.Tx{Msg: &FulfillIntentMsg{IntentHash: hash, Proof: proof}})
		if !ErrVerifierNotWhitelisted.Is(err) {
			t.Fatalf("expected whitelist rejection, got %+v", err)
		}
	})

	t.Run("whitelist disabled accepts any verifier without fee", func(t *testing.T) {
		cache := e.db.CacheWrap()
		defer cache.Discard()
		assert.Nil(t, e.ctrl.verifiers.Delete(cache, []byte(verifierID)))
		conf, err := loadConf(cache)
		assert.Nil(t, err)
		conf.AcceptAllVerifiers = true
		assert.Nil(t, gconf.Save(cache, "escrow", conf))

		proof := e.proofFor(t, hash, 5000, 1050)
		_, err = e.fulfill.Deliver(e.ctx(1100, e.buyer), cache, &ramptest.Tx{Msg: &FulfillIntentMsg{IntentHash: hash, Proof: proof}})
		assert.Nil(t, err)
		coins, err := e.cash.Balance(cache, e.vFeeAddr)
		if err == nil && !coins.IsEmpty() {
			t.Fatal("no verifier fee expected")
		}
	})
}

func TestReleaseFunds(t *testing.T) {
	e := newTestEnv(t)
	depositID := e.createDeposit(t, 1000, 100)
	beneficiary := ramptest.RandomAddr()
	hash, err := e.signalIntent(t, 1000, e.buyer, e.intentMsg(depositID, 50, beneficiary))
	assert.Nil(t, err)

	t.Run("buyer cannot self release", func(t *testing.T) {
		_, err := e.release.Deliver(e.ctx(1100, e.buyer), e.db, &ramptest.Tx{Msg: &ReleaseFundsMsg{IntentHash: hash}})
		if !errors.ErrUnauthorized.Is(err) {
			t.Fatalf("expected unauthorized, got %+v", err)
		}
	})

	// the depositor vouches for the payment, no fees are taken
	_, err = e.release.Deliver(e.ctx(1100, e.depositor), e.db, &ramptest.Tx{Msg: &ReleaseFundsMsg{IntentHash: hash}})
	assert.Nil(t, err)
	assert.Equal(t, true, e.balance(t, beneficiary).Contains(coin.NewCoin(50, 0, testTicker)))

	var deposit Deposit
	assert.Nil(t, e.ctrl.deposits.One(e.db, depositID, &deposit))
	assert.Equal(t, coin.NewCoin(50, 0, testTicker), deposit.Remaining)
	assert.Equal(t, true, deposit.Outstanding.IsZero())
}

func TestReplayAcrossIntents(t *testing.T) {
	e := newTestEnv(t)
	depositID := e.createDeposit(t, 1000, 100)

	hash1, err := e.signalIntent(t, 1000, e.buyer, e.intentMsg(depositID, 20, ramptest.RandomAddr()))
	assert.Nil(t, err)
	hash2, err := e.signalIntent(t, 1000, e.buyer2, e.intentMsg(depositID, 20, ramptest.RandomAddr()))
	assert.Nil(t, err)

	proof := e.proofFor(t, hash1, 2000, 1050)
	_, err = e.fulfill.Deliver(e.ctx(1100, e.buyer), e.db, &ramptest.Tx{Msg: &FulfillIntentMsg{IntentHash: hash1, Proof: proof}})
	assert.Nil(t, err)

	// the same bank transfer cannot redeem a second intent
	proof2 := proof
	proof2.IntentHash = hash2
	_, err = e.fulfill.Deliver(e.ctx(1100, e.buyer2), e.db, &ramptest.Tx{Msg: &FulfillIntentMsg{IntentHash: hash2, Proof: proof2}})
	if !errors.ErrDuplicate.Is(err) {
		t.Fatalf("expected duplicate, got %+v", err)
	}
}

func TestVerifierGovernance(t *testing.T) {
	e := newTestEnv(t)

	add := AddVerifierHandler{auth: e.auth, bucket: e.ctrl.verifiers}
	remove := RemoveVerifierHandler{auth: e.auth, bucket: e.ctrl.verifiers}
	update := UpdateVerifierFeeHandler{auth: e.auth, bucket: e.ctrl.verifiers}

	msg := &AddVerifierMsg{
		VerifierID:   "attest/v1",
		FeeShare:     ramp.Fraction{Numerator: 2, Denominator: 100},
		FeeRecipient: ramptest.RandomAddr(),
	}

	t.Run("owner signature required", func(t *testing.T) {
		_, err := add.Deliver(e.ctx(1000, e.buyer), e.db, &ramptest.Tx{Msg: msg})
		if !errors.ErrUnauthorized.Is(err) {
			t.Fatalf("expected unauthorized, got %+v", err)
		}
	})

	_, err := add.Deliver(e.ctx(1000, e.owner), e.db, &ramptest.Tx{Msg: msg})
	assert.Nil(t, err)

	t.Run("duplicate rejected", func(t *testing.T) {
		_, err := add.Deliver(e.ctx(1000, e.owner), e.db, &ramptest.Tx{Msg: msg})
		if !errors.ErrDuplicate.Is(err) {
			t.Fatalf("expected duplicate, got %+v", err)
		}
	})

	_, err = update.Deliver(e.ctx(1000, e.owner), e.db, &ramptest.Tx{Msg: &UpdateVerifierFeeMsg{
		VerifierID:   "attest/v1",
		FeeShare:     ramp.Fraction{Numerator: 5, Denominator: 100},
		FeeRecipient: ramptest.RandomAddr(),
	}})
	assert.Nil(t, err)
	var info VerifierInfo
	assert.Nil(t, e.ctrl.verifiers.One(e.db, []byte("attest/v1"), &info))
	assert.Equal(t, uint32(5), info.FeeShare.Numerator)

	_, err = remove.Deliver(e.ctx(1000, e.owner), e.db, &ramptest.Tx{Msg: &RemoveVerifierMsg{VerifierID: "attest/v1"}})
	assert.Nil(t, err)

	t.Run("updating a removed verifier fails", func(t *testing.T) {
		_, err := update.Deliver(e.ctx(1000, e.owner), e.db, &ramptest.Tx{Msg: &UpdateVerifierFeeMsg{
			VerifierID: "attest/v1",
			FeeShare:   ramp.Fraction{Numerator: 1, Denominator: 100},
		}})
		if !errors.ErrNotFound.Is(err) {
			t.Fatalf("expected not found, got %+v", err)
		}
	})
}

func TestEscrowConservation(t *testing.T) {
	e := newTestEnv(t)

	depositID := e.createDeposit(t, 1000, 100)
	hash1, err := e.signalIntent(t, 1000, e.buyer, e.intentMsg(depositID, 30, ramptest.RandomAddr()))
	assert.Nil(t, err)
	_, err = e.signalIntent(t, 1000, e.buyer2, e.intentMsg(depositID, 20, ramptest.RandomAddr()))
	assert.Nil(t, err)

	proof := e.proofFor(t, hash1, 3000, 1050)
	_, err = e.fulfill.Deliver(e.ctx(1100, e.buyer), e.db, &ramptest.Tx{Msg: &FulfillIntentMsg{IntentHash: hash1, Proof: proof}})
	assert.Nil(t, err)

	var deposit Deposit
	assert.Nil(t, e.ctrl.deposits.One(e.db, depositID, &deposit))

	// escrowed funds always equal remaining plus outstanding
	books, err := deposit.Remaining.Add(deposit.Outstanding)
	assert.Nil(t, err)
	held := e.balance(t, Condition(depositID).Address())
	assert.Equal(t, true, held.Contains(books))
	assert.Equal(t, 1, len(held))
}

func TestCreateDepositChecks(t *testing.T) {
	e := newTestEnv(t)

	deliver := func(msg *CreateDepositMsg, signer ramp.Condition) error {
		_, err := e.create.Deliver(e.ctx(1000, signer), e.db, &ramptest.Tx{Msg: msg})
		return err
	}
	valid := func() *CreateDepositMsg {
		return &CreateDepositMsg{
			Amount:    coin.NewCoin(100, 0, testTicker),
			MinIntent: coin.NewCoin(1, 0, testTicker),
			MaxIntent: coin.NewCoin(100, 0, testTicker),
			PaymentMethods: []DepositPaymentMethod{
				{
					Method:     testMethod,
					GatingKey:  e.gating.PublicKey().Ed25519,
					PayeeHash:  []byte("payee"),
					Currencies: []CurrencyRate{{Currency: "EUR", MinRate: 100}},
				},
			},
		}
	}

	t.Run("missing gating key", func(t *testing.T) {
		msg := valid()
		msg.PaymentMethods[0].GatingKey = nil
		if err := deliver(msg, e.depositor); !errors.ErrEmpty.Is(err) {
			t.Fatalf("expected empty field error, got %+v", err)
		}
	})

	t.Run("unknown payment method", func(t *testing.T) {
		msg := valid()
		msg.PaymentMethods[0].Method = "bank/wire"
		if err := deliver(msg, e.depositor); !errors.ErrNotFound.Is(err) {
			t.Fatalf("expected not found, got %+v", err)
		}
	})

	t.Run("currency not supported by the method", func(t *testing.T) {
		msg := valid()
		msg.PaymentMethods[0].Currencies = []CurrencyRate{{Currency: "USD", MinRate: 100}}
		if err := deliver(msg, e.depositor); !errors.ErrCurrency.Is(err) {
			t.Fatalf("expected currency error, got %+v", err)
		}
	})

	t.Run("signature required", func(t *testing.T) {
		if err := deliver(valid(), e.buyer2); !errors.ErrAmount.Is(err) && !errors.ErrEmpty.Is(err) {
			t.Fatalf("expected funding failure, got %+v", err)
		}
	})

	t.Run("explicit source must sign", func(t *testing.T) {
		msg := valid()
		msg.Source = e.depositor.Address()
		if err := deliver(msg, e.buyer); !errors.ErrUnauthorized.Is(err) {
			t.Fatalf("expected unauthorized, got %+v", err)
		}
	})
}
