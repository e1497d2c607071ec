package app

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/coin"
	"github.com/onramp-one/ramp/crypto"
	"github.com/onramp-one/ramp/errors"
	"github.com/onramp-one/ramp/ramptest"
	"github.com/onramp-one/ramp/ramptest/assert"
	"github.com/onramp-one/ramp/store/iavl"
	"github.com/onramp-one/ramp/x"
	"github.com/onramp-one/ramp/x/cash"
	"github.com/onramp-one/ramp/x/escrow"
	"github.com/onramp-one/ramp/x/nullifier"
	"github.com/onramp-one/ramp/x/payverify"
	"github.com/onramp-one/ramp/x/quote"
	"github.com/onramp-one/ramp/x/sigs"
	"github.com/onramp-one/ramp/x/utils"
)

const (
	testChainID = "ramp-testnet"
	verifierID  = "witness/v1"
)

// newStack wires the full transaction processing pipeline the way a node
// would: decorators around a router with every module registered.
func newStack(authFn x.Authenticator, ctrl cash.BaseController) ramp.Handler {
	registry := payverify.NewRegistry()
	registry.Register(verifierID, payverify.NewThresholdVerifier(verifierID, nullifier.NewController()))

	r := NewRouter()
	cash.RegisterRoutes(r, authFn, ctrl)
	escrow.RegisterRoutes(r, authFn, ctrl, registry)
	payverify.RegisterRoutes(r, authFn)
	nullifier.RegisterRoutes(r, authFn)

	return ChainDecorators(
		utils.NewLogging(),
		utils.NewRecovery(),
		utils.NewActionTagger(),
		utils.NewSavepoint().OnCheck(),
		sigs.NewDecorator(),
		cash.NewFeeDecorator(authFn, ctrl),
		utils.NewSavepoint().OnDeliver(),
	).WithHandler(r)
}

func newQueries() ramp.QueryRouter {
	qr := ramp.NewQueryRouter()
	qr.RegisterAll(
		cash.RegisterQuery,
		escrow.RegisterQuery,
		payverify.RegisterQuery,
		nullifier.RegisterQuery,
		sigs.RegisterQuery,
		quote.RegisterQuery,
	)
	return qr
}

func marshalOpt(t testing.TB, v interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	assert.Nil(t, err)
	return raw
}

// genesisOptions describes a chain with one funded depositor, one payment
// method judged by a whitelisted witness verifier, and open configurations.
func genesisOptions(t testing.TB, admin, collector, depositor, witness ramp.Address) ramp.Options {
	t.Helper()
	return ramp.Options{
		"conf": marshalOpt(t, map[string]interface{}{
			"cash": &cash.Configuration{
				Owner:            admin,
				CollectorAddress: collector,
			},
			"escrow": &escrow.Configuration{
				Owner:                  admin,
				IntentExpirationPeriod: 600,
				SustainabilityFee:      ramp.Fraction{Numerator: 1, Denominator: 100},
				FeeRecipient:           collector,
				MaxPaymentMethods:      4,
				MaxCurrenciesPerMethod: 4,
				MaxIntentsPerDeposit:   8,
			},
			"payverify": &payverify.Configuration{
				Owner:         admin,
				MaxCurrencies: 8,
				MaxProcessors: 8,
				MaxWitnesses:  8,
			},
			"nullifier": &nullifier.Configuration{
				Owner:   admin,
				Writers: []ramp.Address{payverify.Condition(verifierID).Address()},
			},
		}),
		"cash": marshalOpt(t, []cash.GenesisAccount{
			{Address: depositor, Coins: coin.Coins{coin.NewCoinp(1000, 0, "IOV")}},
		}),
		"payverify": marshalOpt(t, []payverify.PaymentMethod{
			{
				Method:          "bank/sepa",
				VerifierID:      verifierID,
				Currencies:      []string{"EUR"},
				TimestampBuffer: 600,
				MinWitnessSigs:  1,
				Witnesses:       []ramp.Address{witness},
				AcceptedStatus:  "completed",
			},
		}),
		"escrow": marshalOpt(t, []escrow.VerifierInfo{
			{
				VerifierID:   verifierID,
				FeeShare:     ramp.Fraction{Numerator: 1, Denominator: 100},
				FeeRecipient: collector,
			},
		}),
	}
}

func signedTx(t testing.TB, key *crypto.PrivateKey, msg ramp.Msg, nonce int64) *sigs.StdTx {
	t.Helper()
	tx := &sigs.StdTx{Tx: &ramptest.Tx{Msg: msg}}
	sig, err := sigs.SignTx(key, tx, testChainID, nonce)
	assert.Nil(t, err)
	tx.Signatures = []*sigs.StdSignature{sig}
	return tx
}

func tagValues(res *ramp.DeliverResult, key string) []string {
	var vals []string
	for _, tag := range res.Tags {
		if string(tag.Key) == key {
			vals = append(vals, string(tag.Value))
		}
	}
	return vals
}

func contains(vals []string, want string) bool {
	for _, v := range vals {
		if v == want {
			return true
		}
	}
	return false
}

// TestFullStackDepositLifecycle runs a deposit through the complete stack,
// genesis to closing, exercising signature verification, routing, tagging
// and the committed iavl state.
func TestFullStackDepositLifecycle(t *testing.T) {
	db := iavl.MockCommitStore()

	depositorKey := crypto.GenPrivKeyEd25519()
	buyerKey := crypto.GenPrivKeyEd25519()
	gatingKey := crypto.GenPrivKeyEd25519()
	depositor := depositorKey.PublicKey().Address()
	buyer := buyerKey.PublicKey().Address()
	admin := ramptest.RandomAddr()
	collector := ramptest.RandomAddr()
	witness := ramptest.RandomAddr()

	init := ChainInitializers(
		cash.Initializer{},
		payverify.Initializer{},
		nullifier.Initializer{},
		escrow.Initializer{},
	)
	assert.Nil(t, init.FromGenesis(genesisOptions(t, admin, collector, depositor, witness), db))
	if _, err := db.Commit(); err != nil {
		t.Fatalf("cannot commit genesis: %+v", err)
	}

	authFn := sigs.Authenticate{}
	ctrl := cash.NewController(cash.NewBucket())
	stack := newStack(authFn, ctrl)

	ctx := ramp.WithHeight(context.Background(), 100)
	ctx = ramp.WithChainID(ctx, testChainID)
	ctx = ramp.WithBlockTime(ctx, time.Unix(1000, 0))

	// a transaction without a signature is rejected
	unsigned := &sigs.StdTx{Tx: &ramptest.Tx{Msg: &cash.SendMsg{
		Source:      depositor,
		Destination: buyer,
		Amount:      coin.NewCoinp(1, 0, "IOV"),
	}}}
	if _, err := stack.Deliver(ctx, db, unsigned); !errors.ErrUnauthorized.Is(err) {
		t.Fatalf("want unauthorized, got %+v", err)
	}

	// the depositor funds the buyer through the cash module
	res, err := stack.Deliver(ctx, db, signedTx(t, depositorKey, &cash.SendMsg{
		Source:      depositor,
		Destination: buyer,
		Amount:      coin.NewCoinp(100, 0, "IOV"),
	}, 0))
	assert.Nil(t, err)
	if acts := tagValues(res, "action"); !contains(acts, "cash/send") {
		t.Fatalf("missing action tag: %v", acts)
	}

	// the depositor escrows half the stake
	res, err = stack.Deliver(ctx, db, signedTx(t, depositorKey, &escrow.CreateDepositMsg{
		Amount:    coin.NewCoin(500, 0, "IOV"),
		MinIntent: coin.NewCoin(10, 0, "IOV"),
		MaxIntent: coin.NewCoin(500, 0, "IOV"),
		PaymentMethods: []escrow.DepositPaymentMethod{
			{
				Method:     "bank/sepa",
				GatingKey:  gatingKey.PublicKey().Ed25519,
				PayeeHash:  []byte("payee"),
				Currencies: []escrow.CurrencyRate{{Currency: "EUR", MinRate: 100}},
			},
		},
	}, 1))
	assert.Nil(t, err)
	depositID := res.Data
	assert.Equal(t, ramptest.SequenceID(1), depositID)

	held, err := ctrl.Balance(db, escrow.Condition(depositID).Address())
	assert.Nil(t, err)
	assert.Equal(t, true, held.Contains(coin.NewCoin(500, 0, "IOV")))

	// the buyer reserves part of the liquidity, approved by the gating key
	payload := escrow.GatingPayload(depositID, buyer, coin.NewCoin(50, 0, "IOV"), buyer, "bank/sepa", "EUR", 100)
	gatingSig, err := gatingKey.Sign(payload)
	assert.Nil(t, err)
	res, err = stack.Deliver(ctx, db, signedTx(t, buyerKey, &escrow.SignalIntentMsg{
		DepositID:       depositID,
		Amount:          coin.NewCoin(50, 0, "IOV"),
		To:              buyer,
		Method:          "bank/sepa",
		Currency:        "EUR",
		Rate:            100,
		GatingSignature: gatingSig,
	}, 0))
	assert.Nil(t, err)
	intentHash := res.Data
	assert.Equal(t, 32, len(intentHash))

	// price discovery sees the remaining liquidity
	queries := newQueries()
	req := marshalOpt(t, quote.ExactInputRequest{
		Now:        1000,
		DepositIDs: [][]byte{depositID},
		Token:      "IOV",
		Currency:   "EUR",
		FiatAmount: 10000,
	})
	models, err := queries.Handler("/quotes/exactinput").Query(db, ramp.KeyQueryMod, req)
	assert.Nil(t, err)
	assert.Equal(t, 1, len(models))
	var q quote.Quote
	assert.Nil(t, json.Unmarshal(models[0].Value, &q))
	assert.Equal(t, coin.NewCoin(100, 0, "IOV"), q.Output)

	// the buyer steps back and the depositor closes the offer
	_, err = stack.Deliver(ctx, db, signedTx(t, buyerKey, &escrow.CancelIntentMsg{
		IntentHash: intentHash,
	}, 1))
	assert.Nil(t, err)

	res, err = stack.Deliver(ctx, db, signedTx(t, depositorKey, &escrow.WithdrawDepositMsg{
		DepositID: depositID,
	}, 2))
	assert.Nil(t, err)
	if acts := tagValues(res, "action"); !contains(acts, "close-deposit") {
		t.Fatalf("deposit should close: %v", acts)
	}

	models, err = queries.Handler("/deposits").Query(db, ramp.KeyQueryMod, depositID)
	assert.Nil(t, err)
	assert.Equal(t, 0, len(models))

	// all funds are back in the wallets
	balance, err := ctrl.Balance(db, depositor)
	assert.Nil(t, err)
	assert.Equal(t, true, balance.Contains(coin.NewCoin(900, 0, "IOV")))

	if _, err := db.Commit(); err != nil {
		t.Fatalf("cannot commit block: %+v", err)
	}
	assert.Equal(t, int64(2), db.LatestVersion().Version)
}

// TestFullStackRejectsTamperedNonce makes sure a replayed signature does
// not pass the decorator.
func TestFullStackRejectsTamperedNonce(t *testing.T) {
	db := iavl.MockCommitStore()

	depositorKey := crypto.GenPrivKeyEd25519()
	depositor := depositorKey.PublicKey().Address()
	buyer := ramptest.RandomAddr()

	init := ChainInitializers(
		cash.Initializer{},
		payverify.Initializer{},
		nullifier.Initializer{},
		escrow.Initializer{},
	)
	opts := genesisOptions(t, ramptest.RandomAddr(), ramptest.RandomAddr(), depositor, ramptest.RandomAddr())
	assert.Nil(t, init.FromGenesis(opts, db))

	authFn := sigs.Authenticate{}
	ctrl := cash.NewController(cash.NewBucket())
	stack := newStack(authFn, ctrl)

	ctx := ramp.WithHeight(context.Background(), 100)
	ctx = ramp.WithChainID(ctx, testChainID)
	ctx = ramp.WithBlockTime(ctx, time.Unix(1000, 0))

	send := &cash.SendMsg{
		Source:      depositor,
		Destination: buyer,
		Amount:      coin.NewCoinp(10, 0, "IOV"),
	}
	tx := signedTx(t, depositorKey, send, 0)
	if _, err := stack.Deliver(ctx, db, tx); err != nil {
		t.Fatalf("first delivery failed: %+v", err)
	}

	// replaying the same transaction must fail on the stale nonce
	if _, err := stack.Deliver(ctx, db, tx); err == nil {
		t.Fatal("replay must be rejected")
	}
}
