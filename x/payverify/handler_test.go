package payverify

import (
	"context"
	"testing"

	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/errors"
	"github.com/onramp-one/ramp/gconf"
	"github.com/onramp-one/ramp/orm"
	"github.com/onramp-one/ramp/ramptest"
	"github.com/onramp-one/ramp/ramptest/assert"
	"github.com/onramp-one/ramp/store"
)

type handlerEnv struct {
	db     ramp.KVStore
	auth   *ramptest.CtxAuth
	bucket orm.ModelBucket
	owner  ramp.Condition
}

func newHandlerEnv(t testing.TB) *handlerEnv {
	t.Helper()

	db := store.MemStore()
	env := &handlerEnv{
		db:     db,
		auth:   &ramptest.CtxAuth{Key: "auth"},
		bucket: NewBucket(),
		owner:  ramptest.NewCondition(),
	}

	conf := Configuration{
		Owner:         env.owner.Address(),
		MaxCurrencies: 3,
		MaxProcessors: 3,
		MaxWitnesses:  3,
	}
	assert.Nil(t, gconf.Save(db, "payverify", &conf))

	method := PaymentMethod{
		Method:          "bank/sepa",
		VerifierID:      "witness/v1",
		Currencies:      []string{"EUR"},
		Processors:      [][]byte{[]byte("provider-1")},
		TimestampBuffer: 600,
		MinWitnessSigs:  1,
		Witnesses: []ramp.Address{
			ramptest.RandomAddr(),
			ramptest.RandomAddr(),
		},
		AcceptedStatus: "completed",
	}
	_, err := env.bucket.Put(db, []byte(method.Method), &method)
	assert.Nil(t, err)
	return env
}

func (e *handlerEnv) ctx(signers ...ramp.Condition) ramp.Context {
	return e.auth.SetConditions(context.Background(), signers...)
}

func (e *handlerEnv) method(t testing.TB, name string) PaymentMethod {
	t.Helper()
	var m PaymentMethod
	assert.Nil(t, e.bucket.One(e.db, []byte(name), &m))
	return m
}

func TestAddPaymentMethod(t *testing.T) {
	env := newHandlerEnv(t)
	h := AddPaymentMethodHandler{auth: env.auth, bucket: env.bucket}

	fresh := PaymentMethod{
		Method:          "bank/wire",
		VerifierID:      "witness/v1",
		Currencies:      []string{"USD"},
		TimestampBuffer: 300,
		AcceptedStatus:  "completed",
	}
	msg := &AddPaymentMethodMsg{PaymentMethod: fresh}

	// only the configuration owner can register a method
	_, err := h.Deliver(env.ctx(ramptest.NewCondition()), env.db, &ramptest.Tx{Msg: msg})
	assert.IsErr(t, errors.ErrUnauthorized, err)

	res, err := h.Deliver(env.ctx(env.owner), env.db, &ramptest.Tx{Msg: msg})
	assert.Nil(t, err)
	assert.Equal(t, []byte("bank/wire"), res.Data)
	assert.Equal(t, "witness/v1", env.method(t, "bank/wire").VerifierID)

	_, err = h.Deliver(env.ctx(env.owner), env.db, &ramptest.Tx{Msg: msg})
	assert.IsErr(t, errors.ErrDuplicate, err)

	wide := fresh
	wide.Method = "bank/ach"
	wide.Currencies = []string{"USD", "EUR", "GBP", "CHF"}
	_, err = h.Deliver(env.ctx(env.owner), env.db, &ramptest.Tx{Msg: &AddPaymentMethodMsg{PaymentMethod: wide}})
	assert.IsErr(t, errors.ErrInput, err)
}

func TestRemovePaymentMethod(t *testing.T) {
	env := newHandlerEnv(t)
	h := RemovePaymentMethodHandler{auth: env.auth, bucket: env.bucket}

	msg := &RemovePaymentMethodMsg{Method: "bank/sepa"}
	_, err := h.Deliver(env.ctx(ramptest.NewCondition()), env.db, &ramptest.Tx{Msg: msg})
	assert.IsErr(t, errors.ErrUnauthorized, err)

	_, err = h.Deliver(env.ctx(env.owner), env.db, &ramptest.Tx{Msg: msg})
	assert.Nil(t, err)
	err = env.bucket.One(env.db, []byte("bank/sepa"), &PaymentMethod{})
	assert.IsErr(t, errors.ErrNotFound, err)

	_, err = h.Deliver(env.ctx(env.owner), env.db, &ramptest.Tx{Msg: msg})
	assert.IsErr(t, errors.ErrNotFound, err)
}

func TestCurrencyGovernance(t *testing.T) {
	env := newHandlerEnv(t)
	add := UpdateMethodHandler{auth: env.auth, bucket: env.bucket, apply: applyAddCurrencies}
	remove := UpdateMethodHandler{auth: env.auth, bucket: env.bucket, apply: applyRemoveCurrencies}

	addMsg := &AddCurrenciesMsg{Method: "bank/sepa", Currencies: []string{"USD"}}
	_, err := add.Deliver(env.ctx(env.owner), env.db, &ramptest.Tx{Msg: addMsg})
	assert.Nil(t, err)
	assert.Equal(t, []string{"EUR", "USD"}, env.method(t, "bank/sepa").Currencies)

	_, err = add.Deliver(env.ctx(env.owner), env.db, &ramptest.Tx{Msg: addMsg})
	assert.IsErr(t, errors.ErrDuplicate, err)

	addMsg.Method = "bank/missing"
	_, err = add.Deliver(env.ctx(env.owner), env.db, &ramptest.Tx{Msg: addMsg})
	assert.IsErr(t, errors.ErrNotFound, err)

	rmMsg := &RemoveCurrenciesMsg{Method: "bank/sepa", Currencies: []string{"EUR"}}
	_, err = remove.Deliver(env.ctx(env.owner), env.db, &ramptest.Tx{Msg: rmMsg})
	assert.Nil(t, err)
	assert.Equal(t, []string{"USD"}, env.method(t, "bank/sepa").Currencies)

	_, err = remove.Deliver(env.ctx(env.owner), env.db, &ramptest.Tx{Msg: rmMsg})
	assert.IsErr(t, errors.ErrNotFound, err)
}

func TestProcessorGovernance(t *testing.T) {
	env := newHandlerEnv(t)
	add := UpdateMethodHandler{auth: env.auth, bucket: env.bucket, apply: applyAddProcessors}
	remove := UpdateMethodHandler{auth: env.auth, bucket: env.bucket, apply: applyRemoveProcessors}

	second := []byte("provider-2")
	_, err := add.Deliver(env.ctx(env.owner), env.db, &ramptest.Tx{Msg: &AddProcessorsMsg{
		Method:     "bank/sepa",
		Processors: [][]byte{second},
	}})
	assert.Nil(t, err)
	assert.Equal(t, 2, len(env.method(t, "bank/sepa").Processors))

	_, err = add.Deliver(env.ctx(env.owner), env.db, &ramptest.Tx{Msg: &AddProcessorsMsg{
		Method:     "bank/sepa",
		Processors: [][]byte{second},
	}})
	assert.IsErr(t, errors.ErrDuplicate, err)

	_, err = remove.Deliver(env.ctx(env.owner), env.db, &ramptest.Tx{Msg: &RemoveProcessorsMsg{
		Method:     "bank/sepa",
		Processors: [][]byte{[]byte("provider-1")},
	}})
	assert.Nil(t, err)
	got := env.method(t, "bank/sepa").Processors
	assert.Equal(t, [][]byte{second}, got)

	_, err = remove.Deliver(env.ctx(env.owner), env.db, &ramptest.Tx{Msg: &RemoveProcessorsMsg{
		Method:     "bank/sepa",
		Processors: [][]byte{[]byte("provider-1")},
	}})
	assert.IsErr(t, errors.ErrNotFound, err)
}

func TestSetTimestampBuffer(t *testing.T) {
	env := newHandlerEnv(t)
	h := UpdateMethodHandler{auth: env.auth, bucket: env.bucket, apply: applySetTimestampBuffer}

	_, err := h.Deliver(env.ctx(env.owner), env.db, &ramptest.Tx{Msg: &SetTimestampBufferMsg{
		Method: "bank/sepa",
		Buffer: 1200,
	}})
	assert.Nil(t, err)
	assert.Equal(t, ramp.UnixDuration(1200), env.method(t, "bank/sepa").TimestampBuffer)
}

func TestSetMinWitnessSigs(t *testing.T) {
	env := newHandlerEnv(t)
	h := UpdateMethodHandler{auth: env.auth, bucket: env.bucket, apply: applySetMinWitnessSigs}

	_, err := h.Deliver(env.ctx(env.owner), env.db, &ramptest.Tx{Msg: &SetMinWitnessSigsMsg{
		Method:         "bank/sepa",
		MinWitnessSigs: 2,
	}})
	assert.Nil(t, err)
	assert.Equal(t, uint32(2), env.method(t, "bank/sepa").MinWitnessSigs)

	// the method was seeded with two witnesses
	_, err = h.Deliver(env.ctx(env.owner), env.db, &ramptest.Tx{Msg: &SetMinWitnessSigsMsg{
		Method:         "bank/sepa",
		MinWitnessSigs: 3,
	}})
	assert.IsErr(t, errors.ErrInput, err)
}
