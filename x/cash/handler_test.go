package cash

import (
	"context"
	"testing"

	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/coin"
	"github.com/onramp-one/ramp/errors"
	"github.com/onramp-one/ramp/orm"
	"github.com/onramp-one/ramp/ramptest"
	"github.com/onramp-one/ramp/ramptest/assert"
	"github.com/onramp-one/ramp/store"
)

func mustWallet(addr ramp.Address, coins ...*coin.Coin) orm.Object {
	obj, err := WalletWith(addr, coins...)
	if err != nil {
		panic(err)
	}
	return obj
}

func TestSendHandler(t *testing.T) {
	foo := coin.NewCoin(100, 0, "FOO")
	some := coin.NewCoin(300, 0, "SOME")

	perm1 := ramptest.NewCondition()
	perm2 := ramptest.NewCondition()
	addr1 := perm1.Address()
	addr2 := perm2.Address()

	cases := map[string]struct {
		signers       []ramp.Condition
		initState     []orm.Object
		msg           ramp.Msg
		expectCheck   *errors.Error
		expectDeliver *errors.Error
	}{
		"nil message": {
			msg:           nil,
			expectCheck:   errors.ErrState,
			expectDeliver: errors.ErrState,
		},
		"empty message": {
			msg:           &SendMsg{},
			expectCheck:   errors.ErrAmount,
			expectDeliver: errors.ErrAmount,
		},
		"unauthorized": {
			msg:           &SendMsg{Source: addr1, Destination: addr2, Amount: &foo},
			expectCheck:   errors.ErrUnauthorized,
			expectDeliver: errors.ErrUnauthorized,
		},
		"source has no account": {
			signers:       []ramp.Condition{perm1},
			msg:           &SendMsg{Source: addr1, Destination: addr2, Amount: &foo},
			expectDeliver: errors.ErrEmpty,
		},
		"source has no funds": {
			signers:       []ramp.Condition{perm1},
			initState:     []orm.Object{mustWallet(addr1, &some)},
			msg:           &SendMsg{Source: addr1, Destination: addr2, Amount: &foo},
			expectDeliver: errors.ErrAmount,
		},
		"happy path": {
			signers:   []ramp.Condition{perm1},
			initState: []orm.Object{mustWallet(addr1, &foo)},
			msg:       &SendMsg{Source: addr1, Destination: addr2, Amount: &foo},
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			auth := &ramptest.CtxAuth{Key: "auth"}
			h := NewSendHandler(auth, NewController(NewBucket()))

			ctx := auth.SetConditions(context.Background(), tc.signers...)

			db := store.MemStore()
			bucket := NewBucket()
			for _, obj := range tc.initState {
				assert.Nil(t, bucket.Save(db, obj))
			}

			tx := &ramptest.Tx{Msg: tc.msg}
			if tc.msg == nil {
				tx.Err = errors.Wrap(errors.ErrState, "no message")
			}

			cache := db.CacheWrap()
			_, err := h.Check(ctx, cache, tx)
			if !tc.expectCheck.Is(err) {
				t.Fatalf("unexpected check error: %+v", err)
			}
			cache.Discard()

			_, err = h.Deliver(ctx, db, tx)
			if !tc.expectDeliver.Is(err) {
				t.Fatalf("unexpected deliver error: %+v", err)
			}

			if tc.expectDeliver == nil {
				sender, err := bucket.Get(db, addr1)
				assert.Nil(t, err)
				assert.Equal(t, true, AsCoins(sender).IsEmpty())
				dest, err := bucket.Get(db, addr2)
				assert.Nil(t, err)
				assert.Equal(t, true, AsCoins(dest).Contains(foo))
			}
		})
	}
}
