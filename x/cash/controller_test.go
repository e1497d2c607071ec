package cash

import (
	"testing"

	"github.com/onramp-one/ramp/coin"
	"github.com/onramp-one/ramp/errors"
	"github.com/onramp-one/ramp/ramptest"
	"github.com/onramp-one/ramp/ramptest/assert"
	"github.com/onramp-one/ramp/store"
)

func TestMoveCoins(t *testing.T) {
	addr1 := ramptest.RandomAddr()
	addr2 := ramptest.RandomAddr()
	addr3 := ramptest.RandomAddr()

	cc := "MONY"
	bank := coin.NewCoin(50000, 0, cc)
	send := coin.NewCoin(300, 0, cc)

	controller := NewController(NewBucket())

	t.Run("cannot move from empty account", func(t *testing.T) {
		kv := store.MemStore()
		err := controller.MoveCoins(kv, addr1, addr2, send)
		if !errors.ErrEmpty.Is(err) {
			t.Fatalf("expected empty account, got %+v", err)
		}
	})

	t.Run("cannot move negative amounts", func(t *testing.T) {
		kv := store.MemStore()
		assert.Nil(t, controller.CoinMint(kv, addr1, bank))
		err := controller.MoveCoins(kv, addr1, addr2, send.Negative())
		if !errors.ErrAmount.Is(err) {
			t.Fatalf("expected amount error, got %+v", err)
		}
	})

	t.Run("cannot move more than balance", func(t *testing.T) {
		kv := store.MemStore()
		assert.Nil(t, controller.CoinMint(kv, addr1, send))
		err := controller.MoveCoins(kv, addr1, addr2, bank)
		if !errors.ErrAmount.Is(err) {
			t.Fatalf("expected amount error, got %+v", err)
		}
	})

	t.Run("simple move", func(t *testing.T) {
		kv := store.MemStore()
		assert.Nil(t, controller.CoinMint(kv, addr1, bank))
		assert.Nil(t, controller.MoveCoins(kv, addr1, addr2, send))

		balance, err := controller.Balance(kv, addr1)
		assert.Nil(t, err)
		assert.Equal(t, true, balance.Contains(coin.NewCoin(49700, 0, cc)))

		balance, err = controller.Balance(kv, addr2)
		assert.Nil(t, err)
		assert.Equal(t, true, balance.Contains(send))
	})

	t.Run("chained moves", func(t *testing.T) {
		kv := store.MemStore()
		assert.Nil(t, controller.CoinMint(kv, addr1, bank))
		assert.Nil(t, controller.MoveCoins(kv, addr1, addr2, send))
		assert.Nil(t, controller.MoveCoins(kv, addr2, addr3, send))

		if _, err := controller.Balance(kv, addr2); err != nil {
			t.Fatalf("emptied account should still exist: %+v", err)
		}
		balance, err := controller.Balance(kv, addr3)
		assert.Nil(t, err)
		assert.Equal(t, true, balance.Contains(send))
	})
}

func TestCoinMint(t *testing.T) {
	addr := ramptest.RandomAddr()
	controller := NewController(NewBucket())
	kv := store.MemStore()

	assert.Nil(t, controller.CoinMint(kv, addr, coin.NewCoin(100, 0, "FOO")))
	assert.Nil(t, controller.CoinMint(kv, addr, coin.NewCoin(5, 0, "FOO")))

	balance, err := controller.Balance(kv, addr)
	assert.Nil(t, err)
	assert.Equal(t, true, balance.Contains(coin.NewCoin(105, 0, "FOO")))

	// the lord taketh away
	assert.Nil(t, controller.CoinMint(kv, addr, coin.NewCoin(-105, 0, "FOO")))
	balance, err = controller.Balance(kv, addr)
	assert.Nil(t, err)
	assert.Equal(t, true, balance.IsEmpty())

	// but cannot go below zero
	if err := controller.CoinMint(kv, addr, coin.NewCoin(-1, 0, "FOO")); err == nil {
		t.Fatal("negative balance must be rejected")
	}
}
