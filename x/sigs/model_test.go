package sigs

import (
	"testing"

	"github.com/onramp-one/ramp/crypto"
	"github.com/onramp-one/ramp/ramptest/assert"
	"github.com/onramp-one/ramp/store"
)

func TestUserSequence(t *testing.T) {
	user := new(UserData)

	assert.Nil(t, user.CheckAndIncrementSequence(0))
	assert.Nil(t, user.CheckAndIncrementSequence(1))
	if err := user.CheckAndIncrementSequence(1); !ErrInvalidSequence.Is(err) {
		t.Fatalf("expected invalid sequence, got %+v", err)
	}
	if err := user.CheckAndIncrementSequence(7); !ErrInvalidSequence.Is(err) {
		t.Fatalf("expected invalid sequence, got %+v", err)
	}
	assert.Equal(t, int64(2), user.Sequence)
}

func TestUserValidate(t *testing.T) {
	user := new(UserData)
	assert.Nil(t, user.Validate())

	user.Sequence = -1
	if err := user.Validate(); !ErrInvalidSequence.Is(err) {
		t.Fatalf("expected invalid sequence, got %+v", err)
	}

	user.Sequence = 0
	user.Pubkey = &crypto.PublicKey{Ed25519: []byte("too short")}
	if err := user.Validate(); err == nil {
		t.Fatal("invalid pubkey must not validate")
	}
}

func TestUserPubkeyImmutable(t *testing.T) {
	pub := crypto.GenPrivKeyEd25519().PublicKey()
	user := new(UserData)
	user.SetPubkey(pub)
	assert.Panics(t, func() {
		user.SetPubkey(pub)
	})
}

func TestBucketGetOrCreate(t *testing.T) {
	db := store.MemStore()
	bucket := NewBucket()
	pub := crypto.GenPrivKeyEd25519().PublicKey()

	obj, err := bucket.GetOrCreate(db, pub)
	assert.Nil(t, err)
	user := AsUser(obj)
	assert.Equal(t, int64(0), user.Sequence)
	assert.Equal(t, pub, user.Pubkey)

	assert.Nil(t, user.CheckAndIncrementSequence(0))
	assert.Nil(t, bucket.Save(db, obj))

	obj, err = bucket.GetOrCreate(db, pub)
	assert.Nil(t, err)
	assert.Equal(t, int64(1), AsUser(obj).Sequence)
}
