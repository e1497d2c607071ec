package sigs

import (
	"bytes"
	"testing"

	"github.com/onramp-one/ramp/crypto"
	"github.com/onramp-one/ramp/errors"
	"github.com/onramp-one/ramp/ramptest/assert"
	"github.com/onramp-one/ramp/store"
)

func TestSignBytes(t *testing.T) {
	bz := []byte("foobar")
	tx := NewStdTx(bz)

	bz2 := []byte("blast")
	tx2 := NewStdTx(bz2)

	// make sure the values out are sensible
	tbz, err := tx.GetSignBytes()
	assert.Nil(t, err)
	assert.Equal(t, bz, tbz)
	tbz2, err := tx2.GetSignBytes()
	assert.Nil(t, err)
	assert.Equal(t, bz2, tbz2)

	// make sure sign bytes match tx
	chainID := "test-sign-bytes"
	c1, err := BuildSignBytesTx(tx, chainID, 17)
	assert.Nil(t, err)
	c1a, err := BuildSignBytes(bz, chainID, 17)
	assert.Nil(t, err)
	assert.Equal(t, c1, c1a)

	// make sure sign bytes change on tx, chain_id and seq
	ct, err := BuildSignBytes(bz2, chainID, 17)
	assert.Nil(t, err)
	if bytes.Equal(c1, ct) {
		t.Fatal("sign bytes must depend on the transaction")
	}
	c2, err := BuildSignBytes(bz, chainID+"2", 17)
	assert.Nil(t, err)
	if bytes.Equal(c1, c2) {
		t.Fatal("sign bytes must depend on the chain id")
	}
	c3, err := BuildSignBytes(bz, chainID, 18)
	assert.Nil(t, err)
	if bytes.Equal(c1, c3) {
		t.Fatal("sign bytes must depend on the nonce")
	}
}

func TestVerifySignature(t *testing.T) {
	kv := store.MemStore()
	priv := crypto.GenPrivKeyEd25519()
	pub := priv.PublicKey()
	perm := pub.Condition()

	chainID := "emo-music-2345"
	bz := []byte("my special valentine")
	tx := NewStdTx(bz)

	sig0, err := SignTx(priv, tx, chainID, 0)
	assert.Nil(t, err)
	sig1, err := SignTx(priv, tx, chainID, 1)
	assert.Nil(t, err)
	sig2, err := SignTx(priv, tx, chainID, 2)
	assert.Nil(t, err)
	sig13, err := SignTx(priv, tx, chainID, 13)
	assert.Nil(t, err)
	empty := new(StdSignature)

	// signing should be deterministic
	sig2a, err := SignTx(priv, tx, chainID, 2)
	assert.Nil(t, err)
	assert.Equal(t, sig2, sig2a)

	// the first one must start at sequence 0
	if _, err = VerifySignature(kv, sig1, bz, chainID); !ErrInvalidSequence.Is(err) {
		t.Fatalf("expected invalid sequence, got %+v", err)
	}

	// empty sig
	if _, err = VerifySignature(kv, empty, bz, chainID); !errors.ErrUnauthorized.Is(err) {
		t.Fatalf("expected unauthorized, got %+v", err)
	}

	// must start with 0
	sign, err := VerifySignature(kv, sig0, bz, chainID)
	assert.Nil(t, err)
	assert.Equal(t, perm, sign)
	// we can advance one (store in kvstore)
	sign, err = VerifySignature(kv, sig1, bz, chainID)
	assert.Nil(t, err)
	assert.Equal(t, perm, sign)

	// jumping and replays are a no-no
	if _, err = VerifySignature(kv, sig1, bz, chainID); !ErrInvalidSequence.Is(err) {
		t.Fatalf("expected invalid sequence, got %+v", err)
	}
	if _, err = VerifySignature(kv, sig13, bz, chainID); !ErrInvalidSequence.Is(err) {
		t.Fatalf("expected invalid sequence, got %+v", err)
	}

	// different chain doesn't match
	if _, err = VerifySignature(kv, sig2, bz, "metal"); err == nil {
		t.Fatal("signature for a different chain must not verify")
	}
	// doesn't match on bad sig
	copy(sig2.Signature.Ed25519, []byte{42, 17, 99})
	if _, err = VerifySignature(kv, sig2, bz, chainID); !errors.ErrUnauthorized.Is(err) {
		t.Fatalf("expected unauthorized, got %+v", err)
	}
}

func TestVerifyTxSignatures(t *testing.T) {
	kv := store.MemStore()

	priv := crypto.GenPrivKeyEd25519()
	addr := priv.PublicKey().Condition()
	priv2 := crypto.GenPrivKeyEd25519()
	addr2 := priv2.PublicKey().Condition()

	chainID := "hot_summer_days"
	bz := []byte("ice cream")
	tx := NewStdTx(bz)
	tx2 := NewStdTx([]byte(chainID))
	tbz, err := tx.GetSignBytes()
	assert.Nil(t, err)
	tbz2, err := tx2.GetSignBytes()
	assert.Nil(t, err)
	if bytes.Equal(tbz, tbz2) {
		t.Fatal("different transactions must have different sign bytes")
	}

	// two sigs from the first key
	sig, err := SignTx(priv, tx, chainID, 0)
	assert.Nil(t, err)
	sig1, err := SignTx(priv, tx, chainID, 1)
	assert.Nil(t, err)
	// one from the second
	sig2, err := SignTx(priv2, tx, chainID, 0)
	assert.Nil(t, err)
	// and a signature of wrong info
	badSig, err := SignTx(priv, tx2, chainID, 0)
	assert.Nil(t, err)

	// no signers
	signers, err := VerifyTxSignatures(kv, tx, chainID)
	assert.Nil(t, err)
	assert.Equal(t, 0, len(signers))

	// one signer
	tx.Signatures = []*StdSignature{sig}
	signers, err = VerifyTxSignatures(kv, tx, chainID)
	assert.Nil(t, err)
	assert.Equal(t, 1, len(signers))
	assert.Equal(t, addr, signers[0])

	// duplicating same sig doesn't verify, as the sequence was consumed
	tx.Signatures = []*StdSignature{sig, sig}
	if _, err = VerifyTxSignatures(kv, tx, chainID); !ErrInvalidSequence.Is(err) {
		t.Fatalf("expected invalid sequence, got %+v", err)
	}

	// now the next sequence and a second signer
	tx.Signatures = []*StdSignature{sig1, sig2}
	signers, err = VerifyTxSignatures(kv, tx, chainID)
	assert.Nil(t, err)
	assert.Equal(t, 2, len(signers))
	assert.Equal(t, addr, signers[0])
	assert.Equal(t, addr2, signers[1])

	// signature on different payload must be rejected
	tx.Signatures = []*StdSignature{badSig}
	if _, err = VerifyTxSignatures(kv, tx, chainID); !errors.ErrUnauthorized.Is(err) {
		t.Fatalf("expected unauthorized, got %+v", err)
	}
}
