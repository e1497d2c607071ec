package sigs

import (
	"crypto/sha512"
	"encoding/binary"

	"github.com/onramp-one/ramp"
	"github.com/onramp-one/ramp/crypto"
	"github.com/onramp-one/ramp/errors"
)

// SignCodeV1 is the current way to prefix the bytes we use to build
// a signature. It is versioned so clients can upgrade in the future.
var SignCodeV1 = []byte{0, 0xCA, 0xFE, 0}

// VerifyTxSignatures checks all the signatures on the tx, which must have
// at least one.
//
// returns list of signer addresses (possibly empty),
// or error if any signature is invalid
func VerifyTxSignatures(store ramp.KVStore, tx SignedTx, chainID string) ([]ramp.Condition, error) {
	bz, err := tx.GetSignBytes()
	if err != nil {
		return nil, err
	}

	sigs := tx.GetSignatures()
	signers := make([]ramp.Condition, 0, len(sigs))

	for _, sig := range sigs {
		signer, err := VerifySignature(store, sig, bz, chainID)
		if err != nil {
			return nil, err
		}
		signers = append(signers, signer)
	}

	return signers, nil
}

// VerifySignature checks one signature against signbytes,
// check their nonce, and updates the state in the store
func VerifySignature(store ramp.KVStore, sig *StdSignature, signBytes []byte, chainID string) (ramp.Condition, error) {
	// we guarantee sequence makes sense and pubkey is there
	if err := sig.Validate(); err != nil {
		return nil, err
	}

	bucket := NewBucket()
	obj, err := bucket.GetOrCreate(store, sig.Pubkey)
	if err != nil {
		return nil, err
	}
	user := AsUser(obj)
	if user.Pubkey == nil {
		user.SetPubkey(sig.Pubkey)
	}

	toSign, err := BuildSignBytes(signBytes, chainID, sig.Sequence)
	if err != nil {
		return nil, err
	}

	if !user.Pubkey.Verify(toSign, sig.Signature) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "invalid signature")
	}

	if err := user.CheckAndIncrementSequence(sig.Sequence); err != nil {
		return nil, err
	}

	if err := bucket.Save(store, obj); err != nil {
		return nil, err
	}
	return user.Pubkey.Condition(), nil
}

// BuildSignBytes combines all info on the actual tx before signing,
// using the following format:
//
// version | len(chainID) | chainID      | nonce             | signBytes
// 4bytes  | uint8        | ascii string | int64 (bigendian) | serialized transaction
//
// This is then prehashed with sha512 before fed into
// the public key signing/verification step
func BuildSignBytes(signBytes []byte, chainID string, nonce int64) ([]byte, error) {
	if nonce < 0 {
		return nil, errors.Wrap(ErrInvalidSequence, "negative")
	}
	if !ramp.IsValidChainID(chainID) {
		return nil, errors.Wrapf(errors.ErrInput, "chain id: %v", chainID)
	}

	// encode nonce as 8 byte, big-endian
	nb := make([]byte, 8)
	binary.BigEndian.PutUint64(nb, uint64(nonce))

	// concatenate everything
	output := make([]byte, 0, len(SignCodeV1)+1+len(chainID)+8+len(signBytes))
	output = append(output, SignCodeV1...)
	output = append(output, uint8(len(chainID)))
	output = append(output, []byte(chainID)...)
	output = append(output, nb...)
	output = append(output, signBytes...)

	// now, we prehash this with sha512
	hashed := sha512.Sum512(output)
	return hashed[:], nil
}

// BuildSignBytesTx calculates the sign bytes given a tx
func BuildSignBytesTx(tx SignedTx, chainID string, nonce int64) ([]byte, error) {
	signBytes, err := tx.GetSignBytes()
	if err != nil {
		return nil, err
	}
	return BuildSignBytes(signBytes, chainID, nonce)
}

// SignTx creates a signature for the given tx
func SignTx(signer crypto.Signer, tx SignedTx, chainID string, nonce int64) (*StdSignature, error) {
	toSign, err := BuildSignBytesTx(tx, chainID, nonce)
	if err != nil {
		return nil, err
	}

	sig, err := signer.Sign(toSign)
	if err != nil {
		return nil, err
	}
	pub := signer.PublicKey()

	res := &StdSignature{
		Pubkey:    pub,
		Signature: sig,
		Sequence:  nonce,
	}
	return res, nil
}
