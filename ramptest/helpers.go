package ramptest

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"testing"

	"github.com/onramp-one/ramp"
)

// SequenceID returns an ID encoded as if it was generated by a bucket
// sequence. This is a helper for test fixtures that reference entities by
// their sequence assigned ID.
func SequenceID(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

// RandomAddr returns a valid random address generated on the fly.
func RandomAddr() ramp.Address {
	raw := make([]byte, ramp.AddressLength)
	if _, err := rand.Read(raw); err != nil {
		panic(err)
	}
	return ramp.Address(raw)
}

// DecodeAddr takes a hex encoded address string and returns it's raw
// representation as an address. This function ensures that returned value
// is a valid address.
func DecodeAddr(t testing.TB, encoded string) ramp.Address {
	t.Helper()
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		t.Fatalf("cannot decode hex string: %s", err)
	}
	a := ramp.Address(raw)
	if err := a.Validate(); err != nil {
		t.Fatalf("decoded string is not a valid address: %s", err)
	}
	return a
}
