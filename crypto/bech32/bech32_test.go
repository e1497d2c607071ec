package bech32

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"
)

func TestBench32EncodeDecode(t *testing.T) {
	payload, err := hex.DecodeString("746573742d7061796c6f6164")
	if err != nil {
		t.Fatal(err)
	}

	enc, err := Encode("ramp", payload)
	if err != nil {
		t.Fatalf("cannot encode: %s", err)
	}
	if !strings.HasPrefix(string(enc), "ramp1") {
		t.Fatalf("invalid encoding: %q", enc)
	}

	hrp, got, err := Decode(string(enc))
	if err != nil {
		t.Fatal(err)
	}
	if hrp != "ramp" {
		t.Fatalf("invalid human readable part: %q", hrp)
	}
	if !bytes.Equal(payload, got) {
		t.Logf("want %d", payload)
		t.Logf("got  %d", got)
		t.Fatal("invalid decode")
	}
}

func TestDecodeGarbage(t *testing.T) {
	if _, _, err := Decode("not-a-bech32-string"); err == nil {
		t.Fatal("decode of garbage must fail")
	}
}
