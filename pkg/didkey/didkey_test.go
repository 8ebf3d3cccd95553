// Copyright 2025 Certen Protocol

package didkey

import (
	"crypto/ed25519"
	"testing"

	"github.com/mr-tron/base58"
)

func encodeDIDKey(pub ed25519.PublicKey) string {
	payload := append(append([]byte{}, Ed25519MulticodecPrefix...), pub...)
	return "z" + base58.Encode(payload)
}

func TestResolve_RoundTrip(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("keygen failed: %v", err)
	}
	encoded := encodeDIDKey(pub)

	got, err := Resolve(encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != string(pub) {
		t.Error("round-tripped key does not match original public key")
	}
}

func TestResolve_RejectsNonZPrefix(t *testing.T) {
	_, err := Resolve("abadprefix")
	if err == nil {
		t.Fatal("expected error for non-'z' prefix")
	}
}

func TestResolve_RejectsOversizedPayload(t *testing.T) {
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a'
	}
	_, err := Resolve("z" + string(long))
	if err == nil {
		t.Fatal("expected error for oversized payload")
	}
}

func TestResolve_RejectsWrongMulticodec(t *testing.T) {
	payload := append([]byte{0x00, 0x01}, make([]byte, 32)...)
	encoded := "z" + base58.Encode(payload)
	_, err := Resolve(encoded)
	if err == nil {
		t.Fatal("expected error for non-Ed25519 multicodec")
	}
}
