// Copyright 2025 Certen Protocol
//
// Package didkey resolves did:key identifiers (spec §4.6) without any
// network activity: the multibase prefix is decoded, the multicodec
// identifier extracted, and the remaining bytes returned as key
// material. Only the Ed25519 multicodec (0xED) is supported; this
// implementation requires the multibase 'z' (base58btc) prefix form,
// per the open-question decision pinned in SPEC_FULL.md §9.
package didkey

import (
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multibase"

	"github.com/certen/provenance-verifier/pkg/verrors"
)

// MaxEncodedLen bounds the multibase-encoded payload length to 128
// characters, to bound the decoder (§4.6).
const MaxEncodedLen = 128

// Ed25519MulticodecPrefix is the multicodec identifier for an Ed25519 public
// key, encoded as a two-byte unsigned varint (0xed, 0x01).
var Ed25519MulticodecPrefix = []byte{0xed, 0x01}

// Resolve decodes a did:key method-specific-id (the part after
// "did:key:") into raw Ed25519 public key bytes.
func Resolve(methodSpecificID string) ([]byte, error) {
	if len(methodSpecificID) == 0 {
		return nil, &Error{Kind: verrors.KindDIDMalformed, Message: "did:key method-specific-id is empty"}
	}
	if len(methodSpecificID) > MaxEncodedLen {
		return nil, &Error{Kind: verrors.KindDIDMalformed, Message: fmt.Sprintf("did:key payload exceeds %d characters", MaxEncodedLen)}
	}
	if !strings.HasPrefix(methodSpecificID, string(rune(multibase.Base58BTC))) {
		return nil, &Error{Kind: verrors.KindUnsupportedKeyType, Message: "only multibase 'z' (base58btc) did:key encoding is supported"}
	}

	payload, err := base58.Decode(methodSpecificID[1:])
	if err != nil {
		return nil, &Error{Kind: verrors.KindDIDMalformed, Message: "invalid base58btc payload: " + err.Error()}
	}
	if len(payload) < len(Ed25519MulticodecPrefix)+1 {
		return nil, &Error{Kind: verrors.KindDIDMalformed, Message: "did:key payload too short"}
	}
	if payload[0] != Ed25519MulticodecPrefix[0] || payload[1] != Ed25519MulticodecPrefix[1] {
		return nil, &Error{Kind: verrors.KindUnsupportedKeyType, Message: "only the Ed25519 (0xED) multicodec is supported"}
	}
	return payload[len(Ed25519MulticodecPrefix):], nil
}

// Error reports a did:key resolution failure with a structured kind tag.
type Error struct {
	Kind    verrors.Kind
	Message string
}

func (e *Error) Error() string { return string(e.Kind) + ": " + e.Message }
