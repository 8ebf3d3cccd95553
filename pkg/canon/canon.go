// Copyright 2025 Certen Protocol
//
// Package canon is the Canonical Serializer (spec §4.4): a deterministic
// byte representation of a document subtree, used both as the signed
// payload for signature verification and as the Merkle leaf preimage
// for sealed-subgraph and transparency-anchor checks.
//
// Canonicalization itself is delegated to an RFC 8785 (JSON
// Canonicalization Scheme) implementation rather than reimplemented:
// sorted keys, no insignificant whitespace and ES6-style number
// formatting are exactly what JCS defines, and this is also how the
// retrieved corpus's own transparency-log verifier canonicalizes
// payloads before hashing (pxp928-rekor's pkg/verify/verify.go).
package canon

import (
	"encoding/json"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"

	"github.com/certen/provenance-verifier/pkg/verrors"
)

// Bytes canonicalizes an arbitrary JSON-marshalable value into its
// deterministic byte form.
func Bytes(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, &Error{Kind: verrors.KindCanonicalizationFailure, Cause: err}
	}
	out, err := jsoncanonicalizer.Transform(raw)
	if err != nil {
		return nil, &Error{Kind: verrors.KindCanonicalizationFailure, Cause: err}
	}
	return out, nil
}

// OperationForSigning canonicalizes an operation with its
// attestation.signature field elided (empty string substituted at its
// original position, per SPEC_FULL.md §4.4/§9). The empty string is
// set whether or not the field was present, so the payload built
// before a signature exists equals the one rebuilt from the signed
// operation. This is the payload the Signature Verifier checks an
// ed25519 signature against.
func OperationForSigning(op interface{}) ([]byte, error) {
	return canonicalizeWithAttestationFieldCleared(op, "signature", "")
}

// OperationForTransparency canonicalizes an operation with both
// attestation.signature and attestation.transparency elided: signature
// is not part of the leaf preimage policy either, and transparency
// must be dropped to break the circularity of a proof that would
// otherwise reference its own bytes (§4.9).
func OperationForTransparency(op interface{}) ([]byte, error) {
	raw, err := json.Marshal(op)
	if err != nil {
		return nil, &Error{Kind: verrors.KindCanonicalizationFailure, Cause: err}
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, &Error{Kind: verrors.KindCanonicalizationFailure, Cause: err}
	}
	if att, ok := m["attestation"].(map[string]interface{}); ok {
		if _, has := att["signature"]; has {
			att["signature"] = ""
		}
		delete(att, "transparency")
	}
	return Bytes(m)
}

func canonicalizeWithAttestationFieldCleared(op interface{}, field string, zero interface{}) ([]byte, error) {
	raw, err := json.Marshal(op)
	if err != nil {
		return nil, &Error{Kind: verrors.KindCanonicalizationFailure, Cause: err}
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, &Error{Kind: verrors.KindCanonicalizationFailure, Cause: err}
	}
	if att, ok := m["attestation"].(map[string]interface{}); ok {
		att[field] = zero
	}
	return Bytes(m)
}

// PolicyAssertionRecord canonicalizes a sealed-subgraph policy
// assertion record ({id, result, evidence_hash?}) for the Sealed-
// Subgraph Checker's independent per-assertion signature (§4.10).
func PolicyAssertionRecord(id string, result string, evidenceHash string) ([]byte, error) {
	m := map[string]interface{}{"id": id, "result": result}
	if evidenceHash != "" {
		m["evidence_hash"] = evidenceHash
	}
	return Bytes(m)
}

// Error wraps a canonicalization failure with the structured kind tag.
type Error struct {
	Kind  verrors.Kind
	Cause error
}

func (e *Error) Error() string { return string(e.Kind) + ": " + e.Cause.Error() }
func (e *Error) Unwrap() error { return e.Cause }
