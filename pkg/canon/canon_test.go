// Copyright 2025 Certen Protocol

package canon

import (
	"encoding/json"
	"testing"
)

func TestBytes_SortsKeysAndTrimsWhitespace(t *testing.T) {
	v := map[string]interface{}{"b": 1, "a": 2}
	out, err := Bytes(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `{"a":2,"b":1}` {
		t.Errorf("canonical form mismatch: got %s", out)
	}
}

func TestBytes_Deterministic(t *testing.T) {
	v := map[string]interface{}{"z": "1", "a": []interface{}{1, 2, 3}}
	out1, _ := Bytes(v)
	out2, _ := Bytes(v)
	if string(out1) != string(out2) {
		t.Error("canonicalization is not deterministic")
	}
}

func TestOperationForSigning_ElidesSignatureOnly(t *testing.T) {
	op := map[string]interface{}{
		"id":   "op1",
		"type": "transform",
		"attestation": map[string]interface{}{
			"mode":      "signed",
			"timestamp": "2025-11-01T00:00:00Z",
			"signer":    "did:key:z6Mk...",
			"signature": "ed25519:deadbeef",
			"transparency": []interface{}{
				map[string]interface{}{"log_id": "l1"},
			},
		},
	}
	out, err := OperationForSigning(op)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(out, &m); err != nil {
		t.Fatalf("output not valid JSON: %v", err)
	}
	att := m["attestation"].(map[string]interface{})
	if att["signature"] != "" {
		t.Errorf("expected signature elided to empty string, got %v", att["signature"])
	}
	if _, ok := att["transparency"]; !ok {
		t.Error("transparency must survive signing canonicalization")
	}
}

func TestOperationForTransparency_ElidesBoth(t *testing.T) {
	op := map[string]interface{}{
		"id": "op1",
		"attestation": map[string]interface{}{
			"mode":         "verifiable",
			"signature":    "ed25519:deadbeef",
			"transparency": []interface{}{map[string]interface{}{"log_id": "l1"}},
		},
	}
	out, err := OperationForTransparency(op)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var m map[string]interface{}
	json.Unmarshal(out, &m)
	att := m["attestation"].(map[string]interface{})
	if _, ok := att["transparency"]; ok {
		t.Error("transparency must be dropped from the transparency-checker leaf preimage")
	}
	if att["signature"] != "" {
		t.Error("signature must be elided too")
	}
}
