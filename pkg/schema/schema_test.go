// Copyright 2025 Certen Protocol

package schema

import "testing"

func TestChecker_Valid(t *testing.T) {
	c := New()
	tree := map[string]interface{}{
		"spec_version": "0.1.0",
		"tools": []interface{}{
			map[string]interface{}{"id": "mytool", "type": "Software"},
		},
	}
	events, err := c.Check(tree)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %v", events)
	}
}

func TestChecker_MissingSpecVersion(t *testing.T) {
	c := New()
	tree := map[string]interface{}{
		"tools": []interface{}{},
	}
	events, err := c.Check(tree)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("expected schema violation for missing spec_version")
	}
}

func TestChecker_BadToolType(t *testing.T) {
	c := New()
	tree := map[string]interface{}{
		"spec_version": "0.1.0",
		"tools": []interface{}{
			map[string]interface{}{"id": "mytool", "type": "Robot"},
		},
	}
	events, err := c.Check(tree)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("expected schema violation for invalid tool type enum")
	}
}

func TestChecker_RootLevelAttestationRejected(t *testing.T) {
	c := New()
	tree := map[string]interface{}{
		"spec_version": "0.1.0",
		"attestation":  map[string]interface{}{"mode": "basic", "timestamp": "2025-01-01T00:00:00Z"},
	}
	events, err := c.Check(tree)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("expected a root-level attestation key to be schema-rejected, not silently accepted")
	}
}
