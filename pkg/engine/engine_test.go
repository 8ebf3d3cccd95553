// Copyright 2025 Certen Protocol
package engine

import (
	"context"
	"testing"
	"time"

	"github.com/certen/provenance-verifier/pkg/config"
)

func testConfig() *config.Config {
	cfg, _ := config.Load()
	return cfg
}

func TestValidate_MinimalDocumentIsValid(t *testing.T) {
	eng, err := New(testConfig(), nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	raw := []byte(`{"spec_version": "1.0.0"}`)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := eng.Validate(ctx, raw, t.TempDir())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected a valid result, got errors: %v", result.Errors)
	}
}

func TestValidate_DuplicateEntityIDIsInvalid(t *testing.T) {
	eng, err := New(testConfig(), nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	raw := []byte(`{
		"spec_version": "1.0.0",
		"entities": [
			{"id": "e1", "type": "Document", "version": "1"},
			{"id": "e1", "type": "Document", "version": "1"}
		]
	}`)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := eng.Validate(ctx, raw, t.TempDir())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if result.Valid {
		t.Fatal("expected an invalid result for duplicate entity IDs")
	}
}

func TestValidate_CancelledContextYieldsCancelledWarning(t *testing.T) {
	eng, err := New(testConfig(), nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	raw := []byte(`{"spec_version": "1.0.0"}`)
	result, err := eng.Validate(ctx, raw, t.TempDir())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !result.Valid {
		t.Fatalf("a cancellation warning alone should not invalidate the run, got errors: %v", result.Errors)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Kind != "Cancelled" {
		t.Fatalf("expected one Cancelled warning, got %v", result.Warnings)
	}
}
