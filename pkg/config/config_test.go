// Copyright 2025 Certen Protocol

package config

import (
	"os"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MaxDocumentBytes != defaultMaxDocumentBytes {
		t.Fatalf("expected default MaxDocumentBytes, got %d", cfg.MaxDocumentBytes)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	os.Setenv("PROVENANCE_MAX_ENTITIES", "5")
	defer os.Unsetenv("PROVENANCE_MAX_ENTITIES")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MaxEntities != 5 {
		t.Fatalf("expected MaxEntities=5, got %d", cfg.MaxEntities)
	}
}

func TestValidate_RejectsNonPositiveCeiling(t *testing.T) {
	cfg, _ := Load()
	cfg.MaxFileBytes = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a non-positive MaxFileBytes")
	}
}

func TestValidate_RejectsUnknownLogLevel(t *testing.T) {
	cfg, _ := Load()
	cfg.LogLevel = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an unrecognized log level")
	}
}
