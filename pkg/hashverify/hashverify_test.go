// Copyright 2025 Certen Protocol

package hashverify

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/certen/provenance-verifier/pkg/docmodel"
)

func writeTemp(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
}

func TestVerifyEntities_Match(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "a.txt", "a")
	sum := sha256.Sum256([]byte("a"))
	entities := []docmodel.Entity{{ID: "ent", Version: "1", File: "./a.txt", Hash: "sha256:" + hex.EncodeToString(sum[:])}}

	events := VerifyEntities(entities, dir, Options{})
	if len(events) != 0 {
		t.Errorf("expected no events, got %v", events)
	}
}

func TestVerifyEntities_Mismatch(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "a.txt", "a")
	entities := []docmodel.Entity{{ID: "ent", Version: "1", File: "./a.txt", Hash: "sha256:" + "0000000000000000000000000000000000000000000000000000000000000000"}}

	events := VerifyEntities(entities, dir, Options{})
	if len(events) != 1 || events[0].Kind != "HashMismatch" {
		t.Errorf("expected HashMismatch, got %v", events)
	}
}

func TestVerifyEntities_PathTraversal(t *testing.T) {
	dir := t.TempDir()
	entities := []docmodel.Entity{{ID: "ent", Version: "1", File: "../../../etc/passwd", Hash: "sha256:abc"}}

	events := VerifyEntities(entities, dir, Options{})
	if len(events) != 1 || events[0].Kind != "PathTraversalAttempt" {
		t.Errorf("expected PathTraversalAttempt, got %v", events)
	}
}

func TestVerifyEntities_AbsolutePathRejected(t *testing.T) {
	dir := t.TempDir()
	entities := []docmodel.Entity{{ID: "ent", Version: "1", File: "/etc/passwd", Hash: "sha256:abc"}}

	events := VerifyEntities(entities, dir, Options{})
	if len(events) != 1 || events[0].Kind != "PathTraversalAttempt" {
		t.Errorf("expected PathTraversalAttempt, got %v", events)
	}
}

func TestVerifyEntities_OversizedFileSkippedAsWarningNonStrict(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "a.txt", "aaaa")
	entities := []docmodel.Entity{{ID: "ent", Version: "1", File: "./a.txt", Hash: "sha256:" + hexZeroes()}}

	events := VerifyEntities(entities, dir, Options{MaxFileBytes: 1})
	if len(events) != 1 || events[0].Kind != "LengthCapExceeded" {
		t.Errorf("expected a LengthCapExceeded event, got %v", events)
	}
	if !events[0].IsWarning() {
		t.Errorf("expected the oversized-file event to be a warning in non-strict mode, got %v", events[0])
	}
}

func TestVerifyEntities_OversizedFileIsErrorInStrictMode(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "a.txt", "aaaa")
	entities := []docmodel.Entity{{ID: "ent", Version: "1", File: "./a.txt", Hash: "sha256:" + hexZeroes()}}

	events := VerifyEntities(entities, dir, Options{MaxFileBytes: 1, Strict: true})
	if len(events) != 1 || events[0].Kind != "LengthCapExceeded" {
		t.Errorf("expected a LengthCapExceeded event, got %v", events)
	}
	if events[0].IsWarning() {
		t.Errorf("expected the oversized-file event to be a hard error in strict mode, got %v", events[0])
	}
}

func hexZeroes() string {
	return "0000000000000000000000000000000000000000000000000000000000000000"
}
