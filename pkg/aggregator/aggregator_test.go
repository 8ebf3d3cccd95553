// Copyright 2025 Certen Protocol

package aggregator

import (
	"testing"

	"github.com/certen/provenance-verifier/pkg/docmodel"
	"github.com/certen/provenance-verifier/pkg/verrors"
	"github.com/prometheus/client_golang/prometheus"
)

func TestFinish_NoEventsIsValid(t *testing.T) {
	a := New(&docmodel.Document{}, nil)
	result := a.Finish()
	if !result.Valid {
		t.Fatal("expected a valid verdict with zero events")
	}
}

func TestFinish_ErrorEventInvalidatesRun(t *testing.T) {
	a := New(&docmodel.Document{}, nil)
	a.Record([]verrors.Event{verrors.New("schema", verrors.KindSchemaViolation, "x", "boom")})
	result := a.Finish()
	if result.Valid {
		t.Fatal("expected an invalid verdict")
	}
	if len(result.Errors) != 1 || len(result.Warnings) != 0 {
		t.Fatalf("expected one error and zero warnings, got errors=%v warnings=%v", result.Errors, result.Warnings)
	}
}

func TestFinish_WarningEventDoesNotInvalidateRun(t *testing.T) {
	a := New(&docmodel.Document{}, nil)
	a.Record([]verrors.Event{verrors.New("sigverify", verrors.KindCapabilityUnavailable, "x", "no collaborator")})
	result := a.Finish()
	if !result.Valid {
		t.Fatal("expected a valid verdict despite the warning")
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", result.Warnings)
	}
}

func TestFinish_PreservesEmissionOrder(t *testing.T) {
	a := New(&docmodel.Document{}, nil)
	a.Record([]verrors.Event{verrors.New("schema", verrors.KindSchemaViolation, "a", "first")})
	a.Record([]verrors.Event{verrors.New("structural", verrors.KindDuplicateID, "b", "second")})
	result := a.Finish()
	if len(result.Errors) != 2 || result.Errors[0].Message != "first" || result.Errors[1].Message != "second" {
		t.Fatalf("expected emission order to be preserved, got %v", result.Errors)
	}
}

func TestMetrics_ObserveIncrementsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	a := New(&docmodel.Document{}, metrics)
	a.Record([]verrors.Event{verrors.New("schema", verrors.KindSchemaViolation, "x", "boom")})
	a.Finish()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected at least one metric family to be registered")
	}
}
