// Copyright 2025 Certen Protocol

package profile

import (
	"testing"

	"github.com/certen/provenance-verifier/pkg/docmodel"
	"github.com/certen/provenance-verifier/pkg/verrors"
)

type stubProfile struct {
	identifies bool
	events     []verrors.Event
}

func (s stubProfile) Identify(doc *docmodel.Document) bool { return s.identifies }
func (s stubProfile) Validate(doc *docmodel.Document) []verrors.Event { return s.events }

func TestRun_NoProfileIsNoOp(t *testing.T) {
	r := NewRegistry()
	doc := &docmodel.Document{}
	if events := r.Run(doc); events != nil {
		t.Fatalf("expected nil, got %v", events)
	}
}

func TestRun_UnregisteredProfileWarns(t *testing.T) {
	r := NewRegistry()
	doc := &docmodel.Document{Profile: "ai-inference-v1"}
	events := r.Run(doc)
	if len(events) != 1 || !events[0].IsWarning() {
		t.Fatalf("expected one warning event, got %v", events)
	}
}

func TestRun_IdentifiedProfileRunsValidate(t *testing.T) {
	r := NewRegistry()
	want := []verrors.Event{verrors.New("profile", verrors.KindSchemaViolation, "x", "boom")}
	r.Register("ai-inference-v1", stubProfile{identifies: true, events: want})
	doc := &docmodel.Document{Profile: "ai-inference-v1"}
	events := r.Run(doc)
	if len(events) != 1 || events[0].Message != "boom" {
		t.Fatalf("expected the profile's events to be returned, got %v", events)
	}
}

func TestRun_DecliningProfileWarns(t *testing.T) {
	r := NewRegistry()
	r.Register("ai-inference-v1", stubProfile{identifies: false})
	doc := &docmodel.Document{Profile: "ai-inference-v1"}
	events := r.Run(doc)
	if len(events) != 1 || !events[0].IsWarning() {
		t.Fatalf("expected one warning event, got %v", events)
	}
}
