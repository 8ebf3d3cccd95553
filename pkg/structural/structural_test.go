// Copyright 2025 Certen Protocol

package structural

import (
	"testing"

	"github.com/certen/provenance-verifier/pkg/docmodel"
	"github.com/certen/provenance-verifier/pkg/verrors"
)

func hasKind(events []verrors.Event, kind verrors.Kind) bool {
	for _, e := range events {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

func TestValidate_MinimalDocumentIsClean(t *testing.T) {
	doc := &docmodel.Document{
		SpecVersion: "0.1.0",
		Tools:       []docmodel.Tool{{ID: "mytool", Type: docmodel.ToolSoftware, Version: "1.0"}},
		Entities:    []docmodel.Entity{{ID: "ent", Type: "Text", Version: "1"}},
		Operations: []docmodel.Operation{{
			ID: "op1", Type: "transform", Outputs: []string{"ent@1"}, Tool: "mytool@1.0",
			Attestation: &docmodel.Attestation{Mode: docmodel.AttestationBasic, Timestamp: "2025-11-01T00:00:00Z"},
		}},
	}
	result := Validate(doc, Limits{})
	if len(result.Events) != 0 {
		t.Fatalf("expected no events, got %v", result.Events)
	}
	if _, ok := result.Index.Entities["ent@1"]; !ok {
		t.Fatal("expected ent@1 to be indexed")
	}
}

func TestValidate_DuplicateEntityID(t *testing.T) {
	doc := &docmodel.Document{
		SpecVersion: "0.1.0",
		Entities: []docmodel.Entity{
			{ID: "ent", Type: "Text", Version: "1"},
			{ID: "ent", Type: "Text", Version: "1"},
		},
	}
	result := Validate(doc, Limits{})
	if !hasKind(result.Events, verrors.KindDuplicateID) {
		t.Fatalf("expected DuplicateId, got %v", result.Events)
	}
}

func TestValidate_UnresolvedInputReference(t *testing.T) {
	doc := &docmodel.Document{
		SpecVersion: "0.1.0",
		Operations:  []docmodel.Operation{{ID: "op1", Type: "transform", Inputs: []string{"missing@1"}}},
	}
	result := Validate(doc, Limits{})
	if !hasKind(result.Events, verrors.KindUnresolvedReference) {
		t.Fatalf("expected UnresolvedReference, got %v", result.Events)
	}
}

func TestValidate_DerivedFromCycleDetected(t *testing.T) {
	doc := &docmodel.Document{
		SpecVersion: "0.1.0",
		Entities: []docmodel.Entity{
			{ID: "a", Type: "Text", Version: "1", DerivedFrom: []string{"b@1"}},
			{ID: "b", Type: "Text", Version: "1", DerivedFrom: []string{"a@1"}},
		},
	}
	result := Validate(doc, Limits{})
	if !hasKind(result.Events, verrors.KindUnresolvedReference) {
		t.Fatalf("expected a cycle to be reported, got %v", result.Events)
	}
}

func TestValidate_DerivedFromAcyclicChainIsClean(t *testing.T) {
	doc := &docmodel.Document{
		SpecVersion: "0.1.0",
		Entities: []docmodel.Entity{
			{ID: "a", Type: "Text", Version: "1"},
			{ID: "b", Type: "Text", Version: "1", DerivedFrom: []string{"a@1"}},
			{ID: "c", Type: "Text", Version: "1", DerivedFrom: []string{"b@1"}},
		},
	}
	result := Validate(doc, Limits{})
	if len(result.Events) != 0 {
		t.Fatalf("expected no events, got %v", result.Events)
	}
}

func TestValidate_BasicModeRejectsSignerAndSignature(t *testing.T) {
	doc := &docmodel.Document{
		SpecVersion: "0.1.0",
		Operations: []docmodel.Operation{{
			ID: "op1", Type: "transform",
			Attestation: &docmodel.Attestation{Mode: docmodel.AttestationBasic, Timestamp: "t", Signer: "did:key:z1"},
		}},
	}
	result := Validate(doc, Limits{})
	if !hasKind(result.Events, verrors.KindAttestationModeInconsistent) {
		t.Fatalf("expected AttestationModeInconsistent, got %v", result.Events)
	}
}

func TestValidate_SignedModeRequiresSignerAndSignature(t *testing.T) {
	doc := &docmodel.Document{
		SpecVersion: "0.1.0",
		Operations: []docmodel.Operation{{
			ID: "op1", Type: "transform",
			Attestation: &docmodel.Attestation{Mode: docmodel.AttestationSigned, Timestamp: "t"},
		}},
	}
	result := Validate(doc, Limits{})
	if !hasKind(result.Events, verrors.KindAttestationRequirementsMissing) {
		t.Fatalf("expected AttestationRequirementsMissing, got %v", result.Events)
	}
}

func TestValidate_MultisigThresholdOutOfRange(t *testing.T) {
	doc := &docmodel.Document{
		SpecVersion: "0.1.0",
		Operations: []docmodel.Operation{{
			ID: "op1", Type: "transform",
			Attestation: &docmodel.Attestation{
				Mode: docmodel.AttestationSigned, Timestamp: "t", Signer: "did:key:z1", Signature: "ed25519:AA==",
				Multisig: &docmodel.Multisig{Threshold: 3, Signers: []string{"did:key:z1", "did:key:z2"}},
			},
		}},
	}
	result := Validate(doc, Limits{})
	if !hasKind(result.Events, verrors.KindMultisigThresholdNotMet) {
		t.Fatalf("expected MultisigThresholdNotMet, got %v", result.Events)
	}
}

func TestValidate_SealedSubgraphMissingCommitment(t *testing.T) {
	doc := &docmodel.Document{
		SpecVersion: "0.1.0",
		Operations:  []docmodel.Operation{{ID: "op1", Type: "sealed_subgraph"}},
	}
	result := Validate(doc, Limits{})
	if !hasKind(result.Events, verrors.KindSealedCommitmentInvalid) {
		t.Fatalf("expected SealedCommitmentInvalid, got %v", result.Events)
	}
}

func TestValidate_NonSealedOperationForbidsSealedBlock(t *testing.T) {
	doc := &docmodel.Document{
		SpecVersion: "0.1.0",
		Operations:  []docmodel.Operation{{ID: "op1", Type: "transform", Sealed: &docmodel.SealedCommitment{MerkleRoot: "sha256:aa"}}},
	}
	result := Validate(doc, Limits{})
	if !hasKind(result.Events, verrors.KindSealedCommitmentInvalid) {
		t.Fatalf("expected SealedCommitmentInvalid, got %v", result.Events)
	}
}

func TestValidate_RealizedCapabilityOutOfRangeIsWarningOnly(t *testing.T) {
	doc := &docmodel.Document{
		SpecVersion: "0.1.0",
		Tools: []docmodel.Tool{{
			ID: "cnc", Type: docmodel.ToolMachine, Version: "1",
			Capabilities: map[string]interface{}{"tolerance_mm": map[string]interface{}{"min": 0.01, "max": 0.1}},
		}},
		Operations: []docmodel.Operation{{
			ID: "op1", Type: "transform", Tool: "cnc@1",
			RealizedCapability: map[string]interface{}{"tolerance_mm": 0.5},
		}},
	}
	result := Validate(doc, Limits{})
	if len(result.Events) != 1 {
		t.Fatalf("expected exactly one event, got %v", result.Events)
	}
	if !result.Events[0].IsWarning() {
		t.Fatalf("expected the event to be classified as a warning, got %v", result.Events[0])
	}
}

func TestValidate_ToolWildcardResolvesVersionlessTool(t *testing.T) {
	doc := &docmodel.Document{
		SpecVersion: "0.1.0",
		Tools:       []docmodel.Tool{{ID: "mytool", Type: docmodel.ToolSoftware}},
		Operations:  []docmodel.Operation{{ID: "op1", Type: "transform", Tool: "mytool@"}},
	}
	result := Validate(doc, Limits{})
	if hasKind(result.Events, verrors.KindUnresolvedReference) {
		t.Fatalf("expected mytool@ to resolve against the versionless tool, got %v", result.Events)
	}
}

func TestValidate_ToolWildcardRejectsVersionedTool(t *testing.T) {
	doc := &docmodel.Document{
		SpecVersion: "0.1.0",
		Tools:       []docmodel.Tool{{ID: "mytool", Type: docmodel.ToolSoftware, Version: "1.0"}},
		Operations:  []docmodel.Operation{{ID: "op1", Type: "transform", Tool: "mytool@"}},
	}
	result := Validate(doc, Limits{})
	if !hasKind(result.Events, verrors.KindUnresolvedReference) {
		t.Fatalf("expected mytool@ to be rejected against a versioned tool, got %v", result.Events)
	}
}

func TestValidate_CardinalityCapExceeded(t *testing.T) {
	doc := &docmodel.Document{
		SpecVersion: "0.1.0",
		Entities:    []docmodel.Entity{{ID: "a", Type: "Text", Version: "1"}, {ID: "b", Type: "Text", Version: "1"}},
	}
	result := Validate(doc, Limits{MaxEntities: 1})
	if !hasKind(result.Events, verrors.KindCardinalityViolation) {
		t.Fatalf("expected CardinalityViolation, got %v", result.Events)
	}
}
