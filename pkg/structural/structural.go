// Copyright 2025 Certen Protocol
//
// Package structural is the Structural Validator (spec §4.3): it runs
// the cross-cutting checks the schema cannot express — size caps,
// per-sequence id uniqueness, reference resolution (entity, tool,
// derived_from-DAG), attestation-mode prerequisites, sealed-subgraph
// typing, and the realized-capability-vs-declared-capabilities
// consistency warning. It also builds the flat per-kind lookup tables
// its own reference checks resolve against and returns them in Result;
// the engine's later components iterate the document's sequences
// directly and do not read them.
//
// The index-then-check shape is grounded on the teacher's
// pkg/verification/unified_verifier.go, which likewise builds
// lookup tables once before running a fixed sequence of checks over
// them.
package structural

import (
	"fmt"
	"strings"

	"github.com/certen/provenance-verifier/pkg/docmodel"
	"github.com/certen/provenance-verifier/pkg/verrors"
)

// Limits bounds the per-sequence and per-scalar sizes the validator
// enforces (§4.3 step 1).
type Limits struct {
	MaxTools      int
	MaxEntities   int
	MaxOperations int
	MaxScalarLen  int
}

const (
	defaultMaxTools      = 1000
	defaultMaxEntities   = 10000
	defaultMaxOperations = 10000
	defaultMaxScalarLen  = 4096
)

func (l Limits) maxTools() int {
	if l.MaxTools <= 0 {
		return defaultMaxTools
	}
	return l.MaxTools
}

func (l Limits) maxEntities() int {
	if l.MaxEntities <= 0 {
		return defaultMaxEntities
	}
	return l.MaxEntities
}

func (l Limits) maxOperations() int {
	if l.MaxOperations <= 0 {
		return defaultMaxOperations
	}
	return l.MaxOperations
}

func (l Limits) maxScalarLen() int {
	if l.MaxScalarLen <= 0 {
		return defaultMaxScalarLen
	}
	return l.MaxScalarLen
}

// Index is the set of flat per-kind lookup tables built from a
// document, keyed the way references address them: entities by
// id@version, tools by bare id (and also by id@version when the tool
// carries a version), operations by bare id.
type Index struct {
	Entities   map[string]*docmodel.Entity
	Tools      map[string]*docmodel.Tool
	Operations map[string]*docmodel.Operation
}

// Result bundles the validation events with the index built along the
// way.
type Result struct {
	Events []verrors.Event
	Index  Index
}

// Validate runs every structural check over doc in the order the
// contract specifies, returning the accumulated events and the lookup
// tables built from it.
func Validate(doc *docmodel.Document, limits Limits) Result {
	var events []verrors.Event

	if len(doc.Tools) > limits.maxTools() {
		events = append(events, verrors.New("structural", verrors.KindCardinalityViolation, "tools",
			fmt.Sprintf("tools sequence exceeds the configured cap of %d", limits.maxTools())))
	}
	if len(doc.Entities) > limits.maxEntities() {
		events = append(events, verrors.New("structural", verrors.KindCardinalityViolation, "entities",
			fmt.Sprintf("entities sequence exceeds the configured cap of %d", limits.maxEntities())))
	}
	if len(doc.Operations) > limits.maxOperations() {
		events = append(events, verrors.New("structural", verrors.KindCardinalityViolation, "operations",
			fmt.Sprintf("operations sequence exceeds the configured cap of %d", limits.maxOperations())))
	}
	events = append(events, checkScalarLengths(doc, limits)...)

	idx, uniqEvents := buildIndex(doc)
	events = append(events, uniqEvents...)

	events = append(events, checkReferences(doc, idx)...)
	events = append(events, checkDerivedFromDAG(doc)...)
	events = append(events, checkAttestationPrerequisites(doc)...)
	events = append(events, checkSealedTyping(doc)...)
	events = append(events, checkRealizedCapability(doc, idx)...)

	return Result{Events: events, Index: idx}
}

func checkScalarLengths(doc *docmodel.Document, limits Limits) []verrors.Event {
	var events []verrors.Event
	max := limits.maxScalarLen()
	check := func(path, field, value string) {
		if len(value) > max {
			events = append(events, verrors.New("structural", verrors.KindLengthCapExceeded, path+"."+field,
				fmt.Sprintf("value exceeds the configured scalar length cap of %d bytes", max)))
		}
	}
	for i, t := range doc.Tools {
		path := fmt.Sprintf("tools[%d]", i)
		check(path, "id", t.ID)
		check(path, "vendor", t.Vendor)
		check(path, "version", t.Version)
	}
	for i, e := range doc.Entities {
		path := fmt.Sprintf("entities[%d]", i)
		check(path, "id", e.ID)
		check(path, "file", e.File)
		check(path, "uri", e.URI)
		check(path, "hash", e.Hash)
	}
	for i, op := range doc.Operations {
		path := fmt.Sprintf("operations[%d]", i)
		check(path, "id", op.ID)
		check(path, "type", op.Type)
	}
	return events
}

// buildIndex builds the per-kind lookup tables and, in the same pass,
// emits DuplicateId errors for any id collision within a sequence
// (§4.3 step 2). Colliding entries are not indexed a second time; the
// first occurrence wins so later reference-resolution checks have a
// stable target.
func buildIndex(doc *docmodel.Document) (Index, []verrors.Event) {
	var events []verrors.Event
	idx := Index{
		Entities:   make(map[string]*docmodel.Entity, len(doc.Entities)),
		Tools:      make(map[string]*docmodel.Tool, len(doc.Tools)),
		Operations: make(map[string]*docmodel.Operation, len(doc.Operations)),
	}

	seenTools := make(map[string]bool, len(doc.Tools))
	for i := range doc.Tools {
		t := &doc.Tools[i]
		if seenTools[t.ID] {
			events = append(events, verrors.New("structural", verrors.KindDuplicateID, fmt.Sprintf("tools[%d]", i),
				"duplicate tool id "+t.ID))
			continue
		}
		seenTools[t.ID] = true
		if t.Version != "" {
			idx.Tools[t.ID+"@"+t.Version] = t
		}
		idx.Tools[t.ID] = t
	}

	seenEntities := make(map[string]bool, len(doc.Entities))
	for i := range doc.Entities {
		e := &doc.Entities[i]
		if seenEntities[e.ID] {
			events = append(events, verrors.New("structural", verrors.KindDuplicateID, fmt.Sprintf("entities[%d]", i),
				"duplicate entity id "+e.ID))
			continue
		}
		seenEntities[e.ID] = true
		idx.Entities[e.RefID()] = e
	}

	seenOps := make(map[string]bool, len(doc.Operations))
	for i := range doc.Operations {
		op := &doc.Operations[i]
		if seenOps[op.ID] {
			events = append(events, verrors.New("structural", verrors.KindDuplicateID, fmt.Sprintf("operations[%d]", i),
				"duplicate operation id "+op.ID))
			continue
		}
		seenOps[op.ID] = true
		idx.Operations[op.ID] = op
	}

	return idx, events
}

// resolveTool resolves a tool reference of the shape `id`, `id@version`
// or the version wildcard `id@`, the last of which is accepted only
// when the matched tool declares no version (§4.3 step 3).
func resolveTool(idx Index, ref string) (*docmodel.Tool, bool) {
	if strings.HasSuffix(ref, "@") {
		t, ok := idx.Tools[strings.TrimSuffix(ref, "@")]
		if !ok || t.Version != "" {
			return nil, false
		}
		return t, true
	}
	t, ok := idx.Tools[ref]
	return t, ok
}

func checkReferences(doc *docmodel.Document, idx Index) []verrors.Event {
	var events []verrors.Event
	for i, op := range doc.Operations {
		path := fmt.Sprintf("operations[%d]", i)
		for j, in := range op.Inputs {
			if _, ok := idx.Entities[in]; !ok {
				events = append(events, verrors.New("structural", verrors.KindUnresolvedReference,
					fmt.Sprintf("%s.inputs[%d]", path, j), "no declared entity matches "+in))
			}
		}
		for j, out := range op.Outputs {
			if _, ok := idx.Entities[out]; !ok {
				events = append(events, verrors.New("structural", verrors.KindUnresolvedReference,
					fmt.Sprintf("%s.outputs[%d]", path, j), "no declared entity matches "+out))
			}
		}
		if op.Tool != "" {
			if _, ok := resolveTool(idx, op.Tool); !ok {
				events = append(events, verrors.New("structural", verrors.KindUnresolvedReference,
					path+".tool", "no declared tool matches "+op.Tool))
			}
		}
		if op.Attestation != nil && op.Attestation.Multisig != nil {
			for j, signer := range op.Attestation.Multisig.Signers {
				if signer == "" {
					events = append(events, verrors.New("structural", verrors.KindUnresolvedReference,
						fmt.Sprintf("%s.attestation.multisig.signers[%d]", path, j), "signer DID is empty"))
				}
			}
		}
	}
	for i, e := range doc.Entities {
		path := fmt.Sprintf("entities[%d]", i)
		for j, d := range e.DerivedFrom {
			if _, ok := idx.Entities[d]; !ok {
				events = append(events, verrors.New("structural", verrors.KindUnresolvedReference,
					fmt.Sprintf("%s.derived_from[%d]", path, j), "no declared entity matches "+d))
			}
		}
	}
	return events
}

// checkDerivedFromDAG detects cycles in the derived_from graph via
// three-color DFS (white/gray/black). Each DFS is started from the next
// not-yet-visited entity in document order; when it finds a cycle, that
// starting entity (which may lead into the cycle rather than lie on it)
// is reported.
func checkDerivedFromDAG(doc *docmodel.Document) []verrors.Event {
	byRef := make(map[string]docmodel.Entity, len(doc.Entities))
	for _, e := range doc.Entities {
		byRef[e.RefID()] = e
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(doc.Entities))
	var events []verrors.Event

	var visit func(ref string) bool
	visit = func(ref string) bool {
		switch color[ref] {
		case black:
			return false
		case gray:
			return true
		}
		color[ref] = gray
		e, ok := byRef[ref]
		if ok {
			for _, d := range e.DerivedFrom {
				if _, exists := byRef[d]; !exists {
					continue // already reported as an unresolved reference
				}
				if visit(d) {
					color[ref] = black
					return true
				}
			}
		}
		color[ref] = black
		return false
	}

	for i, e := range doc.Entities {
		ref := e.RefID()
		if color[ref] != white {
			continue
		}
		if visit(ref) {
			events = append(events, verrors.New("structural", verrors.KindUnresolvedReference,
				fmt.Sprintf("entities[%d].derived_from", i), "derived_from graph contains a cycle reachable from "+ref))
		}
	}
	return events
}

// checkAttestationPrerequisites enforces the tag/payload consistency
// of the attestation.mode discriminated variant (§9 design note,
// §4.7): basic carries neither signer nor signature; signed/
// verifiable/zk require both (delegated to the Signature Verifier for
// the cryptographic check itself — here only the presence shape is
// validated); multisig.threshold must sit in [1, len(signers)] when
// present.
func checkAttestationPrerequisites(doc *docmodel.Document) []verrors.Event {
	var events []verrors.Event
	for i, op := range doc.Operations {
		if op.Attestation == nil {
			continue
		}
		path := fmt.Sprintf("operations[%d].attestation", i)
		att := op.Attestation

		switch att.Mode {
		case docmodel.AttestationBasic:
			if att.Signer != "" || att.Signature != "" {
				events = append(events, verrors.New("structural", verrors.KindAttestationModeInconsistent, path,
					"mode=basic must not carry signer or signature"))
			}
		case docmodel.AttestationSigned, docmodel.AttestationVerifiable, docmodel.AttestationZK:
			if att.Signer == "" || att.Signature == "" {
				events = append(events, verrors.New("structural", verrors.KindAttestationRequirementsMissing, path,
					"mode "+string(att.Mode)+" requires both signer and signature"))
			}
		}

		if att.Multisig != nil {
			m := att.Multisig
			if m.Threshold < 1 || m.Threshold > len(m.Signers) {
				events = append(events, verrors.New("structural", verrors.KindMultisigThresholdNotMet, path+".multisig",
					"threshold must be in [1, len(signers)]"))
			}
		}
	}
	return events
}

// checkSealedTyping enforces §4.3 step 5: sealed_subgraph operations
// must carry a sealed commitment, and no other operation type may.
func checkSealedTyping(doc *docmodel.Document) []verrors.Event {
	var events []verrors.Event
	for i, op := range doc.Operations {
		path := fmt.Sprintf("operations[%d]", i)
		isSealedType := op.Type == "sealed_subgraph"
		switch {
		case isSealedType && op.Sealed == nil:
			events = append(events, verrors.New("structural", verrors.KindSealedCommitmentInvalid, path,
				"operation of type sealed_subgraph has no sealed commitment"))
		case !isSealedType && op.Sealed != nil:
			events = append(events, verrors.New("structural", verrors.KindSealedCommitmentInvalid, path+".sealed",
				"sealed commitment is only valid on operations of type sealed_subgraph"))
		}
	}
	return events
}

// checkRealizedCapability warns, but never errors, when an
// operation's realized_capability values fall outside the ranges its
// tool declares (§4.3 step 6). Only numeric bounds of the shape
// {"min": x, "max": y} are understood; any other declared shape is
// left unchecked rather than guessed at.
func checkRealizedCapability(doc *docmodel.Document, idx Index) []verrors.Event {
	var events []verrors.Event
	for i, op := range doc.Operations {
		if op.RealizedCapability == nil || op.Tool == "" {
			continue
		}
		tool, ok := resolveTool(idx, op.Tool)
		if !ok || tool.Capabilities == nil {
			continue
		}
		path := fmt.Sprintf("operations[%d].realized_capability", i)
		for key, realizedVal := range op.RealizedCapability {
			declared, ok := tool.Capabilities[key]
			if !ok {
				continue
			}
			if outOfRange(realizedVal, declared) {
				events = append(events, verrors.Event{
					Component: "structural",
					Kind:      verrors.KindCardinalityViolation,
					Path:      path + "." + key,
					Message:   "realized capability falls outside the tool's declared range",
					Warning:   true,
				})
			}
		}
	}
	return events
}

func outOfRange(realized, declared interface{}) bool {
	bounds, ok := declared.(map[string]interface{})
	if !ok {
		return false
	}
	value, ok := toFloat(realized)
	if !ok {
		return false
	}
	if minV, ok := bounds["min"]; ok {
		if m, ok := toFloat(minV); ok && value < m {
			return true
		}
	}
	if maxV, ok := bounds["max"]; ok {
		if m, ok := toFloat(maxV); ok && value > m {
			return true
		}
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
