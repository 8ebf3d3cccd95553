// Copyright 2025 Certen Protocol
//
// Package profile is the Profile Validator plug-in surface (spec
// §4.11): a string-keyed registry of domain-specific validators that
// run after core validation and may add errors and warnings but can
// never override a core verdict. The core ships the interface and
// registry only; concrete profiles (AI-inference, machining) are
// collaborators outside this module's scope.
//
// The register-by-string-tag registry shape is grounded on the
// teacher's pkg/attestation/strategy package, which likewise lets
// callers register named strategy implementations behind a common
// interface rather than hard-coding a concrete type.
package profile

import (
	"fmt"
	"sync"

	"github.com/certen/provenance-verifier/pkg/docmodel"
	"github.com/certen/provenance-verifier/pkg/verrors"
)

// Validator is a domain-specific collaborator invoked after core
// validation. Identify inspects doc and returns whether this profile
// claims it; Validate runs the profile's own checks.
type Validator interface {
	// Identify reports whether this profile recognizes doc, typically
	// by inspecting doc.Profile or doc.Context.
	Identify(doc *docmodel.Document) bool
	// Validate runs the profile's checks, returning additional errors
	// and warnings. It must never be able to flip a core verdict.
	Validate(doc *docmodel.Document) []verrors.Event
}

// Registry holds profiles keyed by their opaque profile_id.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]Validator
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{profiles: make(map[string]Validator)}
}

// Register adds a profile under id, replacing any existing profile
// registered under the same id.
func (r *Registry) Register(id string, v Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[id] = v
}

// Lookup returns the profile registered under id, if any.
func (r *Registry) Lookup(id string) (Validator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.profiles[id]
	return v, ok
}

// Run identifies and validates doc against the profile named by
// doc.Profile. An unrecognized profile_id yields a single
// CapabilityUnavailable warning rather than a hard failure, since
// profiles are optional collaborators (§4.11); an empty doc.Profile is
// a silent no-op.
func (r *Registry) Run(doc *docmodel.Document) []verrors.Event {
	if doc.Profile == "" {
		return nil
	}
	v, ok := r.Lookup(doc.Profile)
	if !ok {
		return []verrors.Event{{
			Component: "profile",
			Kind:      verrors.KindCapabilityUnavailable,
			Path:      "profile",
			Message:   fmt.Sprintf("profile %q is not registered with this validator instance", doc.Profile),
			Warning:   true,
		}}
	}
	if !v.Identify(doc) {
		return []verrors.Event{{
			Component: "profile",
			Kind:      verrors.KindCapabilityUnavailable,
			Path:      "profile",
			Message:   fmt.Sprintf("profile %q declined to identify this document", doc.Profile),
			Warning:   true,
		}}
	}
	return v.Validate(doc)
}
