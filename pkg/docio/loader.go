// Copyright 2025 Certen Protocol
//
// Package docio is the Document Loader (spec §4.1): it turns a byte
// sequence in either surface syntax into an untyped node tree and a
// typed docmodel.Document, rejecting oversized or malformed input
// before any other component runs. The loader never executes
// instructions or performs type-polymorphic deserialization — it is
// plain JSON/YAML decoding into known container types only.
package docio

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/certen/provenance-verifier/pkg/docmodel"
	"github.com/certen/provenance-verifier/pkg/verrors"
)

// DefaultMaxBytes is the default oversized-document ceiling (8 MiB).
const DefaultMaxBytes = 8 * 1024 * 1024

// Loaded bundles both the untyped parse tree (consumed by the Schema
// Checker) and the typed document (consumed by everything else).
type Loaded struct {
	Raw interface{}
	Doc *docmodel.Document
}

// Load parses raw bytes of a document whose enclosing directory is
// baseDir. maxBytes <= 0 selects DefaultMaxBytes.
func Load(raw []byte, baseDir string, maxBytes int) (*Loaded, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if len(raw) > maxBytes {
		return nil, &LoadError{Kind: verrors.KindOversizedDocument, Message: fmt.Sprintf("document is %d bytes, exceeds ceiling of %d", len(raw), maxBytes)}
	}
	if !utf8.Valid(raw) {
		return nil, &LoadError{Kind: verrors.KindUnsupportedEncoding, Message: "document is not valid UTF-8"}
	}

	trimmed := skipLeadingWhitespace(raw)
	var rawTree interface{}
	var err error
	if len(trimmed) > 0 && trimmed[0] == '{' {
		err = json.Unmarshal(raw, &rawTree)
	} else {
		err = yaml.Unmarshal(raw, &rawTree)
	}
	if err != nil {
		return nil, &LoadError{Kind: verrors.KindMalformedDocument, Message: err.Error()}
	}
	if rawTree == nil {
		return nil, &LoadError{Kind: verrors.KindMalformedDocument, Message: "document decodes to an empty tree"}
	}

	normalized := normalize(rawTree)

	// Re-marshal the normalized tree to JSON and decode into the typed
	// model, so both surface syntaxes flow through one typed decoder.
	canonicalBytes, err := json.Marshal(normalized)
	if err != nil {
		return nil, &LoadError{Kind: verrors.KindMalformedDocument, Message: err.Error()}
	}
	var doc docmodel.Document
	if err := json.Unmarshal(canonicalBytes, &doc); err != nil {
		return nil, &LoadError{Kind: verrors.KindMalformedDocument, Message: err.Error()}
	}
	doc.BaseDir = filepath.Clean(baseDir)

	return &Loaded{Raw: normalized, Doc: &doc}, nil
}

// LoadError is returned for Loader-terminal failures (§7: the only
// component whose own failure aborts the validation call).
type LoadError struct {
	Kind    verrors.Kind
	Message string
}

func (e *LoadError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

func skipLeadingWhitespace(b []byte) []byte {
	i := 0
	for i < len(b) {
		switch b[i] {
		case ' ', '\t', '\n', '\r':
			i++
			continue
		}
		break
	}
	return b[i:]
}

// normalize walks a YAML-decoded tree and converts any
// map[string]interface{} nested values that yaml.v3 may represent
// differently from encoding/json (it already uses map[string]interface{}
// for mapping nodes, but nested slices/scalars are walked here too so
// the function is uniform for both decoders).
func normalize(v interface{}) interface{} {
	switch vv := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(vv))
		for k, val := range vv {
			out[k] = normalize(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(vv))
		for i, val := range vv {
			out[i] = normalize(val)
		}
		return out
	default:
		return vv
	}
}
