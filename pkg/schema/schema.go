// Copyright 2025 Certen Protocol
//
// Package schema is the Schema Checker (spec §4.2): it enforces the
// declared structural schema (types, enumerations, cardinalities,
// regex patterns) over the untyped parse tree produced by the loader.
package schema

import (
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/certen/provenance-verifier/pkg/verrors"
)

const schemaURL = "https://provenance.schemas.local/document.schema.json"

// Checker wraps one compiled JSON Schema, reused across validation calls.
type Checker struct {
	once     sync.Once
	initErr  error
	compiled *jsonschema.Schema
}

// New returns a Checker with the embedded document schema compiled
// lazily on first use.
func New() *Checker {
	return &Checker{}
}

func (c *Checker) ensureCompiled() error {
	c.once.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(schemaURL, strings.NewReader(documentSchemaJSON)); err != nil {
			c.initErr = err
			return
		}
		schema, err := compiler.Compile(schemaURL)
		if err != nil {
			c.initErr = err
			return
		}
		c.compiled = schema
	})
	return c.initErr
}

// Check validates the untyped tree against the embedded schema,
// returning an ordered sequence of structural errors (empty on success).
func (c *Checker) Check(tree interface{}) ([]verrors.Event, error) {
	if err := c.ensureCompiled(); err != nil {
		return nil, err
	}
	if err := c.compiled.Validate(tree); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			return flatten(ve), nil
		}
		return []verrors.Event{verrors.New("schema", verrors.KindSchemaViolation, "", err.Error())}, nil
	}
	return nil, nil
}

// flatten walks jsonschema's validation-error tree (which nests a cause
// per sub-schema) into a flat, document-ordered sequence of events.
func flatten(ve *jsonschema.ValidationError) []verrors.Event {
	var out []verrors.Event
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			path := strings.TrimPrefix(e.InstanceLocation, "/")
			path = strings.ReplaceAll(path, "/", ".")
			out = append(out, verrors.New("schema", verrors.KindSchemaViolation, path, e.Message))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return out
}
