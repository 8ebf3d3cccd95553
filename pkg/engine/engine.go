// Copyright 2025 Certen Protocol
//
// Package engine wires every component into the structurally
// sequential, per-node-parallel pipeline of §5: Document Loader →
// Schema Checker → Structural Validator → {Hash Verifier, Signature
// Verifier, Merkle/Transparency checkers, Sealed-Subgraph Checker} →
// Profile Validator → Result Aggregator.
//
// The construct-once, run-many Engine (holding the schema checker, DID
// resolver and metrics registry across calls while building a fresh
// Aggregator per call) mirrors the teacher's
// pkg/verification/unified_verifier.go UnifiedVerifier, which likewise
// holds long-lived configuration and is invoked per proof bundle.
package engine

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/certen/provenance-verifier/pkg/aggregator"
	"github.com/certen/provenance-verifier/pkg/config"
	"github.com/certen/provenance-verifier/pkg/did"
	"github.com/certen/provenance-verifier/pkg/docio"
	"github.com/certen/provenance-verifier/pkg/docmodel"
	"github.com/certen/provenance-verifier/pkg/hashverify"
	"github.com/certen/provenance-verifier/pkg/profile"
	"github.com/certen/provenance-verifier/pkg/schema"
	"github.com/certen/provenance-verifier/pkg/sealed"
	"github.com/certen/provenance-verifier/pkg/sigverify"
	"github.com/certen/provenance-verifier/pkg/structural"
	"github.com/certen/provenance-verifier/pkg/transparency"
	"github.com/certen/provenance-verifier/pkg/verrors"
)

// Engine holds the process-wide state the concurrency model allows to
// be shared across calls (§5: resolver cache, rate-limit buckets,
// metrics registry) plus the stateless component checkers. A fresh
// Engine is constructed once per process (or per test); validation
// calls share it for cache/rate-limiter throughput.
type Engine struct {
	cfg *config.Config

	schemaChecker *schema.Checker
	resolver      *did.Resolver
	sigChecker    *sigverify.Checker
	sealedChecker *sealed.Checker
	transparency  *transparency.Checker
	profiles      *profile.Registry
	metrics       *aggregator.Metrics
}

// New constructs an Engine from cfg. profiles may be nil (no
// registered profiles); metrics may be nil (metrics disabled).
func New(cfg *config.Config, profiles *profile.Registry, metrics *aggregator.Metrics) (*Engine, error) {
	resolver, err := did.New(did.Options{
		CacheTTL:        cfg.DIDCacheTTL,
		CacheMaxEntries: cfg.DIDCacheMaxEntries,
		RateLimitPerMin: cfg.DIDRateLimitPerMinute,
	})
	if err != nil {
		return nil, fmt.Errorf("constructing DID resolver: %w", err)
	}
	sigChecker := sigverify.New(resolver)
	sigChecker.AllowMockSignatures = cfg.AllowMockSignatures

	if profiles == nil {
		profiles = profile.NewRegistry()
	}

	return &Engine{
		cfg:           cfg,
		schemaChecker: schema.New(),
		resolver:      resolver,
		sigChecker:    sigChecker,
		sealedChecker: sealed.New(sigChecker),
		transparency:  transparency.New(),
		profiles:      profiles,
		metrics:       metrics,
	}, nil
}

// Validate runs the full pipeline over raw bytes loaded from baseDir,
// returning the aggregated Result. A cancelled ctx aborts remaining
// suspension points and yields a partial Result carrying a Cancelled
// warning (§5); it never panics.
//
// Every call is stamped with a correlation id (carried on ctx) that the
// DID resolver's HTTPS client includes in its own log lines, so a
// validation run's network activity can be traced back to the call
// that caused it.
func (e *Engine) Validate(ctx context.Context, raw []byte, baseDir string) (aggregator.Result, error) {
	correlationID := uuid.NewString()
	ctx = verrors.WithCorrelationID(ctx, correlationID)
	log.Printf("[%s] starting validation run", correlationID)

	loaded, err := docio.Load(raw, baseDir, e.cfg.MaxDocumentBytes)
	if err != nil {
		return aggregator.Result{}, err
	}
	doc := loaded.Doc

	agg := aggregator.New(doc, e.metrics)

	schemaEvents, err := e.schemaChecker.Check(loaded.Raw)
	if err != nil {
		return aggregator.Result{}, fmt.Errorf("schema checker initialization: %w", err)
	}
	agg.Record(schemaEvents)

	// Structural checks assume a schema-conformant tree (§4.3 contract);
	// running them over a malformed tree would produce noisy follow-on
	// errors, so the pipeline still runs every later component (§7
	// propagation policy: never short-circuit) but tags their output as
	// follow-on.
	limits := structural.Limits{
		MaxTools: e.cfg.MaxTools, MaxEntities: e.cfg.MaxEntities,
		MaxOperations: e.cfg.MaxOperations, MaxScalarLen: e.cfg.MaxScalarLen,
	}
	structResult := structural.Validate(doc, limits)
	agg.Record(tagFollowOn(structResult.Events, len(schemaEvents) > 0))

	select {
	case <-ctx.Done():
		agg.Record([]verrors.Event{verrors.New("engine", verrors.KindCancelled, "", ctx.Err().Error())})
		result := agg.Finish()
		log.Printf("[%s] validation run cancelled", correlationID)
		return result, nil
	default:
	}

	// Hash verification and per-operation crypto/proof checks run
	// concurrently (independent node data, no shared mutable state),
	// but each branch's events are collected into its own slot and
	// recorded into the aggregator only after both finish, in a fixed
	// component order (Hash Verifier, then Signature/Transparency/
	// Sealed) — emission order must be stable by component order
	// regardless of which branch happens to finish first (§5).
	var hashEvents, opEvents []verrors.Event
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		hashEvents = hashverify.VerifyEntities(doc.Entities, doc.BaseDir, hashverify.Options{
			MaxFileBytes: e.cfg.MaxFileBytes,
			Strict:       e.cfg.StrictMode,
		})
	}()

	go func() {
		defer wg.Done()
		opEvents = e.verifyOperations(ctx, doc.Operations)
	}()

	wg.Wait()

	schemaFailed := len(schemaEvents) > 0
	agg.Record(tagFollowOn(hashEvents, schemaFailed))
	agg.Record(tagFollowOn(opEvents, schemaFailed))
	agg.Record(tagFollowOn(e.profiles.Run(doc), schemaFailed))

	result := agg.Finish()
	log.Printf("[%s] validation run finished: valid=%t errors=%d warnings=%d",
		correlationID, result.Valid, len(result.Errors), len(result.Warnings))
	return result, nil
}

// verifyOperations runs the signature, transparency-anchor and
// sealed-subgraph checks over every operation, fanning out across a
// bounded worker pool (§5: per-node parallel inside a component) and
// funneling results back through a single serializing collector so
// emission order is document order regardless of completion order.
func (e *Engine) verifyOperations(ctx context.Context, ops []docmodel.Operation) []verrors.Event {
	type slot struct {
		events []verrors.Event
	}
	results := make([]slot, len(ops))

	const maxWorkers = 16
	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup

	for i := range ops {
		i := i
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = slot{events: e.verifyOneOperation(ctx, &ops[i], i)}
		}()
	}
	wg.Wait()

	var events []verrors.Event
	for _, r := range results {
		events = append(events, r.events...)
	}
	return events
}

func (e *Engine) verifyOneOperation(ctx context.Context, op *docmodel.Operation, index int) []verrors.Event {
	path := fmt.Sprintf("operations[%d]", index)
	var events []verrors.Event

	select {
	case <-ctx.Done():
		return []verrors.Event{verrors.New("engine", verrors.KindCancelled, path, ctx.Err().Error())}
	default:
	}

	events = append(events, e.sigChecker.VerifyOperation(ctx, op, path)...)
	events = append(events, e.transparency.VerifyOperation(op, path)...)
	if op.Type == "sealed_subgraph" {
		events = append(events, e.sealedChecker.VerifyOperation(ctx, op, path)...)
	}
	return events
}

// tagFollowOn marks every event FollowOn when the schema check already
// failed, so report consumers can distinguish primary faults from
// noise cascading from a malformed tree (§7).
func tagFollowOn(events []verrors.Event, followOn bool) []verrors.Event {
	if !followOn {
		return events
	}
	tagged := make([]verrors.Event, len(events))
	for i, e := range events {
		e.FollowOn = true
		tagged[i] = e
	}
	return tagged
}
