// Copyright 2025 Certen Protocol
//
// Package did is the DID Resolver (spec §4.6): method dispatch over
// did:key (no network) and did:web (hardened HTTPS), backed by a
// process-wide TTL/cost-bound cache and a per-authority token-bucket
// rate limiter. The resolver handle is constructed per engine instance
// (or per test) rather than as a package-level singleton, per §9's
// "process-wide cache and rate-limiter" strategy.
package did

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"golang.org/x/time/rate"

	"github.com/certen/provenance-verifier/pkg/didkey"
	"github.com/certen/provenance-verifier/pkg/didweb"
	"github.com/certen/provenance-verifier/pkg/verrors"
)

// Options configures a Resolver. Zero values select the spec's
// defaults.
type Options struct {
	CacheTTL         time.Duration // default 300s
	CacheMaxEntries  int64         // default 1024
	RateLimitPerMin  int           // default 10 requests per 60s per authority
}

func (o Options) ttl() time.Duration {
	if o.CacheTTL <= 0 {
		return 300 * time.Second
	}
	return o.CacheTTL
}

func (o Options) cacheMaxEntries() int64 {
	if o.CacheMaxEntries <= 0 {
		return 1024
	}
	return o.CacheMaxEntries
}

func (o Options) ratePerMinute() int {
	if o.RateLimitPerMin <= 0 {
		return 10
	}
	return o.RateLimitPerMin
}

type cacheEntry struct {
	key       []byte
	storedAt  time.Time
}

// Resolver maps DID identifiers to Ed25519 public key material.
type Resolver struct {
	opts    Options
	cache   *ristretto.Cache
	client  *didweb.Client

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter
}

// New constructs a fresh Resolver with its own cache and rate-limiter
// state — tests and embedders alike get a throwaway instance via this
// constructor, never a package-level global.
func New(opts Options) (*Resolver, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: opts.cacheMaxEntries() * 10,
		MaxCost:     opts.cacheMaxEntries(),
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Resolver{
		opts:     opts,
		cache:    cache,
		client:   didweb.New(),
		limiters: make(map[string]*rate.Limiter),
	}, nil
}

// Resolve maps did to Ed25519 public key bytes, consulting and
// populating the TTL cache.
func (r *Resolver) Resolve(ctx context.Context, did, keyID string) ([]byte, error) {
	cacheKey := did + "#" + keyID
	if v, ok := r.cache.Get(cacheKey); ok {
		entry := v.(cacheEntry)
		if time.Since(entry.storedAt) < r.opts.ttl() {
			return entry.key, nil
		}
		r.cache.Del(cacheKey)
	}

	key, err := r.resolveUncached(ctx, did, keyID)
	if err != nil {
		return nil, err
	}
	r.cache.Set(cacheKey, cacheEntry{key: key, storedAt: time.Now()}, 1)
	r.cache.Wait()
	return key, nil
}

func (r *Resolver) resolveUncached(ctx context.Context, did, keyID string) ([]byte, error) {
	method, rest, err := splitDID(did)
	if err != nil {
		return nil, err
	}

	switch method {
	case "key":
		key, err := didkey.Resolve(rest)
		if err != nil {
			return nil, &Error{Kind: verrors.KindDIDResolutionFailed, Cause: err}
		}
		return key, nil
	case "web":
		return r.resolveWeb(ctx, rest, keyID)
	default:
		return nil, &Error{Kind: verrors.KindDIDMethodUnsupported, Cause: fmt.Errorf("method %q is not registered", method)}
	}
}

func (r *Resolver) resolveWeb(ctx context.Context, rest, keyID string) ([]byte, error) {
	segments := strings.Split(rest, ":")
	authority := segments[0]
	pathSegments := segments[1:]

	limiter := r.limiterFor(authority)
	if !limiter.Allow() {
		return nil, &Error{Kind: verrors.KindDIDResolutionFailed, Cause: &didweb.Error{Kind: verrors.KindRateLimitExceeded, Message: "per-authority rate limit exceeded"}}
	}

	body, err := r.client.FetchDIDDocument(ctx, authority, pathSegments)
	if err != nil {
		return nil, &Error{Kind: verrors.KindDIDResolutionFailed, Cause: err}
	}
	doc, err := didweb.ParseDocument(body)
	if err != nil {
		return nil, &Error{Kind: verrors.KindDIDResolutionFailed, Cause: err}
	}
	key, err := doc.SelectKey(keyID)
	if err != nil {
		return nil, &Error{Kind: verrors.KindDIDResolutionFailed, Cause: err}
	}
	return key, nil
}

func (r *Resolver) limiterFor(authority string) *rate.Limiter {
	r.limitersMu.Lock()
	defer r.limitersMu.Unlock()
	if l, ok := r.limiters[authority]; ok {
		return l
	}
	perMinute := r.opts.ratePerMinute()
	l := rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)
	r.limiters[authority] = l
	return l
}

func splitDID(did string) (method, rest string, err error) {
	const prefix = "did:"
	if !strings.HasPrefix(did, prefix) {
		return "", "", &Error{Kind: verrors.KindDIDMalformed, Cause: fmt.Errorf("missing did: prefix")}
	}
	body := did[len(prefix):]
	idx := strings.Index(body, ":")
	if idx < 0 {
		return "", "", &Error{Kind: verrors.KindDIDMalformed, Cause: fmt.Errorf("missing method-specific-id")}
	}
	return body[:idx], body[idx+1:], nil
}

// Error wraps every did:key decoding failure and every did:web network,
// document or key-selection failure into DIDResolutionFailed at the
// component boundary (§4.6), carrying the original cause for logging
// without leaking resolver internals into validator output. A DID that
// does not parse carries DIDMalformed, and an unregistered method
// carries DIDMethodUnsupported.
type Error struct {
	Kind  verrors.Kind
	Cause error
}

func (e *Error) Error() string { return string(e.Kind) + ": " + e.Cause.Error() }
func (e *Error) Unwrap() error { return e.Cause }
