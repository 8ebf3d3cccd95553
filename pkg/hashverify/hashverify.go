// Copyright 2025 Certen Protocol
//
// Package hashverify is the Hash Verifier (spec §4.5): for every entity
// with both a file and a declared hash, it resolves the file path
// safely against the document's base directory, streams the file in
// bounded chunks, and compares the computed digest against the
// declared one.
//
// Hash-hex formatting follows the teacher's pkg/commitment/commitment.go
// HashHex/HashBytes naming idiom, generalized here from in-memory JSON
// hashing to streamed file hashing with a path-containment guard the
// original never needed.
package hashverify

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"

	"lukechampine.com/blake3"

	"github.com/certen/provenance-verifier/pkg/docmodel"
	"github.com/certen/provenance-verifier/pkg/verrors"
)

// DefaultMaxFileBytes is the default file-size ceiling (512 MiB).
const DefaultMaxFileBytes = 512 * 1024 * 1024

// ChunkSize is the bounded streaming read buffer (8 MiB), matching the
// shared-resource chunk policy of §5.
const ChunkSize = 8 * 1024 * 1024

// Options configures the verifier.
type Options struct {
	MaxFileBytes int64
	Strict       bool // strict mode elevates the oversized-file and unavailable-algorithm warnings to errors
}

func (o Options) maxFileBytes() int64 {
	if o.MaxFileBytes <= 0 {
		return DefaultMaxFileBytes
	}
	return o.MaxFileBytes
}

// VerifyEntities checks every entity with both file and hash set,
// returning events in document order.
func VerifyEntities(entities []docmodel.Entity, baseDir string, opts Options) []verrors.Event {
	var events []verrors.Event
	for i, e := range entities {
		path := fmt.Sprintf("entities[%d]", i)
		if e.File == "" || e.Hash == "" {
			continue
		}
		events = append(events, verifyOne(e, path, baseDir, opts)...)
	}
	return events
}

func verifyOne(e docmodel.Entity, path, baseDir string, opts Options) []verrors.Event {
	resolved, err := resolveSafe(baseDir, e.File)
	if err != nil {
		return []verrors.Event{verrors.New("hashverify", verrors.KindPathTraversal, path+".file", err.Error())}
	}

	algo, wantHex, err := splitDigest(e.Hash)
	if err != nil {
		return []verrors.Event{verrors.New("hashverify", verrors.KindHashUnsupportedAlgo, path+".hash", err.Error())}
	}

	info, err := os.Lstat(resolved)
	if err != nil {
		return []verrors.Event{verrors.New("hashverify", verrors.KindFileUnreadable, path+".file", err.Error())}
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return []verrors.Event{verrors.New("hashverify", verrors.KindFileUnreadable, path+".file", "symlinks are rejected")}
	}
	if !info.Mode().IsRegular() {
		return []verrors.Event{verrors.New("hashverify", verrors.KindFileUnreadable, path+".file", "not a regular file")}
	}
	if info.Size() > opts.maxFileBytes() {
		if opts.Strict {
			return []verrors.Event{verrors.New("hashverify", verrors.KindLengthCapExceeded, path+".file", "file exceeds configured size ceiling")}
		}
		return []verrors.Event{{Component: "hashverify", Kind: verrors.KindLengthCapExceeded, Path: path + ".file", Message: "file exceeds configured size ceiling, skipped", Warning: true}}
	}

	h, ok := newHasher(algo)
	if !ok {
		if opts.Strict {
			return []verrors.Event{verrors.New("hashverify", verrors.KindHashUnsupportedAlgo, path+".hash", "hash algorithm unavailable in this build")}
		}
		return []verrors.Event{{Component: "hashverify", Kind: verrors.KindHashUnsupportedAlgo, Path: path + ".hash", Message: "hash algorithm unavailable in this build, skipped", Warning: true}}
	}

	f, err := os.Open(resolved)
	if err != nil {
		return []verrors.Event{verrors.New("hashverify", verrors.KindFileUnreadable, path+".file", err.Error())}
	}
	defer f.Close()

	buf := make([]byte, ChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return []verrors.Event{verrors.New("hashverify", verrors.KindFileUnreadable, path+".file", err.Error())}
	}

	gotHex := hex.EncodeToString(h.Sum(nil))
	if gotHex != wantHex {
		return []verrors.Event{verrors.New("hashverify", verrors.KindHashMismatch, path+".hash",
			fmt.Sprintf("entity %q: declared %s, computed %s", e.ID, truncate(wantHex), truncate(gotHex)))}
	}
	return nil
}

func newHasher(algo string) (hash.Hash, bool) {
	switch algo {
	case "sha256":
		return sha256.New(), true
	case "sha512":
		return sha512.New(), true
	case "blake3":
		return blake3.New(32, nil), true
	default:
		return nil, false
	}
}

func splitDigest(s string) (algo, hexDigest string, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("malformed digest %q", truncate(s))
	}
	return parts[0], parts[1], nil
}

func truncate(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:12]
}

// resolveSafe resolves rel against baseDir, refusing absolute paths and
// any path that normalizes outside baseDir (§4.5 step 1, §P10).
func resolveSafe(baseDir, rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("absolute file paths are rejected: %q", rel)
	}
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return "", err
	}
	joined := filepath.Join(base, rel)
	cleanBase := filepath.Clean(base)
	if joined != cleanBase && !strings.HasPrefix(joined, cleanBase+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes document base directory: %q", rel)
	}
	return joined, nil
}
