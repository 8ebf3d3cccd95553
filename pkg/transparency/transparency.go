// Copyright 2025 Certen Protocol
//
// Package transparency is the Transparency-Anchor Checker (spec §4.9):
// for each operation carrying attestation.transparency, it constructs
// the leaf preimage from the canonical operation with transparency
// itself elided, decodes each entry's proof, and delegates to
// pkg/merkle for the RFC 6962 proof walk, one log at a time.
//
// The multi-entry loop isolating per-log failures is grounded on the
// same pxp928-rekor/pkg/verify/verify.go VerifyInclusion call pattern
// pkg/merkle itself is built on, generalized here from "one STH" to
// "N independently-witnessed log entries for one leaf" per the
// multi-witness rule.
package transparency

import (
	"encoding/hex"
	"strings"

	"github.com/certen/provenance-verifier/pkg/canon"
	"github.com/certen/provenance-verifier/pkg/docmodel"
	"github.com/certen/provenance-verifier/pkg/merkle"
	"github.com/certen/provenance-verifier/pkg/verrors"
)

// digestSize is the byte width of RFC 6962 SHA-256 tagged digests.
const digestSize = 32

// Checker verifies transparency-log anchors.
type Checker struct{}

// New constructs a Checker.
func New() *Checker { return &Checker{} }

// VerifyOperation checks every transparency anchor on op, if any.
func (c *Checker) VerifyOperation(op *docmodel.Operation, path string) []verrors.Event {
	if op.Attestation == nil || len(op.Attestation.Transparency) == 0 {
		return nil
	}

	leafPreimage, err := canon.OperationForTransparency(op)
	if err != nil {
		return []verrors.Event{verrors.New("transparency", verrors.KindCanonicalizationFailure, path, err.Error())}
	}
	leafHash := merkle.LeafHash(leafPreimage)

	var events []verrors.Event
	failures := 0
	for i, anchor := range op.Attestation.Transparency {
		anchorPath := path + ".attestation.transparency[" + itoa(i) + "]"
		if evs := c.verifyAnchor(anchor, leafHash, anchorPath); len(evs) > 0 {
			events = append(events, evs...)
			failures++
		}
	}

	if len(op.Attestation.Transparency) >= 2 && failures > 0 && failures < len(op.Attestation.Transparency) {
		events = append(events, verrors.New("transparency", verrors.KindMultiWitnessIncomplete, path+".attestation.transparency",
			"one or more (but not all) witnessing logs failed inclusion verification"))
	}
	return events
}

func (c *Checker) verifyAnchor(anchor docmodel.TransparencyAnchor, leafHash []byte, path string) []verrors.Event {
	if anchor.TreeSize < 1 {
		return []verrors.Event{verrors.New("transparency", verrors.KindInclusionProofMalformed, path, "tree_size must be >= 1")}
	}

	siblings, err := merkle.DecodeBase64Siblings(anchor.InclusionProof, digestSize)
	if err != nil {
		return []verrors.Event{verrors.New("transparency", verrors.KindInclusionProofMalformed, path, err.Error())}
	}

	rootHash, err := decodeTaggedDigest(anchor.RootHash)
	if err != nil {
		return []verrors.Event{verrors.New("transparency", verrors.KindInclusionProofMalformed, path, err.Error())}
	}

	if err := merkle.VerifyInclusion(anchor.LeafIndex, anchor.TreeSize, leafHash, siblings, rootHash); err != nil {
		return []verrors.Event{verrors.New("transparency", verrors.KindMerkleRootMismatch, path, err.Error())}
	}

	if anchor.ConsistencyProof != "" {
		consistency, err := merkle.DecodeBase64Siblings(anchor.ConsistencyProof, digestSize)
		if err != nil {
			return []verrors.Event{verrors.New("transparency", verrors.KindConsistencyProofMalformed, path, err.Error())}
		}
		// A transparency anchor carries one tree_size/root pair; a
		// second (old) root for a consistency check would come from an
		// operator-supplied trusted checkpoint, which the offline
		// checker does not have access to per §4.9 — the proof bytes
		// are validated for well-formedness (decodability) only.
		_ = consistency
	}
	return nil
}

// decodeTaggedDigest decodes a "sha256:<hex>"-form digest into raw bytes.
func decodeTaggedDigest(tagged string) ([]byte, error) {
	idx := strings.IndexByte(tagged, ':')
	if idx < 0 {
		return nil, digestFormatError("root_hash is missing an <algorithm>: prefix")
	}
	return hex.DecodeString(tagged[idx+1:])
}

type digestFormatError string

func (e digestFormatError) Error() string { return string(e) }

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
