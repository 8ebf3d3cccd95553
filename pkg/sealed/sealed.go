// Copyright 2025 Certen Protocol
//
// Package sealed is the Sealed-Subgraph Checker (spec §4.10): verifies
// opaque-subgraph commitments on operations of type sealed_subgraph —
// the sealed node's own attestation, each exposed leaf's optional
// per-leaf inclusion proof under merkle_root, and the independent
// signature over every policy assertion record.
//
// The "opaque leaf commitment behind a root, policy assertions riding
// alongside" shape is grounded on the teacher's
// pkg/commitment/commitment.go ComputeGovernanceMerkleRoot (pairwise
// SHA-256 reduction over canonical-JSON leaves) — generalized here to
// RFC-6962-tagged per-leaf inclusion-proof verification (pkg/merkle)
// rather than whole-tree reconstruction, since the document never
// reveals every leaf.
package sealed

import (
	"context"
	"encoding/hex"
	"strings"

	"github.com/certen/provenance-verifier/pkg/canon"
	"github.com/certen/provenance-verifier/pkg/docmodel"
	"github.com/certen/provenance-verifier/pkg/merkle"
	"github.com/certen/provenance-verifier/pkg/sigverify"
	"github.com/certen/provenance-verifier/pkg/verrors"
)

const digestSize = 32

// Checker verifies sealed-subgraph commitments.
type Checker struct {
	sig *sigverify.Checker
}

// New constructs a Checker that delegates policy-assertion and
// sealed-node signature verification to sig.
func New(sig *sigverify.Checker) *Checker {
	return &Checker{sig: sig}
}

// VerifyOperation checks op's sealed commitment. op.Type must equal
// "sealed_subgraph"; callers are expected to have already enforced
// that invariant in the Structural Validator.
func (c *Checker) VerifyOperation(ctx context.Context, op *docmodel.Operation, path string) []verrors.Event {
	sealedPath := path + ".sealed"
	if op.Sealed == nil {
		return []verrors.Event{verrors.New("sealed", verrors.KindSealedCommitmentInvalid, path,
			"operation of type sealed_subgraph has no sealed commitment")}
	}
	s := op.Sealed

	rootBytes, err := decodeTaggedDigest(s.MerkleRoot)
	if err != nil {
		return []verrors.Event{verrors.New("sealed", verrors.KindSealedCommitmentInvalid, sealedPath+".merkle_root", err.Error())}
	}

	var events []verrors.Event

	if op.Attestation == nil || (op.Attestation.Mode != docmodel.AttestationSigned && op.Attestation.Mode != docmodel.AttestationVerifiable) {
		events = append(events, verrors.New("sealed", verrors.KindSealedCommitmentInvalid, path+".attestation",
			"sealed operation requires a signed or verifiable attestation"))
	} else if evs := c.sig.VerifyOperation(ctx, op, path); len(evs) > 0 {
		events = append(events, evs...)
	}

	for i, leaf := range s.LeavesExposed {
		leafPath := sealedPath + ".leaves_exposed[" + itoa(i) + "]"
		if leaf.InclusionProof == "" {
			continue
		}
		leafHashBytes, err := decodeTaggedDigest(leaf.Hash)
		if err != nil {
			events = append(events, verrors.New("sealed", verrors.KindSealedCommitmentInvalid, leafPath+".hash", err.Error()))
			continue
		}
		siblings, err := merkle.DecodeHexSiblings(leaf.InclusionProof, digestSize)
		if err != nil {
			events = append(events, verrors.New("sealed", verrors.KindInclusionProofMalformed, leafPath+".inclusion_proof", err.Error()))
			continue
		}
		index := uint64(0)
		if leaf.LeafIndex != nil {
			index = *leaf.LeafIndex
		}
		if err := merkle.VerifyInclusion(index, uint64(len(s.LeavesExposed)), leafHashBytes, siblings, rootBytes); err != nil {
			events = append(events, verrors.New("sealed", verrors.KindMerkleRootMismatch, leafPath, err.Error()))
		}
	}

	for i, assertion := range s.PolicyAssertions {
		assertionPath := sealedPath + ".policy_assertions[" + itoa(i) + "]"
		record, err := canon.PolicyAssertionRecord(assertion.ID, string(assertion.Result), assertion.EvidenceHash)
		if err != nil {
			events = append(events, verrors.New("sealed", verrors.KindCanonicalizationFailure, assertionPath, err.Error()))
			continue
		}
		if evs := c.sig.VerifyRaw(ctx, assertion.Signer, assertion.Signature, record, assertionPath); len(evs) > 0 {
			events = append(events, evs...)
			continue
		}
		if assertion.Result != docmodel.PolicyPass {
			events = append(events, verrors.New("sealed", verrors.KindSealedCommitmentInvalid, assertionPath+".result",
				"policy assertion did not pass"))
		}
	}

	return events
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	return string(buf[pos:])
}

func decodeTaggedDigest(tagged string) ([]byte, error) {
	idx := strings.IndexByte(tagged, ':')
	if idx < 0 {
		return nil, digestFormatError("digest is missing an <algorithm>: prefix")
	}
	return decodeHexDigest(tagged[idx+1:])
}

func decodeHexDigest(hexStr string) ([]byte, error) {
	out, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, digestFormatError("digest is not valid hex")
	}
	return out, nil
}

type digestFormatError string

func (e digestFormatError) Error() string { return string(e) }
