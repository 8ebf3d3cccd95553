// Copyright 2025 Certen Protocol
//
// Package merkle is the Merkle Proof Checker (spec §4.8): RFC 6962
// inclusion and consistency proof verification over leaf preimages
// produced by the canonical serializer.
//
// This package previously held a bespoke, untagged SHA-256 Merkle tree
// (hashPair = SHA256(left||right), no leaf/node domain separation). That
// construction is second-preimage-vulnerable and is replaced here with
// the RFC 6962 leaf/node tagging delegated to
// github.com/transparency-dev/merkle, grounded directly on the call
// pattern in pxp928-rekor/pkg/verify/verify.go (VerifyInclusion/
// VerifyConsistency against rfc6962.DefaultHasher). The proof shape
// (decode hex/base64 sibling list, call the library, wrap errors into
// this domain's Kind taxonomy) keeps the teacher's "adapt document
// fields into a proof call" structure.
package merkle

import (
	"encoding/base64"
	"encoding/hex"

	"github.com/transparency-dev/merkle/proof"
	"github.com/transparency-dev/merkle/rfc6962"

	"github.com/certen/provenance-verifier/pkg/verrors"
)

// LeafHash computes the RFC 6962 leaf hash H(0x00 || preimage).
func LeafHash(preimage []byte) []byte {
	return rfc6962.DefaultHasher.HashLeaf(preimage)
}

// VerifyInclusion checks that leafHash at leafIndex is included in a
// tree of size treeSize with root rootHash, given an ordered sibling
// sequence.
func VerifyInclusion(leafIndex, treeSize uint64, leafHash []byte, siblings [][]byte, rootHash []byte) error {
	if err := proof.VerifyInclusion(rfc6962.DefaultHasher, leafIndex, treeSize, leafHash, siblings, rootHash); err != nil {
		return &Error{Kind: verrors.KindMerkleRootMismatch, Cause: err}
	}
	return nil
}

// VerifyConsistency checks that the tree of size1 with root1 is a
// prefix of the tree of size2 with root2, given a consistency proof.
func VerifyConsistency(size1, size2 uint64, consistencyProof [][]byte, root1, root2 []byte) error {
	if err := proof.VerifyConsistency(rfc6962.DefaultHasher, size1, size2, consistencyProof, root1, root2); err != nil {
		return &Error{Kind: verrors.KindMerkleRootMismatch, Cause: err}
	}
	return nil
}

// DecodeBase64Siblings decodes a base64 `inclusion_proof`/`consistency_proof`
// field (§3 Transparency anchor) into an ordered sequence of fixed-width
// sibling digests.
func DecodeBase64Siblings(encoded string, digestSize int) ([][]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, &Error{Kind: verrors.KindInclusionProofMalformed, Cause: err}
	}
	if digestSize <= 0 || len(raw)%digestSize != 0 {
		return nil, &Error{Kind: verrors.KindInclusionProofMalformed, Cause: errBadProofLength}
	}
	count := len(raw) / digestSize
	out := make([][]byte, count)
	for i := 0; i < count; i++ {
		out[i] = raw[i*digestSize : (i+1)*digestSize]
	}
	return out, nil
}

// DecodeHexSiblings decodes a hex-encoded `inclusion_proof` field (as
// used by the sealed-subgraph leaf's own per-leaf proof, §3 Exposed
// leaf) into a sibling sequence.
func DecodeHexSiblings(encoded string, digestSize int) ([][]byte, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, &Error{Kind: verrors.KindInclusionProofMalformed, Cause: err}
	}
	if digestSize <= 0 || len(raw)%digestSize != 0 {
		return nil, &Error{Kind: verrors.KindInclusionProofMalformed, Cause: errBadProofLength}
	}
	count := len(raw) / digestSize
	out := make([][]byte, count)
	for i := 0; i < count; i++ {
		out[i] = raw[i*digestSize : (i+1)*digestSize]
	}
	return out, nil
}

var errBadProofLength = proofLengthError("proof byte length is not a multiple of the digest size")

type proofLengthError string

func (e proofLengthError) Error() string { return string(e) }

// Error wraps a Merkle proof-verification failure with a structured
// kind tag.
type Error struct {
	Kind  verrors.Kind
	Cause error
}

func (e *Error) Error() string { return string(e.Kind) + ": " + e.Cause.Error() }
func (e *Error) Unwrap() error { return e.Cause }
