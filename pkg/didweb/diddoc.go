// Copyright 2025 Certen Protocol

package didweb

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v4"
	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multibase"

	"github.com/certen/provenance-verifier/pkg/didkey"
	"github.com/certen/provenance-verifier/pkg/verrors"
)

// VerificationMethod is one entry of a DID document's
// verificationMethod array, modeling the three key encodings §4.6
// recognizes.
type VerificationMethod struct {
	ID                 string          `json:"id"`
	Type               string          `json:"type"`
	Controller         string          `json:"controller"`
	PublicKeyBase58    string          `json:"publicKeyBase58,omitempty"`
	PublicKeyMultibase string          `json:"publicKeyMultibase,omitempty"`
	PublicKeyJwk       json.RawMessage `json:"publicKeyJwk,omitempty"`
}

// Document is the subset of a W3C DID document this resolver needs.
type Document struct {
	ID                  string                `json:"id"`
	VerificationMethod  []VerificationMethod  `json:"verificationMethod"`
}

// ParseDocument decodes raw bytes into a Document.
func ParseDocument(raw []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &Error{Kind: verrors.KindDocumentMalformed, Message: err.Error()}
	}
	return &doc, nil
}

// SelectKey returns the Ed25519 public key bytes for keyID (matched by
// fragment suffix) or, if keyID is empty, the first Ed25519-capable
// verification method.
func (d *Document) SelectKey(keyID string) ([]byte, error) {
	for _, vm := range d.VerificationMethod {
		if keyID != "" && !strings.HasSuffix(vm.ID, keyID) {
			continue
		}
		key, err := extractKey(vm)
		if err != nil {
			continue
		}
		return key, nil
	}
	return nil, &Error{Kind: verrors.KindKeyNotFound, Message: "no matching Ed25519 verification method found"}
}

func extractKey(vm VerificationMethod) ([]byte, error) {
	switch {
	case vm.PublicKeyBase58 != "":
		return base58.Decode(vm.PublicKeyBase58)
	case vm.PublicKeyMultibase != "":
		_, data, err := multibase.Decode(vm.PublicKeyMultibase)
		if err != nil {
			return nil, err
		}
		if len(data) > len(didkey.Ed25519MulticodecPrefix) &&
			data[0] == didkey.Ed25519MulticodecPrefix[0] && data[1] == didkey.Ed25519MulticodecPrefix[1] {
			return data[len(didkey.Ed25519MulticodecPrefix):], nil
		}
		return data, nil
	case len(vm.PublicKeyJwk) > 0:
		var jwk jose.JSONWebKey
		if err := jwk.UnmarshalJSON(vm.PublicKeyJwk); err != nil {
			return nil, err
		}
		pub, ok := jwk.Key.(ed25519.PublicKey)
		if !ok {
			return nil, fmt.Errorf("JWK is not an Ed25519 (OKP) key")
		}
		return pub, nil
	default:
		return nil, fmt.Errorf("verification method carries no recognized key encoding")
	}
}
