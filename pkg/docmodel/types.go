// Copyright 2025 Certen Protocol
//
// Package docmodel holds the typed provenance-document graph: Document,
// Tool, Entity, Operation, Attestation, Sealed commitment and
// Transparency anchor. Nodes are addressed by stable string identifiers,
// never by pointer, per the document's own reference model.
package docmodel

// Document is the root container: spec_version plus three ordered
// sequences of Tools, Entities and Operations.
type Document struct {
	SpecVersion string                 `json:"spec_version" yaml:"spec_version"`
	Profile     string                 `json:"profile,omitempty" yaml:"profile,omitempty"`
	Imports     []string               `json:"imports,omitempty" yaml:"imports,omitempty"`
	Context     map[string]interface{} `json:"context,omitempty" yaml:"context,omitempty"`
	Tools       []Tool                 `json:"tools,omitempty" yaml:"tools,omitempty"`
	Entities    []Entity               `json:"entities,omitempty" yaml:"entities,omitempty"`
	Operations  []Operation            `json:"operations,omitempty" yaml:"operations,omitempty"`

	// BaseDir is the enclosing directory the document was loaded from;
	// it is not part of the wire format and is set by the loader so the
	// Hash Verifier can resolve relative file references.
	BaseDir string `json:"-" yaml:"-"`
}

// ToolType is the closed set of actor kinds.
type ToolType string

const (
	ToolSoftware ToolType = "Software"
	ToolMachine  ToolType = "Machine"
	ToolHuman    ToolType = "Human"
	ToolAIModel  ToolType = "AIModel"
	ToolService  ToolType = "Service"
)

// Tool is an actor that performs operations.
type Tool struct {
	ID           string                 `json:"id" yaml:"id"`
	Type         ToolType               `json:"type" yaml:"type"`
	Vendor       string                 `json:"vendor,omitempty" yaml:"vendor,omitempty"`
	Version      string                 `json:"version,omitempty" yaml:"version,omitempty"`
	Capabilities map[string]interface{} `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Identity     *ToolIdentity          `json:"identity,omitempty" yaml:"identity,omitempty"`
}

// ToolIdentity optionally binds a Tool to a DID and/or certificate.
type ToolIdentity struct {
	DID         string `json:"did,omitempty" yaml:"did,omitempty"`
	Certificate string `json:"certificate,omitempty" yaml:"certificate,omitempty"`
}

// Entity is an artifact at rest.
type Entity struct {
	ID           string                 `json:"id" yaml:"id"`
	Type         string                 `json:"type" yaml:"type"`
	Version      string                 `json:"version" yaml:"version"`
	File         string                 `json:"file,omitempty" yaml:"file,omitempty"`
	URI          string                 `json:"uri,omitempty" yaml:"uri,omitempty"`
	Hash         string                 `json:"hash,omitempty" yaml:"hash,omitempty"`
	DerivedFrom  []string               `json:"derived_from,omitempty" yaml:"derived_from,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// RefID returns the id@version reference form for this entity.
func (e Entity) RefID() string { return e.ID + "@" + e.Version }

// Fidelity describes expected and measured information loss across a
// transformation.
type Fidelity struct {
	Expected string             `json:"expected,omitempty" yaml:"expected,omitempty"`
	Measured map[string]float64 `json:"measured,omitempty" yaml:"measured,omitempty"`
}

// Operation is a transformation from input entities to output entities.
type Operation struct {
	ID                  string                 `json:"id" yaml:"id"`
	Type                string                 `json:"type" yaml:"type"`
	Inputs              []string               `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs             []string               `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Tool                string                 `json:"tool,omitempty" yaml:"tool,omitempty"`
	Parameters          map[string]interface{} `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Fidelity            *Fidelity              `json:"fidelity,omitempty" yaml:"fidelity,omitempty"`
	Metrics             map[string]interface{} `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	RealizedCapability  map[string]interface{} `json:"realized_capability,omitempty" yaml:"realized_capability,omitempty"`
	Attestation         *Attestation           `json:"attestation,omitempty" yaml:"attestation,omitempty"`
	Sealed              *SealedCommitment      `json:"sealed,omitempty" yaml:"sealed,omitempty"`
}

// AttestationMode is the closed set of attestation variants.
type AttestationMode string

const (
	AttestationBasic      AttestationMode = "basic"
	AttestationSigned     AttestationMode = "signed"
	AttestationVerifiable AttestationMode = "verifiable"
	AttestationZK         AttestationMode = "zk"
	AttestationSDJWT      AttestationMode = "sd-jwt"
	AttestationBBSPlus    AttestationMode = "bbs-plus"
)

// Multisig describes an m-of-n threshold signer set.
type Multisig struct {
	Threshold int      `json:"threshold" yaml:"threshold"`
	Signers   []string `json:"signers" yaml:"signers"`
}

// PolicyClaims is the policy-result envelope carried by an attestation.
type PolicyClaims struct {
	Policy  string                 `json:"policy" yaml:"policy"`
	Results map[string]interface{} `json:"results" yaml:"results"`
}

// Attestation is a timestamped, optionally signed claim over an operation.
type Attestation struct {
	Mode          AttestationMode        `json:"mode" yaml:"mode"`
	Timestamp     string                 `json:"timestamp" yaml:"timestamp"`
	Signer        string                 `json:"signer,omitempty" yaml:"signer,omitempty"`
	Signature     string                 `json:"signature,omitempty" yaml:"signature,omitempty"`
	Delegation    string                 `json:"delegation,omitempty" yaml:"delegation,omitempty"`
	Claims        *PolicyClaims          `json:"claims,omitempty" yaml:"claims,omitempty"`
	Transparency  []TransparencyAnchor   `json:"transparency,omitempty" yaml:"transparency,omitempty"`
	Multisig      *Multisig              `json:"multisig,omitempty" yaml:"multisig,omitempty"`
	TEE           map[string]interface{} `json:"tee,omitempty" yaml:"tee,omitempty"`
}

// LeafRole is the closed set of sealed-subgraph leaf roles.
type LeafRole string

const (
	LeafSubInput     LeafRole = "sub_input"
	LeafSubOutput    LeafRole = "sub_output"
	LeafIntermediate LeafRole = "intermediate"
)

// ExposedLeaf is one disclosed leaf of a sealed subgraph, optionally
// carrying its own inclusion proof under the subgraph's merkle_root.
type ExposedLeaf struct {
	Role           LeafRole `json:"role" yaml:"role"`
	Hash           string   `json:"hash" yaml:"hash"`
	InclusionProof string   `json:"inclusion_proof,omitempty" yaml:"inclusion_proof,omitempty"`
	LeafIndex      *uint64  `json:"leaf_index,omitempty" yaml:"leaf_index,omitempty"`
}

// PolicyResult is the closed set of policy-assertion outcomes.
type PolicyResult string

const (
	PolicyPass    PolicyResult = "pass"
	PolicyFail    PolicyResult = "fail"
	PolicyUnknown PolicyResult = "unknown"
)

// PolicyAssertion is an independently signed claim about a sealed subgraph.
type PolicyAssertion struct {
	ID            string       `json:"id" yaml:"id"`
	Result        PolicyResult `json:"result" yaml:"result"`
	Signer        string       `json:"signer" yaml:"signer"`
	Signature     string       `json:"signature,omitempty" yaml:"signature,omitempty"`
	EvidenceHash  string       `json:"evidence_hash,omitempty" yaml:"evidence_hash,omitempty"`
}

// SealedCommitment seals an opaque subgraph behind a Merkle root.
type SealedCommitment struct {
	MerkleRoot       string            `json:"merkle_root" yaml:"merkle_root"`
	LeavesExposed    []ExposedLeaf     `json:"leaves_exposed,omitempty" yaml:"leaves_exposed,omitempty"`
	PolicyAssertions []PolicyAssertion `json:"policy_assertions,omitempty" yaml:"policy_assertions,omitempty"`
}

// TransparencyAnchor references an entry in an append-only log.
//
// LeafIndex and RootHash are not named in the distilled spec's prose
// (which lists log_id/entry_id/tree_size/inclusion_proof/
// consistency_proof only) but an RFC 6962 inclusion proof is
// unverifiable without both a leaf position and a claimed root — the
// spec's own §4.8 contract requires "a claimed root... a leaf index...
// the tree size... an ordered sequence of sibling digests" as inputs.
// Per §3's preamble ("field names are suggestions, not mandates") this
// implementation adds the two fields offline verification needs;
// entry_id remains the opaque per-log entry identifier used for
// correlation/logging, not the verification input itself.
type TransparencyAnchor struct {
	LogID            string `json:"log_id" yaml:"log_id"`
	EntryID          string `json:"entry_id" yaml:"entry_id"`
	LeafIndex        uint64 `json:"leaf_index" yaml:"leaf_index"`
	RootHash         string `json:"root_hash" yaml:"root_hash"`
	TreeSize         uint64 `json:"tree_size" yaml:"tree_size"`
	InclusionProof   string `json:"inclusion_proof" yaml:"inclusion_proof"`
	ConsistencyProof string `json:"consistency_proof,omitempty" yaml:"consistency_proof,omitempty"`
}
