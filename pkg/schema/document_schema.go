// Copyright 2025 Certen Protocol

package schema

// documentSchemaJSON is the embedded JSON Schema (Draft 2020-12)
// describing the document shape of SPEC_FULL.md §3. It is compiled
// once per Checker instance and reused across validation calls.
const documentSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://provenance.schemas.local/document.schema.json",
  "type": "object",
  "required": ["spec_version"],
  "additionalProperties": false,
  "properties": {
    "spec_version": {
      "type": "string",
      "pattern": "^[0-9]+\\.[0-9]+\\.[0-9]+$"
    },
    "profile": { "type": "string" },
    "imports": { "type": "array", "items": { "type": "string" } },
    "context": { "type": "object" },
    "tools": {
      "type": "array",
      "maxItems": 1000,
      "items": { "$ref": "#/$defs/tool" }
    },
    "entities": {
      "type": "array",
      "maxItems": 10000,
      "items": { "$ref": "#/$defs/entity" }
    },
    "operations": {
      "type": "array",
      "maxItems": 10000,
      "items": { "$ref": "#/$defs/operation" }
    }
  },
  "$defs": {
    "tool": {
      "type": "object",
      "required": ["id", "type"],
      "additionalProperties": false,
      "properties": {
        "id": { "type": "string", "maxLength": 256 },
        "type": { "enum": ["Software", "Machine", "Human", "AIModel", "Service"] },
        "vendor": { "type": "string" },
        "version": { "type": "string" },
        "capabilities": { "type": "object" },
        "identity": {
          "type": "object",
          "additionalProperties": false,
          "properties": {
            "did": { "type": "string", "pattern": "^did:[a-z0-9]+:.+$" },
            "certificate": { "type": "string" }
          }
        }
      }
    },
    "entity": {
      "type": "object",
      "required": ["id", "type", "version"],
      "additionalProperties": false,
      "properties": {
        "id": { "type": "string", "maxLength": 256 },
        "type": { "type": "string" },
        "version": { "type": "string" },
        "file": { "type": "string" },
        "uri": { "type": "string" },
        "hash": {
          "type": "string",
          "maxLength": 512,
          "pattern": "^(sha256|sha512|blake3):[a-f0-9]+$"
        },
        "derived_from": { "type": "array", "items": { "type": "string" } },
        "metadata": { "type": "object" }
      }
    },
    "operation": {
      "type": "object",
      "required": ["id", "type"],
      "additionalProperties": false,
      "properties": {
        "id": { "type": "string", "maxLength": 256 },
        "type": { "type": "string", "pattern": "^[a-z][a-z0-9_]*$" },
        "inputs": { "type": "array", "items": { "type": "string" } },
        "outputs": { "type": "array", "items": { "type": "string" } },
        "tool": { "type": "string" },
        "parameters": { "type": "object" },
        "fidelity": {
          "type": "object",
          "additionalProperties": false,
          "properties": {
            "expected": { "type": "string" },
            "measured": { "type": "object" }
          }
        },
        "metrics": { "type": "object" },
        "realized_capability": { "type": "object" },
        "attestation": { "$ref": "#/$defs/attestation" },
        "sealed": { "$ref": "#/$defs/sealed" }
      }
    },
    "attestation": {
      "type": "object",
      "required": ["mode", "timestamp"],
      "additionalProperties": false,
      "properties": {
        "mode": { "enum": ["basic", "signed", "verifiable", "zk", "sd-jwt", "bbs-plus"] },
        "timestamp": { "type": "string" },
        "signer": { "type": "string", "pattern": "^did:[a-z0-9]+:.+$" },
        "signature": { "type": "string", "maxLength": 4096, "pattern": "^(ed25519|ecdsa|rsa):.+$" },
        "delegation": { "type": "string" },
        "claims": {
          "type": "object",
          "additionalProperties": false,
          "properties": {
            "policy": { "type": "string" },
            "results": { "type": "object" }
          }
        },
        "transparency": {
          "type": "array",
          "items": { "$ref": "#/$defs/transparencyAnchor" }
        },
        "multisig": {
          "type": "object",
          "required": ["threshold", "signers"],
          "additionalProperties": false,
          "properties": {
            "threshold": { "type": "integer", "minimum": 0 },
            "signers": { "type": "array", "items": { "type": "string" } }
          }
        },
        "tee": { "type": "object" }
      }
    },
    "transparencyAnchor": {
      "type": "object",
      "required": ["log_id", "entry_id", "tree_size", "inclusion_proof", "leaf_index", "root_hash"],
      "additionalProperties": false,
      "properties": {
        "log_id": { "type": "string" },
        "entry_id": { "type": "string", "pattern": "^[a-f0-9]+$" },
        "leaf_index": { "type": "integer", "minimum": 0 },
        "root_hash": { "type": "string", "pattern": "^(sha256|sha512|blake3):[a-f0-9]+$" },
        "tree_size": { "type": "integer", "minimum": 1 },
        "inclusion_proof": { "type": "string" },
        "consistency_proof": { "type": "string" }
      }
    },
    "sealed": {
      "type": "object",
      "required": ["merkle_root"],
      "additionalProperties": false,
      "properties": {
        "merkle_root": { "type": "string", "maxLength": 512 },
        "leaves_exposed": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["role", "hash"],
            "additionalProperties": false,
            "properties": {
              "role": { "enum": ["sub_input", "sub_output", "intermediate"] },
              "hash": { "type": "string" },
              "inclusion_proof": { "type": "string" },
              "leaf_index": { "type": "integer", "minimum": 0 }
            }
          }
        },
        "policy_assertions": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["id", "result", "signer"],
            "additionalProperties": false,
            "properties": {
              "id": { "type": "string" },
              "result": { "enum": ["pass", "fail", "unknown"] },
              "signer": { "type": "string" },
              "signature": { "type": "string" },
              "evidence_hash": { "type": "string" }
            }
          }
        }
      }
    }
  }
}`
