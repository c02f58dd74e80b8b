// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

// Package vectorwriter converts entity records produced by the external
// C++ source extractor into vector-store points: it builds embedding
// text, batches under dual count/character budgets, calls a batch
// embedding capability once per batch, and upserts idempotently.
package vectorwriter

import "github.com/kraklabs/cxxgraph/pkg/identity"

// Entity is the record produced by the external extractor and consumed
// here, per §3's Entity Record contract.
type Entity struct {
	GlobalURI       string              `json:"global_uri"`
	RepoName        string              `json:"repo_name"`
	FilePath        string              `json:"file_path"` // repo-relative
	EntityType      identity.EntityType `json:"entity_type"`
	EntityName      string              `json:"entity_name"` // canonical qualified name
	Docstring       string              `json:"docstring,omitempty"`
	CodeText        string              `json:"code_text"` // entity source span
	StartLine       int                 `json:"start_line"` // 1-indexed
	EndLine         int                 `json:"end_line"`   // 1-indexed
	IsTemplated     bool                `json:"is_templated"`
	FunctionSigHash string              `json:"function_sig_hash,omitempty"`
}

// IdentityKey implements §3's identity_key rule: signature-discriminated
// for functions that carry a hash, otherwise the bare Global URI.
func (e Entity) IdentityKey() string {
	if e.EntityType == identity.Function && e.FunctionSigHash != "" {
		return e.GlobalURI + identity.Separator + e.FunctionSigHash
	}
	return e.GlobalURI
}

// Point is a vector-store record built from an Entity.
type Point struct {
	ID      string // UUIDv5(identity_key), string form
	Vector  []float32
	Payload map[string]any
}

// DroppedReason is the closed set of batch/point drop reasons.
type DroppedReason string

const (
	ReasonEmbeddingFailure        DroppedReason = "embedding_failure"
	ReasonEmbeddingCountMismatch  DroppedReason = "embedding_count_mismatch"
	ReasonVectorDimensionMismatch DroppedReason = "vector_dimension_mismatch"
	ReasonUpsertFailed            DroppedReason = "upsert_failed"
)

// RunStats accumulates the metrics a Vector Writer run emits per §4.6.
type RunStats struct {
	EntitiesSeen    int
	BatchesSent     int
	BatchesFailed   int
	PointsUpserted  int
	RetryAttempts   int
	TextsTruncated  int
	DroppedByReason map[DroppedReason]int
}

// UpsertSuccessRate is points_upserted / entities_seen, or 1.0 when no
// entities were seen (vacuously successful).
func (s RunStats) UpsertSuccessRate() float64 {
	if s.EntitiesSeen == 0 {
		return 1.0
	}
	return float64(s.PointsUpserted) / float64(s.EntitiesSeen)
}
