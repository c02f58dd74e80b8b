// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package graphwriter

import "context"

// Store is the capability interface the writer requires, per §6's graph
// store contract. Any backend satisfying it — not just Neo4j — works;
// this keeps the writer unit-testable against an in-memory fake.
type Store interface {
	// EnsureSchema creates (if absent) the uniqueness constraint on
	// (owner_repo, scip_symbol) and secondary indices on global_uri,
	// entity_type, repo_name, file_path. Idempotent.
	EnsureSchema(ctx context.Context) error
	// MergeNodes batch-upserts nodes of a single entity_type label.
	// ingestion_repo is coalesced on write; every other field overwrites.
	MergeNodes(ctx context.Context, entityType string, nodes []NodeRecord) error
	// MergeEdges batch-upserts edges of a single relationship_type.
	MergeEdges(ctx context.Context, relationshipType string, edges []EdgeRecord) error
	// MergeFiles batch-upserts File nodes and their DEFINED_IN edges.
	MergeFiles(ctx context.Context, files []FileNode, edges []EdgeRecord) error
	// VerifyConnectivity checks the store is reachable, used at startup
	// and surfaced as StoreUnavailable on failure.
	VerifyConnectivity(ctx context.Context) error
	// PurgeRepo deletes every node this store ingested with the given
	// owner_repo, along with their incident edges, per the `purge`
	// command's repo-scoped cleanup. Nodes for which repoName is only
	// the ingestion_repo (stubs owned elsewhere) are left untouched.
	PurgeRepo(ctx context.Context, repoName string) error
}
