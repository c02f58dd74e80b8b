// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package vectorwriter

import (
	"context"
	"fmt"
)

// Embedder is the batch embedding capability: one call per batch,
// texts[i] corresponds to vectors[i] on success.
type Embedder interface {
	Embed(ctx context.Context, texts []string, dimension int) ([][]float32, error)
}

// Store is the vector-store capability interface, per §4.6's collection
// init and idempotent-upsert contract.
type Store interface {
	// EnsureCollection creates the collection (with keyword-type payload
	// indices on global_uri, repo_name, file_path, entity_type,
	// entity_name) if absent. If it exists with a different vector size
	// and recreate is false, returns ErrDimensionMismatch.
	EnsureCollection(ctx context.Context, name string, dimension int, recreate bool) error
	// Upsert writes points idempotently (same ID overwrites).
	Upsert(ctx context.Context, collection string, points []Point) error
	// DeleteByRepo removes every point carrying the given repo_name
	// payload field from the collection, for the `purge` command's
	// repo-scoped cleanup.
	DeleteByRepo(ctx context.Context, collection string, repoName string) error
}

// ErrDimensionMismatch is returned by EnsureCollection when an existing
// collection's vector size doesn't match the requested dimension and the
// caller did not pass recreate=true.
type ErrDimensionMismatch struct {
	Collection string
	Existing   int
	Requested  int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vectorwriter: collection %q has vector size %d, requested %d (pass recreate to rebuild)",
		e.Collection, e.Existing, e.Requested)
}
