// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package graphwriter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/cxxgraph/pkg/catalog"
	"github.com/kraklabs/cxxgraph/pkg/retry"
	"github.com/kraklabs/cxxgraph/pkg/scipreader"
	"github.com/kraklabs/cxxgraph/pkg/scipsymbol"
)

// fakeStore is an in-memory Store used to exercise Writer without a real
// Neo4j backend. failNodeBatches makes the first N MergeNodes calls fail,
// to exercise the retry path.
type fakeStore struct {
	schemaCalls    int
	nodeBatches    [][]NodeRecord
	edgeBatches    [][]EdgeRecord
	fileBatches    int
	failFirstNodes int
	nodeAttempts   int
}

func (f *fakeStore) EnsureSchema(ctx context.Context) error {
	f.schemaCalls++
	return nil
}

func (f *fakeStore) MergeNodes(ctx context.Context, entityType string, nodes []NodeRecord) error {
	f.nodeAttempts++
	if f.nodeAttempts <= f.failFirstNodes {
		return errors.New("transient store failure")
	}
	f.nodeBatches = append(f.nodeBatches, nodes)
	return nil
}

func (f *fakeStore) MergeEdges(ctx context.Context, relationshipType string, edges []EdgeRecord) error {
	f.edgeBatches = append(f.edgeBatches, edges)
	return nil
}

func (f *fakeStore) MergeFiles(ctx context.Context, files []FileNode, edges []EdgeRecord) error {
	f.fileBatches++
	return nil
}

func (f *fakeStore) VerifyConnectivity(ctx context.Context) error { return nil }

func (f *fakeStore) PurgeRepo(ctx context.Context, repoName string) error { return nil }

func testWriterOptions() Options {
	return Options{
		BatchSize:   2,
		RetryConfig: retry.Config{MaxAttempts: 3, BaseDelay: 0, MaxDelay: 0},
		IsRetryable: func(error) bool { return true },
	}
}

func TestWriterWriteCallsEnsureSchemaOnce(t *testing.T) {
	store := &fakeStore{}
	w := New(store, testWriterOptions(), nil)

	cfg := testBuildConfig()
	repo := catalog.RepoParseResult{
		RepoName: "repo-a",
		Result:   scipreader.ParseResult{Symbols: []scipreader.SymbolDef{classDef("sym1", "Foo", "ns", scipsymbol.Keep)}},
	}
	cat := catalog.Build([]catalog.RepoParseResult{repo}, nil, cfg)

	_, err := w.Write(context.Background(), []catalog.RepoParseResult{repo}, cat, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, store.schemaCalls)
}

func TestWriterBatchesNodesBySize(t *testing.T) {
	store := &fakeStore{}
	w := New(store, testWriterOptions(), nil)

	cfg := testBuildConfig()
	repo := catalog.RepoParseResult{
		RepoName: "repo-a",
		Result: scipreader.ParseResult{
			Symbols: []scipreader.SymbolDef{
				classDef("sym1", "A", "ns", scipsymbol.Keep),
				classDef("sym2", "B", "ns", scipsymbol.Keep),
				classDef("sym3", "C", "ns", scipsymbol.Keep),
			},
		},
	}
	cat := catalog.Build([]catalog.RepoParseResult{repo}, nil, cfg)

	stats, err := w.Write(context.Background(), []catalog.RepoParseResult{repo}, cat, cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.NodesCreated)
	// BatchSize=2 over 3 nodes -> two batches (2 + 1)
	assert.Len(t, store.nodeBatches, 2)
}

func TestWriterRetriesTransientBatchFailure(t *testing.T) {
	store := &fakeStore{failFirstNodes: 1}
	w := New(store, testWriterOptions(), nil)

	cfg := testBuildConfig()
	repo := catalog.RepoParseResult{
		RepoName: "repo-a",
		Result:   scipreader.ParseResult{Symbols: []scipreader.SymbolDef{classDef("sym1", "A", "ns", scipsymbol.Keep)}},
	}
	cat := catalog.Build([]catalog.RepoParseResult{repo}, nil, cfg)

	stats, err := w.Write(context.Background(), []catalog.RepoParseResult{repo}, cat, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.NodesCreated)
	assert.Equal(t, 0, stats.BatchesFailed)
	assert.Equal(t, 2, store.nodeAttempts, "one failed attempt then one successful retry")
}

func TestWriterRecordsPermanentBatchFailure(t *testing.T) {
	store := &fakeStore{failFirstNodes: 100}
	opts := testWriterOptions()
	opts.RetryConfig.MaxAttempts = 2
	w := New(store, opts, nil)

	cfg := testBuildConfig()
	repo := catalog.RepoParseResult{
		RepoName: "repo-a",
		Result:   scipreader.ParseResult{Symbols: []scipreader.SymbolDef{classDef("sym1", "A", "ns", scipsymbol.Keep)}},
	}
	cat := catalog.Build([]catalog.RepoParseResult{repo}, nil, cfg)

	stats, err := w.Write(context.Background(), []catalog.RepoParseResult{repo}, cat, cfg)
	require.NoError(t, err, "a failed batch does not fail the whole run")
	assert.Equal(t, 1, stats.BatchesFailed)
	assert.Equal(t, 0, stats.NodesCreated)
	assert.Empty(t, store.nodeBatches)
}

func TestWriterWritesFileBatchAndDroppedEdgeMetrics(t *testing.T) {
	store := &fakeStore{}
	w := New(store, testWriterOptions(), nil)

	cfg := testBuildConfig()
	repo := catalog.RepoParseResult{
		RepoName: "repo-a",
		Result:   scipreader.ParseResult{Symbols: []scipreader.SymbolDef{classDef("sym1", "A", "ns", scipsymbol.Keep)}},
	}
	cat := catalog.Build([]catalog.RepoParseResult{repo}, nil, cfg)

	stats, err := w.Write(context.Background(), []catalog.RepoParseResult{repo}, cat, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, store.fileBatches)
	assert.NotNil(t, stats.DroppedEdgesByReason)
}
