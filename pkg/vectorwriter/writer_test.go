// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package vectorwriter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/cxxgraph/pkg/retry"
)

type fakeEmbedder struct {
	dimension      int
	failFirstCalls int
	calls          int
	wrongCount     bool
	wrongDimension bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string, dimension int) ([][]float32, error) {
	f.calls++
	if f.calls <= f.failFirstCalls {
		return nil, NewTransientError(errors.New("rate limited"), 429)
	}
	n := len(texts)
	if f.wrongCount {
		n--
	}
	vectors := make([][]float32, n)
	for i := range vectors {
		dim := dimension
		if f.wrongDimension {
			dim--
		}
		vectors[i] = make([]float32, dim)
	}
	return vectors, nil
}

type fakeVectorStore struct {
	ensureCalls   int
	upsertBatches [][]Point
}

func (f *fakeVectorStore) EnsureCollection(ctx context.Context, name string, dimension int, recreate bool) error {
	f.ensureCalls++
	return nil
}

func (f *fakeVectorStore) Upsert(ctx context.Context, collection string, points []Point) error {
	f.upsertBatches = append(f.upsertBatches, points)
	return nil
}

func (f *fakeVectorStore) DeleteByRepo(ctx context.Context, collection string, repoName string) error {
	return nil
}

func testWriterOptions() Options {
	return Options{
		Collection: "entities", Dimension: 4,
		Batch:       BatchConfig{MaxEntities: 2, MaxChars: 10000, CharBudget: 10000},
		RetryConfig: retry.Config{MaxAttempts: 3, BaseDelay: 0, MaxDelay: 0},
		IsRetryable: IsTransientError,
	}
}

func TestWriterEnsuresCollectionOnce(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeVectorStore{}
	w := New(embedder, store, testWriterOptions(), nil)

	entities := []Entity{testEntity("a", "", "x"), testEntity("b", "", "y")}
	_, err := w.Write(context.Background(), entities)
	require.NoError(t, err)
	assert.Equal(t, 1, store.ensureCalls)
}

func TestWriterUpsertsOnePointPerEntity(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeVectorStore{}
	w := New(embedder, store, testWriterOptions(), nil)

	entities := []Entity{testEntity("a", "", "x"), testEntity("b", "", "y"), testEntity("c", "", "z")}
	stats, err := w.Write(context.Background(), entities)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.PointsUpserted)
	assert.Len(t, store.upsertBatches, 2, "MaxEntities=2 over 3 entities -> two batches")
}

func TestWriterDropsEntireBatchOnEmbeddingFailure(t *testing.T) {
	embedder := &fakeEmbedder{failFirstCalls: 100}
	opts := testWriterOptions()
	opts.IsRetryable = func(error) bool { return false } // permanent from the writer's perspective
	store := &fakeVectorStore{}
	w := New(embedder, store, opts, nil)

	entities := []Entity{testEntity("a", "", "x"), testEntity("b", "", "y")}
	stats, err := w.Write(context.Background(), entities)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.PointsUpserted)
	assert.Equal(t, 2, stats.DroppedByReason[ReasonEmbeddingFailure])
}

func TestWriterDropsBatchOnEmbeddingCountMismatch(t *testing.T) {
	embedder := &fakeEmbedder{wrongCount: true}
	store := &fakeVectorStore{}
	w := New(embedder, store, testWriterOptions(), nil)

	entities := []Entity{testEntity("a", "", "x"), testEntity("b", "", "y")}
	stats, err := w.Write(context.Background(), entities)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.DroppedByReason[ReasonEmbeddingCountMismatch])
}

func TestWriterDropsBatchOnVectorDimensionMismatch(t *testing.T) {
	embedder := &fakeEmbedder{wrongDimension: true}
	store := &fakeVectorStore{}
	w := New(embedder, store, testWriterOptions(), nil)

	entities := []Entity{testEntity("a", "", "x")}
	stats, err := w.Write(context.Background(), entities)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DroppedByReason[ReasonVectorDimensionMismatch])
}

func TestWriterDoesNotRetryEmbeddingCalls(t *testing.T) {
	// Per §4.6, embed(texts, dimension) is called exactly once per batch;
	// a failure drops the whole batch rather than retrying.
	embedder := &fakeEmbedder{failFirstCalls: 1}
	store := &fakeVectorStore{}
	w := New(embedder, store, testWriterOptions(), nil)

	entities := []Entity{testEntity("a", "", "x")}
	stats, err := w.Write(context.Background(), entities)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.PointsUpserted)
	assert.Equal(t, 1, stats.DroppedByReason[ReasonEmbeddingFailure])
	assert.Equal(t, 1, embedder.calls)
}

func TestWriteJSONLChunksAndDelegates(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeVectorStore{}
	w := New(embedder, store, testWriterOptions(), nil)

	input := strings.NewReader(strings.Join([]string{
		`{"global_uri":"repo::src/a.cc::Function::a","repo_name":"repo","file_path":"src/a.cc","entity_type":"Function","entity_name":"a","code_text":"x","start_line":1,"end_line":2}`,
		`{"global_uri":"repo::src/b.cc::Function::b","repo_name":"repo","file_path":"src/b.cc","entity_type":"Function","entity_name":"b","code_text":"y","start_line":1,"end_line":2}`,
	}, "\n"))

	stats, err := w.WriteJSONL(context.Background(), input, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.EntitiesSeen)
	assert.Equal(t, 2, stats.PointsUpserted)
}
