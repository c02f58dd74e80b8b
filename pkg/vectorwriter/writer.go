// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package vectorwriter

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/kraklabs/cxxgraph/pkg/retry"
)

// Options configures a Writer.
type Options struct {
	Collection  string
	Dimension   int
	Recreate    bool // pass through to EnsureCollection
	Batch       BatchConfig
	RetryConfig retry.Config
	IsRetryable retry.IsRetryable
}

func (o Options) withDefaults() Options {
	if o.Batch.MaxEntities == 0 && o.Batch.MaxChars == 0 {
		o.Batch = DefaultBatchConfig()
	}
	if o.RetryConfig.MaxAttempts == 0 {
		o.RetryConfig = retry.DefaultConfig()
	}
	if o.IsRetryable == nil {
		o.IsRetryable = IsTransientError
	}
	return o
}

// Writer drives the per-repo Vector Writer step described in §4.6.
type Writer struct {
	Embedder Embedder
	Store    Store
	Metrics  *Metrics
	Options  Options
	Logger   *slog.Logger
}

// New builds a Writer with defaulted batch and retry configuration.
func New(embedder Embedder, store Store, opts Options, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{Embedder: embedder, Store: store, Metrics: DefaultMetrics(), Options: opts.withDefaults(), Logger: logger}
}

// Write implements §4.6's pipeline over an in-memory entity slice:
// ensure the collection, batch under dual count/char budgets, embed and
// upsert each batch with retry, and report run stats.
func (w *Writer) Write(ctx context.Context, entities []Entity) (RunStats, error) {
	stats := RunStats{EntitiesSeen: len(entities), DroppedByReason: map[DroppedReason]int{}}
	if len(entities) == 0 {
		return stats, nil
	}

	if err := w.Store.EnsureCollection(ctx, w.Options.Collection, w.Options.Dimension, w.Options.Recreate); err != nil {
		return stats, fmt.Errorf("ensure collection: %w", err)
	}

	batches, truncated := batchEntities(entities, w.Options.Batch)
	stats.TextsTruncated = truncated
	w.Metrics.TextsTruncated.Add(float64(truncated))

	for _, batch := range batches {
		w.writeBatch(ctx, batch, &stats)
	}

	for reason, count := range stats.DroppedByReason {
		w.Metrics.DroppedByReason.WithLabelValues(string(reason)).Add(float64(count))
	}

	return stats, nil
}

// WriteJSONL reads newline-delimited Entity Records from r in chunks of
// chunkSize and runs each chunk through Write, accumulating RunStats
// across chunks so a large extractor output never has to fit in memory
// at once.
func (w *Writer) WriteJSONL(ctx context.Context, r io.Reader, chunkSize int) (RunStats, error) {
	if chunkSize <= 0 {
		chunkSize = 500
	}

	total := RunStats{DroppedByReason: map[DroppedReason]int{}}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	chunk := make([]Entity, 0, chunkSize)
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		stats, err := w.Write(ctx, chunk)
		mergeRunStats(&total, stats)
		chunk = chunk[:0]
		return err
	}

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entity
		if err := json.Unmarshal(line, &e); err != nil {
			return total, fmt.Errorf("vector_writer: decode entity record: %w", err)
		}
		chunk = append(chunk, e)
		if len(chunk) >= chunkSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return total, fmt.Errorf("vector_writer: scan entity stream: %w", err)
	}
	if err := flush(); err != nil {
		return total, err
	}

	return total, nil
}

func mergeRunStats(dst *RunStats, src RunStats) {
	dst.EntitiesSeen += src.EntitiesSeen
	dst.BatchesSent += src.BatchesSent
	dst.BatchesFailed += src.BatchesFailed
	dst.PointsUpserted += src.PointsUpserted
	dst.RetryAttempts += src.RetryAttempts
	dst.TextsTruncated += src.TextsTruncated
	for reason, count := range src.DroppedByReason {
		dst.DroppedByReason[reason] += count
	}
}

func (w *Writer) writeBatch(ctx context.Context, batch entityBatch, stats *RunStats) {
	vectors, err := w.Embedder.Embed(ctx, batch.texts, w.Options.Dimension)
	if err != nil {
		stats.DroppedByReason[ReasonEmbeddingFailure] += len(batch.entities)
		w.Logger.Warn("vector_writer.embedding_failed", "batch_size", len(batch.entities), "error", err)
		return
	}
	if len(vectors) != len(batch.entities) {
		stats.DroppedByReason[ReasonEmbeddingCountMismatch] += len(batch.entities)
		w.Logger.Warn("vector_writer.embedding_count_mismatch", "expected", len(batch.entities), "got", len(vectors))
		return
	}
	for _, v := range vectors {
		if len(v) != w.Options.Dimension {
			stats.DroppedByReason[ReasonVectorDimensionMismatch] += len(batch.entities)
			w.Logger.Warn("vector_writer.vector_dimension_mismatch", "expected", w.Options.Dimension, "got", len(v))
			return
		}
	}

	points := make([]Point, len(batch.entities))
	for i, e := range batch.entities {
		points[i] = buildPoint(e, vectors[i])
	}

	err = retry.Do(ctx, w.Options.RetryConfig, w.Options.IsRetryable, func(ctx context.Context) error {
		return w.Store.Upsert(ctx, w.Options.Collection, points)
	})
	stats.BatchesSent++
	if err != nil {
		stats.BatchesFailed++
		stats.DroppedByReason[ReasonUpsertFailed] += len(points)
		w.Metrics.BatchesFailed.Inc()
		w.Logger.Warn("vector_writer.upsert_failed", "batch_size", len(points), "error", err)
		return
	}

	stats.PointsUpserted += len(points)
	w.Metrics.PointsUpserted.Add(float64(len(points)))
	w.Metrics.BatchesSent.Inc()
}
