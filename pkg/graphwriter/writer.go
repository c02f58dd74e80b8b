// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package graphwriter

import (
	"context"
	"log/slog"

	"github.com/kraklabs/cxxgraph/pkg/catalog"
	"github.com/kraklabs/cxxgraph/pkg/retry"
	"github.com/kraklabs/cxxgraph/pkg/scipsymbol"
)

// Options configures a Writer.
type Options struct {
	BatchSize   int // default 500, per §4.5
	RetryConfig retry.Config
	IsRetryable retry.IsRetryable
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 500
	}
	if o.RetryConfig.MaxAttempts == 0 {
		o.RetryConfig = retry.DefaultConfig()
	}
	if o.IsRetryable == nil {
		o.IsRetryable = func(error) bool { return true }
	}
	return o
}

// Writer drives the global graph-ingestion step described in §4.5/§4.7:
// it runs once per pipeline run, after every repo has been parsed.
type Writer struct {
	Store   Store
	Metrics *Metrics
	Options Options
	Logger  *slog.Logger
}

// New builds a Writer with defaulted batch size and retry policy.
func New(store Store, opts Options, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{Store: store, Metrics: DefaultMetrics(), Options: opts.withDefaults(), Logger: logger}
}

// Write runs EnsureSchema once, builds the deduplicated node/edge set
// across every repo's parse result, and writes it in the three phases of
// §4.5: nodes grouped by entity_type, edges grouped by relationship_type,
// then File nodes and DEFINED_IN edges.
func (w *Writer) Write(ctx context.Context, repoResults []catalog.RepoParseResult, cat *catalog.Catalog, cfg scipsymbol.Config) (RunStats, error) {
	if err := w.Store.EnsureSchema(ctx); err != nil {
		return RunStats{}, err
	}

	built := Build(repoResults, cat, cfg)
	stats := built.stats

	for entityType, nodes := range built.nodesByType {
		w.writeNodeBatches(ctx, string(entityType), nodes, &stats)
	}
	for relType, edges := range built.edgesByType {
		w.writeEdgeBatches(ctx, string(relType), edges, &stats)
	}
	w.writeFileBatches(ctx, built.files, built.definedIn, &stats)

	for reason, count := range stats.DroppedEdgesByReason {
		w.Metrics.DroppedEdges.WithLabelValues(string(reason)).Add(float64(count))
		w.Logger.Warn("graph_writer.edges_dropped", "reason", reason, "count", count)
	}

	return stats, nil
}

func (w *Writer) writeNodeBatches(ctx context.Context, entityType string, nodes []NodeRecord, stats *RunStats) {
	for _, batch := range chunkNodes(nodes, w.Options.BatchSize) {
		err := retry.Do(ctx, w.Options.RetryConfig, w.Options.IsRetryable, func(ctx context.Context) error {
			return w.Store.MergeNodes(ctx, entityType, batch)
		})
		stats.BatchesSent++
		if err != nil {
			stats.BatchesFailed++
			stats.Errors++
			w.Metrics.BatchesFailed.Inc()
			w.Logger.Warn("graph_writer.node_batch_failed", "entity_type", entityType, "size", len(batch), "error", err)
			continue
		}
		stats.NodesCreated += len(batch)
		w.Metrics.NodesCreated.Add(float64(len(batch)))
		w.Metrics.BatchesSent.Inc()
	}
}

func (w *Writer) writeEdgeBatches(ctx context.Context, relType string, edges []EdgeRecord, stats *RunStats) {
	for _, batch := range chunkEdges(edges, w.Options.BatchSize) {
		err := retry.Do(ctx, w.Options.RetryConfig, w.Options.IsRetryable, func(ctx context.Context) error {
			return w.Store.MergeEdges(ctx, relType, batch)
		})
		stats.BatchesSent++
		if err != nil {
			stats.BatchesFailed++
			stats.Errors++
			w.Metrics.BatchesFailed.Inc()
			w.Logger.Warn("graph_writer.edge_batch_failed", "relationship_type", relType, "size", len(batch), "error", err)
			continue
		}
		stats.EdgesCreated += len(batch)
		w.Metrics.EdgesCreated.Add(float64(len(batch)))
		w.Metrics.BatchesSent.Inc()
	}
}

func (w *Writer) writeFileBatches(ctx context.Context, files []FileNode, edges []EdgeRecord, stats *RunStats) {
	if len(files) == 0 && len(edges) == 0 {
		return
	}
	err := retry.Do(ctx, w.Options.RetryConfig, w.Options.IsRetryable, func(ctx context.Context) error {
		return w.Store.MergeFiles(ctx, files, edges)
	})
	stats.BatchesSent++
	if err != nil {
		stats.BatchesFailed++
		stats.Errors++
		w.Metrics.BatchesFailed.Inc()
		w.Logger.Warn("graph_writer.file_batch_failed", "files", len(files), "edges", len(edges), "error", err)
		return
	}
	stats.EdgesCreated += len(edges)
	w.Metrics.NodesCreated.Add(float64(len(files)))
	w.Metrics.EdgesCreated.Add(float64(len(edges)))
	w.Metrics.BatchesSent.Inc()
}

func chunkNodes(nodes []NodeRecord, size int) [][]NodeRecord {
	var batches [][]NodeRecord
	for i := 0; i < len(nodes); i += size {
		end := i + size
		if end > len(nodes) {
			end = len(nodes)
		}
		batches = append(batches, nodes[i:end])
	}
	return batches
}

func chunkEdges(edges []EdgeRecord, size int) [][]EdgeRecord {
	var batches [][]EdgeRecord
	for i := 0; i < len(edges); i += size {
		end := i + size
		if end > len(edges) {
			end = len(edges)
		}
		batches = append(batches, edges[i:end])
	}
	return batches
}
