// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package vectorwriter

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus series emitted per Vector Writer run.
type Metrics struct {
	PointsUpserted  prometheus.Counter
	BatchesSent     prometheus.Counter
	BatchesFailed   prometheus.Counter
	RetryAttempts   prometheus.Counter
	TextsTruncated  prometheus.Counter
	DroppedByReason *prometheus.CounterVec
}

var (
	registerOnce   sync.Once
	defaultMetrics *Metrics
)

// DefaultMetrics returns the process-wide Metrics, registering it with
// the default Prometheus registry exactly once.
func DefaultMetrics() *Metrics {
	registerOnce.Do(func() {
		defaultMetrics = &Metrics{
			PointsUpserted: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "cxxgraph", Subsystem: "vector_writer", Name: "points_upserted_total",
				Help: "Vector points upserted across all runs.",
			}),
			BatchesSent: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "cxxgraph", Subsystem: "vector_writer", Name: "batches_sent_total",
				Help: "Batch upsert operations sent to the vector store.",
			}),
			BatchesFailed: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "cxxgraph", Subsystem: "vector_writer", Name: "batches_failed_total",
				Help: "Batch upsert operations that failed after retries.",
			}),
			RetryAttempts: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "cxxgraph", Subsystem: "vector_writer", Name: "retry_attempts_total",
				Help: "Retry attempts issued against the embedding provider or vector store.",
			}),
			TextsTruncated: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "cxxgraph", Subsystem: "vector_writer", Name: "texts_truncated_total",
				Help: "Embedding texts silently truncated to the character budget.",
			}),
			DroppedByReason: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cxxgraph", Subsystem: "vector_writer", Name: "dropped_entities_total",
				Help: "Entities dropped during batch processing, labeled by reason.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			defaultMetrics.PointsUpserted, defaultMetrics.BatchesSent, defaultMetrics.BatchesFailed,
			defaultMetrics.RetryAttempts, defaultMetrics.TextsTruncated, defaultMetrics.DroppedByReason,
		)
	})
	return defaultMetrics
}
