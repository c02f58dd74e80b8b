// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package graphwriter

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus series emitted per Graph Writer run.
type Metrics struct {
	NodesCreated  prometheus.Counter
	EdgesCreated  prometheus.Counter
	BatchesSent   prometheus.Counter
	BatchesFailed prometheus.Counter
	RetryAttempts prometheus.Counter
	Errors        prometheus.Counter
	DroppedEdges  *prometheus.CounterVec
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
			NodesCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "cxxgraph", Subsystem: "graph_writer", Name: "nodes_created_total",
				Help: "Graph nodes created or merged across all runs.",
			}),
			EdgesCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "cxxgraph", Subsystem: "graph_writer", Name: "edges_created_total",
				Help: "Graph edges created or merged across all runs.",
			}),
			BatchesSent: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "cxxgraph", Subsystem: "graph_writer", Name: "batches_sent_total",
				Help: "Batch MERGE operations sent to the graph store.",
			}),
			BatchesFailed: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "cxxgraph", Subsystem: "graph_writer", Name: "batches_failed_total",
				Help: "Batch MERGE operations that failed after retries.",
			}),
			RetryAttempts: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "cxxgraph", Subsystem: "graph_writer", Name: "retry_attempts_total",
				Help: "Retry attempts issued against the graph store.",
			}),
			Errors: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "cxxgraph", Subsystem: "graph_writer", Name: "errors_total",
				Help: "Unrecoverable errors encountered while writing.",
			}),
			DroppedEdges: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cxxgraph", Subsystem: "graph_writer", Name: "dropped_edges_total",
				Help: "Edges dropped during validation, labeled by reason.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			defaultMetrics.NodesCreated, defaultMetrics.EdgesCreated, defaultMetrics.BatchesSent,
			defaultMetrics.BatchesFailed, defaultMetrics.RetryAttempts, defaultMetrics.Errors,
			defaultMetrics.DroppedEdges,
		)
	})
	return defaultMetrics
}
