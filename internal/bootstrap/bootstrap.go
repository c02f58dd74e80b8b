// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/qdrant/go-client/qdrant"

	"github.com/kraklabs/cxxgraph/pkg/config"
	"github.com/kraklabs/cxxgraph/pkg/graphwriter"
	"github.com/kraklabs/cxxgraph/pkg/vectorwriter"
)

// StoreOptions carries the store-facing knobs that don't come from the
// discovered StoreEndpoints: the Neo4j database name (empty uses the
// server default) and the Qdrant gRPC TLS/API-key settings.
type StoreOptions struct {
	Neo4jDatabase string
	QdrantUseTLS  bool
	QdrantAPIKey  string
}

// Stores bundles the opened graph-store and vector-store capability
// implementations a Pipeline run needs, plus the underlying driver/client
// so the caller can close them.
type Stores struct {
	Graph  *graphwriter.Neo4jStore
	Vector *vectorwriter.QdrantStore

	driver neo4j.DriverWithContext
	client *qdrant.Client
}

// Close releases the Neo4j driver and Qdrant client.
func (s *Stores) Close(ctx context.Context) error {
	var firstErr error
	if s.driver != nil {
		if err := s.driver.Close(ctx); err != nil {
			firstErr = fmt.Errorf("bootstrap: close neo4j driver: %w", err)
		}
	}
	if s.client != nil {
		if err := s.client.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("bootstrap: close qdrant client: %w", err)
		}
	}
	return firstErr
}

// OpenStores opens a Neo4j driver and a Qdrant client against the
// resolved StoreEndpoints and verifies connectivity to both, surfacing a
// connection failure as §7's StoreUnavailable error kind: fatal for the
// pipeline run. This is the single place a Workspace Pipeline run
// constructs its graph-store and vector-store capabilities before
// passing them to graphwriter.New / vectorwriter.New.
func OpenStores(ctx context.Context, endpoints config.StoreEndpoints, opts StoreOptions, logger *slog.Logger) (*Stores, error) {
	if logger == nil {
		logger = slog.Default()
	}

	driver, err := neo4j.NewDriverWithContext(
		endpoints.Neo4jURI,
		neo4j.BasicAuth(endpoints.Neo4jUsername, endpoints.Neo4jPassword, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open neo4j driver: %w", err)
	}

	graphStore := graphwriter.NewNeo4jStore(driver, opts.Neo4jDatabase)
	if err := graphStore.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("bootstrap: neo4j unreachable at %s: %w", endpoints.Neo4jURI, err)
	}
	logger.Info("bootstrap.stores.neo4j.connected", "uri", endpoints.Neo4jURI)

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   endpoints.QdrantHost,
		Port:   endpoints.QdrantPort,
		APIKey: opts.QdrantAPIKey,
		UseTLS: opts.QdrantUseTLS,
	})
	if err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("bootstrap: open qdrant client: %w", err)
	}

	vectorStore := vectorwriter.NewQdrantStore(client, qdrant.Distance_Cosine)
	if _, err := client.HealthCheck(ctx); err != nil {
		_ = driver.Close(ctx)
		_ = client.Close()
		return nil, fmt.Errorf("bootstrap: qdrant unreachable at %s:%d: %w", endpoints.QdrantHost, endpoints.QdrantPort, err)
	}
	logger.Info("bootstrap.stores.qdrant.connected", "host", endpoints.QdrantHost, "port", endpoints.QdrantPort)

	return &Stores{
		Graph:  graphStore,
		Vector: vectorStore,
		driver: driver,
		client: client,
	}, nil
}
