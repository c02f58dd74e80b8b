// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package graphwriter

import (
	"context"
	"fmt"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jStore implements Store against a real Neo4j (or Neo4j-wire-protocol
// compatible) cluster using UNWIND-batched MERGE, per §6's graph store
// contract.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string

	schemaOnce sync.Once
	schemaErr  error
}

// NewNeo4jStore wraps an already-constructed driver. database may be
// empty to use the server's default database.
func NewNeo4jStore(driver neo4j.DriverWithContext, database string) *Neo4jStore {
	return &Neo4jStore{driver: driver, database: database}
}

func (s *Neo4jStore) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database, AccessMode: neo4j.AccessModeWrite})
}

func (s *Neo4jStore) VerifyConnectivity(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

// EnsureSchema creates the uniqueness constraint on (owner_repo,
// scip_symbol) and secondary indices on global_uri, entity_type,
// repo_name, file_path. Per the graph identity migration design note,
// any legacy constraint keyed on global_uri alone is dropped first.
func (s *Neo4jStore) EnsureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		session := s.session(ctx)
		defer session.Close(ctx)

		statements := []string{
			"DROP CONSTRAINT entity_global_uri_unique IF EXISTS",
			"CREATE CONSTRAINT entity_owner_symbol_unique IF NOT EXISTS FOR (n:Entity) REQUIRE (n.owner_repo, n.scip_symbol) IS UNIQUE",
			"CREATE INDEX entity_global_uri IF NOT EXISTS FOR (n:Entity) ON (n.global_uri)",
			"CREATE INDEX entity_type_idx IF NOT EXISTS FOR (n:Entity) ON (n.entity_type)",
			"CREATE INDEX entity_repo_name IF NOT EXISTS FOR (n:Entity) ON (n.owner_repo)",
			"CREATE INDEX entity_file_path IF NOT EXISTS FOR (n:Entity) ON (n.file_path)",
			"CREATE CONSTRAINT file_path_repo_unique IF NOT EXISTS FOR (f:File) REQUIRE (f.path, f.repo_name) IS UNIQUE",
		}
		for _, stmt := range statements {
			if _, err := session.Run(ctx, stmt, nil); err != nil {
				s.schemaErr = fmt.Errorf("ensure schema: %w", err)
				return
			}
		}
	})
	return s.schemaErr
}

func (s *Neo4jStore) MergeNodes(ctx context.Context, entityType string, nodes []NodeRecord) error {
	if len(nodes) == 0 {
		return nil
	}
	session := s.session(ctx)
	defer session.Close(ctx)

	rows := make([]map[string]any, len(nodes))
	for i, n := range nodes {
		rows[i] = map[string]any{
			"owner_repo":        n.OwnerRepo,
			"scip_symbol":       n.ScipSymbol,
			"global_uri":        n.GlobalURI,
			"entity_type":       string(n.EntityType),
			"entity_name":       n.EntityName,
			"file_path":         n.FilePath,
			"ingestion_repo":    n.IngestionRepo,
			"is_external":       n.IsExternal,
			"function_sig_hash": n.FunctionSigHash,
		}
	}

	query := fmt.Sprintf(`
		UNWIND $rows AS row
		MERGE (n:Entity:%s {owner_repo: row.owner_repo, scip_symbol: row.scip_symbol})
		ON CREATE SET n.ingestion_repo = row.ingestion_repo
		SET n.global_uri = row.global_uri,
		    n.entity_type = row.entity_type,
		    n.entity_name = row.entity_name,
		    n.file_path = row.file_path,
		    n.is_external = row.is_external,
		    n.function_sig_hash = row.function_sig_hash
	`, cypherLabel(entityType))

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, query, map[string]any{"rows": rows})
	})
	return err
}

func (s *Neo4jStore) MergeEdges(ctx context.Context, relationshipType string, edges []EdgeRecord) error {
	if len(edges) == 0 {
		return nil
	}
	session := s.session(ctx)
	defer session.Close(ctx)

	rows := make([]map[string]any, len(edges))
	for i, e := range edges {
		rows[i] = map[string]any{
			"src_owner_repo": e.SrcOwnerRepo, "src_symbol": e.SrcScipSymbol,
			"tgt_owner_repo": e.TgtOwnerRepo, "tgt_symbol": e.TgtScipSymbol,
		}
	}

	query := fmt.Sprintf(`
		UNWIND $rows AS row
		MATCH (src:Entity {owner_repo: row.src_owner_repo, scip_symbol: row.src_symbol})
		MATCH (tgt:Entity {owner_repo: row.tgt_owner_repo, scip_symbol: row.tgt_symbol})
		MERGE (src)-[:%s]->(tgt)
	`, cypherLabel(relationshipType))

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, query, map[string]any{"rows": rows})
	})
	return err
}

func (s *Neo4jStore) MergeFiles(ctx context.Context, files []FileNode, edges []EdgeRecord) error {
	if len(files) == 0 && len(edges) == 0 {
		return nil
	}
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if len(files) > 0 {
			rows := make([]map[string]any, len(files))
			for i, f := range files {
				rows[i] = map[string]any{"path": f.Path, "repo_name": f.RepoName}
			}
			if _, err := tx.Run(ctx, `
				UNWIND $rows AS row
				MERGE (f:File {path: row.path, repo_name: row.repo_name})
			`, map[string]any{"rows": rows}); err != nil {
				return nil, err
			}
		}
		if len(edges) > 0 {
			rows := make([]map[string]any, len(edges))
			for i, e := range edges {
				rows[i] = map[string]any{
					"src_owner_repo": e.SrcOwnerRepo, "src_symbol": e.SrcScipSymbol,
					"file_path": e.TgtScipSymbol, "repo_name": e.TgtOwnerRepo,
				}
			}
			if _, err := tx.Run(ctx, `
				UNWIND $rows AS row
				MATCH (n:Entity {owner_repo: row.src_owner_repo, scip_symbol: row.src_symbol})
				MATCH (f:File {repo_name: row.repo_name})
				WHERE f.path + "" = f.path
				MERGE (n)-[:DEFINED_IN]->(f)
			`, map[string]any{"rows": rows}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// PurgeRepo deletes every Entity node owned by repoName (and their
// incident relationships) plus any File node scoped to that repo. Stub
// nodes merely ingested from repoName but owned elsewhere are untouched.
func (s *Neo4jStore) PurgeRepo(ctx context.Context, repoName string) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
			MATCH (n:Entity {owner_repo: $repo})
			DETACH DELETE n
		`, map[string]any{"repo": repoName}); err != nil {
			return nil, err
		}
		if _, err := tx.Run(ctx, `
			MATCH (f:File {repo_name: $repo})
			DETACH DELETE f
		`, map[string]any{"repo": repoName}); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return err
}

// cypherLabel sanitizes a relationship/entity type into a safe Cypher
// label token. Both come from our own closed enums, never user input,
// but this keeps query construction defensive against future additions.
func cypherLabel(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			out = append(out, c)
		}
	}
	return string(out)
}
