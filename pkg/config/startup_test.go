// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrictConfigValidationDefaultsFalse(t *testing.T) {
	t.Setenv("STRICT_CONFIG_VALIDATION", "")
	assert.False(t, StrictConfigValidation())
}

func TestStrictConfigValidationReadsTruthyValues(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", "yes", "on"} {
		t.Setenv("STRICT_CONFIG_VALIDATION", v)
		assert.True(t, StrictConfigValidation(), "value %q should be truthy", v)
	}
}

func TestUseMockEmbeddingDefaultsFalse(t *testing.T) {
	t.Setenv("USE_MOCK_EMBEDDING", "")
	assert.False(t, UseMockEmbedding())
}

func TestUseMockEmbeddingReadsTruthyValue(t *testing.T) {
	t.Setenv("USE_MOCK_EMBEDDING", "true")
	assert.True(t, UseMockEmbedding())
}

func writeCompose(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docker-compose.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestResolveStoreEndpointsDefaultsOnMissingFile(t *testing.T) {
	endpoints, err := ResolveStoreEndpoints(filepath.Join(t.TempDir(), "absent.yaml"), false, nil)
	require.NoError(t, err)
	assert.Equal(t, "bolt://localhost:7687", endpoints.Neo4jURI)
	assert.Equal(t, "neo4j", endpoints.Neo4jUsername)
	assert.Equal(t, "testpassword123", endpoints.Neo4jPassword)
	assert.Equal(t, 6334, endpoints.QdrantPort)
	assert.ElementsMatch(t, []string{"neo4j", "qdrant"}, endpoints.MissingServices)
}

func TestResolveStoreEndpointsFatalOnMissingFileInStrictMode(t *testing.T) {
	_, err := ResolveStoreEndpoints(filepath.Join(t.TempDir(), "absent.yaml"), true, nil)
	assert.Error(t, err)
}

func TestResolveStoreEndpointsParsesComposeFile(t *testing.T) {
	path := writeCompose(t, `
services:
  neo4j:
    ports:
      - "17687:7687"
    environment:
      - NEO4J_AUTH=neo4j/s3cret
  qdrant:
    ports:
      - "127.0.0.1:16334:6334"
`)

	endpoints, err := ResolveStoreEndpoints(path, true, nil)
	require.NoError(t, err)
	assert.Equal(t, "bolt://localhost:17687", endpoints.Neo4jURI)
	assert.Equal(t, "neo4j", endpoints.Neo4jUsername)
	assert.Equal(t, "s3cret", endpoints.Neo4jPassword)
	assert.Equal(t, 16334, endpoints.QdrantPort)
	assert.Empty(t, endpoints.MissingServices)
}

func TestResolveStoreEndpointsStrictFailsOnMalformedAuth(t *testing.T) {
	path := writeCompose(t, `
services:
  neo4j:
    ports: ["7687:7687"]
    environment:
      - NEO4J_AUTH=not-valid
  qdrant:
    ports: ["6334:6334"]
`)

	_, err := ResolveStoreEndpoints(path, true, nil)
	assert.Error(t, err)
}
