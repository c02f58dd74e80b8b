// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envFlag resolves a boolean environment variable the way the rest of the
// pipeline's env-driven toggles are resolved: unset means default, and a
// small set of truthy spellings means true.
func envFlag(name string, def bool) bool {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

// StrictConfigValidation resolves whether startup configuration errors
// should be fatal (true) or degrade to defaults with a warning (false),
// from the STRICT_CONFIG_VALIDATION environment variable.
func StrictConfigValidation() bool {
	return envFlag("STRICT_CONFIG_VALIDATION", false)
}

// UseMockEmbedding resolves whether the Vector Writer should be wired to
// a deterministic mock embedding provider instead of a real one, from the
// USE_MOCK_EMBEDDING environment variable. Intended for local development
// and tests where no embedding API is reachable.
func UseMockEmbedding() bool {
	return envFlag("USE_MOCK_EMBEDDING", false)
}

// ComposeService is one service's section of a docker-compose document,
// trimmed to the fields startup validation needs.
type ComposeService struct {
	Ports       []string `yaml:"ports"`
	Environment any      `yaml:"environment"`
}

// ComposeConfig is the subset of a docker-compose document startup
// validation reads: the `services` map keyed by service name.
type ComposeConfig struct {
	Services map[string]ComposeService `yaml:"services"`
}

// StoreEndpoints is the resolved connection info for the graph and
// vector stores, discovered from a deployment-topology (docker-compose)
// document per §6 "Startup configuration".
type StoreEndpoints struct {
	Neo4jURI        string
	Neo4jUsername   string
	Neo4jPassword   string
	QdrantHost      string
	QdrantPort      int
	MissingServices []string
}

const (
	defaultNeo4jBoltPort  = 7687
	defaultNeo4jUsername  = "neo4j"
	defaultNeo4jPassword  = "testpassword123"
	defaultQdrantHost     = "localhost"
	defaultQdrantGRPCPort = 6334
)

// LoadComposeConfig reads and parses a docker-compose document. In
// non-strict mode, a missing file, unparseable YAML, an empty document,
// or a non-mapping document all degrade to a zero-value ComposeConfig
// with a logged warning rather than an error. In strict mode each of
// those conditions is fatal.
func LoadComposeConfig(path string, strict bool, logger *slog.Logger) (ComposeConfig, error) {
	if logger == nil {
		logger = slog.Default()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		msg := fmt.Sprintf("docker compose file not found: %s", path)
		if strict {
			return ComposeConfig{}, fmt.Errorf("config: %s: %w", msg, err)
		}
		logger.Warn("config.compose.missing", "path", path, "continuing_with", "defaults")
		return ComposeConfig{}, nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		if strict {
			return ComposeConfig{}, fmt.Errorf("config: parse docker compose YAML at %s: %w", path, err)
		}
		logger.Warn("config.compose.parse_error", "path", path, "error", err, "continuing_with", "defaults")
		return ComposeConfig{}, nil
	}
	if len(doc.Content) == 0 {
		if strict {
			return ComposeConfig{}, fmt.Errorf("config: docker compose file is empty: %s", path)
		}
		logger.Warn("config.compose.empty", "path", path, "continuing_with", "defaults")
		return ComposeConfig{}, nil
	}

	var cfg ComposeConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		if strict {
			return ComposeConfig{}, fmt.Errorf("config: parse docker compose services at %s: %w", path, err)
		}
		logger.Warn("config.compose.services_error", "path", path, "error", err, "continuing_with", "defaults")
		return ComposeConfig{}, nil
	}
	return cfg, nil
}

// serviceConfig looks up a named service, degrading to a zero-value
// service (so callers fall back to defaults) in non-strict mode when the
// service is absent.
func serviceConfig(cfg ComposeConfig, name string, strict bool, logger *slog.Logger) (ComposeService, bool) {
	svc, ok := cfg.Services[name]
	if !ok {
		msg := fmt.Sprintf("docker-compose missing service %q", name)
		if strict {
			return ComposeService{}, false
		}
		logger.Warn("config.compose.service_missing", "service", name, "reason", msg)
	}
	return svc, ok
}

// resolveServicePort finds the host-side port mapped to containerPort in
// a service's `ports` list (e.g. "7687:7687" or "127.0.0.1:6334:6334").
// Falls back to defaultPort when no mapping is found.
func resolveServicePort(svc ComposeService, containerPort, defaultPort int) int {
	for _, mapping := range svc.Ports {
		text := strings.Trim(strings.TrimSpace(mapping), `"'`)
		if idx := strings.Index(text, "/"); idx >= 0 {
			text = text[:idx]
		}
		parts := strings.Split(text, ":")
		if len(parts) == 1 {
			port, err := strconv.Atoi(parts[0])
			if err == nil && port == containerPort {
				return port
			}
			continue
		}
		hostPort, err1 := strconv.Atoi(parts[len(parts)-2])
		containerPortParsed, err2 := strconv.Atoi(parts[len(parts)-1])
		if err1 == nil && err2 == nil && containerPortParsed == containerPort {
			return hostPort
		}
	}
	return defaultPort
}

// resolveNeo4jAuth extracts "NEO4J_AUTH=<username>/<password>" from the
// neo4j service's environment, which docker-compose accepts as either a
// list of "KEY=VALUE" strings or a map.
func resolveNeo4jAuth(svc ComposeService, strict bool, logger *slog.Logger) (string, string, error) {
	entries, err := environmentEntries(svc.Environment)
	if err != nil {
		if strict {
			return "", "", fmt.Errorf("config: neo4j.environment must be a list or map: %w", err)
		}
		logger.Warn("config.compose.neo4j_env_invalid", "error", err)
		return defaultNeo4jUsername, defaultNeo4jPassword, nil
	}

	for _, entry := range entries {
		if !strings.HasPrefix(entry, "NEO4J_AUTH=") {
			continue
		}
		rawAuth := strings.TrimPrefix(entry, "NEO4J_AUTH=")
		username, password, ok := strings.Cut(rawAuth, "/")
		if !ok || username == "" || password == "" {
			msg := "NEO4J_AUTH must be '<username>/<password>'"
			if strict {
				return "", "", fmt.Errorf("config: %s", msg)
			}
			logger.Warn("config.compose.neo4j_auth_invalid", "reason", msg)
			return defaultNeo4jUsername, defaultNeo4jPassword, nil
		}
		return username, password, nil
	}

	msg := "NEO4J_AUTH not found in neo4j service environment"
	if strict {
		return "", "", fmt.Errorf("config: %s", msg)
	}
	logger.Warn("config.compose.neo4j_auth_missing", "reason", msg)
	return defaultNeo4jUsername, defaultNeo4jPassword, nil
}

func environmentEntries(env any) ([]string, error) {
	switch v := env.(type) {
	case nil:
		return nil, nil
	case []any:
		entries := make([]string, 0, len(v))
		for _, item := range v {
			entries = append(entries, fmt.Sprintf("%v", item))
		}
		return entries, nil
	case map[string]any:
		entries := make([]string, 0, len(v))
		for k, val := range v {
			entries = append(entries, fmt.Sprintf("%s=%v", k, val))
		}
		return entries, nil
	default:
		return nil, fmt.Errorf("unsupported environment type %T", env)
	}
}

// ResolveStoreEndpoints discovers Neo4j and Qdrant connection info from a
// docker-compose document, per §6's "Startup configuration" and §7's
// ConfigInvalid error kind. In strict mode, any missing service or
// malformed field is a fatal ConfigInvalid-class error; in non-strict
// mode every gap degrades to a documented default and is recorded in
// MissingServices for the caller to log.
func ResolveStoreEndpoints(composePath string, strict bool, logger *slog.Logger) (StoreEndpoints, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := LoadComposeConfig(composePath, strict, logger)
	if err != nil {
		return StoreEndpoints{}, err
	}

	endpoints := StoreEndpoints{
		Neo4jUsername: defaultNeo4jUsername,
		Neo4jPassword: defaultNeo4jPassword,
		QdrantHost:    defaultQdrantHost,
		QdrantPort:    defaultQdrantGRPCPort,
	}

	neo4jSvc, ok := serviceConfig(cfg, "neo4j", strict, logger)
	if !ok && strict {
		return StoreEndpoints{}, fmt.Errorf("config: missing required service %q in docker compose", "neo4j")
	}
	if !ok {
		endpoints.MissingServices = append(endpoints.MissingServices, "neo4j")
	} else {
		port := resolveServicePort(neo4jSvc, defaultNeo4jBoltPort, defaultNeo4jBoltPort)
		endpoints.Neo4jURI = fmt.Sprintf("bolt://localhost:%d", port)
		username, password, err := resolveNeo4jAuth(neo4jSvc, strict, logger)
		if err != nil {
			return StoreEndpoints{}, err
		}
		endpoints.Neo4jUsername, endpoints.Neo4jPassword = username, password
	}
	if endpoints.Neo4jURI == "" {
		endpoints.Neo4jURI = fmt.Sprintf("bolt://localhost:%d", defaultNeo4jBoltPort)
	}

	qdrantSvc, ok := serviceConfig(cfg, "qdrant", strict, logger)
	if !ok && strict {
		return StoreEndpoints{}, fmt.Errorf("config: missing required service %q in docker compose", "qdrant")
	}
	if !ok {
		endpoints.MissingServices = append(endpoints.MissingServices, "qdrant")
	} else {
		endpoints.QdrantPort = resolveServicePort(qdrantSvc, defaultQdrantGRPCPort, defaultQdrantGRPCPort)
	}

	return endpoints, nil
}
