// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

// Package config loads and validates the workspace manifest and startup
// configuration that drive a Workspace Pipeline run.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// CompdbSpec names one compile database input for a repo, resolved
// relative to the repo's checkout root when not absolute.
type CompdbSpec struct {
	Path string `yaml:"path" json:"path"`
}

// RepoSpec is one repository's entry in a workspace manifest. Enabled,
// RunVector, and RunGraph all default to true when omitted from the
// manifest — a repo opts out of a stage rather than opting in.
type RepoSpec struct {
	RepoName     string       `yaml:"repo_name" json:"repo_name"`
	GitURL       string       `yaml:"git_url" json:"git_url"`
	Ref          string       `yaml:"ref" json:"ref"`
	TokenEnv     string       `yaml:"token_env" json:"token_env"`
	CompdbPaths  []CompdbSpec `yaml:"compdb_paths" json:"compdb_paths"`
	SourceSubdir string       `yaml:"source_subdir" json:"source_subdir"`
	Enabled      bool         `yaml:"enabled" json:"enabled"`
	RunVector    bool         `yaml:"run_vector" json:"run_vector"`
	RunGraph     bool         `yaml:"run_graph" json:"run_graph"`
}

// repoSpecFields mirrors RepoSpec with pointer bools so the manifest
// loader can tell "omitted" (nil, default true) apart from "explicitly
// false" during unmarshaling.
type repoSpecFields struct {
	RepoName     string       `yaml:"repo_name" json:"repo_name"`
	GitURL       string       `yaml:"git_url" json:"git_url"`
	Ref          string       `yaml:"ref" json:"ref"`
	TokenEnv     string       `yaml:"token_env" json:"token_env"`
	CompdbPaths  []CompdbSpec `yaml:"compdb_paths" json:"compdb_paths"`
	SourceSubdir string       `yaml:"source_subdir" json:"source_subdir"`
	Enabled      *bool        `yaml:"enabled" json:"enabled"`
	RunVector    *bool        `yaml:"run_vector" json:"run_vector"`
	RunGraph     *bool        `yaml:"run_graph" json:"run_graph"`
}

func (r *RepoSpec) fromFields(f repoSpecFields) {
	r.RepoName = f.RepoName
	r.GitURL = f.GitURL
	r.Ref = f.Ref
	r.TokenEnv = f.TokenEnv
	r.CompdbPaths = f.CompdbPaths
	r.SourceSubdir = f.SourceSubdir
	r.Enabled = boolOrDefault(f.Enabled, true)
	r.RunVector = boolOrDefault(f.RunVector, true)
	r.RunGraph = boolOrDefault(f.RunGraph, true)
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// UnmarshalYAML implements defaulting of Enabled/RunVector/RunGraph to
// true when the manifest omits them.
func (r *RepoSpec) UnmarshalYAML(value *yaml.Node) error {
	var f repoSpecFields
	if err := value.Decode(&f); err != nil {
		return err
	}
	r.fromFields(f)
	return nil
}

// UnmarshalJSON mirrors UnmarshalYAML's defaulting for the JSON manifest
// variant.
func (r *RepoSpec) UnmarshalJSON(data []byte) error {
	var f repoSpecFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	r.fromFields(f)
	return nil
}

// QdrantWorkspaceConfig holds workspace-level Qdrant controls.
type QdrantWorkspaceConfig struct {
	RecreateCollection bool   `yaml:"recreate_collection" json:"recreate_collection"`
	CollectionName     string `yaml:"collection_name" json:"collection_name,omitempty"`
}

// Neo4jWorkspaceConfig holds workspace-level Neo4j controls.
type Neo4jWorkspaceConfig struct {
	RecreateGraph bool `yaml:"recreate_graph" json:"recreate_graph"`
}

// WorkspaceManifest is the top-level manifest payload (§6 Workspace
// manifest) describing every repo a Workspace Pipeline run should process.
type WorkspaceManifest struct {
	WorkspaceName string                `yaml:"workspace_name" json:"workspace_name"`
	Repos         []RepoSpec            `yaml:"repos" json:"repos"`
	RepoCacheDir  string                `yaml:"repo_cache_dir" json:"repo_cache_dir"`
	IndexDir      string                `yaml:"index_dir" json:"index_dir"`
	EntitiesDir   string                `yaml:"entities_dir" json:"entities_dir"`
	Qdrant        QdrantWorkspaceConfig `yaml:"qdrant" json:"qdrant"`
	Neo4j         Neo4jWorkspaceConfig  `yaml:"neo4j" json:"neo4j"`
}

const (
	defaultRepoCacheDir = "output/workspace_repos"
	defaultIndexDir     = "output/workspace_scip"
	defaultEntitiesDir  = "output/workspace_entities"
)

// LoadManifest reads and validates a workspace manifest from a YAML or
// JSON file, selected by its extension (".json" parses as JSON, anything
// else as YAML).
func LoadManifest(path string) (WorkspaceManifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return WorkspaceManifest{}, fmt.Errorf("config: read manifest %s: %w", path, err)
	}

	var m WorkspaceManifest
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(raw, &m); err != nil {
			return WorkspaceManifest{}, fmt.Errorf("config: parse manifest %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(raw, &m); err != nil {
			return WorkspaceManifest{}, fmt.Errorf("config: parse manifest %s: %w", path, err)
		}
	}

	applyManifestDefaults(&m)
	if err := validateManifest(m); err != nil {
		return WorkspaceManifest{}, err
	}
	return m, nil
}

func applyManifestDefaults(m *WorkspaceManifest) {
	if m.RepoCacheDir == "" {
		m.RepoCacheDir = defaultRepoCacheDir
	}
	if m.IndexDir == "" {
		m.IndexDir = defaultIndexDir
	}
	if m.EntitiesDir == "" {
		m.EntitiesDir = defaultEntitiesDir
	}
	for i := range m.Repos {
		if m.Repos[i].SourceSubdir == "" {
			m.Repos[i].SourceSubdir = "."
		}
	}
}

// validateManifest enforces §6's manifest invariants: a non-empty
// workspace name, at least one repo, unique repo names, and every repo
// carrying the credentials and compdb inputs the pipeline needs to run.
func validateManifest(m WorkspaceManifest) error {
	if strings.TrimSpace(m.WorkspaceName) == "" {
		return fmt.Errorf("config: workspace_name is required")
	}
	if len(m.Repos) == 0 {
		return fmt.Errorf("config: repos must be a non-empty list")
	}

	seen := make(map[string]bool, len(m.Repos))
	for _, r := range m.Repos {
		if strings.TrimSpace(r.RepoName) == "" {
			return fmt.Errorf("config: repo.repo_name is required")
		}
		if seen[r.RepoName] {
			return fmt.Errorf("config: duplicate repo_name in manifest: %s", r.RepoName)
		}
		seen[r.RepoName] = true

		if strings.TrimSpace(r.GitURL) == "" {
			return fmt.Errorf("config: repo %q: git_url is required", r.RepoName)
		}
		if strings.TrimSpace(r.Ref) == "" {
			return fmt.Errorf("config: repo %q: ref is required", r.RepoName)
		}
		if strings.TrimSpace(r.TokenEnv) == "" {
			return fmt.Errorf("config: repo %q: token_env is required", r.RepoName)
		}
		if len(r.CompdbPaths) == 0 {
			return fmt.Errorf("config: repo %q: compdb_paths must be a non-empty list", r.RepoName)
		}
		for _, c := range r.CompdbPaths {
			if strings.TrimSpace(c.Path) == "" {
				return fmt.Errorf("config: repo %q: compdb_paths contains an empty path", r.RepoName)
			}
		}
	}
	return nil
}

// ResolveCompdbPath resolves a compile database path relative to a repo's
// checkout directory when it isn't already absolute.
func ResolveCompdbPath(repoCheckoutDir string, c CompdbSpec) string {
	if filepath.IsAbs(c.Path) {
		return c.Path
	}
	return filepath.Join(repoCheckoutDir, c.Path)
}
