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

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workspace.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadManifestAppliesDefaults(t *testing.T) {
	path := writeManifest(t, `
workspace_name: demo
repos:
  - repo_name: webrtc
    git_url: https://github.com/example/webrtc.git
    ref: main
    token_env: GITHUB_TOKEN
    compdb_paths:
      - path: out/debug/compile_commands.json
`)

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", m.WorkspaceName)
	assert.Equal(t, defaultRepoCacheDir, m.RepoCacheDir)
	assert.Equal(t, defaultIndexDir, m.IndexDir)
	assert.Equal(t, defaultEntitiesDir, m.EntitiesDir)
	require.Len(t, m.Repos, 1)
	assert.Equal(t, ".", m.Repos[0].SourceSubdir)
	assert.True(t, m.Repos[0].Enabled)
	assert.True(t, m.Repos[0].RunVector)
	assert.True(t, m.Repos[0].RunGraph)
}

func TestLoadManifestParsesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workspace.json")
	content := `{
		"workspace_name": "demo",
		"repos": [{
			"repo_name": "webrtc",
			"git_url": "https://github.com/example/webrtc.git",
			"ref": "main",
			"token_env": "GITHUB_TOKEN",
			"compdb_paths": [{"path": "out/debug/compile_commands.json"}]
		}]
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", m.WorkspaceName)
}

func TestLoadManifestRejectsMissingWorkspaceName(t *testing.T) {
	path := writeManifest(t, `
repos:
  - repo_name: webrtc
    git_url: https://github.com/example/webrtc.git
    ref: main
    token_env: GITHUB_TOKEN
    compdb_paths:
      - path: out/debug/compile_commands.json
`)
	_, err := LoadManifest(path)
	assert.ErrorContains(t, err, "workspace_name")
}

func TestLoadManifestRejectsEmptyRepos(t *testing.T) {
	path := writeManifest(t, `workspace_name: demo
repos: []
`)
	_, err := LoadManifest(path)
	assert.ErrorContains(t, err, "repos")
}

func TestLoadManifestRejectsDuplicateRepoNames(t *testing.T) {
	path := writeManifest(t, `
workspace_name: demo
repos:
  - repo_name: webrtc
    git_url: https://github.com/example/webrtc.git
    ref: main
    token_env: GITHUB_TOKEN
    compdb_paths: [{path: a.json}]
  - repo_name: webrtc
    git_url: https://github.com/example/webrtc2.git
    ref: main
    token_env: GITHUB_TOKEN
    compdb_paths: [{path: b.json}]
`)
	_, err := LoadManifest(path)
	assert.ErrorContains(t, err, "duplicate repo_name")
}

func TestLoadManifestRejectsMissingCompdbPaths(t *testing.T) {
	path := writeManifest(t, `
workspace_name: demo
repos:
  - repo_name: webrtc
    git_url: https://github.com/example/webrtc.git
    ref: main
    token_env: GITHUB_TOKEN
    compdb_paths: []
`)
	_, err := LoadManifest(path)
	assert.ErrorContains(t, err, "compdb_paths")
}

func TestLoadManifestRejectsMissingTokenEnv(t *testing.T) {
	path := writeManifest(t, `
workspace_name: demo
repos:
  - repo_name: webrtc
    git_url: https://github.com/example/webrtc.git
    ref: main
    compdb_paths: [{path: a.json}]
`)
	_, err := LoadManifest(path)
	assert.ErrorContains(t, err, "token_env")
}

func TestResolveCompdbPathRebasesRelativePaths(t *testing.T) {
	got := ResolveCompdbPath("/repos/webrtc", CompdbSpec{Path: "out/debug/compile_commands.json"})
	assert.Equal(t, filepath.Join("/repos/webrtc", "out/debug/compile_commands.json"), got)
}

func TestResolveCompdbPathKeepsAbsolutePaths(t *testing.T) {
	got := ResolveCompdbPath("/repos/webrtc", CompdbSpec{Path: "/abs/compile_commands.json"})
	assert.Equal(t, "/abs/compile_commands.json", got)
}
