// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/cxxgraph/pkg/config"
	"github.com/kraklabs/cxxgraph/pkg/graphwriter"
	"github.com/kraklabs/cxxgraph/pkg/vectorwriter"
)

// fakeFetcher creates an empty checkout directory without touching git.
type fakeFetcher struct {
	fail map[string]bool
}

func (f fakeFetcher) Fetch(_ context.Context, repo config.RepoSpec, cacheDir string) (string, error) {
	if f.fail[repo.RepoName] {
		return "", assert.AnError
	}
	dir := filepath.Join(cacheDir, repo.RepoName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// fakeExtractor writes a fixed JSONL entity stream.
type fakeExtractor struct{}

func (fakeExtractor) Extract(_ context.Context, checkoutDir, _ string) (string, error) {
	path := filepath.Join(checkoutDir, "entities.jsonl")
	line := `{"global_uri":"pkgpath://a/b.cc#Foo","repo_name":"r","file_path":"b.cc","entity_type":"function","entity_name":"Foo","code_text":"void Foo(){}","start_line":1,"end_line":1}` + "\n"
	return path, os.WriteFile(path, []byte(line), 0o644)
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, texts []string, dimension int) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, dimension)
	}
	return out, nil
}

type fakeVectorStore struct{}

func (fakeVectorStore) EnsureCollection(context.Context, string, int, bool) error { return nil }
func (fakeVectorStore) Upsert(context.Context, string, []vectorwriter.Point) error { return nil }
func (fakeVectorStore) DeleteByRepo(context.Context, string, string) error         { return nil }

type fakeGraphStore struct{}

func (fakeGraphStore) EnsureSchema(context.Context) error { return nil }
func (fakeGraphStore) MergeNodes(context.Context, string, []graphwriter.NodeRecord) error {
	return nil
}
func (fakeGraphStore) MergeEdges(context.Context, string, []graphwriter.EdgeRecord) error {
	return nil
}
func (fakeGraphStore) MergeFiles(context.Context, []graphwriter.FileNode, []graphwriter.EdgeRecord) error {
	return nil
}
func (fakeGraphStore) VerifyConnectivity(context.Context) error { return nil }
func (fakeGraphStore) PurgeRepo(context.Context, string) error  { return nil }

func newTestManifest(repos ...config.RepoSpec) config.WorkspaceManifest {
	return config.WorkspaceManifest{
		WorkspaceName: "test-workspace",
		Repos:         repos,
		RepoCacheDir:  "cache",
	}
}

func TestRunAllReposSucceedYieldsSuccessStatus(t *testing.T) {
	manifest := newTestManifest(
		config.RepoSpec{RepoName: "a", Enabled: true, RunVector: true},
		config.RepoSpec{RepoName: "b", Enabled: true, RunVector: true},
	)
	manifest.RepoCacheDir = t.TempDir()

	vw := vectorwriter.New(fakeEmbedder{}, fakeVectorStore{}, vectorwriter.Options{Dimension: 4}, nil)

	p := New(manifest, Options{}, nil)
	p.Fetcher = fakeFetcher{}
	p.Extractor = fakeExtractor{}
	p.VectorWriter = vw

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "success", report.Status)
	require.Len(t, report.Repos, 2)
	for _, r := range report.Repos {
		assert.Equal(t, "success", r.Status)
		assert.Equal(t, 1, r.VectorStats.EntitiesSeen)
	}
}

func TestRunDisabledRepoIsSkipped(t *testing.T) {
	manifest := newTestManifest(
		config.RepoSpec{RepoName: "a", Enabled: false},
		config.RepoSpec{RepoName: "b", Enabled: true},
	)
	manifest.RepoCacheDir = t.TempDir()

	p := New(manifest, Options{}, nil)
	p.Fetcher = fakeFetcher{}

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "success", report.Status)
	require.Len(t, report.Repos, 1)
	assert.Equal(t, "b", report.Repos[0].RepoName)
}

func TestRunPartialFailureYieldsPartialSuccessAndContinues(t *testing.T) {
	manifest := newTestManifest(
		config.RepoSpec{RepoName: "a", Enabled: true},
		config.RepoSpec{RepoName: "b", Enabled: true},
	)
	manifest.RepoCacheDir = t.TempDir()

	p := New(manifest, Options{}, nil)
	p.Fetcher = fakeFetcher{fail: map[string]bool{"a": true}}

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "partial_success", report.Status)
	require.Len(t, report.Repos, 2)
	assert.Equal(t, "failed", report.Repos[0].Status)
	assert.NotEmpty(t, report.Repos[0].Error)
	assert.Equal(t, "success", report.Repos[1].Status)
}

func TestRunFailFastAbortsOnFirstError(t *testing.T) {
	manifest := newTestManifest(
		config.RepoSpec{RepoName: "a", Enabled: true},
		config.RepoSpec{RepoName: "b", Enabled: true},
	)
	manifest.RepoCacheDir = t.TempDir()

	p := New(manifest, Options{FailFast: true}, nil)
	p.Fetcher = fakeFetcher{fail: map[string]bool{"a": true}}

	report, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, "failed", report.Status)
	require.Len(t, report.Repos, 1)
}

func TestRunAllReposFailYieldsFailedStatus(t *testing.T) {
	manifest := newTestManifest(config.RepoSpec{RepoName: "a", Enabled: true})
	manifest.RepoCacheDir = t.TempDir()

	p := New(manifest, Options{}, nil)
	p.Fetcher = fakeFetcher{fail: map[string]bool{"a": true}}

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "failed", report.Status)
}

func TestRunNoEnabledReposIsVacuousSuccess(t *testing.T) {
	manifest := newTestManifest(config.RepoSpec{RepoName: "a", Enabled: false})
	manifest.RepoCacheDir = t.TempDir()

	p := New(manifest, Options{}, nil)
	p.Fetcher = fakeFetcher{}

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "success", report.Status)
	assert.Empty(t, report.Repos)
}
