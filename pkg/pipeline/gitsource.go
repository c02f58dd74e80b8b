// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/kraklabs/cxxgraph/pkg/config"
)

// Fetcher checks a repo out to a local directory. The default
// implementation is GitFetcher; tests substitute a fake.
type Fetcher interface {
	Fetch(ctx context.Context, repo config.RepoSpec, cacheDir string) (checkoutDir string, err error)
}

// LocalFetcher treats a repo's git_url as an already-checked-out local
// directory path (stripped of a "local://" prefix if present) instead of
// cloning it, for the CLI's ad hoc single-repo mode.
type LocalFetcher struct{}

func (LocalFetcher) Fetch(ctx context.Context, repo config.RepoSpec, cacheDir string) (string, error) {
	dir := strings.TrimPrefix(repo.GitURL, "local://")
	if dir == "" {
		return "", fmt.Errorf("pipeline: repo %q: empty local checkout path", repo.RepoName)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("pipeline: repo %q: local checkout %s: %w", repo.RepoName, dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("pipeline: repo %q: local checkout %s is not a directory", repo.RepoName, dir)
	}
	return dir, nil
}

// dangerousShellChars rejects a git URL that could smuggle extra
// arguments or shell metacharacters into the subprocess command line.
var dangerousShellChars = regexp.MustCompile("[;&|$`\n\r]")

var validGitURLPattern = regexp.MustCompile(`^(https://[\w.\-]+(:\d+)?/[\w.\-/]+|git@[\w.\-]+:[\w.\-/]+|ssh://[\w.\-@:/%]+)(\.git)?/?$`)

// GitFetcher shallow-clones a repo at its requested ref, injecting
// token_env-resolved credentials into https clone URLs, grounded on the
// teacher's cloneGitRepo/validateGitURL (pkg/ingestion/repo_loader.go).
type GitFetcher struct {
	UpdateSubmodules bool
	Timeout          time.Duration
}

func (f GitFetcher) Fetch(ctx context.Context, repo config.RepoSpec, cacheDir string) (string, error) {
	if err := validateGitURL(repo.GitURL); err != nil {
		return "", fmt.Errorf("pipeline: repo %q: %w", repo.RepoName, err)
	}

	token := os.Getenv(repo.TokenEnv)
	if token == "" {
		return "", fmt.Errorf("pipeline: repo %q: credential env var %q is not set", repo.RepoName, repo.TokenEnv)
	}

	authURL, err := injectToken(repo.GitURL, token)
	if err != nil {
		return "", fmt.Errorf("pipeline: repo %q: %w", repo.RepoName, err)
	}

	dest := filepath.Join(cacheDir, repo.RepoName)
	if err := os.RemoveAll(dest); err != nil {
		return "", fmt.Errorf("pipeline: repo %q: clear checkout dir: %w", repo.RepoName, err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("pipeline: repo %q: create checkout dir: %w", repo.RepoName, err)
	}

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	if err := f.run(ctx, timeout, dest, "init", "--quiet"); err != nil {
		return "", fmt.Errorf("pipeline: repo %q: %w", repo.RepoName, err)
	}
	if err := f.run(ctx, timeout, dest, "remote", "add", "origin", authURL); err != nil {
		return "", fmt.Errorf("pipeline: repo %q: %w", repo.RepoName, err)
	}
	if err := f.run(ctx, timeout, dest, "fetch", "--depth", "1", "--quiet", "origin", repo.Ref); err != nil {
		return "", fmt.Errorf("pipeline: repo %q: fetch ref %q: %w", repo.RepoName, repo.Ref, err)
	}
	if err := f.run(ctx, timeout, dest, "checkout", "--quiet", "FETCH_HEAD"); err != nil {
		return "", fmt.Errorf("pipeline: repo %q: checkout ref %q: %w", repo.RepoName, repo.Ref, err)
	}

	if f.UpdateSubmodules {
		if err := f.run(ctx, timeout, dest, "submodule", "update", "--init", "--recursive"); err != nil {
			return "", fmt.Errorf("pipeline: repo %q: submodule update: %w", repo.RepoName, err)
		}
	}

	return dest, nil
}

func (f GitFetcher) run(ctx context.Context, timeout time.Duration, dir string, args ...string) error {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fullArgs := append([]string{"-C", dir}, args...)
	cmd := exec.CommandContext(cctx, "git", fullArgs...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// validateGitURL rejects shell-metacharacter smuggling and anything that
// isn't a plain https or ssh clone URL, adapted from the teacher's
// validateGitURL.
func validateGitURL(gitURL string) error {
	if gitURL == "" {
		return fmt.Errorf("git_url is empty")
	}
	if dangerousShellChars.MatchString(gitURL) {
		return fmt.Errorf("git_url contains disallowed characters")
	}
	if !validGitURLPattern.MatchString(gitURL) {
		return fmt.Errorf("git_url %q is not a recognized https/ssh clone URL", gitURL)
	}
	if parsed, err := url.Parse(gitURL); err == nil && parsed.User != nil {
		if _, hasPassword := parsed.User.Password(); hasPassword {
			return fmt.Errorf("git_url must not embed credentials directly; use token_env instead")
		}
	}
	return nil
}

// injectToken adds the resolved credential to an https clone URL as a
// basic-auth username, the convention GitHub/GitLab/Bitbucket personal
// access tokens all accept. ssh:// and git@ URLs are returned unchanged;
// their credential comes from the local ssh agent, not the URL.
func injectToken(gitURL, token string) (string, error) {
	if !strings.HasPrefix(gitURL, "https://") && !strings.HasPrefix(gitURL, "http://") {
		return gitURL, nil
	}
	parsed, err := url.Parse(gitURL)
	if err != nil {
		return "", fmt.Errorf("parse git_url: %w", err)
	}
	parsed.User = url.UserPassword("x-access-token", token)
	return parsed.String(), nil
}
