// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package compiledb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// IncompatibleToolchainError is returned when a compile database was
// produced for cl.exe/clang-cl.exe and the current host cannot run it.
type IncompatibleToolchainError struct {
	Path          string
	MatchingCount int
	TotalCount    int
}

func (e *IncompatibleToolchainError) Error() string {
	return fmt.Sprintf("compiledb: %s targets a Windows toolchain (%d/%d entries invoke cl.exe/clang-cl.exe) and cannot be indexed on %s",
		e.Path, e.MatchingCount, e.TotalCount, runtime.GOOS)
}

// DetectIncompatibleWindowsToolchain reports whether a majority of entries
// invoke cl.exe/clang-cl.exe while running on a non-Windows host, in which
// case the compile database cannot be consumed by the external indexer.
func DetectIncompatibleWindowsToolchain(entries []Entry) (msg string, incompatible bool) {
	matching, total := countWindowsToolchainEntries(entries)
	if runtime.GOOS == "windows" || total == 0 || matching*2 <= total {
		return "", false
	}
	return fmt.Sprintf("%d/%d entries invoke cl.exe/clang-cl.exe; cannot index a Windows toolchain build on %s",
		matching, total, runtime.GOOS), true
}

func countWindowsToolchainEntries(entries []Entry) (matching, total int) {
	total = len(entries)
	for _, e := range entries {
		if usesWindowsToolchain(e) {
			matching++
		}
	}
	return matching, total
}

// ReadEntries parses a compile_commands.json document.
func ReadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("compiledb: read %s: %w", path, err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("compiledb: parse %s: %w", path, err)
	}
	return entries, nil
}

// WriteEntries writes a rewritten compile database to a new file.
func WriteEntries(path string, entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("compiledb: encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("compiledb: write %s: %w", path, err)
	}
	return nil
}

// resolveWindowsPath searches for the longest on-disk-existing suffix of a
// Windows drive-absolute path under sourceRoot, dropping leading segments
// one at a time. It returns the resolved POSIX path together with the
// Windows-side anchor (the dropped prefix) and its POSIX replacement, so
// callers can rewrite sibling fields (directory, command) consistently.
func resolveWindowsPath(p, sourceRoot string) (resolved, oldAnchor, newAnchor string, ok bool) {
	segs := windowsSegments(p)
	drive := p[:2]
	for drop := 0; drop < len(segs); drop++ {
		rest := segs[drop:]
		if len(rest) == 0 {
			continue
		}
		candidate := filepath.Join(append([]string{sourceRoot}, rest...)...)
		if pathExists(candidate) {
			anchorSegs := segs[:drop]
			anchor := drive
			if len(anchorSegs) > 0 {
				anchor = drive + "/" + strings.Join(anchorSegs, "/")
			}
			return candidate, anchor, sourceRoot, true
		}
	}
	return "", "", "", false
}

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// rewriteAnchor replaces occurrences of a resolved Windows anchor with its
// POSIX replacement, tolerating both path separator styles.
func rewriteAnchor(s, oldAnchor, newAnchor string) string {
	if oldAnchor == "" {
		return s
	}
	backslash := strings.ReplaceAll(oldAnchor, "/", `\`)
	s = strings.ReplaceAll(s, backslash, newAnchor)
	s = strings.ReplaceAll(s, oldAnchor, newAnchor)
	return s
}

// rewriteEntry resolves an entry's file path onto sourceRoot and rewrites
// its directory/command/arguments fields to match. ok is false when the
// entry's file cannot be found on disk and should be dropped.
func rewriteEntry(e Entry, sourceRoot string) (rewritten Entry, ok bool) {
	rewritten = e

	switch {
	case isWindowsAbsolutePath(e.File):
		resolved, oldAnchor, newAnchor, found := resolveWindowsPath(e.File, sourceRoot)
		if !found {
			return Entry{}, false
		}
		rewritten.File = resolved
		if isWindowsAbsolutePath(e.Directory) {
			rewritten.Directory = rewriteAnchor(e.Directory, oldAnchor, newAnchor)
			if rewritten.Directory == e.Directory {
				// The directory didn't share the file's anchor; fall back
				// to the resolved file's own directory.
				rewritten.Directory = filepath.Dir(resolved)
			}
		}
		rewritten.Command = rewriteAnchor(e.Command, oldAnchor, newAnchor)
		if len(e.Arguments) > 0 {
			args := make([]string, len(e.Arguments))
			for i, a := range e.Arguments {
				args[i] = rewriteAnchor(a, oldAnchor, newAnchor)
			}
			rewritten.Arguments = args
		}

	case !filepath.IsAbs(e.File):
		dir := e.Directory
		if isWindowsAbsolutePath(dir) {
			segs := windowsSegments(dir)
			dir = filepath.Join(append([]string{sourceRoot}, segs...)...)
		}
		candidate := filepath.Clean(filepath.Join(dir, e.File))
		if !pathExists(candidate) {
			return Entry{}, false
		}
		rewritten.File = candidate
		rewritten.Directory = dir

	default:
		if !pathExists(e.File) {
			return Entry{}, false
		}
	}

	return rewritten, true
}

// RewriteForHost rewrites Windows-produced paths in entries to their
// on-disk equivalents under sourceRoot, dropping any entry whose file
// cannot be located. It returns the rewritten entries and the number of
// entries dropped.
func RewriteForHost(entries []Entry, sourceRoot string) (rewritten []Entry, dropped int) {
	rewritten = make([]Entry, 0, len(entries))
	for _, e := range entries {
		r, ok := rewriteEntry(e, sourceRoot)
		if !ok {
			dropped++
			continue
		}
		rewritten = append(rewritten, r)
	}
	return rewritten, dropped
}

// RewriteCompdbForHost reads a compile database, refuses if it targets an
// incompatible Windows toolchain, rewrites its paths for sourceRoot, and
// writes the result to a new file alongside the original (the original is
// left untouched). It returns the new file's path and the number of
// entries dropped because their source file no longer exists on disk.
func RewriteCompdbForHost(compdbPath, sourceRoot string) (outputPath string, dropped int, err error) {
	entries, err := ReadEntries(compdbPath)
	if err != nil {
		return "", 0, err
	}
	if _, incompatible := DetectIncompatibleWindowsToolchain(entries); incompatible {
		matching, total := countWindowsToolchainEntries(entries)
		return "", 0, &IncompatibleToolchainError{Path: compdbPath, MatchingCount: matching, TotalCount: total}
	}

	rewritten, dropped := RewriteForHost(entries, sourceRoot)

	ext := filepath.Ext(compdbPath)
	base := strings.TrimSuffix(compdbPath, ext)
	outputPath = base + ".normalized" + ext
	if err := WriteEntries(outputPath, rewritten); err != nil {
		return "", 0, err
	}
	return outputPath, dropped, nil
}
