// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package compiledb

import (
	"regexp"
	"strings"
)

var windowsAbsPathRe = regexp.MustCompile(`^[A-Za-z]:[\\/]`)

// isWindowsAbsolutePath reports whether p looks like a Windows drive-letter
// absolute path (e.g. "F:/webrtc_m89_mi/out/debug" or "C:\src\foo.cc").
func isWindowsAbsolutePath(p string) bool {
	return windowsAbsPathRe.MatchString(p)
}

// windowsSegments splits a Windows drive-absolute path into its path
// segments after the drive letter, accepting both "/" and "\" separators.
func windowsSegments(p string) []string {
	rest := p[2:] // strip "F:"
	rest = strings.ReplaceAll(rest, "\\", "/")
	rest = strings.TrimPrefix(rest, "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

var toolchainMarkers = []string{"cl.exe", "clang-cl.exe"}

// usesWindowsToolchain reports whether an entry's command line invokes
// the MSVC or clang-cl frontend.
func usesWindowsToolchain(e Entry) bool {
	fields := e.Arguments
	haystack := e.Command
	if len(fields) > 0 {
		haystack = strings.Join(fields, " ")
	}
	lower := strings.ToLower(haystack)
	for _, marker := range toolchainMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
