// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kraklabs/cxxgraph/internal/output"
)

// WriteReport serializes report as JSON to path, creating parent
// directories as needed, per §6's Run report contract.
func WriteReport(report RunReport, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("pipeline: create report directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("pipeline: create report file: %w", err)
	}
	defer f.Close()

	return WriteReportTo(f, report)
}

// WriteReportTo serializes report as JSON to w.
func WriteReportTo(w io.Writer, report RunReport) error {
	return output.JSONTo(w, report)
}
