// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package vectorwriter

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/kraklabs/cxxgraph/pkg/identity"
)

// jsonlEntity mirrors Entity with JSON tags for the streaming variant;
// extractors emit one of these per line.
type jsonlEntity struct {
	GlobalURI       string `json:"global_uri"`
	RepoName        string `json:"repo_name"`
	FilePath        string `json:"file_path"`
	EntityType      string `json:"entity_type"`
	EntityName      string `json:"entity_name"`
	Docstring       string `json:"docstring,omitempty"`
	CodeText        string `json:"code_text"`
	StartLine       int    `json:"start_line"`
	EndLine         int    `json:"end_line"`
	IsTemplated     bool   `json:"is_templated"`
	FunctionSigHash string `json:"function_sig_hash,omitempty"`
}

func (j jsonlEntity) toEntity() Entity {
	return Entity{
		GlobalURI: j.GlobalURI, RepoName: j.RepoName, FilePath: j.FilePath,
		EntityType: identity.EntityType(j.EntityType), EntityName: j.EntityName,
		Docstring: j.Docstring, CodeText: j.CodeText,
		StartLine: j.StartLine, EndLine: j.EndLine,
		IsTemplated: j.IsTemplated, FunctionSigHash: j.FunctionSigHash,
	}
}

// WriteJSONL implements §4.6 step 4: read newline-delimited entities
// from r, chunk into sub-batches of at most chunkSize entities, and
// delegate each chunk to Write. Chunking bounds memory for very large
// extractor outputs; the dual count/char budget inside Write still
// governs embedding batch size within each chunk.
func (w *Writer) WriteJSONL(ctx context.Context, r io.Reader, chunkSize int) (RunStats, error) {
	if chunkSize <= 0 {
		chunkSize = 1000
	}

	total := RunStats{DroppedByReason: map[DroppedReason]int{}}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var chunk []Entity
	lineNo := 0

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		stats, err := w.Write(ctx, chunk)
		mergeStats(&total, stats)
		chunk = nil
		return err
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var je jsonlEntity
		if err := json.Unmarshal(line, &je); err != nil {
			return total, fmt.Errorf("parse entity at line %d: %w", lineNo, err)
		}
		chunk = append(chunk, je.toEntity())
		if len(chunk) >= chunkSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return total, fmt.Errorf("read entity stream: %w", err)
	}
	if err := flush(); err != nil {
		return total, err
	}

	return total, nil
}

func mergeStats(total *RunStats, s RunStats) {
	total.EntitiesSeen += s.EntitiesSeen
	total.BatchesSent += s.BatchesSent
	total.BatchesFailed += s.BatchesFailed
	total.PointsUpserted += s.PointsUpserted
	total.RetryAttempts += s.RetryAttempts
	total.TextsTruncated += s.TextsTruncated
	for reason, count := range s.DroppedByReason {
		total.DroppedByReason[reason] += count
	}
}

