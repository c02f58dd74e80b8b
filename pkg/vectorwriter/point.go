// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package vectorwriter

import "github.com/google/uuid"

// pointIDNamespace seeds every UUIDv5 point ID, so that the same identity
// key always produces the same point ID across runs and processes.
var pointIDNamespace = uuid.MustParse("6f6e9b2a-6c2a-4e9a-9c2e-9b9a2a6c2a4e")

// pointID implements §3's Point ID rule: UUIDv5 over a fixed namespace
// seeded with the identity key.
func pointID(identityKey string) string {
	return uuid.NewSHA1(pointIDNamespace, []byte(identityKey)).String()
}

// buildPoint assembles a Point from an entity and its embedding vector,
// per §4.6 step 3: payload carries every entity field plus identity_key
// and the optional function_sig_hash.
func buildPoint(e Entity, vector []float32) Point {
	payload := map[string]any{
		"global_uri":   e.GlobalURI,
		"identity_key": e.IdentityKey(),
		"repo_name":    e.RepoName,
		"file_path":    e.FilePath,
		"entity_type":  string(e.EntityType),
		"entity_name":  e.EntityName,
		"start_line":   e.StartLine,
		"end_line":     e.EndLine,
		"is_templated": e.IsTemplated,
	}
	if e.Docstring != "" {
		payload["docstring"] = e.Docstring
	}
	if e.FunctionSigHash != "" {
		payload["function_sig_hash"] = e.FunctionSigHash
	}

	return Point{ID: pointID(e.IdentityKey()), Vector: vector, Payload: payload}
}
