// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package scipreader

import (
	"fmt"
	"os"

	"github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"
)

// LoadIndex reads a serialized SCIP index (binary protobuf, per §6) from
// disk. A metadata-only index — zero documents and zero external
// symbols — is treated as a fatal configuration error: it means the
// compile database was never actually executable on this host.
func LoadIndex(path string) (*scip.Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scipreader: read index %s: %w", path, err)
	}

	var index scip.Index
	if err := proto.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("scipreader: parse index %s: %w", path, err)
	}

	if len(index.Documents) == 0 && len(index.ExternalSymbols) == 0 {
		return nil, fmt.Errorf("scipreader: index %s is metadata-only (0 documents, 0 external symbols); the compile database was not executable on this host", path)
	}

	return &index, nil
}
