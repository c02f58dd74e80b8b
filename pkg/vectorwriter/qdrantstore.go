// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package vectorwriter

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// payloadIndexFields are the keyword-type secondary indices §4.6 requires
// on first collection use, to allow filtered search without full scans.
var payloadIndexFields = []string{"global_uri", "repo_name", "file_path", "entity_type", "entity_name"}

// QdrantStore implements Store against a real Qdrant cluster.
type QdrantStore struct {
	client   *qdrant.Client
	distance qdrant.Distance
}

// NewQdrantStore wraps an already-constructed client. distance defaults
// to cosine similarity, matching the embedding models this system is
// built around.
func NewQdrantStore(client *qdrant.Client, distance qdrant.Distance) *QdrantStore {
	if distance == qdrant.Distance_UnknownDistance {
		distance = qdrant.Distance_Cosine
	}
	return &QdrantStore{client: client, distance: distance}
}

func (s *QdrantStore) EnsureCollection(ctx context.Context, name string, dimension int, recreate bool) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check collection exists: %w", err)
	}

	if exists {
		info, err := s.client.GetCollectionInfo(ctx, name)
		if err != nil {
			return fmt.Errorf("get collection info: %w", err)
		}
		existingSize := vectorSizeFromInfo(info)
		if existingSize != 0 && existingSize != uint64(dimension) {
			if !recreate {
				return &ErrDimensionMismatch{Collection: name, Existing: int(existingSize), Requested: dimension}
			}
			if err := s.client.DeleteCollection(ctx, name); err != nil {
				return fmt.Errorf("delete collection for recreate: %w", err)
			}
			exists = false
		}
	}

	if !exists {
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size: uint64(dimension), Distance: s.distance,
			}),
		})
		if err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
		for _, field := range payloadIndexFields {
			_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
				CollectionName: name,
				FieldName:      field,
				FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
			})
			if err != nil {
				return fmt.Errorf("create payload index %q: %w", field, err)
			}
		}
	}

	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	qPoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		qPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(p.Payload),
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         qPoints,
	})
	return err
}

// DeleteByRepo deletes every point whose repo_name payload field matches
// repoName, via a Qdrant filtered-delete selector.
func (s *QdrantStore) DeleteByRepo(ctx context.Context, collection string, repoName string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("repo_name", repoName),
			},
		}),
	})
	return err
}

func vectorSizeFromInfo(info *qdrant.CollectionInfo) uint64 {
	params := info.GetConfig().GetParams()
	if vc := params.GetVectorsConfig(); vc != nil {
		if single := vc.GetParams(); single != nil {
			return single.GetSize()
		}
	}
	return 0
}
