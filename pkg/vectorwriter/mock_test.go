// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package vectorwriter

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedderIsDeterministic(t *testing.T) {
	var e MockEmbedder
	a, err := e.Embed(context.Background(), []string{"hello world"}, 8)
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), []string{"hello world"}, 8)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMockEmbedderReturnsUnitVectors(t *testing.T) {
	var e MockEmbedder
	vectors, err := e.Embed(context.Background(), []string{"foo", "bar"}, 16)
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	for _, v := range vectors {
		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-4)
	}
}

func TestMockEmbedderDiffersAcrossTexts(t *testing.T) {
	var e MockEmbedder
	vectors, err := e.Embed(context.Background(), []string{"foo", "bar"}, 8)
	require.NoError(t, err)
	assert.NotEqual(t, vectors[0], vectors[1])
}
