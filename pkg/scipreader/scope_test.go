// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package scipreader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeMapInnermostWins(t *testing.T) {
	spans := []definitionSpan{
		{start: 0, end: 1000000, width: 1000000, symbol: "outer"},
		{start: 50, end: 60, width: 10, symbol: "inner"},
	}
	m := newScopeMap(spans)
	assert.Equal(t, "outer", m.enclosingSymbol(10))
	assert.Equal(t, "inner", m.enclosingSymbol(55))
	assert.Equal(t, "outer", m.enclosingSymbol(999))
}

func TestScopeMapNoEnclosing(t *testing.T) {
	m := newScopeMap(nil)
	assert.Equal(t, "", m.enclosingSymbol(5))
}

func TestScopeMapExpiresSpans(t *testing.T) {
	spans := []definitionSpan{
		{start: 0, end: 5, width: 5, symbol: "a"},
		{start: 10, end: 20, width: 10, symbol: "b"},
	}
	m := newScopeMap(spans)
	assert.Equal(t, "a", m.enclosingSymbol(2))
	assert.Equal(t, "", m.enclosingSymbol(7))
	assert.Equal(t, "b", m.enclosingSymbol(15))
}

func TestScopeMapSiblingSpans(t *testing.T) {
	spans := []definitionSpan{
		{start: 0, end: 10, width: 10, symbol: "first"},
		{start: 11, end: 20, width: 9, symbol: "second"},
	}
	m := newScopeMap(spans)
	assert.Equal(t, "first", m.enclosingSymbol(5))
	assert.Equal(t, "second", m.enclosingSymbol(15))
}
