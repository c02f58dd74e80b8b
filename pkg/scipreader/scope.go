// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package scipreader

import (
	"container/heap"
	"sort"
)

// occurrenceLineBounds normalizes a SCIP range array to (startLine,
// endLine). SCIP encodes a single-line range as [startLine, startChar,
// endChar] (3 ints) and a multi-line range as [startLine, startChar,
// endLine, endChar] (4 ints).
func occurrenceLineBounds(r []int32) (start, end int32) {
	if len(r) == 0 {
		return 0, 0
	}
	if len(r) == 3 {
		return r[0], r[0]
	}
	return r[0], r[2]
}

// definitionSpan is one definition occurrence's enclosing range, used as
// a candidate scope for resolving reference lines to their innermost
// enclosing symbol.
type definitionSpan struct {
	start, end, width int32
	symbol            string
}

// spanHeap is a min-heap ordered by span width (narrower = more inner),
// tie-broken by later start (a span starting later, at equal width,
// cannot contain one starting earlier so this only matters for equal
// start/width pairs) and finally by symbol for full determinism.
type spanHeap []definitionSpan

func (h spanHeap) Len() int { return len(h) }
func (h spanHeap) Less(i, j int) bool {
	if h[i].width != h[j].width {
		return h[i].width < h[j].width
	}
	if h[i].start != h[j].start {
		return h[i].start > h[j].start
	}
	return h[i].symbol < h[j].symbol
}
func (h spanHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *spanHeap) Push(x any)   { *h = append(*h, x.(definitionSpan)) }
func (h *spanHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// scopeMap resolves query lines to their innermost enclosing definition
// symbol via the sweep-line algorithm in §4.3: spans are pushed onto a
// min-heap keyed by width as their start line is reached, and popped
// lazily once their end line falls behind the current query line. Queries
// must be issued in non-decreasing line order.
type scopeMap struct {
	spans  []definitionSpan
	cursor int
	active spanHeap
}

func newScopeMap(spans []definitionSpan) *scopeMap {
	sorted := make([]definitionSpan, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].start < sorted[j].start })
	m := &scopeMap{spans: sorted}
	heap.Init(&m.active)
	return m
}

// enclosingSymbol returns the innermost active span's symbol at line, or
// "" if no definition span currently covers it. line must be >= the line
// passed to the previous call.
func (m *scopeMap) enclosingSymbol(line int32) string {
	for m.cursor < len(m.spans) && m.spans[m.cursor].start <= line {
		heap.Push(&m.active, m.spans[m.cursor])
		m.cursor++
	}
	for m.active.Len() > 0 && m.active[0].end < line {
		heap.Pop(&m.active)
	}
	if m.active.Len() == 0 {
		return ""
	}
	return m.active[0].symbol
}
