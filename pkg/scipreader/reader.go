// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package scipreader

import (
	"errors"
	"sort"

	"github.com/sourcegraph/scip/bindings/go/scip"

	"github.com/kraklabs/cxxgraph/pkg/scipsymbol"
)

// ErrMetadataOnlyIndex is returned when an index carries zero documents
// and zero external symbols — a sign the compile database was never
// actually executable on this host, not a legitimately empty repo.
var ErrMetadataOnlyIndex = errors.New("scip index has no documents or external symbols: compile database was not executable on this host")

// Read runs the two-pass algorithm in §4.3 over a decoded SCIP index and
// returns the filtered symbol/reference stream. The caller pairs the
// result with its repo name before handing it to the Workspace Catalog.
func Read(index *scip.Index, cfg scipsymbol.Config) (ParseResult, error) {
	if len(index.Documents) == 0 && len(index.ExternalSymbols) == 0 {
		return ParseResult{}, ErrMetadataOnlyIndex
	}

	localDefs, kindBySymbol := collectLocalDefinitions(index)

	result := ParseResult{
		DocumentCount:       len(index.Documents),
		ExternalSymbolCount: len(index.ExternalSymbols),
	}

	for _, doc := range index.Documents {
		processDocument(doc, cfg, localDefs, kindBySymbol, &result)
	}

	return result, nil
}

// collectLocalDefinitions makes pass 1 over the whole index: the set of
// symbols that appear with the Definition role anywhere, and a
// best-effort symbol->kind map built from every document's symbol table
// (used to classify relationship and reference targets whose
// SymbolInformation lives in a different document than the occurrence).
func collectLocalDefinitions(index *scip.Index) (map[string]bool, map[string]scipsymbol.Kind) {
	localDefs := make(map[string]bool)
	kindBySymbol := make(map[string]scipsymbol.Kind)

	for _, doc := range index.Documents {
		for _, occ := range doc.Occurrences {
			if occ.SymbolRoles&roleDefinition != 0 {
				localDefs[occ.Symbol] = true
			}
		}
		for _, symInfo := range doc.Symbols {
			kindBySymbol[symInfo.Symbol] = scipsymbol.Kind(int32(symInfo.Kind))
		}
	}
	return localDefs, kindBySymbol
}

func processDocument(
	doc *scip.Document,
	cfg scipsymbol.Config,
	localDefs map[string]bool,
	kindBySymbol map[string]scipsymbol.Kind,
	result *ParseResult,
) {
	spans := buildDefinitionSpans(doc)
	scope := newScopeMap(spans)

	defRangeBySymbol := make(map[string]Range, len(doc.Occurrences))
	for _, occ := range doc.Occurrences {
		if occ.SymbolRoles&roleDefinition == 0 {
			continue
		}
		if _, seen := defRangeBySymbol[occ.Symbol]; seen {
			continue
		}
		defRangeBySymbol[occ.Symbol] = normalizedRange(occ)
	}

	emitSymbolDefs(doc, cfg, localDefs, kindBySymbol, defRangeBySymbol, result)
	emitReferences(doc, cfg, localDefs, kindBySymbol, scope, result)
}

func buildDefinitionSpans(doc *scip.Document) []definitionSpan {
	spans := make([]definitionSpan, 0, len(doc.Occurrences))
	for _, occ := range doc.Occurrences {
		if occ.SymbolRoles&roleDefinition == 0 {
			continue
		}
		r := occ.EnclosingRange
		if len(r) == 0 {
			r = occ.Range
		}
		start, end := occurrenceLineBounds(r)
		spans = append(spans, definitionSpan{start: start, end: end, width: end - start, symbol: occ.Symbol})
	}
	return spans
}

func normalizedRange(occ *scip.Occurrence) Range {
	r := occ.Range
	switch len(r) {
	case 3:
		return Range{StartLine: r[0], StartChar: r[1], EndLine: r[0], EndChar: r[2]}
	case 4:
		return Range{StartLine: r[0], StartChar: r[1], EndLine: r[2], EndChar: r[3]}
	default:
		return Range{}
	}
}

func emitSymbolDefs(
	doc *scip.Document,
	cfg scipsymbol.Config,
	localDefs map[string]bool,
	kindBySymbol map[string]scipsymbol.Kind,
	defRangeBySymbol map[string]Range,
	result *ParseResult,
) {
	for _, symInfo := range doc.Symbols {
		if isLocalSymbolString(symInfo.Symbol) {
			continue
		}

		kind := scipsymbol.Kind(int32(symInfo.Kind))
		parsed, err := scipsymbol.Parse(symInfo.Symbol, kind, cfg)
		if err != nil {
			result.DroppedSymbolCount++
			continue
		}

		isLocalDef := localDefs[symInfo.Symbol]
		disposition := scipsymbol.Classify(parsed, kind, isLocalDef, cfg)
		if disposition == scipsymbol.Drop {
			result.DroppedSymbolCount++
			continue
		}

		relationships := make([]RelationshipRef, 0, len(symInfo.Relationships))
		for _, rel := range symInfo.Relationships {
			relKind := kindBySymbol[rel.Symbol]
			relParsed, err := scipsymbol.Parse(rel.Symbol, relKind, cfg)
			if err != nil {
				continue
			}
			relDisposition := scipsymbol.Classify(relParsed, relKind, localDefs[rel.Symbol], cfg)
			if relDisposition == scipsymbol.Drop {
				continue
			}
			relationships = append(relationships, RelationshipRef{
				TargetSymbol:     rel.Symbol,
				TargetParsed:     relParsed,
				TargetKind:       relKind,
				IsImplementation: rel.IsImplementation,
				IsTypeDefinition: rel.IsTypeDefinition,
			})
		}

		result.Symbols = append(result.Symbols, SymbolDef{
			Symbol:          symInfo.Symbol,
			Parsed:          parsed,
			Kind:            kind,
			Disposition:     disposition,
			DocumentPath:    doc.RelativePath,
			DefinitionRange: defRangeBySymbol[symInfo.Symbol],
			Relationships:   relationships,
		})
	}
}

func emitReferences(
	doc *scip.Document,
	cfg scipsymbol.Config,
	localDefs map[string]bool,
	kindBySymbol map[string]scipsymbol.Kind,
	scope *scopeMap,
	result *ParseResult,
) {
	type pending struct {
		occ  *scip.Occurrence
		line int32
	}

	queue := make([]pending, 0, len(doc.Occurrences))
	for _, occ := range doc.Occurrences {
		if occ.SymbolRoles&roleDefinition != 0 {
			continue
		}
		if isLocalSymbolString(occ.Symbol) {
			continue
		}
		start, _ := occurrenceLineBounds(occ.Range)
		queue = append(queue, pending{occ: occ, line: start})
	}

	sort.SliceStable(queue, func(i, j int) bool { return queue[i].line < queue[j].line })

	for _, p := range queue {
		targetKind := kindBySymbol[p.occ.Symbol]
		targetParsed, err := scipsymbol.Parse(p.occ.Symbol, targetKind, cfg)
		if err != nil {
			result.DroppedReferenceCount++
			continue
		}
		targetDisposition := scipsymbol.Classify(targetParsed, targetKind, localDefs[p.occ.Symbol], cfg)
		if targetDisposition == scipsymbol.Drop {
			result.DroppedReferenceCount++
			continue
		}

		enclosing := scope.enclosingSymbol(p.line)
		if enclosing == "" {
			result.DroppedReferenceCount++
			continue
		}
		enclosingKind := kindBySymbol[enclosing]
		enclosingParsed, err := scipsymbol.Parse(enclosing, enclosingKind, cfg)
		if err != nil || scipsymbol.Classify(enclosingParsed, enclosingKind, localDefs[enclosing], cfg) == scipsymbol.Drop {
			result.DroppedReferenceCount++
			continue
		}

		result.References = append(result.References, Reference{
			TargetSymbol:    p.occ.Symbol,
			TargetParsed:    targetParsed,
			TargetKind:      targetKind,
			EnclosingSymbol: enclosing,
			EnclosingParsed: enclosingParsed,
			EnclosingKind:   enclosingKind,
			Role:            inferRole(p.occ.SymbolRoles),
			DocumentPath:    doc.RelativePath,
			Line:            p.line,
		})
	}
}

func isLocalSymbolString(symbol string) bool {
	return len(symbol) >= 6 && symbol[:6] == "local "
}
