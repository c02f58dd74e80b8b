// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package graphwriter

import (
	"sort"

	"github.com/kraklabs/cxxgraph/pkg/catalog"
	"github.com/kraklabs/cxxgraph/pkg/identity"
	"github.com/kraklabs/cxxgraph/pkg/scipreader"
	"github.com/kraklabs/cxxgraph/pkg/scipsymbol"
)

const externalFilePlaceholder = "<external>"

// allowedTypePairs is the closed validation table from §4.5.
var allowedTypePairs = map[RelationshipType]func(src, tgt identity.EntityType) bool{
	Inherits: func(src, tgt identity.EntityType) bool {
		return isClassOrStruct(src) && isClassOrStruct(tgt)
	},
	Overrides: func(src, tgt identity.EntityType) bool {
		return src == identity.Function && tgt == identity.Function
	},
	Calls: func(src, tgt identity.EntityType) bool {
		return src == identity.Function && tgt == identity.Function
	},
	UsesType: func(src, tgt identity.EntityType) bool {
		return (src == identity.Function || isClassOrStruct(src)) && isClassOrStruct(tgt)
	},
}

func isClassOrStruct(t identity.EntityType) bool { return t == identity.Class || t == identity.Struct }

// buildResult is the in-memory, pre-write product of node/edge
// construction, deduplication, and validation — pure, no I/O, fully
// unit-testable.
type buildResult struct {
	nodesByType map[identity.EntityType][]NodeRecord
	edgesByType map[RelationshipType][]EdgeRecord
	files       []FileNode
	definedIn   []EdgeRecord
	stats       RunStats
}

// Build implements the node/edge construction, dedup, and validation
// steps of §4.5 over every repo's parse result plus the workspace-wide
// catalog.
func Build(repoResults []catalog.RepoParseResult, cat *catalog.Catalog, cfg scipsymbol.Config) buildResult {
	nodes := make(map[nodeKey]NodeRecord)
	fileNodes := make(map[fileKey]FileNode)

	for _, rp := range repoResults {
		for _, def := range rp.Result.Symbols {
			node := nodeFromSymbolDef(def, rp.RepoName, cfg)
			mergeNode(nodes, node)
		}
	}

	edges := make(map[edgeKey]EdgeRecord)
	definedIn := make(map[edgeKey]EdgeRecord)
	stats := RunStats{DroppedEdgesByReason: map[DroppedEdgeReason]int{}}

	for _, rp := range repoResults {
		for _, def := range rp.Result.Symbols {
			srcNode := nodeFromSymbolDef(def, rp.RepoName, cfg)

			if def.Disposition == scipsymbol.Keep {
				fn := FileNode{Path: def.DocumentPath, RepoName: rp.RepoName}
				fileNodes[fn.key()] = fn
				addEdge(definedIn, stats.DroppedEdgesByReason, EdgeRecord{
					SrcOwnerRepo: srcNode.OwnerRepo, SrcScipSymbol: srcNode.ScipSymbol,
					TgtOwnerRepo: rp.RepoName, TgtScipSymbol: filePseudoSymbol(def.DocumentPath),
					RelationshipType: DefinedIn,
				}, srcNode.EntityType, identity.EntityType("File"), "", "")
			}

			for _, rel := range def.Relationships {
				tgtOwner, tgtFile, tgtExternal := resolveTargetLocation(rel.TargetSymbol, rel.TargetParsed, rp.RepoName, cat, cfg)
				tgtNode := NodeRecord{
					OwnerRepo: tgtOwner, ScipSymbol: rel.TargetSymbol,
					EntityType: rel.TargetParsed.EntityType, IsExternal: tgtExternal, FilePath: tgtFile,
					GlobalURI: identity.BuildGlobalURI(tgtOwner, tgtFile, rel.TargetParsed.EntityType, rel.TargetParsed.EntityName, ""),
				}

				if rel.IsImplementation {
					rt := classifyImplementationEdge(srcNode.EntityType, tgtNode.EntityType)
					if rt != "" {
						addEdge(edges, stats.DroppedEdgesByReason, EdgeRecord{
							SrcOwnerRepo: srcNode.OwnerRepo, SrcScipSymbol: srcNode.ScipSymbol,
							TgtOwnerRepo: tgtNode.OwnerRepo, TgtScipSymbol: tgtNode.ScipSymbol,
							RelationshipType: rt,
						}, srcNode.EntityType, tgtNode.EntityType, srcNode.GlobalURI, tgtNode.GlobalURI)
					}
				}
				if rel.IsTypeDefinition && isClassOrStruct(tgtNode.EntityType) && (srcNode.EntityType == identity.Function || isClassOrStruct(srcNode.EntityType)) {
					addEdge(edges, stats.DroppedEdgesByReason, EdgeRecord{
						SrcOwnerRepo: srcNode.OwnerRepo, SrcScipSymbol: srcNode.ScipSymbol,
						TgtOwnerRepo: tgtNode.OwnerRepo, TgtScipSymbol: tgtNode.ScipSymbol,
						RelationshipType: UsesType,
					}, srcNode.EntityType, tgtNode.EntityType, srcNode.GlobalURI, tgtNode.GlobalURI)
				}
			}
		}

		for _, ref := range rp.Result.References {
			emitReferenceEdge(ref, rp.RepoName, cat, cfg, edges, stats.DroppedEdgesByReason)
		}
	}

	result := buildResult{
		nodesByType: make(map[identity.EntityType][]NodeRecord),
		edgesByType: make(map[RelationshipType][]EdgeRecord),
		stats:       stats,
	}
	for _, n := range nodes {
		result.nodesByType[n.EntityType] = append(result.nodesByType[n.EntityType], n)
		result.stats.NodesPrepared++
	}
	result.stats.NodesDeduped = len(nodes)
	for _, e := range edges {
		result.edgesByType[e.RelationshipType] = append(result.edgesByType[e.RelationshipType], e)
		result.stats.EdgesPrepared++
	}
	result.stats.EdgesDeduped = len(edges) + len(definedIn)
	for _, f := range fileNodes {
		result.files = append(result.files, f)
	}
	for _, e := range definedIn {
		result.definedIn = append(result.definedIn, e)
	}

	sortNodesAndEdges(&result)
	return result
}

// sortNodesAndEdges orders every slice deterministically so writes are
// batch-stable across reruns of identical input, matching the
// idempotence invariant in §5.
func sortNodesAndEdges(r *buildResult) {
	for t := range r.nodesByType {
		ns := r.nodesByType[t]
		sort.Slice(ns, func(i, j int) bool {
			if ns[i].OwnerRepo != ns[j].OwnerRepo {
				return ns[i].OwnerRepo < ns[j].OwnerRepo
			}
			return ns[i].ScipSymbol < ns[j].ScipSymbol
		})
	}
	for t := range r.edgesByType {
		es := r.edgesByType[t]
		sort.Slice(es, func(i, j int) bool {
			if es[i].SrcScipSymbol != es[j].SrcScipSymbol {
				return es[i].SrcScipSymbol < es[j].SrcScipSymbol
			}
			return es[i].TgtScipSymbol < es[j].TgtScipSymbol
		})
	}
	sort.Slice(r.files, func(i, j int) bool { return r.files[i].Path < r.files[j].Path })
	sort.Slice(r.definedIn, func(i, j int) bool { return r.definedIn[i].SrcScipSymbol < r.definedIn[j].SrcScipSymbol })
}

func filePseudoSymbol(path string) string { return "file:" + path }

func nodeFromSymbolDef(def scipreader.SymbolDef, currentRepo string, cfg scipsymbol.Config) NodeRecord {
	var ownerRepo, filePath string
	isExternal := def.Disposition == scipsymbol.Stub
	if isExternal {
		ownerRepo = scipsymbol.ResolveOwnerRepo(def.Parsed, currentRepo, cfg)
		filePath = externalFilePlaceholder
	} else {
		ownerRepo = currentRepo
		filePath = def.DocumentPath
	}

	globalURI := identity.BuildGlobalURI(ownerRepo, filePath, def.Parsed.EntityType, def.Parsed.EntityName, "")

	return NodeRecord{
		OwnerRepo:       ownerRepo,
		ScipSymbol:      def.Symbol,
		GlobalURI:       globalURI,
		EntityType:      def.Parsed.EntityType,
		EntityName:      def.Parsed.EntityName,
		FilePath:        filePath,
		IngestionRepo:   currentRepo,
		IsExternal:      isExternal,
		FunctionSigHash: def.Parsed.FunctionSigHash,
	}
}

// mergeNode implements the node dedup rule: keyed on (owner_repo,
// scip_symbol); a local record always wins over a stub for the same key.
func mergeNode(nodes map[nodeKey]NodeRecord, incoming NodeRecord) {
	key := incoming.key()
	existing, ok := nodes[key]
	if !ok {
		nodes[key] = incoming
		return
	}
	if existing.IsExternal && !incoming.IsExternal {
		nodes[key] = incoming
	}
}

// resolveTargetLocation resolves a relationship/reference target's owner
// repo and file path: keep targets use the workspace catalog (the
// repo-local symbol_file_map in aggregate); stub targets fall back to
// namespace owner-mapping.
func resolveTargetLocation(targetSymbol string, parsed scipsymbol.ParsedScipSymbol, currentRepo string, cat *catalog.Catalog, cfg scipsymbol.Config) (ownerRepo, filePath string, isExternal bool) {
	if owner, ok := cat.ResolveOwnerRepo(targetSymbol); ok {
		file, _ := cat.ResolveOwnerFile(targetSymbol)
		return owner, file, false
	}
	return scipsymbol.ResolveOwnerRepo(parsed, currentRepo, cfg), externalFilePlaceholder, true
}

func classifyImplementationEdge(src, tgt identity.EntityType) RelationshipType {
	switch {
	case src == identity.Function && tgt == identity.Function:
		return Overrides
	case isClassOrStruct(src) && isClassOrStruct(tgt):
		return Inherits
	default:
		return ""
	}
}

func emitReferenceEdge(ref scipreader.Reference, currentRepo string, cat *catalog.Catalog, cfg scipsymbol.Config, edges map[edgeKey]EdgeRecord, dropped map[DroppedEdgeReason]int) {
	srcOwner, srcFile, _ := resolveTargetLocation(ref.EnclosingSymbol, ref.EnclosingParsed, currentRepo, cat, cfg)
	tgtOwner, tgtFile, _ := resolveTargetLocation(ref.TargetSymbol, ref.TargetParsed, currentRepo, cat, cfg)

	srcType := ref.EnclosingParsed.EntityType
	tgtType := ref.TargetParsed.EntityType

	var rt RelationshipType
	switch {
	case isClassOrStruct(tgtType) && (ref.Role == scipreader.RoleRead || ref.Role == scipreader.RoleWrite || ref.Role == scipreader.RoleCall):
		rt = UsesType
	case srcType == identity.Function && tgtType == identity.Function:
		rt = Calls
	default:
		return // only READ/WRITE/CALL participate; everything else is dropped
	}

	srcURI := identity.BuildGlobalURI(srcOwner, srcFile, srcType, ref.EnclosingParsed.EntityName, "")
	tgtURI := identity.BuildGlobalURI(tgtOwner, tgtFile, tgtType, ref.TargetParsed.EntityName, "")

	addEdge(edges, dropped, EdgeRecord{
		SrcOwnerRepo: srcOwner, SrcScipSymbol: ref.EnclosingSymbol,
		TgtOwnerRepo: tgtOwner, TgtScipSymbol: ref.TargetSymbol,
		RelationshipType: rt,
	}, srcType, tgtType, srcURI, tgtURI)
}

// addEdge runs validation (endpoint URIs well-formed, allowed type pair,
// no CALLS from File) before dedup-inserting the edge; invalid edges are
// counted and dropped. srcURI/tgtURI are ignored for DEFINED_IN edges,
// whose target is a File pseudo-node rather than a Global-URI-bearing
// entity.
func addEdge(edges map[edgeKey]EdgeRecord, dropped map[DroppedEdgeReason]int, e EdgeRecord, srcType, tgtType identity.EntityType, srcURI, tgtURI string) {
	if e.RelationshipType == Calls && srcType == identity.EntityType("File") {
		dropped[ReasonCallsFromFile]++
		return
	}
	if e.RelationshipType != DefinedIn {
		if _, err := identity.ParseGlobalURI(srcURI); err != nil {
			dropped[ReasonMalformedURI]++
			return
		}
		if _, err := identity.ParseGlobalURI(tgtURI); err != nil {
			dropped[ReasonMalformedURI]++
			return
		}
		check, ok := allowedTypePairs[e.RelationshipType]
		if !ok || !check(srcType, tgtType) {
			dropped[ReasonImpossibleTypePair]++
			return
		}
	}
	edges[e.key()] = e
}
