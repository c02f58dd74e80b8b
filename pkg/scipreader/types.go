// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

// Package scipreader consumes a serialized SCIP index and produces the
// filtered symbol/reference stream the Graph Writer and Vector Writer
// build on, applying namespace-based classification at parse time and
// resolving reference scope via a sweep-line over definition spans.
package scipreader

import "github.com/kraklabs/cxxgraph/pkg/scipsymbol"

// Role is the access role inferred from SCIP occurrence role bits.
type Role string

const (
	RoleRead  Role = "READ"
	RoleWrite Role = "WRITE"
	RoleCall  Role = "CALL"
)

// SCIP SymbolRole bit flags (protobuf wire values), reproduced locally so
// the reader doesn't need the generated enum type for this one check.
const (
	roleDefinition  int32 = 0x1
	roleImport      int32 = 0x2
	roleWriteAccess int32 = 0x4
	roleReadAccess  int32 = 0x8
)

func inferRole(symbolRoles int32) Role {
	switch {
	case symbolRoles&roleWriteAccess != 0:
		return RoleWrite
	case symbolRoles&roleReadAccess != 0:
		return RoleRead
	default:
		return RoleCall
	}
}

// Range is a normalized 4-tuple occurrence range (line/char pairs).
type Range struct {
	StartLine int32
	StartChar int32
	EndLine   int32
	EndChar   int32
}

// RelationshipRef is a SymbolDef's filtered, classified relationship to
// another (non-dropped) symbol.
type RelationshipRef struct {
	TargetSymbol     string
	TargetParsed     scipsymbol.ParsedScipSymbol
	TargetKind       scipsymbol.Kind
	IsImplementation bool
	IsTypeDefinition bool
}

// SymbolDef is an emitted, non-dropped symbol definition.
type SymbolDef struct {
	Symbol          string
	Parsed          scipsymbol.ParsedScipSymbol
	Kind            scipsymbol.Kind
	Disposition     scipsymbol.Disposition // Keep or Stub; Drop is never emitted
	DocumentPath    string
	DefinitionRange Range
	Relationships   []RelationshipRef
}

// Reference is an emitted, non-dropped occurrence that is not itself a
// definition.
type Reference struct {
	TargetSymbol    string
	TargetParsed    scipsymbol.ParsedScipSymbol
	TargetKind      scipsymbol.Kind
	EnclosingSymbol string
	EnclosingParsed scipsymbol.ParsedScipSymbol
	EnclosingKind   scipsymbol.Kind
	Role            Role
	DocumentPath    string
	Line            int32
}

// ParseResult is the output of reading one SCIP index.
type ParseResult struct {
	Symbols               []SymbolDef
	References            []Reference
	DocumentCount         int
	ExternalSymbolCount   int
	DroppedSymbolCount    int
	DroppedReferenceCount int
}
