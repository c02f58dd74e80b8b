// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package scipsymbol

// Kind mirrors the subset of SCIP's SymbolInformation_Kind enum that the
// classifier needs to tell entity kinds apart. Values match the protobuf
// wire enum so callers can pass scip.SymbolInformation_Kind values
// directly without a translation table.
type Kind int32

const (
	KindUnspecified   Kind = 0
	KindClass         Kind = 9
	KindConstructor   Kind = 11
	KindEnum          Kind = 15
	KindEnumMember    Kind = 16
	KindField         Kind = 19
	KindFunction      Kind = 21
	KindMacro         Kind = 30
	KindMethod        Kind = 31
	KindNamespace     Kind = 38
	KindParameter     Kind = 45
	KindStruct        Kind = 66
	KindTypeAlias     Kind = 74
	KindTypeParameter Kind = 78
	KindUnion         Kind = 79
	KindVariable      Kind = 81
)

// droppableKinds never survive classification regardless of namespace:
// they carry no useful cross-reference identity of their own.
var droppableKinds = map[Kind]bool{
	KindNamespace:     true,
	KindVariable:      true,
	KindParameter:     true,
	KindTypeParameter: true,
	KindField:         true,
	KindEnum:          true,
	KindEnumMember:    true,
	KindMacro:         true,
	KindTypeAlias:     true,
}

func isStructLikeKind(k Kind) bool {
	return k == KindStruct || k == KindUnion
}
