// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package scipsymbol

import (
	"fmt"
	"strings"
)

// MalformedSymbolError is returned when a SCIP symbol string cannot be
// decomposed into scheme/package/descriptor fields, or its descriptor
// tail does not follow the suffix grammar.
type MalformedSymbolError struct {
	Symbol string
	Reason string
}

func (e *MalformedSymbolError) Error() string {
	return fmt.Sprintf("malformed scip symbol %q: %s", e.Symbol, e.Reason)
}

// localPlaceholder is the conventional package-name value SCIP indexers
// emit for symbols defined inside the project under indexing, as opposed
// to a named third-party package.
const localPlaceholder = "."

// fields is the decomposed, not-yet-descriptor-walked symbol string.
type fields struct {
	scheme         string
	packageManager string
	packageName    string
	packageVersion string
	descriptor     string
	isLocal        bool
	localID        string
}

func splitFields(symbol string) (fields, error) {
	if strings.HasPrefix(symbol, "local ") {
		return fields{isLocal: true, localID: strings.TrimPrefix(symbol, "local ")}, nil
	}

	tokens, err := tokenizeTopLevelSpaces(symbol)
	if err != nil {
		return fields{}, err
	}
	if len(tokens) < 5 {
		return fields{}, &MalformedSymbolError{Symbol: symbol, Reason: "fewer than 5 space-separated fields"}
	}

	return fields{
		scheme:         tokens[0],
		packageManager: tokens[1],
		packageName:    tokens[2],
		packageVersion: tokens[3],
		descriptor:     strings.Join(tokens[4:], " "),
	}, nil
}

// tokenizeTopLevelSpaces splits on spaces, except spaces enclosed in a
// backtick-quoted name (e.g. `(anonymous namespace)`), matching SCIP's
// convention for escaping names that contain characters with grammar
// significance.
func tokenizeTopLevelSpaces(s string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	inBacktick := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '`':
			inBacktick = !inBacktick
			cur.WriteByte(c)
		case c == ' ' && !inBacktick:
			tokens = append(tokens, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if inBacktick {
		return nil, &MalformedSymbolError{Symbol: s, Reason: "unterminated backtick-escaped name"}
	}
	tokens = append(tokens, cur.String())
	return tokens, nil
}

func isSuffixChar(c byte) bool {
	return c == '/' || c == '#' || c == '(' || c == '.' || c == '!'
}

// component is one descriptor-tail element: a name plus the grammar
// suffix that follows it, and (for method disambiguators) the raw
// disambiguator text found between parentheses.
type component struct {
	name     string
	suffix   byte
	disambig string
}

// readComponent reads a single name (raw or backtick-escaped) starting at
// s[i] and the suffix character that terminates it, returning the index
// just past the suffix (past the trailing '.' for a "(disambig)." form).
func readComponent(s string, i int) (component, int, error) {
	if i >= len(s) {
		return component{}, i, &MalformedSymbolError{Symbol: s, Reason: "descriptor ended mid-component"}
	}

	var name string
	if s[i] == '`' {
		j := i + 1
		var b strings.Builder
		closed := false
		for j < len(s) {
			if s[j] == '`' {
				if j+1 < len(s) && s[j+1] == '`' {
					b.WriteByte('`')
					j += 2
					continue
				}
				closed = true
				j++
				break
			}
			b.WriteByte(s[j])
			j++
		}
		if !closed {
			return component{}, i, &MalformedSymbolError{Symbol: s, Reason: "unterminated backtick-escaped name in descriptor"}
		}
		name = b.String()
		i = j
	} else {
		j := i
		for j < len(s) && !isSuffixChar(s[j]) {
			j++
		}
		name = s[i:j]
		i = j
	}

	if i >= len(s) {
		return component{}, i, &MalformedSymbolError{Symbol: s, Reason: "name with no grammar suffix"}
	}

	suffix := s[i]
	if suffix != '(' {
		return component{name: name, suffix: suffix}, i + 1, nil
	}

	closeIdx := strings.IndexByte(s[i:], ')')
	if closeIdx < 0 {
		return component{}, i, &MalformedSymbolError{Symbol: s, Reason: "unterminated disambiguator"}
	}
	closeIdx += i
	disambig := s[i+1 : closeIdx]
	next := closeIdx + 1
	if next >= len(s) || s[next] != '.' {
		return component{}, i, &MalformedSymbolError{Symbol: s, Reason: "disambiguator not followed by '.'"}
	}
	return component{name: name, suffix: '(', disambig: disambig}, next + 1, nil
}

// walkDescriptor parses the descriptor tail left to right per the grammar:
// '/' => namespace component, '#' => type component (namespace component
// if more follows), "(disambig)." => function with a signature
// disambiguator, '.' => free function / static term, '!' => macro (always
// dropped by the caller).
func walkDescriptor(descriptor string) (namespaceParts []string, terminal component, isMacro bool, err error) {
	i := 0
	for i < len(descriptor) {
		comp, next, cerr := readComponent(descriptor, i)
		if cerr != nil {
			return nil, component{}, false, cerr
		}
		hasMore := next < len(descriptor)

		switch comp.suffix {
		case '/':
			namespaceParts = append(namespaceParts, comp.name)
		case '#':
			if hasMore {
				namespaceParts = append(namespaceParts, comp.name)
			} else {
				terminal = comp
			}
		case '(', '.':
			terminal = comp
		case '!':
			isMacro = true
			terminal = comp
		default:
			return nil, component{}, false, &MalformedSymbolError{Symbol: descriptor, Reason: "unrecognized suffix"}
		}
		i = next
	}
	return namespaceParts, terminal, isMacro, nil
}
