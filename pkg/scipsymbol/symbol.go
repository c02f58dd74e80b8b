// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

// Package scipsymbol parses SCIP symbol strings into structured parts,
// classifies them as keep/drop/stub relative to an organization's
// namespace configuration, resolves cross-repo ownership for stubs, and
// converts symbols into Global URIs.
package scipsymbol

import (
	"regexp"
	"strings"

	"github.com/kraklabs/cxxgraph/pkg/identity"
)

// Disposition is the fate assigned to a SCIP symbol by Classify.
type Disposition string

const (
	Keep Disposition = "keep"
	Drop Disposition = "drop"
	Stub Disposition = "stub"
)

// DefaultIgnoredNamespaces is always dropped regardless of Config:
// standard library and common third-party namespaces carry no
// organization-owned cross-reference value.
var DefaultIgnoredNamespaces = []string{
	"std", "__gnu_cxx", "__cxxabiv1", "__gnu_debug", "boost", "__sanitizer", "__asan",
}

// fileScopeNamespace is the synthetic namespace SCIP indexers emit for
// symbols declared at file scope, e.g. `<file>/some_static_fn().`. These
// carry no stable cross-TU identity and are always dropped.
const fileScopeNamespace = "<file>"

// Config carries the deployment-specific namespace policy threaded
// through the pipeline entrypoint; there is no package-level global.
type Config struct {
	// MonitoredNamespaces are top-level namespaces owned by the
	// organization: kept when locally defined, stubbed otherwise.
	MonitoredNamespaces map[string]bool
	// IgnoredNamespaces are always dropped. Defaults to
	// DefaultIgnoredNamespaces when nil.
	IgnoredNamespaces map[string]bool
	// MonitoredNamespaceOwnerRepos maps a monitored namespace to the repo
	// that owns its real definition, for cross-repo stub resolution.
	MonitoredNamespaceOwnerRepos map[string]string
	// SignatureHashLength is the hex length passed to
	// identity.MakeSignatureHash when a disambiguator needs hashing.
	SignatureHashLength int
}

// NewConfig builds a Config with the standard ignored-namespace defaults
// and caller-supplied monitored namespaces / owner mapping.
func NewConfig(monitored map[string]bool, ownerRepos map[string]string) Config {
	ignored := make(map[string]bool, len(DefaultIgnoredNamespaces))
	for _, ns := range DefaultIgnoredNamespaces {
		ignored[ns] = true
	}
	if monitored == nil {
		monitored = map[string]bool{}
	}
	if ownerRepos == nil {
		ownerRepos = map[string]string{}
	}
	return Config{
		MonitoredNamespaces:          monitored,
		IgnoredNamespaces:            ignored,
		MonitoredNamespaceOwnerRepos: ownerRepos,
		SignatureHashLength:          12,
	}
}

// ParsedScipSymbol is the structured decomposition of a SCIP symbol string.
type ParsedScipSymbol struct {
	Scheme          string
	PackageManager  string
	PackageName     string
	PackageVersion  string
	NamespaceParts  []string
	EntityType      identity.EntityType
	EntityName      string
	FunctionSigHash string // only set for Function entities
	IsExternal      bool
	IsLocal         bool
	IsMacro         bool
	FirstNamespace  string
}

var disambigIsHashableRe = regexp.MustCompile(`(?i)^[0-9a-z_-]{4,64}$`)

// Parse decomposes a SCIP symbol string per the descriptor grammar in
// §4.2: '/' namespace, '#' type (namespace if more follows), "(d)."
// function with disambiguator, '.' free function/static term, '!' macro.
func Parse(symbol string, kind Kind, cfg Config) (ParsedScipSymbol, error) {
	f, err := splitFields(symbol)
	if err != nil {
		return ParsedScipSymbol{}, err
	}
	if f.isLocal {
		return ParsedScipSymbol{IsLocal: true}, nil
	}

	namespaceParts, terminal, isMacro, err := walkDescriptor(f.descriptor)
	if err != nil {
		return ParsedScipSymbol{}, err
	}

	parsed := ParsedScipSymbol{
		Scheme:         f.scheme,
		PackageManager: f.packageManager,
		PackageName:    f.packageName,
		PackageVersion: f.packageVersion,
		NamespaceParts: namespaceParts,
		IsMacro:        isMacro,
	}
	if len(namespaceParts) > 0 {
		parsed.FirstNamespace = namespaceParts[0]
	}

	if isMacro {
		return parsed, nil
	}

	switch terminal.suffix {
	case '#':
		parsed.EntityType = identity.Class
		if isStructLikeKind(kind) {
			parsed.EntityType = identity.Struct
		}
		parsed.EntityName = terminal.name
		if parsed.FirstNamespace == "" {
			parsed.FirstNamespace = terminal.name
		}
	case '(':
		parsed.EntityType = identity.Function
		parsed.EntityName = terminal.name
		parsed.FunctionSigHash = signatureHashFromDisambiguator(terminal.disambig, f.descriptor, cfg.SignatureHashLength)
	case '.':
		parsed.EntityType = identity.Function
		parsed.EntityName = terminal.name
	default:
		return ParsedScipSymbol{}, &MalformedSymbolError{Symbol: symbol, Reason: "descriptor has no terminal component"}
	}

	parsed.IsExternal = parsed.PackageName != localPlaceholder || !cfg.MonitoredNamespaces[parsed.FirstNamespace]
	return parsed, nil
}

// signatureHashFromDisambiguator implements §4.2's rule: a disambiguator
// that already looks like a hex/identifier token is reused directly
// (lowercased, "sig_" prefixed); anything else is re-hashed through
// identity.MakeSignatureHash so the stored hash always matches the
// sig_[0-9a-f]{8,40} shape.
func signatureHashFromDisambiguator(disambig, fallbackSource string, length int) string {
	if disambigIsHashableRe.MatchString(disambig) {
		return "sig_" + strings.ToLower(disambig)
	}
	return identity.MakeSignatureHash(disambig, length)
}

// Classify assigns a Disposition to a symbol, per §4.2:
//  1. Unparseable => drop (callers pass the Parse error as drop).
//  2. local, macro, or file-scope (`<file>/…`) => drop.
//  3. FirstNamespace in IgnoredNamespaces => drop.
//  4. FirstNamespace in MonitoredNamespaces and not locally defined => stub.
//  5. FirstNamespace in MonitoredNamespaces => keep.
//  6. Otherwise => keep (conservative).
func Classify(parsed ParsedScipSymbol, kind Kind, isLocalDefinition bool, cfg Config) Disposition {
	if parsed.IsLocal || parsed.IsMacro {
		return Drop
	}
	if parsed.FirstNamespace == fileScopeNamespace {
		return Drop
	}
	if !parsed.EntityType.Valid() {
		return Drop
	}
	if droppableKinds[kind] {
		return Drop
	}
	if cfg.IgnoredNamespaces[parsed.FirstNamespace] {
		return Drop
	}
	if cfg.MonitoredNamespaces[parsed.FirstNamespace] {
		if !isLocalDefinition {
			return Stub
		}
		return Keep
	}
	return Keep
}

// ResolveOwnerRepo maps a symbol to the repo that owns its real
// definition. Monitored namespaces with an explicit owner-repo mapping
// win; everything else belongs to the repo currently being indexed.
func ResolveOwnerRepo(parsed ParsedScipSymbol, currentRepo string, cfg Config) string {
	if repo, ok := cfg.MonitoredNamespaceOwnerRepos[parsed.FirstNamespace]; ok {
		return repo
	}
	return currentRepo
}

// externalFilePlaceholder is used as file_path for external symbols with
// no resolvable file path of their own.
const externalFilePlaceholder = "<external>"

// ToGlobalURI parses symbol and builds its Global URI. includeFunctionSig
// controls whether Function URIs get a trailing signature-hash segment;
// the graph store always calls this with includeFunctionSig=false since
// overload discrimination there lives on the identity key instead.
func ToGlobalURI(symbol, filePath, repo string, kind Kind, includeFunctionSig bool, cfg Config) (string, ParsedScipSymbol, error) {
	parsed, err := Parse(symbol, kind, cfg)
	if err != nil {
		return "", ParsedScipSymbol{}, err
	}

	effectiveFile := filePath
	if parsed.IsExternal && effectiveFile == "" {
		effectiveFile = externalFilePlaceholder
	}

	sigHash := ""
	if includeFunctionSig {
		sigHash = parsed.FunctionSigHash
	}
	uri := identity.BuildGlobalURI(repo, effectiveFile, parsed.EntityType, parsed.EntityName, sigHash)
	return uri, parsed, nil
}
