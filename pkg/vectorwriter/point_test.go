// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package vectorwriter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kraklabs/cxxgraph/pkg/identity"
)

func TestPointIDDeterministic(t *testing.T) {
	assert.Equal(t, pointID("repo::src/foo.cc::Function::foo"), pointID("repo::src/foo.cc::Function::foo"))
}

func TestPointIDDiffersAcrossOverloads(t *testing.T) {
	a := pointID("repo::src/foo.cc::Function::foo::sig_aaaa")
	b := pointID("repo::src/foo.cc::Function::foo::sig_bbbb")
	assert.NotEqual(t, a, b)
}

func TestEntityIdentityKeyIncludesSigHashForFunctions(t *testing.T) {
	e := Entity{GlobalURI: "repo::src/foo.cc::Function::foo", EntityType: identity.Function, FunctionSigHash: "sig_aaaa"}
	assert.Equal(t, "repo::src/foo.cc::Function::foo::sig_aaaa", e.IdentityKey())
}

func TestEntityIdentityKeyOmitsSigHashForNonFunctions(t *testing.T) {
	e := Entity{GlobalURI: "repo::src/Foo.cc::Class::Foo", EntityType: identity.Class}
	assert.Equal(t, "repo::src/Foo.cc::Class::Foo", e.IdentityKey())
}

func TestBuildPointCarriesPayloadFields(t *testing.T) {
	e := testEntity("foo", "doc", "code")
	e.FunctionSigHash = "sig_aaaa"
	p := buildPoint(e, []float32{0.1, 0.2})

	assert.Equal(t, pointID(e.IdentityKey()), p.ID)
	assert.Equal(t, []float32{0.1, 0.2}, p.Vector)
	assert.Equal(t, "doc", p.Payload["docstring"])
	assert.Equal(t, "sig_aaaa", p.Payload["function_sig_hash"])
	assert.Equal(t, e.IdentityKey(), p.Payload["identity_key"])
}
