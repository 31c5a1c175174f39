package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchHashDeterminism(t *testing.T) {
	tree := Object{
		"element": String("root"),
		"spans":   List{Elem: KindObject, Items: []Value{Span{ID: 1, Type: "CW", Begin: 0, End: 4}.Object()}},
	}

	h1, err := MatchHash(tree)
	require.NoError(t, err)
	h2, err := MatchHash(tree)
	require.NoError(t, err)

	assert.Equal(t, h1, h2, "MatchHash must be deterministic")
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestMatchHashChangesWithInput(t *testing.T) {
	a := MustMatchHash(Object{"matched": Bool(true)})
	b := MustMatchHash(Object{"matched": Bool(false)})
	assert.NotEqual(t, a, b)
}

func TestDomainSeparation(t *testing.T) {
	data := []byte(`{"a":1}`)
	assert.NotEqual(t, hashWithDomain(DomainMatch, data), hashWithDomain(DomainDocument, data),
		"same data under different domains must hash differently")
}

func TestDocumentHash(t *testing.T) {
	spans := []Span{{ID: 1, Type: "CW", Begin: 0, End: 5}}
	h1, err := DocumentHash("Hello world", spans)
	require.NoError(t, err)
	h2, err := DocumentHash("Hello world", nil)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestScriptHash(t *testing.T) {
	assert.Equal(t, ScriptHash("CW;"), ScriptHash("CW;"))
	assert.NotEqual(t, ScriptHash("CW;"), ScriptHash("SW;"))
}
