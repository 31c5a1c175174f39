package stream

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spanrule/internal/ir"
)

func TestParseDocumentYAML(t *testing.T) {
	data := []byte(`
text: "Peter lives in Paris."
seed: true
types:
  - name: Entity
  - name: Person
    parent: Entity
spans:
  - {type: Person, begin: 0, end: 5}
`)
	ts := ir.NewTypeSystem()
	doc, err := ParseDocument(data, ts)
	require.NoError(t, err)

	persons := doc.SpansOf("Entity")
	require.Len(t, persons, 1)
	assert.Equal(t, "Peter", doc.CoveredText(persons[0]))
	assert.Len(t, doc.SpansOf(TypeW), 4)
}

func TestParseDocumentJSON(t *testing.T) {
	data := []byte(`{"text": "ab", "types": [{"name": "X"}], "spans": [{"type": "X", "begin": 0, "end": 1}]}`)
	doc, err := ParseDocument(data, nil)
	require.NoError(t, err)
	assert.Len(t, doc.SpansOf("X"), 1)
	assert.Empty(t, doc.SpansOf(TypeANY), "not seeded")
}

func TestParseDocumentErrors(t *testing.T) {
	_, err := ParseDocument([]byte(`text: "ab"
spans:
  - {type: X, begin: 0, end: 1}`), nil)
	assert.ErrorIs(t, err, ir.ErrUnknownType)

	_, err = ParseDocument([]byte(`text: [unclosed`), nil)
	assert.Error(t, err)
}

func TestDeclareTypesConflict(t *testing.T) {
	ts := ir.NewTypeSystem()
	require.NoError(t, DeclareTypes(ts, []TypeDecl{{Name: "A"}, {Name: "B", Parent: "A"}}))
	require.NoError(t, DeclareTypes(ts, []TypeDecl{{Name: "B", Parent: "A"}}), "same parent is a no-op")

	err := DeclareTypes(ts, []TypeDecl{{Name: "B"}})
	assert.ErrorIs(t, err, ir.ErrDuplicateType)
}

func TestLoadDocumentPlainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("Hello world."), 0o644))

	doc, err := LoadDocument(path, nil)
	require.NoError(t, err)
	assert.Len(t, doc.SpansOf(TypeW), 2)

	_, err = LoadDocument(filepath.Join(dir, "missing.yaml"), nil)
	assert.Error(t, err)
}
