package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/rule"
	"github.com/roach88/spanrule/internal/stream"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run with minimal required fields.
func createTestRun(id string, seq int64) ir.Run {
	return ir.Run{
		ID:            id,
		Seq:           seq,
		ScriptName:    "test",
		ScriptHash:    ir.ScriptHash("CW;"),
		DocumentHash:  "doc-hash",
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
	}
}

// applyTestRule applies "CW SW" to text and returns the applies.
func applyTestRule(t *testing.T, text string) []*rule.RuleApply {
	t.Helper()
	doc, err := stream.Seed(text, nil)
	require.NoError(t, err)
	r := rule.NewRule(0, rule.NewComposed([]rule.Element{
		rule.NewTypeElement(stream.TypeCW),
		rule.NewTypeElement(stream.TypeSW),
	}), nil)
	sc := &rule.Script{Rules: []*rule.Rule{r}}
	applies, err := sc.Apply(context.Background(), stream.New(doc), nil,
		rule.WithIDGenerator(rule.NewSequenceGenerator("")))
	require.NoError(t, err)
	return applies
}
