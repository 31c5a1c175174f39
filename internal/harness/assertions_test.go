package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/queryir"
)

func ptr[T any](v T) *T { return &v }

func makeTestTrace() []TraceEvent {
	return []TraceEvent{
		{Seq: 1, Rule: 0, ID: "r-1", Matched: true, Text: "Peter", HasSpan: true},
		{Seq: 2, Rule: 0, ID: "r-2", Matched: false, Text: "Mary", HasSpan: true},
		{Seq: 3, Rule: 1, ID: "r-3", Matched: true, Text: ".", HasSpan: true},
	}
}

func TestAssertMatchCount(t *testing.T) {
	trace := makeTestTrace()
	tests := []struct {
		name      string
		assertion Assertion
		wantErr   bool
	}{
		{"all", Assertion{Count: 3}, false},
		{"matched", Assertion{Matched: ptr(true), Count: 2}, false},
		{"failed", Assertion{Matched: ptr(false), Count: 1}, false},
		{"rule", Assertion{Rule: ptr(1), Count: 1}, false},
		{"rule and matched", Assertion{Rule: ptr(0), Matched: ptr(true), Count: 1}, false},
		{"wrong count", Assertion{Rule: ptr(0), Count: 5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertMatchCount(trace, tt.assertion)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "where rule=0")
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAssertVariable(t *testing.T) {
	vars := ir.Object{
		"names": ir.List{Elem: ir.KindString, Items: []ir.Value{ir.String("a"), ir.String("b")}},
		"count": ir.Int(3),
		"ratio": ir.Double(0.5),
		"on":    ir.Bool(true),
		"t":     ir.TypeRef("Person"),
		"xs":    ir.List{Elem: ir.KindDouble, Items: []ir.Value{ir.Double(1), ir.Double(2.5)}},
	}
	tests := []struct {
		name    string
		varName string
		value   any
		wantErr string
	}{
		{"string list", "names", []any{"a", "b"}, ""},
		{"int", "count", 3, ""},
		{"double", "ratio", 0.5, ""},
		{"bool", "on", true, ""},
		{"type", "t", "Person", ""},
		{"ints widen to doubles", "xs", []any{1, 2.5}, ""},
		{"wrong value", "count", 4, "count = 4"},
		{"wrong list", "names", []any{"a"}, `["a"]`},
		{"not a list", "names", "a", "want a list"},
		{"wrong kind", "on", "yes", "want BOOLEAN"},
		{"undeclared", "missing", 1, "not declared"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertVariable(vars, Assertion{Type: AssertVariable, Name: tt.varName, Value: tt.value})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		where   map[string]any
		want    queryir.Predicate
		wantErr string
	}{
		{
			name:  "typed by column",
			table: "spans",
			where: map[string]any{"type": "Person", "removed": true, "run_id": "r"},
			want: queryir.And{Predicates: []queryir.Predicate{
				queryir.Eq("removed", ir.Bool(true)),
				queryir.Eq("run_id", ir.String("r")),
				queryir.Eq("type", ir.TypeRef("Person")),
			}},
		},
		{
			name:  "bool column takes 0 and 1",
			table: "rule_matches",
			where: map[string]any{"matched": 1},
			want:  queryir.Eq("matched", ir.Bool(true)),
		},
		{
			name:  "no conditions",
			table: "runs",
		},
		{
			name:    "unknown table",
			table:   "runs; DROP TABLE runs",
			wantErr: `unknown table "runs; DROP TABLE runs"`,
		},
		{
			name:    "unknown column",
			table:   "runs",
			where:   map[string]any{"x; DROP TABLE runs": 1},
			wantErr: "unknown column",
		},
		{
			name:    "wrong kind",
			table:   "spans",
			where:   map[string]any{"removed": 2},
			wantErr: "removed: want BOOLEAN, got 2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildFilter(tt.table, tt.where)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatWhereClause(t *testing.T) {
	assert.Equal(t, "(no conditions)", formatWhereClause(nil))
	assert.Equal(t, "matched=1 AND rule=0", formatWhereClause(map[string]any{"rule": 0, "matched": 1}))
}

func TestAssertionErrorIncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertMatchCount,
		Expected: "2 matches",
		Actual:   "1 matches",
		Trace:    makeTestTrace()[:2],
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: match_count")
	assert.Contains(t, msg, "Expected: 2 matches")
	assert.Contains(t, msg, `[1] rule 0 matched "Peter"`)
	assert.Contains(t, msg, `[2] rule 0 failed "Mary"`)
}

func TestEvaluateAssertionsWithoutContext(t *testing.T) {
	result := NewResult()
	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertSpans, SpanType: "X"},
		{Type: AssertStoredCount, Table: "runs"},
		{Type: AssertMatchCount, Count: 0},
		{Type: "bogus"},
	}, nil)
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "requires a document")
	assert.Contains(t, errs[1], "requires database context")
	assert.Contains(t, errs[2], `unknown assertion type "bogus"`)
}

func TestAssertStoredCountRejectsBadTable(t *testing.T) {
	err := assertStoredCount(nil, nil, "r", Assertion{Table: "runs; DROP TABLE runs"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown table")
}
