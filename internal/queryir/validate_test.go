package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/spanrule/internal/ir"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		q    Query
		want []string
	}{
		{
			name: "select with filter",
			q: Select{
				From:   "rule_matches",
				Fields: []string{"id", "seq"},
				Filter: All(Eq("run_id", ir.String("r")), Eq("matched", ir.Bool(true))),
			},
		},
		{
			name: "count without filter",
			q:    Count{From: "runs"},
		},
		{
			name: "type column accepts string",
			q:    &Count{From: "spans", Filter: Eq("type", ir.String("Person"))},
		},
		{
			name: "nil query",
			q:    nil,
			want: []string{"nil query"},
		},
		{
			name: "unknown table",
			q:    Count{From: "users"},
			want: []string{`unknown table "users" (known: [rule_matches runs spans])`},
		},
		{
			name: "select needs fields",
			q:    Select{From: "runs"},
			want: []string{"select needs explicit fields"},
		},
		{
			name: "all errors reported",
			q: &Select{
				From:   "spans",
				Fields: []string{"span_id", "color"},
				Filter: And{Predicates: []Predicate{
					Eq("removed", ir.Int(1)),
					Eq("size", ir.Int(1)),
					Equals{Field: "type"},
				}},
			},
			want: []string{
				"color: unknown column in spans",
				"removed: want BOOLEAN, got INT",
				"size: unknown column in spans",
				"type: compared to null",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, e := range Validate(tt.q) {
				got = append(got, e.Error())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAll(t *testing.T) {
	a := Eq("run_id", ir.String("r"))
	b := Eq("matched", ir.Bool(true))

	assert.Nil(t, All())
	assert.Nil(t, All(nil, nil))
	assert.Equal(t, a, All(nil, a))
	assert.Equal(t, And{Predicates: []Predicate{a, b}}, All(a, nil, b))
}

func TestTablesOrderColumnsExist(t *testing.T) {
	for name, table := range Tables {
		assert.Equal(t, name, table.Name)
		for _, col := range table.Order {
			_, ok := table.Column(col)
			assert.True(t, ok, "%s order column %s", name, col)
		}
	}
}
