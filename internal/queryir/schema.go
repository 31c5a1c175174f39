package queryir

import "github.com/roach88/spanrule/internal/ir"

// Column is a queryable column and the kind of value it compares with.
// Boolean columns are stored as 0/1 integers.
type Column struct {
	Name string
	Kind ir.Kind
}

// TableSchema describes one store table. Order lists the columns that
// give its rows a stable order; the last one is unique per row.
type TableSchema struct {
	Name    string
	Columns []Column
	Order   []string
}

// Column looks up a column by name.
func (t TableSchema) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Tables is the queryable store schema.
var Tables = map[string]TableSchema{
	"runs": {
		Name: "runs",
		Columns: []Column{
			{"id", ir.KindString},
			{"seq", ir.KindInt},
			{"script_name", ir.KindString},
			{"script_hash", ir.KindString},
			{"document_hash", ir.KindString},
			{"engine_version", ir.KindString},
			{"ir_version", ir.KindString},
		},
		Order: []string{"seq", "id"},
	},
	"rule_matches": {
		Name: "rule_matches",
		Columns: []Column{
			{"id", ir.KindString},
			{"run_id", ir.KindString},
			{"rule", ir.KindInt},
			{"seq", ir.KindInt},
			{"matched", ir.KindBool},
			{"cover_begin", ir.KindInt},
			{"cover_end", ir.KindInt},
			{"tree", ir.KindString},
			{"tree_hash", ir.KindString},
		},
		Order: []string{"run_id", "seq", "id"},
	},
	"spans": {
		Name: "spans",
		Columns: []Column{
			{"run_id", ir.KindString},
			{"span_id", ir.KindInt},
			{"type", ir.KindType},
			{"begin_offset", ir.KindInt},
			{"end_offset", ir.KindInt},
			{"removed", ir.KindBool},
		},
		Order: []string{"run_id", "removed", "begin_offset", "span_id"},
	},
}
