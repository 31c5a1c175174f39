// Package queryir is a small typed query representation over the result
// store's tables.
//
// Queries name a table and filter its rows with conjunctions of equality
// predicates:
//
//	Select{
//		From:   "rule_matches",
//		Fields: []string{"id", "seq"},
//		Filter: And{Predicates: []Predicate{
//			Equals{Field: "run_id", Value: ir.String("run-1")},
//			Equals{Field: "matched", Value: ir.Bool(true)},
//		}},
//	}
//
// Values are ir.Values and are checked against the kind of the column they
// compare with. Validate checks table and column names against Tables, so
// a validated query can be compiled to SQL with identifiers interpolated
// and values bound as parameters (see package querysql).
//
// Query and Predicate are sealed; backends switch over the types of this
// package exhaustively.
package queryir
