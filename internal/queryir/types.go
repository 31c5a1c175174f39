package queryir

import "github.com/roach88/spanrule/internal/ir"

// Query is a sealed interface over the query forms: Select and Count.
type Query interface {
	Table() string
	Where() Predicate
	queryNode()
}

// Predicate is a sealed interface over filter conditions: Equals and And.
// A nil Predicate matches every row.
type Predicate interface {
	predicateNode()
}

// Select returns Fields of the rows of From that satisfy Filter, in the
// table's stable order. Fields must be explicit.
type Select struct {
	From   string
	Fields []string
	Filter Predicate
}

// Count returns the number of rows of From that satisfy Filter.
type Count struct {
	From   string
	Filter Predicate
}

func (q Select) Table() string    { return q.From }
func (q Select) Where() Predicate { return q.Filter }
func (Select) queryNode()         {}

func (q Count) Table() string    { return q.From }
func (q Count) Where() Predicate { return q.Filter }
func (Count) queryNode()         {}

// Equals holds when Field equals Value. NULL columns never equal anything.
type Equals struct {
	Field string
	Value ir.Value
}

// And holds when every predicate holds. An empty And always holds.
type And struct {
	Predicates []Predicate
}

func (Equals) predicateNode() {}
func (And) predicateNode()    {}

// Eq is shorthand for Equals{Field: field, Value: v}.
func Eq(field string, v ir.Value) Equals {
	return Equals{Field: field, Value: v}
}

// All joins predicates with And, dropping nils. A single predicate is
// returned unwrapped and none yields nil.
func All(preds ...Predicate) Predicate {
	var kept []Predicate
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return And{Predicates: kept}
}
