package queryir

import (
	"fmt"
	"sort"

	"github.com/roach88/spanrule/internal/ir"
)

// ValidationError is one problem found in a query.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks q against Tables: the table exists, selected and
// filtered columns belong to it, and every compared value has the
// column's kind (TYPE columns also accept strings).
// Returns all errors found (does not fail-fast).
func Validate(q Query) []ValidationError {
	if q == nil {
		return []ValidationError{{Message: "nil query"}}
	}
	v := &validator{}
	table, ok := Tables[q.Table()]
	if !ok {
		v.add("", "unknown table %q (known: %v)", q.Table(), tableNames())
		return v.errs
	}
	v.table = table

	switch sel := q.(type) {
	case Select:
		v.fields(sel.Fields)
	case *Select:
		v.fields(sel.Fields)
	}
	v.predicate(q.Where())
	return v.errs
}

type validator struct {
	table TableSchema
	errs  []ValidationError
}

func (v *validator) add(field, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) fields(fields []string) {
	if len(fields) == 0 {
		v.add("", "select needs explicit fields")
	}
	for _, f := range fields {
		if _, ok := v.table.Column(f); !ok {
			v.add(f, "unknown column in %s", v.table.Name)
		}
	}
}

func (v *validator) predicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
	case Equals:
		v.equals(pred)
	case *Equals:
		v.equals(*pred)
	case And:
		for _, sub := range pred.Predicates {
			v.predicate(sub)
		}
	case *And:
		for _, sub := range pred.Predicates {
			v.predicate(sub)
		}
	default:
		v.add("", "unsupported predicate %T", p)
	}
}

func (v *validator) equals(eq Equals) {
	col, ok := v.table.Column(eq.Field)
	if !ok {
		v.add(eq.Field, "unknown column in %s", v.table.Name)
		return
	}
	if eq.Value == nil {
		v.add(eq.Field, "compared to null")
		return
	}
	if !accepts(col.Kind, eq.Value.Kind()) {
		v.add(eq.Field, "want %s, got %s", col.Kind, eq.Value.Kind())
	}
}

func accepts(column, value ir.Kind) bool {
	if column == value {
		return true
	}
	return column == ir.KindType && value == ir.KindString
}

func tableNames() []string {
	names := make([]string, 0, len(Tables))
	for name := range Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
