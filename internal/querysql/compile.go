// Package querysql compiles queryir queries to parameterized SQLite SQL.
package querysql

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/queryir"
)

// Compile validates q and converts it to SQL and its parameters.
//
// Identifiers come from queryir.Tables, so they are interpolated; values
// are always bound as parameters. Select results are ordered by the
// table's stable order, with text columns compared as binary.
func Compile(q queryir.Query) (string, []any, error) {
	if errs := queryir.Validate(q); len(errs) > 0 {
		joined := make([]error, len(errs))
		for i, e := range errs {
			joined[i] = e
		}
		return "", nil, fmt.Errorf("invalid query: %w", errors.Join(joined...))
	}
	table := queryir.Tables[q.Table()]

	var sql strings.Builder
	switch query := q.(type) {
	case queryir.Select:
		fmt.Fprintf(&sql, "SELECT %s FROM %s", strings.Join(query.Fields, ", "), table.Name)
	case *queryir.Select:
		fmt.Fprintf(&sql, "SELECT %s FROM %s", strings.Join(query.Fields, ", "), table.Name)
	case queryir.Count, *queryir.Count:
		fmt.Fprintf(&sql, "SELECT COUNT(*) FROM %s", table.Name)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}

	where, params, err := compilePredicate(q.Where())
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	if where != "" {
		sql.WriteString(" WHERE " + where)
	}

	switch q.(type) {
	case queryir.Select, *queryir.Select:
		sql.WriteString(" ORDER BY " + orderBy(table))
	}
	return sql.String(), params, nil
}

// orderBy returns the table's stable ORDER BY list.
func orderBy(table queryir.TableSchema) string {
	parts := make([]string, len(table.Order))
	for i, name := range table.Order {
		col, _ := table.Column(name)
		if col.Kind == ir.KindString || col.Kind == ir.KindType {
			parts[i] = name + " COLLATE BINARY ASC"
		} else {
			parts[i] = name + " ASC"
		}
	}
	return strings.Join(parts, ", ")
}

// compilePredicate returns the SQL condition for p, or "" when p matches
// every row.
func compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "", nil, nil
	case queryir.Equals:
		return compileEquals(pred)
	case *queryir.Equals:
		return compileEquals(*pred)
	case queryir.And:
		return compileAnd(pred)
	case *queryir.And:
		return compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileEquals(eq queryir.Equals) (string, []any, error) {
	param, err := toParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", eq.Field, err)
	}
	return eq.Field + " = ?", []any{param}, nil
}

func compileAnd(and queryir.And) (string, []any, error) {
	var (
		parts  []string
		params []any
	)
	for _, pred := range and.Predicates {
		sql, ps, err := compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if sql == "" {
			continue
		}
		if _, nested := pred.(queryir.And); nested && len(ps) > 1 {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	return strings.Join(parts, " AND "), params, nil
}

// toParam converts a value to a driver parameter. Booleans are stored as
// 0/1 integers.
func toParam(v ir.Value) (any, error) {
	switch val := v.(type) {
	case ir.String:
		return string(val), nil
	case ir.TypeRef:
		return string(val), nil
	case ir.Int:
		return int64(val), nil
	case ir.Bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	case ir.Double:
		return float64(val), nil
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}
