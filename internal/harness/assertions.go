package harness

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/queryir"
	"github.com/roach88/spanrule/internal/store"
	"github.com/roach88/spanrule/internal/stream"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			status := "failed"
			if event.Matched {
				status = "matched"
			}
			fmt.Fprintf(&buf, "  [%d] rule %d %s %q\n", event.Seq, event.Rule, status, event.Text)
		}
	}
	return buf.String()
}

// assertSpans checks the covered texts of every span of the type, in
// document order.
func assertSpans(doc *stream.Document, trace []TraceEvent, assertion Assertion) error {
	var actual []string
	for _, s := range doc.SpansOf(assertion.SpanType) {
		actual = append(actual, doc.CoveredText(s))
	}
	if slices.Equal(actual, assertion.Texts) {
		return nil
	}
	return &AssertionError{
		Type:     AssertSpans,
		Expected: fmt.Sprintf("%s spans %q", assertion.SpanType, assertion.Texts),
		Actual:   fmt.Sprintf("%q", actual),
		Trace:    trace,
	}
}

// assertSpanCount checks the number of spans of the type.
func assertSpanCount(doc *stream.Document, trace []TraceEvent, assertion Assertion) error {
	count := len(doc.SpansOf(assertion.SpanType))
	if count == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertSpanCount,
		Expected: fmt.Sprintf("%d %s spans", assertion.Count, assertion.SpanType),
		Actual:   fmt.Sprintf("%d spans", count),
		Trace:    trace,
	}
}

// assertMatchCount counts trace events, filtered by rule and matched state
// when given.
func assertMatchCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if assertion.Rule != nil && event.Rule != *assertion.Rule {
			continue
		}
		if assertion.Matched != nil && event.Matched != *assertion.Matched {
			continue
		}
		count++
	}
	if count == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertMatchCount,
		Expected: fmt.Sprintf("%d matches%s", assertion.Count, describeMatchFilter(assertion)),
		Actual:   fmt.Sprintf("%d matches", count),
		Trace:    trace,
	}
}

func describeMatchFilter(a Assertion) string {
	var parts []string
	if a.Rule != nil {
		parts = append(parts, fmt.Sprintf("rule=%d", *a.Rule))
	}
	if a.Matched != nil {
		parts = append(parts, fmt.Sprintf("matched=%t", *a.Matched))
	}
	if len(parts) == 0 {
		return ""
	}
	return " where " + strings.Join(parts, " AND ")
}

// assertVariable compares a script variable against the expected YAML
// value, converted to the variable's kind.
func assertVariable(vars ir.Object, assertion Assertion) error {
	actual, ok := vars[assertion.Name]
	if !ok {
		return &AssertionError{
			Type:     AssertVariable,
			Expected: fmt.Sprintf("variable %s", assertion.Name),
			Actual:   "not declared",
		}
	}
	expected, err := convertToValue(assertion.Value, actual)
	if err != nil {
		return &AssertionError{
			Type:     AssertVariable,
			Expected: fmt.Sprintf("%s = %v", assertion.Name, assertion.Value),
			Actual:   fmt.Sprintf("%s (%v)", ir.Format(actual), err),
		}
	}
	if ir.Equal(expected, actual) {
		return nil
	}
	return &AssertionError{
		Type:     AssertVariable,
		Expected: fmt.Sprintf("%s = %s", assertion.Name, ir.Format(expected)),
		Actual:   ir.Format(actual),
	}
}

// convertToValue converts a YAML-parsed value to the kind of like.
func convertToValue(val any, like ir.Value) (ir.Value, error) {
	if val == nil {
		return nil, fmt.Errorf("null values are not allowed")
	}
	if list, ok := like.(ir.List); ok {
		items, ok := val.([]any)
		if !ok {
			return nil, fmt.Errorf("want a list, got %T", val)
		}
		out := ir.List{Elem: list.Elem, Items: make([]ir.Value, len(items))}
		for i, it := range items {
			v, err := convertScalar(it, list.Elem)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			out.Items[i] = v
		}
		return out, nil
	}
	return convertScalar(val, like.Kind())
}

func convertScalar(val any, kind ir.Kind) (ir.Value, error) {
	var v ir.Value
	switch x := val.(type) {
	case string:
		if kind == ir.KindType {
			return ir.TypeRef(x), nil
		}
		v = ir.String(x)
	case int:
		v = ir.Int(int64(x))
	case int64:
		v = ir.Int(x)
	case float64:
		v = ir.Double(x)
	case bool:
		v = ir.Bool(x)
	default:
		return nil, fmt.Errorf("unsupported type %T", val)
	}
	conv, ok := ir.Convert(v, kind)
	if !ok {
		return nil, fmt.Errorf("want %s, got %s", kind, v.Kind())
	}
	return conv, nil
}

// assertStoredCount counts rows of a store table matching the where
// conditions. Tables other than runs are scoped to the scenario's run.
func assertStoredCount(ctx context.Context, st *store.Store, runID string, assertion Assertion) error {
	where := map[string]any{}
	for k, v := range assertion.Where {
		where[k] = v
	}
	if assertion.Table != "runs" {
		where["run_id"] = runID
	}
	filter, err := buildFilter(assertion.Table, where)
	if err != nil {
		return err
	}

	count, err := st.Count(ctx, queryir.Count{From: assertion.Table, Filter: filter})
	if err != nil {
		return &AssertionError{
			Type:     AssertStoredCount,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertStoredCount,
			Expected: fmt.Sprintf("%d rows in %s where %s", assertion.Count, assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   fmt.Sprintf("%d rows", count),
		}
	}
	return nil
}

// buildFilter converts where conditions to equality predicates, typing
// each YAML value by its column. Keys are sorted for determinism.
func buildFilter(table string, where map[string]any) (queryir.Predicate, error) {
	schema, ok := queryir.Tables[table]
	if !ok {
		return nil, fmt.Errorf("stored_count: unknown table %q", table)
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	preds := make([]queryir.Predicate, 0, len(keys))
	for _, key := range keys {
		col, ok := schema.Column(key)
		if !ok {
			return nil, fmt.Errorf("stored_count: unknown column %q in %s", key, table)
		}
		v, err := columnValue(col, where[key])
		if err != nil {
			return nil, fmt.Errorf("stored_count: %s: %w", key, err)
		}
		preds = append(preds, queryir.Eq(key, v))
	}
	return queryir.All(preds...), nil
}

// columnValue converts a decoded YAML value to the column's kind.
// Boolean columns also take 0 and 1.
func columnValue(col queryir.Column, raw any) (ir.Value, error) {
	switch col.Kind {
	case ir.KindBool:
		switch v := raw.(type) {
		case bool:
			return ir.Bool(v), nil
		case int:
			if v == 0 || v == 1 {
				return ir.Bool(v == 1), nil
			}
		}
	case ir.KindInt:
		switch v := raw.(type) {
		case int:
			return ir.Int(v), nil
		case int64:
			return ir.Int(v), nil
		}
	case ir.KindDouble:
		switch v := raw.(type) {
		case float64:
			return ir.Double(v), nil
		case int:
			return ir.Double(v), nil
		}
	case ir.KindString:
		if v, ok := raw.(string); ok {
			return ir.String(v), nil
		}
	case ir.KindType:
		if v, ok := raw.(string); ok {
			return ir.TypeRef(v), nil
		}
	}
	return nil, fmt.Errorf("want %s, got %v", col.Kind, raw)
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store    *store.Store
	Ctx      context.Context
	Document *stream.Document
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertSpans, AssertSpanCount:
			if actx == nil || actx.Document == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a document", i, assertion.Type)
			} else if assertion.Type == AssertSpans {
				err = assertSpans(actx.Document, result.Trace, assertion)
			} else {
				err = assertSpanCount(actx.Document, result.Trace, assertion)
			}
		case AssertMatchCount:
			err = assertMatchCount(result.Trace, assertion)
		case AssertVariable:
			err = assertVariable(result.Variables, assertion)
		case AssertStoredCount:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: stored_count requires database context", i)
			} else {
				err = assertStoredCount(actx.Ctx, actx.Store, result.RunID, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
