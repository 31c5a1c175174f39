// Package condition implements the predicates a rule element evaluates
// against each candidate span: PARTOF, PARTOFNEQ, IS, and NOT.
//
// Conditions are read-only over the stream. They may move the stream
// cursor; callers do not rely on its position afterwards. Type-sensitive
// conditions take one or more TYPE or TYPELIST arguments and match if any
// target type matches.
package condition

import (
	"fmt"
	"strings"

	"github.com/roach88/spanrule/internal/expr"
	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/rule"
	"github.com/roach88/spanrule/internal/stream"
)

// typeSensitive holds the target types of a condition.
type typeSensitive struct {
	name    string
	targets []expr.Expr
}

func (c typeSensitive) String() string {
	parts := make([]string, len(c.targets))
	for i, t := range c.targets {
		parts[i] = t.String()
	}
	return c.name + "(" + strings.Join(parts, ", ") + ")"
}

// anyType evaluates check for each target type until one returns true.
func (c typeSensitive) anyType(el rule.Element, check func(t string) bool) (bool, error) {
	b := el.Block()
	if b == nil {
		return false, fmt.Errorf("%s: element has no scope", c.name)
	}
	for _, target := range c.targets {
		types, err := expr.Types(target, b)
		if err != nil {
			return false, fmt.Errorf("%s: %w", c.name, err)
		}
		for _, t := range types {
			if check(t) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (c typeSensitive) eval(el rule.Element, check func(t string) bool) (rule.EvaluatedCondition, error) {
	ok, err := c.anyType(el, check)
	if err != nil {
		return rule.EvaluatedCondition{}, err
	}
	return rule.EvaluatedCondition{Condition: c.String(), Matched: ok}, nil
}

// unitAt moves the cursor to the unit where span begins and returns it, or
// nil if that unit is not visible.
func unitAt(s *stream.Stream, span ir.Span) *stream.BasicUnit {
	s.MoveTo(span)
	u := s.Get()
	if u == nil || u.Begin() != span.Begin {
		return nil
	}
	return u
}
