package condition

import (
	"github.com/roach88/spanrule/internal/expr"
	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/rule"
	"github.com/roach88/spanrule/internal/stream"
)

// Is matches when a span of a target type (or subtype) covers exactly the
// candidate's range.
type Is struct {
	typeSensitive
}

// NewIs creates an IS condition.
func NewIs(targets ...expr.Expr) *Is {
	return &Is{typeSensitive{name: "IS", targets: targets}}
}

func (c *Is) Eval(span ir.Span, el rule.Element, s *stream.Stream, _ rule.Crowd) (rule.EvaluatedCondition, error) {
	u := unitAt(s, span)
	return c.eval(el, func(t string) bool {
		if u == nil {
			return false
		}
		for _, a := range u.BeginAnchors(t) {
			if a.SameRange(span) {
				return true
			}
		}
		return false
	})
}

// Not negates another condition. Evaluation errors are not negated.
type Not struct {
	Inner rule.Condition
}

func (c *Not) String() string { return "-" + c.Inner.String() }

func (c *Not) Eval(span ir.Span, el rule.Element, s *stream.Stream, crowd rule.Crowd) (rule.EvaluatedCondition, error) {
	crowd.BeginVisit(c.Inner, nil)
	inner, err := c.Inner.Eval(span, el, s, crowd)
	crowd.EndVisit(c.Inner, nil)
	if err != nil {
		return rule.EvaluatedCondition{}, err
	}
	return rule.EvaluatedCondition{Condition: c.String(), Matched: !inner.Matched}, nil
}
