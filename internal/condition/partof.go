package condition

import (
	"github.com/roach88/spanrule/internal/expr"
	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/rule"
	"github.com/roach88/spanrule/internal/stream"
)

// PartOf matches when the candidate begins inside a span of a target type
// or one of its subtypes. The candidate itself counts.
type PartOf struct {
	typeSensitive
}

// NewPartOf creates a PARTOF condition.
func NewPartOf(targets ...expr.Expr) *PartOf {
	return &PartOf{typeSensitive{name: "PARTOF", targets: targets}}
}

func (c *PartOf) Eval(span ir.Span, el rule.Element, s *stream.Stream, _ rule.Crowd) (rule.EvaluatedCondition, error) {
	u := unitAt(s, span)
	return c.eval(el, func(t string) bool {
		return u != nil && u.IsPartOf(t)
	})
}

// PartOfNeq matches when a span of exactly a target type contains the
// candidate without covering the same range. It scans begin anchors
// backward from the candidate's first unit to the start of the stream.
type PartOfNeq struct {
	typeSensitive
}

// NewPartOfNeq creates a PARTOFNEQ condition.
func NewPartOfNeq(targets ...expr.Expr) *PartOfNeq {
	return &PartOfNeq{typeSensitive{name: "PARTOFNEQ", targets: targets}}
}

func (c *PartOfNeq) Eval(span ir.Span, el rule.Element, s *stream.Stream, _ rule.Crowd) (rule.EvaluatedCondition, error) {
	return c.eval(el, func(t string) bool {
		return containedBy(s, span, t)
	})
}

func containedBy(s *stream.Stream, span ir.Span, t string) bool {
	for s.MoveTo(span); s.IsValid(); s.MoveToPrevious() {
		for _, a := range s.Get().BeginAnchors(t) {
			if a.Type != t {
				continue
			}
			strictly := a.Begin < span.Begin && a.End > span.End
			sameBegin := a.Begin == span.Begin && a.End > span.End
			sameEnd := a.Begin < span.Begin && a.End == span.End
			if strictly || sameBegin || sameEnd {
				return true
			}
		}
	}
	return false
}
