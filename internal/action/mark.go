package action

import (
	"fmt"

	"github.com/roach88/spanrule/internal/expr"
	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/rule"
	"github.com/roach88/spanrule/internal/stream"
)

// Mark creates one span covering everything the element matched.
type Mark struct {
	Type expr.Expr
}

func (a *Mark) String() string { return call("MARK", a.Type) }

func (a *Mark) Execute(rm *rule.RuleMatch, el rule.Element, s *stream.Stream, _ rule.Crowd) error {
	b, err := blockOf("MARK", el)
	if err != nil {
		return err
	}
	typ, err := singleType("MARK", a.Type, b)
	if err != nil {
		return err
	}
	var first, last *ir.Span
	for _, span := range rm.MatchedSpansOf(el) {
		if span == nil {
			continue
		}
		if first == nil {
			first = span
		}
		last = span
	}
	if first == nil {
		return nil
	}
	cover := ir.Cover(*first, *last)
	if _, err := s.AddSpan(typ, cover.Begin, cover.End); err != nil {
		return fmt.Errorf("MARK: %w", err)
	}
	return nil
}

// ImplicitMark creates one span per matched repetition of the element. It
// stops at the first repetition that covers nothing; later repetitions are
// not marked.
type ImplicitMark struct {
	Type expr.Expr
}

func (a *ImplicitMark) String() string { return a.Type.String() }

func (a *ImplicitMark) Execute(rm *rule.RuleMatch, el rule.Element, s *stream.Stream, _ rule.Crowd) error {
	b, err := blockOf("MARK", el)
	if err != nil {
		return err
	}
	typ, err := singleType("MARK", a.Type, b)
	if err != nil {
		return err
	}
	for _, span := range rm.MatchedSpansOf(el) {
		if span == nil {
			return nil
		}
		if _, err := s.AddSpan(typ, span.Begin, span.End); err != nil {
			return fmt.Errorf("MARK: %w", err)
		}
	}
	return nil
}

// Unmark removes the spans of a type that cover exactly what the element
// matched.
type Unmark struct {
	Type expr.Expr
}

func (a *Unmark) String() string { return call("UNMARK", a.Type) }

func (a *Unmark) Execute(rm *rule.RuleMatch, el rule.Element, s *stream.Stream, _ rule.Crowd) error {
	b, err := blockOf("UNMARK", el)
	if err != nil {
		return err
	}
	typ, err := singleType("UNMARK", a.Type, b)
	if err != nil {
		return err
	}
	for _, span := range rm.MatchedSpansOf(el) {
		if span == nil {
			continue
		}
		for _, existing := range s.Document().SpansOf(typ) {
			if existing.Type != typ || !existing.SameRange(*span) {
				continue
			}
			if err := s.RemoveSpan(existing); err != nil {
				return fmt.Errorf("UNMARK: %w", err)
			}
		}
	}
	return nil
}
