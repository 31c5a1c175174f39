package rule

import (
	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/stream"
)

// TypeElement matches one span of Type (or a subtype) per repetition.
type TypeElement struct {
	base
	Type string
}

// NewTypeElement creates a leaf element matching spans of typ.
func NewTypeElement(typ string, opts ...ElementOption) *TypeElement {
	return &TypeElement{base: newBase(opts), Type: typ}
}

func (e *TypeElement) String() string {
	return e.Type + e.quantifier.String() + e.blockString()
}

func (e *TypeElement) EstimateAnchors(s *stream.Stream) int { return s.Estimate(e.Type) }

func (e *TypeElement) Anchors(s *stream.Stream) []ir.Span { return s.Anchors(e.Type) }

// startMatch forks rm once per anchor. Anchors run in document order.
func (e *TypeElement) startMatch(m *matcher, rm *RuleMatch, parent nodeID) {
	anchors := e.Anchors(m.stream)
	for i := len(anchors) - 1; i >= 0; i-- {
		anchor := anchors[i]
		fork := rm.copy()
		m.push(func() { e.matchAnchor(m, fork, parent, anchor) })
	}
}

func (e *TypeElement) matchAnchor(m *matcher, rm *RuleMatch, parent nodeID, anchor ir.Span) {
	id := rm.addNode(parent, e, true)
	rm.anchor = id
	if !isFirstInRule(e) {
		rm.sideStep = e
	}
	if !e.doMatch(m, rm, id, anchor) {
		rm.matched = false
		m.push(func() { e.container.fallbackContinue(m, rm, true, true, parent) })
		return
	}
	e.afterMatch(m, rm, true, anchor, parent)
}

// doMatch records span on node id and evaluates the conditions.
func (e *TypeElement) doMatch(m *matcher, rm *RuleMatch, id nodeID, span ir.Span) bool {
	ok, conds := m.evalConditions(rm, e, span)
	n := &rm.nodes[id]
	n.span = span
	n.hasSpan = true
	n.matched = ok
	n.conds = conds
	return ok
}

// afterMatch runs after a repetition matched at span: repeat, or hand off.
func (e *TypeElement) afterMatch(m *matcher, rm *RuleMatch, after bool, span ir.Span, parent nodeID) {
	sum := rm.summarize(rm.reps(parent, e, after))
	ctx := ContinueContext{Count: countMatched(sum), LastMatched: true}
	if next := e.container.next(after, e); next != nil {
		ctx.NextMatches = func() bool { return next.wouldMatch(m, after, span) }
	}
	if e.quantifier.Continue(after, ctx) {
		m.push(func() { e.continueMatch(m, rm, after, span, parent) })
		return
	}
	e.proceed(m, rm, after, parent)
}

// proceed evaluates the repetitions gathered so far and moves to the next
// sibling, or reports to the container when there is none or the
// quantifier failed.
func (e *TypeElement) proceed(m *matcher, rm *RuleMatch, after bool, parent nodeID) {
	reps := rm.reps(parent, e, after)
	keep, ok := e.quantifier.Evaluate(rm.summarize(reps))
	if !ok {
		m.push(func() { e.container.fallbackContinue(m, rm, after, true, parent) })
		return
	}
	from, has := rm.handoff(reps, keep)
	rm.prune(reps, keep)
	next := e.container.next(after, e)
	if next == nil {
		m.push(func() { e.container.fallbackContinue(m, rm, after, false, parent) })
		return
	}
	if !has {
		m.fail(newElementError(ErrCodeNullEvaluation, e, "no span to continue from", nil))
		return
	}
	m.push(func() { next.continueMatch(m, rm, after, from, parent) })
}

// continueMatch attempts one more repetition adjacent to from. Several
// candidates at the adjacent unit are alternatives.
func (e *TypeElement) continueMatch(m *matcher, rm *RuleMatch, after bool, from ir.Span, parent nodeID) {
	cands := m.stream.Next(from, e.Type, after)
	if len(cands) == 0 {
		rm.addEntry(parent, e, after, from)
		e.proceed(m, rm, after, parent)
		return
	}
	m.branch(rm, len(cands), func(rm *RuleMatch, i int) {
		id := rm.addEntry(parent, e, after, from)
		if e.doMatch(m, rm, id, cands[i]) {
			e.afterMatch(m, rm, after, cands[i], parent)
		} else {
			e.proceed(m, rm, after, parent)
		}
	})
}

// continueSideStep completes a match anchored after the rule's first
// element: the elements before the anchor are matched backward from it.
func (e *TypeElement) continueSideStep(m *matcher, rm *RuleMatch) {
	rm.sideStep = nil
	anchor := rm.nodes[rm.anchor]
	if prev := e.container.next(false, e); prev != nil {
		m.push(func() { prev.continueMatch(m, rm, false, anchor.span, anchor.parent) })
		return
	}
	m.push(func() { e.container.fallbackContinue(m, rm, false, false, anchor.parent) })
}

func (e *TypeElement) wouldMatch(m *matcher, after bool, from ir.Span) bool {
	for _, c := range m.stream.Next(from, e.Type, after) {
		if m.test(e, c) {
			return true
		}
	}
	return false
}
