package rule

import (
	"errors"
	"slices"
	"strings"

	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/stream"
)

// Composed is an ordered group of elements matched as a sequence. Its
// quantifier, conditions and actions apply to the group as a whole. The
// root of every rule is a Composed.
type Composed struct {
	base
	children    []Element
	startAnchor Element
}

// NewComposed groups children. Each child's container becomes the group.
func NewComposed(children []Element, opts ...ElementOption) *Composed {
	c := &Composed{base: newBase(opts), children: slices.Clone(children)}
	for _, ch := range c.children {
		ch.elementBase().container = c
	}
	return c
}

// Children returns the grouped elements in order.
func (c *Composed) Children() []Element { return slices.Clone(c.children) }

// SetStartAnchor makes el the anchoring child regardless of cost. el must be
// a direct child.
func (c *Composed) SetStartAnchor(el Element) error {
	if !slices.Contains(c.children, el) {
		return errors.New("start anchor is not a child of the group")
	}
	c.startAnchor = el
	return nil
}

func (c *Composed) String() string {
	parts := make([]string, len(c.children))
	for i, ch := range c.children {
		parts[i] = ch.String()
		if ch == c.startAnchor {
			parts[i] = "@" + parts[i]
		}
	}
	return "(" + strings.Join(parts, " ") + ")" + c.quantifier.String() + c.blockString()
}

// EstimateAnchors sums the children's estimates.
func (c *Composed) EstimateAnchors(s *stream.Stream) int {
	n := 1
	for _, ch := range c.children {
		n += ch.EstimateAnchors(s)
	}
	return n
}

func (c *Composed) Anchors(s *stream.Stream) []ir.Span {
	return c.anchoring(s).Anchors(s)
}

// anchoring picks the child that seeds matching. A rule's root honors an
// explicit start anchor, then the cheapest required child if the stream
// asks for it; otherwise the first required child wins.
func (c *Composed) anchoring(s *stream.Stream) Element {
	if c.container == nil {
		if c.startAnchor != nil {
			return c.startAnchor
		}
		if s.CheapestAnchor() {
			var best Element
			bestCost := 0
			for _, ch := range c.children {
				if ch.Quantifier().Optional() {
					continue
				}
				if cost := ch.EstimateAnchors(s); best == nil || cost < bestCost {
					best, bestCost = ch, cost
				}
			}
			if best != nil {
				return best
			}
		}
	}
	for _, ch := range c.children {
		if !ch.Quantifier().Optional() {
			return ch
		}
	}
	return c.children[0]
}

func (c *Composed) first(after bool) Element {
	if after {
		return c.children[0]
	}
	return c.children[len(c.children)-1]
}

// next returns the sibling of el in direction after, or nil.
func (c *Composed) next(after bool, el Element) Element {
	i := slices.Index(c.children, el)
	if after {
		i++
	} else {
		i--
	}
	if i < 0 || i >= len(c.children) {
		return nil
	}
	return c.children[i]
}

func (c *Composed) startMatch(m *matcher, rm *RuleMatch, parent nodeID) {
	rep := rm.addNode(parent, c, true)
	c.anchoring(m.stream).startMatch(m, rm, rep)
}

// continueMatch opens a new repetition adjacent to from.
func (c *Composed) continueMatch(m *matcher, rm *RuleMatch, after bool, from ir.Span, parent nodeID) {
	rep := rm.addEntry(parent, c, after, from)
	first := c.first(after)
	m.push(func() { first.continueMatch(m, rm, after, from, rep) })
}

// fallbackContinue runs when the children of repetition rep are done,
// successfully or not. It decides whether to repeat the group, move to the
// next sibling, backtrack, or report further up.
func (c *Composed) fallbackContinue(m *matcher, rm *RuleMatch, after, failed bool, rep nodeID) {
	c.doMatch(m, rm, rep)
	if rm.nodes[rep].looping {
		return
	}
	if c.container == nil {
		if failed {
			rm.matched = false
		}
		c.fallback(m, rm)
		return
	}
	parent := rm.nodes[rep].parent
	reps := rm.reps(parent, c, after)
	sum := rm.summarize(reps)
	keep, ok := c.quantifier.Evaluate(sum)
	cover, hasCover := rm.cover(rep)
	ctx := ContinueContext{
		Count:       countMatched(sum),
		LastMatched: rm.nodes[rep].matched && hasCover,
	}
	if next := c.container.next(after, c); next != nil && hasCover {
		ctx.NextMatches = func() bool { return next.wouldMatch(m, after, cover) }
	}
	cont := c.quantifier.Continue(after, ctx)
	rm.matched = rm.matched && (ok || cont)
	if !failed && cont {
		c.continueOwnMatch(m, rm, after, rep, parent)
		return
	}
	c.proceed(m, rm, after, failed || !ok, reps, keep, ok, parent)
}

// proceed leaves the group after its last repetition. A failed group that
// still satisfies its quantifier backtracks: the next sibling continues
// from the last accepted repetition. Possessive groups only backtrack over
// a failed repetition that covers nothing; a partly matched one fails the
// branch.
func (c *Composed) proceed(m *matcher, rm *RuleMatch, after, failed bool, reps []nodeID, keep int, ok bool, parent nodeID) {
	var from ir.Span
	var has bool
	if ok {
		if failed && (c.quantifier.Backtracks() || !rm.covers(reps[keep:])) {
			failed = false
		}
		from, has = rm.handoff(reps, keep)
		rm.prune(reps, keep)
	}
	next := c.container.next(after, c)
	if failed || next == nil {
		m.push(func() { c.container.fallbackContinue(m, rm, after, failed, parent) })
		return
	}
	if !has {
		m.fail(newElementError(ErrCodeNullEvaluation, c, "no span to continue from", nil))
		return
	}
	m.push(func() { next.continueMatch(m, rm, after, from, parent) })
}

// fallback ends a pass over the root: side-step completion if pending,
// otherwise the match is done.
func (c *Composed) fallback(m *matcher, rm *RuleMatch) {
	if rm.sideStep != nil && rm.matched {
		origin := rm.sideStep
		m.push(func() { origin.continueSideStep(m, rm) })
		return
	}
	m.done(rm)
}

// doMatch evaluates repetition rep: every child must satisfy its quantifier
// with no leftover repetitions, and the group's conditions must hold on the
// span covering the children.
func (c *Composed) doMatch(m *matcher, rm *RuleMatch, rep nodeID) {
	matched := true
	for _, ch := range c.children {
		reps := rm.reps(rep, ch, true)
		keep, ok := ch.Quantifier().Evaluate(rm.summarize(reps))
		if !ok || keep != len(reps) {
			matched = false
			break
		}
	}
	var conds []EvaluatedCondition
	span, has := rm.cover(rep)
	if has && matched {
		matched, conds = m.evalConditions(rm, c, span)
	}
	n := &rm.nodes[rep]
	n.span, n.hasSpan = span, has
	n.matched = matched
	n.conds = conds
}

// continueOwnMatch attempts another repetition of the group. With the
// stream's simple-greedy flag, repetitions run in a loop that drains each
// repetition's continuations before deciding on the next one; alternatives
// inside a looped repetition other than the first are dropped.
func (c *Composed) continueOwnMatch(m *matcher, rm *RuleMatch, after bool, rep, parent nodeID) {
	from, ok := rm.cover(rep)
	if !ok {
		m.fail(newElementError(ErrCodeNullEvaluation, c, "repetition covers nothing", nil))
		return
	}
	if !m.stream.SimpleGreedyForComposed() {
		c.continueMatch(m, rm, after, from, parent)
		return
	}

	var (
		reps   []nodeID
		keep   int
		passed bool
		failed bool
	)
	for {
		r := rm.addEntry(parent, c, after, from)
		rm.nodes[r].looping = true
		mark := len(m.stack)
		first := c.first(after)
		entry := from
		m.push(func() { first.continueMatch(m, rm, after, entry, r) })
		m.run(mark)
		if m.err != nil {
			return
		}
		rm.nodes[r].looping = false

		reps = rm.reps(parent, c, after)
		keep, passed = c.quantifier.Evaluate(rm.summarize(reps))
		rm.matched = rm.matched && passed
		if !passed || keep != len(reps) {
			failed = true
			break
		}
		cover, hasCover := rm.cover(r)
		if !hasCover {
			break
		}
		ctx := ContinueContext{Count: keep, LastMatched: true}
		if next := c.container.next(after, c); next != nil {
			ctx.NextMatches = func() bool { return next.wouldMatch(m, after, cover) }
		}
		if !c.quantifier.Continue(after, ctx) {
			break
		}
		from = cover
	}
	c.proceed(m, rm, after, failed, reps, keep, passed, parent)
}

func (c *Composed) wouldMatch(m *matcher, after bool, from ir.Span) bool {
	return c.first(after).wouldMatch(m, after, from)
}
