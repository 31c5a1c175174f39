package rule

import (
	"fmt"
	"strings"

	"github.com/roach88/spanrule/internal/env"
	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/stream"
)

// EvaluatedCondition is the outcome of one condition against one candidate.
type EvaluatedCondition struct {
	Condition string
	Matched   bool
}

// Condition is a read-only predicate over a candidate span. Eval returns an
// error only when the condition cannot be evaluated at all; "no match" is
// Matched=false.
type Condition interface {
	fmt.Stringer
	Eval(span ir.Span, el Element, s *stream.Stream, crowd Crowd) (EvaluatedCondition, error)
}

// Action runs after a rule match is confirmed. It may add or remove spans
// and update variables.
type Action interface {
	fmt.Stringer
	Execute(rm *RuleMatch, el Element, s *stream.Stream, crowd Crowd) error
}

// Element is a rule element: a TypeElement or a Composed group. Elements
// are built once per rule and hold no per-match state.
type Element interface {
	Quantifier() Quantifier
	Conditions() []Condition
	Actions() []Action

	// Container is the enclosing group, nil for a rule's root.
	Container() *Composed

	// Block is the scope variables and types resolve in.
	Block() *env.Block

	// EstimateAnchors is a cheap upper bound on len(Anchors(s)).
	EstimateAnchors(s *stream.Stream) int

	// Anchors returns the candidate spans a match may start from.
	Anchors(s *stream.Stream) []ir.Span

	String() string

	startMatch(m *matcher, rm *RuleMatch, parent nodeID)
	continueMatch(m *matcher, rm *RuleMatch, after bool, from ir.Span, parent nodeID)
	wouldMatch(m *matcher, after bool, from ir.Span) bool
	elementBase() *base
}

type base struct {
	quantifier Quantifier
	conditions []Condition
	actions    []Action
	container  *Composed
	block      *env.Block
	rule       *Rule
}

// ElementOption configures a rule element.
type ElementOption func(*base)

// WithQuantifier sets the repetition policy. The default is Normal.
func WithQuantifier(q Quantifier) ElementOption {
	return func(b *base) { b.quantifier = q }
}

// WithConditions appends conditions, evaluated in order.
func WithConditions(conds ...Condition) ElementOption {
	return func(b *base) { b.conditions = append(b.conditions, conds...) }
}

// WithActions appends actions, executed in order.
func WithActions(actions ...Action) ElementOption {
	return func(b *base) { b.actions = append(b.actions, actions...) }
}

// WithBlock sets the element's scope. Without it the element uses its
// container's scope.
func WithBlock(block *env.Block) ElementOption {
	return func(b *base) { b.block = block }
}

func newBase(opts []ElementOption) base {
	b := base{quantifier: Normal()}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *base) Quantifier() Quantifier  { return b.quantifier }
func (b *base) Conditions() []Condition { return b.conditions }
func (b *base) Actions() []Action       { return b.actions }
func (b *base) Container() *Composed    { return b.container }
func (b *base) elementBase() *base      { return b }

func (b *base) Block() *env.Block {
	switch {
	case b.block != nil:
		return b.block
	case b.container != nil:
		return b.container.Block()
	case b.rule != nil:
		return b.rule.Block
	}
	return nil
}

// blockString renders "{conds -> actions}", or "" when both are empty.
func (b *base) blockString() string {
	if len(b.conditions) == 0 && len(b.actions) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteByte('{')
	sb.WriteString(joinStrings(b.conditions))
	if len(b.actions) > 0 {
		if len(b.conditions) > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString("-> ")
		sb.WriteString(joinStrings(b.actions))
	}
	sb.WriteByte('}')
	return sb.String()
}

func joinStrings[T fmt.Stringer](items []T) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = it.String()
	}
	return strings.Join(parts, ", ")
}

// ruleOf returns the rule an element belongs to, or nil if the element is
// not attached to one.
func ruleOf(el Element) *Rule {
	for el != nil {
		c := el.Container()
		if c == nil {
			return el.elementBase().rule
		}
		el = c
	}
	return nil
}

// isFirstInRule reports whether el is the first element of every
// enclosing group.
func isFirstInRule(el Element) bool {
	for c := el.Container(); c != nil; c = c.Container() {
		if c.first(true) != el {
			return false
		}
		el = c
	}
	return true
}

// evalConditions evaluates el's conditions against span in order and stops
// at the first that does not match.
func (m *matcher) evalConditions(rm *RuleMatch, el Element, span ir.Span) (bool, []EvaluatedCondition) {
	var out []EvaluatedCondition
	for _, c := range el.Conditions() {
		m.crowd.BeginVisit(c, rm)
		ec, err := c.Eval(span, el, m.stream, m.crowd)
		m.crowd.EndVisit(c, rm)
		if err != nil {
			m.fail(newElementError(ErrCodeConditionFailed, el, c.String(), err))
			return false, out
		}
		out = append(out, ec)
		if !ec.Matched {
			return false, out
		}
	}
	return true, out
}

// test evaluates el's conditions without visiting the crowd. Errors count
// as no match.
func (m *matcher) test(el Element, span ir.Span) bool {
	for _, c := range el.Conditions() {
		ec, err := c.Eval(span, el, m.stream, NopCrowd{})
		if err != nil || !ec.Matched {
			return false
		}
	}
	return true
}
