package rule

import (
	"log/slog"

	"github.com/roach88/spanrule/internal/stream"
)

// matcher drives one rule application. Element operations push their
// continuations onto stack instead of calling them; run pops and executes
// them until the stack drains or an error is recorded.
type matcher struct {
	stream *stream.Stream
	crowd  Crowd
	apply  *RuleApply
	ids    IDGenerator
	quota  *QuotaEnforcer
	logger *slog.Logger

	stack []func()
	err   error
}

func (m *matcher) push(fn func()) {
	m.stack = append(m.stack, fn)
}

// run executes continuations until the stack shrinks to base.
func (m *matcher) run(base int) {
	for len(m.stack) > base && m.err == nil {
		if err := m.quota.Check(m.apply.Rule.ID); err != nil {
			m.err = err
			return
		}
		fn := m.stack[len(m.stack)-1]
		m.stack = m.stack[:len(m.stack)-1]
		fn()
	}
}

// fail records the first error. The stack stops draining afterwards.
func (m *matcher) fail(err error) {
	if m.err == nil {
		m.err = err
	}
}

// branch runs try for n alternatives in order. Alternative 0 continues on
// rm; the others run on snapshots taken now.
func (m *matcher) branch(rm *RuleMatch, n int, try func(rm *RuleMatch, i int)) {
	for i := n - 1; i >= 1; i-- {
		snapshot := rm.copy()
		m.push(func() { try(snapshot, i) })
	}
	m.push(func() { try(rm, 0) })
}

// done records a finished match and, if it matched, runs its actions.
func (m *matcher) done(rm *RuleMatch) {
	rm.matched = rm.matched && rm.root != noNode && rm.nodes[rm.root].matched
	rm.done = true
	rm.sideStep = nil
	rm.id = m.ids.Generate()
	m.apply.Matches = append(m.apply.Matches, rm)
	m.logger.Debug("rule match done", "rule", rm.rule.ID, "match", rm.id, "matched", rm.matched)
	if !rm.matched {
		return
	}
	if err := m.applyElement(rm, rm.rule.Root); err != nil {
		m.fail(err)
	}
}

// applyElement runs actions depth-first: a group's children before the
// group's own actions. Elements without repetitions in the match are
// skipped.
func (m *matcher) applyElement(rm *RuleMatch, el Element) error {
	if c, ok := el.(*Composed); ok {
		for _, ch := range c.children {
			if err := m.applyElement(rm, ch); err != nil {
				return err
			}
		}
	}
	if len(el.Actions()) == 0 || !rm.hasReps(el) {
		return nil
	}
	for _, a := range el.Actions() {
		m.crowd.BeginVisit(a, rm)
		err := a.Execute(rm, el, m.stream, m.crowd)
		m.crowd.EndVisit(a, rm)
		if err != nil {
			return newElementError(ErrCodeActionFailed, el, a.String(), err)
		}
	}
	return nil
}
