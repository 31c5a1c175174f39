package rule

import (
	"slices"

	"github.com/roach88/spanrule/internal/ir"
)

type nodeID int

const noNode nodeID = -1

// node is one repetition of one element. Leaf repetitions hold the span
// they matched (none if no candidate was found); composed repetitions hold
// children and, once evaluated, the span covering them.
type node struct {
	element  Element
	parent   nodeID
	children []nodeID
	span     ir.Span
	hasSpan  bool
	entry    ir.Span
	hasEntry bool
	matched  bool
	removed  bool
	looping  bool
	conds    []EvaluatedCondition
}

// RuleMatch is the result of one matching attempt: the match tree and the
// matched flag. It is owned by a single attempt and never shared.
type RuleMatch struct {
	id       string
	rule     *Rule
	nodes    []node
	root     nodeID
	anchor   nodeID
	sideStep *TypeElement
	matched  bool
	done     bool
}

func newRuleMatch(r *Rule) *RuleMatch {
	return &RuleMatch{rule: r, root: noNode, anchor: noNode, matched: true}
}

// ID returns the match ID.
func (rm *RuleMatch) ID() string { return rm.id }

// Rule returns the rule this match belongs to.
func (rm *RuleMatch) Rule() *Rule { return rm.rule }

// Matched reports whether the match finished successfully.
func (rm *RuleMatch) Matched() bool { return rm.done && rm.matched }

// Done reports whether the match reached its terminus.
func (rm *RuleMatch) Done() bool { return rm.done }

// copy returns a deep copy sharing no mutable state with rm.
func (rm *RuleMatch) copy() *RuleMatch {
	cp := *rm
	cp.nodes = make([]node, len(rm.nodes))
	for i, n := range rm.nodes {
		n.children = slices.Clone(n.children)
		n.conds = slices.Clone(n.conds)
		cp.nodes[i] = n
	}
	return &cp
}

// addNode appends a repetition of el under parent. Forward repetitions go
// last, backward ones first, so children stay in document order.
func (rm *RuleMatch) addNode(parent nodeID, el Element, after bool) nodeID {
	id := nodeID(len(rm.nodes))
	rm.nodes = append(rm.nodes, node{element: el, parent: parent})
	if parent == noNode {
		rm.root = id
		return id
	}
	p := &rm.nodes[parent]
	if after {
		p.children = append(p.children, id)
	} else {
		p.children = slices.Insert(p.children, 0, id)
	}
	return id
}

// addEntry is addNode for a repetition attempted adjacent to from.
func (rm *RuleMatch) addEntry(parent nodeID, el Element, after bool, from ir.Span) nodeID {
	id := rm.addNode(parent, el, after)
	rm.nodes[id].entry = from
	rm.nodes[id].hasEntry = true
	return id
}

// reps returns the repetitions of el under parent in matching order.
func (rm *RuleMatch) reps(parent nodeID, el Element, after bool) []nodeID {
	if parent == noNode {
		return nil
	}
	var out []nodeID
	for _, c := range rm.nodes[parent].children {
		if rm.nodes[c].element == el {
			out = append(out, c)
		}
	}
	if !after {
		slices.Reverse(out)
	}
	return out
}

func (rm *RuleMatch) summarize(ids []nodeID) []Repetition {
	out := make([]Repetition, len(ids))
	for i, id := range ids {
		out[i] = Repetition{Matched: rm.nodes[id].matched}
	}
	return out
}

func countMatched(reps []Repetition) int {
	n := 0
	for _, r := range reps {
		if r.Matched {
			n++
		}
	}
	return n
}

// prune drops the repetitions after the first keep (in matching order).
func (rm *RuleMatch) prune(ids []nodeID, keep int) {
	for _, id := range ids[keep:] {
		rm.remove(id)
	}
}

func (rm *RuleMatch) remove(id nodeID) {
	n := &rm.nodes[id]
	if n.removed {
		return
	}
	n.removed = true
	if n.parent == noNode {
		return
	}
	p := &rm.nodes[n.parent]
	if i := slices.Index(p.children, id); i >= 0 {
		p.children = slices.Delete(p.children, i, i+1)
	}
}

// handoff returns the span the next sibling continues from: the cover of
// the last kept repetition that covers anything, or where the first
// repetition was attempted.
func (rm *RuleMatch) handoff(ids []nodeID, keep int) (ir.Span, bool) {
	for i := keep - 1; i >= 0; i-- {
		if s, ok := rm.cover(ids[i]); ok {
			return s, true
		}
	}
	if len(ids) > 0 && rm.nodes[ids[0]].hasEntry {
		return rm.nodes[ids[0]].entry, true
	}
	return ir.Span{}, false
}

// covers reports whether any of the repetitions covers a span.
func (rm *RuleMatch) covers(ids []nodeID) bool {
	for _, id := range ids {
		if _, ok := rm.cover(id); ok {
			return true
		}
	}
	return false
}

// cover returns the span covered by a repetition: the leaf's span, or the
// span from the first to the last covered child of a composed repetition.
func (rm *RuleMatch) cover(id nodeID) (ir.Span, bool) {
	n := rm.nodes[id]
	if n.element != nil {
		if _, leaf := n.element.(*TypeElement); leaf {
			return n.span, n.hasSpan
		}
	}
	var first, last ir.Span
	found := false
	for _, c := range n.children {
		s, ok := rm.cover(c)
		if !ok {
			continue
		}
		if !found {
			first = s
			found = true
		}
		last = s
	}
	if !found {
		return ir.Span{}, false
	}
	return ir.Cover(first, last), true
}

func (rm *RuleMatch) hasReps(el Element) bool {
	found := false
	rm.walk(func(id nodeID) {
		if rm.nodes[id].element == el {
			found = true
		}
	})
	return found
}

// walk visits the live tree depth-first in document order.
func (rm *RuleMatch) walk(fn func(nodeID)) {
	if rm.root == noNode {
		return
	}
	var visit func(nodeID)
	visit = func(id nodeID) {
		fn(id)
		for _, c := range rm.nodes[id].children {
			visit(c)
		}
	}
	visit(rm.root)
}

// MatchedSpansOf returns, for every repetition of el in document order, the
// span it covers, or nil for a repetition that covers nothing.
func (rm *RuleMatch) MatchedSpansOf(el Element) []*ir.Span {
	var out []*ir.Span
	rm.walk(func(id nodeID) {
		if rm.nodes[id].element != el {
			return
		}
		if s, ok := rm.cover(id); ok {
			out = append(out, &s)
		} else {
			out = append(out, nil)
		}
	})
	return out
}

// Span returns the span covered by the whole match.
func (rm *RuleMatch) Span() (ir.Span, bool) {
	if rm.root == noNode {
		return ir.Span{}, false
	}
	return rm.cover(rm.root)
}

// Tree returns the canonical form of the match tree.
func (rm *RuleMatch) Tree() ir.Object {
	if rm.root == noNode {
		return ir.Object{}
	}
	return rm.nodeObject(rm.root)
}

func (rm *RuleMatch) nodeObject(id nodeID) ir.Object {
	n := rm.nodes[id]
	obj := ir.Object{
		"element": ir.String(n.element.String()),
		"matched": ir.Bool(n.matched),
	}
	if s, ok := rm.cover(id); ok {
		obj["span"] = s.Object()
	}
	if len(n.conds) > 0 {
		conds := make([]ir.Value, len(n.conds))
		for i, c := range n.conds {
			conds[i] = ir.Object{"condition": ir.String(c.Condition), "matched": ir.Bool(c.Matched)}
		}
		obj["conditions"] = ir.List{Elem: ir.KindObject, Items: conds}
	}
	if _, composed := n.element.(*Composed); composed {
		children := make([]ir.Value, len(n.children))
		for i, c := range n.children {
			children[i] = rm.nodeObject(c)
		}
		obj["children"] = ir.List{Elem: ir.KindObject, Items: children}
	}
	return obj
}

// Object returns the canonical form of the match without its ID.
func (rm *RuleMatch) Object() ir.Object {
	rule := -1
	if rm.rule != nil {
		rule = rm.rule.ID
	}
	return ir.Object{
		"rule":    ir.Int(int64(rule)),
		"matched": ir.Bool(rm.Matched()),
		"tree":    rm.Tree(),
	}
}

// Fingerprint hashes the canonical match. Identical runs produce identical
// fingerprints.
func (rm *RuleMatch) Fingerprint() (string, error) {
	return ir.MatchHash(rm.Object())
}
