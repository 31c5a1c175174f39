package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spanrule/internal/ir"
)

func TestRuleMatchTree(t *testing.T) {
	a := NewTypeElement("A", WithQuantifier(Plus(Greedy)))
	b := NewTypeElement("B")
	r := NewRule(3, NewComposed([]Element{a, b}), nil)

	rm := newRuleMatch(r)
	root := rm.addNode(noNode, r.Root, true)
	first := rm.addNode(root, a, true)
	rm.nodes[first].span, rm.nodes[first].hasSpan, rm.nodes[first].matched = ir.Span{ID: 1, Type: "A", Begin: 0, End: 2}, true, true
	second := rm.addEntry(root, a, true, rm.nodes[first].span)
	rm.nodes[second].span, rm.nodes[second].hasSpan, rm.nodes[second].matched = ir.Span{ID: 2, Type: "A", Begin: 3, End: 5}, true, true
	missing := rm.addEntry(root, b, true, rm.nodes[second].span)

	spans := rm.MatchedSpansOf(a)
	require.Len(t, spans, 2)
	assert.Equal(t, int64(1), spans[0].ID)
	assert.Equal(t, int64(2), spans[1].ID)
	assert.Equal(t, []*ir.Span{nil}, rm.MatchedSpansOf(b))

	cover, ok := rm.Span()
	require.True(t, ok)
	assert.Equal(t, ir.Span{Type: ir.AnnotationType, Begin: 0, End: 5}, cover)

	from, ok := rm.handoff(rm.reps(root, b, true), 0)
	require.True(t, ok)
	assert.Equal(t, int64(2), from.ID, "handoff falls back to the entry span")

	rm.prune(rm.reps(root, b, true), 0)
	assert.True(t, rm.nodes[missing].removed)
	assert.Empty(t, rm.MatchedSpansOf(b))

	obj := rm.Object()
	assert.Equal(t, ir.Int(3), obj["rule"])
	assert.Equal(t, ir.Bool(false), obj["matched"], "not done yet")
	tree := obj["tree"].(ir.Object)
	assert.Equal(t, ir.String("(A+ B)"), tree["element"])
	assert.Len(t, tree["children"].(ir.List).Items, 2)
}

func TestRuleMatchBackwardRepetitionsKeepDocumentOrder(t *testing.T) {
	a := NewTypeElement("A", WithQuantifier(Star(Greedy)))
	r := NewRule(0, NewComposed([]Element{a}), nil)
	rm := newRuleMatch(r)
	root := rm.addNode(noNode, r.Root, true)

	late := rm.addNode(root, a, false)
	rm.nodes[late].span, rm.nodes[late].hasSpan = ir.Span{ID: 2, Begin: 4, End: 6}, true
	early := rm.addNode(root, a, false)
	rm.nodes[early].span, rm.nodes[early].hasSpan = ir.Span{ID: 1, Begin: 0, End: 2}, true

	assert.Equal(t, []nodeID{early, late}, rm.reps(root, a, true))
	assert.Equal(t, []nodeID{late, early}, rm.reps(root, a, false))
	spans := rm.MatchedSpansOf(a)
	require.Len(t, spans, 2)
	assert.Equal(t, 0, spans[0].Begin)
}

func TestRuleMatchCopyIsIndependent(t *testing.T) {
	a := NewTypeElement("A")
	r := NewRule(0, NewComposed([]Element{a}), nil)
	rm := newRuleMatch(r)
	root := rm.addNode(noNode, r.Root, true)
	rm.addNode(root, a, true)

	cp := rm.copy()
	cp.addNode(root, a, true)
	cp.matched = false

	assert.Len(t, rm.nodes[root].children, 1)
	assert.Len(t, cp.nodes[root].children, 2)
	assert.True(t, rm.matched)
}

func TestFingerprintIgnoresMatchID(t *testing.T) {
	a := NewTypeElement("A")
	r := NewRule(0, NewComposed([]Element{a}), nil)
	rm := newRuleMatch(r)
	root := rm.addNode(noNode, r.Root, true)
	leaf := rm.addNode(root, a, true)
	rm.nodes[leaf].span, rm.nodes[leaf].hasSpan, rm.nodes[leaf].matched = ir.Span{ID: 1, Type: "A", Begin: 0, End: 1}, true, true

	other := rm.copy()
	rm.id, other.id = "x", "y"

	fp1, err := rm.Fingerprint()
	require.NoError(t, err)
	fp2, err := other.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
}
