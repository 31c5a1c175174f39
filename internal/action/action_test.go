package action

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spanrule/internal/env"
	"github.com/roach88/spanrule/internal/expr"
	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/rule"
	"github.com/roach88/spanrule/internal/stream"
)

// makeTestStream seeds text into a type system that also declares Person.
func makeTestStream(t *testing.T, text string) (*stream.Stream, *env.Block) {
	t.Helper()
	ts := ir.NewTypeSystem()
	ts.MustDeclare("Person", "")
	doc, err := stream.Seed(text, ts)
	require.NoError(t, err)
	return stream.New(doc), env.NewBlock("test", ts, nil)
}

func attach(block *env.Block, els ...rule.Element) *rule.Rule {
	return rule.NewRule(0, rule.NewComposed(els), block)
}

func apply(t *testing.T, r *rule.Rule, s *stream.Stream) *rule.RuleApply {
	t.Helper()
	ra, err := r.Apply(context.Background(), s, nil)
	require.NoError(t, err)
	return ra
}

func covered(s *stream.Stream, typ string) []string {
	var out []string
	for _, span := range s.Document().SpansOf(typ) {
		out = append(out, s.CoveredText(span))
	}
	return out
}

func str(s string) expr.Expr { return expr.Literal{Value: ir.String(s)} }

func TestAdd(t *testing.T) {
	s, block := makeTestStream(t, "Peter")
	el := rule.NewTypeElement(stream.TypeCW)
	attach(block, el)
	require.NoError(t, block.Declare("names", ir.KindList, ir.KindString, nil))
	require.NoError(t, block.Declare("scores", ir.KindList, ir.KindDouble, nil))
	ints, err := ir.NewList(ir.KindInt, ir.Int(1), ir.Int(2))
	require.NoError(t, err)
	require.NoError(t, block.Declare("ints", ir.KindList, ir.KindInt, ints))
	require.NoError(t, block.Declare("count", ir.KindInt, ir.KindInvalid, nil))

	tests := []struct {
		name  string
		add   *Add
		check string
		want  []ir.Value
	}{
		{
			name:  "scalar",
			add:   &Add{Var: "names", Items: []expr.Expr{str("a"), str("b")}},
			check: "names",
			want:  []ir.Value{ir.String("a"), ir.String("b")},
		},
		{
			name:  "mismatched scalar skipped",
			add:   &Add{Var: "names", Items: []expr.Expr{expr.Literal{Value: ir.Int(3)}, str("c")}},
			check: "names",
			want:  []ir.Value{ir.String("a"), ir.String("b"), ir.String("c")},
		},
		{
			name:  "mismatched list leaves length unchanged",
			add:   &Add{Var: "names", Items: []expr.Expr{expr.Var{Name: "ints"}}},
			check: "names",
			want:  []ir.Value{ir.String("a"), ir.String("b"), ir.String("c")},
		},
		{
			name:  "numbers convert",
			add:   &Add{Var: "scores", Items: []expr.Expr{expr.Literal{Value: ir.Int(4)}, expr.Var{Name: "ints"}}},
			check: "scores",
			want:  []ir.Value{ir.Double(4), ir.Double(1), ir.Double(2)},
		},
		{
			name: "list literal spread",
			add: &Add{Var: "names", Items: []expr.Expr{
				expr.List{Elem: ir.KindString, Items: []expr.Expr{str("d"), str("e")}},
			}},
			check: "names",
			want:  []ir.Value{ir.String("a"), ir.String("b"), ir.String("c"), ir.String("d"), ir.String("e")},
		},
		{
			name:  "non-list target is a no-op",
			add:   &Add{Var: "count", Items: []expr.Expr{expr.Literal{Value: ir.Int(1)}}},
			check: "count",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.add.Execute(nil, el, s, rule.NopCrowd{}))
			v, err := block.Get(tt.check)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Equal(t, ir.Int(0), v)
				return
			}
			assert.Equal(t, tt.want, v.(ir.List).Items)
		})
	}
}

func TestAddUndeclared(t *testing.T) {
	s, block := makeTestStream(t, "Peter")
	el := rule.NewTypeElement(stream.TypeCW)
	attach(block, el)

	err := (&Add{Var: "missing", Items: []expr.Expr{str("x")}}).Execute(nil, el, s, rule.NopCrowd{})
	require.Error(t, err)
	assert.True(t, env.IsUndeclared(err))
}

func TestAddString(t *testing.T) {
	a := &Add{Var: "names", Items: []expr.Expr{str("x"), expr.Type{Name: "CW"}}}
	assert.Equal(t, `ADD(names, "x", CW)`, a.String())
}

func TestAssign(t *testing.T) {
	s, block := makeTestStream(t, "Peter")
	el := rule.NewTypeElement(stream.TypeCW)
	attach(block, el)
	require.NoError(t, block.Declare("count", ir.KindInt, ir.KindInvalid, nil))

	require.NoError(t, (&Assign{Var: "count", Value: expr.Literal{Value: ir.Double(2.7)}}).Execute(nil, el, s, rule.NopCrowd{}))
	v, _ := block.Get("count")
	assert.Equal(t, ir.Int(2), v)

	require.NoError(t, (&Assign{Var: "count", Value: str("x")}).Execute(nil, el, s, rule.NopCrowd{}))
	v, _ = block.Get("count")
	assert.Equal(t, ir.Int(2), v, "wrong kind is a no-op")

	err := (&Assign{Var: "missing", Value: str("x")}).Execute(nil, el, s, rule.NopCrowd{})
	assert.True(t, env.IsUndeclared(err))
}

func TestMarkCoversWholeElement(t *testing.T) {
	s, block := makeTestStream(t, "Peter lives here.")
	words := rule.NewTypeElement(stream.TypeSW,
		rule.WithQuantifier(rule.Plus(rule.Greedy)),
		rule.WithActions(&Mark{Type: expr.Type{Name: "Person"}}))
	ra := apply(t, attach(block, rule.NewTypeElement(stream.TypeCW), words), s)

	require.Len(t, ra.Matched(), 1)
	assert.Equal(t, []string{"lives here"}, covered(s, "Person"))
}

func TestImplicitMarkPerRepetition(t *testing.T) {
	s, block := makeTestStream(t, "Peter lives here.")
	mark := &ImplicitMark{Type: expr.Type{Name: "Person"}}
	assert.Equal(t, "Person", mark.String())
	words := rule.NewTypeElement(stream.TypeSW, rule.WithQuantifier(rule.Plus(rule.Greedy)), rule.WithActions(mark))
	apply(t, attach(block, rule.NewTypeElement(stream.TypeCW), words), s)

	assert.Equal(t, []string{"lives", "here"}, covered(s, "Person"))
}

func TestImplicitMarkStopsAtEmptyRepetition(t *testing.T) {
	s, block := makeTestStream(t, "Peter lives here.")
	optional := rule.NewTypeElement(stream.TypeSW, rule.WithQuantifier(rule.Question(rule.Greedy)))
	group := rule.NewComposed([]rule.Element{optional},
		rule.WithQuantifier(rule.Plus(rule.Greedy)),
		rule.WithActions(&ImplicitMark{Type: expr.Type{Name: "Person"}}))
	ra := apply(t, attach(block, rule.NewTypeElement(stream.TypeCW), group), s)

	require.Len(t, ra.Matched(), 1)
	spans := ra.Matched()[0].MatchedSpansOf(group)
	require.Len(t, spans, 3)
	assert.Nil(t, spans[2], "the last repetition matched nothing")
	assert.Equal(t, []string{"lives", "here"}, covered(s, "Person"))
}

func TestUnmark(t *testing.T) {
	s, block := makeTestStream(t, "Peter lives here.")
	require.Equal(t, 2, s.Document().Count(stream.TypeSW))
	unmark := &Unmark{Type: expr.Type{Name: stream.TypeSW}}
	assert.Equal(t, "UNMARK(SW)", unmark.String())
	apply(t, attach(block, rule.NewTypeElement(stream.TypeSW, rule.WithActions(unmark))), s)

	assert.Zero(t, s.Document().Count(stream.TypeSW))
	assert.Equal(t, 1, s.Document().Count(stream.TypeW), "CW remains")
}

func TestMarkUnknownType(t *testing.T) {
	s, block := makeTestStream(t, "Peter")
	r := attach(block, rule.NewTypeElement(stream.TypeCW, rule.WithActions(&Mark{Type: expr.Type{Name: "Missing"}})))

	_, err := r.Apply(context.Background(), s, nil)
	require.Error(t, err)
	assert.True(t, rule.IsActionError(err))
	assert.ErrorIs(t, err, ir.ErrUnknownType)
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, block := makeTestStream(t, "Peter lives")
	logAction := &Log{Message: str("found name"), Level: slog.LevelWarn, Logger: logger}
	assert.Equal(t, `LOG("found name", warn)`, logAction.String())
	apply(t, attach(block, rule.NewTypeElement(stream.TypeCW, rule.WithActions(logAction))), s)

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, `msg="found name"`)
	assert.Contains(t, out, "text=Peter")
}
