package script

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spanrule/internal/compiler"
	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/rule"
	"github.com/roach88/spanrule/internal/stream"
)

func compile(t *testing.T, src string) (*rule.Script, *ir.TypeSystem) {
	t.Helper()
	ts := ir.NewTypeSystem()
	sc, err := Compile("test.ruta", src, ts)
	require.NoError(t, err)
	return sc, ts
}

func run(t *testing.T, sc *rule.Script, ts *ir.TypeSystem, text string) (*stream.Stream, []*rule.RuleApply) {
	t.Helper()
	doc, err := stream.Seed(text, ts)
	require.NoError(t, err)
	s := stream.New(doc)
	applies, err := sc.Apply(context.Background(), s, nil, rule.WithIDGenerator(rule.NewSequenceGenerator("")))
	require.NoError(t, err)
	return s, applies
}

func texts(s *stream.Stream, t string) []string {
	var out []string
	for _, sp := range s.Document().SpansOf(t) {
		out = append(out, s.CoveredText(sp))
	}
	return out
}

func TestCompileDeclarations(t *testing.T) {
	sc, ts := compile(t, `
		DECLARE Person, Place;
		DECLARE Place City, Country;
	`)
	assert.Empty(t, sc.Rules)
	assert.Equal(t, "test", sc.Name)

	for name, parent := range map[string]string{
		"Person":  ir.AnnotationType,
		"Place":   ir.AnnotationType,
		"City":    "Place",
		"Country": "Place",
	} {
		got, err := ts.Parent(name)
		require.NoError(t, err, name)
		assert.Equal(t, parent, got, name)
	}
	assert.True(t, ts.Has(stream.TypeCW), "seed types are registered")
}

func TestCompileDeclareUnknownParent(t *testing.T) {
	_, err := Compile("x.ruta", "DECLARE Nope A, B;", nil)
	require.Error(t, err)
	var serr *ParseError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, 1, serr.Pos.Line)
	assert.Contains(t, err.Error(), "unknown parent type Nope")
}

func TestCompileVariables(t *testing.T) {
	sc, _ := compile(t, `
		DECLARE Person;
		STRINGLIST names = {"a", "b"};
		INT n = 3;
		DOUBLELIST ds = {1, 2.5};
		TYPE t = Person;
		BOOLEAN on, off;
		STRINGLIST empty = {};
	`)
	b := sc.Block

	names, err := b.Get("names")
	require.NoError(t, err)
	assert.Equal(t, ir.List{Elem: ir.KindString, Items: []ir.Value{ir.String("a"), ir.String("b")}}, names)

	n, err := b.Get("n")
	require.NoError(t, err)
	assert.Equal(t, ir.Int(3), n)

	ds, err := b.Get("ds")
	require.NoError(t, err)
	assert.Equal(t, ir.List{Elem: ir.KindDouble, Items: []ir.Value{ir.Double(1), ir.Double(2.5)}}, ds)

	typ, err := b.Get("t")
	require.NoError(t, err)
	assert.Equal(t, ir.TypeRef("Person"), typ)

	for _, name := range []string{"on", "off"} {
		v, err := b.Get(name)
		require.NoError(t, err)
		assert.Equal(t, ir.Bool(false), v)
	}

	empty, err := b.Get("empty")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.(ir.List).Len())
}

func TestCompileVariableErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"kind mismatch", `INT n = "x";`, "declare n"},
		{"mixed list", `INTLIST s = {1, "a"};`, "mixed list item kinds"},
		{"unknown identifier", `TYPE t = Nowhere;`, "unknown identifier Nowhere"},
		{"shadows type", `DECLARE Person; INT Person;`, "shadows a type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile("v.ruta", tt.src, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCompileRuleString(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"CW SW;", "CW SW;"},
		{"CW @SW;", "CW @SW;"},
		{"SW+? PERIOD;", "SW+? PERIOD;"},
		{"SW*+;", "SW*+;"},
		{"CW? SW[2];", "CW? SW[2,2];"},
		{"SW[1,] SW[0,3]?;", "SW+ SW[0,3]?;"},
		{"(CW SW)+ PERIOD;", "(CW SW)+ PERIOD;"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			sc, _ := compile(t, tt.src)
			require.Len(t, sc.Rules, 1)
			assert.Equal(t, tt.want, sc.Rules[0].String())
			assert.Equal(t, tt.src, sc.Rules[0].Source)
		})
	}
}

func TestCompileBlocks(t *testing.T) {
	sc, _ := compile(t, `
		DECLARE Person;
		TYPELIST ts = {Person, CW};
		STRINGLIST names;
		CW{-PARTOF(Person), IS(ts) -> MARK(Person), ADD(names, "x"), Person};
	`)
	require.Len(t, sc.Rules, 1)
	assert.Equal(t,
		`CW{-PARTOF(Person), IS(ts) -> MARK(Person), ADD(names, "x"), Person};`,
		sc.Rules[0].String())
}

func TestCompileRuleErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"unknown type", "Nope;", "unknown type Nope"},
		{"two anchors", "@CW @SW;", "more than one start anchor"},
		{"anchor in group", "(CW @SW);", "start anchor inside a group"},
		{"unknown condition", "CW{FOO(CW)};", "unknown condition FOO"},
		{"unknown action", "CW{-> FOO(CW)};", "unknown action FOO"},
		{"condition needs type", `CW{PARTOF("x")};`, "is not a TYPE or TYPELIST"},
		{"condition without args", "CW{PARTOF()};", "needs at least one type"},
		{"negated action", "CW{-> -MARK(CW)};", "cannot be negated"},
		{"add undeclared", `CW{-> ADD(nope, "x")};`, "variable"},
		{"bad range", "CW[3,1];", "quantifier"},
		{"bad log level", `CW{-> LOG("m", loud)};`, "LOG level"},
		{"syntax", "CW SW", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile("e.ruta", tt.src, nil)
			require.Error(t, err)
			var serr *ParseError
			require.True(t, errors.As(err, &serr), "got %T", err)
			assert.Equal(t, "e.ruta", serr.Pos.Filename)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCompileErrorPosition(t *testing.T) {
	_, err := Compile("pos.ruta", "DECLARE A;\n\nCW   Nope;", nil)
	require.Error(t, err)
	var serr *ParseError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, 3, serr.Pos.Line)
	assert.Equal(t, 6, serr.Pos.Column)
	assert.Contains(t, err.Error(), "pos.ruta:3:6:")
}

func TestCompileAndApply(t *testing.T) {
	sc, ts := compile(t, `
		// mark capitalized words that start a sentence
		DECLARE Person;
		STRINGLIST names;
		CW{-PARTOF(Person) -> MARK(Person), ADD(names, "x")};
		Person{-> UNMARK(Person)} PERIOD;
	`)
	s, applies := run(t, sc, ts, "Peter and Mary left.")
	require.Len(t, applies, 2)
	assert.Len(t, applies[0].Matched(), 2)
	assert.Len(t, applies[1].Matched(), 0)
	assert.Equal(t, []string{"Peter", "Mary"}, texts(s, "Person"))

	names, err := sc.Block.Get("names")
	require.NoError(t, err)
	assert.Equal(t, 2, names.(ir.List).Len())
}

func TestCompileAndApplyImplicitMarkAndQuantifiers(t *testing.T) {
	sc, ts := compile(t, `
		DECLARE Title;
		(CW SW+){-> Title} PERIOD;
	`)
	s, applies := run(t, sc, ts, "Hello big world. bye.")
	require.Len(t, applies, 1)
	assert.Equal(t, []string{"Hello big world"}, texts(s, "Title"))
}

func TestCompileAndApplyAnchor(t *testing.T) {
	sc, ts := compile(t, `
		DECLARE Pair;
		CW @SW{-> MARK(Pair)};
	`)
	s, _ := run(t, sc, ts, "Anna runs fast")
	assert.Equal(t, []string{"runs"}, texts(s, "Pair"))
}

func TestCompileLogAction(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sc, err := Compile("log.ruta", `CW{-> LOG("capital", warn)};`, nil, WithLogger(logger))
	require.NoError(t, err)
	assert.Equal(t, `CW{-> LOG("capital", warn)};`, sc.Rules[0].String())

	doc, err := stream.Seed("Hello there", sc.Block.Types)
	require.NoError(t, err)
	_, err = sc.Apply(context.Background(), stream.New(doc), nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "capital")
	assert.Contains(t, buf.String(), "Hello")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "names.ruta")
	require.NoError(t, os.WriteFile(path, []byte("DECLARE Name;\nCW{-> Name};\n"), 0o644))

	sc, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "names", sc.Name)
	require.Len(t, sc.Rules, 1)
	assert.Equal(t, "CW{-> Name};", sc.Rules[0].Source)

	_, err = Load(filepath.Join(dir, "missing.ruta"), nil)
	require.Error(t, err)
}

func TestStatementText(t *testing.T) {
	src := `CW{-> LOG("a;b")} // x; y
	SW;`
	assert.Equal(t, src, statementText(src, 0))
	assert.Equal(t, "SW;", statementText("CW; SW;", 4))
	assert.Equal(t, "", statementText("CW;", 10))
}

func TestCompileWithDescriptor(t *testing.T) {
	v := cuecontext.New().CompileString(`
		types: {
			Entity: {}
			Person: parent: "Entity"
		}
		variables: seen: kind: "STRINGLIST"
	`)
	d, err := compiler.CompileDescriptor(v)
	require.NoError(t, err)

	ts := ir.NewTypeSystem()
	sc, err := Compile("d.ruta", `CW{-> MARK(Person), ADD(seen, "x")};`, ts, WithDescriptor(d))
	require.NoError(t, err)
	assert.True(t, ts.IsSubtype("Person", "Entity"))

	s, _ := run(t, sc, ts, "Ada Lovelace")
	assert.Equal(t, []string{"Ada", "Lovelace"}, texts(s, "Entity"))
	seen, err := sc.Block.Get("seen")
	require.NoError(t, err)
	assert.Equal(t, 2, seen.(ir.List).Len())
}
