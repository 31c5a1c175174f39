package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spanrule/internal/ir"
)

func TestDeclareAndGet(t *testing.T) {
	e := New()
	require.NoError(t, e.Declare("count", ir.KindInt, ir.KindInvalid, ir.Int(3)))
	require.NoError(t, e.Declare("names", ir.KindList, ir.KindString, nil))
	require.NoError(t, e.Declare("ratio", ir.KindDouble, ir.KindInvalid, ir.Int(1)))

	v, err := e.Get("count")
	require.NoError(t, err)
	assert.Equal(t, ir.Int(3), v)

	v, err = e.Get("names")
	require.NoError(t, err)
	assert.Equal(t, ir.List{Elem: ir.KindString}, v)

	v, err = e.Get("ratio")
	require.NoError(t, err)
	assert.Equal(t, ir.Double(1), v, "INT initial converts to DOUBLE")

	elem, err := e.GenericKind("names")
	require.NoError(t, err)
	assert.Equal(t, ir.KindString, elem)

	assert.Equal(t, []string{"count", "names", "ratio"}, e.Names())
}

func TestDeclareErrors(t *testing.T) {
	e := New()
	require.NoError(t, e.Declare("x", ir.KindBool, ir.KindInvalid, nil))

	err := e.Declare("x", ir.KindBool, ir.KindInvalid, nil)
	var ve *VarError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, ErrCodeRedeclared, ve.Code)

	err = e.Declare("y", ir.KindString, ir.KindInvalid, ir.Int(1))
	assert.True(t, IsKindMismatch(err))

	err = e.Declare("z", ir.KindList, ir.KindList, nil)
	assert.True(t, IsKindMismatch(err))

	err = e.Declare("o", ir.KindObject, ir.KindInvalid, nil)
	assert.True(t, IsKindMismatch(err))
}

func TestSetKeepsDeclaredKind(t *testing.T) {
	e := New()
	require.NoError(t, e.Declare("n", ir.KindInt, ir.KindInvalid, nil))

	require.NoError(t, e.Set("n", ir.Double(4.7)))
	v, _ := e.Get("n")
	assert.Equal(t, ir.Int(4), v)

	err := e.Set("n", ir.String("4"))
	assert.True(t, IsKindMismatch(err))

	k, err := e.Kind("n")
	require.NoError(t, err)
	assert.Equal(t, ir.KindInt, k, "kind never changes")

	err = e.Set("missing", ir.Int(1))
	assert.True(t, IsUndeclared(err))
}

func TestAppendChecksElementKind(t *testing.T) {
	e := New()
	require.NoError(t, e.Declare("types", ir.KindList, ir.KindType, nil))
	require.NoError(t, e.Declare("flag", ir.KindBool, ir.KindInvalid, nil))

	require.NoError(t, e.Append("types", ir.TypeRef("CW")))
	err := e.Append("types", ir.String("CW"))
	assert.True(t, IsKindMismatch(err))

	v, _ := e.Get("types")
	assert.Equal(t, 1, v.(ir.List).Len())

	err = e.Append("flag", ir.Bool(true))
	assert.True(t, IsKindMismatch(err))

	err = e.Append("nope", ir.Bool(true))
	assert.True(t, IsUndeclared(err))
}

func TestSetList(t *testing.T) {
	e := New()
	require.NoError(t, e.Declare("nums", ir.KindList, ir.KindDouble, nil))

	require.NoError(t, e.Set("nums", ir.List{Elem: ir.KindInt, Items: []ir.Value{ir.Int(1), ir.Int(2)}}))
	v, _ := e.Get("nums")
	assert.Equal(t, ir.List{Elem: ir.KindDouble, Items: []ir.Value{ir.Double(1), ir.Double(2)}}, v)

	err := e.Set("nums", ir.List{Elem: ir.KindString, Items: []ir.Value{ir.String("a")}})
	assert.True(t, IsKindMismatch(err))
	err = e.Set("nums", ir.Double(1))
	assert.True(t, IsKindMismatch(err))
}

func TestCloneIsIndependent(t *testing.T) {
	e := New()
	require.NoError(t, e.Declare("l", ir.KindList, ir.KindInt, nil))
	c := e.Clone()

	require.NoError(t, c.Append("l", ir.Int(1)))
	v, _ := e.Get("l")
	assert.Equal(t, 0, v.(ir.List).Len())
	assert.Equal(t, ir.Object{"l": ir.List{Elem: ir.KindInt}}, e.Snapshot())
}

func TestBlockChain(t *testing.T) {
	ts := ir.NewTypeSystem()
	require.NoError(t, ts.Declare("Person", ""))

	root := NewBlock("root", ts, nil)
	require.NoError(t, root.Declare("count", ir.KindInt, ir.KindInvalid, nil))
	inner := NewBlock("inner", nil, root)
	require.NoError(t, inner.Declare("local", ir.KindString, ir.KindInvalid, nil))

	require.NoError(t, inner.Set("count", ir.Int(2)))
	v, err := root.Get("count")
	require.NoError(t, err)
	assert.Equal(t, ir.Int(2), v, "inner writes reach the declaring block")

	_, err = root.Get("local")
	assert.True(t, IsUndeclared(err))

	name, err := inner.ResolveType("Person")
	require.NoError(t, err)
	assert.Equal(t, "Person", name)
	_, err = inner.ResolveType("Nope")
	assert.ErrorIs(t, err, ir.ErrUnknownType)

	vr, ok := inner.Lookup("count")
	require.True(t, ok)
	assert.Equal(t, ir.KindInt, vr.Kind)
}
