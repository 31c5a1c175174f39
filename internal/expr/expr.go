// Package expr implements the argument expressions of conditions and
// actions: literals, span-type references, list literals, and variable
// references resolved through an env.Block.
package expr

import (
	"fmt"
	"strings"

	"github.com/roach88/spanrule/internal/env"
	"github.com/roach88/spanrule/internal/ir"
)

// Expr is an argument expression. Kind reports what Eval will return
// without evaluating it.
type Expr interface {
	Kind(b *env.Block) (ir.Kind, error)
	Eval(b *env.Block) (ir.Value, error)
	String() string
}

// Literal is a constant BOOLEAN, INT, DOUBLE, or STRING.
type Literal struct {
	Value ir.Value
}

func (l Literal) Kind(*env.Block) (ir.Kind, error)  { return l.Value.Kind(), nil }
func (l Literal) Eval(*env.Block) (ir.Value, error) { return l.Value, nil }
func (l Literal) String() string                    { return ir.Format(l.Value) }

// Type references a declared span type.
type Type struct {
	Name string
}

func (t Type) Kind(*env.Block) (ir.Kind, error) { return ir.KindType, nil }

func (t Type) Eval(b *env.Block) (ir.Value, error) {
	name, err := b.ResolveType(t.Name)
	if err != nil {
		return nil, err
	}
	return ir.TypeRef(name), nil
}

func (t Type) String() string { return t.Name }

// Var references a declared variable.
type Var struct {
	Name string
}

func (v Var) Kind(b *env.Block) (ir.Kind, error)  { return b.Kind(v.Name) }
func (v Var) Eval(b *env.Block) (ir.Value, error) { return b.Get(v.Name) }
func (v Var) String() string                      { return v.Name }

// List is a list literal. Every item must evaluate to Elem.
type List struct {
	Elem  ir.Kind
	Items []Expr
}

func (l List) Kind(*env.Block) (ir.Kind, error) { return ir.KindList, nil }

func (l List) Eval(b *env.Block) (ir.Value, error) {
	items := make([]ir.Value, len(l.Items))
	for i, it := range l.Items {
		v, err := it.Eval(b)
		if err != nil {
			return nil, err
		}
		conv, ok := ir.Convert(v, l.Elem)
		if !ok {
			return nil, fmt.Errorf("list item %d: want %s, got %s", i, l.Elem, v.Kind())
		}
		items[i] = conv
	}
	return ir.List{Elem: l.Elem, Items: items}, nil
}

func (l List) String() string {
	parts := make([]string, len(l.Items))
	for i, it := range l.Items {
		parts[i] = it.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// ElemKind returns the element kind of a list-valued expression, or
// KindInvalid for scalar expressions.
func ElemKind(e Expr, b *env.Block) (ir.Kind, error) {
	switch x := e.(type) {
	case List:
		return x.Elem, nil
	case Var:
		return b.GenericKind(x.Name)
	case Literal:
		if l, ok := x.Value.(ir.List); ok {
			return l.Elem, nil
		}
	}
	return ir.KindInvalid, nil
}

// Types evaluates e as a span type or a list of span types.
func Types(e Expr, b *env.Block) ([]string, error) {
	v, err := e.Eval(b)
	if err != nil {
		return nil, err
	}
	switch val := v.(type) {
	case ir.TypeRef:
		return []string{string(val)}, nil
	case ir.List:
		if val.Elem != ir.KindType {
			return nil, fmt.Errorf("%s: want TYPE or TYPELIST, got %sLIST", e, val.Elem)
		}
		out := make([]string, len(val.Items))
		for i, it := range val.Items {
			out[i] = string(it.(ir.TypeRef))
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s: want TYPE or TYPELIST, got %s", e, v.Kind())
}

// Bool evaluates e as a BOOLEAN.
func Bool(e Expr, b *env.Block) (bool, error) {
	v, err := e.Eval(b)
	if err != nil {
		return false, err
	}
	bv, ok := v.(ir.Bool)
	if !ok {
		return false, fmt.Errorf("%s: want BOOLEAN, got %s", e, v.Kind())
	}
	return bool(bv), nil
}
