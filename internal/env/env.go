// Package env holds the typed variables a rule script declares.
//
// An Environment maps names to variables whose kind never changes after
// declaration. List variables also fix their element kind; appends of any
// other kind are rejected. INT and DOUBLE values convert into each other on
// assignment. Blocks chain environments so nested scopes see their parents'
// variables and types.
package env

import (
	"slices"

	"github.com/roach88/spanrule/internal/ir"
)

// Variable is a declared name with its kinds and current value.
type Variable struct {
	Name  string
	Kind  ir.Kind
	Elem  ir.Kind
	Value ir.Value
}

// Environment is one scope of variables. Not safe for concurrent use.
type Environment struct {
	vars  map[string]*Variable
	order []string
}

// New returns an empty environment.
func New() *Environment {
	return &Environment{vars: map[string]*Variable{}}
}

// Declare adds a variable. elem is the element kind for KindList and
// ignored otherwise. A nil initial value means the kind's zero value.
func (e *Environment) Declare(name string, kind, elem ir.Kind, initial ir.Value) error {
	if _, ok := e.vars[name]; ok {
		return &VarError{Code: ErrCodeRedeclared, Name: name}
	}
	switch {
	case kind == ir.KindList && !elem.IsScalar():
		return &VarError{Code: ErrCodeKindMismatch, Name: name, Want: ir.KindList, Got: elem}
	case kind != ir.KindList && !kind.IsScalar():
		return &VarError{Code: ErrCodeKindMismatch, Name: name, Want: kind}
	case kind != ir.KindList:
		elem = ir.KindInvalid
	}
	v := &Variable{Name: name, Kind: kind, Elem: elem, Value: ir.Zero(kind, elem)}
	if initial != nil {
		conv, err := v.accept(initial)
		if err != nil {
			return err
		}
		v.Value = conv
	}
	e.vars[name] = v
	e.order = append(e.order, name)
	return nil
}

// Has reports whether name is declared in this environment.
func (e *Environment) Has(name string) bool {
	_, ok := e.vars[name]
	return ok
}

// Lookup returns a copy of the named variable.
func (e *Environment) Lookup(name string) (Variable, bool) {
	v, ok := e.vars[name]
	if !ok {
		return Variable{}, false
	}
	return *v, true
}

// Get returns the current value of name.
func (e *Environment) Get(name string) (ir.Value, error) {
	v, ok := e.vars[name]
	if !ok {
		return nil, undeclared(name)
	}
	return v.Value, nil
}

// Kind returns the declared kind of name.
func (e *Environment) Kind(name string) (ir.Kind, error) {
	v, ok := e.vars[name]
	if !ok {
		return ir.KindInvalid, undeclared(name)
	}
	return v.Kind, nil
}

// GenericKind returns the declared element kind of a list variable, or
// KindInvalid for scalars.
func (e *Environment) GenericKind(name string) (ir.Kind, error) {
	v, ok := e.vars[name]
	if !ok {
		return ir.KindInvalid, undeclared(name)
	}
	return v.Elem, nil
}

// Set replaces the value of name. The value must have the declared kind,
// or be a number when the declared kind is a number.
func (e *Environment) Set(name string, value ir.Value) error {
	v, ok := e.vars[name]
	if !ok {
		return undeclared(name)
	}
	conv, err := v.accept(value)
	if err != nil {
		return err
	}
	v.Value = conv
	return nil
}

// Append adds one element to a list variable.
func (e *Environment) Append(name string, value ir.Value) error {
	v, ok := e.vars[name]
	if !ok {
		return undeclared(name)
	}
	if v.Kind != ir.KindList {
		return &VarError{Code: ErrCodeKindMismatch, Name: name, Want: ir.KindList, Got: v.Kind}
	}
	conv, ok := ir.Convert(value, v.Elem)
	if !ok {
		return mismatch(name, v.Elem, value)
	}
	v.Value = v.Value.(ir.List).Append(conv)
	return nil
}

// Names returns the declared names in declaration order.
func (e *Environment) Names() []string {
	return slices.Clone(e.order)
}

// Snapshot returns the current values as an object.
func (e *Environment) Snapshot() ir.Object {
	obj := make(ir.Object, len(e.vars))
	for name, v := range e.vars {
		obj[name] = v.Value
	}
	return obj
}

// Clone returns an independent copy. List values are immutable, so values
// are shared.
func (e *Environment) Clone() *Environment {
	c := New()
	for _, name := range e.order {
		v := *e.vars[name]
		c.vars[name] = &v
		c.order = append(c.order, name)
	}
	return c
}

func (v *Variable) accept(value ir.Value) (ir.Value, error) {
	if value == nil {
		return nil, mismatch(v.Name, v.Kind, nil)
	}
	if v.Kind == ir.KindList {
		l, ok := value.(ir.List)
		if !ok {
			return nil, mismatch(v.Name, v.Kind, value)
		}
		items := make([]ir.Value, len(l.Items))
		for i, it := range l.Items {
			conv, ok := ir.Convert(it, v.Elem)
			if !ok {
				return nil, mismatch(v.Name, v.Elem, it)
			}
			items[i] = conv
		}
		return ir.List{Elem: v.Elem, Items: items}, nil
	}
	conv, ok := ir.Convert(value, v.Kind)
	if !ok {
		return nil, mismatch(v.Name, v.Kind, value)
	}
	return conv, nil
}
