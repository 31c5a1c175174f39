package env

import (
	"fmt"

	"github.com/roach88/spanrule/internal/ir"
)

// Block is a named scope: its own environment, the type system its rules
// resolve type names against, and an optional parent block.
type Block struct {
	Name   string
	Env    *Environment
	Types  *ir.TypeSystem
	Parent *Block
}

// NewBlock creates a block with an empty environment. A nil types means
// the parent's type system.
func NewBlock(name string, types *ir.TypeSystem, parent *Block) *Block {
	if types == nil && parent != nil {
		types = parent.Types
	}
	if types == nil {
		types = ir.NewTypeSystem()
	}
	return &Block{Name: name, Env: New(), Types: types, Parent: parent}
}

// Owner returns the nearest block whose environment declares name.
func (b *Block) Owner(name string) (*Environment, bool) {
	for cur := b; cur != nil; cur = cur.Parent {
		if cur.Env.Has(name) {
			return cur.Env, true
		}
	}
	return nil, false
}

// Declare adds a variable to this block's environment.
func (b *Block) Declare(name string, kind, elem ir.Kind, initial ir.Value) error {
	return b.Env.Declare(name, kind, elem, initial)
}

// Lookup returns the named variable from the nearest declaring block.
func (b *Block) Lookup(name string) (Variable, bool) {
	e, ok := b.Owner(name)
	if !ok {
		return Variable{}, false
	}
	return e.Lookup(name)
}

// Get returns the value of name from the nearest declaring block.
func (b *Block) Get(name string) (ir.Value, error) {
	e, ok := b.Owner(name)
	if !ok {
		return nil, undeclared(name)
	}
	return e.Get(name)
}

// Kind returns the declared kind of name.
func (b *Block) Kind(name string) (ir.Kind, error) {
	e, ok := b.Owner(name)
	if !ok {
		return ir.KindInvalid, undeclared(name)
	}
	return e.Kind(name)
}

// GenericKind returns the declared element kind of a list variable.
func (b *Block) GenericKind(name string) (ir.Kind, error) {
	e, ok := b.Owner(name)
	if !ok {
		return ir.KindInvalid, undeclared(name)
	}
	return e.GenericKind(name)
}

// Set assigns name in the nearest declaring block.
func (b *Block) Set(name string, value ir.Value) error {
	e, ok := b.Owner(name)
	if !ok {
		return undeclared(name)
	}
	return e.Set(name, value)
}

// Append adds an element to list variable name.
func (b *Block) Append(name string, value ir.Value) error {
	e, ok := b.Owner(name)
	if !ok {
		return undeclared(name)
	}
	return e.Append(name, value)
}

// ResolveType checks that name is a declared span type.
func (b *Block) ResolveType(name string) (string, error) {
	if !b.Types.Has(name) {
		return "", fmt.Errorf("block %s: type %s: %w", b.Name, name, ir.ErrUnknownType)
	}
	return name, nil
}
