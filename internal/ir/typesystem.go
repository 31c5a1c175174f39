package ir

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownType is returned when a type name is not declared.
	ErrUnknownType = errors.New("unknown type")
	// ErrDuplicateType is returned when a type is declared twice.
	ErrDuplicateType = errors.New("duplicate type")
)

// TypeSystem is the closed set of span types of one document. Each type has
// a single parent; AnnotationType is the root and has none.
type TypeSystem struct {
	parents map[string]string
	order   []string
}

// NewTypeSystem returns a type system containing only AnnotationType.
func NewTypeSystem() *TypeSystem {
	return &TypeSystem{
		parents: map[string]string{AnnotationType: ""},
		order:   []string{AnnotationType},
	}
}

// Declare adds name as a subtype of parent. An empty parent means
// AnnotationType.
func (ts *TypeSystem) Declare(name, parent string) error {
	if name == "" {
		return fmt.Errorf("declare: empty type name")
	}
	if parent == "" {
		parent = AnnotationType
	}
	if _, ok := ts.parents[name]; ok {
		return fmt.Errorf("declare %s: %w", name, ErrDuplicateType)
	}
	if _, ok := ts.parents[parent]; !ok {
		return fmt.Errorf("declare %s: parent %s: %w", name, parent, ErrUnknownType)
	}
	ts.parents[name] = parent
	ts.order = append(ts.order, name)
	return nil
}

// MustDeclare is like Declare but panics on error.
func (ts *TypeSystem) MustDeclare(name, parent string) {
	if err := ts.Declare(name, parent); err != nil {
		panic(err)
	}
}

// Has reports whether name is declared.
func (ts *TypeSystem) Has(name string) bool {
	_, ok := ts.parents[name]
	return ok
}

// Parent returns the parent of name, or "" for the root.
func (ts *TypeSystem) Parent(name string) (string, error) {
	p, ok := ts.parents[name]
	if !ok {
		return "", fmt.Errorf("%s: %w", name, ErrUnknownType)
	}
	return p, nil
}

// Ancestors returns name followed by its ancestors up to AnnotationType.
// Unknown types yield nil.
func (ts *TypeSystem) Ancestors(name string) []string {
	if !ts.Has(name) {
		return nil
	}
	var out []string
	for t := name; t != ""; t = ts.parents[t] {
		out = append(out, t)
	}
	return out
}

// IsSubtype reports whether t equals super or descends from it.
func (ts *TypeSystem) IsSubtype(t, super string) bool {
	for cur := t; cur != ""; {
		if cur == super {
			return true
		}
		p, ok := ts.parents[cur]
		if !ok {
			return false
		}
		cur = p
	}
	return false
}

// Types returns all declared types in declaration order.
func (ts *TypeSystem) Types() []string {
	return append([]string(nil), ts.order...)
}
