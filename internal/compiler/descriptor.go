// Package compiler turns CUE type-system descriptors into span types and
// script variables.
//
// A descriptor declares types by name, with an optional parent, and
// variables by name, with a kind keyword and an optional initial value:
//
//	types: {
//		Entity: {}
//		Person: parent: "Entity"
//	}
//	variables: {
//		names: {kind: "STRINGLIST", init: ["Ada"]}
//		count: kind: "INT"
//	}
//
// Types may be listed in any order; parents are declared before children.
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/stream"
)

// Descriptor is a compiled descriptor, in source order.
type Descriptor struct {
	Types     []stream.TypeDecl
	Variables []VarDecl

	pos map[string]token.Pos
}

// VarDecl declares one variable. A nil Init means the kind's zero value.
type VarDecl struct {
	Name string
	Kind ir.Kind
	Elem ir.Kind
	Init ir.Value
}

// CompileDescriptor parses a CUE value holding "types" and "variables".
// Both are optional.
func CompileDescriptor(v cue.Value) (*Descriptor, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	d := &Descriptor{pos: make(map[string]token.Pos)}

	types, err := parseTypes(v, d)
	if err != nil {
		return nil, err
	}
	d.Types = types

	vars, err := parseVariables(v, d)
	if err != nil {
		return nil, err
	}
	d.Variables = vars
	return d, nil
}

func parseTypes(v cue.Value, d *Descriptor) ([]stream.TypeDecl, error) {
	typesVal := v.LookupPath(cue.ParsePath("types"))
	if !typesVal.Exists() {
		return nil, nil
	}
	iter, err := typesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []stream.TypeDecl
	for iter.Next() {
		name := iter.Label()
		decl := stream.TypeDecl{Name: name}
		d.pos["types."+name] = iter.Value().Pos()

		parentVal := iter.Value().LookupPath(cue.ParsePath("parent"))
		if parentVal.Exists() {
			parent, err := parentVal.String()
			if err != nil {
				return nil, &CompileError{
					Field:   fmt.Sprintf("types.%s.parent", name),
					Message: "parent must be a type name",
					Pos:     parentVal.Pos(),
				}
			}
			decl.Parent = parent
		}
		out = append(out, decl)
	}
	return out, nil
}

func parseVariables(v cue.Value, d *Descriptor) ([]VarDecl, error) {
	varsVal := v.LookupPath(cue.ParsePath("variables"))
	if !varsVal.Exists() {
		return nil, nil
	}
	iter, err := varsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []VarDecl
	for iter.Next() {
		name := iter.Label()
		val := iter.Value()
		field := "variables." + name
		d.pos[field] = val.Pos()

		kindVal := val.LookupPath(cue.ParsePath("kind"))
		if !kindVal.Exists() {
			return nil, &CompileError{Field: field + ".kind", Message: "kind is required", Pos: val.Pos()}
		}
		keyword, err := kindVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		kind, elem, err := ir.ParseKind(keyword)
		if err != nil {
			return nil, &CompileError{Field: field + ".kind", Message: err.Error(), Pos: kindVal.Pos()}
		}

		decl := VarDecl{Name: name, Kind: kind, Elem: elem}
		initVal := val.LookupPath(cue.ParsePath("init"))
		if initVal.Exists() {
			if decl.Init, err = decodeValue(initVal, kind, elem, field+".init"); err != nil {
				return nil, err
			}
		}
		out = append(out, decl)
	}
	return out, nil
}

// decodeValue reads a concrete CUE value as kind.
func decodeValue(v cue.Value, kind, elem ir.Kind, field string) (ir.Value, error) {
	mismatch := func(err error) error {
		return &CompileError{
			Field:   field,
			Message: fmt.Sprintf("want %s: %v", kind, err),
			Pos:     v.Pos(),
		}
	}
	switch kind {
	case ir.KindBool:
		b, err := v.Bool()
		if err != nil {
			return nil, mismatch(err)
		}
		return ir.Bool(b), nil
	case ir.KindInt:
		n, err := v.Int64()
		if err != nil {
			return nil, mismatch(err)
		}
		return ir.Int(n), nil
	case ir.KindDouble:
		f, err := v.Float64()
		if err != nil {
			return nil, mismatch(err)
		}
		return ir.Double(f), nil
	case ir.KindString:
		s, err := v.String()
		if err != nil {
			return nil, mismatch(err)
		}
		return ir.String(s), nil
	case ir.KindType:
		s, err := v.String()
		if err != nil {
			return nil, mismatch(err)
		}
		return ir.TypeRef(s), nil
	case ir.KindList:
		iter, err := v.List()
		if err != nil {
			return nil, mismatch(err)
		}
		list := ir.List{Elem: elem}
		for i := 0; iter.Next(); i++ {
			item, err := decodeValue(iter.Value(), elem, ir.KindInvalid, fmt.Sprintf("%s[%d]", field, i))
			if err != nil {
				return nil, err
			}
			list.Items = append(list.Items, item)
		}
		return list, nil
	}
	return nil, &CompileError{Field: field, Message: fmt.Sprintf("unsupported kind %s", kind), Pos: v.Pos()}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
