package compiler

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/roach88/spanrule/internal/env"
	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/stream"
)

// Validation error codes (E100-E199)
const (
	ErrInvalidName    = "E101" // not an identifier
	ErrUnknownParent  = "E102" // parent neither declared nor known
	ErrDuplicateName  = "E103" // declared twice, or redeclared with another parent
	ErrHierarchyCycle = "E104" // parent chain loops
	ErrShadowedType   = "E105" // variable named like a type
	ErrUnknownTypeRef = "E106" // TYPE value names no type
)

// ValidationError represents a descriptor validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks d against ts, the type system it will extend.
// Returns all errors found (does not fail-fast).
func (d *Descriptor) Validate(ts *ir.TypeSystem) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf(format, args...),
			Code:    code,
			Line:    d.line(field),
		})
	}

	declared := make(map[string]string, len(d.Types))
	for _, t := range d.Types {
		field := "types." + t.Name
		if !namePattern.MatchString(t.Name) {
			add(field, ErrInvalidName, "invalid type name %q", t.Name)
		}
		if _, dup := declared[t.Name]; dup {
			add(field, ErrDuplicateName, "type %s declared twice", t.Name)
		}
		declared[t.Name] = t.Parent
	}
	for _, t := range d.Types {
		field := "types." + t.Name
		if t.Parent != "" {
			if _, ok := declared[t.Parent]; !ok && !ts.Has(t.Parent) {
				add(field+".parent", ErrUnknownParent, "unknown parent type %s", t.Parent)
			}
		}
		if ts.Has(t.Name) {
			have, _ := ts.Parent(t.Name)
			want := t.Parent
			if want == "" {
				want = ir.AnnotationType
			}
			if have != want {
				add(field, ErrDuplicateName, "type %s already has parent %s", t.Name, have)
			}
		}
	}
	for _, c := range findCycles(d.Types) {
		add("types."+c.Path[0], ErrHierarchyCycle, "%s", c.Error())
	}

	seen := make(map[string]bool, len(d.Variables))
	for _, v := range d.Variables {
		field := "variables." + v.Name
		if !namePattern.MatchString(v.Name) {
			add(field, ErrInvalidName, "invalid variable name %q", v.Name)
		}
		if seen[v.Name] {
			add(field, ErrDuplicateName, "variable %s declared twice", v.Name)
		}
		seen[v.Name] = true
		if _, ok := declared[v.Name]; ok || ts.Has(v.Name) {
			add(field, ErrShadowedType, "variable %s shadows a type", v.Name)
		}
		for _, ref := range typeRefs(v.Init) {
			if _, ok := declared[ref]; !ok && !ts.Has(ref) {
				add(field+".init", ErrUnknownTypeRef, "unknown type %s", ref)
			}
		}
	}
	return errs
}

func typeRefs(v ir.Value) []string {
	switch val := v.(type) {
	case ir.TypeRef:
		return []string{string(val)}
	case ir.List:
		var out []string
		for _, it := range val.Items {
			out = append(out, typeRefs(it)...)
		}
		return out
	}
	return nil
}

func (d *Descriptor) line(field string) int {
	if p, ok := d.pos[field]; ok && p.IsValid() {
		return p.Line()
	}
	return 0
}

// Declare validates d, then adds its types to ts and its variables to
// block. Nothing is declared if validation fails.
func (d *Descriptor) Declare(ts *ir.TypeSystem, block *env.Block) error {
	if errs := d.Validate(ts); len(errs) > 0 {
		joined := make([]error, len(errs))
		for i, e := range errs {
			joined[i] = e
		}
		return errors.Join(joined...)
	}
	if err := stream.DeclareTypes(ts, parentsFirst(d.Types)); err != nil {
		return err
	}
	if block == nil {
		return nil
	}
	for _, v := range d.Variables {
		if err := block.Declare(v.Name, v.Kind, v.Elem, v.Init); err != nil {
			return fmt.Errorf("variables.%s: %w", v.Name, err)
		}
	}
	return nil
}
