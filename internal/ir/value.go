package ir

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode/utf16"
)

// Kind is the declared kind of a variable, expression, or list element.
// A variable's Kind never changes after declaration.
type Kind int

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindDouble
	KindString
	KindType
	KindList
	KindObject
)

var kindNames = map[Kind]string{
	KindInvalid: "INVALID",
	KindBool:    "BOOLEAN",
	KindInt:     "INT",
	KindDouble:  "DOUBLE",
	KindString:  "STRING",
	KindType:    "TYPE",
	KindList:    "LIST",
	KindObject:  "OBJECT",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsNumber reports whether k is INT or DOUBLE.
func (k Kind) IsNumber() bool {
	return k == KindInt || k == KindDouble
}

// IsScalar reports whether k can be the element kind of a list variable.
func (k Kind) IsScalar() bool {
	switch k {
	case KindBool, KindInt, KindDouble, KindString, KindType:
		return true
	}
	return false
}

// ParseKind resolves a declaration keyword such as "INT" or "STRINGLIST".
// For list keywords it returns KindList and the element kind.
func ParseKind(keyword string) (kind Kind, elem Kind, err error) {
	upper := strings.ToUpper(keyword)
	if base, ok := strings.CutSuffix(upper, "LIST"); ok {
		e, _, err := ParseKind(base)
		if err != nil || !e.IsScalar() {
			return KindInvalid, KindInvalid, fmt.Errorf("unknown list kind %q", keyword)
		}
		return KindList, e, nil
	}
	switch upper {
	case "BOOLEAN", "BOOL":
		return KindBool, KindInvalid, nil
	case "INT", "INTEGER":
		return KindInt, KindInvalid, nil
	case "DOUBLE", "FLOAT":
		return KindDouble, KindInvalid, nil
	case "STRING":
		return KindString, KindInvalid, nil
	case "TYPE":
		return KindType, KindInvalid, nil
	}
	return KindInvalid, KindInvalid, fmt.Errorf("unknown kind %q", keyword)
}

// Value is a sealed interface over the values an environment can hold.
// Only Bool, Int, Double, String, TypeRef, List, and Object implement it.
type Value interface {
	Kind() Kind
	value() // Sealed
}

// Bool is a boolean value.
type Bool bool

// Int is an integer value. Always int64.
type Int int64

// Double is a floating point value. NaN and infinities are rejected by
// MarshalCanonical.
type Double float64

// String is a string value.
type String string

// TypeRef names a span type declared in a TypeSystem.
type TypeRef string

// List is a homogeneous list. Elem is the declared element kind; every item
// must have that kind.
type List struct {
	Elem  Kind
	Items []Value
}

// Object maps string keys to values. Used for serialized match trees.
// Use SortedKeys() for deterministic iteration.
type Object map[string]Value

func (Bool) Kind() Kind    { return KindBool }
func (Int) Kind() Kind     { return KindInt }
func (Double) Kind() Kind  { return KindDouble }
func (String) Kind() Kind  { return KindString }
func (TypeRef) Kind() Kind { return KindType }
func (List) Kind() Kind    { return KindList }
func (Object) Kind() Kind  { return KindObject }

func (Bool) value()    {}
func (Int) value()     {}
func (Double) value()  {}
func (String) value()  {}
func (TypeRef) value() {}
func (List) value()    {}
func (Object) value()  {}

// NewList creates a list with the given element kind.
// Returns an error if any item has a different kind.
func NewList(elem Kind, items ...Value) (List, error) {
	for i, it := range items {
		if it == nil || it.Kind() != elem {
			return List{}, fmt.Errorf("list item %d: want %s, got %s", i, elem, kindOf(it))
		}
	}
	return List{Elem: elem, Items: slices.Clone(items)}, nil
}

// Len returns the number of items.
func (l List) Len() int { return len(l.Items) }

// Append returns a copy of l with v appended.
func (l List) Append(v Value) List {
	items := make([]Value, 0, len(l.Items)+1)
	items = append(items, l.Items...)
	return List{Elem: l.Elem, Items: append(items, v)}
}

// Zero returns the zero value for a declared kind.
func Zero(kind, elem Kind) Value {
	switch kind {
	case KindBool:
		return Bool(false)
	case KindInt:
		return Int(0)
	case KindDouble:
		return Double(0)
	case KindString:
		return String("")
	case KindType:
		return TypeRef(AnnotationType)
	case KindList:
		return List{Elem: elem}
	case KindObject:
		return Object{}
	}
	return nil
}

// Convert coerces v to kind. Numbers convert between INT and DOUBLE
// (doubles truncate toward zero); every other kind must match exactly.
func Convert(v Value, kind Kind) (Value, bool) {
	if v == nil {
		return nil, false
	}
	if v.Kind() == kind {
		return v, true
	}
	switch val := v.(type) {
	case Int:
		if kind == KindDouble {
			return Double(val), true
		}
	case Double:
		if kind == KindInt && !math.IsNaN(float64(val)) && !math.IsInf(float64(val), 0) {
			return Int(int64(val)), true
		}
	}
	return nil, false
}

// Equal reports whether two values are deeply equal. Kinds must match.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case List:
		bv := b.(List)
		if av.Elem != bv.Elem || len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if !Equal(av.Items[i], bv.Items[i]) {
				return false
			}
		}
		return true
	case Object:
		bv := b.(Object)
		if len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			if !Equal(v, bv[k]) {
				return false
			}
		}
		return true
	}
	return a == b
}

// Format renders v for logs and CLI output.
func Format(v Value) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case Bool:
		return fmt.Sprintf("%t", bool(val))
	case Int:
		return fmt.Sprintf("%d", int64(val))
	case Double:
		return fmt.Sprintf("%g", float64(val))
	case String:
		return fmt.Sprintf("%q", string(val))
	case TypeRef:
		return string(val)
	case List:
		parts := make([]string, len(val.Items))
		for i, it := range val.Items {
			parts[i] = Format(it)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case Object:
		keys := val.SortedKeys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + Format(val[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprintf("%v", v)
}

func kindOf(v Value) Kind {
	if v == nil {
		return KindInvalid
	}
	return v.Kind()
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 byte order, which differs for some inputs.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}
