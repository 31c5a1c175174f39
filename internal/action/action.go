// Package action implements what a rule element does once its rule has
// matched: ADD, ASSIGN, MARK, implicit mark, UNMARK, and LOG.
//
// Actions resolve variables and types through the element's block. A
// variable of the wrong kind makes the action a no-op; an undeclared
// variable or unknown type is an error.
package action

import (
	"fmt"
	"strings"

	"github.com/roach88/spanrule/internal/env"
	"github.com/roach88/spanrule/internal/expr"
	"github.com/roach88/spanrule/internal/rule"
)

func call(name string, args ...fmt.Stringer) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

func blockOf(name string, el rule.Element) (*env.Block, error) {
	b := el.Block()
	if b == nil {
		return nil, fmt.Errorf("%s: element has no scope", name)
	}
	return b, nil
}

// singleType evaluates e to exactly one span type.
func singleType(name string, e expr.Expr, b *env.Block) (string, error) {
	types, err := expr.Types(e, b)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	if len(types) != 1 {
		return "", fmt.Errorf("%s: want one type, got %d", name, len(types))
	}
	return types[0], nil
}
