package action

import (
	"fmt"

	"github.com/roach88/spanrule/internal/env"
	"github.com/roach88/spanrule/internal/expr"
	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/rule"
	"github.com/roach88/spanrule/internal/stream"
)

// Add appends values to a list variable. A list-valued argument is spread
// into the target. Arguments whose kind is not the target's element kind
// are skipped; INT and DOUBLE count as the same kind and are converted.
type Add struct {
	Var   string
	Items []expr.Expr
}

func (a *Add) String() string {
	args := []fmt.Stringer{expr.Var{Name: a.Var}}
	for _, it := range a.Items {
		args = append(args, it)
	}
	return call("ADD", args...)
}

func (a *Add) Execute(_ *rule.RuleMatch, el rule.Element, _ *stream.Stream, _ rule.Crowd) error {
	b, err := blockOf("ADD", el)
	if err != nil {
		return err
	}
	kind, err := b.Kind(a.Var)
	if err != nil {
		return fmt.Errorf("ADD: %w", err)
	}
	if kind != ir.KindList {
		return nil
	}
	elem, err := b.GenericKind(a.Var)
	if err != nil {
		return fmt.Errorf("ADD: %w", err)
	}
	for _, item := range a.Items {
		values, err := spread(item, elem, b)
		if err != nil {
			return fmt.Errorf("ADD %s: %w", item, err)
		}
		for _, v := range values {
			if err := b.Append(a.Var, v); err != nil {
				return fmt.Errorf("ADD: %w", err)
			}
		}
	}
	return nil
}

// spread returns what item contributes to a list of elem, or nothing if
// the kinds do not fit.
func spread(item expr.Expr, elem ir.Kind, b *env.Block) ([]ir.Value, error) {
	kind, err := item.Kind(b)
	if err != nil {
		return nil, err
	}
	if kind == ir.KindList {
		itemElem, err := expr.ElemKind(item, b)
		if err != nil {
			return nil, err
		}
		if !compatible(itemElem, elem) {
			return nil, nil
		}
		v, err := item.Eval(b)
		if err != nil {
			return nil, err
		}
		return v.(ir.List).Items, nil
	}
	if !compatible(kind, elem) {
		return nil, nil
	}
	v, err := item.Eval(b)
	if err != nil {
		return nil, err
	}
	return []ir.Value{v}, nil
}

func compatible(kind, elem ir.Kind) bool {
	return kind == elem || (kind.IsNumber() && elem.IsNumber())
}
