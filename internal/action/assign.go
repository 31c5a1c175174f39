package action

import (
	"fmt"
	"log/slog"

	"github.com/roach88/spanrule/internal/env"
	"github.com/roach88/spanrule/internal/expr"
	"github.com/roach88/spanrule/internal/rule"
	"github.com/roach88/spanrule/internal/stream"
)

// Assign sets a variable. A value of the wrong kind leaves the variable
// unchanged.
type Assign struct {
	Var   string
	Value expr.Expr
}

func (a *Assign) String() string {
	return call("ASSIGN", expr.Var{Name: a.Var}, a.Value)
}

func (a *Assign) Execute(_ *rule.RuleMatch, el rule.Element, _ *stream.Stream, _ rule.Crowd) error {
	b, err := blockOf("ASSIGN", el)
	if err != nil {
		return err
	}
	v, err := a.Value.Eval(b)
	if err != nil {
		return fmt.Errorf("ASSIGN: %w", err)
	}
	if err := b.Set(a.Var, v); err != nil {
		if env.IsKindMismatch(err) {
			slog.Debug("assign skipped", "var", a.Var, "error", err)
			return nil
		}
		return fmt.Errorf("ASSIGN: %w", err)
	}
	return nil
}
