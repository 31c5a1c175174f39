package script

import (
	"log/slog"
	"strings"

	"github.com/roach88/spanrule/internal/action"
	"github.com/roach88/spanrule/internal/condition"
	"github.com/roach88/spanrule/internal/env"
	"github.com/roach88/spanrule/internal/expr"
	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/rule"
	"github.com/roach88/spanrule/internal/stream"
)

// builder turns a parsed script into rules. Statements are processed in
// order, so a type or variable must be declared before use.
type builder struct {
	source string
	types  *ir.TypeSystem
	block  *env.Block
	logger *slog.Logger
	rules  []*rule.Rule
}

func (b *builder) file(f *fileAST) error {
	for _, st := range f.Statements {
		var err error
		switch {
		case st.Declare != nil:
			err = b.declare(st.Declare)
		case st.Var != nil:
			err = b.variable(st.Var)
		case st.Rule != nil:
			err = b.rule(st.Rule)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) declare(d *declareAST) error {
	parent, names := "", append([]string{d.First}, d.More...)
	if len(d.Sub) > 0 {
		parent, names = d.First, d.Sub
		if !b.types.Has(parent) {
			return errorf(d.Pos, "unknown parent type %s", parent)
		}
	}
	decls := make([]stream.TypeDecl, len(names))
	for i, n := range names {
		decls[i] = stream.TypeDecl{Name: n, Parent: parent}
	}
	if err := stream.DeclareTypes(b.types, decls); err != nil {
		return wrapf(d.Pos, err, "DECLARE")
	}
	return nil
}

func (b *builder) variable(v *varAST) error {
	kind, elem, err := ir.ParseKind(v.Kind)
	if err != nil {
		return wrapf(v.Pos, err, "declare %s", strings.Join(v.Names, ", "))
	}
	var initial ir.Value
	if v.Init != nil {
		e, err := b.expr(v.Init, elem)
		if err != nil {
			return err
		}
		if initial, err = e.Eval(b.block); err != nil {
			return wrapf(v.Init.Pos, err, "initial value")
		}
	}
	for _, name := range v.Names {
		if b.types.Has(name) {
			return errorf(v.Pos, "variable %s shadows a type", name)
		}
		if err := b.block.Declare(name, kind, elem, initial); err != nil {
			return wrapf(v.Pos, err, "declare %s", name)
		}
	}
	return nil
}

func (b *builder) rule(r *ruleAST) error {
	var (
		children []rule.Element
		anchor   rule.Element
	)
	for _, e := range r.Elements {
		el, err := b.element(e, true)
		if err != nil {
			return err
		}
		if e.Anchor {
			if anchor != nil {
				return errorf(e.Pos, "more than one start anchor")
			}
			anchor = el
		}
		children = append(children, el)
	}
	root := rule.NewComposed(children)
	if anchor != nil {
		if err := root.SetStartAnchor(anchor); err != nil {
			return wrapf(r.Pos, err, "start anchor")
		}
	}
	rl := rule.NewRule(len(b.rules), root, b.block)
	rl.Source = statementText(b.source, r.Pos.Offset)
	b.rules = append(b.rules, rl)
	return nil
}

func (b *builder) element(e *elementAST, top bool) (rule.Element, error) {
	if e.Anchor && !top {
		return nil, errorf(e.Pos, "start anchor inside a group")
	}
	var opts []rule.ElementOption
	if e.Quantifier != nil {
		q, err := b.quantifier(e.Quantifier)
		if err != nil {
			return nil, err
		}
		opts = append(opts, rule.WithQuantifier(q))
	}
	if e.Block != nil {
		for _, c := range e.Block.Conditions {
			cond, err := b.condition(c)
			if err != nil {
				return nil, err
			}
			opts = append(opts, rule.WithConditions(cond))
		}
		for _, a := range e.Block.Actions {
			act, err := b.action(a)
			if err != nil {
				return nil, err
			}
			opts = append(opts, rule.WithActions(act))
		}
	}

	if e.Group == nil {
		if !b.types.Has(e.Type) {
			return nil, errorf(e.Pos, "unknown type %s", e.Type)
		}
		return rule.NewTypeElement(e.Type, opts...), nil
	}
	children := make([]rule.Element, 0, len(e.Group))
	for _, ch := range e.Group {
		el, err := b.element(ch, false)
		if err != nil {
			return nil, err
		}
		children = append(children, el)
	}
	return rule.NewComposed(children, opts...), nil
}

func (b *builder) quantifier(q *quantifierAST) (rule.Quantifier, error) {
	mode := rule.Greedy
	switch q.Mode {
	case "?":
		mode = rule.Reluctant
	case "+":
		mode = rule.Possessive
	}
	switch q.Op {
	case "*":
		return rule.Star(mode), nil
	case "+":
		return rule.Plus(mode), nil
	case "?":
		return rule.Question(mode), nil
	}
	hi := q.Range.Min
	switch {
	case q.Range.Max != nil:
		hi = *q.Range.Max
	case q.Range.Comma:
		hi = -1
	}
	mm, err := rule.Range(q.Range.Min, hi, mode)
	if err != nil {
		return nil, wrapf(q.Pos, err, "quantifier")
	}
	return mm, nil
}

func (b *builder) condition(c *callAST) (rule.Condition, error) {
	args, err := b.typeArgs(c)
	if err != nil {
		return nil, err
	}
	var cond rule.Condition
	switch strings.ToUpper(c.Name) {
	case "PARTOF":
		cond = condition.NewPartOf(args...)
	case "PARTOFNEQ":
		cond = condition.NewPartOfNeq(args...)
	case "IS":
		cond = condition.NewIs(args...)
	default:
		return nil, errorf(c.Pos, "unknown condition %s", c.Name)
	}
	if c.Negate {
		cond = &condition.Not{Inner: cond}
	}
	return cond, nil
}

// typeArgs builds the TYPE or TYPELIST arguments of a condition.
func (b *builder) typeArgs(c *callAST) ([]expr.Expr, error) {
	if len(c.Args) == 0 {
		return nil, errorf(c.Pos, "%s needs at least one type", c.Name)
	}
	out := make([]expr.Expr, len(c.Args))
	for i, a := range c.Args {
		e, err := b.typeExpr(c.Name, a)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (b *builder) typeExpr(name string, a *argAST) (expr.Expr, error) {
	e, err := b.expr(a, ir.KindType)
	if err != nil {
		return nil, err
	}
	kind, err := e.Kind(b.block)
	if err != nil {
		return nil, wrapf(a.Pos, err, "%s", name)
	}
	if kind == ir.KindType {
		return e, nil
	}
	if elem, _ := expr.ElemKind(e, b.block); kind == ir.KindList && elem == ir.KindType {
		return e, nil
	}
	return nil, errorf(a.Pos, "%s: %s is not a TYPE or TYPELIST", name, e)
}

func (b *builder) action(c *callAST) (rule.Action, error) {
	if c.Negate {
		return nil, errorf(c.Pos, "actions cannot be negated")
	}
	if !c.Parens {
		e, err := b.typeExpr("implicit mark", &argAST{Pos: c.Pos, Call: c})
		if err != nil {
			return nil, err
		}
		return &action.ImplicitMark{Type: e}, nil
	}
	switch strings.ToUpper(c.Name) {
	case "MARK", "UNMARK":
		if len(c.Args) != 1 {
			return nil, errorf(c.Pos, "%s takes one type", c.Name)
		}
		t, err := b.typeExpr(c.Name, c.Args[0])
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(c.Name, "MARK") {
			return &action.Mark{Type: t}, nil
		}
		return &action.Unmark{Type: t}, nil
	case "ADD":
		if len(c.Args) < 2 {
			return nil, errorf(c.Pos, "ADD takes a list variable and values")
		}
		name, err := b.varName(c.Args[0])
		if err != nil {
			return nil, err
		}
		elem, _ := b.block.GenericKind(name)
		add := &action.Add{Var: name}
		for _, a := range c.Args[1:] {
			e, err := b.expr(a, elem)
			if err != nil {
				return nil, err
			}
			add.Items = append(add.Items, e)
		}
		return add, nil
	case "ASSIGN":
		if len(c.Args) != 2 {
			return nil, errorf(c.Pos, "ASSIGN takes a variable and a value")
		}
		name, err := b.varName(c.Args[0])
		if err != nil {
			return nil, err
		}
		elem, _ := b.block.GenericKind(name)
		v, err := b.expr(c.Args[1], elem)
		if err != nil {
			return nil, err
		}
		return &action.Assign{Var: name, Value: v}, nil
	case "LOG":
		return b.logAction(c)
	}
	return nil, errorf(c.Pos, "unknown action %s", c.Name)
}

func (b *builder) logAction(c *callAST) (rule.Action, error) {
	if len(c.Args) == 0 || len(c.Args) > 2 {
		return nil, errorf(c.Pos, "LOG takes a message and an optional level")
	}
	msg, err := b.expr(c.Args[0], ir.KindInvalid)
	if err != nil {
		return nil, err
	}
	l := &action.Log{Message: msg, Level: slog.LevelInfo, Logger: b.logger}
	if len(c.Args) == 2 {
		lv := c.Args[1].Call
		if lv == nil || lv.Parens {
			return nil, errorf(c.Args[1].Pos, "LOG level must be debug, info, warn, or error")
		}
		if err := l.Level.UnmarshalText([]byte(lv.Name)); err != nil {
			return nil, wrapf(c.Args[1].Pos, err, "LOG level")
		}
	}
	return l, nil
}

// varName resolves an argument that must name a declared variable.
func (b *builder) varName(a *argAST) (string, error) {
	if a.Call == nil || a.Call.Parens || a.Call.Negate {
		return "", errorf(a.Pos, "expected a variable name")
	}
	if _, err := b.block.Kind(a.Call.Name); err != nil {
		return "", wrapf(a.Pos, err, "variable")
	}
	return a.Call.Name, nil
}

// expr builds an argument expression. elem is the element kind a list
// literal should take; KindInvalid infers it from the items.
func (b *builder) expr(a *argAST, elem ir.Kind) (expr.Expr, error) {
	switch {
	case a.String != nil:
		return expr.Literal{Value: ir.String(*a.String)}, nil
	case a.Float != nil:
		return expr.Literal{Value: ir.Double(*a.Float)}, nil
	case a.Int != nil:
		return expr.Literal{Value: ir.Int(*a.Int)}, nil
	case a.Bool != nil:
		return expr.Literal{Value: ir.Bool(*a.Bool == "true")}, nil
	case a.Call != nil:
		return b.ident(a.Call)
	}
	return b.list(a, elem)
}

func (b *builder) ident(c *callAST) (expr.Expr, error) {
	if c.Parens || c.Negate {
		return nil, errorf(c.Pos, "%s is not an expression", c.Name)
	}
	if _, ok := b.block.Lookup(c.Name); ok {
		return expr.Var{Name: c.Name}, nil
	}
	if b.types.Has(c.Name) {
		return expr.Type{Name: c.Name}, nil
	}
	return nil, errorf(c.Pos, "unknown identifier %s", c.Name)
}

func (b *builder) list(a *argAST, elem ir.Kind) (expr.Expr, error) {
	items := make([]expr.Expr, len(a.List))
	inferred := ir.KindInvalid
	for i, it := range a.List {
		e, err := b.expr(it, ir.KindInvalid)
		if err != nil {
			return nil, err
		}
		kind, err := e.Kind(b.block)
		if err != nil {
			return nil, wrapf(it.Pos, err, "list item")
		}
		if !kind.IsScalar() {
			return nil, errorf(it.Pos, "list items must be scalar, got %s", kind)
		}
		inferred = unify(inferred, kind)
		if inferred == ir.KindInvalid {
			return nil, errorf(it.Pos, "mixed list item kinds")
		}
		items[i] = e
	}
	if elem == ir.KindInvalid || (elem.IsNumber() != inferred.IsNumber() && inferred != ir.KindInvalid) {
		elem = inferred
	}
	if elem == ir.KindInvalid {
		return nil, errorf(a.Pos, "cannot infer the kind of an empty list")
	}
	return expr.List{Elem: elem, Items: items}, nil
}

// statementText returns the source of the statement starting at offset,
// through its terminating ";". Comments and string literals are skipped
// while looking for the end.
func statementText(src string, offset int) string {
	if offset < 0 || offset >= len(src) {
		return ""
	}
	inString := false
	for i := offset; i < len(src); i++ {
		switch c := src[i]; {
		case inString && c == '\\':
			i++
		case c == '"':
			inString = !inString
		case inString:
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == ';':
			return src[offset : i+1]
		}
	}
	return src[offset:]
}

func unify(have, kind ir.Kind) ir.Kind {
	switch {
	case have == ir.KindInvalid || have == kind:
		return kind
	case have.IsNumber() && kind.IsNumber():
		return ir.KindDouble
	}
	return ir.KindInvalid
}
