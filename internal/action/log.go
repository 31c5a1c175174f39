package action

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/spanrule/internal/expr"
	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/rule"
	"github.com/roach88/spanrule/internal/stream"
)

// Log writes a message and the element's covered text to a logger.
type Log struct {
	Message expr.Expr
	Level   slog.Level

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (a *Log) String() string {
	if a.Level == slog.LevelInfo {
		return call("LOG", a.Message)
	}
	return call("LOG", a.Message, levelName(a.Level))
}

type levelName slog.Level

func (l levelName) String() string { return strings.ToLower(slog.Level(l).String()) }

func (a *Log) Execute(rm *rule.RuleMatch, el rule.Element, s *stream.Stream, _ rule.Crowd) error {
	b, err := blockOf("LOG", el)
	if err != nil {
		return err
	}
	v, err := a.Message.Eval(b)
	if err != nil {
		return fmt.Errorf("LOG: %w", err)
	}
	msg := ir.Format(v)
	if str, ok := v.(ir.String); ok {
		msg = string(str)
	}
	var texts []string
	for _, span := range rm.MatchedSpansOf(el) {
		if span != nil {
			texts = append(texts, s.CoveredText(*span))
		}
	}
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Log(context.Background(), a.Level, msg,
		"rule", rm.Rule().ID,
		"element", el.String(),
		"text", strings.Join(texts, " "),
	)
	return nil
}
