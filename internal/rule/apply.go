package rule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/spanrule/internal/env"
	"github.com/roach88/spanrule/internal/stream"
)

// Rule is one statement of a script: a root group plus the scope its
// variables live in.
type Rule struct {
	// ID is the rule's index within its script.
	ID     int
	Root   *Composed
	Block  *env.Block
	Source string
}

// NewRule attaches root to a new rule.
func NewRule(id int, root *Composed, block *env.Block) *Rule {
	r := &Rule{ID: id, Root: root, Block: block}
	root.rule = r
	return r
}

func (r *Rule) String() string {
	parts := make([]string, len(r.Root.children))
	for i, ch := range r.Root.children {
		parts[i] = ch.String()
		if ch == r.Root.startAnchor {
			parts[i] = "@" + parts[i]
		}
	}
	return strings.Join(parts, " ") + r.Root.blockString() + ";"
}

// RuleApply collects the matches of one rule application in the order they
// finished.
type RuleApply struct {
	Rule    *Rule
	Matches []*RuleMatch

	// Steps is the number of continuations executed.
	Steps int
}

// Matched returns the successful matches.
func (ra *RuleApply) Matched() []*RuleMatch {
	var out []*RuleMatch
	for _, rm := range ra.Matches {
		if rm.Matched() {
			out = append(out, rm)
		}
	}
	return out
}

type applyOptions struct {
	maxSteps int
	ids      IDGenerator
	logger   *slog.Logger
}

// Option configures Apply.
type Option func(*applyOptions)

// WithMaxSteps bounds the continuations per rule. <= 0 disables the bound.
func WithMaxSteps(n int) Option {
	return func(o *applyOptions) { o.maxSteps = n }
}

// WithIDGenerator sets how matches are named. The default is UUIDv7.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *applyOptions) { o.ids = g }
}

// WithLogger sets the logger for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(o *applyOptions) { o.logger = l }
}

func buildOptions(opts []Option) applyOptions {
	o := applyOptions{maxSteps: DefaultMaxSteps, ids: UUIDv7Generator{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Apply matches the rule everywhere in s and runs the actions of every
// successful match as soon as it finishes. Matches recorded before an
// error are kept in the returned RuleApply.
func (r *Rule) Apply(ctx context.Context, s *stream.Stream, crowd Crowd, opts ...Option) (*RuleApply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.apply(s, crowd, buildOptions(opts))
}

func (r *Rule) apply(s *stream.Stream, crowd Crowd, o applyOptions) (*RuleApply, error) {
	if crowd == nil {
		crowd = NopCrowd{}
	}
	ra := &RuleApply{Rule: r}
	m := &matcher{
		stream: s,
		crowd:  crowd,
		apply:  ra,
		ids:    o.ids,
		quota:  NewQuotaEnforcer(o.maxSteps),
		logger: o.logger,
	}
	m.logger.Debug("rule start", "rule", r.ID, "source", r.String())
	r.Root.startMatch(m, newRuleMatch(r), noNode)
	m.run(0)
	ra.Steps = m.quota.Steps()
	if m.err != nil {
		return ra, fmt.Errorf("rule %d: %w", r.ID, m.err)
	}
	return ra, nil
}

// Script is an ordered list of rules sharing one top-level block.
type Script struct {
	Name   string
	Rules  []*Rule
	Block  *env.Block
	Source string
}

// Apply runs the rules in order. ctx is checked between rules; a rule
// always runs to completion once started.
func (sc *Script) Apply(ctx context.Context, s *stream.Stream, crowd Crowd, opts ...Option) ([]*RuleApply, error) {
	o := buildOptions(opts)
	out := make([]*RuleApply, 0, len(sc.Rules))
	for _, r := range sc.Rules {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		ra, err := r.apply(s, crowd, o)
		if ra != nil {
			out = append(out, ra)
		}
		if err != nil {
			return out, err
		}
		o.logger.Debug("rule applied", "rule", r.ID, "matches", len(ra.Matches), "matched", len(ra.Matched()), "steps", ra.Steps)
	}
	return out, nil
}
