package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/spanrule/internal/engine"
	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/rule"
	"github.com/roach88/spanrule/internal/stream"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Types    string

	// RunIDs overrides the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs rule.IDGenerator
}

// MatchOutput is one rule match in command output.
type MatchOutput struct {
	ID      string `json:"id"`
	Rule    int    `json:"rule"`
	Seq     int64  `json:"seq"`
	Matched bool   `json:"matched"`
	Begin   *int   `json:"begin,omitempty"`
	End     *int   `json:"end,omitempty"`
	Text    string `json:"text,omitempty"`
	Hash    string `json:"hash"`
}

// SpanOutput is a created or removed span in command output.
type SpanOutput struct {
	Type  string `json:"type"`
	Begin int    `json:"begin"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// RunOutput is the result of the run command.
type RunOutput struct {
	RunID     string          `json:"run_id"`
	Seq       int64           `json:"seq"`
	Script    string          `json:"script"`
	Persisted bool            `json:"persisted"`
	Matches   []MatchOutput   `json:"matches"`
	Created   []SpanOutput    `json:"created"`
	Removed   []SpanOutput    `json:"removed"`
	Variables json.RawMessage `json:"variables"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script> <document>",
		Short: "Apply a rule script to a document",
		Long: `Apply every rule of a script, in order, to a document.

The document is a YAML or JSON document file (text, types, initial spans) or
plain text, which is seeded into basic token spans. With --db (or store.path
in the config) the run, its rule matches, and the spans it created or removed
are recorded in a SQLite database.

Exit codes:
  0 - Script applied
  1 - Script failed to compile or a rule failed
  2 - Command error (missing file, database error, etc.)

Examples:
  spanrule run rules.ruta input.txt
  spanrule run --db ./spanrule.db --types types.cue rules.ruta doc.yaml
  spanrule run rules.ruta doc.yaml --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides store.path)")
	cmd.Flags().StringVar(&opts.Types, "types", "", "CUE type descriptor (file or directory)")

	return cmd
}

func runScript(opts *RunOptions, scriptPath, docPath string, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())
	formatter := newFormatter(cmd, opts.RootOptions)

	in, err := loadInputs(scriptPath, docPath, opts.Types, logger)
	if err != nil {
		return err
	}
	formatter.VerboseLog("Compiled %s: %d rule(s), %d type(s)", in.Script.Name, len(in.Script.Rules), len(in.Types.Types()))

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.Store.Path
	}
	st, err := openStore(dbPath)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = rule.UUIDv7Generator{}
	}
	engOpts := []engine.Option{
		engine.WithConfig(cfg),
		engine.WithRunIDs(runIDs),
		engine.WithLogger(logger),
	}
	if st != nil {
		engOpts = append(engOpts, engine.WithStore(st))
	}
	if opts.Verbose {
		engOpts = append(engOpts, engine.WithCrowd(rule.LogCrowd{Logger: logger}))
	}
	eng := engine.New(engOpts...)

	ctx, stop := signalContext(cmd)
	defer stop()

	res, err := eng.Run(ctx, in.Script, in.Document)
	if err != nil {
		return WrapExitError(ExitFailure, ErrCodeRun, "failed to apply script", err)
	}

	out, err := buildRunOutput(res, st != nil)
	if err != nil {
		return WrapExitError(ExitFailure, ErrCodeGeneric, "failed to format result", err)
	}
	if formatter.JSON() {
		return formatter.Success(out)
	}
	printRunText(formatter, res, out)
	return nil
}

// signalContext derives a context canceled on SIGINT or SIGTERM. The
// command's context is the parent when set (for testing).
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func buildRunOutput(res *engine.Result, persisted bool) (RunOutput, error) {
	vars, err := ir.MarshalCanonical(res.Variables)
	if err != nil {
		return RunOutput{}, err
	}
	return RunOutput{
		RunID:     res.Run.ID,
		Seq:       res.Run.Seq,
		Script:    res.Run.ScriptName,
		Persisted: persisted,
		Matches:   matchOutputs(res.Document, res.Matches),
		Created:   spanOutputs(res.Document, res.Created),
		Removed:   spanOutputs(res.Document, res.Removed),
		Variables: vars,
	}, nil
}

// matchOutputs converts records, resolving covered text against doc when
// it is given.
func matchOutputs(doc *stream.Document, recs []ir.MatchRecord) []MatchOutput {
	out := make([]MatchOutput, len(recs))
	for i, rec := range recs {
		m := MatchOutput{
			ID:      rec.ID,
			Rule:    rec.Rule,
			Seq:     rec.Seq,
			Matched: rec.Matched,
			Hash:    rec.TreeHash,
		}
		if rec.Cover != nil {
			begin, end := rec.Cover.Begin, rec.Cover.End
			m.Begin, m.End = &begin, &end
			if doc != nil {
				m.Text = doc.CoveredText(*rec.Cover)
			}
		}
		out[i] = m
	}
	return out
}

func spanOutputs(doc *stream.Document, spans []ir.Span) []SpanOutput {
	out := make([]SpanOutput, len(spans))
	for i, s := range spans {
		out[i] = SpanOutput{Type: s.Type, Begin: s.Begin, End: s.End, Text: doc.CoveredText(s)}
	}
	return out
}

func printRunText(f *OutputFormatter, res *engine.Result, out RunOutput) {
	f.Text("Run %s (seq %d): %d match(es), %d matched", out.RunID, out.Seq, len(out.Matches), res.MatchedCount())
	for _, m := range out.Matches {
		f.Text("  %s", formatMatch(m))
	}
	printSpans(f, "Created", out.Created)
	printSpans(f, "Removed", out.Removed)
	if keys := res.Variables.SortedKeys(); len(keys) > 0 {
		f.Text("Variables:")
		for _, k := range keys {
			f.Text("  %s = %s", k, ir.Format(res.Variables[k]))
		}
	}
	if !out.Persisted {
		f.VerboseLog("No database given; run not persisted")
	}
}

func formatMatch(m MatchOutput) string {
	status := "failed"
	if m.Matched {
		status = "matched"
	}
	line := fmt.Sprintf("[%d] rule %d %s", m.Seq, m.Rule, status)
	if m.Begin != nil {
		line += fmt.Sprintf(" [%d,%d)", *m.Begin, *m.End)
	}
	if m.Text != "" {
		line += fmt.Sprintf(" %q", m.Text)
	}
	return line
}

func printSpans(f *OutputFormatter, label string, spans []SpanOutput) {
	if len(spans) == 0 {
		return
	}
	f.Text("%s spans:", label)
	for _, s := range spans {
		f.Text("  %s[%d,%d) %q", s.Type, s.Begin, s.End, s.Text)
	}
}
