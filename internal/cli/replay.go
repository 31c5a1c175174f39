package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/spanrule/internal/engine"
	"github.com/roach88/spanrule/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string
	Types    string
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <script> <document>",
		Short: "Re-apply a stored run and verify determinism",
		Long: `Apply a script to a document again under the identity of a stored run
and compare every rule match, in order, against what the run recorded.

The script and document must hash to the values stored with the run.
Nothing is written to the database.

Exit codes:
  0 - Replay reproduced every stored match
  1 - Matches diverged, or the script or document changed
  2 - Command error (database not found, unknown run, etc.)

Examples:
  spanrule replay --db ./spanrule.db --run 0192... rules.ruta doc.yaml
  spanrule replay --db ./spanrule.db --run 0192... rules.ruta doc.yaml --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run to replay (required)")
	_ = cmd.MarkFlagRequired("run")
	cmd.Flags().StringVar(&opts.Types, "types", "", "CUE type descriptor (file or directory)")

	return cmd
}

func runReplay(opts *ReplayOptions, scriptPath, docPath string, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())
	formatter := newFormatter(cmd, opts.RootOptions)

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	in, err := loadInputs(scriptPath, docPath, opts.Types, logger)
	if err != nil {
		return err
	}

	eng := engine.New(
		engine.WithStore(st),
		engine.WithConfig(cfg),
		engine.WithLogger(logger),
	)
	ctx, stop := signalContext(cmd)
	defer stop()

	result, err := eng.Replay(ctx, opts.RunID, in.Script, in.Document)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return NewExitError(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("run not found: %s", opts.RunID))
	case errors.Is(err, engine.ErrScriptChanged), errors.Is(err, engine.ErrDocumentChanged):
		return WrapExitError(ExitFailure, ErrCodeDiverged, "cannot replay", err)
	case err != nil:
		return WrapExitError(ExitFailure, ErrCodeRun, "replay failed", err)
	}

	if formatter.JSON() {
		if !result.Identical() {
			msg := fmt.Sprintf("%d divergence(s)", len(result.Divergences))
			if err := formatter.Result(result, ErrCodeDiverged, msg); err != nil {
				return err
			}
			return NewExitError(ExitFailure, ErrCodeDiverged, msg)
		}
		return formatter.Result(result, "", "")
	}

	if result.Identical() {
		formatter.Text("✓ Run %s replayed: %d match(es) identical", result.RunID, result.Compared)
		return nil
	}
	formatter.Text("✗ Run %s diverged at %d position(s):", result.RunID, len(result.Divergences))
	for _, d := range result.Divergences {
		formatter.Text("  seq %d: stored %s, replayed %s", d.Seq, orMissing(shortHash(d.Stored)), orMissing(shortHash(d.Replayed)))
	}
	return NewExitError(ExitFailure, ErrCodeDiverged, fmt.Sprintf("%d divergence(s)", len(result.Divergences)))
}

func orMissing(s string) string {
	if s == "" {
		return "(missing)"
	}
	return s
}
