package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/spanrule/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scenario files",
		Long: `Run the YAML scenarios of a directory.

Each scenario compiles a script, builds a document, applies the script with
deterministic run IDs, and checks its assertions. When golden/<name>.golden
exists next to the scenario, the match trace must equal it.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  spanrule test ./scenarios
  spanrule test ./scenarios --filter "person*"
  spanrule test ./scenarios --update
  spanrule test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return NewExitError(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("scenarios directory not found: %s", dir))
	}
	formatter := newFormatter(cmd, opts.RootOptions)

	result, err := harness.RunSuite(dir, harness.SuiteOptions{Filter: opts.Filter, Update: opts.Update})
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeGeneric, "failed to find scenarios", err)
	}

	if formatter.JSON() {
		if result.Failed > 0 {
			msg := fmt.Sprintf("%d scenario(s) failed", result.Failed)
			if err := formatter.Result(result, ErrCodeTestFailed, msg); err != nil {
				return err
			}
			return NewExitError(ExitFailure, ErrCodeTestFailed, msg)
		}
		return formatter.Result(result, "", "")
	}
	return outputTestText(formatter, result)
}

// outputTestText outputs the test result as text.
func outputTestText(f *OutputFormatter, result *harness.SuiteResult) error {
	if result.Total == 0 {
		f.Text("No scenarios found.")
		return nil
	}

	for _, sr := range result.Scenarios {
		if !sr.Pass {
			f.Text("✗ %s", sr.Name)
			for _, e := range sr.Errors {
				f.Text("  %s", e)
			}
			continue
		}
		switch sr.Golden {
		case "updated":
			f.Text("✓ %s (golden updated)", sr.Name)
		case "match":
			f.Text("✓ %s (golden)", sr.Name)
		default:
			f.Text("✓ %s", sr.Name)
		}
	}

	f.Text("")
	f.Text("Test Summary: %d passed, %d failed, %d total", result.Passed, result.Failed, result.Total)
	if result.Failed > 0 {
		return NewExitError(ExitFailure, ErrCodeTestFailed, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	f.Text("✓ All scenarios passed")
	return nil
}
