package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/spanrule/internal/compiler"
	"github.com/roach88/spanrule/internal/ir"
	"github.com/roach88/spanrule/internal/stream"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Types string
}

// CheckOutput describes a compiled script.
type CheckOutput struct {
	Script    string            `json:"script"`
	Rules     []CheckRule       `json:"rules"`
	Types     []stream.TypeDecl `json:"types"`
	Variables []CheckVariable   `json:"variables"`
}

// CheckRule is one rule of a checked script.
type CheckRule struct {
	ID     int    `json:"id"`
	Source string `json:"source"`
}

// CheckVariable is one declared variable.
type CheckVariable struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <script>",
		Short: "Compile a rule script and report its rules",
		Long: `Parse and build a rule script without applying it.

With --types, the CUE descriptor is validated first and every problem is
reported (type names, parents, hierarchy cycles, variable declarations).

Exit codes:
  0 - Script is valid
  1 - Descriptor or script errors
  2 - Command error (file not found, etc.)

Examples:
  spanrule check rules.ruta
  spanrule check --types types.cue rules.ruta --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Types, "types", "", "CUE type descriptor (file or directory)")

	return cmd
}

func runCheck(opts *CheckOptions, scriptPath string, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, opts.RootOptions)

	ts := ir.NewTypeSystem()
	if err := stream.RegisterSeedTypes(ts); err != nil {
		return WrapExitError(ExitFailure, ErrCodeGeneric, "failed to register seed types", err)
	}
	base := ts.Types()

	if opts.Types != "" {
		if err := checkDescriptor(formatter, opts.Types, ts); err != nil {
			return err
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sc, err := loadScript(scriptPath, opts.Types, ts, logger)
	if err != nil {
		return err
	}

	out := CheckOutput{Script: sc.Name, Rules: []CheckRule{}, Types: []stream.TypeDecl{}, Variables: []CheckVariable{}}
	for _, r := range sc.Rules {
		out.Rules = append(out.Rules, CheckRule{ID: r.ID, Source: r.Source})
	}
	for _, name := range ts.Types() {
		if slices.Contains(base, name) {
			continue
		}
		parent, _ := ts.Parent(name)
		out.Types = append(out.Types, stream.TypeDecl{Name: name, Parent: parent})
	}
	for _, name := range sc.Block.Env.Names() {
		v, _ := sc.Block.Env.Lookup(name)
		kind := v.Kind.String()
		if v.Kind == ir.KindList {
			kind = v.Elem.String() + "LIST"
		}
		out.Variables = append(out.Variables, CheckVariable{Name: name, Kind: kind})
	}

	if formatter.JSON() {
		return formatter.Success(out)
	}
	formatter.Text("✓ %s: %d rule(s), %d type(s), %d variable(s)", out.Script, len(out.Rules), len(out.Types), len(out.Variables))
	for _, r := range out.Rules {
		formatter.VerboseLog("  rule %d: %s", r.ID, r.Source)
	}
	return nil
}

// checkDescriptor validates the descriptor at path against ts, reporting
// every error found.
func checkDescriptor(f *OutputFormatter, path string, ts *ir.TypeSystem) error {
	if err := requireFile(path, "types"); err != nil {
		return err
	}
	d, err := compiler.Load(path)
	if err != nil {
		return WrapExitError(ExitFailure, ErrCodeDescriptor, "failed to load types", err)
	}
	errs := d.Validate(ts)
	if len(errs) == 0 {
		f.VerboseLog("Descriptor %s: %d type(s), %d variable(s)", path, len(d.Types), len(d.Variables))
		return nil
	}

	if f.JSON() {
		_ = f.Error(ErrCodeDescriptor, fmt.Sprintf("%d descriptor error(s)", len(errs)), errs)
	} else {
		f.Text("✗ %d descriptor error(s):", len(errs))
		for _, e := range errs {
			f.Text("  %s", e.Error())
		}
	}
	return NewExitError(ExitFailure, ErrCodeDescriptor, fmt.Sprintf("%d descriptor error(s)", len(errs)))
}
