package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/varscope/internal/engine"
	"github.com/roach88/varscope/internal/store"
)

// LintOutput wraps a lint report for text rendering.
type LintOutput struct {
	engine.LintReport
}

func (o LintOutput) Text(verbose bool) string {
	var b strings.Builder
	errs := 0
	for _, i := range o.Issues {
		if i.Severity == "error" {
			errs++
		}
	}
	if errs == 0 {
		fmt.Fprintf(&b, "✓ %d variable(s), no problems\n", o.Variables)
	} else {
		fmt.Fprintf(&b, "✗ %d variable(s), %d problem(s)\n", o.Variables, errs)
	}
	for _, i := range o.Issues {
		if i.Severity != "error" && !verbose {
			continue
		}
		fmt.Fprintf(&b, "  %-5s %-20s %s: %s\n", i.Severity, i.Code, i.Name, i.Message)
	}
	return b.String()
}

// NewLintCommand creates the lint command.
func NewLintCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &contextFlags{}

	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check a variable set for cycles and dangling references",
		Long: `Statically check every visible variable in a context without resolving:
malformed values, circular dependencies, references to undefined variables
and calls to unknown functions. Shadowed names are listed with --verbose.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLint(cmd.Context(), rootOpts, flags, cmd)
		},
	}
	flags.register(cmd)
	return cmd
}

func runLint(ctx context.Context, opts *RootOptions, flags *contextFlags, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts, cmd)

	var st *store.Store
	if flags.VarsFile == "" {
		var err error
		if st, err = openStore(formatter, flags.database(opts.Config())); err != nil {
			return err
		}
		defer st.Close()
	}
	rctx, err := loadContext(ctx, flags, st)
	if err != nil {
		return contextError(formatter, err)
	}

	report, err := newResolver(opts, 0).Lint(rctx)
	if err != nil {
		return formatter.Abort(ExitCommandError, ErrCodeGeneric, "lint failed", err)
	}
	out := LintOutput{LintReport: report}
	if !report.Clean() {
		return formatter.Fail(ExitFailure, ErrCodeLint, "variable set has problems", out, "")
	}
	return formatter.Success(out)
}
