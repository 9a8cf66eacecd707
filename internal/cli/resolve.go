package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/varscope/internal/engine"
	"github.com/roach88/varscope/internal/ir"
	"github.com/roach88/varscope/internal/store"
	"github.com/roach88/varscope/internal/trace"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	contextFlags
	MaxDepth  int
	ShowTrace bool
	SaveTrace bool
}

// ResolveOutput is the payload of the resolve command.
type ResolveOutput struct {
	Value      string              `json:"value"`
	Success    bool                `json:"success"`
	Resolved   []string            `json:"resolved"`
	Unresolved []string            `json:"unresolved"`
	Errors     []ir.TraceError     `json:"errors"`
	Trace      *ir.ResolutionTrace `json:"trace,omitempty"`
}

// Text renders the value, then the trace when requested.
func (o ResolveOutput) Text(verbose bool) string {
	var b strings.Builder
	b.WriteString(o.Value)
	b.WriteString("\n")
	if o.Trace != nil {
		b.WriteString("\n")
		b.WriteString(trace.Summary(o.Trace))
	} else if verbose {
		for _, e := range o.Errors {
			fmt.Fprintf(&b, "  error [%s] %s\n", e.Code, e.Message)
		}
	}
	return b.String()
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <template>",
		Short: "Resolve a template against a variable set",
		Long: `Resolve every ${name} and ${fn(args)} reference in a template.

Variables come from a YAML or CUE file (--vars) or from the SQLite store
(--db). References that cannot be resolved are replaced by
{{UNRESOLVED:name}} markers and the command exits with status 1.

Examples:
  varscope resolve '${base_url}/users' --vars vars.yaml
  varscope resolve '${base_url}/users' --db ./varscope.db --profile prod --show-trace
  varscope resolve 'id=${uuid()}' --vars vars.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), opts, args[0], cmd)
		},
	}

	opts.contextFlags.register(cmd)
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", 0, "nested reference limit (default from config)")
	cmd.Flags().BoolVar(&opts.ShowTrace, "show-trace", false, "include the resolution trace")
	cmd.Flags().BoolVar(&opts.SaveTrace, "save-trace", false, "store the trace in the database")

	return cmd
}

func runResolve(ctx context.Context, opts *ResolveOptions, tmpl string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)
	resolver := newResolver(opts.RootOptions, opts.MaxDepth)

	var st *store.Store
	if opts.VarsFile == "" || opts.SaveTrace {
		var err error
		if st, err = openStore(formatter, opts.database(opts.Config())); err != nil {
			return err
		}
		defer st.Close()
		st.SetInvalidator(resolver)
	}

	rctx, err := loadContext(ctx, &opts.contextFlags, st)
	if err != nil {
		return contextError(formatter, err)
	}
	formatter.VerboseLog("Loaded %d variable(s)", rctx.Len())

	res, err := resolver.Resolve(tmpl, rctx)
	if err != nil {
		return formatter.Abort(ExitCommandError, ErrCodeGeneric, "resolve failed", err)
	}

	if st != nil {
		if opts.VarsFile == "" {
			if err := st.RecordUsage(ctx, rctx, res.Trace.ResolvedVariables); err != nil {
				return formatter.Abort(ExitCommandError, ErrCodeStore, "failed to record usage", err)
			}
		}
		if opts.SaveTrace {
			if err := st.SaveTrace(ctx, res.Trace); err != nil {
				return formatter.Abort(ExitCommandError, ErrCodeStore, "failed to save trace", err)
			}
			formatter.VerboseLog("Saved trace %s", res.Trace.ID)
		}
	}

	out := ResolveOutput{
		Value:      res.Value,
		Success:    res.Success(),
		Resolved:   res.Trace.ResolvedVariables,
		Unresolved: res.Trace.UnresolvedVariables,
		Errors:     res.Trace.Errors,
	}
	if opts.ShowTrace {
		out.Trace = res.Trace
	}

	if !res.Success() {
		code := ErrCodeUnresolved
		if engine.IsSyntaxError(res.Errors[0]) {
			code = ErrCodeSyntax
		}
		msg := fmt.Sprintf("%d resolution error(s): %s", len(res.Errors), res.Errors[0].Message)
		return formatter.Fail(ExitFailure, code, msg, out, res.Trace.ID)
	}
	return formatter.SuccessWithTrace(out, res.Trace.ID)
}
