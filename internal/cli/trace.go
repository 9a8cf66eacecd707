package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/varscope/internal/ir"
	"github.com/roach88/varscope/internal/store"
	"github.com/roach88/varscope/internal/trace"
)

// TraceOptions holds flags shared by the trace subcommands.
type TraceOptions struct {
	*RootOptions
	Database string
}

// TraceView renders one stored trace.
type TraceView struct {
	*ir.ResolutionTrace
}

func (v TraceView) Text(bool) string {
	return trace.Summary(v.ResolutionTrace)
}

// TraceList is the payload of trace list.
type TraceList struct {
	Traces []store.TraceSummary `json:"traces"`
}

func (l TraceList) Text(bool) string {
	if len(l.Traces) == 0 {
		return "(no traces)\n"
	}
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tSTATUS\tSTEPS\tERRORS\tTEMPLATE")
	for _, t := range l.Traces {
		status := "ok"
		if !t.Success {
			status = "failed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%q\n", t.ID, t.StartedAt.Format(time.RFC3339), status, t.StepCount, t.ErrorCount, t.Template)
	}
	w.Flush()
	return b.String()
}

// NewTraceCommand creates the trace command group.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect stored resolution traces",
		Long: `Inspect traces saved by 'resolve --save-trace' or by the HTTP server.

Examples:
  varscope trace list --db ./varscope.db --profile prod
  varscope trace show 0192f3c4-... --db ./varscope.db --format json`,
	}
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")

	cmd.AddCommand(newTraceShowCommand(opts))
	cmd.AddCommand(newTraceListCommand(opts))
	cmd.AddCommand(newTracePruneCommand(opts))
	return cmd
}

func (o *TraceOptions) database() string {
	if o.Database != "" {
		return o.Database
	}
	return o.Config().Database
}

func newTraceShowCommand(opts *TraceOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <id>",
		Short:         "Show one trace step by step",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd)
			return withStore(cmd.Context(), formatter, opts.database(), func(ctx context.Context, st *store.Store) error {
				tr, err := st.GetTrace(ctx, args[0])
				if errors.Is(err, store.ErrNotFound) {
					return formatter.Abort(ExitFailure, ErrCodeNotFound, "trace not found", err)
				}
				if err != nil {
					return formatter.Abort(ExitCommandError, ErrCodeStore, "failed to read trace", err)
				}
				return formatter.SuccessWithTrace(TraceView{tr}, tr.ID)
			})
		},
	}
}

func newTraceListCommand(opts *TraceOptions) *cobra.Command {
	var filter store.TraceFilter
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List stored traces, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd)
			return withStore(cmd.Context(), formatter, opts.database(), func(ctx context.Context, st *store.Store) error {
				traces, err := st.ListTraces(ctx, filter)
				if err != nil {
					return formatter.Abort(ExitCommandError, ErrCodeStore, "failed to list traces", err)
				}
				return formatter.Success(TraceList{Traces: traces})
			})
		},
	}
	cmd.Flags().StringVar(&filter.ProfileID, "profile", "", "only traces for this profile")
	cmd.Flags().StringVar(&filter.RuleID, "rule", "", "only traces for this rule")
	cmd.Flags().BoolVar(&filter.FailedOnly, "failed", false, "only failed traces")
	cmd.Flags().IntVar(&filter.Limit, "limit", 50, "maximum number of traces")
	return cmd
}

func newTracePruneCommand(opts *TraceOptions) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:           "prune",
		Short:         "Delete traces older than a duration",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd)
			if olderThan <= 0 {
				return formatter.Abort(ExitCommandError, ErrCodeBadArgument, "--older-than must be positive", nil)
			}
			return withStore(cmd.Context(), formatter, opts.database(), func(ctx context.Context, st *store.Store) error {
				n, err := st.PruneTraces(ctx, time.Now().Add(-olderThan))
				if err != nil {
					return formatter.Abort(ExitCommandError, ErrCodeStore, "failed to prune traces", err)
				}
				return formatter.Success(fmt.Sprintf("pruned %d trace(s)", n))
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "age cutoff")
	return cmd
}
