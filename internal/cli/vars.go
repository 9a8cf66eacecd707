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
	"github.com/roach88/varscope/internal/varfile"
)

// VarsOptions holds flags shared by the vars subcommands.
type VarsOptions struct {
	*RootOptions
	Database string
}

func (o *VarsOptions) database() string {
	if o.Database != "" {
		return o.Database
	}
	return o.Config().Database
}

// VariableList is the payload of vars list.
type VariableList struct {
	Variables []ir.Variable `json:"variables"`
}

func (l VariableList) Text(bool) string {
	if len(l.Variables) == 0 {
		return "(no variables)\n"
	}
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCOPE\tOWNER\tNAME\tVALUE\tENABLED\tUSES")
	for _, v := range l.Variables {
		value := v.Value
		if v.IsSecret {
			value = trace.Mask
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%d\n", v.Scope, orDashCLI(v.OwnerID), v.Name, value, v.Enabled, v.UsageCount)
	}
	w.Flush()
	return b.String()
}

// NewVarsCommand creates the vars command group.
func NewVarsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VarsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "vars",
		Short: "Manage variables in the SQLite store",
	}
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")

	cmd.AddCommand(newVarsSetCommand(opts))
	cmd.AddCommand(newVarsListCommand(opts))
	cmd.AddCommand(newVarsDeleteCommand(opts))
	cmd.AddCommand(newVarsImportCommand(opts))
	return cmd
}

func newVarsSetCommand(opts *VarsOptions) *cobra.Command {
	var (
		scopeName string
		owner     string
		secret    bool
		disabled  bool
		tags      []string
	)
	cmd := &cobra.Command{
		Use:   "set <name> <value>",
		Short: "Create or update a variable",
		Example: `  varscope vars set base_url https://api.example.com --scope global
  varscope vars set token s3cret --scope profile --owner prod --secret`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd)
			sc, err := ir.ParseScope(scopeName)
			if err != nil {
				return formatter.Abort(ExitCommandError, ErrCodeBadArgument, "invalid --scope", err)
			}
			v := ir.Variable{
				Name:      args[0],
				Value:     args[1],
				Scope:     sc,
				OwnerID:   owner,
				Enabled:   !disabled,
				IsSecret:  secret,
				Tags:      tags,
				UpdatedAt: time.Now(),
			}
			return withStore(cmd.Context(), formatter, opts.database(), func(ctx context.Context, st *store.Store) error {
				if err := st.PutVariable(ctx, v); err != nil {
					return formatter.Abort(ExitCommandError, ErrCodeStore, "failed to store variable", err)
				}
				return formatter.Success(fmt.Sprintf("set %s", v.Key()))
			})
		},
	}
	cmd.Flags().StringVar(&scopeName, "scope", string(ir.ScopeGlobal), "scope (system|global|profile|rule)")
	cmd.Flags().StringVar(&owner, "owner", "", "profile or rule id for owned scopes")
	cmd.Flags().BoolVar(&secret, "secret", false, "mask the value in traces")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "store the variable disabled")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag (repeatable)")
	return cmd
}

func newVarsListCommand(opts *VarsOptions) *cobra.Command {
	var (
		scopeName string
		owner     string
		tag       string
		enabled   bool
	)
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List stored variables in precedence order",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd)
			filter := store.VariableFilter{OwnerID: owner, Tag: tag, EnabledOnly: enabled}
			if scopeName != "" {
				sc, err := ir.ParseScope(scopeName)
				if err != nil {
					return formatter.Abort(ExitCommandError, ErrCodeBadArgument, "invalid --scope", err)
				}
				filter.Scope = sc
			}
			return withStore(cmd.Context(), formatter, opts.database(), func(ctx context.Context, st *store.Store) error {
				vars, err := st.ListVariables(ctx, filter)
				if err != nil {
					return formatter.Abort(ExitCommandError, ErrCodeStore, "failed to list variables", err)
				}
				for i := range vars {
					if vars[i].IsSecret {
						vars[i].Value = trace.Mask
					}
				}
				return formatter.Success(VariableList{Variables: vars})
			})
		},
	}
	cmd.Flags().StringVar(&scopeName, "scope", "", "only this scope")
	cmd.Flags().StringVar(&owner, "owner", "", "only this owner id")
	cmd.Flags().StringVar(&tag, "tag", "", "only variables with this tag")
	cmd.Flags().BoolVar(&enabled, "enabled", false, "only enabled variables")
	return cmd
}

func newVarsDeleteCommand(opts *VarsOptions) *cobra.Command {
	var (
		scopeName string
		owner     string
	)
	cmd := &cobra.Command{
		Use:           "delete <name>",
		Short:         "Delete a variable",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd)
			sc, err := ir.ParseScope(scopeName)
			if err != nil {
				return formatter.Abort(ExitCommandError, ErrCodeBadArgument, "invalid --scope", err)
			}
			return withStore(cmd.Context(), formatter, opts.database(), func(ctx context.Context, st *store.Store) error {
				err := st.DeleteVariable(ctx, sc, owner, args[0])
				if errors.Is(err, store.ErrNotFound) {
					return formatter.Abort(ExitFailure, ErrCodeNotFound, "variable not found", err)
				}
				if err != nil {
					return formatter.Abort(ExitCommandError, ErrCodeStore, "failed to delete variable", err)
				}
				return formatter.Success(fmt.Sprintf("deleted %s/%s/%s", sc, owner, args[0]))
			})
		},
	}
	cmd.Flags().StringVar(&scopeName, "scope", string(ir.ScopeGlobal), "scope (system|global|profile|rule)")
	cmd.Flags().StringVar(&owner, "owner", "", "profile or rule id for owned scopes")
	return cmd
}

func newVarsImportCommand(opts *VarsOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load a YAML or CUE variable file into the store",
		Long: `Upsert every variable in a YAML or CUE file. Profile and rule variables
without an owner_id take the file's profile_id and rule_id.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd)
			set, err := varfile.Load(args[0])
			if err != nil {
				return contextError(formatter, err)
			}
			vars := set.Owned()
			now := time.Now()
			return withStore(cmd.Context(), formatter, opts.database(), func(ctx context.Context, st *store.Store) error {
				for _, v := range vars {
					v.UpdatedAt = now
					if err := st.PutVariable(ctx, v); err != nil {
						return formatter.Abort(ExitCommandError, ErrCodeStore, "failed to import variables", err)
					}
				}
				formatter.VerboseLog("Imported %d variable(s) from %s", len(vars), args[0])
				return formatter.Success(fmt.Sprintf("imported %d variable(s)", len(vars)))
			})
		},
	}
	return cmd
}

func withStore(ctx context.Context, f *OutputFormatter, path string, fn func(context.Context, *store.Store) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := openStore(f, path)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(ctx, st)
}

func orDashCLI(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
