package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/varscope/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Database   string
	Addr       string
	SaveTraces bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the resolver over HTTP",
		Long: `Start the HTTP API. Contexts are loaded from the SQLite store on every
request; variable writes through the API invalidate the resolution cache.

Endpoints:
  POST   /v1/resolve              {template, profile_id, rule_id}
  POST   /v1/resolve/headers      {headers: [{name, value}], profile_id, rule_id}
  POST   /v1/validate             {template}
  POST   /v1/refs                 {template}
  POST   /v1/lint                 {profile_id, rule_id}
  GET    /v1/variables            ?scope=&owner_id=&enabled=
  PUT    /v1/variables            variable JSON
  DELETE /v1/variables/{scope}/{name}?owner_id=
  GET    /v1/traces               ?profile_id=&failed=&limit=
  GET    /v1/traces/{id}
  GET    /healthz`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&opts.SaveTraces, "save-traces", false, "store every resolution trace")
	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)
	cfg := opts.Config()

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.Database
	}
	addr := opts.Addr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	st, err := openStore(formatter, dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := server.New(st, newResolver(opts.RootOptions, 0),
		server.WithLogger(opts.Logger()),
		server.WithSaveTraces(opts.SaveTraces),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx, addr, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout); err != nil {
		return formatter.Abort(ExitCommandError, ErrCodeGeneric, "server failed", err)
	}
	return nil
}
