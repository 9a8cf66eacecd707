package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/roach88/varscope/internal/cache"
	"github.com/roach88/varscope/internal/config"
	"github.com/roach88/varscope/internal/engine"
	"github.com/roach88/varscope/internal/ir"
	"github.com/roach88/varscope/internal/store"
	"github.com/roach88/varscope/internal/varfile"
)

// contextFlags select where a resolution context comes from: a variable
// file (--vars) or the store (--db, defaulting to the configured database).
type contextFlags struct {
	VarsFile  string
	Database  string
	ProfileID string
	RuleID    string
}

func (f *contextFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.VarsFile, "vars", "", "YAML or CUE variable file")
	cmd.Flags().StringVar(&f.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&f.ProfileID, "profile", "", "active profile id")
	cmd.Flags().StringVar(&f.RuleID, "rule", "", "active rule id")
}

func (f *contextFlags) database(cfg config.Config) string {
	if f.Database != "" {
		return f.Database
	}
	return cfg.Database
}

// newResolver builds a resolver from configuration. maxDepth > 0 overrides
// the configured limit.
func newResolver(opts *RootOptions, maxDepth int) *engine.Resolver {
	cfg := opts.Config()
	if maxDepth <= 0 {
		maxDepth = cfg.MaxDepth
	}
	var c cache.Cache
	if !cfg.Cache.Disabled {
		c = cache.NewInMemory(cache.Config{Shards: cfg.Cache.Shards, TTL: cfg.Cache.TTL})
	}
	return engine.New(
		engine.WithMaxDepth(maxDepth),
		engine.WithCache(c),
		engine.WithLogger(opts.Logger()),
	)
}

// loadContext builds the context named by flags. st may be nil when
// --vars is given.
func loadContext(ctx context.Context, flags *contextFlags, st *store.Store) (*ir.ResolutionContext, error) {
	if flags.VarsFile != "" {
		set, err := varfile.Load(flags.VarsFile)
		if err != nil {
			return nil, err
		}
		return set.Context(flags.ProfileID, flags.RuleID)
	}
	if st == nil {
		return nil, errors.New("no variable source: pass --vars or --db")
	}
	return st.LoadContext(ctx, flags.ProfileID, flags.RuleID)
}

// contextError maps a context load failure to an exit error.
func contextError(f *OutputFormatter, err error) error {
	var fe *varfile.FileError
	var ce *ir.ContextError
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return f.Abort(ExitCommandError, ErrCodeNotFound, "variable file not found", err)
	case errors.As(err, &fe):
		return f.Abort(ExitCommandError, ErrCodeLoadFailed, "failed to load variables", err)
	case errors.As(err, &ce):
		return f.Abort(ExitCommandError, ErrCodeBadContext, "invalid variable set", err)
	default:
		return f.Abort(ExitCommandError, ErrCodeGeneric, "failed to load variables", err)
	}
}

func openStore(f *OutputFormatter, path string) (*store.Store, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, f.Abort(ExitCommandError, ErrCodeStore, fmt.Sprintf("failed to open database %s", path), err)
	}
	return st, nil
}
