package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/buildml/internal/actions"
	"github.com/roach88/buildml/internal/components"
	"github.com/roach88/buildml/internal/config"
	"github.com/roach88/buildml/internal/interp"
	"github.com/roach88/buildml/internal/logging"
	"github.com/roach88/buildml/internal/metrics"
	"github.com/roach88/buildml/internal/namespace"
	"github.com/roach88/buildml/internal/query"
	"github.com/roach88/buildml/internal/store"
)

// app is everything a command needs once config is loaded and the
// database is open.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	store   *store.Store
	ns      *namespace.Namespace
	graph   *actions.Graph
	out     *OutputFormatter
}

// openApp loads config, applies global flag overrides and opens the store.
func openApp(opts *RootOptions, cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath, "")
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}

	level := logging.LevelFromVerbosity(opts.Verbose, logging.LevelFromString(cfg.Log.Level))
	logger := logging.NewLogger(cmd.ErrOrStderr(), level, cfg.Log.Format)

	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	m := metrics.New()
	ns, err := namespace.New(st, namespace.WithCacheSize(cfg.Namespace.CacheSize), namespace.WithMetrics(m))
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to create namespace", err)
	}

	logger.Debug("database opened", "path", cfg.Database)
	return &app{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		store:   st,
		ns:      ns,
		graph:   actions.New(st),
		out:     &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()},
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func (a *app) interpreter() *interp.Interpreter {
	return interp.New(a.store, a.ns, a.graph,
		interp.WithLogger(a.logger),
		interp.WithMetrics(a.metrics),
		interp.WithBufferSize(a.cfg.Trace.BufferSize),
		interp.WithProgressEvery(int64(a.cfg.Trace.ProgressEvery)),
	)
}

func (a *app) engine() *query.Engine {
	return query.New(a.store, a.ns, a.graph)
}

// components loads definitions from path, or from the configured file when
// path is empty.
func (a *app) components(path string) (*components.Set, error) {
	if path == "" {
		path = a.cfg.Components
	}
	if path == "" {
		return nil, NewExitError(ExitCommandError, "no components file: pass --components or set components in config")
	}
	set, err := components.LoadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load components", err)
	}
	return set, nil
}

// commandContext returns the command's context, falling back to Background
// for commands executed directly in tests.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
