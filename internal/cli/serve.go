package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/qfilter/internal/config"
	"github.com/roach88/qfilter/internal/filter"
	"github.com/roach88/qfilter/internal/server"
	"github.com/roach88/qfilter/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	ConfigDir  string
	Addr       string
	SchemasDir string
	Database   string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the filter API over HTTP",
		Long: `Start the HTTP filter API.

Settings come from qfilter.yaml in the config directory, then QFILTER_*
environment variables, then flags.

Routes:
  GET /v1/schemas
  GET /v1/{schema}/filter?filter[...]=...&include=...
  GET /v1/{schema}/records?...   (only with a database)

Example:
  qfilter serve --config ./deploy --addr :9000 --db ./data.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigDir, "config", ".", "directory containing qfilter.yaml")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().StringVar(&opts.SchemasDir, "schemas", "", "schemas directory (overrides schemas_dir)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database for the records endpoint (overrides server.database)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := config.Load(opts.ConfigDir)
	if err != nil {
		return formatter.Fail(ExitCommandError, "E001", err.Error(), nil)
	}
	if opts.Addr != "" {
		cfg.Server.Addr = opts.Addr
	}
	if opts.SchemasDir != "" {
		cfg.SchemasDir = opts.SchemasDir
	}
	if opts.Database != "" {
		cfg.Server.Database = opts.Database
	}

	level := cfg.Level()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	loaded, err := loadSchemas(formatter, cfg.SchemasDir)
	if err != nil {
		return err
	}
	for _, w := range loaded.Warnings {
		logger.Warn("relation cycle", "path", w.Path, "message", w.Message)
	}
	logger.Info("schemas loaded", "dir", cfg.SchemasDir, "schemas", loaded.Registry.Names())

	deps := server.Deps{
		Registry: loaded.Registry,
		Parser: filter.NewParser(loaded.Registry,
			filter.WithLogger(logger),
			filter.WithMaxDepth(cfg.MaxDepth)),
		Logger: logger,
	}
	if cfg.Server.Database != "" {
		st, err := store.Open(cfg.Server.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		deps.Store = st
		logger.Info("database ready", "path", cfg.Server.Database)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.NewHandler(deps).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server error", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "shutdown failed", err)
	}
	fmt.Fprintln(formatter.GetErrWriter(), "server stopped")
	return nil
}
