package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"feed/internal/app"
	"feed/internal/config"
	"feed/internal/live"
	"feed/internal/post"
	"feed/internal/storage"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Port     int
	Database string
	Driver   string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the feed HTTP server.

The database schema is created on startup when missing. Flags override
values from the config file.

Example:
  feed serve --port 8000 --db ./sns.db
  feed serve --driver postgres --db "postgres://feed@localhost/feed"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, opts.Verbose)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "port to listen on (default 8000)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "database DSN or SQLite file path (default ./sns.db)")
	cmd.Flags().StringVar(&opts.Driver, "driver", "", "database driver (sqlite3|postgres)")

	return cmd
}

// loadConfig reads the config file and applies the flags that were set.
func loadConfig(cmd *cobra.Command, opts *ServeOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Server.Port = opts.Port
	}
	if flags.Changed("db") {
		cfg.Database.DSN = opts.Database
	}
	if flags.Changed("driver") {
		cfg.Database.Driver = opts.Driver
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func serve(ctx context.Context, cfg config.Config, verbose bool) error {
	logger := newLogger(cfg.Log, verbose, os.Stderr)

	sess, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := sess.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	hub := live.NewHub(logger, cfg.Server.AllowedOrigins)
	defer hub.Close()

	a := app.New(cfg.Server, sess, post.NewService(sess), hub, logger)
	return a.Run(ctx)
}

// openStore opens the configured database with query logging and, when
// enabled, OpenTelemetry instrumentation.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*storage.Session, error) {
	opts := []storage.SessionOption{
		storage.WithLogger(logger),
		storage.WithSlowQueryThreshold(cfg.Database.SlowQueryThreshold),
		storage.WithQueryLogging(cfg.Database.LogQueries),
	}
	if cfg.Database.Telemetry {
		opts = append(opts, storage.WithDefaultTracer(), storage.WithDefaultMeter())
	}

	logger.Info("opening database", "driver", cfg.Database.Driver)
	sess, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, opts...)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return sess, nil
}
