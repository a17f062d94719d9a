package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"todos/backend/internal/auth"
	"todos/backend/internal/config"
	dbpkg "todos/backend/internal/db"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "server",
		Short: "Todo API backed by Postgres",
		Long: `Serves the todo REST API.

Configuration comes from the environment (a .env file in the working
directory is read too):
  DATABASE_URL   postgres connection string (default: ` + config.DefaultDatabaseURL + `)
  HOST, PORT     listen address (default: 0.0.0.0:8080)
  DB_MAX_CONNS   connection pool size (default: 5)
  LOG_LEVEL      debug, info, warn or error (default: info)
  JWT_SECRET     when set, /todos requires a bearer token
  CORS_MAX_AGE   preflight cache lifetime (default: 1h)`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(newServeCommand(), newMigrateCommand(), newTokenCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Prepare the database and start the HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database if needed and apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			pool, err := prepareDatabase(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			pool.Close()
			return nil
		},
	}
}

func newTokenCommand() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a bearer token signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup()
			if err != nil {
				return err
			}
			tok, err := auth.Sign(cfg.JWTSecret, subject, ttl, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "cli", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 8*time.Hour, "token lifetime")
	return cmd
}

// setup loads configuration and installs the process logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)
	return cfg, log, nil
}

// prepareDatabase runs the fatal part of startup: ensure, connect, migrate.
func prepareDatabase(ctx context.Context, cfg *config.Config, log *slog.Logger) (*pgxpool.Pool, error) {
	if err := dbpkg.EnsureDatabase(ctx, cfg.DatabaseURL, log); err != nil {
		log.Error("database setup failed", "error", err)
		return nil, err
	}
	p, err := dbpkg.Connect(ctx, cfg.DatabaseURL, cfg.MaxConns)
	if err != nil {
		log.Error("database connect failed", "error", err)
		return nil, err
	}
	log.Info("connected to database", "max_conns", cfg.MaxConns)
	if _, err := dbpkg.Migrate(ctx, p, log); err != nil {
		p.Close()
		log.Error("migrations failed", "error", err)
		return nil, err
	}
	log.Info("migrations applied")
	return p, nil
}
