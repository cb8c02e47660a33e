package main

import (
	"context"
	"fmt"

	"laptop-checkpoint/internal/cloud/api"
	cloudconfig "laptop-checkpoint/internal/cloud/config"
	clouddb "laptop-checkpoint/internal/cloud/database"
	"laptop-checkpoint/internal/cloud/sessions"
	"laptop-checkpoint/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	envFile        string
	memorySessions bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the checkpoint service",
	Long: `Run the HTTP service that checkpoint terminals sync with. Settings come
from environment variables, optionally loaded from an env file. The service
needs PostgreSQL and uses Redis for refresh tokens.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&envFile, "env-file", ".env", "env file to load before reading the environment")
	serveCmd.Flags().BoolVar(&memorySessions, "memory-sessions", false, "keep refresh tokens in memory instead of Redis")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := cloudconfig.LoadWithEnvFile(envFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	logger := logging.Initialize(level)

	logCloser, err := logging.SetupFileLogging(logger, cfg.Logging.File)
	if err != nil {
		return fmt.Errorf("failed to set up file logging: %w", err)
	}
	defer logCloser.Close()

	ctx := cmd.Context()

	conn, err := clouddb.NewConnection(cfg.Database)
	if err != nil {
		logging.LogServiceError(logger, err, "api", "connect")
		return err
	}
	defer conn.Close()

	if err := clouddb.RunMigrations(ctx, conn, logger); err != nil {
		return err
	}

	store, err := openSessions(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	server, err := api.NewServer(cfg, api.Dependencies{
		Employees:   clouddb.NewEmployeeRepository(conn),
		Logs:        clouddb.NewLogRepository(conn),
		Users:       clouddb.NewUserRepository(conn),
		Sessions:    store,
		HealthCheck: healthCheck(conn, store),
	}, logger)
	if err != nil {
		return err
	}

	return server.Start(ctx)
}

func openSessions(ctx context.Context, cfg cloudconfig.RedisConfig, logger *logrus.Logger) (sessions.Store, error) {
	if memorySessions {
		logger.Warn("Refresh tokens are kept in memory and will not survive a restart")
		return sessions.NewMemoryStore(), nil
	}

	store, err := sessions.NewRedisStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s (use --memory-sessions to run without it): %w", cfg.RedisAddr(), err)
	}
	logger.WithField("addr", cfg.RedisAddr()).Info("Connected to Redis")
	return store, nil
}

// healthCheck covers PostgreSQL and, when in use, Redis
func healthCheck(conn *clouddb.Connection, store sessions.Store) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := conn.Health(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		if r, ok := store.(*sessions.RedisStore); ok {
			if err := r.Health(ctx); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	}
}
