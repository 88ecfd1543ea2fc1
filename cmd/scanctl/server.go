package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/scanstore/pkg/server"
	"github.com/doodlesbykumbi/scanstore/pkg/server/endpoints"
)

func defaultBindAddress() string {
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		return addr
	}
	return "0.0.0.0"
}

func defaultPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8080"
}

func defaultPortInt() int {
	if p, err := strconv.Atoi(defaultPort()); err == nil {
		return p
	}
	return 8080
}

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the scanstore API server",
	Long: `Run the scanstore API server and its background workers.

The server requires DATABASE_URL. Protected endpoints additionally require
SCANSTORE_JWT_SECRET.

By default, database migrations are run on startup. Use --no-migrate to skip.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			logger.Info("running database migrations")
			if err := runMigrations(); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
		}

		stores, cfg, err := openStores()
		if err != nil {
			return err
		}
		if cfg.JWTSecret == "" {
			logger.Warn("SCANSTORE_JWT_SECRET is not set, protected endpoints will reject every request")
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		workers, _ := cmd.Flags().GetInt("workers")
		pool, _ := newWorkers(stores, cfg, workers)
		pool.Start(ctx)
		defer pool.Stop()

		host, _ := cmd.Flags().GetString("bind-address")
		port, _ := cmd.Flags().GetString("port")
		s := server.NewServer(stores, cfg, pool, host, port, logger)
		endpoints.RegisterAll(s)

		errCh := make(chan error, 1)
		go func() {
			errCh <- s.Start()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringP("port", "p", defaultPort(), "server listen port")
	serverCmd.Flags().StringP("bind-address", "b", defaultBindAddress(), "server bind address")
	serverCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
	serverCmd.Flags().Int("workers", 0, "number of ingestion workers (default from configuration)")
}
