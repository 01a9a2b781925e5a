package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/collection-ledger/api"
	"github.com/warp/collection-ledger/logger"
	"github.com/warp/collection-ledger/store/sqlite"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ledger HTTP service",
	Long: `Start the ledger HTTP service on the configured port.

A background sweep marks debts overdue once their due date passes
(server.status_interval, 0 disables).

On SIGINT/SIGTERM the server stops accepting connections, waits up to 30s
for active requests, then closes the database.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("port", "", "HTTP port (overrides server.port)")
	serveCmd.Flags().String("db", "", `SQLite path, ":memory:" for a throwaway database`)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	port := cfg.Server.Port
	if p, _ := cmd.Flags().GetString("port"); p != "" {
		port = p
	}
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	handler := api.NewHandler(store, logger.WithComponent("api"))
	handler.Limiter = api.NewSubmitLimiter(cfg.Server.SubmitRate, cfg.Server.SubmitBurst)
	defer handler.Limiter.Close()

	scheduler := api.NewStatusScheduler(store, logger.WithComponent("scheduler"))
	scheduler.CheckInterval = cfg.Server.StatusInterval
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      api.NewRouter(handler, cfg.Server.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Str("tz", store.Location().String()).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info().Msg("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return err
	}
	log.Info().Msg("Server stopped")
	return nil
}

// openStore opens the configured database, honoring a --db override.
func openStore(cmd *cobra.Command) (*sqlite.Store, error) {
	path := cfg.Database.Path
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		path = p
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if dir := dirOf(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return sqlite.NewInLocation(path, loc)
}

func dirOf(path string) string {
	if strings.HasPrefix(path, ":memory:") {
		return ""
	}
	if dir := filepath.Dir(path); dir != "." {
		return dir
	}
	return ""
}
