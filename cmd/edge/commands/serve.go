package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hmoon/edgeforge/internal/api"
	"github.com/hmoon/edgeforge/internal/api/handlers"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the read-only HTTP API",
	Long: `Serves the manifest, survivor board and candidate registry over
HTTP. The API is read-only; approval and rejection stay on the CLI.

Endpoints:
  GET /health
  GET /api/manifest
  GET /api/survivors
  GET /api/candidates
  GET /api/candidates/summary
  GET /api/candidates/{id}

Example:
  go run ./cmd/edge serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Println("=== edgeforge API Server ===")

	d, cleanup, err := initDeps()
	if err != nil {
		return err
	}
	defer cleanup()

	handler := handlers.NewEdgeHandler(d.candidates, d.survivors, d.edges, d.log)
	server := api.New(d.cfg, d.log, api.NewRouter(handler, d.log))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("api server: %w", err)
	case sig := <-quit:
		d.log.WithFields(map[string]interface{}{"signal": sig.String()}).Info("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown api server: %w", err)
	}

	fmt.Println("✅ Server stopped")
	return nil
}
