package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/liuji1031/visualize-architecture/internal/server"
)

// shutdownTimeout bounds how long in-flight requests may run after the
// serve command receives an interrupt.
const shutdownTimeout = 10 * time.Second

// serveCommand creates the serve command for running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the visualization HTTP API",
		Long: `Serve the visualization HTTP API.

The server exposes endpoints for parsing model configurations (inline,
uploaded, or from presets), rendering them, and checking config
references. Settings are read from the --config file; the cache backend,
upload directory, and preset stores all come from there.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides settings)")

	return cmd
}

// runServe assembles the server from settings and runs it until ctx is
// cancelled.
func (c *CLI) runServe(ctx context.Context, addr string) error {
	s, err := c.settings()
	if err != nil {
		return err
	}
	if addr != "" {
		s.Server.Addr = addr
	}

	backend, err := newCache(ctx, s)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}
	defer backend.Close()

	uploads, err := server.NewUploadManager(s.Server.UploadDir)
	if err != nil {
		return fmt.Errorf("initialize upload storage: %w", err)
	}
	defer uploads.Close()

	presets, closePresets, err := c.presetStores(ctx)
	if err != nil {
		return err
	}
	if closePresets != nil {
		defer closePresets(context.Background())
	}

	handler := server.New(s, uploads, presets, backend, c.Logger)
	srv := &http.Server{
		Addr:              s.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		c.Logger.Info("listening", "addr", s.Server.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	c.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
