package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP tools over stdio or HTTP",
		Long: `Serve MCP tools over stdio (the default) or HTTP.

In HTTP mode the server also exposes JSON-RPC at /rpc, sync control under
/sync and a websocket progress stream at /sync/events. When sync.schedule
is set, syncs also run in the background on that cron schedule.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if spec := c.cfg.Sync.Schedule; spec != "" {
				stopSchedule, err := c.app.Schedule(spec)
				if err != nil {
					return err
				}
				defer stopSchedule()
			}

			if c.cfg.Transport.Mode == "stdio" {
				return c.serveStdio(ctx)
			}
			return c.serveHTTP(ctx)
		},
	}
	cmd.Flags().String("transport", "", "Transport mode: stdio or http (overrides config)")
	return cmd
}

func (c *cli) serveStdio(ctx context.Context) error {
	c.logger.Info("starting stdio transport")

	// Run blocks until stdin closes or ctx is cancelled.
	if err := c.app.MCPServer().Run(ctx, &sdkmcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stdio server: %w", err)
	}
	c.logger.Info("shutting down")
	return nil
}

func (c *cli) serveHTTP(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", c.cfg.Server.Host, c.cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           c.app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.logger.Info("server listening", "addr", addr, "auth", c.cfg.Server.Token != "")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	return c.shutdown(server)
}

func (c *cli) shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.logger.Info("shutting down")
	c.app.Sync.Cancel()
	if err := server.Shutdown(ctx); err != nil {
		c.logger.Error("shutdown error", "error", err)
		return err
	}
	return nil
}
