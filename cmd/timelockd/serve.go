package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	timelock "github.com/liqingnz/btc-timelock-contracts"
	"github.com/liqingnz/btc-timelock-contracts/internal/cli"
	"github.com/liqingnz/btc-timelock-contracts/internal/presentation/tui"
	httpapi "github.com/liqingnz/btc-timelock-contracts/pkg/adapters/http"
	"github.com/liqingnz/btc-timelock-contracts/pkg/adapters/mcp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the engine and exposes it as a JSON API over HTTP, with an SSE event
stream on /events and Prometheus metrics on /metrics. When mcp.enabled is set the
MCP SSE server runs next to it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTP.Addr = addr
		}
		logger, err := cli.NewLogger(cfg.Log)
		if err != nil {
			return err
		}

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()

		if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
			tui.PrintBanner(os.Stderr, timelock.Version)
		}

		rt, err := cli.Build(sc, cfg, logger)
		if err != nil {
			return fmt.Errorf("error initializing engine: %w", err)
		}
		defer func() {
			if err := rt.Close(); err != nil {
				logger.Error("Failed to close resources", "err", err)
			}
		}()

		srv := &http.Server{
			Addr: cfg.HTTP.Addr,
			Handler: httpapi.NewHandler(rt.Engine,
				httpapi.WithLogger(logger),
				httpapi.WithGatherer(rt.Registry),
				httpapi.WithVersion(timelock.Version),
			),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, ctx := errgroup.WithContext(sc)
		g.Go(func() error {
			logger.Info("HTTP API listening", "address", srv.Addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				return srv.Close()
			}
			return nil
		})
		if cfg.MCP.Enabled {
			mcpSrv := mcp.NewServer(rt.Engine, mcp.WithLogger(logger))
			g.Go(func() error {
				return mcpSrv.ServeSSE(ctx, cfg.MCP.Addr, cfg.MCP.BaseURL)
			})
		}

		err = g.Wait()
		if sig := sc.Signal(); sig != nil {
			logger.Info("Server stopped gracefully", "signal", sig.String())
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address, overrides http.addr")
	serveCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
}
