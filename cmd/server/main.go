package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vovakirdan/wirechat-server/internal/app"
	"github.com/vovakirdan/wirechat-server/internal/config"
	"github.com/vovakirdan/wirechat-server/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	root := &cobra.Command{
		Use:   "wirechat-server",
		Short: "wirechat-server runs the chat and call-signaling backend",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (defaults to ./config.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "start the HTTP/WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			return runServe(configPath, logLevel, addr)
		},
	}
	serveCmd.Flags().String("addr", "", "HTTP listen address (overrides config)")

	root.AddCommand(serveCmd)
	root.RunE = serveCmd.RunE

	return root
}

func runServe(configPath, logLevel, addr string) error {
	logger := log.New(logLevel)

	cfg, resolvedPath, err := config.Load(logger, configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Info().Str("path", resolvedPath).Msg("config loaded")
	if addr != "" {
		cfg.Addr = addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(&cfg, logger)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	logger.Info().Str("addr", cfg.Addr).Msg("starting wirechat server")
	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("server exited with error: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
