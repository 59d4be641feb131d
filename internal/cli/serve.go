package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haoranw/steamgate/internal/config"
	"github.com/haoranw/steamgate/internal/gateway"
	"github.com/haoranw/steamgate/internal/logging"
	"github.com/haoranw/steamgate/internal/session"
	"github.com/haoranw/steamgate/internal/steam"
)

func newServeCmd() *cobra.Command {
	var (
		port    int
		host    string
		backend string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat-session gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			if port != 0 {
				cfg.Gateway.Port = port
			}
			if host != "" {
				cfg.Gateway.Host = host
			}
			if backend != "" {
				cfg.Steam.Backend = backend
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			level := cfg.Logging.Level
			if logLevel != "" {
				level = logLevel
			}
			logger, closer, err := logging.Open(level, cfg.Logging.ConsoleStyle, cfg.Logging.File)
			if err != nil {
				return fmt.Errorf("opening log output: %w", err)
			}
			if closer != nil {
				defer closer.Close()
			}

			// Refuse to serve without a bearer credential; an open
			// control plane hands out the chat session to anyone.
			if auth := gateway.ResolveAuth(cfg.Gateway.Auth); auth.Token == "" {
				return fmt.Errorf("no gateway bearer token configured (set gateway.auth.token or STEAMGATE_GATEWAY_TOKEN)")
			}

			client, err := steam.NewClient(cfg.Steam, logger)
			if err != nil {
				return fmt.Errorf("creating steam backend: %w", err)
			}

			mgr := session.NewManager(
				client,
				session.NewTokenCache(cfg.Steam.TokenFile),
				session.NewTerminalPrompter(),
				logger,
				session.WithMetadataTimeout(time.Duration(cfg.Steam.MetadataTimeoutSeconds)*time.Second),
			)

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// POST /logout drains the listener through this cancel.
			serveCtx, shutdown := context.WithCancel(ctx)
			defer shutdown()

			go mgr.Run(serveCtx)

			srv := gateway.New(cfg.Gateway, mgr, logger, gateway.WithShutdownFunc(shutdown))
			serveErr := srv.Start(serveCtx)

			// Best-effort logoff so the backend sees a clean exit.
			offCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mgr.LogOff(offCtx); err != nil {
				logger.Warn().Err(err).Msg("logoff on shutdown failed")
			}
			if c, ok := client.(interface{ Close() }); ok {
				c.Close()
			}

			return serveErr
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override the listen port")
	cmd.Flags().StringVar(&host, "host", "", "override the bind address")
	cmd.Flags().StringVar(&backend, "backend", "", "steam backend to use (default from config)")

	return cmd
}
