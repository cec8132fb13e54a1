package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/jackzampolin/aitrace/docs"
	"github.com/jackzampolin/aitrace/internal/config"
	"github.com/jackzampolin/aitrace/internal/server"
)

var (
	serveHost     string
	servePort     string
	serveLogLevel string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the aitrace server",
	Long: `Start the aitrace HTTP server.

The server provides:
  - /api/health       - Basic server health check
  - /api/ready        - Readiness check (default model provider registered)
  - /api/detect       - Classify text as AI-generated or human-written
  - /api/mark-traces  - Highlight heuristic AI-writing traces
  - /swagger          - API documentation

Configuration is read from --config, ./config.yaml or ~/.aitrace/config.yaml
and reloaded when the file changes.

Examples:
  aitrace serve                    # Start on default port 8000
  aitrace serve --port 3000        # Start on custom port
  aitrace serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfgMgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}

		level := cfgMgr.Get().LogLevel()
		if serveLogLevel != "" {
			level = (&config.Config{Log: config.LogCfg{Level: serveLogLevel}}).LogLevel()
		}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		}))

		if path := cfgMgr.ConfigFileUsed(); path != "" {
			logger.Info("loaded config", "path", path)
			cfgMgr.WatchConfig()
		} else {
			logger.Info("no config file found, using defaults and environment")
		}

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			ConfigManager: cfgMgr,
			Logger:        logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default: server.host, 127.0.0.1)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default: server.port, 8000)")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "", "Log level: debug, info, warn, error (default: log.level)")

	rootCmd.AddCommand(serveCmd)
}
