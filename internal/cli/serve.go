/*
PURPOSE:
  Defines the 'serve' subcommand.
  Starts the HTTP facade used by GPT Actions and other agents.

REQUIREMENTS:
  User-specified:
  - Expose analyze_readme, configure_buffer, run_buffer, interpret_results
    and health over HTTP.

  Implementation-discovered:
  - Container platforms set PORT; listen_addr honors it.
  - SIGTERM must drain in-flight runs within shutdown_timeout.

ARCHITECTURE INTEGRATION:
  - Calls: internal/server.Run
  - Uses: internal/cli/backend.go (newService)

ERROR HANDLING:
  - Returns listener and shutdown errors to main.go.
  - A missing program is logged, not fatal; /health reports it.

IMPLEMENTATION RULES:
  - All wiring happens in newService; no business logic here.

USAGE:
  donut-runner serve --listen :8000 --api-key "$KEY"

SELF-HEALING INSTRUCTIONS:
  - If clients see 503 busy, raise max_concurrent_runs.

RELATED FILES:
  - internal/server/httpserver.go
  - internal/server/handlers.go

MAINTENANCE:
  - Update when adding server options.
*/

package cli

import (
	"github.com/spf13/cobra"

	"github.com/daryltucker/donut-runner/internal/output"
	"github.com/daryltucker/donut-runner/internal/server"
)

var listenOverride string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if listenOverride != "" {
			cfg.ListenAddr = listenOverride
		}
		svc, closeFn, err := newService(cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		h := svc.Health()
		if !h.ProgramAvailable {
			output.Logger.Warn("DonutBufferApp not available", "program", cfg.ProgramPath, "status", h.Status)
		}
		if cfg.APIKey == "" {
			output.Logger.Warn("No api_key configured; the API is open to anyone who can reach it")
		}

		handler := server.New(svc, server.Options{
			Version:     Version,
			PublicURL:   cfg.PublicURL,
			APIKey:      cfg.APIKey,
			CORSOrigins: cfg.CORSOrigins,
			Logger:      output.Logger,
		}).Handler()

		return server.Run(cmd.Context(), output.Logger, server.Config{
			Service:         "donut-runner",
			Addr:            cfg.ListenAddr,
			ShutdownTimeout: cfg.ShutdownTimeout,
		}, handler)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&listenOverride, "listen", "", "listen address (default listen_addr from config, or :$PORT)")
}
