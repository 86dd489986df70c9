package main

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bupple-inc/ai-engine/core/engine/middleware"
	"github.com/bupple-inc/ai-engine/internal/server"
)

func newServeCmd(global *globalFlags) *cobra.Command {
	var (
		addr    string
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat and history API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			level := middleware.LogLevelStandard
			if verbose {
				level = middleware.LogLevelVerbose
			}
			requestLog := func(logger *slog.Logger) middleware.Config {
				return middleware.NewLoggingMiddleware(logger, level)
			}
			eng, closeEngine, err := global.openEngine(ctx, requestLog)
			if err != nil {
				return err
			}
			defer closeEngine()

			srv, err := server.New(eng, server.WithLogger(slog.Default()), server.WithAddr(addr))
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log prompts and replies")
	return cmd
}
