package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bupple-inc/ai-engine/core/config"
	"github.com/bupple-inc/ai-engine/core/engine"
	"github.com/bupple-inc/ai-engine/core/engine/middleware"
	"github.com/bupple-inc/ai-engine/providers/observability/slogobs"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
	timeout    time.Duration
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:          "bupple",
		Short:        "Chat with OpenAI, Claude and Gemini through one engine",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (default ./bupple-engine.yaml when present)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "override log.format (text, json)")
	root.PersistentFlags().DurationVar(&flags.timeout, "timeout", 0, "deadline for each chat call, 0 for none")

	root.AddCommand(
		newChatCmd(flags, false),
		newChatCmd(flags, true),
		newHistoryCmd(flags),
		newServeCmd(flags),
		newConfigCmd(flags),
	)
	return root
}

func (f *globalFlags) loadConfig() (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Log.Format = f.logFormat
	}
	return cfg, nil
}

// setupLogging installs the configured slog handler as the process default
// and returns the observer built on it.
func setupLogging(cfg config.Config) *slogobs.Observer {
	observer := slogobs.New(
		slogobs.WithFormat(slogobs.ParseFormat(cfg.Log.Format)),
		slogobs.WithLevel(slogobs.ParseLevel(cfg.Log.Level)),
		slogobs.WithOutput(os.Stderr),
	)
	slog.SetDefault(observer.Logger())
	return observer
}

// middlewareFactory builds a chat middleware from the configured logger.
type middlewareFactory func(logger *slog.Logger) middleware.Config

// openEngine loads the configuration, opens the history store and builds
// the engine. The returned close function must be called when done.
func (f *globalFlags) openEngine(ctx context.Context, extra ...middlewareFactory) (*engine.Engine, func(), error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	observer := setupLogging(cfg)

	store, closeStore, err := engine.OpenStore(ctx, cfg.Memory)
	if err != nil {
		return nil, nil, err
	}

	var middlewares []middleware.Config
	if f.timeout > 0 {
		middlewares = append(middlewares, middleware.NewTimeoutMiddleware(f.timeout))
	}
	for _, build := range extra {
		middlewares = append(middlewares, build(observer.Logger()))
	}

	eng, err := engine.New(cfg,
		engine.WithStore(store),
		engine.WithObserver(observer),
		engine.WithMiddleware(middlewares...),
	)
	if err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("build engine: %w", err)
	}
	return eng, closeStore, nil
}
