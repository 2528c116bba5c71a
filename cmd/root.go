package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"llmunify/internal/config"
	"llmunify/internal/logging"
	"llmunify/internal/store"
)

var (
	flagDB      string
	flagConfig  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "llmunify",
	Short: "Unified, searchable store for AI assistant conversation exports",
	Long: `llmunify imports conversation exports from Claude, Copilot and Gemini into
a single local SQLite database with full-text search over every message.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database file (default from config, ~/.llmunify/llmunify.db)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.llmunify/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is what every subcommand needs once flags are parsed.
type env struct {
	cfg    *config.Config
	logger *log.Logger
	db     *store.DB
}

func (e *env) Close() error {
	return e.db.Close()
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flagConfig != "" {
		cfg, err = config.LoadFromPath(flagConfig)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if flagDB != "" {
		cfg.Database.Path = flagDB
	}
	if flagVerbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log.Level, os.Stderr)
	if err != nil {
		return nil, err
	}
	busy, err := cfg.BusyTimeout()
	if err != nil {
		return nil, err
	}

	db, err := store.Open(ctx, cfg.Database.Path,
		store.WithMaxConns(cfg.Database.MaxConns),
		store.WithBusyTimeout(busy),
		store.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, db: db}, nil
}
