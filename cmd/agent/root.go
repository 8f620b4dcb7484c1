package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/petasbytes/research-agent/internal/config"
	"github.com/petasbytes/research-agent/internal/logging"
	"github.com/petasbytes/research-agent/internal/metrics"
	"github.com/petasbytes/research-agent/memory"
	"github.com/petasbytes/research-agent/session"
)

// defaultSessionID keys the transcript when persistence is on and no
// --session is given, so chat resumes where it left off.
const defaultSessionID = "default"

var rootCmd = &cobra.Command{
	Use:           "agent",
	Short:         "A research assistant that can search and scrape the web",
	Long:          `agent answers questions with a chat model that may call a web search or page scraper once per question.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	addGlobalFlags(rootCmd.PersistentFlags())
}

func addGlobalFlags(f *pflag.FlagSet) {
	f.String("config", "", "Path to a YAML config file")
	f.String("provider", "", "Completion provider: openai or anthropic")
	f.String("base-url", "", "Override the completion endpoint base URL")
	f.String("model", "", "Model id")
	f.String("session", "", "Session id used for persistence")
	f.Bool("raw", false, "Print answers without markdown rendering")
}

// loadConfig layers defaults, the config file, AGT_* env and flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	flags := config.Config{}
	flags.Provider, _ = cmd.Flags().GetString("provider")
	flags.BaseURL, _ = cmd.Flags().GetString("base-url")
	flags.Model, _ = cmd.Flags().GetString("model")
	cfg.Merge(&flags)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	// Validate already rejected unknown levels.
	level, _ := logging.ParseLevel(cfg.LogLevel)
	return logging.New(level)
}

func newMemory(cfg *config.Config) (memory.Store, func(), error) {
	switch cfg.Store.Kind {
	case config.StoreFile:
		return memory.NewFileStore(cfg.Store.Dir), func() {}, nil
	case config.StoreRedis:
		s := memory.NewRedisStore(cfg.Store.RedisAddr,
			memory.WithPrefix(cfg.Store.RedisPrefix),
			memory.WithTTL(cfg.Store.TTL),
		)
		return s, func() { _ = s.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}

// newSession builds a session and restores its transcript when persistence
// is configured. The returned func releases the persistence backend.
func newSession(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, rec *metrics.Recorder) (*session.Session, func(), error) {
	store, closeStore, err := newMemory(cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := []session.Option{session.WithLogger(logger), session.WithRecorder(rec)}
	id, _ := cmd.Flags().GetString("session")
	if store != nil {
		if id == "" {
			id = defaultSessionID
		}
		opts = append(opts, session.WithMemory(store))
	}
	if id != "" {
		opts = append(opts, session.WithID(id))
	}

	s, err := session.New(*cfg, opts...)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	if err := s.Load(ctx); err != nil {
		logger.Warn("failed to load persisted transcript", "session", s.ID(), "error", err)
	}
	return s, closeStore, nil
}
