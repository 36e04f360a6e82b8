package main

import (
	"fmt"
	"io"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/flatscout/internal/catalog"
	"github.com/Veraticus/flatscout/internal/config"
	"github.com/Veraticus/flatscout/internal/session"
	"github.com/Veraticus/flatscout/internal/telegram"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	// Viper carries the defaults, the environment and the bound flags.
	Viper      *viper.Viper
	ConfigPath string
}

// NewRootCommand creates the root command for the FlatScout CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Viper: config.New()}

	cmd := &cobra.Command{
		Use:           "flatscout",
		Short:         "FlatScout - a Telegram bot that finds rental flats",
		Long:          "A conversational Telegram bot that searches DOM.RIA listings and notifies users about new ones.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", config.DefaultPath, "path to the YAML config file")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("db-path", "", "SQLite session database path")
	flags.String("metrics-addr", "", "metrics listen address, empty to disable")
	_ = opts.Viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = opts.Viper.BindPFlag("store.path", flags.Lookup("db-path"))
	_ = opts.Viper.BindPFlag("metrics.addr", flags.Lookup("metrics-addr"))

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewNotifyCommand(opts))
	cmd.AddCommand(NewSessionsCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// loadConfig loads the configuration and the process logger.
func loadConfig(opts *RootOptions, logOut io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadWith(opts.Viper, opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	logger := cfg.Log.NewLogger(logOut)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// openStore opens the configured session store. The returned close function
// is never nil.
func openStore(cfg config.StoreConfig) (session.Store, func() error, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return session.NewMemoryStore(), func() error { return nil }, nil
	case config.DriverSQLite:
		store, err := session.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open session store: %w", err)
		}
		return store, store.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func newCatalog(cfg config.CatalogConfig, logger *slog.Logger) (*catalog.Client, error) {
	client, err := catalog.NewClient(cfg.APIKey,
		catalog.WithBaseURL(cfg.BaseURL),
		catalog.WithCityID(cfg.CityID),
		catalog.WithTimeout(cfg.Timeout),
		catalog.WithRateLimit(cfg.RequestsPerSecond),
		catalog.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog client: %w", err)
	}
	return client, nil
}

func newTelegram(cfg config.TelegramConfig, logger *slog.Logger) (*telegram.Client, error) {
	if err := tgbotapi.SetLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug)); err != nil {
		return nil, fmt.Errorf("failed to set telegram logger: %w", err)
	}
	client, err := telegram.NewClient(cfg.Token,
		telegram.WithBaseURL(cfg.BaseURL),
		telegram.WithTimeout(cfg.CallTimeout),
		telegram.WithClientPollTimeout(cfg.PollTimeout),
		telegram.WithClientLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram client: %w", err)
	}
	return client, nil
}
