package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/cli"
	"github.com/aretw0/tendril/internal/config"
	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/observability"
	"github.com/spf13/cobra"
)

var (
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:          "tendril",
	Short:        "Tendril is a threaded comment engine",
	Long:         `Tendril stores and renders threaded comment discussions, one thread per subject.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		applyFlags(cmd, &loaded)
		if err := loaded.Validate(); err != nil {
			return err
		}

		level, err := logging.ParseLevel(loaded.LogLevel)
		if err != nil {
			return err
		}
		cfg = loaded
		logger = logging.NewWithWriter(cmd.ErrOrStderr(), level, loaded.LogJSON)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "tendril.yaml", "Path to the configuration file (YAML or JSON)")
	flags.String("env-file", ".env", "Dotenv file exported before the config is read")
	flags.String("dir", "", "Directory holding thread files (file store)")
	flags.String("sqlite-path", "", "Database file (sqlite store)")
	flags.String("store", "", "Thread store: memory, file, sqlite or redis")
	flags.String("author", "", "Author label for replies")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
}

// applyFlags overrides configuration with the flags set on the command line.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("dir") {
		c.Dir, _ = flags.GetString("dir")
	}
	if flags.Changed("sqlite-path") {
		c.SQLitePath, _ = flags.GetString("sqlite-path")
	}
	if flags.Changed("store") {
		c.Store, _ = flags.GetString("store")
	}
	if flags.Changed("author") {
		c.Author, _ = flags.GetString("author")
	}
	if flags.Changed("log-level") {
		c.LogLevel, _ = flags.GetString("log-level")
	}
}

// openEngine builds the configured engine with debug logging hooks.
func openEngine(extra domain.LifecycleHooks) (*tendril.Engine, func() error, error) {
	hooks := observability.LoggingHooks(logger).Merge(extra)
	return cli.NewEngine(cfg, logger, hooks)
}
