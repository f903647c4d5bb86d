// Package cmd implements the CLI commands for game-price-tracker.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/donaldgifford/game-price-tracker/internal/config"
	"github.com/donaldgifford/game-price-tracker/pkg/logger"
)

const envPrefix = "GPT"

var (
	cfgFile string
	envFile string
	rootCmd = &cobra.Command{
		Use:   "game-price-tracker",
		Short: "Estimate the resale price of video games from eBay listings",
		Long: "game-price-tracker searches eBay for a game, cleans the price samples\n" +
			"it finds and reports the EUR-normalized used price range plus the\n" +
			"average new price.",
		SilenceUsage: true,
	}
)

// Root returns the root cobra command for documentation generation.
func Root() *cobra.Command {
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initEnv)

	rootCmd.PersistentFlags().
		StringVar(&cfgFile, "config", "", "config file path (default: environment only)")
	rootCmd.PersistentFlags().
		StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().
		String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().
		String("log-format", "", "log format (text, json, console)")

	cobra.CheckErr(viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level")))
	cobra.CheckErr(viper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format")))

	rootCmd.AddCommand(priceCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(versionCmd())
}

// initEnv loads the dotenv file without overriding variables already set,
// then lets GPT_LOG_LEVEL and GPT_LOG_FORMAT feed the logging flags.
func initEnv() {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			cobra.CheckErr(fmt.Errorf("loading %s: %w", envFile, err))
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// loadConfig reads the configuration and applies the logging overrides from
// flags or GPT_* variables.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if lvl := viper.GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if format := viper.GetString("log-format"); format != "" {
		if !logger.ValidFormat(format) {
			return nil, fmt.Errorf("invalid log format %q", format)
		}
		cfg.Logging.Format = format
	}

	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	l := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(l)
	return l
}
