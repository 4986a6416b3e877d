package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/quantlab/internal/app"
	"github.com/newthinker/quantlab/internal/config"
	"github.com/newthinker/quantlab/internal/logger"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "quantlab",
	Short: "quantlab - strategy backtesting and market reports",
	Long: `quantlab turns price history into trading signals, simulates them with a
one-bar execution lag and reports risk/return metrics against buy-and-hold.
It also produces daily market reports for a configured asset list.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

// setup loads and validates the config, then builds the logger from it and
// the application. The caller owns the returned logger and should Sync it.
func setup() (*app.App, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, logger.Must(logger.Config{Development: debug}), fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Development: debug,
	})
	if err != nil {
		return nil, logger.Must(logger.Config{Development: debug}), fmt.Errorf("creating logger: %w", err)
	}
	if cfgFile == "" {
		log.Debug("no config file specified, using defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, log, fmt.Errorf("config validation failed: %w", err)
	}

	a, err := app.New(cfg, log)
	if err != nil {
		return nil, log, fmt.Errorf("initializing: %w", err)
	}
	return a, log, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
