package main

import (
	"github.com/rpattn/creditdq/internal/config"
	"github.com/rpattn/creditdq/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "creditdq",
		Short:        "Data quality validation for seller credit, invoice and wallet extracts",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file path (default ./creditdq.yaml or ./configs/creditdq.yaml)")
	root.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "text", "Log format (text, json)")

	root.AddCommand(newValidateCmd(), newMigrateCmd(), newHistoryCmd())
	return root
}

// setup loads configuration for cmd and builds the process logger from it.
func setup(cmd *cobra.Command) (config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}
