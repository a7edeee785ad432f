package main

import (
	"github.com/rpattn/creditdq/internal/db"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back the results store schema",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(db.Up), string(db.Down)},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			direction := db.Up
			if len(args) == 1 {
				if direction, err = db.ParseDirection(args[0]); err != nil {
					return err
				}
			}
			return db.Migrate(cfg.Database, direction, logger)
		},
	}
}
