// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/taibuivan/orm1go/internal/platform/config"
	"github.com/taibuivan/orm1go/internal/platform/logging"
	"github.com/taibuivan/orm1go/internal/platform/migration"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the blog example's pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			log := logging.New(cfg.LogLevel)

			spinner, _ := pterm.DefaultSpinner.Start("applying migrations")
			if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
				spinner.Fail(err.Error())
				return err
			}
			spinner.Success("migrations up to date")
			return nil
		},
	}
}
