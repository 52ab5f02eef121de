// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 sramkeep Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/sramkeep/sramkeep/internal/auth/postgres"
	"github.com/sramkeep/sramkeep/internal/config"
	"github.com/sramkeep/sramkeep/internal/logging"
)

// migrateConfig holds configuration for the migrate command.
type migrateConfig struct {
	databaseURL string
	rollback    bool
	status      bool
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	mcfg := &migrateConfig{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Run all pending database migrations against the PostgreSQL database.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, mcfg)
		},
	}

	cmd.Flags().StringVar(&mcfg.databaseURL, "database-url", "", "PostgreSQL connection string")
	cmd.Flags().BoolVar(&mcfg.rollback, "rollback", false, "roll back all migrations instead of applying them")
	cmd.Flags().BoolVar(&mcfg.status, "status", false, "print the current migration version and exit")

	return cmd
}

func runMigrate(cmd *cobra.Command, mcfg *migrateConfig) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").
			With("field", "database-url").
			Errorf("database-url is required")
	}
	logging.SetDefault(logging.Options{Format: cfg.LogFormat, Level: cfg.Level()})

	migrator, err := postgres.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			cmd.PrintErrln("warning: failed to close migrator:", closeErr)
		}
	}()

	switch {
	case mcfg.status:
		version, dirty, err := migrator.Version()
		if err != nil {
			return err
		}
		cmd.Printf("version: %d dirty: %v\n", version, dirty)
	case mcfg.rollback:
		cmd.Println("Rolling back migrations...")
		if err := migrator.Down(); err != nil {
			return err
		}
		cmd.Println("Rollback completed successfully")
	default:
		cmd.Println("Running migrations...")
		if err := migrator.Up(); err != nil {
			return err
		}
		cmd.Println("Migrations completed successfully")
	}

	return nil
}
