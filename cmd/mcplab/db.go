package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/mcplab/pkg/db"
	"github.com/jingkaihe/mcplab/pkg/db/migrations"
	"github.com/jingkaihe/mcplab/pkg/logger"
	"github.com/jingkaihe/mcplab/pkg/presenter"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Usage ledger database commands",
	Long:  `Commands for managing the usage ledger database (migration status and rollback).`,
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database migration status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDatabase(cmd.Context(), func(ctx context.Context, path string, conn *sqlx.DB) error {
			applied, err := db.NewMigrationRunner(conn).AppliedVersions(ctx)
			if err != nil {
				return errors.Wrap(err, "failed to get migration status")
			}
			appliedSet := make(map[int64]bool, len(applied))
			for _, v := range applied {
				appliedSet[v] = true
			}

			all := migrations.All()
			presenter.Section("Database Migration Status")
			fmt.Printf("Database: %s\n\n", path)
			for _, m := range all {
				status := "[ ]"
				if appliedSet[m.Version] {
					status = "[x]"
				}
				fmt.Printf("%s %d - %s\n", status, m.Version, m.Description)
			}
			fmt.Printf("\nApplied: %d/%d migrations\n", len(applied), len(all))
			return nil
		})
	},
}

var dbRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Roll back the last database migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDatabase(cmd.Context(), func(ctx context.Context, _ string, conn *sqlx.DB) error {
			runner := db.NewMigrationRunner(conn)
			applied, err := runner.AppliedVersions(ctx)
			if err != nil {
				return errors.Wrap(err, "failed to get migration status")
			}
			if len(applied) == 0 {
				presenter.Warning("No migrations to roll back")
				return nil
			}

			last := applied[len(applied)-1]
			presenter.Info(fmt.Sprintf("Rolling back migration %d", last))
			if err := runner.Rollback(ctx, migrations.All()); err != nil {
				return errors.Wrap(err, "failed to roll back migration")
			}
			presenter.Success(fmt.Sprintf("Rolled back migration %d", last))
			return nil
		})
	},
}

func init() {
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbRollbackCmd)
}

func withDatabase(ctx context.Context, f func(context.Context, string, *sqlx.DB) error) error {
	path := viper.GetString("usage.path")
	if path == "" {
		var err error
		if path, err = db.DefaultDBPath(); err != nil {
			return err
		}
	}
	conn, err := db.Open(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.G(ctx).WithError(err).Warn("failed to close database")
		}
	}()
	return f(ctx, path, conn)
}
