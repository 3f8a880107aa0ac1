package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/event-budget/pkg/database"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE:  runMigrate,
	}
	cmd.Flags().Bool("status", false, "List migrations and whether they are applied, without applying")
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	statusOnly, _ := cmd.Flags().GetBool("status")

	db, err := database.New(appConfig.DatabaseOptions(), logger)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	migrator := database.NewMigrator(db, logger)
	fsys := database.EmbeddedMigrations()

	if !statusOnly {
		applied, err := migrator.RunMigrations(fsys)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)
		return nil
	}

	migrations, err := database.LoadMigrations(fsys)
	if err != nil {
		return err
	}
	applied, err := migrator.AppliedVersions()
	if err != nil {
		// Fresh database without the bookkeeping table
		logger.Debug("No applied migrations found", zap.Error(err))
		applied = map[int]bool{}
	}
	for _, m := range migrations {
		state := "pending"
		if applied[m.Version] {
			state = "applied"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%03d %-30s %s\n", m.Version, m.Name, state)
	}
	return nil
}
