package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garyjia/event-budget/internal/container"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <budget-id>...",
		Short: "Write budget workbooks into the reports directory",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runExport,
	}
	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	c, err := container.NewContainer(appConfig, logger)
	if err != nil {
		return err
	}
	if err := c.Start(cmd.Context()); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer func() { _ = c.Close() }()

	exports := c.Services().Exports
	for _, budgetID := range args {
		path, err := exports.ArchiveBudget(cmd.Context(), budgetID)
		if err != nil {
			return fmt.Errorf("export %s: %w", budgetID, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}
