package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garyjia/event-budget/internal/container"
	"github.com/garyjia/event-budget/internal/domain/entity"
)

func roleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Manage event roles",
	}

	assign := &cobra.Command{
		Use:   "assign",
		Short: "Give a user a role in an event",
		RunE:  runRoleAssign,
	}
	assign.Flags().String("event", "", "event id")
	assign.Flags().String("user", "", "user id")
	assign.Flags().String("role", "", "hooc, hod or member")
	assign.Flags().String("department", "", "department id (hod and member)")
	_ = assign.MarkFlagRequired("event")
	_ = assign.MarkFlagRequired("user")
	_ = assign.MarkFlagRequired("role")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print a user's resolved role in an event",
		RunE:  runRoleShow,
	}
	show.Flags().String("event", "", "event id")
	show.Flags().String("user", "", "user id")
	_ = show.MarkFlagRequired("event")
	_ = show.MarkFlagRequired("user")

	cmd.AddCommand(assign, show)
	return cmd
}

func runRoleAssign(cmd *cobra.Command, _ []string) error {
	eventID, _ := cmd.Flags().GetString("event")
	userID, _ := cmd.Flags().GetString("user")
	role, _ := cmd.Flags().GetString("role")
	departmentID, _ := cmd.Flags().GetString("department")

	c, err := container.NewContainer(appConfig, logger)
	if err != nil {
		return err
	}
	if err := c.Start(cmd.Context()); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer func() { _ = c.Close() }()

	return c.Repositories().Directory.AssignRole(cmd.Context(), eventID, userID, entity.Role(role), departmentID)
}

func runRoleShow(cmd *cobra.Command, _ []string) error {
	eventID, _ := cmd.Flags().GetString("event")
	userID, _ := cmd.Flags().GetString("user")

	c, err := container.NewContainer(appConfig, logger)
	if err != nil {
		return err
	}
	if err := c.Start(cmd.Context()); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer func() { _ = c.Close() }()

	caller, err := c.Repositories().Directory.ResolveCaller(cmd.Context(), eventID, userID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", caller.UserID, caller.Role, caller.DepartmentID)
	return nil
}
