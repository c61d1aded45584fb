package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProjectCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}

	cmd.AddCommand(
		newProjectAddCmd(app),
		newProjectListCmd(app),
		newProjectArchiveCmd(app),
	)

	return cmd
}

func newProjectAddCmd(app *App) *cobra.Command {
	var color, description string
	var minutes int

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if minutes < 0 {
				return fmt.Errorf("--minutes cannot be negative")
			}
			p, err := app.Store.CreateProject(cmd.Context(), args[0], color, description, minutes)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s [%d]\n", p.Name, p.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&color, "color", "#7C3AED", "Hex color used in reports")
	cmd.Flags().StringVar(&description, "description", "", "Project description")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "Expected total minutes")

	return cmd
}

func newProjectListCmd(app *App) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := app.Store.ListProjects(cmd.Context(), all)
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects found.")
				return nil
			}

			rows := make([][]string, 0, len(projects))
			for _, p := range projects {
				state := "open"
				switch {
				case p.Archived:
					state = "archived"
				case p.Completed:
					state = "done"
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", p.ID), p.Name, formatMinutes(p.ExpectedMinutes), state,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "NAME", "EXPECTED", "STATE"}, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include archived projects")

	return cmd
}

func newProjectArchiveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "archive ID",
		Short: "Archive a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := app.Store.GetProject(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("project %d: %w", id, err)
			}
			if err := app.Store.ArchiveProject(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archived project %s\n", p.Name)
			return nil
		},
	}
}
