package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the top-level "focus" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "focus",
		Short:         "Focus timer with task tracking",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.IsInteractive != nil && app.IsInteractive() {
				return runTUI(cmd.Context(), app)
			}
			return runStatus(cmd, app)
		},
	}

	root.AddCommand(
		newDaemonCmd(app),
		newStartCmd(app),
		newPauseCmd(app),
		newResumeCmd(app),
		newCancelCmd(app),
		newStatusCmd(app),
		newRemindersCmd(app),
		newProjectCmd(app),
		newTaskCmd(app),
		newHistoryCmd(app),
		newExportCmd(app),
		newConfigCmd(app),
	)

	return root
}
