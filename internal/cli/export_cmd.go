package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sadopc/focus/internal/export"
	"github.com/sadopc/focus/internal/store"
)

func newExportCmd(app *App) *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the session ledger to CSV or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app.prepare(ctx)

			format = strings.ToLower(format)
			if format != "csv" && format != "json" {
				return fmt.Errorf("unsupported format %q, use csv or json", format)
			}
			if out == "" {
				out = fmt.Sprintf("focus-export-%s.%s", app.Clock.Now().Format("2006-01-02"), format)
			}

			logs, err := app.Store.ListSessionLogs(ctx, store.LogFilter{})
			if err != nil {
				return err
			}
			refs, err := export.LoadRefs(ctx, app.Store)
			if err != nil {
				return err
			}

			if format == "csv" {
				err = export.ToCSV(logs, refs, out)
			} else {
				err = export.ToJSON(logs, refs, out)
			}
			if err != nil {
				return err
			}

			abs, _ := filepath.Abs(out)
			if abs == "" {
				abs = out
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d sessions to %s\n", len(logs), abs)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "csv", "Output format: csv or json")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path (default focus-export-DATE.FORMAT)")

	return cmd
}
