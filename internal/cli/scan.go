package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dinesync/dinesync/internal/model"
	"github.com/dinesync/dinesync/internal/scan"
)

// NewScanCommand creates the scan command: extract a table id from QR or
// deep-link text and persist it as the active selection.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <text>",
		Short: "Select a table from scanned QR or link text",
		Long: `Extract a table id from scanned text and persist it as this device's
active table. Accepts a full URL with a tableId parameter, a bare
"tableId=..." fragment, or a raw token.

Example:
  dinesync scan "https://venue.example/t?tableId=7"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}

			id, err := scan.TableID(args[0])
			if err != nil {
				_ = f.Fail("no table id found in scanned text")
				return WrapExitError(ExitFailure, "scan failed", err)
			}

			a, err := newApp(cmd.Context(), rootOpts, model.RoleCustomer)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.dev.SetSelectedTable(cmd.Context(), id); err != nil {
				return WrapExitError(ExitFailure, "could not save table selection", err)
			}
			return f.Success(fmt.Sprintf("table %s selected", id))
		},
	}
	return cmd
}
