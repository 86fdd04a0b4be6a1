package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dinesync/dinesync/internal/model"
)

// NewRunCommand creates the run command: a staff terminal that watches the
// live order and notification streams and runs the janitor by virtue of its
// elevated role.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Watch orders and signals as staff",
		Long: `Start a staff view: subscribes to the live order and notification
streams and prints each snapshot as it arrives. Running with the staff role
also makes this process responsible for the janitor pass.

Example:
  dinesync run --config staff.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, rootOpts, model.RoleStaff)
			if err != nil {
				return err
			}
			defer a.close()

			out := cmd.OutOrStdout()
			unOrders := a.eng.OrdersBus().Subscribe(func(orders []model.Order) {
				fmt.Fprintf(out, "orders (%d):\n", len(orders))
				for _, o := range orders {
					eta, _ := a.eng.OrderETA(o.ID)
					fmt.Fprintf(out, "  %s  table=%s  %s  %.2f  %s\n",
						o.ID, o.TableID, o.Status, o.TotalAmount, eta.Phase)
				}
			})
			defer unOrders()

			unNotifs := a.eng.NotificationsBus().Subscribe(func(ns []model.Notification) {
				for _, n := range ns {
					if n.Status == model.NotifyPending {
						fmt.Fprintf(out, "signal: %s at table %s\n", n.Type, n.TableID)
					}
				}
			})
			defer unNotifs()

			fmt.Fprintln(os.Stderr, "watching; ctrl-c to stop")
			<-ctx.Done()
			return nil
		},
	}
	return cmd
}
