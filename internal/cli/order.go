package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dinesync/dinesync/internal/engine"
	"github.com/dinesync/dinesync/internal/geo"
	"github.com/dinesync/dinesync/internal/model"
)

// NewOrderCommand creates the order command group: cart management,
// placement, status transitions, and ETA lookup.
func NewOrderCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Manage the cart and order lifecycle",
	}
	cmd.AddCommand(newOrderAddCommand(rootOpts))
	cmd.AddCommand(newOrderPlaceCommand(rootOpts))
	cmd.AddCommand(newOrderStatusCommand(rootOpts))
	cmd.AddCommand(newOrderEtaCommand(rootOpts))
	return cmd
}

func newOrderAddCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		name  string
		qty   int
		price float64
	)
	cmd := &cobra.Command{
		Use:   "add <item-ref>",
		Short: "Add an item to the device-local cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), rootOpts, model.RoleCustomer)
			if err != nil {
				return err
			}
			defer a.close()

			line := model.CartLine{ItemRef: args[0], Name: name, Quantity: qty, Price: price}
			if err := a.dev.AddToCart(cmd.Context(), line); err != nil {
				return WrapExitError(ExitFailure, "add to cart failed", err)
			}
			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return f.Success(fmt.Sprintf("added %dx %s", qty, args[0]))
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "item name snapshot")
	cmd.Flags().IntVar(&qty, "qty", 1, "quantity")
	cmd.Flags().Float64Var(&price, "price", 0, "unit price snapshot")
	return cmd
}

func newOrderPlaceCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		remoteOrder  bool
		skipGeofence bool
	)
	cmd := &cobra.Command{
		Use:   "place",
		Short: "Place an order from the cart",
		Long: `Place an order from the device cart. Dine-in placement is geofenced;
when the position sensor fails, the denial names the failure and --skip-geofence
is the explicit override. An out-of-range denial has no override.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), rootOpts, model.RoleCustomer)
			if err != nil {
				return err
			}
			defer a.close()

			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			order, err := a.eng.PlaceOrder(cmd.Context(), engine.PlaceOptions{
				Remote:       remoteOrder,
				SkipGeofence: skipGeofence,
			})
			if err != nil {
				var rangeErr *geo.OutOfRangeError
				var sensorErr *geo.SensorError
				switch {
				case errors.As(err, &rangeErr):
					_ = f.Fail(fmt.Sprintf("%s; please ask staff for help", rangeErr.Error()))
				case errors.As(err, &sensorErr):
					_ = f.Fail(fmt.Sprintf("%s; retry with --skip-geofence to place anyway", sensorErr.Error()))
				default:
					_ = f.Fail(err.Error())
				}
				return WrapExitError(ExitFailure, "order not placed", err)
			}
			return f.Success(fmt.Sprintf("order %s placed, total %.2f", order.ID, order.TotalAmount))
		},
	}
	cmd.Flags().BoolVar(&remoteOrder, "remote", false, "remote/delivery order (no table)")
	cmd.Flags().BoolVar(&skipGeofence, "skip-geofence", false, "override a failed location check")
	return cmd
}

func newOrderStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <order-id> <status>",
		Short: "Drive an order lifecycle transition (staff)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), rootOpts, model.RoleStaff)
			if err != nil {
				return err
			}
			defer a.close()

			to := model.OrderStatus(args[1])
			if err := a.eng.UpdateOrderStatus(cmd.Context(), args[0], to); err != nil {
				return WrapExitError(ExitFailure, "transition rejected", err)
			}
			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return f.Success(fmt.Sprintf("order %s now %s", args[0], to))
		},
	}
	return cmd
}

func newOrderEtaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eta <order-id>",
		Short: "Show the current wait estimate for an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), rootOpts, model.RoleCustomer)
			if err != nil {
				return err
			}
			defer a.close()

			eta, err := a.eng.OrderETA(args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "eta unavailable", err)
			}
			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return f.Success(fmt.Sprintf("%s: %s remaining", eta.Phase, eta.Remaining.Truncate(time.Second)))
		},
	}
	return cmd
}
