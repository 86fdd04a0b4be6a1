package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/dinesync/dinesync/internal/engine"
	"github.com/dinesync/dinesync/internal/model"
)

// NewCallCommand creates the call command group: raise and cancel customer
// signals.
func NewCallCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call",
		Short: "Raise or cancel staff signals",
	}
	cmd.AddCommand(newCallStaffCommand(rootOpts))
	cmd.AddCommand(newCallBillCommand(rootOpts))
	cmd.AddCommand(newCallCutCommand(rootOpts))
	return cmd
}

func signalRunE(rootOpts *RootOptions, raise func(a *app, cmd *cobra.Command) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), rootOpts, model.RoleCustomer)
		if err != nil {
			return err
		}
		defer a.close()

		f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
		if err := raise(a, cmd); err != nil {
			var cool *engine.CooldownError
			switch {
			case errors.Is(err, engine.ErrAlreadyPending):
				return f.Success("signal already active; staff are on their way")
			case errors.As(err, &cool):
				_ = f.Fail(cool.Error())
			default:
				_ = f.Fail(err.Error())
			}
			return WrapExitError(ExitFailure, "signal not sent", err)
		}
		return f.Success("signal sent")
	}
}

func newCallStaffCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "staff",
		Short:         "Call staff to the table",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: signalRunE(rootOpts, func(a *app, cmd *cobra.Command) error {
			return a.eng.CallStaff(cmd.Context())
		}),
	}
}

func newCallBillCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "bill",
		Short:         "Request the bill",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: signalRunE(rootOpts, func(a *app, cmd *cobra.Command) error {
			return a.eng.RequestBill(cmd.Context())
		}),
	}
}

func newCallCutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "cut",
		Short:         "Cancel this device's pending staff call",
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
			if err := a.eng.CutCall(cmd.Context()); err != nil {
				if errors.Is(err, engine.ErrNoSignal) {
					return f.Success("no pending call to cancel")
				}
				_ = f.Fail(err.Error())
				return WrapExitError(ExitFailure, "cancel failed", err)
			}
			return f.Success("call cancelled")
		},
	}
}
