// Package lifecycle is the order state machine. Every status change and the
// acceptance-timestamp side effect goes through the guarded transition
// functions here; call sites never mutate Order.Status directly.
//
// The machine is monotonic forward:
//
//	Pending → Preparing → Ready → Served → Paid
//
// with Pending → Rejected and any pre-Served state → Cancelled as terminal
// alternates. Terminal states permit no further transitions.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/dinesync/dinesync/internal/model"
)

// TransitionError is a guard rejection: the requested change violates the
// machine or the actor's privilege. It is a defined refusal, not a fault.
type TransitionError struct {
	OrderID string
	From    model.OrderStatus
	To      model.OrderStatus
	Reason  string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order %s: cannot move %s -> %s: %s", e.OrderID, e.From, e.To, e.Reason)
}

func reject(o *model.Order, to model.OrderStatus, reason string) error {
	return &TransitionError{OrderID: o.ID, From: o.Status, To: to, Reason: reason}
}

// next defines the single permitted forward step for each non-terminal state.
var next = map[model.OrderStatus]model.OrderStatus{
	model.StatusPending:   model.StatusPreparing,
	model.StatusPreparing: model.StatusReady,
	model.StatusReady:     model.StatusServed,
	model.StatusServed:    model.StatusPaid,
}

// Result describes what a transition decided: the new status and whether the
// acceptance timestamp must be set. The caller turns this into a remote
// patch; the machine itself does not write anywhere.
type Result struct {
	Status model.OrderStatus
	// SetAcceptedAt is non-nil when the transition sets the acceptance
	// timestamp. It is set at most once in an order's life.
	SetAcceptedAt *time.Time
}

// Transition validates a status change requested by an actor.
//
// Precondition: to.Valid(). Privilege: every transition is staff-only; the
// customer's only lifecycle action is Cancel, which is allowed for the
// session that created the order while it is pre-Served.
//
// Accepting a Pending order (→ Preparing) sets AcceptedAt once, and only if
// the order already has a real table. An unassigned order can start
// Preparing, but its countdown is deliberately withheld until a table is
// committed, so the customer never watches an ETA for food nobody has
// started plating a table for.
func Transition(o *model.Order, to model.OrderStatus, by model.Role, now time.Time) (Result, error) {
	if !to.Valid() {
		return Result{}, reject(o, to, "unknown status")
	}
	if o.Status.Terminal() {
		return Result{}, reject(o, to, "order is in a terminal state")
	}

	switch to {
	case model.StatusRejected:
		if !by.Elevated() {
			return Result{}, reject(o, to, "staff only")
		}
		if o.Status != model.StatusPending {
			return Result{}, reject(o, to, "only pending orders can be rejected")
		}
		return Result{Status: to}, nil

	case model.StatusCancelled:
		if o.Status == model.StatusServed {
			return Result{}, reject(o, to, "order already served")
		}
		return Result{Status: to}, nil

	default:
		if !by.Elevated() {
			return Result{}, reject(o, to, "staff only")
		}
		if next[o.Status] != to {
			return Result{}, reject(o, to, fmt.Sprintf("next permitted status is %s", next[o.Status]))
		}
		res := Result{Status: to}
		if o.Status == model.StatusPending && o.AcceptedAt == nil && model.RealTable(o.TableID) {
			at := now
			res.SetAcceptedAt = &at
		}
		return res, nil
	}
}

// AssignTable validates assigning a real table to an order.
//
// Table assignment is itself an implicit acceptance signal for remote and
// walk-in orders: if AcceptedAt is unset it is set now, regardless of the
// current status.
func AssignTable(o *model.Order, tableID string, now time.Time) (Result, error) {
	if !model.RealTable(tableID) {
		return Result{}, reject(o, o.Status, fmt.Sprintf("table id %q is not a real table", tableID))
	}
	if o.Status.Terminal() {
		return Result{}, reject(o, o.Status, "order is in a terminal state")
	}
	res := Result{Status: o.Status}
	if o.AcceptedAt == nil {
		at := now
		res.SetAcceptedAt = &at
	}
	return res, nil
}
