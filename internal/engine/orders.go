package engine

import (
	"context"
	"fmt"

	"github.com/dinesync/dinesync/internal/geo"
	"github.com/dinesync/dinesync/internal/lifecycle"
	"github.com/dinesync/dinesync/internal/model"
	"github.com/dinesync/dinesync/internal/remote"
)

// PlaceOptions configures order placement.
type PlaceOptions struct {
	// Remote marks a remote/delivery order: no table, no geofence, payment
	// starts Pending instead of None.
	Remote bool
	// SkipGeofence is the explicit customer override after a sensor
	// failure denial. It never bypasses an out-of-range denial silently;
	// the UI offers it only on the sensor-failure path.
	SkipGeofence bool
}

// PlaceOrder creates an order from the device cart.
//
// Placement is pessimistic: the cart is cleared locally only after the
// remote write succeeds, so a failed write leaves the cart intact for a
// retry. The order total is the sum of the cart's snapshotted prices and is
// never recomputed from the live menu afterwards.
//
// Dine-in placement is geofenced with a fail-closed policy: a sensor
// failure denies with an explicit error and the caller may retry with
// SkipGeofence.
func (e *Engine) PlaceOrder(ctx context.Context, opts PlaceOptions) (model.Order, error) {
	sessionID, err := e.sessions.ID(ctx)
	if err != nil {
		return model.Order{}, fmt.Errorf("place order: %w", err)
	}

	tableID := model.TableRemote
	if !opts.Remote {
		if sel, derr := e.device.SelectedTable(ctx); derr == nil && sel != "" {
			tableID = sel
		} else {
			tableID = model.TableUnassigned
		}
		if !opts.SkipGeofence {
			if gerr := e.gate(ctx).Check(ctx, geo.DenyAction); gerr != nil {
				return model.Order{}, fmt.Errorf("place order: %w", gerr)
			}
		}
	}

	cart, err := e.device.Cart(ctx)
	if err != nil {
		return model.Order{}, fmt.Errorf("place order: %w", err)
	}
	if len(cart) == 0 {
		return model.Order{}, ErrEmptyCart
	}

	items := make([]model.OrderItem, 0, len(cart))
	for _, l := range cart {
		items = append(items, model.OrderItem{
			ItemRef:   l.ItemRef,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.Price,
		})
	}

	payment := model.PaymentNone
	if opts.Remote {
		payment = model.PaymentPending
	}

	order := model.Order{
		TableID:       tableID,
		SessionID:     sessionID,
		Items:         items,
		Status:        model.StatusPending,
		PaymentStatus: payment,
		CreatedAt:     e.clk.Now(),
	}
	order.TotalAmount = order.ItemTotal()

	id, err := e.remote.AddOrder(ctx, order)
	if err != nil {
		return model.Order{}, fmt.Errorf("place order: %w", err)
	}
	order.ID = id

	if err := e.device.ClearCart(ctx); err != nil {
		// The order exists remotely; a stale cart is an annoyance, not a
		// correctness problem. Log and move on.
		e.log.Error("cart clear failed after placement", "order", id, "error", err)
	}
	return order, nil
}

// UpdateOrderStatus drives a lifecycle transition for an order.
//
// The transition is validated against the locally mirrored copy and the
// resulting patch is written unconditionally: two staff devices updating
// the same order concurrently overwrite each other, last write wins. There
// is no version check; that is the documented remote-store semantic, not an
// oversight.
func (e *Engine) UpdateOrderStatus(ctx context.Context, orderID string, to model.OrderStatus) error {
	order, ok := e.findOrder(orderID)
	if !ok {
		return ErrOrderNotFound
	}

	if to == model.StatusCancelled && !e.role.Elevated() {
		sessionID, err := e.sessions.ID(ctx)
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		if order.SessionID != sessionID {
			return ErrNotOwner
		}
	}

	res, err := lifecycle.Transition(&order, to, e.role, e.clk.Now())
	if err != nil {
		return err
	}

	patch := remote.OrderPatch{Status: &res.Status}
	if res.SetAcceptedAt != nil {
		patch.AcceptedAt = res.SetAcceptedAt
	}
	if err := e.remote.UpdateOrder(ctx, orderID, patch); err != nil {
		return fmt.Errorf("update order %s: %w", orderID, err)
	}
	return nil
}

// AssignTable commits a real table to a previously unassigned order.
// Assignment is an implicit acceptance signal: the countdown starts here if
// it has not already.
func (e *Engine) AssignTable(ctx context.Context, orderID, tableID string) error {
	if !e.role.Elevated() {
		return remote.ErrPermissionDenied
	}
	order, ok := e.findOrder(orderID)
	if !ok {
		return ErrOrderNotFound
	}

	res, err := lifecycle.AssignTable(&order, tableID, e.clk.Now())
	if err != nil {
		return err
	}

	patch := remote.OrderPatch{TableID: &tableID}
	if res.SetAcceptedAt != nil {
		patch.AcceptedAt = res.SetAcceptedAt
	}
	if err := e.remote.UpdateOrder(ctx, orderID, patch); err != nil {
		return fmt.Errorf("assign table: %w", err)
	}
	return nil
}

// SetPaymentStatus updates a remote order's payment state. Staff only.
func (e *Engine) SetPaymentStatus(ctx context.Context, orderID string, ps model.PaymentStatus) error {
	if !e.role.Elevated() {
		return remote.ErrPermissionDenied
	}
	if !ps.Valid() {
		return fmt.Errorf("unknown payment status %q", ps)
	}
	if _, ok := e.findOrder(orderID); !ok {
		return ErrOrderNotFound
	}
	if err := e.remote.UpdateOrder(ctx, orderID, remote.OrderPatch{PaymentStatus: &ps}); err != nil {
		return fmt.Errorf("set payment status: %w", err)
	}
	return nil
}

// OrderETA derives the current wait estimate for an order. Pure projection;
// recompute on every tick.
func (e *Engine) OrderETA(orderID string) (lifecycle.ETA, error) {
	order, ok := e.findOrder(orderID)
	if !ok {
		return lifecycle.ETA{}, ErrOrderNotFound
	}
	return lifecycle.Estimate(order, e.clk.Now()), nil
}

// SubmitReview records customer feedback, tagged with the session like
// every other write.
func (e *Engine) SubmitReview(ctx context.Context, rating int, comment string) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5, got %d", rating)
	}
	sessionID, err := e.sessions.ID(ctx)
	if err != nil {
		return fmt.Errorf("submit review: %w", err)
	}
	_, err = e.remote.AddReview(ctx, model.Review{
		SessionID: sessionID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: e.clk.Now(),
	})
	if err != nil {
		return fmt.Errorf("submit review: %w", err)
	}
	return nil
}

func (e *Engine) findOrder(id string) (model.Order, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, o := range e.orders {
		if o.ID == id {
			return o, true
		}
	}
	return model.Order{}, false
}
