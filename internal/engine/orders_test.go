package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinesync/dinesync/internal/engine"
	"github.com/dinesync/dinesync/internal/geo"
	"github.com/dinesync/dinesync/internal/model"
	"github.com/dinesync/dinesync/internal/remote"
	"github.com/dinesync/dinesync/internal/testutil"
)

func TestPlaceOrder_TotalFromSnapshottedPrices(t *testing.T) {
	mem := remote.NewMemoryStore()
	mem.Seed(nil, nil, testSettings())
	clk := testutil.NewClock(testStart)
	e, dev := newEngine(t, mem, clk)

	ctx := context.Background()
	require.NoError(t, dev.SetSelectedTable(ctx, "5"))
	addLine(t, dev, "byrek", "Byrek", 3, 2.50)
	addLine(t, dev, "tave", "Tave Kosi", 2, 8.00)

	order, err := e.PlaceOrder(ctx, engine.PlaceOptions{})
	require.NoError(t, err)

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, "5", order.TableID)
	assert.Equal(t, model.StatusPending, order.Status)
	assert.Equal(t, model.PaymentNone, order.PaymentStatus)
	assert.InDelta(t, 23.50, order.TotalAmount, 1e-9)
	assert.Nil(t, order.AcceptedAt)

	// Placement consumed the cart.
	lines, err := dev.Cart(ctx)
	require.NoError(t, err)
	assert.Empty(t, lines)

	stored := mem.Orders()
	require.Len(t, stored, 1)
	assert.Equal(t, order.ID, stored[0].ID)
}

func TestPlaceOrder_TotalImmuneToLaterMenuChange(t *testing.T) {
	mem := remote.NewMemoryStore()
	mem.Seed(nil,
		[]model.MenuItem{{ID: "byrek", Name: "Byrek", Price: 2.50, Available: true}},
		testSettings())
	clk := testutil.NewClock(testStart)
	e, dev := newEngine(t, mem, clk)

	ctx := context.Background()
	addLine(t, dev, "byrek", "Byrek", 2, 2.50)
	order, err := e.PlaceOrder(ctx, engine.PlaceOptions{})
	require.NoError(t, err)
	require.InDelta(t, 5.00, order.TotalAmount, 1e-9)

	// The venue raises the price after placement. The stored order keeps
	// the totals and unit prices snapshotted at add-to-cart time.
	mem.Seed(nil,
		[]model.MenuItem{{ID: "byrek", Name: "Byrek", Price: 4.00, Available: true}},
		testSettings())

	require.Len(t, e.Menu(), 1)
	assert.Equal(t, 4.00, e.Menu()[0].Price)

	stored := mem.Orders()[0]
	assert.InDelta(t, 5.00, stored.TotalAmount, 1e-9)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, 2.50, stored.Items[0].UnitPrice)
	assert.InDelta(t, 5.00, stored.ItemTotal(), 1e-9)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	mem := remote.NewMemoryStore()
	mem.Seed(nil, nil, testSettings())
	clk := testutil.NewClock(testStart)
	e, _ := newEngine(t, mem, clk)

	_, err := e.PlaceOrder(context.Background(), engine.PlaceOptions{})
	assert.ErrorIs(t, err, engine.ErrEmptyCart)
}

func TestPlaceOrder_FailedWriteLeavesCartIntact(t *testing.T) {
	mem := remote.NewMemoryStore()
	mem.Seed(nil, nil, testSettings())
	clk := testutil.NewClock(testStart)
	e, dev := newEngine(t, mem, clk)

	ctx := context.Background()
	addLine(t, dev, "byrek", "Byrek", 1, 2.50)

	boom := errors.New("remote unavailable")
	mem.FailWrites = boom
	_, err := e.PlaceOrder(ctx, engine.PlaceOptions{})
	require.ErrorIs(t, err, boom)

	lines, lerr := dev.Cart(ctx)
	require.NoError(t, lerr)
	assert.Len(t, lines, 1, "cart must survive a failed placement for retry")

	mem.FailWrites = nil
	_, err = e.PlaceOrder(ctx, engine.PlaceOptions{})
	assert.NoError(t, err)
}

func TestPlaceOrder_DineInGeofenceFailsClosed(t *testing.T) {
	mem := remote.NewMemoryStore()
	mem.Seed(nil, nil, testSettings())
	clk := testutil.NewClock(testStart)
	e, dev := newEngine(t, mem, clk, engine.WithSensor(brokenSensor{}))

	ctx := context.Background()
	addLine(t, dev, "byrek", "Byrek", 1, 2.50)

	_, err := e.PlaceOrder(ctx, engine.PlaceOptions{})
	var se *geo.SensorError
	require.ErrorAs(t, err, &se)
	assert.Empty(t, mem.Orders())

	// The explicit override goes through on the same cart.
	order, err := e.PlaceOrder(ctx, engine.PlaceOptions{SkipGeofence: true})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, order.Status)
}

func TestPlaceOrder_RemoteSkipsFenceAndTable(t *testing.T) {
	mem := remote.NewMemoryStore()
	mem.Seed(nil, nil, testSettings())
	clk := testutil.NewClock(testStart)
	e, dev := newEngine(t, mem, clk, engine.WithSensor(brokenSensor{}))

	ctx := context.Background()
	addLine(t, dev, "tave", "Tave Kosi", 1, 8.00)

	order, err := e.PlaceOrder(ctx, engine.PlaceOptions{Remote: true})
	require.NoError(t, err)
	assert.Equal(t, model.TableRemote, order.TableID)
	assert.Equal(t, model.PaymentPending, order.PaymentStatus)
}

// A walk-in order without a table selection: acceptance is withheld until
// staff assign a real table, and assignment starts the countdown.
func TestOrderFlow_AcceptanceWithheldUntilTableAssigned(t *testing.T) {
	mem := remote.NewMemoryStore()
	mem.Seed(nil, nil, testSettings())
	clk := testutil.NewClock(testStart)

	customer, custDev := newEngine(t, mem, clk)
	staff, _ := newEngine(t, mem, clk, engine.WithRole(model.RoleStaff))

	ctx := context.Background()
	addLine(t, custDev, "byrek", "Byrek", 1, 2.50)
	order, err := customer.PlaceOrder(ctx, engine.PlaceOptions{})
	require.NoError(t, err)
	assert.Equal(t, model.TableUnassigned, order.TableID)

	// Kitchen starts cooking before the host seats the party: the order
	// advances but the countdown must not start against a phantom table.
	require.NoError(t, staff.UpdateOrderStatus(ctx, order.ID, model.StatusPreparing))
	got := mem.Orders()[0]
	assert.Equal(t, model.StatusPreparing, got.Status)
	assert.Nil(t, got.AcceptedAt)

	clk.Advance(2 * time.Minute)
	require.NoError(t, staff.AssignTable(ctx, order.ID, "9"))
	got = mem.Orders()[0]
	assert.Equal(t, "9", got.TableID)
	require.NotNil(t, got.AcceptedAt)
	assert.Equal(t, clk.Now(), got.AcceptedAt.UTC())

	// ETA counts from acceptance, not creation.
	clk.Advance(10 * time.Minute)
	eta, err := staff.OrderETA(order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Estimated Prep Time", eta.Phase)
	assert.Equal(t, 20*time.Minute, eta.Remaining)
}

func TestUpdateOrderStatus_CustomerCancelsOwnOrderOnly(t *testing.T) {
	mem := remote.NewMemoryStore()
	mem.Seed(nil, nil, testSettings())
	clk := testutil.NewClock(testStart)

	owner, ownerDev := newEngine(t, mem, clk)
	other, _ := newEngine(t, mem, clk)

	ctx := context.Background()
	addLine(t, ownerDev, "byrek", "Byrek", 1, 2.50)
	order, err := owner.PlaceOrder(ctx, engine.PlaceOptions{})
	require.NoError(t, err)

	assert.ErrorIs(t, other.UpdateOrderStatus(ctx, order.ID, model.StatusCancelled), engine.ErrNotOwner)
	require.NoError(t, owner.UpdateOrderStatus(ctx, order.ID, model.StatusCancelled))
	assert.Equal(t, model.StatusCancelled, mem.Orders()[0].Status)
}

func TestUpdateOrderStatus_CustomerCannotAdvance(t *testing.T) {
	mem := remote.NewMemoryStore()
	mem.Seed(nil, nil, testSettings())
	clk := testutil.NewClock(testStart)
	e, dev := newEngine(t, mem, clk)

	ctx := context.Background()
	addLine(t, dev, "byrek", "Byrek", 1, 2.50)
	order, err := e.PlaceOrder(ctx, engine.PlaceOptions{})
	require.NoError(t, err)

	err = e.UpdateOrderStatus(ctx, order.ID, model.StatusPreparing)
	require.Error(t, err)
	assert.Equal(t, model.StatusPending, mem.Orders()[0].Status)
}

func TestUpdateOrderStatus_UnknownOrder(t *testing.T) {
	mem := remote.NewMemoryStore()
	mem.Seed(nil, nil, testSettings())
	clk := testutil.NewClock(testStart)
	e, _ := newEngine(t, mem, clk, engine.WithRole(model.RoleStaff))

	err := e.UpdateOrderStatus(context.Background(), "missing", model.StatusPreparing)
	assert.ErrorIs(t, err, engine.ErrOrderNotFound)
}

func TestSetPaymentStatus_StaffOnly(t *testing.T) {
	mem := remote.NewMemoryStore()
	mem.Seed(nil, nil, testSettings())
	clk := testutil.NewClock(testStart)

	customer, custDev := newEngine(t, mem, clk)
	staff, _ := newEngine(t, mem, clk, engine.WithRole(model.RoleStaff))

	ctx := context.Background()
	addLine(t, custDev, "tave", "Tave Kosi", 1, 8.00)
	order, err := customer.PlaceOrder(ctx, engine.PlaceOptions{Remote: true})
	require.NoError(t, err)

	assert.ErrorIs(t,
		customer.SetPaymentStatus(ctx, order.ID, model.PaymentConfirmed),
		remote.ErrPermissionDenied)

	require.NoError(t, staff.SetPaymentStatus(ctx, order.ID, model.PaymentConfirmed))
	assert.Equal(t, model.PaymentConfirmed, mem.Orders()[0].PaymentStatus)
}

func TestSubmitReview_RatingBounds(t *testing.T) {
	mem := remote.NewMemoryStore()
	mem.Seed(nil, nil, testSettings())
	clk := testutil.NewClock(testStart)
	e, _ := newEngine(t, mem, clk)

	ctx := context.Background()
	assert.Error(t, e.SubmitReview(ctx, 0, "no"))
	assert.Error(t, e.SubmitReview(ctx, 6, "too good"))
	assert.NoError(t, e.SubmitReview(ctx, 5, "shume mire"))
}
