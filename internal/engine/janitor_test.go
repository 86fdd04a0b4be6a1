package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinesync/dinesync/internal/engine"
	"github.com/dinesync/dinesync/internal/model"
	"github.com/dinesync/dinesync/internal/remote"
	"github.com/dinesync/dinesync/internal/testutil"
)

func seedOrder(t *testing.T, mem *remote.MemoryStore, status model.OrderStatus, createdAt time.Time) string {
	t.Helper()
	id, err := mem.AddOrder(context.Background(), model.Order{
		TableID:   "3",
		SessionID: "seed-session",
		Status:    status,
		CreatedAt: createdAt,
	})
	require.NoError(t, err)
	return id
}

func orderIDs(orders []model.Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}

func TestJanitor_ExpiresAbandonedAndArchivesFinished(t *testing.T) {
	mem := remote.NewMemoryStore()
	mem.Seed(nil, nil, testSettings())
	clk := testutil.NewClock(testStart)

	staleID := seedOrder(t, mem, model.StatusPending, testStart.Add(-11*time.Minute))
	freshID := seedOrder(t, mem, model.StatusPending, testStart.Add(-9*time.Minute))
	yesterdayPaid := seedOrder(t, mem, model.StatusPaid, testStart.Add(-16*time.Hour))
	yesterdayRejected := seedOrder(t, mem, model.StatusRejected, testStart.Add(-16*time.Hour))
	todayPaid := seedOrder(t, mem, model.StatusPaid, testStart.Add(-3*time.Hour))
	yesterdayServed := seedOrder(t, mem, model.StatusServed, testStart.Add(-16*time.Hour))

	// The pass runs on the initial snapshot delivered to a privileged device.
	newEngine(t, mem, clk, engine.WithRole(model.RoleStaff))

	live := orderIDs(mem.Orders())
	assert.NotContains(t, live, staleID, "11-minute pending order is abandoned")
	assert.Contains(t, live, freshID, "9-minute pending order is still live")
	assert.NotContains(t, live, yesterdayPaid)
	assert.NotContains(t, live, yesterdayRejected)
	assert.Contains(t, live, todayPaid, "today's finished orders stay until tomorrow")
	assert.Contains(t, live, yesterdayServed, "served is not terminal; never archived")

	archived := orderIDs(mem.Archived())
	assert.ElementsMatch(t, []string{yesterdayPaid, yesterdayRejected}, archived)
}

func TestJanitor_NeverRunsForCustomers(t *testing.T) {
	mem := remote.NewMemoryStore()
	mem.Seed(nil, nil, testSettings())
	clk := testutil.NewClock(testStart)

	seedOrder(t, mem, model.StatusPending, testStart.Add(-2*time.Hour))
	seedOrder(t, mem, model.StatusPaid, testStart.Add(-30*time.Hour))

	newEngine(t, mem, clk)

	assert.Len(t, mem.Orders(), 2, "customer devices must not issue deletes")
	assert.Empty(t, mem.Archived())
}

func TestJanitor_ExpiryThresholdConfigurable(t *testing.T) {
	mem := remote.NewMemoryStore()
	mem.Seed(nil, nil, testSettings())
	clk := testutil.NewClock(testStart)

	id := seedOrder(t, mem, model.StatusPending, testStart.Add(-3*time.Minute))
	newEngine(t, mem, clk,
		engine.WithRole(model.RoleStaff),
		engine.WithPendingExpiry(2*time.Minute))

	assert.NotContains(t, orderIDs(mem.Orders()), id)
}
