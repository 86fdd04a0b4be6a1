package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinesync/dinesync/internal/engine"
	"github.com/dinesync/dinesync/internal/model"
	"github.com/dinesync/dinesync/internal/remote"
	"github.com/dinesync/dinesync/internal/testutil"
)

func TestEngine_StartIsSingleShot(t *testing.T) {
	mem := remote.NewMemoryStore()
	mem.Seed(nil, nil, testSettings())
	clk := testutil.NewClock(testStart)
	e, _ := newEngine(t, mem, clk)

	assert.Error(t, e.Start(context.Background()))
}

func TestEngine_MirrorsReferenceData(t *testing.T) {
	mem := remote.NewMemoryStore()
	mem.Seed(
		[]model.Table{{ID: "1", Name: "Window 1"}, {ID: "2", Name: "Terrace"}},
		[]model.MenuItem{{ID: "byrek", Name: "Byrek", Category: "bakery", Price: 2.50, Available: true}},
		testSettings(),
	)
	clk := testutil.NewClock(testStart)
	e, _ := newEngine(t, mem, clk)

	assert.Len(t, e.Tables(), 2)
	assert.Len(t, e.Menu(), 1)
	assert.Equal(t, testSettings(), e.Settings(context.Background()))
}

// A role the remote store will not show notifications to still gets a
// working engine: the collection mirror stays empty and the optimistic
// pipeline carries its own records.
func TestEngine_DegradedNotificationSubscription(t *testing.T) {
	mem := remote.NewMemoryStore()
	mem.DenyNotifications = true
	mem.Seed(nil, nil, testSettings())
	clk := testutil.NewClock(testStart)
	e, _ := newEngine(t, mem, clk)

	ctx := context.Background()
	require.NoError(t, e.CallStaff(ctx))

	// The write landed remotely even though the snapshot stream is closed
	// to this role; locally the promoted placeholder represents it.
	require.Len(t, mem.Notifications(), 1)
	view := e.Notifications()
	require.Len(t, view, 1)
	assert.False(t, view[0].ID.Local())

	// Dedup keeps working off the placeholder alone.
	assert.ErrorIs(t, e.CallStaff(ctx), engine.ErrAlreadyPending)
}

// Settings snapshots refresh the on-device cache, so a device that later
// starts without a settings subscription still has venue data.
func TestEngine_SettingsCachedOnDevice(t *testing.T) {
	mem := remote.NewMemoryStore()
	mem.Seed(nil, nil, testSettings())
	clk := testutil.NewClock(testStart)
	_, dev := newEngine(t, mem, clk)

	cached, err := dev.CachedSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testSettings(), cached)
}
