package engine_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dinesync/dinesync/internal/device"
	"github.com/dinesync/dinesync/internal/engine"
	"github.com/dinesync/dinesync/internal/geo"
	"github.com/dinesync/dinesync/internal/model"
	"github.com/dinesync/dinesync/internal/remote"
	"github.com/dinesync/dinesync/internal/testutil"
)

const (
	venueLat = 41.3275
	venueLng = 19.8187
)

var testStart = time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)

// atVenue is a sensor pinned to the venue point.
type atVenue struct{}

func (atVenue) Current(context.Context) (geo.Position, error) {
	return geo.Position{Latitude: venueLat, Longitude: venueLng}, nil
}

// farAway is a sensor fixed well outside any fence.
type farAway struct{}

func (farAway) Current(context.Context) (geo.Position, error) {
	return geo.Position{Latitude: venueLat + 1, Longitude: venueLng}, nil
}

// brokenSensor always fails, like a device with location permission denied.
type brokenSensor struct{}

func (brokenSensor) Current(context.Context) (geo.Position, error) {
	return geo.Position{}, errors.New("location permission denied")
}

func testSettings() model.Settings {
	return model.Settings{
		VenueLat:        venueLat,
		VenueLng:        venueLng,
		GeofenceRadiusM: 200,
		ContactPhone:    "+355 4 2222 222",
	}
}

// newEngine wires an engine over the shared store with its own device db,
// seeds venue settings if the store has none yet, and starts it.
func newEngine(t *testing.T, mem *remote.MemoryStore, clk *testutil.Clock, opts ...engine.Option) (*engine.Engine, *device.Store) {
	t.Helper()

	dev, err := device.Open(filepath.Join(t.TempDir(), "device.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })

	base := []engine.Option{
		engine.WithClock(clk),
		engine.WithSensor(atVenue{}),
		engine.WithIDSource(testutil.NewIDs("local")),
	}
	e := engine.New(mem, dev, append(base, opts...)...)
	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(e.Close)
	return e, dev
}

func addLine(t *testing.T, dev *device.Store, ref, name string, qty int, price float64) {
	t.Helper()
	require.NoError(t, dev.AddToCart(context.Background(), model.CartLine{
		ItemRef: ref, Name: name, Quantity: qty, Price: price,
	}))
}

func pendingOf(ns []model.Notification, typ model.NotificationType) []model.Notification {
	var out []model.Notification
	for _, n := range ns {
		if n.Type == typ && n.Status == model.NotifyPending {
			out = append(out, n)
		}
	}
	return out
}
