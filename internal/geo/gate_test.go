package geo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	venueLat = 41.3275
	venueLng = 19.8187
)

type stubSensor struct {
	pos   Position
	err   error
	delay time.Duration
}

func (s stubSensor) Current(ctx context.Context) (Position, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Position{}, ctx.Err()
		}
	}
	return s.pos, s.err
}

func TestGate_AllowsInsideFence(t *testing.T) {
	g := NewGate(venueLat, venueLng, 200, stubSensor{
		pos: Position{Latitude: venueLat, Longitude: venueLng, AccuracyMeters: 10},
	}, nil)

	assert.NoError(t, g.Check(context.Background(), DenyAction))
	assert.NoError(t, g.Check(context.Background(), AllowAction))
}

func TestGate_DeniesOutsideFenceWithDistance(t *testing.T) {
	// About 1.1 degrees of latitude away: far outside any sane fence.
	g := NewGate(venueLat, venueLng, 500, stubSensor{
		pos: Position{Latitude: venueLat + 1.1, Longitude: venueLng},
	}, nil)

	err := g.Check(context.Background(), AllowAction)
	require.Error(t, err)

	var oor *OutOfRangeError
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, 500.0, oor.RadiusM)
	assert.Greater(t, oor.DistanceM, 100_000.0)
	// The denial message carries the distance figure.
	assert.Contains(t, err.Error(), "m from the venue")
}

// The call-staff policy: a sensor failure must not block the customer.
func TestGate_SensorFailureFailsOpen(t *testing.T) {
	g := NewGate(venueLat, venueLng, 200, stubSensor{err: errors.New("denied")}, nil)
	assert.NoError(t, g.Check(context.Background(), AllowAction))
}

// The order-placement policy: a sensor failure denies with an explicit
// error the caller can offer an override for.
func TestGate_SensorFailureFailsClosed(t *testing.T) {
	cause := errors.New("denied")
	g := NewGate(venueLat, venueLng, 200, stubSensor{err: cause}, nil)

	err := g.Check(context.Background(), DenyAction)
	require.Error(t, err)

	var se *SensorError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, cause)
}

func TestGate_TimeoutResolvesByPolicy(t *testing.T) {
	slow := stubSensor{
		pos:   Position{Latitude: venueLat, Longitude: venueLng},
		delay: 200 * time.Millisecond,
	}

	g := NewGate(venueLat, venueLng, 200, slow, nil).WithTimeout(20 * time.Millisecond)
	assert.NoError(t, g.Check(context.Background(), AllowAction))

	var se *SensorError
	err := g.Check(context.Background(), DenyAction)
	require.ErrorAs(t, err, &se)
}

func TestGate_RadiusClampedToFloor(t *testing.T) {
	g := NewGate(venueLat, venueLng, 50, stubSensor{}, nil)
	assert.Equal(t, float64(MinRadiusM), g.RadiusM())

	// About 140 m away: outside the configured 50 m, inside the floor.
	near := stubSensor{pos: Position{Latitude: venueLat, Longitude: venueLng + 0.00167}}
	g = NewGate(venueLat, venueLng, 50, near, nil)
	assert.NoError(t, g.Check(context.Background(), DenyAction))
}
