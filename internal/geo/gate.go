package geo

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// MinRadiusM is the floor the configured radius is clamped to. Consumer GPS
// drifts badly in dense or mountainous terrain; a venue configured with a
// 50 m fence would lock out customers standing at their table.
const MinRadiusM = 200

// DefaultSensorTimeout bounds the single-shot position read.
const DefaultSensorTimeout = 6 * time.Second

// Position is a single sensor fix.
type Position struct {
	Latitude       float64
	Longitude      float64
	AccuracyMeters float64
}

// Sensor is the single-shot geolocation source. Implementations must honor
// ctx cancellation; the gate applies its own timeout.
type Sensor interface {
	Current(ctx context.Context) (Position, error)
}

// FailurePolicy decides what a gate does when the sensor read fails or
// times out. The divergence between gated actions is a deliberate,
// per-action configuration choice, not two hand-written code paths.
type FailurePolicy int

const (
	// AllowAction fails open: availability over enforcement. Used for the
	// call-staff signal, where blocking a customer who needs help is
	// worse than a rare out-of-range call.
	AllowAction FailurePolicy = iota + 1
	// DenyAction fails closed with an explicit error. Used for order
	// placement, where the caller offers a "skip check" override instead
	// of a silent bypass.
	DenyAction
)

// OutOfRangeError reports a successful read that landed outside the fence.
// The distance figure is part of the user-facing denial.
type OutOfRangeError struct {
	DistanceM float64
	RadiusM   float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("device is %.0f m from the venue (limit %.0f m)", e.DistanceM, e.RadiusM)
}

// SensorError reports a failed or timed-out read under DenyAction. The
// caller surfaces it with an explicit override path.
type SensorError struct {
	Cause error
}

func (e *SensorError) Error() string {
	return fmt.Sprintf("could not determine device position: %v", e.Cause)
}

func (e *SensorError) Unwrap() error { return e.Cause }

// Gate checks device proximity to a fixed venue point.
type Gate struct {
	venueLat float64
	venueLng float64
	radiusM  float64
	timeout  time.Duration
	sensor   Sensor
	log      *slog.Logger
}

// NewGate builds a gate around the venue coordinates. The radius is clamped
// to MinRadiusM; a zero timeout gets DefaultSensorTimeout.
func NewGate(venueLat, venueLng, radiusM float64, sensor Sensor, log *slog.Logger) *Gate {
	if radiusM < MinRadiusM {
		radiusM = MinRadiusM
	}
	if log == nil {
		log = slog.Default()
	}
	return &Gate{
		venueLat: venueLat,
		venueLng: venueLng,
		radiusM:  radiusM,
		timeout:  DefaultSensorTimeout,
		sensor:   sensor,
		log:      log,
	}
}

// WithTimeout overrides the sensor timeout. Returns the gate for chaining.
func (g *Gate) WithTimeout(d time.Duration) *Gate {
	if d > 0 {
		g.timeout = d
	}
	return g
}

// RadiusM returns the effective (clamped) radius.
func (g *Gate) RadiusM() float64 { return g.radiusM }

// Check reads the device position and decides whether a gated action may
// proceed.
//
// Returns nil when the action is allowed. A read inside the fence allows; a
// read outside returns *OutOfRangeError regardless of policy. A failed or
// timed-out read resolves by policy: AllowAction logs and allows, DenyAction
// returns *SensorError.
func (g *Gate) Check(ctx context.Context, policy FailurePolicy) error {
	readCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	pos, err := g.sensor.Current(readCtx)
	if err != nil {
		if policy == AllowAction {
			g.log.Warn("position read failed, failing open", "error", err)
			return nil
		}
		return &SensorError{Cause: err}
	}

	dist := DistanceM(pos.Latitude, pos.Longitude, g.venueLat, g.venueLng)
	if dist <= g.radiusM {
		return nil
	}
	return &OutOfRangeError{DistanceM: dist, RadiusM: g.radiusM}
}
