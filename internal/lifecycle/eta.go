package lifecycle

import (
	"time"

	"github.com/dinesync/dinesync/internal/model"
)

// ETA is a read-only projection of an order's wait estimate. It is
// recomputed on every tick and never persisted: the phase boundaries are
// policy, and storing derived values would turn a policy change into a data
// migration.
type ETA struct {
	// Phase is the user-facing label for the current wait segment.
	Phase string
	// Remaining is the time left in the current phase, clamped at zero.
	Remaining time.Duration
	// Progress is Remaining over the phase's length, clamped to [0, 1].
	// Drives the progress bar.
	Progress float64
}

// phase boundaries, measured from the acceptance (or creation) instant.
// Each phase ends at Until; its length is Until minus the previous bound.
var phases = []struct {
	label string
	until time.Duration
}{
	{"Estimated Prep Time", 30 * time.Minute},
	{"Slight Delay", 50 * time.Minute},
	{"Almost Ready", 60 * time.Minute},
	{"Final Touches", 65 * time.Minute},
}

// lateLabel is the open-ended final phase.
const lateLabel = "Running Late"

// Estimate derives the current ETA for an order.
//
// Elapsed time is measured from AcceptedAt when set, else CreatedAt. An
// order whose acceptance is still withheld (unassigned table) therefore
// counts from creation, which is the conservative choice for the customer.
func Estimate(o model.Order, now time.Time) ETA {
	start := o.CreatedAt
	if o.AcceptedAt != nil {
		start = *o.AcceptedAt
	}
	elapsed := now.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}

	prev := time.Duration(0)
	for _, p := range phases {
		if elapsed < p.until {
			remaining := p.until - elapsed
			length := p.until - prev
			progress := float64(remaining) / float64(length)
			if progress > 1 {
				progress = 1
			}
			return ETA{Phase: p.label, Remaining: remaining, Progress: progress}
		}
		prev = p.until
	}
	return ETA{Phase: lateLabel, Remaining: 0, Progress: 0}
}
