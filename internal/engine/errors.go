package engine

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrAlreadyPending is the dedup gate's refusal: this session already has a
// live signal of the requested type. It is a benign no-op, surfaced so the
// caller can tell the user the signal is still active rather than silently
// ignoring the tap.
var ErrAlreadyPending = errors.New("signal already pending for this session")

// ErrEmptyCart is returned when an order is placed with nothing in the cart.
var ErrEmptyCart = errors.New("cart is empty")

// ErrNoSignal is returned by CutSignal when the session has no pending
// signal of the requested type to cancel.
var ErrNoSignal = errors.New("no pending signal to cancel")

// ErrNotOwner is returned when a customer tries to act on an order placed
// by a different session.
var ErrNotOwner = errors.New("order belongs to another session")

// ErrOrderNotFound is returned when the referenced order is not in the
// mirror.
var ErrOrderNotFound = errors.New("order not found")

// CooldownError is the rate-limit refusal: the session signalled too
// recently. Remaining is the wait before the next attempt may succeed; it
// is part of the user-facing message, never swallowed.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("please wait %d more seconds before signalling again", e.RemainingSeconds())
}

// RemainingSeconds returns the remaining wait rounded up to whole seconds.
func (e *CooldownError) RemainingSeconds() int {
	return int(math.Ceil(e.Remaining.Seconds()))
}

// IsCooldown reports whether err is a cooldown refusal, unwrapping as
// needed.
func IsCooldown(err error) bool {
	var ce *CooldownError
	return errors.As(err, &ce)
}
