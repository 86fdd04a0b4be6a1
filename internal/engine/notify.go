package engine

import (
	"context"
	"fmt"

	"github.com/dinesync/dinesync/internal/geo"
	"github.com/dinesync/dinesync/internal/model"
	"github.com/dinesync/dinesync/internal/remote"
)

// CallStaff raises a call_staff signal for this session's table.
//
// The geofence check fails open: a customer who needs help is never blocked
// by a flaky sensor. Creation is optimistic; the round trip to the remote
// store is hidden behind an immediately visible placeholder.
func (e *Engine) CallStaff(ctx context.Context) error {
	return e.signal(ctx, model.NotifyCallStaff)
}

// RequestBill raises a bill_request signal. Same gate machinery as
// CallStaff with its own pending key.
func (e *Engine) RequestBill(ctx context.Context) error {
	return e.signal(ctx, model.NotifyBillRequest)
}

// signal runs the full gate chain for a customer signal: geofence, dedup,
// cooldown, then the optimistic write pipeline.
func (e *Engine) signal(ctx context.Context, typ model.NotificationType) error {
	sessionID, err := e.sessions.ID(ctx)
	if err != nil {
		return fmt.Errorf("signal %s: %w", typ, err)
	}

	if err := e.gate(ctx).Check(ctx, geo.AllowAction); err != nil {
		return fmt.Errorf("signal %s: %w", typ, err)
	}

	tableID, derr := e.device.SelectedTable(ctx)
	if derr != nil {
		tableID = model.TableUnassigned
	}

	now := e.clk.Now()

	e.mu.Lock()
	// Dedup: at most one pending signal per (session, type). Placeholders
	// count, so rapid taps while the first write is in flight are no-ops.
	for _, n := range e.composeNotificationsLocked() {
		if n.SessionID == sessionID && n.Type == typ && n.Status == model.NotifyPending {
			e.mu.Unlock()
			return ErrAlreadyPending
		}
	}
	// Cooldown: session-wide, across signal types.
	if !e.lastSignalAt.IsZero() {
		if elapsed := now.Sub(e.lastSignalAt); elapsed < e.cooldown {
			remaining := e.cooldown - elapsed
			e.mu.Unlock()
			return &CooldownError{Remaining: remaining}
		}
	}

	// Optimistic insert: placeholder visible immediately under a local id.
	placeholder := model.Notification{
		ID:        model.LocalID(e.ids.NewID()),
		TableID:   tableID,
		SessionID: sessionID,
		Type:      typ,
		Status:    model.NotifyPending,
		CreatedAt: now,
	}
	e.placeholders = append(e.placeholders, placeholder)
	view := e.composeNotificationsLocked()
	e.mu.Unlock()
	e.notificationsBus.Publish(view)

	realID, err := e.remote.AddNotification(ctx, placeholder)
	if err != nil {
		e.evictPlaceholder(placeholder.ID.Value)
		return fmt.Errorf("signal %s: %w", typ, err)
	}
	e.promotePlaceholder(placeholder.ID.Value, realID)
	return nil
}

// promotePlaceholder swaps the placeholder's identity for the remote one in
// place. The record is not removed and re-added: its slot in the view is
// stable, so the UI never flickers and the dedup key never has a gap.
func (e *Engine) promotePlaceholder(localID, remoteID string) {
	e.mu.Lock()
	for i := range e.placeholders {
		if e.placeholders[i].ID.Local() && e.placeholders[i].ID.Value == localID {
			e.placeholders[i].ID = model.RemoteID(remoteID)
			break
		}
	}
	e.lastSignalAt = e.clk.Now()
	view := e.composeNotificationsLocked()
	e.mu.Unlock()
	e.notificationsBus.Publish(view)
}

// evictPlaceholder removes an optimistic record whose write failed.
func (e *Engine) evictPlaceholder(localID string) {
	e.mu.Lock()
	kept := e.placeholders[:0]
	for _, p := range e.placeholders {
		if !(p.ID.Local() && p.ID.Value == localID) {
			kept = append(kept, p)
		}
	}
	e.placeholders = kept
	view := e.composeNotificationsLocked()
	e.mu.Unlock()
	e.notificationsBus.Publish(view)
}

// CutCall cancels this session's pending call_staff signal.
func (e *Engine) CutCall(ctx context.Context) error {
	return e.CutSignal(ctx, model.NotifyCallStaff)
}

// CutSignal resolves the session's own pending signal of the given type.
//
// Lookup order: the session's own record by (session, type, pending); then
// the (table, type, pending) fallback restricted to records missing a
// session tag, so one session can never cancel another's signal. If the
// session's record still carries a temporary identity, resolution goes
// through the (table, type) fallback because the placeholder id is not yet
// known server-side.
//
// The primary lookup runs over the merged view, not the snapshot mirror
// alone: on a device whose notifications subscription is unavailable, or
// while a snapshot delivery lags the write acknowledgment, the session's
// signal exists only as a promoted placeholder. Its remote identity is
// known, so resolution proceeds against it like any mirrored record.
func (e *Engine) CutSignal(ctx context.Context, typ model.NotificationType) error {
	sessionID, err := e.sessions.ID(ctx)
	if err != nil {
		return fmt.Errorf("cut %s: %w", typ, err)
	}
	tableID, derr := e.device.SelectedTable(ctx)
	if derr != nil {
		tableID = model.TableUnassigned
	}

	e.mu.Lock()
	target, ok := findPending(e.composeNotificationsLocked(), func(n model.Notification) bool {
		return !n.ID.Local() && n.SessionID == sessionID && n.Type == typ
	})
	if !ok {
		// Own record not acknowledged yet, or a legacy record without a
		// session tag: fall back to the table key.
		hasLocal := false
		for _, p := range e.placeholders {
			if p.ID.Local() && p.SessionID == sessionID && p.Type == typ && p.Status == model.NotifyPending {
				hasLocal = true
			}
		}
		target, ok = findPending(e.notifications, func(n model.Notification) bool {
			if n.TableID != tableID || n.Type != typ {
				return false
			}
			return n.SessionID == "" || (hasLocal && n.SessionID == sessionID)
		})
	}
	e.mu.Unlock()

	if !ok {
		return ErrNoSignal
	}

	resolved := model.NotifyResolved
	if err := e.remote.UpdateNotification(ctx, target.ID.Value, remote.NotificationPatch{Status: &resolved}); err != nil {
		return fmt.Errorf("cut %s: %w", typ, err)
	}

	// Drop any placeholder covering the same signal so the local view
	// clears without waiting for the next snapshot.
	e.mu.Lock()
	kept := e.placeholders[:0]
	for _, p := range e.placeholders {
		if p.SessionID == sessionID && p.Type == typ {
			continue
		}
		kept = append(kept, p)
	}
	e.placeholders = kept
	view := e.composeNotificationsLocked()
	e.mu.Unlock()
	e.notificationsBus.Publish(view)
	return nil
}

// ResolveNotification flips any notification to resolved by identity. Staff
// action; unlike CutSignal it is not restricted to the local session.
func (e *Engine) ResolveNotification(ctx context.Context, id string) error {
	if !e.role.Elevated() {
		return remote.ErrPermissionDenied
	}
	resolved := model.NotifyResolved
	if err := e.remote.UpdateNotification(ctx, id, remote.NotificationPatch{Status: &resolved}); err != nil {
		return fmt.Errorf("resolve notification: %w", err)
	}
	return nil
}

func findPending(ns []model.Notification, match func(model.Notification) bool) (model.Notification, bool) {
	for _, n := range ns {
		if n.Status == model.NotifyPending && match(n) {
			return n, true
		}
	}
	return model.Notification{}, false
}
