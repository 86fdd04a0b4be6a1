// Package remote defines the contract the engine holds against the
// authoritative remote store, plus an in-process implementation used by
// tests and the demo CLI. The Postgres-backed implementation lives in the
// pg subpackage.
//
// The contract is snapshot-based: every subscription delivers the full
// current state of its collection on every change, not a diff. The local
// mirror must be fully replaceable from any delivery without merge logic.
package remote

import (
	"context"
	"time"

	"github.com/dinesync/dinesync/internal/model"
)

// Unsubscribe detaches a subscription handler. Safe to call more than once.
type Unsubscribe func()

// OrderPatch is a partial order update. Nil fields are left untouched.
// AcceptedAt is only ever set, never cleared.
type OrderPatch struct {
	Status        *model.OrderStatus
	TableID       *string
	AcceptedAt    *time.Time
	PaymentStatus *model.PaymentStatus
}

// NotificationPatch is a partial notification update.
type NotificationPatch struct {
	Status *model.NotificationStatus
}

// Store is the remote authoritative data store.
//
// Subscribe calls deliver an initial snapshot immediately and a fresh full
// snapshot after every subsequent change. Handlers must not block; they are
// invoked on the delivery goroutine of the implementation.
//
// A Subscribe call that fails (for example a permission error on the
// notifications collection for some role) returns the error to the caller;
// it must not affect other collections.
//
// Writes that fail leave the remote state untouched and return the error;
// any optimistic local state is the caller's to roll back.
type Store interface {
	SubscribeOrders(ctx context.Context, h func([]model.Order)) (Unsubscribe, error)
	SubscribeNotifications(ctx context.Context, h func([]model.Notification)) (Unsubscribe, error)
	SubscribeTables(ctx context.Context, h func([]model.Table)) (Unsubscribe, error)
	SubscribeMenu(ctx context.Context, h func([]model.MenuItem)) (Unsubscribe, error)
	SubscribeSettings(ctx context.Context, h func(model.Settings)) (Unsubscribe, error)
	SubscribeReviews(ctx context.Context, h func([]model.Review)) (Unsubscribe, error)

	// AddOrder assigns an identity and returns it.
	AddOrder(ctx context.Context, o model.Order) (string, error)
	UpdateOrder(ctx context.Context, id string, p OrderPatch) error
	DeleteOrder(ctx context.Context, id string) error

	// ArchiveOrder copies a terminal order into the archive collection.
	// The live record is removed by a separate DeleteOrder call; the pair
	// is not transactional (see the janitor).
	ArchiveOrder(ctx context.Context, o model.Order) error

	// AddNotification assigns an identity and returns it. The stored
	// record carries a remote id regardless of the id on n.
	AddNotification(ctx context.Context, n model.Notification) (string, error)
	UpdateNotification(ctx context.Context, id string, p NotificationPatch) error

	AddReview(ctx context.Context, r model.Review) (string, error)
}
