package engine

import (
	"context"
	"time"

	"github.com/dinesync/dinesync/internal/model"
)

// runJanitor is the background reconciliation pass. It runs on every orders
// snapshot delivered to an elevated role:
//
//  1. Pending orders older than the expiry threshold are abandoned carts
//     nobody ever acted on; they are deleted.
//  2. Terminal orders (Paid or Rejected) dated before the start of the
//     current calendar day are copied to the archive store and removed from
//     the live collection.
//
// Every operation is best-effort: a failure on one record is logged and the
// pass continues. The archive-then-delete pair is not transactional; a
// crash between the two duplicates the record in the archive on the next
// pass rather than losing it, because the archive write always comes first.
func (e *Engine) runJanitor(ctx context.Context, orders []model.Order) {
	// A delete triggers a fresh snapshot, which re-enters this method on
	// the same goroutine with the in-memory backend. One pass at a time.
	if !e.janitorBusy.CompareAndSwap(false, true) {
		return
	}
	defer e.janitorBusy.Store(false)

	now := e.clk.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	for _, o := range orders {
		switch {
		case o.Status == model.StatusPending && now.Sub(o.CreatedAt) > e.pendingExpiry:
			if err := e.remote.DeleteOrder(ctx, o.ID); err != nil {
				e.log.Error("janitor: expire failed", "order", o.ID, "error", err)
				continue
			}
			e.log.Info("janitor: expired abandoned order", "order", o.ID,
				"age", now.Sub(o.CreatedAt).Truncate(time.Second).String())

		case (o.Status == model.StatusPaid || o.Status == model.StatusRejected) && o.CreatedAt.Before(dayStart):
			if err := e.remote.ArchiveOrder(ctx, o); err != nil {
				e.log.Error("janitor: archive failed", "order", o.ID, "error", err)
				continue
			}
			if err := e.remote.DeleteOrder(ctx, o.ID); err != nil {
				e.log.Error("janitor: delete after archive failed", "order", o.ID, "error", err)
				continue
			}
			e.log.Info("janitor: archived order", "order", o.ID, "status", string(o.Status))
		}
	}
}
