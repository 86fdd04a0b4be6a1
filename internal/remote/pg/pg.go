// Package pg implements the remote store contract on Postgres.
//
// Snapshot push uses LISTEN/NOTIFY: every mutation sends pg_notify on the
// "dinesync_changed" channel with the collection name as payload, and a
// dedicated listener connection re-queries the full collection and hands it
// to subscribers. That preserves the contract's "replace wholesale" shape:
// clients never see diffs, only fresh snapshots.
package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "embed"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dinesync/dinesync/internal/model"
	"github.com/dinesync/dinesync/internal/remote"
)

//go:embed schema.sql
var schemaSQL string

const notifyChannel = "dinesync_changed"

const (
	colOrders        = "orders"
	colNotifications = "notifications"
	colTables        = "tables"
	colMenu          = "menu"
	colSettings      = "settings"
	colReviews       = "reviews"
)

// Store is a Postgres-backed remote.Store.
type Store struct {
	pool *pgxpool.Pool
	log  *slog.Logger

	mu      sync.Mutex
	subs    map[string]map[int]func()
	nextSub int
	cancel  context.CancelFunc
}

// Connect opens a pool against dsn, applies the schema, and starts the
// snapshot listener. Retries the initial ping for a short window so the
// store survives a database that is still coming up.
func Connect(ctx context.Context, dsn string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	const (
		maxRetries = 10
		retryDelay = 2 * time.Second
	)
	for i := 1; ; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = pool.Ping(pingCtx)
		cancel()
		if err == nil {
			break
		}
		if i == maxRetries {
			pool.Close()
			return nil, fmt.Errorf("database unreachable after %d attempts: %w", maxRetries, err)
		}
		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		}
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	s := &Store{
		pool:   pool,
		log:    log,
		subs:   map[string]map[int]func(){},
		cancel: cancel,
	}
	go s.listen(listenCtx, dsn)
	return s, nil
}

// Close stops the listener and closes the pool.
func (s *Store) Close() {
	s.cancel()
	s.pool.Close()
}

// listen holds one dedicated connection on the notify channel and fans each
// change out to the collection's refresh closures. The connection is
// re-established on failure.
func (s *Store) listen(ctx context.Context, dsn string) {
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := pgx.Connect(ctx, dsn)
		if err != nil {
			s.log.Error("listener connect failed", "error", err)
			select {
			case <-time.After(2 * time.Second):
				continue
			case <-ctx.Done():
				return
			}
		}
		if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
			s.log.Error("listen failed", "error", err)
			conn.Close(ctx)
			continue
		}
		for {
			n, err := conn.WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() != nil {
					conn.Close(context.Background())
					return
				}
				s.log.Error("notification wait failed", "error", err)
				conn.Close(ctx)
				break
			}
			s.refresh(n.Payload)
		}
	}
}

// refresh re-delivers a fresh snapshot to every subscriber of a collection.
func (s *Store) refresh(collection string) {
	s.mu.Lock()
	hs := make([]func(), 0, len(s.subs[collection]))
	for _, h := range s.subs[collection] {
		hs = append(hs, h)
	}
	s.mu.Unlock()
	for _, h := range hs {
		h()
	}
}

func (s *Store) notify(ctx context.Context, collection string) {
	if _, err := s.pool.Exec(ctx, "SELECT pg_notify($1, $2)", notifyChannel, collection); err != nil {
		s.log.Error("notify failed", "collection", collection, "error", err)
	}
}

// addSub registers a refresh closure and returns its removal func.
func (s *Store) addSub(collection string, refresh func()) remote.Unsubscribe {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	if s.subs[collection] == nil {
		s.subs[collection] = map[int]func(){}
	}
	s.subs[collection][id] = refresh
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs[collection], id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) queryOrders(ctx context.Context, table string) ([]model.Order, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, table_id, session_id, items, status, total_amount,
		       payment_status, created_at, accepted_at
		FROM %s ORDER BY created_at, id
	`, table))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var out []model.Order
	for rows.Next() {
		var (
			o        model.Order
			itemsRaw []byte
			accepted *time.Time
		)
		if err := rows.Scan(&o.ID, &o.TableID, &o.SessionID, &itemsRaw, &o.Status,
			&o.TotalAmount, &o.PaymentStatus, &o.CreatedAt, &accepted); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if err := json.Unmarshal(itemsRaw, &o.Items); err != nil {
			return nil, fmt.Errorf("decode order items: %w", err)
		}
		o.AcceptedAt = accepted
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) queryNotifications(ctx context.Context) ([]model.Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, table_id, session_id, type, status, created_at
		FROM notifications ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var (
			n  model.Notification
			id string
		)
		if err := rows.Scan(&id, &n.TableID, &n.SessionID, &n.Type, &n.Status, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.ID = model.RemoteID(id)
		out = append(out, n)
	}
	return out, rows.Err()
}

// SubscribeOrders implements remote.Store.
func (s *Store) SubscribeOrders(ctx context.Context, h func([]model.Order)) (remote.Unsubscribe, error) {
	refresh := func() {
		snap, err := s.queryOrders(context.Background(), "orders")
		if err != nil {
			s.log.Error("orders snapshot failed", "error", err)
			return
		}
		h(snap)
	}
	snap, err := s.queryOrders(ctx, "orders")
	if err != nil {
		return nil, err
	}
	un := s.addSub(colOrders, refresh)
	h(snap)
	return un, nil
}

// SubscribeNotifications implements remote.Store.
func (s *Store) SubscribeNotifications(ctx context.Context, h func([]model.Notification)) (remote.Unsubscribe, error) {
	refresh := func() {
		snap, err := s.queryNotifications(context.Background())
		if err != nil {
			s.log.Error("notifications snapshot failed", "error", err)
			return
		}
		h(snap)
	}
	snap, err := s.queryNotifications(ctx)
	if err != nil {
		return nil, err
	}
	un := s.addSub(colNotifications, refresh)
	h(snap)
	return un, nil
}

// SubscribeTables implements remote.Store.
func (s *Store) SubscribeTables(ctx context.Context, h func([]model.Table)) (remote.Unsubscribe, error) {
	query := func(ctx context.Context) ([]model.Table, error) {
		rows, err := s.pool.Query(ctx, `SELECT id, name FROM tables ORDER BY name, id`)
		if err != nil {
			return nil, fmt.Errorf("query tables: %w", err)
		}
		defer rows.Close()
		var out []model.Table
		for rows.Next() {
			var t model.Table
			if err := rows.Scan(&t.ID, &t.Name); err != nil {
				return nil, fmt.Errorf("scan table: %w", err)
			}
			out = append(out, t)
		}
		return out, rows.Err()
	}
	return subscribeSimple(ctx, s, colTables, query, h)
}

// SubscribeMenu implements remote.Store.
func (s *Store) SubscribeMenu(ctx context.Context, h func([]model.MenuItem)) (remote.Unsubscribe, error) {
	query := func(ctx context.Context) ([]model.MenuItem, error) {
		rows, err := s.pool.Query(ctx, `
			SELECT id, name, category, price, available
			FROM menu_items ORDER BY category, name, id
		`)
		if err != nil {
			return nil, fmt.Errorf("query menu: %w", err)
		}
		defer rows.Close()
		var out []model.MenuItem
		for rows.Next() {
			var m model.MenuItem
			if err := rows.Scan(&m.ID, &m.Name, &m.Category, &m.Price, &m.Available); err != nil {
				return nil, fmt.Errorf("scan menu item: %w", err)
			}
			out = append(out, m)
		}
		return out, rows.Err()
	}
	return subscribeSimple(ctx, s, colMenu, query, h)
}

// SubscribeSettings implements remote.Store.
func (s *Store) SubscribeSettings(ctx context.Context, h func(model.Settings)) (remote.Unsubscribe, error) {
	query := func(ctx context.Context) (model.Settings, error) {
		var st model.Settings
		err := s.pool.QueryRow(ctx, `
			SELECT venue_lat, venue_lng, geofence_radius_m, contact_phone
			FROM settings WHERE id = 1
		`).Scan(&st.VenueLat, &st.VenueLng, &st.GeofenceRadiusM, &st.ContactPhone)
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Settings{}, nil
		}
		if err != nil {
			return model.Settings{}, fmt.Errorf("query settings: %w", err)
		}
		return st, nil
	}
	return subscribeSimple(ctx, s, colSettings, query, h)
}

// SubscribeReviews implements remote.Store.
func (s *Store) SubscribeReviews(ctx context.Context, h func([]model.Review)) (remote.Unsubscribe, error) {
	query := func(ctx context.Context) ([]model.Review, error) {
		rows, err := s.pool.Query(ctx, `
			SELECT id, session_id, rating, comment, created_at
			FROM reviews ORDER BY created_at, id
		`)
		if err != nil {
			return nil, fmt.Errorf("query reviews: %w", err)
		}
		defer rows.Close()
		var out []model.Review
		for rows.Next() {
			var r model.Review
			if err := rows.Scan(&r.ID, &r.SessionID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
				return nil, fmt.Errorf("scan review: %w", err)
			}
			out = append(out, r)
		}
		return out, rows.Err()
	}
	return subscribeSimple(ctx, s, colReviews, query, h)
}

// subscribeSimple wires the initial-snapshot-then-refresh pattern for
// collections with a one-query snapshot.
func subscribeSimple[T any](ctx context.Context, s *Store, collection string,
	query func(context.Context) (T, error), h func(T)) (remote.Unsubscribe, error) {

	refresh := func() {
		snap, err := query(context.Background())
		if err != nil {
			s.log.Error("snapshot failed", "collection", collection, "error", err)
			return
		}
		h(snap)
	}
	snap, err := query(ctx)
	if err != nil {
		return nil, err
	}
	un := s.addSub(collection, refresh)
	h(snap)
	return un, nil
}

// AddOrder implements remote.Store.
func (s *Store) AddOrder(ctx context.Context, o model.Order) (string, error) {
	id := uuid.Must(uuid.NewV7()).String()
	items, err := json.Marshal(o.Items)
	if err != nil {
		return "", fmt.Errorf("encode order items: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO orders
		(id, table_id, session_id, items, status, total_amount, payment_status, created_at, accepted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, id, o.TableID, o.SessionID, items, o.Status, o.TotalAmount, o.PaymentStatus, o.CreatedAt, o.AcceptedAt)
	if err != nil {
		return "", fmt.Errorf("insert order: %w", err)
	}
	s.notify(ctx, colOrders)
	return id, nil
}

// UpdateOrder implements remote.Store. Unconditional field-wise patch:
// last write wins, no version check.
func (s *Store) UpdateOrder(ctx context.Context, id string, p remote.OrderPatch) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE orders SET
			status         = COALESCE($2, status),
			table_id       = COALESCE($3, table_id),
			accepted_at    = COALESCE($4, accepted_at),
			payment_status = COALESCE($5, payment_status)
		WHERE id = $1
	`, id, p.Status, p.TableID, p.AcceptedAt, p.PaymentStatus)
	if err != nil {
		return fmt.Errorf("update order %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update order %s: %w", id, remote.ErrNotFound)
	}
	s.notify(ctx, colOrders)
	return nil
}

// DeleteOrder implements remote.Store.
func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete order %s: %w", id, remote.ErrNotFound)
	}
	s.notify(ctx, colOrders)
	return nil
}

// ArchiveOrder implements remote.Store. Upsert so a janitor retry after a
// crash between archive and delete duplicates nothing.
func (s *Store) ArchiveOrder(ctx context.Context, o model.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("encode order items: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO order_archive
		(id, table_id, session_id, items, status, total_amount, payment_status, created_at, accepted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`, o.ID, o.TableID, o.SessionID, items, o.Status, o.TotalAmount, o.PaymentStatus, o.CreatedAt, o.AcceptedAt)
	if err != nil {
		return fmt.Errorf("archive order %s: %w", o.ID, err)
	}
	return nil
}

// AddNotification implements remote.Store.
func (s *Store) AddNotification(ctx context.Context, n model.Notification) (string, error) {
	id := uuid.Must(uuid.NewV7()).String()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (id, table_id, session_id, type, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, n.TableID, n.SessionID, n.Type, n.Status, n.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert notification: %w", err)
	}
	s.notify(ctx, colNotifications)
	return id, nil
}

// UpdateNotification implements remote.Store.
func (s *Store) UpdateNotification(ctx context.Context, id string, p remote.NotificationPatch) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications SET status = COALESCE($2, status) WHERE id = $1
	`, id, p.Status)
	if err != nil {
		return fmt.Errorf("update notification %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update notification %s: %w", id, remote.ErrNotFound)
	}
	s.notify(ctx, colNotifications)
	return nil
}

// AddReview implements remote.Store.
func (s *Store) AddReview(ctx context.Context, r model.Review) (string, error) {
	id := uuid.Must(uuid.NewV7()).String()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reviews (id, session_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, id, r.SessionID, r.Rating, r.Comment, r.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert review: %w", err)
	}
	s.notify(ctx, colReviews)
	return id, nil
}
