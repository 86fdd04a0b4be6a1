// Package device persists the small set of state that must survive restarts
// on a single installation: the anonymous session token, the active table
// selection, the cart, and a cached copy of venue settings for offline
// resilience.
//
// The remote store never sees any of this directly. The cart in particular
// exists only until an order is created from it, at which point it is
// cleared in the same transaction boundary as the successful placement.
package device

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dinesync/dinesync/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotSet is returned when a requested key has never been stored.
var ErrNotSet = errors.New("device: value not set")

const (
	keySessionID     = "session_id"
	keySelectedTable = "selected_table"
	keySettingsCache = "settings_cache"
)

// Store is the device-local SQLite database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the device database at the given path.
//
// The database is configured with WAL mode, NORMAL synchronous, a 5-second
// busy timeout, and foreign key enforcement. SQLite supports one writer at a
// time, so the pool is pinned to a single connection. Idempotent.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open device db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect device db: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply device schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) getKV(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM device_kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotSet
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}

func (s *Store) setKV(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO device_kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *Store) deleteKV(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM device_kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// SessionID returns the persisted session token, or ErrNotSet on first run.
func (s *Store) SessionID(ctx context.Context) (string, error) {
	return s.getKV(ctx, keySessionID)
}

// SetSessionID persists the session token. Written once per installation;
// the session manager never rotates it.
func (s *Store) SetSessionID(ctx context.Context, id string) error {
	return s.setKV(ctx, keySessionID, id)
}

// SelectedTable returns the active table selection, or ErrNotSet.
func (s *Store) SelectedTable(ctx context.Context) (string, error) {
	return s.getKV(ctx, keySelectedTable)
}

// SetSelectedTable persists the active table selection.
func (s *Store) SetSelectedTable(ctx context.Context, tableID string) error {
	return s.setKV(ctx, keySelectedTable, tableID)
}

// ClearSelectedTable removes the active table selection.
func (s *Store) ClearSelectedTable(ctx context.Context) error {
	return s.deleteKV(ctx, keySelectedTable)
}

// CachedSettings returns the last settings snapshot stored on-device, or
// ErrNotSet if no snapshot has ever been cached.
func (s *Store) CachedSettings(ctx context.Context) (model.Settings, error) {
	raw, err := s.getKV(ctx, keySettingsCache)
	if err != nil {
		return model.Settings{}, err
	}
	var st model.Settings
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return model.Settings{}, fmt.Errorf("decode settings cache: %w", err)
	}
	return st, nil
}

// CacheSettings stores a settings snapshot for offline use.
func (s *Store) CacheSettings(ctx context.Context, st model.Settings) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode settings cache: %w", err)
	}
	return s.setKV(ctx, keySettingsCache, string(raw))
}

// Cart returns the cart lines in insertion order.
func (s *Store) Cart(ctx context.Context) ([]model.CartLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_ref, name, quantity, price
		FROM cart_lines ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	defer rows.Close()

	var lines []model.CartLine
	for rows.Next() {
		var l model.CartLine
		if err := rows.Scan(&l.ItemRef, &l.Name, &l.Quantity, &l.Price); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	return lines, nil
}

// AddToCart inserts a line or increments the quantity of an existing one.
// Name and price are snapshotted from the menu at add time; a later menu
// edit must not change an existing line.
func (s *Store) AddToCart(ctx context.Context, line model.CartLine) error {
	if line.Quantity <= 0 {
		return fmt.Errorf("add to cart: quantity must be positive, got %d", line.Quantity)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cart_lines (item_ref, name, quantity, price, position)
		VALUES (?, ?, ?, ?, COALESCE((SELECT MAX(position) FROM cart_lines), 0) + 1)
		ON CONFLICT(item_ref) DO UPDATE SET quantity = quantity + excluded.quantity
	`, line.ItemRef, line.Name, line.Quantity, line.Price)
	if err != nil {
		return fmt.Errorf("add to cart: %w", err)
	}
	return nil
}

// RemoveFromCart deletes a cart line by item reference.
func (s *Store) RemoveFromCart(ctx context.Context, itemRef string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM cart_lines WHERE item_ref = ?`, itemRef); err != nil {
		return fmt.Errorf("remove from cart: %w", err)
	}
	return nil
}

// ClearCart deletes all cart lines. Called after a successful order
// placement.
func (s *Store) ClearCart(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cart_lines`); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
