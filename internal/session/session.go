// Package session issues the anonymous per-device identity that every write
// from this installation is tagged with.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dinesync/dinesync/internal/device"
)

// Manager persists a single session token for the life of the device.
// The token is the identity anchor the notification dedup key depends on:
// it is created once and never rotated.
type Manager struct {
	store *device.Store

	mu     sync.Mutex
	cached string
}

// NewManager creates a manager backed by the device store.
func NewManager(store *device.Store) *Manager {
	return &Manager{store: store}
}

// ID returns the session token, generating and persisting one on first call.
// Idempotent: once a token exists it is returned unchanged forever.
func (m *Manager) ID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached != "" {
		return m.cached, nil
	}

	id, err := m.store.SessionID(ctx)
	switch {
	case err == nil:
		m.cached = id
		return id, nil
	case errors.Is(err, device.ErrNotSet):
		// first run
	default:
		return "", fmt.Errorf("load session id: %w", err)
	}

	id = uuid.Must(uuid.NewV7()).String()
	if err := m.store.SetSessionID(ctx, id); err != nil {
		return "", fmt.Errorf("persist session id: %w", err)
	}
	m.cached = id
	return id, nil
}
