package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinesync/dinesync/internal/device"
)

func TestManager_IDStableAcrossCallsAndRestarts(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "device.db")

	store, err := device.Open(path)
	require.NoError(t, err)

	m := NewManager(store)
	first, err := m.ID(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, first)
	_, err = uuid.Parse(first)
	assert.NoError(t, err, "session token should be a uuid")

	again, err := m.ID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	require.NoError(t, store.Close())

	// A fresh manager over the same device db resumes the same identity.
	store, err = device.Open(path)
	require.NoError(t, err)
	defer store.Close()

	resumed, err := NewManager(store).ID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, resumed)
}
