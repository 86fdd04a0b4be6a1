package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_AppliesDefaultsForAbsentFields(t *testing.T) {
	path := writeConfig(t, `
venue:
  lat: 41.3275
  lng: 19.8187
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 41.3275, c.Venue.Lat)
	assert.Equal(t, "dinesync.db", c.DevicePath)
	assert.Equal(t, 10*time.Second, c.Cooldown())
	assert.Equal(t, 10*time.Minute, c.PendingExpiry())
	assert.Equal(t, 6*time.Second, c.SensorTimeout())
	assert.Equal(t, 200.0, c.Venue.RadiusM)
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
device_path: /var/lib/dinesync/device.db
postgres_dsn: postgres://dinesync:secret@db:5432/dinesync
venue:
  lat: 41.3275
  lng: 19.8187
  radius_m: 350
  contact_phone: "+355 4 2222 222"
cooldown_seconds: 30
pending_expiry_minutes: 15
sensor_timeout_seconds: 3
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/dinesync/device.db", c.DevicePath)
	assert.NotEmpty(t, c.PostgresDSN)
	assert.Equal(t, 350.0, c.Venue.RadiusM)
	assert.Equal(t, "+355 4 2222 222", c.Venue.ContactPhone)
	assert.Equal(t, 30*time.Second, c.Cooldown())
	assert.Equal(t, 15*time.Minute, c.PendingExpiry())
	assert.Equal(t, 3*time.Second, c.SensorTimeout())
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"negative cooldown", "cooldown_seconds: -1"},
		{"zero expiry", "pending_expiry_minutes: 0"},
		{"lat out of range", "venue:\n  lat: 91"},
		{"lng out of range", "venue:\n  lng: -200"},
		{"malformed yaml", "venue: ["},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
