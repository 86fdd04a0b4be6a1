// Package config loads the client configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything the engine needs that is not remote state. Venue
// values act as offline defaults; a settings snapshot from the remote store
// supersedes them once it arrives.
type Config struct {
	// DevicePath is the location of the device-local SQLite database.
	DevicePath string `yaml:"device_path"`

	// PostgresDSN selects the Postgres remote backend when set; empty
	// runs against the in-process store (demo mode).
	PostgresDSN string `yaml:"postgres_dsn"`

	Venue struct {
		Lat          float64 `yaml:"lat"`
		Lng          float64 `yaml:"lng"`
		RadiusM      float64 `yaml:"radius_m"`
		ContactPhone string  `yaml:"contact_phone"`
	} `yaml:"venue"`

	// CooldownSeconds is the minimum interval between customer signals.
	CooldownSeconds int `yaml:"cooldown_seconds"`

	// PendingExpiryMinutes is the janitor's abandoned-order threshold.
	PendingExpiryMinutes int `yaml:"pending_expiry_minutes"`

	// SensorTimeoutSeconds bounds the geolocation read.
	SensorTimeoutSeconds int `yaml:"sensor_timeout_seconds"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	var c Config
	c.DevicePath = "dinesync.db"
	c.CooldownSeconds = 10
	c.PendingExpiryMinutes = 10
	c.SensorTimeoutSeconds = 6
	c.Venue.RadiusM = 200
	return c
}

// Load reads a YAML config file, applying defaults for absent fields.
func Load(path string) (Config, error) {
	c := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	if c.CooldownSeconds < 0 {
		return fmt.Errorf("cooldown_seconds must not be negative, got %d", c.CooldownSeconds)
	}
	if c.PendingExpiryMinutes <= 0 {
		return fmt.Errorf("pending_expiry_minutes must be positive, got %d", c.PendingExpiryMinutes)
	}
	if c.SensorTimeoutSeconds <= 0 {
		return fmt.Errorf("sensor_timeout_seconds must be positive, got %d", c.SensorTimeoutSeconds)
	}
	if c.Venue.Lat < -90 || c.Venue.Lat > 90 {
		return fmt.Errorf("venue lat out of range: %v", c.Venue.Lat)
	}
	if c.Venue.Lng < -180 || c.Venue.Lng > 180 {
		return fmt.Errorf("venue lng out of range: %v", c.Venue.Lng)
	}
	return nil
}

// Cooldown returns the cooldown as a duration.
func (c Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// PendingExpiry returns the abandoned-order threshold as a duration.
func (c Config) PendingExpiry() time.Duration {
	return time.Duration(c.PendingExpiryMinutes) * time.Minute
}

// SensorTimeout returns the geolocation read timeout as a duration.
func (c Config) SensorTimeout() time.Duration {
	return time.Duration(c.SensorTimeoutSeconds) * time.Second
}
