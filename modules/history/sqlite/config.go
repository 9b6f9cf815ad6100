package sqlite

import (
	"fmt"
	"strings"
	"time"
)

const defaultDBFile = "history.db"

// Config holds the SQLite history module configuration.
type Config struct {
	// Path is the database file. Empty means {DataDir}/history.db.
	Path string `yaml:"path"`

	// Journal is the SQLite journal mode: "wal" (default) or "delete".
	Journal string `yaml:"journal"`

	// Synchronous is the PRAGMA synchronous level: "normal" (default),
	// "full" or "off".
	Synchronous string `yaml:"synchronous"`

	// BusyTimeout is how long a writer waits on a locked database.
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

func (c *Config) defaults() {
	c.Journal = strings.ToLower(c.Journal)
	if c.Journal == "" {
		c.Journal = "wal"
	}
	c.Synchronous = strings.ToLower(c.Synchronous)
	if c.Synchronous == "" {
		c.Synchronous = "normal"
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = 5 * time.Second
	}
}

func (c *Config) walEnabled() bool {
	return c.Journal == "" || strings.EqualFold(c.Journal, "wal")
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Journal) {
	case "", "wal", "delete":
	default:
		return fmt.Errorf("sqlite: journal must be wal or delete, got %q", c.Journal)
	}
	switch strings.ToLower(c.Synchronous) {
	case "", "normal", "full", "off":
	default:
		return fmt.Errorf("sqlite: synchronous must be normal, full or off, got %q", c.Synchronous)
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("sqlite: busy_timeout must be non-negative, got %s", c.BusyTimeout)
	}
	return nil
}
