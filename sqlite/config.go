package sqlite

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// MemoryPath opens a private in-memory database that lives as long as the
	// pool's single connection.
	MemoryPath         = ":memory:"
	DefaultBusyTimeout = 5 * time.Second
)

// Config is the configuration of an SQLite database.
type Config struct {
	// Path is a file path or MemoryPath (required)
	Path string
	// ForeignKeys turns on foreign key enforcement, which SQLite leaves off
	// per connection by default
	ForeignKeys bool
	// BusyTimeout is how long a statement waits on a lock held by another
	// process before failing (default: 5s)
	BusyTimeout time.Duration
}

// NewDefaultConfig returns a config for path with foreign keys enforced.
func NewDefaultConfig(path string) *Config {
	return &Config{
		Path:        path,
		ForeignKeys: true,
		BusyTimeout: DefaultBusyTimeout,
	}
}

// NewMemoryConfig is NewDefaultConfig(MemoryPath).
func NewMemoryConfig() *Config {
	return NewDefaultConfig(MemoryPath)
}

// Validate checks the path and fills in defaults.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("%w: path is required", ErrSQLiteInvalidConfig)
	}
	if strings.Contains(c.Path, "?") {
		return fmt.Errorf("%w: path must not carry parameters, use the config fields", ErrSQLiteInvalidConfig)
	}
	if c.BusyTimeout <= 0 {
		c.BusyTimeout = DefaultBusyTimeout
	}
	return nil
}

// IsMemory reports whether the database is in memory.
func (c *Config) IsMemory() bool {
	return c.Path == MemoryPath
}

// ToDSN builds the driver connection string, with pragmas applied on every
// new connection.
func (c *Config) ToDSN() (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	params := url.Values{}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", c.BusyTimeout.Milliseconds()))
	if c.ForeignKeys {
		params.Add("_pragma", "foreign_keys(1)")
	}
	return c.Path + "?" + params.Encode(), nil
}
