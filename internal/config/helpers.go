package config

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
)

// EnsureDirectories ensures all required directories exist
func (c *Config) EnsureDirectories() error {
	if !c.Storage.Persist {
		return nil
	}
	return os.MkdirAll(c.GetSessionsDir(), 0755)
}

// GetSessionsDir returns the directory holding session snapshots
func (c *Config) GetSessionsDir() string {
	return filepath.Join(c.Storage.DataDir, "sessions")
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Logging.Level == "debug" && c.Logging.Format == "console"
}

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.HTTPPort))
}

// BodyLimitBytes returns the request body limit in bytes
func (c *ServerConfig) BodyLimitBytes() int {
	return c.BodyLimitMB * 1024 * 1024
}
