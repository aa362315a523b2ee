package api

import (
	"fmt"
	"time"
)

// Config holds HTTP server settings
type Config struct {
	Addr string `mapstructure:"addr"`
	// BodyLimitMB caps the size of an upload
	BodyLimitMB int `mapstructure:"body_limit_mb"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// RequestTimeout bounds the pipeline run of a single request. Zero means no limit.
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	Version string `mapstructure:"-"`
}

// DefaultConfig returns the server defaults
func DefaultConfig() *Config {
	return &Config{
		Addr:            ":5000",
		BodyLimitMB:     32,
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    180 * time.Second,
		RequestTimeout:  150 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Version:         "dev",
	}
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr cannot be empty")
	}
	if c.BodyLimitMB <= 0 || c.BodyLimitMB > 1024 {
		return fmt.Errorf("body_limit_mb must be between 1 and 1024, got %d", c.BodyLimitMB)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.RequestTimeout < 0 || c.ShutdownTimeout < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}
	return nil
}
