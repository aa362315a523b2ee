// Package storage publishes rendered outputs to a local directory or an S3
// bucket after the statement has been written to its working location.
package storage

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Sink kinds
const (
	KindNone  = ""
	KindLocal = "local"
	KindS3    = "s3"
)

// Sink receives finished output files
type Sink interface {
	Name() string
	// Publish copies the file at localPath under key and returns its location
	Publish(ctx context.Context, localPath, key string) (string, error)
}

// Config selects and configures a sink
type Config struct {
	Kind     string `mapstructure:"kind"`
	Dir      string `mapstructure:"dir"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
	Region   string `mapstructure:"region"`
	Profile  string `mapstructure:"profile"`
	Endpoint string `mapstructure:"endpoint"`
}

// Validate checks the sink configuration
func (c *Config) Validate() error {
	switch c.Kind {
	case KindNone:
	case KindLocal:
		if c.Dir == "" {
			return fmt.Errorf("storage dir is required for the local sink")
		}
	case KindS3:
		if c.Bucket == "" {
			return fmt.Errorf("storage bucket is required for the s3 sink")
		}
	default:
		return fmt.Errorf("unknown storage kind '%s' (use local or s3)", c.Kind)
	}
	return nil
}

// New builds the configured sink. It returns nil when publishing is disabled.
func New(ctx context.Context, cfg Config) (Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Kind {
	case KindLocal:
		return NewLocalSink(cfg.Dir), nil
	case KindS3:
		return NewS3SinkFromConfig(ctx, cfg)
	}
	return nil, nil
}

// ObjectKey joins prefix and the base name of file into a slash separated key
func ObjectKey(prefix, file string) string {
	name := filepath.Base(file)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

var contentTypes = map[string]string{
	".pdf":  "application/pdf",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".csv":  "text/csv",
	".json": "application/json",
}

// ContentType returns the MIME type for an output file
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}
