// Package logger is the structured logging layer shared by the CLI, the HTTP
// server and the conversion pipeline. It wraps logrus behind a small interface
// so packages depend on Logger rather than on the backend.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger is the logging contract used across stmtpdf
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
	WithFields(fields Fields) Logger
	WithError(err error) Logger
	WithComponent(component string) Logger
}

// Fields are structured key-value pairs attached to a log line
type Fields map[string]interface{}

// Level is a log severity name
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Format selects the line encoding
type Format string

const (
	JSONFormat Format = "json"
	TextFormat Format = "text"
)

// Output selects where lines go
type Output string

const (
	StdoutOutput Output = "stdout"
	StderrOutput Output = "stderr"
	FileOutput   Output = "file"
)

// Config holds configuration options for the logger
type Config struct {
	Level            Level  `json:"level" mapstructure:"level"`
	Format           Format `json:"format" mapstructure:"format"`
	Output           Output `json:"output" mapstructure:"output"`
	File             string `json:"file,omitempty" mapstructure:"file"`
	DisableTimestamp bool   `json:"disable_timestamp,omitempty" mapstructure:"disable_timestamp"`
	CallerInfo       bool   `json:"caller_info,omitempty" mapstructure:"caller_info"`
}

// DefaultConfig logs info and above as text on stderr, keeping stdout for reports
func DefaultConfig() *Config {
	return &Config{Level: InfoLevel, Format: TextFormat, Output: StderrOutput}
}

// DebugConfig is used by --verbose
func DebugConfig() *Config {
	return &Config{Level: DebugLevel, Format: TextFormat, Output: StderrOutput, CallerInfo: true}
}

// ProductionConfig emits JSON lines on stdout for log collectors in front of the server
func ProductionConfig() *Config {
	return &Config{Level: InfoLevel, Format: JSONFormat, Output: StdoutOutput}
}

// Validate checks the level, format and output
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(string(c.Level)); err != nil || c.Level == "" {
		return fmt.Errorf("invalid log level: %q", c.Level)
	}

	switch c.Format {
	case JSONFormat, TextFormat:
	default:
		return fmt.Errorf("invalid log format: %q", c.Format)
	}

	switch c.Output {
	case StdoutOutput, StderrOutput:
	case FileOutput:
		if strings.TrimSpace(c.File) == "" {
			return fmt.Errorf("log file path is required for file output")
		}
	default:
		return fmt.Errorf("invalid log output: %q", c.Output)
	}
	return nil
}

func (c *Config) writer() (io.Writer, error) {
	switch c.Output {
	case StdoutOutput:
		return os.Stdout, nil
	case FileOutput:
		if err := os.MkdirAll(filepath.Dir(c.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		return os.OpenFile(c.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	default:
		return os.Stderr, nil
	}
}

func (c *Config) formatter() logrus.Formatter {
	shortCaller := func(f *runtime.Frame) (string, string) {
		return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
	}

	if c.Format == JSONFormat {
		return &logrus.JSONFormatter{
			DisableTimestamp: c.DisableTimestamp,
			TimestampFormat:  time.RFC3339,
			CallerPrettyfier: shortCaller,
		}
	}
	return &logrus.TextFormatter{
		DisableTimestamp: c.DisableTimestamp,
		FullTimestamp:    !c.DisableTimestamp,
		TimestampFormat:  "2006-01-02 15:04:05",
		CallerPrettyfier: shortCaller,
	}
}

// NewLogger creates a logger writing to the configured output
func NewLogger(config *Config) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logger configuration: %w", err)
	}

	w, err := config.writer()
	if err != nil {
		return nil, fmt.Errorf("failed to set log output: %w", err)
	}
	return build(config, w), nil
}

// NewWithWriter builds a logger that writes to w regardless of config.Output.
// Tests use it to capture log lines.
func NewWithWriter(config *Config, w io.Writer) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logger configuration: %w", err)
	}
	return build(config, w), nil
}

func build(config *Config, w io.Writer) Logger {
	level, _ := logrus.ParseLevel(string(config.Level))

	base := logrus.New()
	base.SetLevel(level)
	base.SetOutput(w)
	base.SetFormatter(config.formatter())
	base.SetReportCaller(config.CallerInfo)

	return entryLogger{entry: logrus.NewEntry(base)}
}

// entryLogger carries a logrus entry so fields accumulate across With* calls
type entryLogger struct {
	entry *logrus.Entry
}

func (l entryLogger) Debug(args ...interface{})                 { l.entry.Debug(args...) }
func (l entryLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l entryLogger) Info(args ...interface{})                  { l.entry.Info(args...) }
func (l entryLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l entryLogger) Warn(args ...interface{})                  { l.entry.Warn(args...) }
func (l entryLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l entryLogger) Error(args ...interface{})                 { l.entry.Error(args...) }
func (l entryLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l entryLogger) WithField(key string, value interface{}) Logger {
	return entryLogger{entry: l.entry.WithField(key, value)}
}

func (l entryLogger) WithFields(fields Fields) Logger {
	return entryLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l entryLogger) WithError(err error) Logger {
	return entryLogger{entry: l.entry.WithError(err)}
}

func (l entryLogger) WithComponent(component string) Logger {
	return l.WithField("component", component)
}

var (
	globalMu     sync.RWMutex
	globalLogger Logger = build(DefaultConfig(), os.Stderr)
)

// SetGlobalLogger replaces the process-wide logger. The CLI calls it once the
// flags are parsed.
func SetGlobalLogger(l Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// GetGlobalLogger returns the process-wide logger
func GetGlobalLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}
