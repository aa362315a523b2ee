// Package service wires the statement pipeline together.
//
// A StatementService owns one instance of every pipeline stage and runs them in
// order for each request:
//
//	load -> detect table -> extract metadata -> merge overrides -> compose ->
//	render -> inspect -> publish
//
// The service holds no per-request state. Uploads are staged in a Workspace
// that is removed when the request finishes.
package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"statement-pdf-service/internal/convert"
	"statement-pdf-service/internal/detect"
	"statement-pdf-service/internal/layout"
	"statement-pdf-service/internal/loader"
	"statement-pdf-service/internal/models"
	"statement-pdf-service/internal/render"
	"statement-pdf-service/internal/storage"
	"statement-pdf-service/pkg/errors"
	"statement-pdf-service/pkg/logger"
)

// Config holds the explicit configuration of every pipeline stage
type Config struct {
	Loader  *loader.Options  `mapstructure:"loader"`
	Detect  *detect.Options  `mapstructure:"detect"`
	Layout  *layout.Options  `mapstructure:"layout"`
	Render  *render.Options  `mapstructure:"render"`
	Convert *convert.Options `mapstructure:"conversion"`
	Storage storage.Config   `mapstructure:"storage"`

	// WorkDir roots the per-request workspaces. Empty means the system temp dir.
	WorkDir string `mapstructure:"work_dir"`
}

// DefaultConfig returns a configuration with every stage at its defaults
func DefaultConfig() *Config {
	return &Config{
		Loader:  loader.DefaultOptions(),
		Detect:  detect.DefaultOptions(),
		Layout:  layout.DefaultOptions(),
		Render:  render.DefaultOptions(),
		Convert: convert.DefaultOptions(),
	}
}

// Validate validates every stage configuration
func (c *Config) Validate() error {
	if c.Loader != nil {
		if err := c.Loader.Validate(); err != nil {
			return fmt.Errorf("loader: %w", err)
		}
	}
	if c.Detect != nil {
		if err := c.Detect.Validate(); err != nil {
			return fmt.Errorf("detect: %w", err)
		}
	}
	if c.Layout != nil {
		if err := c.Layout.Validate(); err != nil {
			return fmt.Errorf("layout: %w", err)
		}
	}
	if c.Render != nil {
		if err := c.Render.Validate(); err != nil {
			return fmt.Errorf("render: %w", err)
		}
	}
	if c.Convert != nil {
		if err := c.Convert.Validate(); err != nil {
			return fmt.Errorf("conversion: %w", err)
		}
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	return nil
}

// Request describes one statement to render
type Request struct {
	InputPath string
	// OutputPath defaults to Statement_<customer>_<from>.pdf next to the input
	OutputPath string
	// Template overrides the configured layout template
	Template  models.Template
	Overrides models.AccountMetadata
}

// Result reports a rendered statement
type Result struct {
	OutputPath  string                 `json:"output_path"`
	FileName    string                 `json:"file_name"`
	Location    string                 `json:"location,omitempty"`
	Template    models.Template        `json:"template"`
	Orientation models.Orientation     `json:"orientation"`
	Pages       int                    `json:"pages"`
	Columns     int                    `json:"columns"`
	Rows        int                    `json:"rows"`
	HeaderRow   int                    `json:"header_row"`
	Encoding    string                 `json:"encoding,omitempty"`
	Metadata    models.AccountMetadata `json:"metadata"`
	Matches     []detect.Match         `json:"matches,omitempty"`
	Steps       []logger.StepTiming    `json:"steps"`
	Duration    time.Duration          `json:"duration"`
}

// Option customises a StatementService
type Option func(*StatementService)

// WithSink publishes rendered files to sink instead of the configured one
func WithSink(sink storage.Sink) Option {
	return func(s *StatementService) { s.sink = sink }
}

// WithConverter replaces the discovered office converter
func WithConverter(c *convert.Converter) Option {
	return func(s *StatementService) { s.converter = c }
}

// StatementService runs the statement pipeline
type StatementService struct {
	cfg       *Config
	loader    *loader.Loader
	detector  *detect.Detector
	renderer  *render.Renderer
	converter *convert.Converter
	sink      storage.Sink
	logger    logger.Logger
}

// NewStatementService validates cfg and builds every stage
func NewStatementService(cfg *Config, opts ...Option) (*StatementService, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	defaults := DefaultConfig()
	if cfg.Loader == nil {
		cfg.Loader = defaults.Loader
	}
	if cfg.Detect == nil {
		cfg.Detect = defaults.Detect
	}
	if cfg.Layout == nil {
		cfg.Layout = defaults.Layout
	}
	if cfg.Render == nil {
		cfg.Render = defaults.Render
	}
	if cfg.Convert == nil {
		cfg.Convert = defaults.Convert
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "service", nil, err)
	}

	s := &StatementService{
		cfg:      cfg,
		loader:   loader.New(cfg.Loader),
		detector: detect.New(cfg.Detect),
		renderer: render.New(cfg.Render),
		logger:   logger.GetGlobalLogger().WithComponent("service"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.sink == nil {
		sink, err := storage.New(context.Background(), cfg.Storage)
		if err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "storage", cfg.Storage.Kind, err)
		}
		s.sink = sink
	}
	if s.converter == nil {
		s.converter = convert.NewConverter(cfg.Convert)
	}

	s.logger.WithFields(logger.Fields{
		"template": cfg.Layout.Template,
		"engine":   cfg.Render.Engine,
		"sink":     sinkName(s.sink),
	}).Debug("Statement service created")
	return s, nil
}

// Config returns the service configuration
func (s *StatementService) Config() *Config {
	return s.cfg
}

// Converter returns the office converter
func (s *StatementService) Converter() *convert.Converter {
	return s.converter
}

// Render runs the whole pipeline for one source file
func (s *StatementService) Render(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.InputPath) == "" {
		return nil, errors.ValidationError(errors.CodeMissingField, "input_path", nil, nil)
	}

	ol := logger.NewOperationLogger("render_statement", s.logger).
		WithField("input", filepath.Base(req.InputPath))

	analysis, doc, err := s.analyze(ctx, ol, req)
	if err != nil {
		ol.Error(err, "Statement rendering failed")
		return nil, err
	}

	fileName := AttachmentName(analysis.Metadata)
	out := req.OutputPath
	if out == "" {
		out = filepath.Join(filepath.Dir(req.InputPath), fileName)
	}

	ol.Step("render")
	if err := s.renderer.RenderFile(ctx, doc, out); err != nil {
		ol.Error(err, "Statement rendering failed")
		return nil, err
	}

	ol.Step("inspect")
	info, err := render.Inspect(out)
	if err != nil {
		ol.Error(err, "Rendered statement is not readable")
		return nil, errors.RenderError(errors.CodeRenderFailed, "inspect", err)
	}

	result := &Result{
		OutputPath:  out,
		FileName:    fileName,
		Template:    analysis.Template,
		Orientation: analysis.Orientation,
		Pages:       info.Pages,
		Columns:     len(analysis.Columns),
		Rows:        analysis.Rows,
		HeaderRow:   analysis.HeaderRow,
		Encoding:    analysis.Encoding,
		Metadata:    analysis.Metadata,
		Matches:     analysis.Matches,
	}

	if s.sink != nil {
		ol.Step("publish")
		loc, err := s.sink.Publish(ctx, out, filepath.Base(out))
		if err != nil {
			ol.Error(err, "Publishing failed")
			return nil, err
		}
		result.Location = loc
	}

	result.Steps = ol.Steps()
	result.Duration = ol.Elapsed()
	ol.WithField("pages", result.Pages).WithField("output", out).Success("Statement rendered")
	return result, nil
}

// AttachmentName returns Statement_<customer id>_<date from without dashes>.pdf
func AttachmentName(meta models.AccountMetadata) string {
	clean := strings.NewReplacer("/", "", `\`, "", " ", "", "..", "")
	customer := clean.Replace(strings.TrimSpace(meta.CustomerID))
	from := clean.Replace(strings.ReplaceAll(strings.TrimSpace(meta.DateFrom), "-", ""))
	return fmt.Sprintf("Statement_%s_%s.pdf", customer, from)
}

func sinkName(sink storage.Sink) string {
	if sink == nil {
		return "none"
	}
	return sink.Name()
}
