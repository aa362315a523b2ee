package convert

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"statement-pdf-service/pkg/errors"
	"statement-pdf-service/pkg/logger"
)

// Timeout bounds for external conversions
const (
	DefaultTimeout = 120 * time.Second
	MinTimeout     = 60 * time.Second
	MaxTimeout     = 120 * time.Second
)

// OfficeExtensions lists the document types the office converter accepts
var OfficeExtensions = []string{".ppt", ".pptx", ".doc", ".docx", ".odt", ".xls", ".xlsx"}

// IsSpreadsheet reports whether path names an Excel workbook
func IsSpreadsheet(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xls", ".xlsx":
		return true
	}
	return false
}

// IsOfficeFile reports whether path has one of OfficeExtensions
func IsOfficeFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range OfficeExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Options configures external conversions
type Options struct {
	SofficePath string        `mapstructure:"soffice_path"`
	Timeout     time.Duration `mapstructure:"timeout"`
	// DisableExcel skips the Excel COM strategy even on Windows
	DisableExcel bool `mapstructure:"disable_excel"`
}

// DefaultOptions returns the default conversion configuration
func DefaultOptions() *Options {
	return &Options{Timeout: DefaultTimeout}
}

// Validate checks the options
func (o *Options) Validate() error {
	if o.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

// EffectiveTimeout clamps the configured timeout to MinTimeout..MaxTimeout.
// Zero means DefaultTimeout.
func (o *Options) EffectiveTimeout() time.Duration {
	switch {
	case o.Timeout == 0:
		return DefaultTimeout
	case o.Timeout < MinTimeout:
		return MinTimeout
	case o.Timeout > MaxTimeout:
		return MaxTimeout
	}
	return o.Timeout
}

// Converter owns the discovered tools and builds strategy chains per input
type Converter struct {
	opts        *Options
	libreOffice *LibreOfficeStrategy
	excel       *ExcelCOMStrategy
	discoverErr error
	logger      logger.Logger
}

// NewConverter discovers LibreOffice in the process environment
func NewConverter(opts *Options) *Converter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return NewConverterWithEnv(opts, SystemDiscoveryEnv(opts.SofficePath))
}

// NewConverterWithEnv discovers LibreOffice in env
func NewConverterWithEnv(opts *Options, env DiscoveryEnv) *Converter {
	if opts == nil {
		opts = DefaultOptions()
	}
	log := logger.GetGlobalLogger().WithComponent("convert")

	path, err := DiscoverLibreOffice(env)
	if err != nil {
		log.WithField("override", env.Override).Warn("LibreOffice not found, office conversion disabled")
	} else {
		log.WithField("executable", path).Debug("LibreOffice discovered")
	}

	timeout := opts.EffectiveTimeout()
	return &Converter{
		opts:        opts,
		libreOffice: NewLibreOfficeStrategy(path, timeout),
		excel:       NewExcelCOMStrategy(timeout),
		discoverErr: err,
		logger:      log,
	}
}

// LibreOfficePath returns the discovered executable, or "" when none was found
func (c *Converter) LibreOfficePath() string {
	return c.libreOffice.Path
}

// Available reports whether LibreOffice was discovered
func (c *Converter) Available() bool {
	return c.discoverErr == nil
}

// Version reports the LibreOffice version string
func (c *Converter) Version(ctx context.Context) (string, error) {
	return c.libreOffice.Version(ctx)
}

// ChainFor returns the strategies for an input: spreadsheets try Excel first,
// everything else goes straight to LibreOffice.
func (c *Converter) ChainFor(input string) *Chain {
	if IsSpreadsheet(input) && !c.opts.DisableExcel {
		return NewChain(c.excel, c.libreOffice)
	}
	return NewChain(c.libreOffice)
}

// ToPDF converts an office document into outDir
func (c *Converter) ToPDF(ctx context.Context, input, outDir string) (Result, error) {
	if !IsOfficeFile(input) {
		return Result{Status: StatusFailed}, errors.FileError(errors.CodeUnsupportedFormat, input, nil).
			WithSuggestion("use one of " + strings.Join(OfficeExtensions, ", "))
	}

	var result Result
	err := logger.TimedOperation("office_to_pdf", c.logger.WithField("input", filepath.Base(input)), func() error {
		var runErr error
		result, runErr = c.ChainFor(input).Run(ctx, input, outDir)
		return runErr
	})
	return result, err
}
