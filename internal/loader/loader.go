// Package loader reads statement sources into TabularDocuments.
//
// Three source types are supported:
//   - CSV files, decoded with an encoding fallback list (utf-8, latin-1,
//     cp1252, iso-8859-1) so callers never choose an encoding
//   - .xlsx workbooks, first worksheet only
//   - legacy .xls workbooks, first worksheet only
//
// Loading is lenient. Ragged rows are padded, blank rows are kept so that row
// indices match the source, and cell values keep their displayed text. Header
// and metadata detection happen later in the detect package.
//
// Example usage:
//
//	l := loader.New(nil)
//	doc, err := l.Load(ctx, "statement.xlsx")
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"statement-pdf-service/internal/models"
	"statement-pdf-service/pkg/errors"
	"statement-pdf-service/pkg/logger"
)

// Options controls source loading
type Options struct {
	// Encodings is the CSV decoding order. Unknown names are rejected by Validate.
	Encodings []string `mapstructure:"encodings"`
	// Delimiter is the CSV field separator
	Delimiter rune `mapstructure:"-"`
	// MaxRows stops reading after this many rows; 0 means unlimited
	MaxRows int `mapstructure:"max_rows"`
}

// DefaultOptions returns the standard loader configuration
func DefaultOptions() *Options {
	return &Options{
		Encodings: DefaultEncodings(),
		Delimiter: ',',
		MaxRows:   0,
	}
}

// Validate checks the options
func (o *Options) Validate() error {
	if len(o.Encodings) == 0 {
		return fmt.Errorf("at least one encoding is required")
	}
	for _, name := range o.Encodings {
		if _, ok := lookupEncoding(name); !ok {
			return fmt.Errorf("unknown encoding '%s'", name)
		}
	}
	if o.MaxRows < 0 {
		return fmt.Errorf("max rows cannot be negative")
	}
	return nil
}

// Loader reads tabular sources
type Loader struct {
	opts   *Options
	logger logger.Logger
}

// New creates a loader. A nil options value uses DefaultOptions.
func New(opts *Options) *Loader {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}

	log := logger.GetGlobalLogger().WithComponent("loader")
	log.WithFields(logger.Fields{
		"encodings": opts.Encodings,
		"max_rows":  opts.MaxRows,
	}).Debug("Created loader")

	return &Loader{opts: opts, logger: log}
}

// SupportedExtensions lists the source extensions Load accepts
var SupportedExtensions = []string{".xlsx", ".xls", ".csv"}

// FormatFromPath maps a file extension to a source format
func FormatFromPath(path string) (models.SourceFormat, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return models.FormatCSV, true
	case ".xlsx":
		return models.FormatXLSX, true
	case ".xls":
		return models.FormatXLS, true
	}
	return "", false
}

// Load reads the file at path into a normalized TabularDocument
func (l *Loader) Load(ctx context.Context, path string) (*models.TabularDocument, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	format, ok := FormatFromPath(path)
	if !ok {
		return nil, errors.FileError(errors.CodeUnsupportedFormat, path, nil).
			WithContext("allowed", strings.Join(SupportedExtensions, ", "))
	}

	if err := checkFile(path); err != nil {
		l.logger.WithError(err).WithField("file_path", path).Error("Source file is not accessible")
		return nil, err
	}

	log := l.logger.WithFields(logger.Fields{"file_path": path, "format": format})
	log.Debug("Loading source")

	var (
		doc *models.TabularDocument
		err error
	)
	switch format {
	case models.FormatCSV:
		doc, err = l.loadCSV(ctx, path)
	case models.FormatXLSX:
		doc, err = l.loadXLSX(ctx, path)
	case models.FormatXLS:
		doc, err = l.loadXLS(ctx, path)
	}
	if err != nil {
		return nil, err
	}

	log.WithFields(logger.Fields{
		"rows":     doc.Len(),
		"columns":  doc.Width(),
		"encoding": doc.Encoding,
	}).Info("Loaded source")
	return doc, nil
}

// checkFile maps os errors to file error codes
func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.FileError(errors.CodeFileNotFound, path, err)
		}
		if os.IsPermission(err) {
			return errors.FileError(errors.CodeFilePermission, path, err)
		}
		return errors.FileError(errors.CodeDirectoryError, path, err)
	}
	if info.IsDir() {
		return errors.FileError(errors.CodeDirectoryError, path, fmt.Errorf("path is a directory"))
	}
	return nil
}

func (l *Loader) limitReached(n int) bool {
	return l.opts.MaxRows > 0 && n >= l.opts.MaxRows
}

func cancelled(ctx context.Context, operation string) error {
	if err := ctx.Err(); err != nil {
		return errors.InternalError(errors.CodeCancelled, operation, err)
	}
	return nil
}
