// Package render draws composed statement documents to PDF. Two engines are
// available: a block layout engine on gofpdf that reproduces the bordered bank
// statement, and a grid-flow engine on maroto used by the fast template.
package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"statement-pdf-service/internal/models"
	"statement-pdf-service/pkg/errors"
	"statement-pdf-service/pkg/logger"
)

// Engine names
const (
	EngineAuto   = "auto"
	EngineGofpdf = "gofpdf"
	EngineMaroto = "maroto"
)

// Engine renders a whole document to w
type Engine interface {
	Name() string
	Render(ctx context.Context, doc *models.Document, w io.Writer) error
}

// Options configures rendering
type Options struct {
	Engine   string  `mapstructure:"engine"`
	MarginMM float64 `mapstructure:"margin_mm"`
	Creator  string  `mapstructure:"creator"`
}

// DefaultOptions returns the default render configuration
func DefaultOptions() *Options {
	return &Options{
		Engine:   EngineAuto,
		MarginMM: 12,
		Creator:  "stmtpdf",
	}
}

// Validate checks the options
func (o *Options) Validate() error {
	switch o.Engine {
	case EngineAuto, EngineGofpdf, EngineMaroto:
	default:
		return fmt.Errorf("unknown render engine '%s'", o.Engine)
	}
	if o.MarginMM < 0 || o.MarginMM >= 50 {
		return fmt.Errorf("margin must be between 0 and 50mm")
	}
	return nil
}

// Renderer selects an engine per document and guarantees that a failed render
// leaves nothing behind.
type Renderer struct {
	opts    *Options
	engines map[string]Engine
	logger  logger.Logger
}

// New creates a renderer. A nil options value uses DefaultOptions.
func New(opts *Options) *Renderer {
	if opts == nil {
		opts = DefaultOptions()
	}
	o := *opts
	if o.Engine == "" {
		o.Engine = EngineAuto
	}

	return &Renderer{
		opts: &o,
		engines: map[string]Engine{
			EngineGofpdf: newPDFEngine(o.MarginMM, o.Creator),
			EngineMaroto: newMarotoEngine(o.MarginMM),
		},
		logger: logger.GetGlobalLogger().WithComponent("render"),
	}
}

// EngineFor returns the engine used for doc. In auto mode the fast template
// goes to maroto and everything else to gofpdf.
func (r *Renderer) EngineFor(doc *models.Document) Engine {
	name := r.opts.Engine
	if name == EngineAuto {
		name = EngineGofpdf
		if doc.Template == models.TemplateFast {
			name = EngineMaroto
		}
	}
	return r.engines[name]
}

// Render draws doc and copies the finished PDF to w. Nothing is written to w
// unless rendering succeeds.
func (r *Renderer) Render(ctx context.Context, doc *models.Document, w io.Writer) error {
	data, err := r.RenderBytes(ctx, doc)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return errors.RenderError(errors.CodeRenderFailed, "output", err)
	}
	return nil
}

// RenderBytes draws doc into memory
func (r *Renderer) RenderBytes(ctx context.Context, doc *models.Document) ([]byte, error) {
	if doc == nil {
		return nil, errors.RenderError(errors.CodeRenderFailed, "document", fmt.Errorf("no document"))
	}
	for _, b := range doc.Blocks {
		if err := b.Validate(); err != nil {
			return nil, errors.RenderError(errors.CodeLayoutFailed, string(b.Kind), err)
		}
	}

	engine := r.EngineFor(doc)
	var buf bytes.Buffer
	err := logger.TimedOperation("render", r.logger.WithField("engine", engine.Name()), func() error {
		return engine.Render(ctx, doc, &buf)
	})
	if err != nil {
		if _, ok := errors.AsAppError(err); ok {
			return nil, err
		}
		return nil, errors.RenderError(errors.CodeRenderFailed, engine.Name(), err)
	}
	return buf.Bytes(), nil
}

// RenderFile renders doc to path. The PDF is written to a temporary file in
// the target directory and renamed into place, so path either holds a complete
// document or is untouched.
func (r *Renderer) RenderFile(ctx context.Context, doc *models.Document, path string) error {
	data, err := r.RenderBytes(ctx, doc)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic writes data next to path and renames it into place
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.FileError(errors.CodeDirectoryError, dir, err)
	}
	tmpName := tmp.Name()

	cleanup := func(cause error) error {
		tmp.Close()
		os.Remove(tmpName)
		return errors.RenderError(errors.CodeRenderFailed, "output", cause).WithContext("output_path", path)
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.RenderError(errors.CodeRenderFailed, "output", err).WithContext("output_path", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.RenderError(errors.CodeRenderFailed, "output", err).WithContext("output_path", path)
	}
	return nil
}

func checkContext(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		return errors.InternalError(errors.CodeCancelled, "render "+stage, err)
	}
	return nil
}
