package service

import (
	"context"
	"path/filepath"

	"statement-pdf-service/internal/detect"
	"statement-pdf-service/internal/layout"
	"statement-pdf-service/internal/models"
	"statement-pdf-service/pkg/errors"
	"statement-pdf-service/pkg/logger"
)

// ColumnSummary describes one styled output column
type ColumnSummary struct {
	Name    string           `json:"name"`
	Align   models.Alignment `json:"align"`
	Numeric bool             `json:"numeric"`
	WidthMM float64          `json:"width_mm"`
}

// Analysis is everything the pipeline knows about a source before rendering
type Analysis struct {
	Source      string                 `json:"source"`
	Format      models.SourceFormat    `json:"format"`
	Encoding    string                 `json:"encoding,omitempty"`
	Sheet       string                 `json:"sheet,omitempty"`
	SourceRows  int                    `json:"source_rows"`
	HeaderRow   int                    `json:"header_row"`
	KeywordHits int                    `json:"keyword_hits"`
	Rows        int                    `json:"rows"`
	Columns     []ColumnSummary        `json:"columns"`
	Template    models.Template        `json:"template"`
	Orientation models.Orientation     `json:"orientation"`
	Blocks      []models.BlockKind     `json:"blocks"`
	Metadata    models.AccountMetadata `json:"metadata"`
	Matches     []detect.Match         `json:"matches,omitempty"`
	Rejected    []detect.Match         `json:"rejected,omitempty"`
}

// HasTable reports whether a transaction table was found
func (a *Analysis) HasTable() bool {
	return a.HeaderRow >= 0 && len(a.Columns) > 0
}

// Analyze runs the pipeline up to composition without rendering
func (s *StatementService) Analyze(ctx context.Context, path string) (*Analysis, error) {
	return s.AnalyzeRequest(ctx, Request{InputPath: path})
}

// AnalyzeRequest is Analyze with a template and metadata overrides
func (s *StatementService) AnalyzeRequest(ctx context.Context, req Request) (*Analysis, error) {
	if req.InputPath == "" {
		return nil, errors.ValidationError(errors.CodeMissingField, "input_path", nil, nil)
	}
	ol := logger.NewOperationLogger("analyze_statement", s.logger).
		WithField("input", filepath.Base(req.InputPath))

	a, _, err := s.analyze(ctx, ol, req)
	if err != nil {
		ol.Error(err, "Analysis failed")
		return nil, err
	}
	ol.Success("Statement analyzed")
	return a, nil
}

// analyze loads, detects, extracts and composes. Missing tables and missing
// metadata are not errors.
func (s *StatementService) analyze(ctx context.Context, ol *logger.OperationLogger, req Request) (*Analysis, *models.Document, error) {
	opts := *s.cfg.Layout
	if req.Template != "" {
		if !req.Template.IsValid() {
			return nil, nil, errors.ValidationError(errors.CodeInvalidValue, "template", req.Template, nil).
				WithSuggestion("use statement, canonical or fast")
		}
		opts.Template = req.Template
	}

	ol.Step("load")
	src, err := s.loader.Load(ctx, req.InputPath)
	if err != nil {
		return nil, nil, err
	}

	ol.Step("detect")
	table := s.detector.DetectTable(src)
	if table.IsEmpty() {
		ol.Warning("No transaction table detected, rendering without transactions")
	}

	ol.Step("extract")
	meta := s.detector.ExtractMetadata(src, table)
	merged := meta.Metadata.Merge(req.Overrides)

	if err := ctx.Err(); err != nil {
		return nil, nil, errors.InternalError(errors.CodeCancelled, "analysis", err)
	}

	ol.Step("compose")
	composer := layout.NewComposer(&opts)
	doc := composer.Compose(merged, table)

	a := &Analysis{
		Source:      src.Source,
		Format:      src.Format,
		Encoding:    src.Encoding,
		Sheet:       src.Sheet,
		SourceRows:  src.Len(),
		HeaderRow:   table.HeaderRow,
		KeywordHits: table.Hits,
		Rows:        len(table.Rows),
		Template:    doc.Template,
		Orientation: doc.Orientation,
		Metadata:    merged,
		Matches:     meta.Matches,
		Rejected:    meta.Rejected,
	}
	for _, b := range doc.Blocks {
		a.Blocks = append(a.Blocks, b.Kind)
	}
	if tb := doc.TableBlock(); tb != nil {
		for i, c := range tb.Columns {
			name := c.Name
			if i < len(tb.Header) {
				name = tb.Header[i]
			}
			a.Columns = append(a.Columns, ColumnSummary{
				Name:    name,
				Align:   c.Align,
				Numeric: c.Numeric,
				WidthMM: c.Width / layout.MM(1),
			})
		}
	}
	return a, doc, nil
}
