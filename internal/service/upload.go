package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"statement-pdf-service/internal/convert"
	"statement-pdf-service/internal/models"
	"statement-pdf-service/pkg/errors"
)

// Output is a generated file held in memory after its workspace is gone
type Output struct {
	FileName    string  `json:"file_name"`
	ContentType string  `json:"content_type"`
	Data        []byte  `json:"-"`
	Result      *Result `json:"result,omitempty"`
}

// Content types of the generated files
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// RenderUpload stages an uploaded source in a workspace, renders it and returns
// the PDF bytes. The workspace is removed before returning.
func (s *StatementService) RenderUpload(ctx context.Context, name string, r io.Reader, req Request) (*Output, error) {
	ws, err := convert.NewWorkspace(s.cfg.WorkDir)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	input, err := ws.Save(uploadName(name), r)
	if err != nil {
		return nil, err
	}

	req.InputPath = input
	req.OutputPath = ""
	result, err := s.Render(ctx, req)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(result.OutputPath)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileNotFound, result.OutputPath, err)
	}

	fileName := result.FileName
	if req.Template == models.TemplateFast {
		fileName = replaceExt(name, ".pdf")
	}
	return &Output{FileName: fileName, ContentType: ContentTypePDF, Data: data, Result: result}, nil
}

// ConvertOffice converts an office document to PDF inside outDir
func (s *StatementService) ConvertOffice(ctx context.Context, input, outDir string) (convert.Result, error) {
	return s.converter.ToPDF(ctx, input, outDir)
}

// ConvertOfficeUpload converts an uploaded office document to PDF
func (s *StatementService) ConvertOfficeUpload(ctx context.Context, name string, r io.Reader) (*Output, error) {
	ws, err := convert.NewWorkspace(s.cfg.WorkDir)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	input, err := ws.Save(uploadName(name), r)
	if err != nil {
		return nil, err
	}
	res, err := s.converter.ToPDF(ctx, input, ws.Dir)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(res.Path)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileNotFound, res.Path, err)
	}
	return &Output{FileName: replaceExt(name, ".pdf"), ContentType: ContentTypePDF, Data: data}, nil
}

// CSVToExcel writes input as an .xlsx workbook at output
func (s *StatementService) CSVToExcel(ctx context.Context, input, output string) (*convert.XLSXResult, error) {
	return convert.CSVToXLSX(ctx, input, output, s.cfg.Loader)
}

// CSVToExcelUpload converts an uploaded CSV to an .xlsx workbook
func (s *StatementService) CSVToExcelUpload(ctx context.Context, name string, r io.Reader) (*Output, error) {
	ws, err := convert.NewWorkspace(s.cfg.WorkDir)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	input, err := ws.Save(uploadName(name), r)
	if err != nil {
		return nil, err
	}
	output := ws.Path(replaceExt(filepath.Base(input), ".xlsx"))
	if _, err := s.CSVToExcel(ctx, input, output); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(output)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileNotFound, output, err)
	}
	return &Output{FileName: replaceExt(name, ".xlsx"), ContentType: ContentTypeXLSX, Data: data}, nil
}

// Health describes the service and its external tools
type Health struct {
	Status          string `json:"status"`
	LibreOffice     bool   `json:"libreoffice"`
	LibreOfficePath string `json:"libreoffice_path,omitempty"`
	Version         string `json:"version,omitempty"`
	Engine          string `json:"engine"`
	Template        string `json:"template"`
}

// Health reports whether office conversion is possible. A missing LibreOffice
// degrades the service without making it unhealthy for statement rendering.
func (s *StatementService) Health(ctx context.Context) Health {
	h := Health{
		Status:   "healthy",
		Engine:   s.cfg.Render.Engine,
		Template: string(s.cfg.Layout.Template),
	}
	if !s.converter.Available() {
		h.Status = "degraded"
		return h
	}

	h.LibreOffice = true
	h.LibreOfficePath = s.converter.LibreOfficePath()
	version, err := s.converter.Version(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("LibreOffice did not report a version")
		h.Status = "degraded"
		return h
	}
	h.Version = version
	return h
}

// uploadName keeps the extension of a client supplied name and drops any path
func uploadName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" {
		return "upload"
	}
	return base
}

func replaceExt(name, ext string) string {
	base := uploadName(name)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ext
}
