package api

import (
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"statement-pdf-service/internal/convert"
	"statement-pdf-service/internal/models"
	"statement-pdf-service/internal/service"
)

var (
	statementExtensions = []string{".xlsx", ".xls", ".csv"}
	csvExtensions       = []string{".csv"}
)

// uploadError is a client mistake answered with 400
func uploadError(message string) error {
	return fiber.NewError(fiber.StatusBadRequest, message)
}

// formFile returns the uploaded "file" part after checking its extension.
// A browser submitting an empty file input sends the part with filename="",
// which the multipart reader files under the form values.
func formFile(c *fiber.Ctx, allowed []string) (*multipart.FileHeader, error) {
	fh, err := c.FormFile("file")
	if err != nil || fh == nil {
		if form, ferr := c.MultipartForm(); ferr == nil {
			if _, ok := form.Value["file"]; ok {
				return nil, uploadError("No file selected")
			}
		}
		return nil, uploadError("No file uploaded")
	}
	if strings.TrimSpace(fh.Filename) == "" {
		return nil, uploadError("No file selected")
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	for _, a := range allowed {
		if ext == a {
			return fh, nil
		}
	}
	return nil, uploadError("Invalid file type. Allowed: " + strings.Join(allowed, ", "))
}

// accountOverrides collects the account fields present in the form
func accountOverrides(c *fiber.Ctx) models.AccountMetadata {
	values := make(map[string]string)
	form, err := c.MultipartForm()
	if err != nil {
		return models.AccountMetadata{}
	}
	for _, name := range models.AccountFields {
		if v, ok := form.Value[name]; ok && len(v) > 0 {
			values[name] = v[0]
		}
	}
	return models.FromForm(values)
}

func sendOutput(c *fiber.Ctx, out *service.Output) error {
	c.Attachment(out.FileName)
	c.Set(fiber.HeaderContentType, out.ContentType)
	return c.Send(out.Data)
}

func (s *Server) handleStatement(c *fiber.Ctx) error {
	return s.renderUpload(c, service.Request{Overrides: accountOverrides(c)})
}

func (s *Server) handleFast(c *fiber.Ctx) error {
	return s.renderUpload(c, service.Request{Template: models.TemplateFast})
}

func (s *Server) renderUpload(c *fiber.Ctx, req service.Request) error {
	fh, err := formFile(c, statementExtensions)
	if err != nil {
		return err
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	ctx, cancel := s.requestContext(c)
	defer cancel()

	out, err := s.svc.RenderUpload(ctx, fh.Filename, f, req)
	if err != nil {
		return err
	}
	return sendOutput(c, out)
}

func (s *Server) handleOfficeToPDF(c *fiber.Ctx) error {
	fh, err := formFile(c, convert.OfficeExtensions)
	if err != nil {
		return err
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	ctx, cancel := s.requestContext(c)
	defer cancel()

	out, err := s.svc.ConvertOfficeUpload(ctx, fh.Filename, f)
	if err != nil {
		return err
	}
	return sendOutput(c, out)
}

func (s *Server) handleCSVToExcel(c *fiber.Ctx) error {
	fh, err := formFile(c, csvExtensions)
	if err != nil {
		return err
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	ctx, cancel := s.requestContext(c)
	defer cancel()

	out, err := s.svc.CSVToExcelUpload(ctx, fh.Filename, f)
	if err != nil {
		return err
	}
	return sendOutput(c, out)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	h := s.svc.Health(ctx)
	return c.JSON(fiber.Map{
		"status":           h.Status,
		"service":          "Statement PDF Service",
		"version":          s.config.Version,
		"libreoffice":      h.LibreOffice,
		"libreoffice_path": h.LibreOfficePath,
		"soffice_version":  h.Version,
		"engine":           h.Engine,
		"template":         h.Template,
	})
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "Statement PDF Service",
		"version": s.config.Version,
		"endpoints": fiber.Map{
			"health":         "/api/health",
			"bank_statement": "/api/excel-to-pdf-bank-statement (POST)",
			"fast":           "/api/excel-to-pdf-fast (POST)",
			"office_to_pdf":  "/api/convert/office-to-pdf (POST)",
			"csv_to_excel":   "/api/convert/csv-to-excel (POST)",
		},
	})
}
