// Package api exposes the statement pipeline over HTTP.
//
// Routes:
//
//	POST /api/excel-to-pdf-bank-statement  statement PDF from .xlsx/.xls/.csv plus account fields
//	POST /api/excel-to-pdf-fast            plain table PDF
//	POST /api/convert/office-to-pdf        office document to PDF
//	POST /api/convert/csv-to-excel         CSV to .xlsx
//	GET  /api/health                       service and LibreOffice status
//	GET  /                                 endpoint index
//
// Every failure is answered with {"error": "..."}.
package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"statement-pdf-service/internal/service"
	"statement-pdf-service/pkg/errors"
	"statement-pdf-service/pkg/logger"
)

// HeaderRequestID carries the id assigned to each request
const HeaderRequestID = "X-Request-ID"

// Server serves the statement service over fiber
type Server struct {
	app    *fiber.App
	svc    *service.StatementService
	config *Config
	logger logger.Logger
}

// NewServer validates config and registers every route
func NewServer(svc *service.StatementService, config *Config, log logger.Logger) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "server", config.Addr, err)
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	s := &Server{
		svc:    svc,
		config: config,
		logger: log.WithComponent("api"),
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "stmtpdf",
		BodyLimit:             config.BodyLimitMB << 20,
		ReadTimeout:           config.ReadTimeout,
		WriteTimeout:          config.WriteTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(recover.New())
	s.app.Use(s.requestLogger)
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.app.Get("/", s.handleIndex)

	api := s.app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Post("/excel-to-pdf-bank-statement", s.handleStatement)
	api.Post("/excel-to-pdf-fast", s.handleFast)
	api.Post("/convert/office-to-pdf", s.handleOfficeToPDF)
	api.Post("/convert/csv-to-excel", s.handleCSVToExcel)
}

// App exposes the fiber application, mainly for app.Test
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Listen(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.config.Addr).Info("HTTP server listening")
		errCh <- s.app.Listen(s.config.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server")
		if err := s.app.ShutdownWithTimeout(s.config.ShutdownTimeout); err != nil {
			return err
		}
		return <-errCh
	}
}

// requestLogger assigns a request id and logs the outcome of every request
func (s *Server) requestLogger(c *fiber.Ctx) error {
	id := c.Get(HeaderRequestID)
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(HeaderRequestID, id)
	c.Locals("request_id", id)

	start := time.Now()
	err := c.Next()
	if err != nil {
		if herr := s.handleError(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	s.logger.WithFields(logger.Fields{
		"request_id": id,
		"method":     c.Method(),
		"path":       c.Path(),
		"status":     c.Response().StatusCode(),
		"duration":   time.Since(start).String(),
	}).Info("Request handled")
	return nil
}

// requestContext bounds a pipeline run by the configured request timeout
func (s *Server) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	ctx := c.UserContext()
	if s.config.RequestTimeout > 0 {
		return context.WithTimeout(ctx, s.config.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

// handleError answers every failure as {"error": message}
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := err.Error()

	if fe, ok := err.(*fiber.Error); ok {
		status = fe.Code
		message = fe.Message
	} else if appErr, ok := errors.AsAppError(err); ok {
		status = appErr.HTTPStatus()
		if status >= fiber.StatusInternalServerError {
			s.logger.WithError(err).WithField("path", c.Path()).Error("Request failed")
		}
	}

	return c.Status(status).JSON(fiber.Map{"error": message})
}
