package convert

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"statement-pdf-service/pkg/errors"
	"statement-pdf-service/pkg/logger"
)

const toolLibreOffice = "LibreOffice"

// LibreOfficeStrategy converts documents with a headless soffice process
type LibreOfficeStrategy struct {
	// Path is the soffice executable. Empty means LibreOffice was not found.
	Path    string
	Timeout time.Duration

	exec   Executor
	logger logger.Logger
}

// NewLibreOfficeStrategy creates the strategy for a discovered executable
func NewLibreOfficeStrategy(path string, timeout time.Duration) *LibreOfficeStrategy {
	return &LibreOfficeStrategy{
		Path:    path,
		Timeout: timeout,
		exec:    defaultExec,
		logger:  logger.GetGlobalLogger().WithComponent("libreoffice"),
	}
}

func (s *LibreOfficeStrategy) Name() string { return "libreoffice" }

// LibreOfficeArgs builds the soffice command line for one conversion
func LibreOfficeArgs(input, outDir string) []string {
	target := "pdf"
	if IsSpreadsheet(input) {
		target = "pdf:calc_pdf_Export"
	}
	return []string{
		"--headless",
		"--invisible",
		"--nodefault",
		"--nofirststartwizard",
		"--nolockcheck",
		"--nologo",
		"--norestore",
		"-env:UserInstallation=" + fileURL(filepath.Join(outDir, ".lo-profile")),
		"--convert-to", target,
		"--outdir", outDir,
		input,
	}
}

// Convert runs soffice once. A run exceeding Timeout is killed and reported
// as a timeout failure; there are no retries.
func (s *LibreOfficeStrategy) Convert(ctx context.Context, input, outDir string) Result {
	if s.Path == "" {
		return unavailable(toolLibreOffice, ErrNotFound)
	}

	runCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	s.logger.WithFields(logger.Fields{
		"executable": s.Path,
		"input":      filepath.Base(input),
		"timeout":    s.Timeout.String(),
	}).Debug("Starting LibreOffice")

	stdout, stderr, err := s.exec.Run(runCtx, s.Path, LibreOfficeArgs(input, outDir), []string{"HOME=" + outDir})
	if runCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return failed(errors.ConversionError(errors.CodeTimeout, toolLibreOffice, runCtx.Err()).
			WithContext("timeout", s.Timeout.String()))
	}
	if ctx.Err() != nil {
		return failed(errors.InternalError(errors.CodeCancelled, "LibreOffice conversion", ctx.Err()))
	}
	if err != nil {
		return failed(errors.ConversionError(errors.CodeToolFailed, toolLibreOffice, err).
			WithContext("stderr", string(stderr)).
			WithContext("stdout", string(stdout)))
	}

	out := expectedPDF(input, outDir)
	if !outputExists(out) {
		return failed(errors.ConversionError(errors.CodeNoOutput, toolLibreOffice, nil).
			WithContext("stdout", strings.TrimSpace(string(stdout))).
			WithContext("expected", out))
	}
	return Result{Status: StatusSuccess, Path: out}
}

// Version runs soffice --version
func (s *LibreOfficeStrategy) Version(ctx context.Context) (string, error) {
	if s.Path == "" {
		return "", errors.ConversionError(errors.CodeToolUnavailable, toolLibreOffice, ErrNotFound)
	}
	runCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	stdout, stderr, err := s.exec.Run(runCtx, s.Path, []string{"--version"}, nil)
	if err != nil {
		return "", errors.ConversionError(errors.CodeToolFailed, toolLibreOffice, err).
			WithContext("stderr", string(stderr))
	}
	return strings.TrimSpace(string(stdout)), nil
}

func fileURL(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	p = filepath.ToSlash(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return "file://" + p
}
