package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"statement-pdf-service/internal/models"
	"statement-pdf-service/internal/service"
	"statement-pdf-service/internal/storage"
	"statement-pdf-service/pkg/errors"
	"statement-pdf-service/pkg/logger"
)

const statementCSV = `Bank of India,,,,,
Customer ID,555001,,,,
Account Holder Name,ACME TRADERS,,,,
Account Number,1234567890,,,,
,,,,,
Sr No,Date,Remarks,Debit,Credit,Balance
1,02-03-2025,UPI/CR/123,,300.00,"₹ 81,338.54"
2,05-03-2025,NEFT/DR/9,"1,000.00",,"₹ 80,338.54"
`

func createTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

func TestValidateInputFile(t *testing.T) {
	tmpDir := t.TempDir()
	validFile := createTempFile(t, "valid.csv", "test")

	tests := []struct {
		name     string
		filePath string
		wantCode errors.ErrorCode
	}{
		{name: "valid file", filePath: validFile},
		{name: "empty path", filePath: "", wantCode: errors.CodeMissingField},
		{name: "non-existent file", filePath: filepath.Join(tmpDir, "missing.csv"), wantCode: errors.CodeFileNotFound},
		{name: "directory instead of file", filePath: tmpDir, wantCode: errors.CodeDirectoryError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateInputFile(tt.filePath, "input file")
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			appErr, ok := errors.AsAppError(err)
			if !ok {
				t.Fatalf("expected AppError, got %v", err)
			}
			if appErr.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", appErr.Code, tt.wantCode)
			}
		})
	}
}

func TestValidateOutputDir(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		path        string
		expectError bool
	}{
		{path: ""},
		{path: "out.pdf"},
		{path: filepath.Join(tmpDir, "out.pdf")},
		{path: filepath.Join(tmpDir, "missing", "out.pdf"), expectError: true},
	}

	for _, tt := range tests {
		err := validateOutputDir(tt.path)
		if tt.expectError && err == nil {
			t.Errorf("%q: expected error but got none", tt.path)
		}
		if !tt.expectError && err != nil {
			t.Errorf("%q: unexpected error: %v", tt.path, err)
		}
	}
}

func TestValidateReportFormat(t *testing.T) {
	for _, format := range []string{"console", "json", "csv"} {
		if err := validateReportFormat(format); err != nil {
			t.Errorf("%s: unexpected error: %v", format, err)
		}
	}
	if err := validateReportFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func newFlagCommand() *cobra.Command {
	c := &cobra.Command{Use: "test"}
	c.Flags().String("work-dir", "", "")
	addRenderFlags(c)
	addAccountFlags(c)
	addConversionFlags(c)
	return c
}

func TestApplyFlagOverrides(t *testing.T) {
	tests := []struct {
		name  string
		flags map[string]string
		check func(t *testing.T, cfg *service.Config)
	}{
		{
			name:  "nothing set keeps defaults",
			flags: nil,
			check: func(t *testing.T, cfg *service.Config) {
				if cfg.Layout.Template != models.TemplateStatement || cfg.Storage.Kind != storage.KindNone {
					t.Errorf("defaults changed: template=%s storage=%q", cfg.Layout.Template, cfg.Storage.Kind)
				}
			},
		},
		{
			name:  "layout and engine",
			flags: map[string]string{"template": "fast", "engine": "maroto", "work-dir": "/tmp/w"},
			check: func(t *testing.T, cfg *service.Config) {
				if cfg.Layout.Template != models.TemplateFast || cfg.Render.Engine != "maroto" || cfg.WorkDir != "/tmp/w" {
					t.Errorf("unexpected config: %+v %+v %q", cfg.Layout, cfg.Render, cfg.WorkDir)
				}
			},
		},
		{
			name:  "conversion",
			flags: map[string]string{"soffice": "/opt/soffice", "timeout": "45s", "disable-excel": "true"},
			check: func(t *testing.T, cfg *service.Config) {
				if cfg.Convert.SofficePath != "/opt/soffice" || cfg.Convert.Timeout != 45*time.Second || !cfg.Convert.DisableExcel {
					t.Errorf("unexpected conversion options: %+v", cfg.Convert)
				}
			},
		},
		{
			name:  "bucket implies s3",
			flags: map[string]string{"s3-bucket": "statements", "s3-prefix": "2025", "s3-region": "ap-south-1"},
			check: func(t *testing.T, cfg *service.Config) {
				if cfg.Storage.Kind != storage.KindS3 || cfg.Storage.Bucket != "statements" || cfg.Storage.Region != "ap-south-1" {
					t.Errorf("unexpected storage: %+v", cfg.Storage)
				}
			},
		},
		{
			name:  "directory implies local",
			flags: map[string]string{"storage-dir": "/srv/out"},
			check: func(t *testing.T, cfg *service.Config) {
				if cfg.Storage.Kind != storage.KindLocal || cfg.Storage.Dir != "/srv/out" {
					t.Errorf("unexpected storage: %+v", cfg.Storage)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newFlagCommand()
			for name, value := range tt.flags {
				if err := c.Flags().Set(name, value); err != nil {
					t.Fatalf("failed to set %s: %v", name, err)
				}
			}
			cfg := service.DefaultConfig()
			applyFlagOverrides(c, cfg)
			tt.check(t, cfg)
		})
	}
}

func TestAccountOverrides(t *testing.T) {
	accountFile := createTempFile(t, "account.yaml", "customer_id: \"100\"\naccount_holder_name: FROM FILE\n")

	c := newFlagCommand()
	c.Flags().Set("account-file", accountFile)
	c.Flags().Set("field", "customer_id=200")
	c.Flags().Set("field", "transaction_date_from=01-04-2025")

	meta, err := accountOverrides(c)
	if err != nil {
		t.Fatalf("accountOverrides() error = %v", err)
	}
	if meta.CustomerID != "200" {
		t.Errorf("fields should win over the file, got customer_id %q", meta.CustomerID)
	}
	if meta.AccountHolderName != "FROM FILE" {
		t.Errorf("AccountHolderName = %q", meta.AccountHolderName)
	}
	if meta.DateFrom != "01-04-2025" {
		t.Errorf("DateFrom = %q", meta.DateFrom)
	}

	bad := newFlagCommand()
	bad.Flags().Set("field", "favourite_colour=blue")
	if _, err := accountOverrides(bad); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestCLIErrorHandler(t *testing.T) {
	color.NoColor = true

	tests := []struct {
		name         string
		err          error
		verbose      bool
		wantCode     int
		wantContains []string
	}{
		{
			name:     "nil error",
			err:      nil,
			wantCode: 0,
		},
		{
			name:         "file error",
			err:          errors.FileError(errors.CodeFileNotFound, "/data/march.xlsx", nil),
			wantCode:     2,
			wantContains: []string{"Error:", "File error help"},
		},
		{
			name: "conversion error with context",
			err: errors.ConversionError(errors.CodeTimeout, "libreoffice", fmt.Errorf("killed")).
				WithContext("stderr", "soffice hung").
				WithSuggestion("raise the timeout"),
			verbose:      true,
			wantCode:     6,
			wantContains: []string{"stderr: soffice hung", "Suggestion: raise the timeout", "Conversion error help", "Underlying error: killed"},
		},
		{
			name:         "validation error",
			err:          errors.ValidationError(errors.CodeInvalidValue, "report-format", "xml", nil),
			wantCode:     3,
			wantContains: []string{"Input error help"},
		},
		{
			name:         "plain not found",
			err:          os.ErrNotExist,
			wantCode:     2,
			wantContains: []string{"File not found"},
		},
		{
			name:         "plain error",
			err:          fmt.Errorf("something odd"),
			wantCode:     1,
			wantContains: []string{"Error: something odd", "--verbose"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &CLIErrorHandler{logger: logger.GetGlobalLogger(), verbose: tt.verbose, out: &buf}

			if code := h.HandleError(tt.err); code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", code, tt.wantCode)
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestGetVersionString(t *testing.T) {
	defer SetVersionInfo("dev", "unknown", "unknown")

	SetVersionInfo("1.4.0", "abc123", "2025-03-02")
	if got := getVersionString(); got != "1.4.0" {
		t.Errorf("getVersionString() = %q", got)
	}

	SetVersionInfo("dev", "abc123", "today")
	if got := getVersionString(); !strings.Contains(got, "abc123") {
		t.Errorf("dev version should include the commit, got %q", got)
	}
}

func TestRenderCommand(t *testing.T) {
	input := createTempFile(t, "march.csv", statementCSV)
	output := filepath.Join(t.TempDir(), "march.pdf")

	rootCmd.SetArgs([]string{"render", input, "-o", output, "-f", "json", "--field", "customer_id=900900"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("expected output PDF: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("output is not a PDF")
	}
}

func TestCSV2XLSXCommand(t *testing.T) {
	input := createTempFile(t, "export.csv", statementCSV)

	rootCmd.SetArgs([]string{"csv2xlsx", input})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("csv2xlsx failed: %v", err)
	}

	xlsx := strings.TrimSuffix(input, ".csv") + ".xlsx"
	data, err := os.ReadFile(xlsx)
	if err != nil {
		t.Fatalf("expected workbook: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Error("output is not an xlsx archive")
	}
}

func TestConvertCommand_RejectsUnsupported(t *testing.T) {
	input := createTempFile(t, "notes.txt", "hello")

	rootCmd.SetArgs([]string{"convert", input})
	err := rootCmd.Execute()
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.CodeUnsupportedFormat {
		t.Errorf("expected unsupported_format, got %v", err)
	}
}
