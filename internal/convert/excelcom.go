package convert

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"statement-pdf-service/pkg/errors"
)

const toolExcel = "Microsoft Excel"

// ExcelCOMStrategy drives Excel through a PowerShell COM script. It only
// exists on Windows and only handles spreadsheets.
type ExcelCOMStrategy struct {
	GOOS       string
	PowerShell string
	Timeout    time.Duration

	exec Executor
}

// NewExcelCOMStrategy creates the strategy for the current OS
func NewExcelCOMStrategy(timeout time.Duration) *ExcelCOMStrategy {
	return &ExcelCOMStrategy{
		GOOS:       runtime.GOOS,
		PowerShell: "powershell.exe",
		Timeout:    timeout,
		exec:       defaultExec,
	}
}

func (s *ExcelCOMStrategy) Name() string { return "excel-com" }

func (s *ExcelCOMStrategy) Convert(ctx context.Context, input, outDir string) Result {
	if s.GOOS != "windows" {
		return unavailable(toolExcel, fmt.Errorf("automation requires a Windows host"))
	}
	if !IsSpreadsheet(input) {
		return unavailable(toolExcel, fmt.Errorf("%s is not a spreadsheet", filepath.Base(input)))
	}
	shell, err := s.exec.LookPath(s.PowerShell)
	if err != nil {
		return unavailable(toolExcel, err)
	}

	out := expectedPDF(input, outDir)
	runCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	args := []string{"-NoProfile", "-NonInteractive", "-ExecutionPolicy", "Bypass", "-Command", ExcelExportScript(input, out)}
	_, stderr, err := s.exec.Run(runCtx, shell, args, nil)
	if runCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		return failed(errors.ConversionError(errors.CodeTimeout, toolExcel, runCtx.Err()).
			WithContext("timeout", s.Timeout.String()))
	}
	if err != nil {
		// a missing Excel install surfaces as a COM class error
		if strings.Contains(string(stderr), "80040154") {
			return unavailable(toolExcel, err)
		}
		return failed(errors.ConversionError(errors.CodeToolFailed, toolExcel, err).
			WithContext("stderr", string(stderr)))
	}
	if !outputExists(out) {
		return failed(errors.ConversionError(errors.CodeNoOutput, toolExcel, nil).WithContext("expected", out))
	}
	return Result{Status: StatusSuccess, Path: out}
}

// ExcelExportScript is the PowerShell program that prints every sheet of a
// workbook to A4, one page wide, landscape when a sheet has more than six
// columns.
func ExcelExportScript(input, output string) string {
	return fmt.Sprintf(`$ErrorActionPreference = 'Stop'
$excel = New-Object -ComObject Excel.Application
$excel.Visible = $false
$excel.DisplayAlerts = $false
try {
  $wb = $excel.Workbooks.Open(%s)
  foreach ($ws in $wb.Worksheets) {
    $ws.PageSetup.Zoom = $false
    $ws.PageSetup.FitToPagesWide = 1
    $ws.PageSetup.FitToPagesTall = $false
    $ws.PageSetup.PaperSize = 9
    $ws.PageSetup.CenterHorizontally = $true
    $ws.PageSetup.LeftMargin = $excel.InchesToPoints(0.2)
    $ws.PageSetup.RightMargin = $excel.InchesToPoints(0.2)
    $ws.PageSetup.TopMargin = $excel.InchesToPoints(0.3)
    $ws.PageSetup.BottomMargin = $excel.InchesToPoints(0.3)
    if ($ws.UsedRange.Columns.Count -gt 6) { $ws.PageSetup.Orientation = 2 } else { $ws.PageSetup.Orientation = 1 }
  }
  $wb.ExportAsFixedFormat(0, %s)
  $wb.Close($false)
} finally {
  $excel.Quit()
  [System.Runtime.Interopservices.Marshal]::ReleaseComObject($excel) | Out-Null
}
`, psQuote(input), psQuote(output))
}

// psQuote returns s as a single-quoted PowerShell literal
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
