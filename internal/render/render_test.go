package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"statement-pdf-service/internal/layout"
	"statement-pdf-service/internal/models"
	"statement-pdf-service/pkg/errors"
)

func scenarioTable() *models.Table {
	return &models.Table{
		HeaderRow: 0,
		Columns:   []string{"Sr No", "Date", "Remarks", "Debit", "Credit", "Balance"},
		Rows: [][]string{
			{"1", "02-03-2025", "UPI/...", "", "300.00", "₹ 81,338.54"},
		},
	}
}

func longTable(rows int) *models.Table {
	table := scenarioTable()
	table.Rows = nil
	for i := 1; i <= rows; i++ {
		table.Rows = append(table.Rows, []string{
			fmt.Sprint(i), "02-03-2025", "NEFT transfer to supplier account", "", "300.00", "81,338.54",
		})
	}
	return table
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func writePNG(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "logo.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create logo: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 16, 8))); err != nil {
		t.Fatalf("Failed to encode logo: %v", err)
	}
	return path
}

func assertRenderError(t *testing.T, err error, code errors.ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatal("Expected an error")
	}
	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("Expected AppError, got %T: %v", err, err)
	}
	if appErr.Category != errors.CategoryRender || appErr.Code != code {
		t.Errorf("Got %s/%s, want render/%s", appErr.Category, appErr.Code, code)
	}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"auto", Options{Engine: EngineAuto, MarginMM: 12}, false},
		{"gofpdf", Options{Engine: EngineGofpdf, MarginMM: 0}, false},
		{"maroto", Options{Engine: EngineMaroto, MarginMM: 20}, false},
		{"unknown engine", Options{Engine: "cairo", MarginMM: 12}, true},
		{"negative margin", Options{Engine: EngineAuto, MarginMM: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opts.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRenderer_EngineFor(t *testing.T) {
	auto := New(nil)
	if got := auto.EngineFor(&models.Document{Template: models.TemplateStatement}).Name(); got != EngineGofpdf {
		t.Errorf("Statement engine = %s", got)
	}
	if got := auto.EngineFor(&models.Document{Template: models.TemplateFast}).Name(); got != EngineMaroto {
		t.Errorf("Fast engine = %s", got)
	}

	forced := New(&Options{Engine: EngineGofpdf, MarginMM: 12})
	if got := forced.EngineFor(&models.Document{Template: models.TemplateFast}).Name(); got != EngineGofpdf {
		t.Errorf("Forced engine = %s", got)
	}
}

func TestRender_Scenario(t *testing.T) {
	doc := layout.Compose(models.DefaultAccountMetadata(), scenarioTable(), nil)

	data, err := New(nil).RenderBytes(context.Background(), doc)
	if err != nil {
		t.Fatalf("RenderBytes failed: %v", err)
	}

	info, err := InspectBytes(data)
	if err != nil {
		t.Fatalf("InspectBytes failed: %v", err)
	}
	if info.Pages != 1 {
		t.Errorf("Pages = %d, want 1", info.Pages)
	}
	if info.Landscape() {
		t.Errorf("Expected portrait page, got %.0fx%.0f", info.Width, info.Height)
	}

	text := squash(info.Text)
	for _, want := range []string{"DetailedStatement", "BankofIndia", "SrNo", "Remarks", "Debit", "Credit", "Balance", "Page1", "300.00"} {
		if !strings.Contains(text, want) {
			t.Errorf("Rendered text missing %q", want)
		}
	}
}

func TestRender_StatementBlocksWithEachEngine(t *testing.T) {
	for _, engine := range []string{EngineGofpdf, EngineMaroto} {
		t.Run(engine, func(t *testing.T) {
			doc := layout.Compose(models.DefaultAccountMetadata(), scenarioTable(), nil)

			data, err := New(&Options{Engine: engine, MarginMM: 12}).RenderBytes(context.Background(), doc)
			if err != nil {
				t.Fatalf("RenderBytes failed: %v", err)
			}
			info, err := InspectBytes(data)
			if err != nil {
				t.Fatalf("InspectBytes failed: %v", err)
			}

			text := squash(info.Text)
			for _, want := range []string{"HARINI", "SCHEMECODE", "CUSTOMERID", "Transactiontype", "Remarks"} {
				if !strings.Contains(text, want) {
					t.Errorf("%s output missing %q", engine, want)
				}
			}
		})
	}
}

func TestRender_RepeatsHeaderOnEveryPage(t *testing.T) {
	doc := layout.Compose(models.DefaultAccountMetadata(), longTable(150), nil)

	data, err := New(nil).RenderBytes(context.Background(), doc)
	if err != nil {
		t.Fatalf("RenderBytes failed: %v", err)
	}
	info, err := InspectBytes(data)
	if err != nil {
		t.Fatalf("InspectBytes failed: %v", err)
	}
	if info.Pages < 2 {
		t.Fatalf("Expected several pages, got %d", info.Pages)
	}

	text := squash(info.Text)
	if got := strings.Count(text, "DetailedStatement"); got != info.Pages {
		t.Errorf("Page heading drawn %d times on %d pages", got, info.Pages)
	}
	if got := strings.Count(text, "Remarks"); got != info.Pages {
		t.Errorf("Table header drawn %d times on %d pages", got, info.Pages)
	}
	if !strings.Contains(text, fmt.Sprintf("Page%d", info.Pages)) {
		t.Error("Missing footer on the last page")
	}
}

func TestRender_TooWideTable(t *testing.T) {
	doc := &models.Document{
		Template:    models.TemplateStatement,
		Orientation: models.Portrait,
		Blocks: []models.ReportBlock{{
			Kind: models.BlockTable,
			Table: &models.TableBlock{
				Columns: []models.ColumnStyle{{Name: "a", Width: 400}, {Name: "b", Width: 400}},
				Header:  []string{"a", "b"},
				Rows:    [][]string{{"1", "2"}},
				Style:   models.StatementTableStyle(),
			},
		}},
	}

	var buf bytes.Buffer
	err := New(nil).Render(context.Background(), doc, &buf)
	assertRenderError(t, err, errors.CodeLayoutFailed)
	if buf.Len() != 0 {
		t.Errorf("Expected no partial output, got %d bytes", buf.Len())
	}
}

func TestRender_Logo(t *testing.T) {
	dir := t.TempDir()
	opts := layout.DefaultOptions()
	opts.Profile.LogoPath = writePNG(t, dir)

	doc := layout.Compose(models.DefaultAccountMetadata(), scenarioTable(), opts)
	if _, err := New(nil).RenderBytes(context.Background(), doc); err != nil {
		t.Fatalf("Render with logo failed: %v", err)
	}

	opts.Profile.LogoPath = filepath.Join(dir, "missing.png")
	doc = layout.Compose(models.DefaultAccountMetadata(), scenarioTable(), opts)

	for _, engine := range []string{EngineGofpdf, EngineMaroto} {
		t.Run(engine, func(t *testing.T) {
			var buf bytes.Buffer
			err := New(&Options{Engine: engine, MarginMM: 12}).Render(context.Background(), doc, &buf)
			assertRenderError(t, err, errors.CodeRenderFailed)
			if buf.Len() != 0 {
				t.Error("Expected no output for a missing logo")
			}
		})
	}
}

func TestRender_InvalidBlock(t *testing.T) {
	doc := &models.Document{Blocks: []models.ReportBlock{{Kind: models.BlockTitle}}}
	_, err := New(nil).RenderBytes(context.Background(), doc)
	assertRenderError(t, err, errors.CodeLayoutFailed)
}

func TestRender_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc := layout.Compose(models.DefaultAccountMetadata(), scenarioTable(), nil)
	_, err := New(nil).RenderBytes(ctx, doc)

	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.CodeCancelled {
		t.Errorf("Expected cancelled error, got %v", err)
	}
}

func TestRender_FastTemplate(t *testing.T) {
	wide := &models.Table{
		Columns: []string{"Sr No", "Date", "Remarks", "Debit", "Credit", "Balance", "Branch"},
		Rows: [][]string{
			{"1", "02-03-2025", "UPI/...", "", "300.00", "81,338.54", "Madurai"},
			{"2", "03-03-2025", "NEFT", "10.00", "", "81,328.54", "Madurai"},
		},
	}
	opts := layout.DefaultOptions()
	opts.Template = models.TemplateFast
	doc := layout.Compose(models.DefaultAccountMetadata(), wide, opts)

	data, err := New(nil).RenderBytes(context.Background(), doc)
	if err != nil {
		t.Fatalf("RenderBytes failed: %v", err)
	}
	info, err := InspectBytes(data)
	if err != nil {
		t.Fatalf("InspectBytes failed: %v", err)
	}
	if info.Pages < 1 {
		t.Errorf("Pages = %d", info.Pages)
	}
	if !info.Landscape() {
		t.Errorf("Expected landscape page, got %.0fx%.0f", info.Width, info.Height)
	}
}

func TestRenderFile_Atomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "statement.pdf")
	r := New(nil)

	doc := layout.Compose(models.DefaultAccountMetadata(), scenarioTable(), nil)
	if err := r.RenderFile(context.Background(), doc, path); err != nil {
		t.Fatalf("RenderFile failed: %v", err)
	}

	info, err := Inspect(path)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if info.Path != path || info.Pages != 1 || info.Size == 0 {
		t.Errorf("Unexpected info %+v", info)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("Expected only the output file, found %d entries", len(entries))
	}

	failed := filepath.Join(dir, "failed.pdf")
	bad := &models.Document{Blocks: []models.ReportBlock{{Kind: models.BlockTable}}}
	if err := r.RenderFile(context.Background(), bad, failed); err == nil {
		t.Fatal("Expected an error")
	}
	if _, err := os.Stat(failed); !os.IsNotExist(err) {
		t.Error("Failed render must not create the output file")
	}
	entries, _ = os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("Temp files left behind: %d entries", len(entries))
	}
}

func TestInspect_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Inspect(filepath.Join(dir, "none.pdf"))
	if appErr, ok := errors.AsAppError(err); !ok || appErr.Code != errors.CodeFileNotFound {
		t.Errorf("Expected file_not_found, got %v", err)
	}

	garbage := filepath.Join(dir, "garbage.pdf")
	if err := os.WriteFile(garbage, []byte("not a pdf at all"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = Inspect(garbage)
	if appErr, ok := errors.AsAppError(err); !ok || appErr.Code != errors.CodeFileCorrupted {
		t.Errorf("Expected file_corrupted, got %v", err)
	}
}

func TestGridSizes(t *testing.T) {
	table := &models.TableBlock{Columns: []models.ColumnStyle{{Width: 100}, {Width: 300}, {Width: 0.1}}}
	sizes, grid := gridSizes(table)

	if sizes[0] != 25 || sizes[1] != 75 || sizes[2] != 1 {
		t.Errorf("Sizes = %v", sizes)
	}
	if grid != 101 {
		t.Errorf("Grid = %d, want the sum of the sizes", grid)
	}

	if _, grid := gridSizes(nil); grid != 12 {
		t.Errorf("Empty grid = %d, want 12", grid)
	}
}

func TestEstimateLines(t *testing.T) {
	tests := []struct {
		value string
		width float64
		want  int
	}{
		{"", 30, 1},
		{"short", 30, 1},
		{strings.Repeat("x", 100), 20, 9},
		{"anything", 1, 1},
	}
	for _, tt := range tests {
		if got := estimateLines(tt.value, tt.width, 8); got != tt.want {
			t.Errorf("estimateLines(%d runes, %.0fmm) = %d, want %d", len(tt.value), tt.width, got, tt.want)
		}
	}
}

func TestSanitize(t *testing.T) {
	if got := sanitize("₹ 81,338.54\tCR"); got != "Rs. 81,338.54 CR" {
		t.Errorf("sanitize = %q", got)
	}
}
