package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"statement-pdf-service/internal/detect"
	"statement-pdf-service/internal/layout"
	"statement-pdf-service/internal/models"
	"statement-pdf-service/pkg/errors"
)

// createTempFile writes raw bytes to a file with the given name in a test directory
func createTempFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	return path
}

// createTempXLSX writes rows to the first sheet of a new workbook
func createTempXLSX(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("Failed to build cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("Failed to set row: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "statement.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("Failed to save workbook: %v", err)
	}
	return path
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"defaults", *DefaultOptions(), false},
		{"no encodings", Options{}, true},
		{"unknown encoding", Options{Encodings: []string{"utf-8", "ebcdic"}}, true},
		{"negative rows", Options{Encodings: []string{"utf-8"}, MaxRows: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_CSVEncodings(t *testing.T) {
	tests := []struct {
		name         string
		content      []byte
		wantEncoding string
		wantRemark   string
	}{
		{
			name:         "utf-8 with BOM",
			content:      append([]byte{0xEF, 0xBB, 0xBF}, []byte("Sr No,Date,Remarks\n1,02-03-2025,Café ₹\n")...),
			wantEncoding: EncodingUTF8,
			wantRemark:   "Café ₹",
		},
		{
			name:         "latin-1",
			content:      []byte("Sr No,Date,Remarks\n1,02-03-2025,Caf\xe9\n"),
			wantEncoding: EncodingLatin1,
			wantRemark:   "Café",
		},
		{
			name:         "cp1252 euro sign",
			content:      []byte("Sr No,Date,Remarks\n1,02-03-2025,\x80 50\n"),
			wantEncoding: EncodingCP1252,
			wantRemark:   "€ 50",
		},
		{
			name:         "iso-8859-1 fallback",
			content:      []byte("Sr No,Date,Remarks\n1,02-03-2025,A\x81B\n"),
			wantEncoding: EncodingISO8859_1,
			wantRemark:   "A\u0081B",
		},
	}

	l := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := createTempFile(t, "statement.csv", tt.content)

			doc, err := l.Load(context.Background(), path)
			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}
			if doc.Encoding != tt.wantEncoding {
				t.Errorf("Encoding = %s, want %s", doc.Encoding, tt.wantEncoding)
			}
			if doc.Len() != 2 {
				t.Fatalf("Expected 2 rows, got %d", doc.Len())
			}
			if got := doc.Rows[1][2].Text(); got != tt.wantRemark {
				t.Errorf("Remark = %q, want %q", got, tt.wantRemark)
			}
			if doc.Format != models.FormatCSV {
				t.Errorf("Format = %s, want csv", doc.Format)
			}
		})
	}
}

func TestLoad_CSVUnreadable(t *testing.T) {
	path := createTempFile(t, "binary.csv", []byte("PK\x03\x04\x00\x00garbage"))

	_, err := New(nil).Load(context.Background(), path)
	if err == nil {
		t.Fatal("Expected error for binary content")
	}

	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("Expected AppError, got %T", err)
	}
	if appErr.Code != errors.CodeUnreadableFile {
		t.Errorf("Code = %s, want %s", appErr.Code, errors.CodeUnreadableFile)
	}
	if appErr.Context["encodings_tried"] != "utf-8, latin-1, cp1252, iso-8859-1" {
		t.Errorf("encodings_tried = %v", appErr.Context["encodings_tried"])
	}
}

func TestLoad_CSVRestrictedEncodings(t *testing.T) {
	path := createTempFile(t, "latin.csv", []byte("a,b\nCaf\xe9,1\n"))

	_, err := New(&Options{Encodings: []string{EncodingUTF8}}).Load(context.Background(), path)
	if err == nil {
		t.Fatal("Expected utf-8 only loader to reject latin-1 bytes")
	}
	if appErr, ok := errors.AsAppError(err); !ok || appErr.Code != errors.CodeUnreadableFile {
		t.Errorf("Expected unreadable file error, got %v", err)
	}
}

func TestLoad_CSVRaggedRows(t *testing.T) {
	content := "Customer ID,192136847\n,,\nSr No,Date,Remarks,Debit,Credit,Balance\n1,02-03-2025,\"UPI/1,2\",,300.00\n"
	path := createTempFile(t, "ragged.csv", []byte(content))

	doc, err := New(nil).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if err := doc.Validate(); err != nil {
		t.Errorf("Expected normalized document, got %v", err)
	}
	if doc.Width() != 6 {
		t.Errorf("Width = %d, want 6", doc.Width())
	}
	if doc.Len() != 4 {
		t.Errorf("Len = %d, want 4 (blank rows are kept)", doc.Len())
	}
	if got := doc.Rows[3][2].Text(); got != "UPI/1,2" {
		t.Errorf("Quoted remark = %q", got)
	}
}

func TestLoad_MaxRows(t *testing.T) {
	path := createTempFile(t, "many.csv", []byte("a\nb\nc\nd\n"))

	opts := DefaultOptions()
	opts.MaxRows = 2
	doc, err := New(opts).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if doc.Len() != 2 {
		t.Errorf("Len = %d, want 2", doc.Len())
	}
}

func TestLoad_XLSX(t *testing.T) {
	path := createTempXLSX(t, [][]interface{}{
		{"Sr No", "Date", "Remarks", "Debit", "Credit", "Balance"},
		{1, "02-03-2025", "UPI/123", nil, 300.5, "₹ 81,338.54"},
	})

	doc, err := New(nil).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if doc.Format != models.FormatXLSX || doc.Sheet != "Sheet1" {
		t.Errorf("Unexpected document format %s sheet %s", doc.Format, doc.Sheet)
	}
	if doc.Width() != 6 || doc.Len() != 2 {
		t.Fatalf("Unexpected shape %dx%d", doc.Len(), doc.Width())
	}
	if doc.Rows[1][0].Kind != models.CellNumber {
		t.Errorf("Expected numeric Sr No cell, got kind %v", doc.Rows[1][0].Kind)
	}
	if !doc.Rows[1][3].IsEmpty() {
		t.Error("Expected empty Debit cell")
	}
	if got := doc.Rows[1][5].Text(); got != "₹ 81,338.54" {
		t.Errorf("Balance = %q", got)
	}
}

func TestLoad_CSVAndXLSXAgree(t *testing.T) {
	rows := [][]interface{}{
		{"Customer ID", "555001"},
		{"Account Holder Name", "ACME TRADERS"},
		{"Account Number", "1234567890"},
		{"Sr No", "Date", "Remarks", "Debit", "Credit", "Balance"},
		{1, "02-03-2025", "UPI/CR/123", nil, 300.5, "₹ 81,338.54"},
		{2, "05-03-2025", "NEFT/DR/9", 1000, nil, "₹ 80,338.54"},
	}

	csvText := "Customer ID,555001\nAccount Holder Name,ACME TRADERS\nAccount Number,1234567890\n" +
		"Sr No,Date,Remarks,Debit,Credit,Balance\n" +
		"1,02-03-2025,UPI/CR/123,,300.5,\"₹ 81,338.54\"\n" +
		"2,05-03-2025,NEFT/DR/9,1000,,\"₹ 80,338.54\"\n"

	sources := map[string]string{
		"csv":  createTempFile(t, "statement.csv", []byte(csvText)),
		"xlsx": createTempXLSX(t, rows),
	}

	headerRows := map[string]int{}
	styles := map[string][]models.ColumnStyle{}
	for name, path := range sources {
		doc, err := New(nil).Load(context.Background(), path)
		if err != nil {
			t.Fatalf("%s: Load() unexpected error: %v", name, err)
		}
		table := detect.New(nil).DetectTable(doc)
		headerRows[name] = table.HeaderRow
		styles[name] = layout.StyleColumns(table, 500)
	}

	if headerRows["csv"] != 3 || headerRows["xlsx"] != 3 {
		t.Errorf("HeaderRow csv=%d xlsx=%d, want 3", headerRows["csv"], headerRows["xlsx"])
	}
	if len(styles["csv"]) != 6 || len(styles["csv"]) != len(styles["xlsx"]) {
		t.Fatalf("Column count csv=%d xlsx=%d", len(styles["csv"]), len(styles["xlsx"]))
	}
	for i := range styles["csv"] {
		c, x := styles["csv"][i], styles["xlsx"][i]
		if c.Align != x.Align || c.Numeric != x.Numeric {
			t.Errorf("Column %s: csv %s/%v, xlsx %s/%v", c.Name, c.Align, c.Numeric, x.Align, x.Numeric)
		}
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
		code errors.ErrorCode
	}{
		{"unsupported extension", createTempFile(t, "notes.txt", []byte("x")), errors.CodeUnsupportedFormat},
		{"missing file", filepath.Join(dir, "missing.csv"), errors.CodeFileNotFound},
		{"directory", func() string {
			p := filepath.Join(dir, "folder.csv")
			if err := os.Mkdir(p, 0o755); err != nil {
				t.Fatalf("mkdir: %v", err)
			}
			return p
		}(), errors.CodeDirectoryError},
		{"corrupt xlsx", createTempFile(t, "broken.xlsx", []byte("not a zip")), errors.CodeFileCorrupted},
		{"corrupt xls", createTempFile(t, "broken.xls", []byte("not an ole2 file")), errors.CodeFileCorrupted},
	}

	l := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Load(context.Background(), tt.path)
			if err == nil {
				t.Fatal("Expected error")
			}
			appErr, ok := errors.AsAppError(err)
			if !ok {
				t.Fatalf("Expected AppError, got %T", err)
			}
			if appErr.Code != tt.code {
				t.Errorf("Code = %s, want %s", appErr.Code, tt.code)
			}
		})
	}
}

func TestLoad_Cancelled(t *testing.T) {
	path := createTempFile(t, "s.csv", []byte("a,b\n"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(nil).Load(ctx, path)
	if err == nil {
		t.Fatal("Expected cancellation error")
	}
	if appErr, ok := errors.AsAppError(err); !ok || appErr.Code != errors.CodeCancelled {
		t.Errorf("Expected cancelled error, got %v", err)
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want models.SourceFormat
		ok   bool
	}{
		{"a.CSV", models.FormatCSV, true},
		{"dir/b.xlsx", models.FormatXLSX, true},
		{"c.xls", models.FormatXLS, true},
		{"d.pdf", "", false},
	}
	for _, tt := range tests {
		got, ok := FormatFromPath(tt.path)
		if got != tt.want || ok != tt.ok {
			t.Errorf("FormatFromPath(%q) = %s, %v", tt.path, got, ok)
		}
	}
}
