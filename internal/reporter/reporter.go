// Package reporter prints what the pipeline found in a statement and what it
// produced.
//
// Supported output formats:
//   - Console: pterm tables for terminal display
//   - JSON: structured data for programmatic consumption
//   - CSV: key/value rows for spreadsheets
//
// Three subjects can be reported: a *service.Analysis (source inspection), a
// *service.Result (a finished render) and a *render.PDFInfo (an existing PDF).
//
// Example usage:
//
//	generator, err := reporter.NewReportGenerator(&reporter.ReportConfig{Format: reporter.FormatJSON})
//	err = generator.GenerateReport(analysis, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"statement-pdf-service/internal/detect"
	"statement-pdf-service/internal/models"
	"statement-pdf-service/internal/render"
	"statement-pdf-service/internal/service"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// IncludeMatches lists every accepted and rejected metadata match
	IncludeMatches bool `json:"include_matches"`
	// IncludeSteps lists per-stage timings of a render
	IncludeSteps bool `json:"include_steps"`

	UseColors bool `json:"use_colors"`

	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:         FormatConsole,
		IncludeMatches: true,
		IncludeSteps:   true,
		UseColors:      true,
		CSVDelimiter:   ',',
		CSVHeaders:     true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.Format == FormatCSV && (c.CSVDelimiter == 0 || c.CSVDelimiter == '"' || c.CSVDelimiter == '\n') {
		return fmt.Errorf("invalid CSV delimiter %q", c.CSVDelimiter)
	}
	return nil
}

// ReportGenerator generates reports in various formats
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if config.CSVDelimiter == 0 {
		config.CSVDelimiter = ','
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}
	return &ReportGenerator{config: config}, nil
}

// GenerateReport writes a report about subject to writer
func (rg *ReportGenerator) GenerateReport(subject interface{}, writer io.Writer) error {
	if subject == nil {
		return fmt.Errorf("report subject cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(subject, writer)
	case FormatJSON:
		return rg.generateJSONReport(subject, writer)
	case FormatCSV:
		return rg.generateCSVReport(subject, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func (rg *ReportGenerator) generateConsoleReport(subject interface{}, writer io.Writer) error {
	var b strings.Builder
	switch s := subject.(type) {
	case *service.Analysis:
		rg.consoleAnalysis(s, &b)
	case *service.Result:
		rg.consoleResult(s, &b)
	case *render.PDFInfo:
		rg.consolePDF(s, &b)
	default:
		return fmt.Errorf("unsupported report subject %T", subject)
	}

	out := b.String()
	if !rg.config.UseColors {
		out = pterm.RemoveColorFromString(out)
	}
	_, err := io.WriteString(writer, out)
	return err
}

func (rg *ReportGenerator) consoleAnalysis(a *service.Analysis, b *strings.Builder) {
	fmt.Fprintf(b, "STATEMENT ANALYSIS\n")
	fmt.Fprintf(b, "Source: %s (%s", a.Source, a.Format)
	if a.Encoding != "" {
		fmt.Fprintf(b, ", %s", a.Encoding)
	}
	if a.Sheet != "" {
		fmt.Fprintf(b, ", sheet %s", a.Sheet)
	}
	fmt.Fprintf(b, ")\n\n")

	fmt.Fprintf(b, "=== TABLE ===\n")
	if !a.HasTable() {
		fmt.Fprintf(b, "%s\n\n", pterm.FgYellow.Sprint("No transaction table detected"))
	} else {
		fmt.Fprintf(b, "Header row:   %d\n", a.HeaderRow+1)
		fmt.Fprintf(b, "Keyword hits: %d\n", a.KeywordHits)
		fmt.Fprintf(b, "Body rows:    %d\n", a.Rows)
		fmt.Fprintf(b, "Layout:       %s, %s\n\n", a.Template, a.Orientation)

		data := pterm.TableData{{"#", "Column", "Align", "Numeric", "Width (mm)"}}
		for i, c := range a.Columns {
			data = append(data, []string{
				strconv.Itoa(i + 1),
				c.Name,
				string(c.Align),
				yesNo(c.Numeric),
				fmt.Sprintf("%.1f", c.WidthMM),
			})
		}
		b.WriteString(renderTable(data))
		b.WriteString("\n")
	}

	fmt.Fprintf(b, "=== ACCOUNT METADATA ===\n")
	b.WriteString(renderTable(rg.metadataTable(a.Metadata, a.Matches)))
	b.WriteString("\n")

	if rg.config.IncludeMatches && len(a.Rejected) > 0 {
		fmt.Fprintf(b, "=== REJECTED MATCHES ===\n")
		data := pterm.TableData{{"Field", "Value", "Row", "Confidence"}}
		for _, m := range a.Rejected {
			data = append(data, []string{m.Field, m.Value, strconv.Itoa(m.Row + 1), fmt.Sprintf("%.2f", m.Confidence)})
		}
		b.WriteString(renderTable(data))
		b.WriteString("\n")
	}

	fmt.Fprintf(b, "Blocks: %s\n", joinKinds(a.Blocks))
}

// metadataTable lists every account field with where its value came from
func (rg *ReportGenerator) metadataTable(meta models.AccountMetadata, matches []detect.Match) pterm.TableData {
	byField := make(map[string]detect.Match, len(matches))
	for _, m := range matches {
		byField[m.Field] = m
	}

	header := []string{"Field", "Value"}
	if rg.config.IncludeMatches {
		header = append(header, "Source", "Confidence")
	}
	data := pterm.TableData{header}
	for _, field := range models.AccountFields {
		row := []string{field, strings.ReplaceAll(meta.Get(field), "\n", " / ")}
		if rg.config.IncludeMatches {
			if m, ok := byField[field]; ok {
				row = append(row, pterm.FgGreen.Sprint(m.Source), fmt.Sprintf("%.2f", m.Confidence))
			} else {
				row = append(row, "default/override", "-")
			}
		}
		data = append(data, row)
	}
	return data
}

func (rg *ReportGenerator) consoleResult(r *service.Result, b *strings.Builder) {
	fmt.Fprintf(b, "STATEMENT RENDERED\n")
	data := pterm.TableData{
		{"Output", r.OutputPath},
		{"Pages", strconv.Itoa(r.Pages)},
		{"Layout", fmt.Sprintf("%s, %s", r.Template, r.Orientation)},
		{"Table", fmt.Sprintf("%d columns, %d rows (header row %d)", r.Columns, r.Rows, r.HeaderRow+1)},
		{"Customer", r.Metadata.CustomerID},
		{"Period", fmt.Sprintf("%s to %s", r.Metadata.DateFrom, r.Metadata.DateTo)},
		{"Duration", r.Duration.String()},
	}
	if r.Location != "" {
		data = append(data, []string{"Published", r.Location})
	}
	b.WriteString(renderPlainTable(data))
	b.WriteString("\n")

	if rg.config.IncludeSteps && len(r.Steps) > 0 {
		fmt.Fprintf(b, "=== STEPS ===\n")
		steps := pterm.TableData{{"Step", "Duration"}}
		for _, s := range r.Steps {
			steps = append(steps, []string{s.Name, s.Duration.String()})
		}
		b.WriteString(renderTable(steps))
		b.WriteString("\n")
	}
}

func (rg *ReportGenerator) consolePDF(info *render.PDFInfo, b *strings.Builder) {
	orientation := models.Portrait
	if info.Landscape() {
		orientation = models.Landscape
	}
	fmt.Fprintf(b, "PDF INSPECTION\n")
	b.WriteString(renderPlainTable(pterm.TableData{
		{"File", info.Path},
		{"Size", fmt.Sprintf("%d bytes", info.Size)},
		{"Pages", strconv.Itoa(info.Pages)},
		{"Page size", fmt.Sprintf("%.2f x %.2f pt (%s)", info.Width, info.Height, orientation)},
		{"Text", fmt.Sprintf("%d characters", info.TextLength)},
	}))
	b.WriteString("\n")
}

func (rg *ReportGenerator) generateJSONReport(subject interface{}, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(rg.filterForOutput(subject))
}

// filterForOutput drops sections the configuration excludes
func (rg *ReportGenerator) filterForOutput(subject interface{}) interface{} {
	switch s := subject.(type) {
	case *service.Analysis:
		if !rg.config.IncludeMatches {
			c := *s
			c.Matches, c.Rejected = nil, nil
			return &c
		}
	case *service.Result:
		if !rg.config.IncludeSteps || !rg.config.IncludeMatches {
			c := *s
			if !rg.config.IncludeSteps {
				c.Steps = nil
			}
			if !rg.config.IncludeMatches {
				c.Matches = nil
			}
			return &c
		}
	}
	return subject
}

func (rg *ReportGenerator) generateCSVReport(subject interface{}, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter

	var records [][]string
	switch s := subject.(type) {
	case *service.Analysis:
		records = rg.analysisRecords(s)
	case *service.Result:
		records = resultRecords(s)
	case *render.PDFInfo:
		records = [][]string{
			{"pdf", "path", orDash(s.Path)},
			{"pdf", "size_bytes", strconv.FormatInt(s.Size, 10)},
			{"pdf", "pages", strconv.Itoa(s.Pages)},
			{"pdf", "page_width_pt", fmt.Sprintf("%.2f", s.Width)},
			{"pdf", "page_height_pt", fmt.Sprintf("%.2f", s.Height)},
			{"pdf", "text_length", strconv.Itoa(s.TextLength)},
		}
	default:
		return fmt.Errorf("unsupported report subject %T", subject)
	}

	if rg.config.CSVHeaders {
		if err := csvWriter.Write([]string{"Section", "Key", "Value", "Detail"}); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}
	for _, rec := range records {
		for len(rec) < 4 {
			rec = append(rec, "")
		}
		if err := csvWriter.Write(rec); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

func (rg *ReportGenerator) analysisRecords(a *service.Analysis) [][]string {
	records := [][]string{
		{"source", "path", a.Source},
		{"source", "format", string(a.Format)},
		{"source", "encoding", a.Encoding},
		{"table", "header_row", strconv.Itoa(a.HeaderRow)},
		{"table", "keyword_hits", strconv.Itoa(a.KeywordHits)},
		{"table", "rows", strconv.Itoa(a.Rows)},
		{"layout", "template", string(a.Template)},
		{"layout", "orientation", string(a.Orientation)},
	}
	for _, c := range a.Columns {
		records = append(records, []string{"column", c.Name, string(c.Align), fmt.Sprintf("%.1f", c.WidthMM)})
	}
	for _, field := range models.AccountFields {
		records = append(records, []string{"metadata", field, a.Metadata.Get(field)})
	}
	if rg.config.IncludeMatches {
		for _, m := range a.Matches {
			records = append(records, []string{"match", m.Field, m.Value, fmt.Sprintf("%.2f", m.Confidence)})
		}
		for _, m := range a.Rejected {
			records = append(records, []string{"rejected", m.Field, m.Value, fmt.Sprintf("%.2f", m.Confidence)})
		}
	}
	return records
}

func resultRecords(r *service.Result) [][]string {
	records := [][]string{
		{"output", "path", r.OutputPath},
		{"output", "file_name", r.FileName},
		{"output", "location", r.Location},
		{"output", "pages", strconv.Itoa(r.Pages)},
		{"layout", "template", string(r.Template)},
		{"layout", "orientation", string(r.Orientation)},
		{"table", "header_row", strconv.Itoa(r.HeaderRow)},
		{"table", "columns", strconv.Itoa(r.Columns)},
		{"table", "rows", strconv.Itoa(r.Rows)},
	}
	for _, s := range r.Steps {
		records = append(records, []string{"step", s.Name, s.Duration.String()})
	}
	return records
}

// UpdateConfiguration updates the report generator configuration
func (rg *ReportGenerator) UpdateConfiguration(config *ReportConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid report configuration: %w", err)
	}
	rg.config = config
	return nil
}

// GetConfiguration returns the current configuration
func (rg *ReportGenerator) GetConfiguration() *ReportConfig {
	return rg.config
}

func renderTable(data pterm.TableData) string {
	out, err := pterm.DefaultTable.
		WithHasHeader().
		WithHeaderStyle(pterm.NewStyle(pterm.FgLightCyan)).
		WithData(data).
		Srender()
	if err != nil {
		return fmt.Sprintf("%v\n", data)
	}
	return out + "\n"
}

func renderPlainTable(data pterm.TableData) string {
	out, err := pterm.DefaultTable.WithData(data).Srender()
	if err != nil {
		return fmt.Sprintf("%v\n", data)
	}
	return out + "\n"
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func joinKinds(kinds []models.BlockKind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
