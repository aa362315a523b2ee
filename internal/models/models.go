package models

import (
	"fmt"
	"strings"
)

// SourceFormat identifies the kind of tabular source a document was loaded from
type SourceFormat string

const (
	FormatCSV  SourceFormat = "csv"
	FormatXLSX SourceFormat = "xlsx"
	FormatXLS  SourceFormat = "xls"
)

// String returns the string representation of SourceFormat
func (f SourceFormat) String() string {
	return string(f)
}

// IsValid checks if the source format is supported
func (f SourceFormat) IsValid() bool {
	return f == FormatCSV || f == FormatXLSX || f == FormatXLS
}

// CellKind tells apart empty cells, plain text and values stored as numbers
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
)

// Cell is a single value of a TabularDocument
type Cell struct {
	Value string   `json:"value"`
	Kind  CellKind `json:"kind"`
}

// TextCell builds a cell from a raw string, classifying blank strings as empty
func TextCell(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return Cell{Kind: CellEmpty}
	}
	return Cell{Value: s, Kind: CellText}
}

// NumberCell builds a cell for a value the source stored as a number
func NumberCell(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return Cell{Kind: CellEmpty}
	}
	return Cell{Value: s, Kind: CellNumber}
}

// IsEmpty reports whether the cell carries no visible text
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty || strings.TrimSpace(c.Value) == ""
}

// Text returns the trimmed cell value
func (c Cell) Text() string {
	return strings.TrimSpace(c.Value)
}

// TabularDocument is an ordered sequence of rows as loaded from a source file.
// After Normalize every row has the same number of cells.
type TabularDocument struct {
	Source   string       `json:"source"`
	Format   SourceFormat `json:"format"`
	Encoding string       `json:"encoding,omitempty"`
	Sheet    string       `json:"sheet,omitempty"`
	Rows     [][]Cell     `json:"rows"`
}

// NewTabularDocument creates a normalized document
func NewTabularDocument(source string, format SourceFormat, rows [][]Cell) *TabularDocument {
	doc := &TabularDocument{
		Source: source,
		Format: format,
		Rows:   rows,
	}
	doc.Normalize()
	return doc
}

// Normalize pads every row with empty cells up to the widest row
func (d *TabularDocument) Normalize() {
	width := d.Width()
	for i, row := range d.Rows {
		if len(row) < width {
			padded := make([]Cell, width)
			copy(padded, row)
			d.Rows[i] = padded
		}
	}
}

// Width returns the column count of the widest row
func (d *TabularDocument) Width() int {
	width := 0
	for _, row := range d.Rows {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// Len returns the number of rows
func (d *TabularDocument) Len() int {
	return len(d.Rows)
}

// RowText returns the trimmed string values of a row
func (d *TabularDocument) RowText(i int) []string {
	if i < 0 || i >= len(d.Rows) {
		return nil
	}
	out := make([]string, len(d.Rows[i]))
	for j, c := range d.Rows[i] {
		out[j] = c.Text()
	}
	return out
}

// JoinedRow returns the lower-cased, space-joined non-empty cells of a row
func (d *TabularDocument) JoinedRow(i int) string {
	if i < 0 || i >= len(d.Rows) {
		return ""
	}
	parts := make([]string, 0, len(d.Rows[i]))
	for _, c := range d.Rows[i] {
		if !c.IsEmpty() {
			parts = append(parts, strings.ToLower(c.Text()))
		}
	}
	return strings.Join(parts, " ")
}

// Validate checks the normalization invariant
func (d *TabularDocument) Validate() error {
	if !d.Format.IsValid() {
		return fmt.Errorf("invalid source format '%s'", d.Format)
	}
	width := d.Width()
	for i, row := range d.Rows {
		if len(row) != width {
			return fmt.Errorf("row %d has %d cells, expected %d", i, len(row), width)
		}
	}
	return nil
}

// Table is the transaction region found inside a TabularDocument.
// An empty table has HeaderRow -1 and no columns.
type Table struct {
	HeaderRow  int        `json:"header_row"`
	Columns    []string   `json:"columns"`
	Rows       [][]string `json:"rows"`
	Hits       int        `json:"keyword_hits"`
	Confidence float64    `json:"confidence"`
}

// EmptyTable returns the "no transactions found" table
func EmptyTable() *Table {
	return &Table{HeaderRow: -1}
}

// IsEmpty reports whether the table has no columns
func (t *Table) IsEmpty() bool {
	return t == nil || len(t.Columns) == 0
}

// ColumnIndex returns the index of the first column whose lower-cased name contains substr, or -1
func (t *Table) ColumnIndex(substr string) int {
	substr = strings.ToLower(substr)
	for i, c := range t.Columns {
		if strings.Contains(strings.ToLower(c), substr) {
			return i
		}
	}
	return -1
}

// Column returns the values of column i across body rows
func (t *Table) Column(i int) []string {
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if i < len(row) {
			out = append(out, row[i])
		} else {
			out = append(out, "")
		}
	}
	return out
}
