package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Alignment is the horizontal alignment of a column
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// GofpdfAlign returns the single-letter alignment code gofpdf expects
func (a Alignment) GofpdfAlign() string {
	switch a {
	case AlignRight:
		return "R"
	case AlignCenter:
		return "C"
	default:
		return "L"
	}
}

// Color is an RGB colour
type Color struct {
	R, G, B int
}

// HexColor parses "#RRGGBB". Invalid input yields black.
func HexColor(s string) Color {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return Color{}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}
	}
	return Color{R: int(v >> 16 & 0xff), G: int(v >> 8 & 0xff), B: int(v & 0xff)}
}

// Hex formats the colour as "#RRGGBB"
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

var (
	White      = Color{255, 255, 255}
	Black      = Color{0, 0, 0}
	HeaderGray = HexColor("#E8E8E8")
	StripeGray = HexColor("#F2F2F2")
	BankBlue   = HexColor("#0033A0")
	FastBlue   = HexColor("#4472C4")
	TitleGray  = HexColor("#333333")
)

// ColumnStyle is the inferred presentation of one table column
type ColumnStyle struct {
	Name    string    `json:"name"`
	Align   Alignment `json:"align"`
	Width   float64   `json:"width_pt"`
	Numeric bool      `json:"numeric"`
}

// TableStyle holds the static rules applied to every table
type TableStyle struct {
	HeaderBold      bool      `json:"header_bold"`
	HeaderFill      Color     `json:"header_fill"`
	HeaderTextColor Color     `json:"header_text_color"`
	HeaderAlign     Alignment `json:"header_align"`
	BodyFills       []Color   `json:"body_fills"`
	HeaderFontSize  float64   `json:"header_font_size"`
	BodyFontSize    float64   `json:"body_font_size"`
	GridWidth       float64   `json:"grid_width"`
	BoxWidth        float64   `json:"box_width"`
	RepeatHeader    bool      `json:"repeat_header"`
}

// StatementTableStyle is the bordered bank-statement look
func StatementTableStyle() TableStyle {
	return TableStyle{
		HeaderBold:      true,
		HeaderFill:      HeaderGray,
		HeaderTextColor: Black,
		HeaderAlign:     AlignCenter,
		BodyFills:       []Color{White, StripeGray},
		HeaderFontSize:  8,
		BodyFontSize:    7,
		GridWidth:       0.5,
		BoxWidth:        1,
		RepeatHeader:    true,
	}
}

// FastTableStyle is the plain look used by the fast template
func FastTableStyle() TableStyle {
	return TableStyle{
		HeaderBold:      true,
		HeaderFill:      FastBlue,
		HeaderTextColor: White,
		HeaderAlign:     AlignCenter,
		BodyFills:       []Color{White, StripeGray},
		HeaderFontSize:  10,
		BodyFontSize:    8,
		GridWidth:       0.5,
		BoxWidth:        0.5,
		RepeatHeader:    true,
	}
}

// RowFill returns the background of body row i (0-based)
func (s TableStyle) RowFill(i int) Color {
	if len(s.BodyFills) == 0 {
		return White
	}
	return s.BodyFills[i%len(s.BodyFills)]
}

// Template selects which blocks the composer emits
type Template string

const (
	TemplateStatement Template = "statement"
	TemplateCanonical Template = "canonical"
	TemplateFast      Template = "fast"
)

// IsValid checks the template name
func (t Template) IsValid() bool {
	switch t {
	case TemplateStatement, TemplateCanonical, TemplateFast:
		return true
	}
	return false
}

// Orientation of the rendered page
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// BlockKind tags the ReportBlock variant
type BlockKind string

const (
	BlockHeader  BlockKind = "header"
	BlockTitle   BlockKind = "title"
	BlockAccount BlockKind = "account"
	BlockFilter  BlockKind = "filter"
	BlockTable   BlockKind = "table"
)

// HeaderBlock is the bank name, tagline and optional logo drawn at the top of every page
type HeaderBlock struct {
	BankName string
	Tagline  string
	Heading  string
	LogoPath string
}

// TitleBlock is the centred statement title
type TitleBlock struct {
	Text string
}

// LabeledValue is one "LABEL : value" line
type LabeledValue struct {
	Label string
	Value string
}

// AccountBlock is the two-column account details box
type AccountBlock struct {
	LeftLines []string
	BoldLines int
	Right     []LabeledValue
}

// FilterRow is one row of the filter criteria box
type FilterRow struct {
	Label string
	From  string
	To    string
}

// FilterBlock lists the filter criteria the statement was produced for
type FilterBlock struct {
	Rows []FilterRow
}

// TableBlock carries the transaction table with its inferred styles
type TableBlock struct {
	Columns []ColumnStyle
	Header  []string
	Rows    [][]string
	Style   TableStyle
}

// Width returns the sum of the column widths
func (t *TableBlock) Width() float64 {
	total := 0.0
	for _, c := range t.Columns {
		total += c.Width
	}
	return total
}

// ReportBlock is one element of the composed document. Exactly one payload is set,
// matching Kind.
type ReportBlock struct {
	Kind    BlockKind
	Order   int
	Header  *HeaderBlock
	Title   *TitleBlock
	Account *AccountBlock
	Filter  *FilterBlock
	Table   *TableBlock
}

// Validate checks that the payload matches the kind
func (b ReportBlock) Validate() error {
	set := 0
	for _, present := range []bool{b.Header != nil, b.Title != nil, b.Account != nil, b.Filter != nil, b.Table != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("block %d (%s) carries %d payloads, expected 1", b.Order, b.Kind, set)
	}

	ok := false
	switch b.Kind {
	case BlockHeader:
		ok = b.Header != nil
	case BlockTitle:
		ok = b.Title != nil
	case BlockAccount:
		ok = b.Account != nil
	case BlockFilter:
		ok = b.Filter != nil
	case BlockTable:
		ok = b.Table != nil
	}
	if !ok {
		return fmt.Errorf("block %d has kind %s but a different payload", b.Order, b.Kind)
	}
	return nil
}

// Document is the ordered list of blocks handed to a renderer
type Document struct {
	Template    Template
	Orientation Orientation
	Blocks      []ReportBlock
}

// TableBlock returns the first table block, or nil
func (d *Document) TableBlock() *TableBlock {
	for _, b := range d.Blocks {
		if b.Kind == BlockTable {
			return b.Table
		}
	}
	return nil
}

// HeaderBlock returns the page header block, or nil
func (d *Document) HeaderBlock() *HeaderBlock {
	for _, b := range d.Blocks {
		if b.Kind == BlockHeader {
			return b.Header
		}
	}
	return nil
}
