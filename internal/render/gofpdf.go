package render

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"statement-pdf-service/internal/layout"
	"statement-pdf-service/internal/models"
	"statement-pdf-service/pkg/errors"
)

const fontFamily = "Helvetica"

// Header geometry, in points
const (
	logoWidth      = 80.0
	logoHeight     = 40.0
	logoNameLine   = 11.0
	plainNameLine  = 14.0
	taglineLine    = 10.0
	headingLine    = 26.0
	headerGap      = 8.0
	footerReserve  = 14.0
	blockGap       = 8.0
	accountLine    = 11.0
	accountPadding = 4.0
	filterLine     = 12.0
	cellInset      = 2.0
	rowsPerCheck   = 50
)

// Padding above and below the text of table cells
const (
	headerCellPadding = 4.0
	bodyCellPadding   = 2.0
)

var filterWidthsMM = []float64{55, 52, 52}

type pdfEngine struct {
	marginMM float64
	creator  string
}

func newPDFEngine(marginMM float64, creator string) *pdfEngine {
	return &pdfEngine{marginMM: marginMM, creator: creator}
}

func (e *pdfEngine) Name() string { return EngineGofpdf }

// pdfWriter carries the state of one render
type pdfWriter struct {
	pdf    *gofpdf.Fpdf
	tr     func(string) string
	page   layout.Page
	header *models.HeaderBlock
	bottom float64
}

func (e *pdfEngine) Render(ctx context.Context, doc *models.Document, w io.Writer) error {
	page := layout.PageFor(doc.Orientation, e.marginMM)
	orientation := "P"
	if doc.Orientation == models.Landscape {
		orientation = "L"
	}

	pdf := gofpdf.New(orientation, "pt", "A4", "")
	pw := &pdfWriter{
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		page:   page,
		header: doc.HeaderBlock(),
		bottom: page.Height - page.Margin - footerReserve,
	}

	if err := pw.registerLogo(); err != nil {
		return err
	}

	pdf.SetCreator(e.creator, true)
	if tb := titleOf(doc); tb != "" {
		pdf.SetTitle(tb, true)
	}
	pdf.SetMargins(page.Margin, page.Margin+headerHeight(pw.header), page.Margin)
	pdf.SetAutoPageBreak(false, page.Margin)
	pdf.SetCellMargin(cellInset)
	pdf.SetHeaderFuncMode(pw.drawHeader, true)
	pdf.SetFooterFunc(pw.drawFooter)
	pdf.AddPage()

	for _, block := range doc.Blocks {
		if err := checkContext(ctx, string(block.Kind)); err != nil {
			return err
		}

		var err error
		switch block.Kind {
		case models.BlockHeader:
			// drawn by the page header hook
		case models.BlockTitle:
			pw.drawTitle(block.Title)
		case models.BlockAccount:
			pw.drawAccount(block.Account)
		case models.BlockFilter:
			pw.drawFilter(block.Filter)
		case models.BlockTable:
			err = pw.drawTable(ctx, block.Table)
		}
		if err != nil {
			return err
		}
		if pdf.Err() {
			return errors.RenderError(errors.CodeRenderFailed, string(block.Kind), pdf.Error())
		}
	}

	if err := pdf.Output(w); err != nil {
		return errors.RenderError(errors.CodeRenderFailed, "output", err)
	}
	return nil
}

func titleOf(doc *models.Document) string {
	for _, b := range doc.Blocks {
		if b.Kind == models.BlockTitle {
			return b.Title.Text
		}
	}
	return ""
}

// headerHeight is the vertical space the page header occupies below the top margin
func headerHeight(h *models.HeaderBlock) float64 {
	if h == nil {
		return 0
	}
	height := headerGap
	if h.LogoPath != "" {
		height += logoHeight + 2
		if h.BankName != "" {
			height += logoNameLine
		}
	} else if h.BankName != "" {
		height += plainNameLine
	}
	if h.Tagline != "" {
		height += taglineLine
	}
	if h.Heading != "" {
		height += headingLine
	}
	return height
}

func (pw *pdfWriter) registerLogo() error {
	if pw.header == nil || pw.header.LogoPath == "" {
		return nil
	}
	if _, err := os.Stat(pw.header.LogoPath); err != nil {
		return errors.RenderError(errors.CodeRenderFailed, "header logo", err).
			WithContext("logo_path", pw.header.LogoPath)
	}
	pw.pdf.RegisterImageOptions(pw.header.LogoPath, gofpdf.ImageOptions{ReadDpi: true})
	if pw.pdf.Err() {
		return errors.RenderError(errors.CodeRenderFailed, "header logo", pw.pdf.Error()).
			WithContext("logo_path", pw.header.LogoPath)
	}
	return nil
}

func (pw *pdfWriter) text(s string) string {
	return pw.tr(sanitize(s))
}

func (pw *pdfWriter) setColor(c models.Color) {
	pw.pdf.SetTextColor(c.R, c.G, c.B)
}

func (pw *pdfWriter) drawHeader() {
	h := pw.header
	if h == nil {
		return
	}
	pdf := pw.pdf
	m := pw.page.Margin
	width := pw.page.Printable()
	y := m

	if h.LogoPath != "" {
		pdf.ImageOptions(h.LogoPath, pw.page.Width-m-logoWidth, y, logoWidth, logoHeight,
			false, gofpdf.ImageOptions{ReadDpi: true}, 0, "")
		y += logoHeight + 2
		if h.BankName != "" {
			pdf.SetFont(fontFamily, "B", 9)
			pw.setColor(models.BankBlue)
			pdf.SetXY(m, y)
			pdf.CellFormat(width, logoNameLine, pw.text(h.BankName), "", 0, "R", false, 0, "")
			y += logoNameLine
		}
		if h.Tagline != "" {
			pdf.SetFont(fontFamily, "I", 7)
			pdf.SetXY(m, y)
			pdf.CellFormat(width, taglineLine, pw.text(h.Tagline), "", 0, "R", false, 0, "")
			y += taglineLine
		}
	} else {
		if h.BankName != "" {
			pdf.SetFont(fontFamily, "B", 11)
			pw.setColor(models.BankBlue)
			pdf.SetXY(m, y)
			pdf.CellFormat(width, plainNameLine, pw.text(h.BankName), "", 0, "R", false, 0, "")
			y += plainNameLine
		}
		if h.Tagline != "" {
			pdf.SetFont(fontFamily, "I", 8)
			pw.setColor(models.BankBlue)
			pdf.SetXY(m, y)
			pdf.CellFormat(width, taglineLine, pw.text(h.Tagline), "", 0, "R", false, 0, "")
			y += taglineLine
		}
	}

	if h.Heading != "" {
		pdf.SetFont(fontFamily, "B", 20)
		pw.setColor(models.TitleGray)
		pdf.SetXY(m, y)
		pdf.CellFormat(width, headingLine, pw.text(h.Heading), "", 0, "C", false, 0, "")
	}
	pw.setColor(models.Black)
}

func (pw *pdfWriter) drawFooter() {
	pdf := pw.pdf
	pdf.SetXY(pw.page.Margin, pw.page.Height-pw.page.Margin-footerReserve+4)
	pdf.SetFont(fontFamily, "I", 8)
	pdf.SetTextColor(128, 128, 128)
	pdf.CellFormat(pw.page.Printable(), 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	pw.setColor(models.Black)
}

// ensureSpace starts a new page when h does not fit below the cursor
func (pw *pdfWriter) ensureSpace(h float64) {
	if pw.pdf.GetY()+h > pw.bottom {
		pw.pdf.AddPage()
	}
}

func (pw *pdfWriter) drawTitle(t *models.TitleBlock) {
	pdf := pw.pdf
	pdf.SetFont(fontFamily, "B", 10)
	lines := pdf.SplitLines([]byte(pw.text(t.Text)), pw.page.Printable())
	pw.ensureSpace(float64(len(lines)) * 14)

	for _, line := range lines {
		pdf.SetX(pw.page.Margin)
		pdf.CellFormat(pw.page.Printable(), 14, string(line), "", 1, "C", false, 0, "")
	}
	pdf.SetY(pdf.GetY() + blockGap)
}

func (pw *pdfWriter) drawAccount(a *models.AccountBlock) {
	pdf := pw.pdf
	m := pw.page.Margin
	width := pw.page.Printable()
	half := width / 2

	rows := len(a.LeftLines)
	if len(a.Right) > rows {
		rows = len(a.Right)
	}
	boxH := float64(rows)*accountLine + 2*accountPadding
	pw.ensureSpace(boxH)

	top := pdf.GetY()
	pdf.SetLineWidth(1)
	pdf.SetDrawColor(0, 0, 0)
	pdf.Rect(m, top, width, boxH, "D")

	for i, line := range a.LeftLines {
		style := ""
		if i < a.BoldLines {
			style = "B"
		}
		pdf.SetFont(fontFamily, style, 9)
		pdf.SetXY(m+accountPadding, top+accountPadding+float64(i)*accountLine)
		pdf.CellFormat(half-2*accountPadding, accountLine, pw.fit(line, half-2*accountPadding), "", 0, "L", false, 0, "")
	}

	labelW := half * 0.45
	for i, lv := range a.Right {
		y := top + accountPadding + float64(i)*accountLine
		pdf.SetFont(fontFamily, "B", 9)
		pdf.SetXY(m+half, y)
		pdf.CellFormat(labelW, accountLine, pw.text(lv.Label), "", 0, "L", false, 0, "")
		pdf.SetFont(fontFamily, "", 9)
		valueW := half - labelW - accountPadding
		pdf.CellFormat(valueW, accountLine, pw.fit(": "+lv.Value, valueW), "", 0, "L", false, 0, "")
	}

	pdf.SetXY(m, top+boxH+blockGap)
}

func (pw *pdfWriter) drawFilter(f *models.FilterBlock) {
	pdf := pw.pdf
	m := pw.page.Margin

	widths := make([]float64, len(filterWidthsMM))
	total := 0.0
	for i, mm := range filterWidthsMM {
		widths[i] = layout.MM(mm)
		total += widths[i]
	}
	if total > pw.page.Printable() {
		scale := pw.page.Printable() / total
		for i := range widths {
			widths[i] *= scale
		}
		total = pw.page.Printable()
	}

	pw.ensureSpace(float64(len(f.Rows)) * filterLine)
	pdf.SetFont(fontFamily, "", 8)
	pdf.SetLineWidth(0.5)

	for _, row := range f.Rows {
		pdf.SetX(m)
		if row.From == "" && row.To == "" {
			pdf.CellFormat(total, filterLine, pw.fit(row.Label, total), "1", 1, "L", false, 0, "")
			continue
		}
		pdf.CellFormat(widths[0], filterLine, pw.fit(row.Label, widths[0]), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], filterLine, pw.fit(row.From, widths[1]), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], filterLine, pw.fit(row.To, widths[2]), "1", 1, "L", false, 0, "")
	}
	pdf.SetY(pdf.GetY() + blockGap)
}

// tableRow is one wrapped row ready for drawing
type tableRow struct {
	lines  [][]string
	height float64
}

func (pw *pdfWriter) wrapRow(values []string, cols []models.ColumnStyle, fontSize, padding float64) tableRow {
	lineH := fontSize * 1.2
	row := tableRow{lines: make([][]string, len(cols))}
	maxLines := 1
	for i, col := range cols {
		value := ""
		if i < len(values) {
			value = values[i]
		}
		var wrapped []string
		for _, l := range pw.pdf.SplitLines([]byte(pw.text(value)), col.Width) {
			wrapped = append(wrapped, string(l))
		}
		if len(wrapped) == 0 {
			wrapped = []string{""}
		}
		if len(wrapped) > maxLines {
			maxLines = len(wrapped)
		}
		row.lines[i] = wrapped
	}
	row.height = float64(maxLines)*lineH + 2*padding
	return row
}

func (pw *pdfWriter) drawRow(row tableRow, cols []models.ColumnStyle, fill models.Color, align func(int) string, fontSize, padding, grid float64) {
	pdf := pw.pdf
	lineH := fontSize * 1.2
	x := pw.page.Margin
	y := pdf.GetY()

	pdf.SetFillColor(fill.R, fill.G, fill.B)
	pdf.SetLineWidth(grid)
	for i, col := range cols {
		pdf.Rect(x, y, col.Width, row.height, "FD")
		for j, line := range row.lines[i] {
			pdf.SetXY(x, y+padding+float64(j)*lineH)
			pdf.CellFormat(col.Width, lineH, line, "", 0, align(i), false, 0, "")
		}
		x += col.Width
	}
	pdf.SetXY(pw.page.Margin, y+row.height)
}

func (pw *pdfWriter) drawTable(ctx context.Context, t *models.TableBlock) error {
	width := t.Width()
	if width > pw.page.Printable()+0.5 {
		return errors.RenderError(errors.CodeLayoutFailed, "table",
			fmt.Errorf("table is %.1fpt wide but the printable width is %.1fpt", width, pw.page.Printable())).
			WithContext("columns", len(t.Columns))
	}

	pdf := pw.pdf
	style := t.Style
	headerStyle := ""
	if style.HeaderBold {
		headerStyle = "B"
	}

	pdf.SetFont(fontFamily, headerStyle, style.HeaderFontSize)
	header := pw.wrapRow(t.Header, t.Columns, style.HeaderFontSize, headerCellPadding)
	headerAlign := func(int) string { return style.HeaderAlign.GofpdfAlign() }
	bodyAlign := func(i int) string { return t.Columns[i].Align.GofpdfAlign() }

	drawHeader := func() {
		pdf.SetFont(fontFamily, headerStyle, style.HeaderFontSize)
		pw.setColor(style.HeaderTextColor)
		pw.drawRow(header, t.Columns, style.HeaderFill, headerAlign, style.HeaderFontSize, headerCellPadding, style.GridWidth)
		pw.setColor(models.Black)
		pdf.SetFont(fontFamily, "", style.BodyFontSize)
	}
	closeBox := func(top float64) {
		if bottom := pdf.GetY(); bottom > top {
			pdf.SetLineWidth(style.BoxWidth)
			pdf.Rect(pw.page.Margin, top, width, bottom-top, "D")
		}
	}

	pw.ensureSpace(header.height + style.BodyFontSize*1.2 + 2*bodyCellPadding)
	segmentTop := pdf.GetY()
	drawHeader()

	for i, values := range t.Rows {
		if i%rowsPerCheck == 0 {
			if err := checkContext(ctx, "table"); err != nil {
				return err
			}
		}

		row := pw.wrapRow(values, t.Columns, style.BodyFontSize, bodyCellPadding)
		if pdf.GetY()+row.height > pw.bottom {
			closeBox(segmentTop)
			pdf.AddPage()
			segmentTop = pdf.GetY()
			if style.RepeatHeader {
				drawHeader()
			}
		}
		pw.drawRow(row, t.Columns, style.RowFill(i), bodyAlign, style.BodyFontSize, bodyCellPadding, style.GridWidth)
	}

	closeBox(segmentTop)
	pdf.SetY(pdf.GetY() + blockGap)
	return nil
}

// fit translates s and shortens it with an ellipsis until it fits width
func (pw *pdfWriter) fit(s string, width float64) string {
	out := pw.text(s)
	limit := width - 2*cellInset
	if pw.pdf.GetStringWidth(out) <= limit {
		return out
	}
	for len(out) > 0 && pw.pdf.GetStringWidth(out+"...") > limit {
		out = out[:len(out)-1]
	}
	return out + "..."
}

// sanitize replaces characters the core fonts cannot encode
func sanitize(s string) string {
	return strings.NewReplacer("₹", "Rs.", "\t", " ").Replace(s)
}
