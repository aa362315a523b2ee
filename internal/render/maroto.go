package render

import (
	"context"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"statement-pdf-service/internal/models"
	"statement-pdf-service/pkg/errors"
)

// gridUnits is the target grid resolution for proportional column sizes
const gridUnits = 100

// Approximate glyph metrics used to size wrapped rows, in millimetres
const (
	mmPerPoint     = 25.4 / 72
	avgCharEm      = 0.5
	rowPaddingMM   = 2.0
	lineSpacing    = 1.25
	headerLogoRow  = 20.0
	footerRow      = 6.0
	titleRowHeight = 10.0
)

type marotoEngine struct {
	marginMM float64
}

func newMarotoEngine(marginMM float64) *marotoEngine {
	return &marotoEngine{marginMM: marginMM}
}

func (e *marotoEngine) Name() string { return EngineMaroto }

func (e *marotoEngine) Render(ctx context.Context, doc *models.Document, w io.Writer) error {
	table := doc.TableBlock()
	sizes, grid := gridSizes(table)

	o := orientation.Vertical
	if doc.Orientation == models.Landscape {
		o = orientation.Horizontal
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithOrientation(o).
		WithLeftMargin(e.marginMM).
		WithTopMargin(e.marginMM).
		WithRightMargin(e.marginMM).
		WithBottomMargin(e.marginMM).
		WithMaxGridSize(grid).
		Build()

	m := maroto.New(cfg)

	headerRows, err := e.headerRows(doc.HeaderBlock(), grid)
	if err != nil {
		return err
	}
	if table != nil {
		headerRows = append(headerRows, marotoRow(table.Header, table, sizes, -1))
	}
	if len(headerRows) > 0 {
		if err := m.RegisterHeader(headerRows...); err != nil {
			return errors.RenderError(errors.CodeRenderFailed, "page header", err)
		}
	}
	if err := m.RegisterFooter(
		row.New(footerRow).Add(
			text.NewCol(grid, "Generated by stmtpdf", props.Text{
				Size:  7,
				Style: fontstyle.Italic,
				Align: align.Center,
				Color: &props.Color{Red: 128, Green: 128, Blue: 128},
			}),
		),
	); err != nil {
		return errors.RenderError(errors.CodeRenderFailed, "page footer", err)
	}

	for _, block := range doc.Blocks {
		if err := checkContext(ctx, string(block.Kind)); err != nil {
			return err
		}
		switch block.Kind {
		case models.BlockTitle:
			m.AddRow(titleRowHeight,
				text.NewCol(grid, sanitize(block.Title.Text), props.Text{
					Size:  11,
					Style: fontstyle.Bold,
					Align: align.Center,
					Top:   2,
				}),
			)
			m.AddRows(line.NewRow(2))
		case models.BlockAccount:
			m.AddRows(accountRows(block.Account, grid)...)
		case models.BlockFilter:
			m.AddRows(filterRows(block.Filter, grid)...)
		}
	}

	if table != nil {
		for i, values := range table.Rows {
			if i%rowsPerCheck == 0 {
				if err := checkContext(ctx, "table"); err != nil {
					return err
				}
			}
			m.AddRows(marotoRow(values, table, sizes, i))
		}
	}

	document, err := m.Generate()
	if err != nil {
		return errors.RenderError(errors.CodeRenderFailed, "maroto", err)
	}
	if _, err := w.Write(document.GetBytes()); err != nil {
		return errors.RenderError(errors.CodeRenderFailed, "output", err)
	}
	return nil
}

func (e *marotoEngine) headerRows(h *models.HeaderBlock, grid int) ([]core.Row, error) {
	if h == nil {
		return nil, nil
	}

	var rows []core.Row
	if h.LogoPath != "" {
		logo, err := os.ReadFile(h.LogoPath)
		if err != nil {
			return nil, errors.RenderError(errors.CodeRenderFailed, "header logo", err).
				WithContext("logo_path", h.LogoPath)
		}
		ext := extension.Png
		switch strings.ToLower(filepath.Ext(h.LogoPath)) {
		case ".jpg", ".jpeg":
			ext = extension.Jpg
		}
		rows = append(rows, row.New(headerLogoRow).Add(
			col.New(grid).Add(image.NewFromBytes(logo, ext, props.Rect{
				Center:  true,
				Percent: 100,
			})),
		))
	}

	blue := &props.Color{Red: models.BankBlue.R, Green: models.BankBlue.G, Blue: models.BankBlue.B}
	if h.BankName != "" {
		rows = append(rows, row.New(6).Add(
			text.NewCol(grid, sanitize(h.BankName), props.Text{
				Size:  10,
				Style: fontstyle.Bold,
				Align: align.Right,
				Color: blue,
			}),
		))
	}
	if h.Tagline != "" {
		rows = append(rows, row.New(5).Add(
			text.NewCol(grid, sanitize(h.Tagline), props.Text{
				Size:  7,
				Style: fontstyle.Italic,
				Align: align.Right,
				Color: blue,
			}),
		))
	}
	if h.Heading != "" {
		rows = append(rows, row.New(10).Add(
			text.NewCol(grid, sanitize(h.Heading), props.Text{
				Size:  16,
				Style: fontstyle.Bold,
				Align: align.Center,
				Top:   1,
			}),
		))
	}
	return rows, nil
}

// accountRows lays the account box out as two halves: the customer lines on
// the left and the labelled branch values on the right
func accountRows(a *models.AccountBlock, grid int) []core.Row {
	left := grid / 2
	labelSize := (grid - left) * 45 / 100
	if labelSize < 1 {
		labelSize = 1
	}
	valueSize := grid - left - labelSize

	n := len(a.LeftLines)
	if len(a.Right) > n {
		n = len(a.Right)
	}

	rows := make([]core.Row, 0, n+2)
	rows = append(rows, line.NewRow(1))
	for i := 0; i < n; i++ {
		cols := make([]core.Col, 0, 3)
		if i < len(a.LeftLines) {
			style := fontstyle.Normal
			if i < a.BoldLines {
				style = fontstyle.Bold
			}
			cols = append(cols, text.NewCol(left, sanitize(a.LeftLines[i]), props.Text{Size: 8, Style: style, Left: 1}))
		} else {
			cols = append(cols, col.New(left))
		}
		if i < len(a.Right) {
			cols = append(cols,
				text.NewCol(labelSize, sanitize(a.Right[i].Label), props.Text{Size: 8, Style: fontstyle.Bold}),
				text.NewCol(valueSize, ": "+sanitize(a.Right[i].Value), props.Text{Size: 8}),
			)
		} else {
			cols = append(cols, col.New(labelSize), col.New(valueSize))
		}
		rows = append(rows, row.New(accountLine*mmPerPoint).Add(cols...))
	}
	return append(rows, line.NewRow(2))
}

// filterRows draws the criteria box with the same column proportions as the
// block engine
func filterRows(f *models.FilterBlock, grid int) []core.Row {
	total := 0.0
	for _, mm := range filterWidthsMM {
		total += mm
	}
	sizes := make([]int, len(filterWidthsMM))
	used := 0
	for i, mm := range filterWidthsMM[:len(filterWidthsMM)-1] {
		sizes[i] = int(math.Max(1, math.Round(mm/total*float64(grid))))
		used += sizes[i]
	}
	sizes[len(sizes)-1] = grid - used

	cell := &props.Cell{
		BorderType:      border.Full,
		BorderThickness: 0.2,
		BorderColor:     &props.Color{Red: 0, Green: 0, Blue: 0},
	}
	rows := make([]core.Row, 0, len(f.Rows)+1)
	for _, fr := range f.Rows {
		var r core.Row
		if fr.From == "" && fr.To == "" {
			r = row.New(filterLine * mmPerPoint).Add(
				text.NewCol(grid, sanitize(fr.Label), props.Text{Size: 7, Top: 1, Left: 1}).WithStyle(cell),
			)
		} else {
			r = row.New(filterLine * mmPerPoint).Add(
				text.NewCol(sizes[0], sanitize(fr.Label), props.Text{Size: 7, Top: 1, Left: 1}).WithStyle(cell),
				text.NewCol(sizes[1], sanitize(fr.From), props.Text{Size: 7, Top: 1, Left: 1}).WithStyle(cell),
				text.NewCol(sizes[2], sanitize(fr.To), props.Text{Size: 7, Top: 1, Left: 1}).WithStyle(cell),
			)
		}
		rows = append(rows, r)
	}
	return append(rows, line.NewRow(2))
}

// gridSizes converts column widths into integer grid sizes. The grid is the sum
// of the sizes, so rounding never overflows a row.
func gridSizes(t *models.TableBlock) ([]int, int) {
	if t == nil || len(t.Columns) == 0 {
		return nil, 12
	}
	total := t.Width()
	sizes := make([]int, len(t.Columns))
	grid := 0
	for i, c := range t.Columns {
		size := 1
		if total > 0 {
			size = int(math.Round(c.Width / total * gridUnits))
		}
		if size < 1 {
			size = 1
		}
		sizes[i] = size
		grid += size
	}
	return sizes, grid
}

// marotoRow builds a header row (index -1) or body row i
func marotoRow(values []string, t *models.TableBlock, sizes []int, index int) core.Row {
	style := t.Style
	fontSize := style.BodyFontSize
	textColor := models.Black
	fontStyle := fontstyle.Normal
	var fill models.Color
	if index < 0 {
		fontSize = style.HeaderFontSize
		fill = style.HeaderFill
		textColor = style.HeaderTextColor
		if style.HeaderBold {
			fontStyle = fontstyle.Bold
		}
	} else {
		fill = style.RowFill(index)
	}

	cols := make([]core.Col, len(t.Columns))
	maxLines := 1
	for i, c := range t.Columns {
		value := ""
		if i < len(values) {
			value = sanitize(values[i])
		}
		a := c.Align
		if index < 0 {
			a = style.HeaderAlign
		}
		cols[i] = text.NewCol(sizes[i], value, props.Text{
			Size:  fontSize,
			Style: fontStyle,
			Align: marotoAlign(a),
			Top:   1,
			Left:  1,
			Right: 1,
			Color: &props.Color{Red: textColor.R, Green: textColor.G, Blue: textColor.B},
		})
		if n := estimateLines(value, c.Width*mmPerPoint, fontSize); n > maxLines {
			maxLines = n
		}
	}

	height := float64(maxLines)*fontSize*mmPerPoint*lineSpacing + rowPaddingMM
	return row.New(height).Add(cols...).WithStyle(&props.Cell{
		BackgroundColor: &props.Color{Red: fill.R, Green: fill.G, Blue: fill.B},
		BorderType:      border.Full,
		BorderThickness: style.GridWidth * mmPerPoint,
		BorderColor:     &props.Color{Red: 160, Green: 160, Blue: 160},
	})
}

// estimateLines guesses how many lines value wraps to in a column widthMM wide
func estimateLines(value string, widthMM, fontSize float64) int {
	if value == "" || widthMM <= 2 {
		return 1
	}
	charMM := fontSize * mmPerPoint * avgCharEm
	perLine := int((widthMM - 2) / charMM)
	if perLine < 1 {
		perLine = 1
	}
	n := utf8.RuneCountInString(value)
	return (n + perLine - 1) / perLine
}

func marotoAlign(a models.Alignment) align.Type {
	switch a {
	case models.AlignRight:
		return align.Right
	case models.AlignCenter:
		return align.Center
	default:
		return align.Left
	}
}
