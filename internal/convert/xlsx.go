package convert

import (
	"context"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"statement-pdf-service/internal/loader"
	"statement-pdf-service/internal/models"
	"statement-pdf-service/pkg/errors"
	"statement-pdf-service/pkg/logger"
)

// Column width limits for the generated workbook, in characters
const (
	widthPadding = 2
	maxColWidth  = 50
)

const xlsxSheet = "Sheet1"

// XLSXResult describes a written workbook
type XLSXResult struct {
	Path     string `json:"path"`
	Rows     int    `json:"rows"`
	Columns  int    `json:"columns"`
	Encoding string `json:"encoding"`
}

// CSVToXLSX reads a CSV with the encoding fallback and writes it as Sheet1 of
// a new workbook. The first row is bold, every cell gets a thin border and
// column widths fit the longest value.
func CSVToXLSX(ctx context.Context, input, output string, opts *loader.Options) (*XLSXResult, error) {
	log := logger.GetGlobalLogger().WithComponent("csv2xlsx")

	if format, _ := loader.FormatFromPath(input); format != models.FormatCSV {
		return nil, errors.FileError(errors.CodeUnsupportedFormat, input, nil).WithSuggestion("use a .csv file")
	}
	doc, err := loader.New(opts).Load(ctx, input)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	width := doc.Width()
	widths := make([]int, width)
	for r := range doc.Rows {
		values := make([]interface{}, width)
		for c, cell := range doc.Rows[r] {
			values[c] = cellValue(cell)
			if n := utf8.RuneCountInString(cell.Value); n > widths[c] {
				widths[c] = n
			}
		}
		start, _ := excelize.CoordinatesToCellName(1, r+1)
		if err := f.SetSheetRow(xlsxSheet, start, &values); err != nil {
			return nil, errors.FileError(errors.CodeFileCorrupted, output, err)
		}
	}

	if err := styleSheet(f, doc.Len(), widths); err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, output, err)
	}

	if err := f.SaveAs(output); err != nil {
		return nil, errors.FileError(errors.CodeFilePermission, output, err)
	}

	result := &XLSXResult{Path: output, Rows: doc.Len(), Columns: width, Encoding: doc.Encoding}
	log.WithFields(logger.Fields{
		"rows":     result.Rows,
		"columns":  result.Columns,
		"encoding": result.Encoding,
	}).Info("Workbook written")
	return result, nil
}

// FitWidth returns the column width for a longest value of n characters
func FitWidth(n int) float64 {
	w := n + widthPadding
	if w > maxColWidth {
		w = maxColWidth
	}
	return float64(w)
}

func styleSheet(f *excelize.File, rows int, widths []int) error {
	for c, n := range widths {
		name, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(xlsxSheet, name, name, FitWidth(n)); err != nil {
			return err
		}
	}
	if rows == 0 || len(widths) == 0 {
		return nil
	}

	borders := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	body, err := f.NewStyle(&excelize.Style{Border: borders})
	if err != nil {
		return err
	}
	header, err := f.NewStyle(&excelize.Style{Border: borders, Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	first, _ := excelize.CoordinatesToCellName(1, 1)
	lastHeader, _ := excelize.CoordinatesToCellName(len(widths), 1)
	if err := f.SetCellStyle(xlsxSheet, first, lastHeader, header); err != nil {
		return err
	}
	if rows > 1 {
		bodyStart, _ := excelize.CoordinatesToCellName(1, 2)
		last, _ := excelize.CoordinatesToCellName(len(widths), rows)
		if err := f.SetCellStyle(xlsxSheet, bodyStart, last, body); err != nil {
			return err
		}
	}
	return nil
}

// cellValue keeps numbers numeric so the workbook sums and sorts them.
// Zero-padded identifiers such as cheque numbers stay text.
func cellValue(c models.Cell) interface{} {
	v := c.Text()
	if v == "" {
		return nil
	}
	if len(v) > 1 && v[0] == '0' && v[1] != '.' {
		return c.Value
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil && !math.IsInf(n, 0) && !math.IsNaN(n) {
		return n
	}
	return c.Value
}
