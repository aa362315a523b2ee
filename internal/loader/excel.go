package loader

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"statement-pdf-service/internal/models"
	"statement-pdf-service/pkg/errors"
)

// loadXLSX reads the first worksheet of an .xlsx workbook
func (l *Loader) loadXLSX(ctx context.Context, path string) (*models.TabularDocument, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.FileError(errors.CodeFileCorrupted, path, fmt.Errorf("workbook has no worksheets"))
	}
	sheet := sheets[0]

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	defer rows.Close()

	var out [][]models.Cell
	for rowIdx := 1; rows.Next(); rowIdx++ {
		if err := cancelled(ctx, "xlsx_loading"); err != nil {
			return nil, err
		}

		values, err := rows.Columns()
		if err != nil {
			return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
		}

		row := make([]models.Cell, len(values))
		for colIdx, v := range values {
			row[colIdx] = xlsxCell(f, sheet, colIdx+1, rowIdx, v)
		}
		out = append(out, row)

		if l.limitReached(len(out)) {
			break
		}
	}
	if err := rows.Error(); err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}

	doc := models.NewTabularDocument(path, models.FormatXLSX, out)
	doc.Sheet = sheet
	return doc, nil
}

// xlsxCell keeps the displayed text and records whether the workbook stored a number
func xlsxCell(f *excelize.File, sheet string, col, row int, value string) models.Cell {
	if value == "" {
		return models.Cell{Kind: models.CellEmpty}
	}
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return models.TextCell(value)
	}
	typ, err := f.GetCellType(sheet, axis)
	if err != nil {
		return models.TextCell(value)
	}
	switch typ {
	case excelize.CellTypeNumber:
		return models.NumberCell(value)
	case excelize.CellTypeUnset:
		// numbers are usually written without a type attribute
		if _, err := strconv.ParseFloat(value, 64); err == nil {
			return models.NumberCell(value)
		}
	}
	return models.TextCell(value)
}

// loadXLS reads the first worksheet of a legacy .xls workbook
func (l *Loader) loadXLS(ctx context.Context, path string) (doc *models.TabularDocument, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	defer file.Close()

	// the xls decoder panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = errors.FileError(errors.CodeFileCorrupted, path, fmt.Errorf("xls decoder: %v", r))
		}
	}()

	wb, err := xls.OpenReader(file, "utf-8")
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	if wb.NumSheets() == 0 {
		return nil, errors.FileError(errors.CodeFileCorrupted, path, fmt.Errorf("workbook has no worksheets"))
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, path, fmt.Errorf("could not get first sheet"))
	}

	var out [][]models.Cell
	for i := 0; i <= int(sheet.MaxRow); i++ {
		if err := cancelled(ctx, "xls_loading"); err != nil {
			return nil, err
		}

		r := sheet.Row(i)
		if r == nil {
			out = append(out, nil)
			continue
		}

		row := make([]models.Cell, r.LastCol())
		for c := 0; c < r.LastCol(); c++ {
			row[c] = models.TextCell(r.Col(c))
		}
		out = append(out, row)

		if l.limitReached(len(out)) {
			break
		}
	}

	doc = models.NewTabularDocument(path, models.FormatXLS, out)
	doc.Sheet = sheet.Name
	return doc, nil
}
