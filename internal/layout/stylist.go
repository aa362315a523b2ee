package layout

import (
	"math"
	"unicode/utf8"

	"statement-pdf-service/internal/models"
)

// DefaultSampleRows is how many body rows numeric inference looks at
const DefaultSampleRows = 10

// Width estimation constants, in points
const (
	pointsPerChar = 6.0
	cellPadding   = 10.0
	maxShare      = 1.5
)

// StyleColumns infers a ColumnStyle per column of table using the default sample size
func StyleColumns(table *models.Table, printable float64) []models.ColumnStyle {
	return StyleColumnsSampled(table, printable, DefaultSampleRows)
}

// StyleColumnsSampled infers alignment from the first sample body rows and sizes
// each column from its longest value. Widths are scaled down together when
// their sum exceeds printable.
func StyleColumnsSampled(table *models.Table, printable float64, sample int) []models.ColumnStyle {
	if table.IsEmpty() {
		return nil
	}

	n := len(table.Columns)
	styles := make([]models.ColumnStyle, n)
	capWidth := printable / float64(n) * maxShare

	total := 0.0
	for i, name := range table.Columns {
		numeric := IsNumericColumn(table, i, sample)
		align := models.AlignLeft
		if numeric {
			align = models.AlignRight
		}

		width := math.Min(float64(longest(table, i))*pointsPerChar+cellPadding, capWidth)
		total += width

		styles[i] = models.ColumnStyle{
			Name:    name,
			Align:   align,
			Width:   width,
			Numeric: numeric,
		}
	}

	if total > printable {
		scale := printable / total
		for i := range styles {
			styles[i].Width *= scale
		}
	}
	return styles
}

// IsNumericColumn reports whether every non-empty value among the first sample
// body rows of column col parses as an amount. A column without non-empty
// samples counts as numeric.
func IsNumericColumn(table *models.Table, col, sample int) bool {
	for r := 0; r < len(table.Rows) && r < sample; r++ {
		row := table.Rows[r]
		if col >= len(row) || row[col] == "" {
			continue
		}
		if !models.IsAmount(row[col]) {
			return false
		}
	}
	return true
}

// longest returns the rune length of the longest header or body value of a column
func longest(table *models.Table, col int) int {
	longestLen := utf8.RuneCountInString(table.Columns[col])
	for _, row := range table.Rows {
		if col < len(row) {
			if n := utf8.RuneCountInString(row[col]); n > longestLen {
				longestLen = n
			}
		}
	}
	return longestLen
}
