package detect

import (
	"fmt"
	"strings"

	"statement-pdf-service/internal/models"
	"statement-pdf-service/pkg/logger"
)

// KeywordHits counts how many keywords occur in the lower-cased joined row text
func KeywordHits(joined string, keywords []string) int {
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(joined, strings.ToLower(kw)) {
			hits++
		}
	}
	return hits
}

// DetectTable returns the transaction region of doc. The first row reaching
// MinKeywordHits becomes the header; everything below it is the body.
func (d *Detector) DetectTable(doc *models.TabularDocument) *models.Table {
	headerRow, hits := -1, 0
	for i := 0; i < doc.Len(); i++ {
		if h := KeywordHits(doc.JoinedRow(i), d.opts.Keywords); h >= d.opts.MinKeywordHits {
			headerRow, hits = i, h
			break
		}
	}

	if headerRow < 0 {
		d.logger.WithFields(logger.Fields{
			"source": doc.Source,
			"rows":   doc.Len(),
		}).Warn("Could not find table header row")
		return models.EmptyTable()
	}

	header := doc.RowText(headerRow)
	// drop trailing blank header cells so padding columns do not become table columns
	width := len(header)
	for width > 0 && header[width-1] == "" && columnEmpty(doc, headerRow, width-1) {
		width--
	}

	columns := make([]string, width)
	for i := 0; i < width; i++ {
		if header[i] == "" {
			columns[i] = fmt.Sprintf("Column %d", i+1)
		} else {
			columns[i] = header[i]
		}
	}

	rows := make([][]string, 0, doc.Len()-headerRow-1)
	for i := headerRow + 1; i < doc.Len(); i++ {
		values := doc.RowText(i)
		if isBlank(values) {
			continue
		}
		row := make([]string, width)
		copy(row, values)
		rows = append(rows, row)
	}

	table := &models.Table{
		HeaderRow:  headerRow,
		Columns:    columns,
		Rows:       rows,
		Hits:       hits,
		Confidence: float64(hits) / float64(len(d.opts.Keywords)),
	}

	d.logger.WithFields(logger.Fields{
		"header_row": headerRow,
		"columns":    len(columns),
		"rows":       len(rows),
		"hits":       hits,
	}).Info("Found table header")
	return table
}

// columnEmpty reports whether column col is blank from row start down
func columnEmpty(doc *models.TabularDocument, start, col int) bool {
	for i := start; i < doc.Len(); i++ {
		if col < len(doc.Rows[i]) && !doc.Rows[i][col].IsEmpty() {
			return false
		}
	}
	return true
}

func isBlank(values []string) bool {
	for _, v := range values {
		if v != "" {
			return false
		}
	}
	return true
}
