package detect

import (
	"strings"
	"time"

	"statement-pdf-service/internal/models"
	"statement-pdf-service/pkg/logger"
)

// Confidence scores assigned to metadata matches
const (
	ConfidenceAdjacent = 1.0
	ConfidenceDistant  = 0.75
	ConfidenceRowOnly  = 0.5
)

// Match sources
const (
	SourceLabel = "label"
	SourceTable = "table"
)

// Match is one extracted metadata value
type Match struct {
	Field      string  `json:"field"`
	Value      string  `json:"value"`
	Row        int     `json:"row"`
	Column     int     `json:"column"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// MetadataResult is the outcome of ExtractMetadata
type MetadataResult struct {
	// Extracted holds only the accepted matches
	Extracted models.AccountMetadata `json:"extracted"`
	// Metadata is the static defaults with Extracted applied
	Metadata models.AccountMetadata `json:"metadata"`
	Matches  []Match                `json:"matches"`
	Rejected []Match                `json:"rejected,omitempty"`
}

// labelRule maps row text to a metadata field. A row matches when every part of
// any alternative occurs in it.
type labelRule struct {
	field        string
	alternatives [][]string
}

var labelRules = []labelRule{
	{models.FieldCustomerID, [][]string{{"customer", "id"}}},
	{models.FieldAccountHolderName, [][]string{{"account holder name"}, {"holder name"}}},
	{models.FieldAccountNumber, [][]string{{"account number"}}},
	{models.FieldAddress, [][]string{{"account holder address"}, {"holder address"}}},
	{models.FieldStatementDate, [][]string{{"date:"}}},
}

// matchedAlternative returns the first alternative fully contained in text
func (r labelRule) matchedAlternative(text string) []string {
	for _, alt := range r.alternatives {
		ok := true
		for _, part := range alt {
			if !strings.Contains(text, part) {
				ok = false
				break
			}
		}
		if ok {
			return alt
		}
	}
	return nil
}

// ExtractMetadata scans the first MetadataRows rows for labelled account details
// and derives the transaction date range from the table. It never fails; fields
// without an accepted match keep their defaults.
func (d *Detector) ExtractMetadata(doc *models.TabularDocument, table *models.Table) *MetadataResult {
	result := &MetadataResult{}
	found := make(map[string]bool)

	limit := doc.Len()
	if limit > d.opts.MetadataRows {
		limit = d.opts.MetadataRows
	}

	for i := 0; i < limit; i++ {
		joined := doc.JoinedRow(i)
		if joined == "" {
			continue
		}
		cells := doc.RowText(i)

		for _, rule := range labelRules {
			if found[rule.field] {
				continue
			}
			alt := rule.matchedAlternative(joined)
			if alt == nil {
				continue
			}

			m, ok := matchValue(rule.field, alt, cells, i)
			if !ok {
				continue
			}
			if m.Confidence < d.opts.MinConfidence {
				result.Rejected = append(result.Rejected, m)
				continue
			}

			found[rule.field] = true
			result.Extracted.Set(m.Field, m.Value)
			result.Matches = append(result.Matches, m)
		}
	}

	for _, m := range dateRange(table) {
		result.Extracted.Set(m.Field, m.Value)
		result.Matches = append(result.Matches, m)
	}

	result.Metadata = models.DefaultAccountMetadata().Merge(result.Extracted)

	d.logger.WithFields(logger.Fields{
		"matches":  len(result.Matches),
		"rejected": len(result.Rejected),
	}).Debug("Extracted metadata")
	return result
}

// matchValue reads the value belonging to a label found in row cells
func matchValue(field string, alt []string, cells []string, row int) (Match, bool) {
	m := Match{Field: field, Row: row, Source: SourceLabel}

	labelCol := -1
	for c, v := range cells {
		lower := strings.ToLower(v)
		all := true
		for _, part := range alt {
			if !strings.Contains(lower, part) {
				all = false
				break
			}
		}
		if all {
			labelCol = c
			break
		}
	}

	if labelCol < 0 {
		// the label spans several cells; take the first value after the first cell
		for c := 1; c < len(cells); c++ {
			if cells[c] != "" {
				m.Column, m.Value, m.Confidence = c, cells[c], ConfidenceRowOnly
				return m, true
			}
		}
		return m, false
	}

	for c := labelCol + 1; c < len(cells); c++ {
		if cells[c] == "" {
			continue
		}
		m.Column, m.Value = c, cells[c]
		if c == labelCol+1 {
			m.Confidence = ConfidenceAdjacent
		} else {
			m.Confidence = ConfidenceDistant
		}
		return m, true
	}

	// "Customer ID: 123" in a single cell
	if idx := strings.Index(cells[labelCol], ":"); idx >= 0 {
		if v := strings.TrimSpace(cells[labelCol][idx+1:]); v != "" {
			m.Column, m.Value, m.Confidence = labelCol, v, ConfidenceDistant
			return m, true
		}
	}
	return m, false
}

// dateRange returns from/to matches for the first date column of the table
func dateRange(table *models.Table) []Match {
	if table.IsEmpty() {
		return nil
	}
	col := table.ColumnIndex("date")
	if col < 0 {
		return nil
	}

	var minDate, maxDate time.Time
	for _, v := range table.Column(col) {
		t, err := models.ParseDate(v)
		if err != nil {
			continue
		}
		if minDate.IsZero() || t.Before(minDate) {
			minDate = t
		}
		if maxDate.IsZero() || t.After(maxDate) {
			maxDate = t
		}
	}
	if minDate.IsZero() {
		return nil
	}

	return []Match{
		{Field: models.FieldDateFrom, Value: models.FormatStatementDate(minDate), Row: -1, Column: col, Confidence: ConfidenceAdjacent, Source: SourceTable},
		{Field: models.FieldDateTo, Value: models.FormatStatementDate(maxDate), Row: -1, Column: col, Confidence: ConfidenceAdjacent, Source: SourceTable},
	}
}
