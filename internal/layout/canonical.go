package layout

import (
	"strings"

	"statement-pdf-service/internal/models"
)

// Canonical column names of the statement table, in print order
const (
	ColSrNo    = "Sr No"
	ColDate    = "Date"
	ColRemarks = "Remarks"
	ColDebit   = "Debit"
	ColCredit  = "Credit"
	ColBalance = "Balance"
)

// CanonicalColumns lists the fixed column order
var CanonicalColumns = []string{ColSrNo, ColDate, ColRemarks, ColDebit, ColCredit, ColBalance}

var canonicalWidthsMM = []float64{15, 22, 75, 22, 22, 28}

var canonicalAlign = []models.Alignment{
	models.AlignCenter, models.AlignCenter, models.AlignLeft,
	models.AlignRight, models.AlignRight, models.AlignRight,
}

// CanonicalName maps a source column header to a canonical column, or "".
// Checks run in a fixed order, so "Sr No" wins over later rules.
func CanonicalName(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	switch {
	case containsAny(h, "sr", "s.no", "sno", "serial"):
		return ColSrNo
	case strings.Contains(h, "date"):
		return ColDate
	case containsAny(h, "remark", "description", "narration", "particular"):
		return ColRemarks
	case strings.Contains(h, "debit") || h == "dr":
		return ColDebit
	case strings.Contains(h, "credit") || h == "cr":
		return ColCredit
	case containsAny(h, "balance", "bal"):
		return ColBalance
	}
	return ""
}

// Canonicalize remaps a detected table onto CanonicalColumns. The first source
// column mapped to a canonical name supplies its values; canonical columns
// without a source stay empty.
func Canonicalize(table *models.Table) *models.Table {
	source := make(map[string]int, len(CanonicalColumns))
	for i, col := range table.Columns {
		name := CanonicalName(col)
		if name == "" {
			continue
		}
		if _, taken := source[name]; !taken {
			source[name] = i
		}
	}

	rows := make([][]string, len(table.Rows))
	for r, row := range table.Rows {
		out := make([]string, len(CanonicalColumns))
		for c, name := range CanonicalColumns {
			if idx, ok := source[name]; ok && idx < len(row) {
				out[c] = strings.TrimSpace(row[idx])
			}
		}
		rows[r] = out
	}

	columns := make([]string, len(CanonicalColumns))
	copy(columns, CanonicalColumns)
	return &models.Table{
		HeaderRow:  table.HeaderRow,
		Columns:    columns,
		Rows:       rows,
		Hits:       table.Hits,
		Confidence: table.Confidence,
	}
}

// CanonicalStyles returns the fixed canonical column styles, scaled down when
// they do not fit printable.
func CanonicalStyles(printable float64) []models.ColumnStyle {
	styles := make([]models.ColumnStyle, len(CanonicalColumns))
	total := 0.0
	for i, name := range CanonicalColumns {
		w := MM(canonicalWidthsMM[i])
		total += w
		styles[i] = models.ColumnStyle{
			Name:    name,
			Align:   canonicalAlign[i],
			Width:   w,
			Numeric: canonicalAlign[i] == models.AlignRight,
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

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
