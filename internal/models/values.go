package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// amountReplacer drops the currency marks, separators and signs that bank exports put around amounts
var amountReplacer = strings.NewReplacer(
	",", "",
	"-", "",
	"₹", "",
	"$", "",
	" ", "",
	" ", "",
)

// ParseAmount parses a displayed amount after stripping ",-₹$", spaces and
// "Rs."/"INR"/"Cr"/"Dr" markers. The sign is not preserved.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	lower := strings.ToLower(s)
	for _, prefix := range []string{"rs.", "rs", "inr"} {
		if strings.HasPrefix(lower, prefix) {
			s = s[len(prefix):]
			lower = lower[len(prefix):]
			break
		}
	}
	for _, suffix := range []string{"cr", "dr"} {
		if strings.HasSuffix(lower, suffix) {
			s = s[:len(s)-len(suffix)]
			break
		}
	}

	cleaned := amountReplacer.Replace(s)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("invalid amount '%s': no digits", s)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// IsAmount reports whether s parses with ParseAmount
func IsAmount(s string) bool {
	_, err := ParseAmount(s)
	return err == nil
}

// StatementDateLayout is the dd-mm-yyyy format used for printed date ranges
const StatementDateLayout = "02-01-2006"

// dateLayouts are tried in order; day-first layouts come before month-first ones
// because statements in this domain are day-first.
var dateLayouts = []string{
	"02-01-2006",
	"02/01/2006",
	"02.01.2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02-01-2006 15:04:05",
	"02/01/2006 15:04:05",
	"02-Jan-2006",
	"02 Jan 2006",
	"02-Jan-06",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006/01/02",
	"01/02/2006",
	"1/2/06",
	"01-02-06",
}

// ParseDate attempts to parse a date using the known statement layouts
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("unable to parse date '%s': %w", s, lastErr)
}

// FormatStatementDate formats t as dd-mm-yyyy
func FormatStatementDate(t time.Time) string {
	return t.Format(StatementDateLayout)
}
