package table

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// CELL VALUE COERCION
// =============================================================================
// Readers hand over raw cell text. Date cells arrive as Excel serial numbers
// when the workbook is read raw, or as text when the export wrote strings.

var (
	errBadDate    = errors.New("not a date")
	errBadNumber  = errors.New("not a number")
	errNotInteger = errors.New("not an integer")
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"1/2/06",
	"02.01.2006",
	"02-Jan-2006",
	"Jan 2, 2006",
}

// ParseDate reads a cell as a calendar date in UTC, dropping any time of day.
// A blank cell yields the zero time and no error.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, nil
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial <= 0 {
			return time.Time{}, errBadDate
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, errBadDate
		}
		return truncateDay(t), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateDay(t), nil
		}
	}
	return time.Time{}, errBadDate
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDecimal reads a money cell. Blank cells and the accounting dash are zero.
// Thousands separators, currency padding and accounting parentheses are accepted.
func ParseDecimal(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" {
		return decimal.Zero, nil
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errBadNumber
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// ParseInt reads a whole-number cell such as a fiscal year ("2024" or "2024.0").
func ParseInt(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, errNotInteger
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errNotInteger
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, errNotInteger
	}
	return int(d.IntPart()), nil
}

// Text normalizes an identifier cell. Numeric IDs read raw from a workbook can
// arrive as "1001.0"; those are rendered as "1001".
func Text(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasSuffix(s, ".0") {
		if _, err := strconv.ParseInt(strings.TrimSuffix(s, ".0"), 10, 64); err == nil {
			return strings.TrimSuffix(s, ".0")
		}
	}
	return s
}
