package maturity

import (
	"fmt"
	"time"

	"github.com/warp/ctr-mapper/table"
)

// =============================================================================
// REPORT DATE - The "as of" month every run is measured from
// =============================================================================

// ReportDate is the (year, month) reference point of a report.
// Day of month never matters: all comparisons are month-granular.
type ReportDate struct {
	Year  int
	Month time.Month
}

func NewReportDate(year int, month time.Month) ReportDate {
	return ReportDate{Year: year, Month: month}
}

// Validate rejects a missing year or a month outside 1..12.
func (r ReportDate) Validate() error {
	if r.Year < 1900 || r.Year > 9999 {
		return &table.ConfigError{Field: "report_year", Reason: fmt.Sprintf("must be a four-digit year, got %d", r.Year)}
	}
	if r.Month < time.January || r.Month > time.December {
		return &table.ConfigError{Field: "report_month", Reason: fmt.Sprintf("must be between 1 and 12, got %d", r.Month)}
	}
	return nil
}

// MonthsUntil counts whole calendar months from the report month to t's month.
// December 2022 -> January 2023 is 1; the same month is 0; earlier months are negative.
func (r ReportDate) MonthsUntil(t time.Time) int {
	return (t.Year()-r.Year)*12 + int(t.Month()-r.Month)
}

// Contains reports whether t falls in the report month itself.
func (r ReportDate) Contains(t time.Time) bool {
	return t.Year() == r.Year && t.Month() == r.Month
}

// IsFuture reports whether t is in a month after the report month.
func (r ReportDate) IsFuture(t time.Time) bool {
	return r.MonthsUntil(t) > 0
}

// EndOfMonth returns the last calendar day of the report month.
func (r ReportDate) EndOfMonth() time.Time {
	return time.Date(r.Year, r.Month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

func (r ReportDate) String() string {
	return fmt.Sprintf("%04d-%02d", r.Year, int(r.Month))
}

// =============================================================================
// CALENDAR UTILITIES
// =============================================================================

// addMonthsClipped moves t by n months, clipping the day to the target month's
// length (Jan 31 + 1 month = Feb 28/29) instead of overflowing like AddDate.
func addMonthsClipped(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	last := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
