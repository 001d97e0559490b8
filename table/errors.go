/*
errors.go - Error taxonomy for report runs

PURPOSE:
  A report run is all-or-nothing: any of these errors fails the whole run.
  Partial output would be financially misleading, so nothing here is skipped
  or degraded silently.

ERROR CATEGORIES:
  1. Configuration - bad run parameters, raised before any row is read
  2. Schema        - required columns absent from the header row
  3. Row data      - unparseable date, non-numeric amount, missing key field
  4. Filter empty  - company code / status filters eliminated every row
  5. No data       - the sheet has no data rows at all

USAGE:
  if errors.Is(err, table.ErrMissingColumns) { ... }

  var rowErr *table.RowError
  if errors.As(err, &rowErr) {
      log.Printf("bad row %d, field %s", rowErr.Row, rowErr.Field)
  }
*/
package table

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidConfig is returned for missing or out-of-range run parameters.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrMissingColumns is returned when required columns are absent from the header.
	ErrMissingColumns = errors.New("missing required columns")

	// ErrInvalidRow is returned when a data row cannot be interpreted.
	ErrInvalidRow = errors.New("invalid row")

	// ErrFilterEmpty is returned when run filters leave no rows to process.
	ErrFilterEmpty = errors.New("no rows match filter")

	// ErrNoData is returned when the input has a header but no data rows.
	ErrNoData = errors.New("no data rows")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConfigError names the offending run parameter.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// SchemaError lists every required column missing from the header row.
// Suggestions maps a missing label to the nearest header name on the row,
// which is usually a typo or a renamed export column.
type SchemaError struct {
	Missing     []string
	Suggestions map[string]string
}

func (e *SchemaError) Error() string {
	parts := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		parts[i] = m
		if s, ok := e.Suggestions[m]; ok {
			parts[i] = fmt.Sprintf("%s (closest header %q)", m, s)
		}
	}
	return fmt.Sprintf("missing required columns: %s", strings.Join(parts, ", "))
}

func (e *SchemaError) Unwrap() error { return ErrMissingColumns }

// RowError identifies the sheet row and field that could not be read.
type RowError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e *RowError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("row %d: %s: %v", e.Row, e.Field, e.Err)
	}
	return fmt.Sprintf("row %d: %s %q: %v", e.Row, e.Field, e.Value, e.Err)
}

func (e *RowError) Unwrap() []error { return []error{ErrInvalidRow, e.Err} }

// FilterError reports the filters that eliminated every row.
type FilterError struct {
	CompanyCode string
	Statuses    []string
}

func (e *FilterError) Error() string {
	var parts []string
	if e.CompanyCode != "" {
		parts = append(parts, fmt.Sprintf("company code %q", e.CompanyCode))
	}
	if len(e.Statuses) > 0 {
		parts = append(parts, fmt.Sprintf("activation group status in [%s]", strings.Join(e.Statuses, ", ")))
	}
	return fmt.Sprintf("no records found for %s", strings.Join(parts, " and "))
}

func (e *FilterError) Unwrap() error { return ErrFilterEmpty }

// errMissingValue marks a required cell that is blank.
var errMissingValue = errors.New("required value is blank")

// MissingValue builds the RowError for a blank required field.
func MissingValue(row int, field string) *RowError {
	return &RowError{Row: row, Field: field, Err: errMissingValue}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is caused by the input or parameters
// rather than by the system.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingColumns) ||
		errors.Is(err, ErrInvalidRow) ||
		errors.Is(err, ErrFilterEmpty) ||
		errors.Is(err, ErrNoData)
}
