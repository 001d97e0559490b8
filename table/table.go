/*
Package table defines the tabular contract between the report engines and the
spreadsheet adapters.

PURPOSE:
  The maturity and poliza engines never touch a spreadsheet directly. They read
  rows through a Source and hand finished sheets to a Sink. Adapters (store/xlsx
  for real workbooks, MemorySource/MemorySink for tests) implement both sides.

KEY CONCEPTS:
  - Layout: 1-indexed header row and first data row of the input sheet
  - Header: column names found on the header row
  - Column / Binding: logical fields resolved onto header positions
  - Cursor: forward-only row iterator, modelled on database/sql.Rows
  - Sheet / Cell: output model with values, formulas and semantic styles

READ FLOW:
  cur, err := src.Open(table.Layout{HeaderRow: 8, DataRow: 9})
  defer cur.Close()
  binding, err := cur.Header().Bind(required, optional)
  for cur.Next() {
      rec := cur.Record()
      if binding.Blank(rec) {
          continue
      }
      contractID := binding.Value(rec, "contractId")
  }
  if err := cur.Err(); err != nil { ... }

SEE ALSO:
  - errors.go: error taxonomy shared by both engines
  - values.go: cell value coercion (dates, decimals, integers)
  - memory.go: in-memory Source and Sink
  - store/xlsx: excelize-backed Source and Sink
*/
package table

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// =============================================================================
// LAYOUT
// =============================================================================

// Layout locates the header and the first data row of an input sheet.
// Rows before HeaderRow and between HeaderRow and DataRow are ignored.
type Layout struct {
	HeaderRow int
	DataRow   int
}

// Validate rejects non-positive rows and a data row that is not below the header.
func (l Layout) Validate() error {
	if l.HeaderRow < 1 {
		return &ConfigError{Field: "header_row", Reason: fmt.Sprintf("must be >= 1, got %d", l.HeaderRow)}
	}
	if l.DataRow < 1 {
		return &ConfigError{Field: "data_row", Reason: fmt.Sprintf("must be >= 1, got %d", l.DataRow)}
	}
	if l.DataRow <= l.HeaderRow {
		return &ConfigError{Field: "data_row", Reason: fmt.Sprintf("must be after header row %d, got %d", l.HeaderRow, l.DataRow)}
	}
	return nil
}

// =============================================================================
// SOURCE - Forward-only row access
// =============================================================================

// Source opens a cursor over the first sheet of a tabular input.
type Source interface {
	Open(layout Layout) (Cursor, error)
}

// Cursor iterates data rows. Header is available as soon as Open returns.
type Cursor interface {
	Header() Header
	Next() bool
	Record() Record
	Err() error
	Close() error
}

// Record is one data row. Row is the 1-indexed sheet row number.
type Record struct {
	Row    int
	Values []string
}

// Value returns the trimmed cell at a 0-based column, or "" when the row is short.
func (r Record) Value(col int) string {
	if col < 0 || col >= len(r.Values) {
		return ""
	}
	return strings.TrimSpace(r.Values[col])
}

// =============================================================================
// HEADER AND COLUMN BINDING
// =============================================================================

// Header holds the names found on the header row, by 0-based column.
type Header struct {
	names  []string
	folded []string
}

func NewHeader(names []string) Header {
	cleaned := make([]string, len(names))
	folded := make([]string, len(names))
	for i, n := range names {
		cleaned[i] = strings.TrimSpace(n)
		folded[i] = foldLabel(n)
	}
	return Header{names: cleaned, folded: folded}
}

func (h Header) Names() []string { return h.names }

// Column is a logical field and the header labels it may appear under.
// Labels are tried in order: exact match first, then ignoring case, accents
// and repeated spaces. Fuzzy columns finally accept any header containing a
// label under the same folding.
type Column struct {
	Field  string
	Labels []string
	Fuzzy  bool
}

// Col is shorthand for a column whose field name is also its only label.
func Col(label string) Column {
	return Column{Field: label, Labels: []string{label}}
}

// Resolve finds the 0-based position of a column.
func (h Header) Resolve(c Column) (int, bool) {
	for _, label := range c.Labels {
		for i, name := range h.names {
			if name == label {
				return i, true
			}
		}
	}
	for _, label := range c.Labels {
		want := foldLabel(label)
		for i, name := range h.folded {
			if name == want {
				return i, true
			}
		}
	}
	if c.Fuzzy {
		for _, label := range c.Labels {
			needle := foldLabel(label)
			for i, name := range h.folded {
				if name != "" && strings.Contains(name, needle) {
					return i, true
				}
			}
		}
	}
	return -1, false
}

// Bind resolves every column. A missing required column is a SchemaError
// naming all absent columns, each with the closest header found; missing
// optional columns read as blank.
func (h Header) Bind(required, optional []Column) (Binding, error) {
	b := Binding{cols: make(map[string]int, len(required)+len(optional))}
	var missing []string
	for _, c := range required {
		idx, ok := h.Resolve(c)
		if !ok {
			missing = append(missing, c.Labels[0])
			continue
		}
		b.cols[c.Field] = idx
	}
	if len(missing) > 0 {
		return Binding{}, &SchemaError{Missing: missing, Suggestions: h.suggest(missing)}
	}
	for _, c := range optional {
		if idx, ok := h.Resolve(c); ok {
			b.cols[c.Field] = idx
		}
	}
	return b, nil
}

// Binding maps field names onto column positions of one header.
type Binding struct {
	cols map[string]int
}

// Has reports whether the field was found on the header.
func (b Binding) Has(field string) bool {
	_, ok := b.cols[field]
	return ok
}

// Value returns the trimmed cell for a field, "" when the field is unbound.
func (b Binding) Value(rec Record, field string) string {
	idx, ok := b.cols[field]
	if !ok {
		return ""
	}
	return rec.Value(idx)
}

// Blank reports whether every bound field of the record is empty.
// Such rows are spacers or trailing formatting, not data.
func (b Binding) Blank(rec Record) bool {
	for _, idx := range b.cols {
		if rec.Value(idx) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// SINK - Output model
// =============================================================================

// Sink receives finished sheets. Sheets are written in slice order.
type Sink interface {
	WriteSheets(sheets []Sheet) error
}

// Style is the semantic formatting of a cell; sinks map it to concrete formats.
type Style int

const (
	StyleText Style = iota
	StyleHeader
	StyleMoney
	StyleRate
	StyleDate
	StyleInteger
	StyleTotal
)

// Sheet is one output worksheet: a header row followed by data rows.
type Sheet struct {
	Name    string
	Columns []ColumnSpec
	Rows    [][]Cell
}

// ColumnSpec titles an output column. Width 0 lets the sink pick one.
type ColumnSpec struct {
	Title string
	Width float64
}

// Cell holds either a literal Value or a Formula (without the leading '=').
// Values are string, int, decimal.Decimal, time.Time or nil.
type Cell struct {
	Value   any
	Formula string
	Style   Style
}

// ColumnLetter converts a 1-based column number to its spreadsheet letters (1 -> A).
func ColumnLetter(n int) string {
	name, err := excelize.ColumnNumberToName(n)
	if err != nil {
		return ""
	}
	return name
}
