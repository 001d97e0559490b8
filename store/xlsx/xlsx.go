/*
Package xlsx provides the excelize-backed implementation of the table
Source and Sink contracts.

PURPOSE:
  Reads lease schedule and ledger exports from .xlsx workbooks and writes the
  finished report sheets back out. The engines never see excelize types; they
  work on table.Record and table.Sheet only.

READING:
  Rows are streamed with excelize's row iterator, never loaded as a whole
  grid, so a schedule with tens of thousands of rows costs one row of memory
  at a time. Cells are read as raw values: dates arrive as Excel serial
  numbers and amounts unformatted, and table.ParseDate / ParseDecimal turn
  them into typed values.

WRITING:
  Each sheet is written through a StreamWriter. Column widths are set before
  the first row, the header row uses the header style, and table.Style maps to
  one excelize style per workbook (see styles.go). Formulas are written as
  formulas; the spreadsheet computes the totals row.

USAGE:
  src := xlsx.NewSource("schedule.xlsx")
  sink := xlsx.NewSink("report.xlsx")
  result, err := maturity.Run(ctx, src, sink, params)

SEE ALSO:
  - table/table.go: Source, Cursor, Sink, Sheet
  - styles.go: number formats and fills
*/
package xlsx

import (
	"errors"
	"fmt"
	"io"

	"github.com/warp/ctr-mapper/table"
	"github.com/xuri/excelize/v2"
)

// ErrSheetNotFound is returned when the requested worksheet does not exist.
var ErrSheetNotFound = errors.New("worksheet not found")

// =============================================================================
// SOURCE
// =============================================================================

// Source reads one worksheet of a workbook on disk. An empty Sheet reads the
// first worksheet.
type Source struct {
	Path  string
	Sheet string
}

func NewSource(path string) *Source {
	return &Source{Path: path}
}

// Open opens the workbook and advances to the header row. The returned
// cursor owns the file handle until Close.
func (s *Source) Open(layout table.Layout) (table.Cursor, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", s.Path, err)
	}

	sheet := s.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			f.Close()
			return nil, ErrSheetNotFound
		}
		sheet = sheets[0]
	}
	rows, err := f.Rows(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrSheetNotFound, sheet, err)
	}

	c := &cursor{file: f, rows: rows, dataRow: layout.DataRow}
	for c.row < layout.HeaderRow {
		if !c.advance() {
			break
		}
	}
	if c.err != nil {
		c.Close()
		return nil, c.err
	}
	if c.row == layout.HeaderRow {
		c.header = table.NewHeader(c.values)
	}
	return c, nil
}

type cursor struct {
	file    *excelize.File
	rows    *excelize.Rows
	header  table.Header
	dataRow int

	row    int
	values []string
	err    error
}

// advance reads the next sheet row, including empty ones.
func (c *cursor) advance() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	c.row++
	cols, err := c.rows.Columns(excelize.Options{RawCellValue: true})
	if err != nil {
		c.err = fmt.Errorf("read row %d: %w", c.row, err)
		return false
	}
	c.values = cols
	return true
}

func (c *cursor) Header() table.Header { return c.header }

func (c *cursor) Next() bool {
	for c.advance() {
		if c.row >= c.dataRow {
			return true
		}
	}
	return false
}

func (c *cursor) Record() table.Record {
	return table.Record{Row: c.row, Values: c.values}
}

func (c *cursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Error()
}

func (c *cursor) Close() error {
	rowsErr := c.rows.Close()
	fileErr := c.file.Close()
	return errors.Join(rowsErr, fileErr)
}

// =============================================================================
// SINK
// =============================================================================

// Sink writes sheets to a new workbook at Path, replacing any existing file.
type Sink struct {
	Path string
}

func NewSink(path string) *Sink {
	return &Sink{Path: path}
}

func (s *Sink) WriteSheets(sheets []table.Sheet) error {
	f, err := build(sheets)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(s.Path); err != nil {
		return fmt.Errorf("save workbook %s: %w", s.Path, err)
	}
	return nil
}

// StreamSink writes the workbook to an io.Writer, e.g. an HTTP response.
type StreamSink struct {
	W io.Writer
}

func (s StreamSink) WriteSheets(sheets []table.Sheet) error {
	f, err := build(sheets)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(s.W); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func build(sheets []table.Sheet) (*excelize.File, error) {
	if len(sheets) == 0 {
		return nil, errors.New("no sheets to write")
	}
	f := excelize.NewFile()
	st, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	defaultSheet := f.GetSheetName(0)
	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, sheet.Name); err != nil {
				f.Close()
				return nil, fmt.Errorf("sheet %q: %w", sheet.Name, err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			f.Close()
			return nil, fmt.Errorf("sheet %q: %w", sheet.Name, err)
		}
		if err := writeSheet(f, st, sheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("sheet %q: %w", sheet.Name, err)
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeSheet(f *excelize.File, st styles, sheet table.Sheet) error {
	sw, err := f.NewStreamWriter(sheet.Name)
	if err != nil {
		return err
	}
	for i, col := range sheet.Columns {
		width := col.Width
		if width == 0 {
			width = defaultWidth
		}
		if err := sw.SetColWidth(i+1, i+1, width); err != nil {
			return err
		}
	}

	header := make([]any, len(sheet.Columns))
	for i, col := range sheet.Columns {
		header[i] = excelize.Cell{StyleID: st.id(table.StyleHeader), Value: col.Title}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for r, row := range sheet.Rows {
		cells := make([]any, len(row))
		for c, cell := range row {
			cells[c] = excelize.Cell{StyleID: st.id(cell.Style), Value: cellValue(cell.Value), Formula: cell.Formula}
		}
		ref, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(ref, cells); err != nil {
			return err
		}
	}
	return sw.Flush()
}
