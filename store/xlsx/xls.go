package xlsx

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shakinm/xlsReader/xls"
	"github.com/warp/ctr-mapper/table"
)

// =============================================================================
// LEGACY SOURCE - .xls (BIFF8) workbooks
// =============================================================================

// LegacySource reads one worksheet of an Excel 97-2003 workbook. Older ERP
// exports still arrive in this format. The workbook is decoded whole, so it
// suits the export sizes seen in practice rather than very large schedules.
type LegacySource struct {
	Path  string
	Sheet string
}

func NewLegacySource(path string) *LegacySource {
	return &LegacySource{Path: path}
}

// SourceFor picks the reader by file extension: .xls files use the legacy
// reader, everything else is read as .xlsx.
func SourceFor(path string) table.Source {
	if strings.EqualFold(filepath.Ext(path), ".xls") {
		return NewLegacySource(path)
	}
	return NewSource(path)
}

// Open decodes the workbook and positions on the header row.
func (s *LegacySource) Open(layout table.Layout) (table.Cursor, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	wb, err := xls.OpenFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", s.Path, err)
	}

	sheets := wb.GetSheets()
	idx := -1
	for i := range sheets {
		if s.Sheet == "" || sheets[i].GetName() == s.Sheet {
			idx = i
			break
		}
	}
	if idx < 0 {
		name := s.Sheet
		if name == "" {
			name = filepath.Base(s.Path)
		}
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, name)
	}
	sheet := &sheets[idx]

	// materialize rows once; Next only walks the slice
	grid := make([][]string, sheet.GetNumberRows())
	for i := range grid {
		row, err := sheet.GetRow(i)
		if err != nil || row == nil {
			continue
		}
		cols := row.GetCols()
		values := make([]string, len(cols))
		for j, c := range cols {
			if c != nil {
				values[j] = c.GetString()
			}
		}
		grid[i] = values
	}

	c := &legacyCursor{grid: grid, next: layout.DataRow - 1}
	if layout.HeaderRow <= len(grid) {
		c.header = table.NewHeader(grid[layout.HeaderRow-1])
	}
	return c, nil
}

type legacyCursor struct {
	grid   [][]string
	header table.Header
	next   int // 0-based index of the next row to yield
	cur    table.Record
}

func (c *legacyCursor) Header() table.Header { return c.header }

func (c *legacyCursor) Next() bool {
	if c.next >= len(c.grid) {
		return false
	}
	c.cur = table.Record{Row: c.next + 1, Values: c.grid[c.next]}
	c.next++
	return true
}

func (c *legacyCursor) Record() table.Record { return c.cur }
func (c *legacyCursor) Err() error           { return nil }
func (c *legacyCursor) Close() error         { return nil }
