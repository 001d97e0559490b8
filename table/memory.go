package table

import (
	"fmt"
	"sync"
)

// =============================================================================
// MEMORY SOURCE - In-memory implementation (for testing/dev)
// =============================================================================

// MemorySource serves a grid of cells. Grid index 0 is sheet row 1.
type MemorySource struct {
	grid [][]string
}

func NewMemorySource(grid [][]string) *MemorySource {
	return &MemorySource{grid: grid}
}

// Open positions a cursor after the header row.
func (m *MemorySource) Open(layout Layout) (Cursor, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	var header []string
	if layout.HeaderRow <= len(m.grid) {
		header = m.grid[layout.HeaderRow-1]
	}
	return &memoryCursor{
		grid:   m.grid,
		header: NewHeader(header),
		next:   layout.DataRow - 1,
	}, nil
}

type memoryCursor struct {
	grid   [][]string
	header Header
	next   int
	cur    Record
}

func (c *memoryCursor) Header() Header { return c.header }

func (c *memoryCursor) Next() bool {
	if c.next >= len(c.grid) {
		return false
	}
	c.cur = Record{Row: c.next + 1, Values: c.grid[c.next]}
	c.next++
	return true
}

func (c *memoryCursor) Record() Record { return c.cur }
func (c *memoryCursor) Err() error     { return nil }
func (c *memoryCursor) Close() error   { return nil }

// =============================================================================
// MEMORY SINK
// =============================================================================

// MemorySink keeps written sheets for inspection.
type MemorySink struct {
	mu     sync.Mutex
	sheets []Sheet
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) WriteSheets(sheets []Sheet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool, len(sheets))
	for _, s := range sheets {
		if seen[s.Name] {
			return fmt.Errorf("duplicate sheet name %q", s.Name)
		}
		seen[s.Name] = true
	}
	m.sheets = append(m.sheets, sheets...)
	return nil
}

// Sheets returns everything written so far.
func (m *MemorySink) Sheets() []Sheet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Sheet(nil), m.sheets...)
}

// Sheet looks up a written sheet by name.
func (m *MemorySink) Sheet(name string) (Sheet, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sheets {
		if s.Name == name {
			return s, true
		}
	}
	return Sheet{}, false
}
