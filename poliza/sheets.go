package poliza

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/warp/ctr-mapper/table"
)

// =============================================================================
// SHEET LAYOUT
// =============================================================================

// Columns is the journal template header, in output order.
var Columns = func() []table.ColumnSpec {
	cols := []table.ColumnSpec{{Title: "TC", Width: 10}, {Title: "Nombre", Width: 22}, {Title: "divisa", Width: 8}}
	for _, s := range GLSegments {
		cols = append(cols, table.ColumnSpec{Title: s, Width: 12})
	}
	return append(cols,
		table.ColumnSpec{Title: "debito", Width: 16},
		table.ColumnSpec{Title: "credito", Width: 16},
		table.ColumnSpec{Title: "debito_convertido", Width: 18},
		table.ColumnSpec{Title: "credito_convertido", Width: 18},
		table.ColumnSpec{Title: "descripcion", Width: 48},
	)
}()

// 1-based positions of the columns formulas refer to
const (
	colTC     = 1
	colDebit  = 12
	colCredit = 13
)

// ConvertedFormula multiplies TC by the debit or credit cell of a row, and
// yields 0 while either is blank.
func ConvertedFormula(row, amountCol int) string {
	tc := fmt.Sprintf("%s%d", table.ColumnLetter(colTC), row)
	amount := fmt.Sprintf("%s%d", table.ColumnLetter(amountCol), row)
	return fmt.Sprintf("IF(OR(ISBLANK(%s),ISBLANK(%s)),0,%s*%s)", tc, amount, tc, amount)
}

// Sheets renders one sheet per Translation Type.
func (m *Mapper) Sheets() []table.Sheet {
	names := newSheetNames()
	sheets := make([]table.Sheet, 0, len(m.groups))
	for _, g := range m.groups {
		sheets = append(sheets, g.Sheet(names.take(g.TranslationType)))
	}
	return sheets
}

// Sheet renders the group's lines followed by a totals row over the four
// money columns.
func (g *Group) Sheet(name string) table.Sheet {
	sheet := table.Sheet{Name: name, Columns: Columns}
	for i, l := range g.Lines {
		sheet.Rows = append(sheet.Rows, lineCells(l, i+2))
	}

	last := len(g.Lines) + 1
	totals := make([]table.Cell, len(Columns))
	for c := colDebit; c <= colDebit+3; c++ {
		letter := table.ColumnLetter(c)
		totals[c-1] = table.Cell{Formula: fmt.Sprintf("SUM(%s2:%s%d)", letter, letter, last), Style: table.StyleTotal}
	}
	sheet.Rows = append(sheet.Rows, totals)
	return sheet
}

func lineCells(l Line, row int) []table.Cell {
	cells := []table.Cell{
		{Style: table.StyleRate},
		text(l.Name),
		text(l.Currency),
	}
	if !l.Rate.IsZero() {
		cells[0].Value = l.Rate
	}
	for _, s := range l.Segments {
		cells = append(cells, text(s))
	}
	return append(cells,
		table.Cell{Value: l.Debit, Style: table.StyleMoney},
		table.Cell{Value: l.Credit, Style: table.StyleMoney},
		table.Cell{Formula: ConvertedFormula(row, colDebit), Style: table.StyleMoney},
		table.Cell{Formula: ConvertedFormula(row, colCredit), Style: table.StyleMoney},
		text(l.Description),
	)
}

// text leaves empty strings as truly blank cells.
func text(s string) table.Cell {
	if s == "" {
		return table.Cell{}
	}
	return table.Cell{Value: s}
}

// =============================================================================
// SHEET NAMES
// =============================================================================

const maxSheetName = 31

// SanitizeSheetName applies the spreadsheet naming rules: at most 31
// characters, none of []:*?/\ and no leading or trailing apostrophe.
func SanitizeSheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	name = truncate(strings.Trim(name, "'"), maxSheetName)
	if name == "" {
		return "Sheet"
	}
	return name
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// sheetNames hands out unique names; spreadsheet names compare case-insensitively.
type sheetNames map[string]bool

func newSheetNames() sheetNames { return sheetNames{} }

func (s sheetNames) take(raw string) string {
	base := SanitizeSheetName(raw)
	name := base
	for i := 2; s[strings.ToLower(name)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		name = truncate(base, maxSheetName-len(suffix)) + suffix
	}
	s[strings.ToLower(name)] = true
	return name
}
