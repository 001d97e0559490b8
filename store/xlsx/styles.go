package xlsx

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/ctr-mapper/table"
	"github.com/xuri/excelize/v2"
)

const defaultWidth = 14

const (
	accountingFormat = `_-* #,##0.00_-;-* #,##0.00_-;_-* "-"??_-;_-@_-`
	rateFormat       = "0.0000"
	dateFormat       = "yyyy-mm-dd"

	headerFill = "B3E5FC"
	totalFill  = "FFB6C1"
)

// styles maps table.Style to the style IDs registered on one workbook.
type styles map[table.Style]int

func (s styles) id(style table.Style) int {
	return s[style]
}

func newStyles(f *excelize.File) (styles, error) {
	accounting := accountingFormat
	rate := rateFormat
	date := dateFormat
	defs := map[table.Style]*excelize.Style{
		table.StyleHeader: {
			Font:      &excelize.Font{Bold: true},
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		},
		table.StyleMoney:   {CustomNumFmt: &accounting},
		table.StyleRate:    {CustomNumFmt: &rate},
		table.StyleDate:    {CustomNumFmt: &date},
		table.StyleInteger: {NumFmt: 1},
		table.StyleTotal: {
			Font:         &excelize.Font{Bold: true},
			Fill:         excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{totalFill}},
			CustomNumFmt: &accounting,
		},
	}

	out := styles{table.StyleText: 0}
	for style, def := range defs {
		id, err := f.NewStyle(def)
		if err != nil {
			return nil, fmt.Errorf("register style %d: %w", style, err)
		}
		out[style] = id
	}
	return out, nil
}

// cellValue converts engine values to types the stream writer understands.
// Money becomes float64 on the way out; xlsx stores numbers as doubles.
func cellValue(v any) any {
	switch val := v.(type) {
	case decimal.Decimal:
		return val.InexactFloat64()
	case *decimal.Decimal:
		if val == nil {
			return nil
		}
		return val.InexactFloat64()
	case time.Time:
		if val.IsZero() {
			return nil
		}
		return val
	default:
		return v
	}
}
