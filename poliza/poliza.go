/*
Package poliza maps consolidated GL transaction exports onto the "poliza"
journal template used to book lease entries in the general ledger.

PURPOSE:
  Every input row becomes one journal line. Lines are grouped onto one sheet
  per Translation Type, the GL account string is split into its eight
  segments, and the signed amount is split into debit and credit columns.
  The converted debit/credit columns are spreadsheet formulas over a TC
  (exchange rate) column that the accountant fills in, or that is prefilled
  when a rate was configured for the contract currency.

KEY CONCEPTS:
  - Entry: one parsed input row
  - Line: one output journal line
  - Mapper: groups lines by Translation Type in first-seen order

OUTPUT COLUMNS:
  TC, Nombre, divisa, compania, Unidad, CC, ubicacion, cuenta, subcuenta,
  equipo, intercompania, debito, credito, debito_convertido,
  credito_convertido, descripcion

  Nombre      = "<Translation Type> <mon>-<yyyy>", e.g. "Actual jan-2024"
  descripcion = "M1/<Unit>/<Fiscal Year>/<Fiscal Period>/<Contract Name>/<Vendor>"

USAGE:
  params := poliza.DefaultParams()
  params.CompanyCode = "1000"
  result, err := poliza.Run(ctx, xlsx.NewSource(in), xlsx.NewSink(out), params)

SEE ALSO:
  - sheets.go: sheet layout, formulas and name sanitizing
*/
package poliza

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/ctr-mapper/table"
)

// DefaultLayout matches the GL export: header on row 27, data from row 28.
var DefaultLayout = table.Layout{HeaderRow: 27, DataRow: 28}

// GLSegments names the dash-separated parts of a GL account, in order.
var GLSegments = []string{"compania", "Unidad", "CC", "ubicacion", "cuenta", "subcuenta", "equipo", "intercompania"}

// =============================================================================
// ENTRY - One input row
// =============================================================================

type Entry struct {
	Row int

	TranslationType string
	FiscalYear      int
	FiscalPeriod    int
	Unit            string
	ContractName    string
	Vendor          string
	GLAccount       string
	Currency        string
	Amount          decimal.Decimal
	CompanyCode     string
}

// Period returns the first day of the fiscal period, or false when the
// period is not a calendar month.
func (e Entry) Period() (time.Time, bool) {
	if e.FiscalPeriod < 1 || e.FiscalPeriod > 12 || e.FiscalYear < 1 {
		return time.Time{}, false
	}
	return time.Date(e.FiscalYear, time.Month(e.FiscalPeriod), 1, 0, 0, 0, 0, time.UTC), true
}

// =============================================================================
// LINE - One output journal line
// =============================================================================

type Line struct {
	Rate        decimal.Decimal // zero when the TC column is left for the user
	Name        string
	Currency    string
	Segments    [8]string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// NewLine maps an entry. rate is the configured TC for the entry currency,
// or zero.
func NewLine(e Entry, rate decimal.Decimal) Line {
	l := Line{
		Rate:        rate,
		Name:        Name(e),
		Currency:    e.Currency,
		Segments:    SplitAccount(e.GLAccount),
		Debit:       decimal.Zero,
		Credit:      decimal.Zero,
		Description: Description(e),
	}
	switch {
	case e.Amount.IsPositive():
		l.Debit = e.Amount
	case e.Amount.IsNegative():
		l.Credit = e.Amount.Abs()
	}
	return l
}

// Name is the Translation Type followed by the lowercase fiscal month,
// "Actual jan-2024". Empty when the fiscal period is not a month.
func Name(e Entry) string {
	period, ok := e.Period()
	if !ok {
		return ""
	}
	return e.TranslationType + " " + strings.ToLower(period.Format("Jan-2006"))
}

func Description(e Entry) string {
	return fmt.Sprintf("M1/%s/%d/%d/%s/%s", e.Unit, e.FiscalYear, e.FiscalPeriod, e.ContractName, e.Vendor)
}

// SplitAccount splits a GL account on '-' by position. Missing segments are blank
// and anything past the eighth is dropped.
func SplitAccount(account string) [8]string {
	var out [8]string
	if strings.TrimSpace(account) == "" {
		return out
	}
	for i, part := range strings.Split(account, "-") {
		if i >= len(out) {
			break
		}
		out[i] = part
	}
	return out
}

// =============================================================================
// PARAMS
// =============================================================================

type Params struct {
	Layout table.Layout

	// CompanyCode keeps only rows with exactly this code. The input must
	// then have a Company Code column.
	CompanyCode string

	// Rates prefill TC by contract currency.
	Rates map[string]decimal.Decimal
}

func DefaultParams() Params {
	return Params{Layout: DefaultLayout}
}

func (p Params) Validate() error {
	if err := p.Layout.Validate(); err != nil {
		return err
	}
	for ccy, r := range p.Rates {
		if !r.IsPositive() {
			return &table.ConfigError{Field: "rates", Reason: fmt.Sprintf("rate for %s must be positive, got %s", ccy, r)}
		}
	}
	return nil
}

func (p Params) rate(currency string) decimal.Decimal {
	key := strings.ToUpper(strings.TrimSpace(currency))
	for ccy, r := range p.Rates {
		if strings.ToUpper(strings.TrimSpace(ccy)) == key {
			return r
		}
	}
	return decimal.Zero
}
