package poliza

import (
	"github.com/warp/ctr-mapper/table"
)

const (
	fieldTranslationType = "translationType"
	fieldFiscalYear      = "fiscalYear"
	fieldFiscalPeriod    = "fiscalPeriod"
	fieldUnit            = "unit"
	fieldContractName    = "contractName"
	fieldVendor          = "vendor"
	fieldGLAccount       = "glAccount"
	fieldCurrency        = "contractCurrency"
	fieldAmount          = "amount"
	fieldCompanyCode     = "companyCode"
)

// RequiredColumns must all be present on the header row.
var RequiredColumns = []table.Column{
	{Field: fieldTranslationType, Labels: []string{"Translation Type"}},
	{Field: fieldFiscalYear, Labels: []string{"Fiscal Year"}},
	{Field: fieldFiscalPeriod, Labels: []string{"Fiscal Period"}},
	{Field: fieldUnit, Labels: []string{"Unit"}},
	{Field: fieldContractName, Labels: []string{"Contract Name"}},
	{Field: fieldVendor, Labels: []string{"Vendor"}},
	{Field: fieldGLAccount, Labels: []string{"GL Account"}},
	{Field: fieldCurrency, Labels: []string{"Contract Currency"}},
	{Field: fieldAmount, Labels: []string{"Amount in Contract Currency"}},
}

// OptionalColumns are read when present. Company Code becomes required once
// a company code filter is set.
var OptionalColumns = []table.Column{table.CompanyCodeColumn}

// ParseEntry converts a record into an Entry.
func ParseEntry(b table.Binding, rec table.Record) (Entry, error) {
	e := Entry{
		Row:             rec.Row,
		TranslationType: b.Value(rec, fieldTranslationType),
		Unit:            table.Text(b.Value(rec, fieldUnit)),
		ContractName:    b.Value(rec, fieldContractName),
		Vendor:          b.Value(rec, fieldVendor),
		GLAccount:       b.Value(rec, fieldGLAccount),
		Currency:        b.Value(rec, fieldCurrency),
		CompanyCode:     table.Text(b.Value(rec, fieldCompanyCode)),
	}
	if e.TranslationType == "" {
		return Entry{}, table.MissingValue(rec.Row, "Translation Type")
	}

	ints := []struct {
		field, label string
		dst          *int
	}{
		{fieldFiscalYear, "Fiscal Year", &e.FiscalYear},
		{fieldFiscalPeriod, "Fiscal Period", &e.FiscalPeriod},
	}
	for _, i := range ints {
		raw := b.Value(rec, i.field)
		v, err := table.ParseInt(raw)
		if err != nil {
			return Entry{}, &table.RowError{Row: rec.Row, Field: i.label, Value: raw, Err: err}
		}
		*i.dst = v
	}

	raw := b.Value(rec, fieldAmount)
	amount, err := table.ParseDecimal(raw)
	if err != nil {
		return Entry{}, &table.RowError{Row: rec.Row, Field: "Amount in Contract Currency", Value: raw, Err: err}
	}
	e.Amount = amount
	return e, nil
}
