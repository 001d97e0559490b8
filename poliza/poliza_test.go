package poliza_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/ctr-mapper/poliza"
	"github.com/warp/ctr-mapper/table"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var ledgerHeader = []string{
	"Translation Type", "Fiscal Year", "Fiscal Period", "Unit", "Contract Name",
	"Vendor", "GL Account", "Contract Currency", "Amount in Contract Currency", "Company Code",
}

// ledger places the header on row 1 and data from row 2.
func ledger(rows ...[]string) (*table.MemorySource, poliza.Params) {
	grid := append([][]string{ledgerHeader}, rows...)
	params := poliza.DefaultParams()
	params.Layout = table.Layout{HeaderRow: 1, DataRow: 2}
	return table.NewMemorySource(grid), params
}

func row(kind, year, period, amount, company string) []string {
	return []string{kind, year, period, "U-100", "Warehouse", "ACME", "100-200-300-400-500-600-700-800", "MXN", amount, company}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// =============================================================================
// LINE MAPPING
// =============================================================================

func TestNewLine(t *testing.T) {
	e := poliza.Entry{
		TranslationType: "Actual",
		FiscalYear:      2024,
		FiscalPeriod:    1,
		Unit:            "U-100",
		ContractName:    "Warehouse",
		Vendor:          "ACME",
		GLAccount:       "100-200-300",
		Currency:        "MXN",
		Amount:          d("-250.75"),
	}

	l := poliza.NewLine(e, decimal.Zero)

	assert.Equal(t, "Actual jan-2024", l.Name)
	assert.Equal(t, "MXN", l.Currency)
	assert.Equal(t, [8]string{"100", "200", "300"}, l.Segments)
	assert.True(t, l.Debit.IsZero())
	assert.True(t, l.Credit.Equal(d("250.75")))
	assert.Equal(t, "M1/U-100/2024/1/Warehouse/ACME", l.Description)
}

func TestNewLine_DebitAndZero(t *testing.T) {
	debit := poliza.NewLine(poliza.Entry{Amount: d("10")}, decimal.Zero)
	assert.True(t, debit.Debit.Equal(d("10")))
	assert.True(t, debit.Credit.IsZero())

	zero := poliza.NewLine(poliza.Entry{Amount: decimal.Zero}, decimal.Zero)
	assert.True(t, zero.Debit.IsZero())
	assert.True(t, zero.Credit.IsZero())
}

func TestName_InvalidPeriod(t *testing.T) {
	assert.Equal(t, "", poliza.Name(poliza.Entry{TranslationType: "Actual", FiscalYear: 2024, FiscalPeriod: 13}))
	assert.Equal(t, "Plan dec-2023", poliza.Name(poliza.Entry{TranslationType: "Plan", FiscalYear: 2023, FiscalPeriod: 12}))
}

func TestSplitAccount(t *testing.T) {
	assert.Equal(t, [8]string{}, poliza.SplitAccount(""))
	assert.Equal(t, [8]string{"1", "2", "3", "4", "5", "6", "7", "8"}, poliza.SplitAccount("1-2-3-4-5-6-7-8-9"))
	assert.Equal(t, [8]string{"1", "", "3"}, poliza.SplitAccount("1--3"))
}

func TestConvertedFormula(t *testing.T) {
	assert.Equal(t, "IF(OR(ISBLANK(A2),ISBLANK(L2)),0,A2*L2)", poliza.ConvertedFormula(2, 12))
	assert.Equal(t, "IF(OR(ISBLANK(A9),ISBLANK(M9)),0,A9*M9)", poliza.ConvertedFormula(9, 13))
}

func TestSanitizeSheetName(t *testing.T) {
	assert.Equal(t, "Actual_Plan", poliza.SanitizeSheetName("Actual/Plan"))
	assert.Equal(t, "Sheet", poliza.SanitizeSheetName("  "))
	assert.Equal(t, "quoted", poliza.SanitizeSheetName("'quoted'"))
	assert.Len(t, poliza.SanitizeSheetName(strings.Repeat("x", 40)), 31)
}

// =============================================================================
// RUN
// =============================================================================

func TestRun_OneSheetPerTranslationType(t *testing.T) {
	// GIVEN: Rows of two translation types, interleaved
	// WHEN: Running the mapper
	// THEN: One sheet per type in first-seen order, each with a totals row

	src, params := ledger(
		row("Actual", "2024", "1", "100", "1000"),
		row("Reclass", "2024", "1", "-40", "1000"),
		row("Actual", "2024.0", "2", "60", "1000"),
	)
	sink := table.NewMemorySink()

	result, err := poliza.Run(context.Background(), src, sink, params)
	require.NoError(t, err)

	assert.Equal(t, 3, result.InputRows)
	assert.Equal(t, 3, result.OutputRows)
	assert.Equal(t, []string{"Actual", "Reclass"}, result.Sheets)

	actual, ok := sink.Sheet("Actual")
	require.True(t, ok)
	require.Len(t, actual.Columns, 16)
	assert.Equal(t, "TC", actual.Columns[0].Title)
	assert.Equal(t, "descripcion", actual.Columns[15].Title)

	// two lines + totals
	require.Len(t, actual.Rows, 3)
	assert.Equal(t, "Actual feb-2024", actual.Rows[1][1].Value)
	assert.Equal(t, "IF(OR(ISBLANK(A3),ISBLANK(L3)),0,A3*L3)", actual.Rows[1][13].Formula)
	assert.Nil(t, actual.Rows[0][0].Value, "TC is left blank without a configured rate")

	totals := actual.Rows[2]
	assert.Equal(t, "SUM(L2:L3)", totals[11].Formula)
	assert.Equal(t, "SUM(O2:O3)", totals[14].Formula)
	assert.Equal(t, table.StyleTotal, totals[12].Style)

	reclass, _ := sink.Sheet("Reclass")
	require.Len(t, reclass.Rows, 2)
	assert.True(t, reclass.Rows[0][12].Value.(decimal.Decimal).Equal(d("40")))
}

func TestRun_PrefillsConfiguredRate(t *testing.T) {
	src, params := ledger(row("Actual", "2024", "1", "100", "1000"))
	params.Rates = map[string]decimal.Decimal{"mxn": d("0.058")}
	sink := table.NewMemorySink()

	_, err := poliza.Run(context.Background(), src, sink, params)
	require.NoError(t, err)

	sheet, _ := sink.Sheet("Actual")
	assert.True(t, sheet.Rows[0][0].Value.(decimal.Decimal).Equal(d("0.058")))
}

func TestRun_CompanyCodeFilter(t *testing.T) {
	src, params := ledger(
		row("Actual", "2024", "1", "100", "1000"),
		row("Actual", "2024", "1", "200", "2000"),
		row("Plan", "2024", "1", "300", "2000"),
	)
	params.CompanyCode = "1000"

	result, err := poliza.Run(context.Background(), src, table.NewMemorySink(), params)
	require.NoError(t, err)
	assert.Equal(t, 3, result.InputRows)
	assert.Equal(t, 1, result.OutputRows)
	assert.Equal(t, []string{"Actual"}, result.Sheets)
	assert.Equal(t, "1000", result.FilteredByCompanyCode)

	params.CompanyCode = "3000"
	_, err = poliza.Run(context.Background(), src, table.NewMemorySink(), params)
	assert.ErrorIs(t, err, table.ErrFilterEmpty)
}

func TestRun_FilterNeedsCompanyCodeColumn(t *testing.T) {
	grid := [][]string{ledgerHeader[:9], row("Actual", "2024", "1", "100", "")[:9]}
	params := poliza.DefaultParams()
	params.Layout = table.Layout{HeaderRow: 1, DataRow: 2}
	params.CompanyCode = "1000"

	_, err := poliza.Run(context.Background(), table.NewMemorySource(grid), table.NewMemorySink(), params)

	var se *table.SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, []string{"Company Code"}, se.Missing)
}

func TestRun_Errors(t *testing.T) {
	t.Run("missing columns", func(t *testing.T) {
		src := table.NewMemorySource([][]string{{"Translation Type"}})
		params := poliza.DefaultParams()
		params.Layout = table.Layout{HeaderRow: 1, DataRow: 2}
		_, err := poliza.Run(context.Background(), src, table.NewMemorySink(), params)
		assert.ErrorIs(t, err, table.ErrMissingColumns)
	})

	t.Run("non-numeric amount", func(t *testing.T) {
		src, params := ledger(row("Actual", "2024", "1", "n/a", "1000"))
		_, err := poliza.Run(context.Background(), src, table.NewMemorySink(), params)

		var re *table.RowError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, 2, re.Row)
		assert.Equal(t, "Amount in Contract Currency", re.Field)
	})

	t.Run("fractional fiscal period", func(t *testing.T) {
		src, params := ledger(row("Actual", "2024", "1.5", "1", "1000"))
		_, err := poliza.Run(context.Background(), src, table.NewMemorySink(), params)
		assert.ErrorIs(t, err, table.ErrInvalidRow)
	})

	t.Run("no data", func(t *testing.T) {
		src, params := ledger()
		_, err := poliza.Run(context.Background(), src, table.NewMemorySink(), params)
		assert.ErrorIs(t, err, table.ErrNoData)
	})

	t.Run("bad rate", func(t *testing.T) {
		src, params := ledger(row("Actual", "2024", "1", "1", "1000"))
		params.Rates = map[string]decimal.Decimal{"MXN": decimal.Zero}
		_, err := poliza.Run(context.Background(), src, table.NewMemorySink(), params)
		assert.ErrorIs(t, err, table.ErrInvalidConfig)
	})
}

func TestMapper_DuplicateSheetNames(t *testing.T) {
	// "A/B" and "A:B" sanitize to the same name
	src, params := ledger(
		row("A/B", "2024", "1", "1", "1000"),
		row("A:B", "2024", "1", "1", "1000"),
	)

	m, _, err := poliza.Map(context.Background(), src, params)
	require.NoError(t, err)

	sheets := m.Sheets()
	require.Len(t, sheets, 2)
	assert.Equal(t, "A_B", sheets[0].Name)
	assert.Equal(t, "A_B (2)", sheets[1].Name)
}
