package maturity_test

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/ctr-mapper/maturity"
	"github.com/warp/ctr-mapper/table"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var scheduleHeader = []string{
	"Contract ID", "Activation Group ID", "Contract Name", "Company Code",
	"Business Unit", "Activation Group Status", "Activation Date", "End Date",
	"Contract Currency", "Period End Date", "Payment", "Interest Paid",
	"ST Principal Liability Closing Balance", "LT Principal Liability Closing Balance",
	"Asset Class", "Company Currency",
}

// line is one schedule row; zero fields fall back to sensible defaults.
type line struct {
	contract, group, name, company, status string
	currency, companyCurrency, assetClass  string
	period                                 string
	payment, interest, st, lt              string
}

func (l line) cells() []string {
	def := func(v, d string) string {
		if v == "" {
			return d
		}
		return v
	}
	return []string{
		def(l.contract, "CT-1"), def(l.group, "AG-1"), def(l.name, "Warehouse"), def(l.company, "1000"),
		"BU-1", def(l.status, "Active"), "2023-01-01", "2027-12-31",
		def(l.currency, "USD"), l.period, l.payment, l.interest,
		l.st, l.lt, def(l.assetClass, "Buildings"), def(l.companyCurrency, "USD"),
	}
}

// schedule lays rows out like the export: header on row 8, data from row 9.
func schedule(lines ...line) *table.MemorySource {
	grid := make([][]string, 7)
	grid = append(grid, scheduleHeader)
	for _, l := range lines {
		grid = append(grid, l.cells())
	}
	return table.NewMemorySource(grid)
}

func dec2022() maturity.Params {
	p := maturity.DefaultParams(maturity.NewReportDate(2022, time.December))
	p.TargetCurrency = "USD"
	return p
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

var key = maturity.ContractKey{ContractID: "CT-1", ActivationGroupID: "AG-1"}
