package maturity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/ctr-mapper/table"
)

// =============================================================================
// SHEETS - Report -> output sheets
// =============================================================================

const (
	SummarySheetName = "Summary"
	DetailSheetName  = "Maturity Analysis"
)

// descriptive detail columns, in output order
var detailInfoColumns = []table.ColumnSpec{
	{Title: "Erp System ID", Width: 14},
	{Title: "Contract ID", Width: 14},
	{Title: "Internal Contract Reference", Width: 18},
	{Title: "External Contract Reference", Width: 18},
	{Title: "Contract Name", Width: 32},
	{Title: "Company Code", Width: 12},
	{Title: "Business Unit", Width: 16},
	{Title: "Trading Partner ID", Width: 14},
	{Title: "Profit Center", Width: 14},
	{Title: "Cost Center", Width: 14},
	{Title: "Activation Group ID", Width: 14},
	{Title: "Lease Classification", Width: 14},
	{Title: "Activation Group Status", Width: 14},
	{Title: "Accounting Start Date", Width: 14},
	{Title: "Likely Expiration Date", Width: 14},
	{Title: "Accounting Term In Months", Width: 12},
	{Title: "Accounting Term In Days", Width: 12},
	{Title: "Contract Currency", Width: 10},
	{Title: "Target Currency", Width: 10},
	{Title: "Exchange Rate", Width: 12},
	{Title: "Asset Class", Width: 20},
}

// blockColumns titles one currency block; suffix tells the blocks apart.
func blockColumns(buckets []Bucket, suffix string) []table.ColumnSpec {
	titles := make([]string, 0, len(buckets)+7)
	for _, b := range buckets {
		titles = append(titles, b.Title())
	}
	titles = append(titles,
		"Total",
		"Less: Finance Charges",
		"Total Principal Liability",
		"ST Principal Closing Balance",
		"LT Principal Closing Balance",
		"Total Principal Liability (ST+LT)",
	)
	cols := make([]table.ColumnSpec, len(titles))
	for i, t := range titles {
		if suffix != "" {
			t += " (" + suffix + ")"
		}
		cols[i] = table.ColumnSpec{Title: t, Width: 16}
	}
	return cols
}

func blockCells(b Block, style table.Style) []table.Cell {
	values := append(append([]decimal.Decimal(nil), b.Buckets...),
		b.Total, b.FinanceCharges, b.Principal, b.STPrincipal, b.LTPrincipal, b.Balances)
	cells := make([]table.Cell, len(values))
	for i, v := range values {
		cells[i] = table.Cell{Value: v, Style: style}
	}
	return cells
}

// Sheets renders the report: the summary first, then the detail.
func (r Report) Sheets() []table.Sheet {
	return []table.Sheet{r.SummarySheet(), r.DetailSheet()}
}

// SummarySheet has one row per asset class and a final Total row, target
// currency only.
func (r Report) SummarySheet() table.Sheet {
	sheet := table.Sheet{
		Name:    SummarySheetName,
		Columns: append([]table.ColumnSpec{{Title: "Asset Class", Width: 24}}, blockColumns(r.Buckets, "")...),
	}
	for _, row := range r.Summary {
		cells := []table.Cell{{Value: row.AssetClass}}
		sheet.Rows = append(sheet.Rows, append(cells, blockCells(row.Target, table.StyleMoney)...))
	}
	total := []table.Cell{{Value: r.Total.AssetClass, Style: table.StyleTotal}}
	sheet.Rows = append(sheet.Rows, append(total, blockCells(r.Total.Target, table.StyleTotal)...))
	return sheet
}

// DetailSheet has one row per contract activation group with the contract
// and target currency blocks side by side, then a SUM row over the target block.
func (r Report) DetailSheet() table.Sheet {
	contractCols := blockColumns(r.Buckets, "Contract Currency")
	targetCols := blockColumns(r.Buckets, "Target Currency")

	columns := append([]table.ColumnSpec(nil), detailInfoColumns...)
	columns = append(columns, contractCols...)
	columns = append(columns, targetCols...)
	sheet := table.Sheet{Name: DetailSheetName, Columns: columns}

	for _, row := range r.Detail {
		sheet.Rows = append(sheet.Rows, detailCells(row))
	}
	if len(r.Detail) == 0 {
		return sheet
	}

	// header is row 1, data rows 2..last
	last := len(r.Detail) + 1
	firstTarget := len(detailInfoColumns) + len(contractCols) + 1
	totals := make([]table.Cell, len(columns))
	for i := range totals {
		totals[i] = table.Cell{Style: table.StyleTotal}
	}
	totals[0].Value = TotalLabel
	for c := firstTarget; c <= len(columns); c++ {
		letter := table.ColumnLetter(c)
		totals[c-1].Formula = fmt.Sprintf("SUM(%s2:%s%d)", letter, letter, last)
	}
	sheet.Rows = append(sheet.Rows, totals)
	return sheet
}

func detailCells(row DetailRow) []table.Cell {
	info := row.Info
	cells := []table.Cell{
		{Value: info.System},
		{Value: info.Key.ContractID},
		{Value: info.InternalReference},
		{Value: info.ExternalReference},
		{Value: info.ContractName},
		{Value: info.CompanyCode},
		{Value: info.BusinessUnit},
		{Value: info.TradingPartnerID},
		{Value: info.ProfitCenter},
		{Value: info.CostCenter},
		{Value: info.Key.ActivationGroupID},
		{Value: info.LeaseClassification},
		{Value: info.ActivationGroupStatus},
		dateCell(info.StartDate),
		dateCell(info.EndDate),
		{Value: info.TermMonths, Style: table.StyleInteger},
		{Value: info.TermDays, Style: table.StyleInteger},
		{Value: info.ContractCurrency},
		{Value: info.TargetCurrency},
		{Value: info.ExchangeRate, Style: table.StyleRate},
		{Value: info.AssetClass},
	}
	cells = append(cells, blockCells(row.Contract, table.StyleMoney)...)
	return append(cells, blockCells(row.Target, table.StyleMoney)...)
}

func dateCell(t time.Time) table.Cell {
	if t.IsZero() {
		return table.Cell{}
	}
	return table.Cell{Value: t, Style: table.StyleDate}
}
