package maturity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/ctr-mapper/table"
)

// =============================================================================
// INPUT COLUMNS
// =============================================================================

const (
	fieldContractID       = "contractId"
	fieldActivationGroup  = "activationGroupId"
	fieldContractName     = "contractName"
	fieldCompanyCode      = "companyCode"
	fieldBusinessUnit     = "businessUnit"
	fieldStatus           = "activationGroupStatus"
	fieldActivationDate   = "activationDate"
	fieldEndDate          = "endDate"
	fieldContractCurrency = "contractCurrency"
	fieldPeriodEndDate    = "periodEndDate"
	fieldPayment          = "payment"
	fieldInterestPaid     = "interestPaid"
	fieldSTPrincipal      = "stPrincipal"
	fieldLTPrincipal      = "ltPrincipal"

	fieldSystem              = "system"
	fieldInternalReference   = "internalReference"
	fieldExternalReference   = "externalReference"
	fieldTradingPartner      = "tradingPartnerId"
	fieldProfitCenter        = "profitCenter"
	fieldCostCenter          = "costCenter"
	fieldAssetClass          = "assetClass"
	fieldLeaseClassification = "leaseClassification"
	fieldCompanyCurrency     = "companyCurrency"
)

// RequiredColumns must all be present on the header row.
var RequiredColumns = []table.Column{
	{Field: fieldContractID, Labels: []string{"Contract ID"}},
	{Field: fieldActivationGroup, Labels: []string{"Activation Group ID"}},
	{Field: fieldContractName, Labels: []string{"Contract Name"}},
	table.CompanyCodeColumn,
	{Field: fieldBusinessUnit, Labels: []string{"Business Unit"}},
	{Field: fieldStatus, Labels: []string{"Activation Group Status"}},
	{Field: fieldActivationDate, Labels: []string{"Activation Date", "Accounting Start Date"}},
	{Field: fieldEndDate, Labels: []string{"End Date", "Likely Expiration Date"}},
	{Field: fieldContractCurrency, Labels: []string{"Contract Currency"}},
	{Field: fieldPeriodEndDate, Labels: []string{"Period End Date"}},
	{Field: fieldPayment, Labels: []string{"Payment"}},
	{Field: fieldInterestPaid, Labels: []string{"Interest Paid"}},
	{Field: fieldSTPrincipal, Labels: []string{"ST Principal Liability Closing Balance", "Principal Liability ST Closing Balance"}},
	{Field: fieldLTPrincipal, Labels: []string{"LT Principal Liability Closing Balance", "Principal Liability LT Closing Balance"}},
}

// OptionalColumns are read when present.
var OptionalColumns = []table.Column{
	{Field: fieldSystem, Labels: []string{"System", "Erp System ID"}},
	{Field: fieldInternalReference, Labels: []string{"Internal Reference Number", "Internal Contract Reference"}},
	{Field: fieldExternalReference, Labels: []string{"External Reference number", "External Contract Reference"}},
	{Field: fieldTradingPartner, Labels: []string{"Trading Partner ID", "Trading Partner"}},
	{Field: fieldProfitCenter, Labels: []string{"Profit Center", "Unit Profit Center (Main)"}},
	{Field: fieldCostCenter, Labels: []string{"Cost Center", "Unit Cost Center (Main)"}},
	{Field: fieldAssetClass, Labels: []string{"Asset Class", "Unit Internal Asset Class"}},
	{Field: fieldLeaseClassification, Labels: []string{"Lease Classification"}},
	{Field: fieldCompanyCurrency, Labels: []string{"Company Currency"}},
}

// =============================================================================
// ROW PARSING
// =============================================================================

// ParseLine converts a record into a ScheduleLine. Contract ID, activation
// group ID and period end date are mandatory; amounts default to zero when
// blank but must be numeric when present.
func ParseLine(b table.Binding, rec table.Record) (ScheduleLine, error) {
	text := func(field string) string { return table.Text(b.Value(rec, field)) }

	line := ScheduleLine{
		Row:                   rec.Row,
		System:                text(fieldSystem),
		ContractID:            text(fieldContractID),
		ActivationGroupID:     text(fieldActivationGroup),
		ContractName:          b.Value(rec, fieldContractName),
		InternalReference:     text(fieldInternalReference),
		ExternalReference:     text(fieldExternalReference),
		CompanyCode:           text(fieldCompanyCode),
		BusinessUnit:          text(fieldBusinessUnit),
		TradingPartnerID:      text(fieldTradingPartner),
		ProfitCenter:          text(fieldProfitCenter),
		CostCenter:            text(fieldCostCenter),
		AssetClass:            b.Value(rec, fieldAssetClass),
		LeaseClassification:   b.Value(rec, fieldLeaseClassification),
		ActivationGroupStatus: b.Value(rec, fieldStatus),
		ContractCurrency:      normalizeCurrency(b.Value(rec, fieldContractCurrency)),
		CompanyCurrency:       normalizeCurrency(b.Value(rec, fieldCompanyCurrency)),
	}

	if line.ContractID == "" {
		return ScheduleLine{}, table.MissingValue(rec.Row, "Contract ID")
	}
	if line.ActivationGroupID == "" {
		return ScheduleLine{}, table.MissingValue(rec.Row, "Activation Group ID")
	}

	var err error
	if line.PeriodEndDate, err = parseDate(b, rec, fieldPeriodEndDate, "Period End Date"); err != nil {
		return ScheduleLine{}, err
	}
	if line.PeriodEndDate.IsZero() {
		return ScheduleLine{}, table.MissingValue(rec.Row, "Period End Date")
	}
	if line.ActivationDate, err = parseDate(b, rec, fieldActivationDate, "Activation Date"); err != nil {
		return ScheduleLine{}, err
	}
	if line.EndDate, err = parseDate(b, rec, fieldEndDate, "End Date"); err != nil {
		return ScheduleLine{}, err
	}

	amounts := []struct {
		field, label string
		dst          *decimal.Decimal
	}{
		{fieldPayment, "Payment", &line.Payment},
		{fieldInterestPaid, "Interest Paid", &line.InterestPaid},
		{fieldSTPrincipal, "ST Principal Liability Closing Balance", &line.STPrincipal},
		{fieldLTPrincipal, "LT Principal Liability Closing Balance", &line.LTPrincipal},
	}
	for _, a := range amounts {
		raw := b.Value(rec, a.field)
		v, err := table.ParseDecimal(raw)
		if err != nil {
			return ScheduleLine{}, &table.RowError{Row: rec.Row, Field: a.label, Value: raw, Err: err}
		}
		*a.dst = v
	}

	return line, nil
}

func parseDate(b table.Binding, rec table.Record, field, label string) (time.Time, error) {
	raw := b.Value(rec, field)
	t, err := table.ParseDate(raw)
	if err != nil {
		return time.Time{}, &table.RowError{Row: rec.Row, Field: label, Value: raw, Err: err}
	}
	return t, nil
}
