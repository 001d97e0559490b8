/*
Package maturity builds lease maturity (disclosure) reports.

PURPOSE:
  Takes a flat lease schedule export (one row per contract, activation group
  and period) and answers: how much will be paid in each of the next N years,
  how much of that is interest, and what principal is outstanding at the
  report date. This is the ASC 842 / IFRS 16 maturity analysis.

KEY CONCEPTS IN THIS FILE (types.go):
  - ScheduleLine: one parsed input row
  - ContractKey: (contract ID, activation group ID) detail key
  - ContractInfo: descriptive snapshot of a contract, first row wins
  - Params: run configuration

PIPELINE:
  table.Source -> Accumulate (bucket.go, aggregator.go) -> Assemble (report.go)
  -> Report.Sheets (sheets.go) -> table.Sink

  Run (run.go) wires the whole pipeline for one report.

DESIGN PRINCIPLES:
  1. Precision: all money is decimal.Decimal, never float64
  2. Single pass: rows are folded into per-key accumulators and dropped
  3. All-or-nothing: any bad row fails the run (see table/errors.go)
  4. No shared state: every run owns its own State

USAGE:
  params := maturity.DefaultParams(maturity.NewReportDate(2022, time.December))
  params.TargetCurrency = "USD"
  result, err := maturity.Run(ctx, source, sink, params)

SEE ALSO:
  - bucket.go: year bucketing
  - aggregator.go: accumulation rules
  - term.go: lease term and principal methods
*/
package maturity

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/ctr-mapper/table"
)

// =============================================================================
// SCHEDULE LINE - One input row
// =============================================================================

// ScheduleLine is one period of one activation group's lease schedule.
// InterestPaid is stored negative when it represents an outflow.
type ScheduleLine struct {
	Row int

	System                string
	ContractID            string
	ActivationGroupID     string
	ContractName          string
	InternalReference     string
	ExternalReference     string
	CompanyCode           string
	BusinessUnit          string
	TradingPartnerID      string
	ProfitCenter          string
	CostCenter            string
	AssetClass            string
	LeaseClassification   string
	ActivationGroupStatus string
	ActivationDate        time.Time
	EndDate               time.Time
	ContractCurrency      string
	CompanyCurrency       string

	PeriodEndDate time.Time
	Payment       decimal.Decimal
	InterestPaid  decimal.Decimal
	STPrincipal   decimal.Decimal
	LTPrincipal   decimal.Decimal
}

func (l ScheduleLine) Key() ContractKey {
	return ContractKey{ContractID: l.ContractID, ActivationGroupID: l.ActivationGroupID}
}

// =============================================================================
// CONTRACT KEY
// =============================================================================

// ContractKey identifies one activation group of one contract. It is a
// struct, not a concatenated string, so "AB"+"C12" and "A"+"BC12" stay distinct.
type ContractKey struct {
	ContractID        string
	ActivationGroupID string
}

func (k ContractKey) String() string {
	return k.ContractID + "/" + k.ActivationGroupID
}

// Less orders keys by contract, then activation group.
func (k ContractKey) Less(other ContractKey) bool {
	if k.ContractID != other.ContractID {
		return k.ContractID < other.ContractID
	}
	return k.ActivationGroupID < other.ActivationGroupID
}

// =============================================================================
// CONTRACT INFO - Descriptive snapshot, first occurrence wins
// =============================================================================

// DefaultLeaseClassification is used when the export has no classification column.
const DefaultLeaseClassification = "FINANCE"

type ContractInfo struct {
	Key                   ContractKey
	System                string
	ContractName          string
	InternalReference     string
	ExternalReference     string
	CompanyCode           string
	BusinessUnit          string
	TradingPartnerID      string
	ProfitCenter          string
	CostCenter            string
	AssetClass            string
	LeaseClassification   string
	ActivationGroupStatus string
	StartDate             time.Time
	EndDate               time.Time
	TermMonths            int
	TermDays              int
	ContractCurrency      string
	TargetCurrency        string
	ExchangeRate          decimal.Decimal
}

func newContractInfo(l ScheduleLine, target string, rate decimal.Decimal) ContractInfo {
	months, days := LeaseTerm(l.ActivationDate, l.EndDate)
	classification := l.LeaseClassification
	if classification == "" {
		classification = DefaultLeaseClassification
	}
	return ContractInfo{
		Key:                   l.Key(),
		System:                l.System,
		ContractName:          l.ContractName,
		InternalReference:     l.InternalReference,
		ExternalReference:     l.ExternalReference,
		CompanyCode:           l.CompanyCode,
		BusinessUnit:          l.BusinessUnit,
		TradingPartnerID:      l.TradingPartnerID,
		ProfitCenter:          l.ProfitCenter,
		CostCenter:            l.CostCenter,
		AssetClass:            l.AssetClass,
		LeaseClassification:   classification,
		ActivationGroupStatus: l.ActivationGroupStatus,
		StartDate:             l.ActivationDate,
		EndDate:               l.EndDate,
		TermMonths:            months,
		TermDays:              days,
		ContractCurrency:      l.ContractCurrency,
		TargetCurrency:        target,
		ExchangeRate:          rate,
	}
}

// =============================================================================
// PARAMS - Run configuration
// =============================================================================

// DefaultLayout matches the consolidated financial schedules export:
// header on row 8, data from row 9.
var DefaultLayout = table.Layout{HeaderRow: 8, DataRow: 9}

// Params configures one report run. Immutable once the run starts.
type Params struct {
	ReportDate ReportDate

	// TargetCurrency is the reporting currency. Empty means each row's
	// Company Currency column is used.
	TargetCurrency string
	Rates          RateTable

	Horizon Horizon
	Layout  table.Layout

	// Optional filters: exact company code, activation group status membership.
	CompanyCode string
	Statuses    []string
}

// DefaultParams returns parameters with the default bucket scheme and layout.
func DefaultParams(ref ReportDate) Params {
	return Params{
		ReportDate: ref,
		Rates:      NewRateTable(nil),
		Horizon:    DefaultHorizon(),
		Layout:     DefaultLayout,
	}
}

// Validate checks every parameter before any row is read.
func (p Params) Validate() error {
	if err := p.ReportDate.Validate(); err != nil {
		return err
	}
	if err := p.Horizon.Validate(); err != nil {
		return err
	}
	if err := p.Layout.Validate(); err != nil {
		return err
	}
	if err := p.Rates.Validate(); err != nil {
		return err
	}
	for _, s := range p.Statuses {
		if strings.TrimSpace(s) == "" {
			return &table.ConfigError{Field: "statuses", Reason: "must not contain blank values"}
		}
	}
	return nil
}

// HasFilters reports whether any row filter is active.
func (p Params) HasFilters() bool {
	return p.CompanyCode != "" || len(p.Statuses) > 0
}

// Matches applies the company-code (exact) and status (set membership,
// case-insensitive) filters.
func (p Params) Matches(l ScheduleLine) bool {
	if p.CompanyCode != "" && l.CompanyCode != p.CompanyCode {
		return false
	}
	if len(p.Statuses) == 0 {
		return true
	}
	for _, s := range p.Statuses {
		if strings.EqualFold(strings.TrimSpace(s), l.ActivationGroupStatus) {
			return true
		}
	}
	return false
}

// targetFor picks the reporting currency of a row.
func (p Params) targetFor(l ScheduleLine) string {
	if p.TargetCurrency != "" {
		return p.TargetCurrency
	}
	return l.CompanyCurrency
}

func (p Params) String() string {
	return fmt.Sprintf("report=%s years=%d target=%q company=%q statuses=%v",
		p.ReportDate, p.Horizon.Years, p.TargetCurrency, p.CompanyCode, p.Statuses)
}
