/*
Package factory provides JSON to Go run configuration conversion.

PURPOSE:
  Converts JSON run definitions into maturity.Params and poliza.Params. The
  same document drives the CLI (-config file), the HTTP API (form fields are
  mapped onto it) and tests, so every entry point validates parameters the
  same way before any row is read.

JSON SCHEMA (maturity):
  {
    "report_year": 2022,
    "report_month": 12,
    "target_currency": "USD",
    "exchange_rate": 1.0,
    "rates": {"EUR": 1.08, "MXN": "0.0587"},
    "bucket_years": 6,
    "header_row": 8,
    "data_row": 9,
    "company_code": "1000",
    "statuses": ["Active", "Modified"]
  }

JSON SCHEMA (poliza):
  {
    "header_row": 27,
    "data_row": 28,
    "company_code": "1000",
    "rates": {"USD": 17.1}
  }

DEFAULTS:
  - report_year, report_month: required
  - bucket_years: maturity.DefaultYears
  - header_row / data_row: the export layout of each engine
  - exchange_rate: none; rates missing from "rates" convert at 1

Rates accept JSON numbers or strings; both are read as exact decimals.

USAGE:
  f := factory.NewConfigFactory()
  params, err := f.ParseMaturity(jsonString)

SEE ALSO:
  - maturity/types.go: Params
  - poliza/poliza.go: Params
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/ctr-mapper/maturity"
	"github.com/warp/ctr-mapper/poliza"
	"github.com/warp/ctr-mapper/table"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// MaturityJSON is the JSON representation of a maturity run.
// Optional integers are pointers so an explicit 0 is rejected rather than
// mistaken for "use the default".
type MaturityJSON struct {
	ReportYear     *int                       `json:"report_year"`
	ReportMonth    *int                       `json:"report_month"`
	TargetCurrency string                     `json:"target_currency,omitempty"`
	ExchangeRate   *decimal.Decimal           `json:"exchange_rate,omitempty"`
	Rates          map[string]decimal.Decimal `json:"rates,omitempty"`
	BucketYears    *int                       `json:"bucket_years,omitempty"`
	HeaderRow      *int                       `json:"header_row,omitempty"`
	DataRow        *int                       `json:"data_row,omitempty"`
	CompanyCode    string                     `json:"company_code,omitempty"`
	Statuses       []string                   `json:"statuses,omitempty"`
}

// PolizaJSON is the JSON representation of a poliza run.
type PolizaJSON struct {
	HeaderRow   *int                       `json:"header_row,omitempty"`
	DataRow     *int                       `json:"data_row,omitempty"`
	CompanyCode string                     `json:"company_code,omitempty"`
	Rates       map[string]decimal.Decimal `json:"rates,omitempty"`
}

// =============================================================================
// CONFIG FACTORY
// =============================================================================

// ConfigFactory converts JSON run definitions to engine parameters.
type ConfigFactory struct{}

func NewConfigFactory() *ConfigFactory {
	return &ConfigFactory{}
}

// ParseMaturity parses a JSON string into validated maturity parameters.
func (f *ConfigFactory) ParseMaturity(jsonStr string) (maturity.Params, error) {
	var mj MaturityJSON
	if err := decodeStrict(jsonStr, &mj); err != nil {
		return maturity.Params{}, err
	}
	return f.MaturityFromJSON(mj)
}

// MaturityFromJSON applies defaults and validates. The report year and month
// are required; there is no "current month" default.
func (f *ConfigFactory) MaturityFromJSON(mj MaturityJSON) (maturity.Params, error) {
	if mj.ReportYear == nil {
		return maturity.Params{}, &table.ConfigError{Field: "report_year", Reason: "is required"}
	}
	if mj.ReportMonth == nil {
		return maturity.Params{}, &table.ConfigError{Field: "report_month", Reason: "is required"}
	}
	params := maturity.DefaultParams(maturity.NewReportDate(*mj.ReportYear, time.Month(*mj.ReportMonth)))
	params.TargetCurrency = strings.ToUpper(strings.TrimSpace(mj.TargetCurrency))
	params.CompanyCode = strings.TrimSpace(mj.CompanyCode)
	params.Statuses = mj.Statuses

	params.Rates = maturity.NewRateTable(mj.Rates)
	if mj.ExchangeRate != nil {
		if !mj.ExchangeRate.IsPositive() {
			return maturity.Params{}, &table.ConfigError{Field: "exchange_rate", Reason: fmt.Sprintf("must be positive, got %s", mj.ExchangeRate)}
		}
		params.Rates = params.Rates.WithFallback(*mj.ExchangeRate)
	}
	if mj.BucketYears != nil {
		params.Horizon = maturity.Horizon{Years: *mj.BucketYears}
	}
	params.Layout = layout(mj.HeaderRow, mj.DataRow, maturity.DefaultLayout)

	if err := params.Validate(); err != nil {
		return maturity.Params{}, err
	}
	return params, nil
}

// ParsePoliza parses a JSON string into validated poliza parameters.
func (f *ConfigFactory) ParsePoliza(jsonStr string) (poliza.Params, error) {
	var pj PolizaJSON
	if err := decodeStrict(jsonStr, &pj); err != nil {
		return poliza.Params{}, err
	}
	return f.PolizaFromJSON(pj)
}

func (f *ConfigFactory) PolizaFromJSON(pj PolizaJSON) (poliza.Params, error) {
	params := poliza.DefaultParams()
	params.CompanyCode = strings.TrimSpace(pj.CompanyCode)
	params.Rates = pj.Rates
	params.Layout = layout(pj.HeaderRow, pj.DataRow, poliza.DefaultLayout)
	if err := params.Validate(); err != nil {
		return poliza.Params{}, err
	}
	return params, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// layout fills unset rows from def. A header row given alone implies the
// data starts on the next row. Given values are kept as is, so 0 or a
// negative row fails Layout.Validate.
func layout(header, data *int, def table.Layout) table.Layout {
	l := def
	if header != nil {
		l.HeaderRow = *header
		l.DataRow = *header + 1
	}
	if data != nil {
		l.DataRow = *data
	}
	return l
}

func decodeStrict(jsonStr string, v any) error {
	dec := json.NewDecoder(strings.NewReader(jsonStr))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &table.ConfigError{Field: "config", Reason: fmt.Sprintf("failed to parse JSON: %v", err)}
	}
	return nil
}
