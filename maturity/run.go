package maturity

import (
	"context"
	"fmt"

	"github.com/warp/ctr-mapper/logger"
	"github.com/warp/ctr-mapper/table"
)

// Result summarizes one completed run.
type Result struct {
	InputRows             int    `json:"input_rows"`
	MatchedRows           int    `json:"matched_rows"`
	OutputRows            int    `json:"output_rows"`
	Contracts             int    `json:"contracts"`
	AssetClasses          int    `json:"asset_classes"`
	ReportDate            string `json:"report_date"`
	FilteredByCompanyCode string `json:"filtered_by_company_code,omitempty"`
}

// Build accumulates src and assembles the report without writing it.
func Build(ctx context.Context, src table.Source, params Params) (Report, *State, error) {
	state, err := Accumulate(ctx, src, params)
	if err != nil {
		return Report{}, nil, err
	}
	return Assemble(state), state, nil
}

// Run reads the schedule from src, writes the summary and detail sheets to
// sink and returns the run summary. Nothing is written when any step fails.
func Run(ctx context.Context, src table.Source, sink table.Sink, params Params) (Result, error) {
	log := logger.FromContext(ctx).With().Str("engine", "maturity").Logger()
	ctx = logger.WithContext(ctx, log)

	report, state, err := Build(ctx, src, params)
	if err != nil {
		return Result{}, err
	}
	if err := sink.WriteSheets(report.Sheets()); err != nil {
		return Result{}, fmt.Errorf("write maturity report: %w", err)
	}

	result := Result{
		InputRows:             state.Stats.RowsRead,
		MatchedRows:           state.Stats.RowsMatched,
		OutputRows:            len(report.Detail),
		Contracts:             state.Contracts(),
		AssetClasses:          len(report.Summary),
		ReportDate:            params.ReportDate.String(),
		FilteredByCompanyCode: params.CompanyCode,
	}
	log.Info().
		Int("output_rows", result.OutputRows).
		Int("dropped_keys", result.Contracts-result.OutputRows).
		Msg("maturity report written")
	return result, nil
}
