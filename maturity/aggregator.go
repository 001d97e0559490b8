/*
aggregator.go - Single-pass accumulation of schedule lines

PURPOSE:
  Folds schedule lines into per-key accumulators. Rows are not retained:
  memory is O(distinct keys), not O(rows).

ROLLUPS:
  - Summary: by asset class
  - Detail:  by ContractKey (contract + activation group)
  - Total:   one grand-total accumulator for the summary's total row
  Each rollup keeps Figures in contract currency and in target currency.
  The target figures are converted row by row at accumulation time, so rows
  in different contract currencies convert at their own rate. Every row of a
  run must resolve to the same target currency: the summary and total add
  target figures across contracts.
  A blank asset class is accumulated under UnassignedAssetClass.

PER-ROW RULES (three independent checks on the same row):
  1. Payment:   bucket by period end; skipped rows add nothing
  2. Balances:  period end in the report month exactly -> add ST and LT
                (summed, a key may have several rows in that month)
  3. Interest:  period end after the report month -> add |interest paid|

  A row in the report month contributes balances but no payment or interest.
  A future row contributes payment and interest but no balances.

EMISSION RULE:
  A key with no future rows is still accumulated but dropped at assembly
  (see report.go). Accumulation never decides what gets printed.

SEE ALSO:
  - bucket.go: Horizon.Classify
  - report.go: Assemble
*/
package maturity

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/warp/ctr-mapper/logger"
	"github.com/warp/ctr-mapper/table"
)

// =============================================================================
// STATE
// =============================================================================

// Group is one rollup entry.
type Group struct {
	Contract Figures
	Target   Figures

	// FutureRows counts rows after the report month; zero means the
	// key has nothing to disclose.
	FutureRows  int
	BalanceRows int
}

func newGroup(h Horizon) *Group {
	return &Group{Contract: NewFigures(h), Target: NewFigures(h)}
}

type detailGroup struct {
	Group
	Info ContractInfo
}

// Stats counts rows through the run.
type Stats struct {
	RowsRead     int // non-blank data rows
	RowsMatched  int // rows kept by the filters
	RowsFuture   int // rows bucketed into a payment bucket
	RowsBalances int // rows captured at the report month
}

// State is everything one run has accumulated. It is owned by a single
// Aggregator and never shared between runs.
type State struct {
	Params Params
	Stats  Stats

	summary map[string]*Group
	detail  map[ContractKey]*detailGroup
	total   *Group

	// target is the resolved target currency, fixed by the first line.
	target    string
	hasTarget bool
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator accumulates schedule lines for one run.
type Aggregator struct {
	state *State
}

// NewAggregator validates params and returns an empty aggregator.
func NewAggregator(params Params) (*Aggregator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{state: &State{
		Params:  params,
		summary: make(map[string]*Group),
		detail:  make(map[ContractKey]*detailGroup),
		total:   newGroup(params.Horizon),
	}}, nil
}

// Add folds one already-filtered line into every rollup.
func (a *Aggregator) Add(l ScheduleLine) error {
	if l.ContractID == "" {
		return table.MissingValue(l.Row, "Contract ID")
	}
	if l.ActivationGroupID == "" {
		return table.MissingValue(l.Row, "Activation Group ID")
	}
	if l.PeriodEndDate.IsZero() {
		return table.MissingValue(l.Row, "Period End Date")
	}

	s := a.state
	p := s.Params
	target := p.targetFor(l)
	if !s.hasTarget {
		s.target, s.hasTarget = target, true
	} else if target != s.target {
		return &table.ConfigError{
			Field:  "target_currency",
			Reason: fmt.Sprintf("row %d converts to %q but earlier rows convert to %q; set one target currency", l.Row, target, s.target),
		}
	}
	rate := p.Rates.Rate(l.ContractCurrency, target)

	detail, ok := s.detail[l.Key()]
	if !ok {
		detail = &detailGroup{Group: *newGroup(p.Horizon), Info: newContractInfo(l, target, rate)}
		s.detail[l.Key()] = detail
	}
	class := l.AssetClass
	if class == "" {
		class = UnassignedAssetClass
	}
	summary, ok := s.summary[class]
	if !ok {
		summary = newGroup(p.Horizon)
		s.summary[class] = summary
	}
	groups := []*Group{&detail.Group, summary, s.total}

	bucket := p.Horizon.Classify(l.PeriodEndDate, p.ReportDate)
	if bucket.Kind != BucketSkip {
		payment := l.Payment
		converted := payment.Mul(rate)
		interest := l.InterestPaid.Abs()
		for _, g := range groups {
			g.Contract.Payments.Add(bucket, payment)
			g.Target.Payments.Add(bucket, converted)
			g.Contract.Interest = g.Contract.Interest.Add(interest)
			g.Target.Interest = g.Target.Interest.Add(interest.Mul(rate))
			g.FutureRows++
		}
		s.Stats.RowsFuture++
	}

	if p.ReportDate.Contains(l.PeriodEndDate) {
		for _, g := range groups {
			addBalances(&g.Contract, l.STPrincipal, l.LTPrincipal)
			addBalances(&g.Target, l.STPrincipal.Mul(rate), l.LTPrincipal.Mul(rate))
			g.BalanceRows++
		}
		s.Stats.RowsBalances++
	}

	s.Stats.RowsMatched++
	return nil
}

func addBalances(f *Figures, st, lt decimal.Decimal) {
	f.STPrincipal = f.STPrincipal.Add(st)
	f.LTPrincipal = f.LTPrincipal.Add(lt)
}

// State returns the accumulated state. The aggregator must not be used after.
func (a *Aggregator) State() *State {
	return a.state
}

// =============================================================================
// ACCUMULATE - Source -> State
// =============================================================================

// Accumulate reads every data row of src in one pass. It fails on the first
// schema, row or filter error; there is no partial result.
func Accumulate(ctx context.Context, src table.Source, params Params) (*State, error) {
	agg, err := NewAggregator(params)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)

	cur, err := src.Open(params.Layout)
	if err != nil {
		return nil, fmt.Errorf("open schedule: %w", err)
	}
	defer cur.Close()

	binding, err := cur.Header().Bind(RequiredColumns, OptionalColumns)
	if err != nil {
		return nil, err
	}

	stats := &agg.state.Stats
	for cur.Next() {
		rec := cur.Record()
		if binding.Blank(rec) {
			continue
		}
		stats.RowsRead++
		if stats.RowsRead%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			log.Debug().Int("rows", stats.RowsRead).Msg("reading schedule")
		}

		line, err := ParseLine(binding, rec)
		if err != nil {
			return nil, err
		}
		if !params.Matches(line) {
			continue
		}
		if err := agg.Add(line); err != nil {
			return nil, err
		}
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("read schedule: %w", err)
	}

	if stats.RowsRead == 0 {
		return nil, table.ErrNoData
	}
	if stats.RowsMatched == 0 {
		return nil, &table.FilterError{CompanyCode: params.CompanyCode, Statuses: params.Statuses}
	}

	logStats(log, agg.state)
	return agg.state, nil
}

func logStats(log zerolog.Logger, s *State) {
	if s.Params.HasFilters() {
		log.Debug().
			Str("company_code", s.Params.CompanyCode).
			Strs("statuses", s.Params.Statuses).
			Int("rows_filtered", s.Stats.RowsRead-s.Stats.RowsMatched).
			Msg("filters applied")
	}
	if gap := s.total.Target.PrincipalGap(); !gap.IsZero() {
		log.Warn().
			Str("gap", gap.String()).
			Str("currency", s.target).
			Msg("principal from payments does not match closing balances")
	}
	log.Info().
		Str("report_date", s.Params.ReportDate.String()).
		Str("target_currency", s.target).
		Int("rows_read", s.Stats.RowsRead).
		Int("rows_matched", s.Stats.RowsMatched).
		Int("rows_future", s.Stats.RowsFuture).
		Int("rows_balances", s.Stats.RowsBalances).
		Int("contracts", len(s.detail)).
		Int("asset_classes", len(s.summary)).
		Msg("schedule accumulated")
}

// =============================================================================
// STATE ACCESSORS
// =============================================================================

// Detail returns the accumulated group and contract info for a key.
func (s *State) Detail(key ContractKey) (*Group, ContractInfo, bool) {
	d, ok := s.detail[key]
	if !ok {
		return nil, ContractInfo{}, false
	}
	return &d.Group, d.Info, true
}

// Summary returns the accumulated group for an asset class.
func (s *State) Summary(assetClass string) (*Group, bool) {
	g, ok := s.summary[assetClass]
	return g, ok
}

// TargetCurrency is the single target currency every row converted into.
func (s *State) TargetCurrency() string { return s.target }

// Total returns the grand-total group.
func (s *State) Total() *Group { return s.total }

// Contracts is the number of distinct detail keys seen, emitted or not.
func (s *State) Contracts() int { return len(s.detail) }
