package maturity

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REPORT - Assembled views
// =============================================================================

// UnassignedAssetClass is the summary key for lines with a blank asset class.
const UnassignedAssetClass = "Unassigned"

// TotalLabel labels the grand-total summary row.
const TotalLabel = "Total"

// Block is one currency's column block of a report row.
type Block struct {
	Currency string

	Buckets        []decimal.Decimal // Year 1..N, Thereafter
	Total          decimal.Decimal
	FinanceCharges decimal.Decimal // negative
	Principal      decimal.Decimal // method 1: Total + FinanceCharges
	STPrincipal    decimal.Decimal
	LTPrincipal    decimal.Decimal
	Balances       decimal.Decimal // method 2: ST + LT
}

func newBlock(currency string, f Figures) Block {
	return Block{
		Currency:       currency,
		Buckets:        f.Payments.Values(),
		Total:          f.Payments.Total(),
		FinanceCharges: f.FinanceCharges(),
		Principal:      f.PrincipalFromPayments(),
		STPrincipal:    f.STPrincipal,
		LTPrincipal:    f.LTPrincipal,
		Balances:       f.PrincipalFromBalances(),
	}
}

// SummaryRow is one asset class (or the total) in target currency.
type SummaryRow struct {
	AssetClass string
	Target     Block
}

// DetailRow is one contract activation group with both currency blocks.
type DetailRow struct {
	Info     ContractInfo
	Contract Block
	Target   Block
}

// Report is the assembled output of one run.
type Report struct {
	Params  Params
	Buckets []Bucket

	// Summary is sorted by asset class; Total is always present and is
	// kept out of Summary.
	Summary []SummaryRow
	Total   SummaryRow
	Detail  []DetailRow
}

// =============================================================================
// ASSEMBLE - State -> Report
// =============================================================================

// Assemble builds the summary and detail views. Keys with no future rows
// are dropped here, never during accumulation.
func Assemble(s *State) Report {
	p := s.Params
	r := Report{
		Params:  p,
		Buckets: p.Horizon.Buckets(),
		Total:   SummaryRow{AssetClass: TotalLabel, Target: newBlock(s.target, s.total.Target)},
	}

	classes := make([]string, 0, len(s.summary))
	for class, g := range s.summary {
		if g.FutureRows > 0 {
			classes = append(classes, class)
		}
	}
	sort.Strings(classes)
	for _, class := range classes {
		r.Summary = append(r.Summary, SummaryRow{
			AssetClass: class,
			Target:     newBlock(s.target, s.summary[class].Target),
		})
	}

	keys := make([]ContractKey, 0, len(s.detail))
	for key, d := range s.detail {
		if d.FutureRows > 0 {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	for _, key := range keys {
		d := s.detail[key]
		r.Detail = append(r.Detail, DetailRow{
			Info:     d.Info,
			Contract: newBlock(d.Info.ContractCurrency, d.Contract),
			Target:   newBlock(d.Info.TargetCurrency, d.Target),
		})
	}
	return r
}

// Find returns the detail row for a key.
func (r Report) Find(key ContractKey) (DetailRow, bool) {
	i := sort.Search(len(r.Detail), func(i int) bool { return !r.Detail[i].Info.Key.Less(key) })
	if i < len(r.Detail) && r.Detail[i].Info.Key == key {
		return r.Detail[i], true
	}
	return DetailRow{}, false
}

// Class returns the summary row for an asset class label.
func (r Report) Class(label string) (SummaryRow, bool) {
	for _, row := range r.Summary {
		if row.AssetClass == label {
			return row, true
		}
	}
	return SummaryRow{}, false
}
