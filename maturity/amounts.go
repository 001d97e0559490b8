package maturity

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNTS - Payment sums per bucket
// =============================================================================

// Amounts accumulates payments into Year 1..N and Thereafter.
// It keeps a running total alongside the per-bucket sums so the two can be
// checked against each other: Total() must always equal Sum().
type Amounts struct {
	slots []decimal.Decimal
	total decimal.Decimal
}

func NewAmounts(h Horizon) Amounts {
	slots := make([]decimal.Decimal, h.Years+1)
	for i := range slots {
		slots[i] = decimal.Zero
	}
	return Amounts{slots: slots, total: decimal.Zero}
}

func (a Amounts) horizon() Horizon { return Horizon{Years: len(a.slots) - 1} }

// Add puts v into bucket b. Skip and out-of-range buckets are ignored.
func (a *Amounts) Add(b Bucket, v decimal.Decimal) {
	if len(a.slots) == 0 {
		return
	}
	i, ok := a.horizon().slot(b)
	if !ok {
		return
	}
	a.slots[i] = a.slots[i].Add(v)
	a.total = a.total.Add(v)
}

// Get returns the sum of one bucket; Skip is always zero.
func (a Amounts) Get(b Bucket) decimal.Decimal {
	if len(a.slots) == 0 {
		return decimal.Zero
	}
	i, ok := a.horizon().slot(b)
	if !ok {
		return decimal.Zero
	}
	return a.slots[i]
}

func (a Amounts) Year(n int) decimal.Decimal   { return a.Get(YearBucket(n)) }
func (a Amounts) Thereafter() decimal.Decimal { return a.Get(Thereafter) }
func (a Amounts) Total() decimal.Decimal      { return a.total }

// Sum recomputes the total from the buckets.
func (a Amounts) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, v := range a.slots {
		sum = sum.Add(v)
	}
	return sum
}

// Values returns the bucket sums in column order (Year 1..N, Thereafter).
func (a Amounts) Values() []decimal.Decimal {
	return append([]decimal.Decimal(nil), a.slots...)
}

// =============================================================================
// FIGURES - Everything accumulated for one key in one currency
// =============================================================================

// Figures holds the bucketed payments, the future interest (positive), and the
// principal balances captured at the report month.
type Figures struct {
	Payments    Amounts
	Interest    decimal.Decimal
	STPrincipal decimal.Decimal
	LTPrincipal decimal.Decimal
}

func NewFigures(h Horizon) Figures {
	return Figures{
		Payments:    NewAmounts(h),
		Interest:    decimal.Zero,
		STPrincipal: decimal.Zero,
		LTPrincipal: decimal.Zero,
	}
}

// FinanceCharges is the "Less: Finance Charges" figure: interest as a negative.
func (f Figures) FinanceCharges() decimal.Decimal {
	return f.Interest.Neg()
}

// PrincipalFromPayments is total payments less finance charges.
func (f Figures) PrincipalFromPayments() decimal.Decimal {
	return PrincipalFromPayments(f.Payments.Total(), f.FinanceCharges())
}

// PrincipalFromBalances is the ST + LT closing balance at the report month.
func (f Figures) PrincipalFromBalances() decimal.Decimal {
	return PrincipalFromBalances(f.STPrincipal, f.LTPrincipal)
}

// PrincipalGap is method 1 minus method 2. Non-zero means the schedule does
// not reconcile; the report shows both figures and leaves judgment to the reader.
func (f Figures) PrincipalGap() decimal.Decimal {
	return f.PrincipalFromPayments().Sub(f.PrincipalFromBalances())
}
