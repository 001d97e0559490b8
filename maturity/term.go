package maturity

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DERIVED FIELDS
// =============================================================================

// LeaseTerm returns the whole calendar months and remaining days from start
// through end inclusive: the term runs to end + 1 day. Either date missing
// yields (0, 0); an unknown term is not an error.
//
// Months are counted the way a calendar is read: Jan 31 plus one month is
// Feb 28 (or 29), and the days left over are counted from there.
//
//	LeaseTerm(2023-01-01, 2027-12-31) = 60 months, 0 days
//	LeaseTerm(2023-01-15, 2023-03-20) = 2 months, 6 days
func LeaseTerm(start, end time.Time) (months, days int) {
	if start.IsZero() || end.IsZero() {
		return 0, 0
	}
	from := dayOf(start)
	to := dayOf(end).AddDate(0, 0, 1)
	if to.Before(from) {
		m, d := calendarDiff(to, from)
		return -m, -d
	}
	return calendarDiff(from, to)
}

// calendarDiff expects from <= to.
func calendarDiff(from, to time.Time) (int, int) {
	months := (to.Year()-from.Year())*12 + int(to.Month()-from.Month())
	anchor := addMonthsClipped(from, months)
	if anchor.After(to) {
		months--
		anchor = addMonthsClipped(from, months)
	}
	return months, daysBetween(anchor, to)
}

// PrincipalFromPayments is method 1 of total principal liability: total
// payments plus finance charges, where financeCharges is already negative.
//
//	total 3000, interest 500 -> financeCharges -500 -> principal 2500
func PrincipalFromPayments(total, financeCharges decimal.Decimal) decimal.Decimal {
	return total.Add(financeCharges)
}

// PrincipalFromBalances is method 2: short-term plus long-term closing balance.
func PrincipalFromBalances(st, lt decimal.Decimal) decimal.Decimal {
	return st.Add(lt)
}
