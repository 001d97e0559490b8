package maturity_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/ctr-mapper/maturity"
	"github.com/warp/ctr-mapper/table"
)

// =============================================================================
// LEASE TERM
// =============================================================================

func TestLeaseTerm(t *testing.T) {
	cases := []struct {
		name         string
		start, end   time.Time
		months, days int
	}{
		{"five full years", date(2023, time.January, 1), date(2027, time.December, 31), 60, 0},
		{"months and days", date(2023, time.January, 15), date(2023, time.March, 20), 2, 6},
		{"end of month clipping", date(2023, time.January, 31), date(2023, time.February, 27), 1, 0},
		{"single day", date(2023, time.May, 10), date(2023, time.May, 10), 0, 1},
		{"missing start", time.Time{}, date(2027, time.December, 31), 0, 0},
		{"missing end", date(2023, time.January, 1), time.Time{}, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			months, days := maturity.LeaseTerm(tc.start, tc.end)
			assert.Equal(t, tc.months, months)
			assert.Equal(t, tc.days, days)
		})
	}
}

// =============================================================================
// PRINCIPAL METHODS
// =============================================================================

func TestPrincipalFromPayments_SignHandling(t *testing.T) {
	// GIVEN: Total payments 3000 and interest accumulated as +500
	// WHEN: Computing principal from payments
	// THEN: Finance charges are -500 and principal is 2500, not 3500

	f := maturity.NewFigures(maturity.DefaultHorizon())
	f.Payments.Add(maturity.YearBucket(1), d("1000"))
	f.Payments.Add(maturity.YearBucket(2), d("2000"))
	f.Interest = d("500")

	assert.True(t, f.FinanceCharges().Equal(d("-500")))
	assert.True(t, f.PrincipalFromPayments().Equal(d("2500")), "got %s", f.PrincipalFromPayments())
}

func TestPrincipalMethods_NotForcedToAgree(t *testing.T) {
	f := maturity.NewFigures(maturity.DefaultHorizon())
	f.Payments.Add(maturity.YearBucket(1), d("1200"))
	f.Interest = d("200")
	f.STPrincipal = d("600")
	f.LTPrincipal = d("350")

	assert.True(t, f.PrincipalFromPayments().Equal(d("1000")))
	assert.True(t, f.PrincipalFromBalances().Equal(d("950")))
	assert.True(t, f.PrincipalGap().Equal(d("50")))
}

// =============================================================================
// EXCHANGE RATES
// =============================================================================

func TestRateTable(t *testing.T) {
	rates := maturity.NewRateTable(map[string]decimal.Decimal{"eur": d("1.08")})

	assert.True(t, rates.Rate("EUR", "USD").Equal(d("1.08")), "lookup is case-insensitive")
	assert.True(t, rates.Rate("USD", "USD").Equal(d("1")), "same currency is identity")
	assert.True(t, rates.Rate("MXN", "USD").Equal(d("1")), "absent rate falls back to identity")

	withFallback := rates.WithFallback(d("0.05"))
	assert.True(t, withFallback.Rate("MXN", "USD").Equal(d("0.05")))
	assert.True(t, withFallback.Rate("EUR", "USD").Equal(d("1.08")), "table entries win over the fallback")
}

func TestScalarRate(t *testing.T) {
	rates := maturity.ScalarRate(d("17.5"))
	assert.True(t, rates.Rate("USD", "MXN").Equal(d("17.5")))
	assert.True(t, rates.Rate("MXN", "MXN").Equal(d("1")))
}

func TestRateTable_Validate(t *testing.T) {
	assert.NoError(t, maturity.NewRateTable(nil).Validate())

	bad := maturity.NewRateTable(map[string]decimal.Decimal{"EUR": d("0")})
	assert.ErrorIs(t, bad.Validate(), table.ErrInvalidConfig)

	assert.ErrorIs(t, maturity.ScalarRate(d("-1")).Validate(), table.ErrInvalidConfig)
	assert.ErrorIs(t, maturity.ScalarRate(d("0")).Validate(), table.ErrInvalidConfig, "a zero fallback is configured, not absent")
	assert.ErrorIs(t, maturity.NewRateTable(nil).WithFallback(decimal.Zero).Validate(), table.ErrInvalidConfig)
}
