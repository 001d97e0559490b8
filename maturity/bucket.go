package maturity

import (
	"fmt"
	"time"

	"github.com/warp/ctr-mapper/table"
)

// =============================================================================
// BUCKET - Where a future payment falls relative to the report date
// =============================================================================

type BucketKind int

const (
	BucketSkip       BucketKind = iota // at or before the report month
	BucketYear                         // one of Year 1..N
	BucketThereafter                   // beyond the last year bucket
)

// Bucket is a classification result. Year is 1-based and only set for BucketYear.
type Bucket struct {
	Kind BucketKind
	Year int
}

var (
	Skip       = Bucket{Kind: BucketSkip}
	Thereafter = Bucket{Kind: BucketThereafter}
)

func YearBucket(n int) Bucket { return Bucket{Kind: BucketYear, Year: n} }

// Label is the machine name: "skip", "year1".."yearN", "thereafter".
func (b Bucket) Label() string {
	switch b.Kind {
	case BucketYear:
		return fmt.Sprintf("year%d", b.Year)
	case BucketThereafter:
		return "thereafter"
	default:
		return "skip"
	}
}

// Title is the report column heading.
func (b Bucket) Title() string {
	switch b.Kind {
	case BucketYear:
		return fmt.Sprintf("Year %d", b.Year)
	case BucketThereafter:
		return "Thereafter"
	default:
		return "Skip"
	}
}

func (b Bucket) String() string { return b.Label() }

// =============================================================================
// HORIZON - Bucket scheme of a report
// =============================================================================

// DefaultYears is the number of discrete year buckets before Thereafter.
// Observed report variants use 5 or 6; 6 matches the maturity workbook layout.
const DefaultYears = 6

const maxYears = 30

// Horizon is the bucket scheme: Years discrete 12-month buckets, then Thereafter.
type Horizon struct {
	Years int
}

func DefaultHorizon() Horizon { return Horizon{Years: DefaultYears} }

func (h Horizon) Validate() error {
	if h.Years < 1 || h.Years > maxYears {
		return &table.ConfigError{Field: "bucket_years", Reason: fmt.Sprintf("must be between 1 and %d, got %d", maxYears, h.Years)}
	}
	return nil
}

// Classify buckets a payment by its period end date.
//
// Buckets are left-exclusive and right-inclusive on whole months:
//
//	months <= 0          skip
//	1..12                Year 1
//	13..24               Year 2
//	...
//	> 12*Years           Thereafter
//
// A payment exactly 12 months out therefore lands in Year 1, not Year 2.
func (h Horizon) Classify(periodEnd time.Time, ref ReportDate) Bucket {
	months := ref.MonthsUntil(periodEnd)
	if months <= 0 {
		return Skip
	}
	year := (months + 11) / 12
	if year > h.Years {
		return Thereafter
	}
	return YearBucket(year)
}

// Classify is the standalone form of Horizon.Classify.
func Classify(periodEnd time.Time, reportYear int, reportMonth time.Month, years int) Bucket {
	return Horizon{Years: years}.Classify(periodEnd, NewReportDate(reportYear, reportMonth))
}

// Buckets lists the reportable buckets in column order: Year 1..N, Thereafter.
func (h Horizon) Buckets() []Bucket {
	out := make([]Bucket, 0, h.Years+1)
	for y := 1; y <= h.Years; y++ {
		out = append(out, YearBucket(y))
	}
	return append(out, Thereafter)
}

// slot maps a reportable bucket onto an accumulator index.
func (h Horizon) slot(b Bucket) (int, bool) {
	switch b.Kind {
	case BucketYear:
		if b.Year < 1 || b.Year > h.Years {
			return 0, false
		}
		return b.Year - 1, true
	case BucketThereafter:
		return h.Years, true
	default:
		return 0, false
	}
}
