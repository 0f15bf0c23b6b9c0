package report

import (
	"context"
	"sort"
	"time"
)

// Range is a half-open month interval [Start, EndExclusive). Both bounds
// are first-of-month dates in UTC; EndExclusive is the first day of the
// month after the selected end month, so both boundary months are
// included exactly once.
type Range struct {
	Start        time.Time
	EndExclusive time.Time
}

// NewRange resolves a (from-month, from-year, to-month, to-year)
// selection into the half-open interval. An end month before the start
// month produces an empty range, which downstream resolves to the
// explicit no-data state rather than an error.
func NewRange(fromMonth, fromYear, toMonth, toYear int) Range {
	start := MonthStart(time.Date(fromYear, time.Month(fromMonth), 1, 0, 0, 0, 0, time.UTC))
	end := NextMonth(MonthStart(time.Date(toYear, time.Month(toMonth), 1, 0, 0, 0, 0, time.UTC)))
	return Range{Start: start, EndExclusive: end}
}

// IsEmpty reports whether no month can fall inside the range.
func (r Range) IsEmpty() bool {
	return !r.Start.Before(r.EndExclusive)
}

// Contains reports whether the first-of-month date p falls in the range.
func (r Range) Contains(p time.Time) bool {
	p = MonthStart(p)
	return !p.Before(r.Start) && p.Before(r.EndExclusive)
}

// MonthStart normalises a date to the first day of its month in UTC.
func MonthStart(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// NextMonth returns the first day of the month after d.
func NextMonth(d time.Time) time.Time {
	return MonthStart(d).AddDate(0, 1, 0)
}

// PeriodKey renders the canonical period key used in column metadata.
func PeriodKey(p time.Time) string {
	return p.Format("2006-01")
}

// PeriodLabel renders the short month token embedded in column field
// keys and headers.
func PeriodLabel(p time.Time) string {
	return p.Format("Jan-06")
}

// PeriodSource abstracts the store lookup behind the resolver.
type PeriodSource interface {
	DistinctPeriods(ctx context.Context, f RecordFilter) ([]time.Time, error)
}

// ResolvePeriods returns the ordered, deduplicated first-of-month
// periods carrying at least one record for either stream. The actual
// stream always reads realized records; the budget stream contributes
// its periods only in Budget/Forecast views. An empty result is the
// normal no-data outcome.
func ResolvePeriods(ctx context.Context, src PeriodSource, streams Streams, dataType DataType, accountCodes []string, rng Range) ([]time.Time, error) {
	if rng.IsEmpty() {
		return nil, nil
	}
	seen := make(map[time.Time]struct{})

	if codes := streams.ActualCodes(); len(codes) > 0 {
		actual, err := src.DistinctPeriods(ctx, RecordFilter{
			CompanyCodes: codes,
			DataType:     DataTypeActual,
			AccountCodes: accountCodes,
			Range:        rng,
		})
		if err != nil {
			return nil, err
		}
		for _, p := range actual {
			seen[MonthStart(p)] = struct{}{}
		}
	}

	if dataType.BudgetView() && streams.Budget != nil {
		budget, err := src.DistinctPeriods(ctx, RecordFilter{
			CompanyCodes: []string{streams.Budget.Code},
			DataType:     dataType,
			AccountCodes: accountCodes,
			Range:        rng,
		})
		if err != nil {
			return nil, err
		}
		for _, p := range budget {
			seen[MonthStart(p)] = struct{}{}
		}
	}

	periods := make([]time.Time, 0, len(seen))
	for p := range seen {
		periods = append(periods, p)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })
	return periods, nil
}
