package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finconsol/finconsol/internal/report"
)

// Repository abstracts metric persistence.
type Repository interface {
	ActiveMetrics(ctx context.Context) ([]Metric, error)
	Values(ctx context.Context, rng report.Range) ([]Value, error)
	BudgetValues(ctx context.Context, dataType report.DataType, rng report.Range) ([]BudgetValue, error)
	UpsertBudgetValue(ctx context.Context, v BudgetValue) error
}

// Service builds metric rows and accepts inline budget edits.
type Service struct {
	repo Repository
}

// NewService constructs a metrics service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// MetricRows materializes one row per active metric over the shared
// column space. Implements report.MetricRowSource.
func (s *Service) MetricRows(ctx context.Context, streams report.Streams, periods []time.Time, dataType report.DataType, rng report.Range) ([]report.Row, error) {
	if s == nil || s.repo == nil {
		return nil, errors.New("metrics: service not initialised")
	}
	defs, err := s.repo.ActiveMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("metrics: load metrics: %w", err)
	}
	if len(defs) == 0 {
		return nil, nil
	}

	values, err := s.repo.Values(ctx, rng)
	if err != nil {
		return nil, fmt.Errorf("metrics: load values: %w", err)
	}
	valueIdx := make(map[int64]map[time.Time]map[string]decimal.Decimal)
	for _, v := range values {
		p := report.MonthStart(v.Period)
		byPeriod := valueIdx[v.MetricID]
		if byPeriod == nil {
			byPeriod = make(map[time.Time]map[string]decimal.Decimal)
			valueIdx[v.MetricID] = byPeriod
		}
		byCompany := byPeriod[p]
		if byCompany == nil {
			byCompany = make(map[string]decimal.Decimal)
			byPeriod[p] = byCompany
		}
		byCompany[v.CompanyCode] = byCompany[v.CompanyCode].Add(v.Value)
	}

	budgetView := dataType.BudgetView()
	budgetIdx := make(map[int64]map[time.Time]decimal.Decimal)
	if budgetView {
		budgetValues, err := s.repo.BudgetValues(ctx, dataType, rng)
		if err != nil {
			return nil, fmt.Errorf("metrics: load budget values: %w", err)
		}
		for _, v := range budgetValues {
			p := report.MonthStart(v.Period)
			byPeriod := budgetIdx[v.MetricID]
			if byPeriod == nil {
				byPeriod = make(map[time.Time]decimal.Decimal)
				budgetIdx[v.MetricID] = byPeriod
			}
			byPeriod[p] = byPeriod[p].Add(v.Value)
		}
	}

	codes := streams.ActualCodes()
	built := make(map[int64]*report.Row, len(defs))
	rows := make([]report.Row, 0, len(defs))

	for _, def := range defs {
		row := &report.Row{
			Kind:      report.KindMetric,
			Level:     0,
			GroupKey:  report.Slugify(def.Name),
			Name:      def.Name,
			Section:   "metrics",
			SortOrder: def.DisplayOrder,
			Periods:   make(map[time.Time]*report.Cells, len(periods)),
			Grand:     report.NewCells(codes),
		}

		ytdRunning := decimal.Zero
		var prev *report.Cells
		for _, p := range periods {
			cells := report.NewCells(codes)
			for _, code := range codes {
				var v decimal.Decimal
				switch {
				case def.Behavior == BehaviorCumulative && p.Month() != time.January && prev != nil:
					v = prev.Company(code)
					if source, ok := built[def.SourceMetricID]; ok {
						if sc := source.PeriodCells(p); sc != nil {
							v = v.Add(sc.Company(code))
						}
					}
				default:
					if byPeriod, ok := valueIdx[def.ID]; ok {
						v = byPeriod[p][code]
					}
				}
				cells.Companies[code] = v
			}
			periodSum := decimal.Zero
			for _, code := range codes {
				periodSum = periodSum.Add(cells.Companies[code])
			}
			if def.Behavior == BehaviorYTD {
				ytdRunning = ytdRunning.Add(periodSum)
				cells.Total = ytdRunning
			} else {
				cells.Total = periodSum
			}
			if budgetView {
				if byPeriod, ok := budgetIdx[def.ID]; ok {
					cells.AddBudget(byPeriod[p])
				} else {
					cells.AddBudget(decimal.Zero)
				}
				row.Grand.AddBudget(cells.Budget)
			}
			row.Periods[p] = cells
			prev = cells
		}

		built[def.ID] = row
		rows = append(rows, *row)
	}
	return rows, nil
}

// SaveBudgetValue upserts one consolidated budget cell. The write is
// independently locked by its natural key so concurrent edits of the
// same cell serialize instead of losing updates; report builds simply
// re-read afterwards.
func (s *Service) SaveBudgetValue(ctx context.Context, v BudgetValue) error {
	if s == nil || s.repo == nil {
		return errors.New("metrics: service not initialised")
	}
	if v.MetricID <= 0 {
		return errors.New("metrics: metric id required")
	}
	if !v.DataType.BudgetView() {
		return fmt.Errorf("metrics: data type %q does not accept budget edits", v.DataType)
	}
	v.Period = report.MonthStart(v.Period)
	return s.repo.UpsertBudgetValue(ctx, v)
}
