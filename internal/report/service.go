package report

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Filters selects one report build.
type Filters struct {
	Statement Statement
	DataType  DataType
	FromMonth int
	FromYear  int
	ToMonth   int
	ToYear    int
}

// Range resolves the month selection to its half-open interval.
func (f Filters) Range() Range {
	return NewRange(f.FromMonth, f.FromYear, f.ToMonth, f.ToYear)
}

// RecordFilter scopes a store read of financial records.
type RecordFilter struct {
	CompanyCodes []string
	DataType     DataType
	AccountCodes []string
	Range        Range
	Periods      []time.Time
}

// Repository abstracts the read-only store access the engine needs.
type Repository interface {
	Companies(ctx context.Context) ([]Company, error)
	ChartEntries(ctx context.Context, types []AccountType) ([]ChartEntry, error)
	DistinctPeriods(ctx context.Context, f RecordFilter) ([]time.Time, error)
	Records(ctx context.Context, f RecordFilter) ([]Record, error)
}

// MetricRowSource supplies the operational metric rows rendered above
// the statement. Optional; the engine runs without one.
type MetricRowSource interface {
	MetricRows(ctx context.Context, streams Streams, periods []time.Time, dataType DataType, rng Range) ([]Row, error)
}

// Report is the fully materialized result of one build. Ephemeral:
// rebuilt per request, never persisted.
type Report struct {
	Filters Filters
	Periods []time.Time
	Streams Streams
	Columns []Column
	Rows    []Row
}

// Empty reports the explicit no-data state: no period in the selected
// range carries a matching record.
func (r Report) Empty() bool {
	return len(r.Periods) == 0
}

// Service orchestrates one synchronous report build per request. It
// holds no mutable state; concurrent builds share only store reads.
type Service struct {
	repo    Repository
	metrics MetricRowSource
	derived map[Statement][]DerivedSpec
}

// Option configures a Service.
type Option func(*Service)

// WithMetricRows attaches the operational metric block.
func WithMetricRows(src MetricRowSource) Option {
	return func(s *Service) { s.metrics = src }
}

// WithDerived overrides the derived-row chain for a statement.
func WithDerived(st Statement, specs []DerivedSpec) Option {
	return func(s *Service) { s.derived[st] = specs }
}

// NewService constructs the engine with the default derived chains.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		derived: map[Statement][]DerivedSpec{
			StatementProfitLoss:   DefaultProfitLossDerived(),
			StatementBalanceSheet: DefaultBalanceSheetDerived(),
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Build assembles the full report matrix for the filters. It completes
// fully or fails fast: aggregation faults abort the build so partial or
// inconsistent totals are never returned. No data is a normal outcome
// represented as an empty report.
func (s *Service) Build(ctx context.Context, f Filters) (Report, error) {
	if s == nil || s.repo == nil {
		return Report{}, errors.New("report: service not initialised")
	}

	companies, err := s.repo.Companies(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("report: load companies: %w", err)
	}
	streams, err := PartitionCompanies(companies)
	if err != nil {
		return Report{}, err
	}

	entries, err := s.repo.ChartEntries(ctx, f.Statement.AccountTypes())
	if err != nil {
		return Report{}, fmt.Errorf("report: load chart of accounts: %w", err)
	}
	index, err := NewChartIndex(entries)
	if err != nil {
		return Report{}, err
	}
	accountCodes := index.AccountCodes()

	rng := f.Range()
	periods, err := ResolvePeriods(ctx, s.repo, streams, f.DataType, accountCodes, rng)
	if err != nil {
		return Report{}, fmt.Errorf("report: resolve periods: %w", err)
	}
	if len(periods) == 0 {
		return Report{Filters: f, Streams: streams}, nil
	}

	var actual []Record
	if codes := streams.ActualCodes(); len(codes) > 0 {
		actual, err = s.repo.Records(ctx, RecordFilter{
			CompanyCodes: codes,
			DataType:     DataTypeActual,
			AccountCodes: accountCodes,
			Range:        rng,
			Periods:      periods,
		})
		if err != nil {
			return Report{}, fmt.Errorf("report: load actual records: %w", err)
		}
	}

	budgetView := f.DataType.BudgetView()
	var budget []Record
	if budgetView && streams.Budget != nil {
		budget, err = s.repo.Records(ctx, RecordFilter{
			CompanyCodes: []string{streams.Budget.Code},
			DataType:     f.DataType,
			AccountCodes: accountCodes,
			Range:        rng,
			Periods:      periods,
		})
		if err != nil {
			return Report{}, fmt.Errorf("report: load budget records: %w", err)
		}
	}

	values, err := NewValueIndex(index, actual, budget)
	if err != nil {
		return Report{}, err
	}

	rows, err := BuildMatrix(MatrixParams{
		Index:      index,
		Streams:    streams,
		Periods:    periods,
		Values:     values,
		BudgetView: budgetView,
		Derived:    s.derived[f.Statement],
	})
	if err != nil {
		return Report{}, err
	}

	if s.metrics != nil && f.Statement == StatementProfitLoss {
		metricRows, err := s.metrics.MetricRows(ctx, streams, periods, f.DataType, rng)
		if err != nil {
			return Report{}, fmt.Errorf("report: build metric rows: %w", err)
		}
		if len(metricRows) > 0 {
			spacer := Row{Kind: KindSpacer, GroupKey: "metrics-divider"}
			rows = append(append(metricRows, spacer), rows...)
		}
	}

	columns := PlanColumns(PlanParams{Streams: streams, Periods: periods, BudgetView: budgetView})
	ApplyVisibility(columns, rows)

	return Report{
		Filters: f,
		Periods: periods,
		Streams: streams,
		Columns: columns,
		Rows:    rows,
	}, nil
}
