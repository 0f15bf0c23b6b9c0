package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	companies []Company
	entries   []ChartEntry
	records   []Record

	recordCalls []RecordFilter
}

func (r *memoryRepo) Companies(context.Context) ([]Company, error) {
	return append([]Company(nil), r.companies...), nil
}

func (r *memoryRepo) ChartEntries(_ context.Context, types []AccountType) ([]ChartEntry, error) {
	wanted := make(map[AccountType]struct{}, len(types))
	for _, t := range types {
		wanted[t] = struct{}{}
	}
	var out []ChartEntry
	for _, e := range r.entries {
		if _, ok := wanted[e.Type]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryRepo) DistinctPeriods(_ context.Context, f RecordFilter) ([]time.Time, error) {
	seen := make(map[time.Time]struct{})
	var out []time.Time
	for _, rec := range r.match(f) {
		p := MonthStart(rec.Period)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

func (r *memoryRepo) Records(_ context.Context, f RecordFilter) ([]Record, error) {
	r.recordCalls = append(r.recordCalls, f)
	return r.match(f), nil
}

func (r *memoryRepo) match(f RecordFilter) []Record {
	companies := make(map[string]struct{}, len(f.CompanyCodes))
	for _, c := range f.CompanyCodes {
		companies[c] = struct{}{}
	}
	var out []Record
	for _, rec := range r.records {
		if rec.DataType != f.DataType {
			continue
		}
		if _, ok := companies[rec.CompanyCode]; !ok {
			continue
		}
		if !f.Range.Contains(rec.Period) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func plRepo() *memoryRepo {
	jan := month(2024, time.January)
	feb := month(2024, time.February)
	return &memoryRepo{
		companies: []Company{
			{Code: "BET", Name: "Beta Ltd"},
			{Code: "ALP", Name: "Alpha Ltd"},
			{Code: "BUD", Name: "Consolidated Budget", BudgetOnly: true},
		},
		entries: plChartEntries(),
		records: []Record{
			{CompanyCode: "ALP", AccountCode: "4000", Period: jan, Amount: dec(100), DataType: DataTypeActual},
			{CompanyCode: "BET", AccountCode: "4000", Period: jan, Amount: dec(50), DataType: DataTypeActual},
			{CompanyCode: "ALP", AccountCode: "5000", Period: feb, Amount: dec(30), DataType: DataTypeActual},
			{CompanyCode: "BUD", AccountCode: "4000", Period: jan, Amount: dec(120), DataType: DataTypeBudget},
			{CompanyCode: "BUD", AccountCode: "4000", Period: feb, Amount: dec(130), DataType: DataTypeBudget},
			{CompanyCode: "BUD", AccountCode: "4000", Period: jan, Amount: dec(115), DataType: DataTypeForecast},
		},
	}
}

func plFilters(dt DataType) Filters {
	return Filters{Statement: StatementProfitLoss, DataType: dt, FromMonth: 1, FromYear: 2024, ToMonth: 12, ToYear: 2024}
}

func TestServiceBuildActualView(t *testing.T) {
	repo := plRepo()
	svc := NewService(repo)

	rep, err := svc.Build(context.Background(), plFilters(DataTypeActual))
	require.NoError(t, err)
	require.False(t, rep.Empty())
	require.Len(t, rep.Periods, 2)

	// Actual view: no budget columns, only the actual stream was read.
	for _, c := range rep.Columns {
		require.NotEqual(t, ColumnBudget, c.Kind)
	}
	require.Len(t, repo.recordCalls, 1)
	require.Equal(t, DataTypeActual, repo.recordCalls[0].DataType)
	require.Equal(t, []string{"ALP", "BET"}, repo.recordCalls[0].CompanyCodes)
}

func TestServiceBuildBudgetViewReadsBothStreams(t *testing.T) {
	repo := plRepo()
	svc := NewService(repo)

	rep, err := svc.Build(context.Background(), plFilters(DataTypeBudget))
	require.NoError(t, err)

	require.Len(t, repo.recordCalls, 2)
	require.Equal(t, DataTypeActual, repo.recordCalls[0].DataType, "actual stream always reads realized records")
	require.Equal(t, DataTypeBudget, repo.recordCalls[1].DataType)
	require.Equal(t, []string{"BUD"}, repo.recordCalls[1].CompanyCodes)

	income := findRow(t, rep.Rows, KindParentTotal, "Total Income")
	jan := month(2024, time.January)
	require.True(t, income.PeriodCells(jan).Budget.Equal(dec(120)))
	require.True(t, income.PeriodCells(jan).Total.Equal(dec(150)))
}

func TestServiceBuildForecastViewSelectsForecastBudget(t *testing.T) {
	repo := plRepo()
	svc := NewService(repo)

	rep, err := svc.Build(context.Background(), plFilters(DataTypeForecast))
	require.NoError(t, err)

	require.Len(t, repo.recordCalls, 2)
	require.Equal(t, DataTypeForecast, repo.recordCalls[1].DataType)

	income := findRow(t, rep.Rows, KindParentTotal, "Total Income")
	require.True(t, income.PeriodCells(month(2024, time.January)).Budget.Equal(dec(115)))
}

func TestServiceBuildNoDataReturnsEmptyReport(t *testing.T) {
	repo := plRepo()
	svc := NewService(repo)

	rep, err := svc.Build(context.Background(), Filters{
		Statement: StatementProfitLoss, DataType: DataTypeActual,
		FromMonth: 1, FromYear: 2030, ToMonth: 3, ToYear: 2030,
	})
	require.NoError(t, err)
	require.True(t, rep.Empty())
	require.Empty(t, rep.Rows)
	require.Empty(t, rep.Columns)
}

func TestServiceBuildReversedRangeIsNoData(t *testing.T) {
	repo := plRepo()
	svc := NewService(repo)

	rep, err := svc.Build(context.Background(), Filters{
		Statement: StatementProfitLoss, DataType: DataTypeActual,
		FromMonth: 12, FromYear: 2024, ToMonth: 1, ToYear: 2024,
	})
	require.NoError(t, err)
	require.True(t, rep.Empty())
}

func TestServiceBuildAbortsOnUnmappedAccount(t *testing.T) {
	repo := plRepo()
	repo.records = append(repo.records, Record{
		CompanyCode: "ALP", AccountCode: "9999", Period: month(2024, time.January), Amount: dec(1), DataType: DataTypeActual,
	})
	svc := NewService(repo)

	_, err := svc.Build(context.Background(), plFilters(DataTypeActual))
	require.ErrorIs(t, err, ErrUnmappedAccount)
}

func TestServiceBuildSurfacesStreamConfigFault(t *testing.T) {
	repo := plRepo()
	repo.companies = append(repo.companies, Company{Code: "BUD2", BudgetOnly: true})
	svc := NewService(repo)

	_, err := svc.Build(context.Background(), plFilters(DataTypeActual))
	require.ErrorIs(t, err, ErrStreamConfig)
}

func TestServiceBuildBudgetOnlyData(t *testing.T) {
	// Periods carrying only budget records still materialize in budget
	// views: company cells and TOTAL stay zero, Budget carries the plan.
	jan := month(2024, time.January)
	feb := month(2024, time.February)
	mar := month(2024, time.March)
	repo := &memoryRepo{
		companies: []Company{
			{Code: "ALP"}, {Code: "BET"},
			{Code: "BUD", BudgetOnly: true},
		},
		entries: plChartEntries(),
		records: []Record{
			{CompanyCode: "BUD", AccountCode: "4000", Period: jan, Amount: dec(5), DataType: DataTypeBudget},
			{CompanyCode: "BUD", AccountCode: "4000", Period: feb, Amount: dec(5), DataType: DataTypeBudget},
			{CompanyCode: "BUD", AccountCode: "4000", Period: mar, Amount: dec(5), DataType: DataTypeBudget},
		},
	}
	svc := NewService(repo)

	rep, err := svc.Build(context.Background(), plFilters(DataTypeBudget))
	require.NoError(t, err)
	require.Len(t, rep.Periods, 3)

	income := findRow(t, rep.Rows, KindParentTotal, "Total Income")
	for _, p := range rep.Periods {
		cells := income.PeriodCells(p)
		require.True(t, cells.Total.IsZero())
		require.True(t, cells.Budget.Equal(dec(5)))
	}
	require.True(t, income.Grand.Budget.Equal(dec(15)))

	// Every company column is empty and therefore hidden; the Budget and
	// TOTAL columns stay, and no budget-only grand key exists.
	for _, c := range rep.Columns {
		switch c.Kind {
		case ColumnCompany, ColumnGrandCompany:
			require.True(t, c.Hidden, "key %s", c.Key)
		default:
			require.False(t, c.Hidden, "key %s", c.Key)
		}
		require.NotEqual(t, "grand_total_BUD", c.Key)
	}
}

type stubMetricSource struct {
	rows []Row
}

func (s stubMetricSource) MetricRows(context.Context, Streams, []time.Time, DataType, Range) ([]Row, error) {
	return s.rows, nil
}

func TestServiceBuildPrependsMetricBlock(t *testing.T) {
	repo := plRepo()
	metricRow := Row{Kind: KindMetric, Name: "Loans Disbursed", Section: "metrics"}
	svc := NewService(repo, WithMetricRows(stubMetricSource{rows: []Row{metricRow}}))

	rep, err := svc.Build(context.Background(), plFilters(DataTypeActual))
	require.NoError(t, err)

	require.Equal(t, KindMetric, rep.Rows[0].Kind)
	require.Equal(t, KindSpacer, rep.Rows[1].Kind)
	require.Equal(t, KindSectionHeader, rep.Rows[2].Kind)
}

func TestServiceBuildBalanceSheetSkipsMetricBlock(t *testing.T) {
	jan := month(2024, time.January)
	repo := &memoryRepo{
		companies: []Company{{Code: "ALP"}},
		entries: []ChartEntry{
			{AccountCode: "1000", AccountName: "Cash", Type: AccountAsset, ParentCategory: "Assets", SubCategory: "Current", SortOrder: 1},
		},
		records: []Record{
			{CompanyCode: "ALP", AccountCode: "1000", Period: jan, Amount: dec(500), DataType: DataTypeActual},
		},
	}
	svc := NewService(repo, WithMetricRows(stubMetricSource{rows: []Row{{Kind: KindMetric, Name: "Loans Disbursed"}}}))

	rep, err := svc.Build(context.Background(), Filters{
		Statement: StatementBalanceSheet, DataType: DataTypeActual,
		FromMonth: 1, FromYear: 2024, ToMonth: 12, ToYear: 2024,
	})
	require.NoError(t, err)
	for _, r := range rep.Rows {
		require.NotEqual(t, KindMetric, r.Kind)
	}
}
