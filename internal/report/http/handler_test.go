package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/finconsol/finconsol/internal/metrics"
	"github.com/finconsol/finconsol/internal/report"
)

type memoryRepo struct {
	companies []report.Company
	entries   []report.ChartEntry
	records   []report.Record

	recordReads int
}

func (r *memoryRepo) Companies(context.Context) ([]report.Company, error) {
	return r.companies, nil
}

func (r *memoryRepo) ChartEntries(_ context.Context, types []report.AccountType) ([]report.ChartEntry, error) {
	wanted := make(map[report.AccountType]struct{}, len(types))
	for _, t := range types {
		wanted[t] = struct{}{}
	}
	var out []report.ChartEntry
	for _, e := range r.entries {
		if _, ok := wanted[e.Type]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryRepo) DistinctPeriods(_ context.Context, f report.RecordFilter) ([]time.Time, error) {
	seen := make(map[time.Time]struct{})
	var out []time.Time
	for _, rec := range r.filtered(f) {
		p := report.MonthStart(rec.Period)
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryRepo) Records(_ context.Context, f report.RecordFilter) ([]report.Record, error) {
	r.recordReads++
	return r.filtered(f), nil
}

func (r *memoryRepo) filtered(f report.RecordFilter) []report.Record {
	companies := make(map[string]struct{}, len(f.CompanyCodes))
	for _, c := range f.CompanyCodes {
		companies[c] = struct{}{}
	}
	var out []report.Record
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

type memoryMetricRepo struct {
	upserts []metrics.BudgetValue
}

func (r *memoryMetricRepo) ActiveMetrics(context.Context) ([]metrics.Metric, error) { return nil, nil }
func (r *memoryMetricRepo) Values(context.Context, report.Range) ([]metrics.Value, error) {
	return nil, nil
}
func (r *memoryMetricRepo) BudgetValues(context.Context, report.DataType, report.Range) ([]metrics.BudgetValue, error) {
	return nil, nil
}
func (r *memoryMetricRepo) UpsertBudgetValue(_ context.Context, v metrics.BudgetValue) error {
	r.upserts = append(r.upserts, v)
	return nil
}

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func testRepo() *memoryRepo {
	jan := month(2024, time.January)
	return &memoryRepo{
		companies: []report.Company{
			{Code: "ALP", Name: "Alpha Ltd"},
			{Code: "BUD", Name: "Consolidated Budget", BudgetOnly: true},
		},
		entries: []report.ChartEntry{
			{AccountCode: "4000", AccountName: "Interest Income", Type: report.AccountIncome, ParentCategory: "Income", SubCategory: "Interest", SortOrder: 10},
			{AccountCode: "5000", AccountName: "Funding Interest", Type: report.AccountExpense, ParentCategory: "Cost of Funds", SubCategory: "Funding", SortOrder: 20},
			{AccountCode: "6000", AccountName: "Salaries", Type: report.AccountExpense, ParentCategory: "Overheads", SubCategory: "Staff", SortOrder: 30},
			{AccountCode: "7000", AccountName: "Corporate Tax", Type: report.AccountExpense, ParentCategory: "Taxes", SubCategory: "Tax", SortOrder: 40},
		},
		records: []report.Record{
			{CompanyCode: "ALP", AccountCode: "4000", Period: jan, Amount: dec(100), DataType: report.DataTypeActual},
			{CompanyCode: "BUD", AccountCode: "4000", Period: jan, Amount: dec(120), DataType: report.DataTypeBudget},
		},
	}
}

func testRouter(t *testing.T, repo *memoryRepo, cache *Cache) (chi.Router, *memoryMetricRepo) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	metricRepo := &memoryMetricRepo{}
	metricSvc := metrics.NewService(metricRepo)
	svc := report.NewService(repo)
	h, err := NewHandler(logger, svc, metricSvc, cache)
	require.NoError(t, err)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r, metricRepo
}

func TestHandleGridData(t *testing.T) {
	router, _ := testRouter(t, testRepo(), NewCache(nil))

	req := httptest.NewRequest(http.MethodGet, "/reports/pl/data?data_type=budget&from_month=1&from_year=2024&to_month=12&to_year=2024", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var payload report.GridPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.NotEmpty(t, payload.Columns)
	require.NotEmpty(t, payload.Rows)
	require.Equal(t, "Jan-24_ALP", payload.Columns[0].Field)
}

func TestHandleGridDataNoDataReturnsEmptyPayload(t *testing.T) {
	router, _ := testRouter(t, testRepo(), NewCache(nil))

	req := httptest.NewRequest(http.MethodGet, "/reports/pl/data?from_month=1&from_year=2030&to_month=3&to_year=2030", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var payload report.GridPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Empty(t, payload.Columns)
	require.Empty(t, payload.Rows)
}

func TestHandleGridDataRejectsBadFilters(t *testing.T) {
	router, _ := testRouter(t, testRepo(), NewCache(nil))

	for _, target := range []string{
		"/reports/cashflow/data?from_month=1&from_year=2024&to_month=2&to_year=2024",
		"/reports/pl/data?data_type=guess&from_month=1&from_year=2024&to_month=2&to_year=2024",
		"/reports/pl/data?from_month=13&from_year=2024&to_month=2&to_year=2024",
		"/reports/pl/data?from_month=1&to_month=2&to_year=2024",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestHandleGridDataUnmappedAccountFault(t *testing.T) {
	repo := testRepo()
	repo.records = append(repo.records, report.Record{
		CompanyCode: "ALP", AccountCode: "9999", Period: month(2024, time.January), Amount: dec(1), DataType: report.DataTypeActual,
	})
	router, _ := testRouter(t, repo, NewCache(nil))

	req := httptest.NewRequest(http.MethodGet, "/reports/pl/data?from_month=1&from_year=2024&to_month=12&to_year=2024", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleExportFormatted(t *testing.T) {
	router, _ := testRouter(t, testRepo(), NewCache(nil))

	req := httptest.NewRequest(http.MethodGet, "/reports/pl/export.xlsx?layout=formatted&from_month=1&from_year=2024&to_month=12&to_year=2024", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "pl_report_formatted.xlsx")
	require.NotZero(t, rec.Body.Len())
}

func TestHandleExportStakeholder(t *testing.T) {
	router, _ := testRouter(t, testRepo(), NewCache(nil))

	req := httptest.NewRequest(http.MethodGet, "/reports/pl/export.xlsx?layout=stakeholder&from_month=1&from_year=2024&to_month=12&to_year=2024", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Disposition"), "pl_report_stakeholders.xlsx")
}

func TestHandleExportUnknownLayout(t *testing.T) {
	router, _ := testRouter(t, testRepo(), NewCache(nil))

	req := httptest.NewRequest(http.MethodGet, "/reports/pl/export.xlsx?layout=fancy&from_month=1&from_year=2024&to_month=12&to_year=2024", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSaveBudget(t *testing.T) {
	router, metricRepo := testRouter(t, testRepo(), NewCache(nil))

	body := `{"metric_id":3,"period":"2024-02","data_type":"budget","value":"1250.50"}`
	req := httptest.NewRequest(http.MethodPut, "/metrics/budget", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, metricRepo.upserts, 1)
	saved := metricRepo.upserts[0]
	require.Equal(t, int64(3), saved.MetricID)
	require.Equal(t, month(2024, time.February), saved.Period)
	require.Equal(t, report.DataTypeBudget, saved.DataType)
	require.True(t, saved.Value.Equal(decimal.RequireFromString("1250.50")))
}

func TestHandleSaveBudgetRejectsBadInput(t *testing.T) {
	router, metricRepo := testRouter(t, testRepo(), NewCache(nil))

	for _, body := range []string{
		`{"metric_id":0,"period":"2024-02","data_type":"budget","value":"10"}`,
		`{"metric_id":3,"period":"February","data_type":"budget","value":"10"}`,
		`{"metric_id":3,"period":"2024-02","data_type":"budget","value":"ten"}`,
		`not json`,
	} {
		req := httptest.NewRequest(http.MethodPut, "/metrics/budget", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	// Actual data type passes parsing but fails the budget-view rule.
	req := httptest.NewRequest(http.MethodPut, "/metrics/budget", strings.NewReader(`{"metric_id":3,"period":"2024-02","data_type":"actual","value":"10"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Empty(t, metricRepo.upserts)
}
