package report

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PGRepository provides the store reads of the engine against Postgres.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a report repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Companies returns every reporting entity with its stream-membership
// predicate.
func (r *PGRepository) Companies(ctx context.Context) ([]Company, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("report repo not initialised")
	}
	const query = `
SELECT code, name, budget_only
FROM companies
ORDER BY code`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.Code, &c.Name, &c.BudgetOnly); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// ChartEntries returns the chart slice for the given account types in
// sort order.
func (r *PGRepository) ChartEntries(ctx context.Context, types []AccountType) ([]ChartEntry, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("report repo not initialised")
	}
	typeTokens := make([]string, len(types))
	for i, t := range types {
		typeTokens[i] = string(t)
	}
	const query = `
SELECT account_code, account_name, account_type, parent_category, sub_category, sort_order, COALESCE(formula, '')
FROM chart_of_accounts
WHERE lower(account_type) = ANY($1)
ORDER BY sort_order`
	rows, err := r.pool.Query(ctx, query, typeTokens)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ChartEntry
	for rows.Next() {
		var (
			e       ChartEntry
			rawType string
		)
		if err := rows.Scan(&e.AccountCode, &e.AccountName, &rawType, &e.ParentCategory, &e.SubCategory, &e.SortOrder, &e.Formula); err != nil {
			return nil, err
		}
		accType, err := ParseAccountType(rawType)
		if err != nil {
			return nil, err
		}
		e.Type = accType
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DistinctPeriods returns the ordered distinct first-of-month periods
// carrying at least one record under the filter. The range bound is the
// half-open [start, end_exclusive) interval.
func (r *PGRepository) DistinctPeriods(ctx context.Context, f RecordFilter) ([]time.Time, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("report repo not initialised")
	}
	const query = `
SELECT DISTINCT period
FROM financial_records
WHERE company_code = ANY($1)
  AND lower(data_type) = $2
  AND account_code = ANY($3)
  AND period >= $4
  AND period < $5
ORDER BY period`
	rows, err := r.pool.Query(ctx, query, f.CompanyCodes, string(f.DataType), f.AccountCodes, f.Range.Start, f.Range.EndExclusive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []time.Time
	for rows.Next() {
		var p time.Time
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		periods = append(periods, MonthStart(p))
	}
	return periods, rows.Err()
}

// Records returns the raw financial records for the filter, restricted
// to the resolved period set.
func (r *PGRepository) Records(ctx context.Context, f RecordFilter) ([]Record, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("report repo not initialised")
	}
	const query = `
SELECT company_code, account_code, period, amount::text, lower(data_type)
FROM financial_records
WHERE company_code = ANY($1)
  AND lower(data_type) = $2
  AND account_code = ANY($3)
  AND period = ANY($4)
ORDER BY period, company_code, account_code`
	rows, err := r.pool.Query(ctx, query, f.CompanyCodes, string(f.DataType), f.AccountCodes, f.Periods)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec       Record
			rawAmount string
			rawType   string
		)
		if err := rows.Scan(&rec.CompanyCode, &rec.AccountCode, &rec.Period, &rawAmount, &rawType); err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(rawAmount)
		if err != nil {
			return nil, fmt.Errorf("report: parse amount %q: %w", rawAmount, err)
		}
		dataType, err := ParseDataType(rawType)
		if err != nil {
			return nil, err
		}
		rec.Amount = amount
		rec.DataType = dataType
		rec.Period = MonthStart(rec.Period)
		records = append(records, rec)
	}
	return records, rows.Err()
}
