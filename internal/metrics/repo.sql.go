package metrics

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/finconsol/finconsol/internal/platform/db"
	"github.com/finconsol/finconsol/internal/report"
)

// PGRepository persists metric definitions and values in Postgres.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a metrics repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ActiveMetrics returns enabled metric definitions in display order.
func (r *PGRepository) ActiveMetrics(ctx context.Context) ([]Metric, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("metrics repo not initialised")
	}
	const query = `
SELECT id, name, display_order, behavior, COALESCE(source_metric_id, 0)
FROM dashboard_metrics
WHERE is_active
ORDER BY display_order`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []Metric
	for rows.Next() {
		var m Metric
		var behavior string
		if err := rows.Scan(&m.ID, &m.Name, &m.DisplayOrder, &behavior, &m.SourceMetricID); err != nil {
			return nil, err
		}
		m.Behavior = Behavior(behavior)
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// Values returns the per-company metric observations inside the range.
func (r *PGRepository) Values(ctx context.Context, rng report.Range) ([]Value, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("metrics repo not initialised")
	}
	const query = `
SELECT metric_id, company_code, period, value::text
FROM dashboard_metric_values
WHERE period >= $1 AND period < $2
ORDER BY period, company_code`
	rows, err := r.pool.Query(ctx, query, rng.Start, rng.EndExclusive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []Value
	for rows.Next() {
		var (
			v   Value
			raw string
		)
		if err := rows.Scan(&v.MetricID, &v.CompanyCode, &v.Period, &raw); err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("metrics: parse value %q: %w", raw, err)
		}
		v.Value = amount
		v.Period = report.MonthStart(v.Period)
		values = append(values, v)
	}
	return values, rows.Err()
}

// BudgetValues returns the consolidated budget figures inside the range.
func (r *PGRepository) BudgetValues(ctx context.Context, dataType report.DataType, rng report.Range) ([]BudgetValue, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("metrics repo not initialised")
	}
	const query = `
SELECT metric_id, period, value::text
FROM dashboard_metric_budgets
WHERE lower(data_type) = $1 AND period >= $2 AND period < $3
ORDER BY period`
	rows, err := r.pool.Query(ctx, query, string(dataType), rng.Start, rng.EndExclusive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []BudgetValue
	for rows.Next() {
		var (
			v   BudgetValue
			raw string
		)
		if err := rows.Scan(&v.MetricID, &v.Period, &raw); err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("metrics: parse budget value %q: %w", raw, err)
		}
		v.Value = amount
		v.DataType = dataType
		v.Period = report.MonthStart(v.Period)
		values = append(values, v)
	}
	return values, rows.Err()
}

// UpsertBudgetValue writes one consolidated budget cell under a
// transaction-scoped advisory lock on the cell's natural key, so
// concurrent edits of the same cell serialize.
func (r *PGRepository) UpsertBudgetValue(ctx context.Context, v BudgetValue) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("metrics repo not initialised")
	}
	lockKey := fmt.Sprintf("metric-budget:%d:%s:%s", v.MetricID, report.PeriodKey(v.Period), v.DataType)
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
			return fmt.Errorf("metrics: acquire cell lock: %w", err)
		}
		const upsert = `
INSERT INTO dashboard_metric_budgets (metric_id, period, data_type, value)
VALUES ($1, $2, $3, $4)
ON CONFLICT (metric_id, period, data_type)
DO UPDATE SET value = EXCLUDED.value`
		if _, err := tx.Exec(ctx, upsert, v.MetricID, v.Period, string(v.DataType), v.Value.String()); err != nil {
			return fmt.Errorf("metrics: upsert budget value: %w", err)
		}
		return nil
	})
}
