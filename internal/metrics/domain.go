// Package metrics supplies the operational metric rows rendered above
// the consolidated statement: funding and movement figures keyed by
// (company, period, metric) rather than by account. Metric rows share
// the statement's column space but are tagged so external-audience
// surfaces can drop them wholesale.
package metrics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/finconsol/finconsol/internal/report"
)

// Behavior controls how a metric's TOTAL column aggregates over time.
type Behavior string

const (
	// BehaviorPlain sums companies per period, nothing more.
	BehaviorPlain Behavior = "plain"
	// BehaviorYTD accumulates the per-period TOTAL across the range.
	BehaviorYTD Behavior = "ytd"
	// BehaviorCumulative seeds January from input and rolls forward by
	// adding the source metric's value each later month, per company.
	BehaviorCumulative Behavior = "cumulative"
)

// Metric is one operational row definition.
type Metric struct {
	ID             int64
	Name           string
	DisplayOrder   int
	Behavior       Behavior
	SourceMetricID int64
}

// Value is one raw per-company metric observation.
type Value struct {
	MetricID    int64
	CompanyCode string
	Period      time.Time
	Value       decimal.Decimal
}

// BudgetValue is a consolidated budget/forecast figure for one metric
// and period. Not attributed to any company.
type BudgetValue struct {
	MetricID int64
	Period   time.Time
	Value    decimal.Decimal
	DataType report.DataType
}
