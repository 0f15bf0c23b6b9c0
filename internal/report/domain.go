// Package report implements the consolidation engine that turns raw
// per-company financial records into the hierarchical report matrix
// served to the grid and the spreadsheet exports.
package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Sentinel errors surfaced by the engine.
var (
	// ErrUnmappedAccount indicates a financial record references an account
	// code absent from the chart of accounts. Totals would silently come up
	// short if such records were skipped, so the whole build aborts.
	ErrUnmappedAccount = errors.New("report: account not in chart of accounts")

	// ErrDuplicateAccount indicates the chart of accounts maps one account
	// code to more than one entry.
	ErrDuplicateAccount = errors.New("report: duplicate chart of accounts entry")

	// ErrStreamConfig indicates the company set holds more than one
	// budget-only company.
	ErrStreamConfig = errors.New("report: more than one budget-only company configured")
)

// DataType selects which stream of records a report reads.
type DataType string

const (
	DataTypeActual   DataType = "actual"
	DataTypeBudget   DataType = "budget"
	DataTypeForecast DataType = "forecast"
)

// ParseDataType normalises a user supplied selector. Matching is
// case-insensitive; empty input defaults to actual.
func ParseDataType(raw string) (DataType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "actual":
		return DataTypeActual, nil
	case "budget":
		return DataTypeBudget, nil
	case "forecast":
		return DataTypeForecast, nil
	default:
		return "", fmt.Errorf("report: unknown data type %q", raw)
	}
}

// BudgetView reports whether the selector surfaces the consolidated
// Budget column.
func (d DataType) BudgetView() bool {
	return d == DataTypeBudget || d == DataTypeForecast
}

// AccountType classifies an account in the chart of accounts.
type AccountType string

const (
	AccountIncome    AccountType = "income"
	AccountExpense   AccountType = "expense"
	AccountAsset     AccountType = "asset"
	AccountLiability AccountType = "liability"
	AccountEquity    AccountType = "equity"
)

// ParseAccountType normalises chart metadata loaded from the store.
func ParseAccountType(raw string) (AccountType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "income", "revenue":
		return AccountIncome, nil
	case "expense":
		return AccountExpense, nil
	case "asset":
		return AccountAsset, nil
	case "liability":
		return AccountLiability, nil
	case "equity":
		return AccountEquity, nil
	default:
		return "", fmt.Errorf("report: unknown account type %q", raw)
	}
}

// Statement identifies which slice of the chart a report covers.
type Statement string

const (
	StatementProfitLoss   Statement = "pl"
	StatementBalanceSheet Statement = "bs"
)

// ParseStatement resolves a statement identifier from a URL segment.
func ParseStatement(raw string) (Statement, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pl":
		return StatementProfitLoss, nil
	case "bs":
		return StatementBalanceSheet, nil
	default:
		return "", fmt.Errorf("report: unknown statement %q", raw)
	}
}

// AccountTypes returns the chart slice the statement is built from.
func (s Statement) AccountTypes() []AccountType {
	if s == StatementBalanceSheet {
		return []AccountType{AccountAsset, AccountLiability, AccountEquity}
	}
	return []AccountType{AccountIncome, AccountExpense}
}

// Title returns the display title used by exports.
func (s Statement) Title() string {
	if s == StatementBalanceSheet {
		return "Balance Sheet Report"
	}
	return "P&L Report"
}

// Company is a reporting entity. Stream membership is carried as a
// predicate flag so renaming a company never changes its role.
type Company struct {
	Code       string
	Name       string
	BudgetOnly bool
}

// ChartEntry maps an account code into the two-level category hierarchy.
type ChartEntry struct {
	AccountCode    string
	AccountName    string
	Type           AccountType
	ParentCategory string
	SubCategory    string
	SortOrder      int
	Formula        string
}

// Record is a single raw financial fact: one amount for one company,
// account, first-of-month period and data type.
type Record struct {
	CompanyCode string
	AccountCode string
	Period      time.Time
	Amount      decimal.Decimal
	DataType    DataType
}

// RowKind tags the structural role of a report row. Renderers branch on
// this tag, never on row labels, which are caller-configurable data.
type RowKind string

const (
	KindSectionHeader RowKind = "section_header"
	KindSubHeader     RowKind = "sub_header"
	KindAccount       RowKind = "account"
	KindSubtotal      RowKind = "sub_total"
	KindParentTotal   RowKind = "parent_total"
	KindDerivedTotal  RowKind = "derived_total"
	KindMetric        RowKind = "metric"
	KindSpacer        RowKind = "spacer"
)

// Structural reports whether the row is kept regardless of values.
func (k RowKind) Structural() bool {
	switch k {
	case KindSectionHeader, KindSubHeader, KindSubtotal, KindParentTotal, KindDerivedTotal, KindSpacer:
		return true
	}
	return false
}

// Bold reports whether exports render the row in bold.
func (k RowKind) Bold() bool {
	switch k {
	case KindSectionHeader, KindSubHeader, KindSubtotal, KindParentTotal, KindDerivedTotal:
		return true
	}
	return false
}

// Cells holds the column-space values of one row for one period (or for
// the grand-total span). The consolidated Budget figure lives beside the
// per-company values and is never folded into Total.
type Cells struct {
	Companies map[string]decimal.Decimal
	Total     decimal.Decimal
	Budget    decimal.Decimal
	HasBudget bool
}

// NewCells allocates a cell block for the given actual-stream codes.
func NewCells(companyCodes []string) *Cells {
	c := &Cells{Companies: make(map[string]decimal.Decimal, len(companyCodes))}
	for _, code := range companyCodes {
		c.Companies[code] = decimal.Zero
	}
	return c
}

// Company returns the value for one actual-stream company, zero when the
// company has no record.
func (c *Cells) Company(code string) decimal.Decimal {
	if c == nil || c.Companies == nil {
		return decimal.Zero
	}
	return c.Companies[code]
}

// AddBudget accumulates into the consolidated Budget figure.
func (c *Cells) AddBudget(v decimal.Decimal) {
	c.Budget = c.Budget.Add(v)
	c.HasBudget = true
}

// IsZero reports whether every value in the block is zero.
func (c *Cells) IsZero() bool {
	if c == nil {
		return true
	}
	for _, v := range c.Companies {
		if !v.IsZero() {
			return false
		}
	}
	return c.Total.IsZero() && c.Budget.IsZero()
}

// Row is one line of the report matrix. Rebuilt per request, never stored.
type Row struct {
	Kind        RowKind
	Level       int
	GroupKey    string
	Name        string
	AccountCode string
	Section     string
	SortOrder   int
	Periods     map[time.Time]*Cells
	Grand       *Cells
}

// PeriodCells returns the cell block for a period, which may be nil on
// header and spacer rows.
func (r *Row) PeriodCells(p time.Time) *Cells {
	if r.Periods == nil {
		return nil
	}
	return r.Periods[p]
}

// Key derives a stable identifier for the row, used to anchor saved view
// state and cell-level annotations across rebuilds.
func (r *Row) Key() string {
	code := r.AccountCode
	if code == "" {
		code = r.GroupKey
	}
	if code == "" {
		code = Slugify(r.Name)
	}
	return fmt.Sprintf("%s__%s__%d", r.Kind, code, r.SortOrder)
}

// Slugify collapses a display label to a lowercase token usable as a
// grouping key. Labels are data, so keys never feed rendering decisions.
func Slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
