package report

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ValueIndex is the per-request lookup of raw amounts:
// period → company → account for the actual stream, and
// period → account for the consolidated budget stream.
type ValueIndex struct {
	actual map[time.Time]map[string]map[string]decimal.Decimal
	budget map[time.Time]map[string]decimal.Decimal
}

// NewValueIndex ingests both record streams. Every record must resolve
// through the chart index; an unmapped account aborts the build with a
// hierarchy-integrity fault so totals are never silently short. Records
// from the budget-only company land in the budget map and are summed
// when the store holds several entries per (period, account).
func NewValueIndex(idx *ChartIndex, actual, budget []Record) (*ValueIndex, error) {
	v := &ValueIndex{
		actual: make(map[time.Time]map[string]map[string]decimal.Decimal),
		budget: make(map[time.Time]map[string]decimal.Decimal),
	}
	for _, rec := range actual {
		if _, ok := idx.Lookup(rec.AccountCode); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnmappedAccount, rec.AccountCode)
		}
		p := MonthStart(rec.Period)
		byCompany := v.actual[p]
		if byCompany == nil {
			byCompany = make(map[string]map[string]decimal.Decimal)
			v.actual[p] = byCompany
		}
		byAccount := byCompany[rec.CompanyCode]
		if byAccount == nil {
			byAccount = make(map[string]decimal.Decimal)
			byCompany[rec.CompanyCode] = byAccount
		}
		byAccount[rec.AccountCode] = byAccount[rec.AccountCode].Add(rec.Amount)
	}
	for _, rec := range budget {
		if _, ok := idx.Lookup(rec.AccountCode); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnmappedAccount, rec.AccountCode)
		}
		p := MonthStart(rec.Period)
		byAccount := v.budget[p]
		if byAccount == nil {
			byAccount = make(map[string]decimal.Decimal)
			v.budget[p] = byAccount
		}
		byAccount[rec.AccountCode] = byAccount[rec.AccountCode].Add(rec.Amount)
	}
	return v, nil
}

// Actual returns one actual-stream amount, zero when absent.
func (v *ValueIndex) Actual(p time.Time, companyCode, accountCode string) decimal.Decimal {
	if byCompany, ok := v.actual[p]; ok {
		if byAccount, ok := byCompany[companyCode]; ok {
			return byAccount[accountCode]
		}
	}
	return decimal.Zero
}

// Budget returns one consolidated budget amount, zero when absent.
func (v *ValueIndex) Budget(p time.Time, accountCode string) decimal.Decimal {
	if byAccount, ok := v.budget[p]; ok {
		return byAccount[accountCode]
	}
	return decimal.Zero
}

// DerivedSpec declares a derived-total row as a signed combination of
// already-materialized rows. Terms name parent categories (their
// parent-total rows) or earlier derived rows, so derived figures are
// computed from materialized totals, never re-queried from records.
type DerivedSpec struct {
	Name        string
	Plus        []string
	Minus       []string
	AfterParent string
}

// DefaultProfitLossDerived is the standard P&L derived chain: Gross
// Profit, Net Profit Before Tax and Net Profit After Tax, anchored on
// the Income / Cost of Funds / Overheads / Taxes parent categories.
func DefaultProfitLossDerived() []DerivedSpec {
	return []DerivedSpec{
		{Name: "Gross Profit", Plus: []string{"Income"}, Minus: []string{"Cost of Funds"}, AfterParent: "Cost of Funds"},
		{Name: "Net Profit Before Tax", Plus: []string{"Gross Profit"}, Minus: []string{"Overheads"}, AfterParent: "Overheads"},
		{Name: "Net Profit After Tax", Plus: []string{"Net Profit Before Tax"}, Minus: []string{"Taxes"}},
	}
}

// DefaultBalanceSheetDerived is the balance check row: Assets less
// Liabilities less Equity, zero on a balanced sheet.
func DefaultBalanceSheetDerived() []DerivedSpec {
	return []DerivedSpec{
		{Name: "CHECK (Assets - Liabilities - Equity)", Plus: []string{"Assets"}, Minus: []string{"Liabilities", "Equity"}},
	}
}

// MatrixParams bundles the inputs of one matrix build.
type MatrixParams struct {
	Index      *ChartIndex
	Streams    Streams
	Periods    []time.Time
	Values     *ValueIndex
	BudgetView bool
	Derived    []DerivedSpec
}

// BuildMatrix walks the category hierarchy and emits the full row set:
// per parent category a section header, then per sub category a sub
// header, its account rows and a subtotal, then the parent-total row,
// then any derived rows anchored after that parent. Derived rows with no
// anchor follow at the end. Account rows that are zero across the whole
// range are suppressed; structural rows always remain.
//
// Every row carries the same column space: one value per actual-stream
// company, TOTAL as the sum over those companies, and the consolidated
// Budget figure (Budget/Forecast views only) which is never added to
// TOTAL. Grand totals sum the already-computed per-period cells, so
// consistency holds by construction.
func BuildMatrix(p MatrixParams) ([]Row, error) {
	codes := p.Streams.ActualCodes()
	rows := make([]Row, 0, p.Index.Len()*2)
	totalsByLabel := make(map[string]*Row)

	appendDerived := func(anchor string) error {
		for _, spec := range p.Derived {
			if spec.AfterParent != anchor {
				continue
			}
			row, err := deriveRow(spec, totalsByLabel, p, codes)
			if err != nil {
				return err
			}
			totalsByLabel[spec.Name] = row
			rows = append(rows, *row)
		}
		return nil
	}

	for _, group := range p.Index.Categories() {
		groupKey := Slugify(group.Name)
		rows = append(rows, Row{
			Kind:      KindSectionHeader,
			Level:     0,
			GroupKey:  groupKey,
			Name:      group.Name,
			Section:   groupKey,
			SortOrder: group.SortOrder,
		})

		parentTotal := newValueRow(KindParentTotal, 0, groupKey, "Total "+group.Name, "", groupKey, group.SortOrder, codes, p.Periods)

		for _, sub := range group.Subs {
			subKey := Slugify(sub.Name)
			rows = append(rows, Row{
				Kind:      KindSubHeader,
				Level:     1,
				GroupKey:  subKey,
				Name:      sub.Name,
				Section:   groupKey,
				SortOrder: sub.SortOrder,
			})

			subtotal := newValueRow(KindSubtotal, 1, subKey, "Total "+sub.Name, "", groupKey, sub.SortOrder, codes, p.Periods)

			for _, acc := range sub.Accounts {
				row := newValueRow(KindAccount, 2, subKey, acc.AccountName, acc.AccountCode, groupKey, acc.SortOrder, codes, p.Periods)
				for _, period := range p.Periods {
					cells := row.Periods[period]
					for _, code := range codes {
						v := p.Values.Actual(period, code, acc.AccountCode)
						cells.Companies[code] = v
						cells.Total = cells.Total.Add(v)
					}
					if p.BudgetView {
						cells.AddBudget(p.Values.Budget(period, acc.AccountCode))
					}
					accumulate(subtotal.Periods[period], cells, codes)
					accumulate(parentTotal.Periods[period], cells, codes)
				}
				finishGrand(row, codes, p.Periods)
				if !rowIsZero(row, p.Periods) {
					rows = append(rows, *row)
				}
			}

			finishGrand(subtotal, codes, p.Periods)
			rows = append(rows, *subtotal)
		}

		finishGrand(parentTotal, codes, p.Periods)
		totalsByLabel[group.Name] = parentTotal
		rows = append(rows, *parentTotal)

		if err := appendDerived(group.Name); err != nil {
			return nil, err
		}
	}

	if err := appendDerived(""); err != nil {
		return nil, err
	}
	return rows, nil
}

func newValueRow(kind RowKind, level int, groupKey, name, accountCode, section string, sortOrder int, codes []string, periods []time.Time) *Row {
	row := &Row{
		Kind:        kind,
		Level:       level,
		GroupKey:    groupKey,
		Name:        name,
		AccountCode: accountCode,
		Section:     section,
		SortOrder:   sortOrder,
		Periods:     make(map[time.Time]*Cells, len(periods)),
		Grand:       NewCells(codes),
	}
	for _, p := range periods {
		row.Periods[p] = NewCells(codes)
	}
	return row
}

func accumulate(dst, src *Cells, codes []string) {
	for _, code := range codes {
		dst.Companies[code] = dst.Companies[code].Add(src.Companies[code])
	}
	dst.Total = dst.Total.Add(src.Total)
	if src.HasBudget {
		dst.AddBudget(src.Budget)
	}
}

// finishGrand folds the per-period cells of a row into its grand-total
// block. The budget-only company contributes no company-keyed grand
// total; only the consolidated Budget figure aggregates.
func finishGrand(row *Row, codes []string, periods []time.Time) {
	for _, p := range periods {
		accumulate(row.Grand, row.Periods[p], codes)
	}
}

func rowIsZero(row *Row, periods []time.Time) bool {
	for _, p := range periods {
		if !row.Periods[p].IsZero() {
			return false
		}
	}
	return true
}

func deriveRow(spec DerivedSpec, totals map[string]*Row, p MatrixParams, codes []string) (*Row, error) {
	row := newValueRow(KindDerivedTotal, 0, Slugify(spec.Name), spec.Name, "", "summary", 0, codes, p.Periods)

	apply := func(label string, sign decimal.Decimal) error {
		src, ok := totals[label]
		if !ok {
			return fmt.Errorf("report: derived row %q references unknown total %q", spec.Name, label)
		}
		for _, period := range p.Periods {
			dst := row.Periods[period]
			cells := src.Periods[period]
			for _, code := range codes {
				dst.Companies[code] = dst.Companies[code].Add(cells.Companies[code].Mul(sign))
			}
			dst.Total = dst.Total.Add(cells.Total.Mul(sign))
			if cells.HasBudget {
				dst.AddBudget(cells.Budget.Mul(sign))
			}
		}
		return nil
	}

	one := decimal.NewFromInt(1)
	for _, label := range spec.Plus {
		if err := apply(label, one); err != nil {
			return nil, err
		}
	}
	for _, label := range spec.Minus {
		if err := apply(label, one.Neg()); err != nil {
			return nil, err
		}
	}
	finishGrand(row, codes, p.Periods)
	return row, nil
}
