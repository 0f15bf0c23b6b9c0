package report

import (
	"fmt"
	"time"
)

// ColumnKind tags the structural role of a column.
type ColumnKind string

const (
	ColumnCompany      ColumnKind = "company"
	ColumnTotal        ColumnKind = "total"
	ColumnBudget       ColumnKind = "budget"
	ColumnGrandCompany ColumnKind = "grand_company"
	ColumnGrandTotal   ColumnKind = "grand_total"
	ColumnGrandBudget  ColumnKind = "grand_budget"
)

// Grand reports whether the column spans the whole selected range.
func (k ColumnKind) Grand() bool {
	switch k {
	case ColumnGrandCompany, ColumnGrandTotal, ColumnGrandBudget:
		return true
	}
	return false
}

// Column is one ordered column definition. Keys derive from the company
// code, never the display name, so renames cannot invalidate saved view
// state. Colors assign by ordering position, not name.
type Column struct {
	Key         string
	Header      string
	Kind        ColumnKind
	Period      time.Time
	CompanyCode string
	Color       string
	Editable    bool
	Hidden      bool
}

// Soft palette cycled over company columns by position. TOTAL and Budget
// carry fixed reserved colors so they read the same in every view.
var (
	companyPalette = []string{"#E6F3FF", "#E8F5E9", "#F0F4FF", "#E6F7F7", "#F6F8E7", "#F0E6FF", "#F5F5F5"}
	totalColor     = "#FFF9E6"
	budgetColor    = "#F0F0FF"
)

// CompanyColor returns the palette color for the company at position i
// of the stable code-sorted ordering.
func CompanyColor(i int) string {
	return companyPalette[i%len(companyPalette)]
}

// PlanParams bundles the inputs of one column plan.
type PlanParams struct {
	Streams    Streams
	Periods    []time.Time
	BudgetView bool
}

// PlanColumns emits the full ordered column space: per period the
// actual-stream companies, then TOTAL, then Budget (Budget/Forecast
// views only); after all periods the grand-total columns in the same
// order. The budget-only company's grand total is intentionally absent —
// emitting it would collide with the single consolidated Budget
// grand-total key.
func PlanColumns(p PlanParams) []Column {
	cols := make([]Column, 0, (len(p.Streams.Actual)+2)*(len(p.Periods)+1))

	for _, period := range p.Periods {
		month := PeriodLabel(period)
		for i, c := range p.Streams.Actual {
			cols = append(cols, Column{
				Key:         fmt.Sprintf("%s_%s", month, c.Code),
				Header:      fmt.Sprintf("%s %s", month, c.Code),
				Kind:        ColumnCompany,
				Period:      period,
				CompanyCode: c.Code,
				Color:       CompanyColor(i),
			})
		}
		cols = append(cols, Column{
			Key:    fmt.Sprintf("%s_TOTAL", month),
			Header: fmt.Sprintf("%s TOTAL", month),
			Kind:   ColumnTotal,
			Period: period,
			Color:  totalColor,
		})
		if p.BudgetView {
			cols = append(cols, Column{
				Key:      fmt.Sprintf("%s_Budget", month),
				Header:   fmt.Sprintf("%s Budget", month),
				Kind:     ColumnBudget,
				Period:   period,
				Color:    budgetColor,
				Editable: true,
			})
		}
	}

	for i, c := range p.Streams.Actual {
		cols = append(cols, Column{
			Key:         "grand_total_" + c.Code,
			Header:      "Grand Total " + c.Code,
			Kind:        ColumnGrandCompany,
			CompanyCode: c.Code,
			Color:       CompanyColor(i),
		})
	}
	cols = append(cols, Column{
		Key:    "grand_total_TOTAL",
		Header: "Grand Total",
		Kind:   ColumnGrandTotal,
		Color:  totalColor,
	})
	if p.BudgetView {
		cols = append(cols, Column{
			Key:    "grand_total_Budget",
			Header: "Grand Total Budget",
			Kind:   ColumnGrandBudget,
			Color:  budgetColor,
		})
	}
	return cols
}

// ApplyVisibility flags company columns that carry no non-zero value in
// the built rows as hidden. Hidden columns keep their position and key;
// they are filtered by surfaces that want them gone (the stakeholder
// export) and merely collapsed by the grid.
func ApplyVisibility(cols []Column, rows []Row) {
	nonZero := make(map[string]struct{})
	activeCompanies := make(map[string]struct{})
	for _, row := range rows {
		for period, cells := range row.Periods {
			if cells == nil {
				continue
			}
			for code, v := range cells.Companies {
				if v.IsZero() {
					continue
				}
				nonZero[PeriodKey(period)+"|"+code] = struct{}{}
				activeCompanies[code] = struct{}{}
			}
		}
	}
	for i := range cols {
		switch cols[i].Kind {
		case ColumnCompany:
			_, ok := nonZero[PeriodKey(cols[i].Period)+"|"+cols[i].CompanyCode]
			cols[i].Hidden = !ok
		case ColumnGrandCompany:
			_, ok := activeCompanies[cols[i].CompanyCode]
			cols[i].Hidden = !ok
		}
	}
}
