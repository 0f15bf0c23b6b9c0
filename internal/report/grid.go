package report

import (
	"github.com/shopspring/decimal"
)

// Value resolves the cell of this row under a column definition. The
// second return is false when the cell does not exist for the row
// (header and spacer rows, or the Budget cell outside budget views).
func (r *Row) Value(col Column) (decimal.Decimal, bool) {
	var cells *Cells
	if col.Kind.Grand() {
		cells = r.Grand
	} else {
		cells = r.PeriodCells(col.Period)
	}
	if cells == nil {
		return decimal.Zero, false
	}
	switch col.Kind {
	case ColumnCompany, ColumnGrandCompany:
		return cells.Company(col.CompanyCode), true
	case ColumnTotal, ColumnGrandTotal:
		return cells.Total, true
	case ColumnBudget, ColumnGrandBudget:
		if !cells.HasBudget {
			return decimal.Zero, false
		}
		return cells.Budget, true
	}
	return decimal.Zero, false
}

// ColumnDef is the wire form of a column definition for the grid.
type ColumnDef struct {
	Field       string     `json:"field"`
	Header      string     `json:"headerName"`
	Kind        ColumnKind `json:"colType"`
	PeriodKey   string     `json:"periodKey,omitempty"`
	CompanyCode string     `json:"companyCode,omitempty"`
	Color       string     `json:"color,omitempty"`
	Editable    bool       `json:"editable,omitempty"`
	Hidden      bool       `json:"hide"`
}

// GridRow is the wire form of one row. Cell values are keyed by column
// field; zeros travel as nulls so the grid renders blank cells.
type GridRow struct {
	Key         string              `json:"rowKey"`
	Kind        RowKind             `json:"rowType"`
	Level       int                 `json:"level"`
	GroupKey    string              `json:"groupKey,omitempty"`
	Section     string              `json:"section,omitempty"`
	AccountCode string              `json:"accountCode,omitempty"`
	AccountName string              `json:"accountName"`
	Cells       map[string]*float64 `json:"cells"`
}

// GridPayload is the `{columns, rows}` document consumed by the
// interactive renderer.
type GridPayload struct {
	Columns []ColumnDef `json:"columns"`
	Rows    []GridRow   `json:"rows"`
}

// BuildGrid flattens a report into the grid payload. Column order and
// keys are preserved exactly; renderers branch on the tagged kind and
// level fields only.
func BuildGrid(rep Report) GridPayload {
	payload := GridPayload{
		Columns: make([]ColumnDef, 0, len(rep.Columns)),
		Rows:    make([]GridRow, 0, len(rep.Rows)),
	}
	for _, col := range rep.Columns {
		def := ColumnDef{
			Field:       col.Key,
			Header:      col.Header,
			Kind:        col.Kind,
			CompanyCode: col.CompanyCode,
			Color:       col.Color,
			Editable:    col.Editable,
			Hidden:      col.Hidden,
		}
		if !col.Kind.Grand() {
			def.PeriodKey = PeriodKey(col.Period)
		}
		payload.Columns = append(payload.Columns, def)
	}
	for i := range rep.Rows {
		row := &rep.Rows[i]
		grid := GridRow{
			Key:         row.Key(),
			Kind:        row.Kind,
			Level:       row.Level,
			GroupKey:    row.GroupKey,
			Section:     row.Section,
			AccountCode: row.AccountCode,
			AccountName: row.Name,
			Cells:       make(map[string]*float64, len(rep.Columns)),
		}
		for _, col := range rep.Columns {
			v, ok := row.Value(col)
			if !ok || v.IsZero() {
				grid.Cells[col.Key] = nil
				continue
			}
			f := v.InexactFloat64()
			grid.Cells[col.Key] = &f
		}
		payload.Rows = append(payload.Rows, grid)
	}
	return payload
}
