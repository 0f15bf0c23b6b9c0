package xlsx

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/finconsol/finconsol/internal/report"
)

// WriteStakeholder renders the external-audience layout: companies
// grouped under each period with merged headers, operational rows and
// account codes dropped, company columns with no data in range hidden
// entirely, and two independent collapse dimensions — account rows fold
// into their totals, company columns fold into TOTAL/Budget. The sheet's
// summary-below and summary-right flags match the outline levels;
// without them spreadsheet viewers place the collapse controls on the
// wrong side and refuse to render them.
func WriteStakeholder(rep report.Report) (*excelize.File, error) {
	sheet := sheetName(rep.Filters.Statement)
	f, err := newSheet(sheet)
	if err != nil {
		return nil, err
	}
	styles, err := newStyles(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	// Visible data columns, grouped by period with the grand block last.
	type span struct {
		label string
		cols  []report.Column
	}
	var spans []span
	for _, p := range rep.Periods {
		spans = append(spans, span{label: report.PeriodLabel(p)})
	}
	grand := span{label: "Grand Total"}
	for _, col := range rep.Columns {
		if col.Hidden {
			continue
		}
		if col.Kind.Grand() {
			grand.cols = append(grand.cols, col)
			continue
		}
		for i := range spans {
			if spans[i].label == report.PeriodLabel(col.Period) {
				spans[i].cols = append(spans[i].cols, col)
				break
			}
		}
	}
	spans = append(spans, grand)

	rows := make([]*report.Row, 0, len(rep.Rows))
	for i := range rep.Rows {
		row := &rep.Rows[i]
		if row.Kind == report.KindMetric || row.Kind == report.KindSpacer {
			continue
		}
		rows = append(rows, row)
	}

	// Header band: merged period labels on row 1, column names on row 2.
	if err := f.SetCellValue(sheet, "A1", "Account Name"); err != nil {
		_ = f.Close()
		return nil, err
	}
	colIdx := 2
	for _, sp := range spans {
		if len(sp.cols) == 0 {
			continue
		}
		if err := f.SetCellValue(sheet, cellName(colIdx, 1), sp.label); err != nil {
			_ = f.Close()
			return nil, err
		}
		if len(sp.cols) > 1 {
			if err := f.MergeCell(sheet, cellName(colIdx, 1), cellName(colIdx+len(sp.cols)-1, 1)); err != nil {
				_ = f.Close()
				return nil, err
			}
		}
		for i, col := range sp.cols {
			if err := f.SetCellValue(sheet, cellName(colIdx+i, 2), col.Header); err != nil {
				_ = f.Close()
				return nil, err
			}
		}
		colIdx += len(sp.cols)
	}
	lastCol := colIdx - 1
	if err := f.SetCellStyle(sheet, "A1", cellName(lastCol, 1), styles.header); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A2", cellName(lastCol, 2), styles.subHeader); err != nil {
		_ = f.Close()
		return nil, err
	}

	// Data rows. Zeros stay blank so collapsed groups read clean.
	for i, row := range rows {
		rowIdx := i + 3
		if err := f.SetCellValue(sheet, cellName(1, rowIdx), row.Name); err != nil {
			_ = f.Close()
			return nil, err
		}
		c := 2
		for _, sp := range spans {
			for _, col := range sp.cols {
				v, ok := row.Value(col)
				if err := setNumber(f, sheet, c, rowIdx, v.InexactFloat64(), ok && !v.IsZero()); err != nil {
					_ = f.Close()
					return nil, err
				}
				c++
			}
		}
		if row.Kind.Bold() {
			style := styles.bold
			if fillRowKind(row.Kind) {
				style = styles.boldFill
			}
			if err := f.SetCellStyle(sheet, cellName(1, rowIdx), cellName(lastCol, rowIdx), style); err != nil {
				_ = f.Close()
				return nil, err
			}
		}
		if row.Kind == report.KindAccount {
			if err := f.SetRowOutlineLevel(sheet, rowIdx, 1); err != nil {
				_ = f.Close()
				return nil, err
			}
		}
	}

	// Column outline: company detail folds into the summary columns.
	c := 2
	for _, sp := range spans {
		for _, col := range sp.cols {
			if col.Kind == report.ColumnCompany || col.Kind == report.ColumnGrandCompany {
				if err := f.SetColOutlineLevel(sheet, colName(c), 1); err != nil {
					_ = f.Close()
					return nil, err
				}
			}
			c++
		}
	}

	summary := true
	if err := f.SetSheetProps(sheet, &excelize.SheetPropsOptions{
		OutlineSummaryBelow: &summary,
		OutlineSummaryRight: &summary,
	}); err != nil {
		_ = f.Close()
		return nil, err
	}

	if err := f.SetColWidth(sheet, "A", "A", nameColWidth); err != nil {
		_ = f.Close()
		return nil, err
	}
	if lastCol >= 2 {
		if err := f.SetColWidth(sheet, "B", colName(lastCol), dataColWidth); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      2,
		TopLeftCell: "B3",
		ActivePane:  "bottomRight",
	}); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// StakeholderFilename names the download for the filters.
func StakeholderFilename(f report.Filters) string {
	return fmt.Sprintf("%s_report_stakeholders.xlsx", f.Statement)
}
