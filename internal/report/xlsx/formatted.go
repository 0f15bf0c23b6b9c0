package xlsx

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/finconsol/finconsol/internal/report"
)

// WriteFormatted renders the formatted layout: the grid's rows and
// columns one to one, bold on structural rows, fill on total rows. The
// Budget column is present exactly when the report carries it.
func WriteFormatted(rep report.Report) (*excelize.File, error) {
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

	// Header: identity columns then every data column in grid order.
	headers := []string{"Account Code", "Account Name", "Type"}
	for _, col := range rep.Columns {
		headers = append(headers, col.Header)
	}
	for i, h := range headers {
		if err := f.SetCellValue(sheet, cellName(i+1, 1), h); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	if err := f.SetCellStyle(sheet, cellName(1, 1), cellName(len(headers), 1), styles.header); err != nil {
		_ = f.Close()
		return nil, err
	}

	for i := range rep.Rows {
		row := &rep.Rows[i]
		rowIdx := i + 2
		if err := f.SetCellValue(sheet, cellName(1, rowIdx), row.AccountCode); err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := f.SetCellValue(sheet, cellName(2, rowIdx), row.Name); err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := f.SetCellValue(sheet, cellName(3, rowIdx), string(row.Kind)); err != nil {
			_ = f.Close()
			return nil, err
		}
		for j, col := range rep.Columns {
			v, ok := row.Value(col)
			if err := setNumber(f, sheet, j+4, rowIdx, v.InexactFloat64(), ok); err != nil {
				_ = f.Close()
				return nil, err
			}
		}
		if row.Kind.Bold() {
			style := styles.bold
			if fillRowKind(row.Kind) {
				style = styles.boldFill
			}
			if err := f.SetCellStyle(sheet, cellName(1, rowIdx), cellName(len(headers), rowIdx), style); err != nil {
				_ = f.Close()
				return nil, err
			}
		}
	}

	if err := f.SetColWidth(sheet, "B", "B", nameColWidth); err != nil {
		_ = f.Close()
		return nil, err
	}
	if len(rep.Columns) > 0 {
		if err := f.SetColWidth(sheet, "D", colName(len(headers)), dataColWidth); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return f, nil
}

// FormattedFilename names the download for the filters.
func FormattedFilename(f report.Filters) string {
	return fmt.Sprintf("%s_report_formatted.xlsx", f.Statement)
}
