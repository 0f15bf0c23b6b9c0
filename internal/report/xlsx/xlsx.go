// Package xlsx serializes a built report into grouped spreadsheet
// workbooks: a formatted layout mirroring the grid and a stakeholder
// layout with collapsible row and column outlines.
package xlsx

import (
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/finconsol/finconsol/internal/report"
)

const (
	headerFill = "D9E1F2"
	subHdrFill = "E7E6E6"
	totalFill  = "E8F4FD"

	nameColWidth = 35
	dataColWidth = 12
)

type styleSet struct {
	header    int
	subHeader int
	bold      int
	boldFill  int
}

func newStyles(f *excelize.File) (styleSet, error) {
	var s styleSet
	var err error
	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
	}); err != nil {
		return s, err
	}
	if s.subHeader, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{subHdrFill}, Pattern: 1},
	}); err != nil {
		return s, err
	}
	if s.bold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return s, err
	}
	if s.boldFill, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{totalFill}, Pattern: 1},
	}); err != nil {
		return s, err
	}
	return s, nil
}

// fillRowKind reports whether the row gets the total fill on top of bold.
func fillRowKind(k report.RowKind) bool {
	return k == report.KindParentTotal || k == report.KindDerivedTotal
}

func newSheet(name string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", name); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func sheetName(st report.Statement) string {
	// Sheet names may not contain the characters excel reserves.
	return strings.NewReplacer("/", "-", "\\", "-", "?", "", "*", "", "[", "(", "]", ")").Replace(st.Title())
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func colName(col int) string {
	name, _ := excelize.ColumnNumberToName(col)
	return name
}

// setNumber writes a numeric cell, leaving true blanks for absent values
// so collapsed views do not read as zeros.
func setNumber(f *excelize.File, sheet string, col, row int, v float64, present bool) error {
	if !present {
		return nil
	}
	return f.SetCellValue(sheet, cellName(col, row), v)
}
