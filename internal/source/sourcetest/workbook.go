// Package sourcetest builds in-memory workbooks for tests.
package sourcetest

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet: a header row followed by data rows.
type Sheet struct {
	Name   string
	Header []interface{}
	Rows   [][]interface{}
}

// UnitHeader is the standard unit sheet header.
var UnitHeader = []interface{}{"Phases", "Building", "Unit", "Move-out", "Move-in", "Status", "Comments"}

// TaskHeader is the standard task sheet header.
var TaskHeader = []interface{}{"Unit ID", "Vendor / Employee", "Task Status", "Inspection Date", "Paint Date", "MR date", "Final walk Date"}

// Workbook encodes sheets as xlsx bytes.
func Workbook(sheets ...Sheet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", sheet.Name, err)
		}

		if err := f.SetSheetRow(sheet.Name, "A1", &sheet.Header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
		for r, row := range sheet.Rows {
			row := row
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(sheet.Name, cell, &row); err != nil {
				return nil, fmt.Errorf("write row %d: %w", r+2, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}
