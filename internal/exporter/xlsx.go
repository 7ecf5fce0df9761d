package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const fleetSheet = "Devices"

// writeXLSX writes the fleet report as a single-sheet workbook with a
// bold, frozen header row.
func writeXLSX(path string, headers []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", fleetSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell %d: %w", col, err)
		}
		if err := f.SetCellValue(fleetSheet, cell, h); err != nil {
			return fmt.Errorf("write header %q: %w", h, err)
		}
	}

	for r, row := range rows {
		for col, v := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return fmt.Errorf("cell %d,%d: %w", r, col, err)
			}
			if err := f.SetCellValue(fleetSheet, cell, v); err != nil {
				return fmt.Errorf("write cell %s: %w", cell, err)
			}
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		lastCell, cerr := excelize.CoordinatesToCellName(len(headers), 1)
		if cerr == nil {
			_ = f.SetCellStyle(fleetSheet, "A1", lastCell, headerStyle)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err == nil {
		_ = f.SetColWidth(fleetSheet, "A", lastCol, 20)
	}
	if err := f.SetPanes(fleetSheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
