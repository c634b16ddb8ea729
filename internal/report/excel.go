// Package report renders availability grids to Excel for clinic staff.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"vizit/internal/model"
)

var gridColumns = []string{"Start", "End", "Duration (min)", "Status"}

// WriteDayGrid writes one sheet with the candidate grid for a provider/date.
func WriteDayGrid(w io.Writer, providerID string, date time.Time, grid []model.CandidateSlot) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := date.Format("2006-01-02")
	// Excel caps sheet names at 31 chars.
	if len(sheet) > 31 {
		sheet = sheet[:31]
	}
	f.SetSheetName("Sheet1", sheet)

	for i, col := range gridColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}

	for row, slot := range grid {
		values := []any{
			slot.Start.Format("15:04"),
			slot.End.Format("15:04"),
			slot.DurationMinutes,
			string(slot.Status),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	if err := f.SetCellValue(sheet, "F1", fmt.Sprintf("Provider: %s", providerID)); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
