// Package export renders expense collections as spreadsheet attachments.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/tripspend/trip_tracker/internal/tracker"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Expenses"

var header = []string{"Date", "Type", "Vendor", "Location", "Cost", "Comments", "Trip"}

// ExpensesWorkbook builds an xlsx workbook with one row per expense and a
// trailing total row. The caller streams the buffer as an attachment.
func ExpensesWorkbook(expenses []tracker.Expense) (*bytes.Buffer, error) {
	file := excelize.NewFile()
	defer file.Close()

	index, err := file.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	file.SetActiveSheet(index)
	if err := file.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	for col, title := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to address header cell: %w", err)
		}
		if err := file.SetCellValue(sheetName, cell, title); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, expense := range expenses {
		row := i + 2
		values := []any{
			expense.Date.Format("2006-01-02"),
			expense.Type,
			expense.Vendor,
			expense.Location,
			expense.Cost.InexactFloat64(),
			expense.Comments,
			expense.TripName,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, fmt.Errorf("failed to address cell: %w", err)
			}
			if err := file.SetCellValue(sheetName, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write expense row: %w", err)
			}
		}
	}

	totalRow := len(expenses) + 2
	totalLabelCell, _ := excelize.CoordinatesToCellName(4, totalRow)
	totalValueCell, _ := excelize.CoordinatesToCellName(5, totalRow)
	if err := file.SetCellValue(sheetName, totalLabelCell, "Total"); err != nil {
		return nil, fmt.Errorf("failed to write total label: %w", err)
	}
	if err := file.SetCellValue(sheetName, totalValueCell, tracker.TotalSpent(expenses).InexactFloat64()); err != nil {
		return nil, fmt.Errorf("failed to write total value: %w", err)
	}

	if err := file.SetColWidth(sheetName, "A", "G", 18); err != nil {
		return nil, fmt.Errorf("failed to set column widths: %w", err)
	}

	return file.WriteToBuffer()
}

// AttachmentName builds the download filename for a trip's export.
func AttachmentName(tripName string) string {
	if tripName == "" {
		tripName = "all-expenses"
	}
	return fmt.Sprintf("%s_%s.xlsx", tripName, time.Now().Format("20060102"))
}
