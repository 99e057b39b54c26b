// Package report renders the low-stock listing as a spreadsheet.
package report

import (
	"fmt"
	"io"

	"stockboard/internal/domain"

	"github.com/xuri/excelize/v2"
)

// LowStockSheet is the name of the only sheet in the workbook.
const LowStockSheet = "Low Stock"

// ContentType is the media type of the rendered workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var lowStockHeader = []any{"Category", "Product", "Stock", "Price", "Enabled"}

// WriteLowStock writes one row per flagged product, grouped as given.
func WriteLowStock(w io.Writer, groups []domain.CategoryGroup) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", LowStockSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(LowStockSheet, "A1", &lowStockHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetCellStyle(LowStockSheet, "A1", "E1", bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	row := 2
	for _, group := range groups {
		for _, p := range group.Products {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			values := []any{group.Label, p.Name, p.Stock, p.Price.InexactFloat64(), enabledLabel(p.Enabled)}
			if err := f.SetSheetRow(LowStockSheet, cell, &values); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row, err)
			}
			row++
		}
	}

	if err := f.SetColWidth(LowStockSheet, "A", "B", 24); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func enabledLabel(enabled bool) string {
	if enabled {
		return "yes"
	}
	return "no"
}
