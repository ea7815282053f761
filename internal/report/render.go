package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	sheetSummary    = "Summary"
	sheetOutOfStock = "Out of stock"
	sheetNeedsPrice = "Needs price"

	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Text renders inv for the log, formatting numbers for tag.
func Text(inv Inventory, tag language.Tag, currency string) string {
	p := message.NewPrinter(tag)
	rule := strings.Repeat("=", 40)

	var b strings.Builder
	fmt.Fprintf(&b, "====== INVENTORY REPORT tenant %d [%s] ======\n", inv.TenantID, inv.GeneratedAt.Format("2006-01-02 15:04:05"))
	b.WriteString(p.Sprintf("Products: %d\n", inv.ProductCount))
	b.WriteString(p.Sprintf("Units:    %d\n", inv.TotalUnits))
	b.WriteString(p.Sprintf("Value:    %.2f %s\n", inv.TotalValue.InexactFloat64(), currency))
	b.WriteString(strings.Repeat("-", 40) + "\n")

	if len(inv.OutOfStock) == 0 {
		b.WriteString("Stock OK, nothing sold out.\n")
	} else {
		fmt.Fprintf(&b, "OUT OF STOCK (%d):\n", len(inv.OutOfStock))
		for _, l := range inv.OutOfStock {
			fmt.Fprintf(&b, "  - %s (SKU: %s)\n", l.Name, l.SKU)
		}
	}
	if len(inv.NeedsPrice) > 0 {
		fmt.Fprintf(&b, "NEEDS PRICE (%d):\n", len(inv.NeedsPrice))
		for _, l := range inv.NeedsPrice {
			fmt.Fprintf(&b, "  - %s (SKU: %s)\n", l.Name, l.SKU)
		}
	}
	b.WriteString(rule)
	return b.String()
}

// WriteXLSX writes inv as a workbook with a summary sheet and one sheet per product list.
func WriteXLSX(w io.Writer, inv Inventory) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return err
	}
	summary := [][2]any{
		{"Tenant", inv.TenantID},
		{"Generated at", inv.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Products", inv.ProductCount},
		{"Units", inv.TotalUnits},
		{"Value", inv.TotalValue.InexactFloat64()},
	}
	for i, row := range summary {
		if err := setRow(f, sheetSummary, i+1, row[0], row[1]); err != nil {
			return err
		}
	}

	for _, s := range []struct {
		name  string
		lines []Line
	}{
		{sheetOutOfStock, inv.OutOfStock},
		{sheetNeedsPrice, inv.NeedsPrice},
	} {
		if _, err := f.NewSheet(s.name); err != nil {
			return err
		}
		if err := setRow(f, s.name, 1, "ProductID", "Name", "SKU", "Price", "Stock"); err != nil {
			return err
		}
		for i, l := range s.lines {
			if err := setRow(f, s.name, i+2, l.ProductID, l.Name, l.SKU, l.Price.InexactFloat64(), l.Stock); err != nil {
				return err
			}
		}
	}
	return f.Write(w)
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}
