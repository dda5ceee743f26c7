// Package report renders report rows as xlsx workbooks.
package report

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/tavola-pos/backoffice/internal/database"
	"github.com/xuri/excelize/v2"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet is one worksheet: a header row followed by data rows.
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]any
}

// Write renders sheets, in order, into a single workbook.
func Write(w io.Writer, sheets ...Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return fmt.Errorf("new sheet %q: %w", s.Name, err)
		}

		header := make([]any, len(s.Headers))
		for j, h := range s.Headers {
			header[j] = h
		}
		if err := setRow(f, s.Name, 1, header); err != nil {
			return err
		}
		for j, row := range s.Rows {
			if err := setRow(f, s.Name, j+2, row); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNo int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	out := make([]any, len(values))
	for i, v := range values {
		if d, ok := v.(decimal.Decimal); ok {
			v = d.InexactFloat64()
		}
		out[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &out); err != nil {
		return fmt.Errorf("%s row %d: %w", sheet, rowNo, err)
	}
	return nil
}

func InventoryValuationSheet(rows []database.GetInventoryValuationRow) Sheet {
	s := Sheet{
		Name:    "Inventory Valuation",
		Headers: []string{"Category", "Items", "Total Value", "Low Stock Items"},
		Rows:    make([][]any, 0, len(rows)+1),
	}
	for _, r := range rows {
		s.Rows = append(s.Rows, []any{string(r.Category), r.ItemCount, r.TotalValue, r.LowStockCount})
	}
	s.Rows = append(s.Rows, []any{"TOTAL", nil, ValuationTotal(rows), nil})
	return s
}

// ValuationTotal sums stock value across categories.
func ValuationTotal(rows []database.GetInventoryValuationRow) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.TotalValue)
	}
	return total
}

func DailySalesSheet(rows []database.GetDailySalesRow) Sheet {
	s := Sheet{
		Name:    "Daily Sales",
		Headers: []string{"Date", "Orders", "Gross Sales", "Net Sales"},
		Rows:    make([][]any, 0, len(rows)),
	}
	for _, r := range rows {
		s.Rows = append(s.Rows, []any{r.Day.Format("2006-01-02"), r.OrderCount, r.GrossSales, r.NetSales})
	}
	return s
}

func PaymentSummarySheet(rows []database.GetPaymentSummaryRow) Sheet {
	s := Sheet{
		Name:    "Payments",
		Headers: []string{"Payment Method", "Orders", "Total Amount"},
		Rows:    make([][]any, 0, len(rows)),
	}
	for _, r := range rows {
		s.Rows = append(s.Rows, []any{r.PaymentMethod, r.OrderCount, r.TotalAmount})
	}
	return s
}
