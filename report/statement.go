/*
Package report renders debt statements as XLSX workbooks.

LAYOUT (sheet "Statement"):
  Rows 1-4   Record header: code, counterparty, totals, due date
  Row 6      Column headings
  Row 7+     One block per period, newest first: its items, then a
             subtotal row for the period

  Money cells hold the exact decimal text.
*/
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/warp/collection-ledger/collection"
)

const sheet = "Statement"

var headings = []string{"Period", "Product code", "Product", "Quantity", "Unit price", "Line total", "Ship now"}

// WriteStatement writes the record and its periods to w as an XLSX workbook.
func WriteStatement(w io.Writer, detail collection.DebtDetail) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	rec := detail.Record
	header := [][]any{
		{"Debt", rec.Code, string(rec.Kind)},
		{"Counterparty", rec.CounterpartyName},
		{"Total", rec.TotalAmount.String(), "Paid", rec.PaidAmount.String(), "Remaining", rec.RemainingAmount.String()},
		{"Status", string(rec.Status), "Due", formatDate(rec)},
	}
	for i, row := range header {
		if err := setRow(f, i+1, row); err != nil {
			return err
		}
	}

	headingRow := make([]any, len(headings))
	for i, h := range headings {
		headingRow[i] = h
	}
	if err := setRow(f, 6, headingRow); err != nil {
		return err
	}

	store := collection.NewStore(detail.ItemsByPeriod)
	row := 7
	for _, key := range store.Periods() {
		for _, it := range store.Items(key) {
			if err := setRow(f, row, []any{string(key), it.ProductCode, it.ProductName, it.Quantity, it.SellingPrice.String(), it.LineTotal().String(), it.ShipNow}); err != nil {
				return err
			}
			row++
		}
		subtotal := collection.PeriodTotal(store, key).String()
		if err := setRow(f, row, []any{string(key), "", "Period total", "", "", subtotal}); err != nil {
			return err
		}
		row += 2
	}

	if err := f.SetColWidth(sheet, "A", "C", 18); err != nil {
		return err
	}
	return f.Write(w)
}

func setRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

func formatDate(rec collection.DebtRecord) string {
	if rec.DueDate.IsZero() {
		return ""
	}
	return rec.DueDate.Format("2006-01-02")
}
