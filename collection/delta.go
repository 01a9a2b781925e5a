package collection

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// DELTA CALCULATOR
// =============================================================================

// DirtyItems returns today's items that were added or edited since load.
// An item edited back to its baseline stays dirty; it simply contributes
// nothing to the amount due.
func DirtyItems(s Store, today PeriodKey) []LineItem {
	var dirty []LineItem
	for _, it := range s.periods[today] {
		if it.Dirty {
			dirty = append(dirty, it)
		}
	}
	return dirty
}

// IncrementalAmountDue is the value of the quantity added beyond baseline
// across dirty items, rounded to precision decimal places. It is not the
// period total: the ledger service appends this amount to the record.
func IncrementalAmountDue(s Store, today PeriodKey, precision int32) decimal.Decimal {
	total := decimal.Zero
	for _, it := range DirtyItems(s, today) {
		total = total.Add(it.SellingPrice.Mul(decimal.NewFromInt(int64(it.Delta()))))
	}
	return total.Round(precision)
}

// PeriodTotal is the absolute value of every item in a period.
func PeriodTotal(s Store, key PeriodKey) decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.periods[key] {
		total = total.Add(it.LineTotal())
	}
	return total
}
