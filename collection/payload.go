package collection

import "time"

// BuildPayload maps today's dirty items into the request appended to the
// ledger service. It fails with NothingToSubmit before any network call
// would be made.
func BuildPayload(s Store, today PeriodKey, dueDate time.Time, note string) (SyncRequest, error) {
	dirty := DirtyItems(s, today)
	if len(dirty) == 0 {
		return SyncRequest{}, invalid(CodeNothingToSubmit, "", "no items added or changed in period %s", today)
	}

	items := make([]SyncRequestItem, len(dirty))
	for i, it := range dirty {
		items[i] = SyncRequestItem{
			ProductID:        it.ProductID,
			ProductName:      it.ProductName,
			ProductCode:      it.ProductCode,
			Quantity:         it.Quantity,
			OriginalQuantity: it.OriginalQuantity,
			Price:            it.SellingPrice,
			PeriodID:         it.PeriodID,
			ShipNow:          it.ShipNow,
		}
	}
	return SyncRequest{DueDate: dueDate, Note: note, Items: items}, nil
}
