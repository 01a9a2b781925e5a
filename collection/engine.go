/*
engine.go - Reconciliation rules for today's collection period

PURPOSE:
  Every edit the user makes to a debt ledger goes through one of these
  functions. Each takes the current Store and today's PeriodKey and returns
  either a new Store or a *ValidationError. Nothing here performs I/O or
  reads the clock.

RULES:
  1. Only today's period is editable. Older periods are history.
  2. An item loaded from the service has a baseline (OriginalQuantity) and
     cannot drop below it or be removed. Items created in this session
     have baseline 0 and are deleted when driven to 0.
  3. Without ship-now, quantity is capped by the inventory snapshot.
     Ship-now lifts the cap up to MaxQuantity.
  4. Items with returns recorded are frozen in every period.

EXAMPLE:
  today := collection.KeyOf(time.Now())
  s, err := collection.AddOrIncrement(s, product, today, time.Now())
  s, err = collection.SetQuantity(s, itemID, 13, today)
*/
package collection

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AddOrIncrement adds one unit of product to today's period. An existing
// item for the same product is incremented and keeps its baseline; otherwise
// a brand-new item is created. Products with no stock start with ship-now
// enabled so the first unit is never rejected.
func AddOrIncrement(s Store, p Product, today PeriodKey, now time.Time) (Store, error) {
	if idx, ok := s.findProduct(today, p.ID); ok {
		item := s.periods[today][idx]
		if item.IsLocked() {
			return s, invalid(CodeItemLocked, item.ID, "returned quantity %d recorded", item.ReturnedQuantity)
		}
		if err := checkCeiling(item, item.Quantity+1); err != nil {
			return s, err
		}
		item.Quantity++
		item.Dirty = true
		item.UpdatedAt = now

		out := s.Clone()
		out.put(today, idx, item)
		return out, nil
	}

	inventory := p.Inventory
	if inventory < 0 {
		inventory = 0
	}
	item := LineItem{
		ID:                 uuid.NewString(),
		PeriodID:           s.periodID(today),
		ProductID:          p.ID,
		ProductCode:        p.Code,
		ProductName:        p.Name,
		Quantity:           1,
		OriginalQuantity:   0,
		CostPrice:          p.CostPrice,
		SellingPrice:       p.SellingPrice,
		Discount:           decimal.Zero,
		AvailableInventory: inventory,
		ShipNow:            p.Inventory <= 0,
		Dirty:              true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	out := s.Clone()
	out.append(today, item)
	return out, nil
}

// SetQuantity sets the quantity of an item in today's period.
func SetQuantity(s Store, itemID string, quantity int, today PeriodKey) (Store, error) {
	key, idx, ok := s.locate(itemID)
	if !ok {
		return s, invalid(CodeItemNotFound, itemID, "no such item")
	}
	item := s.periods[key][idx]

	if !IsMutable(key, today) {
		return s, invalid(CodeQuantityBelowBaseline, itemID, "period %s is closed", key)
	}
	if item.IsLocked() {
		return s, invalid(CodeItemLocked, itemID, "returned quantity %d recorded", item.ReturnedQuantity)
	}
	if quantity < 0 {
		return s, invalid(CodeQuantityBelowBaseline, itemID, "quantity %d is negative", quantity)
	}
	if !item.IsNew() && quantity < item.OriginalQuantity {
		return s, invalid(CodeQuantityBelowBaseline, itemID, "quantity %d below baseline %d", quantity, item.OriginalQuantity)
	}
	if err := checkCeiling(item, quantity); err != nil {
		return s, err
	}

	out := s.Clone()
	if quantity == 0 && item.IsNew() {
		out.remove(key, idx)
		return out, nil
	}
	item.Quantity = quantity
	item.Dirty = true
	out.put(key, idx, item)
	return out, nil
}

// SetPrice sets the unit price of an item in today's period. Cost and
// selling price move together.
func SetPrice(s Store, itemID string, price decimal.Decimal, today PeriodKey) (Store, error) {
	key, idx, item, err := editable(s, itemID, today)
	if err != nil {
		return s, err
	}
	if price.IsNegative() {
		return s, invalid(CodeNegativePrice, itemID, "price %s", price)
	}

	item.CostPrice = price
	item.SellingPrice = price
	item.Dirty = true

	out := s.Clone()
	out.put(key, idx, item)
	return out, nil
}

// SetShipNow toggles the inventory override. Turning it off pulls the
// quantity back to the inventory snapshot instead of failing.
func SetShipNow(s Store, itemID string, enabled bool, today PeriodKey) (Store, error) {
	key, idx, item, err := editable(s, itemID, today)
	if err != nil {
		return s, err
	}

	item.ShipNow = enabled
	if !enabled && item.Quantity > item.AvailableInventory {
		item.Quantity = max(item.AvailableInventory, 0)
	}
	item.Dirty = true

	out := s.Clone()
	out.put(key, idx, item)
	return out, nil
}

// RemoveItem drops an item created in this session from today's period.
// Items loaded with a baseline are already recorded and stay.
func RemoveItem(s Store, itemID string, today PeriodKey) (Store, error) {
	key, idx, item, err := editable(s, itemID, today)
	if err != nil {
		return s, err
	}
	if !item.IsNew() {
		return s, invalid(CodeQuantityBelowBaseline, itemID, "quantity %d already recorded", item.OriginalQuantity)
	}
	out := s.Clone()
	out.remove(key, idx)
	return out, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func editable(s Store, itemID string, today PeriodKey) (PeriodKey, int, LineItem, error) {
	key, idx, ok := s.locate(itemID)
	if !ok {
		return "", -1, LineItem{}, invalid(CodeItemNotFound, itemID, "no such item")
	}
	item := s.periods[key][idx]
	if !IsMutable(key, today) {
		return "", -1, LineItem{}, invalid(CodePeriodLocked, itemID, "period %s is closed", key)
	}
	if item.IsLocked() {
		return "", -1, LineItem{}, invalid(CodeItemLocked, itemID, "returned quantity %d recorded", item.ReturnedQuantity)
	}
	return key, idx, item, nil
}

func checkCeiling(item LineItem, quantity int) error {
	if quantity > MaxQuantity {
		return invalid(CodeQuantityExceedsAvailable, item.ID, "quantity %d above limit %d", quantity, MaxQuantity)
	}
	if !item.ShipNow && quantity > item.AvailableInventory {
		return invalid(CodeQuantityExceedsAvailable, item.ID, "quantity %d exceeds available %d", quantity, item.AvailableInventory)
	}
	return nil
}

// periodID returns the service id of a period, taken from any item already
// in it.
func (s Store) periodID(key PeriodKey) string {
	for _, it := range s.periods[key] {
		if it.PeriodID != "" {
			return it.PeriodID
		}
	}
	return ""
}
