package collection

import (
	"sort"
)

// =============================================================================
// STORE - Line items grouped by period
// =============================================================================

// Store maps each period to its line items. A Store is a value: every engine
// call works on a Clone and hands the copy back, so a Store held by the
// caller never changes underneath them.
//
// The zero Store is empty and ready to use.
type Store struct {
	periods map[PeriodKey][]LineItem
}

// NewStore builds a Store from fetched items. Every item starts clean, with
// its baseline equal to its loaded quantity.
func NewStore(itemsByPeriod map[PeriodKey][]LineItem) Store {
	s := Store{periods: make(map[PeriodKey][]LineItem, len(itemsByPeriod))}
	for key, items := range itemsByPeriod {
		if len(items) == 0 {
			continue
		}
		loaded := make([]LineItem, len(items))
		for i, it := range items {
			it.OriginalQuantity = it.Quantity
			it.Dirty = false
			loaded[i] = it
		}
		s.periods[key] = loaded
	}
	return s
}

// Clone returns a deep copy.
func (s Store) Clone() Store {
	out := Store{periods: make(map[PeriodKey][]LineItem, len(s.periods))}
	for key, items := range s.periods {
		out.periods[key] = append([]LineItem(nil), items...)
	}
	return out
}

// Periods returns the period keys, newest first.
func (s Store) Periods() []PeriodKey {
	keys := make([]PeriodKey, 0, len(s.periods))
	for key := range s.periods {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] > keys[j] })
	return keys
}

// Items returns a copy of the items in a period, in insertion order.
func (s Store) Items(key PeriodKey) []LineItem {
	return append([]LineItem(nil), s.periods[key]...)
}

// HasPeriod reports whether the period has at least one item.
func (s Store) HasPeriod(key PeriodKey) bool {
	_, ok := s.periods[key]
	return ok
}

// Len is the number of items across all periods.
func (s Store) Len() int {
	n := 0
	for _, items := range s.periods {
		n += len(items)
	}
	return n
}

// Find locates an item by id.
func (s Store) Find(itemID string) (LineItem, PeriodKey, bool) {
	key, idx, ok := s.locate(itemID)
	if !ok {
		return LineItem{}, "", false
	}
	return s.periods[key][idx], key, true
}

// ItemsByPeriod exports the store contents.
func (s Store) ItemsByPeriod() map[PeriodKey][]LineItem {
	out := make(map[PeriodKey][]LineItem, len(s.periods))
	for key, items := range s.periods {
		out[key] = append([]LineItem(nil), items...)
	}
	return out
}

func (s Store) locate(itemID string) (PeriodKey, int, bool) {
	for key, items := range s.periods {
		for i, it := range items {
			if it.ID == itemID {
				return key, i, true
			}
		}
	}
	return "", -1, false
}

func (s Store) findProduct(key PeriodKey, productID string) (int, bool) {
	for i, it := range s.periods[key] {
		if it.ProductID == productID {
			return i, true
		}
	}
	return -1, false
}

// The helpers below mutate and must only be called on a fresh Clone.

func (s *Store) put(key PeriodKey, idx int, item LineItem) {
	s.periods[key][idx] = item
}

func (s *Store) append(key PeriodKey, item LineItem) {
	if s.periods == nil {
		s.periods = make(map[PeriodKey][]LineItem)
	}
	s.periods[key] = append(s.periods[key], item)
}

func (s *Store) remove(key PeriodKey, idx int) {
	items := s.periods[key]
	items = append(items[:idx:idx], items[idx+1:]...)
	if len(items) == 0 {
		delete(s.periods, key)
		return
	}
	s.periods[key] = items
}
