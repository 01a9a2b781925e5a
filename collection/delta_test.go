package collection_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/collection-ledger/collection"
)

func TestIncrementalAmountDue_OnlyDirtyItemsInToday(t *testing.T) {
	s := storeWith(map[collection.PeriodKey][]collection.LineItem{
		today:     {loaded("a", today, 10, 50, 1000), loaded("b", today, 5, 50, 300)},
		yesterday: {loaded("h", yesterday, 99, 99, 7)},
	})

	assert.True(t, collection.IncrementalAmountDue(s, today, 0).IsZero(), "nothing edited yet")

	s, err := collection.SetQuantity(s, "a", 12, today)
	require.NoError(t, err)
	s, err = collection.AddOrIncrement(s, collection.Product{ID: "new", SellingPrice: money(250), Inventory: 10}, today, now)
	require.NoError(t, err)

	// 2 x 1000 for a, 1 x 250 for the new item, b untouched
	assert.True(t, money(2250).Equal(collection.IncrementalAmountDue(s, today, 0)))
	assert.Len(t, collection.DirtyItems(s, today), 2)
	assert.Empty(t, collection.DirtyItems(s, yesterday))
}

func TestIncrementalAmountDue_RoundsToPrecision(t *testing.T) {
	item := loaded("a", today, 1, 50, 0)
	item.SellingPrice = decimal.RequireFromString("0.335")
	s := storeWith(map[collection.PeriodKey][]collection.LineItem{today: {item}})

	s, err := collection.SetQuantity(s, "a", 2, today)
	require.NoError(t, err)

	assert.Equal(t, "0.34", collection.IncrementalAmountDue(s, today, 2).StringFixed(2))
	assert.Equal(t, "0", collection.IncrementalAmountDue(s, today, 0).String())
}

func TestIncrementalAmountDue_PriceChangeWithoutQuantityChange(t *testing.T) {
	s := storeWith(map[collection.PeriodKey][]collection.LineItem{today: {loaded("a", today, 10, 50, 1000)}})

	s, err := collection.SetPrice(s, "a", money(2000), today)
	require.NoError(t, err)

	assert.Len(t, collection.DirtyItems(s, today), 1)
	assert.True(t, collection.IncrementalAmountDue(s, today, 0).IsZero(), "only added quantity is owed")
}

func TestPeriodTotal(t *testing.T) {
	s := storeWith(map[collection.PeriodKey][]collection.LineItem{
		yesterday: {loaded("a", yesterday, 3, 50, 1000), loaded("b", yesterday, 2, 50, 250)},
	})
	assert.True(t, money(3500).Equal(collection.PeriodTotal(s, yesterday)))
	assert.True(t, collection.PeriodTotal(s, today).IsZero())
}

// =============================================================================
// PAYLOAD
// =============================================================================

func TestBuildPayload_NothingToSubmit(t *testing.T) {
	s := storeWith(map[collection.PeriodKey][]collection.LineItem{today: {loaded("a", today, 10, 50, 1000)}})

	_, err := collection.BuildPayload(s, today, now, "")
	assert.ErrorIs(t, err, collection.ErrNothingToSubmit)
	assert.True(t, collection.IsValidation(err))
}

func TestBuildPayload_MapsDirtyItems(t *testing.T) {
	s := storeWith(map[collection.PeriodKey][]collection.LineItem{
		today: {loaded("a", today, 10, 50, 1000), loaded("b", today, 1, 50, 20)},
	})
	s, err := collection.SetQuantity(s, "a", 13, today)
	require.NoError(t, err)
	s, err = collection.SetShipNow(s, "a", true, today)
	require.NoError(t, err)

	due := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	req, err := collection.BuildPayload(s, today, due, "second delivery")
	require.NoError(t, err)

	assert.Equal(t, due, req.DueDate)
	assert.Equal(t, "second delivery", req.Note)
	require.Len(t, req.Items, 1)
	item := req.Items[0]
	assert.Equal(t, "prod-a", item.ProductID)
	assert.Equal(t, "SKU-a", item.ProductCode)
	assert.Equal(t, "Product a", item.ProductName)
	assert.Equal(t, 13, item.Quantity)
	assert.Equal(t, 10, item.OriginalQuantity)
	assert.True(t, money(1000).Equal(item.Price))
	assert.Equal(t, "period-"+string(today), item.PeriodID)
	assert.True(t, item.ShipNow)
}

// =============================================================================
// PERIOD KEY
// =============================================================================

func TestKeyOf_SameLocalDay(t *testing.T) {
	loc := time.FixedZone("ICT", 7*60*60)
	morning := time.Date(2026, time.March, 10, 0, 5, 0, 0, loc)
	night := time.Date(2026, time.March, 10, 23, 59, 0, 0, loc)

	assert.Equal(t, collection.KeyOf(morning), collection.KeyOf(night))
	assert.Equal(t, collection.PeriodKey("2026-03-10"), collection.KeyOf(morning))
	// same instant, different calendar day in UTC
	assert.Equal(t, collection.PeriodKey("2026-03-09"), collection.KeyOf(morning.UTC()))
}

func TestIsMutable(t *testing.T) {
	assert.True(t, collection.IsMutable(today, today))
	assert.False(t, collection.IsMutable(yesterday, today))
}

func TestParsePeriodKey(t *testing.T) {
	k, err := collection.ParsePeriodKey("2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, today, k)

	_, err = collection.ParsePeriodKey("10/03/2026")
	assert.Error(t, err)

	midnight, err := k.Time(time.UTC)
	require.NoError(t, err)
	assert.True(t, time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC).Equal(midnight))
}

func TestStatusFor(t *testing.T) {
	due := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	before := due.AddDate(0, 0, -1)
	after := due.AddDate(0, 0, 1)

	assert.Equal(t, collection.StatusUnpaid, collection.StatusFor(money(100), money(0), due, before))
	assert.Equal(t, collection.StatusPartiallyPaid, collection.StatusFor(money(100), money(40), due, before))
	assert.Equal(t, collection.StatusPaid, collection.StatusFor(money(100), money(100), due, after))
	assert.Equal(t, collection.StatusOverdue, collection.StatusFor(money(100), money(40), due, after))
}
