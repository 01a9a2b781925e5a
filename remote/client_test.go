package remote_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/collection-ledger/api"
	"github.com/warp/collection-ledger/collection"
	"github.com/warp/collection-ledger/remote"
	"github.com/warp/collection-ledger/session"
	"github.com/warp/collection-ledger/store/sqlite"
)

var serviceNow = time.Date(2026, time.March, 10, 11, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*remote.Client, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.NewInLocation(":memory:", time.UTC)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.SaveProduct(ctx, collection.Product{
		ID: "p-milk", Code: "8930003", Name: "Milk 1L",
		SellingPrice: decimal.NewFromInt(1000), Inventory: 50,
	}))
	require.NoError(t, store.SaveProduct(ctx, collection.Product{
		ID: "p-salt", Code: "8930004", Name: "Salt",
		SellingPrice: decimal.NewFromInt(250), Inventory: 0,
	}))
	require.NoError(t, store.SaveDebt(ctx, collection.DebtRecord{
		ID: "debt-1", Code: "CN-0001", Kind: collection.KindCustomerDebt,
		TotalAmount: decimal.NewFromInt(10000), Status: collection.StatusUnpaid,
		DueDate: time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC),
	}))
	_, err = store.SaveItem(ctx, "debt-1", collection.KeyOf(serviceNow), collection.LineItem{
		ID: "milk-today", ProductID: "p-milk", ProductCode: "8930003", ProductName: "Milk 1L",
		Quantity: 10, SellingPrice: decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	h := api.NewHandler(store, zerolog.Nop())
	h.Now = func() time.Time { return serviceNow }
	srv := httptest.NewServer(api.NewRouter(h, nil))
	t.Cleanup(srv.Close)

	return remote.New(srv.URL, 5*time.Second), store
}

func newSession(client *remote.Client) *session.Session {
	return session.New(client, session.Options{
		Location: time.UTC,
		Clock:    func() time.Time { return serviceNow },
	})
}

func TestFetchErrors(t *testing.T) {
	client, _ := newService(t)
	ctx := context.Background()

	_, err := client.FetchDebtDetail(ctx, "missing")
	assert.ErrorIs(t, err, collection.ErrNotFound)

	_, err = client.FetchProduct(ctx, "000")
	assert.ErrorIs(t, err, collection.ErrNotFound)
}

func TestNetworkErrorWhenServiceIsDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := remote.New(url, time.Second).FetchDebtDetail(context.Background(), "debt-1")

	var netErr *session.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.ErrorIs(t, err, session.ErrNetwork)
}

func TestSessionRoundTrip(t *testing.T) {
	// GIVEN: A record whose today period holds 10 milk
	client, store := newService(t)
	ctx := context.Background()
	s := newSession(client)
	require.NoError(t, s.Open(ctx, "debt-1"))

	// WHEN: Milk goes to 13 and an out-of-stock product is added
	require.NoError(t, s.SetQuantity("milk-today", 13))
	require.NoError(t, s.AddProduct(ctx, "8930004"))
	assert.True(t, decimal.NewFromInt(3250).Equal(s.IncrementalAmountDue()))
	require.NoError(t, s.Submit(ctx))

	// THEN: The service holds the new totals and the session is clean
	assert.Equal(t, session.StateReady, s.State())
	assert.Empty(t, s.DirtyItems())
	assert.True(t, decimal.NewFromInt(13250).Equal(s.Record().TotalAmount))

	items := s.Store().Items(collection.KeyOf(serviceNow))
	require.Len(t, items, 2)

	salt, err := store.GetProduct(ctx, "p-salt")
	require.NoError(t, err)
	assert.Equal(t, 0, salt.Inventory, "ship-now items do not touch stock")
	milk, err := store.GetProduct(ctx, "p-milk")
	require.NoError(t, err)
	assert.Equal(t, 47, milk.Inventory)
}

func TestSubmitPeriodUpdate_RefusalDecodesResult(t *testing.T) {
	client, store := newService(t)
	ctx := context.Background()

	result, err := client.SubmitPeriodUpdate(ctx, "debt-1", collection.SyncRequest{
		DueDate: serviceNow,
		Items: []collection.SyncRequestItem{
			{ProductID: "p-milk", Quantity: 11, OriginalQuantity: 10, Price: decimal.NewFromInt(1000), PeriodID: "closed"},
		},
	})

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "closed")

	record, err := store.GetDebt(ctx, "debt-1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10000).Equal(record.TotalAmount))
}

func TestSessionResubmitSameDay(t *testing.T) {
	// GIVEN: A product with 12 in stock, 10 of which go out in a first submit
	client, store := newService(t)
	ctx := context.Background()
	require.NoError(t, store.SaveProduct(ctx, collection.Product{
		ID: "p-tea", Code: "8930009", Name: "Green tea",
		SellingPrice: decimal.NewFromInt(500), Inventory: 12,
	}))

	s := newSession(client)
	require.NoError(t, s.Open(ctx, "debt-1"))
	for i := 0; i < 10; i++ {
		require.NoError(t, s.AddProduct(ctx, "8930009"))
	}
	require.NoError(t, s.Submit(ctx))

	tea, err := store.GetProduct(ctx, "p-tea")
	require.NoError(t, err)
	require.Equal(t, 2, tea.Inventory)

	// WHEN: The reloaded line is edited again on the same day
	var itemID string
	for _, it := range s.Store().Items(collection.KeyOf(serviceNow)) {
		if it.ProductID == "p-tea" {
			itemID = it.ID
			assert.Equal(t, 10, it.OriginalQuantity)
			assert.Equal(t, 12, it.AvailableInventory, "what the line holds plus what is left")
		}
	}
	require.NotEmpty(t, itemID)

	require.NoError(t, s.SetQuantity(itemID, 10), "setting the recorded quantity again")
	require.NoError(t, s.SetShipNow(itemID, false))
	require.NoError(t, s.AddProduct(ctx, "8930009"))
	require.NoError(t, s.SetQuantity(itemID, 12))
	assert.ErrorIs(t, s.SetQuantity(itemID, 13), collection.ErrQuantityExceedsAvailable)

	// THEN: The second submit is accepted and takes the rest of the stock
	require.NoError(t, s.Submit(ctx))
	item, _, ok := s.Store().Find(itemID)
	require.True(t, ok)
	assert.Equal(t, 12, item.Quantity)

	tea, err = store.GetProduct(ctx, "p-tea")
	require.NoError(t, err)
	assert.Equal(t, 0, tea.Inventory)
	assert.True(t, decimal.NewFromInt(16000).Equal(s.Record().TotalAmount))
}
