package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/collection-ledger/collection"
	"github.com/warp/collection-ledger/session"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var (
	clockNow = time.Date(2026, time.March, 10, 15, 0, 0, 0, time.UTC)
	today    = collection.KeyOf(clockNow)
	lastWeek = collection.KeyOf(clockNow.AddDate(0, 0, -7))
)

// fakeRemote records calls and serves canned responses.
type fakeRemote struct {
	detail      collection.DebtDetail
	detailErr   error
	products    map[string]collection.Product
	submitErr   error
	submitResp  collection.SubmitResult
	fetchCalls  int
	submitCalls []collection.SyncRequest
}

func (f *fakeRemote) FetchDebtDetail(_ context.Context, id string) (collection.DebtDetail, error) {
	f.fetchCalls++
	if f.detailErr != nil {
		return collection.DebtDetail{}, f.detailErr
	}
	return f.detail, nil
}

func (f *fakeRemote) FetchProduct(_ context.Context, codeOrID string) (collection.Product, error) {
	p, ok := f.products[codeOrID]
	if !ok {
		return collection.Product{}, collection.ErrNotFound
	}
	return p, nil
}

func (f *fakeRemote) SubmitPeriodUpdate(_ context.Context, id string, req collection.SyncRequest) (collection.SubmitResult, error) {
	f.submitCalls = append(f.submitCalls, req)
	if f.submitErr != nil {
		return collection.SubmitResult{}, f.submitErr
	}
	return f.submitResp, nil
}

func newRemote() *fakeRemote {
	return &fakeRemote{
		detail: collection.DebtDetail{
			Record: collection.DebtRecord{
				ID:          "debt-1",
				Code:        "CN-0001",
				Kind:        collection.KindCustomerDebt,
				TotalAmount: decimal.NewFromInt(15000),
				DueDate:     time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC),
				Note:        "monthly",
			},
			ItemsByPeriod: map[collection.PeriodKey][]collection.LineItem{
				lastWeek: {{ID: "old", ProductID: "p-old", Quantity: 5, SellingPrice: decimal.NewFromInt(1000), AvailableInventory: 10}},
				today:    {{ID: "a", PeriodID: "per-1", ProductID: "p-a", Quantity: 10, SellingPrice: decimal.NewFromInt(1000), AvailableInventory: 50}},
			},
		},
		products: map[string]collection.Product{
			"SKU-B": {ID: "p-b", Code: "SKU-B", Name: "Beans", SellingPrice: decimal.NewFromInt(200), Inventory: 3},
		},
		submitResp: collection.SubmitResult{Success: true},
	}
}

func openSession(t *testing.T, remote *fakeRemote) *session.Session {
	t.Helper()
	s := session.New(remote, session.Options{
		Location: time.UTC,
		Clock:    func() time.Time { return clockNow },
	})
	require.NoError(t, s.Open(context.Background(), "debt-1"))
	return s
}

// =============================================================================
// LOADING
// =============================================================================

func TestOpen_Ready(t *testing.T) {
	remote := newRemote()
	s := openSession(t, remote)

	assert.Equal(t, session.StateReady, s.State())
	assert.Equal(t, "CN-0001", s.Record().Code)
	assert.Equal(t, []collection.PeriodKey{today, lastWeek}, s.Periods())
	assert.Empty(t, s.DirtyItems())
	assert.Equal(t, remote.detail.Record.DueDate, s.DueDate())
	assert.Equal(t, "monthly", s.Note())
}

func TestOpen_NotFoundIsTerminal(t *testing.T) {
	remote := newRemote()
	remote.detailErr = collection.ErrNotFound
	s := session.New(remote, session.Options{})

	err := s.Open(context.Background(), "missing")
	assert.ErrorIs(t, err, collection.ErrNotFound)
	assert.Equal(t, session.StateError, s.State())
	assert.ErrorIs(t, s.LastError(), collection.ErrNotFound)

	assert.ErrorIs(t, s.SetQuantity("a", 1), session.ErrNotReady)
	assert.ErrorIs(t, s.Open(context.Background(), "missing"), session.ErrNotReady)
}

// =============================================================================
// EDITS
// =============================================================================

func TestEdits_ValidationLeavesStoreUnchanged(t *testing.T) {
	s := openSession(t, newRemote())
	before := s.Store()

	err := s.SetQuantity("a", 3)
	assert.ErrorIs(t, err, collection.ErrQuantityBelowBaseline)
	assert.Equal(t, before, s.Store())
	assert.Equal(t, session.StateReady, s.State())

	assert.ErrorIs(t, s.RemoveItem("old"), collection.ErrPeriodLocked)
}

func TestAddProduct(t *testing.T) {
	s := openSession(t, newRemote())

	require.NoError(t, s.AddProduct(context.Background(), "SKU-B"))
	require.NoError(t, s.AddProduct(context.Background(), "SKU-B"))

	items := s.Store().Items(today)
	require.Len(t, items, 2)
	assert.Equal(t, 2, items[1].Quantity)
	assert.Equal(t, "per-1", items[1].PeriodID)
	assert.True(t, decimal.NewFromInt(400).Equal(s.IncrementalAmountDue()))

	err := s.AddProduct(context.Background(), "nope")
	assert.ErrorIs(t, err, collection.ErrNotFound)
}

func TestIncrementalAmountDue_Scenario(t *testing.T) {
	s := openSession(t, newRemote())

	require.NoError(t, s.SetQuantity("a", 13))
	assert.True(t, decimal.NewFromInt(3000).Equal(s.IncrementalAmountDue()))
}

// =============================================================================
// SUBMIT
// =============================================================================

func TestSubmit_WithoutDueDateBlocksBeforeNetwork(t *testing.T) {
	remote := newRemote()
	s := openSession(t, remote)
	require.NoError(t, s.SetQuantity("a", 11))
	require.NoError(t, s.SetDueDate(time.Time{}))

	err := s.Submit(context.Background())

	assert.ErrorIs(t, err, session.ErrDueDateRequired)
	assert.Equal(t, session.StateReady, s.State())
	assert.Empty(t, remote.submitCalls)
	assert.Len(t, s.DirtyItems(), 1)
}

func TestSubmit_NothingToSubmit(t *testing.T) {
	remote := newRemote()
	s := openSession(t, remote)

	err := s.Submit(context.Background())
	assert.ErrorIs(t, err, collection.ErrNothingToSubmit)
	assert.Empty(t, remote.submitCalls)
	assert.Equal(t, session.StateReady, s.State())
}

func TestSubmit_SuccessReloads(t *testing.T) {
	remote := newRemote()
	s := openSession(t, remote)
	require.NoError(t, s.SetQuantity("a", 12))
	require.NoError(t, s.SetNote("extra crate"))

	// The service will answer the reload with the updated quantity.
	reloaded := newRemote().detail
	reloaded.ItemsByPeriod[today][0].Quantity = 12
	reloaded.Record.TotalAmount = decimal.NewFromInt(17000)

	remote.detail = reloaded
	err := s.Submit(context.Background())
	require.NoError(t, err)

	require.Len(t, remote.submitCalls, 1)
	req := remote.submitCalls[0]
	assert.Equal(t, "extra crate", req.Note)
	require.Len(t, req.Items, 1)
	assert.Equal(t, 12, req.Items[0].Quantity)
	assert.Equal(t, 10, req.Items[0].OriginalQuantity)

	assert.Equal(t, 2, remote.fetchCalls, "open plus reload")
	assert.Equal(t, session.StateReady, s.State())
	assert.Empty(t, s.DirtyItems(), "reload discards dirty markers")
	assert.True(t, decimal.NewFromInt(17000).Equal(s.Record().TotalAmount))
	item, _, ok := s.Store().Find("a")
	require.True(t, ok)
	assert.Equal(t, 12, item.OriginalQuantity)
	assert.NoError(t, s.LastError())
}

func TestSubmit_RemoteFailureKeepsEdits(t *testing.T) {
	remote := newRemote()
	remote.submitErr = &session.NetworkError{Op: "submit", Err: errors.New("connection reset")}
	s := openSession(t, remote)
	require.NoError(t, s.SetQuantity("a", 14))

	err := s.Submit(context.Background())

	assert.ErrorIs(t, err, session.ErrNetwork)
	assert.Equal(t, session.StateReady, s.State())
	assert.Len(t, s.DirtyItems(), 1)
	assert.True(t, decimal.NewFromInt(4000).Equal(s.IncrementalAmountDue()))
	assert.Equal(t, 1, remote.fetchCalls, "no reload after a failed submit")

	// retry succeeds with the same key
	remote.submitErr = nil
	require.NoError(t, s.Submit(context.Background()))
	require.Len(t, remote.submitCalls, 2)
	assert.NotEmpty(t, remote.submitCalls[0].IdempotencyKey)
	assert.Equal(t, remote.submitCalls[0].IdempotencyKey, remote.submitCalls[1].IdempotencyKey)
}

func TestSubmit_EditAfterFailureStartsNewKey(t *testing.T) {
	remote := newRemote()
	remote.submitErr = &session.NetworkError{Op: "submit", Err: errors.New("timeout")}
	s := openSession(t, remote)
	require.NoError(t, s.SetQuantity("a", 11))
	require.Error(t, s.Submit(context.Background()))

	require.NoError(t, s.SetQuantity("a", 12))
	require.Error(t, s.Submit(context.Background()))

	require.Len(t, remote.submitCalls, 2)
	assert.NotEqual(t, remote.submitCalls[0].IdempotencyKey, remote.submitCalls[1].IdempotencyKey)
}

func TestSubmit_AfterMidnightKeepsEdits(t *testing.T) {
	// GIVEN: A session opened late in the evening with one edit
	remote := newRemote()
	clock := time.Date(2026, time.March, 10, 23, 50, 0, 0, time.UTC)
	s := session.New(remote, session.Options{
		Location: time.UTC,
		Clock:    func() time.Time { return clock },
	})
	require.NoError(t, s.Open(context.Background(), "debt-1"))
	require.NoError(t, s.SetQuantity("a", 12))

	// WHEN: The clock passes midnight before the submit
	clock = clock.Add(20 * time.Minute)

	// THEN: The edits stay visible and the submit says why it cannot go
	assert.Equal(t, today, s.Today())
	assert.Len(t, s.DirtyItems(), 1)
	assert.True(t, decimal.NewFromInt(2000).Equal(s.IncrementalAmountDue()))

	err := s.Submit(context.Background())
	assert.ErrorIs(t, err, session.ErrDayChanged)
	assert.NotErrorIs(t, err, collection.ErrNothingToSubmit)
	assert.Empty(t, remote.submitCalls)
	assert.Equal(t, session.StateReady, s.State())
	assert.Len(t, s.DirtyItems(), 1)
}

func TestSubmit_RejectedByService(t *testing.T) {
	remote := newRemote()
	remote.submitResp = collection.SubmitResult{Success: false, Message: "record closed"}
	s := openSession(t, remote)
	require.NoError(t, s.SetQuantity("a", 11))

	err := s.Submit(context.Background())

	var rejected *session.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "record closed", rejected.Message)
	assert.ErrorIs(t, err, session.ErrRejected)
	assert.Equal(t, session.StateReady, s.State())
	assert.Len(t, s.DirtyItems(), 1)
}

func TestSubmit_ReloadFailureEndsInError(t *testing.T) {
	remote := newRemote()
	s := openSession(t, remote)
	require.NoError(t, s.SetQuantity("a", 11))

	remote.detailErr = &session.NetworkError{Op: "fetch", Err: errors.New("timeout")}
	err := s.Submit(context.Background())

	assert.ErrorIs(t, err, session.ErrNetwork)
	assert.Equal(t, session.StateError, s.State())
}
