/*
Package collection provides the periodic debt collection ledger.

PURPOSE:
  A debt is collected across repeated "collection periods", one per calendar
  day. Historical periods are committed and read-only. Today's period is the
  only one that can be edited, and edits are tracked against the quantity
  each item had when the ledger was loaded.

KEY CONCEPTS IN THIS FILE (types.go):
  - DebtRecord: The owed/paid summary, owned by the ledger service
  - LineItem: One product's quantity and price inside one period
  - Product: Catalog entry used to add items by code or id
  - SyncRequest: The minimal payload appended to the remote ledger

DESIGN PRINCIPLES:
  1. Value semantics: engine calls never mutate their input Store
  2. Precision: money uses decimal.Decimal
  3. Explicit time: "today" is a parameter, never read from the clock here

SEE ALSO:
  - period.go: Period keys
  - store.go: Items grouped by period
  - engine.go: Reconciliation rules
  - delta.go: Dirty items and incremental amount due
  - payload.go: Sync request builder
*/
package collection

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxQuantity bounds any single item quantity, including ship-now items.
const MaxQuantity = 999999

// =============================================================================
// DEBT RECORD - Aggregate owed/paid summary
// =============================================================================

type DebtKind string

const (
	KindCustomerDebt DebtKind = "customer_debt"
	KindSupplierDebt DebtKind = "supplier_debt"
)

type DebtStatus string

const (
	StatusUnpaid        DebtStatus = "unpaid"
	StatusPartiallyPaid DebtStatus = "partially_paid"
	StatusPaid          DebtStatus = "paid"
	StatusOverdue       DebtStatus = "overdue"
)

// StatusFor derives the status of a record from its amounts and due date.
func StatusFor(total, paid decimal.Decimal, due time.Time, now time.Time) DebtStatus {
	switch {
	case total.IsPositive() && paid.GreaterThanOrEqual(total):
		return StatusPaid
	case !due.IsZero() && now.After(due):
		return StatusOverdue
	case paid.IsPositive():
		return StatusPartiallyPaid
	default:
		return StatusUnpaid
	}
}

// DebtRecord is created and owned by the ledger service. The collection
// ledger reads it and re-reads it after every successful submit.
type DebtRecord struct {
	ID               string          `json:"id"`
	Code             string          `json:"code"`
	Kind             DebtKind        `json:"kind"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	PaidAmount       decimal.Decimal `json:"paid_amount"`
	RemainingAmount  decimal.Decimal `json:"remaining_amount"`
	Status           DebtStatus      `json:"status"`
	DueDate          time.Time       `json:"due_date"`
	PaymentDate      *time.Time      `json:"payment_date,omitempty"`
	Note             string          `json:"note"`
	CounterpartyName string          `json:"counterparty_name"`
}

// =============================================================================
// LINE ITEM - One product within one period
// =============================================================================

type LineItem struct {
	ID                 string          `json:"id"`
	ReceiptID          string          `json:"receipt_id,omitempty"`
	PeriodID           string          `json:"period_id,omitempty"`
	ProductID          string          `json:"product_id"`
	ProductCode        string          `json:"product_code"`
	ProductName        string          `json:"product_name"`
	Quantity           int             `json:"quantity"`
	OriginalQuantity   int             `json:"original_quantity"`
	CostPrice          decimal.Decimal `json:"cost_price"`
	SellingPrice       decimal.Decimal `json:"selling_price"`
	Discount           decimal.Decimal `json:"discount"`
	AvailableInventory int             `json:"available_inventory"`
	ShipNow            bool            `json:"ship_now"`
	ReturnedQuantity   int             `json:"returned_quantity,omitempty"`

	// Dirty marks items added or edited since the ledger was loaded.
	// It never crosses the wire and never survives a reload.
	Dirty bool `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsNew reports whether the item has no baseline, i.e. it was created in the
// current edit session.
func (li LineItem) IsNew() bool { return li.OriginalQuantity == 0 }

// IsLocked reports whether the item has returns recorded against it.
func (li LineItem) IsLocked() bool { return li.ReturnedQuantity > 0 }

// Delta is the quantity added beyond the baseline.
func (li LineItem) Delta() int { return li.Quantity - li.OriginalQuantity }

// LineTotal is the absolute value of the item.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.SellingPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// =============================================================================
// PRODUCT - Catalog entry looked up by code or id
// =============================================================================

type Product struct {
	ID           string          `json:"id"`
	Code         string          `json:"code"`
	Name         string          `json:"product_name"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Inventory    int             `json:"inventory"`
}

// =============================================================================
// REMOTE SHAPES
// =============================================================================

// DebtDetail is what the ledger service returns for one record.
type DebtDetail struct {
	Record        DebtRecord               `json:"record"`
	ItemsByPeriod map[PeriodKey][]LineItem `json:"items_by_period"`
}

type SyncRequestItem struct {
	ProductID        string          `json:"product_id" validate:"required"`
	ProductName      string          `json:"product_name"`
	ProductCode      string          `json:"product_code"`
	Quantity         int             `json:"quantity" validate:"gte=0,lte=999999"`
	OriginalQuantity int             `json:"original_quantity" validate:"gte=0"`
	Price            decimal.Decimal `json:"price"`
	PeriodID         string          `json:"period_id,omitempty"`
	ShipNow          bool            `json:"ship_now"`
}

// SyncRequest appends today's changes to a debt record. The service adds
// the incremental amount; it does not replace the period.
type SyncRequest struct {
	DueDate time.Time         `json:"due_date" validate:"required"`
	Note    string            `json:"note"`
	Items   []SyncRequestItem `json:"items" validate:"required,min=1,dive"`

	// IdempotencyKey makes retries of the same submit safe.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type SubmitResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
