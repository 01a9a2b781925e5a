/*
Package sqlite provides the SQLite-backed ledger service storage.

PURPOSE:
  Persists debt records, their collection periods and line items, and the
  product catalog. It is the server side of the collection ledger: sessions
  read a record through it and append today's changes to it.

KEY TABLES:
  debts:              One row per debt record (amounts stored as decimal text)
  collection_periods: One row per (debt, calendar day)
  debt_items:         Line items, each owned by one period
  products:           Catalog with live inventory
  applied_updates:    Idempotency keys of submits already applied

APPEND SEMANTICS:
  ApplyPeriodUpdate never rewrites history. It only touches today's period:
  items are updated by (period, product) or inserted, and the record total
  grows by the incremental amount of the request. Older periods are never
  written after the day they belong to.

IDEMPOTENCY:
  A request carrying an idempotency key is applied at most once per debt.
  A replay returns the current record and writes nothing.

CONCURRENCY:
  Uses sync.RWMutex and a single connection. Every update runs inside one SQL
  transaction. There is no version check between editors: the last submit
  for a product in a period wins.

USAGE:
  store, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - collection/types.go: Shapes stored here
  - api/handlers.go: HTTP surface over this store
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/collection-ledger/collection"
)

// ErrUpdateRejected is returned when a period update breaks a ledger rule.
// Nothing is written when it is returned.
var ErrUpdateRejected = errors.New("period update rejected")

// Store implements ledger service persistence using SQLite.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	loc *time.Location
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	return NewInLocation(dbPath, time.Local)
}

// NewInLocation is New with an explicit timezone for period keys.
func NewInLocation(dbPath string, loc *time.Location) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// ":memory:" databases exist per connection.
	db.SetMaxOpenConns(1)

	if loc == nil {
		loc = time.Local
	}
	store := &Store{db: db, loc: loc}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Location is the timezone used to derive period keys.
func (s *Store) Location() *time.Location {
	return s.loc
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS debts (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL,
		total_amount TEXT NOT NULL DEFAULT '0',
		paid_amount TEXT NOT NULL DEFAULT '0',
		remaining_amount TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL,
		due_date TEXT,
		payment_date TEXT,
		note TEXT NOT NULL DEFAULT '',
		counterparty_name TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS collection_periods (
		id TEXT PRIMARY KEY,
		debt_id TEXT NOT NULL REFERENCES debts(id) ON DELETE CASCADE,
		period_key TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(debt_id, period_key)
	);

	CREATE TABLE IF NOT EXISTS debt_items (
		id TEXT PRIMARY KEY,
		period_id TEXT NOT NULL REFERENCES collection_periods(id) ON DELETE CASCADE,
		receipt_id TEXT,
		product_id TEXT NOT NULL,
		product_code TEXT NOT NULL DEFAULT '',
		product_name TEXT NOT NULL DEFAULT '',
		quantity INTEGER NOT NULL,
		cost_price TEXT NOT NULL DEFAULT '0',
		selling_price TEXT NOT NULL DEFAULT '0',
		discount TEXT NOT NULL DEFAULT '0',
		ship_now BOOLEAN NOT NULL DEFAULT FALSE,
		returned_quantity INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- One line per product per period; updates address items by this pair
	CREATE UNIQUE INDEX IF NOT EXISTS idx_debt_items_period_product
		ON debt_items(period_id, product_id);

	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		cost_price TEXT NOT NULL DEFAULT '0',
		selling_price TEXT NOT NULL DEFAULT '0',
		inventory INTEGER NOT NULL DEFAULT 0
	);

	-- Submits already applied, keyed by the client's idempotency key
	CREATE TABLE IF NOT EXISTS applied_updates (
		idempotency_key TEXT PRIMARY KEY,
		debt_id TEXT NOT NULL REFERENCES debts(id) ON DELETE CASCADE,
		applied_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// DEBTS
// =============================================================================

// SaveDebt inserts or replaces a debt record.
func (s *Store) SaveDebt(ctx context.Context, d collection.DebtRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO debts (id, code, kind, total_amount, paid_amount, remaining_amount,
		                   status, due_date, payment_date, note, counterparty_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code,
			kind = excluded.kind,
			total_amount = excluded.total_amount,
			paid_amount = excluded.paid_amount,
			remaining_amount = excluded.remaining_amount,
			status = excluded.status,
			due_date = excluded.due_date,
			payment_date = excluded.payment_date,
			note = excluded.note,
			counterparty_name = excluded.counterparty_name,
			updated_at = excluded.updated_at
	`
	var paymentDate sql.NullString
	if d.PaymentDate != nil {
		paymentDate = nullString(formatTime(*d.PaymentDate))
	}
	_, err := s.db.ExecContext(ctx, query,
		d.ID, d.Code, string(d.Kind),
		d.TotalAmount.String(), d.PaidAmount.String(), d.TotalAmount.Sub(d.PaidAmount).String(),
		string(d.Status), nullString(formatTime(d.DueDate)), paymentDate,
		d.Note, d.CounterpartyName, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save debt: %w", err)
	}
	return nil
}

const debtColumns = `id, code, kind, total_amount, paid_amount, remaining_amount,
	status, due_date, payment_date, note, counterparty_name`

type scanner interface {
	Scan(dest ...any) error
}

func scanDebt(row scanner) (collection.DebtRecord, error) {
	var (
		d                      collection.DebtRecord
		kind, status           string
		total, paid, remaining string
		dueDate, paymentDate   sql.NullString
	)
	err := row.Scan(&d.ID, &d.Code, &kind, &total, &paid, &remaining,
		&status, &dueDate, &paymentDate, &d.Note, &d.CounterpartyName)
	if err != nil {
		return collection.DebtRecord{}, err
	}
	d.Kind = collection.DebtKind(kind)
	d.Status = collection.DebtStatus(status)
	d.TotalAmount = parseDecimal(total)
	d.PaidAmount = parseDecimal(paid)
	d.RemainingAmount = parseDecimal(remaining)
	d.DueDate = parseTime(dueDate.String)
	if paymentDate.Valid {
		t := parseTime(paymentDate.String)
		d.PaymentDate = &t
	}
	return d, nil
}

// GetDebt returns a debt record or collection.ErrNotFound.
func (s *Store) GetDebt(ctx context.Context, id string) (collection.DebtRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getDebt(ctx, s.db, id)
}

func (s *Store) getDebt(ctx context.Context, db execer, id string) (collection.DebtRecord, error) {
	d, err := scanDebt(db.QueryRowContext(ctx, "SELECT "+debtColumns+" FROM debts WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return collection.DebtRecord{}, fmt.Errorf("debt %s: %w", id, collection.ErrNotFound)
	}
	if err != nil {
		return collection.DebtRecord{}, fmt.Errorf("failed to get debt: %w", err)
	}
	return d, nil
}

// ListDebts returns all debt records, most recently updated first.
func (s *Store) ListDebts(ctx context.Context) ([]collection.DebtRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+debtColumns+" FROM debts ORDER BY updated_at DESC, code")
	if err != nil {
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}
	defer rows.Close()

	var debts []collection.DebtRecord
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, err
		}
		debts = append(debts, d)
	}
	return debts, rows.Err()
}

// GetDebtDetail returns a record with its items grouped by period.
func (s *Store) GetDebtDetail(ctx context.Context, id string) (collection.DebtDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, err := s.getDebt(ctx, s.db, id)
	if err != nil {
		return collection.DebtDetail{}, err
	}

	query := `
		SELECT i.id, i.period_id, p.period_key, i.receipt_id, i.product_id, i.product_code,
		       i.product_name, i.quantity, i.cost_price, i.selling_price, i.discount,
		       i.ship_now, i.returned_quantity, COALESCE(pr.inventory, 0),
		       i.created_at, i.updated_at
		FROM debt_items i
		JOIN collection_periods p ON p.id = i.period_id
		LEFT JOIN products pr ON pr.id = i.product_id
		WHERE p.debt_id = ?
		ORDER BY p.period_key DESC, i.created_at ASC, i.id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return collection.DebtDetail{}, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	byPeriod := make(map[collection.PeriodKey][]collection.LineItem)
	for rows.Next() {
		var (
			it                      collection.LineItem
			key                     string
			receiptID               sql.NullString
			cost, selling, discount string
			createdAt, updatedAt    string
		)
		if err := rows.Scan(&it.ID, &it.PeriodID, &key, &receiptID, &it.ProductID, &it.ProductCode,
			&it.ProductName, &it.Quantity, &cost, &selling, &discount,
			&it.ShipNow, &it.ReturnedQuantity, &it.AvailableInventory,
			&createdAt, &updatedAt); err != nil {
			return collection.DebtDetail{}, err
		}
		it.ReceiptID = receiptID.String
		it.CostPrice = parseDecimal(cost)
		it.SellingPrice = parseDecimal(selling)
		it.Discount = parseDecimal(discount)
		it.OriginalQuantity = it.Quantity
		it.CreatedAt = parseTime(createdAt)
		it.UpdatedAt = parseTime(updatedAt)
		if it.AvailableInventory < 0 {
			it.AvailableInventory = 0
		}
		// Catalog stock is net of recorded lines, so a line can always
		// hold what it already took.
		if !it.ShipNow {
			it.AvailableInventory += it.Quantity
		}
		pk := collection.PeriodKey(key)
		byPeriod[pk] = append(byPeriod[pk], it)
	}
	if err := rows.Err(); err != nil {
		return collection.DebtDetail{}, err
	}

	return collection.DebtDetail{Record: record, ItemsByPeriod: byPeriod}, nil
}

// =============================================================================
// ITEMS
// =============================================================================

// SaveItem records an item in the given period, creating the period row on
// demand. Used for seeding and imports; live edits go through
// ApplyPeriodUpdate.
func (s *Store) SaveItem(ctx context.Context, debtID string, key collection.PeriodKey, it collection.LineItem) (collection.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return it, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.getDebt(ctx, tx, debtID); err != nil {
		return it, err
	}
	periodID, err := s.ensurePeriod(ctx, tx, debtID, key)
	if err != nil {
		return it, err
	}
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if it.CreatedAt.IsZero() {
		it.CreatedAt = time.Now().UTC()
	}
	if it.UpdatedAt.IsZero() {
		it.UpdatedAt = it.CreatedAt
	}
	it.PeriodID = periodID
	if err := insertItem(ctx, tx, it); err != nil {
		return it, err
	}
	return it, tx.Commit()
}

func (s *Store) ensurePeriod(ctx context.Context, db execer, debtID string, key collection.PeriodKey) (string, error) {
	var id string
	err := db.QueryRowContext(ctx,
		"SELECT id FROM collection_periods WHERE debt_id = ? AND period_key = ?",
		debtID, string(key),
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to find period: %w", err)
	}

	id = uuid.NewString()
	_, err = db.ExecContext(ctx,
		"INSERT INTO collection_periods (id, debt_id, period_key, created_at) VALUES (?, ?, ?, ?)",
		id, debtID, string(key), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create period: %w", err)
	}
	return id, nil
}

func insertItem(ctx context.Context, db execer, it collection.LineItem) error {
	query := `
		INSERT INTO debt_items (id, period_id, receipt_id, product_id, product_code, product_name,
		                        quantity, cost_price, selling_price, discount, ship_now,
		                        returned_quantity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		it.ID, it.PeriodID, nullString(it.ReceiptID), it.ProductID, it.ProductCode, it.ProductName,
		it.Quantity, it.CostPrice.String(), it.SellingPrice.String(), it.Discount.String(), it.ShipNow,
		it.ReturnedQuantity, it.CreatedAt.UTC().Format(time.RFC3339Nano), it.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: product %s already in period", ErrUpdateRejected, it.ProductID)
		}
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

// =============================================================================
// STATUS SWEEP
// =============================================================================

// RefreshStatuses recomputes the status of every debt at now and stores the
// ones that changed. It returns the number of debts updated.
func (s *Store) RefreshStatuses(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, "SELECT "+debtColumns+" FROM debts")
	if err != nil {
		return 0, fmt.Errorf("failed to list debts: %w", err)
	}
	var changed []collection.DebtRecord
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			rows.Close()
			return 0, err
		}
		if status := collection.StatusFor(d.TotalAmount, d.PaidAmount, d.DueDate, now); status != d.Status {
			d.Status = status
			changed = append(changed, d)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	stamp := now.UTC().Format(time.RFC3339)
	for _, d := range changed {
		_, err := tx.ExecContext(ctx,
			"UPDATE debts SET status = ?, updated_at = ? WHERE id = ?",
			string(d.Status), stamp, d.ID,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to update status of %s: %w", d.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit statuses: %w", err)
	}
	return len(changed), nil
}

// =============================================================================
// PERIOD UPDATE
// =============================================================================

// ApplyPeriodUpdate appends a session's changes to today's period of a debt.
// The record total grows by the incremental amount; remaining and status
// follow. Product inventory drops by the added quantity of items that are
// not shipped ahead of stock.
func (s *Store) ApplyPeriodUpdate(ctx context.Context, debtID string, req collection.SyncRequest, at time.Time) (collection.DebtRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateUpdate(req); err != nil {
		return collection.DebtRecord{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return collection.DebtRecord{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	record, err := s.getDebt(ctx, tx, debtID)
	if err != nil {
		return collection.DebtRecord{}, err
	}
	if req.IdempotencyKey != "" {
		var applied int
		err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM applied_updates WHERE idempotency_key = ? AND debt_id = ?",
			req.IdempotencyKey, debtID,
		).Scan(&applied)
		if err != nil {
			return collection.DebtRecord{}, fmt.Errorf("failed to check idempotency key: %w", err)
		}
		if applied > 0 {
			// replay of a submit that already went through
			return record, nil
		}
	}
	periodID, err := s.ensurePeriod(ctx, tx, debtID, collection.KeyOf(at.In(s.loc)))
	if err != nil {
		return collection.DebtRecord{}, err
	}

	stamp := at.UTC()
	added := decimal.Zero
	for _, ri := range req.Items {
		if ri.PeriodID != "" && ri.PeriodID != periodID {
			return collection.DebtRecord{}, fmt.Errorf("%w: period %s is closed", ErrUpdateRejected, ri.PeriodID)
		}
		delta := ri.Quantity - ri.OriginalQuantity
		added = added.Add(ri.Price.Mul(decimal.NewFromInt(int64(delta))))

		if err := upsertItem(ctx, tx, periodID, ri, stamp); err != nil {
			return collection.DebtRecord{}, err
		}
		if !ri.ShipNow && delta != 0 {
			_, err := tx.ExecContext(ctx,
				"UPDATE products SET inventory = MAX(inventory - ?, 0) WHERE id = ?",
				delta, ri.ProductID,
			)
			if err != nil {
				return collection.DebtRecord{}, fmt.Errorf("failed to update inventory: %w", err)
			}
		}
	}

	record.TotalAmount = record.TotalAmount.Add(added)
	record.RemainingAmount = record.TotalAmount.Sub(record.PaidAmount)
	record.DueDate = req.DueDate
	record.Note = req.Note
	record.Status = collection.StatusFor(record.TotalAmount, record.PaidAmount, record.DueDate, at)

	_, err = tx.ExecContext(ctx, `
		UPDATE debts SET total_amount = ?, remaining_amount = ?, status = ?,
		                 due_date = ?, note = ?, updated_at = ?
		WHERE id = ?`,
		record.TotalAmount.String(), record.RemainingAmount.String(), string(record.Status),
		nullString(formatTime(record.DueDate)), record.Note, stamp.Format(time.RFC3339), debtID,
	)
	if err != nil {
		return collection.DebtRecord{}, fmt.Errorf("failed to update debt: %w", err)
	}
	if req.IdempotencyKey != "" {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO applied_updates (idempotency_key, debt_id, applied_at) VALUES (?, ?, ?)",
			req.IdempotencyKey, debtID, stamp.Format(time.RFC3339),
		)
		if isUniqueConstraintError(err) {
			return collection.DebtRecord{}, fmt.Errorf("%w: idempotency key %s belongs to another debt", ErrUpdateRejected, req.IdempotencyKey)
		}
		if err != nil {
			return collection.DebtRecord{}, fmt.Errorf("failed to record idempotency key: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return collection.DebtRecord{}, fmt.Errorf("failed to commit update: %w", err)
	}
	return record, nil
}

func validateUpdate(req collection.SyncRequest) error {
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: no items", ErrUpdateRejected)
	}
	if req.DueDate.IsZero() {
		return fmt.Errorf("%w: due date is required", ErrUpdateRejected)
	}
	seen := make(map[string]bool, len(req.Items))
	for _, ri := range req.Items {
		switch {
		case ri.ProductID == "":
			return fmt.Errorf("%w: item without product id", ErrUpdateRejected)
		case seen[ri.ProductID]:
			return fmt.Errorf("%w: product %s listed twice", ErrUpdateRejected, ri.ProductID)
		case ri.Quantity < 0 || ri.OriginalQuantity < 0:
			return fmt.Errorf("%w: product %s has a negative quantity", ErrUpdateRejected, ri.ProductID)
		case ri.Quantity > collection.MaxQuantity:
			return fmt.Errorf("%w: product %s quantity above %d", ErrUpdateRejected, ri.ProductID, collection.MaxQuantity)
		case ri.OriginalQuantity > 0 && ri.Quantity < ri.OriginalQuantity:
			return fmt.Errorf("%w: product %s below baseline %d", ErrUpdateRejected, ri.ProductID, ri.OriginalQuantity)
		case ri.Price.IsNegative():
			return fmt.Errorf("%w: product %s has a negative price", ErrUpdateRejected, ri.ProductID)
		}
		seen[ri.ProductID] = true
	}
	return nil
}

func upsertItem(ctx context.Context, tx *sql.Tx, periodID string, ri collection.SyncRequestItem, at time.Time) error {
	var (
		id       string
		returned int
	)
	err := tx.QueryRowContext(ctx,
		"SELECT id, returned_quantity FROM debt_items WHERE period_id = ? AND product_id = ?",
		periodID, ri.ProductID,
	).Scan(&id, &returned)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return insertItem(ctx, tx, collection.LineItem{
			ID:           uuid.NewString(),
			PeriodID:     periodID,
			ProductID:    ri.ProductID,
			ProductCode:  ri.ProductCode,
			ProductName:  ri.ProductName,
			Quantity:     ri.Quantity,
			CostPrice:    ri.Price,
			SellingPrice: ri.Price,
			Discount:     decimal.Zero,
			ShipNow:      ri.ShipNow,
			CreatedAt:    at,
			UpdatedAt:    at,
		})
	case err != nil:
		return fmt.Errorf("failed to find item: %w", err)
	case returned > 0:
		return fmt.Errorf("%w: product %s has returns recorded", ErrUpdateRejected, ri.ProductID)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE debt_items SET quantity = ?, cost_price = ?, selling_price = ?, ship_now = ?, updated_at = ?
		WHERE id = ?`,
		ri.Quantity, ri.Price.String(), ri.Price.String(), ri.ShipNow, at.Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return nil
}

// =============================================================================
// PRODUCTS
// =============================================================================

// SaveProduct inserts or replaces a catalog entry.
func (s *Store) SaveProduct(ctx context.Context, p collection.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO products (id, code, name, cost_price, selling_price, inventory)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code,
			name = excluded.name,
			cost_price = excluded.cost_price,
			selling_price = excluded.selling_price,
			inventory = excluded.inventory
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Code, p.Name, p.CostPrice.String(), p.SellingPrice.String(), p.Inventory,
	)
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

// GetProduct looks a product up by code first, then by id.
func (s *Store) GetProduct(ctx context.Context, codeOrID string) (collection.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		p             collection.Product
		cost, selling string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, code, name, cost_price, selling_price, inventory
		FROM products WHERE code = ? OR id = ?
		ORDER BY CASE WHEN code = ? THEN 0 ELSE 1 END
		LIMIT 1`,
		codeOrID, codeOrID, codeOrID,
	).Scan(&p.ID, &p.Code, &p.Name, &cost, &selling, &p.Inventory)
	if errors.Is(err, sql.ErrNoRows) {
		return collection.Product{}, fmt.Errorf("product %s: %w", codeOrID, collection.ErrNotFound)
	}
	if err != nil {
		return collection.Product{}, fmt.Errorf("failed to get product: %w", err)
	}
	p.CostPrice = parseDecimal(cost)
	p.SellingPrice = parseDecimal(selling)
	return p, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"applied_updates", "debt_items", "collection_periods", "debts", "products"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
