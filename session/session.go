/*
Package session drives one open debt ledger screen.

PURPOSE:
  A Session loads a debt record from the ledger service, applies the user's
  edits through the collection engine, and submits today's changes. After a
  successful submit it throws its local state away and reloads, so dirty
  markers never outlive a submit.

STATE MACHINE:
  Idle --Open--> Loading --ok--> Ready
                         \-err-> Error (terminal)
  Ready --edit--> Ready
  Ready --Submit--> Submitting --ok--> (reload) Ready
                               \-err-> Ready, edits kept, LastError set

  A submit blocked by form validation (no due date, nothing changed) never
  leaves Ready and never reaches the network.

EDIT PERIOD:
  The editable period is fixed when the record loads. If the clock passes
  midnight before a submit, Submit returns ErrDayChanged and keeps the
  edits; the record has to be opened again for the new day.

RETRIES:
  Every payload carries an idempotency key. Retrying an unchanged payload
  after a failure reuses the key, so a submit that reached the service
  before the connection dropped is not applied twice. Any edit starts a
  new key.

CONCURRENCY:
  Calls are serialised by a mutex. The Store is value-replaced on every
  successful edit. Two sessions editing the same record do not see each
  other: the service applies submits in arrival order, last writer wins.

SEE ALSO:
  - collection/engine.go: Edit rules
  - remote/client.go: HTTP implementation of Remote
*/
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/collection-ledger/collection"
)

// =============================================================================
// COLLABORATOR
// =============================================================================

// Remote is the ledger service as seen from a session.
type Remote interface {
	// FetchDebtDetail returns the record and its items grouped by period.
	// Fails with collection.ErrNotFound or a *NetworkError.
	FetchDebtDetail(ctx context.Context, id string) (collection.DebtDetail, error)

	// FetchProduct resolves a barcode, product code or product id.
	FetchProduct(ctx context.Context, codeOrID string) (collection.Product, error)

	// SubmitPeriodUpdate appends today's changes to the record.
	SubmitPeriodUpdate(ctx context.Context, id string, req collection.SyncRequest) (collection.SubmitResult, error)
}

// =============================================================================
// STATE
// =============================================================================

type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateReady      State = "ready"
	StateSubmitting State = "submitting"
	StateError      State = "error"
)

// Clock returns the current time. Sessions derive today's period from it.
type Clock func() time.Time

type Options struct {
	// Location decides which calendar day "now" falls on. Defaults to Local.
	Location *time.Location

	// Precision is the number of decimal places of the currency.
	Precision int32

	Clock Clock

	// Logger defaults to a no-op logger.
	Logger *zerolog.Logger
}

// Session is one edit session over one debt record.
type Session struct {
	remote Remote
	opts   Options

	mu      sync.Mutex
	state   State
	id      string
	record  collection.DebtRecord
	store   collection.Store
	dueDate time.Time
	note    string
	lastErr error

	// period is the editable period, fixed at load.
	period collection.PeriodKey

	// pendingKey identifies the current payload across submit retries.
	// Any edit clears it.
	pendingKey string
}

func New(remote Remote, opts Options) *Session {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	return &Session{remote: remote, opts: opts, state: StateIdle}
}

// =============================================================================
// LOADING
// =============================================================================

// Open loads a record. Failure is terminal for the session.
func (s *Session) Open(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return fmt.Errorf("open %s: %w (state %s)", id, ErrNotReady, s.state)
	}
	s.id = id
	s.state = StateLoading

	if err := s.loadLocked(ctx); err != nil {
		s.state = StateError
		s.lastErr = err
		s.log().Error().Err(err).Str("debt_id", id).Msg("failed to load debt")
		return err
	}
	s.state = StateReady
	return nil
}

func (s *Session) loadLocked(ctx context.Context) error {
	detail, err := s.remote.FetchDebtDetail(ctx, s.id)
	if err != nil {
		return fmt.Errorf("fetch debt %s: %w", s.id, err)
	}
	s.record = detail.Record
	s.store = collection.NewStore(detail.ItemsByPeriod)
	s.dueDate = detail.Record.DueDate
	s.note = detail.Record.Note
	s.period = collection.KeyOf(s.now())

	s.log().Debug().
		Str("debt_id", s.id).
		Int("periods", len(s.store.Periods())).
		Int("items", s.store.Len()).
		Msg("debt loaded")
	return nil
}

// =============================================================================
// EDITS
// =============================================================================

// AddProduct looks a product up and adds one unit of it to today's period.
func (s *Session) AddProduct(ctx context.Context, codeOrID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireReady(); err != nil {
		return err
	}
	product, err := s.remote.FetchProduct(ctx, codeOrID)
	if err != nil {
		return fmt.Errorf("fetch product %s: %w", codeOrID, err)
	}
	now := s.now()
	return s.apply(func(st collection.Store, today collection.PeriodKey) (collection.Store, error) {
		return collection.AddOrIncrement(st, product, today, now)
	})
}

func (s *Session) SetQuantity(itemID string, quantity int) error {
	return s.edit(func(st collection.Store, today collection.PeriodKey) (collection.Store, error) {
		return collection.SetQuantity(st, itemID, quantity, today)
	})
}

func (s *Session) SetPrice(itemID string, price decimal.Decimal) error {
	return s.edit(func(st collection.Store, today collection.PeriodKey) (collection.Store, error) {
		return collection.SetPrice(st, itemID, price, today)
	})
}

func (s *Session) SetShipNow(itemID string, enabled bool) error {
	return s.edit(func(st collection.Store, today collection.PeriodKey) (collection.Store, error) {
		return collection.SetShipNow(st, itemID, enabled, today)
	})
}

func (s *Session) RemoveItem(itemID string) error {
	return s.edit(func(st collection.Store, today collection.PeriodKey) (collection.Store, error) {
		return collection.RemoveItem(st, itemID, today)
	})
}

// SetDueDate sets the form's due date. A zero time clears it.
func (s *Session) SetDueDate(due time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireReady(); err != nil {
		return err
	}
	s.dueDate = due
	s.pendingKey = ""
	return nil
}

func (s *Session) SetNote(note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireReady(); err != nil {
		return err
	}
	s.note = note
	s.pendingKey = ""
	return nil
}

type editFunc func(collection.Store, collection.PeriodKey) (collection.Store, error)

func (s *Session) edit(fn editFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireReady(); err != nil {
		return err
	}
	return s.apply(fn)
}

func (s *Session) apply(fn editFunc) error {
	next, err := fn(s.store, s.today())
	if err != nil {
		s.log().Debug().Err(err).Str("debt_id", s.id).Msg("edit rejected")
		return err
	}
	s.store = next
	s.pendingKey = ""
	return nil
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit sends today's dirty items. On success the session reloads from the
// service and ends up Ready with a clean store.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireReady(); err != nil {
		return err
	}
	if s.dueDate.IsZero() {
		return ErrDueDateRequired
	}
	req, err := collection.BuildPayload(s.store, s.today(), s.dueDate, s.note)
	if err != nil {
		return err
	}
	if current := collection.KeyOf(s.now()); current != s.period {
		return fmt.Errorf("%w: edits belong to %s, today is %s", ErrDayChanged, s.period, current)
	}
	if s.pendingKey == "" {
		s.pendingKey = uuid.NewString()
	}
	req.IdempotencyKey = s.pendingKey

	log := s.log().With().Str("debt_id", s.id).Int("items", len(req.Items)).Logger()
	s.state = StateSubmitting

	result, err := s.remote.SubmitPeriodUpdate(ctx, s.id, req)
	if err == nil && !result.Success {
		err = &RejectedError{Message: result.Message}
	}
	if err != nil {
		s.state = StateReady
		s.lastErr = err
		log.Warn().Err(err).Msg("submit failed, edits kept")
		return fmt.Errorf("submit debt %s: %w", s.id, err)
	}
	log.Info().Msg("period update submitted")

	if err := s.loadLocked(ctx); err != nil {
		s.state = StateError
		s.lastErr = err
		log.Error().Err(err).Msg("reload after submit failed")
		return err
	}
	s.state = StateReady
	s.lastErr = nil
	s.pendingKey = ""
	return nil
}

// =============================================================================
// READ ACCESS
// =============================================================================

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Record() collection.DebtRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

// Store returns the current store. It is a value and safe to keep.
func (s *Session) Store() collection.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Clone()
}

// Periods returns the loaded period keys, newest first.
func (s *Session) Periods() []collection.PeriodKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Periods()
}

// Today is the editable period of the loaded record.
func (s *Session) Today() collection.PeriodKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.today()
}

func (s *Session) DirtyItems() []collection.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return collection.DirtyItems(s.store, s.today())
}

func (s *Session) IncrementalAmountDue() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return collection.IncrementalAmountDue(s.store, s.today(), s.opts.Precision)
}

func (s *Session) DueDate() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dueDate
}

func (s *Session) Note() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.note
}

// LastError is the most recent load or submit failure.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Session) now() time.Time {
	return s.opts.Clock().In(s.opts.Location)
}

func (s *Session) today() collection.PeriodKey {
	if s.period == "" {
		return collection.KeyOf(s.now())
	}
	return s.period
}

func (s *Session) requireReady() error {
	if s.state != StateReady {
		return fmt.Errorf("%w (state %s)", ErrNotReady, s.state)
	}
	return nil
}

func (s *Session) log() *zerolog.Logger {
	return s.opts.Logger
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrDueDateRequired blocks a submit until the form has a due date.
	ErrDueDateRequired = errors.New("due date is required")

	// ErrDayChanged blocks a submit whose edits belong to a period that
	// closed at midnight.
	ErrDayChanged = errors.New("collection day changed since the record was loaded")

	// ErrNotReady is returned for calls made outside the Ready state.
	ErrNotReady = errors.New("session not ready")

	// ErrNetwork is the sentinel behind every *NetworkError.
	ErrNetwork = errors.New("network error")

	// ErrRejected is the sentinel behind every *RejectedError.
	ErrRejected = errors.New("update rejected")
)

// NetworkError wraps a transport failure talking to the ledger service.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() []error {
	return []error{ErrNetwork, e.Err}
}

// RejectedError is a submit the service answered with success=false.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return ErrRejected.Error()
	}
	return ErrRejected.Error() + ": " + e.Message
}

func (e *RejectedError) Unwrap() error { return ErrRejected }
