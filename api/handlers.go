/*
handlers.go - HTTP API handlers for the collection ledger service

PURPOSE:
  Exposes the ledger store over REST. Sessions load a debt record here,
  resolve scanned products, and append today's period update.

ENDPOINTS:
  Debts:
    GET    /api/debts                  List debt records
    GET    /api/debts/{id}             Record plus items grouped by period
    GET    /api/debts/{id}/periods     Per-period totals, newest first
    GET    /api/debts/{id}/statement   XLSX statement download
    POST   /api/debts/{id}/periods     Append today's changes

  Products:
    GET    /api/products/{code}        Lookup by barcode, code or id

  Health:
    GET    /healthz

ERROR HANDLING:
  Errors are returned as JSON with an HTTP status:
  - 400: Malformed request body
  - 404: Unknown debt or product
  - 422: Malformed update or one refused by a ledger rule
         (body is a SubmitResponse)
  - 429: Too many submits for one debt
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - store/sqlite/sqlite.go: Persistence
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/warp/collection-ledger/collection"
	"github.com/warp/collection-ledger/report"
	"github.com/warp/collection-ledger/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store
	Log   zerolog.Logger

	// Limiter throttles submits per debt. Nil disables it.
	Limiter *SubmitLimiter

	// Now stamps period updates. Defaults to time.Now.
	Now func() time.Time
}

// NewHandler creates a new handler backed by store.
func NewHandler(store *sqlite.Store, log zerolog.Logger) *Handler {
	return &Handler{Store: store, Log: log, Now: time.Now}
}

// =============================================================================
// DEBT ENDPOINTS
// =============================================================================

// ListDebts returns every debt record.
func (h *Handler) ListDebts(w http.ResponseWriter, r *http.Request) {
	debts, err := h.Store.ListDebts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list debts", err)
		return
	}

	dtos := make([]DebtSummaryDTO, len(debts))
	for i, d := range debts {
		dtos[i] = toDebtSummary(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetDebt returns a record with its items grouped by period.
func (h *Handler) GetDebt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	detail, err := h.Store.GetDebtDetail(r.Context(), id)
	if errors.Is(err, collection.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Debt not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get debt", err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// GetPeriods returns one summary per period, newest first.
func (h *Handler) GetPeriods(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	detail, err := h.Store.GetDebtDetail(r.Context(), id)
	if errors.Is(err, collection.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Debt not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get debt", err)
		return
	}

	today := collection.KeyOf(h.now().In(h.Store.Location()))
	store := collection.NewStore(detail.ItemsByPeriod)
	periods := store.Periods()

	dtos := make([]PeriodSummaryDTO, len(periods))
	for i, key := range periods {
		dtos[i] = PeriodSummaryDTO{
			Period:   key,
			Items:    len(store.Items(key)),
			Total:    collection.PeriodTotal(store, key),
			Editable: collection.IsMutable(key, today),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ExportStatement streams the debt's statement as an XLSX workbook.
func (h *Handler) ExportStatement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	detail, err := h.Store.GetDebtDetail(r.Context(), id)
	if errors.Is(err, collection.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Debt not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get debt", err)
		return
	}

	var buf bytes.Buffer
	if err := writeStatement(&buf, detail); err != nil {
		h.Log.Error().Err(err).Str("debt_id", id).Msg("failed to render statement")
		writeError(w, http.StatusInternalServerError, "Failed to render statement", err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", detail.Record.Code))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// SubmitPeriod appends a period update to a debt.
func (h *Handler) SubmitPeriod(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req collection.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, SubmitResponse{Success: false, Message: validationMessage(err)})
		return
	}

	record, err := h.Store.ApplyPeriodUpdate(r.Context(), id, req, h.now())
	switch {
	case errors.Is(err, collection.ErrNotFound):
		writeError(w, http.StatusNotFound, "Debt not found", nil)
		return
	case errors.Is(err, sqlite.ErrUpdateRejected):
		h.Log.Warn().Err(err).Str("debt_id", id).Msg("period update rejected")
		writeJSON(w, http.StatusUnprocessableEntity, SubmitResponse{Success: false, Message: err.Error()})
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to apply period update", err)
		return
	}

	h.Log.Info().
		Str("debt_id", id).
		Int("items", len(req.Items)).
		Str("total", record.TotalAmount.String()).
		Msg("period update applied")
	writeJSON(w, http.StatusOK, SubmitResponse{Success: true, Record: &record})
}

// =============================================================================
// PRODUCT ENDPOINTS
// =============================================================================

// GetProduct resolves a barcode, product code or product id.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	p, err := h.Store.GetProduct(r.Context(), code)
	if errors.Is(err, collection.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Product not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get product", err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// Healthz reports liveness.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

// writeStatement renders the XLSX statement. Replaced in tests.
var writeStatement = report.WriteStatement

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
	}
	return "invalid request: " + strings.Join(msgs, "; ")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
