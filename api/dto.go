package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/collection-ledger/collection"
)

// =============================================================================
// DEBT DTOs
// =============================================================================

// DebtSummaryDTO is one row of the debt list.
type DebtSummaryDTO struct {
	ID               string                `json:"id"`
	Code             string                `json:"code"`
	Kind             collection.DebtKind   `json:"kind"`
	CounterpartyName string                `json:"counterparty_name"`
	TotalAmount      decimal.Decimal       `json:"total_amount"`
	RemainingAmount  decimal.Decimal       `json:"remaining_amount"`
	Status           collection.DebtStatus `json:"status"`
	DueDate          string                `json:"due_date,omitempty"`
}

// PeriodSummaryDTO summarises one collection period of a debt.
type PeriodSummaryDTO struct {
	Period   collection.PeriodKey `json:"period"`
	Items    int                  `json:"items"`
	Total    decimal.Decimal      `json:"total"`
	Editable bool                 `json:"editable"`
}

// =============================================================================
// SUBMIT DTOs
// =============================================================================

// SubmitResponse answers POST /api/debts/{id}/periods. Success and Message
// decode into collection.SubmitResult on the client.
type SubmitResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message,omitempty"`
	Record  *collection.DebtRecord `json:"record,omitempty"`
}

// =============================================================================
// ERROR DTOs
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toDebtSummary(d collection.DebtRecord) DebtSummaryDTO {
	dto := DebtSummaryDTO{
		ID:               d.ID,
		Code:             d.Code,
		Kind:             d.Kind,
		CounterpartyName: d.CounterpartyName,
		TotalAmount:      d.TotalAmount,
		RemainingAmount:  d.RemainingAmount,
		Status:           d.Status,
	}
	if !d.DueDate.IsZero() {
		dto.DueDate = d.DueDate.Format("2006-01-02")
	}
	return dto
}
