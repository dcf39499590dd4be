package handlers

import (
	"net/http"

	"github.com/pedrolabre/personal-finance-manager/internal/api/middleware"
	"github.com/pedrolabre/personal-finance-manager/internal/domain"
	"github.com/pedrolabre/personal-finance-manager/internal/service"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AgreementsHandler handles settlement agreement endpoints.
type AgreementsHandler struct {
	agreements AgreementService
	log        zerolog.Logger
}

// NewAgreementsHandler creates a new agreements handler.
func NewAgreementsHandler(agreements AgreementService, log zerolog.Logger) *AgreementsHandler {
	return &AgreementsHandler{agreements: agreements, log: log}
}

// ListAgreements handles GET /api/agreements, optionally ?debt_id=N.
func (h *AgreementsHandler) ListAgreements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		list []domain.Agreement
		err  error
	)
	if raw := r.URL.Query().Get("debt_id"); raw != "" {
		debtID, perr := ParseID(raw)
		if perr != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid debt_id")
			return
		}
		list, err = h.agreements.ListByDebt(ctx, debtID)
	} else {
		list, err = h.agreements.List(ctx)
	}
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list agreements")
		return
	}
	if list == nil {
		list = []domain.Agreement{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"agreements": list,
		"count":      len(list),
	})
}

// CreateAgreement handles POST /api/agreements
func (h *AgreementsHandler) CreateAgreement(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DebtID       int64           `json:"debt_id"`
		DebtName     string          `json:"debt_name"`
		Total        decimal.Decimal `json:"total"`
		Installments int             `json:"installments"`
		IntervalDays int             `json:"interval_days"`
		FirstDueDate string          `json:"first_due_date"`
		Notes        string          `json:"notes"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	due, err := parseDay(req.FirstDueDate)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create agreement")
		return
	}

	ag, err := h.agreements.Create(r.Context(), service.AgreementInput{
		DebtID:       req.DebtID,
		DebtName:     req.DebtName,
		Total:        req.Total,
		Installments: req.Installments,
		IntervalDays: req.IntervalDays,
		FirstDueDate: due,
		Notes:        req.Notes,
	})
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create agreement")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, ag)
}

// DeleteAgreement handles DELETE /api/agreements/{id}
func (h *AgreementsHandler) DeleteAgreement(w http.ResponseWriter, r *http.Request, id int64) {
	if err := h.agreements.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete agreement")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
