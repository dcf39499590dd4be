package handlers

import (
	"net/http"
	"strings"

	"github.com/pedrolabre/personal-finance-manager/internal/api/middleware"
	"github.com/pedrolabre/personal-finance-manager/internal/domain"
	"github.com/pedrolabre/personal-finance-manager/internal/service"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type debtRequest struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Total        decimal.Decimal `json:"total"`
	Priority     string          `json:"priority"`
	Status       string          `json:"status"`
	Type         string          `json:"type"`
	CardID       *int64          `json:"card_id"`
	Installments int             `json:"installments"`
	IntervalDays int             `json:"interval_days"`
	FirstDueDate string          `json:"first_due_date"`
}

func (req debtRequest) input() (service.DebtInput, error) {
	in := service.DebtInput{
		Name:         req.Name,
		Description:  req.Description,
		Total:        req.Total,
		CardID:       req.CardID,
		Installments: req.Installments,
		IntervalDays: req.IntervalDays,
	}
	if req.Priority != "" {
		in.Priority = domain.ParsePriority(req.Priority)
	}
	if req.Status != "" {
		in.Status = domain.ParseDebtStatus(req.Status)
	}
	if req.Type != "" {
		in.Type = domain.ParseDebtType(req.Type)
	}
	due, err := parseDay(req.FirstDueDate)
	if err != nil {
		return in, err
	}
	if !due.IsZero() {
		in.FirstDueDate = &due
	}
	return in, nil
}

// DebtsHandler handles debt endpoints.
type DebtsHandler struct {
	debts        DebtService
	installments InstallmentService
	log          zerolog.Logger
}

// NewDebtsHandler creates a new debts handler.
func NewDebtsHandler(debts DebtService, installments InstallmentService, log zerolog.Logger) *DebtsHandler {
	return &DebtsHandler{debts: debts, installments: installments, log: log}
}

// ListDebts handles GET /api/debts. ?status= filters by status and
// ?status=overdue lists debts with a past-due installment.
func (h *DebtsHandler) ListDebts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := strings.TrimSpace(r.URL.Query().Get("status"))

	var (
		debts []service.DebtView
		err   error
	)
	switch {
	case status == "":
		debts, err = h.debts.List(ctx)
	case strings.EqualFold(status, "overdue"):
		debts, err = h.debts.ListOverdue(ctx)
	default:
		st := domain.DebtStatus(status)
		if !st.Valid() {
			middleware.WriteError(w, http.StatusBadRequest, "Status inválido")
			return
		}
		debts, err = h.debts.ListByStatus(ctx, st)
	}
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list debts")
		return
	}
	if debts == nil {
		debts = []service.DebtView{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"debts": debts,
		"count": len(debts),
	})
}

// CreateDebt handles POST /api/debts
func (h *DebtsHandler) CreateDebt(w http.ResponseWriter, r *http.Request) {
	var req debtRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create debt")
		return
	}
	debt, err := h.debts.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create debt")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, debt)
}

// GetDebt handles GET /api/debts/{id}
func (h *DebtsHandler) GetDebt(w http.ResponseWriter, r *http.Request, id int64) {
	debt, err := h.debts.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get debt")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, debt)
}

// UpdateDebt handles PUT /api/debts/{id}
func (h *DebtsHandler) UpdateDebt(w http.ResponseWriter, r *http.Request, id int64) {
	var req debtRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update debt")
		return
	}
	debt, err := h.debts.Update(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update debt")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, debt)
}

// SettleDebt handles POST /api/debts/{id}/settle
func (h *DebtsHandler) SettleDebt(w http.ResponseWriter, r *http.Request, id int64) {
	if err := h.debts.Settle(r.Context(), id); err != nil {
		writeServiceError(w, h.log, err, "Failed to settle debt")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"id":     id,
		"status": domain.DebtStatusSettled,
	})
}

// DeleteDebt handles DELETE /api/debts/{id}
func (h *DebtsHandler) DeleteDebt(w http.ResponseWriter, r *http.Request, id int64) {
	if err := h.debts.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete debt")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListInstallments handles GET /api/debts/{id}/installments
func (h *DebtsHandler) ListInstallments(w http.ResponseWriter, r *http.Request, id int64) {
	items, err := h.installments.ListByDebt(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list installments")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"installments": items,
		"count":        len(items),
	})
}
