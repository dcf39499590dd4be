package handlers

import (
	"net/http"
	"time"

	"github.com/pedrolabre/personal-finance-manager/internal/api/middleware"
	"github.com/pedrolabre/personal-finance-manager/internal/installments"
	"github.com/pedrolabre/personal-finance-manager/internal/service"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// InstallmentsHandler handles installment endpoints.
type InstallmentsHandler struct {
	installments InstallmentService
	intervalDays int
	now          func() time.Time
	log          zerolog.Logger
}

// NewInstallmentsHandler creates a new installments handler. intervalDays
// is the default spacing for generated plans.
func NewInstallmentsHandler(svc InstallmentService, intervalDays int, log zerolog.Logger) *InstallmentsHandler {
	return &InstallmentsHandler{installments: svc, intervalDays: intervalDays, now: time.Now, log: log}
}

// PayInstallment handles POST /api/installments/{id}/pay. The optional
// body {"paid_at": "..."} backdates the payment.
func (h *InstallmentsHandler) PayInstallment(w http.ResponseWriter, r *http.Request, id int64) {
	var req struct {
		PaidAt string `json:"paid_at"`
	}
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return
	}
	paidAt, err := parseDay(req.PaidAt)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to pay installment")
		return
	}
	it, err := h.installments.Pay(r.Context(), id, paidAt)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to pay installment")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, it)
}

// Upcoming handles GET /api/installments/upcoming?days=N
func (h *InstallmentsHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", service.UpcomingWindowDays)
	items, err := h.installments.Upcoming(r.Context(), days)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list upcoming installments")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"installments": items,
		"count":        len(items),
		"days":         days,
	})
}

// GeneratePlan handles POST /api/installments/generate. It previews a plan
// without storing anything.
func (h *InstallmentsHandler) GeneratePlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Total        decimal.Decimal `json:"total"`
		Installments int             `json:"installments"`
		IntervalDays int             `json:"interval_days"`
		FirstDueDate string          `json:"first_due_date"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.Total.IsPositive() {
		middleware.WriteError(w, http.StatusBadRequest, "Valor deve ser maior que zero")
		return
	}
	start, err := parseDay(req.FirstDueDate)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to generate plan")
		return
	}
	if start.IsZero() {
		y, m, d := h.now().UTC().Date()
		start = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	interval := req.IntervalDays
	if interval <= 0 {
		interval = h.intervalDays
	}

	plan, err := installments.Generate(req.Total, req.Installments, start, interval)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Número de parcelas deve ser maior que zero")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"installments": plan,
		"count":        len(plan),
		"total":        installments.Sum(plan),
	})
}
