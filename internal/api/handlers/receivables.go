package handlers

import (
	"net/http"

	"github.com/pedrolabre/personal-finance-manager/internal/api/middleware"
	"github.com/pedrolabre/personal-finance-manager/internal/domain"
	"github.com/pedrolabre/personal-finance-manager/internal/service"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type receivableRequest struct {
	Description  string          `json:"description"`
	Category     string          `json:"category"`
	ExpectedDate string          `json:"expected_date"`
	Expected     decimal.Decimal `json:"expected"`
	Received     decimal.Decimal `json:"received"`
}

func (req receivableRequest) input() (service.ReceivableInput, error) {
	date, err := parseDay(req.ExpectedDate)
	if err != nil {
		return service.ReceivableInput{}, err
	}
	return service.ReceivableInput{
		Description:  req.Description,
		Category:     domain.ParseReceivableCategory(req.Category),
		ExpectedDate: date,
		Expected:     req.Expected,
		Received:     req.Received,
	}, nil
}

// ReceivablesHandler handles expected income endpoints.
type ReceivablesHandler struct {
	receivables ReceivableService
	log         zerolog.Logger
}

// NewReceivablesHandler creates a new receivables handler.
func NewReceivablesHandler(receivables ReceivableService, log zerolog.Logger) *ReceivablesHandler {
	return &ReceivablesHandler{receivables: receivables, log: log}
}

// ListReceivables handles GET /api/receivables?filter=pending|overdue
func (h *ReceivablesHandler) ListReceivables(w http.ResponseWriter, r *http.Request) {
	list := h.receivables.List
	switch r.URL.Query().Get("filter") {
	case "":
	case "pending":
		list = h.receivables.ListPending
	case "overdue":
		list = h.receivables.ListOverdue
	default:
		middleware.WriteError(w, http.StatusBadRequest, "Invalid filter")
		return
	}

	items, err := list(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list receivables")
		return
	}
	if items == nil {
		items = []domain.Receivable{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"receivables": items,
		"count":       len(items),
	})
}

// CreateReceivable handles POST /api/receivables
func (h *ReceivablesHandler) CreateReceivable(w http.ResponseWriter, r *http.Request) {
	var req receivableRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create receivable")
		return
	}
	rec, err := h.receivables.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create receivable")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, rec)
}

// UpdateReceivable handles PUT /api/receivables/{id}
func (h *ReceivablesHandler) UpdateReceivable(w http.ResponseWriter, r *http.Request, id int64) {
	var req receivableRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update receivable")
		return
	}
	rec, err := h.receivables.Update(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update receivable")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, rec)
}

// Receive handles POST /api/receivables/{id}/receive with {"amount": ...}.
func (h *ReceivablesHandler) Receive(w http.ResponseWriter, r *http.Request, id int64) {
	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := h.receivables.Receive(r.Context(), id, req.Amount)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to register receipt")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, rec)
}

// DeleteReceivable handles DELETE /api/receivables/{id}
func (h *ReceivablesHandler) DeleteReceivable(w http.ResponseWriter, r *http.Request, id int64) {
	if err := h.receivables.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete receivable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
