package handlers

import (
	"net/http"

	"github.com/pedrolabre/personal-finance-manager/internal/api/middleware"
	"github.com/rs/zerolog"
)

// DashboardHandler handles dashboard endpoints.
type DashboardHandler struct {
	dashboard DashboardService
	log       zerolog.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(dashboard DashboardService, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, log: log}
}

// Summary handles GET /api/dashboard
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.dashboard.Summary(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to build dashboard")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, sum)
}

// Refresh handles POST /api/dashboard/refresh
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	report, err := h.dashboard.RefreshStatuses(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to refresh statuses")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, report)
}
