// Package api wires the HTTP handlers into a ServeMux.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/pedrolabre/personal-finance-manager/internal/api/handlers"
	"github.com/pedrolabre/personal-finance-manager/internal/api/middleware"
)

// Handlers groups the endpoint handlers served by NewMux.
type Handlers struct {
	Imports      *handlers.ImportsHandler
	Jobs         *handlers.JobsHandler
	Cards        *handlers.CardsHandler
	Debts        *handlers.DebtsHandler
	Installments *handlers.InstallmentsHandler
	Agreements   *handlers.AgreementsHandler
	Receivables  *handlers.ReceivablesHandler
	Dashboard    *handlers.DashboardHandler
}

func methodNotAllowed(w http.ResponseWriter) {
	middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// splitResource splits "/api/debts/12/settle" under prefix "/api/debts/"
// into the ID and the trailing action ("settle").
func splitResource(path, prefix string) (int64, string, bool) {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	idPart, action, _ := strings.Cut(rest, "/")
	id, err := handlers.ParseID(idPart)
	if err != nil {
		return 0, "", false
	}
	return id, action, true
}

// NewMux registers every endpoint on a new ServeMux.
func NewMux(h Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	// Imports endpoints
	mux.HandleFunc("/api/imports", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.Imports.Enqueue(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/imports/preview", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.Imports.Preview(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/imports/sync", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.Imports.ImportSync(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Jobs.ListJobs(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		h.Jobs.GetJob(w, r, jobID)
	})

	// Cards endpoints
	mux.HandleFunc("/api/cards", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Cards.ListCards(w, r)
		case http.MethodPost:
			h.Cards.CreateCard(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/cards/", func(w http.ResponseWriter, r *http.Request) {
		id, action, ok := splitResource(r.URL.Path, "/api/cards/")
		if !ok || action != "" {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.Cards.GetCard(w, r, id)
		case http.MethodPut:
			h.Cards.UpdateCard(w, r, id)
		case http.MethodDelete:
			h.Cards.DeleteCard(w, r, id)
		default:
			methodNotAllowed(w)
		}
	})

	// Debts endpoints
	mux.HandleFunc("/api/debts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Debts.ListDebts(w, r)
		case http.MethodPost:
			h.Debts.CreateDebt(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/debts/", func(w http.ResponseWriter, r *http.Request) {
		id, action, ok := splitResource(r.URL.Path, "/api/debts/")
		if !ok {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		switch {
		case action == "" && r.Method == http.MethodGet:
			h.Debts.GetDebt(w, r, id)
		case action == "" && r.Method == http.MethodPut:
			h.Debts.UpdateDebt(w, r, id)
		case action == "" && r.Method == http.MethodDelete:
			h.Debts.DeleteDebt(w, r, id)
		case action == "settle" && r.Method == http.MethodPost:
			h.Debts.SettleDebt(w, r, id)
		case action == "installments" && r.Method == http.MethodGet:
			h.Debts.ListInstallments(w, r, id)
		case action == "" || action == "settle" || action == "installments":
			methodNotAllowed(w)
		default:
			middleware.WriteError(w, http.StatusNotFound, "Not found")
		}
	})

	// Installments endpoints
	mux.HandleFunc("/api/installments/upcoming", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Installments.Upcoming(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/installments/generate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.Installments.GeneratePlan(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/installments/", func(w http.ResponseWriter, r *http.Request) {
		id, action, ok := splitResource(r.URL.Path, "/api/installments/")
		if !ok || action != "pay" {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.Installments.PayInstallment(w, r, id)
	})

	// Agreements endpoints
	mux.HandleFunc("/api/agreements", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Agreements.ListAgreements(w, r)
		case http.MethodPost:
			h.Agreements.CreateAgreement(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/agreements/", func(w http.ResponseWriter, r *http.Request) {
		id, action, ok := splitResource(r.URL.Path, "/api/agreements/")
		if !ok || action != "" {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		if r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		h.Agreements.DeleteAgreement(w, r, id)
	})

	// Receivables endpoints
	mux.HandleFunc("/api/receivables", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Receivables.ListReceivables(w, r)
		case http.MethodPost:
			h.Receivables.CreateReceivable(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/receivables/", func(w http.ResponseWriter, r *http.Request) {
		id, action, ok := splitResource(r.URL.Path, "/api/receivables/")
		if !ok {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		switch {
		case action == "" && r.Method == http.MethodPut:
			h.Receivables.UpdateReceivable(w, r, id)
		case action == "" && r.Method == http.MethodDelete:
			h.Receivables.DeleteReceivable(w, r, id)
		case action == "receive" && r.Method == http.MethodPost:
			h.Receivables.Receive(w, r, id)
		case action == "" || action == "receive":
			methodNotAllowed(w)
		default:
			middleware.WriteError(w, http.StatusNotFound, "Not found")
		}
	})

	// Dashboard endpoints
	mux.HandleFunc("/api/dashboard", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Dashboard.Summary(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/dashboard/refresh", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.Dashboard.Refresh(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return mux
}
