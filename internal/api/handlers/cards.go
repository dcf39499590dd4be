package handlers

import (
	"net/http"

	"github.com/pedrolabre/personal-finance-manager/internal/api/middleware"
	"github.com/pedrolabre/personal-finance-manager/internal/service"
	"github.com/rs/zerolog"
)

// CardsHandler handles credit card endpoints.
type CardsHandler struct {
	cards CardService
	log   zerolog.Logger
}

// NewCardsHandler creates a new cards handler.
func NewCardsHandler(cards CardService, log zerolog.Logger) *CardsHandler {
	return &CardsHandler{cards: cards, log: log}
}

// ListCards handles GET /api/cards. ?active=true lists active cards only.
func (h *CardsHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	list := h.cards.List
	if r.URL.Query().Get("active") == "true" {
		list = h.cards.ListActive
	}
	cards, err := list(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list cards")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"cards": cards,
		"count": len(cards),
	})
}

// CreateCard handles POST /api/cards
func (h *CardsHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var in service.CardInput
	if !decodeJSON(w, r, &in) {
		return
	}
	card, err := h.cards.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create card")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, card)
}

// GetCard handles GET /api/cards/{id}
func (h *CardsHandler) GetCard(w http.ResponseWriter, r *http.Request, id int64) {
	card, err := h.cards.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get card")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, card)
}

// UpdateCard handles PUT /api/cards/{id}
func (h *CardsHandler) UpdateCard(w http.ResponseWriter, r *http.Request, id int64) {
	var in service.CardInput
	if !decodeJSON(w, r, &in) {
		return
	}
	card, err := h.cards.Update(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update card")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, card)
}

// DeleteCard handles DELETE /api/cards/{id}
func (h *CardsHandler) DeleteCard(w http.ResponseWriter, r *http.Request, id int64) {
	if err := h.cards.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete card")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
