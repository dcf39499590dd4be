package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pedrolabre/personal-finance-manager/internal/api/middleware"
	"github.com/pedrolabre/personal-finance-manager/internal/domain"
	"github.com/pedrolabre/personal-finance-manager/internal/parser"
	"github.com/rs/zerolog"
)

// maxBodyBytes caps request bodies, import text included.
const maxBodyBytes = 10 << 20

// decodeJSON reads the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// writeServiceError maps service errors to HTTP statuses. Validation and
// conflict messages are user-facing and returned as is; anything else is
// logged and reported with fallback.
func writeServiceError(w http.ResponseWriter, log zerolog.Logger, err error, fallback string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		middleware.WriteError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, domain.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, domain.ErrCardInUse):
		middleware.WriteError(w, http.StatusConflict, conflictMessage(err))
	case errors.Is(err, domain.ErrConflict):
		middleware.WriteError(w, http.StatusConflict, "Conflict")
	default:
		log.Error().Err(err).Msg(fallback)
		middleware.WriteError(w, http.StatusInternalServerError, fallback)
	}
}

// conflictMessage keeps the user-facing prefix of a wrapped sentinel.
func conflictMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i > 0 {
		return msg[:i]
	}
	return msg
}

// ParseID reads a positive numeric ID.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.Trim(s, "/"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// parseDay accepts any date layout the importer accepts, or RFC 3339.
// Blank input returns the zero time.
func parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t := parser.ParseDate(s)
	if parser.IsMissingDate(t) {
		return time.Time{}, domain.Invalid("date", "Data inválida")
	}
	return t, nil
}

// queryInt reads a positive integer query parameter, falling back to def.
func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && v > 0 {
		return v
	}
	return def
}
