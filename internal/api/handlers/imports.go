package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/pedrolabre/personal-finance-manager/internal/api/middleware"
	"github.com/pedrolabre/personal-finance-manager/internal/gcsuploader"
	"github.com/pedrolabre/personal-finance-manager/internal/jobs"
	"github.com/pedrolabre/personal-finance-manager/internal/pipeline"
	"github.com/rs/zerolog"
)

// importRequest is the body of every import endpoint. Exactly one of Text
// and GCSURI is set.
type importRequest struct {
	Text   string `json:"text"`
	GCSURI string `json:"gcs_uri"`
	Format string `json:"format"`
	DryRun bool   `json:"dry_run"`
}

func (req importRequest) validate() (pipeline.Format, string) {
	format, err := pipeline.ParseFormat(req.Format)
	if err != nil {
		return "", err.Error()
	}
	hasText := strings.TrimSpace(req.Text) != ""
	hasURI := strings.TrimSpace(req.GCSURI) != ""
	if hasText == hasURI {
		return "", "Exactly one of text and gcs_uri is required"
	}
	if hasURI {
		if _, _, err := gcsuploader.ParseGCSURI(strings.TrimSpace(req.GCSURI)); err != nil {
			return "", "gcs_uri must look like gs://bucket/object"
		}
	}
	return format, ""
}

// ImportsHandler handles import endpoints.
type ImportsHandler struct {
	importer  Importer
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewImportsHandler creates a new imports handler.
func NewImportsHandler(importer Importer, publisher jobs.Publisher, log zerolog.Logger) *ImportsHandler {
	return &ImportsHandler{
		importer:  importer,
		publisher: publisher,
		log:       log,
	}
}

// Preview handles POST /api/imports/preview
func (h *ImportsHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.DryRun = true
	h.run(w, r, req)
}

// ImportSync handles POST /api/imports/sync
func (h *ImportsHandler) ImportSync(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.run(w, r, req)
}

func (h *ImportsHandler) run(w http.ResponseWriter, r *http.Request, req importRequest) {
	format, msg := req.validate()
	if msg != "" {
		middleware.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	ctx := r.Context()
	var (
		res *pipeline.Result
		err error
	)
	switch {
	case req.GCSURI != "":
		res, err = h.importer.ImportGCS(ctx, req.GCSURI, format, req.DryRun)
	case req.DryRun:
		res, err = h.importer.Preview(ctx, req.Text, format)
	default:
		res, err = h.importer.Import(ctx, req.Text, format)
	}
	switch {
	case errors.Is(err, pipeline.ErrNoFetcher):
		middleware.WriteError(w, http.StatusServiceUnavailable, "Cloud Storage imports are not configured")
		return
	case errors.Is(err, gcsuploader.ErrInvalidURI):
		middleware.WriteError(w, http.StatusBadRequest, "gcs_uri must look like gs://bucket/object")
		return
	case errors.Is(err, gcsuploader.ErrObjectTooLarge):
		middleware.WriteError(w, http.StatusBadRequest, "Cloud Storage object is too large to import")
		return
	case errors.Is(err, gcsuploader.ErrObjectNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Cloud Storage object not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Import failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Import failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, res)
}

// Enqueue handles POST /api/imports
func (h *ImportsHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	format, msg := req.validate()
	if msg != "" {
		middleware.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	job := &jobs.ImportJob{
		Source: jobs.SourceText,
		Text:   req.Text,
		Format: format,
		DryRun: req.DryRun,
	}
	if req.GCSURI != "" {
		job.Source = jobs.SourceGCS
		job.GCSURI = req.GCSURI
		job.Text = ""
	}

	if err := h.publisher.PublishImport(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue import job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue import job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("source", string(job.Source)).Msg("Import job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}
