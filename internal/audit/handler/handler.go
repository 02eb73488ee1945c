// Package handler exposes the audit trail read-only over HTTP. There are no
// write endpoints: records enter the trail through the mutation pipeline
// only.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"edconnekt/internal/audit"
	dErrors "edconnekt/pkg/domain-errors"
	"edconnekt/pkg/platform/httputil"
	"edconnekt/pkg/platform/sentinel"
	"edconnekt/pkg/requestcontext"
)

// Handler serves audit queries. Access is limited to administrators at the
// routing layer.
type Handler struct {
	reader audit.Reader
	logger *slog.Logger
}

func New(reader audit.Reader, logger *slog.Logger) *Handler {
	return &Handler{reader: reader, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := httputil.QueryInt(r, "limit", 50)
	offset := httputil.QueryInt(r, "offset", 0)

	var (
		records []audit.Record
		err     error
	)
	q := r.URL.Query()
	switch {
	case q.Get("entite") != "" && q.Get("entite_id") != "":
		records, err = h.reader.ListByEntity(ctx, q.Get("entite"), q.Get("entite_id"), limit, offset)
	case q.Get("service") != "":
		records, err = h.reader.ListByService(ctx, q.Get("service"), limit, offset)
	default:
		records, err = h.reader.List(ctx, limit, offset)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "audit query failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.RespondError(w, dErrors.Wrap(err, dErrors.CodePersistence, "query audit records"))
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"items": records})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondError(w, dErrors.New(dErrors.CodeValidation, "invalid id"))
		return
	}

	record, err := h.reader.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.RespondError(w, dErrors.New(dErrors.CodeNotFound, "audit record not found"))
			return
		}
		httputil.RespondError(w, dErrors.Wrap(err, dErrors.CodePersistence, "query audit record"))
		return
	}
	httputil.RespondJSON(w, http.StatusOK, record)
}
