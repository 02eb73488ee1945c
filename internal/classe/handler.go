package classe

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	dErrors "edconnekt/pkg/domain-errors"
	"edconnekt/pkg/platform/httputil"
	"edconnekt/pkg/requestcontext"
)

// Handler wires class endpoints to the service.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/classes", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
		r.Patch("/{id}", h.handleUpdate)
		r.Post("/{id}/enseignant", h.handleAssignEnseignant)
		r.Get("/{id}/audit", h.handleAuditHistory)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, err)
		return
	}

	c, err := h.service.Create(ctx, req)
	if err != nil {
		h.logError(r, "create classe failed", err)
		httputil.RespondError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "classe created",
		"classe_id", c.ID,
		"etablissement_id", c.EtablissementID,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.RespondJSON(w, http.StatusCreated, c)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.RespondError(w, err)
		return
	}

	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, c)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Limit:  httputil.QueryInt(r, "limit", 50),
		Offset: httputil.QueryInt(r, "offset", 0),
	}
	if raw := r.URL.Query().Get("etablissement_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httputil.RespondError(w, dErrors.New(dErrors.CodeValidation, "invalid etablissement_id"))
			return
		}
		filter.EtablissementID = id
	}

	out, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logError(r, "list classes failed", err)
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.RespondError(w, err)
		return
	}

	var req UpdateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, err)
		return
	}

	c, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.logError(r, "update classe failed", err)
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, c)
}

func (h *Handler) handleAssignEnseignant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.RespondError(w, err)
		return
	}

	var req AssignEnseignantRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, err)
		return
	}

	c, err := h.service.AssignEnseignant(r.Context(), id, req)
	if err != nil {
		h.logError(r, "assign enseignant failed", err)
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, c)
}

func (h *Handler) handleAuditHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.RespondError(w, err)
		return
	}

	records, err := h.service.AuditHistory(r.Context(), id,
		httputil.QueryInt(r, "limit", 50),
		httputil.QueryInt(r, "offset", 0),
	)
	if err != nil {
		h.logError(r, "audit history failed", err)
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"items": records})
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	ctx := r.Context()
	h.logger.ErrorContext(ctx, msg,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "invalid id")
	}
	return id, nil
}
