package etablissement

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	dErrors "edconnekt/pkg/domain-errors"
	"edconnekt/pkg/platform/httputil"
	"edconnekt/pkg/requestcontext"
)

// Handler wires establishment endpoints to the service.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the authenticated establishment routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/etablissements", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
		r.Patch("/{id}", h.handleUpdate)
		r.Post("/{id}/status", h.handleChangeStatus)
		r.Get("/{id}/audit", h.handleAuditHistory)
	})
}

// RegisterPublic mounts discovery routes that need no authentication.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/public/etablissements", h.handleListPublic)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, err)
		return
	}

	e, err := h.service.Create(ctx, req)
	if err != nil {
		h.logError(r, "create etablissement failed", err)
		httputil.RespondError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "etablissement created",
		"etablissement_id", e.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.RespondJSON(w, http.StatusCreated, e)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.RespondError(w, err)
		return
	}

	e, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, e)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Status: Status(r.URL.Query().Get("status")),
		Limit:  httputil.QueryInt(r, "limit", 50),
		Offset: httputil.QueryInt(r, "offset", 0),
	}

	out, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logError(r, "list etablissements failed", err)
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handler) handleListPublic(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListPublic(r.Context(),
		httputil.QueryInt(r, "limit", 50),
		httputil.QueryInt(r, "offset", 0),
	)
	if err != nil {
		h.logError(r, "list public etablissements failed", err)
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

	e, err := h.service.UpdateInfos(r.Context(), id, req)
	if err != nil {
		h.logError(r, "update etablissement failed", err)
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, e)
}

func (h *Handler) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.RespondError(w, err)
		return
	}

	var req ChangeStatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, err)
		return
	}

	e, err := h.service.ChangeStatus(r.Context(), id, req)
	if err != nil {
		h.logError(r, "change etablissement status failed", err)
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, e)
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
