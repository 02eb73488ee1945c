package ressource

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	dErrors "edconnekt/pkg/domain-errors"
	"edconnekt/pkg/platform/httputil"
	"edconnekt/pkg/requestcontext"
)

// Handler wires resource endpoints to the service.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/ressources", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/categories", h.handleCategories)
		r.Get("/{id}", h.handleGet)
		r.Patch("/{id}", h.handleUpdate)
		r.Delete("/{id}", h.handleDelete)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, err)
		return
	}

	res, err := h.service.Create(ctx, req)
	if err != nil {
		h.logError(r, "create ressource failed", err)
		httputil.RespondError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "ressource created",
		"ressource_id", res.ID,
		"categorie", res.Categorie,
		"request_id", requestcontext.RequestID(ctx),
	)
	httputil.RespondJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.RespondError(w, err)
		return
	}

	res, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, res)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Categorie: r.URL.Query().Get("categorie"),
		Limit:     httputil.QueryInt(r, "limit", 50),
		Offset:    httputil.QueryInt(r, "offset", 0),
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
		h.logError(r, "list ressources failed", err)
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	var etabID uuid.UUID
	if raw := r.URL.Query().Get("etablissement_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httputil.RespondError(w, dErrors.New(dErrors.CodeValidation, "invalid etablissement_id"))
			return
		}
		etabID = id
	}

	out, err := h.service.Categories(r.Context(), etabID)
	if err != nil {
		h.logError(r, "list categories failed", err)
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

	res, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.logError(r, "update ressource failed", err)
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, res)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.RespondError(w, err)
		return
	}

	var req DeleteRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), id, req); err != nil {
		h.logError(r, "delete ressource failed", err)
		httputil.RespondError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusNoContent, nil)
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
