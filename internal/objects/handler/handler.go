package handler

//go:generate mockgen -source=handler.go -destination=mocks/objects-mocks.go -package=mocks Service

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dor/internal/cocina"
	"dor/internal/releasetags"
	dErrors "dor/pkg/domain-errors"
	"dor/pkg/platform/httputil"
	"dor/pkg/requestcontext"
)

const maxBodyBytes = 1 << 20

// Service defines the object operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, req cocina.Request) (cocina.Object, error)
	Show(ctx context.Context, id string) (cocina.Object, error)
	Collections(ctx context.Context, id string) ([]cocina.Object, error)
	ReleaseTags(ctx context.Context, id string) (releasetags.State, error)
	AddReleaseTag(ctx context.Context, id string, in releasetags.Input) (releasetags.Tag, error)
	RefreshMetadata(ctx context.Context, id string) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type collectionsResponse struct {
	Collections []cocina.Object `json:"collections"`
}

// Register mounts the object routes. Callers apply auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/objects", h.handleRegister)
	r.Route("/v1/objects/{id}", func(r chi.Router) {
		r.Get("/", h.handleShow)
		r.Get("/query/collections", h.handleCollections)
		r.Get("/release_tags", h.handleReleaseTags)
		r.Post("/release_tags", h.handleAddReleaseTag)
		r.Post("/refresh_metadata", h.handleRefreshMetadata)
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req cocina.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.fail(ctx, w, "invalid registration body", "",
			dErrors.Wrap(err, dErrors.CodeBadRequest, "request body must be a JSON registration request"))
		return
	}

	obj, err := h.service.Register(ctx, req)
	if err != nil {
		h.fail(ctx, w, "register object failed", "", err)
		return
	}
	w.Header().Set("Location", "/v1/objects/"+obj.ExternalID())
	httputil.WriteJSON(w, http.StatusCreated, obj)
}

func (h *Handler) handleShow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	obj, err := h.service.Show(ctx, id)
	if err != nil {
		h.fail(ctx, w, "show object failed", id, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, obj)
}

func (h *Handler) handleCollections(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	colls, err := h.service.Collections(ctx, id)
	if err != nil {
		h.fail(ctx, w, "collections query failed", id, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, collectionsResponse{Collections: colls})
}

func (h *Handler) handleReleaseTags(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	state, err := h.service.ReleaseTags(ctx, id)
	if err != nil {
		h.fail(ctx, w, "release tag resolution failed", id, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, state)
}

func (h *Handler) handleAddReleaseTag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var in releasetags.Input
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		h.fail(ctx, w, "invalid release tag body", id,
			dErrors.Wrap(err, dErrors.CodeBadRequest, "request body must be a JSON release tag"))
		return
	}

	tag, err := h.service.AddReleaseTag(ctx, id, in)
	if err != nil {
		h.fail(ctx, w, "add release tag failed", id, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, tag)
}

func (h *Handler) handleRefreshMetadata(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if err := h.service.RefreshMetadata(ctx, id); err != nil {
		h.fail(ctx, w, "refresh metadata failed", id, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg, id string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"object_id", id,
		"error", err,
	)
	httputil.WriteError(w, err)
}
