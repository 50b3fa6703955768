package handler

//go:generate mockgen -source=handler.go -destination=mocks/marcxml-mocks.go -package=mocks Service

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dor/internal/marcxml"
	"dor/pkg/platform/httputil"
	"dor/pkg/requestcontext"
)

// Service defines the catalog lookups exposed over HTTP.
type Service interface {
	Catkey(ctx context.Context, lookup marcxml.Lookup) (string, error)
	MARCXML(ctx context.Context, lookup marcxml.Lookup) ([]byte, error)
	MODS(ctx context.Context, lookup marcxml.Lookup) ([]byte, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the catalog routes. Callers apply auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/v1/catalog/catkey", h.handleCatkey)
	r.Get("/v1/catalog/marcxml", h.handleMARCXML)
	r.Get("/v1/catalog/mods", h.handleMODS)
}

func lookupFrom(r *http.Request) marcxml.Lookup {
	q := r.URL.Query()
	return marcxml.Lookup{Catkey: q.Get("catkey"), Barcode: q.Get("barcode")}
}

func (h *Handler) handleCatkey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	catkey, err := h.service.Catkey(ctx, lookupFrom(r))
	if err != nil {
		h.fail(ctx, w, "catkey lookup failed", err)
		return
	}
	httputil.WriteText(w, http.StatusOK, catkey)
}

func (h *Handler) handleMARCXML(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := h.service.MARCXML(ctx, lookupFrom(r))
	if err != nil {
		h.fail(ctx, w, "marcxml lookup failed", err)
		return
	}
	httputil.WriteXML(w, http.StatusOK, body)
}

func (h *Handler) handleMODS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := h.service.MODS(ctx, lookupFrom(r))
	if err != nil {
		h.fail(ctx, w, "mods lookup failed", err)
		return
	}
	httputil.WriteXML(w, http.StatusOK, body)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
