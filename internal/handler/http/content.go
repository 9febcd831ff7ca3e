package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wokeornotsite/wokeornot-sub000/internal/domain"
	"github.com/wokeornotsite/wokeornot-sub000/internal/service"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/httputil"
)

// ContentHandler serves content items and categories.
type ContentHandler struct {
	contents ContentService
	logger   *slog.Logger
}

// NewContentHandler creates a new content HTTP handler.
func NewContentHandler(contents ContentService, logger *slog.Logger) *ContentHandler {
	return &ContentHandler{contents: contents, logger: logger}
}

// CreateContentRequest is the JSON body for manually creating a content item.
type CreateContentRequest struct {
	Kind        string `json:"kind" validate:"required,oneof=movie tv kids"`
	ExternalID  int64  `json:"external_id" validate:"required,gt=0"`
	Title       string `json:"title" validate:"required,max=500"`
	Overview    string `json:"overview" validate:"max=5000"`
	PosterPath  string `json:"poster_path" validate:"max=500"`
	ReleaseDate string `json:"release_date" validate:"omitempty,datetime=2006-01-02"`
}

// ListCategories handles GET /api/v1/categories
func (h *ContentHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.contents.ListCategories(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, cats)
}

// EnsureContent handles GET /api/v1/contents/{kind}/{externalId}
func (h *ContentHandler) EnsureContent(w http.ResponseWriter, r *http.Request) {
	kind, ok := domain.ParseContentKind(chi.URLParam(r, "kind"))
	if !ok {
		httputil.WriteErrorCode(w, r, http.StatusBadRequest, "INVALID_PARAMETER", "kind must be one of: movie, tv, kids")
		return
	}
	raw := chi.URLParam(r, "externalId")
	externalID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || externalID <= 0 {
		httputil.WriteErrorCode(w, r, http.StatusBadRequest, "INVALID_PARAMETER", "invalid externalId: "+raw)
		return
	}

	detail, err := h.contents.EnsureContent(r.Context(), kind, externalID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, detail)
}

// GetContent handles GET /api/v1/contents/{contentId}
func (h *ContentHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "contentId")
	if !ok {
		return
	}
	detail, err := h.contents.GetContent(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, detail)
}

// CreateContent handles POST /api/v1/admin/contents
func (h *ContentHandler) CreateContent(w http.ResponseWriter, r *http.Request) {
	var req CreateContentRequest
	if !decode(w, r, &req) {
		return
	}

	input := &service.CreateContentInput{
		Kind:       req.Kind,
		ExternalID: req.ExternalID,
		Title:      req.Title,
		Overview:   req.Overview,
		PosterPath: req.PosterPath,
	}
	if req.ReleaseDate != "" {
		// Already checked by the datetime tag.
		d, _ := time.Parse(time.DateOnly, req.ReleaseDate)
		input.ReleaseDate = &d
	}

	c, err := h.contents.CreateContent(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, c)
}

// DeleteContent handles DELETE /api/v1/admin/contents/{contentId}
func (h *ContentHandler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "contentId")
	if !ok {
		return
	}
	if err := h.contents.DeleteContent(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecomputeContent handles POST /api/v1/admin/contents/{contentId}/recompute
func (h *ContentHandler) RecomputeContent(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "contentId")
	if !ok {
		return
	}
	detail, err := h.contents.RecomputeContent(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, detail)
}
