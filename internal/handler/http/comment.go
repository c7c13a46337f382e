package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/proyectos-la/digital-world/internal/domain"
	"github.com/proyectos-la/digital-world/pkg/httputil"
	"github.com/proyectos-la/digital-world/pkg/validator"
)

// CommentHandler handles product reviews and page comments.
type CommentHandler struct {
	service CommentManager
	logger  *slog.Logger
}

func NewCommentHandler(svc CommentManager, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{service: svc, logger: logger}
}

// ListComments handles GET /api/v1/comments?product=|page_id=. Signed-in
// viewers see their own comments first.
func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	var filter domain.CommentFilter
	if v := r.URL.Query().Get("product"); v != "" {
		id, ok := httputil.ParseUUID(w, v)
		if !ok {
			return
		}
		filter.ProductID = &id
	}
	if v := r.URL.Query().Get("page_id"); v != "" {
		filter.PageID = &v
	}

	comments, err := h.service.List(r.Context(), requester(r).UserID, filter)
	writeList(w, r, h.logger, comments, err)
}

// CreateComment handles POST /api/v1/comments
func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	var input domain.CreateCommentInput
	if err := validator.DecodeAndValidate(r, &input); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	comment, err := h.service.Create(r.Context(), requester(r).UserID, &input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: comment})
}

// UpdateComment handles PATCH /api/v1/comments/{id}
func (h *CommentHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var input domain.UpdateCommentInput
	if err := validator.DecodeAndValidate(r, &input); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	comment, err := h.service.Update(r.Context(), requester(r).UserID, id, &input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: comment})
}

// DeleteComment handles DELETE /api/v1/comments/{id}
func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), requester(r).UserID, id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
