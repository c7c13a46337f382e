package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/proyectos-la/digital-world/internal/domain"
	"github.com/proyectos-la/digital-world/pkg/httputil"
	"github.com/proyectos-la/digital-world/pkg/validator"
)

// CategoryHandler handles the category endpoints.
type CategoryHandler struct {
	service CategoryManager
	logger  *slog.Logger
}

func NewCategoryHandler(svc CategoryManager, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{service: svc, logger: logger}
}

// ListCategories handles GET /api/v1/categories
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.List(r.Context())
	writeList(w, r, h.logger, categories, err)
}

// ListOnSale handles GET /api/v1/categories/on-sale
func (h *CategoryHandler) ListOnSale(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListOnSale(r.Context())
	writeList(w, r, h.logger, categories, err)
}

// ListRecent handles GET /api/v1/categories/recent
func (h *CategoryHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListRecent(r.Context())
	writeList(w, r, h.logger, categories, err)
}

// GetCategory handles GET /api/v1/categories/{id}
func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	category, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: category})
}

// CreateCategory handles POST /api/v1/categories
func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var input domain.CategoryInput
	if err := validator.DecodeAndValidate(r, &input); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	category, err := h.service.Create(r.Context(), &input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: category})
}

// UpdateCategory handles PATCH /api/v1/categories/{id}
func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var input domain.CategoryInput
	if err := validator.DecodeAndValidate(r, &input); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	category, err := h.service.Update(r.Context(), id, &input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: category})
}

// DeleteCategory handles DELETE /api/v1/categories/{id}
func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// BrandHandler handles the brand endpoints.
type BrandHandler struct {
	service BrandManager
	logger  *slog.Logger
}

func NewBrandHandler(svc BrandManager, logger *slog.Logger) *BrandHandler {
	return &BrandHandler{service: svc, logger: logger}
}

// ListBrands handles GET /api/v1/brands, optionally narrowed by ?category=.
func (h *BrandHandler) ListBrands(w http.ResponseWriter, r *http.Request) {
	var categoryID *string
	if v := r.URL.Query().Get("category"); v != "" {
		id, ok := httputil.ParseUUID(w, v)
		if !ok {
			return
		}
		categoryID = &id
	}

	brands, err := h.service.List(r.Context(), categoryID)
	writeList(w, r, h.logger, brands, err)
}

// GetBrand handles GET /api/v1/brands/{id}
func (h *BrandHandler) GetBrand(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	brand, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: brand})
}

// CreateBrand handles POST /api/v1/brands
func (h *BrandHandler) CreateBrand(w http.ResponseWriter, r *http.Request) {
	var input domain.BrandInput
	if err := validator.DecodeAndValidate(r, &input); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	brand, err := h.service.Create(r.Context(), &input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: brand})
}

// UpdateBrand handles PATCH /api/v1/brands/{id}
func (h *BrandHandler) UpdateBrand(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var input domain.BrandInput
	if err := validator.DecodeAndValidate(r, &input); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	brand, err := h.service.Update(r.Context(), id, &input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: brand})
}

// DeleteBrand handles DELETE /api/v1/brands/{id}. A brand still used by
// products answers 409.
func (h *BrandHandler) DeleteBrand(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeList writes items as a data array; nil becomes [].
func writeList[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, items []T, err error) {
	if err != nil {
		httputil.WriteError(w, r, err, logger)
		return
	}
	if items == nil {
		items = []T{}
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: items})
}
