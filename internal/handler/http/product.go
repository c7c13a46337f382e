package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/proyectos-la/digital-world/internal/catalog"
	"github.com/proyectos-la/digital-world/internal/domain"
	"github.com/proyectos-la/digital-world/internal/service"
	"github.com/proyectos-la/digital-world/pkg/httputil"
	"github.com/proyectos-la/digital-world/pkg/pagination"
	"github.com/proyectos-la/digital-world/pkg/validator"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling file parts to disk.
const multipartMemory = 8 << 20

// ProductHandler handles the product endpoints.
type ProductHandler struct {
	catalog   CatalogReader
	products  ProductManager
	maxUpload int64
	logger    *slog.Logger
}

// NewProductHandler creates a product handler. maxUpload bounds the whole
// request body of image uploads.
func NewProductHandler(catalog CatalogReader, products ProductManager, maxUpload int64, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		catalog:   catalog,
		products:  products,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

// ListProducts handles GET /api/v1/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q, ok := parseCatalogQuery(w, r)
	if !ok {
		return
	}
	page := pagination.FromRequest(r, pagination.ProductBounds)

	views, total, err := h.catalog.List(r.Context(), q, page)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(views, total, page.Page(), page.Limit))
}

func parseCatalogQuery(w http.ResponseWriter, r *http.Request) (catalog.Query, bool) {
	values := r.URL.Query()
	q := catalog.Query{Sort: values.Get("sort")}

	if v := values.Get("category"); v != "" {
		id, ok := httputil.ParseUUID(w, v)
		if !ok {
			return q, false
		}
		q.CategoryID = &id
	}
	if v := strings.TrimSpace(values.Get("brand")); v != "" {
		q.Brand = &v
	}
	for _, bound := range []struct {
		name string
		dst  **decimal.Decimal
	}{
		{"min_price", &q.MinPrice},
		{"max_price", &q.MaxPrice},
	} {
		v := values.Get(bound.name)
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			httputil.WriteInvalidParameter(w, bound.name+" must be a valid number")
			return q, false
		}
		*bound.dst = &d
	}
	return q, true
}

// SearchProducts handles GET /api/v1/products/search?q=
func (h *ProductHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	if term == "" {
		term = r.URL.Query().Get("search")
	}

	res, err := h.catalog.Search(r.Context(), term)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: res})
}

// GetProduct handles GET /api/v1/products/{id}. Slugs are accepted too.
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	view, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}

// RelatedProducts handles GET /api/v1/products/{id}/related
func (h *ProductHandler) RelatedProducts(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	views, err := h.catalog.Related(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: views})
}

// CreateProduct handles POST /api/v1/products. The body is multipart: a
// "data" field holding the JSON product and one or more "images" files.
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	if !h.parseMultipart(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	var input domain.CreateProductInput
	dec := json.NewDecoder(strings.NewReader(r.FormValue("data")))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&input); err != nil {
		httputil.WriteValidationError(w, fmt.Errorf("decode data field: %w", err))
		return
	}
	if err := validator.Validate(&input); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	uploads, closeAll, err := openUploads(r.MultipartForm.File["images"])
	defer closeAll()
	if err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	view, err := h.products.Create(r.Context(), &input, uploads)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: view})
}

// UpdateProduct handles PATCH /api/v1/products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var input domain.UpdateProductInput
	if err := validator.DecodeAndValidate(r, &input); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	product, err := h.products.Update(r.Context(), id, &input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// DeleteProduct handles DELETE /api/v1/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.products.Delete(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddImage handles POST /api/v1/products/{id}/images with one "image" file.
func (h *ProductHandler) AddImage(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if !h.parseMultipart(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		httputil.WriteValidationError(w, fmt.Errorf("image file is required: %w", err))
		return
	}
	defer file.Close()

	img, err := h.products.AddImage(r.Context(), id, service.Upload{Filename: header.Filename, Data: file})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: img})
}

// DeleteImage handles DELETE /api/v1/products/images/{imageID}
func (h *ProductHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "imageID"))
	if !ok {
		return
	}

	if err := h.products.DeleteImage(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductHandler) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		httputil.WriteValidationError(w, fmt.Errorf("failed to parse multipart form: %w", err))
		return false
	}
	return true
}

// openUploads opens every file header. The returned func closes whatever was opened.
func openUploads(headers []*multipart.FileHeader) ([]service.Upload, func(), error) {
	files := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	uploads := make([]service.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		files = append(files, f)
		uploads = append(uploads, service.Upload{Filename: fh.Filename, Data: f})
	}
	return uploads, closeAll, nil
}
