package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/proyectos-la/digital-world/internal/catalog"
	"github.com/proyectos-la/digital-world/internal/domain"
	"github.com/proyectos-la/digital-world/internal/service"
	apperrors "github.com/proyectos-la/digital-world/pkg/errors"
	"github.com/proyectos-la/digital-world/pkg/middleware"
	"github.com/proyectos-la/digital-world/pkg/pagination"
)

const (
	testProductID  = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	testCategoryID = "11111111-1111-4111-8111-111111111111"
	testBrandID    = "22222222-2222-4222-8222-222222222222"
	testOrderID    = "3f1c2b4a-5d6e-4f70-8a9b-0c1d2e3f4a5b"
	testCommentID  = "c0ffee00-0000-4000-8000-000000000001"
)

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
	TotalCount int `json:"total_count"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

// --- Products ---

func TestListProducts_ParsesQuery(t *testing.T) {
	s := newTestServer()
	cat := testCategoryID
	brand := "Samsung"
	min := decimal.RequireFromString("100.50")
	want := catalog.Query{CategoryID: &cat, Brand: &brand, MinPrice: &min, Sort: catalog.SortBestRated}
	views := []domain.ProductView{{Product: domain.Product{ID: testProductID}}}
	s.catalog.On("List", mock.Anything, want, pagination.Params{Limit: 5, Offset: 10}).Return(views, 12, nil)

	rec := s.do(http.MethodGet, "/api/v1/products?category="+testCategoryID+"&brand=Samsung&min_price=100.50&sort=best_rated&limit=5&offset=10", "", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := decode(t, rec)
	assert.Equal(t, 12, env.TotalCount)
	assert.Equal(t, 3, env.Page)
	assert.Equal(t, 5, env.PerPage)
	assert.Equal(t, 3, env.TotalPages)
	assert.Equal(t, "public, max-age=60", rec.Header().Get("Cache-Control"))
	s.catalog.AssertExpectations(t)
}

func TestListProducts_EmptyIsArray(t *testing.T) {
	s := newTestServer()
	s.catalog.On("List", mock.Anything, catalog.Query{}, pagination.Params{Limit: 10}).Return([]domain.ProductView{}, 0, nil)

	rec := s.do(http.MethodGet, "/api/v1/products", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", string(decode(t, rec).Data))
}

func TestListProducts_MalformedParameters(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"min price", "?category=" + testCategoryID + "&min_price=cheap"},
		{"max price", "?max_price=ten"},
		{"category", "?category=phones"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()

			rec := s.do(http.MethodGet, "/api/v1/products"+tt.query, "", nil)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "INVALID_PARAMETER", decode(t, rec).Error.Code)
			s.catalog.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSearchProducts_AcceptsBothParameters(t *testing.T) {
	s := newTestServer()
	s.catalog.On("Search", mock.Anything, "galaxy").Return(&service.SearchResult{
		Products:   []domain.ProductView{},
		Categories: []domain.Category{},
	}, nil)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/products/search?q=galaxy", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/products/search?search=galaxy", "", nil).Code)
	s.catalog.AssertNumberOfCalls(t, "Search", 2)
}

func TestGetProduct_NotFound(t *testing.T) {
	s := newTestServer()
	s.catalog.On("Get", mock.Anything, "no-such-slug").Return(nil, apperrors.NotFound("product", "no-such-slug"))

	rec := s.do(http.MethodGet, "/api/v1/products/no-such-slug", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, rec).Error.Code)
}

func TestRelatedProducts(t *testing.T) {
	s := newTestServer()
	s.catalog.On("Related", mock.Anything, testProductID).Return([]domain.ProductView{}, nil)

	rec := s.do(http.MethodGet, "/api/v1/products/"+testProductID+"/related", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", string(decode(t, rec).Data))
}

func multipartProduct(t *testing.T, data string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	if data != "" {
		require.NoError(t, w.WriteField("data", data))
	}
	for name, content := range files {
		part, err := w.CreateFormFile("images", name)
		require.NoError(t, err)
		_, _ = part.Write([]byte(content))
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestCreateProduct_Multipart(t *testing.T) {
	s := newTestServer()
	body, contentType := multipartProduct(t,
		`{"name":"Galaxy","description":"Phone","price":"999.90","category":"`+testCategoryID+`"}`,
		map[string]string{"front.png": "png-bytes"},
	)
	s.products.On("Create", mock.Anything,
		mock.MatchedBy(func(in *domain.CreateProductInput) bool {
			return in.Name == "Galaxy" && in.Price.Equal(decimal.RequireFromString("999.90"))
		}),
		[]service.Upload{{Filename: "front.png:png-bytes"}},
	).Return(&domain.ProductView{Product: domain.Product{ID: testProductID, Name: "Galaxy"}}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	s.products.AssertExpectations(t)
}

func TestCreateProduct_InvalidData(t *testing.T) {
	s := newTestServer()
	body, contentType := multipartProduct(t, `{"name":"","price":"-1"}`, map[string]string{"a.png": "x"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "name")
	assert.Contains(t, env.Error.Fields, "category")
	s.products.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminRoutes_RequireAdmin(t *testing.T) {
	s := newTestServer()

	anon := s.do(http.MethodDelete, "/api/v1/products/"+testProductID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, anon.Code)

	customer := s.do(http.MethodDelete, "/api/v1/products/"+testProductID, userToken, nil)
	assert.Equal(t, http.StatusForbidden, customer.Code)

	badToken := s.do(http.MethodPost, "/api/v1/categories", "forged", map[string]string{"name": "x"})
	assert.Equal(t, http.StatusUnauthorized, badToken.Code)

	s.products.On("Delete", mock.Anything, testProductID).Return(nil)
	admin := s.do(http.MethodDelete, "/api/v1/products/"+testProductID, adminToken, nil)
	assert.Equal(t, http.StatusNoContent, admin.Code)
}

func TestDeleteImage(t *testing.T) {
	s := newTestServer()
	s.products.On("DeleteImage", mock.Anything, testCommentID).Return(nil)

	rec := s.do(http.MethodDelete, "/api/v1/products/images/"+testCommentID, adminToken, nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	s.products.AssertExpectations(t)
}

// --- Categories & brands ---

func TestCategoryLists(t *testing.T) {
	s := newTestServer()
	s.categories.On("ListOnSale", mock.Anything).Return(nil, nil)
	s.categories.On("ListRecent", mock.Anything).Return([]domain.Category{{ID: testCategoryID, Name: "Phones"}}, nil)

	onSale := s.do(http.MethodGet, "/api/v1/categories/on-sale", "", nil)
	require.Equal(t, http.StatusOK, onSale.Code)
	assert.JSONEq(t, "[]", string(decode(t, onSale).Data))

	recent := s.do(http.MethodGet, "/api/v1/categories/recent", "", nil)
	require.Equal(t, http.StatusOK, recent.Code)
	assert.Contains(t, string(decode(t, recent).Data), "Phones")
}

func TestCreateCategory_Duplicate(t *testing.T) {
	s := newTestServer()
	s.categories.On("Create", mock.Anything, &domain.CategoryInput{Name: "Phones"}).
		Return(nil, apperrors.AlreadyExists("category", "name", "Phones"))

	rec := s.do(http.MethodPost, "/api/v1/categories", adminToken, map[string]string{"name": "Phones"})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ALREADY_EXISTS", decode(t, rec).Error.Code)
}

func TestListBrands_ByCategory(t *testing.T) {
	s := newTestServer()
	cat := testCategoryID
	s.brands.On("List", mock.Anything, &cat).Return([]domain.Brand{{ID: testBrandID, Name: "Samsung"}}, nil)

	rec := s.do(http.MethodGet, "/api/v1/brands?category="+testCategoryID, "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	s.brands.AssertExpectations(t)
}

func TestDeleteBrand_InUse(t *testing.T) {
	s := newTestServer()
	s.brands.On("Delete", mock.Anything, testBrandID).Return(apperrors.Conflict("brand is still used by products"))

	rec := s.do(http.MethodDelete, "/api/v1/brands/"+testBrandID, adminToken, nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", decode(t, rec).Error.Code)
}

// --- Comments ---

func TestListComments_PassesViewer(t *testing.T) {
	s := newTestServer()
	pid := testProductID
	s.comments.On("List", mock.Anything, testUserID, domain.CommentFilter{ProductID: &pid}).Return([]domain.Comment{}, nil)
	s.comments.On("List", mock.Anything, "", domain.CommentFilter{ProductID: &pid}).Return([]domain.Comment{}, nil)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/comments?product="+testProductID, userToken, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/comments?product="+testProductID, "", nil).Code)
	s.comments.AssertExpectations(t)
}

func TestListComments_NoTarget(t *testing.T) {
	s := newTestServer()
	s.comments.On("List", mock.Anything, "", domain.CommentFilter{}).
		Return(nil, apperrors.InvalidInput("a product or page_id is required"))

	rec := s.do(http.MethodGet, "/api/v1/comments", "", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateComment(t *testing.T) {
	s := newTestServer()
	input := &domain.CreateCommentInput{PageID: strPtr("home"), Text: "hello"}
	s.comments.On("Create", mock.Anything, testUserID, input).
		Return(&domain.Comment{ID: testCommentID, UserID: testUserID, PageID: strPtr("home"), Text: "hello"}, nil)

	rec := s.do(http.MethodPost, "/api/v1/comments", userToken, `{"page_id":"home","text":"hello"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, string(decode(t, rec).Data), testCommentID)

	anon := s.do(http.MethodPost, "/api/v1/comments", "", `{"page_id":"home","text":"hello"}`)
	assert.Equal(t, http.StatusUnauthorized, anon.Code)
}

func TestCreateComment_RejectsUnknownFields(t *testing.T) {
	s := newTestServer()

	rec := s.do(http.MethodPost, "/api/v1/comments", userToken, `{"page_id":"home","text":"hi","stars":5}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteComment_Forbidden(t *testing.T) {
	s := newTestServer()
	s.comments.On("Delete", mock.Anything, testUserID, testCommentID).Return(apperrors.Forbidden("cannot delete another user's comment"))

	rec := s.do(http.MethodDelete, "/api/v1/comments/"+testCommentID, userToken, nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// --- Cart & orders ---

func TestCart_AddItemValidation(t *testing.T) {
	s := newTestServer()

	rec := s.do(http.MethodPost, "/api/v1/cart/items", userToken, map[string]any{"product_id": testProductID, "quantity": 0})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, rec).Error.Code)
}

func TestCart_AddItem(t *testing.T) {
	s := newTestServer()
	s.carts.On("AddItem", mock.Anything, testUserID, &domain.CartItemInput{ProductID: testProductID, Quantity: 2}).
		Return(&domain.CartView{UserID: testUserID, Items: []domain.CartLine{}, Subtotal: decimal.NewFromInt(20)}, nil)

	rec := s.do(http.MethodPost, "/api/v1/cart/items", userToken, map[string]any{"product_id": testProductID, "quantity": 2})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(decode(t, rec).Data), `"subtotal":"20"`)
}

func TestCart_UpdateItemZeroRemoves(t *testing.T) {
	s := newTestServer()
	s.carts.On("UpdateItem", mock.Anything, testUserID, testProductID, 0).
		Return(&domain.CartView{UserID: testUserID, Items: []domain.CartLine{}}, nil)

	rec := s.do(http.MethodPatch, "/api/v1/cart/items/"+testProductID, userToken, map[string]int{"quantity": 0})

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestCart_Checkout(t *testing.T) {
	s := newTestServer()
	s.orders.On("Checkout", mock.Anything, testUserID, mock.AnythingOfType("*domain.DeliveryDetails")).
		Return(&domain.Order{ID: testOrderID, Status: domain.OrderStatusPending}, nil)

	rec := s.do(http.MethodPost, "/api/v1/cart/checkout", userToken, map[string]string{
		"name": "Ana", "phone_number": "555", "dni": "123", "street": "Main", "street_number": "1",
		"payment_method": "cash",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, string(decode(t, rec).Data), testOrderID)
}

func TestCart_RequiresAuth(t *testing.T) {
	s := newTestServer()
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/cart", "", nil).Code)
}

func TestCreateOrder_ValidatesPaymentMethod(t *testing.T) {
	s := newTestServer()

	rec := s.do(http.MethodPost, "/api/v1/orders", userToken, map[string]any{
		"name": "Ana", "phone_number": "555", "dni": "123", "street": "Main", "street_number": "1",
		"payment_method": "barter",
		"items":          []map[string]any{{"product_id": testProductID, "quantity": 1}},
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec).Error.Fields, "payment_method")
}

func TestListOrders_PassesRequester(t *testing.T) {
	s := newTestServer()
	s.orders.On("ListByUser", mock.Anything, service.Requester{UserID: testUserID, Role: "customer"}, "user-2").
		Return(nil, apperrors.Forbidden("cannot list another user's orders"))

	rec := s.do(http.MethodGet, "/api/v1/orders?user_id=user-2", userToken, nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateOrderStatus_AdminOnly(t *testing.T) {
	s := newTestServer()
	s.orders.On("UpdateStatus", mock.Anything, testOrderID, domain.OrderStatusDelivered).
		Return(&domain.Order{ID: testOrderID, Status: domain.OrderStatusDelivered}, nil)

	customer := s.do(http.MethodPatch, "/api/v1/orders/"+testOrderID+"/status", userToken, map[string]string{"status": "delivered"})
	assert.Equal(t, http.StatusForbidden, customer.Code)

	admin := s.do(http.MethodPatch, "/api/v1/orders/"+testOrderID+"/status", adminToken, map[string]string{"status": "delivered"})
	assert.Equal(t, http.StatusOK, admin.Code)

	invalid := s.do(http.MethodPatch, "/api/v1/orders/"+testOrderID+"/status", adminToken, map[string]string{"status": "pending"})
	assert.Equal(t, http.StatusBadRequest, invalid.Code)
}

func TestGetOrder_InvalidID(t *testing.T) {
	s := newTestServer()

	rec := s.do(http.MethodGet, "/api/v1/orders/42", userToken, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PARAMETER", decode(t, rec).Error.Code)
}

// --- Infrastructure routes ---

func TestMediaAndHealth(t *testing.T) {
	s := newTestServer()

	media := s.do(http.MethodGet, "/media/products/p/1.jpg", "", nil)
	assert.Equal(t, http.StatusOK, media.Code)
	assert.Equal(t, "jpeg-bytes", media.Body.String())
	assert.Equal(t, "image/jpeg", media.Header().Get("Content-Type"))

	missing := s.do(http.MethodGet, "/media/products/p/2.jpg", "", nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)

	live := s.do(http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, live.Code)

	metrics := s.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.True(t, strings.Contains(metrics.Body.String(), "http_requests_total"))
}

func TestRequesterFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(middleware.WithClaims(req.Context(), &middleware.Claims{UserID: "u1", Role: middleware.RoleAdmin}))

	got := requester(req)

	assert.Equal(t, "u1", got.UserID)
	assert.True(t, got.IsAdmin())
}

func strPtr(s string) *string { return &s }
