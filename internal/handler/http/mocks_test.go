package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/stretchr/testify/mock"

	"github.com/proyectos-la/digital-world/internal/catalog"
	"github.com/proyectos-la/digital-world/internal/domain"
	"github.com/proyectos-la/digital-world/internal/service"
	"github.com/proyectos-la/digital-world/pkg/health"
	"github.com/proyectos-la/digital-world/pkg/middleware"
	"github.com/proyectos-la/digital-world/pkg/pagination"
)

type mockCatalog struct{ mock.Mock }

func (m *mockCatalog) List(ctx context.Context, q catalog.Query, page pagination.Params) ([]domain.ProductView, int, error) {
	args := m.Called(ctx, q, page)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.ProductView), args.Int(1), args.Error(2)
}

func (m *mockCatalog) Get(ctx context.Context, idOrSlug string) (*domain.ProductView, error) {
	args := m.Called(ctx, idOrSlug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductView), args.Error(1)
}

func (m *mockCatalog) Related(ctx context.Context, id string) ([]domain.ProductView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ProductView), args.Error(1)
}

func (m *mockCatalog) Search(ctx context.Context, term string) (*service.SearchResult, error) {
	args := m.Called(ctx, term)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SearchResult), args.Error(1)
}

type mockProducts struct{ mock.Mock }

func (m *mockProducts) Create(ctx context.Context, input *domain.CreateProductInput, uploads []service.Upload) (*domain.ProductView, error) {
	// Drain uploads so the test can assert on what arrived.
	for i := range uploads {
		data, _ := io.ReadAll(uploads[i].Data)
		uploads[i].Data = nil
		uploads[i].Filename += ":" + string(data)
	}
	args := m.Called(ctx, input, uploads)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductView), args.Error(1)
}

func (m *mockProducts) Update(ctx context.Context, id string, input *domain.UpdateProductInput) (*domain.Product, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProducts) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockProducts) AddImage(ctx context.Context, productID string, up service.Upload) (*domain.ProductImage, error) {
	args := m.Called(ctx, productID, up.Filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductImage), args.Error(1)
}

func (m *mockProducts) DeleteImage(ctx context.Context, imageID string) error {
	return m.Called(ctx, imageID).Error(0)
}

type mockCategories struct{ mock.Mock }

func (m *mockCategories) Create(ctx context.Context, input *domain.CategoryInput) (*domain.Category, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *mockCategories) Get(ctx context.Context, id string) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *mockCategories) list(args mock.Arguments) ([]domain.Category, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *mockCategories) List(ctx context.Context) ([]domain.Category, error) {
	return m.list(m.Called(ctx))
}

func (m *mockCategories) ListOnSale(ctx context.Context) ([]domain.Category, error) {
	return m.list(m.Called(ctx))
}

func (m *mockCategories) ListRecent(ctx context.Context) ([]domain.Category, error) {
	return m.list(m.Called(ctx))
}

func (m *mockCategories) Update(ctx context.Context, id string, input *domain.CategoryInput) (*domain.Category, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *mockCategories) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockBrands struct{ mock.Mock }

func (m *mockBrands) Create(ctx context.Context, input *domain.BrandInput) (*domain.Brand, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Brand), args.Error(1)
}

func (m *mockBrands) Get(ctx context.Context, id string) (*domain.Brand, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Brand), args.Error(1)
}

func (m *mockBrands) List(ctx context.Context, categoryID *string) ([]domain.Brand, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Brand), args.Error(1)
}

func (m *mockBrands) Update(ctx context.Context, id string, input *domain.BrandInput) (*domain.Brand, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Brand), args.Error(1)
}

func (m *mockBrands) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockOrders struct{ mock.Mock }

func (m *mockOrders) order(args mock.Arguments) (*domain.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrders) Create(ctx context.Context, userID string, input *domain.CreateOrderInput) (*domain.Order, error) {
	return m.order(m.Called(ctx, userID, input))
}

func (m *mockOrders) Checkout(ctx context.Context, userID string, details *domain.DeliveryDetails) (*domain.Order, error) {
	return m.order(m.Called(ctx, userID, details))
}

func (m *mockOrders) ListByUser(ctx context.Context, requester service.Requester, userID string) ([]domain.Order, error) {
	args := m.Called(ctx, requester, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *mockOrders) Get(ctx context.Context, requester service.Requester, id string) (*domain.Order, error) {
	return m.order(m.Called(ctx, requester, id))
}

func (m *mockOrders) UpdateStatus(ctx context.Context, id, status string) (*domain.Order, error) {
	return m.order(m.Called(ctx, id, status))
}

type mockComments struct{ mock.Mock }

func (m *mockComments) comment(args mock.Arguments) (*domain.Comment, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Comment), args.Error(1)
}

func (m *mockComments) Create(ctx context.Context, userID string, input *domain.CreateCommentInput) (*domain.Comment, error) {
	return m.comment(m.Called(ctx, userID, input))
}

func (m *mockComments) Update(ctx context.Context, userID, id string, input *domain.UpdateCommentInput) (*domain.Comment, error) {
	return m.comment(m.Called(ctx, userID, id, input))
}

func (m *mockComments) Delete(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *mockComments) List(ctx context.Context, viewerID string, filter domain.CommentFilter) ([]domain.Comment, error) {
	args := m.Called(ctx, viewerID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Comment), args.Error(1)
}

type mockCarts struct{ mock.Mock }

func (m *mockCarts) view(args mock.Arguments) (*domain.CartView, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CartView), args.Error(1)
}

func (m *mockCarts) Get(ctx context.Context, userID string) (*domain.CartView, error) {
	return m.view(m.Called(ctx, userID))
}

func (m *mockCarts) AddItem(ctx context.Context, userID string, input *domain.CartItemInput) (*domain.CartView, error) {
	return m.view(m.Called(ctx, userID, input))
}

func (m *mockCarts) UpdateItem(ctx context.Context, userID, productID string, quantity int) (*domain.CartView, error) {
	return m.view(m.Called(ctx, userID, productID, quantity))
}

func (m *mockCarts) RemoveItem(ctx context.Context, userID, productID string) (*domain.CartView, error) {
	return m.view(m.Called(ctx, userID, productID))
}

func (m *mockCarts) Clear(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type fakeMedia map[string]string

func (f fakeMedia) Open(key string) (io.Reader, string, bool) {
	v, ok := f[key]
	if !ok {
		return nil, "", false
	}
	return strings.NewReader(v), "image/jpeg", true
}

// --- Test server ---

const (
	userToken  = "user-token"
	adminToken = "admin-token"
	testUserID = "user-1"
)

type testServer struct {
	catalog    *mockCatalog
	products   *mockProducts
	categories *mockCategories
	brands     *mockBrands
	orders     *mockOrders
	comments   *mockComments
	carts      *mockCarts
	handler    http.Handler
}

func fakeTokens(token string) (*middleware.Claims, error) {
	switch token {
	case userToken:
		return &middleware.Claims{UserID: testUserID, Role: "customer"}, nil
	case adminToken:
		return &middleware.Claims{UserID: "admin-1", Role: middleware.RoleAdmin}, nil
	}
	return nil, errors.New("invalid token")
}

func newTestServer() *testServer {
	s := &testServer{
		catalog:    new(mockCatalog),
		products:   new(mockProducts),
		categories: new(mockCategories),
		brands:     new(mockBrands),
		orders:     new(mockOrders),
		comments:   new(mockComments),
		carts:      new(mockCarts),
	}
	s.handler = NewRouter(RouterDeps{
		Catalog:        s.catalog,
		Products:       s.products,
		Categories:     s.categories,
		Brands:         s.brands,
		Orders:         s.orders,
		Comments:       s.comments,
		Carts:          s.carts,
		Media:          fakeMedia{"products/p/1.jpg": "jpeg-bytes"},
		Health:         health.NewHandler(),
		ValidateToken:  fakeTokens,
		MaxUploadBytes: 1 << 20,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return s
}
