// Package http exposes the storefront over a chi router.
package http

import (
	"context"
	"net/http"

	"github.com/proyectos-la/digital-world/internal/catalog"
	"github.com/proyectos-la/digital-world/internal/domain"
	"github.com/proyectos-la/digital-world/internal/service"
	"github.com/proyectos-la/digital-world/pkg/middleware"
	"github.com/proyectos-la/digital-world/pkg/pagination"
)

// The handlers depend on these service facets. The *service types implement them.
type (
	CatalogReader interface {
		List(ctx context.Context, q catalog.Query, page pagination.Params) ([]domain.ProductView, int, error)
		Get(ctx context.Context, idOrSlug string) (*domain.ProductView, error)
		Related(ctx context.Context, id string) ([]domain.ProductView, error)
		Search(ctx context.Context, term string) (*service.SearchResult, error)
	}

	ProductManager interface {
		Create(ctx context.Context, input *domain.CreateProductInput, uploads []service.Upload) (*domain.ProductView, error)
		Update(ctx context.Context, id string, input *domain.UpdateProductInput) (*domain.Product, error)
		Delete(ctx context.Context, id string) error
		AddImage(ctx context.Context, productID string, up service.Upload) (*domain.ProductImage, error)
		DeleteImage(ctx context.Context, imageID string) error
	}

	CategoryManager interface {
		Create(ctx context.Context, input *domain.CategoryInput) (*domain.Category, error)
		Get(ctx context.Context, id string) (*domain.Category, error)
		List(ctx context.Context) ([]domain.Category, error)
		ListOnSale(ctx context.Context) ([]domain.Category, error)
		ListRecent(ctx context.Context) ([]domain.Category, error)
		Update(ctx context.Context, id string, input *domain.CategoryInput) (*domain.Category, error)
		Delete(ctx context.Context, id string) error
	}

	BrandManager interface {
		Create(ctx context.Context, input *domain.BrandInput) (*domain.Brand, error)
		Get(ctx context.Context, id string) (*domain.Brand, error)
		List(ctx context.Context, categoryID *string) ([]domain.Brand, error)
		Update(ctx context.Context, id string, input *domain.BrandInput) (*domain.Brand, error)
		Delete(ctx context.Context, id string) error
	}

	OrderManager interface {
		Create(ctx context.Context, userID string, input *domain.CreateOrderInput) (*domain.Order, error)
		Checkout(ctx context.Context, userID string, details *domain.DeliveryDetails) (*domain.Order, error)
		ListByUser(ctx context.Context, requester service.Requester, userID string) ([]domain.Order, error)
		Get(ctx context.Context, requester service.Requester, id string) (*domain.Order, error)
		UpdateStatus(ctx context.Context, id, status string) (*domain.Order, error)
	}

	CommentManager interface {
		Create(ctx context.Context, userID string, input *domain.CreateCommentInput) (*domain.Comment, error)
		Update(ctx context.Context, userID, id string, input *domain.UpdateCommentInput) (*domain.Comment, error)
		Delete(ctx context.Context, userID, id string) error
		List(ctx context.Context, viewerID string, filter domain.CommentFilter) ([]domain.Comment, error)
	}

	CartManager interface {
		Get(ctx context.Context, userID string) (*domain.CartView, error)
		AddItem(ctx context.Context, userID string, input *domain.CartItemInput) (*domain.CartView, error)
		UpdateItem(ctx context.Context, userID, productID string, quantity int) (*domain.CartView, error)
		RemoveItem(ctx context.Context, userID, productID string) (*domain.CartView, error)
		Clear(ctx context.Context, userID string) error
	}
)

func requester(r *http.Request) service.Requester {
	return service.Requester{
		UserID: middleware.UserIDFromContext(r.Context()),
		Role:   middleware.RoleFromContext(r.Context()),
	}
}
