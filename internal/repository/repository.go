package repository

import (
	"context"
	"time"

	"github.com/proyectos-la/digital-world/internal/domain"
)

// SummaryFilter narrows ListSummaries at the database. Everything else the
// catalog needs is done in memory.
type SummaryFilter struct {
	CategoryID *string
	OnSaleOnly bool
}

// ProductRepository persists products and computes their aggregates.
type ProductRepository interface {
	// Create inserts the product and its images in one transaction.
	Create(ctx context.Context, product *domain.Product, images []domain.ProductImage) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
	Update(ctx context.Context, product *domain.Product) error
	// Delete removes the product and returns the images that belonged to it.
	Delete(ctx context.Context, id string) ([]domain.ProductImage, error)

	// ListSummaries returns products with brand name, rating and sales
	// aggregates, ordered by ID.
	ListSummaries(ctx context.Context, filter SummaryFilter) ([]domain.ProductSummary, error)
	GetSummary(ctx context.Context, id string) (*domain.ProductSummary, error)
	// Search returns the newest products whose name contains term.
	Search(ctx context.Context, term string, limit int) ([]domain.Product, error)

	RatingSummary(ctx context.Context, productID string) (domain.RatingSummary, error)
	TotalSold(ctx context.Context, productID string) (int, error)
}

type ImageRepository interface {
	Add(ctx context.Context, image *domain.ProductImage) error
	GetByID(ctx context.Context, id string) (*domain.ProductImage, error)
	ListByProduct(ctx context.Context, productID string) ([]domain.ProductImage, error)
	// ListByProducts groups the images of several products by product ID.
	ListByProducts(ctx context.Context, productIDs []string) (map[string][]domain.ProductImage, error)
	Delete(ctx context.Context, id string) error
}

type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
	// ListOnSale returns categories having at least one product on sale.
	ListOnSale(ctx context.Context) ([]domain.Category, error)
	// ListWithProductsSince returns categories having a product created at or after since.
	ListWithProductsSince(ctx context.Context, since time.Time) ([]domain.Category, error)
	// Search matches the category name or the names of its products.
	Search(ctx context.Context, term string) ([]domain.Category, error)
	Update(ctx context.Context, category *domain.Category) error
	Delete(ctx context.Context, id string) error
}

type BrandRepository interface {
	Create(ctx context.Context, brand *domain.Brand) error
	GetByID(ctx context.Context, id string) (*domain.Brand, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]domain.Brand, error)
	List(ctx context.Context) ([]domain.Brand, error)
	// ListByCategory returns brands having products in the category.
	ListByCategory(ctx context.Context, categoryID string) ([]domain.Brand, error)
	Update(ctx context.Context, brand *domain.Brand) error
	// Delete fails with a Conflict while products reference the brand.
	Delete(ctx context.Context, id string) error
}

type OrderRepository interface {
	// Create inserts the order and its items in one transaction.
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	GetByID(ctx context.Context, id string) (*domain.Comment, error)
	Update(ctx context.Context, comment *domain.Comment) error
	Delete(ctx context.Context, id string) error
	ExistsForProduct(ctx context.Context, userID, productID string) (bool, error)
	ExistsForPage(ctx context.Context, userID, pageID string) (bool, error)
	// List returns the comments of one product or page, newest first.
	List(ctx context.Context, filter domain.CommentFilter) ([]domain.Comment, error)
}

// CartRepository stores carts keyed by user.
type CartRepository interface {
	// Get returns an empty cart when the user has none.
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart) error
	Delete(ctx context.Context, userID string) error
}

// ProductCache holds base product records. Aggregates are never cached.
type ProductCache interface {
	// Get returns (nil, nil) on a miss.
	Get(ctx context.Context, id string) (*domain.Product, error)
	Set(ctx context.Context, product *domain.Product) error
	Invalidate(ctx context.Context, id string) error
}
