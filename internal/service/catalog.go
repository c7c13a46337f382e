package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/proyectos-la/digital-world/internal/catalog"
	"github.com/proyectos-la/digital-world/internal/domain"
	"github.com/proyectos-la/digital-world/internal/repository"
	apperrors "github.com/proyectos-la/digital-world/pkg/errors"
	"github.com/proyectos-la/digital-world/pkg/pagination"
)

// SearchLimit caps the products returned by Search.
const SearchLimit = 10

// CatalogService answers the public product listings.
type CatalogService struct {
	products   repository.ProductRepository
	images     repository.ImageRepository
	categories repository.CategoryRepository
	brands     repository.BrandRepository
	window     decimal.Decimal
	logger     *slog.Logger
}

// NewCatalogService creates a catalog service. window is the price distance
// within which products of the same category count as related.
func NewCatalogService(
	products repository.ProductRepository,
	images repository.ImageRepository,
	categories repository.CategoryRepository,
	brands repository.BrandRepository,
	window decimal.Decimal,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		products:   products,
		images:     images,
		categories: categories,
		brands:     brands,
		window:     window,
		logger:     logger,
	}
}

// List runs the filter and ranking pipeline and returns one page of it
// together with the number of matching products.
func (s *CatalogService) List(ctx context.Context, q catalog.Query, page pagination.Params) ([]domain.ProductView, int, error) {
	filter := repository.SummaryFilter{OnSaleOnly: q.Sort == catalog.SortDiscount}
	if q.Categorized() {
		filter.CategoryID = q.CategoryID
	}

	summaries, err := s.products.ListSummaries(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}

	matched := catalog.Apply(summaries, q)
	views, err := s.views(ctx, catalog.Paginate(matched, page))
	if err != nil {
		return nil, 0, err
	}
	return views, len(matched), nil
}

// Get returns one product by ID or slug.
func (s *CatalogService) Get(ctx context.Context, idOrSlug string) (*domain.ProductView, error) {
	id := idOrSlug
	if uuid.Validate(idOrSlug) != nil {
		p, err := s.products.GetBySlug(ctx, idOrSlug)
		if err != nil {
			return nil, fmt.Errorf("get product by slug: %w", err)
		}
		id = p.ID
	}

	summary, err := s.products.GetSummary(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	views, err := s.views(ctx, []domain.ProductSummary{*summary})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Related returns the products of the same category that share the
// reference's brand or sit within the price window, ordered by ID.
func (s *CatalogService) Related(ctx context.Context, id string) ([]domain.ProductView, error) {
	ref, err := s.products.GetSummary(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get reference product: %w", err)
	}

	candidates, err := s.products.ListSummaries(ctx, repository.SummaryFilter{CategoryID: &ref.CategoryID})
	if err != nil {
		return nil, fmt.Errorf("list related candidates: %w", err)
	}

	return s.views(ctx, catalog.Related(*ref, candidates, s.window))
}

// SearchResult holds the products and categories matching a search term.
type SearchResult struct {
	Products   []domain.ProductView `json:"products"`
	Categories []domain.Category    `json:"categories"`
}

// Search returns the newest products whose name contains term and the
// categories whose own name or product names contain it.
func (s *CatalogService) Search(ctx context.Context, term string) (*SearchResult, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, apperrors.InvalidInput("search term is required")
	}

	products, err := s.products.Search(ctx, term, SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	categories, err := s.categories.Search(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("search categories: %w", err)
	}

	summaries := make([]domain.ProductSummary, 0, len(products))
	for _, p := range products {
		rating, err := s.products.RatingSummary(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("rating summary: %w", err)
		}
		sold, err := s.products.TotalSold(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("total sold: %w", err)
		}
		summaries = append(summaries, domain.ProductSummary{
			Product:       p,
			AverageRating: rating.AverageRating,
			RatingCount:   rating.RatingCount,
			TotalSold:     sold,
		})
	}

	views, err := s.views(ctx, summaries)
	if err != nil {
		return nil, err
	}
	return &SearchResult{Products: views, Categories: categories}, nil
}

// views annotates summaries with images, category, brand and effective price.
func (s *CatalogService) views(ctx context.Context, summaries []domain.ProductSummary) ([]domain.ProductView, error) {
	views := make([]domain.ProductView, 0, len(summaries))
	if len(summaries) == 0 {
		return views, nil
	}

	productIDs := make([]string, 0, len(summaries))
	categoryIDs := make([]string, 0, len(summaries))
	brandIDs := make([]string, 0, len(summaries))
	for i := range summaries {
		productIDs = append(productIDs, summaries[i].ID)
		categoryIDs = append(categoryIDs, summaries[i].CategoryID)
		if summaries[i].BrandID != nil {
			brandIDs = append(brandIDs, *summaries[i].BrandID)
		}
	}

	images, err := s.images.ListByProducts(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("load product images: %w", err)
	}
	categories, err := s.categories.GetByIDs(ctx, categoryIDs)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	brands, err := s.brands.GetByIDs(ctx, brandIDs)
	if err != nil {
		return nil, fmt.Errorf("load brands: %w", err)
	}

	for i := range summaries {
		views = append(views, buildView(&summaries[i], images[summaries[i].ID], categories, brands))
	}
	return views, nil
}

func buildView(s *domain.ProductSummary, images []domain.ProductImage, categories map[string]domain.Category, brands map[string]domain.Brand) domain.ProductView {
	v := domain.ProductView{
		Product:        s.Product,
		Images:         images,
		EffectivePrice: domain.NewMoney(s.Effective()),
		AverageRating:  s.AverageRating,
		RatingCount:    s.RatingCount,
		TotalSold:      s.TotalSold,
	}
	if v.Images == nil {
		v.Images = []domain.ProductImage{}
	}
	if c, ok := categories[s.CategoryID]; ok {
		v.Category = &c
	}
	if s.BrandID != nil {
		if b, ok := brands[*s.BrandID]; ok {
			v.Brand = &b
		}
	}
	return v
}
