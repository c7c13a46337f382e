package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/proyectos-la/digital-world/internal/domain"
	"github.com/proyectos-la/digital-world/internal/repository"
	"github.com/proyectos-la/digital-world/internal/storage"
	apperrors "github.com/proyectos-la/digital-world/pkg/errors"
	"github.com/proyectos-la/digital-world/pkg/slug"
)

// Upload is an image file received with a product request.
type Upload struct {
	Filename string
	Data     io.Reader
}

// ImageOptimizer prepares uploads for storage. *storage.Optimizer implements it.
type ImageOptimizer interface {
	Optimize(r io.Reader) (*storage.OptimizedImage, error)
}

// ProductService manages the catalog: products and their images.
type ProductService struct {
	products   repository.ProductRepository
	images     repository.ImageRepository
	categories repository.CategoryRepository
	brands     repository.BrandRepository
	store      storage.Storage
	optimizer  ImageOptimizer
	loader     *productLoader
	events     EventPublisher
	logger     *slog.Logger
}

// ProductDeps groups the collaborators of ProductService.
type ProductDeps struct {
	Products   repository.ProductRepository
	Images     repository.ImageRepository
	Categories repository.CategoryRepository
	Brands     repository.BrandRepository
	Cache      repository.ProductCache
	Storage    storage.Storage
	Optimizer  ImageOptimizer
	Events     EventPublisher
}

func NewProductService(deps ProductDeps, logger *slog.Logger) *ProductService {
	return &ProductService{
		products:   deps.Products,
		images:     deps.Images,
		categories: deps.Categories,
		brands:     deps.Brands,
		store:      deps.Storage,
		optimizer:  deps.Optimizer,
		loader:     &productLoader{repo: deps.Products, cache: deps.Cache, logger: logger},
		events:     deps.Events,
		logger:     logger,
	}
}

// Create stores the uploaded images, then the product and its image rows in
// one transaction. Stored objects are removed again if that transaction fails.
func (s *ProductService) Create(ctx context.Context, input *domain.CreateProductInput, uploads []Upload) (*domain.ProductView, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	if input.Name == "" {
		return nil, apperrors.InvalidInput("product name is required")
	}
	if input.Description == "" {
		return nil, apperrors.InvalidInput("product description is required")
	}
	price, err := normalizePrice(input.Price)
	if err != nil {
		return nil, err
	}
	discount, err := normalizeDiscount(input.DiscountPercentage)
	if err != nil {
		return nil, err
	}
	if len(uploads) == 0 {
		return nil, apperrors.InvalidInput("at least one image is required")
	}

	category, brand, err := s.resolveRefs(ctx, input.CategoryID, input.BrandID)
	if err != nil {
		return nil, err
	}

	ts := now()
	product := &domain.Product{
		ID:                 uuid.New().String(),
		Name:               input.Name,
		Description:        input.Description,
		Price:              price,
		CategoryID:         input.CategoryID,
		BrandID:            input.BrandID,
		IsOnSale:           input.IsOnSale,
		DiscountPercentage: discount,
		CreatedAt:          ts,
		UpdatedAt:          ts,
	}
	if product.Slug, err = s.uniqueSlug(ctx, product.Name, product.ID); err != nil {
		return nil, err
	}

	images := make([]domain.ProductImage, 0, len(uploads))
	for _, up := range uploads {
		img, err := s.storeImage(ctx, product.ID, up)
		if err != nil {
			s.removeObjects(ctx, images)
			return nil, err
		}
		images = append(images, *img)
	}

	if err := s.products.Create(ctx, product, images); err != nil {
		s.removeObjects(ctx, images)
		return nil, fmt.Errorf("create product: %w", err)
	}

	logPublishError(ctx, s.logger, "product.created", product.ID, s.events.ProductCreated(ctx, product))

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
		slog.Int("images", len(images)),
	)

	return &domain.ProductView{
		Product:        *product,
		Category:       category,
		Brand:          brand,
		Images:         images,
		EffectivePrice: domain.NewMoney(product.Effective()),
	}, nil
}

// Update applies a partial update. A new name yields a new slug.
func (s *ProductService) Update(ctx context.Context, id string, input *domain.UpdateProductInput) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.InvalidInput("product name must not be blank")
		}
		if name != product.Name {
			product.Name = name
			if product.Slug, err = s.uniqueSlug(ctx, name, product.ID); err != nil {
				return nil, err
			}
		}
	}
	if input.Description != nil {
		desc := strings.TrimSpace(*input.Description)
		if desc == "" {
			return nil, apperrors.InvalidInput("product description must not be blank")
		}
		product.Description = desc
	}
	if input.Price != nil {
		if product.Price, err = normalizePrice(*input.Price); err != nil {
			return nil, err
		}
	}
	if input.IsOnSale != nil {
		product.IsOnSale = *input.IsOnSale
	}
	switch {
	case input.ClearDiscount:
		product.DiscountPercentage = nil
	case input.DiscountPercentage != nil:
		if product.DiscountPercentage, err = normalizeDiscount(input.DiscountPercentage); err != nil {
			return nil, err
		}
	}

	categoryID := product.CategoryID
	if input.CategoryID != nil {
		categoryID = *input.CategoryID
	}
	brandID := product.BrandID
	switch {
	case input.ClearBrand:
		brandID = nil
	case input.BrandID != nil:
		brandID = input.BrandID
	}
	if categoryID != product.CategoryID || !sameRef(brandID, product.BrandID) {
		if _, _, err := s.resolveRefs(ctx, categoryID, brandID); err != nil {
			return nil, err
		}
	}
	product.CategoryID = categoryID
	product.BrandID = brandID
	product.UpdatedAt = now()

	if err := s.products.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	s.loader.Invalidate(ctx, product.ID)

	logPublishError(ctx, s.logger, "product.updated", product.ID, s.events.ProductUpdated(ctx, product))

	s.logger.InfoContext(ctx, "product updated", slog.String("product_id", product.ID))
	return product, nil
}

// Delete removes the product. Its comments and order lines go with it;
// its stored images are cleaned up asynchronously from product.deleted, or
// right away when that event cannot be published.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	images, err := s.products.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.loader.Invalidate(ctx, id)

	if err := s.events.ProductDeleted(ctx, id, images); err != nil {
		logPublishError(ctx, s.logger, "product.deleted", id, err)
		s.removeObjects(ctx, images)
	}

	s.logger.InfoContext(ctx, "product deleted",
		slog.String("product_id", id),
		slog.Int("images", len(images)),
	)
	return nil
}

// AddImage stores one more image for an existing product.
func (s *ProductService) AddImage(ctx context.Context, productID string, up Upload) (*domain.ProductImage, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	img, err := s.storeImage(ctx, productID, up)
	if err != nil {
		return nil, err
	}
	if err := s.images.Add(ctx, img); err != nil {
		s.removeObjects(ctx, []domain.ProductImage{*img})
		return nil, fmt.Errorf("add product image: %w", err)
	}

	s.logger.InfoContext(ctx, "product image added",
		slog.String("product_id", productID),
		slog.String("image_id", img.ID),
	)
	return img, nil
}

// DeleteImage removes the image row and its stored object.
func (s *ProductService) DeleteImage(ctx context.Context, imageID string) error {
	img, err := s.images.GetByID(ctx, imageID)
	if err != nil {
		return fmt.Errorf("get product image: %w", err)
	}
	if err := s.images.Delete(ctx, imageID); err != nil {
		return fmt.Errorf("delete product image: %w", err)
	}
	s.removeObjects(ctx, []domain.ProductImage{*img})

	s.logger.InfoContext(ctx, "product image deleted",
		slog.String("product_id", img.ProductID),
		slog.String("image_id", imageID),
	)
	return nil
}

func (s *ProductService) storeImage(ctx context.Context, productID string, up Upload) (*domain.ProductImage, error) {
	optimized, err := s.optimizer.Optimize(up.Data)
	if err != nil {
		return nil, fmt.Errorf("optimize %s: %w", up.Filename, err)
	}

	imageID := uuid.New().String()
	res, err := s.store.Upload(ctx, &storage.UploadInput{
		Key:         fmt.Sprintf("products/%s/%s%s", productID, imageID, optimized.Extension),
		ContentType: optimized.ContentType,
		Size:        int64(len(optimized.Data)),
		Data:        bytes.NewReader(optimized.Data),
	})
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	return &domain.ProductImage{
		ID:         imageID,
		ProductID:  productID,
		URL:        res.URL,
		StorageKey: res.Key,
		CreatedAt:  now(),
	}, nil
}

func (s *ProductService) removeObjects(ctx context.Context, images []domain.ProductImage) {
	for _, img := range images {
		if err := s.store.Delete(ctx, img.StorageKey); err != nil {
			s.logger.WarnContext(ctx, "failed to remove stored image",
				slog.String("key", img.StorageKey),
				slog.String("error", err.Error()),
			)
		}
	}
}

// resolveRefs loads the category and, when set, the brand. Unknown
// references are the caller's mistake, so they surface as InvalidInput.
func (s *ProductService) resolveRefs(ctx context.Context, categoryID string, brandID *string) (*domain.Category, *domain.Brand, error) {
	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.InvalidInput("category does not exist")
		}
		return nil, nil, fmt.Errorf("get category: %w", err)
	}
	if brandID == nil {
		return category, nil, nil
	}
	brand, err := s.brands.GetByID(ctx, *brandID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.InvalidInput("brand does not exist")
		}
		return nil, nil, fmt.Errorf("get brand: %w", err)
	}
	return category, brand, nil
}

// uniqueSlug derives a slug from name, suffixing part of id when another
// product already uses it.
func (s *ProductService) uniqueSlug(ctx context.Context, name, id string) (string, error) {
	base := slug.Generate(name)
	if base == "" {
		return id, nil
	}
	existing, err := s.products.GetBySlug(ctx, base)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return base, nil
	case err != nil:
		return "", fmt.Errorf("check slug: %w", err)
	case existing.ID == id:
		return base, nil
	default:
		return slug.WithSuffix(base, shortID(id)), nil
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func sameRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func normalizePrice(in decimal.Decimal) (decimal.Decimal, error) {
	price, ok := domain.NormalizePrice(in)
	if !ok {
		return decimal.Decimal{}, apperrors.InvalidInput("price must be between 0 and 99999999.99")
	}
	return price, nil
}

// normalizeDiscount rounds the percentage the way it is stored, so the
// returned product prices the same as every later read.
func normalizeDiscount(in *decimal.Decimal) (*decimal.Decimal, error) {
	if in == nil {
		return nil, nil
	}
	pct, ok := domain.NormalizeDiscount(*in)
	if !ok {
		return nil, apperrors.InvalidInput("discount_percentage must be between -99999 and 99999")
	}
	return &pct, nil
}
