package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/proyectos-la/digital-world/internal/domain"
	"github.com/proyectos-la/digital-world/internal/repository"
	apperrors "github.com/proyectos-la/digital-world/pkg/errors"
)

// CategoryService manages categories.
type CategoryService struct {
	repo   repository.CategoryRepository
	logger *slog.Logger
	clock  func() time.Time
}

func NewCategoryService(repo repository.CategoryRepository, logger *slog.Logger) *CategoryService {
	return &CategoryService{repo: repo, logger: logger, clock: now}
}

func (s *CategoryService) Create(ctx context.Context, input *domain.CategoryInput) (*domain.Category, error) {
	name, err := cleanName(input.Name, "category")
	if err != nil {
		return nil, err
	}
	c := &domain.Category{ID: uuid.New().String(), Name: name, CreatedAt: s.clock()}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	s.logger.InfoContext(ctx, "category created", slog.String("category_id", c.ID))
	return c, nil
}

func (s *CategoryService) Get(ctx context.Context, id string) (*domain.Category, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// ListOnSale returns the categories that have a product on sale.
func (s *CategoryService) ListOnSale(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.repo.ListOnSale(ctx)
	if err != nil {
		return nil, fmt.Errorf("list on-sale categories: %w", err)
	}
	return categories, nil
}

// ListRecent returns the categories that gained a product in the last 30 days.
func (s *CategoryService) ListRecent(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.repo.ListWithProductsSince(ctx, s.clock().Add(-domain.RecentWindow))
	if err != nil {
		return nil, fmt.Errorf("list recent categories: %w", err)
	}
	return categories, nil
}

func (s *CategoryService) Update(ctx context.Context, id string, input *domain.CategoryInput) (*domain.Category, error) {
	name, err := cleanName(input.Name, "category")
	if err != nil {
		return nil, err
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	c.Name = name
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return c, nil
}

// Delete removes the category together with its products.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.logger.InfoContext(ctx, "category deleted", slog.String("category_id", id))
	return nil
}

// BrandService manages brands.
type BrandService struct {
	repo   repository.BrandRepository
	logger *slog.Logger
}

func NewBrandService(repo repository.BrandRepository, logger *slog.Logger) *BrandService {
	return &BrandService{repo: repo, logger: logger}
}

func (s *BrandService) Create(ctx context.Context, input *domain.BrandInput) (*domain.Brand, error) {
	name, err := cleanName(input.Name, "brand")
	if err != nil {
		return nil, err
	}
	b := &domain.Brand{ID: uuid.New().String(), Name: name, CreatedAt: now()}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create brand: %w", err)
	}
	s.logger.InfoContext(ctx, "brand created", slog.String("brand_id", b.ID))
	return b, nil
}

func (s *BrandService) Get(ctx context.Context, id string) (*domain.Brand, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get brand: %w", err)
	}
	return b, nil
}

// List returns every brand, or only those with products in categoryID.
func (s *BrandService) List(ctx context.Context, categoryID *string) ([]domain.Brand, error) {
	var (
		brands []domain.Brand
		err    error
	)
	if categoryID != nil {
		brands, err = s.repo.ListByCategory(ctx, *categoryID)
	} else {
		brands, err = s.repo.List(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	return brands, nil
}

func (s *BrandService) Update(ctx context.Context, id string, input *domain.BrandInput) (*domain.Brand, error) {
	name, err := cleanName(input.Name, "brand")
	if err != nil {
		return nil, err
	}
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get brand: %w", err)
	}
	b.Name = name
	if err := s.repo.Update(ctx, b); err != nil {
		return nil, fmt.Errorf("update brand: %w", err)
	}
	return b, nil
}

// Delete fails with a Conflict while products still reference the brand.
func (s *BrandService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete brand: %w", err)
	}
	s.logger.InfoContext(ctx, "brand deleted", slog.String("brand_id", id))
	return nil
}

func cleanName(name, resource string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.InvalidInput(resource + " name is required")
	}
	return name, nil
}
