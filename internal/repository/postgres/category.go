package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/proyectos-la/digital-world/internal/domain"
	"github.com/proyectos-la/digital-world/pkg/database"
	apperrors "github.com/proyectos-la/digital-world/pkg/errors"
)

// CategoryRepository implements repository.CategoryRepository using PostgreSQL.
type CategoryRepository struct {
	db database.DBTX
}

func NewCategoryRepository(db database.DBTX) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO categories (id, name, created_at) VALUES ($1, $2, $3)`,
		c.ID, c.Name, c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("category", "name", c.Name)
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	var c domain.Category
	err := r.db.QueryRow(ctx, `SELECT id, name, created_at FROM categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("category", id)
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

func (r *CategoryRepository) GetByIDs(ctx context.Context, ids []string) (map[string]domain.Category, error) {
	out := make(map[string]domain.Category, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	categories, err := r.list(ctx, "get categories by ids",
		`SELECT id, name, created_at FROM categories WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	for _, c := range categories {
		out[c.ID] = c
	}
	return out, nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	return r.list(ctx, "list categories", `SELECT id, name, created_at FROM categories ORDER BY name, id`)
}

func (r *CategoryRepository) ListOnSale(ctx context.Context) ([]domain.Category, error) {
	return r.list(ctx, "list on-sale categories", `
		SELECT c.id, c.name, c.created_at
		FROM categories c
		WHERE EXISTS (SELECT 1 FROM products p WHERE p.category_id = c.id AND p.is_on_sale)
		ORDER BY c.name, c.id`)
}

func (r *CategoryRepository) ListWithProductsSince(ctx context.Context, since time.Time) ([]domain.Category, error) {
	return r.list(ctx, "list recent categories", `
		SELECT c.id, c.name, c.created_at
		FROM categories c
		WHERE EXISTS (SELECT 1 FROM products p WHERE p.category_id = c.id AND p.created_at >= $1)
		ORDER BY c.name, c.id`, since)
}

func (r *CategoryRepository) Search(ctx context.Context, term string) ([]domain.Category, error) {
	return r.list(ctx, "search categories", `
		SELECT c.id, c.name, c.created_at
		FROM categories c
		WHERE c.name ILIKE '%' || $1 || '%'
		   OR EXISTS (SELECT 1 FROM products p WHERE p.category_id = c.id AND p.name ILIKE '%' || $1 || '%')
		ORDER BY c.name, c.id`, escapeLike(term))
}

func (r *CategoryRepository) Update(ctx context.Context, c *domain.Category) error {
	ct, err := r.db.Exec(ctx, `UPDATE categories SET name = $1 WHERE id = $2`, c.Name, c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("category", "name", c.Name)
		}
		return fmt.Errorf("update category: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("category", c.ID)
	}
	return nil
}

// Delete removes the category and, by cascade, its products.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("category", id)
	}
	return nil
}

func (r *CategoryRepository) list(ctx context.Context, op, query string, args ...any) ([]domain.Category, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}
