package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/proyectos-la/digital-world/internal/domain"
	"github.com/proyectos-la/digital-world/pkg/database"
	apperrors "github.com/proyectos-la/digital-world/pkg/errors"
)

// BrandRepository implements repository.BrandRepository using PostgreSQL.
type BrandRepository struct {
	db database.DBTX
}

func NewBrandRepository(db database.DBTX) *BrandRepository {
	return &BrandRepository{db: db}
}

func (r *BrandRepository) Create(ctx context.Context, b *domain.Brand) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO brands (id, name, created_at) VALUES ($1, $2, $3)`,
		b.ID, b.Name, b.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("brand", "name", b.Name)
		}
		return fmt.Errorf("insert brand: %w", err)
	}
	return nil
}

func (r *BrandRepository) GetByID(ctx context.Context, id string) (*domain.Brand, error) {
	var b domain.Brand
	err := r.db.QueryRow(ctx, `SELECT id, name, created_at FROM brands WHERE id = $1`, id).
		Scan(&b.ID, &b.Name, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("brand", id)
		}
		return nil, fmt.Errorf("get brand: %w", err)
	}
	return &b, nil
}

func (r *BrandRepository) GetByIDs(ctx context.Context, ids []string) (map[string]domain.Brand, error) {
	out := make(map[string]domain.Brand, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	brands, err := r.list(ctx, "get brands by ids", `SELECT id, name, created_at FROM brands WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	for _, b := range brands {
		out[b.ID] = b
	}
	return out, nil
}

func (r *BrandRepository) List(ctx context.Context) ([]domain.Brand, error) {
	return r.list(ctx, "list brands", `SELECT id, name, created_at FROM brands ORDER BY name, id`)
}

func (r *BrandRepository) ListByCategory(ctx context.Context, categoryID string) ([]domain.Brand, error) {
	return r.list(ctx, "list brands by category", `
		SELECT b.id, b.name, b.created_at
		FROM brands b
		WHERE EXISTS (SELECT 1 FROM products p WHERE p.brand_id = b.id AND p.category_id = $1)
		ORDER BY b.name, b.id`, categoryID)
}

func (r *BrandRepository) Update(ctx context.Context, b *domain.Brand) error {
	ct, err := r.db.Exec(ctx, `UPDATE brands SET name = $1 WHERE id = $2`, b.Name, b.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("brand", "name", b.Name)
		}
		return fmt.Errorf("update brand: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("brand", b.ID)
	}
	return nil
}

// Delete refuses to remove a brand that products still reference.
func (r *BrandRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM brands WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.Conflict("brand is still assigned to products; reassign or delete them first")
		}
		return fmt.Errorf("delete brand: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("brand", id)
	}
	return nil
}

func (r *BrandRepository) list(ctx context.Context, op, query string, args ...any) ([]domain.Brand, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	brands := make([]domain.Brand, 0)
	for rows.Next() {
		var b domain.Brand
		if err := rows.Scan(&b.ID, &b.Name, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan brand: %w", err)
		}
		brands = append(brands, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate brands: %w", err)
	}
	return brands, nil
}
