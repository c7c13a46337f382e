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

const imageColumns = `id, product_id, url, storage_key, created_at`

// ImageRepository implements repository.ImageRepository using PostgreSQL.
type ImageRepository struct {
	db database.DBTX
}

func NewImageRepository(db database.DBTX) *ImageRepository {
	return &ImageRepository{db: db}
}

func (r *ImageRepository) Add(ctx context.Context, img *domain.ProductImage) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO product_images (`+imageColumns+`)
		VALUES ($1, $2, $3, $4, $5)`,
		img.ID, img.ProductID, img.URL, img.StorageKey, img.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.NotFound("product", img.ProductID)
		}
		return fmt.Errorf("insert product image: %w", err)
	}
	return nil
}

func (r *ImageRepository) GetByID(ctx context.Context, id string) (*domain.ProductImage, error) {
	var img domain.ProductImage
	err := r.db.QueryRow(ctx, `SELECT `+imageColumns+` FROM product_images WHERE id = $1`, id).
		Scan(&img.ID, &img.ProductID, &img.URL, &img.StorageKey, &img.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("image", id)
		}
		return nil, fmt.Errorf("get product image: %w", err)
	}
	return &img, nil
}

func (r *ImageRepository) ListByProduct(ctx context.Context, productID string) ([]domain.ProductImage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+imageColumns+` FROM product_images
		WHERE product_id = $1
		ORDER BY created_at, id`, productID)
	if err != nil {
		return nil, fmt.Errorf("list product images: %w", err)
	}
	return collectImages(rows)
}

func (r *ImageRepository) ListByProducts(ctx context.Context, productIDs []string) (map[string][]domain.ProductImage, error) {
	out := make(map[string][]domain.ProductImage, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+imageColumns+` FROM product_images
		WHERE product_id = ANY($1)
		ORDER BY product_id, created_at, id`, productIDs)
	if err != nil {
		return nil, fmt.Errorf("list images by products: %w", err)
	}
	images, err := collectImages(rows)
	if err != nil {
		return nil, err
	}
	for _, img := range images {
		out[img.ProductID] = append(out[img.ProductID], img)
	}
	return out, nil
}

func (r *ImageRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM product_images WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product image: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("image", id)
	}
	return nil
}

func collectImages(rows pgx.Rows) ([]domain.ProductImage, error) {
	defer rows.Close()
	images := make([]domain.ProductImage, 0)
	for rows.Next() {
		var img domain.ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.URL, &img.StorageKey, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product images: %w", err)
	}
	return images, nil
}
