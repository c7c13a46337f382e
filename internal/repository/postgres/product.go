package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/proyectos-la/digital-world/internal/domain"
	"github.com/proyectos-la/digital-world/internal/repository"
	"github.com/proyectos-la/digital-world/pkg/database"
	apperrors "github.com/proyectos-la/digital-world/pkg/errors"
)

const productColumns = `p.id, p.name, p.slug, p.description, p.price, p.category_id, p.brand_id,
	p.is_on_sale, p.discount_percentage, p.created_at, p.updated_at`

// Aggregates are computed in lateral subqueries so joins never multiply rows.
const summarySelect = `
	SELECT ` + productColumns + `,
	       b.name AS brand_name,
	       COALESCE(r.avg_rating, 0)::float8 AS average_rating,
	       COALESCE(r.rating_count, 0) AS rating_count,
	       COALESCE(s.total_sold, 0) AS total_sold
	FROM products p
	LEFT JOIN brands b ON b.id = p.brand_id
	LEFT JOIN LATERAL (
		SELECT AVG(c.rating) AS avg_rating, COUNT(c.rating) AS rating_count
		FROM comments c WHERE c.product_id = p.id
	) r ON TRUE
	LEFT JOIN LATERAL (
		SELECT SUM(oi.quantity) AS total_sold
		FROM order_items oi WHERE oi.product_id = p.id
	) s ON TRUE`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db database.DBTX
}

func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts the product and its images in a single transaction.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product, images []domain.ProductImage) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO products (id, name, slug, description, price, category_id, brand_id,
		                      is_on_sale, discount_percentage, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.Name, p.Slug, p.Description, p.Price, p.CategoryID, p.BrandID,
		p.IsOnSale, p.DiscountPercentage, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return mapProductWriteError(err, p)
	}

	for i := range images {
		img := &images[i]
		_, err = tx.Exec(ctx, `
			INSERT INTO product_images (id, product_id, url, storage_key, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			img.ID, p.ID, img.URL, img.StorageKey, img.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert product image: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	p, err := r.scanProduct(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = $1`, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NotFound("product", id)
	}
	return p, err
}

func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	p, err := r.scanProduct(ctx, `SELECT `+productColumns+` FROM products p WHERE p.slug = $1`, slug)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NotFound("product", slug)
	}
	return p, err
}

// GetByIDs returns the products found among ids, in no particular order.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get products by ids: %w", err)
	}
	return collectProducts(rows)
}

// Update overwrites every mutable column of p.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	ct, err := r.db.Exec(ctx, `
		UPDATE products
		SET name = $1, slug = $2, description = $3, price = $4, category_id = $5, brand_id = $6,
		    is_on_sale = $7, discount_percentage = $8, updated_at = $9
		WHERE id = $10`,
		p.Name, p.Slug, p.Description, p.Price, p.CategoryID, p.BrandID,
		p.IsOnSale, p.DiscountPercentage, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return mapProductWriteError(err, p)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}
	return nil
}

// Delete removes the product. Images, comments and order lines go with it
// through ON DELETE CASCADE; the images are returned so their stored objects
// can be cleaned up.
func (r *ProductRepository) Delete(ctx context.Context, id string) ([]domain.ProductImage, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT id, product_id, url, storage_key, created_at
		FROM product_images WHERE product_id = $1
		ORDER BY created_at, id
		FOR UPDATE`, id)
	if err != nil {
		return nil, fmt.Errorf("lock product images: %w", err)
	}
	images, err := collectImages(rows)
	if err != nil {
		return nil, err
	}

	ct, err := tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, apperrors.NotFound("product", id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return images, nil
}

// ListSummaries returns the products matching filter with their aggregates,
// ordered by ID.
func (r *ProductRepository) ListSummaries(ctx context.Context, filter repository.SummaryFilter) (_ []domain.ProductSummary, err error) {
	query := summarySelect + `
	WHERE ($1::uuid IS NULL OR p.category_id = $1)
	  AND (NOT $2 OR p.is_on_sale)
	ORDER BY p.id`

	ctx, end := database.TraceQuery(ctx, "ListSummaries", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, filter.CategoryID, filter.OnSaleOnly)
	if err != nil {
		return nil, fmt.Errorf("list product summaries: %w", err)
	}
	defer rows.Close()

	summaries := make([]domain.ProductSummary, 0)
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product summaries: %w", err)
	}
	return summaries, nil
}

// GetSummary returns one product with its aggregates.
func (r *ProductRepository) GetSummary(ctx context.Context, id string) (*domain.ProductSummary, error) {
	row := r.db.QueryRow(ctx, summarySelect+` WHERE p.id = $1`, id)
	s, err := scanSummary(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, err
	}
	return s, nil
}

// Search matches the product name case-insensitively, newest first.
func (r *ProductRepository) Search(ctx context.Context, term string, limit int) (_ []domain.Product, err error) {
	query := `SELECT ` + productColumns + `
		FROM products p
		WHERE p.name ILIKE '%' || $1 || '%'
		ORDER BY p.created_at DESC, p.id
		LIMIT $2`

	ctx, end := database.TraceQuery(ctx, "SearchProducts", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, escapeLike(term), limit)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return collectProducts(rows)
}

// RatingSummary averages the ratings left in the product's comments.
func (r *ProductRepository) RatingSummary(ctx context.Context, productID string) (domain.RatingSummary, error) {
	var s domain.RatingSummary
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(AVG(rating), 0)::float8, COUNT(rating)
		FROM comments WHERE product_id = $1`, productID,
	).Scan(&s.AverageRating, &s.RatingCount)
	if err != nil {
		return domain.RatingSummary{}, fmt.Errorf("rating summary: %w", err)
	}
	return s, nil
}

// TotalSold sums the quantities of every order line for the product.
func (r *ProductRepository) TotalSold(ctx context.Context, productID string) (int, error) {
	var total int
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity), 0) FROM order_items WHERE product_id = $1`, productID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total sold: %w", err)
	}
	return total, nil
}

func (r *ProductRepository) scanProduct(ctx context.Context, query string, args ...any) (*domain.Product, error) {
	p, err := scanProductRow(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return p, nil
}

func scanProductRow(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.CategoryID, &p.BrandID,
		&p.IsOnSale, &p.DiscountPercentage, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanSummary(row pgx.Row) (*domain.ProductSummary, error) {
	var s domain.ProductSummary
	err := row.Scan(
		&s.ID, &s.Name, &s.Slug, &s.Description, &s.Price, &s.CategoryID, &s.BrandID,
		&s.IsOnSale, &s.DiscountPercentage, &s.CreatedAt, &s.UpdatedAt,
		&s.BrandName, &s.AverageRating, &s.RatingCount, &s.TotalSold,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan product summary: %w", err)
	}
	return &s, nil
}

func collectProducts(rows pgx.Rows) ([]domain.Product, error) {
	defer rows.Close()
	products := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProductRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

func mapProductWriteError(err error, p *domain.Product) error {
	switch {
	case isUniqueViolation(err):
		return apperrors.AlreadyExists("product", "slug", p.Slug)
	case isForeignKeyViolation(err):
		if constraintName(err) == "products_brand_id_fkey" {
			return apperrors.InvalidInput("brand does not exist")
		}
		return apperrors.InvalidInput("category does not exist")
	case isNumericOutOfRange(err):
		return apperrors.InvalidInput("price or discount_percentage is out of range")
	default:
		return fmt.Errorf("write product: %w", err)
	}
}
