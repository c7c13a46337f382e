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

const commentColumns = `id, user_id, product_id, page_id, text, rating, created_at, updated_at`

// CommentRepository implements repository.CommentRepository using PostgreSQL.
type CommentRepository struct {
	db database.DBTX
}

func NewCommentRepository(db database.DBTX) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create inserts c. The partial unique indexes back up the one-comment-per-
// user rule when two requests race past the service's existence check.
func (r *CommentRepository) Create(ctx context.Context, c *domain.Comment) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO comments (`+commentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.UserID, c.ProductID, c.PageID, c.Text, c.Rating, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err) && c.ProductID != nil:
			return apperrors.AlreadyExists("comment", "product", *c.ProductID)
		case isUniqueViolation(err) && c.PageID != nil:
			return apperrors.AlreadyExists("comment", "page_id", *c.PageID)
		case isForeignKeyViolation(err) && c.ProductID != nil:
			return apperrors.NotFound("product", *c.ProductID)
		}
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (r *CommentRepository) GetByID(ctx context.Context, id string) (*domain.Comment, error) {
	c, err := scanComment(r.db.QueryRow(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("comment", id)
		}
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return c, nil
}

func (r *CommentRepository) Update(ctx context.Context, c *domain.Comment) error {
	ct, err := r.db.Exec(ctx,
		`UPDATE comments SET text = $1, rating = $2, updated_at = $3 WHERE id = $4`,
		c.Text, c.Rating, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("comment", c.ID)
	}
	return nil
}

func (r *CommentRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("comment", id)
	}
	return nil
}

func (r *CommentRepository) ExistsForProduct(ctx context.Context, userID, productID string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM comments WHERE user_id = $1 AND product_id = $2)`, userID, productID)
}

func (r *CommentRepository) ExistsForPage(ctx context.Context, userID, pageID string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM comments WHERE user_id = $1 AND page_id = $2)`, userID, pageID)
}

// List returns the comments for filter's product or page, newest first.
func (r *CommentRepository) List(ctx context.Context, filter domain.CommentFilter) ([]domain.Comment, error) {
	var (
		query string
		arg   string
	)
	switch {
	case filter.ProductID != nil:
		query, arg = `SELECT `+commentColumns+` FROM comments WHERE product_id = $1 ORDER BY created_at DESC, id`, *filter.ProductID
	case filter.PageID != nil:
		query, arg = `SELECT `+commentColumns+` FROM comments WHERE page_id = $1 ORDER BY created_at DESC, id`, *filter.PageID
	default:
		return nil, apperrors.InvalidInput("a product or page_id is required")
	}

	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]domain.Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment row: %w", err)
		}
		comments = append(comments, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comment rows: %w", err)
	}
	return comments, nil
}

func (r *CommentRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check comment exists: %w", err)
	}
	return exists, nil
}

func scanComment(row pgx.Row) (*domain.Comment, error) {
	var c domain.Comment
	err := row.Scan(&c.ID, &c.UserID, &c.ProductID, &c.PageID, &c.Text, &c.Rating, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
