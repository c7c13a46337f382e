package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/proyectos-la/digital-world/internal/domain"
	"github.com/proyectos-la/digital-world/internal/repository"
	apperrors "github.com/proyectos-la/digital-world/pkg/errors"
)

// CommentService manages product reviews and page comments.
type CommentService struct {
	comments repository.CommentRepository
	loader   *productLoader
	events   EventPublisher
	logger   *slog.Logger
}

func NewCommentService(
	comments repository.CommentRepository,
	products repository.ProductRepository,
	cache repository.ProductCache,
	events EventPublisher,
	logger *slog.Logger,
) *CommentService {
	return &CommentService{
		comments: comments,
		loader:   &productLoader{repo: products, cache: cache, logger: logger},
		events:   events,
		logger:   logger,
	}
}

// Create posts a comment. Product comments need text and a 1..5 rating;
// page comments need text and carry no rating. A user comments on each
// product or page at most once.
func (s *CommentService) Create(ctx context.Context, userID string, input *domain.CreateCommentInput) (*domain.Comment, error) {
	productID, pageID := trimmed(input.ProductID), trimmed(input.PageID)
	if (productID == nil) == (pageID == nil) {
		return nil, apperrors.InvalidInput("exactly one of product or page_id is required")
	}
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, apperrors.InvalidInput("comment text is required")
	}

	if productID != nil {
		if input.Rating == nil {
			return nil, apperrors.InvalidInput("rating is required for product comments")
		}
		if err := checkRating(*input.Rating); err != nil {
			return nil, err
		}
		if _, err := s.loader.Get(ctx, *productID); err != nil {
			return nil, fmt.Errorf("get product: %w", err)
		}
		exists, err := s.comments.ExistsForProduct(ctx, userID, *productID)
		if err != nil {
			return nil, fmt.Errorf("check existing comment: %w", err)
		}
		if exists {
			return nil, apperrors.AlreadyExists("comment", "product", *productID)
		}
	} else {
		if input.Rating != nil {
			return nil, apperrors.InvalidInput("page comments cannot carry a rating")
		}
		exists, err := s.comments.ExistsForPage(ctx, userID, *pageID)
		if err != nil {
			return nil, fmt.Errorf("check existing comment: %w", err)
		}
		if exists {
			return nil, apperrors.AlreadyExists("comment", "page_id", *pageID)
		}
	}

	ts := now()
	c := &domain.Comment{
		ID:        uuid.New().String(),
		UserID:    userID,
		ProductID: productID,
		PageID:    pageID,
		Text:      text,
		Rating:    input.Rating,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	logPublishError(ctx, s.logger, "comment.created", c.ID, s.events.CommentCreated(ctx, c))
	s.logger.InfoContext(ctx, "comment created", slog.String("comment_id", c.ID))
	return c, nil
}

// Update edits the text or rating of the user's own comment.
func (s *CommentService) Update(ctx context.Context, userID, id string, input *domain.UpdateCommentInput) (*domain.Comment, error) {
	c, err := s.owned(ctx, userID, id, "update")
	if err != nil {
		return nil, err
	}

	if input.Text != nil {
		text := strings.TrimSpace(*input.Text)
		if text == "" {
			return nil, apperrors.InvalidInput("comment text must not be blank")
		}
		c.Text = text
	}
	if input.Rating != nil {
		if c.ProductID == nil {
			return nil, apperrors.InvalidInput("page comments cannot carry a rating")
		}
		if err := checkRating(*input.Rating); err != nil {
			return nil, err
		}
		c.Rating = input.Rating
	}
	c.UpdatedAt = now()

	if err := s.comments.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	logPublishError(ctx, s.logger, "comment.updated", c.ID, s.events.CommentUpdated(ctx, c))
	return c, nil
}

// Delete removes the user's own comment.
func (s *CommentService) Delete(ctx context.Context, userID, id string) error {
	c, err := s.owned(ctx, userID, id, "delete")
	if err != nil {
		return err
	}
	if err := s.comments.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	logPublishError(ctx, s.logger, "comment.deleted", c.ID, s.events.CommentDeleted(ctx, c))
	s.logger.InfoContext(ctx, "comment deleted", slog.String("comment_id", id))
	return nil
}

// List returns the comments of a page or a product, page_id taking
// precedence. The viewer's own comments come first, then newest first.
// viewerID is empty for anonymous callers.
func (s *CommentService) List(ctx context.Context, viewerID string, filter domain.CommentFilter) ([]domain.Comment, error) {
	filter.ProductID, filter.PageID = trimmed(filter.ProductID), trimmed(filter.PageID)
	switch {
	case filter.PageID != nil:
		filter.ProductID = nil
	case filter.ProductID == nil:
		return nil, apperrors.InvalidInput("a product or page_id is required")
	}

	comments, err := s.comments.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	if viewerID != "" {
		sort.SliceStable(comments, func(i, j int) bool {
			return comments[i].UserID == viewerID && comments[j].UserID != viewerID
		})
	}
	return comments, nil
}

func (s *CommentService) owned(ctx context.Context, userID, id, action string) (*domain.Comment, error) {
	c, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	if c.UserID != userID {
		return nil, apperrors.Forbidden(fmt.Sprintf("cannot %s another user's comment", action))
	}
	return c, nil
}

func checkRating(r int) error {
	if r < domain.MinRating || r > domain.MaxRating {
		return apperrors.InvalidInput(fmt.Sprintf("rating must be between %d and %d", domain.MinRating, domain.MaxRating))
	}
	return nil
}

// trimmed returns nil for nil or blank values.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
