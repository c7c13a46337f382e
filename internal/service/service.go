// Package service holds the storefront's business rules. Services depend on
// the repository interfaces and never on a driver.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/proyectos-la/digital-world/internal/domain"
	"github.com/proyectos-la/digital-world/internal/repository"
	"github.com/proyectos-la/digital-world/pkg/middleware"
)

// EventPublisher emits domain events. *event.Producer implements it.
type EventPublisher interface {
	ProductCreated(ctx context.Context, product *domain.Product) error
	ProductUpdated(ctx context.Context, product *domain.Product) error
	ProductDeleted(ctx context.Context, id string, images []domain.ProductImage) error
	OrderCreated(ctx context.Context, order *domain.Order) error
	CommentCreated(ctx context.Context, comment *domain.Comment) error
	CommentUpdated(ctx context.Context, comment *domain.Comment) error
	CommentDeleted(ctx context.Context, comment *domain.Comment) error
}

// Requester is the authenticated caller of an operation.
type Requester struct {
	UserID string
	Role   string
}

func (r Requester) IsAdmin() bool {
	return r.Role == middleware.RoleAdmin
}

func now() time.Time {
	return time.Now().UTC()
}

// logPublishError records a failed publish. Events never fail the request.
func logPublishError(ctx context.Context, logger *slog.Logger, event, aggregateID string, err error) {
	if err == nil {
		return
	}
	logger.ErrorContext(ctx, "failed to publish event",
		slog.String("event", event),
		slog.String("aggregate_id", aggregateID),
		slog.String("error", err.Error()),
	)
}

// productLoader reads base product records through the Redis cache.
type productLoader struct {
	repo   repository.ProductRepository
	cache  repository.ProductCache
	logger *slog.Logger
}

func (l *productLoader) Get(ctx context.Context, id string) (*domain.Product, error) {
	if l.cache != nil {
		cached, err := l.cache.Get(ctx, id)
		if err != nil {
			l.logger.WarnContext(ctx, "product cache read failed",
				slog.String("product_id", id),
				slog.String("error", err.Error()),
			)
		} else if cached != nil {
			return cached, nil
		}
	}

	p, err := l.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		if err := l.cache.Set(ctx, p); err != nil {
			l.logger.WarnContext(ctx, "product cache write failed",
				slog.String("product_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	return p, nil
}

// GetMany returns the products found among ids keyed by ID.
func (l *productLoader) GetMany(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	out := make(map[string]domain.Product, len(ids))
	var missing []string
	for _, id := range ids {
		if l.cache == nil {
			missing = append(missing, id)
			continue
		}
		cached, err := l.cache.Get(ctx, id)
		if err != nil || cached == nil {
			missing = append(missing, id)
			continue
		}
		out[id] = *cached
	}
	if len(missing) == 0 {
		return out, nil
	}

	products, err := l.repo.GetByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for i := range products {
		out[products[i].ID] = products[i]
		if l.cache != nil {
			if err := l.cache.Set(ctx, &products[i]); err != nil {
				l.logger.WarnContext(ctx, "product cache write failed",
					slog.String("product_id", products[i].ID),
					slog.String("error", err.Error()),
				)
			}
		}
	}
	return out, nil
}

func (l *productLoader) Invalidate(ctx context.Context, id string) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Invalidate(ctx, id); err != nil {
		l.logger.WarnContext(ctx, "product cache invalidation failed",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}
}
