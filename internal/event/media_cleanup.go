package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/proyectos-la/digital-world/internal/storage"
	pkgkafka "github.com/proyectos-la/digital-world/pkg/kafka"
)

// MediaCleanupHandler removes the stored images of deleted products.
type MediaCleanupHandler struct {
	store  storage.Storage
	logger *slog.Logger
}

func NewMediaCleanupHandler(store storage.Storage, logger *slog.Logger) *MediaCleanupHandler {
	return &MediaCleanupHandler{store: store, logger: logger}
}

// HandleProductDeleted deletes every storage key in the event. Keys that
// fail are reported together so the consumer retries the whole event;
// deleting an already removed key is a no-op.
func (h *MediaCleanupHandler) HandleProductDeleted(ctx context.Context, ev *pkgkafka.Event) error {
	if ev.EventType != TopicProductDeleted {
		h.logger.WarnContext(ctx, "unexpected event type on media cleanup",
			slog.String("event_type", ev.EventType),
			slog.String("event_id", ev.EventID),
		)
		return nil
	}

	var data ProductDeletedData
	if err := ev.UnmarshalData(&data); err != nil {
		return fmt.Errorf("decode product.deleted data: %w", err)
	}

	var errs []error
	removed := 0
	for _, key := range data.StorageKeys {
		if err := h.store.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
			continue
		}
		removed++
	}

	h.logger.InfoContext(ctx, "product images cleaned up",
		slog.String("product_id", data.ID),
		slog.Int("removed", removed),
		slog.Int("failed", len(errs)),
	)
	return errors.Join(errs...)
}

// MediaCleanupConfig configures the product.deleted consumer.
type MediaCleanupConfig struct {
	Brokers []string
	GroupID string
}

// NewMediaCleanupConsumer consumes product.deleted, skipping events already
// handled and dead-lettering those that keep failing.
func NewMediaCleanupConsumer(
	cfg MediaCleanupConfig,
	handler *MediaCleanupHandler,
	store pkgkafka.IdempotencyStore,
	dlq *pkgkafka.DLQProducer,
	logger *slog.Logger,
) *pkgkafka.Consumer {
	return pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers: cfg.Brokers,
		GroupID: cfg.GroupID,
		Topic:   TopicProductDeleted,
	}, pkgkafka.IdempotentHandler(store, handler.HandleProductDeleted, logger), dlq, logger)
}
