package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/proyectos-la/digital-world/internal/domain"
	pkgkafka "github.com/proyectos-la/digital-world/pkg/kafka"
	"github.com/proyectos-la/digital-world/pkg/logger"
)

// Source identifies this service in event envelopes.
const Source = "digital-world"

const (
	AggregateProduct = "product"
	AggregateOrder   = "order"
	AggregateComment = "comment"
)

var (
	TopicProductCreated = pkgkafka.Topic(AggregateProduct, "created")
	TopicProductUpdated = pkgkafka.Topic(AggregateProduct, "updated")
	TopicProductDeleted = pkgkafka.Topic(AggregateProduct, "deleted")
	TopicOrderCreated   = pkgkafka.Topic(AggregateOrder, "created")
	TopicCommentCreated = pkgkafka.Topic(AggregateComment, "created")
	TopicCommentUpdated = pkgkafka.Topic(AggregateComment, "updated")
	TopicCommentDeleted = pkgkafka.Topic(AggregateComment, "deleted")
)

type ProductData struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Slug               string           `json:"slug"`
	CategoryID         string           `json:"category_id"`
	BrandID            *string          `json:"brand_id,omitempty"`
	Price              decimal.Decimal  `json:"price"`
	IsOnSale           bool             `json:"is_on_sale"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage,omitempty"`
}

// ProductDeletedData carries the storage keys of the deleted product's
// images so their objects can be removed asynchronously.
type ProductDeletedData struct {
	ID          string   `json:"id"`
	StorageKeys []string `json:"storage_keys"`
}

type OrderLineData struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderCreatedData struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod string          `json:"payment_method"`
	Items         []OrderLineData `json:"items"`
}

type CommentData struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id"`
	ProductID *string `json:"product_id,omitempty"`
	PageID    *string `json:"page_id,omitempty"`
	Rating    *int    `json:"rating,omitempty"`
}

type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes storefront domain events.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
}

func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

func newProducer(p publisher, logger *slog.Logger) *Producer {
	return &Producer{kafka: p, logger: logger}
}

func productData(p *domain.Product) ProductData {
	return ProductData{
		ID:                 p.ID,
		Name:               p.Name,
		Slug:               p.Slug,
		CategoryID:         p.CategoryID,
		BrandID:            p.BrandID,
		Price:              p.Price,
		IsOnSale:           p.IsOnSale,
		DiscountPercentage: p.DiscountPercentage,
	}
}

func (p *Producer) ProductCreated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductCreated, product.ID, AggregateProduct, productData(product))
}

func (p *Producer) ProductUpdated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductUpdated, product.ID, AggregateProduct, productData(product))
}

func (p *Producer) ProductDeleted(ctx context.Context, id string, images []domain.ProductImage) error {
	keys := make([]string, 0, len(images))
	for _, img := range images {
		if img.StorageKey != "" {
			keys = append(keys, img.StorageKey)
		}
	}
	return p.publish(ctx, TopicProductDeleted, id, AggregateProduct, ProductDeletedData{ID: id, StorageKeys: keys})
}

func (p *Producer) OrderCreated(ctx context.Context, o *domain.Order) error {
	lines := make([]OrderLineData, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, OrderLineData{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price})
	}
	return p.publish(ctx, TopicOrderCreated, o.ID, AggregateOrder, OrderCreatedData{
		ID:            o.ID,
		UserID:        o.UserID,
		TotalAmount:   o.TotalAmount,
		PaymentMethod: o.PaymentMethod,
		Items:         lines,
	})
}

func (p *Producer) CommentCreated(ctx context.Context, c *domain.Comment) error {
	return p.publish(ctx, TopicCommentCreated, c.ID, AggregateComment, commentData(c))
}

func (p *Producer) CommentUpdated(ctx context.Context, c *domain.Comment) error {
	return p.publish(ctx, TopicCommentUpdated, c.ID, AggregateComment, commentData(c))
}

func (p *Producer) CommentDeleted(ctx context.Context, c *domain.Comment) error {
	return p.publish(ctx, TopicCommentDeleted, c.ID, AggregateComment, commentData(c))
}

func commentData(c *domain.Comment) CommentData {
	return CommentData{ID: c.ID, UserID: c.UserID, ProductID: c.ProductID, PageID: c.PageID, Rating: c.Rating}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	ev, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		ev.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, ev); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
