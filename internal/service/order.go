package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/proyectos-la/digital-world/internal/domain"
	"github.com/proyectos-la/digital-world/internal/repository"
	apperrors "github.com/proyectos-la/digital-world/pkg/errors"
)

// OrderService places and tracks orders.
type OrderService struct {
	orders repository.OrderRepository
	carts  repository.CartRepository
	loader *productLoader
	events EventPublisher
	logger *slog.Logger
}

func NewOrderService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	cache repository.ProductCache,
	carts repository.CartRepository,
	events EventPublisher,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		orders: orders,
		carts:  carts,
		loader: &productLoader{repo: products, cache: cache, logger: logger},
		events: events,
		logger: logger,
	}
}

// Create places an order for userID. Each line is priced at the product's
// current effective price; client-sent prices are never trusted.
func (s *OrderService) Create(ctx context.Context, userID string, input *domain.CreateOrderInput) (*domain.Order, error) {
	return s.place(ctx, userID, &input.DeliveryDetails, input.Items)
}

// Checkout places an order with the contents of the user's cart and empties
// the cart once the order is stored.
func (s *OrderService) Checkout(ctx context.Context, userID string, details *domain.DeliveryDetails) (*domain.Order, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if len(cart.Items) == 0 {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	lines := make([]domain.OrderLineInput, 0, len(cart.Items))
	for _, it := range cart.Items {
		lines = append(lines, domain.OrderLineInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	order, err := s.place(ctx, userID, details, lines)
	if err != nil {
		return nil, err
	}

	if err := s.carts.Delete(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "failed to clear cart after checkout",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}
	return order, nil
}

func (s *OrderService) place(ctx context.Context, userID string, details *domain.DeliveryDetails, lines []domain.OrderLineInput) (*domain.Order, error) {
	if err := validateDelivery(details); err != nil {
		return nil, err
	}
	lines, err := mergeLines(lines)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.loader.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load order products: %w", err)
	}

	order := &domain.Order{
		ID:            uuid.New().String(),
		UserID:        userID,
		Name:          strings.TrimSpace(details.Name),
		PhoneNumber:   strings.TrimSpace(details.PhoneNumber),
		DNI:           strings.TrimSpace(details.DNI),
		Street:        strings.TrimSpace(details.Street),
		StreetNumber:  strings.TrimSpace(details.StreetNumber),
		OrderDate:     now(),
		PaymentMethod: details.PaymentMethod,
		Comment:       details.Comment,
		Status:        domain.OrderStatusPending,
		Items:         make([]domain.OrderItem, 0, len(lines)),
		TotalAmount:   decimal.Zero,
	}
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok {
			return nil, apperrors.NotFound("product", l.ProductID)
		}
		item := domain.OrderItem{
			ID:        uuid.New().String(),
			OrderID:   order.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     p.Effective(),
		}
		order.Items = append(order.Items, item)
		order.TotalAmount = order.TotalAmount.Add(item.LineTotal())
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	logPublishError(ctx, s.logger, "order.created", order.ID, s.events.OrderCreated(ctx, order))

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.Int("items", len(order.Items)),
		slog.String("total", order.TotalAmount.StringFixed(2)),
	)
	return order, nil
}

// ListByUser returns the orders of userID, defaulting to the requester.
// Only admins may list someone else's orders.
func (s *OrderService) ListByUser(ctx context.Context, requester Requester, userID string) ([]domain.Order, error) {
	if userID == "" {
		userID = requester.UserID
	}
	if userID != requester.UserID && !requester.IsAdmin() {
		return nil, apperrors.Forbidden("cannot list another user's orders")
	}
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// Get returns an order of the requester. Other users' orders are reported
// as not found unless the requester is an admin.
func (s *OrderService) Get(ctx context.Context, requester Requester, id string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.UserID != requester.UserID && !requester.IsAdmin() {
		return nil, apperrors.NotFound("order", id)
	}
	return order, nil
}

// UpdateStatus moves a pending order to delivered or cancelled.
func (s *OrderService) UpdateStatus(ctx context.Context, id, status string) (*domain.Order, error) {
	if !domain.CanTransition(domain.OrderStatusPending, status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("status must be %s or %s", domain.OrderStatusDelivered, domain.OrderStatusCancelled))
	}
	if err := s.orders.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	s.logger.InfoContext(ctx, "order status changed",
		slog.String("order_id", id),
		slog.String("status", status),
	)

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

func validateDelivery(d *domain.DeliveryDetails) error {
	required := []struct{ field, value string }{
		{"name", d.Name},
		{"phone_number", d.PhoneNumber},
		{"dni", d.DNI},
		{"street", d.Street},
		{"street_number", d.StreetNumber},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return apperrors.InvalidInput(r.field + " is required")
		}
	}
	if !domain.IsValidPaymentMethod(d.PaymentMethod) {
		return apperrors.InvalidInput(fmt.Sprintf("payment_method %q is not supported", d.PaymentMethod))
	}
	return nil
}

// mergeLines sums repeated products into one line, keeping first-seen order.
func mergeLines(lines []domain.OrderLineInput) ([]domain.OrderLineInput, error) {
	if len(lines) == 0 {
		return nil, apperrors.InvalidInput("an order needs at least one item")
	}
	merged := make([]domain.OrderLineInput, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, l := range lines {
		if l.Quantity < 1 {
			return nil, apperrors.InvalidInput("quantity must be at least 1")
		}
		i, ok := index[l.ProductID]
		if !ok {
			i = len(merged)
			index[l.ProductID] = i
			merged = append(merged, domain.OrderLineInput{ProductID: l.ProductID})
		}
		if l.Quantity > MaxCartQuantity-merged[i].Quantity {
			return nil, apperrors.InvalidInput(fmt.Sprintf("quantity of product %s cannot exceed %d", l.ProductID, MaxCartQuantity))
		}
		merged[i].Quantity += l.Quantity
	}
	return merged, nil
}
