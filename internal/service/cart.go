package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/proyectos-la/digital-world/internal/domain"
	"github.com/proyectos-la/digital-world/internal/repository"
	apperrors "github.com/proyectos-la/digital-world/pkg/errors"
)

// MaxCartQuantity caps the units of one product in a cart.
const MaxCartQuantity = 99

// CartService manages the Redis-backed shopping cart.
type CartService struct {
	carts  repository.CartRepository
	loader *productLoader
	logger *slog.Logger
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository, cache repository.ProductCache, logger *slog.Logger) *CartService {
	return &CartService{
		carts:  carts,
		loader: &productLoader{repo: products, cache: cache, logger: logger},
		logger: logger,
	}
}

// Get returns the user's cart priced at current effective prices.
func (s *CartService) Get(ctx context.Context, userID string) (*domain.CartView, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return s.price(ctx, cart)
}

// AddItem adds quantity units of a product, merging with an existing line.
func (s *CartService) AddItem(ctx context.Context, userID string, input *domain.CartItemInput) (*domain.CartView, error) {
	if input.Quantity < 1 || input.Quantity > MaxCartQuantity {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must be between 1 and %d", MaxCartQuantity))
	}
	if _, err := s.loader.Get(ctx, input.ProductID); err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	cart.Add(input.ProductID, input.Quantity)
	for _, it := range cart.Items {
		if it.ProductID == input.ProductID && it.Quantity > MaxCartQuantity {
			return nil, apperrors.InvalidInput(fmt.Sprintf("at most %d units of a product fit in the cart", MaxCartQuantity))
		}
	}
	return s.save(ctx, cart)
}

// UpdateItem sets the quantity of a line. Zero removes it.
func (s *CartService) UpdateItem(ctx context.Context, userID, productID string, quantity int) (*domain.CartView, error) {
	if quantity < 0 || quantity > MaxCartQuantity {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must be between 0 and %d", MaxCartQuantity))
	}
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if !cart.Set(productID, quantity) {
		return nil, apperrors.NotFound("cart item", productID)
	}
	return s.save(ctx, cart)
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*domain.CartView, error) {
	return s.UpdateItem(ctx, userID, productID, 0)
}

func (s *CartService) Clear(ctx context.Context, userID string) error {
	if err := s.carts.Delete(ctx, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (s *CartService) save(ctx context.Context, cart *domain.Cart) (*domain.CartView, error) {
	cart.UpdatedAt = now()
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return s.price(ctx, cart)
}

// price resolves every line against the catalog. Lines whose product has
// since been deleted are left out.
func (s *CartService) price(ctx context.Context, cart *domain.Cart) (*domain.CartView, error) {
	view := &domain.CartView{
		UserID:    cart.UserID,
		Items:     make([]domain.CartLine, 0, len(cart.Items)),
		Subtotal:  decimal.Zero,
		UpdatedAt: cart.UpdatedAt,
	}
	if len(cart.Items) == 0 {
		return view, nil
	}

	ids := make([]string, 0, len(cart.Items))
	for _, it := range cart.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.loader.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load cart products: %w", err)
	}

	for _, it := range cart.Items {
		p, ok := products[it.ProductID]
		if !ok {
			s.logger.DebugContext(ctx, "dropping deleted product from cart view", slog.String("product_id", it.ProductID))
			continue
		}
		unit := p.Effective()
		line := domain.CartLine{
			ProductID: it.ProductID,
			Name:      p.Name,
			Quantity:  it.Quantity,
			UnitPrice: unit,
			LineTotal: unit.Mul(decimal.NewFromInt(int64(it.Quantity))),
		}
		view.Items = append(view.Items, line)
		view.Subtotal = view.Subtotal.Add(line.LineTotal)
	}
	return view, nil
}
