package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/proyectos-la/digital-world/internal/domain"
	"github.com/proyectos-la/digital-world/pkg/httputil"
	"github.com/proyectos-la/digital-world/pkg/validator"
)

// CartHandler handles the signed-in user's cart and checkout.
type CartHandler struct {
	carts  CartManager
	orders OrderManager
	logger *slog.Logger
}

func NewCartHandler(carts CartManager, orders OrderManager, logger *slog.Logger) *CartHandler {
	return &CartHandler{carts: carts, orders: orders, logger: logger}
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.Get(r.Context(), requester(r).UserID)
	h.writeCart(w, r, cart, err)
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var input domain.CartItemInput
	if err := validator.DecodeAndValidate(r, &input); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, err := h.carts.AddItem(r.Context(), requester(r).UserID, &input)
	h.writeCart(w, r, cart, err)
}

// UpdateItem handles PATCH /api/v1/cart/items/{productID}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "productID"))
	if !ok {
		return
	}

	var input domain.UpdateCartItemInput
	if err := validator.DecodeAndValidate(r, &input); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, err := h.carts.UpdateItem(r.Context(), requester(r).UserID, productID, input.Quantity)
	h.writeCart(w, r, cart, err)
}

// RemoveItem handles DELETE /api/v1/cart/items/{productID}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "productID"))
	if !ok {
		return
	}

	cart, err := h.carts.RemoveItem(r.Context(), requester(r).UserID, productID)
	h.writeCart(w, r, cart, err)
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), requester(r).UserID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Checkout handles POST /api/v1/cart/checkout
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var details domain.DeliveryDetails
	if err := validator.DecodeAndValidate(r, &details); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	order, err := h.orders.Checkout(r.Context(), requester(r).UserID, &details)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: order})
}

func (h *CartHandler) writeCart(w http.ResponseWriter, r *http.Request, cart *domain.CartView, err error) {
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart})
}
