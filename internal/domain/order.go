package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses. Only pending orders may change status.
const (
	OrderStatusPending   = "pending"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// Payment methods.
const (
	PaymentCard     = "card"
	PaymentCash     = "cash"
	PaymentTransfer = "transfer"
)

// Order is a purchase with the buyer's delivery details.
type Order struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Name          string          `json:"name"`
	PhoneNumber   string          `json:"phone_number"`
	DNI           string          `json:"dni"`
	Street        string          `json:"street"`
	StreetNumber  string          `json:"street_number"`
	OrderDate     time.Time       `json:"order_date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod string          `json:"payment_method"`
	Comment       *string         `json:"comment,omitempty"`
	Status        string          `json:"status"`
	Items         []OrderItem     `json:"items"`
}

// OrderItem is one order line. Price is the unit price when the order was placed.
type OrderItem struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// LineTotal is Price × Quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CanTransition reports whether an order in status from may move to to.
func CanTransition(from, to string) bool {
	return from == OrderStatusPending && (to == OrderStatusDelivered || to == OrderStatusCancelled)
}

func IsValidPaymentMethod(m string) bool {
	return slices.Contains([]string{PaymentCard, PaymentCash, PaymentTransfer}, m)
}

// DeliveryDetails are the contact and payment fields shared by order creation and checkout.
type DeliveryDetails struct {
	Name          string  `json:"name" validate:"required,max=200"`
	PhoneNumber   string  `json:"phone_number" validate:"required,max=20"`
	DNI           string  `json:"dni" validate:"required,max=20"`
	Street        string  `json:"street" validate:"required,max=200"`
	StreetNumber  string  `json:"street_number" validate:"required,max=20"`
	PaymentMethod string  `json:"payment_method" validate:"required,oneof=card cash transfer"`
	Comment       *string `json:"comment" validate:"omitempty,max=1000"`
}

// OrderLineInput asks for Quantity units of a product.
type OrderLineInput struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gte=1,lte=99"`
}

type CreateOrderInput struct {
	DeliveryDetails
	Items []OrderLineInput `json:"items" validate:"required,min=1,dive"`
}

type UpdateOrderStatusInput struct {
	Status string `json:"status" validate:"required,oneof=delivered cancelled"`
}
