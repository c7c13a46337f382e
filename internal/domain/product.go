package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/proyectos-la/digital-world/internal/pricing"
)

// Product is a catalog item as stored.
type Product struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Slug               string           `json:"slug"`
	Description        string           `json:"description"`
	Price              decimal.Decimal  `json:"price"`
	CategoryID         string           `json:"category"`
	BrandID            *string          `json:"brand"`
	IsOnSale           bool             `json:"is_on_sale"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// Effective returns the price a customer pays today.
func (p *Product) Effective() decimal.Decimal {
	return pricing.EffectivePrice(p.Price, p.IsOnSale, p.DiscountPercentage)
}

// ProductImage is one picture of a product. StorageKey addresses the object
// in image storage and never leaves the server.
type ProductImage struct {
	ID         string    `json:"id"`
	ProductID  string    `json:"product_id"`
	URL        string    `json:"url"`
	StorageKey string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// ProductSummary is a product with the aggregates the catalog pipeline sorts on.
type ProductSummary struct {
	Product
	BrandName     *string
	AverageRating float64
	RatingCount   int
	TotalSold     int
}

// RatingSummary aggregates the ratings left in a product's comments.
type RatingSummary struct {
	AverageRating float64 `json:"average_rating"`
	RatingCount   int     `json:"rating_count"`
}

// Money is an amount rendered with exactly two fractional digits.
type Money struct {
	decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.StringFixed(2) + `"`), nil
}

// Column limits of products.price NUMERIC(10,2) and
// products.discount_percentage NUMERIC(5,0).
var (
	priceLimit    = decimal.New(1, 8)
	discountLimit = decimal.New(1, 5)
)

// NormalizePrice rounds a price to cents. ok is false when the result is
// negative or does not fit the price column.
func NormalizePrice(price decimal.Decimal) (decimal.Decimal, bool) {
	price = price.Round(2)
	return price, !price.IsNegative() && price.LessThan(priceLimit)
}

// NormalizeDiscount rounds a discount percentage to a whole number, half away
// from zero as the column does. Any sign is kept; ok is false when the result
// does not fit the column.
func NormalizeDiscount(pct decimal.Decimal) (decimal.Decimal, bool) {
	pct = pct.Round(0)
	return pct, pct.Abs().LessThan(discountLimit)
}

// ProductView is the public representation of a product.
type ProductView struct {
	Product
	Category       *Category      `json:"category_detail,omitempty"`
	Brand          *Brand         `json:"brand_detail,omitempty"`
	Images         []ProductImage `json:"images"`
	EffectivePrice Money          `json:"effective_price"`
	AverageRating  float64        `json:"average_rating"`
	RatingCount    int            `json:"rating_count"`
	TotalSold      int            `json:"total_sold"`
}

// CreateProductInput holds the fields of a new product. Images travel separately.
type CreateProductInput struct {
	Name               string           `json:"name" validate:"required,max=200"`
	Description        string           `json:"description" validate:"required"`
	Price              decimal.Decimal  `json:"price" validate:"decimal_gte0"`
	CategoryID         string           `json:"category" validate:"required,uuid"`
	BrandID            *string          `json:"brand" validate:"omitempty,uuid"`
	IsOnSale           bool             `json:"is_on_sale"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage"`
}

// UpdateProductInput is a partial update. ClearBrand and ClearDiscount set
// the nullable fields back to null.
type UpdateProductInput struct {
	Name               *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Description        *string          `json:"description" validate:"omitempty,min=1"`
	Price              *decimal.Decimal `json:"price" validate:"omitempty,decimal_gte0"`
	CategoryID         *string          `json:"category" validate:"omitempty,uuid"`
	BrandID            *string          `json:"brand" validate:"omitempty,uuid"`
	ClearBrand         bool             `json:"clear_brand"`
	IsOnSale           *bool            `json:"is_on_sale"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage"`
	ClearDiscount      bool             `json:"clear_discount"`
}
