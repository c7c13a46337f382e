package domain

import "time"

// Rating bounds for product comments.
const (
	MinRating = 1
	MaxRating = 5
)

// Comment is left either on a product (with a rating) or on a free-form page.
// Exactly one of ProductID and PageID is set.
type Comment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProductID *string   `json:"product,omitempty"`
	PageID    *string   `json:"page_id,omitempty"`
	Text      string    `json:"text"`
	Rating    *int      `json:"rating,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateCommentInput struct {
	ProductID *string `json:"product" validate:"omitempty,uuid"`
	PageID    *string `json:"page_id" validate:"omitempty,max=100"`
	Text      string  `json:"text" validate:"max=2000"`
	Rating    *int    `json:"rating" validate:"omitempty,gte=1,lte=5"`
}

type UpdateCommentInput struct {
	Text   *string `json:"text" validate:"omitempty,max=2000"`
	Rating *int    `json:"rating" validate:"omitempty,gte=1,lte=5"`
}

// CommentFilter selects the comments of one product or one page.
type CommentFilter struct {
	ProductID *string
	PageID    *string
}
