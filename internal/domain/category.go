package domain

import "time"

// Category groups products. Deleting one deletes its products.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryInput is used for both create and rename.
type CategoryInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

// RecentWindow is how far back ListRecent looks for new products.
const RecentWindow = 30 * 24 * time.Hour
