package domain

import "time"

// Brand is a manufacturer. A brand with products cannot be deleted.
type Brand struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type BrandInput struct {
	Name string `json:"name" validate:"required,max=100"`
}
