package models

import (
	"time"
)

// Product is a catalog entry. Order items reference products by id only;
// deleting a product never cascades to historical orders.
type Product struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Name      string    `db:"name" json:"name"`
	Category  string    `db:"category" json:"category,omitempty"`
	Price     float64   `db:"price" json:"price"`
	ImageURL  string    `db:"image_url" json:"image_url,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NewProduct creates a catalog entry.
func NewProduct(code, name, category string, price float64, imageURL string) *Product {
	now := GetCurrentTime()

	return &Product{
		ID:        GenerateID("prd"),
		Code:      code,
		Name:      name,
		Category:  category,
		Price:     price,
		ImageURL:  imageURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
