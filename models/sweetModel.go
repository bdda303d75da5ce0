package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	CategoryCandy     = "candy"
	CategoryChocolate = "chocolate"
	CategoryCake      = "cake"
	CategoryCupcake   = "cupcake"
)

var Categories = []string{CategoryCandy, CategoryChocolate, CategoryCake, CategoryCupcake}

func IsValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Sweet is a catalog product. Stock is guarded by a CHECK constraint in
// addition to the conditional decrement used by purchases.
type Sweet struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	Name        string          `gorm:"size:255;not null" json:"name"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Category    string          `gorm:"size:20;not null;index" json:"category"`
	ImageURL    string          `gorm:"size:1024" json:"image_url"`
	Stock       int             `gorm:"not null;check:chk_sweets_stock,stock >= 0" json:"stock"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (s *Sweet) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func (s Sweet) InStock() bool {
	return s.Stock > 0
}
