package services

import (
	"context"
	"errors"

	"github.com/Kariqs/sweet-shop/apperror"
	"github.com/Kariqs/sweet-shop/models"
	"gorm.io/gorm"
)

const msgSweetNotFound = "Sweet not found"

type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// ListProducts returns every sweet, oldest first.
func (c *CatalogService) ListProducts(ctx context.Context) ([]models.Sweet, error) {
	sweets := []models.Sweet{}
	if err := c.db.WithContext(ctx).Order("created_at ASC").Order("name ASC").Find(&sweets).Error; err != nil {
		return nil, apperror.Internal(err, "failed to fetch sweets")
	}
	return sweets, nil
}

func (c *CatalogService) GetProduct(ctx context.Context, id string) (*models.Sweet, error) {
	var sweet models.Sweet
	if err := c.db.WithContext(ctx).First(&sweet, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound(msgSweetNotFound)
		}
		return nil, apperror.Internal(err, "failed to fetch sweet")
	}
	return &sweet, nil
}
