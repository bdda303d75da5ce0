package services

import (
	"context"

	"github.com/Kariqs/sweet-shop/apperror"
	"github.com/Kariqs/sweet-shop/logger"
	"github.com/Kariqs/sweet-shop/metrics"
	"github.com/Kariqs/sweet-shop/models"
	"gorm.io/gorm"
)

const msgOutOfStock = "Out of stock"

type PurchaseService struct {
	db      *gorm.DB
	catalog *CatalogService
	metrics *metrics.Metrics
	logg    *logger.Logger
}

func NewPurchaseService(db *gorm.DB, m *metrics.Metrics, logg *logger.Logger) *PurchaseService {
	if logg == nil {
		logg = logger.Nop()
	}
	return &PurchaseService{db: db, catalog: NewCatalogService(db), metrics: m, logg: logg}
}

// Purchase takes one unit of stock. The decrement and the stock check are one
// statement, so concurrent buyers can never drive stock below zero.
func (p *PurchaseService) Purchase(ctx context.Context, sweetID string) (*models.Sweet, error) {
	result := p.db.WithContext(ctx).
		Model(&models.Sweet{}).
		Where("id = ? AND stock > 0", sweetID).
		UpdateColumn("stock", gorm.Expr("stock - ?", 1))
	if result.Error != nil {
		p.metrics.IncPurchase(metrics.PurchaseError)
		return nil, apperror.Internal(result.Error, "failed to purchase sweet")
	}

	sweet, err := p.catalog.GetProduct(ctx, sweetID)
	if result.RowsAffected == 0 {
		switch {
		case apperror.HasCode(err, apperror.CodeNotFound):
			p.metrics.IncPurchase(metrics.PurchaseNotFound)
			return nil, err
		case err != nil:
			p.metrics.IncPurchase(metrics.PurchaseError)
			return nil, err
		default:
			p.metrics.IncPurchase(metrics.PurchaseOutOfStock)
			return nil, apperror.OutOfStock(msgOutOfStock)
		}
	}
	if err != nil {
		p.metrics.IncPurchase(metrics.PurchaseError)
		return nil, err
	}

	p.metrics.IncPurchase(metrics.PurchaseOK)
	p.logg.Info(p.logg.WithFields(ctx, map[string]any{"sweet_id": sweet.ID, "stock": sweet.Stock}), "purchase.completed")
	return sweet, nil
}
