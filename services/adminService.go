package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Kariqs/sweet-shop/apperror"
	"github.com/Kariqs/sweet-shop/logger"
	"github.com/Kariqs/sweet-shop/metrics"
	"github.com/Kariqs/sweet-shop/models"
	"github.com/Kariqs/sweet-shop/storage"
	"github.com/Kariqs/sweet-shop/utils"
	"github.com/gabriel-vasile/mimetype"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const sniffLen = 512

// ProductFields is the admin form as submitted. Stock stays loosely typed
// because forms send it as text and JSON clients as a number.
type ProductFields struct {
	Name        string
	Description string
	Price       string
	Category    string
	ImageURL    string
	Stock       any
}

type validProduct struct {
	name        string
	description string
	price       decimal.Decimal
	category    string
	imageURL    string
	stock       int
}

func (f ProductFields) validate() (*validProduct, error) {
	p := &validProduct{
		name:        strings.TrimSpace(f.Name),
		description: strings.TrimSpace(f.Description),
		category:    strings.ToLower(strings.TrimSpace(f.Category)),
		imageURL:    strings.TrimSpace(f.ImageURL),
		stock:       utils.CoerceInt(f.Stock),
	}
	if p.name == "" || p.description == "" || strings.TrimSpace(f.Price) == "" || p.category == "" {
		return nil, apperror.Validation("Name, description, price and category are required")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(f.Price))
	if err != nil {
		return nil, apperror.Validation("Price must be a valid number")
	}
	if price.IsNegative() {
		return nil, apperror.Validation("Price must not be negative")
	}
	p.price = price.Round(2)
	if !models.IsValidCategory(p.category) {
		return nil, apperror.Validation(fmt.Sprintf("Category must be one of %s", strings.Join(models.Categories, ", ")))
	}
	if p.stock < 0 {
		return nil, apperror.Validation("Stock must not be negative")
	}
	return p, nil
}

// ImageUpload is an optional file part of the admin form.
type ImageUpload struct {
	Filename string
	Size     int64
	Body     io.Reader
}

type AdminService struct {
	db       *gorm.DB
	catalog  *CatalogService
	images   storage.ImageStore
	maxBytes int64
	metrics  *metrics.Metrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewAdminService(db *gorm.DB, images storage.ImageStore, maxBytes int64, m *metrics.Metrics, logg *logger.Logger) *AdminService {
	if logg == nil {
		logg = logger.Nop()
	}
	return &AdminService{
		db:       db,
		catalog:  NewCatalogService(db),
		images:   images,
		maxBytes: maxBytes,
		metrics:  m,
		logg:     logg,
		now:      time.Now,
	}
}

func (a *AdminService) ListAllProducts(ctx context.Context) ([]models.Sweet, error) {
	return a.catalog.ListProducts(ctx)
}

// uploadImage stores the image and returns its public URL. The content type
// is sniffed from the bytes, not taken from the client.
func (a *AdminService) uploadImage(ctx context.Context, img *ImageUpload) (string, error) {
	if img.Size > a.maxBytes {
		return "", apperror.Validation(fmt.Sprintf("Image must be %d MB or smaller", a.maxBytes>>20))
	}
	limited := io.LimitReader(img.Body, a.maxBytes+1)
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(limited, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", apperror.Validation("Unable to read image")
	}
	head = head[:n]
	if n == 0 {
		return "", apperror.Validation("Image is empty")
	}
	detected := mimetype.Detect(head)
	if !strings.HasPrefix(detected.String(), "image/") {
		return "", apperror.Validation("File must be an image")
	}

	name, err := utils.ImageObjectName(img.Filename, detected.String(), a.now())
	if err != nil {
		return "", apperror.Internal(err, "failed to name image")
	}
	body := io.MultiReader(bytes.NewReader(head), limited)
	url, err := a.images.Upload(ctx, name, detected.String(), body)
	if err != nil {
		a.metrics.IncUpload(false)
		a.logg.Error(a.logg.WithField(ctx, "object", name), "admin.image_upload_failed", err)
		return "", apperror.Provider(err)
	}
	a.metrics.IncUpload(true)
	return url, nil
}

// CreateProduct uploads the image first; nothing is written when it fails.
func (a *AdminService) CreateProduct(ctx context.Context, fields ProductFields, img *ImageUpload) (*models.Sweet, error) {
	p, err := fields.validate()
	if err != nil {
		return nil, err
	}
	imageURL := p.imageURL
	if img != nil {
		if imageURL, err = a.uploadImage(ctx, img); err != nil {
			return nil, err
		}
	}

	sweet := models.Sweet{
		Name:        p.name,
		Description: p.description,
		Price:       p.price,
		Category:    p.category,
		ImageURL:    imageURL,
		Stock:       p.stock,
	}
	if err := a.db.WithContext(ctx).Create(&sweet).Error; err != nil {
		return nil, apperror.Internal(err, "failed to create sweet")
	}
	a.logg.Info(a.logg.WithField(ctx, "sweet_id", sweet.ID), "admin.sweet_created")
	return &sweet, nil
}

// UpdateProduct replaces every field. Without a new image the submitted
// reference is kept, and an empty one keeps what is stored.
func (a *AdminService) UpdateProduct(ctx context.Context, id string, fields ProductFields, img *ImageUpload) (*models.Sweet, error) {
	sweet, err := a.catalog.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := fields.validate()
	if err != nil {
		return nil, err
	}

	imageURL := sweet.ImageURL
	switch {
	case img != nil:
		if imageURL, err = a.uploadImage(ctx, img); err != nil {
			return nil, err
		}
	case p.imageURL != "":
		imageURL = p.imageURL
	}

	result := a.db.WithContext(ctx).Model(&models.Sweet{}).
		Where("id = ?", sweet.ID).
		Updates(map[string]any{
			"name":        p.name,
			"description": p.description,
			"price":       p.price,
			"category":    p.category,
			"image_url":   imageURL,
			"stock":       p.stock,
			"updated_at":  a.now(),
		})
	if result.Error != nil {
		return nil, apperror.Internal(result.Error, "failed to update sweet")
	}
	// Deleted since the read above.
	if result.RowsAffected == 0 {
		return nil, apperror.NotFound(msgSweetNotFound)
	}
	a.logg.Info(a.logg.WithField(ctx, "sweet_id", sweet.ID), "admin.sweet_updated")
	return a.catalog.GetProduct(ctx, sweet.ID)
}

// DeleteProduct removes the row only; the stored image is left in place.
func (a *AdminService) DeleteProduct(ctx context.Context, id string) error {
	result := a.db.WithContext(ctx).Delete(&models.Sweet{}, "id = ?", id)
	if result.Error != nil {
		return apperror.Internal(result.Error, "failed to delete sweet")
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound(msgSweetNotFound)
	}
	a.logg.Info(a.logg.WithField(ctx, "sweet_id", id), "admin.sweet_deleted")
	return nil
}
