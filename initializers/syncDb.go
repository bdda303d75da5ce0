package initializers

import (
	"fmt"

	"github.com/Kariqs/sweet-shop/models"
	"gorm.io/gorm"
)

func SyncDatabase(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Profile{}, &models.AdminSeat{}, &models.Sweet{}); err != nil {
		return fmt.Errorf("auto-migrating schema: %w", err)
	}
	return nil
}
