package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type DefaultController struct {
	db *gorm.DB
}

func NewDefaultController(db *gorm.DB) *DefaultController {
	return &DefaultController{db: db}
}

func (d *DefaultController) GetHome(ctx *gin.Context) {
	message := `Welcome to the Sweet Shop API 🍬.

AUTH
- POST "/api/auth/register" - Create customer account
- POST "/api/auth/login" - Sign in
- POST "/api/auth/logout" - Sign out
- GET "/api/auth/session" - Current user and profile
- POST "/api/auth/verify-email" - Confirm email address
- POST "/api/auth/forgot-password" - Request password reset
- GET "/api/auth/callback" - Password reset link target
- POST "/api/auth/update-password" - Set a new password
- GET "/api/auth/google" - Sign in with Google

SWEETS
- GET "/api/sweets" - List sweets
- POST "/api/sweets/:id/purchase" - Buy one

ADMIN
- GET, POST "/api/admin/products" - List or create sweets
- PUT, DELETE "/api/admin/products/:id" - Update or delete a sweet
- POST "/api/admin/setup" - Create the first admin`

	ctx.JSON(http.StatusOK, gin.H{
		"message": message,
	})
}

// Healthz reports liveness along with database reachability.
func (d *DefaultController) Healthz(ctx *gin.Context) {
	sqlDB, err := d.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx.Request.Context())
	}
	if err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}
