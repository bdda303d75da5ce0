package routes

import (
	"net/http"
	"time"

	"github.com/Kariqs/sweet-shop/config"
	"github.com/Kariqs/sweet-shop/controllers"
	"github.com/Kariqs/sweet-shop/logger"
	"github.com/Kariqs/sweet-shop/metrics"
	"github.com/Kariqs/sweet-shop/middlewares"
	"github.com/Kariqs/sweet-shop/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// Dependencies is everything the HTTP layer needs. Google and Gatherer are
// optional.
type Dependencies struct {
	DB        *gorm.DB
	App       config.AppConfig
	Uploads   config.UploadConfig
	Logger    *logger.Logger
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Auth      *services.AuthService
	Google    *services.GoogleAuth
	Catalog   *services.CatalogService
	Purchases *services.PurchaseService
	Admin     *services.AdminService
}

func NewRouter(deps Dependencies) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	controllers.RegisterValidators()

	server := gin.New()
	server.Use(gin.Recovery(), middlewares.RequestLogger(deps.Logger), middlewares.Metrics(deps.Metrics))
	if len(deps.App.AllowedOrigins) > 0 {
		server.Use(cors.New(cors.Config{
			AllowOrigins:     deps.App.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middlewares.RequestIDHeader},
			ExposeHeaders:    []string{"Content-Length", middlewares.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	auth := controllers.NewAuthController(deps.Auth, deps.Google, deps.App, deps.Logger)
	sweets := controllers.NewSweetController(deps.Catalog, deps.Purchases, deps.Logger)
	admin := controllers.NewAdminController(deps.Admin, deps.Uploads.MaxBytes, deps.Logger)

	DefaultRoutes(server, controllers.NewDefaultController(deps.DB), deps.Gatherer)
	api := server.Group("/api")
	AuthRoutes(api, auth)
	SweetRoutes(api, sweets, deps.Auth, deps.Logger)
	AdminRoutes(api, admin, auth, deps.Auth, deps.Logger)
	return server
}
