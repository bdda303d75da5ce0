package routes

import (
	"github.com/Kariqs/sweet-shop/controllers"
	"github.com/Kariqs/sweet-shop/logger"
	"github.com/Kariqs/sweet-shop/middlewares"
	"github.com/Kariqs/sweet-shop/models"
	"github.com/gin-gonic/gin"
)

func AdminRoutes(api *gin.RouterGroup, admin *controllers.AdminController, setup *controllers.AuthController, auth middlewares.Authenticator, logg *logger.Logger) {
	group := api.Group("/admin")
	group.POST("/setup", setup.AdminSetup)

	products := group.Group("/products", middlewares.RequireRole(auth, models.RoleAdmin, logg))
	{
		products.GET("", admin.GetProducts)
		products.POST("", admin.CreateProduct)
		products.PUT("/:id", admin.UpdateProduct)
		products.DELETE("/:id", admin.DeleteProduct)
	}
}
