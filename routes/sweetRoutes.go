package routes

import (
	"github.com/Kariqs/sweet-shop/controllers"
	"github.com/Kariqs/sweet-shop/logger"
	"github.com/Kariqs/sweet-shop/middlewares"
	"github.com/gin-gonic/gin"
)

func SweetRoutes(api *gin.RouterGroup, sweets *controllers.SweetController, auth middlewares.Authenticator, logg *logger.Logger) {
	api.GET("/sweets", sweets.GetSweets)
	api.POST("/sweets/:id/purchase", middlewares.RequireSession(auth, logg), sweets.PurchaseSweet)
}
