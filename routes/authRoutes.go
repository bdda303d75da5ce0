package routes

import (
	"github.com/Kariqs/sweet-shop/controllers"
	"github.com/gin-gonic/gin"
)

func AuthRoutes(api *gin.RouterGroup, auth *controllers.AuthController) {
	group := api.Group("/auth")
	{
		group.POST("/register", auth.Register)
		group.POST("/login", auth.Login)
		group.POST("/logout", auth.Logout)
		group.GET("/session", auth.Session)
		group.POST("/verify-email", auth.VerifyEmail)
		group.POST("/forgot-password", auth.ForgotPassword)
		group.GET("/callback", auth.RecoveryCallback)
		group.POST("/update-password", auth.UpdatePassword)
		group.GET("/google", auth.GoogleLogin)
		group.GET("/google/callback", auth.GoogleCallback)
	}
}
