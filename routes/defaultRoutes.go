package routes

import (
	"github.com/Kariqs/sweet-shop/controllers"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func DefaultRoutes(server *gin.Engine, home *controllers.DefaultController, gatherer prometheus.Gatherer) {
	server.GET("/", home.GetHome)
	server.GET("/healthz", home.Healthz)
	if gatherer != nil {
		server.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
}
