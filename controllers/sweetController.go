package controllers

import (
	"net/http"

	"github.com/Kariqs/sweet-shop/logger"
	"github.com/Kariqs/sweet-shop/services"
	"github.com/gin-gonic/gin"
)

type SweetController struct {
	catalog   *services.CatalogService
	purchases *services.PurchaseService
	logg      *logger.Logger
}

func NewSweetController(catalog *services.CatalogService, purchases *services.PurchaseService, logg *logger.Logger) *SweetController {
	if logg == nil {
		logg = logger.Nop()
	}
	return &SweetController{catalog: catalog, purchases: purchases, logg: logg}
}

func (s *SweetController) GetSweets(ctx *gin.Context) {
	sweets, err := s.catalog.ListProducts(ctx.Request.Context())
	if err != nil {
		respondWithError(ctx, s.logg, err)
		return
	}
	ctx.JSON(http.StatusOK, toSweetResponses(sweets))
}

func (s *SweetController) PurchaseSweet(ctx *gin.Context) {
	sweet, err := s.purchases.Purchase(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		respondWithError(ctx, s.logg, err)
		return
	}
	ctx.JSON(http.StatusOK, toSweetResponse(*sweet))
}
