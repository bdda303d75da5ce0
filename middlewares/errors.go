package middlewares

import (
	"net/http"

	"github.com/Kariqs/sweet-shop/apperror"
	"github.com/Kariqs/sweet-shop/logger"
	"github.com/gin-gonic/gin"
)

// WriteError renders err as {"error": message, "code": CODE} and aborts the
// chain. Server-side failures are logged with their cause.
func WriteError(ctx *gin.Context, logg *logger.Logger, err error) {
	typed := apperror.From(err)
	meta := apperror.MetadataFor(typed.Code())

	if logg != nil && (meta.HTTPStatus >= http.StatusInternalServerError) {
		reqCtx := logg.WithFields(ctx.Request.Context(), map[string]any{
			"error_code": string(typed.Code()),
			"path":       ctx.Request.URL.Path,
		})
		logg.Error(reqCtx, "request.error", err)
	}

	ctx.AbortWithStatusJSON(meta.HTTPStatus, gin.H{
		"error": typed.PublicMessage(),
		"code":  typed.Code(),
	})
}
