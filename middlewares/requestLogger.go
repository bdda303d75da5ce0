package middlewares

import (
	"time"

	"github.com/Kariqs/sweet-shop/logger"
	"github.com/Kariqs/sweet-shop/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger tags the request context with a request id and logs the
// completed request.
func RequestLogger(logg *logger.Logger) gin.HandlerFunc {
	if logg == nil {
		logg = logger.Nop()
	}
	return func(ctx *gin.Context) {
		reqID := ctx.GetHeader(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx.Header(RequestIDHeader, reqID)
		ctx.Request = ctx.Request.WithContext(logg.WithRequestID(ctx.Request.Context(), reqID))

		start := time.Now()
		ctx.Next()

		reqCtx := logg.WithFields(ctx.Request.Context(), map[string]any{
			"method":      ctx.Request.Method,
			"path":        ctx.Request.URL.Path,
			"status":      ctx.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		logg.Info(reqCtx, "request.complete")
	}
}

// Metrics records request counts and latency by matched route.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		m.ObserveRequest(ctx.FullPath(), ctx.Request.Method, ctx.Writer.Status(), time.Since(start))
	}
}
