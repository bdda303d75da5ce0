package middlewares

import (
	"context"
	"fmt"
	"strings"

	"github.com/Kariqs/sweet-shop/apperror"
	"github.com/Kariqs/sweet-shop/logger"
	"github.com/Kariqs/sweet-shop/services"
	"github.com/gin-gonic/gin"
)

const (
	SessionCookie = "sweetshop_session"
	identityKey   = "identity"
)

// Authenticator resolves a session token to the caller behind it.
type Authenticator interface {
	CurrentUser(ctx context.Context, token string) (*services.Identity, error)
}

// SessionToken reads the bearer token, falling back to the session cookie.
func SessionToken(ctx *gin.Context) string {
	if header := ctx.GetHeader("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := ctx.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}

// CurrentIdentity returns the caller stored by RequireSession or RequireRole.
func CurrentIdentity(ctx *gin.Context) *services.Identity {
	if v, ok := ctx.Get(identityKey); ok {
		if identity, ok := v.(*services.Identity); ok {
			return identity
		}
	}
	return nil
}

func resolve(ctx *gin.Context, auth Authenticator, logg *logger.Logger) (*services.Identity, bool) {
	identity, err := auth.CurrentUser(ctx.Request.Context(), SessionToken(ctx))
	if err != nil {
		WriteError(ctx, logg, err)
		return nil, false
	}
	ctx.Set(identityKey, identity)
	ctx.Request = ctx.Request.WithContext(logg.WithUserID(ctx.Request.Context(), identity.User.ID))
	return identity, true
}

// RequireSession admits any signed-in user.
func RequireSession(auth Authenticator, logg *logger.Logger) gin.HandlerFunc {
	if logg == nil {
		logg = logger.Nop()
	}
	return func(ctx *gin.Context) {
		if _, ok := resolve(ctx, auth, logg); !ok {
			return
		}
		ctx.Next()
	}
}

// RequireRole admits signed-in users whose profile carries role. The role is
// read from the profile, never from the token.
func RequireRole(auth Authenticator, role string, logg *logger.Logger) gin.HandlerFunc {
	if logg == nil {
		logg = logger.Nop()
	}
	return func(ctx *gin.Context) {
		identity, ok := resolve(ctx, auth, logg)
		if !ok {
			return
		}
		switch services.CheckRole(identity, role) {
		case services.Authorized:
			ctx.Next()
		case services.Unauthorized:
			WriteError(ctx, logg, apperror.Forbidden(fmt.Sprintf("%s access required", role)))
		default:
			WriteError(ctx, logg, apperror.Auth("Authentication required"))
		}
	}
}
