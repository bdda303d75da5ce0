package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Kariqs/sweet-shop/apperror"
	"github.com/Kariqs/sweet-shop/logger"
	"github.com/Kariqs/sweet-shop/middlewares"
	"github.com/Kariqs/sweet-shop/models"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	msgInvalidInput      = "invalid input"
	msgUserCreated       = "User created successfully. Check your email to activate your account."
	msgActivationSuccess = "Email verified successfully. You can now sign in."
	msgResetLinkSent     = "If an account exists for that email, a password reset link is on its way."
	msgPasswordUpdated   = "Password updated successfully"
	msgSignedOut         = "Signed out"
	msgAdminCreated      = "Admin account created. You can now sign in."
	msgSweetDeleted      = "Sweet deleted successfully"
)

func respondWithError(ctx *gin.Context, logg *logger.Logger, err error) {
	middlewares.WriteError(ctx, logg, err)
}

var registerOnce sync.Once

// RegisterValidators adds the custom binding tags to gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("sweetcategory", func(fl validator.FieldLevel) bool {
				return models.IsValidCategory(strings.ToLower(strings.TrimSpace(fl.Field().String())))
			})
		}
	})
}

// bindError turns a binding failure into a validation error naming the
// offending field.
func bindError(err error) *apperror.Error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperror.Validation(msgInvalidInput)
	}
	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return apperror.Validation(fmt.Sprintf("%s is required", field))
	case "email":
		return apperror.Validation("Unable to validate email address: invalid format")
	case "min":
		return apperror.Validation(fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
	case "sweetcategory":
		return apperror.Validation(fmt.Sprintf("Category must be one of %s", strings.Join(models.Categories, ", ")))
	default:
		return apperror.Validation(fmt.Sprintf("%s is invalid", field))
	}
}

type sweetResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	Category    string    `json:"category"`
	ImageURL    string    `json:"image_url"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toSweetResponse(s models.Sweet) sweetResponse {
	return sweetResponse{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Price:       s.Price.StringFixed(2),
		Category:    s.Category,
		ImageURL:    s.ImageURL,
		Stock:       s.Stock,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func toSweetResponses(sweets []models.Sweet) []sweetResponse {
	out := make([]sweetResponse, 0, len(sweets))
	for _, s := range sweets {
		out = append(out, toSweetResponse(s))
	}
	return out
}

func setSessionCookie(ctx *gin.Context, token string, expires time.Time, secure bool) {
	maxAge := int(time.Until(expires).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middlewares.SessionCookie, token, maxAge, "/", "", secure, true)
}

func clearSessionCookie(ctx *gin.Context, secure bool) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middlewares.SessionCookie, "", -1, "/", "", secure, true)
}
