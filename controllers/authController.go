package controllers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/Kariqs/sweet-shop/apperror"
	"github.com/Kariqs/sweet-shop/config"
	"github.com/Kariqs/sweet-shop/logger"
	"github.com/Kariqs/sweet-shop/middlewares"
	"github.com/Kariqs/sweet-shop/models"
	"github.com/Kariqs/sweet-shop/services"
	"github.com/Kariqs/sweet-shop/utils"
	"github.com/gin-gonic/gin"
)

const (
	oauthStateCookie = "sweetshop_oauth_state"
	oauthStateMaxAge = 600

	linkErrorDescription = "Email link is invalid or has expired"
)

type AuthController struct {
	auth   *services.AuthService
	google *services.GoogleAuth
	app    config.AppConfig
	logg   *logger.Logger
}

func NewAuthController(auth *services.AuthService, google *services.GoogleAuth, app config.AppConfig, logg *logger.Logger) *AuthController {
	if logg == nil {
		logg = logger.Nop()
	}
	return &AuthController{auth: auth, google: google, app: app, logg: logg}
}

type userResponse struct {
	User    models.User     `json:"user"`
	Profile *models.Profile `json:"profile"`
}

type sessionResponse struct {
	userResponse
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

func (a *AuthController) frontendURL(path string, query url.Values) string {
	target := strings.TrimRight(a.app.FrontendURL, "/") + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}

func (a *AuthController) startSession(ctx *gin.Context, session *services.Session) {
	setSessionCookie(ctx, session.Token, session.ExpiresAt, a.app.IsProd())
}

func (a *AuthController) Login(ctx *gin.Context) {
	var loginData models.LoginData
	if err := ctx.ShouldBindJSON(&loginData); err != nil {
		respondWithError(ctx, a.logg, bindError(err))
		return
	}

	session, err := a.auth.SignIn(ctx.Request.Context(), loginData.Email, loginData.Password)
	if err != nil {
		respondWithError(ctx, a.logg, err)
		return
	}

	a.startSession(ctx, session)
	profile := session.Profile
	ctx.JSON(http.StatusOK, sessionResponse{
		userResponse: userResponse{User: session.User, Profile: &profile},
		Token:        session.Token,
		ExpiresAt:    session.ExpiresAt.Unix(),
	})
}

func (a *AuthController) Register(ctx *gin.Context) {
	var signUpData models.SignUpData
	if err := ctx.ShouldBindJSON(&signUpData); err != nil {
		respondWithError(ctx, a.logg, bindError(err))
		return
	}

	user, err := a.auth.SignUp(ctx.Request.Context(), services.SignUpInput{
		Email:    signUpData.Email,
		Password: signUpData.Password,
		FullName: signUpData.FullName,
	})
	if err != nil {
		respondWithError(ctx, a.logg, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"message": msgUserCreated, "user": user})
}

func (a *AuthController) ForgotPassword(ctx *gin.Context) {
	var body struct {
		Email string `json:"email" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&body); err != nil {
		respondWithError(ctx, a.logg, bindError(err))
		return
	}

	if err := a.auth.RequestPasswordReset(ctx.Request.Context(), body.Email); err != nil {
		respondWithError(ctx, a.logg, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": msgResetLinkSent})
}

// RecoveryCallback is where emailed reset links land. A valid link becomes a
// recovery session and a redirect to the reset form.
func (a *AuthController) RecoveryCallback(ctx *gin.Context) {
	failure := a.frontendURL("/reset-password", url.Values{
		"error":             {"access_denied"},
		"error_description": {linkErrorDescription},
	})
	if ctx.Query("type") != "recovery" {
		ctx.Redirect(http.StatusSeeOther, failure)
		return
	}

	session, err := a.auth.ExchangeRecoveryToken(ctx.Request.Context(), ctx.Query("token"))
	if err != nil {
		if !apperror.HasCode(err, apperror.CodeAuth) {
			a.logg.Error(ctx.Request.Context(), "auth.recovery_exchange_failed", err)
		}
		ctx.Redirect(http.StatusSeeOther, failure)
		return
	}

	a.startSession(ctx, session)
	ctx.Redirect(http.StatusSeeOther, a.frontendURL("/reset-password", nil))
}

func (a *AuthController) UpdatePassword(ctx *gin.Context) {
	var body struct {
		Password string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&body); err != nil {
		respondWithError(ctx, a.logg, bindError(err))
		return
	}

	if err := a.auth.UpdatePassword(ctx.Request.Context(), middlewares.SessionToken(ctx), body.Password); err != nil {
		respondWithError(ctx, a.logg, err)
		return
	}

	clearSessionCookie(ctx, a.app.IsProd())
	ctx.JSON(http.StatusOK, gin.H{"message": msgPasswordUpdated})
}

func (a *AuthController) VerifyEmail(ctx *gin.Context) {
	var body struct {
		Token string `json:"token"`
		Type  string `json:"type"`
	}
	if err := ctx.ShouldBindJSON(&body); err != nil {
		respondWithError(ctx, a.logg, bindError(err))
		return
	}

	if err := a.auth.VerifyEmail(ctx.Request.Context(), body.Token, body.Type); err != nil {
		respondWithError(ctx, a.logg, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": msgActivationSuccess})
}

func (a *AuthController) Logout(ctx *gin.Context) {
	if err := a.auth.SignOut(ctx.Request.Context(), middlewares.SessionToken(ctx)); err != nil {
		respondWithError(ctx, a.logg, err)
		return
	}
	clearSessionCookie(ctx, a.app.IsProd())
	ctx.JSON(http.StatusOK, gin.H{"message": msgSignedOut})
}

// Session reports the signed-in user, or nulls when there is none.
func (a *AuthController) Session(ctx *gin.Context) {
	identity, err := a.auth.CurrentUser(ctx.Request.Context(), middlewares.SessionToken(ctx))
	if err != nil {
		if apperror.HasCode(err, apperror.CodeAuth) {
			ctx.JSON(http.StatusOK, gin.H{"user": nil, "profile": nil})
			return
		}
		respondWithError(ctx, a.logg, err)
		return
	}
	ctx.JSON(http.StatusOK, userResponse{User: identity.User, Profile: identity.Profile})
}

func (a *AuthController) AdminSetup(ctx *gin.Context) {
	var signUpData models.SignUpData
	if err := ctx.ShouldBindJSON(&signUpData); err != nil {
		respondWithError(ctx, a.logg, bindError(err))
		return
	}

	user, err := a.auth.BootstrapAdmin(ctx.Request.Context(), services.SignUpInput{
		Email:    signUpData.Email,
		Password: signUpData.Password,
		FullName: signUpData.FullName,
	})
	if err != nil {
		respondWithError(ctx, a.logg, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"message": msgAdminCreated, "user": user})
}

func (a *AuthController) GoogleLogin(ctx *gin.Context) {
	if a.google == nil {
		respondWithError(ctx, a.logg, apperror.NotFound("Google sign-in is not configured"))
		return
	}
	state, err := utils.GenerateCode(16)
	if err != nil {
		respondWithError(ctx, a.logg, apperror.Internal(err, "failed to generate oauth state"))
		return
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(oauthStateCookie, state, oauthStateMaxAge, "/", "", a.app.IsProd(), true)
	ctx.Redirect(http.StatusFound, a.google.AuthCodeURL(state))
}

func (a *AuthController) GoogleCallback(ctx *gin.Context) {
	fail := func(description string) {
		ctx.Redirect(http.StatusSeeOther, a.frontendURL("/login", url.Values{
			"error":             {"access_denied"},
			"error_description": {description},
		}))
	}
	if a.google == nil {
		fail("Google sign-in is not configured")
		return
	}

	expected, err := ctx.Cookie(oauthStateCookie)
	ctx.SetCookie(oauthStateCookie, "", -1, "/", "", a.app.IsProd(), true)
	if err != nil || expected == "" || ctx.Query("state") != expected {
		fail("Invalid OAuth state")
		return
	}

	reqCtx := ctx.Request.Context()
	googleUser, err := a.google.Exchange(reqCtx, ctx.Query("code"))
	if err != nil {
		a.logg.Error(reqCtx, "auth.google_exchange_failed", err)
		fail(apperror.From(err).PublicMessage())
		return
	}
	session, err := a.auth.SignInWithGoogle(reqCtx, *googleUser)
	if err != nil {
		a.logg.Error(reqCtx, "auth.google_signin_failed", err)
		fail(apperror.From(err).PublicMessage())
		return
	}

	a.startSession(ctx, session)
	ctx.Redirect(http.StatusSeeOther, a.frontendURL("/dashboard", nil))
}
