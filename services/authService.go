package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Kariqs/sweet-shop/apperror"
	"github.com/Kariqs/sweet-shop/config"
	"github.com/Kariqs/sweet-shop/logger"
	"github.com/Kariqs/sweet-shop/models"
	"github.com/Kariqs/sweet-shop/utils"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	bcryptCost = 10

	MinPasswordLength = 6
	ResetTokenTTL     = 24 * time.Hour

	msgInvalidCredentials  = "Invalid login credentials"
	msgEmailNotConfirmed   = "Email not confirmed"
	msgUserAlreadyExists   = "User already registered"
	msgWeakPassword        = "Password must be at least 6 characters"
	msgInvalidEmail        = "Unable to validate email address: invalid format"
	msgFullNameRequired    = "Full name is required"
	msgMissingVerification = "Invalid or missing verification token"
	msgInvalidVerification = "Email link is invalid or has expired"
	msgInvalidResetLink    = "Email link is invalid or has expired"
	msgSessionRequired     = "Authentication required"
	msgSessionInvalid      = "Invalid or expired session"
	msgRecoveryRequired    = "Auth session missing!"
	msgAdminExists         = "An admin account already exists"
	msgGoogleEmailMissing  = "Google account has no verified email"
)

// Session is an established login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      models.User
	Profile   models.Profile
}

// Identity is the resolved caller of a request.
type Identity struct {
	Claims  *SessionClaims
	User    models.User
	Profile *models.Profile
}

type GuardResult int

const (
	Unauthenticated GuardResult = iota
	Unauthorized
	Authorized
)

func (g GuardResult) String() string {
	switch g {
	case Authorized:
		return "authorized"
	case Unauthorized:
		return "unauthorized"
	default:
		return "unauthenticated"
	}
}

// CheckRole is the single role guard shared by login and page-load paths.
func CheckRole(identity *Identity, role string) GuardResult {
	if identity == nil {
		return Unauthenticated
	}
	if identity.Profile == nil || identity.Profile.Role != role {
		return Unauthorized
	}
	return Authorized
}

type SignUpInput struct {
	Email    string
	Password string
	FullName string
}

type AuthService struct {
	db       *gorm.DB
	tokens   *TokenIssuer
	revoker  Revoker
	mailer   utils.Mailer
	app      config.AppConfig
	logg     *logger.Logger
	validate *validator.Validate
	now      func() time.Time
}

func NewAuthService(db *gorm.DB, tokens *TokenIssuer, revoker Revoker, mailer utils.Mailer, app config.AppConfig, logg *logger.Logger) *AuthService {
	if logg == nil {
		logg = logger.Nop()
	}
	return &AuthService{
		db:       db,
		tokens:   tokens,
		revoker:  revoker,
		mailer:   mailer,
		app:      app,
		logg:     logg,
		validate: validator.New(),
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) validateCredentials(email, password string) error {
	if err := s.validate.Var(email, "required,email"); err != nil {
		return apperror.Validation(msgInvalidEmail)
	}
	if len(password) < MinPasswordLength {
		return apperror.Validation(msgWeakPassword)
	}
	return nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// createAccount inserts the user and profile in one transaction. claim, when
// set, runs inside that transaction after both rows exist. The returned
// string is the plain verification token, empty for pre-verified accounts.
func (s *AuthService) createAccount(ctx context.Context, email, password, fullName, role string, verified bool, claim func(tx *gorm.DB, user *models.User) error) (*models.User, string, error) {
	hashed, err := hashPassword(password)
	if err != nil {
		return nil, "", apperror.Internal(err, "failed to hash password")
	}

	user := models.User{
		Email:         email,
		PasswordHash:  hashed,
		EmailVerified: verified,
		Provider:      models.ProviderEmail,
	}
	var verificationToken string
	if !verified {
		verificationToken, err = utils.GenerateCode(16)
		if err != nil {
			return nil, "", apperror.Internal(err, "failed to generate verification token")
		}
		user.VerificationTokenHash = utils.HashToken(verificationToken)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperror.Conflict(msgUserAlreadyExists)
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.Profile{ID: user.ID, FullName: fullName, Role: role}).Error; err != nil {
			return err
		}
		if claim != nil {
			return claim(tx, &user)
		}
		return nil
	})
	if err != nil {
		if typed := apperror.As(err); typed != nil {
			return nil, "", typed
		}
		return nil, "", apperror.Internal(err, "failed to create account")
	}
	return &user, verificationToken, nil
}

// SignUp creates a customer account and mails the verification link. It does
// not log the user in.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	fullName := strings.TrimSpace(in.FullName)
	if err := s.validateCredentials(email, in.Password); err != nil {
		return nil, err
	}
	if fullName == "" {
		return nil, apperror.Validation(msgFullNameRequired)
	}

	user, token, err := s.createAccount(ctx, email, in.Password, fullName, models.RoleCustomer, false, nil)
	if err != nil {
		return nil, err
	}

	link := fmt.Sprintf("%s/verify-email?token=%s&type=email", strings.TrimRight(s.app.FrontendURL, "/"), url.QueryEscape(token))
	err = s.mailer.Send(ctx, user.Email, "Confirm your Sweet Shop account", utils.TemplateVerifyEmail, utils.EmailData{
		Name:    fullName,
		Message: "Thank you for signing up! Click the button below to verify your account.",
		LinkURL: link,
	})
	if err != nil {
		s.logg.Error(s.logg.WithUserID(ctx, user.ID), "auth.verification_mail_failed", err)
	}
	return user, nil
}

func (s *AuthService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Auth(msgInvalidCredentials)
		}
		return nil, apperror.Internal(err, "failed to look up user")
	}
	if user.PasswordHash == "" {
		return nil, apperror.Auth(msgInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperror.Auth(msgInvalidCredentials)
	}
	if !user.EmailVerified {
		return nil, apperror.Auth(msgEmailNotConfirmed)
	}
	return s.openSession(ctx, user)
}

func (s *AuthService) openSession(ctx context.Context, user models.User) (*Session, error) {
	profile, err := s.Profile(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, apperror.Internal(fmt.Errorf("user %s has no profile", user.ID), "profile missing")
	}
	token, claims, err := s.tokens.Issue(user.ID, PurposeSession)
	if err != nil {
		return nil, apperror.Internal(err, "failed to generate token")
	}
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user, Profile: *profile}, nil
}

// SignOut revokes the token. An already invalid token is treated as signed out.
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return apperror.Provider(err)
	}
	return nil
}

// Authenticate validates a token of the given purpose.
func (s *AuthService) Authenticate(ctx context.Context, token, purpose string) (*SessionClaims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperror.Auth(msgSessionRequired)
	}
	claims, err := s.tokens.Parse(token)
	if err != nil || claims.Purpose != purpose {
		return nil, apperror.Auth(msgSessionInvalid)
	}
	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, apperror.Provider(err)
	}
	if revoked {
		return nil, apperror.Auth(msgSessionInvalid)
	}
	return claims, nil
}

// CurrentUser resolves a session token into the user and profile behind it.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*Identity, error) {
	claims, err := s.Authenticate(ctx, token, PurposeSession)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", claims.Subject).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Auth(msgSessionInvalid)
		}
		return nil, apperror.Internal(err, "failed to load user")
	}
	profile, err := s.Profile(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &Identity{Claims: claims, User: user, Profile: profile}, nil
}

// Profile returns nil without error when the user has no profile.
func (s *AuthService) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.WithContext(ctx).First(&profile, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperror.Internal(err, "failed to load profile")
	}
	return &profile, nil
}

// RequireRole resolves the caller and applies CheckRole. A missing or invalid
// session is reported as Unauthenticated rather than as an error.
func (s *AuthService) RequireRole(ctx context.Context, token, role string) (GuardResult, *Identity, error) {
	identity, err := s.CurrentUser(ctx, token)
	if err != nil {
		if apperror.HasCode(err, apperror.CodeAuth) {
			return Unauthenticated, nil, nil
		}
		return Unauthenticated, nil, err
	}
	return CheckRole(identity, role), identity, nil
}

// RequestPasswordReset answers the same way whether or not the address is
// registered.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return apperror.Validation(msgInvalidEmail)
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Debug(ctx, "auth.reset_unknown_email")
			return nil
		}
		return apperror.Internal(err, "failed to look up user")
	}

	token, err := utils.GenerateCode(16)
	if err != nil {
		return apperror.Internal(err, "failed to generate reset token")
	}
	expires := s.now().Add(ResetTokenTTL)
	err = s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"reset_token_hash":       utils.HashToken(token),
		"reset_token_expires_at": expires,
	}).Error
	if err != nil {
		return apperror.Internal(err, "unable to save reset token")
	}

	name := user.Email
	if profile, _ := s.Profile(ctx, user.ID); profile != nil && profile.FullName != "" {
		name = profile.FullName
	}
	link := fmt.Sprintf("%s/api/auth/callback?token=%s&type=recovery", strings.TrimRight(s.app.PublicURL, "/"), url.QueryEscape(token))
	err = s.mailer.Send(ctx, user.Email, "Reset your Sweet Shop password", utils.TemplateResetPassword, utils.EmailData{
		Name:    name,
		Message: "You requested a password reset. Click the button below to choose a new password.",
		LinkURL: link,
	})
	if err != nil {
		s.logg.Error(s.logg.WithUserID(ctx, user.ID), "auth.reset_mail_failed", err)
	}
	return nil
}

// ExchangeRecoveryToken turns an emailed reset token into a short-lived
// recovery session. Reset tokens are single use.
func (s *AuthService) ExchangeRecoveryToken(ctx context.Context, token string) (*Session, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperror.Auth(msgInvalidResetLink)
	}
	var user models.User
	err := s.db.WithContext(ctx).Where("reset_token_hash = ?", utils.HashToken(token)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Auth(msgInvalidResetLink)
		}
		return nil, apperror.Internal(err, "failed to look up reset token")
	}
	if user.ResetTokenExpiresAt == nil || !user.ResetTokenExpiresAt.After(s.now()) {
		return nil, apperror.Auth(msgInvalidResetLink)
	}

	err = s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"reset_token_hash":       "",
		"reset_token_expires_at": nil,
	}).Error
	if err != nil {
		return nil, apperror.Internal(err, "failed to consume reset token")
	}

	recovery, claims, err := s.tokens.Issue(user.ID, PurposeRecovery)
	if err != nil {
		return nil, apperror.Internal(err, "failed to generate token")
	}
	session := &Session{Token: recovery, ExpiresAt: claims.ExpiresAt.Time, User: user}
	if profile, _ := s.Profile(ctx, user.ID); profile != nil {
		session.Profile = *profile
	}
	return session, nil
}

// UpdatePassword changes the password of the user behind a recovery session.
// Weak passwords are rejected before the session is even looked at.
func (s *AuthService) UpdatePassword(ctx context.Context, recoveryToken, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return apperror.Validation(msgWeakPassword)
	}
	claims, err := s.Authenticate(ctx, recoveryToken, PurposeRecovery)
	if err != nil {
		if apperror.HasCode(err, apperror.CodeAuth) {
			return apperror.Auth(msgRecoveryRequired)
		}
		return err
	}

	hashed, err := hashPassword(newPassword)
	if err != nil {
		return apperror.Internal(err, "failed to hash password")
	}
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", claims.Subject).Update("password_hash", hashed)
	if result.Error != nil {
		return apperror.Internal(result.Error, "unable to reset password")
	}
	if result.RowsAffected == 0 {
		return apperror.Auth(msgRecoveryRequired)
	}

	if err := s.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		s.logg.Error(ctx, "auth.recovery_revoke_failed", err)
	}
	return nil
}

// VerifyEmail consumes a verification token. Only type "email" is accepted.
func (s *AuthService) VerifyEmail(ctx context.Context, token, tokenType string) error {
	if strings.TrimSpace(token) == "" || tokenType != "email" {
		return apperror.Validation(msgMissingVerification)
	}
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("verification_token_hash = ?", utils.HashToken(token)).
		Updates(map[string]any{
			"email_verified":          true,
			"verification_token_hash": "",
		})
	if result.Error != nil {
		return apperror.Internal(result.Error, "failed to verify email")
	}
	if result.RowsAffected == 0 {
		return apperror.Auth(msgInvalidVerification)
	}
	return nil
}

// BootstrapAdmin creates the first admin account. Once an admin exists the
// endpoint is closed.
func (s *AuthService) BootstrapAdmin(ctx context.Context, in SignUpInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	fullName := strings.TrimSpace(in.FullName)
	if err := s.validateCredentials(email, in.Password); err != nil {
		return nil, err
	}
	if fullName == "" {
		return nil, apperror.Validation(msgFullNameRequired)
	}

	var admins int64
	if err := s.db.WithContext(ctx).Model(&models.Profile{}).Where("role = ?", models.RoleAdmin).Count(&admins).Error; err != nil {
		return nil, apperror.Internal(err, "failed to count admins")
	}
	if admins > 0 {
		return nil, apperror.Conflict(msgAdminExists)
	}

	user, _, err := s.createAccount(ctx, email, in.Password, fullName, models.RoleAdmin, true, claimAdminSeat)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithUserID(ctx, user.ID), "auth.admin_bootstrapped")
	return user, nil
}

// claimAdminSeat makes the bootstrap one-shot under concurrency: the seat row
// has a fixed key, so a second transaction inserts nothing and backs out.
func claimAdminSeat(tx *gorm.DB, user *models.User) error {
	var admins int64
	if err := tx.Model(&models.Profile{}).Where("role = ? AND id <> ?", models.RoleAdmin, user.ID).Count(&admins).Error; err != nil {
		return err
	}
	if admins > 0 {
		return apperror.Conflict(msgAdminExists)
	}
	result := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.AdminSeat{Slot: models.AdminSeatSlot, UserID: user.ID})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperror.Conflict(msgAdminExists)
	}
	return nil
}

// SignInWithGoogle links or creates the account for a Google identity and
// opens a session for it.
func (s *AuthService) SignInWithGoogle(ctx context.Context, gu GoogleUser) (*Session, error) {
	email := normalizeEmail(gu.Email)
	if email == "" || !gu.EmailVerified {
		return nil, apperror.Auth(msgGoogleEmailMissing)
	}
	metadata, err := json.Marshal(gu)
	if err != nil {
		return nil, apperror.Internal(err, "failed to encode provider metadata")
	}

	var user models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ?", email).First(&user).Error
		switch {
		case err == nil:
			updates := map[string]any{
				"email_verified":    true,
				"provider_metadata": datatypes.JSON(metadata),
			}
			if user.EmailVerified {
				if err := tx.Model(&user).Updates(updates).Error; err != nil {
					return err
				}
				user.ProviderMetadata = datatypes.JSON(metadata)
				return nil
			}
			// Nobody proved ownership of this address before Google did, so
			// whatever was registered against it is discarded.
			updates["password_hash"] = ""
			updates["verification_token_hash"] = ""
			updates["reset_token_hash"] = ""
			updates["reset_token_expires_at"] = nil
			updates["provider"] = models.ProviderGoogle
			if err := tx.Model(&user).Updates(updates).Error; err != nil {
				return err
			}
			user.EmailVerified = true
			user.PasswordHash = ""
			user.VerificationTokenHash = ""
			user.ResetTokenHash = ""
			user.ResetTokenExpiresAt = nil
			user.Provider = models.ProviderGoogle
			user.ProviderMetadata = datatypes.JSON(metadata)
			return tx.Model(&models.Profile{}).Where("id = ?", user.ID).
				Update("full_name", strings.TrimSpace(gu.Name)).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = models.User{
				Email:            email,
				EmailVerified:    true,
				Provider:         models.ProviderGoogle,
				ProviderMetadata: datatypes.JSON(metadata),
			}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			return tx.Create(&models.Profile{ID: user.ID, FullName: strings.TrimSpace(gu.Name), Role: models.RoleCustomer}).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, apperror.Internal(err, "failed to link google account")
	}
	return s.openSession(ctx, user)
}
