package services

import (
	"context"
	"fmt"

	"github.com/Kariqs/sweet-shop/apperror"
	"github.com/Kariqs/sweet-shop/config"
	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// GoogleUser holds the userinfo claims kept as provider metadata.
type GoogleUser struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture,omitempty"`
}

type GoogleAuth struct {
	oauth       *oauth2.Config
	http        *resty.Client
	userInfoURL string
}

type GoogleOption func(*GoogleAuth)

// WithGoogleEndpoints points the flow at another authorization server.
func WithGoogleEndpoints(endpoint oauth2.Endpoint, userInfoURL string) GoogleOption {
	return func(g *GoogleAuth) {
		g.oauth.Endpoint = endpoint
		g.userInfoURL = userInfoURL
	}
}

// NewGoogleAuth returns nil when Google sign-in is not configured.
func NewGoogleAuth(cfg config.GoogleConfig, opts ...GoogleOption) *GoogleAuth {
	if !cfg.Enabled() {
		return nil
	}
	g := &GoogleAuth{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoints.Google,
		},
		http:        resty.New(),
		userInfoURL: googleUserInfoURL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GoogleAuth) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for a token and fetches userinfo.
func (g *GoogleAuth) Exchange(ctx context.Context, code string) (*GoogleUser, error) {
	if code == "" {
		return nil, apperror.Validation("missing authorization code")
	}
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, apperror.Provider(fmt.Errorf("google token exchange: %w", err))
	}

	var user GoogleUser
	resp, err := g.http.R().
		SetContext(ctx).
		SetAuthToken(token.AccessToken).
		SetResult(&user).
		Get(g.userInfoURL)
	if err != nil {
		return nil, apperror.Provider(fmt.Errorf("google userinfo: %w", err))
	}
	if resp.IsError() {
		return nil, apperror.Provider(fmt.Errorf("google userinfo: status %d", resp.StatusCode()))
	}
	return &user, nil
}
