package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/Kariqs/sweet-shop/apperror"
	"github.com/Kariqs/sweet-shop/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

var testGoogle = config.GoogleConfig{
	ClientID:     "client-id",
	ClientSecret: "client-secret",
	RedirectURL:  "http://api.shop.test/api/auth/google/callback",
}

func fakeGoogle(t *testing.T, userinfoStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-1" || userinfoStatus != http.StatusOK {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(GoogleUser{Sub: "g-1", Email: "gina@example.com", EmailVerified: true, Name: "Gina"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestGoogle(srv *httptest.Server) *GoogleAuth {
	return NewGoogleAuth(testGoogle, WithGoogleEndpoints(oauth2.Endpoint{
		AuthURL:   srv.URL + "/auth",
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}, srv.URL+"/userinfo"))
}

func TestNewGoogleAuthDisabledWithoutCredentials(t *testing.T) {
	assert.Nil(t, NewGoogleAuth(config.GoogleConfig{}))
}

func TestGoogleAuthCodeURL(t *testing.T) {
	g := NewGoogleAuth(testGoogle)
	u, err := url.Parse(g.AuthCodeURL("state-123"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, "state-123", u.Query().Get("state"))
	assert.Equal(t, "client-id", u.Query().Get("client_id"))
	assert.Equal(t, testGoogle.RedirectURL, u.Query().Get("redirect_uri"))
}

func TestGoogleExchange(t *testing.T) {
	srv := fakeGoogle(t, http.StatusOK)
	g := newTestGoogle(srv)

	user, err := g.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, "gina@example.com", user.Email)
	assert.True(t, user.EmailVerified)

	_, err = g.Exchange(context.Background(), "bad-code")
	assert.True(t, apperror.HasCode(err, apperror.CodeProvider))

	_, err = g.Exchange(context.Background(), "")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestGoogleExchangeUserinfoFailure(t *testing.T) {
	srv := fakeGoogle(t, http.StatusUnauthorized)
	_, err := newTestGoogle(srv).Exchange(context.Background(), "good-code")
	assert.True(t, apperror.HasCode(err, apperror.CodeProvider))
}
