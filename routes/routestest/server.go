// Package routestest runs the full HTTP stack against an in-memory database
// with fake mail and image storage.
package routestest

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"testing"

	"github.com/Kariqs/sweet-shop/config"
	"github.com/Kariqs/sweet-shop/initializers"
	"github.com/Kariqs/sweet-shop/logger"
	"github.com/Kariqs/sweet-shop/metrics"
	"github.com/Kariqs/sweet-shop/routes"
	"github.com/Kariqs/sweet-shop/services"
	"github.com/Kariqs/sweet-shop/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	FrontendURL = "http://shop.test"
	PublicURL   = "http://api.shop.test"
)

type Mail struct {
	To       string
	Subject  string
	Template string
	Data     utils.EmailData
}

// Mailbox records outgoing mail.
type Mailbox struct {
	mu   sync.Mutex
	sent []Mail
}

func (m *Mailbox) Send(ctx context.Context, to, subject, templateName string, data utils.EmailData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, Mail{To: to, Subject: subject, Template: templateName, Data: data})
	return nil
}

func (m *Mailbox) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// LastToken returns the token query parameter of the newest mail's link.
func (m *Mailbox) LastToken(t testing.TB) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no mail sent")
	link, err := url.Parse(m.sent[len(m.sent)-1].Data.LinkURL)
	require.NoError(t, err)
	return link.Query().Get("token")
}

// LastLink returns the link of the newest mail.
func (m *Mailbox) LastLink(t testing.TB) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no mail sent")
	return m.sent[len(m.sent)-1].Data.LinkURL
}

// Images is an in-memory ImageStore.
type Images struct {
	mu      sync.Mutex
	Names   []string
	Failure error
}

func (i *Images) Upload(ctx context.Context, name, contentType string, body io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.Failure != nil {
		return "", i.Failure
	}
	i.Names = append(i.Names, name)
	return "https://cdn.shop.test/product-images/" + name, nil
}

func (i *Images) Count() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.Names)
}

type Server struct {
	Router   *gin.Engine
	DB       *gorm.DB
	Auth     *services.AuthService
	Mail     *Mailbox
	Images   *Images
	Registry *prometheus.Registry
}

func New(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	db, err := initializers.ConnectToDB(ctx, config.DBConfig{
		Driver:       config.DriverSQLite,
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 1,
	}, nil)
	require.NoError(t, err)
	require.NoError(t, initializers.SyncDatabase(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	tokens, err := services.NewTokenIssuer(config.JWTConfig{
		Secret:            "routes-test-secret",
		Issuer:            "sweetshop",
		ExpirationMinutes: 60,
		RecoveryMinutes:   15,
	})
	require.NoError(t, err)

	app := config.AppConfig{
		Env:            config.AppEnvDev,
		FrontendURL:    FrontendURL,
		PublicURL:      PublicURL,
		AllowedOrigins: []string{FrontendURL},
	}
	uploads := config.UploadConfig{MaxBytes: 5 << 20}
	logg := logger.Nop()
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	mail := &Mailbox{}
	images := &Images{}

	auth := services.NewAuthService(db, tokens, services.NewMemoryRevoker(), mail, app, logg)
	router := routes.NewRouter(routes.Dependencies{
		DB:        db,
		App:       app,
		Uploads:   uploads,
		Logger:    logg,
		Metrics:   m,
		Gatherer:  registry,
		Auth:      auth,
		Catalog:   services.NewCatalogService(db),
		Purchases: services.NewPurchaseService(db, m, logg),
		Admin:     services.NewAdminService(db, images, uploads.MaxBytes, m, logg),
	})

	return &Server{Router: router, DB: db, Auth: auth, Mail: mail, Images: images, Registry: registry}
}

// CreateCustomer registers and verifies a customer account.
func (s *Server) CreateCustomer(t testing.TB, email, password, name string) {
	t.Helper()
	ctx := context.Background()
	_, err := s.Auth.SignUp(ctx, services.SignUpInput{Email: email, Password: password, FullName: name})
	require.NoError(t, err)
	require.NoError(t, s.Auth.VerifyEmail(ctx, s.Mail.LastToken(t), "email"))
}

func (s *Server) CreateAdmin(t testing.TB, email, password, name string) {
	t.Helper()
	_, err := s.Auth.BootstrapAdmin(context.Background(), services.SignUpInput{Email: email, Password: password, FullName: name})
	require.NoError(t, err)
}

// Login returns a session token for the account.
func (s *Server) Login(t testing.TB, email, password string) string {
	t.Helper()
	session, err := s.Auth.SignIn(context.Background(), email, password)
	require.NoError(t, err)
	return session.Token
}
