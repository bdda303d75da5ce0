package services

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
	"github.com/Kariqs/sweet-shop/models"
	"github.com/Kariqs/sweet-shop/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testJWT = config.JWTConfig{
	Secret:            "test-secret",
	Issuer:            "sweetshop",
	ExpirationMinutes: 60,
	RecoveryMinutes:   15,
}

var testApp = config.AppConfig{
	FrontendURL: "http://shop.test",
	PublicURL:   "http://api.shop.test",
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := initializers.ConnectToDB(context.Background(), config.DBConfig{
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
	return db
}

type sentMail struct {
	To       string
	Subject  string
	Template string
	Data     utils.EmailData
}

type captureMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *captureMailer) Send(ctx context.Context, to, subject, templateName string, data utils.EmailData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Template: templateName, Data: data})
	return m.err
}

func (m *captureMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no mail sent")
	return m.sent[len(m.sent)-1]
}

func (m *captureMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func linkToken(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	token := u.Query().Get("token")
	require.NotEmpty(t, token)
	return token
}

type authFixture struct {
	db      *gorm.DB
	auth    *AuthService
	mailer  *captureMailer
	revoker *MemoryRevoker
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db := newTestDB(t)
	tokens, err := NewTokenIssuer(testJWT)
	require.NoError(t, err)
	mailer := &captureMailer{}
	revoker := NewMemoryRevoker()
	return &authFixture{
		db:      db,
		auth:    NewAuthService(db, tokens, revoker, mailer, testApp, logger.Nop()),
		mailer:  mailer,
		revoker: revoker,
	}
}

// registerVerified signs a customer up and confirms the address.
func (f *authFixture) registerVerified(t *testing.T, email, password, name string) *models.User {
	t.Helper()
	ctx := context.Background()
	user, err := f.auth.SignUp(ctx, SignUpInput{Email: email, Password: password, FullName: name})
	require.NoError(t, err)
	token := linkToken(t, f.mailer.last(t).Data.LinkURL)
	require.NoError(t, f.auth.VerifyEmail(ctx, token, "email"))
	return user
}

func seedSweet(t *testing.T, db *gorm.DB, name string, stock int) *models.Sweet {
	t.Helper()
	sweet := &models.Sweet{
		Name:        name,
		Description: name + " from the test kitchen",
		Price:       decimal.RequireFromString("4.50"),
		Category:    models.CategoryCandy,
		Stock:       stock,
	}
	require.NoError(t, db.Create(sweet).Error)
	return sweet
}

type fakeImageStore struct {
	mu      sync.Mutex
	names   []string
	types   []string
	bodies  [][]byte
	failure error
}

func (f *fakeImageStore) Upload(ctx context.Context, name, contentType string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failure != nil {
		return "", f.failure
	}
	f.names = append(f.names, name)
	f.types = append(f.types, contentType)
	f.bodies = append(f.bodies, data)
	return "https://cdn.shop.test/product-images/" + name, nil
}

func (f *fakeImageStore) uploads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.names)
}
