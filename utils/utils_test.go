package utils

import (
	"context"
	"encoding/json"
	"errors"
	"net/smtp"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/Kariqs/sweet-shop/config"
	"github.com/Kariqs/sweet-shop/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var objectNamePattern = regexp.MustCompile(`^[0-9a-f]{16}-\d+\.[a-z0-9]+$`)

func TestImageObjectNameShape(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	name, err := ImageObjectName("Fudge.PNG", "image/png", now)
	require.NoError(t, err)
	assert.Regexp(t, objectNamePattern, name)
	assert.Contains(t, name, "-1700000000123.png")

	name, err = ImageObjectName("blob", "image/jpeg", now)
	require.NoError(t, err)
	assert.Regexp(t, objectNamePattern, name)
	assert.True(t, strings.HasSuffix(name, ".jpg"), name)
}

func TestImageObjectNameTrustsContentOverFilename(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	name, err := ImageObjectName("x.html", "image/png", now)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, "-1700000000123.png"), name)

	name, err = ImageObjectName("photo.webp", "image/x-unknown", now)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".webp"), name)

	name, err = ImageObjectName("noext", "", now)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".bin"), name)
}

func TestImageObjectNamesDoNotCollide(t *testing.T) {
	now := time.Now()
	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		name, err := ImageObjectName("a.jpg", "image/jpeg", now)
		require.NoError(t, err)
		_, dup := seen[name]
		require.False(t, dup, "duplicate name %s", name)
		seen[name] = struct{}{}
	}
}

func TestHashTokenIsStable(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)
}

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(16)
	require.NoError(t, err)
	assert.Len(t, code, 32)

	_, err = GenerateCode(0)
	assert.Error(t, err)
}

func TestResolveImage(t *testing.T) {
	cases := []struct {
		name     string
		ref      string
		category string
		want     ImageView
	}{
		{"url", "https://cdn.example/a.png", "candy", ImageView{URL: "https://cdn.example/a.png"}},
		{"glyph", "🍩", "cake", ImageView{Glyph: "🍩"}},
		{"empty chocolate", "", "chocolate", ImageView{Glyph: "🍫"}},
		{"empty cupcake", "  ", "cupcake", ImageView{Glyph: "🧁"}},
		{"empty unknown", "", "pie", ImageView{Glyph: "🍬"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveImage(tc.ref, tc.category))
		})
	}
}

func TestCoerceInt(t *testing.T) {
	assert.Equal(t, 10, CoerceInt(10))
	assert.Equal(t, 10, CoerceInt(float64(10)))
	assert.Equal(t, 7, CoerceInt("7"))
	assert.Equal(t, 3, CoerceInt(" 3.9 "))
	assert.Equal(t, 12, CoerceInt(json.Number("12")))
	assert.Equal(t, 0, CoerceInt("ten"))
	assert.Equal(t, 0, CoerceInt(nil))
	assert.Equal(t, 0, CoerceInt(true))
}

func TestSMTPMailerComposesMessage(t *testing.T) {
	mailer := NewSMTPMailer(config.SMTPConfig{From: "shop@example.com", Address: "smtp.example.com:587", Host: "smtp.example.com"})

	var gotAddr string
	var gotTo []string
	var gotMsg string
	mailer.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	err := mailer.Send(context.Background(), "kid@example.com", "Account Verification", TemplateVerifyEmail, EmailData{
		Name:    "Kid",
		Message: "Please verify",
		LinkURL: "http://localhost:3000/verify-email?token=abc&type=email",
	})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"kid@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Account Verification")
	assert.Contains(t, gotMsg, "token=abc&amp;type=email")
}

func TestSMTPMailerWrapsSendError(t *testing.T) {
	mailer := NewSMTPMailer(config.SMTPConfig{})
	mailer.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := mailer.Send(context.Background(), "a@b.c", "x", TemplateResetPassword, EmailData{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := RenderEmail("missing.html", EmailData{})
	assert.Error(t, err)
	assert.Error(t, NewLogMailer(logger.Nop()).Send(context.Background(), "a@b.c", "x", "missing.html", EmailData{}))
}
