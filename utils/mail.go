package utils

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/Kariqs/sweet-shop/config"
	"github.com/Kariqs/sweet-shop/logger"
)

const (
	TemplateVerifyEmail   = "verify_email.html"
	TemplateResetPassword = "reset_password.html"
)

//go:embed templates/*.html
var templateFS embed.FS

var mailTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type EmailData struct {
	Name    string
	Message string
	LinkURL string
}

// Mailer delivers transactional mail.
type Mailer interface {
	Send(ctx context.Context, to, subject, templateName string, data EmailData) error
}

func RenderEmail(templateName string, data EmailData) (string, error) {
	var body bytes.Buffer
	if err := mailTemplates.ExecuteTemplate(&body, templateName, data); err != nil {
		return "", fmt.Errorf("template execution error: %w", err)
	}
	return body.String(), nil
}

type SMTPMailer struct {
	cfg  config.SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, templateName string, data EmailData) error {
	body, err := RenderEmail(templateName, data)
	if err != nil {
		return err
	}

	message := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n\r\n%s",
		m.cfg.From,
		to,
		subject,
		body,
	)

	auth := smtp.PlainAuth("", m.cfg.From, m.cfg.Password, m.cfg.Host)

	if err := m.send(m.cfg.Address, auth, m.cfg.From, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// LogMailer writes mail to the log instead of sending it. Used when no SMTP
// relay is configured.
type LogMailer struct {
	logg *logger.Logger
}

func NewLogMailer(logg *logger.Logger) *LogMailer {
	return &LogMailer{logg: logg}
}

func (m *LogMailer) Send(ctx context.Context, to, subject, templateName string, data EmailData) error {
	if _, err := RenderEmail(templateName, data); err != nil {
		return err
	}
	ctx = m.logg.WithFields(ctx, map[string]any{
		"to":       to,
		"subject":  subject,
		"template": templateName,
		"link":     data.LinkURL,
	})
	m.logg.Info(ctx, "mail.logged")
	return nil
}
