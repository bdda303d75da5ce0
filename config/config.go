package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "SWEETSHOP"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

type Config struct {
	App     AppConfig
	DB      DBConfig
	JWT     JWTConfig
	Redis   RedisConfig
	S3      S3Config
	SMTP    SMTPConfig
	Google  GoogleConfig
	Uploads UploadConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.DB.Driver) {
	case DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.DB.Driver)
	}
	if c.JWT.ExpirationMinutes <= 0 {
		return fmt.Errorf("jwt expiration minutes must be positive")
	}
	if c.Uploads.MaxBytes <= 0 {
		return fmt.Errorf("upload size limit must be positive")
	}
	return nil
}

type AppConfig struct {
	Env            string   `envconfig:"SWEETSHOP_APP_ENV" default:"dev"`
	Port           string   `envconfig:"SWEETSHOP_APP_PORT" default:"8080"`
	LogLevel       string   `envconfig:"SWEETSHOP_LOG_LEVEL" default:"info"`
	LogFormat      string   `envconfig:"SWEETSHOP_LOG_FORMAT" default:"json"`
	FrontendURL    string   `envconfig:"SWEETSHOP_FRONTEND_URL" default:"http://localhost:3000"`
	PublicURL      string   `envconfig:"SWEETSHOP_PUBLIC_URL" default:"http://localhost:8080"`
	AllowedOrigins []string `envconfig:"SWEETSHOP_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	Driver          string        `envconfig:"SWEETSHOP_DB_DRIVER" default:"mysql"`
	DSN             string        `envconfig:"SWEETSHOP_DB_DSN" required:"true"`
	MaxOpenConns    int           `envconfig:"SWEETSHOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SWEETSHOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SWEETSHOP_DB_CONN_MAX_LIFETIME" default:"1h"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SWEETSHOP_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SWEETSHOP_JWT_ISSUER" default:"sweetshop"`
	ExpirationMinutes int    `envconfig:"SWEETSHOP_JWT_EXPIRATION_MINUTES" default:"10080"`
	RecoveryMinutes   int    `envconfig:"SWEETSHOP_JWT_RECOVERY_MINUTES" default:"15"`
}

// SessionTTL is the lifetime of a regular login session.
func (j JWTConfig) SessionTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RecoveryTTL is the lifetime of the session opened by a password reset link.
func (j JWTConfig) RecoveryTTL() time.Duration {
	if j.RecoveryMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(j.RecoveryMinutes) * time.Minute
}

// RedisConfig is optional; without a URL revoked sessions are tracked in memory.
type RedisConfig struct {
	URL string `envconfig:"SWEETSHOP_REDIS_URL"`
}

type S3Config struct {
	Bucket          string `envconfig:"SWEETSHOP_S3_BUCKET" default:"product-images"`
	Region          string `envconfig:"SWEETSHOP_S3_REGION" default:"us-east-1"`
	Endpoint        string `envconfig:"SWEETSHOP_S3_ENDPOINT"`
	AccessKeyID     string `envconfig:"SWEETSHOP_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"SWEETSHOP_S3_SECRET_ACCESS_KEY"`
	PublicBaseURL   string `envconfig:"SWEETSHOP_S3_PUBLIC_BASE_URL"`
	UsePathStyle    bool   `envconfig:"SWEETSHOP_S3_USE_PATH_STYLE" default:"false"`
}

// SMTPConfig reads the FROM_EMAIL variables used by the mail helper. An empty
// Address switches the service to log-only mail delivery.
type SMTPConfig struct {
	From     string `envconfig:"SWEETSHOP_FROM_EMAIL"`
	Password string `envconfig:"SWEETSHOP_FROM_EMAIL_PASSWORD"`
	Host     string `envconfig:"SWEETSHOP_FROM_EMAIL_SMTP"`
	Address  string `envconfig:"SWEETSHOP_SMTP_ADDRESS"`
}

type GoogleConfig struct {
	ClientID     string `envconfig:"SWEETSHOP_GOOGLE_CLIENT_ID"`
	ClientSecret string `envconfig:"SWEETSHOP_GOOGLE_CLIENT_SECRET"`
	RedirectURL  string `envconfig:"SWEETSHOP_GOOGLE_REDIRECT_URL"`
}

func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type UploadConfig struct {
	MaxBytes int64 `envconfig:"SWEETSHOP_UPLOAD_MAX_BYTES" default:"5242880"`
}
