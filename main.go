package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kariqs/sweet-shop/config"
	"github.com/Kariqs/sweet-shop/initializers"
	"github.com/Kariqs/sweet-shop/logger"
	"github.com/Kariqs/sweet-shop/metrics"
	"github.com/Kariqs/sweet-shop/routes"
	"github.com/Kariqs/sweet-shop/services"
	"github.com/Kariqs/sweet-shop/storage"
	"github.com/Kariqs/sweet-shop/utils"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := initializers.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logg := logger.New(logger.Options{
		ServiceName: "sweetshop",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "server.exit", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	if cfg.App.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := initializers.ConnectToDB(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	if err := initializers.SyncDatabase(db); err != nil {
		return err
	}

	tokens, err := services.NewTokenIssuer(cfg.JWT)
	if err != nil {
		return err
	}

	var revoker services.Revoker = services.NewMemoryRevoker()
	if cfg.Redis.URL != "" {
		client, err := services.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer client.Close()
		revoker = services.NewRedisRevoker(client)
	}

	var mailer utils.Mailer = utils.NewLogMailer(logg)
	if cfg.SMTP.Address != "" {
		mailer = utils.NewSMTPMailer(cfg.SMTP)
	}

	images, err := storage.NewS3ImageStore(ctx, cfg.S3)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	router := routes.NewRouter(routes.Dependencies{
		DB:        db,
		App:       cfg.App,
		Uploads:   cfg.Uploads,
		Logger:    logg,
		Metrics:   m,
		Gatherer:  registry,
		Auth:      services.NewAuthService(db, tokens, revoker, mailer, cfg.App, logg),
		Google:    services.NewGoogleAuth(cfg.Google),
		Catalog:   services.NewCatalogService(db),
		Purchases: services.NewPurchaseService(db, m, logg),
		Admin:     services.NewAdminService(db, images, cfg.Uploads.MaxBytes, m, logg),
	})

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(logg.WithField(ctx, "addr", server.Addr), "server.listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logg.Info(shutdownCtx, "server.shutting_down")
	return server.Shutdown(shutdownCtx)
}
