package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/servicehub/backend/internal/auth"
	"github.com/servicehub/backend/internal/auth/google"
	"github.com/servicehub/backend/internal/auth/tokens"
	"github.com/servicehub/backend/internal/config"
	"github.com/servicehub/backend/internal/es"
	"github.com/servicehub/backend/internal/httpserver"
	"github.com/servicehub/backend/internal/logging"
	authmw "github.com/servicehub/backend/internal/middleware/auth"
	"github.com/servicehub/backend/internal/mykafka"
	"github.com/servicehub/backend/internal/repo"
	"github.com/servicehub/backend/internal/seed"
	"github.com/servicehub/backend/internal/service"
	"github.com/servicehub/backend/pkg/db"
)

func main() {
	cfg := config.Load()

	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)
	ctx := logging.IntoContext(context.Background(), logger)

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	database, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	gormRepo := &repo.GormRepo{DB: database}

	if err := seed.Run(ctx, gormRepo, &cfg); err != nil {
		log.Fatalf("seed error: %v", err)
	}

	signer := &tokens.Signer{
		Secret:    cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		Audience:  cfg.JWTAudience,
		AccessTTL: time.Duration(cfg.AccessTokenTTLMinutes) * time.Minute,
	}

	authSvc := &auth.Service{
		Repo:       gormRepo,
		Signer:     signer,
		RefreshTTL: time.Duration(cfg.RefreshTokenTTLDays) * 24 * time.Hour,
	}

	if cfg.GoogleEnabled() {
		broker, err := google.New(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, gormRepo)
		if err != nil {
			log.Fatalf("google broker init error: %v", err)
		}
		broker.StartKeyRefresh(ctx)
		authSvc.Google = broker
	} else {
		logger.Warn("google sign-in disabled, GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set")
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer := mykafka.NewProducer(cfg.KafkaBrokers)
		defer producer.Close()
		authSvc.Producer = producer
	}

	catalogSvc := &service.CatalogService{Repo: gormRepo}
	if cfg.ESUrl != "" {
		esClient, err := es.NewClient(&cfg)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
		catalogSvc.ES = esClient
	}

	ordersSvc := &service.OrdersService{Repo: gormRepo, Producer: authSvc.Producer}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	httpserver.Register(e, &httpserver.Deps{
		Auth:               &httpserver.AuthHTTP{Svc: authSvc},
		Services:           &httpserver.ServicesHTTP{Svc: catalogSvc},
		Orders:             &httpserver.OrdersHTTP{Svc: ordersSvc},
		Dashboard:          &httpserver.DashboardHTTP{Svc: &service.DashboardService{Repo: gormRepo}},
		Bearer:             authmw.NewBearerAuth(signer),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.ServerPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("echo shutdown: %v", err)
	}
}
