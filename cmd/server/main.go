package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/phucthaihg/wallpaper-ecommerce/internal/config"
	"github.com/phucthaihg/wallpaper-ecommerce/internal/es"
	"github.com/phucthaihg/wallpaper-ecommerce/internal/httpserver"
	"github.com/phucthaihg/wallpaper-ecommerce/internal/identity"
	authmw "github.com/phucthaihg/wallpaper-ecommerce/internal/middleware/auth"
	"github.com/phucthaihg/wallpaper-ecommerce/internal/mykafka"
	"github.com/phucthaihg/wallpaper-ecommerce/internal/repo"
	authsvc "github.com/phucthaihg/wallpaper-ecommerce/internal/service/auth"
	cartsvc "github.com/phucthaihg/wallpaper-ecommerce/internal/service/cart"
	catalogsvc "github.com/phucthaihg/wallpaper-ecommerce/internal/service/catalog"
	"github.com/phucthaihg/wallpaper-ecommerce/pkg/logging"
	loggingmw "github.com/phucthaihg/wallpaper-ecommerce/pkg/middleware/logging"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LOG_LEVEL)
	slog.SetDefault(logger)

	e := echo.New()
	e.HideBanner = true

	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(loggingmw.RequestLogger(logger))

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := config.InitDB(initCtx, cfg)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	var producer *mykafka.Producer
	if cfg.KAFKA_ADDRESS != "" {
		producer = mykafka.NewProducer(strings.Split(cfg.KAFKA_ADDRESS, ","))
		defer producer.Close()
	}

	esClient, err := es.NewClient(cfg)
	if err != nil {
		logger.Warn("elasticsearch unavailable, search disabled", "error", err)
		esClient = nil
	}

	gormRepo := &repo.GormRepo{DB: db}
	jwtSecret := []byte(cfg.JWT_SECRET)

	cartService := &cartsvc.Service{Repo: gormRepo}
	catalogService := &catalogsvc.Service{Repo: gormRepo}
	authService := &authsvc.Service{Repo: gormRepo, JWTSecret: jwtSecret}

	resolver := &identity.Resolver{JWTSecret: jwtSecret}

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler:    &httpserver.AuthHTTP{Svc: authService},
		CartHandler:    &httpserver.CartHTTP{Svc: cartService, Resolver: resolver, Producer: producer},
		CatalogHandler: &httpserver.CatalogHTTP{Svc: catalogService, Producer: producer, ES: esClient},
		SearchHandler:  &httpserver.SearchHTTP{ES: esClient},
		AuthMW:         &authmw.Middleware{JWTSecret: jwtSecret},
	})

	port := cfg.SERVER_PORT
	if port == "" {
		port = "8080"
	}

	go func() {
		logger.Info("starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo shutdown", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Info("server stopped")
}
