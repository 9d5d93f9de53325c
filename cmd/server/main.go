package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/vitabid/marketplace/internal/cache"
	"github.com/vitabid/marketplace/internal/config"
	"github.com/vitabid/marketplace/internal/db"
	"github.com/vitabid/marketplace/internal/es"
	"github.com/vitabid/marketplace/internal/handlers"
	"github.com/vitabid/marketplace/internal/logging"
	"github.com/vitabid/marketplace/internal/mail"
	"github.com/vitabid/marketplace/internal/middleware"
	"github.com/vitabid/marketplace/internal/mykafka"
	"github.com/vitabid/marketplace/internal/repo"
	"github.com/vitabid/marketplace/internal/service"
	"github.com/vitabid/marketplace/internal/service/search"
	"github.com/vitabid/marketplace/internal/sms"
	"github.com/vitabid/marketplace/internal/storage"
	"github.com/vitabid/marketplace/internal/tokens"
	httpserver "github.com/vitabid/marketplace/internal/transport/http"
)

const blacklistPurgeInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	cfg.MustValidate()
	if _, err := tokens.ParseExpiry(cfg.AccessTokenExpiry); err != nil {
		log.Fatalf("ACCESS_TOKEN_EXPIRY: %v", err)
	}
	if _, err := tokens.ParseExpiry(cfg.RefreshTokenExpiry); err != nil {
		log.Fatalf("REFRESH_TOKEN_EXPIRY: %v", err)
	}

	logger := logging.New(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	database, err := db.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("database init: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	redisCache := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Fatalf("redis init: %v", err)
	}

	prod := mykafka.NewProducer(cfg.KafkaBrokers)

	esClient, err := es.NewClient(logger, cfg.ESURL, cfg.ESUser, cfg.ESPassword)
	if err != nil {
		log.Fatalf("elasticsearch init: %v", err)
	}

	minioCtx, cancelMinio := context.WithTimeout(context.Background(), 10*time.Second)
	objectStorage, err := storage.NewMinio(minioCtx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	cancelMinio()
	if err != nil {
		log.Fatalf("minio init: %v", err)
	}

	userRepo := &repo.UserRepo{DB: database}
	tokenRepo := &repo.TokenRepo{DB: database}
	blacklistRepo := &repo.BlacklistRepo{DB: database}
	accessLogRepo := &repo.AccessLogRepo{DB: database}
	productRepo := &repo.ProductRepo{DB: database}

	authSvc := &service.AuthService{
		Users:              userRepo,
		Tokens:             tokenRepo,
		Blacklist:          blacklistRepo,
		AccessLog:          accessLogRepo,
		Secret:             cfg.JWTSecret,
		AccessTokenExpiry:  cfg.AccessTokenExpiry,
		RefreshTokenExpiry: cfg.RefreshTokenExpiry,
		Strict:             cfg.AuthStrict,
	}
	userSvc := &service.UserService{Users: userRepo}
	verifySvc := &service.VerificationService{
		Cache: redisCache,
		Mail:  mail.NewMailer(cfg.SMTPAddr, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom),
		SMS:   sms.NewClient(cfg.NaverAccessKey, cfg.NaverSecretKey, cfg.NaverServiceID, cfg.NaverCaller),
	}
	productIndex := &search.ProductIndex{ES: esClient, Index: "product"}
	productSvc := &service.ProductService{
		Products: productRepo,
		Storage:  objectStorage,
		Producer: prod,
		Index:    productIndex,
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover(), echomw.RequestID(), middleware.RequestLogger(logger))

	deps := httpserver.Deps{
		DB:             database,
		Auth:           authSvc,
		AuthHandler:    &handlers.AuthHandler{Auth: authSvc, Users: userSvc, Verify: verifySvc, Producer: prod},
		UserHandler:    &handlers.UserHandler{Users: userSvc},
		ProductHandler: &handlers.ProductHandler{Products: productSvc},
		SearchHandler:  &handlers.SearchHandler{Index: productIndex},
	}
	httpserver.Register(e, &deps)

	purgeCtx, stopPurge := context.WithCancel(context.Background())
	go purgeBlacklist(purgeCtx, logger, authSvc)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	stopPurge()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := database.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}
	if err := redisCache.Close(); err != nil {
		log.Printf("redis close error: %v", err)
	}

	logger.Info("shutdown complete")
}

func purgeBlacklist(ctx context.Context, logger *slog.Logger, auth *service.AuthService) {
	ticker := time.NewTicker(blacklistPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := auth.RemoveExpiredBlacklist(ctx); err != nil {
				logger.Error("blacklist purge failed", "error", err)
			} else {
				logger.Info("blacklist purged")
			}
		}
	}
}
