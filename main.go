package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"medical-booking-server/internal/cache"
	"medical-booking-server/internal/config"
	"medical-booking-server/internal/logger"
	"medical-booking-server/internal/mailer"
	"medical-booking-server/internal/middleware"
	"medical-booking-server/internal/models"
	"medical-booking-server/internal/pii"
	"medical-booking-server/internal/repository"
	"medical-booking-server/internal/routes"
	"medical-booking-server/internal/services"
	"medical-booking-server/internal/storage"
)

const uploadsDir = "uploads"

func main() {
	// Load environment variables; a missing .env is fine when they come from the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	zl, err := logger.New(cfg.Log.Level, cfg.Log.Format, "medical-booking-server")
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	// The serializer must be registered before gorm parses any model.
	cipher, err := pii.NewCipher(cfg.Security.EncryptionKey, cfg.Security.HashKey)
	if err != nil {
		zl.Fatal("invalid PII keys", zap.Error(err))
	}
	pii.Register(cipher)

	db, err := models.InitDB(models.DatabaseConfig{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
		Debug:  !cfg.IsProduction(),
	})
	if err != nil {
		zl.Fatal("error connecting to database", zap.Error(err))
	}
	store := repository.New(db)

	kv := newKV(cfg, zl)
	notifier := mailer.NewNotifier(store, newSender(cfg, zl), zl)
	uploader := newUploader(cfg, zl)

	availability := services.NewAvailabilityService(store, store, store, time.Duration(cfg.BookingLeadMinutes)*time.Minute)
	deps := routes.Dependencies{
		Config:       cfg,
		Store:        store,
		KV:           kv,
		Hasher:       cipher,
		Applications: services.NewApplicationService(store, uploader, cipher, notifier, zl),
		Availability: availability,
		Booking:      services.NewBookingService(availability, store, store, notifier, zl),
		Resets:       services.NewPasswordResetService(store, kv, notifier, time.Duration(cfg.PasswordResetTokenExpiry)*time.Minute, zl),
		Stats:        services.NewStatsService(store),
	}
	if local, ok := uploader.(*storage.Local); ok {
		deps.UploadsDir = local.Dir()
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery(zl), middleware.RequestLogger(zl))
	router.MaxMultipartMemory = 8 << 20

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Disposition", middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zl.Info("server running", zap.String("port", cfg.Port), zap.String("env", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
	zl.Info("server stopped")
}

// newKV connects to redis, falling back to process memory when it is unreachable.
func newKV(cfg *config.Config, zl *zap.Logger) cache.KV {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		if cfg.IsProduction() {
			zl.Fatal("redis unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		zl.Warn("redis unreachable, using in-memory store", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		_ = client.Close()
		return cache.NewMemoryKV()
	}
	return cache.NewRedisKV(client)
}

func newSender(cfg *config.Config, zl *zap.Logger) mailer.Sender {
	sender, err := mailer.NewSMTPSender(cfg.Mailer)
	if err != nil {
		zl.Warn("email delivery disabled", zap.Error(err))
		return mailer.NewLogSender(zl)
	}
	return sender
}

// newUploader uses Cloudinary when configured and the local disk otherwise.
func newUploader(cfg *config.Config, zl *zap.Logger) services.FileUploader {
	if cfg.Storage.CloudName != "" && cfg.Storage.APIKey != "" && cfg.Storage.APISecret != "" {
		return storage.NewCloudinary(cfg.Storage, zl)
	}
	local, err := storage.NewLocal(uploadsDir, cfg.AppURL+"/api/v1/uploads")
	if err != nil {
		zl.Fatal("local storage unavailable", zap.Error(err))
	}
	zl.Warn("Cloudinary not configured, storing documents on disk", zap.String("dir", uploadsDir))
	return local
}
