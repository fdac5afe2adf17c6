package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"cartag/backend/internal/api/handler"
	"cartag/backend/internal/clock"
	"cartag/backend/internal/config"
	"cartag/backend/internal/emergency"
	"cartag/backend/internal/models"
	"cartag/backend/internal/notify"
	"cartag/backend/internal/phones"
	"cartag/backend/internal/qrsign"
	"cartag/backend/internal/ratelimit"
	"cartag/backend/internal/relay"
	"cartag/backend/internal/storage"
	"cartag/backend/internal/telephony"
	"cartag/backend/internal/templates"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(logger *zap.SugaredLogger) (*gorm.DB, *redis.Client) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		env("DB_HOST", "localhost"),
		env("DB_USER", "user"),
		env("DB_PASSWORD", "password"),
		env("DB_NAME", "cartagdb"),
		env("DB_PORT", "5432"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: env("REDIS_ADDR", "localhost:6379"),
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	err = db.AutoMigrate(
		&models.Account{},
		&models.Vehicle{},
		&models.EmergencyContact{},
		&models.CallLog{},
		&models.EmergencySession{},
		&models.AbuseReport{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	logger.Info("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func main() {
	logger := zap.Must(zap.NewProduction()).Sugar()
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file loaded")
	}

	db, rdb := setupDependencies(logger)
	store := storage.NewStorageService(db, rdb, logger)

	secret := os.Getenv("QR_SIGNING_SECRET")
	if secret == "" {
		logger.Fatal("QR_SIGNING_SECRET is not set")
	}
	signer := qrsign.NewSigner([]byte(secret))

	vaultKey, err := hex.DecodeString(os.Getenv("PHONE_VAULT_KEY"))
	if err != nil {
		logger.Fatalf("PHONE_VAULT_KEY is not valid hex: %v", err)
	}
	vault, err := phones.NewVault(vaultKey)
	if err != nil {
		logger.Fatalf("Failed to build phone vault: %v", err)
	}

	sysClock := clock.System()
	limiter := ratelimit.NewInMemory(sysClock)
	hub := telephony.NewStatusHub()
	catalog := templates.NewCatalog()
	if dir := os.Getenv("TEMPLATE_DIR"); dir != "" {
		if err := catalog.LoadDir(dir); err != nil {
			logger.Fatalf("Failed to load template directory: %v", err)
		}
	}

	var sender notify.Sender
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		tg, err := notify.NewTelegramSender(token, logger)
		if err != nil {
			logger.Fatalf("Failed to start Telegram sender: %v", err)
		}
		sender = tg
	} else {
		logger.Warn("TELEGRAM_BOT_TOKEN not set, notifications go to the log only")
		sender = &notify.LogSender{Logger: logger}
	}
	dispatcher := notify.NewDispatcher(store, sender, logger)

	// The relay is created after the gateway, but the simulated gateway
	// feeds events back into it; the closure resolves that cycle.
	var relaySvc *relay.Service
	sink := func(ev models.ProviderCallEvent) {
		if err := relaySvc.HandleProviderEvent(ev); err != nil {
			logger.Errorf("Simulated provider event rejected: %v", err)
		}
	}

	var gateway telephony.Gateway
	switch env("TELEPHONY_PROVIDER", "simulated") {
	case "simulated":
		gateway = telephony.NewSimulatedGateway(
			sysClock, sink, os.Getenv("SIMULATED_OUTCOME"), 15*time.Second, logger)
	case "http":
		gateway = &telephony.HTTPGateway{
			Token:       os.Getenv("PROVIDER_TOKEN"),
			BaseURL:     os.Getenv("PROVIDER_BASE_URL"),
			CallbackURL: os.Getenv("PROVIDER_CALLBACK_URL"),
			HTTP:        &http.Client{Timeout: config.ProviderTimeout},
		}
	default:
		logger.Fatal("Unknown TELEPHONY_PROVIDER")
	}

	relaySvc = &relay.Service{
		Store:    store,
		Signer:   signer,
		Limiter:  limiter,
		Gateway:  gateway,
		Hub:      hub,
		Notifier: dispatcher,
		Phones:   vault,
		Catalog:  catalog,
		Clock:    sysClock,
		Logger:   logger,
	}

	orchestrator := &emergency.Orchestrator{
		Store:    store,
		Signer:   signer,
		Gateway:  gateway,
		Hub:      hub,
		Notifier: dispatcher,
		Phones:   vault,
		Clock:    sysClock,
		Logger:   logger,
	}

	r := gin.Default()
	h := handler.NewHandler(relaySvc, orchestrator, store, logger)

	r.GET("/v/:vehicleId", h.ResolveScan)
	r.GET("/v/:vehicleId/templates", h.ListTemplates)
	r.POST("/v/:vehicleId/message", h.SendMessage)
	r.POST("/v/:vehicleId/call", h.PlaceCall)
	r.GET("/v/:vehicleId/call-status/:interactionId", h.CallStatus)
	r.POST("/v/:vehicleId/fallback-message", h.SubmitFallbackMessage)
	r.POST("/v/:vehicleId/emergency", h.TriggerEmergency)
	r.GET("/v/:vehicleId/emergency-status/:sessionId", h.EmergencyStatus)
	r.GET("/v/:vehicleId/emergency-stream/:sessionId", h.StreamEmergencyStages)
	r.POST("/webhooks/:provider", h.ProviderWebhook)

	server := &http.Server{
		Addr:           ":" + env("PORT", "8080"),
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	logger.Infof("CarTag gateway listening on %s", server.Addr)
	logger.Fatal(server.ListenAndServe())
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
