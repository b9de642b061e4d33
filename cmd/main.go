package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/joho/godotenv"

	"codstore.dev/storefront/internal/router"
	"codstore.dev/storefront/pkg/ai"
	"codstore.dev/storefront/pkg/auth"
	"codstore.dev/storefront/pkg/catalog"
	"codstore.dev/storefront/pkg/global"
	"codstore.dev/storefront/pkg/media"
	"codstore.dev/storefront/pkg/models"
	"codstore.dev/storefront/pkg/mongo"
	"codstore.dev/storefront/pkg/orders"
	"codstore.dev/storefront/pkg/redis"
	"codstore.dev/storefront/pkg/settings"
)

const idempotencyTTL = 24 * time.Hour

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: no .env file loaded: %v", err)
	}
	cfg := global.LoadConfig()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set in environment variables")
	}

	mongoClient, db := mongo.InitMongoDB(cfg)
	startupCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	mongo.EnsureIndexesOnStartup(startupCtx, db)

	redisClient := redis.RedisClient(cfg)
	if err := redisClient.Ping(startupCtx).Err(); err != nil {
		log.Printf("Warning: Redis not reachable at %s: %v", cfg.RedisAddress, err)
	}

	settingsSvc := settings.NewService(mongo.NewSettingsRepository(db), redis.NewSettingsCache(redisClient, cfg.SettingsCacheTTL))
	if err := settingsSvc.Seed(startupCtx); err != nil {
		log.Fatalf("Failed to seed settings: %v", err)
	}

	products := mongo.NewProductRepository(db)
	inventoryLogs := mongo.NewInventoryLogRepository(db)
	catalogSvc := catalog.NewService(products, mongo.NewCategoryRepository(db), redis.NewProductCache(redisClient, cfg.ProductCacheTTL), inventoryLogs)

	orderSvc := orders.NewService(products, mongo.NewOrderRepository(db), settingsSvc, mongo.NewTransactor(mongoClient, cfg.MongoTransactions), orders.Options{
		Idempotency: redis.NewIdempotencyStore(redisClient, idempotencyTTL),
		Cache:       catalogSvc,
		Inventory:   inventoryLogs,
	})

	authSvc := auth.NewService(
		mongo.NewUserRepository(db),
		redis.NewTokenStore(redisClient),
		auth.LogMailer{},
		auth.NewPasswordHasher(0),
		auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL),
		auth.Options{
			PublicBaseURL:  cfg.PublicBaseURL,
			BootstrapToken: cfg.BootstrapToken,
			AdminEmail:     cfg.AdminDefaultEmail,
			AdminPassword:  cfg.AdminDefaultPassword,
			AdminName:      cfg.AdminDefaultName,
		},
	)

	analytics := mongo.NewAnalyticsRepository(db)
	currency := func(ctx context.Context) string {
		return fmt.Sprint(settingsSvc.Value(ctx, models.KeyCurrency, "INR"))
	}
	var completer ai.Completer
	if c := ai.NewClient(cfg); c != nil {
		completer = c
	}

	services := router.Services{
		Auth:     authSvc,
		Catalog:  catalogSvc,
		Orders:   orderSvc,
		Settings: settingsSvc,
		Stats:    analytics,
		Reports:  ai.NewReporter(analytics, completer, currency),
		Health: map[string]router.Pinger{
			"database": mongo.Pinger{Client: mongoClient},
			"cache":    redis.Pinger{Client: redisClient},
		},
	}
	store, err := media.NewS3Store(startupCtx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize media storage: %v", err)
	}
	if store != nil {
		services.Media = store
	}
	cancel()

	engine := router.InitEngine(cfg)
	router.InitializeRoutes(engine, router.NewHandler(cfg, services))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Server is running on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to run server: %v", err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return server.Shutdown(ctx)
			},
			"mongodb": func(ctx context.Context) error {
				return mongoClient.Disconnect(ctx)
			},
			"redis": func(ctx context.Context) error {
				return redisClient.Close()
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}
