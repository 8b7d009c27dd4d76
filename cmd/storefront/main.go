package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yakuppgeyikk96/gratia/internal/cartsync"
	"github.com/yakuppgeyikk96/gratia/internal/catalog"
	"github.com/yakuppgeyikk96/gratia/internal/checkout"
	h "github.com/yakuppgeyikk96/gratia/internal/http"
	"github.com/yakuppgeyikk96/gratia/internal/order"
	"github.com/yakuppgeyikk96/gratia/internal/repository"
)

type Config struct {
	HTTPPort          string
	Env               string
	MongoURI          string
	MongoDBName       string
	RedisAddr         string
	RedisPassword     string
	CatalogDBPath     string
	CatalogMigrations string
	OrdersMigrations  string
	KafkaBrokers      string
	KafkaTopic        string
	RequestTimeout    time.Duration
	ShutdownTimeout   time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		Env:               getEnv("APP_ENV", "dev"),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:       getEnv("MONGO_DB_NAME", "gratia"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		CatalogDBPath:     getEnv("CATALOG_DB_PATH", "catalog.db"),
		CatalogMigrations: getEnv("CATALOG_MIGRATIONS_PATH", "migrations/catalog"),
		OrdersMigrations:  getEnv("ORDERS_MIGRATIONS_PATH", "migrations/orders"),
		KafkaBrokers:      getEnv("KAFKA_BROKERS", "localhost:9092"),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "checkout-events"),
		RequestTimeout:    30 * time.Second,
		ShutdownTimeout:   10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()
	ctx := context.Background()

	// MongoDB holds the authoritative user carts.
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongoDB.Client().Disconnect(ctx)
	log.Printf("Connected to MongoDB at %s", cfg.MongoURI)

	cartRepo := repository.NewMongoRepository(mongoDB)
	if err := cartRepo.CreateIndexes(ctx); err != nil {
		log.Fatalf("Failed to create cart indexes: %v", err)
	}

	// Redis backs the cart cache, checkout sessions and merge markers.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis connection failed:", err)
	}
	log.Printf("Redis ping succeeded")

	cartCache := repository.NewRedisCache(redisClient)
	loader := repository.NewLoader(cartRepo, cartCache)

	// Product catalog with stock and price lookups.
	catalogRepo, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		log.Fatalf("Failed to open catalog database: %v", err)
	}
	defer catalogRepo.Close()
	if err := catalogRepo.RunMigrations(cfg.CatalogMigrations); err != nil {
		log.Fatalf("Failed to run catalog migrations: %v", err)
	}

	snapshots := catalog.NewSnapshotProvider(catalogRepo, 2*time.Second)

	// Orders database.
	orderRepo, err := order.NewPostgresRepository(&order.Credentials{
		Host:              getEnv("ORDERS_DB_HOST", "localhost"),
		Port:              getEnvInt("ORDERS_DB_PORT", 5432),
		User:              getEnv("ORDERS_DB_USER", "postgres"),
		Password:          getEnv("ORDERS_DB_PASSWORD", "postgres"),
		DBName:            getEnv("ORDERS_DB_NAME", "gratia_orders"),
		MigrationsDirPath: cfg.OrdersMigrations,
	})
	if err != nil {
		log.Fatalf("Failed to connect to orders database: %v", err)
	}
	defer orderRepo.Close()
	if err := orderRepo.RunMigrations(&order.Credentials{MigrationsDirPath: cfg.OrdersMigrations}); err != nil {
		log.Fatalf("Failed to run order migrations: %v", err)
	}

	publisher := order.NewKafkaPublisher([]string{cfg.KafkaBrokers}, cfg.KafkaTopic)
	defer publisher.Close()

	// Purges persisted carts once their checkout completes.
	cleanup := order.NewCleanupConsumer(cartRepo, cfg.KafkaTopic, cfg.KafkaBrokers)
	defer cleanup.Close()
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	go cleanup.Run(consumerCtx)

	// Checkout sessions live in redis so every instance sees the same step.
	sessionStore := checkout.NewRedisStore(redisClient)
	manager := checkout.NewManager(sessionStore, orderRepo, publisher)
	guard := checkout.NewStepGuard(manager)

	syncService := cartsync.NewService(cartRepo, cartCache, cartsync.NewRedisMarker(redisClient), snapshots)

	carts := h.NewCartSessions(snapshots, loader, cartRepo)
	defer carts.Close()
	secureCookies := cfg.Env != "dev"

	router := h.NewRouter(
		h.RouterConfig{RequestTimeout: cfg.RequestTimeout, SecureCookies: secureCookies},
		h.NewCartHandler(carts, snapshots, cfg.RequestTimeout),
		h.NewSyncHandler(carts, syncService, cfg.RequestTimeout),
		h.NewCheckoutHandler(manager, guard, carts, secureCookies, cfg.RequestTimeout),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Storefront starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
