package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/router"
	"github.com/pageza/foodgram/backend/internal/server"
	"github.com/pageza/foodgram/backend/internal/service"
)

func main() {
	log := logrus.New()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("Failed to read .env file")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	configureLogger(log, cfg)

	db, err := database.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	if err := database.RunMigrations(db, log); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}

	ctx := context.Background()

	// Redis is optional: revocations fall back to process memory and
	// recipe creation is not rate limited.
	var tokens service.TokenStore = service.NewMemoryTokenStore()
	var createLimit *middleware.RateLimiter
	redisClient, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, using in-memory token revocation")
	} else {
		defer redisClient.Close()
		tokens = service.NewRedisTokenStore(redisClient)
		createLimit = newCreateLimiter(redisClient, cfg, log)
	}

	store, mediaRoot, err := imageStore(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize image storage")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	images := service.NewImageService(store, log)
	svc := api.Services{
		Auth:         service.NewAuthService(db, cfg.JWTSecret, cfg.TokenTTL, tokens),
		Users:        service.NewUserService(db),
		Recipes:      service.NewRecipeService(db, images),
		Associations: service.NewAssociationService(db, m),
		ShoppingList: service.NewShoppingListService(db),
		Tags:         service.NewTagService(db),
		Ingredients:  service.NewIngredientService(db, log),
	}

	engine := router.SetupRouter(db, svc, router.Settings{
		CORSOrigins: cfg.CORSOrigins,
		MediaRoot:   mediaRoot,
		MediaURL:    cfg.MediaURL,
		Options: api.Options{
			PageSize:          cfg.PageSize,
			RecipeCreateLimit: createLimit,
		},
	}, m, reg, log)

	srv := server.New(cfg.Address(), engine, log)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			log.WithError(err).Fatal("Server error")
		}
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Received signal")
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("Server shutdown error")
	}
	log.Info("Server stopped")
}

func configureLogger(log *logrus.Logger, cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Environment.IsProduction() {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
}

func newCreateLimiter(client *redis.Client, cfg *config.Config, log logrus.FieldLogger) *middleware.RateLimiter {
	if cfg.RecipeCreateLimit <= 0 {
		return nil
	}
	return middleware.NewRecipeCreationRateLimiter(client, cfg.RecipeCreateLimit, log)
}

// imageStore returns S3 storage when a bucket is configured and local disk
// otherwise. The returned media root is empty when nothing is served locally.
func imageStore(ctx context.Context, cfg *config.Config) (service.ImageStore, string, error) {
	s3cfg, err := config.NewS3Config(ctx, cfg)
	if err != nil {
		return nil, "", err
	}
	if s3cfg != nil {
		return service.NewS3ImageStore(s3cfg), "", nil
	}
	if err := os.MkdirAll(cfg.MediaRoot, 0o755); err != nil {
		return nil, "", err
	}
	return service.NewDiskImageStore(cfg.MediaRoot, cfg.MediaURL), cfg.MediaRoot, nil
}
