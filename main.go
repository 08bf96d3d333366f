package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Team-Roomin/Roomin/cache"
	"github.com/Team-Roomin/Roomin/config"
	"github.com/Team-Roomin/Roomin/controllers"
	"github.com/Team-Roomin/Roomin/events"
	"github.com/Team-Roomin/Roomin/logger"
	"github.com/Team-Roomin/Roomin/mailer"
	"github.com/Team-Roomin/Roomin/middleware"
	"github.com/Team-Roomin/Roomin/repository"
	"github.com/Team-Roomin/Roomin/routes"
	"github.com/Team-Roomin/Roomin/storage"
	"github.com/Team-Roomin/Roomin/utils"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const maxJSONBody = 16 << 10

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Startup(zapcore.Lock(os.Stderr)).Fatal("failed to load configuration", zap.Error(err))
	}
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()

	client, err := config.ConnectDB(ctx, cfg.Mongo, log)
	if err != nil {
		log.Fatal("failed to connect to the database", zap.Error(err))
	}
	defer config.CloseDBConnection(client, log)

	cols := config.InitCollections(client, cfg.Mongo.Database)
	if err := repository.EnsureIndexes(ctx, cols, log); err != nil {
		log.Fatal("failed to ensure indexes", zap.Error(err))
	}

	redisClient, err := config.InitRedis(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	publisher := newPublisher(cfg, log)
	defer publisher.Close()

	router := setupRouter(ctx, cfg, log, client, redisClient, cols, publisher)

	corsOptions := cors.New(cors.Options{
		AllowedOrigins:   cfg.App.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
	})
	handler := corsOptions.Handler(router)

	server := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        handler,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Info("server running", zap.String("port", cfg.App.Port), zap.String("env", cfg.App.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("error starting server", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("error during server shutdown", zap.Error(err))
	}
	log.Info("server gracefully stopped")
}

func newPublisher(cfg *config.Config, log *zap.Logger) events.Publisher {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Info("kafka brokers not configured, domain events are only logged")
		return events.NewNoopPublisher(log)
	}
	return events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
}

func newMailer(cfg *config.Config, log *zap.Logger) mailer.Mailer {
	if cfg.Mail.APIKeyPublic == "" || cfg.Mail.APIKeyPrivate == "" {
		log.Warn("mailjet keys not configured, verification emails are logged")
		return mailer.NewLogMailer(log)
	}
	return mailer.NewMailjetMailer(cfg.Mail.APIKeyPublic, cfg.Mail.APIKeyPrivate, cfg.Mail.SenderEmail, cfg.Mail.SenderName)
}

func newImageUploader(cfg *config.Config, log *zap.Logger) storage.ImageUploader {
	if cfg.Cloudinary.URL == "" {
		log.Warn("cloudinary not configured, image uploads are disabled")
		return storage.DisabledUploader{}
	}
	uploader, err := storage.NewCloudinaryUploader(cfg.Cloudinary.URL, cfg.Cloudinary.Folder)
	if err != nil {
		log.Error("invalid cloudinary configuration, image uploads are disabled", zap.Error(err))
		return storage.DisabledUploader{}
	}
	return uploader
}

func newPhotoStore(ctx context.Context, cfg *config.Config, log *zap.Logger) storage.PhotoStore {
	if cfg.S3.Bucket == "" {
		log.Warn("s3 bucket not configured, listing photo uploads are disabled")
		return storage.DisabledPhotoStore{}
	}
	photos, err := storage.NewS3PhotoStore(ctx, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.PublicRead)
	if err != nil {
		log.Error("invalid s3 configuration, listing photo uploads are disabled", zap.Error(err))
		return storage.DisabledPhotoStore{}
	}
	return photos
}

func setupRouter(ctx context.Context, cfg *config.Config, log *zap.Logger, client *mongo.Client,
	redisClient *redis.Client, cols *config.Collections, publisher events.Publisher) *mux.Router {
	users := repository.NewUserStore(cols.Users)
	properties := repository.NewPropertyStore(cols.Properties, cols.Counters)
	bookmarks := repository.NewBookmarkStore(cols.Bookmarks)
	inquiries := repository.NewInquiryStore(cols.Inquiries)
	reviews := repository.NewReviewStore(cols.Reviews)
	analytics := repository.NewAnalyticsStore(cols.Properties, cols.Inquiries, cols.Bookmarks)

	tokens := utils.NewTokenManager(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	sessions := cache.NewSessionStore(redisClient, cfg.OAuth.SessionTTL)
	listings := cache.NewListingCache(redisClient, cfg.Cache.ListingTTL, log)

	accounts := &controllers.UserController{
		Users:         users,
		Tokens:        tokens,
		Mailer:        newMailer(cfg, log),
		Images:        newImageUploader(cfg, log),
		VerifyBaseURL: cfg.Mail.VerifyBaseURL,
		SecureCookies: cfg.App.SecureCookies,
	}

	var google *controllers.GoogleController
	if cfg.GoogleEnabled() {
		google = &controllers.GoogleController{
			OAuth:           controllers.NewGoogleOAuthConfig(cfg.OAuth.GoogleClientID, cfg.OAuth.GoogleClientSecret, cfg.OAuth.CallbackURL),
			Sessions:        sessions,
			Accounts:        accounts,
			SuccessRedirect: cfg.OAuth.SuccessRedirect,
		}
	} else {
		log.Info("google sign-in disabled, client credentials not configured")
	}

	metrics, err := middleware.NewHTTPMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal("failed to register metrics", zap.Error(err))
	}

	handlers := &routes.Handlers{
		Users:  accounts,
		Google: google,
		Properties: &controllers.PropertyController{
			Properties: properties,
			Bookmarks:  bookmarks,
			Inquiries:  inquiries,
			Users:      users,
			Cache:      listings,
			Views:      cache.NewViewTracker(redisClient),
			Photos:     newPhotoStore(ctx, cfg, log),
		},
		Search: &controllers.SearchController{Properties: properties, Cache: listings},
		Inquiries: &controllers.InquiryController{
			Inquiries:  inquiries,
			Properties: properties,
			Users:      users,
			Events:     publisher,
		},
		Reviews: &controllers.ReviewController{
			Reviews:    reviews,
			Properties: properties,
			Inquiries:  inquiries,
		},
		Analytics: &controllers.AnalyticsController{
			Analytics:  analytics,
			Properties: properties,
			Inquiries:  inquiries,
			Bookmarks:  bookmarks,
			Reviews:    reviews,
		},
		Admin: &controllers.AdminController{
			Accounts:   accounts,
			Users:      users,
			Properties: properties,
			Inquiries:  inquiries,
			Events:     publisher,
			Cache:      listings,
		},
		Health: &controllers.HealthController{Checks: map[string]controllers.HealthCheck{
			"mongo": func(ctx context.Context) error { return client.Ping(ctx, nil) },
			"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		}},
		Metrics: promhttp.Handler(),
	}

	trusted, err := utils.ParseTrustedProxies(cfg.App.TrustedProxies)
	if err != nil {
		log.Fatal("invalid trusted proxies", zap.Error(err))
	}

	router := mux.NewRouter()
	router.Use(middleware.RequestID, middleware.RealIP(trusted), middleware.Logger(log), metrics.Handler, middleware.MaxJSONBody(maxJSONBody))

	auth := middleware.NewAuthenticator(tokens, sessions, users)
	routes.Routes(router, handlers, auth, routes.RateLimits{
		Login:    cache.NewRateLimiter(redisClient, "login", cfg.RateLimit.LoginLimit, cfg.RateLimit.Window),
		Register: cache.NewRateLimiter(redisClient, "register", cfg.RateLimit.RegisterLimit, cfg.RateLimit.Window),
		Window:   cfg.RateLimit.Window,
	})

	if cfg.App.StaticDir != "" {
		router.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.App.StaticDir))).Methods("GET")
	}
	return router
}
