package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	appControllers "github.com/yigit/classjournal/internal/app/controllers"
	appMigrations "github.com/yigit/classjournal/internal/app/migrations"
	appRepos "github.com/yigit/classjournal/internal/app/repositories"
	appRoutes "github.com/yigit/classjournal/internal/app/routes"
	appServices "github.com/yigit/classjournal/internal/app/services"
	"github.com/yigit/classjournal/internal/config"
	"github.com/yigit/classjournal/internal/db"
	appMiddleware "github.com/yigit/classjournal/internal/middleware"
	pkgAuth "github.com/yigit/classjournal/internal/pkg/auth"
	"github.com/yigit/classjournal/internal/pkg/filestorage"
	"github.com/yigit/classjournal/internal/pkg/helpers"
	"github.com/yigit/classjournal/internal/pkg/logger"
	"github.com/yigit/classjournal/internal/pkg/metrics"
	"github.com/yigit/classjournal/internal/pkg/redisbus"
	"github.com/yigit/classjournal/internal/pkg/websocket"
	"github.com/yigit/classjournal/internal/seed"
	"github.com/yigit/classjournal/internal/worker"
)

const maxMultipartMemory = 32 << 20

// Dependencies holds all the application dependencies
type Dependencies struct {
	DB     *db.PostgresDB
	Redis  *redis.Client // nil when Redis is unreachable
	Tasks  *asynq.Client // nil when Redis is unreachable
	Hub    *websocket.Hub
	Repos  *appRepos.Repositories
	Blobs  filestorage.BlobStore
	Logger zerolog.Logger

	JWTService     *pkgAuth.JWTService
	AuthMiddleware *appMiddleware.AuthMiddleware

	JournalService      appServices.JournalService
	FeedService         appServices.FeedService
	NotificationService appServices.NotificationService
	UserService         appServices.UserService

	Controllers appRoutes.Controllers
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		configPath = p
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	lgr := logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: cfg.Logging.Format == "text",
	})
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// NewJWTService builds the token validator from configuration
func NewJWTService(cfg *config.Config) *pkgAuth.JWTService {
	return pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 24*time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})
}

// SetupDatabase connects to Postgres and applies migrations. Outside production the
// default users are seeded.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	// Test connection
	latency, err := database.Ping(pingCtx)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to ping database")
		database.Close()
		return nil, err
	}
	metrics.ObserveDBPing(latency)
	lgr.Info().Dur("latency", latency).Msg("Database connection successfully established.")

	// Run migrations
	lgr.Info().Msg("Running database migrations...")
	if err := appMigrations.NewMigrator(database.Pool, lgr).Up(ctx); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		database.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}

	// Create Default Data (after migrations)
	if !cfg.IsProduction() {
		if err := seed.CreateDefaultData(ctx, database.Pool, lgr); err != nil {
			// Log the error but don't fail the startup
			lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
		}
	}

	return database, nil
}

// ConnectRedis returns nil when Redis is unreachable. The API then keeps in-app
// delivery in process and reports the queued channels as disabled.
func ConnectRedis(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) *redis.Client {
	if cfg.Redis.URL == "" {
		lgr.Warn().Msg("Redis URL not configured, queued notification channels disabled")
		return nil
	}
	client, err := redisbus.Connect(ctx, cfg.Redis.URL)
	if err != nil {
		lgr.Warn().Err(err).Msg("Redis unavailable, queued notification channels disabled")
		return nil
	}
	return client
}

// NewBlobStore selects the storage driver
func NewBlobStore(cfg *config.Config) (filestorage.BlobStore, error) {
	if cfg.Storage.Driver == config.StorageDriverCloudinary {
		c := cfg.Storage.Cloudinary
		store, err := filestorage.NewCloudinaryStorage(c.CloudName, c.APIKey, c.APISecret, c.Folder)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	store, err := filestorage.NewLocalStorage(cfg.Server.StoragePath, cfg.PublicBaseURL()+"/uploads")
	if err != nil {
		return nil, err
	}
	return store, nil
}

// BuildDependencies initializes repositories, transports, services and controllers.
// Background loops (hub, relay) run until ctx is cancelled.
func BuildDependencies(ctx context.Context, cfg *config.Config, database *db.PostgresDB, redisClient *redis.Client, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{DB: database, Redis: redisClient, Logger: lgr}

	deps.Repos = appRepos.NewRepositories(database.Pool)

	// Initialize File Storage
	blobs, err := NewBlobStore(cfg)
	if err != nil {
		lgr.Error().Err(err).Str("driver", cfg.Storage.Driver).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}
	deps.Blobs = blobs

	// Realtime transport and notification fan-out
	deps.Hub = websocket.NewHub(lgr)
	go deps.Hub.Run(ctx)

	dispatchCfg := worker.DispatcherConfig{
		InApp:        deps.Hub,
		EmailEnabled: cfg.SMTP.Host != "",
		PushEnabled:  cfg.Push.WebhookURL != "",
	}
	if redisClient != nil {
		broker := redisbus.NewBroker(redisClient, lgr)
		websocket.NewRelay(broker, deps.Hub, lgr).Start(ctx)
		dispatchCfg.InApp = broker
		dispatchCfg.Digests = redisbus.NewDigestStore(redisClient)

		tasks, err := worker.NewClient(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create task client: %w", err)
		}
		deps.Tasks = tasks
		dispatchCfg.Tasks = tasks
	}
	dispatcher := worker.NewDispatcher(dispatchCfg, lgr)

	deps.JWTService = NewJWTService(cfg)
	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService, deps.Repos.UserRepository)

	// Initialize services
	deps.NotificationService = appServices.NewNotificationService(deps.Repos, dispatcher, lgr)
	deps.JournalService = appServices.NewJournalService(database, deps.Repos, blobs, deps.NotificationService, lgr)
	deps.FeedService = appServices.NewFeedService(database, deps.Repos, lgr)
	deps.UserService = appServices.NewUserService(deps.Repos.UserRepository)

	// Initialize controllers
	deps.Controllers = appRoutes.Controllers{
		Journal:      appControllers.NewJournalController(deps.JournalService),
		Feed:         appControllers.NewFeedController(deps.FeedService),
		Notification: appControllers.NewNotificationController(deps.NotificationService),
		User:         appControllers.NewUserController(deps.UserService),
		Subscribe:    websocket.NewHandler(deps.Hub, cfg.Server.CORSAllowedOrigins, lgr),
	}

	lgr.Info().
		Bool("redis", redisClient != nil).
		Bool("email", dispatchCfg.EmailEnabled).
		Bool("push", dispatchCfg.PushEnabled).
		Str("storage", cfg.Storage.Driver).
		Msg("Dependencies initialized")
	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.MaxMultipartMemory = maxMultipartMemory
	router.Use(appMiddleware.Recovery(lgr), appMiddleware.RequestLogger(lgr), appMiddleware.RequestMetrics())

	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware)

	if cfg.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
	router.GET("/healthz", healthz(deps.DB))

	if cfg.Storage.Driver == config.StorageDriverLocal {
		router.Static("/uploads", cfg.Server.StoragePath)
		lgr.Info().Str("path", cfg.Server.StoragePath).Msg("Static file serving configured for uploads directory")
	}

	return router
}

func healthz(database *db.PostgresDB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		latency, err := database.Ping(ctx)
		metrics.ObserveDBPing(latency)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "dbLatencyMs": latency.Milliseconds()})
	}
}
