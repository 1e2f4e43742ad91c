package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	appControllers "github.com/yigit/circlehub/internal/app/controllers"
	appMigrations "github.com/yigit/circlehub/internal/app/migrations"
	appRepos "github.com/yigit/circlehub/internal/app/repositories"
	appRoutes "github.com/yigit/circlehub/internal/app/routes"
	appServices "github.com/yigit/circlehub/internal/app/services"
	"github.com/yigit/circlehub/internal/config"
	"github.com/yigit/circlehub/internal/db"
	appMiddleware "github.com/yigit/circlehub/internal/middleware"
	pkgAuth "github.com/yigit/circlehub/internal/pkg/auth"
	"github.com/yigit/circlehub/internal/pkg/cache"
	"github.com/yigit/circlehub/internal/pkg/helpers"
	"github.com/yigit/circlehub/internal/pkg/logger"
	"github.com/yigit/circlehub/internal/pkg/metrics"
	"github.com/yigit/circlehub/internal/pkg/payments"
	"github.com/yigit/circlehub/internal/pkg/validation"
	"github.com/yigit/circlehub/internal/seed"
)

// Infrastructure holds the external connections
type Infrastructure struct {
	Mongo    *db.MongoDB
	Postgres *db.PostgresDB
	Cache    cache.Client
	Metrics  statsd.ClientInterface
}

// Dependencies holds all the application dependencies
type Dependencies struct {
	Infra          *Infrastructure
	Repos          *appRepos.Repositories
	Services       *appServices.Services
	JWTService     *pkgAuth.JWTService
	AuthMiddleware *appMiddleware.AuthMiddleware
	Controllers    appRoutes.Controllers
	Logger         zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		configPath = path
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	logger.Configure(logger.Config{
		Level:   logLevel,
		Pretty:  strings.ToLower(cfg.Logging.Format) == "text",
		Service: "circlehub",
	})

	lgr := logger.Get()
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupInfrastructure connects Mongo, Postgres, Redis and statsd, creates the
// Mongo indexes and applies the ledger migrations.
func SetupInfrastructure(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*Infrastructure, error) {
	infra := &Infrastructure{}

	lgr.Info().Str("database", cfg.Mongo.Database).Msg("Connecting to MongoDB...")
	mongoDB, err := db.NewMongoDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	infra.Mongo = mongoDB

	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := mongoDB.EnsureIndexes(indexCtx); err != nil {
		infra.Close(ctx, lgr)
		return nil, err
	}
	lgr.Info().Msg("MongoDB connection established and indexes ensured.")

	lgr.Info().Msg("Establishing ledger database connection...")
	pg, err := db.NewPostgresDB(ctx, cfg)
	if err != nil {
		infra.Close(ctx, lgr)
		return nil, err
	}
	infra.Postgres = pg

	migrationsDir := cfg.Database.MigrationsDir
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		infra.Close(ctx, lgr)
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}
	if err := appMigrations.NewMigrator(pg.Pool, lgr).MigrateFromDirectory(ctx, migrationsDir); err != nil {
		infra.Close(ctx, lgr)
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	redisClient, err := cache.NewClient(ctx, cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		infra.Close(ctx, lgr)
		return nil, err
	}
	infra.Cache = redisClient
	lgr.Info().Str("addr", cfg.Redis.Addr).Msg("Redis connection established.")

	statsdClient, err := metrics.NewClient(metrics.Config{
		Addr:      cfg.Metrics.StatsdAddr,
		Namespace: cfg.Metrics.Namespace,
		Tags:      cfg.Metrics.Tags,
	})
	if err != nil {
		infra.Close(ctx, lgr)
		return nil, err
	}
	infra.Metrics = statsdClient

	return infra, nil
}

// Close releases every connection that was opened. Errors are logged only.
func (i *Infrastructure) Close(ctx context.Context, lgr zerolog.Logger) {
	if i.Metrics != nil {
		if err := i.Metrics.Close(); err != nil {
			lgr.Warn().Err(err).Msg("Failed to close statsd client")
		}
	}
	if closer, ok := i.Cache.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			lgr.Warn().Err(err).Msg("Failed to close redis client")
		}
	}
	if i.Postgres != nil {
		i.Postgres.Close()
	}
	if i.Mongo != nil {
		if err := i.Mongo.Close(ctx); err != nil {
			lgr.Warn().Err(err).Msg("Failed to disconnect from MongoDB")
		}
	}
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(ctx context.Context, cfg *config.Config, infra *Infrastructure, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Infra: infra, Logger: lgr}

	deps.Repos = appRepos.NewRepositories(infra.Mongo.Database, infra.Postgres.Pool)

	if err := seed.CreateDefaultData(ctx, deps.Repos.Plans, lgr); err != nil {
		lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 168*time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})

	if cfg.Stripe.SecretKey == "" {
		lgr.Warn().Msg("Stripe secret key is empty, checkout calls will fail")
	}
	gateway := payments.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)

	deps.Services = appServices.NewServices(deps.Repos, appServices.Dependencies{
		JWT:     deps.JWTService,
		Cache:   infra.Cache,
		Gateway: gateway,
		Metrics: infra.Metrics,
		Trial: appServices.TrialConfig{
			Days:         cfg.Trial.Days,
			ReminderDays: cfg.Trial.ReminderDays,
		},
		Checkout: appServices.CheckoutURLs{
			SuccessURL: cfg.Stripe.SuccessURL,
			CancelURL:  cfg.Stripe.CancelURL,
		},
	})

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService, cfg.Session.CookieName)
	deps.Controllers = NewControllers(cfg, deps.Services, map[string]appControllers.Pinger{
		"mongo":    infra.Mongo,
		"postgres": infra.Postgres,
		"redis": appControllers.PingFunc(func(ctx context.Context) error {
			return infra.Cache.Ping(ctx).Err()
		}),
	})

	return deps, nil
}

// NewControllers builds every controller on top of svc
func NewControllers(cfg *config.Config, svc *appServices.Services, health map[string]appControllers.Pinger) appRoutes.Controllers {
	cookie := appControllers.SessionCookie{
		Name:   cfg.Session.CookieName,
		Domain: cfg.Session.Domain,
		Secure: cfg.Session.Secure,
	}
	return appRoutes.Controllers{
		Auth:      appControllers.NewAuthController(svc.Auth, cookie, logger.Component("auth-controller")),
		Users:     appControllers.NewUserController(svc.Users, logger.Component("user-controller")),
		Community: appControllers.NewCommunityController(svc.Communities, svc.Gamification, logger.Component("community-controller")),
		Posts:     appControllers.NewPostController(svc.Posts, svc.Comments, logger.Component("post-controller")),
		Courses:   appControllers.NewCourseController(svc.Courses, logger.Component("course-controller")),
		Messages:  appControllers.NewMessageController(svc.Messages, svc.Notifications, logger.Component("message-controller")),
		Payments:  appControllers.NewPaymentController(svc.Payments, svc.Trials, svc.Webhooks, logger.Component("payment-controller")),
		System:    appControllers.NewSystemController(svc.Trials, health, logger.Component("system-controller")),
	}
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, metricsClient statsd.ClientInterface, lgr zerolog.Logger) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	if err := RegisterValidation(); err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		appMiddleware.RequestID(lgr),
		appMiddleware.RequestLogger(metricsClient),
	)

	appRoutes.SetupRouter(router, deps.Controllers, deps.AuthMiddleware, cfg.Cron.Secret)
	return router, nil
}

// RegisterValidation installs the custom tags on gin's validator
func RegisterValidation() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected gin validator engine %T", binding.Validator.Engine())
	}
	if err := validation.Register(v); err != nil {
		return fmt.Errorf("failed to register validation rules: %w", err)
	}
	return nil
}
