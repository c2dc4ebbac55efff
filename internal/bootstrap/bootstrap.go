package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	appControllers "github.com/yigit/exampapers/internal/app/controllers"
	"github.com/yigit/exampapers/internal/app/csvimport"
	appMigrations "github.com/yigit/exampapers/internal/app/migrations"
	appRepos "github.com/yigit/exampapers/internal/app/repositories"
	appRoutes "github.com/yigit/exampapers/internal/app/routes"
	"github.com/yigit/exampapers/internal/app/schedule"
	appServices "github.com/yigit/exampapers/internal/app/services"
	"github.com/yigit/exampapers/internal/config"
	"github.com/yigit/exampapers/internal/db"
	appMiddleware "github.com/yigit/exampapers/internal/middleware"
	pkgAuth "github.com/yigit/exampapers/internal/pkg/auth"
	"github.com/yigit/exampapers/internal/pkg/cache"
	"github.com/yigit/exampapers/internal/pkg/filestorage"
	"github.com/yigit/exampapers/internal/pkg/logger"
	"github.com/yigit/exampapers/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	ExamPaperService     appServices.ExamPaperService
	AssessmentService    appServices.ManualAssessmentService
	ExamPaperController  *appControllers.ExamPaperController
	AssessmentController *appControllers.AssessmentController
	AuthMiddleware       *appMiddleware.AuthMiddleware
	Repos                *appRepos.Repositories
	JWTService           *pkgAuth.JWTService
	Redis                *redis.Client // nil when the preview cache is disabled
	Logger               zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	logger.Configure(logger.Config{
		Level:   logLevel,
		Pretty:  strings.ToLower(cfg.Logging.Format) == "text",
		Service: "exampapers",
	})

	lgr := logger.Get()
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")

	if err := appMiddleware.SetupValidator(); err != nil {
		return nil, lgr, fmt.Errorf("failed to register validation rules: %w", err)
	}
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	dbPool := database.Pool
	lgr.Info().Msg("Database connection successfully established.")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	lgr.Info().Msg("Running database migrations...")
	if err := appMigrations.NewMigrator(dbPool, lgr).Up(ctx); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		dbPool.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	if cfg.Seed.Enabled {
		if err := seed.CreateDefaultData(ctx, dbPool, lgr); err != nil {
			lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
		}
	}

	return dbPool, nil
}

// SetupRedis connects the preview cache backend. It returns nil when the cache is disabled.
func SetupRedis(cfg *config.Config, lgr zerolog.Logger) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		lgr.Info().Msg("Redis disabled, previews are read from the database")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}

	lgr.Info().Str("addr", cfg.Redis.Addr).Msg("Redis connection established")
	return client, nil
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, dbPool *pgxpool.Pool, redisClient *redis.Client, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr, Redis: redisClient}

	deps.Repos = appRepos.NewRepositories(dbPool)

	spool, err := filestorage.NewLocalSpool(cfg.Server.UploadTempDir)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize upload spool")
		return nil, fmt.Errorf("failed to initialize upload spool: %w", err)
	}

	previewCache := cache.Nop()
	if redisClient != nil {
		previewCache = cache.New(cache.NewRedisStore(redisClient), "exampapers", lgr)
	}

	validator := schedule.NewValidator(cfg.ScheduleLocation())

	deps.ExamPaperService = appServices.NewExamPaperService(
		deps.Repos.AssessmentRepository,
		deps.Repos.CourseRepository,
		csvimport.NewParser(nil, lgr),
		validator,
		spool,
		previewCache,
		cfg.Redis.PreviewTTL,
	)
	deps.AssessmentService = appServices.NewManualAssessmentService(
		deps.Repos.AssessmentRepository,
		deps.Repos.CourseRepository,
		validator,
		previewCache,
	)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:   cfg.JWT.Secret,
		TokenIssuer: cfg.JWT.Issuer,
	})
	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	deps.ExamPaperController = appControllers.NewExamPaperController(deps.ExamPaperService, cfg.MaxUploadBytes())
	deps.AssessmentController = appControllers.NewAssessmentController(deps.AssessmentService)

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(appMiddleware.Recovery(), appMiddleware.RequestLogger())
	// multipart parts beyond this are spooled to disk by net/http
	router.MaxMultipartMemory = 8 << 20

	appRoutes.SetupSwagger(router)
	appRoutes.SetupRouter(router,
		deps.ExamPaperController,
		deps.AssessmentController,
		deps.AuthMiddleware,
	)

	return router
}
