package initializers

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"net/http"
	_ "net/http/pprof"
	"time"

	"reviewassigner/internal/config"
	"reviewassigner/internal/handlers/mdlwr"
	"reviewassigner/internal/metrics"
	"reviewassigner/internal/migrations"
	"reviewassigner/pkg/assignment"
	"reviewassigner/pkg/cache"
	"reviewassigner/pkg/handlers"
	"reviewassigner/pkg/service"
	"reviewassigner/pkg/storage"
	"reviewassigner/pkg/storage/memory"

	"github.com/codeGROOVE-dev/retry"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func startLogger(levelStr string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)

	return config.Build()
}

const cacheRetryDelay = 500 * time.Millisecond

func withRetry(ctx context.Context, logger *zap.SugaredLogger, what string, attempts uint, delay time.Duration, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.BackOffDelay),
		retry.MaxDelay(30*time.Second),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warnw(what+" not ready", "attempt", n+1, "of", attempts, "err", err)
		}),
	)
}

// startStore возвращает хранилище и функцию закрытия соединений
func startStore(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (storage.Store, func(), error) {
	if cfg.Storage.Driver == config.StorageMemory {
		logger.Infow("using in-memory storage")
		return memory.New(logger), func() {}, nil
	}

	sqlDB, err := sql.Open("pgx", cfg.Storage.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("opening postgres: %w", err)
	}

	err = withRetry(ctx, logger, "postgres", cfg.Storage.ConnectAttempts, cfg.Storage.ConnectDelay, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return sqlDB.PingContext(pingCtx)
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	logger.Infow("connected to postgres")

	if err := migrations.Up(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, nil, err
	}
	logger.Infow("migrations applied")

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("initializing gorm: %w", err)
	}

	closeFn := func() {
		if err := sqlDB.Close(); err != nil {
			logger.Warnw("error closing postgres", "err", err)
		}
	}

	return storage.NewPostgresStore(logger, db), closeFn, nil
}

// startCache - без REDIS_URL кеш выключен. Недоступный на старте Redis не валит сервис:
// сессии просто будут промахиваться, пока он не поднимется.
func startCache(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*cache.Client, error) {
	if cfg.Cache.RedisURL == "" {
		logger.Infow("cache disabled")
		return cache.Disabled(logger), nil
	}

	opts, err := redis.ParseURL(cfg.Cache.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
	}

	rdb := redis.NewClient(opts)

	err = withRetry(ctx, logger, "redis", cfg.Cache.ConnectAttempts, cacheRetryDelay, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, cfg.Cache.ConnectTimeout)
		defer cancel()
		return rdb.Ping(pingCtx).Err()
	})
	if err != nil {
		logger.Warnw("redis unavailable, starting with cache degraded", "err", err)
	} else {
		logger.Infow("connected to redis", "addr", opts.Addr)
	}

	return cache.NewClient(logger, rdb, cfg.Cache.TTL), nil
}

func newEngine(cfg *config.Config, logger *zap.SugaredLogger) *assignment.Engine {
	if cfg.RandomSeed == 0 {
		return assignment.New(logger, nil)
	}
	logger.Infow("using fixed random seed", "seed", cfg.RandomSeed)
	return assignment.New(logger, rand.NewSource(cfg.RandomSeed))
}

// syncOpenPRsGauge - гейдж открытых PR живет в памяти процесса, при старте выставляем его по базе
func syncOpenPRsGauge(ctx context.Context, store storage.Store, logger *zap.SugaredLogger) {
	err := store.Transaction(ctx, func(tx storage.Tx) error {
		counts, err := tx.PullRequests().StatusCounts(ctx)
		if err != nil {
			return err
		}
		metrics.SetOpenPRs(float64(counts.Open))
		return nil
	})
	if err != nil {
		logger.Warnw("couldnt initialize open PRs gauge", "err", err)
	}
}

type Handlers struct {
	Users  *handlers.UserHandler
	Teams  *handlers.TeamHandler
	PRs    *handlers.PullRequestHandler
	Stats  *handlers.StatsHandler
	Health *handlers.HealthHandler
}

func NewHandlers(logger *zap.SugaredLogger, store storage.Store, cacheClient *cache.Client, engine *assignment.Engine) Handlers {
	userService := service.NewUserService(logger, store, cacheClient, engine)
	teamService := service.NewTeamService(logger, store, cacheClient)
	prService := service.NewPullRequestService(logger, store, cacheClient, engine)
	statsService := service.NewStatsService(logger, store, cacheClient)

	return Handlers{
		Users:  handlers.NewUserHandler(logger, userService),
		Teams:  handlers.NewTeamHandler(logger, teamService, userService),
		PRs:    handlers.NewPullRequestHandler(logger, prService),
		Stats:  handlers.NewStatsHandler(logger, statsService),
		Health: handlers.NewHealthHandler(logger, store, cacheClient),
	}
}

func NewRouter(zapLogger *zap.Logger, h Handlers) *gin.Engine {
	router := gin.New()

	router.Use(mdlwr.RequestID())
	router.Use(metrics.GinMiddleware)

	router.Use(ginzap.GinzapWithConfig(zapLogger, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		Skipper: func(c *gin.Context) bool {
			return c.Request.URL.Path == "/health" && c.Request.Method == http.MethodGet
		},
		Context: func(c *gin.Context) []zapcore.Field {
			return []zapcore.Field{zap.String("request_id", mdlwr.GetRequestID(c))}
		},
	}))

	router.Use(ginzap.RecoveryWithZap(zapLogger, true))

	initUserRoutes(router, h.Users)
	initTeamRoutes(router, h.Teams)
	initPullRequestRoutes(router, h.PRs)
	initServiceRoutes(router, h.Stats, h.Health)

	router.NoRoute(handlers.NoRoute)

	return router
}

func initUserRoutes(router *gin.Engine, userHandler *handlers.UserHandler) {
	usersGroup := router.Group("/users")
	usersGroup.POST("/setIsActive", userHandler.SetIsActive)
	usersGroup.GET("/getReview", userHandler.GetUserReviews)
	usersGroup.POST("/bulkDeactivate", userHandler.BulkDeactivate)
}

func initPullRequestRoutes(router *gin.Engine, pullRequestHandler *handlers.PullRequestHandler) {
	prsGroup := router.Group("/pullRequest")
	prsGroup.POST("/create", pullRequestHandler.CreatePR)
	prsGroup.POST("/merge", pullRequestHandler.Merge)
	prsGroup.POST("/reassign", pullRequestHandler.ReassignPR)
	prsGroup.GET("/get", pullRequestHandler.GetPR)
}

func initTeamRoutes(router *gin.Engine, teamHandler *handlers.TeamHandler) {
	teamsGroup := router.Group("/team")
	teamsGroup.POST("/add", teamHandler.AddTeam)
	teamsGroup.GET("/get", teamHandler.GetTeam)
	teamsGroup.GET("/stats", teamHandler.GetTeamStats)
	teamsGroup.POST("/deactivate", teamHandler.DeactivateTeam)
}

func initServiceRoutes(router *gin.Engine, statsHandler *handlers.StatsHandler, healthHandler *handlers.HealthHandler) {
	router.GET("/stats", statsHandler.GetStats)
	router.GET("/health", healthHandler.Health)
}

// initMetricsServer - метрики и pprof на отдельном порту, наружу не торчат
func initMetricsServer(port string) *http.Server {
	router := gin.New()
	router.GET("/metrics", metrics.Handler())
	router.Any("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))

	return &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}
}
