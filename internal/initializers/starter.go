package initializers

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"reviewassigner/internal/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func RunPRAssigner(cfg *config.Config) error {
	zapLogger, err := startLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	defer func(zapLogger *zap.Logger) {
		_ = zapLogger.Sync()
	}(zapLogger)

	logger := zapLogger.Sugar()

	if cfg.Environment == config.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := startStore(ctx, cfg, logger)
	if err != nil {
		logger.Errorw("storage init failed", "err", err)
		return err
	}
	defer closeStore()

	cacheClient, err := startCache(ctx, cfg, logger)
	if err != nil {
		logger.Errorw("cache init failed", "err", err)
		return err
	}
	defer func() {
		if err := cacheClient.Close(); err != nil {
			logger.Warnw("error closing cache", "err", err)
		}
	}()

	syncOpenPRsGauge(ctx, store, logger)

	engine := newEngine(cfg, logger)
	router := NewRouter(zapLogger, NewHandlers(logger, store, cacheClient, engine))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}
	metricsSrv := initMetricsServer(cfg.MetricsPort)

	serveErr := make(chan error, 2)

	go func() {
		logger.Infow("Starting main server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	go func() {
		logger.Infow("Starting metrics server", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
		logger.Errorw("server failed", "err", runErr)
	}

	logger.Info("Shutting down the server")

	wg := &sync.WaitGroup{}
	for _, s := range []*http.Server{srv, metricsSrv} {
		wg.Add(1)
		go func(s *http.Server) {
			defer wg.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown)
			defer cancel()
			if err := s.Shutdown(shutdownCtx); err != nil {
				logger.Errorw("the server was forced to shutdown", "addr", s.Addr, "err", err)
			}
		}(s)
	}
	wg.Wait()

	logger.Info("Server exited")
	return runErr
}
