package handlers

import (
	"context"
	"net/http"

	"reviewassigner/pkg/cache"
	"reviewassigner/pkg/handlers/apidto"
	"reviewassigner/pkg/handlers/apierr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type StatsHandler struct {
	stats  StatsService
	logger *zap.SugaredLogger
}

func NewStatsHandler(logger *zap.SugaredLogger, stats StatsService) *StatsHandler {
	return &StatsHandler{
		stats:  stats,
		logger: logger,
	}
}

func (h *StatsHandler) GetStats(c *gin.Context) {
	stats, err := h.stats.Get(c.Request.Context())
	if err != nil {
		writeErr(c, h.logger, "error getting stats", err)
		return
	}

	c.JSON(http.StatusOK, apidto.FromStats(stats))
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db     Pinger
	cache  *cache.Client
	logger *zap.SugaredLogger
}

func NewHealthHandler(logger *zap.SugaredLogger, db Pinger, cacheClient *cache.Client) *HealthHandler {
	return &HealthHandler{
		db:     db,
		cache:  cacheClient,
		logger: logger,
	}
}

type healthResp struct {
	Status string `json:"status"`
	Cache  string `json:"cache"`
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	cacheState := "disabled"
	if h.cache.Enabled() {
		cacheState = "down"
		if h.cache.Available(ctx) {
			cacheState = "up"
		}
	}

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Errorw("storage ping failed", "err", err)
		c.JSON(http.StatusServiceUnavailable, healthResp{Status: "unavailable", Cache: cacheState})
		return
	}

	c.JSON(http.StatusOK, healthResp{Status: "ok", Cache: cacheState})
}

// NoRoute - неизвестный путь отдаем в том же формате ошибок
func NoRoute(c *gin.Context) {
	apierr.WriteApiErrJSON(c, http.StatusNotFound, apierr.NotFound)
}
