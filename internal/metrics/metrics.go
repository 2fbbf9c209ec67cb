package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.DefaultRegisterer

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by path/method/code.",
		},
		[]string{"path", "method", "code"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests by path/method/code.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "code"},
	)

	prEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pr_events_total",
			Help: "Service operations by op and result with error label.",
		},
		[]string{"op", "result", "error"},
	)

	prDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pr_operation_duration_seconds",
			Help:    "Duration of service operations by op and result.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op", "result"},
	)

	openPRs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "open_prs",
			Help: "Approximate number of open PRs maintained by app flow.",
		},
	)

	reviewerSwaps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewer_swaps_total",
			Help: "Reviewer replacements by reason (reassign, deactivation) and outcome (swapped, dropped).",
		},
		[]string{"reason", "outcome"},
	)

	cacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Cache operations by op and result (hit, miss, ok, error, unavailable).",
		},
		[]string{"op", "result"},
	)
)

func GinMiddleware(c *gin.Context) {
	start := time.Now()
	c.Next()
	code := strconv.Itoa(c.Writer.Status())
	path := c.FullPath()

	// на случаи 404, потому что иначе не записывалось бы
	if path == "" {
		path = c.Request.URL.Path
	}

	if path == "/metrics" || strings.HasPrefix(path, "/debug/pprof/") {
		return
	}

	method := c.Request.Method

	httpRequests.WithLabelValues(path, method, code).Inc()
	httpDuration.WithLabelValues(path, method, code).Observe(time.Since(start).Seconds())
}

func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func ObservePROp(op string, start time.Time, err error) {
	result := "success"
	errLabel := ""
	if err != nil {
		result = "error"
		errLabel = err.Error()
	}
	prEvents.WithLabelValues(op, result, errLabel).Inc()
	prDuration.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
}

func AddOpenPR(delta float64) {
	openPRs.Add(delta)
}

func ObserveSwap(reason string, dropped bool) {
	outcome := "swapped"
	if dropped {
		outcome = "dropped"
	}
	reviewerSwaps.WithLabelValues(reason, outcome).Inc()
}

func ObserveCache(op, result string) {
	cacheRequests.WithLabelValues(op, result).Inc()
}

func init() {
	collectors := []prometheus.Collector{
		httpRequests,
		httpDuration,
		prEvents,
		prDuration,
		openPRs,
		reviewerSwaps,
		cacheRequests,
	}

	for _, c := range collectors {
		_ = registry.Register(c)
	}
}

// SetOpenPRs - стартовое значение гейджа, берется из хранилища при запуске
func SetOpenPRs(n float64) {
	openPRs.Set(n)
}
