package logic

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"berean-backend/internal/progress"
)

const metricsNamespace = "berean"

// Metrics holds the process collectors. It also satisfies
// progress.Observer and provides the observer funcs the bible clients take.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	CacheTotal        *prometheus.CounterVec
	ProviderRequests  *prometheus.CounterVec
	PassageFallbacks  *prometheus.CounterVec
	ReadingsCompleted *prometheus.CounterVec
	AchievementsTotal prometheus.Counter
	RemindersSent     *prometheus.CounterVec
}

// NewMetrics registers every collector on a fresh registry, so several
// routers can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		CacheTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "translation_cache_total",
			Help:      "Translation catalog cache lookups by result.",
		}, []string{"result"}),
		ProviderRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "provider_requests_total",
			Help:      "Outbound scripture provider requests.",
		}, []string{"provider", "status"}),
		PassageFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "passage_fallbacks_total",
			Help:      "Passage requests served by a fallback stage.",
		}, []string{"stage"}),
		ReadingsCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "readings_completed_total",
			Help:      "Completion events by section.",
		}, []string{"section"}),
		AchievementsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "achievements_awarded_total",
			Help:      "Achievements earned.",
		}),
		RemindersSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reminders_sent_total",
			Help:      "Reading reminders by delivery status.",
		}, []string{"status"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ReadingCompleted(section progress.Section) {
	label := string(section)
	if label == "" {
		label = "all"
	}
	m.ReadingsCompleted.WithLabelValues(label).Inc()
}

func (m *Metrics) AchievementsAwarded(n int) {
	m.AchievementsTotal.Add(float64(n))
}

func (m *Metrics) CacheResult(result string) {
	m.CacheTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ProviderRequest(provider, status string) {
	m.ProviderRequests.WithLabelValues(provider, status).Inc()
}

func (m *Metrics) PassageFallback(stage string) {
	m.PassageFallbacks.WithLabelValues(stage).Inc()
}

// Middleware records request count and latency keyed by the route
// template, not the raw path.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
