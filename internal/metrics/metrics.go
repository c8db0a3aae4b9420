package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Результаты обращения к кешу действующих политик
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Metrics хранит счётчики сервиса политик в собственном реестре.
// Все методы безопасны для nil-получателя, чтобы сервисы можно было собирать без метрик.
type Metrics struct {
	registry         *prometheus.Registry
	consentsRecorded *prometheus.CounterVec
	resolveCache     *prometheus.CounterVec
	checkStatus      *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
}

// New регистрирует все метрики в новом реестре
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		consentsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "policy_consents_recorded_total",
			Help: "Number of consent submissions appended to the acceptance log.",
		}, []string{"intent"}),
		resolveCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "policy_resolve_cache_total",
			Help: "Effective policy cache lookups by result.",
		}, []string{"result"}),
		checkStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "policy_check_status_total",
			Help: "Consent gate checks by outcome.",
		}, []string{"accepted"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		m.consentsRecorded,
		m.resolveCache,
		m.checkStatus,
		m.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry возвращает реестр (используется в тестах)
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ConsentRecorded учитывает новую запись в журнале согласий
func (m *Metrics) ConsentRecorded(intent string) {
	if m == nil {
		return
	}
	m.consentsRecorded.WithLabelValues(intent).Inc()
}

// ResolveCache учитывает результат обращения к кешу
func (m *Metrics) ResolveCache(result string) {
	if m == nil {
		return
	}
	m.resolveCache.WithLabelValues(result).Inc()
}

// CheckStatus учитывает результат проверки согласия
func (m *Metrics) CheckStatus(accepted bool) {
	if m == nil {
		return
	}
	m.checkStatus.WithLabelValues(strconv.FormatBool(accepted)).Inc()
}

// Handler отдаёт метрики в формате Prometheus
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// GinMiddleware измеряет длительность запросов по шаблону маршрута
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
