package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal - общее количество запросов
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Общее количество HTTP запросов",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration - длительность запросов
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Длительность HTTP запросов в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// RequestsInFlight - количество запросов в обработке
	RequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Текущее количество запросов в обработке",
		},
	)

	// NotificationsTotal - отправленные уведомления по видам и результатам
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Количество уведомлений по виду и результату отправки",
		},
		[]string{"kind", "status"},
	)

	// TelemetryPollsTotal - выполненные циклы опроса телеметрии
	TelemetryPollsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "telemetry_polls_total",
			Help: "Количество завершенных циклов опроса телеметрии",
		},
	)

	// TelemetryPollDuration - длительность цикла опроса телеметрии
	TelemetryPollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "telemetry_poll_duration_seconds",
			Help:    "Длительность полного цикла опроса телеметрии в секундах",
			Buckets: prometheus.DefBuckets,
		},
	)

	// SafesPolled - количество сейфов в последнем цикле опроса
	SafesPolled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "telemetry_safes_polled",
			Help: "Количество сейфов, опрошенных в последнем цикле",
		},
	)
)

// PrometheusMiddleware собирает метрики для HTTP запросов
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		RequestsInFlight.Inc()
		defer RequestsInFlight.Dec()

		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()

		status := strconv.Itoa(c.Writer.Status())
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}

		RequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(duration)
	}
}

// TrackNotification учитывает результат отправки уведомления
func TrackNotification(kind, status string) {
	NotificationsTotal.WithLabelValues(kind, status).Inc()
}

// TrackTelemetryPoll учитывает завершенный цикл опроса телеметрии
func TrackTelemetryPoll(safesPolled int, duration time.Duration) {
	TelemetryPollsTotal.Inc()
	TelemetryPollDuration.Observe(duration.Seconds())
	SafesPolled.Set(float64(safesPolled))
}
