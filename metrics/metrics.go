package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "findmenow"

// Metrics holds the Prometheus collectors for the service. A nil *Metrics records nothing.
type Metrics struct {
	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	ReportsSubmitted   *prometheus.CounterVec
	ModerationDecision *prometheus.CounterVec
	LikesToggled       *prometheus.CounterVec
	CommentsAdded      prometheus.Counter
	NotificationErrors prometheus.Counter
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of requests currently being processed",
		}),
		ReportsSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reports_submitted_total",
				Help:      "Reports submitted, by outcome",
			},
			[]string{"outcome"},
		),
		ModerationDecision: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "moderation_decisions_total",
				Help:      "Moderation decisions, by resulting status",
			},
			[]string{"status"},
		),
		LikesToggled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "likes_toggled_total",
				Help:      "Like toggles, by direction",
			},
			[]string{"direction"},
		),
		CommentsAdded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comments_added_total",
			Help:      "Comments added",
		}),
		NotificationErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moderator_notification_errors_total",
			Help:      "Moderator notifications that failed to send",
		}),
	}
}

func (m *Metrics) ReportSubmitted(outcome string) {
	if m == nil {
		return
	}
	m.ReportsSubmitted.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Moderated(status string) {
	if m == nil {
		return
	}
	m.ModerationDecision.WithLabelValues(status).Inc()
}

func (m *Metrics) LikeToggled(liked bool) {
	if m == nil {
		return
	}
	direction := "unlike"
	if liked {
		direction = "like"
	}
	m.LikesToggled.WithLabelValues(direction).Inc()
}

func (m *Metrics) CommentAdded() {
	if m == nil {
		return
	}
	m.CommentsAdded.Inc()
}

func (m *Metrics) NotificationFailed() {
	if m == nil {
		return
	}
	m.NotificationErrors.Inc()
}

// Middleware records request count, latency and in-flight requests per route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		m.RequestsInFlight.Inc()
		defer m.RequestsInFlight.Dec()

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
		m.RequestCounter.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
