package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chorewheel",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served, by route pattern and status code.",
	}, []string{"method", "route", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chorewheel",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	rateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chorewheel",
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter, by route pattern.",
	}, []string{"route"})

	generatorRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chorewheel",
		Subsystem: "generator",
		Name:      "runs_total",
		Help:      "Assignment generator runs by result.",
	}, []string{"result"})

	generatorInserted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chorewheel",
		Subsystem: "generator",
		Name:      "assignments_inserted_total",
		Help:      "Assignments inserted by successful generator runs.",
	})

	assignmentsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chorewheel",
		Subsystem: "assignments",
		Name:      "created_total",
		Help:      "Assignments inserted by batch insert.",
	})

	nextAssigneeLookups = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chorewheel",
		Subsystem: "fairness",
		Name:      "next_assignee_lookups_total",
		Help:      "Next-assignee procedure calls served.",
	})

	remoteDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chorewheel",
		Subsystem: "remote",
		Name:      "request_duration_seconds",
		Help:      "Latency of client calls to the data service, by operation and outcome.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op", "result"})

	pushSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chorewheel",
		Subsystem: "push",
		Name:      "notifications_total",
		Help:      "Web push deliveries by notification type and result.",
	}, []string{"type", "result"})

	websocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chorewheel",
		Subsystem: "websocket",
		Name:      "clients",
		Help:      "Currently connected WebSocket clients.",
	})
)

func init() {
	prometheus.MustRegister(
		httpRequests, httpDuration, rateLimited,
		generatorRuns, generatorInserted, assignmentsCreated, nextAssigneeLookups,
		remoteDuration, pushSent, websocketClients,
	)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest observes one served request. An empty route is recorded as "unmatched".
func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func RecordRateLimited(route string) {
	if route == "" {
		route = "unmatched"
	}
	rateLimited.WithLabelValues(route).Inc()
}

// RecordGeneratorRun counts a generator run and the rows the service inserted for it.
func RecordGeneratorRun(err error, inserted int) {
	generatorRuns.WithLabelValues(result(err)).Inc()
	if err == nil && inserted > 0 {
		generatorInserted.Add(float64(inserted))
	}
}

// RecordAssignmentsCreated counts rows inserted by the service's batch insert.
func RecordAssignmentsCreated(n int) {
	if n > 0 {
		assignmentsCreated.Add(float64(n))
	}
}

func RecordNextAssigneeLookup() {
	nextAssigneeLookups.Inc()
}

// RecordRemoteCall observes a client call to the data service.
func RecordRemoteCall(op string, err error, d time.Duration) {
	remoteDuration.WithLabelValues(op, result(err)).Observe(d.Seconds())
}

func RecordPush(notifType string, err error) {
	pushSent.WithLabelValues(notifType, result(err)).Inc()
}

func WebSocketConnected() {
	websocketClients.Inc()
}

func WebSocketDisconnected() {
	websocketClients.Dec()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
