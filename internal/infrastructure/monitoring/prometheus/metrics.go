package prometheus

import (
	"strconv"
	"time"

	"github.com/turtacn/ChemXGen/internal/domain/task"
)

var (
	DefaultHTTPDurationBuckets    = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultTaskDurationBuckets    = []float64{1, 2, 5, 10, 20, 30, 60, 120, 300}
	DefaultGatewayDurationBuckets = []float64{.5, 1, 2, 5, 10, 20, 30, 60, 120}
)

// AppMetrics holds every ChemXGen metric.  It implements the queue metrics
// sink and the gateway observer.
type AppMetrics struct {
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	TasksSubmittedTotal CounterVec
	TasksFinishedTotal  CounterVec
	TaskDuration        HistogramVec
	TasksInFlight       GaugeVec
	TasksRunning        GaugeVec
	PersistFailures     CounterVec

	GatewayRequestsTotal   CounterVec
	GatewayRequestDuration HistogramVec

	RenderTotal       CounterVec
	CacheAccessTotal  CounterVec
	AuthAttemptsTotal CounterVec
}

func NewAppMetrics(c Collector) *AppMetrics {
	return &AppMetrics{
		HTTPRequestsTotal:   c.Counter("http_requests_total", "HTTP requests by route and status.", "method", "path", "status_code"),
		HTTPRequestDuration: c.Histogram("http_request_duration_seconds", "HTTP request latency.", DefaultHTTPDurationBuckets, "method", "path"),
		HTTPActiveRequests:  c.Gauge("http_active_requests", "Requests currently being served.", "method"),

		TasksSubmittedTotal: c.Counter("tasks_submitted_total", "Tasks accepted by the queue.", "kind"),
		TasksFinishedTotal:  c.Counter("tasks_finished_total", "Tasks reaching a terminal status.", "kind", "status"),
		TaskDuration:        c.Histogram("task_duration_seconds", "Time from submission to terminal status.", DefaultTaskDurationBuckets, "kind"),
		TasksInFlight:       c.Gauge("tasks_in_flight", "Tasks with an outstanding analysis call."),
		TasksRunning:        c.Gauge("tasks_running", "Tasks in running status."),
		PersistFailures:     c.Counter("task_persist_failures_total", "Failed writes of the task list.", "op"),

		GatewayRequestsTotal:   c.Counter("gateway_requests_total", "Prediction gateway calls.", "op", "outcome"),
		GatewayRequestDuration: c.Histogram("gateway_request_duration_seconds", "Prediction gateway latency.", DefaultGatewayDurationBuckets, "op"),

		RenderTotal:       c.Counter("render_total", "Structure renders by mode and state.", "mode", "state"),
		CacheAccessTotal:  c.Counter("cache_access_total", "Cache lookups.", "cache", "result"),
		AuthAttemptsTotal: c.Counter("auth_attempts_total", "Sign-in attempts.", "result"),
	}
}

func (m *AppMetrics) TaskSubmitted(kind task.Kind) {
	m.TasksSubmittedTotal.WithLabelValues(string(kind)).Inc()
}

func (m *AppMetrics) TaskFinished(kind task.Kind, status task.Status, elapsed time.Duration) {
	m.TasksFinishedTotal.WithLabelValues(string(kind), string(status)).Inc()
	m.TaskDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

func (m *AppMetrics) InFlight(n int) { m.TasksInFlight.WithLabelValues().Set(float64(n)) }

func (m *AppMetrics) Running(n int) { m.TasksRunning.WithLabelValues().Set(float64(n)) }

func (m *AppMetrics) PersistFailed(op string) { m.PersistFailures.WithLabelValues(op).Inc() }

func (m *AppMetrics) ObserveGateway(op, outcome string, elapsed time.Duration) {
	m.GatewayRequestsTotal.WithLabelValues(op, outcome).Inc()
	m.GatewayRequestDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *AppMetrics) RecordHTTPRequest(method, path string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func (m *AppMetrics) RecordRender(mode, state string) {
	m.RenderTotal.WithLabelValues(mode, state).Inc()
}

func (m *AppMetrics) RecordCacheAccess(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheAccessTotal.WithLabelValues(cache, result).Inc()
}

func (m *AppMetrics) RecordAuthAttempt(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.AuthAttemptsTotal.WithLabelValues(result).Inc()
}
