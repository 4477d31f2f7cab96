package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/athebyme/gomarket-orders/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "order_import"

// ImportMetrics метрики циклов импорта
type ImportMetrics struct {
	runsTotal       *prometheus.CounterVec
	ordersTotal     *prometheus.CounterVec
	unresolvedTotal prometheus.Counter
	runDuration     prometheus.Histogram
	lastRunTime     prometheus.Gauge
}

// NewImportMetrics регистрирует метрики импорта в reg
func NewImportMetrics(reg prometheus.Registerer) *ImportMetrics {
	f := promauto.With(reg)
	return &ImportMetrics{
		runsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Количество циклов импорта по итогу",
		}, []string{"outcome"}),
		ordersTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Количество обработанных заказов по результату",
		}, []string{"result"}),
		unresolvedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unresolved_items_total",
			Help:      "Количество позиций заказов без найденного товара",
		}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Длительность цикла импорта",
			Buckets:   prometheus.DefBuckets,
		}),
		lastRunTime: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Время завершения последнего цикла импорта",
		}),
	}
}

// ObserveRun записывает итоги цикла импорта
func (m *ImportMetrics) ObserveRun(run *models.ImportRun) {
	m.runsTotal.WithLabelValues(string(run.Outcome)).Inc()
	m.ordersTotal.WithLabelValues("imported").Add(float64(run.Imported))
	m.ordersTotal.WithLabelValues("failed").Add(float64(run.Failed))
	m.ordersTotal.WithLabelValues("duplicate").Add(float64(len(run.SkippedDuplicates)))
	m.unresolvedTotal.Add(float64(len(run.UnresolvedItems)))
	m.runDuration.Observe(run.Duration().Seconds())
	if !run.FinishedAt.IsZero() {
		m.lastRunTime.Set(float64(run.FinishedAt.Unix()))
	}
}

// HTTPMetrics метрики HTTP сервера
type HTTPMetrics struct {
	durations      *prometheus.HistogramVec
	requests       *prometheus.CounterVec
	activeRequests prometheus.Gauge
}

// NewHTTPMetrics регистрирует HTTP метрики в reg
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	f := promauto.With(reg)
	return &HTTPMetrics{
		durations: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_durations_seconds",
			Help:    "Длительность HTTP запросов",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method", "status"}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Общее количество HTTP запросов",
		}, []string{"path", "method", "status"}),
		activeRequests: f.NewGauge(prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Количество активных HTTP запросов",
		}),
	}
}

// Middleware считает запросы. Путь берется из шаблона маршрута chi
func (m *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.activeRequests.Inc()
		defer m.activeRequests.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		code := strconv.Itoa(status)

		m.durations.WithLabelValues(path, r.Method, code).Observe(time.Since(start).Seconds())
		m.requests.WithLabelValues(path, r.Method, code).Inc()
	})
}

// WorkerMetrics метрики обработки команд воркером
type WorkerMetrics struct {
	processed *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewWorkerMetrics регистрирует метрики воркера в reg
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	f := promauto.With(reg)
	return &WorkerMetrics{
		processed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_messages_processed_total",
			Help: "Общее количество обработанных сообщений",
		}, []string{"topic", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "worker_message_processing_duration_seconds",
			Help:    "Длительность обработки сообщений",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
	}
}

// ObserveMessage записывает результат обработки одного сообщения
func (m *WorkerMetrics) ObserveMessage(topic string, err error, took time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.processed.WithLabelValues(topic, status).Inc()
	m.duration.WithLabelValues(topic).Observe(took.Seconds())
}
