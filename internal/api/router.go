package api

import (
	"net/http"
	"time"

	"github.com/athebyme/gomarket-orders/internal/adapters/metrics"
	"github.com/athebyme/gomarket-orders/internal/api/handlers"
	"github.com/athebyme/gomarket-orders/internal/api/middleware"
	"github.com/athebyme/gomarket-orders/pkg/auth"
	"github.com/athebyme/gomarket-orders/pkg/interfaces"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterConfig параметры HTTP слоя
type RouterConfig struct {
	AdminRole          string
	CORSAllowedOrigins []string
	RateLimit          int
	RateWindow         time.Duration
	RequestTimeout     time.Duration
}

// SetupRouter настраивает маршрутизатор административного API
func SetupRouter(
	imports handlers.ImportController,
	orders handlers.OrderReader,
	checks map[string]handlers.Pinger,
	authenticator interfaces.AuthPort,
	logger interfaces.LoggerPort,
	httpMetrics *metrics.HTTPMetrics,
	gatherer prometheus.Gatherer,
	cfg RouterConfig,
) *chi.Mux {
	r := chi.NewRouter()

	// Глобальные middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	if httpMetrics != nil {
		r.Use(httpMetrics.Middleware)
	}
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RateLimiter(cfg.RateLimit, cfg.RateWindow))

	healthHandler := handlers.NewHealthHandler(checks, logger)
	r.Get("/health", healthHandler.Health)
	r.Head("/health", healthHandler.Health)

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
		}
		r.Use(auth.AuthMiddleware(authenticator, logger))
		r.Use(auth.RequireRole(cfg.AdminRole))

		importHandler := handlers.NewImportHandler(imports, logger)
		orderHandler := handlers.NewOrderHandler(orders, logger)

		r.Route("/imports", func(r chi.Router) {
			r.Post("/run", importHandler.RunImport)
			r.Get("/last", importHandler.GetLastRun)
		})

		r.Route("/schedule", func(r chi.Router) {
			r.Get("/", importHandler.GetSchedule)
			r.Post("/enable", importHandler.EnableSchedule)
			r.Post("/disable", importHandler.DisableSchedule)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orderHandler.ListOrders)
			r.Get("/{number}", orderHandler.GetOrder)
		})
	})

	return r
}

// NewServer создает HTTP сервер с таймаутами из конфигурации
func NewServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       2 * writeTimeout,
	}
}
