package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/athebyme/gomarket-orders/config"
	"github.com/athebyme/gomarket-orders/internal/adapters/logger"
	"github.com/athebyme/gomarket-orders/internal/adapters/metrics"
	"github.com/athebyme/gomarket-orders/internal/api"
	"github.com/athebyme/gomarket-orders/internal/app"
	"github.com/athebyme/gomarket-orders/internal/security"
	"github.com/athebyme/gomarket-orders/pkg/auth"
	"github.com/athebyme/gomarket-orders/pkg/interfaces"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, err := logger.NewZapLogger(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		fmt.Printf("Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Инициализация сервиса",
		interfaces.LogField{Key: "app_name", Value: cfg.AppName},
		interfaces.LogField{Key: "version", Value: cfg.Version},
		interfaces.LogField{Key: "env", Value: cfg.ENV},
	)

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Ошибка инициализации зависимостей", interfaces.LogField{Key: "error", Value: err.Error()})
	}

	authenticator, err := newAuthenticator(ctx, cfg)
	if err != nil {
		application.Close()
		log.Fatal("Ошибка инициализации аутентификации", interfaces.LogField{Key: "error", Value: err.Error()})
	}

	router := api.SetupRouter(
		application.Scheduler,
		application.Storage,
		application.HealthChecks(),
		authenticator,
		log,
		metrics.NewHTTPMetrics(application.Registry),
		application.Registry,
		api.RouterConfig{
			AdminRole:          cfg.Security.AdminRole,
			CORSAllowedOrigins: cfg.Security.CORSAllowOrigins,
			RateLimit:          cfg.Security.RateLimit,
			RateWindow:         cfg.Security.RateWindow,
			RequestTimeout:     cfg.Server.RequestTimeout,
		},
	)
	log.Info("Маршрутизатор настроен")

	if cfg.Scheduler.Enabled {
		if err := application.Scheduler.Enable(ctx); err != nil {
			log.Error("Ошибка включения планировщика", interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}

	server := api.NewServer(
		fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
	)

	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("Сервер запущен", interfaces.LogField{Key: "address", Value: server.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Ошибка запуска сервера", interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}()

	go func() {
		<-quit
		log.Info("Получен сигнал завершения, выполняется graceful shutdown...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Ошибка при graceful shutdown", interfaces.LogField{Key: "error", Value: err.Error()})
		}
		log.Info("HTTP сервер остановлен")

		application.Shutdown(shutdownCtx)
		close(done)
	}()

	<-done
	log.Info("Сервер корректно завершил работу")
}

// newAuthenticator выбирает проверку токенов: Keycloak или собственный HS256
func newAuthenticator(ctx context.Context, cfg *config.Config) (interfaces.AuthPort, error) {
	if cfg.Keycloak.Enabled {
		return auth.NewKeycloakClient(ctx, cfg.Keycloak.GetKeycloakConfig())
	}
	return security.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.JWTExpiration, cfg.AppName)
}
