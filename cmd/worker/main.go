package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/athebyme/gomarket-orders/config"
	"github.com/athebyme/gomarket-orders/internal/adapters/logger"
	"github.com/athebyme/gomarket-orders/internal/adapters/metrics"
	"github.com/athebyme/gomarket-orders/internal/api/handlers"
	"github.com/athebyme/gomarket-orders/internal/app"
	"github.com/athebyme/gomarket-orders/internal/worker"
	"github.com/athebyme/gomarket-orders/pkg/interfaces"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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

	log.Info("Инициализация воркера",
		interfaces.LogField{Key: "app_name", Value: cfg.AppName + "-worker"},
		interfaces.LogField{Key: "version", Value: cfg.Version},
		interfaces.LogField{Key: "env", Value: cfg.ENV},
	)

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Ошибка инициализации зависимостей", interfaces.LogField{Key: "error", Value: err.Error()})
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = startMetricsServer(cfg.Metrics.Port, application, log)
	}

	if cfg.Scheduler.Enabled {
		if err := application.Scheduler.Enable(ctx); err != nil {
			log.Error("Ошибка включения планировщика", interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}

	var wg sync.WaitGroup
	if application.Messaging != nil {
		handler := worker.NewCommandHandler(application.Scheduler, metrics.NewWorkerMetrics(application.Registry), log)
		subscribeToCommands(ctx, application.Messaging, cfg.Kafka.ConsumerTopic, handler, log, &wg)
	} else {
		log.Warn("Kafka отключена, воркер работает только по расписанию")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Info("Воркер запущен")
	<-quit
	log.Info("Получен сигнал завершения, выполняется graceful shutdown...")

	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Ошибка остановки сервера метрик", interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}
	application.Shutdown(shutdownCtx)

	log.Info("Воркер корректно завершил работу")
}

// startMetricsServer поднимает HTTP сервер с /metrics и /health
func startMetricsServer(port int, application *app.App, log interfaces.LoggerPort) *http.Server {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(application.Registry, promhttp.HandlerOpts{}))
	health := handlers.NewHealthHandler(application.HealthChecks(), log)
	r.Get("/health", health.Health)
	r.Head("/health", health.Health)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("Запуск HTTP сервера для метрик", interfaces.LogField{Key: "addr", Value: server.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Ошибка запуска HTTP сервера для метрик",
				interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}()

	return server
}

// subscribeToCommands подписывается на топик управляющих команд до отмены ctx
func subscribeToCommands(ctx context.Context, messagingClient interfaces.MessagingPort, topic string,
	handler *worker.CommandHandler, log interfaces.LoggerPort, wg *sync.WaitGroup) {

	wg.Add(1)
	go func() {
		defer wg.Done()

		unsubscribe, err := messagingClient.Subscribe(ctx, topic, handler.Handle)
		if err != nil {
			log.Error("Ошибка подписки на команды импорта",
				interfaces.LogField{Key: "topic", Value: topic},
				interfaces.LogField{Key: "error", Value: err.Error()})
			return
		}
		defer func() {
			if err := unsubscribe(); err != nil {
				log.Warn("Ошибка отмены подписки", interfaces.LogField{Key: "error", Value: err.Error()})
			}
		}()

		log.Info("Подписка на команды импорта установлена", interfaces.LogField{Key: "topic", Value: topic})

		<-ctx.Done()
		log.Info("Отмена подписки на команды импорта")
	}()
}
