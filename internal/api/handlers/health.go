package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/athebyme/gomarket-orders/pkg/interfaces"
	"github.com/go-chi/render"
)

const healthCheckTimeout = 2 * time.Second

// Pinger зависимость, доступность которой проверяет /health
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler проверка живости сервиса и его зависимостей
type HealthHandler struct {
	checks map[string]Pinger
	logger interfaces.LoggerPort
}

// NewHealthHandler создает обработчик. checks может быть пустым
func NewHealthHandler(checks map[string]Pinger, logger interfaces.LoggerPort) *HealthHandler {
	return &HealthHandler{checks: checks, logger: logger}
}

// Health возвращает 200, если все зависимости доступны, иначе 503
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := http.StatusOK
	result := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			h.logger.WarnWithContext(r.Context(), "Зависимость недоступна",
				interfaces.LogField{Key: "dependency", Value: name},
				interfaces.LogField{Key: "error", Value: err.Error()})
			result[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		result[name] = "ok"
	}

	if r.Method == http.MethodHead {
		w.WriteHeader(status)
		return
	}

	render.Status(r, status)
	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusText(status),
		"checks": result,
	})
}
