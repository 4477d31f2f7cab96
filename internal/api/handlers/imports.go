package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/athebyme/gomarket-orders/internal/domain/models"
	"github.com/athebyme/gomarket-orders/internal/utils"
	"github.com/athebyme/gomarket-orders/pkg/interfaces"
)

// ImportController управление циклами импорта и расписанием
type ImportController interface {
	RunNow(ctx context.Context) (*models.ImportRun, error)
	LastRun(ctx context.Context) (*models.ImportRun, error)
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	IsEnabled() bool
	IsRunning() bool
	NextRunAt() time.Time
}

// ImportHandler обработчик запросов управления импортом
type ImportHandler struct {
	controller ImportController
	logger     interfaces.LoggerPort
}

// NewImportHandler создает новый обработчик импорта
func NewImportHandler(controller ImportController, logger interfaces.LoggerPort) *ImportHandler {
	return &ImportHandler{
		controller: controller,
		logger:     logger,
	}
}

// importRunView отчет о цикле импорта для API
type importRunView struct {
	*models.ImportRun
	Message string `json:"message"`
}

// scheduleView состояние планировщика
type scheduleView struct {
	Enabled   bool       `json:"enabled"`
	Running   bool       `json:"running"`
	NextRunAt *time.Time `json:"next_run_at,omitempty"`
}

// RunImport запускает цикл импорта и возвращает его итог
func (h *ImportHandler) RunImport(w http.ResponseWriter, r *http.Request) {
	run, err := h.controller.RunNow(r.Context())
	if err != nil {
		if errors.Is(err, utils.ErrRunInProgress) {
			writeError(w, r, http.StatusConflict, "conflict", "Импорт уже выполняется")
			return
		}
		h.logger.ErrorWithContext(r.Context(), "Ошибка ручного запуска импорта",
			interfaces.LogField{Key: "error", Value: err.Error()})
		writeError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка запуска импорта")
		return
	}

	status := http.StatusOK
	if run.Outcome == models.ImportOutcomeFetchError {
		status = http.StatusBadGateway
	}
	writeData(w, r, status, importRunView{ImportRun: run, Message: run.Message()}, nil)
}

// GetLastRun возвращает итог последнего цикла импорта
func (h *ImportHandler) GetLastRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.controller.LastRun(r.Context())
	if err != nil {
		if errors.Is(err, utils.ErrNoImportRuns) {
			writeError(w, r, http.StatusNotFound, "not_found", "Импорт еще не запускался")
			return
		}
		h.logger.ErrorWithContext(r.Context(), "Ошибка получения последнего запуска",
			interfaces.LogField{Key: "error", Value: err.Error()})
		writeError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка получения последнего запуска")
		return
	}

	writeData(w, r, http.StatusOK, importRunView{ImportRun: run, Message: run.Message()}, nil)
}

// GetSchedule возвращает состояние планировщика
func (h *ImportHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	writeData(w, r, http.StatusOK, h.scheduleState(), nil)
}

// EnableSchedule включает периодический импорт
func (h *ImportHandler) EnableSchedule(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Enable(r.Context()); err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка включения планировщика",
			interfaces.LogField{Key: "error", Value: err.Error()})
		writeError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка включения планировщика")
		return
	}
	writeData(w, r, http.StatusOK, h.scheduleState(), nil)
}

// DisableSchedule выключает периодический импорт
func (h *ImportHandler) DisableSchedule(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Disable(r.Context()); err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка выключения планировщика",
			interfaces.LogField{Key: "error", Value: err.Error()})
		writeError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка выключения планировщика")
		return
	}
	writeData(w, r, http.StatusOK, h.scheduleState(), nil)
}

func (h *ImportHandler) scheduleState() scheduleView {
	view := scheduleView{
		Enabled: h.controller.IsEnabled(),
		Running: h.controller.IsRunning(),
	}
	if next := h.controller.NextRunAt(); !next.IsZero() {
		view.NextRunAt = &next
	}
	return view
}
