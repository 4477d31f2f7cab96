package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/athebyme/gomarket-orders/internal/adapters/messaging"
	"github.com/athebyme/gomarket-orders/internal/domain/models"
	"github.com/athebyme/gomarket-orders/internal/utils"
	"github.com/athebyme/gomarket-orders/pkg/interfaces"
)

// Controller операции планировщика, доступные через топик команд
type Controller interface {
	RunNow(ctx context.Context) (*models.ImportRun, error)
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
}

// MessageObserver учитывает результат обработки сообщения
type MessageObserver interface {
	ObserveMessage(topic string, err error, took time.Duration)
}

// CommandHandler обрабатывает управляющие команды из Kafka
type CommandHandler struct {
	controller Controller
	observer   MessageObserver
	logger     interfaces.LoggerPort
}

// NewCommandHandler создает обработчик. observer может быть nil
func NewCommandHandler(controller Controller, observer MessageObserver, logger interfaces.LoggerPort) *CommandHandler {
	return &CommandHandler{
		controller: controller,
		observer:   observer,
		logger:     logger,
	}
}

// Handle реализует interfaces.MessageHandler
func (h *CommandHandler) Handle(ctx context.Context, msg *interfaces.Message) error {
	start := time.Now()
	err := h.handle(ctx, msg)
	if h.observer != nil {
		h.observer.ObserveMessage(msg.Topic, err, time.Since(start))
	}
	return err
}

func (h *CommandHandler) handle(ctx context.Context, msg *interfaces.Message) error {
	log := h.logger.WithFields(
		interfaces.LogField{Key: "message_id", Value: msg.ID},
		interfaces.LogField{Key: "topic", Value: msg.Topic},
	)

	cmd, err := messaging.ParseCommand(msg.Value)
	if err != nil {
		log.ErrorWithContext(ctx, "Ошибка декодирования команды",
			interfaces.LogField{Key: "error", Value: err.Error()})
		return err
	}

	log = log.WithField("command_type", cmd.CommandType)
	log.InfoWithContext(ctx, "Получена команда")

	switch cmd.CommandType {
	case messaging.RunImportCommand:
		run, err := h.controller.RunNow(ctx)
		if errors.Is(err, utils.ErrRunInProgress) {
			log.InfoWithContext(ctx, "Импорт уже выполняется, команда пропущена")
			return nil
		}
		if err != nil {
			log.ErrorWithContext(ctx, "Ошибка запуска импорта",
				interfaces.LogField{Key: "error", Value: err.Error()})
			return err
		}
		log.InfoWithContext(ctx, run.Message(),
			interfaces.LogField{Key: "run_id", Value: run.ID})

	case messaging.EnableScheduleCommand:
		if err := h.controller.Enable(ctx); err != nil {
			return fmt.Errorf("enable schedule: %w", err)
		}

	case messaging.DisableScheduleCommand:
		if err := h.controller.Disable(ctx); err != nil {
			return fmt.Errorf("disable schedule: %w", err)
		}

	default:
		log.WarnWithContext(ctx, "Неизвестный тип команды")
		return nil
	}

	return nil
}
