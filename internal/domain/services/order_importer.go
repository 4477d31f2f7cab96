package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/athebyme/gomarket-orders/internal/domain/models"
	"github.com/athebyme/gomarket-orders/internal/utils"
	"github.com/athebyme/gomarket-orders/pkg/interfaces"
)

// UnresolvedPolicy поведение при позициях без товара
type UnresolvedPolicy string

const (
	// UnresolvedAccept заказ создается без ненайденных позиций, они попадают в отчет
	UnresolvedAccept UnresolvedPolicy = "accept"
	// UnresolvedReject заказ с ненайденными позициями не создается и считается неудачным
	UnresolvedReject UnresolvedPolicy = "reject"
)

const (
	defaultWindowDays     = 7
	defaultPublishTimeout = 5 * time.Second
)

// ImporterConfig настройки цикла импорта
type ImporterConfig struct {
	WindowDays       int
	UnresolvedPolicy UnresolvedPolicy
	EventsTopic      string
	PublishTimeout   time.Duration // ожидание публикации одного события
}

// OrderImporter выполняет один цикл импорта заказов маркетплейса
type OrderImporter struct {
	fetcher   OrderFetcher
	store     OrderStore
	detector  *DuplicateDetector
	mapper    *OrderMapper
	publisher interfaces.PublisherPort
	recorder  RunRecorder
	logger    interfaces.LoggerPort
	cfg       ImporterConfig
}

// NewOrderImporter создает новый экземпляр OrderImporter.
// publisher и recorder могут быть nil
func NewOrderImporter(
	fetcher OrderFetcher,
	store OrderStore,
	detector *DuplicateDetector,
	mapper *OrderMapper,
	publisher interfaces.PublisherPort,
	recorder RunRecorder,
	logger interfaces.LoggerPort,
	cfg ImporterConfig,
) *OrderImporter {
	if cfg.WindowDays < 1 {
		cfg.WindowDays = defaultWindowDays
	}
	if cfg.UnresolvedPolicy == "" {
		cfg.UnresolvedPolicy = UnresolvedAccept
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}

	return &OrderImporter{
		fetcher:   fetcher,
		store:     store,
		detector:  detector,
		mapper:    mapper,
		publisher: publisher,
		recorder:  recorder,
		logger:    logger,
		cfg:       cfg,
	}
}

// Window возвращает окно импорта [now - windowDays, now]
func (i *OrderImporter) Window(now time.Time) (time.Time, time.Time) {
	end := now.Truncate(time.Second)
	return end.AddDate(0, 0, -i.cfg.WindowDays), end
}

// RunImportCycle забирает заказы за окно и создает в магазине те, которых еще нет.
// Ошибки отдельных заказов не прерывают цикл, ошибка получения прерывает его без записи
func (i *OrderImporter) RunImportCycle(ctx context.Context, now time.Time) *models.ImportRun {
	start, end := i.Window(now)
	run := models.NewImportRun(start, end)

	log := i.logger.WithFields(
		interfaces.LogField{Key: "run_id", Value: run.ID},
		interfaces.LogField{Key: "window_start", Value: start.Format(models.WindowLayout)},
		interfaces.LogField{Key: "window_end", Value: end.Format(models.WindowLayout)},
	)
	log.InfoWithContext(ctx, "Запуск импорта заказов")

	orders, err := i.fetcher.FetchOrders(ctx, start, end)
	if err != nil {
		run.FailFetch(err)
		log.ErrorWithContext(ctx, run.Message(),
			interfaces.LogField{Key: "error", Value: err.Error()})
		i.finish(ctx, run)
		return run
	}

	run.Fetched = len(orders)
	if len(orders) == 0 {
		run.CompleteEmpty()
		log.InfoWithContext(ctx, run.Message())
		i.finish(ctx, run)
		return run
	}

	for _, src := range orders {
		i.importOne(ctx, log, run, src)
	}

	run.Complete()
	log.InfoWithContext(ctx, run.Message(),
		interfaces.LogField{Key: "fetched", Value: run.Fetched},
		interfaces.LogField{Key: "imported", Value: run.Imported},
		interfaces.LogField{Key: "failed", Value: run.Failed},
		interfaces.LogField{Key: "skipped", Value: len(run.SkippedDuplicates)},
		interfaces.LogField{Key: "unresolved", Value: len(run.UnresolvedItems)},
	)
	i.finish(ctx, run)
	return run
}

// importOne обрабатывает один заказ и обновляет счетчики запуска
func (i *OrderImporter) importOne(ctx context.Context, log interfaces.LoggerPort, run *models.ImportRun, src models.MarketplaceOrder) {
	src.TrimIdentifiers()
	orderLog := log.WithFields(
		interfaces.LogField{Key: "external_order_id", Value: src.OrderID},
		interfaces.LogField{Key: "order_number", Value: src.OrderNumber},
	)

	if src.OrderID != "" {
		exists, err := i.detector.Exists(ctx, src.OrderID)
		if err != nil {
			run.Failed++
			orderLog.ErrorWithContext(ctx, "Ошибка проверки заказа на дубликат",
				interfaces.LogField{Key: "error", Value: err.Error()})
			return
		}
		if exists {
			run.SkipDuplicate(src.OrderID)
			orderLog.DebugWithContext(ctx, "Заказ уже импортирован, пропускаем")
			return
		}
	}

	draft, err := i.mapper.MapToLocalOrder(ctx, src)
	if err != nil {
		run.Failed++
		var mErr *MappingError
		if errors.As(err, &mErr) {
			orderLog.WarnWithContext(ctx, "Заказ не может быть преобразован",
				interfaces.LogField{Key: "error", Value: err.Error()})
		} else {
			orderLog.ErrorWithContext(ctx, "Ошибка преобразования заказа",
				interfaces.LogField{Key: "error", Value: err.Error()})
		}
		return
	}

	// Заказ с тем же номером мог быть создан в магазине вручную
	existing, err := i.store.GetOrderByNumber(ctx, src.OrderNumber)
	if err != nil && !errors.Is(err, utils.ErrOrderNotFound) {
		run.Failed++
		orderLog.ErrorWithContext(ctx, "Ошибка поиска заказа по номеру",
			interfaces.LogField{Key: "error", Value: err.Error()})
		return
	}
	if existing != nil {
		run.SkipDuplicate(src.OrderID)
		orderLog.DebugWithContext(ctx, "Заказ с таким номером уже существует, пропускаем")
		return
	}

	if draft.HasUnresolved() {
		orderLog.WarnWithContext(ctx, "Не найдены товары для позиций заказа",
			interfaces.LogField{Key: "unresolved", Value: len(draft.Unresolved)},
			interfaces.LogField{Key: "policy", Value: string(i.cfg.UnresolvedPolicy)})
		run.UnresolvedItems = append(run.UnresolvedItems, draft.Unresolved...)

		if i.cfg.UnresolvedPolicy == UnresolvedReject {
			run.Failed++
			return
		}
	}

	if err := i.store.CreateOrder(ctx, draft.Order); err != nil {
		if errors.Is(err, utils.ErrOrderAlreadyExists) {
			run.SkipDuplicate(src.OrderID)
			orderLog.DebugWithContext(ctx, "Заказ создан параллельно, пропускаем")
			return
		}
		run.Failed++
		orderLog.ErrorWithContext(ctx, "Ошибка сохранения заказа",
			interfaces.LogField{Key: "error", Value: err.Error()})
		return
	}

	run.Imported++
	orderLog.InfoWithContext(ctx, "Заказ импортирован",
		interfaces.LogField{Key: "order_id", Value: draft.Order.ID})

	i.publish(ctx, draft.Order.ExternalOrderID, models.NewOrderImported(draft.Order))
}

// finish записывает метрики и публикует событие о завершении цикла
func (i *OrderImporter) finish(ctx context.Context, run *models.ImportRun) {
	if i.recorder != nil {
		i.recorder.ObserveRun(run)
	}
	i.publish(ctx, run.ID, models.ImportRunCompleted{
		EventType: models.ImportRunCompletedEvent,
		Run:       run,
	})
}

// publish отправляет событие и ждет подтверждения не дольше PublishTimeout.
// Ошибки только логируются
func (i *OrderImporter) publish(ctx context.Context, key string, event interface{}) {
	if i.publisher == nil || i.cfg.EventsTopic == "" {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		i.logger.ErrorWithContext(ctx, "Ошибка сериализации события",
			interfaces.LogField{Key: "error", Value: err.Error()})
		return
	}

	publishCtx, cancel := context.WithTimeout(ctx, i.cfg.PublishTimeout)
	defer cancel()

	if err := i.publisher.PublishWithKey(publishCtx, i.cfg.EventsTopic, key, payload); err != nil {
		i.logger.WarnWithContext(ctx, "Не удалось опубликовать событие",
			interfaces.LogField{Key: "topic", Value: i.cfg.EventsTopic},
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
}
