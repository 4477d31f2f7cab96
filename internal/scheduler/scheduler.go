package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/athebyme/gomarket-orders/internal/domain/models"
	"github.com/athebyme/gomarket-orders/internal/utils"
	pkgerrors "github.com/athebyme/gomarket-orders/pkg/errors"
	"github.com/athebyme/gomarket-orders/pkg/interfaces"
)

const (
	// RunLockKey ключ распределенной блокировки цикла импорта
	RunLockKey = "order-import:run-lock"
	// LastRunKey ключ кэша с итогом последнего цикла
	LastRunKey = "order-import:last-run"

	defaultInterval = 24 * time.Hour
	defaultLockTTL  = 30 * time.Minute
)

// Runner выполняет один цикл импорта
type Runner interface {
	RunImportCycle(ctx context.Context, now time.Time) *models.ImportRun
}

// Config настройки планировщика
type Config struct {
	Interval    time.Duration
	RunOnEnable bool
	LockTTL     time.Duration
}

// Scheduler владеет периодическим запуском импорта и гарантирует,
// что одновременно выполняется не больше одного цикла
type Scheduler struct {
	runner Runner
	locker interfaces.LockerPort
	cache  interfaces.CachePort
	logger interfaces.LoggerPort
	cfg    Config
	now    func() time.Time

	mu        sync.Mutex
	enabled   bool
	cancel    context.CancelFunc
	done      chan struct{}
	nextRunAt time.Time
	lastRun   *models.ImportRun

	running atomic.Bool
}

// New создает планировщик. locker и cache могут быть nil,
// тогда блокировка и итог последнего запуска живут только в памяти процесса
func New(runner Runner, locker interfaces.LockerPort, cache interfaces.CachePort, logger interfaces.LoggerPort, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}

	return &Scheduler{
		runner: runner,
		locker: locker,
		cache:  cache,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Enable регистрирует периодический запуск. Повторный вызов ничего не меняет
func (s *Scheduler) Enable(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.enabled {
		return nil
	}

	// Цикл не должен зависеть от контекста запроса, который его включил
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.enabled = true
	s.cancel = cancel
	s.done = make(chan struct{})

	if s.cfg.RunOnEnable {
		s.nextRunAt = s.now()
	} else {
		s.nextRunAt = s.now().Add(s.cfg.Interval)
	}

	go s.runLoop(loopCtx, s.done, s.cfg.RunOnEnable)

	s.logger.InfoWithContext(ctx, "Планировщик импорта включен",
		interfaces.LogField{Key: "interval", Value: s.cfg.Interval.String()},
		interfaces.LogField{Key: "run_on_enable", Value: s.cfg.RunOnEnable},
	)
	return nil
}

// Disable снимает периодический запуск и ждет остановки цикла.
// Цикл импорта, выполняющийся в этот момент, доводится до конца; ctx ограничивает только ожидание
func (s *Scheduler) Disable(ctx context.Context) error {
	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		return nil
	}
	s.enabled = false
	s.nextRunAt = time.Time{}
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	cancel()

	select {
	case <-done:
		s.logger.InfoWithContext(ctx, "Планировщик импорта выключен")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsEnabled включен ли периодический запуск
func (s *Scheduler) IsEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// NextRunAt время следующего запланированного запуска, нулевое если планировщик выключен
func (s *Scheduler) NextRunAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRunAt
}

// IsRunning выполняется ли сейчас цикл импорта в этом процессе
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// RunNow запускает цикл импорта немедленно.
// Отмена ctx не прерывает начатый цикл, из ctx берутся только значения для логов.
// Возвращает utils.ErrRunInProgress, если цикл уже выполняется здесь или в другом процессе
func (s *Scheduler) RunNow(ctx context.Context) (*models.ImportRun, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, utils.ErrRunInProgress
	}
	defer s.running.Store(false)

	ctx = context.WithoutCancel(ctx)

	if s.locker != nil {
		ok, err := s.locker.Lock(ctx, RunLockKey, s.cfg.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire run lock: %w", err)
		}
		if !ok {
			return nil, utils.ErrRunInProgress
		}
		defer func() {
			if err := s.locker.Unlock(ctx, RunLockKey); err != nil {
				s.logger.WarnWithContext(ctx, "Не удалось снять блокировку импорта",
					interfaces.LogField{Key: "error", Value: err.Error()})
			}
		}()
	}

	run := s.runner.RunImportCycle(ctx, s.now())
	s.storeLastRun(ctx, run)
	return run, nil
}

// LastRun возвращает итог последнего цикла импорта
func (s *Scheduler) LastRun(ctx context.Context) (*models.ImportRun, error) {
	if s.cache != nil {
		data, err := s.cache.Get(ctx, LastRunKey)
		switch {
		case err == nil:
			var run models.ImportRun
			if err := json.Unmarshal(data, &run); err != nil {
				return nil, fmt.Errorf("failed to decode last run: %w", err)
			}
			return &run, nil
		case errors.Is(err, pkgerrors.ErrCacheMiss):
		default:
			s.logger.WarnWithContext(ctx, "Ошибка чтения последнего запуска из кэша",
				interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun == nil {
		return nil, utils.ErrNoImportRuns
	}
	run := *s.lastRun
	return &run, nil
}

func (s *Scheduler) storeLastRun(ctx context.Context, run *models.ImportRun) {
	s.mu.Lock()
	s.lastRun = run
	s.mu.Unlock()

	if s.cache == nil {
		return
	}

	data, err := json.Marshal(run)
	if err != nil {
		s.logger.ErrorWithContext(ctx, "Ошибка сериализации итога импорта",
			interfaces.LogField{Key: "error", Value: err.Error()})
		return
	}
	if err := s.cache.Set(ctx, LastRunKey, data, 0); err != nil {
		s.logger.WarnWithContext(ctx, "Не удалось сохранить итог импорта в кэш",
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
}

// runLoop запускает импорт с периодом Interval до отмены контекста
func (s *Scheduler) runLoop(ctx context.Context, done chan struct{}, runFirst bool) {
	defer close(done)

	if runFirst {
		s.trigger(ctx)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.trigger(ctx)
		}
	}
}

// trigger выполняет запланированный запуск и сдвигает время следующего
func (s *Scheduler) trigger(ctx context.Context) {
	s.mu.Lock()
	if s.enabled {
		s.nextRunAt = s.now().Add(s.cfg.Interval)
	}
	s.mu.Unlock()

	run, err := s.RunNow(ctx)
	if err != nil {
		if errors.Is(err, utils.ErrRunInProgress) {
			s.logger.InfoWithContext(ctx, "Импорт уже выполняется, запланированный запуск пропущен")
			return
		}
		s.logger.ErrorWithContext(ctx, "Ошибка запланированного запуска импорта",
			interfaces.LogField{Key: "error", Value: err.Error()})
		return
	}

	s.logger.InfoWithContext(ctx, "Запланированный импорт завершен",
		interfaces.LogField{Key: "run_id", Value: run.ID},
		interfaces.LogField{Key: "outcome", Value: string(run.Outcome)},
		interfaces.LogField{Key: "imported", Value: run.Imported},
	)
}
