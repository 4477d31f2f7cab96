package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ImportOutcome итог цикла импорта
type ImportOutcome string

const (
	ImportOutcomeSuccess    ImportOutcome = "success"
	ImportOutcomeEmpty      ImportOutcome = "empty"
	ImportOutcomeFetchError ImportOutcome = "fetch_error"
)

// WindowLayout формат границ окна в отчетах и запросах к маркетплейсу
const WindowLayout = "2006-01-02 15:04:05"

// ImportRun результат одного цикла импорта. Живет в памяти в пределах одного запуска
type ImportRun struct {
	ID                string           `json:"id"`
	WindowStart       time.Time        `json:"window_start"`
	WindowEnd         time.Time        `json:"window_end"`
	Outcome           ImportOutcome    `json:"outcome"`
	Fetched           int              `json:"fetched"`
	Imported          int              `json:"imported"`
	Failed            int              `json:"failed"`
	SkippedDuplicates []string         `json:"skipped_duplicates,omitempty"`
	UnresolvedItems   []UnresolvedItem `json:"unresolved_items,omitempty"`
	Error             string           `json:"error,omitempty"`
	StartedAt         time.Time        `json:"started_at"`
	FinishedAt        time.Time        `json:"finished_at"`
}

// NewImportRun создает запуск для окна [start, end]
func NewImportRun(start, end time.Time) *ImportRun {
	return &ImportRun{
		ID:          uuid.New().String(),
		WindowStart: start,
		WindowEnd:   end,
		StartedAt:   time.Now().UTC(),
	}
}

// SkipDuplicate отмечает заказ, который уже был импортирован
func (r *ImportRun) SkipDuplicate(externalOrderID string) {
	r.SkippedDuplicates = append(r.SkippedDuplicates, externalOrderID)
}

// Complete завершает запуск с итогом success
func (r *ImportRun) Complete() {
	r.Outcome = ImportOutcomeSuccess
	r.FinishedAt = time.Now().UTC()
}

// CompleteEmpty завершает запуск без заказов
func (r *ImportRun) CompleteEmpty() {
	r.Outcome = ImportOutcomeEmpty
	r.FinishedAt = time.Now().UTC()
}

// FailFetch завершает запуск ошибкой получения заказов
func (r *ImportRun) FailFetch(err error) {
	r.Outcome = ImportOutcomeFetchError
	r.Imported = 0
	if err != nil {
		r.Error = err.Error()
	}
	r.FinishedAt = time.Now().UTC()
}

// Duration длительность запуска
func (r *ImportRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Message человекочитаемый отчет о запуске
func (r *ImportRun) Message() string {
	switch r.Outcome {
	case ImportOutcomeSuccess:
		msg := fmt.Sprintf("Импорт завершен. Импортировано %d заказов.", r.Imported)
		if r.Failed > 0 {
			msg += fmt.Sprintf(" Не удалось импортировать: %d.", r.Failed)
		}
		if len(r.UnresolvedItems) > 0 {
			msg += fmt.Sprintf(" Позиций без товара: %d.", len(r.UnresolvedItems))
		}
		return msg
	case ImportOutcomeEmpty:
		return "Нет доступных заказов для импорта."
	case ImportOutcomeFetchError:
		return "Ошибка при получении заказов с маркетплейса."
	default:
		return "Импорт не завершен."
	}
}
