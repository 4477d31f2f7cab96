package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestImportRun_Message(t *testing.T) {
	tests := []struct {
		name string
		run  func() *ImportRun
		want string
	}{
		{
			name: "success",
			run: func() *ImportRun {
				r := NewImportRun(time.Time{}, time.Time{})
				r.Imported = 3
				r.Complete()
				return r
			},
			want: "Импорт завершен. Импортировано 3 заказов.",
		},
		{
			name: "success with failures and unresolved",
			run: func() *ImportRun {
				r := NewImportRun(time.Time{}, time.Time{})
				r.Imported = 1
				r.Failed = 2
				r.UnresolvedItems = []UnresolvedItem{{ExternalOrderID: "A1", OfferID: "X", Quantity: 1}}
				r.Complete()
				return r
			},
			want: "Импорт завершен. Импортировано 1 заказов. Не удалось импортировать: 2. Позиций без товара: 1.",
		},
		{
			name: "empty",
			run: func() *ImportRun {
				r := NewImportRun(time.Time{}, time.Time{})
				r.CompleteEmpty()
				return r
			},
			want: "Нет доступных заказов для импорта.",
		},
		{
			name: "fetch error",
			run: func() *ImportRun {
				r := NewImportRun(time.Time{}, time.Time{})
				r.FailFetch(errors.New("boom"))
				return r
			},
			want: "Ошибка при получении заказов с маркетплейса.",
		},
		{
			name: "not finished",
			run: func() *ImportRun {
				return NewImportRun(time.Time{}, time.Time{})
			},
			want: "Импорт не завершен.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.run().Message())
		})
	}
}

func TestImportRun_FailFetchResetsImported(t *testing.T) {
	r := NewImportRun(time.Time{}, time.Time{})
	r.Imported = 5
	r.FailFetch(errors.New("unauthorized"))

	assert.Zero(t, r.Imported)
	assert.Equal(t, "unauthorized", r.Error)
	assert.Equal(t, ImportOutcomeFetchError, r.Outcome)
	assert.False(t, r.FinishedAt.IsZero())
	assert.GreaterOrEqual(t, r.Duration(), time.Duration(0))
}

func TestImportRun_Duration(t *testing.T) {
	r := NewImportRun(time.Time{}, time.Time{})
	assert.Zero(t, r.Duration())

	r.FinishedAt = r.StartedAt.Add(2 * time.Second)
	assert.Equal(t, 2*time.Second, r.Duration())
}

func TestImportRun_SkipDuplicate(t *testing.T) {
	r := NewImportRun(time.Time{}, time.Time{})
	r.SkipDuplicate("A1")
	r.SkipDuplicate("A2")

	assert.Equal(t, []string{"A1", "A2"}, r.SkippedDuplicates)
	assert.NotEmpty(t, r.ID)
}
