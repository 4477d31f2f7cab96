package services

import (
	"context"
	"errors"
	"testing"

	"github.com/athebyme/gomarket-orders/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuplicateDetector_Exists(t *testing.T) {
	store := newMemoryStore()
	require.NoError(t, store.CreateOrder(context.Background(), &models.Order{
		ID:              "local-1",
		ExternalOrderID: "A1",
		OrderNumber:     "1001",
	}))
	store.existsErr["broken"] = errors.New("timeout")

	detector := NewDuplicateDetector(store)

	exists, err := detector.Exists(context.Background(), "A1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = detector.Exists(context.Background(), "A2")
	require.NoError(t, err)
	assert.False(t, exists)

	// локальный идентификатор не является ключом идентичности
	exists, err = detector.Exists(context.Background(), "local-1")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = detector.Exists(context.Background(), "broken")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.existsErr["broken"])
	assert.Contains(t, err.Error(), "broken")
}
