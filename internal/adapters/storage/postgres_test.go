package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/athebyme/gomarket-orders/internal/adapters/logger"
	"github.com/athebyme/gomarket-orders/internal/domain/models"
	"github.com/athebyme/gomarket-orders/internal/utils"
	"github.com/athebyme/gomarket-orders/pkg/tx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Интеграционные тесты запускаются только при заданном ORDERS_TEST_POSTGRES_DSN
func newTestStorage(t *testing.T) *OrderStorage {
	t.Helper()

	dsn := os.Getenv("ORDERS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ORDERS_TEST_POSTGRES_DSN is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s, err := NewOrderStorage(ctx, pool, tx.NewTxManager(pool, logger.NewNopLogger()))
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema(ctx))

	_, err = pool.Exec(ctx, `TRUNCATE order_items, orders, products`)
	require.NoError(t, err)

	return s
}

func testOrder(externalID, number string, createdAt time.Time, items ...models.OrderItem) *models.Order {
	return &models.Order{
		ID:              uuid.New().String(),
		ExternalOrderID: externalID,
		OrderNumber:     number,
		Billing: models.BillingAddress{
			FirstName: "Иван",
			LastName:  "Петров",
			City:      "Москва",
			Email:     "buyer@example.com",
		},
		Items:     items,
		Total:     decimal.RequireFromString("1500.50"),
		Status:    models.OrderStatusCompleted,
		CreatedAt: createdAt,
	}
}

func TestOrderStorage_CreateAndGet(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	created := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	order := testOrder("A1", "1001", created, models.OrderItem{ProductID: "product-1", Quantity: 2})
	require.NoError(t, s.CreateOrder(ctx, order))

	exists, err := s.ExistsByExternalID(ctx, "A1")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := s.GetOrderByNumber(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	assert.Equal(t, "A1", got.ExternalOrderID)
	assert.Equal(t, order.Billing, got.Billing)
	assert.True(t, order.Total.Equal(got.Total))
	assert.Equal(t, models.OrderStatusCompleted, got.Status)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.Equal(t, order.Items, got.Items)
}

func TestOrderStorage_DuplicateExternalID(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.CreateOrder(ctx, testOrder("A1", "1001", time.Now().UTC())))

	err := s.CreateOrder(ctx, testOrder("A1", "1002", time.Now().UTC(),
		models.OrderItem{ProductID: "product-1", Quantity: 1}))
	assert.ErrorIs(t, err, utils.ErrOrderAlreadyExists)

	_, total, err := s.ListOrders(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestOrderStorage_NotFound(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.GetOrderByNumber(ctx, "missing")
	assert.ErrorIs(t, err, utils.ErrOrderNotFound)

	exists, err := s.ExistsByExternalID(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestOrderStorage_ListOrders(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"A1", "A2", "A3"} {
		require.NoError(t, s.CreateOrder(ctx, testOrder(id, "100"+id, base.Add(time.Duration(i)*time.Hour))))
	}

	page, total, err := s.ListOrders(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, "A3", page[0].ExternalOrderID)
	assert.Equal(t, "A2", page[1].ExternalOrderID)

	page, _, err = s.ListOrders(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "A1", page[0].ExternalOrderID)
}

func TestOrderStorage_FindProductIDBySKU(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.pool.Exec(ctx, `INSERT INTO products (id, sku, name) VALUES ('product-1', 'SKU-1', 'Чайник')`)
	require.NoError(t, err)

	id, found, err := s.FindProductIDBySKU(ctx, "SKU-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "product-1", id)

	_, found, err = s.FindProductIDBySKU(ctx, "SKU-404")
	require.NoError(t, err)
	assert.False(t, found)
}
