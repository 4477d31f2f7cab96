package services

import (
	"context"
	"time"

	"github.com/athebyme/gomarket-orders/internal/domain/models"
)

// OrderFetcher источник заказов маркетплейса
type OrderFetcher interface {
	FetchOrders(ctx context.Context, windowStart, windowEnd time.Time) ([]models.MarketplaceOrder, error)
}

// OrderStore операции бэкенда магазина над заказами.
// CreateOrder возвращает utils.ErrOrderAlreadyExists при нарушении уникальности external_order_id
type OrderStore interface {
	ExistsByExternalID(ctx context.Context, externalOrderID string) (bool, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListOrders(ctx context.Context, offset, limit int) ([]*models.Order, int64, error)
}

// ProductLookup поиск товара магазина по артикулу
type ProductLookup interface {
	FindProductIDBySKU(ctx context.Context, sku string) (string, bool, error)
}

// RunRecorder принимает итоги циклов импорта (метрики)
type RunRecorder interface {
	ObserveRun(run *models.ImportRun)
}
