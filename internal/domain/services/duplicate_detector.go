package services

import (
	"context"
	"fmt"
)

// DuplicateDetector определяет, был ли заказ маркетплейса уже импортирован.
// Ключ идентичности один: order_id маркетплейса, он же external_order_id локального заказа
type DuplicateDetector struct {
	store OrderStore
}

// NewDuplicateDetector создает новый экземпляр DuplicateDetector
func NewDuplicateDetector(store OrderStore) *DuplicateDetector {
	return &DuplicateDetector{store: store}
}

// Exists проверяет наличие локального заказа с данным внешним идентификатором
func (d *DuplicateDetector) Exists(ctx context.Context, externalOrderID string) (bool, error) {
	exists, err := d.store.ExistsByExternalID(ctx, externalOrderID)
	if err != nil {
		return false, fmt.Errorf("failed to check order %s: %w", externalOrderID, err)
	}
	return exists, nil
}
