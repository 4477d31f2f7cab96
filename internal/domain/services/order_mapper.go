package services

import (
	"context"
	"fmt"
	"time"

	"github.com/athebyme/gomarket-orders/internal/domain/models"
	"github.com/google/uuid"
)

// MappingError заказ маркетплейса не может быть преобразован в заказ магазина
type MappingError struct {
	ExternalOrderID string
	Field           string
	Reason          string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("cannot map marketplace order %q: field %s %s", e.ExternalOrderID, e.Field, e.Reason)
}

// OrderMapper преобразует заказ маркетплейса в заказ магазина
type OrderMapper struct {
	resolver *ProductResolver
	now      func() time.Time
}

// NewOrderMapper создает новый экземпляр OrderMapper
func NewOrderMapper(resolver *ProductResolver) *OrderMapper {
	return &OrderMapper{
		resolver: resolver,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// MapToLocalOrder строит черновик заказа. Позиции, для которых товар не найден,
// в заказ не попадают и возвращаются в OrderDraft.Unresolved
func (m *OrderMapper) MapToLocalOrder(ctx context.Context, src models.MarketplaceOrder) (*models.OrderDraft, error) {
	src.TrimIdentifiers()
	if src.OrderID == "" {
		return nil, &MappingError{ExternalOrderID: src.OrderID, Field: "order_id", Reason: "is empty"}
	}
	if src.OrderNumber == "" {
		return nil, &MappingError{ExternalOrderID: src.OrderID, Field: "order_number", Reason: "is empty"}
	}

	addr := src.Delivery.Address
	order := &models.Order{
		ID:              uuid.New().String(),
		ExternalOrderID: src.OrderID,
		OrderNumber:     src.OrderNumber,
		Billing: models.BillingAddress{
			FirstName: addr.FirstName,
			LastName:  addr.LastName,
			Address1:  addr.Address,
			City:      addr.City,
			Postcode:  addr.Postcode,
			Country:   addr.Country,
			Email:     src.Buyer.Email,
			Phone:     src.Buyer.Phone,
		},
		Items:     make([]models.OrderItem, 0, len(src.Cart.Items)),
		Total:     src.TotalPrice,
		Status:    models.OrderStatusCompleted,
		CreatedAt: m.now(),
	}

	draft := &models.OrderDraft{Order: order}

	for _, item := range src.Cart.Items {
		productID, found, err := m.resolver.Resolve(ctx, item.Offer.ID)
		if err != nil {
			return nil, err
		}
		if !found {
			draft.Unresolved = append(draft.Unresolved, models.UnresolvedItem{
				ExternalOrderID: src.OrderID,
				OfferID:         item.Offer.ID,
				Quantity:        item.Quantity,
			})
			continue
		}

		order.Items = append(order.Items, models.OrderItem{
			ProductID: productID,
			Quantity:  item.Quantity,
		})
	}

	return draft, nil
}
