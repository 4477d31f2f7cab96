package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus статус заказа в магазине
type OrderStatus string

const (
	// OrderStatusCompleted статус, с которым создаются импортированные заказы
	OrderStatusCompleted OrderStatus = "completed"
)

// Order заказ в системе управления заказами магазина
type Order struct {
	ID              string          `json:"id"`
	ExternalOrderID string          `json:"external_order_id"` // order_id маркетплейса, уникален
	OrderNumber     string          `json:"order_number"`
	Billing         BillingAddress  `json:"billing"`
	Items           []OrderItem     `json:"items"`
	Total           decimal.Decimal `json:"total"`
	Status          OrderStatus     `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

// BillingAddress платежный адрес заказа
type BillingAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address_1"`
	City      string `json:"city"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// OrderItem позиция заказа
type OrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// UnresolvedItem позиция корзины, для которой не найден товар магазина
type UnresolvedItem struct {
	ExternalOrderID string `json:"external_order_id"`
	OfferID         string `json:"offer_id"`
	Quantity        int    `json:"quantity"`
}

// OrderDraft результат преобразования заказа маркетплейса, еще не сохраненный.
// Unresolved содержит позиции, не попавшие в заказ
type OrderDraft struct {
	Order      *Order
	Unresolved []UnresolvedItem
}

// HasUnresolved есть ли позиции без товара
func (d *OrderDraft) HasUnresolved() bool {
	return len(d.Unresolved) > 0
}
