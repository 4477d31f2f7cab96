package models

import (
	"github.com/shopspring/decimal"
)

// EventType тип события, публикуемого сервисом импорта
type EventType = string

const (
	OrderImportedEvent      EventType = "order_imported"
	ImportRunCompletedEvent EventType = "import_run_completed"
)

// OrderImported событие о созданном заказе
type OrderImported struct {
	EventType       EventType       `json:"event_type"`
	OrderID         string          `json:"order_id"`
	ExternalOrderID string          `json:"external_order_id"`
	OrderNumber     string          `json:"order_number"`
	Total           decimal.Decimal `json:"total"`
	Items           []OrderItem     `json:"items"`
}

// NewOrderImported собирает событие по созданному заказу
func NewOrderImported(order *Order) OrderImported {
	return OrderImported{
		EventType:       OrderImportedEvent,
		OrderID:         order.ID,
		ExternalOrderID: order.ExternalOrderID,
		OrderNumber:     order.OrderNumber,
		Total:           order.Total,
		Items:           order.Items,
	}
}

// ImportRunCompleted событие о завершении цикла импорта
type ImportRunCompleted struct {
	EventType EventType  `json:"event_type"`
	Run       *ImportRun `json:"run"`
}
