package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MarketplaceOrder представляет заказ в формате API маркетплейса.
// Используется только для чтения, в нашей системе не хранится
type MarketplaceOrder struct {
	OrderID     string          `json:"order_id"`     // Идентификатор заказа в маркетплейсе, ключ идемпотентности
	OrderNumber string          `json:"order_number"` // Номер заказа, переносится в локальный заказ
	Buyer       Buyer           `json:"buyer"`
	Delivery    Delivery        `json:"delivery"`
	Cart        Cart            `json:"cart"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// TrimIdentifiers убирает пробелы вокруг идентификатора и номера заказа,
// чтобы " A1" и "A1" давали один ключ идемпотентности
func (o *MarketplaceOrder) TrimIdentifiers() {
	o.OrderID = strings.TrimSpace(o.OrderID)
	o.OrderNumber = strings.TrimSpace(o.OrderNumber)
}

// Buyer контактные данные покупателя
type Buyer struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Delivery информация о доставке
type Delivery struct {
	Address DeliveryAddress `json:"address"`
}

// DeliveryAddress адрес доставки
type DeliveryAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
}

// Cart корзина заказа
type Cart struct {
	Items []CartItem `json:"items"`
}

// CartItem позиция корзины
type CartItem struct {
	Offer    Offer `json:"offer"`
	Quantity int   `json:"quantity"`
}

// Offer предложение маркетплейса. ID совпадает с артикулом (SKU) товара в магазине
type Offer struct {
	ID string `json:"id"`
}

// OrdersResponse ответ метода получения заказов
type OrdersResponse struct {
	Orders []MarketplaceOrder `json:"orders"`
}
