package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/athebyme/gomarket-orders/internal/domain/models"
	"github.com/athebyme/gomarket-orders/internal/utils"
	"github.com/athebyme/gomarket-orders/pkg/interfaces"
	pkgutils "github.com/athebyme/gomarket-orders/pkg/utils"
	"github.com/go-chi/chi/v5"
)

// OrderReader чтение импортированных заказов
type OrderReader interface {
	GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListOrders(ctx context.Context, offset, limit int) ([]*models.Order, int64, error)
}

// OrderHandler обработчик запросов для заказов
type OrderHandler struct {
	orders OrderReader
	logger interfaces.LoggerPort
}

// NewOrderHandler создает новый обработчик заказов
func NewOrderHandler(orders OrderReader, logger interfaces.LoggerPort) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		logger: logger,
	}
}

// ListOrders обрабатывает запрос на получение списка заказов
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	pagination := pkgutils.ParsePagination(r.URL.Query().Get("page"), r.URL.Query().Get("page_size"))

	orders, total, err := h.orders.ListOrders(r.Context(), pagination.GetOffset(), pagination.GetLimit())
	if err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка получения списка заказов",
			interfaces.LogField{Key: "error", Value: err.Error()})
		writeError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка получения списка заказов")
		return
	}

	pagination.SetTotal(total)

	writeData(w, r, http.StatusOK, orders, map[string]interface{}{
		"pagination": pagination,
	})
}

// GetOrder обрабатывает запрос на получение заказа по номеру
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	if number == "" {
		writeError(w, r, http.StatusBadRequest, "bad_request", "Номер заказа не указан")
		return
	}

	order, err := h.orders.GetOrderByNumber(r.Context(), number)
	if err != nil {
		if errors.Is(err, utils.ErrOrderNotFound) {
			writeError(w, r, http.StatusNotFound, "not_found", "Заказ не найден")
			return
		}
		h.logger.ErrorWithContext(r.Context(), "Ошибка получения заказа",
			interfaces.LogField{Key: "order_number", Value: number},
			interfaces.LogField{Key: "error", Value: err.Error()})
		writeError(w, r, http.StatusInternalServerError, "internal_error", "Ошибка получения заказа")
		return
	}

	writeData(w, r, http.StatusOK, order, nil)
}
