package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/athebyme/gomarket-orders/internal/domain/models"
	"github.com/athebyme/gomarket-orders/internal/utils"
	"github.com/athebyme/gomarket-orders/pkg/tx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation код ошибки PostgreSQL при нарушении уникального индекса
const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id         TEXT PRIMARY KEY,
	sku        TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS orders (
	id                 UUID PRIMARY KEY,
	external_order_id  TEXT NOT NULL,
	order_number       TEXT NOT NULL,
	billing_first_name TEXT NOT NULL DEFAULT '',
	billing_last_name  TEXT NOT NULL DEFAULT '',
	billing_address_1  TEXT NOT NULL DEFAULT '',
	billing_city       TEXT NOT NULL DEFAULT '',
	billing_postcode   TEXT NOT NULL DEFAULT '',
	billing_country    TEXT NOT NULL DEFAULT '',
	billing_email      TEXT NOT NULL DEFAULT '',
	billing_phone      TEXT NOT NULL DEFAULT '',
	total              NUMERIC(14, 2) NOT NULL,
	status             TEXT NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS orders_external_order_id_uq ON orders (external_order_id);
CREATE INDEX IF NOT EXISTS orders_order_number_idx ON orders (order_number);

CREATE TABLE IF NOT EXISTS order_items (
	id         BIGSERIAL PRIMARY KEY,
	order_id   UUID NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
	product_id TEXT NOT NULL,
	quantity   INT NOT NULL
);

CREATE INDEX IF NOT EXISTS order_items_order_id_idx ON order_items (order_id);
`

const orderColumns = `
	id, external_order_id, order_number,
	billing_first_name, billing_last_name, billing_address_1, billing_city,
	billing_postcode, billing_country, billing_email, billing_phone,
	total, status, created_at`

// OrderStorage хранилище заказов магазина в PostgreSQL
type OrderStorage struct {
	pool      *pgxpool.Pool
	txManager tx.TxManager
}

// NewOrderStorage создает хранилище поверх пула соединений
func NewOrderStorage(ctx context.Context, pool *pgxpool.Pool, txManager tx.TxManager) (*OrderStorage, error) {
	if pool == nil {
		return nil, errors.New("pool is nil")
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &OrderStorage{
		pool:      pool,
		txManager: txManager,
	}, nil
}

// EnsureSchema создает таблицы и индексы, если их еще нет
func (s *OrderStorage) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// Ping проверяет соединение с БД
func (s *OrderStorage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close закрывает соединение с БД
func (s *OrderStorage) Close() error {
	s.pool.Close()
	return nil
}

type executor interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// getExecutor возвращает исполнителя запросов (транзакцию или пул)
func (s *OrderStorage) getExecutor(ctx context.Context) executor {
	if t, ok := tx.GetTxFromContext(ctx); ok {
		return t
	}
	return s.pool
}

// ExistsByExternalID проверяет наличие заказа с данным идентификатором маркетплейса
func (s *OrderStorage) ExistsByExternalID(ctx context.Context, externalOrderID string) (bool, error) {
	var exists bool
	err := s.getExecutor(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE external_order_id = $1)`,
		externalOrderID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check order existence: %w", err)
	}
	return exists, nil
}

// CreateOrder сохраняет заказ вместе с позициями в одной транзакции.
// Нарушение уникальности external_order_id возвращается как utils.ErrOrderAlreadyExists
func (s *OrderStorage) CreateOrder(ctx context.Context, order *models.Order) error {
	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		ex := s.getExecutor(ctx)
		b := order.Billing

		_, err := ex.Exec(ctx, `
			INSERT INTO orders (`+orderColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`, order.ID, order.ExternalOrderID, order.OrderNumber,
			b.FirstName, b.LastName, b.Address1, b.City, b.Postcode, b.Country, b.Email, b.Phone,
			order.Total, string(order.Status), order.CreatedAt)
		if err != nil {
			return err
		}

		for _, item := range order.Items {
			_, err = ex.Exec(ctx, `
				INSERT INTO order_items (order_id, product_id, quantity)
				VALUES ($1, $2, $3)
			`, order.ID, item.ProductID, item.Quantity)
			if err != nil {
				return fmt.Errorf("insert item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return utils.ErrOrderAlreadyExists
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetOrderByNumber возвращает заказ по номеру или utils.ErrOrderNotFound
func (s *OrderStorage) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	ex := s.getExecutor(ctx)

	order, err := scanOrder(ex.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_number = $1 ORDER BY created_at LIMIT 1`,
		orderNumber,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, utils.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	items, err := s.loadItems(ctx, ex, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}

// ListOrders возвращает страницу заказов, новые первыми, и общее количество
func (s *OrderStorage) ListOrders(ctx context.Context, offset, limit int) ([]*models.Order, int64, error) {
	ex := s.getExecutor(ctx)

	var total int64
	if err := ex.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	if total == 0 {
		return []*models.Order{}, 0, nil
	}

	rows, err := ex.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := make([]*models.Order, 0, limit)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("failed to scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error while iterating order rows: %w", err)
	}

	for _, order := range orders {
		items, err := s.loadItems(ctx, ex, order.ID)
		if err != nil {
			return nil, 0, err
		}
		order.Items = items
	}

	return orders, total, nil
}

// FindProductIDBySKU ищет товар магазина по артикулу
func (s *OrderStorage) FindProductIDBySKU(ctx context.Context, sku string) (string, bool, error) {
	var productID string
	err := s.getExecutor(ctx).QueryRow(ctx,
		`SELECT id FROM products WHERE sku = $1`, sku,
	).Scan(&productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to find product by sku: %w", err)
	}
	return productID, true, nil
}

func (s *OrderStorage) loadItems(ctx context.Context, ex executor, orderID string) ([]models.OrderItem, error) {
	rows, err := ex.Query(ctx,
		`SELECT product_id, quantity FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := make([]models.OrderItem, 0)
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ProductID, &it.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error while iterating order items: %w", err)
	}
	return items, nil
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var (
		o      models.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.ExternalOrderID, &o.OrderNumber,
		&o.Billing.FirstName, &o.Billing.LastName, &o.Billing.Address1, &o.Billing.City,
		&o.Billing.Postcode, &o.Billing.Country, &o.Billing.Email, &o.Billing.Phone,
		&o.Total, &status, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = models.OrderStatus(status)
	return &o, nil
}
