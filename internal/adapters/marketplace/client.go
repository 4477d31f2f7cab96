package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/athebyme/gomarket-orders/internal/domain/models"
	"github.com/athebyme/gomarket-orders/internal/utils"
	"golang.org/x/oauth2"
)

// maxResponseSize максимальный размер ответа API маркетплейса (10MB)
const maxResponseSize = 10 * 1024 * 1024

const defaultTimeout = 30 * time.Second

// FetchError ошибка получения заказов: транспорт, статус не 2xx или тело, которое не удалось разобрать
type FetchError struct {
	StatusCode int
	Cause      error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("marketplace fetch failed with status %d: %v", e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("marketplace fetch failed: %v", e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Config настройки клиента маркетплейса
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client клиент API заказов маркетплейса
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// NewClient создает клиента. Bearer токен подставляется транспортом oauth2
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid marketplace base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid marketplace base url %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cfg.APIKey,
		TokenType:   "Bearer",
	}))
	httpClient.Timeout = timeout

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
	}, nil
}

// FetchOrders возвращает заказы, созданные в окне [windowStart, windowEnd].
// Пустой список без ошибки означает, что заказов нет
func (c *Client) FetchOrders(ctx context.Context, windowStart, windowEnd time.Time) ([]models.MarketplaceOrder, error) {
	if windowStart.After(windowEnd) {
		return nil, utils.ErrInvalidWindow
	}

	u := *c.baseURL
	q := u.Query()
	q.Set("from", windowStart.Truncate(time.Second).Format(models.WindowLayout))
	q.Set("to", windowEnd.Truncate(time.Second).Format(models.WindowLayout))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &FetchError{Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &FetchError{StatusCode: resp.StatusCode, Cause: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			StatusCode: resp.StatusCode,
			Cause:      fmt.Errorf("unexpected status: %s", http.StatusText(resp.StatusCode)),
		}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return []models.MarketplaceOrder{}, nil
	}

	var payload models.OrdersResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &FetchError{StatusCode: resp.StatusCode, Cause: fmt.Errorf("decode body: %w", err)}
	}

	if payload.Orders == nil {
		return []models.MarketplaceOrder{}, nil
	}
	return payload.Orders, nil
}
