package services

import (
	"context"
	"sync"
	"time"

	"github.com/athebyme/gomarket-orders/internal/domain/models"
	"github.com/athebyme/gomarket-orders/internal/utils"
)

type memoryStore struct {
	mu          sync.Mutex
	byExternal  map[string]*models.Order
	byNumber    map[string]*models.Order
	existsErr   map[string]error
	createErr   map[string]error
	numberErr   error
	createCalls int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		byExternal: make(map[string]*models.Order),
		byNumber:   make(map[string]*models.Order),
		existsErr:  make(map[string]error),
		createErr:  make(map[string]error),
	}
}

func (s *memoryStore) ExistsByExternalID(_ context.Context, externalOrderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.existsErr[externalOrderID]; err != nil {
		return false, err
	}
	_, ok := s.byExternal[externalOrderID]
	return ok, nil
}

func (s *memoryStore) CreateOrder(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if err := s.createErr[order.ExternalOrderID]; err != nil {
		return err
	}
	if _, ok := s.byExternal[order.ExternalOrderID]; ok {
		return utils.ErrOrderAlreadyExists
	}
	s.byExternal[order.ExternalOrderID] = order
	s.byNumber[order.OrderNumber] = order
	return nil
}

func (s *memoryStore) GetOrderByNumber(_ context.Context, orderNumber string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.numberErr != nil {
		return nil, s.numberErr
	}
	order, ok := s.byNumber[orderNumber]
	if !ok {
		return nil, utils.ErrOrderNotFound
	}
	return order, nil
}

func (s *memoryStore) ListOrders(_ context.Context, offset, limit int) ([]*models.Order, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	orders := make([]*models.Order, 0, len(s.byExternal))
	for _, o := range s.byExternal {
		orders = append(orders, o)
	}
	total := int64(len(orders))
	if offset >= len(orders) {
		return []*models.Order{}, total, nil
	}
	end := offset + limit
	if end > len(orders) {
		end = len(orders)
	}
	return orders[offset:end], total, nil
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byExternal)
}

type memoryLookup struct {
	mu       sync.Mutex
	products map[string]string
	err      error
	calls    int
}

func newMemoryLookup(products map[string]string) *memoryLookup {
	return &memoryLookup{products: products}
}

func (l *memoryLookup) FindProductIDBySKU(_ context.Context, sku string) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return "", false, l.err
	}
	id, ok := l.products[sku]
	return id, ok, nil
}

type fakeFetcher struct {
	orders      []models.MarketplaceOrder
	err         error
	calls       int
	windowStart time.Time
	windowEnd   time.Time
}

func (f *fakeFetcher) FetchOrders(_ context.Context, windowStart, windowEnd time.Time) ([]models.MarketplaceOrder, error) {
	f.calls++
	f.windowStart = windowStart
	f.windowEnd = windowEnd
	if f.err != nil {
		return nil, f.err
	}
	return f.orders, nil
}

type publishedMessage struct {
	topic   string
	key     string
	payload []byte
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
	err      error

	// hang ждет отмены контекста, как producer при недоступном брокере
	hang      bool
	deadlines int
}

func (p *fakePublisher) Publish(ctx context.Context, topic string, message []byte) error {
	return p.PublishWithKey(ctx, topic, "", message)
}

func (p *fakePublisher) PublishWithKey(ctx context.Context, topic, key string, message []byte) error {
	if _, ok := ctx.Deadline(); ok {
		p.mu.Lock()
		p.deadlines++
		p.mu.Unlock()
	}
	if p.hang {
		<-ctx.Done()
		return ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, publishedMessage{topic: topic, key: key, payload: message})
	return nil
}

type fakeRecorder struct {
	runs []*models.ImportRun
}

func (r *fakeRecorder) ObserveRun(run *models.ImportRun) {
	r.runs = append(r.runs, run)
}
