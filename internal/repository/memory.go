package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/models"
)

// MemoryOrderRepository keeps the ledger in process. Used when FEATURE_ORDER_LEDGER is
// off and in tests.
type MemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*models.LocalOrder
	now    func() time.Time
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders: make(map[string]*models.LocalOrder),
		now:    time.Now,
	}
}

func (r *MemoryOrderRepository) Create(ctx context.Context, order *models.LocalOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *MemoryOrderRepository) GetByID(ctx context.Context, id string) (*models.LocalOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	cp := *order
	return &cp, nil
}

func (r *MemoryOrderRepository) GetByTakeAppID(ctx context.Context, takeAppOrderID string) (*models.LocalOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, order := range r.orders {
		if takeAppOrderID != "" && order.TakeAppOrderID == takeAppOrderID {
			cp := *order
			return &cp, nil
		}
	}
	return nil, errors.ErrNotFound
}

func (r *MemoryOrderRepository) List(ctx context.Context, limit, offset int) ([]*models.LocalOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*models.LocalOrder, 0, len(r.orders))
	for _, order := range r.orders {
		cp := *order
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []*models.LocalOrder{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryOrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.LocalOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	if !order.CanTransitionTo(status) {
		return nil, invalidTransition(order.Status, status)
	}

	order.Status = status
	order.UpdatedAt = r.now()
	cp := *order
	return &cp, nil
}

func (r *MemoryOrderRepository) SetPaymentScreenshot(ctx context.Context, id, screenshotURL string) (*models.LocalOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, errors.ErrNotFound
	}

	order.PaymentScreenshot = screenshotURL
	order.UpdatedAt = r.now()
	cp := *order
	return &cp, nil
}

// MemoryIdempotencyStore is the in-process IdempotencyStore.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	records map[string]*IdempotencyRecord
	now     func() time.Time
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		records: make(map[string]*IdempotencyRecord),
		now:     time.Now,
	}
}

func (s *MemoryIdempotencyStore) Begin(ctx context.Context, key string) (*IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[key]; ok && rec.Status != StatusFailed {
		cp := *rec
		return &cp, false, nil
	}

	rec := &IdempotencyRecord{Key: key, Status: StatusInProgress, UpdatedAt: s.now()}
	s.records[key] = rec
	cp := *rec
	return &cp, true, nil
}

func (s *MemoryIdempotencyStore) Complete(ctx context.Context, key string, result *models.OrderResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = &IdempotencyRecord{Key: key, Status: StatusDone, Result: result, UpdatedAt: s.now()}
	return nil
}

func (s *MemoryIdempotencyStore) Fail(ctx context.Context, key, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = &IdempotencyRecord{Key: key, Status: StatusFailed, Note: note, UpdatedAt: s.now()}
	return nil
}
