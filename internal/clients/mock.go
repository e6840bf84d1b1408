package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/models"
)

// MockStorefrontClient is an in-memory storefront for tests and local runs.
type MockStorefrontClient struct {
	mu sync.Mutex

	Products    map[string]*models.Product
	Settings    *models.PricingSettings
	SettingsErr error
	Promos      map[string]decimal.Decimal
	OrderResult *models.OrderResult
	OrderErr    error

	ProductCalls int
	PromoCalls   int
	Orders       []*models.OrderPayload
}

var _ StorefrontClient = (*MockStorefrontClient)(nil)

func NewMockStorefrontClient() *MockStorefrontClient {
	return &MockStorefrontClient{
		Products: make(map[string]*models.Product),
		Promos:   make(map[string]decimal.Decimal),
	}
}

func (m *MockStorefrontClient) AddProduct(p *models.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Products[p.ID] = p
	if p.Slug != "" {
		m.Products[p.Slug] = p
	}
}

func (m *MockStorefrontClient) GetProduct(ctx context.Context, idOrSlug string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProductCalls++

	p, ok := m.Products[idOrSlug]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", idOrSlug, errors.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (m *MockStorefrontClient) GetSettings(ctx context.Context) (*models.PricingSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SettingsErr != nil {
		return nil, m.SettingsErr
	}
	if m.Settings == nil {
		s := models.DefaultPricingSettings()
		return &s, nil
	}
	s := *m.Settings
	return &s, nil
}

func (m *MockStorefrontClient) ValidatePromo(ctx context.Context, code string, subtotal decimal.Decimal) (*models.PromoDiscount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PromoCalls++

	amount, ok := m.Promos[code]
	if !ok {
		return nil, &errors.PromoRejectedError{Code: code, Detail: "Invalid promo code"}
	}
	return &models.PromoDiscount{Code: code, DiscountAmount: amount}, nil
}

func (m *MockStorefrontClient) CreateOrder(ctx context.Context, payload *models.OrderPayload) (*models.OrderResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Orders = append(m.Orders, payload)

	if m.OrderErr != nil {
		return nil, m.OrderErr
	}
	if m.OrderResult != nil {
		r := *m.OrderResult
		return &r, nil
	}
	return &models.OrderResult{
		Success: true,
		OrderID: fmt.Sprintf("ord_%d", time.Now().UnixNano()),
	}, nil
}

// MockTakeAppClient records created orders. Store, Orders and Inventory are served
// back by the read calls; ReadErr fails them.
type MockTakeAppClient struct {
	mu sync.Mutex

	Err      error
	NoID     bool
	Requests []*TakeAppOrderRequest

	Store     json.RawMessage
	Orders    json.RawMessage
	Inventory json.RawMessage
	ReadErr   error
}

var _ TakeAppClient = (*MockTakeAppClient)(nil)

func NewMockTakeAppClient() *MockTakeAppClient {
	return &MockTakeAppClient{}
}

func (m *MockTakeAppClient) CreateOrder(ctx context.Context, req *TakeAppOrderRequest) (*TakeAppOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)

	if m.Err != nil {
		return nil, m.Err
	}
	if m.NoID {
		return &TakeAppOrder{}, nil
	}
	n := len(m.Requests)
	return &TakeAppOrder{ID: fmt.Sprintf("ta_%d", n), Number: json.Number(fmt.Sprint(1000 + n))}, nil
}

func (m *MockTakeAppClient) PaymentURL(orderID string) string {
	if orderID == "" {
		return ""
	}
	return "https://take.app/gsn/orders/" + orderID + "/pay"
}

func (m *MockTakeAppClient) GetStore(ctx context.Context) (json.RawMessage, error) {
	return m.read(m.Store, "{}")
}

func (m *MockTakeAppClient) ListOrders(ctx context.Context) (json.RawMessage, error) {
	return m.read(m.Orders, "[]")
}

func (m *MockTakeAppClient) GetInventory(ctx context.Context) (json.RawMessage, error) {
	return m.read(m.Inventory, "[]")
}

func (m *MockTakeAppClient) read(doc json.RawMessage, empty string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	if doc == nil {
		return json.RawMessage(empty), nil
	}
	return doc, nil
}

// MockAdminClient stores admin resources as raw JSON keyed by resource and id.
type MockAdminClient struct {
	mu        sync.Mutex
	items     map[string]map[string]json.RawMessage
	settings  models.PricingSettings
	nextID    int
	Reordered map[string][]string
	AuthErr   error
}

var _ AdminClient = (*MockAdminClient)(nil)

func NewMockAdminClient() *MockAdminClient {
	return &MockAdminClient{
		items:     make(map[string]map[string]json.RawMessage),
		settings:  models.DefaultPricingSettings(),
		Reordered: make(map[string][]string),
	}
}

func (m *MockAdminClient) List(ctx context.Context, resource string, out interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.items[resource]))
	for id := range m.items[resource] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	list := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		list = append(list, m.items[resource][id])
	}
	return roundTrip(list, out)
}

func (m *MockAdminClient) Create(ctx context.Context, resource string, in, out interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := fmt.Sprintf("%s_%03d", resource, m.nextID)

	var doc map[string]interface{}
	if err := roundTrip(in, &doc); err != nil {
		return err
	}
	doc["id"] = id

	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	raw := json.RawMessage(b)
	if m.items[resource] == nil {
		m.items[resource] = make(map[string]json.RawMessage)
	}
	m.items[resource][id] = raw
	return roundTrip(raw, out)
}

func (m *MockAdminClient) Update(ctx context.Context, resource, id string, in, out interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[resource][id]; !ok {
		return errors.ErrNotFound
	}

	var doc map[string]interface{}
	if err := roundTrip(in, &doc); err != nil {
		return err
	}
	doc["id"] = id

	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	raw := json.RawMessage(b)
	m.items[resource][id] = raw
	return roundTrip(raw, out)
}

func (m *MockAdminClient) Delete(ctx context.Context, resource, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[resource][id]; !ok {
		return errors.ErrNotFound
	}
	delete(m.items[resource], id)
	return nil
}

func (m *MockAdminClient) Reorder(ctx context.Context, resource string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reordered[resource] = append([]string(nil), ids...)
	return nil
}

func (m *MockAdminClient) UpdateSettings(ctx context.Context, settings *models.PricingSettings) (*models.PricingSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = *settings
	s := m.settings
	return &s, nil
}

func (m *MockAdminClient) Authorize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.AuthErr
}

func roundTrip(in, out interface{}) error {
	if out == nil {
		return nil
	}
	raw, ok := in.(json.RawMessage)
	if !ok {
		var err error
		if raw, err = json.Marshal(in); err != nil {
			return err
		}
	}
	return json.Unmarshal(raw, out)
}
