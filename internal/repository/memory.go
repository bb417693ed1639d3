package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retailpoint/pos-rules-engine/internal/models"
)

// MemoryStore is an in-memory implementation of the promotion and history
// read interfaces plus usage recording. It honors the same conditional
// usage-increment contract as the Postgres repo and backs tests and local
// runs without a database.
type MemoryStore struct {
	mu         sync.Mutex
	promotions map[string]*models.Promotion
	rules      map[string][]models.PromotionRule
	usage      []models.PromotionUsage

	priorTx map[string]int
	voids   map[string]int
	recent  map[string]int
	stock   map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		promotions: make(map[string]*models.Promotion),
		rules:      make(map[string][]models.PromotionRule),
		priorTx:    make(map[string]int),
		voids:      make(map[string]int),
		recent:     make(map[string]int),
		stock:      make(map[string]int),
	}
}

func (m *MemoryStore) AddPromotion(p models.Promotion, rules []models.PromotionRule) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	m.promotions[p.ID] = &p
	m.rules[p.ID] = rules
	return p.ID
}

// CreatePromotion mirrors the SQL repo's admin write.
func (m *MemoryStore) CreatePromotion(_ context.Context, p models.Promotion, rules []models.PromotionRule) (string, error) {
	return m.AddPromotion(p, rules), nil
}

// GetPromotion fetches one promotion by ID, or ErrNotFound.
func (m *MemoryStore) GetPromotion(_ context.Context, id string) (*models.Promotion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.promotions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) SetHistory(customerID string, prior, voids, recent int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.priorTx[customerID] = prior
	m.voids[customerID] = voids
	m.recent[customerID] = recent
}

func (m *MemoryStore) SetStock(productID string, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[productID] = stock
}

func (m *MemoryStore) ListActivePromotions(_ context.Context, storeID string, now time.Time) ([]models.Promotion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Promotion
	for _, p := range m.promotions {
		if p.StoreID == storeID && p.ActiveAt(now) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *MemoryStore) ListRules(_ context.Context, promotionID string) ([]models.PromotionRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.PromotionRule(nil), m.rules[promotionID]...), nil
}

// RecordUsage applies the same check-then-increment the SQL repo does with
// its conditional UPDATE, serialized under the store mutex.
func (m *MemoryStore) RecordUsage(_ context.Context, promotionID, customerID string, discount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.promotions[promotionID]
	if !ok {
		return ErrNotFound
	}
	if p.UsageLimit > 0 && p.UsageCount >= p.UsageLimit {
		return ErrUsageLimitReached
	}
	p.UsageCount++
	m.usage = append(m.usage, models.PromotionUsage{
		ID:             uuid.NewString(),
		PromotionID:    promotionID,
		CustomerID:     customerID,
		DiscountAmount: discount,
		UsedAt:         time.Now().UTC(),
	})
	return nil
}

func (m *MemoryStore) UsageFacts() []models.PromotionUsage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.PromotionUsage(nil), m.usage...)
}

func (m *MemoryStore) CountPriorTransactions(_ context.Context, customerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.priorTx[customerID], nil
}

func (m *MemoryStore) CountVoidsSince(_ context.Context, customerID string, _ time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.voids[customerID], nil
}

func (m *MemoryStore) CountTransactionsSince(_ context.Context, customerID string, _ time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recent[customerID], nil
}

func (m *MemoryStore) GetStockLevels(_ context.Context, productIDs []string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(productIDs))
	for _, id := range productIDs {
		if s, ok := m.stock[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}
