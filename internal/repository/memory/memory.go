package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shestoi/stocksync/internal/repository"
)

// MemoryRepository реализует ProductStore используя in-memory хранилище
// Используется для локальной разработки и тестов
type MemoryRepository struct {
	mu       sync.RWMutex
	products map[string]*repository.Product
	bySKU    map[string]string
	now      func() time.Time
}

// NewMemoryRepository создаёт репозиторий, заполненный копиями переданных товаров
func NewMemoryRepository(initial ...repository.Product) *MemoryRepository {
	r := &MemoryRepository{
		products: make(map[string]*repository.Product),
		bySKU:    make(map[string]string),
		now:      time.Now,
	}
	for _, p := range initial {
		r.put(p)
	}
	return r
}

// Upsert добавляет или полностью заменяет товар (без учёта change set)
func (r *MemoryRepository) Upsert(p repository.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(p)
}

// ResolveBySKU возвращает id товара по SKU
func (r *MemoryRepository) ResolveBySKU(ctx context.Context, sku string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.bySKU[sku]
	if !ok {
		return "", repository.ErrNotFound
	}
	return id, nil
}

// Load возвращает копию товара, чтобы изменения вызывающего не попадали в хранилище до Save
func (r *MemoryRepository) Load(ctx context.Context, id string) (*repository.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := p.Clone()
	c.ClearChanges()
	return c, nil
}

// Save переносит в хранилище только изменённые поля, под одним мьютексом
func (r *MemoryRepository) Save(ctx context.Context, p *repository.Product) error {
	if !p.HasChanges() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.products[p.ID]
	if !ok {
		return fmt.Errorf("save product %s: %w", p.ID, repository.ErrNotFound)
	}

	if p.Changed(repository.FieldManageStock) {
		stored.ManageStock = p.ManageStock
	}
	if p.Changed(repository.FieldLocalStock) {
		stored.LocalStock = p.LocalStock
	}
	if p.Changed(repository.FieldExternalStock) {
		stored.ExternalStock = p.ExternalStock
	}
	if p.Changed(repository.FieldStockStatus) {
		stored.StockStatus = p.StockStatus
	}
	stored.UpdatedAt = r.now()

	p.UpdatedAt = stored.UpdatedAt
	p.ClearChanges()
	return nil
}

// ResolveStockHolder возвращает товар, который ведёт остаток позиции
func (r *MemoryRepository) ResolveStockHolder(ctx context.Context, item repository.LineItem) (*repository.Product, error) {
	return repository.ResolveStockHolder(ctx, r, item)
}

// Ping всегда успешен
func (r *MemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// put вызывается только под заблокированным мьютексом
func (r *MemoryRepository) put(p repository.Product) {
	c := p.Clone()
	c.ClearChanges()
	if old, ok := r.products[c.ID]; ok && old.SKU != c.SKU {
		delete(r.bySKU, old.SKU)
	}
	r.products[c.ID] = c
	if c.SKU != "" {
		r.bySKU[c.SKU] = c.ID
	}
}
