package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/shestoi/stocksync/internal/repository"
	"github.com/shestoi/stocksync/internal/stock"
)

// Rebalancer переносит нехватку локального остатка на внешний пул после списания.
// После работы local >= 0 или external == 0; повторный вызов ничего не меняет.
type Rebalancer struct {
	logger *zap.Logger
	store  repository.ProductStore
	locks  *keyedMutex
}

// NewRebalancer создаёт Rebalancer
func NewRebalancer(logger *zap.Logger, store repository.ProductStore) *Rebalancer {
	return &Rebalancer{
		logger: logger,
		store:  store,
		locks:  newKeyedMutex(),
	}
}

// Apply перебалансирует уже загруженного держателя остатка без сохранения.
// Возвращает true, если товар изменился.
func (r *Rebalancer) Apply(p *repository.Product) bool {
	if p == nil || !p.ManageStock {
		return false
	}

	local, external, changed := stock.Rebalance(p.LocalStock, p.ExternalStock)
	if !changed {
		return false
	}

	p.SetLocalStock(local)
	p.SetExternalStock(external)
	return true
}

// Rebalance находит держателя остатка позиции заказа, перебалансирует и сохраняет его.
// Вызывается после того, как списание локального остатка уже записано.
func (r *Rebalancer) Rebalance(ctx context.Context, item repository.LineItem) error {
	holder, err := r.store.ResolveStockHolder(ctx, item)
	if err != nil {
		return fmt.Errorf("failed to resolve stock holder for %s: %w", item.PurchasedID(), err)
	}

	unlock := r.locks.Lock(holder.ID)
	defer unlock()

	// перечитываем под блокировкой, чтобы не затереть параллельное списание
	holder, err = r.store.Load(ctx, holder.ID)
	if err != nil {
		return fmt.Errorf("failed to load stock holder: %w", err)
	}

	before := holder.Levels()
	if !r.Apply(holder) {
		return nil
	}

	if err := r.store.Save(ctx, holder); err != nil {
		return fmt.Errorf("failed to save rebalanced stock: %w", err)
	}

	r.logger.Info("stock rebalanced",
		zap.String("order_id", item.OrderID),
		zap.String("product_id", holder.ID),
		zap.Int64("local_before", before.Local),
		zap.Int64("external_before", before.External),
		zap.Int64("local_after", holder.LocalStock),
		zap.Int64("external_after", holder.ExternalStock),
	)
	return nil
}
