package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/shestoi/stocksync/internal/repository"
	"github.com/shestoi/stocksync/internal/stock"
)

// StockView остаток товара так, как его видят витрина и резервирование
type StockView struct {
	SKU           string       `json:"sku"`
	ManageStock   bool         `json:"manage_stock"`
	LocalStock    int64        `json:"local_stock"`
	ExternalStock int64        `json:"external_stock"`
	CombinedStock int64        `json:"combined_stock"`
	Status        stock.Status `json:"status"`
}

// NewStockView строит представление из одного снимка держателя остатка.
// p запрошенный товар, holder ведёт его остаток (может совпадать с p).
func NewStockView(p, holder *repository.Product) StockView {
	levels := holder.Levels()
	return StockView{
		SKU:           p.SKU,
		ManageStock:   levels.ManageStock,
		LocalStock:    levels.Local,
		ExternalStock: levels.External,
		CombinedStock: stock.CombineLevels(levels),
		Status:        stock.DeriveLevelsStatus(p.StockStatus, levels),
	}
}

// InventoryService путь чтения остатков и списания по заказам.
// Все чтения идут через объединённый остаток, все списания через Rebalancer.
type InventoryService struct {
	logger     *zap.Logger
	store      repository.ProductStore
	rebalancer *Rebalancer
}

// NewInventoryService создаёт InventoryService; списания и Rebalancer делят блокировки держателей
func NewInventoryService(logger *zap.Logger, store repository.ProductStore, rebalancer *Rebalancer) *InventoryService {
	return &InventoryService{
		logger:     logger,
		store:      store,
		rebalancer: rebalancer,
	}
}

// GetStock возвращает объединённый остаток товара по SKU
func (s *InventoryService) GetStock(ctx context.Context, sku string) (StockView, error) {
	p, holder, err := s.load(ctx, sku)
	if err != nil {
		return StockView{}, err
	}
	return NewStockView(p, holder), nil
}

// CanReserve сообщает, хватает ли объединённого остатка на qty.
// Товары без учёта остатков резервируются всегда.
func (s *InventoryService) CanReserve(ctx context.Context, sku string, qty int64) (bool, error) {
	if qty <= 0 {
		return false, ErrInvalidQuantity
	}
	view, err := s.GetStock(ctx, sku)
	if err != nil {
		return false, err
	}
	if !view.ManageStock {
		return true, nil
	}
	return qty <= view.CombinedStock, nil
}

// SetExternalStock задаёт внешний остаток товара, отрицательные значения превращаются в 0
func (s *InventoryService) SetExternalStock(ctx context.Context, sku string, value int64) (StockView, error) {
	id, err := s.store.ResolveBySKU(ctx, NormalizeSKU(sku))
	if err != nil {
		return StockView{}, err
	}

	unlock := s.rebalancer.locks.Lock(id)
	defer unlock()

	p, err := s.store.Load(ctx, id)
	if err != nil {
		return StockView{}, err
	}
	p.SetExternalStock(value)
	if err := s.store.Save(ctx, p); err != nil {
		return StockView{}, fmt.Errorf("failed to save external stock: %w", err)
	}

	s.logger.Info("external stock updated",
		zap.String("sku", p.SKU),
		zap.Int64("external_stock", p.ExternalStock),
	)
	return s.GetStock(ctx, p.SKU)
}

// ReduceStockBySKU списывает qty с товара, найденного по SKU
func (s *InventoryService) ReduceStockBySKU(ctx context.Context, orderID, sku string, qty int64) (StockView, error) {
	id, err := s.store.ResolveBySKU(ctx, NormalizeSKU(sku))
	if err != nil {
		return StockView{}, err
	}
	return s.ReduceStock(ctx, repository.LineItem{OrderID: orderID, ProductID: id, Quantity: qty})
}

// ReduceStock списывает позицию заказа с локального остатка держателя
// и перебалансирует его в той же записи.
func (s *InventoryService) ReduceStock(ctx context.Context, item repository.LineItem) (StockView, error) {
	if item.Quantity <= 0 {
		return StockView{}, ErrInvalidQuantity
	}

	purchased, err := s.store.Load(ctx, item.PurchasedID())
	if err != nil {
		return StockView{}, err
	}
	holderID := purchased.StockHolderID()

	unlock := s.rebalancer.locks.Lock(holderID)
	defer unlock()

	holder, err := s.store.Load(ctx, holderID)
	if err != nil {
		return StockView{}, err
	}
	if !holder.ManageStock {
		s.logger.Debug("stock is not managed, nothing to reduce", zap.String("product_id", holder.ID))
		return NewStockView(purchased, holder), nil
	}

	holder.SetLocalStock(holder.LocalStock - item.Quantity)
	rebalanced := s.rebalancer.Apply(holder)

	if err := s.store.Save(ctx, holder); err != nil {
		return StockView{}, fmt.Errorf("failed to save reduced stock: %w", err)
	}

	s.logger.Info("stock reduced",
		zap.String("order_id", item.OrderID),
		zap.String("product_id", holder.ID),
		zap.Int64("quantity", item.Quantity),
		zap.Bool("rebalanced", rebalanced),
		zap.Int64("local_stock", holder.LocalStock),
		zap.Int64("external_stock", holder.ExternalStock),
	)

	if purchased.ID == holder.ID {
		purchased = holder
	}
	return NewStockView(purchased, holder), nil
}

func (s *InventoryService) load(ctx context.Context, sku string) (*repository.Product, *repository.Product, error) {
	id, err := s.store.ResolveBySKU(ctx, NormalizeSKU(sku))
	if err != nil {
		return nil, nil, err
	}
	p, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if p.StockHolderID() == p.ID {
		return p, p, nil
	}
	holder, err := s.store.Load(ctx, p.StockHolderID())
	if err != nil {
		return nil, nil, err
	}
	return p, holder, nil
}
