package repository

import (
	"context"
	"errors"
)

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=ProductStore --dir=. --output=./mocks --outpkg=mocks

// ProductStore определяет интерфейс хранилища товаров.
// Service слой зависит от этого интерфейса, а не от конкретной реализации (memory/mongo/postgres).
type ProductStore interface {
	// ResolveBySKU возвращает id товара по SKU.
	// Возвращает ErrNotFound, если товара с таким SKU нет.
	ResolveBySKU(ctx context.Context, sku string) (string, error)

	// Load загружает товар по id.
	// Возвращает ErrNotFound, если товар не найден.
	Load(ctx context.Context, id string) (*Product, error)

	// Save атомарно сохраняет все накопленные изменения товара и сбрасывает их.
	// Товар без изменений не пишется.
	Save(ctx context.Context, p *Product) error

	// ResolveStockHolder возвращает товар, который ведёт остаток для позиции заказа:
	// саму вариацию или родительский товар, если остаток ведёт он.
	ResolveStockHolder(ctx context.Context, item LineItem) (*Product, error)

	// Ping проверяет доступность хранилища
	Ping(ctx context.Context) error
}

// LineItem позиция заказа, которая списывает остаток
type LineItem struct {
	OrderID     string
	ProductID   string
	VariationID string
	Quantity    int64
}

// PurchasedID возвращает id купленного товара: вариацию, если она указана
func (i LineItem) PurchasedID() string {
	if i.VariationID != "" {
		return i.VariationID
	}
	return i.ProductID
}

// ErrNotFound возвращается, когда товар не найден в хранилище
var ErrNotFound = errors.New("product not found")

// ResolveStockHolder общая для реализаций логика поиска держателя остатка:
// загружаем купленный товар, если остаток ведёт родитель, загружаем его.
func ResolveStockHolder(ctx context.Context, store interface {
	Load(ctx context.Context, id string) (*Product, error)
}, item LineItem) (*Product, error) {
	p, err := store.Load(ctx, item.PurchasedID())
	if err != nil {
		return nil, err
	}

	holderID := p.StockHolderID()
	if holderID == p.ID {
		return p, nil
	}
	return store.Load(ctx, holderID)
}
