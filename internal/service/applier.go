package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/shestoi/stocksync/internal/feed"
	"github.com/shestoi/stocksync/internal/repository"
	"github.com/shestoi/stocksync/internal/stock"
)

// Result итог применения пачки записей
type Result struct {
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

func newResult() Result {
	return Result{Errors: []string{}}
}

// Applier применяет записи фида к хранилищу товаров.
// Ошибка одной записи попадает в Result и не прерывает пачку.
type Applier struct {
	logger *zap.Logger
	store  repository.ProductStore
}

// NewApplier создаёт Applier; store может быть nil, тогда Apply вернёт ErrMissingBackingStore
func NewApplier(logger *zap.Logger, store repository.ProductStore) *Applier {
	return &Applier{
		logger: logger,
		store:  store,
	}
}

// Apply обрабатывает записи по порядку.
// Единственная ошибка уровня прогона ErrMissingBackingStore, она возвращается до первой записи.
// Отмена ctx не прерывает уже начатую пачку.
func (a *Applier) Apply(ctx context.Context, records []feed.Record, defaultStatus stock.Status) (Result, error) {
	if a.store == nil {
		return Result{}, ErrMissingBackingStore
	}
	if err := a.store.Ping(ctx); err != nil {
		a.logger.Error("product store is not reachable", zap.Error(err))
		return Result{}, fmt.Errorf("%w: %w", ErrMissingBackingStore, err)
	}

	ctx = context.WithoutCancel(ctx)
	defaultStatus = stock.DefaultStatus(string(defaultStatus))

	result := newResult()
	for i := range records {
		a.applyRecord(ctx, &records[i], defaultStatus, &result)
	}

	a.logger.Info("stock records applied",
		zap.Int("records", len(records)),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func (a *Applier) applyRecord(ctx context.Context, rec *feed.Record, defaultStatus stock.Status, result *Result) {
	sku := NormalizeSKU(rec.SKU)
	if sku == "" {
		result.Skipped++
		return
	}

	id, err := a.store.ResolveBySKU(ctx, sku)
	if err != nil {
		result.Skipped++
		if errors.Is(err, repository.ErrNotFound) {
			result.Errors = append(result.Errors, fmt.Sprintf("no product found with SKU %s", sku))
			return
		}
		a.logger.Warn("failed to resolve sku", zap.String("sku", sku), zap.Error(err))
		result.Errors = append(result.Errors, fmt.Sprintf("failed to resolve SKU %s: %v", sku, err))
		return
	}

	p, err := a.store.Load(ctx, id)
	if err != nil || p == nil {
		a.logger.Warn("product resolved by sku could not be loaded",
			zap.String("sku", sku),
			zap.String("product_id", id),
			zap.Error(err),
		)
		result.Skipped++
		result.Errors = append(result.Errors, fmt.Sprintf("no product found with SKU %s", sku))
		return
	}

	status := defaultStatus
	if rec.Status != nil {
		if s, ok := stock.ParseStatus(*rec.Status); ok {
			status = s
		}
	}

	if rec.StockQuantity != nil {
		p.EnableStockManagement()
		p.SetLocalStock(*rec.StockQuantity)
	}
	if rec.ExternalStock != nil {
		p.SetExternalStock(*rec.ExternalStock)
	}
	p.SetStockStatus(status)

	if err := a.store.Save(ctx, p); err != nil {
		a.logger.Error("failed to save product",
			zap.String("sku", sku),
			zap.String("product_id", id),
			zap.Error(err),
		)
		result.Skipped++
		result.Errors = append(result.Errors, fmt.Sprintf("failed to save product with SKU %s: %v", sku, err))
		return
	}

	result.Updated++
}

// NormalizeSKU убирает управляющие символы, схлопывает пробелы и обрезает края
func NormalizeSKU(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	space := false
	for _, r := range raw {
		switch {
		case unicode.IsControl(r) && !unicode.IsSpace(r):
			continue
		case unicode.IsSpace(r):
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}
