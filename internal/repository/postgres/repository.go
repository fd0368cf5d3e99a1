package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shestoi/stocksync/internal/repository"
	"github.com/shestoi/stocksync/internal/stock"
)

// columns колонки таблицы products для отслеживаемых полей товара
var columns = map[repository.Field]string{
	repository.FieldManageStock:   "manage_stock",
	repository.FieldLocalStock:    "stock_quantity",
	repository.FieldExternalStock: "external_stock",
	repository.FieldStockStatus:   "stock_status",
}

// порядок колонок в UPDATE фиксирован, чтобы запросы были детерминированными
var columnOrder = []repository.Field{
	repository.FieldManageStock,
	repository.FieldLocalStock,
	repository.FieldExternalStock,
	repository.FieldStockStatus,
}

// Repository реализует ProductStore используя PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository создаёт новый PostgreSQL репозиторий
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

// ResolveBySKU возвращает id товара по SKU
func (r *Repository) ResolveBySKU(ctx context.Context, sku string) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `SELECT id FROM products WHERE sku = $1`, sku).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", repository.ErrNotFound
		}
		return "", err
	}
	return id, nil
}

// Load читает товар одной строкой
func (r *Repository) Load(ctx context.Context, id string) (*repository.Product, error) {
	var (
		p        repository.Product
		sku      *string
		parentID *string
		status   string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, sku, parent_id, manage_stock, stock_quantity, external_stock, stock_status, updated_at
		 FROM products
		 WHERE id = $1`,
		id).Scan(&p.ID, &sku, &parentID, &p.ManageStock, &p.LocalStock, &p.ExternalStock, &status, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if sku != nil {
		p.SKU = *sku
	}
	if parentID != nil {
		p.ParentID = *parentID
	}
	p.StockStatus = stock.Status(status)
	return &p, nil
}

// Save обновляет только изменённые колонки одним UPDATE
func (r *Repository) Save(ctx context.Context, p *repository.Product) error {
	if !p.HasChanges() {
		return nil
	}

	sets := make([]string, 0, len(columnOrder)+1)
	args := make([]any, 0, len(columnOrder)+1)
	for _, field := range columnOrder {
		if !p.Changed(field) {
			continue
		}
		args = append(args, fieldValue(p, field))
		sets = append(sets, fmt.Sprintf("%s = $%d", columns[field], len(args)))
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, p.ID)

	query := fmt.Sprintf(`UPDATE products SET %s WHERE id = $%d RETURNING updated_at`,
		strings.Join(sets, ", "), len(args))

	var updatedAt time.Time
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("save product %s: %w", p.ID, repository.ErrNotFound)
		}
		return fmt.Errorf("save product %s: %w", p.ID, err)
	}

	p.UpdatedAt = updatedAt
	p.ClearChanges()
	return nil
}

// ResolveStockHolder возвращает товар, который ведёт остаток позиции
func (r *Repository) ResolveStockHolder(ctx context.Context, item repository.LineItem) (*repository.Product, error) {
	return repository.ResolveStockHolder(ctx, r, item)
}

// Ping проверяет соединение с базой
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Insert создаёт товар (заведение каталога, тесты)
func (r *Repository) Insert(ctx context.Context, p repository.Product) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO products (id, sku, parent_id, manage_stock, stock_quantity, external_stock, stock_status)
		 VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $7)`,
		p.ID, p.SKU, p.ParentID, p.ManageStock, p.LocalStock, max(0, p.ExternalStock), string(p.StockStatus))
	return err
}

func fieldValue(p *repository.Product, f repository.Field) any {
	switch f {
	case repository.FieldManageStock:
		return p.ManageStock
	case repository.FieldLocalStock:
		return p.LocalStock
	case repository.FieldExternalStock:
		return p.ExternalStock
	case repository.FieldStockStatus:
		return string(p.StockStatus)
	}
	return nil
}
