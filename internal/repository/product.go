package repository

import (
	"time"

	"github.com/shestoi/stocksync/internal/stock"
)

// Field имя поля товара, изменения которого отслеживаются до Save
type Field string

const (
	FieldManageStock   Field = "manage_stock"
	FieldLocalStock    Field = "stock_quantity"
	FieldExternalStock Field = "external_stock"
	FieldStockStatus   Field = "stock_status"
)

// Product доменная модель товара
// Это бизнес-сущность, не привязанная к HTTP или БД.
// Поля читаются напрямую, а меняются только через сеттеры, чтобы Save
// записал ровно те поля, которые изменились.
type Product struct {
	ID       string
	SKU      string
	ParentID string // не пустой, если остаток ведёт родительский товар

	ManageStock   bool
	LocalStock    int64 // может быть отрицательным до перебалансировки
	ExternalStock int64 // всегда >= 0, хранится как метаданные товара
	StockStatus   stock.Status
	UpdatedAt     time.Time

	changes map[Field]struct{}
}

// StockHolderID возвращает id товара, который ведёт остаток
func (p *Product) StockHolderID() string {
	if p.ParentID != "" {
		return p.ParentID
	}
	return p.ID
}

// Levels возвращает согласованный снимок остатков для stock.Combine*
func (p *Product) Levels() stock.Levels {
	return stock.Levels{
		ManageStock: p.ManageStock,
		Local:       p.LocalStock,
		External:    p.ExternalStock,
	}
}

// EnableStockManagement включает учёт остатков
func (p *Product) EnableStockManagement() {
	if p.ManageStock {
		return
	}
	p.ManageStock = true
	p.mark(FieldManageStock)
}

// SetLocalStock задаёт локальный остаток без ограничения снизу
func (p *Product) SetLocalStock(v int64) {
	if p.LocalStock == v {
		return
	}
	p.LocalStock = v
	p.mark(FieldLocalStock)
}

// SetExternalStock задаёт внешний остаток, отрицательные значения превращаются в 0
func (p *Product) SetExternalStock(v int64) {
	v = max(0, v)
	if p.ExternalStock == v {
		return
	}
	p.ExternalStock = v
	p.mark(FieldExternalStock)
}

// SetStockStatus задаёт сохранённый статус наличия
func (p *Product) SetStockStatus(s stock.Status) {
	if p.StockStatus == s {
		return
	}
	p.StockStatus = s
	p.mark(FieldStockStatus)
}

// Changes возвращает множество изменённых с последнего Save полей
func (p *Product) Changes() map[Field]struct{} {
	out := make(map[Field]struct{}, len(p.changes))
	for f := range p.changes {
		out[f] = struct{}{}
	}
	return out
}

// Changed сообщает, менялось ли поле
func (p *Product) Changed(f Field) bool {
	_, ok := p.changes[f]
	return ok
}

// HasChanges сообщает, есть ли что сохранять
func (p *Product) HasChanges() bool {
	return len(p.changes) > 0
}

// ClearChanges вызывается реализациями хранилища после успешной записи
func (p *Product) ClearChanges() {
	p.changes = nil
}

// Clone возвращает копию товара вместе с набором изменений
func (p *Product) Clone() *Product {
	c := *p
	c.changes = p.Changes()
	return &c
}

func (p *Product) mark(f Field) {
	if p.changes == nil {
		p.changes = make(map[Field]struct{})
	}
	p.changes[f] = struct{}{}
}
