package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/shestoi/stocksync/internal/repository"
	"github.com/shestoi/stocksync/internal/stock"
)

// CollectionName коллекция с товарами
const CollectionName = "products"

// ProductDocument представляет документ товара в MongoDB.
// Внешний остаток лежит в meta, как метаданные товара.
type ProductDocument struct {
	ProductID     string      `bson:"product_id"`
	SKU           string      `bson:"sku"`
	ParentID      string      `bson:"parent_id,omitempty"`
	ManageStock   bool        `bson:"manage_stock"`
	StockQuantity int64       `bson:"stock_quantity"`
	StockStatus   string      `bson:"stock_status"`
	Meta          ProductMeta `bson:"meta"`
	UpdatedAt     time.Time   `bson:"updated_at"`
}

// ProductMeta метаданные товара
type ProductMeta struct {
	ExternalStock int64 `bson:"external_stock"`
}

// fieldPaths пути в документе для отслеживаемых полей товара
var fieldPaths = map[repository.Field]string{
	repository.FieldManageStock:   "manage_stock",
	repository.FieldLocalStock:    "stock_quantity",
	repository.FieldExternalStock: "meta.external_stock",
	repository.FieldStockStatus:   "stock_status",
}

// Repository реализует ProductStore используя MongoDB
type Repository struct {
	client *mongo.Client
	col    *mongo.Collection
	now    func() time.Time
}

// NewRepository создаёт MongoDB репозиторий и уникальные индексы на product_id и sku
func NewRepository(client *mongo.Client, dbName string) *Repository {
	col := client.Database(dbName).Collection(CollectionName)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// если индексы уже есть, ошибку игнорируем
	_, _ = col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "product_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{
			Keys: bson.D{{Key: "sku", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"sku": bson.M{"$gt": ""}}),
		},
	})

	return &Repository{
		client: client,
		col:    col,
		now:    time.Now,
	}
}

// ResolveBySKU возвращает product_id по SKU
func (r *Repository) ResolveBySKU(ctx context.Context, sku string) (string, error) {
	var doc struct {
		ProductID string `bson:"product_id"`
	}
	opts := options.FindOne().SetProjection(bson.M{"product_id": 1})
	err := r.col.FindOne(ctx, bson.M{"sku": sku}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", repository.ErrNotFound
		}
		return "", err
	}
	return doc.ProductID, nil
}

// Load читает товар одним запросом, так что остатки всегда из одного снимка
func (r *Repository) Load(ctx context.Context, id string) (*repository.Product, error) {
	var doc ProductDocument
	err := r.col.FindOne(ctx, bson.M{"product_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return toProduct(doc), nil
}

// Save пишет только изменённые поля одним UpdateOne ($set атомарен для документа)
func (r *Repository) Save(ctx context.Context, p *repository.Product) error {
	if !p.HasChanges() {
		return nil
	}

	now := r.now().UTC()
	set := bson.M{"updated_at": now}
	for field := range p.Changes() {
		path, ok := fieldPaths[field]
		if !ok {
			return fmt.Errorf("save product %s: unknown field %q", p.ID, field)
		}
		set[path] = fieldValue(p, field)
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"product_id": p.ID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("save product %s: %w", p.ID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("save product %s: %w", p.ID, repository.ErrNotFound)
	}

	p.UpdatedAt = now
	p.ClearChanges()
	return nil
}

// ResolveStockHolder возвращает товар, который ведёт остаток позиции
func (r *Repository) ResolveStockHolder(ctx context.Context, item repository.LineItem) (*repository.Product, error) {
	return repository.ResolveStockHolder(ctx, r, item)
}

// Ping проверяет соединение с primary
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

// Insert создаёт документ товара (заведение каталога, тесты)
func (r *Repository) Insert(ctx context.Context, p repository.Product) error {
	doc := toDocument(p)
	doc.UpdatedAt = r.now().UTC()
	_, err := r.col.InsertOne(ctx, doc)
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

func toProduct(doc ProductDocument) *repository.Product {
	return &repository.Product{
		ID:            doc.ProductID,
		SKU:           doc.SKU,
		ParentID:      doc.ParentID,
		ManageStock:   doc.ManageStock,
		LocalStock:    doc.StockQuantity,
		ExternalStock: max(0, doc.Meta.ExternalStock),
		StockStatus:   stock.Status(doc.StockStatus),
		UpdatedAt:     doc.UpdatedAt,
	}
}

func toDocument(p repository.Product) ProductDocument {
	return ProductDocument{
		ProductID:     p.ID,
		SKU:           p.SKU,
		ParentID:      p.ParentID,
		ManageStock:   p.ManageStock,
		StockQuantity: p.LocalStock,
		StockStatus:   string(p.StockStatus),
		Meta:          ProductMeta{ExternalStock: max(0, p.ExternalStock)},
	}
}
