package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/comedor/internal/domain/models"
)

// CreateSale inserts a sale in the multi-item layout.
func (s *Store) CreateSale(ctx context.Context, sale models.Sale) (models.Sale, error) {
	if sale.ID == "" {
		sale.ID = newID()
	}
	if _, err := s.collection(CollectionSales).InsertOne(ctx, sale); err != nil {
		return models.Sale{}, fmt.Errorf("insert sale: %w", err)
	}
	sale.Shape = models.SaleShapeMultiItem
	return sale, nil
}

// GetSale loads one sale in its canonical shape.
func (s *Store) GetSale(ctx context.Context, id string) (models.Sale, error) {
	var doc models.SaleDocument
	if err := s.findOne(ctx, CollectionSales, id, &doc); err != nil {
		return models.Sale{}, err
	}
	return doc.Canonical(), nil
}

// ListSales returns sales created in [from, to), newest first. A zero bound is open.
func (s *Store) ListSales(ctx context.Context, from, to time.Time) ([]models.Sale, error) {
	created := bson.M{}
	if !from.IsZero() {
		created["$gte"] = from
	}
	if !to.IsZero() {
		created["$lt"] = to
	}
	filter := bson.M{}
	if len(created) > 0 {
		filter["createdAt"] = created
	}

	return s.listSales(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

// ListSalesByStatus returns sales in the given status, oldest first.
func (s *Store) ListSalesByStatus(ctx context.Context, status models.SaleStatus) ([]models.Sale, error) {
	filter := bson.M{"status": status}
	if status == models.SaleStatusActive {
		// Legacy documents carry no status and count as active.
		filter = bson.M{"$or": bson.A{
			bson.M{"status": status},
			bson.M{"status": bson.M{"$exists": false}},
		}}
	}
	return s.listSales(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

// UpdateSaleStatus moves a sale to a new status.
func (s *Store) UpdateSaleStatus(ctx context.Context, id string, status models.SaleStatus, at time.Time) error {
	fields := bson.M{"status": status}
	if status == models.SaleStatusCompleted {
		fields["completedAt"] = at
	}
	return s.setFields(ctx, CollectionSales, id, fields)
}

// DeleteSale removes a sale.
func (s *Store) DeleteSale(ctx context.Context, id string) error {
	return s.deleteOne(ctx, CollectionSales, id)
}

func (s *Store) listSales(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Sale, error) {
	var docs []models.SaleDocument
	if err := s.findAll(ctx, CollectionSales, filter, &docs, opts); err != nil {
		return nil, err
	}

	sales := make([]models.Sale, 0, len(docs))
	for _, doc := range docs {
		sales = append(sales, doc.Canonical())
	}
	return sales, nil
}
