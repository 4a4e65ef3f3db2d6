package mongodb

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/comedor/internal/domain/models"
)

type accountDocument struct {
	Name   models.Account  `bson:"_id"`
	Amount decimal.Decimal `bson:"amount"`
}

// CreateMovement inserts a manual cash movement.
func (s *Store) CreateMovement(ctx context.Context, m models.CashMovement) (models.CashMovement, error) {
	if m.ID == "" {
		m.ID = newID()
	}
	if _, err := s.collection(CollectionCashMovements).InsertOne(ctx, m); err != nil {
		return models.CashMovement{}, fmt.Errorf("insert cash movement: %w", err)
	}
	return m, nil
}

// GetMovement loads one movement.
func (s *Store) GetMovement(ctx context.Context, id string) (models.CashMovement, error) {
	var m models.CashMovement
	if err := s.findOne(ctx, CollectionCashMovements, id, &m); err != nil {
		return models.CashMovement{}, err
	}
	return m, nil
}

// ListMovements returns every movement, newest first.
func (s *Store) ListMovements(ctx context.Context) ([]models.CashMovement, error) {
	out := []models.CashMovement{}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if err := s.findAll(ctx, CollectionCashMovements, bson.M{}, &out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteMovement removes a movement.
func (s *Store) DeleteMovement(ctx context.Context, id string) error {
	return s.deleteOne(ctx, CollectionCashMovements, id)
}

// EnsureAccounts creates both account documents at zero when they are absent. Existing
// amounts are never touched, so calling it repeatedly is safe.
func (s *Store) EnsureAccounts(ctx context.Context) error {
	coll := s.collection(CollectionCashAccounts)
	for _, account := range models.Accounts {
		_, err := coll.UpdateOne(ctx,
			bson.M{"_id": account},
			bson.M{"$setOnInsert": bson.M{"amount": decimal.Zero}},
			options.Update().SetUpsert(true))
		if err != nil && !mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("bootstrap account %s: %w", account, err)
		}
	}
	return nil
}

// ReadBalances reads both accounts. Missing accounts read as zero.
func (s *Store) ReadBalances(ctx context.Context) (models.Balances, error) {
	var docs []accountDocument
	if err := s.findAll(ctx, CollectionCashAccounts, bson.M{}, &docs); err != nil {
		return models.Balances{}, err
	}

	balances := models.Balances{Capital: decimal.Zero, Profit: decimal.Zero}
	for _, doc := range docs {
		switch doc.Name {
		case models.AccountCapital:
			balances.Capital = doc.Amount
		case models.AccountProfit:
			balances.Profit = doc.Amount
		}
	}
	return balances, nil
}

// IncrementBalances applies a signed change with server-side $inc, one document per
// account with a non-zero component. The other account is not written.
func (s *Store) IncrementBalances(ctx context.Context, delta models.Balances) error {
	coll := s.collection(CollectionCashAccounts)
	for _, account := range models.Accounts {
		amount := delta.Of(account)
		if amount.IsZero() {
			continue
		}
		_, err := coll.UpdateOne(ctx,
			bson.M{"_id": account},
			bson.M{"$inc": bson.M{"amount": amount}, "$set": bson.M{"updatedAt": s.now()}},
			options.Update().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("increment account %s: %w", account, err)
		}
	}
	return nil
}

// SetBalances overwrites both accounts; used only by reconciliation.
func (s *Store) SetBalances(ctx context.Context, balances models.Balances) error {
	coll := s.collection(CollectionCashAccounts)
	for _, account := range models.Accounts {
		_, err := coll.UpdateOne(ctx,
			bson.M{"_id": account},
			bson.M{"$set": bson.M{"amount": balances.Of(account), "updatedAt": s.now()}},
			options.Update().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("set account %s: %w", account, err)
		}
	}
	return nil
}

// AppendEntry inserts a ledger entry. It reports false without error when an entry with
// the same kind and reference already exists.
func (s *Store) AppendEntry(ctx context.Context, entry models.LedgerEntry) (bool, error) {
	if entry.ID == "" {
		entry.ID = newID()
	}
	_, err := s.collection(CollectionLedgerEntries).InsertOne(ctx, entry)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert ledger entry %s/%s: %w", entry.Kind, entry.RefID, err)
	}
	return true, nil
}

// HasEntry reports whether an entry with the given kind and reference exists.
func (s *Store) HasEntry(ctx context.Context, kind models.EntryKind, refID string) (bool, error) {
	n, err := s.collection(CollectionLedgerEntries).CountDocuments(ctx,
		bson.M{"kind": kind, "refId": refID},
		options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count ledger entry %s/%s: %w", kind, refID, err)
	}
	return n > 0, nil
}

// ListEntries returns the whole ledger in insertion order.
func (s *Store) ListEntries(ctx context.Context) ([]models.LedgerEntry, error) {
	out := []models.LedgerEntry{}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	if err := s.findAll(ctx, CollectionLedgerEntries, bson.M{}, &out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
