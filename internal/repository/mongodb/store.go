package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"

	"github.com/mamadbah2/comedor/internal/config"
	"github.com/mamadbah2/comedor/internal/domain/apperr"
)

// Collection names shared with the sync layer.
const (
	CollectionIngredients   = "ingredients"
	CollectionDishes        = "dishes"
	CollectionSales         = "sales"
	CollectionCashMovements = "cashMovements"
	CollectionCashAccounts  = "cashAccounts"
	CollectionLedgerEntries = "ledgerEntries"
	CollectionDailyReports  = "daily_reports"
)

// Store is the MongoDB-backed persistence for every collection of the service.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
	now    func() time.Time

	// transactions is set when the server is a replica set member or a mongos.
	transactions bool
}

// NewStore connects, pings and returns a Store. Decimal fields go through NewRegistry.
func NewStore(ctx context.Context, cfg config.MongoDBConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(cfg.URI).SetRegistry(NewRegistry())
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	store := &Store{
		client: client,
		db:     client.Database(cfg.DBName),
		logger: logger,
		now:    time.Now,
	}
	store.transactions = store.detectTransactions(ctx)
	return store, nil
}

// detectTransactions asks the server for its topology. Standalone servers reject
// multi-document transactions.
func (s *Store) detectTransactions(ctx context.Context) bool {
	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	if err := s.db.RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		s.logger.Warn("could not detect mongodb topology, transactions disabled", zap.Error(err))
		return false
	}
	supported := hello.SetName != "" || hello.Msg == "isdbgrid"
	if !supported {
		s.logger.Warn("mongodb is standalone; ledger reconciliation will report drift without correcting it")
	}
	return supported
}

// SupportsTransactions reports whether WithinTransaction runs a real transaction.
func (s *Store) SupportsTransactions() bool {
	return s.transactions
}

// WithinTransaction runs fn in a snapshot transaction with majority writes. The driver
// retries fn on transient errors, so fn must be safe to run again. Without transaction
// support fn runs directly against ctx.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions {
		return fn(ctx)
	}
	opts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	return s.client.UseSession(ctx, func(sc mongo.SessionContext) error {
		_, err := sc.WithTransaction(sc, func(sc mongo.SessionContext) (interface{}, error) {
			return nil, fn(sc)
		}, opts)
		return err
	})
}

// EnsureIndexes creates the indexes the services rely on. Existing indexes are left alone.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		CollectionDishes: {
			{Keys: bson.D{{Key: "ingredients.ingredientId", Value: 1}}},
		},
		CollectionSales: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		CollectionCashMovements: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		CollectionLedgerEntries: {
			{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "refId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "createdAt", Value: 1}}},
		},
		CollectionDailyReports: {
			{Keys: bson.D{{Key: "date", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for name, indexes := range specs {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}

	s.logger.Info("mongodb indexes ensured", zap.Int("collections", len(specs)))
	return nil
}

// Ping checks the connection; used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close closes the MongoDB connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

// findAll decodes every document matching filter into out.
func (s *Store) findAll(ctx context.Context, name string, filter any, out any, opts ...*options.FindOptions) error {
	cursor, err := s.collection(name).Find(ctx, filter, opts...)
	if err != nil {
		return fmt.Errorf("find in %s: %w", name, err)
	}
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// findOne decodes the document with the given id into out.
func (s *Store) findOne(ctx context.Context, name, id string, out any) error {
	err := s.collection(name).FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("find %s %s: %w", name, id, apperr.ErrRecordNotFound)
	}
	if err != nil {
		return fmt.Errorf("find %s %s: %w", name, id, err)
	}
	return nil
}

// setFields applies a partial update to the document with the given id.
func (s *Store) setFields(ctx context.Context, name, id string, fields bson.M) error {
	res, err := s.collection(name).UpdateByID(ctx, id, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update %s %s: %w", name, id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update %s %s: %w", name, id, apperr.ErrRecordNotFound)
	}
	return nil
}

// deleteOne removes the document with the given id.
func (s *Store) deleteOne(ctx context.Context, name, id string) error {
	res, err := s.collection(name).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", name, id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete %s %s: %w", name, id, apperr.ErrRecordNotFound)
	}
	return nil
}
