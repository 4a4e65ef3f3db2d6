package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/comedor/internal/domain/models"
)

// SaveDailyReport stores the closing report of a day, replacing an earlier run for the same date.
func (s *Store) SaveDailyReport(ctx context.Context, report models.DailyReport) error {
	_, err := s.collection(CollectionDailyReports).ReplaceOne(ctx,
		bson.M{"date": report.Date},
		report,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert daily report: %w", err)
	}
	return nil
}
