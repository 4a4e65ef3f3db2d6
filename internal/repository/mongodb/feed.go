package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Watch opens a change stream on the collection and calls changed for every event until
// ctx is done. Change streams need a replica set; standalone servers fail here and the
// caller falls back to retrying.
func (s *Store) Watch(ctx context.Context, collection string, changed func()) error {
	stream, err := s.collection(collection).Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return fmt.Errorf("open change stream on %s: %w", collection, err)
	}
	defer func() {
		if err := stream.Close(context.Background()); err != nil {
			s.logger.Debug("close change stream", zap.String("collection", collection), zap.Error(err))
		}
	}()

	for stream.Next(ctx) {
		changed()
	}

	if ctx.Err() != nil {
		return nil
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("change stream on %s: %w", collection, err)
	}
	return nil
}
