package search

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"citypulse/internal/filter"
	"citypulse/internal/models"
)

// Indexer keeps the search index in step with the event store
type Indexer interface {
	IndexEvent(ctx context.Context, event *models.Event) error
	DeleteEvent(ctx context.Context, id bson.ObjectID) error
}

// EventSource is the part of the event store a rebuild reads
type EventSource interface {
	Find(ctx context.Context, q filter.Query) ([]*models.Event, error)
}

// Reindex walks every stored event in _id order and indexes it. Returns the
// number of indexed events.
func Reindex(ctx context.Context, events EventSource, idx Indexer, batch int) (int, error) {
	if batch <= 0 {
		batch = 500
	}
	total := 0
	for {
		page, err := events.Find(ctx, filter.Query{
			Sort:  []filter.SortKey{filter.Asc("_id")},
			Skip:  int64(total),
			Limit: int64(batch),
		})
		if err != nil {
			return total, fmt.Errorf("failed to read events: %w", err)
		}
		for _, e := range page {
			if err := idx.IndexEvent(ctx, e); err != nil {
				return total, fmt.Errorf("failed to index event %s: %w", e.ID.Hex(), err)
			}
			total++
		}
		if len(page) < batch {
			return total, nil
		}
	}
}
