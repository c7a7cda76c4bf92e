package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"citypulse/internal/models"
)

type InterestRepository struct {
	coll *mongo.Collection
}

func NewInterestRepository(coll *mongo.Collection) *InterestRepository {
	return &InterestRepository{coll: coll}
}

// List returns the whole catalogue in insertion order
func (r *InterestRepository) List(ctx context.Context) ([]models.Interest, error) {
	cur, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list interests: %w", err)
	}
	interests := []models.Interest{}
	if err := cur.All(ctx, &interests); err != nil {
		return nil, fmt.Errorf("failed to decode interests: %w", err)
	}
	return interests, nil
}

func (r *InterestRepository) Create(ctx context.Context, i *models.Interest) error {
	if i.ID.IsZero() {
		i.ID = bson.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, i); err != nil {
		return fmt.Errorf("failed to insert interest: %w", err)
	}
	return nil
}
