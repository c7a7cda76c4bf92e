package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	apperr "citypulse/internal/errors"
	"citypulse/internal/models"
)

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(coll *mongo.Collection) *UserRepository {
	return &UserRepository{coll: coll}
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	if u.Interests == nil {
		u.Interests = []models.CityInterestAssignment{}
	}
	if _, err := r.coll.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflict("user with this email already exists")
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) Get(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	var u models.User
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("user")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// subscriptionPipeline rewrites the interests array: the entry for city is
// replaced in place, or appended when missing
func subscriptionPipeline(city bson.ObjectID, interests []bson.ObjectID) mongo.Pipeline {
	if interests == nil {
		interests = []bson.ObjectID{}
	}
	entry := bson.D{
		{Key: "city", Value: bson.D{{Key: "$literal", Value: city}}},
		{Key: "interests", Value: bson.D{{Key: "$literal", Value: interests}}},
	}
	current := bson.D{{Key: "$ifNull", Value: bson.A{"$interests", bson.A{}}}}
	cities := bson.D{{Key: "$ifNull", Value: bson.A{"$interests.city", bson.A{}}}}

	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: "interests", Value: bson.D{{Key: "$cond", Value: bson.D{
			{Key: "if", Value: bson.D{{Key: "$in", Value: bson.A{city, cities}}}},
			{Key: "then", Value: bson.D{{Key: "$map", Value: bson.D{
				{Key: "input", Value: current},
				{Key: "as", Value: "a"},
				{Key: "in", Value: bson.D{{Key: "$cond", Value: bson.A{
					bson.D{{Key: "$eq", Value: bson.A{"$$a.city", city}}},
					entry,
					"$$a",
				}}}},
			}}}},
			{Key: "else", Value: bson.D{{Key: "$concatArrays", Value: bson.A{current, bson.A{entry}}}}},
		}}}}}}},
	}
}

// SetSubscription applies subscriptionPipeline in a single update
func (r *UserRepository) SetSubscription(ctx context.Context, id, city bson.ObjectID, interests []bson.ObjectID) error {
	pipeline := subscriptionPipeline(city, interests)
	res, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, pipeline)
	if err != nil {
		return fmt.Errorf("failed to set subscription: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("user")
	}
	return nil
}

func (r *UserRepository) SetCity(ctx context.Context, id, city bson.ObjectID) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "settings.city", Value: city}}}})
	if err != nil {
		return fmt.Errorf("failed to set city: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("user")
	}
	return nil
}
