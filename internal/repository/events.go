package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	apperr "citypulse/internal/errors"
	"citypulse/internal/filter"
	"citypulse/internal/models"
)

// EventRepository stores events in MongoDB
type EventRepository struct {
	coll *mongo.Collection
}

func NewEventRepository(coll *mongo.Collection) *EventRepository {
	return &EventRepository{coll: coll}
}

func (r *EventRepository) Create(ctx context.Context, e *models.Event) error {
	if e.ID.IsZero() {
		e.ID = bson.NewObjectID()
	}
	if e.Votes == nil {
		e.Votes = []models.Vote{}
	}
	if e.Favourites == nil {
		e.Favourites = []bson.ObjectID{}
	}
	if _, err := r.coll.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (r *EventRepository) Get(ctx context.Context, id bson.ObjectID) (*models.Event, error) {
	var e models.Event
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("event")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &e, nil
}

// editUpdate sets author content and status. is_active, type and the
// ledger are owned by their own commands and never written from a read copy.
func editUpdate(e *models.Event) bson.D {
	set := bson.D{
		{Key: "title", Value: e.Title},
		{Key: "description", Value: e.Description},
		{Key: "status", Value: e.Status},
		{Key: "city", Value: e.City},
		{Key: "currency", Value: e.Currency},
		{Key: "interests", Value: e.Interests},
		{Key: "dates", Value: e.Dates},
		{Key: "updated_at", Value: e.UpdatedAt},
	}
	unset := bson.D{}
	optional := []struct {
		key   string
		value any
		isNil bool
	}{
		{"min_price", e.MinPrice, e.MinPrice == nil},
		{"max_price", e.MaxPrice, e.MaxPrice == nil},
		{"location", e.Location, e.Location == nil},
	}
	for _, o := range optional {
		if o.isNil {
			unset = append(unset, bson.E{Key: o.key, Value: ""})
		} else {
			set = append(set, bson.E{Key: o.key, Value: o.value})
		}
	}

	update := bson.D{{Key: "$set", Value: set}}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}
	return update
}

func (r *EventRepository) Update(ctx context.Context, e *models.Event) error {
	return r.updateByID(ctx, e.ID, editUpdate(e))
}

func (r *EventRepository) SetStatus(ctx context.Context, id bson.ObjectID, status models.ModerationStatus, reason *models.RejectionReason, now time.Time) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: status},
		{Key: "updated_at", Value: now},
	}}}
	if reason != nil {
		update = append(update, bson.E{Key: "$push", Value: bson.D{{Key: "rejection_reasons", Value: reason}}})
	}
	return r.updateByID(ctx, id, update)
}

func (r *EventRepository) SetActive(ctx context.Context, id bson.ObjectID, active bool, now time.Time) error {
	return r.updateByID(ctx, id, bson.D{{Key: "$set", Value: bson.D{
		{Key: "is_active", Value: active},
		{Key: "updated_at", Value: now},
	}}})
}

func (r *EventRepository) updateByID(ctx context.Context, id bson.ObjectID, update bson.D) error {
	res, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, update)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("event")
	}
	return nil
}

func (r *EventRepository) Find(ctx context.Context, q filter.Query) ([]*models.Event, error) {
	where, err := filter.ToBSON(q.Where)
	if err != nil {
		return nil, err
	}

	opts := options.Find()
	if len(q.Sort) > 0 {
		opts.SetSort(filter.SortBSON(q.Sort))
	}
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cur, err := r.coll.Find(ctx, where, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find events: %w", err)
	}
	events := []*models.Event{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return events, nil
}

func (r *EventRepository) Count(ctx context.Context, c filter.Cond) (int64, error) {
	where, err := filter.ToBSON(c)
	if err != nil {
		return 0, err
	}
	n, err := r.coll.CountDocuments(ctx, where)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}

// ledgerUpdate is a guarded single-document update. Guard is merged into
// the _id filter; a miss on an existing event is the conflict error.
type ledgerUpdate struct {
	guard    bson.D
	update   bson.D
	conflict error
}

func upvoteUpdate(user bson.ObjectID, now time.Time) ledgerUpdate {
	return ledgerUpdate{
		guard: bson.D{{Key: "votes.user", Value: bson.D{{Key: "$ne", Value: user}}}},
		update: bson.D{
			{Key: "$push", Value: bson.D{{Key: "votes", Value: models.Vote{User: user, Date: now}}}},
			{Key: "$inc", Value: bson.D{{Key: "votes_num", Value: 1}}},
		},
		conflict: apperr.ErrAlreadyVoted,
	}
}

func downvoteUpdate(user bson.ObjectID) ledgerUpdate {
	return ledgerUpdate{
		guard: bson.D{{Key: "votes.user", Value: user}},
		update: bson.D{
			{Key: "$pull", Value: bson.D{{Key: "votes", Value: bson.D{{Key: "user", Value: user}}}}},
			{Key: "$inc", Value: bson.D{{Key: "votes_num", Value: -1}}},
		},
		conflict: apperr.ErrNotVoted,
	}
}

func addFavouriteUpdate(user bson.ObjectID) ledgerUpdate {
	return ledgerUpdate{
		guard:    bson.D{{Key: "in_favourites", Value: bson.D{{Key: "$ne", Value: user}}}},
		update:   bson.D{{Key: "$push", Value: bson.D{{Key: "in_favourites", Value: user}}}},
		conflict: apperr.ErrAlreadyFavourite,
	}
}

func removeFavouriteUpdate(user bson.ObjectID) ledgerUpdate {
	return ledgerUpdate{
		guard:    bson.D{{Key: "in_favourites", Value: user}},
		update:   bson.D{{Key: "$pull", Value: bson.D{{Key: "in_favourites", Value: user}}}},
		conflict: apperr.ErrNotFavourite,
	}
}

func (u ledgerUpdate) where(id bson.ObjectID) bson.D {
	return append(bson.D{{Key: "_id", Value: id}}, u.guard...)
}

// Upvote pushes the vote and bumps votes_num in one update, guarded by the
// absence of a vote from user
func (r *EventRepository) Upvote(ctx context.Context, id, user bson.ObjectID, now time.Time) error {
	return r.toggle(ctx, id, upvoteUpdate(user, now))
}

func (r *EventRepository) Downvote(ctx context.Context, id, user bson.ObjectID) error {
	return r.toggle(ctx, id, downvoteUpdate(user))
}

func (r *EventRepository) AddFavourite(ctx context.Context, id, user bson.ObjectID) error {
	return r.toggle(ctx, id, addFavouriteUpdate(user))
}

func (r *EventRepository) RemoveFavourite(ctx context.Context, id, user bson.ObjectID) error {
	return r.toggle(ctx, id, removeFavouriteUpdate(user))
}

// toggle applies update when guard holds. A miss is a conflict if the event
// exists and not found otherwise.
func (r *EventRepository) toggle(ctx context.Context, id bson.ObjectID, u ledgerUpdate) error {
	res, err := r.coll.UpdateOne(ctx, u.where(id), u.update)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("failed to check event: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("event")
	}
	return u.conflict
}
