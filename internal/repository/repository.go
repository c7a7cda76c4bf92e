package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"citypulse/internal/database"
	"citypulse/internal/filter"
	"citypulse/internal/models"
)

// EventStore persists events. Vote and favourite toggles are single atomic
// updates that fail with a conflict error when the toggle is repeated.
type EventStore interface {
	Create(ctx context.Context, e *models.Event) error
	Get(ctx context.Context, id bson.ObjectID) (*models.Event, error)
	// Update replaces author content and status. The active flag, type and
	// ledger are left to their own commands.
	Update(ctx context.Context, e *models.Event) error
	SetStatus(ctx context.Context, id bson.ObjectID, status models.ModerationStatus, reason *models.RejectionReason, now time.Time) error
	SetActive(ctx context.Context, id bson.ObjectID, active bool, now time.Time) error
	Find(ctx context.Context, q filter.Query) ([]*models.Event, error)
	Count(ctx context.Context, c filter.Cond) (int64, error)

	Upvote(ctx context.Context, id, user bson.ObjectID, now time.Time) error
	Downvote(ctx context.Context, id, user bson.ObjectID) error
	AddFavourite(ctx context.Context, id, user bson.ObjectID) error
	RemoveFavourite(ctx context.Context, id, user bson.ObjectID) error
}

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id bson.ObjectID) (*models.User, error)
	// SetSubscription replaces the assignment for city or appends one
	SetSubscription(ctx context.Context, id, city bson.ObjectID, interests []bson.ObjectID) error
	SetCity(ctx context.Context, id, city bson.ObjectID) error
}

type InterestStore interface {
	List(ctx context.Context) ([]models.Interest, error)
	Create(ctx context.Context, i *models.Interest) error
}

// ComplaintStore keeps the complaint log. Reply closes an open complaint
// and fails with a conflict when it is already closed.
type ComplaintStore interface {
	Create(ctx context.Context, c *models.Complaint) error
	Get(ctx context.Context, id int64) (*models.Complaint, error)
	Reply(ctx context.Context, id int64, answer string, executor bson.ObjectID, now time.Time) (*models.Complaint, error)
	List(ctx context.Context, q filter.Query) ([]*models.Complaint, error)
	Count(ctx context.Context, c filter.Cond) (int64, error)
}

type Repositories struct {
	Events     EventStore
	Users      UserStore
	Interests  InterestStore
	Complaints ComplaintStore
}

func NewRepositories(mongo *database.Mongo, db *database.DB) *Repositories {
	return &Repositories{
		Events:     NewEventRepository(mongo.Events()),
		Users:      NewUserRepository(mongo.Users()),
		Interests:  NewInterestRepository(mongo.Interests()),
		Complaints: NewComplaintRepository(db),
	}
}
