package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"citypulse/internal/cache"
	apperr "citypulse/internal/errors"
	"citypulse/internal/feed"
	"citypulse/internal/logger"
	"citypulse/internal/messaging"
	"citypulse/internal/metrics"
	"citypulse/internal/models"
	"citypulse/internal/repository"
	"citypulse/internal/search"
)

// Deps - внешние зависимости сервисов. Nil Searcher disables the index,
// nil Publisher drops audit records. Indexer is used only without a
// Publisher: events are then re-indexed inline instead of by the consumers.
type Deps struct {
	Repos       *repository.Repositories
	Publisher   messaging.Publisher
	Cache       cache.Cache
	InterestTTL time.Duration
	Searcher    search.Searcher
	Indexer     search.Indexer
	Feed        feed.Config
	Now         func() time.Time
}

// LocalInterestTTL caps the catalogue lifetime in the in-process cache
const LocalInterestTTL = 30 * time.Second

type Services struct {
	Events        *EventService
	Feed          *FeedService
	Interests     *InterestService
	Subscriptions *SubscriptionService
	Complaints    *ComplaintService
}

func NewServices(d Deps) *Services {
	audit := &auditor{pub: d.Publisher, events: d.Repos.Events}
	if d.Publisher == nil {
		audit.pub = messaging.Noop{}
		audit.indexer = d.Indexer
	}
	if d.InterestTTL <= 0 {
		d.InterestTTL = 5 * time.Minute
	}
	if d.Cache == nil {
		// кэш процесса не видит инвалидацию с других инстансов
		d.Cache = cache.NewMemory()
		d.InterestTTL = min(d.InterestTTL, LocalInterestTTL)
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	interests := NewInterestService(d.Repos.Interests, d.Cache, d.InterestTTL)

	return &Services{
		Events:        NewEventService(d.Repos.Events, d.Repos.Complaints, interests, audit, d.Now),
		Feed:          NewFeedService(d.Repos.Events, interests, d.Searcher, feed.New(d.Feed), d.Now),
		Interests:     interests,
		Subscriptions: NewSubscriptionService(d.Repos.Users, interests, audit, d.Now),
		Complaints:    NewComplaintService(d.Repos.Complaints, audit, d.Feed, d.Now),
	}
}

// auditor publishes after a successful mutation. Failures are logged and
// never undo the mutation.
type auditor struct {
	pub     messaging.Publisher
	events  repository.EventStore
	indexer search.Indexer
}

func (a *auditor) publish(ctx context.Context, rec models.AuditRecord) {
	err := a.pub.Publish(ctx, rec)
	metrics.RecordAuditPublish(rec.Subject, err)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to publish audit record",
			"error", err,
			"subject", rec.Subject,
			"event_id", rec.EventID,
			"complaint_id", rec.ComplaintID)
	}
}

func (a *auditor) event(ctx context.Context, subject string, event, actor bson.ObjectID, now time.Time, details map[string]any) {
	a.publish(ctx, models.AuditRecord{
		Subject:   subject,
		EventID:   event.Hex(),
		ActorID:   actor.Hex(),
		Timestamp: now,
		Details:   details,
	})
	if a.indexer != nil && models.ReindexSubjects[subject] {
		a.reindex(ctx, event)
	}
}

// reindex does the consumers' work when audit records are not published
func (a *auditor) reindex(ctx context.Context, id bson.ObjectID) {
	e, err := a.events.Get(ctx, id)
	if err == nil {
		err = a.indexer.IndexEvent(ctx, e)
	}
	if err != nil {
		logger.WithContext(ctx).Warn("Failed to index event", "event_id", id.Hex(), "error", err)
	}
}

func requireUser(user *models.User) error {
	if user == nil {
		return apperr.ErrUnauthorized
	}
	return nil
}

func requireStaff(user *models.User, action string) error {
	if err := requireUser(user); err != nil {
		return err
	}
	if !user.IsStaff() {
		return apperr.Forbidden("only staff can " + action)
	}
	return nil
}

func parseID(field, raw string) (bson.ObjectID, error) {
	id, err := bson.ObjectIDFromHex(raw)
	if err != nil {
		return bson.ObjectID{}, apperr.Validationf(field, "invalid id %q", raw)
	}
	return id, nil
}

func parseIDs(field string, raw []string) ([]bson.ObjectID, error) {
	if raw == nil {
		return nil, nil
	}
	ids := make([]bson.ObjectID, 0, len(raw))
	for _, r := range raw {
		id, err := parseID(field, r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
