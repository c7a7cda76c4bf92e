package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	apperr "citypulse/internal/errors"
	"citypulse/internal/feed"
	"citypulse/internal/filter"
	"citypulse/internal/logger"
	"citypulse/internal/metrics"
	"citypulse/internal/models"
	"citypulse/internal/repository"
	"citypulse/internal/search"
)

// FeedResult is one computed view. Count is the total match count of a
// paginated view and the result length otherwise.
type FeedResult struct {
	Plan   feed.Plan
	Events []*models.Event
	Count  int64
}

// FeedService runs feed plans against the event store
type FeedService struct {
	events    repository.EventStore
	interests *InterestService
	searcher  search.Searcher
	engine    *feed.Engine
	now       func() time.Time
	views     map[string]func(feed.Request) (feed.Plan, error)
}

func NewFeedService(events repository.EventStore, interests *InterestService, searcher search.Searcher, engine *feed.Engine, now func() time.Time) *FeedService {
	return &FeedService{
		events:    events,
		interests: interests,
		searcher:  searcher,
		engine:    engine,
		now:       now,
		views: map[string]func(feed.Request) (feed.Plan, error){
			feed.ViewFeed:       engine.Feed,
			feed.ViewFeatured:   engine.Featured,
			feed.ViewOrganizer:  engine.Organizer,
			feed.ViewExplore:    engine.Explore,
			feed.ViewMap:        engine.Map,
			feed.ViewFavourites: engine.Favourites,
			feed.ViewModeration: engine.ModerationQueue,
		},
	}
}

// Run computes the named view for the caller
func (s *FeedService) Run(ctx context.Context, view string, user *models.User, values url.Values) (*FeedResult, error) {
	start := time.Now()
	result, err := s.run(ctx, view, user, values)
	n := 0
	if result != nil {
		n = len(result.Events)
	}
	metrics.RecordFeedQuery(view, n, time.Since(start), err)
	return result, err
}

func (s *FeedService) run(ctx context.Context, view string, user *models.User, values url.Values) (*FeedResult, error) {
	build, ok := s.views[view]
	if !ok {
		return nil, apperr.NotFound("view " + view)
	}
	if err := requireUser(user); err != nil {
		return nil, err
	}

	req := feed.Request{User: user, Now: s.now(), Values: values}
	if view == feed.ViewExplore {
		ix, err := s.interests.Index(ctx)
		if err != nil {
			return nil, err
		}
		req.Interests = ix
	}
	if term := strings.TrimSpace(values.Get("search")); term != "" {
		req.Search = s.indexSearch(ctx, view, user, term)
	}

	plan, err := build(req)
	if err != nil {
		return nil, err
	}

	events, err := s.events.Find(ctx, plan.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to run %s view: %w", view, err)
	}
	count := int64(len(events))
	if plan.Paginated {
		if count, err = s.events.Count(ctx, plan.Query.Where); err != nil {
			return nil, fmt.Errorf("failed to count %s view: %w", view, err)
		}
	}
	return &FeedResult{Plan: plan, Events: events, Count: count}, nil
}

// indexed views search only published events, the index holds no per-user
// scoping for the rest
var indexed = map[string]bool{
	feed.ViewFeed:     true,
	feed.ViewFeatured: true,
	feed.ViewExplore:  true,
	feed.ViewMap:      true,
}

// indexSearch asks the search index for matching ids. The hits widen the
// database text match; nil means the text match alone.
func (s *FeedService) indexSearch(ctx context.Context, view string, user *models.User, term string) filter.Cond {
	if s.searcher == nil || !indexed[view] {
		return nil
	}
	city := bson.NilObjectID
	if view != feed.ViewMap {
		city = user.Settings.City
	}
	ids, err := s.searcher.SearchIDs(ctx, term, city)
	if err != nil {
		metrics.SearchFallbacks.Inc()
		logger.WithContext(ctx).Warn("Search index not used, falling back to text match",
			"error", err, "view", view)
		return nil
	}
	return feed.IDs(ids)
}
