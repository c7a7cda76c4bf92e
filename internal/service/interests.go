package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"citypulse/internal/cache"
	apperr "citypulse/internal/errors"
	"citypulse/internal/interest"
	"citypulse/internal/logger"
	"citypulse/internal/models"
	"citypulse/internal/repository"
)

// InterestService serves the interest catalogue. The whole catalogue is
// cached as one snapshot and the index is rebuilt from it per request.
type InterestService struct {
	repo  repository.InterestStore
	cache cache.Cache
	ttl   time.Duration
}

func NewInterestService(repo repository.InterestStore, c cache.Cache, ttl time.Duration) *InterestService {
	return &InterestService{repo: repo, cache: c, ttl: ttl}
}

// Index returns an adjacency index over the current catalogue
func (s *InterestService) Index(ctx context.Context) (*interest.Index, error) {
	var all []models.Interest
	found, err := s.cache.GetJSON(ctx, cache.InterestsKey, &all)
	if err != nil {
		logger.WithContext(ctx).Warn("Interest cache lookup failed", "error", err)
	}
	if found {
		return interest.NewIndex(all), nil
	}

	all, err = s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list interests: %w", err)
	}
	if err := s.cache.SetJSON(ctx, cache.InterestsKey, all, s.ttl); err != nil {
		logger.WithContext(ctx).Warn("Interest cache write failed", "error", err)
	}
	return interest.NewIndex(all), nil
}

// List returns interests available in the caller's current city
func (s *InterestService) List(ctx context.Context, user *models.User) ([]models.Interest, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	if user.Settings.City.IsZero() {
		return nil, apperr.ErrNoCitySelected
	}
	ix, err := s.Index(ctx)
	if err != nil {
		return nil, err
	}
	available := ix.Available(user.Settings.City)
	if available == nil {
		available = []models.Interest{}
	}
	return available, nil
}

// Create adds a node to the tree. The parent must exist and a global
// interest carries no city list.
func (s *InterestService) Create(ctx context.Context, user *models.User, req *models.CreateInterestRequest) (*models.Interest, error) {
	if err := requireStaff(user, "manage interests"); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperr.Validation("title", "title is required")
	}
	cities, err := parseIDs("local_cities", req.LocalCities)
	if err != nil {
		return nil, err
	}
	switch {
	case req.IsGlobal && len(cities) > 0:
		return nil, apperr.Validation("local_cities", "global interest cannot be scoped to cities")
	case !req.IsGlobal && len(cities) == 0:
		return nil, apperr.Validation("local_cities", "local interest needs at least one city")
	}

	var parent *bson.ObjectID
	if req.Parent != nil {
		id, err := parseID("parent", *req.Parent)
		if err != nil {
			return nil, err
		}
		parent = &id
	}

	ix, err := s.Index(ctx)
	if err != nil {
		return nil, err
	}
	if err := ix.ValidateParent(bson.ObjectID{}, parent); err != nil {
		return nil, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	i := &models.Interest{
		ID:          bson.NewObjectID(),
		Title:       title,
		IsGlobal:    req.IsGlobal,
		LocalCities: cities,
		Parent:      parent,
		IsActive:    active,
	}
	if err := s.repo.Create(ctx, i); err != nil {
		return nil, err
	}

	if err := s.cache.Delete(ctx, cache.InterestsKey); err != nil {
		logger.WithContext(ctx).Warn("Interest cache invalidation failed", "error", err)
	}
	return i, nil
}
