package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	apperr "citypulse/internal/errors"
	"citypulse/internal/interest"
	"citypulse/internal/models"
	"citypulse/internal/repository"
)

// SubscriptionService manages per-city interest subscriptions of a user
type SubscriptionService struct {
	users     repository.UserStore
	interests *InterestService
	audit     *auditor
	now       func() time.Time
}

func NewSubscriptionService(users repository.UserStore, interests *InterestService, audit *auditor, now func() time.Time) *SubscriptionService {
	return &SubscriptionService{users: users, interests: interests, audit: audit, now: now}
}

// Get returns the subscription for the current city, empty when none
func (s *SubscriptionService) Get(ctx context.Context, user *models.User) (*models.CityInterestAssignment, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	if user.Settings.City.IsZero() {
		return nil, apperr.ErrNoCitySelected
	}
	current := interest.Current(user)
	if current == nil {
		current = []bson.ObjectID{}
	}
	return &models.CityInterestAssignment{City: user.Settings.City, Interests: current}, nil
}

// Set replaces the subscription for the user's current city
func (s *SubscriptionService) Set(ctx context.Context, user *models.User, req *models.SubscriptionRequest) (*models.CityInterestAssignment, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	if user.Settings.City.IsZero() {
		return nil, apperr.ErrNoCitySelected
	}
	ids, err := parseIDs("interests", req.Interests)
	if err != nil {
		return nil, err
	}
	ix, err := s.interests.Index(ctx)
	if err != nil {
		return nil, err
	}
	resolved, err := ix.Resolve(user, req.All.Bool(), ids)
	if err != nil {
		return nil, err
	}

	city := user.Settings.City
	if err := s.users.SetSubscription(ctx, user.ID, city, resolved); err != nil {
		return nil, err
	}

	s.audit.publish(ctx, models.AuditRecord{
		Subject:   models.AuditSubscriptionChanged,
		ActorID:   user.ID.Hex(),
		Timestamp: s.now(),
		Details:   map[string]any{"city": city.Hex(), "interests": len(resolved)},
	})
	return &models.CityInterestAssignment{City: city, Interests: resolved}, nil
}

// SetCity changes the current city. Subscriptions of other cities are kept.
func (s *SubscriptionService) SetCity(ctx context.Context, user *models.User, req *models.SetCityRequest) error {
	if err := requireUser(user); err != nil {
		return err
	}
	city, err := parseID("city", req.City)
	if err != nil {
		return err
	}
	return s.users.SetCity(ctx, user.ID, city)
}
