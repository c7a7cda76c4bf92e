// Package memory is an in-process implementation of the repository
// interfaces. It evaluates filter conditions with the in-memory matcher and
// serves tests and dry runs.
package memory

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"citypulse/internal/engagement"
	apperr "citypulse/internal/errors"
	"citypulse/internal/filter"
	"citypulse/internal/interest"
	"citypulse/internal/models"
	"citypulse/internal/repository"
)

// Store holds every collection behind one lock, so each call is atomic
type Store struct {
	mu         sync.RWMutex
	events     []*models.Event
	users      map[bson.ObjectID]*models.User
	interests  []models.Interest
	complaints []*models.Complaint
}

func New() *Store {
	return &Store{users: make(map[bson.ObjectID]*models.User)}
}

// Repositories exposes the store through the repository interfaces
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Events:     (*Events)(s),
		Users:      (*Users)(s),
		Interests:  (*Interests)(s),
		Complaints: (*Complaints)(s),
	}
}

type Events Store

func (s *Events) Create(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID.IsZero() {
		e.ID = bson.NewObjectID()
	}
	s.events = append(s.events, cloneEvent(e))
	return nil
}

func (s *Events) find(id bson.ObjectID) (*models.Event, error) {
	for _, e := range s.events {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, apperr.NotFound("event")
}

func (s *Events) Get(_ context.Context, id bson.ObjectID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.find(id)
	if err != nil {
		return nil, err
	}
	return cloneEvent(e), nil
}

func (s *Events) Update(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.find(e.ID)
	if err != nil {
		return err
	}
	next := cloneEvent(e)
	// ledger, activity and type are owned by their own commands
	next.Votes, next.VotesNum, next.Favourites = cur.Votes, cur.VotesNum, cur.Favourites
	next.RejectionReasons = cur.RejectionReasons
	next.IsActive, next.Type = cur.IsActive, cur.Type
	next.Author, next.CreatedAt = cur.Author, cur.CreatedAt
	*cur = *next
	return nil
}

func (s *Events) SetStatus(_ context.Context, id bson.ObjectID, status models.ModerationStatus, reason *models.RejectionReason, now time.Time) error {
	return s.mutate(id, func(e *models.Event) error {
		e.Status = status
		if reason != nil {
			e.RejectionReasons = append(e.RejectionReasons, *reason)
		}
		e.UpdatedAt = now
		return nil
	})
}

func (s *Events) SetActive(_ context.Context, id bson.ObjectID, active bool, now time.Time) error {
	return s.mutate(id, func(e *models.Event) error {
		e.IsActive = active
		e.UpdatedAt = now
		return nil
	})
}

func (s *Events) Find(_ context.Context, q filter.Query) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := filter.Apply(s.events, q)
	out := make([]*models.Event, len(found))
	for i, e := range found {
		out[i] = cloneEvent(e)
	}
	return out, nil
}

func (s *Events) Count(_ context.Context, c filter.Cond) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filter.Count(s.events, c), nil
}

func (s *Events) Upvote(_ context.Context, id, user bson.ObjectID, now time.Time) error {
	return s.mutate(id, func(e *models.Event) error { return engagement.Upvote(e, user, now) })
}

func (s *Events) Downvote(_ context.Context, id, user bson.ObjectID) error {
	return s.mutate(id, func(e *models.Event) error { return engagement.Downvote(e, user) })
}

func (s *Events) AddFavourite(_ context.Context, id, user bson.ObjectID) error {
	return s.mutate(id, func(e *models.Event) error { return engagement.AddFavourite(e, user) })
}

func (s *Events) RemoveFavourite(_ context.Context, id, user bson.ObjectID) error {
	return s.mutate(id, func(e *models.Event) error { return engagement.RemoveFavourite(e, user) })
}

func (s *Events) mutate(id bson.ObjectID, fn func(e *models.Event) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.find(id)
	if err != nil {
		return err
	}
	return fn(e)
}

type Users Store

func (s *Users) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = bson.NewObjectID()
	}
	for _, existing := range s.users {
		if u.Email != "" && existing.Email == u.Email {
			return apperr.Conflict("user with this email already exists")
		}
	}
	s.users[u.ID] = cloneUser(u)
	return nil
}

func (s *Users) Get(_ context.Context, id bson.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperr.NotFound("user")
	}
	return cloneUser(u), nil
}

func (s *Users) SetSubscription(_ context.Context, id, city bson.ObjectID, interests []bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return apperr.NotFound("user")
	}
	u.Interests = interest.Upsert(u.Interests, city, append([]bson.ObjectID{}, interests...))
	return nil
}

func (s *Users) SetCity(_ context.Context, id, city bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return apperr.NotFound("user")
	}
	u.Settings.City = city
	return nil
}

type Interests Store

func (s *Interests) List(_ context.Context) ([]models.Interest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Interest{}, s.interests...), nil
}

func (s *Interests) Create(_ context.Context, i *models.Interest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i.ID.IsZero() {
		i.ID = bson.NewObjectID()
	}
	s.interests = append(s.interests, *i)
	return nil
}

type Complaints Store

func (s *Complaints) Create(_ context.Context, c *models.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = int64(len(s.complaints) + 1)
	cp := *c
	s.complaints = append(s.complaints, &cp)
	return nil
}

func (s *Complaints) Get(_ context.Context, id int64) (*models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id < 1 || id > int64(len(s.complaints)) {
		return nil, apperr.NotFound("complaint")
	}
	cp := *s.complaints[id-1]
	return &cp, nil
}

func (s *Complaints) Reply(_ context.Context, id int64, answer string, executor bson.ObjectID, now time.Time) (*models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 1 || id > int64(len(s.complaints)) {
		return nil, apperr.NotFound("complaint")
	}
	c := s.complaints[id-1]
	if err := engagement.Reply(c, answer, executor, now); err != nil {
		return nil, err
	}
	cp := *c
	return &cp, nil
}

func (s *Complaints) List(_ context.Context, q filter.Query) ([]*models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := filter.Apply(s.complaints, q)
	out := make([]*models.Complaint, len(found))
	for i, c := range found {
		cp := *c
		out[i] = &cp
	}
	return out, nil
}

func (s *Complaints) Count(_ context.Context, c filter.Cond) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filter.Count(s.complaints, c), nil
}

func cloneEvent(e *models.Event) *models.Event {
	cp := *e
	cp.Interests = append([]bson.ObjectID(nil), e.Interests...)
	cp.Dates = append([]models.TimeWindow(nil), e.Dates...)
	cp.Votes = append([]models.Vote(nil), e.Votes...)
	cp.Favourites = append([]bson.ObjectID(nil), e.Favourites...)
	cp.RejectionReasons = append([]models.RejectionReason(nil), e.RejectionReasons...)
	if e.Location != nil {
		loc := *e.Location
		loc.Coordinates = append([]float64(nil), e.Location.Coordinates...)
		cp.Location = &loc
	}
	return &cp
}

func cloneUser(u *models.User) *models.User {
	cp := *u
	cp.Interests = make([]models.CityInterestAssignment, len(u.Interests))
	for i, a := range u.Interests {
		cp.Interests[i] = models.CityInterestAssignment{
			City:      a.City,
			Interests: append([]bson.ObjectID(nil), a.Interests...),
		}
	}
	return &cp
}
