package service

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"citypulse/internal/engagement"
	apperr "citypulse/internal/errors"
	"citypulse/internal/metrics"
	"citypulse/internal/models"
	"citypulse/internal/moderation"
	"citypulse/internal/repository"
	"citypulse/internal/timewindow"
)

// EventService - авторские и модераторские команды над событиями и журнал вовлеченности
type EventService struct {
	events     repository.EventStore
	complaints repository.ComplaintStore
	interests  *InterestService
	audit      *auditor
	now        func() time.Time
}

func NewEventService(events repository.EventStore, complaints repository.ComplaintStore, interests *InterestService, audit *auditor, now func() time.Time) *EventService {
	return &EventService{
		events:     events,
		complaints: complaints,
		interests:  interests,
		audit:      audit,
		now:        now,
	}
}

func windows(in []models.TimeWindowInput) []models.TimeWindow {
	if in == nil {
		return nil
	}
	out := make([]models.TimeWindow, len(in))
	for i, w := range in {
		out[i] = models.TimeWindow{Date: w.Date, StartTime: w.StartTime, EndTime: w.EndTime}
	}
	return out
}

func location(in *models.LocationInput) *models.GeoPoint {
	if in == nil {
		return nil
	}
	return models.NewGeoPoint(in.Lat, in.Lng)
}

func optionalID(field string, raw *string) (*bson.ObjectID, error) {
	if raw == nil {
		return nil, nil
	}
	id, err := parseID(field, *raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// checkInterests requires every referenced interest to exist
func (s *EventService) checkInterests(ctx context.Context, ids []bson.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	ix, err := s.interests.Index(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := ix.Get(id); !ok {
			return apperr.Validationf("interests", "unknown interest %s", id.Hex())
		}
	}
	return nil
}

// Create publishes a new event for review. Windows come from the explicit
// list or are expanded from start/end.
func (s *EventService) Create(ctx context.Context, user *models.User, req *models.CreateEventRequest) (*models.Event, error) {
	if err := moderation.CanCreate(user); err != nil {
		return nil, err
	}

	dates, err := timewindow.Resolve(windows(req.Dates), req.Start, req.End)
	if err != nil {
		return nil, err
	}
	draft := moderation.Draft{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		MinPrice:    req.MinPrice,
		MaxPrice:    req.MaxPrice,
		Dates:       dates,
		Location:    location(req.Location),
	}
	if req.City != "" {
		if draft.City, err = parseID("city", req.City); err != nil {
			return nil, err
		}
	}
	if req.Currency != "" {
		if draft.Currency, err = parseID("currency", req.Currency); err != nil {
			return nil, err
		}
	}
	if draft.Interests, err = parseIDs("interests", req.Interests); err != nil {
		return nil, err
	}
	if err := s.checkInterests(ctx, draft.Interests); err != nil {
		return nil, err
	}

	now := s.now()
	event, err := moderation.New(user.ID, draft, now)
	if err != nil {
		return nil, err
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	s.audit.event(ctx, models.AuditEventCreated, event.ID, user.ID, now, nil)
	return event, nil
}

// Get returns an event with the caller's vote and favourite flags. Events
// that are not publicly visible are shown to their author and staff only.
func (s *EventService) Get(ctx context.Context, user *models.User, id bson.ObjectID) (*models.EventResponse, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	event, err := s.events.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	public := event.Status == models.StatusApproved && event.IsActive
	if !public && event.Author != user.ID && !user.IsStaff() {
		return nil, apperr.NotFound("event")
	}
	resp := &models.EventResponse{
		Event:       event,
		IsUpvoted:   engagement.IsUpvoted(event, user.ID),
		IsFavourite: engagement.IsFavourite(event, user.ID),
	}
	if event.Author != user.ID && !user.IsStaff() {
		resp.RejectionReasons = nil
	}
	return resp, nil
}

// Update applies the author's patch and sends the event back to review
func (s *EventService) Update(ctx context.Context, user *models.User, id bson.ObjectID, req *models.UpdateEventRequest) (*models.Event, error) {
	event, err := s.events.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := moderation.CanEdit(user, event); err != nil {
		return nil, err
	}

	edit := moderation.Edit{
		Title:       req.Title,
		Description: req.Description,
		MinPrice:    req.MinPrice,
		MaxPrice:    req.MaxPrice,
		Location:    location(req.Location),
	}
	if edit.City, err = optionalID("city", req.City); err != nil {
		return nil, err
	}
	if edit.Currency, err = optionalID("currency", req.Currency); err != nil {
		return nil, err
	}
	if edit.Interests, err = parseIDs("interests", req.Interests); err != nil {
		return nil, err
	}
	if err := s.checkInterests(ctx, edit.Interests); err != nil {
		return nil, err
	}
	if req.Dates != nil || req.Start != nil || req.End != nil {
		if edit.Dates, err = timewindow.Resolve(windows(req.Dates), req.Start, req.End); err != nil {
			return nil, err
		}
	}

	now := s.now()
	if err := moderation.ApplyEdit(event, edit, now); err != nil {
		return nil, err
	}
	if err := s.events.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	s.audit.event(ctx, models.AuditEventUpdated, event.ID, user.ID, now, nil)
	// флаг активности мог смениться после чтения
	return s.events.Get(ctx, id)
}

func (s *EventService) Approve(ctx context.Context, user *models.User, id bson.ObjectID) error {
	err := s.moderate(ctx, user, id, func(now time.Time) error {
		return s.events.SetStatus(ctx, id, models.StatusApproved, nil, now)
	}, models.AuditEventApproved, nil)
	metrics.RecordCommand("approve", err)
	return err
}

func (s *EventService) Reject(ctx context.Context, user *models.User, id bson.ObjectID, text string) error {
	var reason models.RejectionReason
	err := s.moderate(ctx, user, id, func(now time.Time) error {
		var err error
		if reason, err = moderation.NewReason(text, user.ID, now); err != nil {
			return err
		}
		return s.events.SetStatus(ctx, id, models.StatusRejected, &reason, now)
	}, models.AuditEventRejected, func() map[string]any {
		return map[string]any{"reason": reason.Text}
	})
	metrics.RecordCommand("reject", err)
	return err
}

func (s *EventService) moderate(ctx context.Context, user *models.User, id bson.ObjectID, apply func(now time.Time) error, subject string, details func() map[string]any) error {
	if err := requireUser(user); err != nil {
		return err
	}
	event, err := s.events.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := moderation.CanModerate(user, event); err != nil {
		return err
	}
	now := s.now()
	if err := apply(now); err != nil {
		return err
	}
	var d map[string]any
	if details != nil {
		d = details()
	}
	s.audit.event(ctx, subject, id, user.ID, now, d)
	return nil
}

func (s *EventService) Activate(ctx context.Context, user *models.User, id bson.ObjectID) error {
	err := s.setActive(ctx, user, id, true)
	metrics.RecordCommand("activate", err)
	return err
}

func (s *EventService) Deactivate(ctx context.Context, user *models.User, id bson.ObjectID) error {
	err := s.setActive(ctx, user, id, false)
	metrics.RecordCommand("deactivate", err)
	return err
}

// setActive is independent of the moderation status
func (s *EventService) setActive(ctx context.Context, user *models.User, id bson.ObjectID, active bool) error {
	event, err := s.events.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := moderation.CanEdit(user, event); err != nil {
		return err
	}
	now := s.now()
	if err := s.events.SetActive(ctx, id, active, now); err != nil {
		return err
	}
	subject := models.AuditEventDeactivated
	if active {
		subject = models.AuditEventActivated
	}
	s.audit.event(ctx, subject, id, user.ID, now, nil)
	return nil
}

// Ledger toggles. The store applies each one atomically.

func (s *EventService) Upvote(ctx context.Context, user *models.User, id bson.ObjectID) error {
	return s.toggle(ctx, user, id, "upvote", models.AuditEventUpvoted, func(now time.Time) error {
		return s.events.Upvote(ctx, id, user.ID, now)
	})
}

func (s *EventService) Downvote(ctx context.Context, user *models.User, id bson.ObjectID) error {
	return s.toggle(ctx, user, id, "downvote", models.AuditEventDownvoted, func(time.Time) error {
		return s.events.Downvote(ctx, id, user.ID)
	})
}

func (s *EventService) AddFavourite(ctx context.Context, user *models.User, id bson.ObjectID) error {
	return s.toggle(ctx, user, id, "favourite", models.AuditEventFavourited, func(time.Time) error {
		return s.events.AddFavourite(ctx, id, user.ID)
	})
}

func (s *EventService) RemoveFavourite(ctx context.Context, user *models.User, id bson.ObjectID) error {
	return s.toggle(ctx, user, id, "unfavourite", models.AuditEventUnfavourited, func(time.Time) error {
		return s.events.RemoveFavourite(ctx, id, user.ID)
	})
}

func (s *EventService) toggle(ctx context.Context, user *models.User, id bson.ObjectID, command, subject string, apply func(now time.Time) error) error {
	if err := requireUser(user); err != nil {
		return err
	}
	now := s.now()
	err := apply(now)
	metrics.RecordCommand(command, err)
	if err != nil {
		return err
	}
	s.audit.event(ctx, subject, id, user.ID, now, nil)
	return nil
}

// Complain files a new open complaint, repeated complaints are allowed
func (s *EventService) Complain(ctx context.Context, user *models.User, id bson.ObjectID, text string) (*models.Complaint, error) {
	if err := requireUser(user); err != nil {
		return nil, err
	}
	if _, err := s.events.Get(ctx, id); err != nil {
		return nil, err
	}
	now := s.now()
	complaint, err := engagement.NewComplaint(id, user.ID, text, now)
	if err != nil {
		return nil, err
	}
	err = s.complaints.Create(ctx, complaint)
	metrics.RecordCommand("complain", err)
	if err != nil {
		return nil, fmt.Errorf("failed to file complaint: %w", err)
	}

	s.audit.publish(ctx, models.AuditRecord{
		Subject:     models.AuditComplaintFiled,
		EventID:     id.Hex(),
		ComplaintID: complaint.ID,
		ActorID:     user.ID.Hex(),
		Timestamp:   now,
	})
	return complaint, nil
}
