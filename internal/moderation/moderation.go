// Package moderation implements the event lifecycle: moderation status
// crossed with an independent active flag.
package moderation

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	apperr "citypulse/internal/errors"
	"citypulse/internal/models"
	"citypulse/internal/timewindow"
)

// Draft carries the author-controlled content of an event
type Draft struct {
	Title       string
	Description string
	Type        models.EventType
	City        bson.ObjectID
	Currency    bson.ObjectID
	MinPrice    *int64
	MaxPrice    *int64
	Interests   []bson.ObjectID
	Dates       []models.TimeWindow
	Location    *models.GeoPoint
}

// Edit is a partial update, nil fields stay unchanged
type Edit struct {
	Title       *string
	Description *string
	City        *bson.ObjectID
	Currency    *bson.ObjectID
	MinPrice    *int64
	MaxPrice    *int64
	Interests   []bson.ObjectID
	Dates       []models.TimeWindow
	Location    *models.GeoPoint
}

// New builds an event awaiting review, active, owned by author
func New(author bson.ObjectID, d Draft, now time.Time) (*models.Event, error) {
	if d.Type == "" {
		d.Type = models.EventTypeNormal
	}
	e := &models.Event{
		ID:          bson.NewObjectID(),
		Title:       strings.TrimSpace(d.Title),
		Description: d.Description,
		Type:        d.Type,
		Status:      models.StatusModeration,
		IsActive:    true,
		Author:      author,
		City:        d.City,
		Currency:    d.Currency,
		MinPrice:    d.MinPrice,
		MaxPrice:    d.MaxPrice,
		Interests:   d.Interests,
		Dates:       d.Dates,
		Location:    d.Location,
		Votes:       []models.Vote{},
		Favourites:  []bson.ObjectID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if e.Interests == nil {
		e.Interests = []bson.ObjectID{}
	}
	if err := Validate(e); err != nil {
		return nil, err
	}
	return e, nil
}

// Validate checks the content invariants of an event
func Validate(e *models.Event) error {
	if strings.TrimSpace(e.Title) == "" {
		return apperr.Validation("title", "title is required")
	}
	if !e.Type.Valid() {
		return apperr.Validationf("type", "unknown event type %q", e.Type)
	}
	if e.City.IsZero() {
		return apperr.Validation("city", "city is required")
	}
	if e.Currency.IsZero() {
		return apperr.Validation("currency", "currency is required")
	}
	if e.MinPrice == nil && e.MaxPrice == nil {
		return apperr.Validation("min_price", "at least one price bound is required")
	}
	if e.MinPrice != nil && e.MaxPrice != nil && *e.MinPrice > *e.MaxPrice {
		return apperr.Validation("max_price", "min_price must not exceed max_price")
	}
	if (e.MinPrice != nil && *e.MinPrice < 0) || (e.MaxPrice != nil && *e.MaxPrice < 0) {
		return apperr.Validation("min_price", "prices must not be negative")
	}
	if len(e.Dates) == 0 {
		return apperr.Validation("dates", "at least one time window is required")
	}
	for _, w := range e.Dates {
		if err := timewindow.Validate(w); err != nil {
			return err
		}
	}
	return nil
}

// ApplyEdit patches the content and sends the event back to review.
// Every edit resets status, even one that changes nothing.
func ApplyEdit(e *models.Event, edit Edit, now time.Time) error {
	next := *e
	if edit.Title != nil {
		next.Title = strings.TrimSpace(*edit.Title)
	}
	if edit.Description != nil {
		next.Description = *edit.Description
	}
	if edit.City != nil {
		next.City = *edit.City
	}
	if edit.Currency != nil {
		next.Currency = *edit.Currency
	}
	if edit.MinPrice != nil {
		next.MinPrice = edit.MinPrice
	}
	if edit.MaxPrice != nil {
		next.MaxPrice = edit.MaxPrice
	}
	if edit.Interests != nil {
		next.Interests = edit.Interests
	}
	if edit.Dates != nil {
		next.Dates = edit.Dates
	}
	if edit.Location != nil {
		next.Location = edit.Location
	}
	if err := Validate(&next); err != nil {
		return err
	}

	next.Status = models.StatusModeration
	next.UpdatedAt = now
	*e = next
	return nil
}

// Approve leaves the active flag alone
func Approve(e *models.Event, now time.Time) {
	e.Status = models.StatusApproved
	e.UpdatedAt = now
}

// Reject appends to the rejection history, earlier reasons are kept
func Reject(e *models.Event, text string, author bson.ObjectID, now time.Time) error {
	reason, err := NewReason(text, author, now)
	if err != nil {
		return err
	}
	e.Status = models.StatusRejected
	e.RejectionReasons = append(e.RejectionReasons, reason)
	e.UpdatedAt = now
	return nil
}

func NewReason(text string, author bson.ObjectID, now time.Time) (models.RejectionReason, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.RejectionReason{}, apperr.Validation("text", "rejection reason is required")
	}
	return models.RejectionReason{Text: text, Author: author, Date: now}, nil
}

func Activate(e *models.Event, now time.Time) {
	e.IsActive = true
	e.UpdatedAt = now
}

func Deactivate(e *models.Event, now time.Time) {
	e.IsActive = false
	e.UpdatedAt = now
}

// CanCreate requires role ORGANIZER or above
func CanCreate(u *models.User) error {
	if u == nil {
		return apperr.ErrUnauthorized
	}
	if !u.Role.AtLeast(models.RoleOrganizer) {
		return apperr.Forbidden("only organizers can publish events")
	}
	return nil
}

// CanEdit allows the author, provided they are still an organizer
func CanEdit(u *models.User, e *models.Event) error {
	if err := CanCreate(u); err != nil {
		return err
	}
	if e.Author != u.ID {
		return apperr.Forbidden("only the author can change the event")
	}
	return nil
}

// CanModerate allows staff. Moderators are limited to their assigned city.
func CanModerate(u *models.User, e *models.Event) error {
	if u == nil {
		return apperr.ErrUnauthorized
	}
	if !u.IsStaff() {
		return apperr.Forbidden("only staff can moderate events")
	}
	if u.Role == models.RoleModerator && e != nil && u.AssignedCity != e.City {
		return apperr.Forbidden("event is outside of the moderator's city")
	}
	return nil
}
