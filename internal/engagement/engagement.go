// Package engagement implements votes, favourites and complaints.
//
// Votes and favourites are idempotent toggles: repeating an operation fails
// with a conflict and leaves the event unchanged. VotesNum always equals
// len(Votes). Stores must apply the same rules in one atomic update.
package engagement

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	apperr "citypulse/internal/errors"
	"citypulse/internal/models"
)

func IsUpvoted(e *models.Event, user bson.ObjectID) bool {
	for _, v := range e.Votes {
		if v.User == user {
			return true
		}
	}
	return false
}

func Upvote(e *models.Event, user bson.ObjectID, now time.Time) error {
	if IsUpvoted(e, user) {
		return apperr.ErrAlreadyVoted
	}
	e.Votes = append(e.Votes, models.Vote{User: user, Date: now})
	e.VotesNum++
	return nil
}

func Downvote(e *models.Event, user bson.ObjectID) error {
	for i, v := range e.Votes {
		if v.User == user {
			e.Votes = append(e.Votes[:i:i], e.Votes[i+1:]...)
			e.VotesNum--
			return nil
		}
	}
	return apperr.ErrNotVoted
}

func IsFavourite(e *models.Event, user bson.ObjectID) bool {
	for _, u := range e.Favourites {
		if u == user {
			return true
		}
	}
	return false
}

func AddFavourite(e *models.Event, user bson.ObjectID) error {
	if IsFavourite(e, user) {
		return apperr.ErrAlreadyFavourite
	}
	e.Favourites = append(e.Favourites, user)
	return nil
}

func RemoveFavourite(e *models.Event, user bson.ObjectID) error {
	for i, u := range e.Favourites {
		if u == user {
			e.Favourites = append(e.Favourites[:i:i], e.Favourites[i+1:]...)
			return nil
		}
	}
	return apperr.ErrNotFavourite
}

// NewComplaint always opens a new complaint, repeated complaints are allowed
func NewComplaint(event, author bson.ObjectID, text string, now time.Time) (*models.Complaint, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("text", "complaint text is required")
	}
	return &models.Complaint{
		EventID:   event,
		Author:    author,
		Text:      text,
		Status:    models.ComplaintOpen,
		CreatedAt: now,
	}, nil
}

// Reply closes an open complaint. Closed complaints are never reopened or
// overwritten.
func Reply(c *models.Complaint, answer string, executor bson.ObjectID, now time.Time) error {
	if c.Status != models.ComplaintOpen {
		return apperr.ErrComplaintClosed
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return apperr.Validation("answer", "answer is required")
	}
	c.Answer = &answer
	c.Executor = &executor
	c.DateAnswered = &now
	c.Status = models.ComplaintClosed
	return nil
}
