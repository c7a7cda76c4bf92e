package moderation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	apperr "citypulse/internal/errors"
	"citypulse/internal/models"
)

var now = time.Date(2016, 10, 1, 12, 0, 0, 0, time.UTC)

func price(v int64) *int64 { return &v }

func draft() Draft {
	return Draft{
		Title:    "Jazz Night",
		City:     bson.NewObjectID(),
		Currency: bson.NewObjectID(),
		MinPrice: price(1000),
		Dates:    []models.TimeWindow{{Date: "20161010", StartTime: "190000", EndTime: "230000"}},
	}
}

func TestNew(t *testing.T) {
	author := bson.NewObjectID()
	e, err := New(author, draft(), now)
	require.NoError(t, err)

	assert.Equal(t, models.StatusModeration, e.Status)
	assert.True(t, e.IsActive)
	assert.Equal(t, author, e.Author)
	assert.Equal(t, models.EventTypeNormal, e.Type)
	assert.False(t, e.ID.IsZero())
	assert.Zero(t, e.VotesNum)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(d *Draft)
		field string
	}{
		{"missing title", func(d *Draft) { d.Title = "  " }, "title"},
		{"unknown type", func(d *Draft) { d.Type = "PROMO" }, "type"},
		{"missing city", func(d *Draft) { d.City = bson.ObjectID{} }, "city"},
		{"missing currency", func(d *Draft) { d.Currency = bson.ObjectID{} }, "currency"},
		{"no price bound", func(d *Draft) { d.MinPrice = nil }, "min_price"},
		{"min above max", func(d *Draft) { d.MaxPrice = price(10) }, "max_price"},
		{"no windows", func(d *Draft) { d.Dates = nil }, "dates"},
		{"malformed window", func(d *Draft) { d.Dates[0].Date = "2016-10-10" }, "dates"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := draft()
			tt.edit(&d)
			_, err := New(bson.NewObjectID(), d, now)
			assert.ErrorIs(t, err, apperr.ErrValidation)
			assert.Equal(t, tt.field, apperr.Field(err))
		})
	}

	d := draft()
	d.MinPrice, d.MaxPrice = nil, price(500)
	_, err := New(bson.NewObjectID(), d, now)
	assert.NoError(t, err, "max alone is enough")
}

func TestEditAlwaysResetsToModeration(t *testing.T) {
	for _, status := range []models.ModerationStatus{models.StatusApproved, models.StatusRejected, models.StatusModeration} {
		e, err := New(bson.NewObjectID(), draft(), now)
		require.NoError(t, err)
		e.Status = status

		require.NoError(t, ApplyEdit(e, Edit{}, now.Add(time.Hour)))
		assert.Equal(t, models.StatusModeration, e.Status, "from %s", status)
		assert.Equal(t, now.Add(time.Hour), e.UpdatedAt)
	}
}

func TestEditValidatesBeforeApplying(t *testing.T) {
	e, err := New(bson.NewObjectID(), draft(), now)
	require.NoError(t, err)
	Approve(e, now)

	empty := ""
	err = ApplyEdit(e, Edit{Title: &empty}, now)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "Jazz Night", e.Title)
	assert.Equal(t, models.StatusApproved, e.Status, "failed edit leaves the event untouched")

	title := "Jazz Night II"
	require.NoError(t, ApplyEdit(e, Edit{Title: &title, MaxPrice: price(2000)}, now))
	assert.Equal(t, title, e.Title)
	assert.Equal(t, int64(2000), *e.MaxPrice)
	assert.Equal(t, int64(1000), *e.MinPrice)
}

func TestApproveRejectAndToggles(t *testing.T) {
	e, err := New(bson.NewObjectID(), draft(), now)
	require.NoError(t, err)
	moderator := bson.NewObjectID()

	Deactivate(e, now)
	Approve(e, now)
	assert.Equal(t, models.StatusApproved, e.Status)
	assert.False(t, e.IsActive, "approve does not touch the active flag")

	require.NoError(t, Reject(e, "spam", moderator, now))
	require.NoError(t, Reject(e, "still spam", moderator, now.Add(time.Minute)))
	assert.Equal(t, models.StatusRejected, e.Status)
	require.Len(t, e.RejectionReasons, 2)
	assert.Equal(t, "spam", e.RejectionReasons[0].Text)
	assert.Equal(t, moderator, e.RejectionReasons[1].Author)

	Activate(e, now)
	assert.True(t, e.IsActive, "rejected events can still be toggled")
	assert.Equal(t, models.StatusRejected, e.Status)

	assert.ErrorIs(t, Reject(e, " ", moderator, now), apperr.ErrValidation)
}

func TestAuthorization(t *testing.T) {
	city := bson.NewObjectID()
	author := &models.User{ID: bson.NewObjectID(), Role: models.RoleOrganizer}
	e := &models.Event{Author: author.ID, City: city}

	assert.NoError(t, CanCreate(author))
	assert.NoError(t, CanEdit(author, e))
	assert.ErrorIs(t, CanCreate(&models.User{Role: models.RoleRegular}), apperr.ErrForbidden)
	assert.ErrorIs(t, CanEdit(&models.User{ID: bson.NewObjectID(), Role: models.RoleAdministrator}, e), apperr.ErrForbidden)
	assert.ErrorIs(t, CanCreate(nil), apperr.ErrUnauthorized)

	assert.ErrorIs(t, CanModerate(author, e), apperr.ErrForbidden)
	assert.NoError(t, CanModerate(&models.User{Role: models.RoleModerator, AssignedCity: city}, e))
	assert.ErrorIs(t, CanModerate(&models.User{Role: models.RoleModerator, AssignedCity: bson.NewObjectID()}, e), apperr.ErrForbidden)
	assert.NoError(t, CanModerate(&models.User{Role: models.RoleAdministrator}, e))
	assert.NoError(t, CanModerate(&models.User{Role: models.RoleRoot}, e))
}
