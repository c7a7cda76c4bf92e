package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	apperr "citypulse/internal/errors"
	"citypulse/internal/filter"
	"citypulse/internal/models"
)

var now = time.Date(2016, 10, 1, 12, 0, 0, 0, time.UTC)

func TestConcurrentUpvotesKeepOneVotePerUser(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()

	e := &models.Event{Title: "Jazz"}
	require.NoError(t, repos.Events.Create(ctx, e))

	users := []bson.ObjectID{bson.NewObjectID(), bson.NewObjectID(), bson.NewObjectID()}
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(u bson.ObjectID) {
			defer wg.Done()
			_ = repos.Events.Upvote(ctx, e.ID, u, now)
		}(users[i%len(users)])
	}
	wg.Wait()

	got, err := repos.Events.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Len(t, got.Votes, 3)
	assert.Equal(t, int64(3), got.VotesNum)
}

func TestToggleErrors(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()
	e := &models.Event{}
	require.NoError(t, repos.Events.Create(ctx, e))
	user := bson.NewObjectID()

	assert.ErrorIs(t, repos.Events.Downvote(ctx, e.ID, user), apperr.ErrNotVoted)
	assert.ErrorIs(t, repos.Events.Upvote(ctx, bson.NewObjectID(), user, now), apperr.ErrNotFound)
	require.NoError(t, repos.Events.AddFavourite(ctx, e.ID, user))
	assert.ErrorIs(t, repos.Events.AddFavourite(ctx, e.ID, user), apperr.ErrAlreadyFavourite)
}

func TestReturnedEventsAreCopies(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()
	e := &models.Event{Title: "Original", Dates: []models.TimeWindow{{Date: "20161010"}}}
	require.NoError(t, repos.Events.Create(ctx, e))

	got, err := repos.Events.Get(ctx, e.ID)
	require.NoError(t, err)
	got.Title = "Changed"
	got.Dates[0].Date = "20161111"

	again, err := repos.Events.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", again.Title)
	assert.Equal(t, "20161010", again.Dates[0].Date)
}

func TestUpdateKeepsLedger(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()
	e := &models.Event{Title: "Jazz"}
	require.NoError(t, repos.Events.Create(ctx, e))
	require.NoError(t, repos.Events.Upvote(ctx, e.ID, bson.NewObjectID(), now))

	stale := *e
	stale.Title = "Jazz II"
	require.NoError(t, repos.Events.Update(ctx, &stale))

	got, err := repos.Events.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jazz II", got.Title)
	assert.Equal(t, int64(1), got.VotesNum)
}

func TestUpdateKeepsConcurrentDeactivation(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()
	e := &models.Event{Title: "Jazz", IsActive: true, Type: models.EventTypeNormal}
	require.NoError(t, repos.Events.Create(ctx, e))

	read, err := repos.Events.Get(ctx, e.ID)
	require.NoError(t, err)
	require.NoError(t, repos.Events.SetActive(ctx, e.ID, false, now))

	read.Title = "Jazz II"
	read.Status = models.StatusModeration
	require.NoError(t, repos.Events.Update(ctx, read))

	got, err := repos.Events.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jazz II", got.Title)
	assert.False(t, got.IsActive, "an edit from an older read must not re-activate the event")
	assert.Equal(t, models.StatusModeration, got.Status)
}

func TestSubscriptionUpsert(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()
	city := bson.NewObjectID()
	u := &models.User{Email: "a@b.c"}
	require.NoError(t, repos.Users.Create(ctx, u))

	first, second := []bson.ObjectID{bson.NewObjectID()}, []bson.ObjectID{bson.NewObjectID(), bson.NewObjectID()}
	require.NoError(t, repos.Users.SetSubscription(ctx, u.ID, city, first))
	require.NoError(t, repos.Users.SetSubscription(ctx, u.ID, city, second))

	got, err := repos.Users.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, got.Interests, 1)
	assert.Equal(t, second, got.Interests[0].Interests)

	assert.Error(t, repos.Users.Create(ctx, &models.User{Email: "a@b.c"}))
}

func TestComplaints(t *testing.T) {
	ctx := context.Background()
	repos := New().Repositories()
	event := bson.NewObjectID()

	for i := 0; i < 3; i++ {
		require.NoError(t, repos.Complaints.Create(ctx, &models.Complaint{
			EventID: event, Author: bson.NewObjectID(), Text: "spam", Status: models.ComplaintOpen, CreatedAt: now,
		}))
	}

	closed, err := repos.Complaints.Reply(ctx, 2, "done", bson.NewObjectID(), now)
	require.NoError(t, err)
	assert.Equal(t, models.ComplaintClosed, closed.Status)

	_, err = repos.Complaints.Reply(ctx, 2, "again", bson.NewObjectID(), now)
	assert.ErrorIs(t, err, apperr.ErrComplaintClosed)
	_, err = repos.Complaints.Reply(ctx, 9, "none", bson.NewObjectID(), now)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	open := filter.F("status", filter.Eq, models.ComplaintOpen)
	n, err := repos.Complaints.Count(ctx, open)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, err := repos.Complaints.List(ctx, filter.Query{Where: open, Sort: []filter.SortKey{filter.Desc("_id")}})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(3), list[0].ID)
}
