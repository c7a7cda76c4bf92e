package consumers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"citypulse/internal/models"
	"citypulse/internal/repository/memory"
)

type fakeIndexer struct {
	indexed []string
	deleted []bson.ObjectID
	err     error
}

func (f *fakeIndexer) IndexEvent(_ context.Context, e *models.Event) error {
	if f.err != nil {
		return f.err
	}
	f.indexed = append(f.indexed, e.Title)
	return nil
}

func (f *fakeIndexer) DeleteEvent(_ context.Context, id bson.ObjectID) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func record(subject string, id bson.ObjectID) models.AuditRecord {
	return models.AuditRecord{
		Subject:   subject,
		EventID:   id.Hex(),
		ActorID:   bson.NewObjectID().Hex(),
		Timestamp: time.Date(2016, 10, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestHandleReindexesFromStore(t *testing.T) {
	ctx := context.Background()
	repos := memory.New().Repositories()
	event := &models.Event{Title: "Jazz night"}
	require.NoError(t, repos.Events.Create(ctx, event))

	idx := &fakeIndexer{}
	h := NewHandlers(repos.Events, idx)

	require.NoError(t, h.Handle(ctx, record(models.AuditEventUpdated, event.ID)))
	require.NoError(t, h.Handle(ctx, record(models.AuditEventUpvoted, event.ID)))
	assert.Equal(t, []string{"Jazz night"}, idx.indexed)

	missing := bson.NewObjectID()
	require.NoError(t, h.Handle(ctx, record(models.AuditEventApproved, missing)))
	assert.Equal(t, []bson.ObjectID{missing}, idx.deleted)
}

func TestHandleReturnsIndexErrors(t *testing.T) {
	ctx := context.Background()
	repos := memory.New().Repositories()
	event := &models.Event{Title: "Jazz night"}
	require.NoError(t, repos.Events.Create(ctx, event))

	h := NewHandlers(repos.Events, &fakeIndexer{err: errors.New("index down")})
	assert.Error(t, h.Handle(ctx, record(models.AuditEventCreated, event.ID)))
}

func TestHandleWithoutIndexer(t *testing.T) {
	h := NewHandlers(memory.New().Repositories().Events, nil)

	assert.NoError(t, h.Handle(context.Background(), record(models.AuditEventCreated, bson.NewObjectID())))
	assert.NoError(t, h.Handle(context.Background(), models.AuditRecord{Subject: models.AuditComplaintFiled, ComplaintID: 3}))
}

func TestHandleSkipsBadEventID(t *testing.T) {
	idx := &fakeIndexer{}
	h := NewHandlers(memory.New().Repositories().Events, idx)

	assert.NoError(t, h.Handle(context.Background(), models.AuditRecord{Subject: models.AuditEventCreated, EventID: "nope"}))
	assert.Empty(t, idx.indexed)
	assert.Empty(t, idx.deleted)
}
