package interest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	apperr "citypulse/internal/errors"
	"citypulse/internal/models"
)

type tree struct {
	almaty, astana             bson.ObjectID
	music, jazz, rock, bebop   bson.ObjectID
	sport, localOnly, inactive bson.ObjectID
	all                        []models.Interest
}

// music -> jazz -> bebop, music -> rock, sport, localOnly (Astana), inactive
func newTree() tree {
	t := tree{
		almaty: bson.NewObjectID(), astana: bson.NewObjectID(),
		music: bson.NewObjectID(), jazz: bson.NewObjectID(), rock: bson.NewObjectID(),
		bebop: bson.NewObjectID(), sport: bson.NewObjectID(),
		localOnly: bson.NewObjectID(), inactive: bson.NewObjectID(),
	}
	t.all = []models.Interest{
		{ID: t.music, Title: "Music", IsGlobal: true, IsActive: true},
		{ID: t.jazz, Title: "Jazz", IsGlobal: true, IsActive: true, Parent: &t.music},
		{ID: t.rock, Title: "Rock", IsGlobal: true, IsActive: true, Parent: &t.music},
		{ID: t.bebop, Title: "Bebop", IsGlobal: true, IsActive: true, Parent: &t.jazz},
		{ID: t.sport, Title: "Sport", IsGlobal: true, IsActive: true},
		{ID: t.localOnly, Title: "Steppe rides", LocalCities: []bson.ObjectID{t.astana}, IsActive: true},
		{ID: t.inactive, Title: "Retired", IsGlobal: true},
	}
	return t
}

func TestFamily(t *testing.T) {
	tr := newTree()
	ix := NewIndex(tr.all)

	assert.Equal(t, []bson.ObjectID{tr.music, tr.jazz, tr.rock, tr.bebop}, ix.Family(tr.music))
	assert.Equal(t, []bson.ObjectID{tr.jazz, tr.bebop}, ix.Family(tr.jazz))
	assert.Equal(t, []bson.ObjectID{tr.sport}, ix.Family(tr.sport))

	union := ix.FamilyOf([]bson.ObjectID{tr.jazz, tr.music, tr.bebop})
	assert.ElementsMatch(t, []bson.ObjectID{tr.music, tr.jazz, tr.rock, tr.bebop}, union)
}

func TestValidateParent(t *testing.T) {
	tr := newTree()
	ix := NewIndex(tr.all)

	assert.NoError(t, ix.ValidateParent(tr.sport, nil))
	assert.NoError(t, ix.ValidateParent(tr.sport, &tr.music))
	assert.NoError(t, ix.ValidateParent(bson.ObjectID{}, &tr.bebop), "new interest under a leaf")

	err := ix.ValidateParent(tr.music, &tr.music)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	err = ix.ValidateParent(tr.music, &tr.bebop)
	assert.ErrorIs(t, err, apperr.ErrValidation, "bebop descends from music")
	assert.Equal(t, "parent", apperr.Field(err))

	unknown := bson.NewObjectID()
	assert.ErrorIs(t, ix.ValidateParent(tr.music, &unknown), apperr.ErrValidation)
}

func TestAvailable(t *testing.T) {
	tr := newTree()
	ix := NewIndex(tr.all)

	ids := func(list []models.Interest) []bson.ObjectID {
		out := make([]bson.ObjectID, 0, len(list))
		for _, i := range list {
			out = append(out, i.ID)
		}
		return out
	}

	assert.Equal(t, []bson.ObjectID{tr.music, tr.jazz, tr.rock, tr.bebop, tr.sport}, ids(ix.Available(tr.almaty)))
	assert.Contains(t, ids(ix.Available(tr.astana)), tr.localOnly)
}

func TestResolve(t *testing.T) {
	tr := newTree()
	ix := NewIndex(tr.all)
	user := &models.User{Settings: models.UserSettings{City: tr.almaty}}

	got, err := ix.Resolve(user, true, nil)
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.NotContains(t, got, tr.inactive)
	assert.NotContains(t, got, tr.localOnly)

	got, err = ix.Resolve(user, false, []bson.ObjectID{tr.jazz, tr.jazz, tr.sport})
	require.NoError(t, err)
	assert.Equal(t, []bson.ObjectID{tr.jazz, tr.sport}, got)

	_, err = ix.Resolve(user, false, []bson.ObjectID{tr.localOnly})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = ix.Resolve(&models.User{}, true, nil)
	assert.ErrorIs(t, err, apperr.ErrNoCitySelected)
}

func TestUpsertTwiceKeepsOneAssignmentWithSecondSet(t *testing.T) {
	tr := newTree()
	user := &models.User{Settings: models.UserSettings{City: tr.almaty}}
	user.Interests = []models.CityInterestAssignment{{City: tr.astana, Interests: []bson.ObjectID{tr.localOnly}}}

	user.Interests = Upsert(user.Interests, tr.almaty, []bson.ObjectID{tr.jazz})
	user.Interests = Upsert(user.Interests, tr.almaty, []bson.ObjectID{tr.rock, tr.sport})

	require.Len(t, user.Interests, 2)
	assert.Equal(t, tr.astana, user.Interests[0].City, "other cities untouched")

	var almaty []models.CityInterestAssignment
	for _, a := range user.Interests {
		if a.City == tr.almaty {
			almaty = append(almaty, a)
		}
	}
	require.Len(t, almaty, 1)
	assert.Equal(t, []bson.ObjectID{tr.rock, tr.sport}, almaty[0].Interests)
	assert.Equal(t, []bson.ObjectID{tr.rock, tr.sport}, Current(user))
}

func TestCurrentWithoutCity(t *testing.T) {
	assert.Nil(t, Current(&models.User{}))
	assert.Nil(t, Current(nil))
}
