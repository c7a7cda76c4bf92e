package feed

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	apperr "citypulse/internal/errors"
	"citypulse/internal/filter"
	"citypulse/internal/interest"
	"citypulse/internal/models"
)

var now = time.Date(2016, 10, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	city, otherCity bson.ObjectID
	music, jazz     bson.ObjectID
	user            *models.User
	interests       []models.Interest
}

func newFixture() *fixture {
	f := &fixture{
		city: bson.NewObjectID(), otherCity: bson.NewObjectID(),
		music: bson.NewObjectID(), jazz: bson.NewObjectID(),
	}
	f.interests = []models.Interest{
		{ID: f.music, Title: "Music", IsGlobal: true, IsActive: true},
		{ID: f.jazz, Title: "Jazz", IsGlobal: true, IsActive: true, Parent: &f.music},
	}
	f.user = &models.User{
		ID:       bson.NewObjectID(),
		Role:     models.RoleOrganizer,
		Settings: models.UserSettings{City: f.city},
		Interests: []models.CityInterestAssignment{
			{City: f.city, Interests: []bson.ObjectID{f.music}},
		},
	}
	return f
}

func (f *fixture) event(mut ...func(e *models.Event)) *models.Event {
	e := &models.Event{
		ID:        bson.NewObjectID(),
		Title:     "Event",
		Type:      models.EventTypeNormal,
		Status:    models.StatusApproved,
		IsActive:  true,
		Author:    f.user.ID,
		City:      f.city,
		Interests: []bson.ObjectID{f.music},
		Dates:     []models.TimeWindow{{Date: "20161015", StartTime: "190000", EndTime: "220000"}},
	}
	for _, m := range mut {
		m(e)
	}
	return e
}

func (f *fixture) request(query string) Request {
	values, _ := url.ParseQuery(query)
	return Request{User: f.user, Now: now, Values: values, Interests: interest.NewIndex(f.interests)}
}

func run(t *testing.T, p Plan, events []*models.Event) ([]*models.Event, int64) {
	t.Helper()
	_, err := filter.ToBSON(p.Query.Where)
	require.NoError(t, err, "plan must translate to a store query")
	return filter.Apply(events, p.Query), filter.Count(events, p.Query.Where)
}

func windows(ws ...string) func(e *models.Event) {
	return func(e *models.Event) {
		e.Dates = nil
		for _, w := range ws {
			e.Dates = append(e.Dates, models.TimeWindow{Date: w[:8], StartTime: w[9:15], EndTime: w[16:]})
		}
	}
}

var engine = New(Config{DefaultPageSize: 10, MaxPageSize: 50, DefaultRadiusKm: 10, MaxRadiusKm: 100})

func TestFeedBaseFilterExcludesEachConditionIndependently(t *testing.T) {
	f := newFixture()
	visible := f.event()

	tests := []struct {
		name  string
		event *models.Event
	}{
		{"not approved", f.event(func(e *models.Event) { e.Status = models.StatusModeration })},
		{"rejected", f.event(func(e *models.Event) { e.Status = models.StatusRejected })},
		{"inactive", f.event(func(e *models.Event) { e.IsActive = false })},
		{"other city", f.event(func(e *models.Event) { e.City = f.otherCity })},
		{"no interest overlap", f.event(func(e *models.Event) { e.Interests = []bson.ObjectID{f.jazz} })},
		{"finished", f.event(windows("20161009 100000 235959"))},
		{"ended earlier today", f.event(windows("20161010 080000 115959"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := engine.Feed(f.request(""))
			require.NoError(t, err)
			got, count := run(t, plan, []*models.Event{visible, tt.event})
			assert.Equal(t, []*models.Event{visible}, got)
			assert.Equal(t, int64(1), count)
		})
	}

	plan, err := engine.Feed(f.request(""))
	require.NoError(t, err)
	today := f.event(windows("20161010 080000 120000"))
	got, _ := run(t, plan, []*models.Event{today})
	assert.Len(t, got, 1, "a window ending exactly now is still running")
}

func TestFeedWithoutCity(t *testing.T) {
	f := newFixture()
	f.user.Settings.City = bson.ObjectID{}

	for _, view := range []func(Request) (Plan, error){engine.Feed, engine.Featured, engine.Explore} {
		_, err := view(f.request(""))
		assert.ErrorIs(t, err, apperr.ErrNoCitySelected)
	}
}

func TestFeedDateParamsMatchAnyWindow(t *testing.T) {
	f := newFixture()
	e := f.event(windows("20161010 100000 110000", "20161012 100000 110000"))
	// the first window already passed, the second keeps the event in the feed
	events := []*models.Event{e}

	plan, err := engine.Feed(f.request("start_date=20161011"))
	require.NoError(t, err)
	got, _ := run(t, plan, events)
	assert.Len(t, got, 1)

	plan, err = engine.Feed(f.request("end_date=20161009"))
	require.NoError(t, err)
	got, _ = run(t, plan, events)
	assert.Empty(t, got)

	plan, err = engine.Feed(f.request("start_date=20161011&end_date=20161011"))
	require.NoError(t, err)
	got, _ = run(t, plan, events)
	assert.Len(t, got, 1, "start and end date are independent any-window matches")

	plan, err = engine.Feed(f.request("start_time=100000&end_time=103000"))
	require.NoError(t, err)
	got, _ = run(t, plan, events)
	assert.Empty(t, got)
}

func TestFeedPriceAndSearch(t *testing.T) {
	f := newFixture()
	cheap := f.event(func(e *models.Event) {
		p := int64(500)
		e.MinPrice, e.MaxPrice, e.Title = &p, &p, "Open air"
	})
	pricey := f.event(func(e *models.Event) {
		lo, hi := int64(5000), int64(20000)
		e.MinPrice, e.MaxPrice, e.Description = &lo, &hi, "Symphony JAZZ orchestra"
	})
	events := []*models.Event{cheap, pricey}

	plan, err := engine.Feed(f.request("min_price=1000"))
	require.NoError(t, err)
	got, _ := run(t, plan, events)
	assert.Equal(t, []*models.Event{pricey}, got)

	plan, err = engine.Feed(f.request("max_price=1000"))
	require.NoError(t, err)
	got, _ = run(t, plan, events)
	assert.Equal(t, []*models.Event{cheap}, got)

	plan, err = engine.Feed(f.request("search=jazz"))
	require.NoError(t, err)
	got, _ = run(t, plan, events)
	assert.Equal(t, []*models.Event{pricey}, got)

	r := f.request("search=jazz")
	r.Search = IDs([]bson.ObjectID{cheap.ID})
	plan, err = engine.Feed(r)
	require.NoError(t, err)
	got, _ = run(t, plan, events)
	assert.Equal(t, []*models.Event{cheap, pricey}, got, "index hits are added to the text match")

	// пустой или устаревший индекс не теряет текстовые совпадения
	r = f.request("search=jazz")
	r.Search = IDs(nil)
	plan, err = engine.Feed(r)
	require.NoError(t, err)
	got, _ = run(t, plan, events)
	assert.Equal(t, []*models.Event{pricey}, got)
}

func TestExploreAndMapApplyNarrowing(t *testing.T) {
	f := newFixture()
	jazz := f.event(func(e *models.Event) {
		p := int64(5000)
		e.Title, e.MinPrice, e.MaxPrice = "Jazz night", &p, &p
		e.Location = models.NewGeoPoint(43.2567, 76.8860)
	})
	rock := f.event(func(e *models.Event) {
		p := int64(500)
		e.Title, e.MinPrice, e.MaxPrice = "Rock night", &p, &p
		e.Location = models.NewGeoPoint(43.2567, 76.8860)
	})
	events := []*models.Event{jazz, rock}
	at := "lat=43.2567&lng=76.8860&"

	tests := []struct {
		name  string
		view  func(Request) (Plan, error)
		query string
		want  []*models.Event
	}{
		{"explore search", engine.Explore, "search=JAZZ", []*models.Event{jazz}},
		{"explore price", engine.Explore, "max_price=1000", []*models.Event{rock}},
		{"explore start date", engine.Explore, "start_date=20161101", nil},
		{"map search", engine.Map, at + "search=rock", []*models.Event{rock}},
		{"map price", engine.Map, at + "min_price=1000", []*models.Event{jazz}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := tt.view(f.request(tt.query))
			require.NoError(t, err)
			got, _ := run(t, plan, events)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := engine.Explore(f.request("min_price=cheap"))
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = engine.Map(f.request(at + "end_date=2016"))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestFeedInvalidParamsFailWholeRequest(t *testing.T) {
	f := newFixture()

	tests := []struct {
		query string
		field string
	}{
		{"min_price=cheap&search=jazz", "min_price"},
		{"start_date=2016-10-11", "start_date"},
		{"end_time=25", "end_time"},
		{"interests=nope", "interests"},
		{"order=random", "order"},
		{"page=0", "page"},
		{"pageSize=51", "pageSize"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			_, err := engine.Feed(f.request(tt.query))
			assert.ErrorIs(t, err, apperr.ErrValidation)
			assert.Equal(t, tt.field, apperr.Field(err))
		})
	}
}

func TestFeedOrdering(t *testing.T) {
	f := newFixture()
	later := f.event(windows("20161020 100000 110000"))
	early := f.event(windows("20161011 180000 190000"))
	earlyMorning := f.event(windows("20161011 090000 100000"))
	sameAsEarly := f.event(windows("20161011 180000 190000"))
	popularEarly := f.event(windows("20161011 200000 210000"), func(e *models.Event) { e.VotesNum = 7 })
	events := []*models.Event{later, early, earlyMorning, sameAsEarly, popularEarly}

	plan, err := engine.Feed(f.request(""))
	require.NoError(t, err)
	got, _ := run(t, plan, events)
	assert.Equal(t, []*models.Event{earlyMorning, early, sameAsEarly, popularEarly, later}, got)

	plan, err = engine.Feed(f.request("order=popular"))
	require.NoError(t, err)
	got, _ = run(t, plan, events)
	assert.Equal(t, []*models.Event{popularEarly, early, earlyMorning, sameAsEarly, later}, got)
}

func TestFeedPagination(t *testing.T) {
	f := newFixture()
	var events []*models.Event
	for i := 0; i < 5; i++ {
		events = append(events, f.event())
	}

	plan, err := engine.Feed(f.request("page=2&pageSize=2"))
	require.NoError(t, err)
	assert.True(t, plan.Paginated)
	assert.Equal(t, Page{Page: 2, PageSize: 2}, plan.Page)

	got, count := run(t, plan, events)
	assert.Equal(t, events[2:4], got, "equal keys keep insertion order")
	assert.Equal(t, int64(5), count)

	plan, err = engine.Feed(f.request(""))
	require.NoError(t, err)
	assert.Equal(t, Page{Page: 1, PageSize: 10}, plan.Page)
}

func TestFeaturedOrdersByFirstWindow(t *testing.T) {
	f := newFixture()
	featured := func(e *models.Event) { e.Type = models.EventTypeFeatured }

	// earliest window is stored second, so only first-window order puts b first
	a := f.event(featured, windows("20161016 100000 110000", "20161011 100000 110000"))
	b := f.event(featured, windows("20161013 100000 110000"))
	normal := f.event(windows("20161011 100000 110000"))

	plan, err := engine.Featured(f.request(""))
	require.NoError(t, err)
	got, _ := run(t, plan, []*models.Event{a, b, normal})
	assert.Equal(t, []*models.Event{b, a}, got)
}

// five buckets: 6 active, 5 active but finished, 4 inactive, 3 moderation, 2 rejected
func organizerFixture(f *fixture) []*models.Event {
	var events []*models.Event
	add := func(n int, mut ...func(e *models.Event)) {
		for i := 0; i < n; i++ {
			events = append(events, f.event(mut...))
		}
	}
	add(6)
	add(5, windows("20161001 100000 110000"))
	add(4, func(e *models.Event) { e.IsActive = false })
	add(3, func(e *models.Event) { e.Status = models.StatusModeration })
	add(2, func(e *models.Event) { e.Status = models.StatusRejected })

	// someone else's event never shows up
	other := f.event(func(e *models.Event) { e.Author = bson.NewObjectID() })
	return append(events, other)
}

func TestOrganizerToggles(t *testing.T) {
	f := newFixture()
	events := organizerFixture(f)

	tests := []struct {
		query string
		want  int64
	}{
		{"", 20},
		{"active=false&moderation=false&rejected=false", 9},
		{"finished=false", 15},
		{"active=false", 14},
		{"not_active=0&finished=no", 11},
		{"active=false&not_active=false&moderation=false&rejected=false&finished=false", 0},
		{"active=true&not_active=false&moderation=false&rejected=false&finished=false", 6},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			plan, err := engine.Organizer(f.request(tt.query + "&pageSize=50"))
			require.NoError(t, err)
			got, count := run(t, plan, events)
			assert.Equal(t, tt.want, count)
			assert.Len(t, got, int(tt.want))
		})
	}

	_, err := engine.Organizer(f.request("active=maybe"))
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "active", apperr.Field(err))
}

func TestOrganizerIgnoresCityAndSubscription(t *testing.T) {
	f := newFixture()
	f.user.Settings.City = bson.ObjectID{}
	e := f.event(func(e *models.Event) {
		e.City = f.otherCity
		e.Interests = nil
	})

	plan, err := engine.Organizer(f.request(""))
	require.NoError(t, err)
	got, _ := run(t, plan, []*models.Event{e})
	assert.Len(t, got, 1)
}

func TestExploreUsesInterestFamily(t *testing.T) {
	f := newFixture()
	child := f.event(func(e *models.Event) { e.Interests = []bson.ObjectID{f.jazz} })
	parent := f.event()
	elsewhere := f.event(func(e *models.Event) {
		e.City = f.otherCity
		e.Interests = []bson.ObjectID{f.jazz}
	})
	events := []*models.Event{child, parent, elsewhere}

	feedPlan, err := engine.Feed(f.request(""))
	require.NoError(t, err)
	got, _ := run(t, feedPlan, events)
	assert.Equal(t, []*models.Event{parent}, got, "feed matches the exact subscription")

	plan, err := engine.Explore(f.request(""))
	require.NoError(t, err)
	assert.False(t, plan.Paginated)
	got, _ = run(t, plan, events)
	assert.ElementsMatch(t, []*models.Event{child, parent}, got)

	plan, err = engine.Explore(f.request("interest=" + f.jazz.Hex()))
	require.NoError(t, err)
	got, _ = run(t, plan, events)
	assert.Equal(t, []*models.Event{child}, got)

	_, err = engine.Explore(f.request("interest=bad"))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestMapReplacesCityWithRadius(t *testing.T) {
	f := newFixture()
	near := f.event(func(e *models.Event) {
		e.City = f.otherCity
		e.Location = models.NewGeoPoint(43.2833, 76.9286)
	})
	far := f.event(func(e *models.Event) { e.Location = models.NewGeoPoint(51.1694, 71.4491) })
	nowhere := f.event()
	hidden := f.event(func(e *models.Event) {
		e.Location = models.NewGeoPoint(43.2567, 76.8860)
		e.IsActive = false
	})
	events := []*models.Event{near, far, nowhere, hidden}

	plan, err := engine.Map(f.request("lat=43.2567&lng=76.8860"))
	require.NoError(t, err)
	assert.False(t, plan.Paginated)
	got, _ := run(t, plan, events)
	assert.Equal(t, []*models.Event{near}, got)

	plan, err = engine.Map(f.request("lat=43.2567&lng=76.8860&radius=2"))
	require.NoError(t, err)
	got, _ = run(t, plan, events)
	assert.Empty(t, got)

	for _, q := range []string{"lng=76.8", "lat=91&lng=0", "lat=43&lng=76&radius=500"} {
		_, err = engine.Map(f.request(q))
		assert.ErrorIs(t, err, apperr.ErrValidation, q)
	}
}

func TestFavourites(t *testing.T) {
	f := newFixture()
	mine := f.event(func(e *models.Event) {
		e.Status = models.StatusRejected
		e.City = f.otherCity
		e.Favourites = []bson.ObjectID{f.user.ID}
	})
	notMine := f.event()

	plan, err := engine.Favourites(f.request(""))
	require.NoError(t, err)
	got, _ := run(t, plan, []*models.Event{mine, notMine})
	assert.Equal(t, []*models.Event{mine}, got)
}

func TestModerationQueue(t *testing.T) {
	f := newFixture()
	pending := f.event(func(e *models.Event) { e.Status = models.StatusModeration })
	pendingElsewhere := f.event(func(e *models.Event) {
		e.Status = models.StatusModeration
		e.City = f.otherCity
	})
	approved := f.event()
	events := []*models.Event{pending, pendingElsewhere, approved}

	_, err := engine.ModerationQueue(f.request(""))
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	f.user.Role = models.RoleModerator
	f.user.AssignedCity = f.city
	plan, err := engine.ModerationQueue(f.request("city=" + f.otherCity.Hex()))
	require.NoError(t, err)
	got, _ := run(t, plan, events)
	assert.Equal(t, []*models.Event{pending}, got, "moderators stay in their city")

	f.user.Role = models.RoleAdministrator
	plan, err = engine.ModerationQueue(f.request(""))
	require.NoError(t, err)
	got, _ = run(t, plan, events)
	assert.ElementsMatch(t, []*models.Event{pending, pendingElsewhere}, got)

	plan, err = engine.ModerationQueue(f.request("city=" + f.otherCity.Hex()))
	require.NoError(t, err)
	got, _ = run(t, plan, events)
	assert.Equal(t, []*models.Event{pendingElsewhere}, got)
}
