package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"citypulse/internal/interest"
	"citypulse/internal/models"
	"citypulse/internal/moderation"
	"citypulse/internal/repository"
	"citypulse/internal/timewindow"
)

// City - город для генерации, центр используется для координат событий
type City struct {
	ID   bson.ObjectID
	Name string
	Lat  float64
	Lng  float64
}

var defaultCities = []City{
	{ID: mustID("5f1a00000000000000000001"), Name: "Almaty", Lat: 43.2380, Lng: 76.8890},
	{ID: mustID("5f1a00000000000000000002"), Name: "Astana", Lat: 51.1280, Lng: 71.4300},
}

var defaultCurrency = mustID("5f1b00000000000000000001")

// интересы: корень и его дети
var interestTree = []struct {
	Title    string
	Children []string
}{
	{"Music", []string{"Jazz", "Rock", "Classical"}},
	{"Sport", []string{"Football", "Running"}},
	{"Theatre", []string{"Drama", "Opera"}},
	{"Exhibitions", nil},
}

var titles = []string{
	"Open air", "Night session", "Festival", "Premiere", "Workshop",
	"Concert", "Marathon", "Evening", "Master class", "Tour",
}

func mustID(hex string) bson.ObjectID {
	id, err := bson.ObjectIDFromHex(hex)
	if err != nil {
		panic(err)
	}
	return id
}

// Summary - что было создано
type Summary struct {
	Interests []models.Interest
	Users     []*models.User
	Events    int
	ByStatus  map[models.ModerationStatus]int
}

type Generator struct {
	repos  *repository.Repositories
	rnd    *rand.Rand
	now    time.Time
	cities []City
}

func NewGenerator(repos *repository.Repositories, seed int64, now time.Time) *Generator {
	return &Generator{
		repos:  repos,
		rnd:    rand.New(rand.NewSource(seed)),
		now:    now,
		cities: defaultCities,
	}
}

// Generate writes the interest tree, one user per role and n events
func (g *Generator) Generate(ctx context.Context, n int) (*Summary, error) {
	sum := &Summary{ByStatus: map[models.ModerationStatus]int{}}

	interests, err := g.generateInterests(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate interests: %w", err)
	}
	sum.Interests = interests

	users, err := g.generateUsers(ctx, interest.NewIndex(interests))
	if err != nil {
		return nil, fmt.Errorf("failed to generate users: %w", err)
	}
	sum.Users = users

	var organizer *models.User
	for _, u := range users {
		if u.Role == models.RoleOrganizer {
			organizer = u
		}
	}

	var leaves []models.Interest
	for _, i := range interests {
		if i.Parent != nil || i.Title == "Exhibitions" {
			leaves = append(leaves, i)
		}
	}

	for i := 0; i < n; i++ {
		event, err := g.generateEvent(organizer.ID, leaves)
		if err != nil {
			return nil, fmt.Errorf("failed to build event %d: %w", i, err)
		}
		if err := g.repos.Events.Create(ctx, event); err != nil {
			return nil, fmt.Errorf("failed to insert event %d: %w", i, err)
		}
		sum.Events++
		sum.ByStatus[event.Status]++
	}

	slog.Info("Generated events", "count", sum.Events, "by_status", sum.ByStatus)
	return sum, nil
}

func (g *Generator) generateInterests(ctx context.Context) ([]models.Interest, error) {
	var out []models.Interest
	add := func(i models.Interest) error {
		if err := g.repos.Interests.Create(ctx, &i); err != nil {
			return err
		}
		out = append(out, i)
		return nil
	}

	for _, root := range interestTree {
		r := models.Interest{ID: bson.NewObjectID(), Title: root.Title, IsGlobal: true, IsActive: true}
		if err := add(r); err != nil {
			return nil, err
		}
		for _, title := range root.Children {
			parent := r.ID
			child := models.Interest{ID: bson.NewObjectID(), Title: title, IsGlobal: true, IsActive: true, Parent: &parent}
			if err := add(child); err != nil {
				return nil, err
			}
		}
	}

	// локальный интерес только для первого города
	local := models.Interest{
		ID:          bson.NewObjectID(),
		Title:       "Mountain hiking",
		LocalCities: []bson.ObjectID{g.cities[0].ID},
		IsActive:    true,
	}
	if err := add(local); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Generator) generateUsers(ctx context.Context, ix *interest.Index) ([]*models.User, error) {
	city := g.cities[0].ID
	roles := []models.Role{models.RoleRegular, models.RoleOrganizer, models.RoleModerator, models.RoleAdministrator}

	users := make([]*models.User, 0, len(roles))
	for _, role := range roles {
		u := &models.User{
			ID:        bson.NewObjectID(),
			Email:     fmt.Sprintf("%s@citypulse.local", role),
			Name:      string(role),
			Role:      role,
			IsActive:  true,
			Settings:  models.UserSettings{City: city, Language: "ru"},
			Interests: []models.CityInterestAssignment{},
		}
		if role == models.RoleModerator {
			u.AssignedCity = city
		}
		if err := g.repos.Users.Create(ctx, u); err != nil {
			return nil, err
		}

		// все подписаны на все интересы своего города
		ids, err := ix.Resolve(u, true, nil)
		if err != nil {
			return nil, err
		}
		if err := g.repos.Users.SetSubscription(ctx, u.ID, city, ids); err != nil {
			return nil, err
		}
		u.Interests = interest.Upsert(u.Interests, city, ids)
		users = append(users, u)
	}
	return users, nil
}

func (g *Generator) generateEvent(author bson.ObjectID, leaves []models.Interest) (*models.Event, error) {
	city := g.cities[g.rnd.Intn(len(g.cities))]

	// от недели назад до двух месяцев вперед, чтобы были и завершенные
	day := g.now.AddDate(0, 0, g.rnd.Intn(67)-7)
	start := time.Date(day.Year(), day.Month(), day.Day(), 10+g.rnd.Intn(10), 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, g.rnd.Intn(3)).Add(time.Duration(1+g.rnd.Intn(3)) * time.Hour)
	dates, err := timewindow.BuildRange(start, end)
	if err != nil {
		return nil, err
	}

	interests := []bson.ObjectID{leaves[g.rnd.Intn(len(leaves))].ID}
	if second := leaves[g.rnd.Intn(len(leaves))].ID; second != interests[0] {
		interests = append(interests, second)
	}

	minPrice := int64(1000 * (1 + g.rnd.Intn(10)))
	maxPrice := minPrice + int64(500*g.rnd.Intn(10))

	eventType := models.EventTypeNormal
	if g.rnd.Intn(10) == 0 {
		eventType = models.EventTypeFeatured
	}

	draft := moderation.Draft{
		Title:       fmt.Sprintf("%s #%d", titles[g.rnd.Intn(len(titles))], g.rnd.Intn(1000)),
		Description: fmt.Sprintf("Generated event in %s", city.Name),
		Type:        eventType,
		City:        city.ID,
		Currency:    defaultCurrency,
		MinPrice:    &minPrice,
		MaxPrice:    &maxPrice,
		Interests:   interests,
		Dates:       dates,
		Location: models.NewGeoPoint(
			city.Lat+(g.rnd.Float64()-0.5)*0.1,
			city.Lng+(g.rnd.Float64()-0.5)*0.1,
		),
	}

	created := g.now.Add(-time.Duration(g.rnd.Intn(72)) * time.Hour)
	event, err := moderation.New(author, draft, created)
	if err != nil {
		return nil, err
	}

	switch r := g.rnd.Intn(10); {
	case r < 7:
		moderation.Approve(event, created)
	case r < 8:
		if err := moderation.Reject(event, "Generated rejection", author, created); err != nil {
			return nil, err
		}
	}
	if g.rnd.Intn(10) == 0 {
		moderation.Deactivate(event, created)
	}
	return event, nil
}
