// Package feed composes the event views. Every view is a filter condition,
// a sort order and a pagination mode. The package only builds queries, the
// repositories execute them.
package feed

import (
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	apperr "citypulse/internal/errors"
	"citypulse/internal/filter"
	"citypulse/internal/interest"
	"citypulse/internal/models"
	"citypulse/internal/timewindow"
)

// View names, used for metrics and logging
const (
	ViewFeed       = "feed"
	ViewFeatured   = "featured"
	ViewOrganizer  = "organizer"
	ViewExplore    = "explore"
	ViewMap        = "map"
	ViewFavourites = "favourites"
	ViewModeration = "moderation"
)

type Config struct {
	DefaultPageSize int
	MaxPageSize     int
	DefaultRadiusKm float64
	MaxRadiusKm     float64
}

// Request is the caller context of one view computation
type Request struct {
	User   *models.User
	Now    time.Time
	Values url.Values
	// Search adds matches to the title/description match of the search
	// parameter, e.g. ids returned by a search index
	Search filter.Cond
	// Interests is required by the explore view
	Interests *interest.Index
}

// Plan is a ready-to-run query. Unpaginated plans return every match.
type Plan struct {
	View      string
	Query     filter.Query
	Paginated bool
	Page      Page
}

type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 10
	}
	if cfg.MaxPageSize < cfg.DefaultPageSize {
		cfg.MaxPageSize = cfg.DefaultPageSize
	}
	if cfg.DefaultRadiusKm <= 0 {
		cfg.DefaultRadiusKm = 10
	}
	if cfg.MaxRadiusKm < cfg.DefaultRadiusKm {
		cfg.MaxRadiusKm = cfg.DefaultRadiusKm
	}
	return &Engine{cfg: cfg}
}

var (
	byID        = filter.Asc("_id")
	anyWindow   = []filter.SortKey{filter.Asc("dates.date"), filter.Asc("dates.start_time"), byID}
	firstWindow = []filter.SortKey{filter.Asc("dates.0.date"), filter.Asc("dates.0.start_time"), byID}
	popular     = []filter.SortKey{filter.Asc("dates.date"), filter.Desc("votes_num"), byID}
)

// NotFinished matches events with a window ending at or after now
func NotFinished(now time.Time) filter.Cond {
	date, clock := timewindow.Encode(now)
	return filter.ElemMatch{Path: "dates", Where: filter.Any(
		filter.F("date", filter.Gt, date),
		filter.All(filter.F("date", filter.Eq, date), filter.F("end_time", filter.Gte, clock)),
	)}
}

// Finished matches events whose every window has ended
func Finished(now time.Time) filter.Cond {
	return filter.Not{Cond: NotFinished(now)}
}

func visible() filter.Cond {
	return filter.All(
		filter.F("status", filter.Eq, models.StatusApproved),
		filter.F("is_active", filter.Eq, true),
	)
}

func currentCity(user *models.User) (bson.ObjectID, error) {
	if user == nil {
		return bson.ObjectID{}, apperr.ErrUnauthorized
	}
	if user.Settings.City.IsZero() {
		return bson.ObjectID{}, apperr.ErrNoCitySelected
	}
	return user.Settings.City, nil
}

func subscribed(ids []bson.ObjectID) filter.Cond {
	if ids == nil {
		ids = []bson.ObjectID{}
	}
	return filter.F("interests", filter.In, ids)
}

// Base is approved, active, in the user's city, overlapping the user's
// subscription and not finished
func Base(user *models.User, now time.Time) (filter.Cond, error) {
	city, err := currentCity(user)
	if err != nil {
		return nil, err
	}
	return filter.All(
		visible(),
		filter.F("city", filter.Eq, city),
		subscribed(interest.Current(user)),
		NotFinished(now),
	), nil
}

func (e *Engine) narrow(r Request) (filter.Cond, error) {
	cond, err := Narrowing.Build(r.Values)
	if err != nil {
		return nil, err
	}
	term := strings.TrimSpace(r.Values.Get("search"))
	if term == "" {
		return cond, nil
	}
	// индекс только расширяет текстовое совпадение
	search := TextSearch(term)
	if r.Search != nil {
		search = filter.Any(r.Search, search)
	}
	return filter.All(cond, search), nil
}

// TextSearch is a case-insensitive substring match on title or description
func TextSearch(term string) filter.Cond {
	return filter.Any(
		filter.F("title", filter.Contains, term),
		filter.F("description", filter.Contains, term),
	)
}

// IDs matches events by id, used for search index hits
func IDs(ids []bson.ObjectID) filter.Cond {
	if ids == nil {
		ids = []bson.ObjectID{}
	}
	return filter.F("_id", filter.In, ids)
}

func (e *Engine) paged(view string, r Request, where filter.Cond, sort []filter.SortKey) (Plan, error) {
	page, err := ParsePage(r.Values, e.cfg.DefaultPageSize, e.cfg.MaxPageSize)
	if err != nil {
		return Plan{}, err
	}
	return Plan{
		View: view,
		Query: filter.Query{
			Where: where,
			Sort:  sort,
			Skip:  page.Skip(),
			Limit: int64(page.PageSize),
		},
		Paginated: true,
		Page:      page,
	}, nil
}

// Feed is the personal feed. Default order is by any window, popular order
// is by date then votes.
func (e *Engine) Feed(r Request) (Plan, error) {
	base, err := Base(r.User, r.Now)
	if err != nil {
		return Plan{}, err
	}
	narrow, err := e.narrow(r)
	if err != nil {
		return Plan{}, err
	}
	order, err := ParseOrder(r.Values)
	if err != nil {
		return Plan{}, err
	}
	sort := anyWindow
	if order == OrderPopular {
		sort = popular
	}
	return e.paged(ViewFeed, r, filter.All(base, narrow), sort)
}

// Featured is the feed limited to FEATURED events, ordered by first window
func (e *Engine) Featured(r Request) (Plan, error) {
	base, err := Base(r.User, r.Now)
	if err != nil {
		return Plan{}, err
	}
	narrow, err := e.narrow(r)
	if err != nil {
		return Plan{}, err
	}
	where := filter.All(base, filter.F("type", filter.Eq, models.EventTypeFeatured), narrow)
	return e.paged(ViewFeatured, r, where, firstWindow)
}

// Toggles partition an organizer's events. Each event falls into exactly
// one category, the view returns the union of the included ones.
var Toggles = []Toggle{
	{Param: "active", Cond: func(now time.Time) filter.Cond {
		return filter.All(NotFinished(now), visible())
	}},
	{Param: "not_active", Cond: func(now time.Time) filter.Cond {
		return filter.All(NotFinished(now),
			filter.F("status", filter.Eq, models.StatusApproved),
			filter.F("is_active", filter.Eq, false))
	}},
	{Param: "moderation", Cond: func(now time.Time) filter.Cond {
		return filter.All(NotFinished(now), filter.F("status", filter.Eq, models.StatusModeration))
	}},
	{Param: "rejected", Cond: func(now time.Time) filter.Cond {
		return filter.All(NotFinished(now), filter.F("status", filter.Eq, models.StatusRejected))
	}},
	{Param: "finished", Cond: Finished},
}

// Organizer lists the caller's own events of any status
func (e *Engine) Organizer(r Request) (Plan, error) {
	if r.User == nil {
		return Plan{}, apperr.ErrUnauthorized
	}

	included := make([]filter.Cond, 0, len(Toggles))
	for _, t := range Toggles {
		on, err := parseToggle(r.Values, t.Param)
		if err != nil {
			return Plan{}, err
		}
		if on {
			included = append(included, t.Cond(r.Now))
		}
	}
	narrow, err := e.narrow(r)
	if err != nil {
		return Plan{}, err
	}
	order, err := ParseOrder(r.Values)
	if err != nil {
		return Plan{}, err
	}
	sort := firstWindow
	if order == OrderPopular {
		sort = popular
	}

	where := filter.All(
		filter.F("author", filter.Eq, r.User.ID),
		filter.Any(included...),
		narrow,
	)
	return e.paged(ViewOrganizer, r, where, sort)
}

// Explore matches the family of every subscribed interest rather than the
// exact subscription. The interest parameter narrows it to one family.
func (e *Engine) Explore(r Request) (Plan, error) {
	city, err := currentCity(r.User)
	if err != nil {
		return Plan{}, err
	}
	ix := r.Interests
	if ix == nil {
		ix = interest.NewIndex(nil)
	}

	conds := []filter.Cond{
		visible(),
		filter.F("city", filter.Eq, city),
		subscribed(ix.FamilyOf(interest.Current(r.User))),
		NotFinished(r.Now),
	}
	only, err := parseObjectID(r.Values, "interest")
	if err != nil {
		return Plan{}, err
	}
	if only != nil {
		conds = append(conds, subscribed(ix.Family(*only)))
	}
	narrow, err := e.narrow(r)
	if err != nil {
		return Plan{}, err
	}
	conds = append(conds, narrow)

	return Plan{
		View:  ViewExplore,
		Query: filter.Query{Where: filter.All(conds...), Sort: []filter.SortKey{byID}},
	}, nil
}

// Map is the base filter with the city test replaced by a radius around
// lat/lng
func (e *Engine) Map(r Request) (Plan, error) {
	if r.User == nil {
		return Plan{}, apperr.ErrUnauthorized
	}
	lat, err := parseFloat(r.Values, "lat", -90, 90, true, 0)
	if err != nil {
		return Plan{}, err
	}
	lng, err := parseFloat(r.Values, "lng", -180, 180, true, 0)
	if err != nil {
		return Plan{}, err
	}
	radius, err := parseFloat(r.Values, "radius", 0, e.cfg.MaxRadiusKm, false, e.cfg.DefaultRadiusKm)
	if err != nil {
		return Plan{}, err
	}
	narrow, err := e.narrow(r)
	if err != nil {
		return Plan{}, err
	}

	where := filter.All(
		visible(),
		filter.GeoWithin{Path: "location", Lng: lng, Lat: lat, RadiusKm: radius},
		subscribed(interest.Current(r.User)),
		NotFinished(r.Now),
		narrow,
	)
	return Plan{
		View:  ViewMap,
		Query: filter.Query{Where: where, Sort: []filter.SortKey{byID}},
	}, nil
}

// Favourites lists events the caller added to favourites, any status or city
func (e *Engine) Favourites(r Request) (Plan, error) {
	if r.User == nil {
		return Plan{}, apperr.ErrUnauthorized
	}
	narrow, err := e.narrow(r)
	if err != nil {
		return Plan{}, err
	}
	where := filter.All(filter.F("in_favourites", filter.Eq, r.User.ID), narrow)
	return e.paged(ViewFavourites, r, where, anyWindow)
}

// ModerationQueue lists events awaiting review, oldest first. Moderators
// only see their assigned city.
func (e *Engine) ModerationQueue(r Request) (Plan, error) {
	if r.User == nil {
		return Plan{}, apperr.ErrUnauthorized
	}
	if !r.User.IsStaff() {
		return Plan{}, apperr.Forbidden("only staff can review events")
	}
	where := []filter.Cond{filter.F("status", filter.Eq, models.StatusModeration)}
	if r.User.Role == models.RoleModerator {
		where = append(where, filter.F("city", filter.Eq, r.User.AssignedCity))
	} else {
		city, err := staffParams.Build(r.Values)
		if err != nil {
			return Plan{}, err
		}
		where = append(where, city)
	}
	return e.paged(ViewModeration, r, filter.All(where...), []filter.SortKey{byID})
}
