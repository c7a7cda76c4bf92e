package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// EventType - категория события
type EventType string

const (
	EventTypeNormal   EventType = "NORMAL"
	EventTypeFeatured EventType = "FEATURED"
	EventTypeAds      EventType = "ADS"
)

func (t EventType) Valid() bool {
	switch t {
	case EventTypeNormal, EventTypeFeatured, EventTypeAds:
		return true
	}
	return false
}

// ModerationStatus - статус модерации события
type ModerationStatus string

const (
	StatusModeration ModerationStatus = "MODERATION"
	StatusApproved   ModerationStatus = "APPROVED"
	StatusRejected   ModerationStatus = "REJECTED"
)

// TimeWindow is one calendar-day occurrence of an event.
// Date is YYYYMMDD, StartTime and EndTime are HHMMSS.
type TimeWindow struct {
	Date      string `json:"date" bson:"date"`
	StartTime string `json:"start_time" bson:"start_time"`
	EndTime   string `json:"end_time" bson:"end_time"`
}

// Vote represents an upvote of an event by a user
type Vote struct {
	User bson.ObjectID `json:"user" bson:"user"`
	Date time.Time     `json:"date" bson:"date"`
}

// RejectionReason is kept for every reject, never overwritten
type RejectionReason struct {
	Text   string        `json:"text" bson:"text"`
	Author bson.ObjectID `json:"author" bson:"author"`
	Date   time.Time     `json:"date" bson:"date"`
}

// GeoPoint is a GeoJSON point, coordinates are [lng, lat]
type GeoPoint struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
}

func NewGeoPoint(lat, lng float64) *GeoPoint {
	return &GeoPoint{Type: "Point", Coordinates: []float64{lng, lat}}
}

func (p GeoPoint) LngLat() (float64, float64) {
	if len(p.Coordinates) < 2 {
		return 0, 0
	}
	return p.Coordinates[0], p.Coordinates[1]
}

// Event represents an event in the system
type Event struct {
	ID               bson.ObjectID     `json:"id" bson:"_id"`
	Title            string            `json:"title" bson:"title"`
	Description      string            `json:"description" bson:"description"`
	Type             EventType         `json:"type" bson:"type"`
	Status           ModerationStatus  `json:"status" bson:"status"`
	IsActive         bool              `json:"is_active" bson:"is_active"`
	Author           bson.ObjectID     `json:"author" bson:"author"`
	City             bson.ObjectID     `json:"city" bson:"city"`
	Currency         bson.ObjectID     `json:"currency" bson:"currency"`
	MinPrice         *int64            `json:"min_price,omitempty" bson:"min_price,omitempty"`
	MaxPrice         *int64            `json:"max_price,omitempty" bson:"max_price,omitempty"`
	Interests        []bson.ObjectID   `json:"interests" bson:"interests"`
	Dates            []TimeWindow      `json:"dates" bson:"dates"`
	Location         *GeoPoint         `json:"location,omitempty" bson:"location,omitempty"`
	Votes            []Vote            `json:"-" bson:"votes"`
	VotesNum         int64             `json:"votes_num" bson:"votes_num"`
	Favourites       []bson.ObjectID   `json:"-" bson:"in_favourites"`
	RejectionReasons []RejectionReason `json:"rejection_reasons,omitempty" bson:"rejection_reasons"`
	CreatedAt        time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at" bson:"updated_at"`
}

// ComplaintStatus - статус жалобы
type ComplaintStatus string

const (
	ComplaintOpen   ComplaintStatus = "OPEN"
	ComplaintClosed ComplaintStatus = "CLOSED"
)

// Complaint is stored in PostgreSQL, one row per complaint
type Complaint struct {
	ID           int64           `json:"id" db:"id"`
	EventID      bson.ObjectID   `json:"event" db:"event_id"`
	Author       bson.ObjectID   `json:"author" db:"author_id"`
	Text         string          `json:"text" db:"text"`
	Status       ComplaintStatus `json:"status" db:"status"`
	Answer       *string         `json:"answer,omitempty" db:"answer"`
	Executor     *bson.ObjectID  `json:"executor,omitempty" db:"executor_id"`
	DateAnswered *time.Time      `json:"date_answered,omitempty" db:"date_answered"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// Interest is a node of the interest tree. Roots have no parent.
type Interest struct {
	ID          bson.ObjectID   `json:"id" bson:"_id"`
	Title       string          `json:"title" bson:"title"`
	IsGlobal    bool            `json:"is_global" bson:"is_global"`
	LocalCities []bson.ObjectID `json:"local_cities,omitempty" bson:"local_cities"`
	Parent      *bson.ObjectID  `json:"parent,omitempty" bson:"parent,omitempty"`
	IsActive    bool            `json:"is_active" bson:"is_active"`
}

// AvailableIn reports whether the interest is visible in the given city
func (i Interest) AvailableIn(city bson.ObjectID) bool {
	if i.IsGlobal {
		return true
	}
	for _, c := range i.LocalCities {
		if c == city {
			return true
		}
	}
	return false
}

// Role is totally ordered: REGULAR < ORGANIZER < MODERATOR < ADMINISTRATOR < ROOT
type Role string

const (
	RoleRegular       Role = "REGULAR"
	RoleOrganizer     Role = "ORGANIZER"
	RoleModerator     Role = "MODERATOR"
	RoleAdministrator Role = "ADMINISTRATOR"
	RoleRoot          Role = "ROOT"
)

var roleRank = map[Role]int{
	RoleRegular:       0,
	RoleOrganizer:     1,
	RoleModerator:     2,
	RoleAdministrator: 3,
	RoleRoot:          4,
}

// Rank returns -1 for unknown roles
func (r Role) Rank() int {
	if rank, ok := roleRank[r]; ok {
		return rank
	}
	return -1
}

func (r Role) AtLeast(other Role) bool {
	return r.Rank() >= other.Rank() && r.Rank() >= 0
}

// CityInterestAssignment - подписка пользователя на интересы в одном городе
type CityInterestAssignment struct {
	City      bson.ObjectID   `json:"city" bson:"city"`
	Interests []bson.ObjectID `json:"interests" bson:"interests"`
}

type UserSettings struct {
	City     bson.ObjectID `json:"city" bson:"city,omitempty"`
	Language string        `json:"language" bson:"language"`
}

// User represents a user in the system
type User struct {
	ID           bson.ObjectID            `json:"id" bson:"_id"`
	Email        string                   `json:"email" bson:"email"`
	Name         string                   `json:"name" bson:"name"`
	Role         Role                     `json:"role" bson:"role"`
	IsActive     bool                     `json:"is_active" bson:"is_active"`
	Settings     UserSettings             `json:"settings" bson:"settings"`
	Interests    []CityInterestAssignment `json:"interests" bson:"interests"`
	AssignedCity bson.ObjectID            `json:"assigned_city,omitempty" bson:"assigned_city,omitempty"`
}

// CurrentInterests returns the subscription for the user's current city
func (u *User) CurrentInterests() []bson.ObjectID {
	if u == nil || u.Settings.City.IsZero() {
		return nil
	}
	for _, a := range u.Interests {
		if a.City == u.Settings.City {
			return a.Interests
		}
	}
	return nil
}

func (u *User) IsStaff() bool {
	return u != nil && u.Role.AtLeast(RoleModerator)
}
