package feed

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	apperr "citypulse/internal/errors"
	"citypulse/internal/filter"
	"citypulse/internal/models"
	"citypulse/internal/timewindow"
)

// Order values of the order parameter
const (
	OrderDefault = "default"
	OrderPopular = "popular"
)

// Narrowing lists the caller-supplied parameters that narrow a view.
// Date and time parameters are independent any-window matches.
var Narrowing = filter.Set{
	{Param: "min_price", Fields: []string{"min_price"}, Op: filter.Gte, Parse: filter.Int},
	{Param: "max_price", Fields: []string{"max_price"}, Op: filter.Lte, Parse: filter.Int},
	{Param: "start_date", List: "dates", Attr: "date", Op: filter.Gte, Parse: filter.Valid(timewindow.ValidDate, "YYYYMMDD")},
	{Param: "end_date", List: "dates", Attr: "date", Op: filter.Lte, Parse: filter.Valid(timewindow.ValidDate, "YYYYMMDD")},
	{Param: "start_time", List: "dates", Attr: "start_time", Op: filter.Gte, Parse: filter.Valid(timewindow.ValidTime, "HHMMSS")},
	{Param: "end_time", List: "dates", Attr: "end_time", Op: filter.Lte, Parse: filter.Valid(timewindow.ValidTime, "HHMMSS")},
	{Param: "interests", Fields: []string{"interests"}, Op: filter.In, Parse: filter.ObjectIDs},
}

// staffParams narrow the moderation queue and complaint lists
var staffParams = filter.Set{
	{Param: "city", Fields: []string{"city"}, Op: filter.Eq, Parse: filter.ObjectID},
}

var orderParam = filter.OneOf(OrderDefault, OrderPopular)

// Toggle is one organizer category, included unless its parameter is false
type Toggle struct {
	Param string
	Cond  func(now time.Time) filter.Cond
}

// Page is a validated page window
type Page struct {
	Page     int
	PageSize int
}

func (p Page) Skip() int64 {
	return int64(p.Page-1) * int64(p.PageSize)
}

// ParsePage reads page and pageSize. Missing values take the defaults.
func ParsePage(values url.Values, defaultSize, maxSize int) (Page, error) {
	p := Page{Page: 1, PageSize: defaultSize}

	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Page{}, apperr.Validation("page", "page must be >= 1")
		}
		p.Page = n
	}
	if raw := strings.TrimSpace(values.Get("pageSize")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSize {
			return Page{}, apperr.Validationf("pageSize", "pageSize must be between 1 and %d", maxSize)
		}
		p.PageSize = n
	}
	return p, nil
}

// ParseOrder returns default or popular
func ParseOrder(values url.Values) (string, error) {
	raw := strings.TrimSpace(values.Get("order"))
	if raw == "" {
		return OrderDefault, nil
	}
	if _, err := orderParam(raw); err != nil {
		return "", apperr.Validation("order", err.Error())
	}
	return raw, nil
}

func parseFloat(values url.Values, param string, lo, hi float64, required bool, def float64) (float64, error) {
	raw := strings.TrimSpace(values.Get(param))
	if raw == "" {
		if required {
			return 0, apperr.Validationf(param, "%s is required", param)
		}
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < lo || f > hi {
		return 0, apperr.Validationf(param, "%s must be a number between %g and %g", param, lo, hi)
	}
	return f, nil
}

func parseToggle(values url.Values, param string) (bool, error) {
	raw := values.Get(param)
	if strings.TrimSpace(raw) == "" {
		return true, nil
	}
	b, ok := models.ParseBool(raw)
	if !ok {
		return false, apperr.Validationf(param, "invalid boolean value %q", raw)
	}
	return b, nil
}

func parseObjectID(values url.Values, param string) (*bson.ObjectID, error) {
	raw := strings.TrimSpace(values.Get(param))
	if raw == "" {
		return nil, nil
	}
	id, err := bson.ObjectIDFromHex(raw)
	if err != nil {
		return nil, apperr.Validationf(param, "invalid id %q", raw)
	}
	return &id, nil
}
