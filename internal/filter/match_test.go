package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type doc map[string]any

func (d doc) Lookup(name string) (any, bool) {
	v, ok := d[name]
	return v, ok
}

type point struct{ lng, lat float64 }

func (p point) LngLat() (float64, float64) { return p.lng, p.lat }

func window(date, start, end string) doc {
	return doc{"date": date, "start_time": start, "end_time": end}
}

func twoWindowEvent() doc {
	return doc{
		"title": "Jazz Night",
		"dates": []any{
			window("20161010", "100000", "110000"),
			window("20161012", "100000", "110000"),
		},
		"interests": []any{"music", "jazz"},
	}
}

func TestMatchAnyWindow(t *testing.T) {
	e := twoWindowEvent()

	tests := []struct {
		name string
		cond Cond
		want bool
	}{
		{"start_date after first window", ElemMatch{Path: "dates", Where: F("date", Gte, "20161011")}, true},
		{"end_date before all windows", ElemMatch{Path: "dates", Where: F("date", Lte, "20161009")}, false},
		{"dotted path", F("dates.date", Gte, "20161011"), true},
		{"indexed path", F("dates.0.date", Gte, "20161011"), false},
		{"elem match needs one element for both", ElemMatch{Path: "dates", Where: All(
			F("date", Gte, "20161011"),
			F("date", Lte, "20161011"),
		)}, false},
		{"separate matches may hit different elements", All(
			F("dates.date", Gte, "20161011"),
			F("dates.date", Lte, "20161011"),
		), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(e, tt.cond))
		})
	}
}

func TestMatchScalarLists(t *testing.T) {
	e := twoWindowEvent()

	assert.True(t, Match(e, F("interests", In, []string{"sport", "jazz"})))
	assert.False(t, Match(e, F("interests", In, []string{"sport"})))
	assert.False(t, Match(e, F("interests", In, []string{})))
	assert.True(t, Match(e, F("interests", Eq, "music")))
	assert.False(t, Match(e, F("interests", Ne, "music")), "ne fails when any element is equal")
	assert.True(t, Match(e, F("interests", Ne, "sport")))
	assert.True(t, Match(e, F("missing", Ne, "x")), "ne matches a missing field")
	assert.False(t, Match(e, F("missing", Eq, "x")))
}

func TestMatchLogic(t *testing.T) {
	e := twoWindowEvent()

	assert.True(t, Match(e, nil))
	assert.True(t, Match(e, All()))
	assert.False(t, Match(e, Any()))
	assert.True(t, Match(e, Any(F("title", Eq, "nope"), F("title", Contains, "JAZZ"))))
	assert.False(t, Match(e, Not{Cond: F("title", Contains, "night")}))
}

func TestMatchNumbersAcrossTypes(t *testing.T) {
	e := doc{"min_price": int64(500), "votes_num": 3}

	assert.True(t, Match(e, F("min_price", Gte, int64(100))))
	assert.True(t, Match(e, F("min_price", Lte, 500)))
	assert.False(t, Match(e, F("min_price", Gt, 500.0)))
	assert.True(t, Match(e, F("votes_num", Eq, int64(3))))
	assert.False(t, Match(e, F("min_price", Eq, "500")), "strings never equal numbers")
}

func TestMatchGeoWithin(t *testing.T) {
	// Almaty center and a point roughly 5 km away
	e := doc{"location": point{lng: 76.9286, lat: 43.2833}}

	assert.True(t, Match(e, GeoWithin{Path: "location", Lng: 76.8860, Lat: 43.2567, RadiusKm: 10}))
	assert.False(t, Match(e, GeoWithin{Path: "location", Lng: 76.8860, Lat: 43.2567, RadiusKm: 2}))
	assert.False(t, Match(doc{}, GeoWithin{Path: "location", Lng: 0, Lat: 0, RadiusKm: 100}))
}

func TestApplySortsArraysByMinAndMax(t *testing.T) {
	a := doc{"id": 1, "dates": []any{window("20161015", "100000", "110000"), window("20161001", "100000", "110000")}, "votes_num": 1}
	b := doc{"id": 2, "dates": []any{window("20161005", "100000", "110000")}, "votes_num": 5}
	c := doc{"id": 3, "dates": []any{window("20161020", "090000", "110000")}, "votes_num": 5}

	docs := []doc{a, b, c}

	asc := Apply(docs, Query{Sort: []SortKey{Asc("dates.date")}})
	assert.Equal(t, []doc{a, b, c}, asc, "ascending uses the earliest window")

	desc := Apply(docs, Query{Sort: []SortKey{Desc("dates.date")}})
	assert.Equal(t, []doc{c, a, b}, desc, "descending uses the latest window")

	popular := Apply(docs, Query{Sort: []SortKey{Desc("votes_num")}})
	assert.Equal(t, []doc{b, c, a}, popular, "ties keep input order")
}

func TestApplyWindow(t *testing.T) {
	docs := make([]doc, 0, 5)
	for i := 0; i < 5; i++ {
		docs = append(docs, doc{"n": i})
	}

	page := Apply(docs, Query{Sort: []SortKey{Desc("n")}, Skip: 1, Limit: 2})
	assert.Equal(t, []doc{{"n": 3}, {"n": 2}}, page)

	assert.Empty(t, Apply(docs, Query{Skip: 10}))
	assert.Len(t, Apply(docs, Query{}), 5)
	assert.Equal(t, int64(2), Count(docs, F("n", Gte, 3)))
}

func TestApplyMissingSortsFirst(t *testing.T) {
	withPrice := doc{"price": 10}
	without := doc{}

	got := Apply([]doc{withPrice, without}, Query{Sort: []SortKey{Asc("price")}})
	assert.Equal(t, []doc{without, withPrice}, got)
}
