// Package interest holds the interest tree and per-city user subscriptions.
package interest

import (
	"go.mongodb.org/mongo-driver/v2/bson"

	apperr "citypulse/internal/errors"
	"citypulse/internal/models"
)

// Index is an adjacency view of the interest tree. Build it once per
// request and reuse it for every Family call.
type Index struct {
	byID     map[bson.ObjectID]models.Interest
	children map[bson.ObjectID][]bson.ObjectID
	order    []bson.ObjectID
}

func NewIndex(all []models.Interest) *Index {
	ix := &Index{
		byID:     make(map[bson.ObjectID]models.Interest, len(all)),
		children: make(map[bson.ObjectID][]bson.ObjectID),
		order:    make([]bson.ObjectID, 0, len(all)),
	}
	for _, i := range all {
		ix.byID[i.ID] = i
		ix.order = append(ix.order, i.ID)
		if i.Parent != nil {
			ix.children[*i.Parent] = append(ix.children[*i.Parent], i.ID)
		}
	}
	return ix
}

func (ix *Index) Get(id bson.ObjectID) (models.Interest, bool) {
	i, ok := ix.byID[id]
	return i, ok
}

// Family returns id followed by all of its descendants, breadth first
func (ix *Index) Family(id bson.ObjectID) []bson.ObjectID {
	return ix.FamilyOf([]bson.ObjectID{id})
}

// FamilyOf is the union of the families of ids, without duplicates
func (ix *Index) FamilyOf(ids []bson.ObjectID) []bson.ObjectID {
	seen := make(map[bson.ObjectID]bool)
	var out []bson.ObjectID
	queue := append([]bson.ObjectID(nil), ids...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		queue = append(queue, ix.children[id]...)
	}
	return out
}

// Available lists active interests that are global or local to city,
// in catalogue order
func (ix *Index) Available(city bson.ObjectID) []models.Interest {
	var out []models.Interest
	for _, id := range ix.order {
		i := ix.byID[id]
		if i.IsActive && i.AvailableIn(city) {
			out = append(out, i)
		}
	}
	return out
}

// ValidateParent checks that making parent the parent of id keeps the tree
// acyclic. A zero id stands for an interest that does not exist yet.
func (ix *Index) ValidateParent(id bson.ObjectID, parent *bson.ObjectID) error {
	if parent == nil {
		return nil
	}
	if *parent == id {
		return apperr.Validation("parent", "interest cannot be its own parent")
	}
	if _, ok := ix.byID[*parent]; !ok {
		return apperr.Validation("parent", "parent interest does not exist")
	}
	if id.IsZero() {
		return nil
	}

	seen := map[bson.ObjectID]bool{}
	for cur := parent; cur != nil; {
		if *cur == id {
			return apperr.Validation("parent", "parent is a descendant of the interest")
		}
		if seen[*cur] {
			break
		}
		seen[*cur] = true
		next, ok := ix.byID[*cur]
		if !ok {
			break
		}
		cur = next.Parent
	}
	return nil
}

// Resolve turns a subscription request into the interest set stored for the
// user's current city. With all set it selects every available interest,
// otherwise the given ids, each of which must be available in the city.
func (ix *Index) Resolve(user *models.User, all bool, ids []bson.ObjectID) ([]bson.ObjectID, error) {
	if user == nil || user.Settings.City.IsZero() {
		return nil, apperr.ErrNoCitySelected
	}
	city := user.Settings.City

	if all {
		available := ix.Available(city)
		out := make([]bson.ObjectID, 0, len(available))
		for _, i := range available {
			out = append(out, i.ID)
		}
		return out, nil
	}

	seen := make(map[bson.ObjectID]bool, len(ids))
	out := make([]bson.ObjectID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		i, ok := ix.byID[id]
		if !ok || !i.IsActive || !i.AvailableIn(city) {
			return nil, apperr.Validationf("interests", "interest %s is not available in the current city", id.Hex())
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

// Upsert replaces the assignment for city in place or appends a new one.
// At most one assignment per city survives.
func Upsert(assignments []models.CityInterestAssignment, city bson.ObjectID, ids []bson.ObjectID) []models.CityInterestAssignment {
	out := make([]models.CityInterestAssignment, 0, len(assignments)+1)
	replaced := false
	for _, a := range assignments {
		if a.City != city {
			out = append(out, a)
			continue
		}
		if !replaced {
			out = append(out, models.CityInterestAssignment{City: city, Interests: ids})
			replaced = true
		}
	}
	if !replaced {
		out = append(out, models.CityInterestAssignment{City: city, Interests: ids})
	}
	return out
}

// Current returns the subscription for the user's current city, or nil
func Current(user *models.User) []bson.ObjectID {
	return user.CurrentInterests()
}
