package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/v2/bson"

	"citypulse/internal/models"
)

func queryFilters(q map[string]any) []map[string]any {
	return q["bool"].(map[string]any)["filter"].([]map[string]any)
}

func TestSearchQueryKeepsToPublishedEvents(t *testing.T) {
	published := []map[string]any{
		{"term": map[string]any{"status": string(models.StatusApproved)}},
		{"term": map[string]any{"is_active": true}},
	}

	assert.Equal(t, published, queryFilters(buildSearchQuery("jazz", bson.NilObjectID)))

	city := bson.NewObjectID()
	withCity := append(published, map[string]any{"term": map[string]any{"city": city.Hex()}})
	assert.Equal(t, withCity, queryFilters(buildSearchQuery("jazz", city)))
}
