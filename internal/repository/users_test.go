package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestSubscriptionPipeline(t *testing.T) {
	city, jazz := mustID(t, cityHex), mustID(t, jazzHex)
	c := `{"$oid":"` + cityHex + `"}`
	current := `{"$ifNull":["$interests",[]]}`

	entry := func(interests string) string {
		return `{"city":{"$literal":` + c + `},"interests":{"$literal":` + interests + `}}`
	}
	stage := func(interests string) string {
		return `{"$set":{"interests":{"$cond":{
			"if":{"$in":[` + c + `,{"$ifNull":["$interests.city",[]]}]},
			"then":{"$map":{"input":` + current + `,"as":"a","in":{"$cond":[
				{"$eq":["$$a.city",` + c + `]},` + entry(interests) + `,"$$a"]}}},
			"else":{"$concatArrays":[` + current + `,[` + entry(interests) + `]]}
		}}}}`
	}

	tests := []struct {
		name      string
		interests []bson.ObjectID
		want      string
	}{
		{"one interest", []bson.ObjectID{jazz}, stage(`[{"$oid":"` + jazzHex + `"}]`)},
		{"nil clears the city", nil, stage(`[]`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline := subscriptionPipeline(city, tt.interests)
			require.Len(t, pipeline, 1)
			assert.JSONEq(t, tt.want, extJSON(t, pipeline[0]))
		})
	}
}
