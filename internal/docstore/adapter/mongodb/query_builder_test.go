package mongodb

import (
	"testing"

	"gym-assistant/internal/docstore/domain/model"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name    string
		filters []model.Filter
		order   *model.Order
		want    bson.M
	}{
		{"empty", nil, nil, bson.M{}},
		{"equality", []model.Filter{{Field: "userId", Operator: model.OperatorEqual, Value: "u1"}}, nil, bson.M{"userId": "u1"}},
		{
			"not equal requires field",
			[]model.Filter{{Field: "status", Operator: model.OperatorNotEqual, Value: "done"}}, nil,
			bson.M{"status": bson.M{"$ne": "done", "$exists": true}},
		},
		{
			"array contains any",
			[]model.Filter{{Field: "tags", Operator: model.OperatorArrayContainsAny, Value: []interface{}{"a", "b"}}}, nil,
			bson.M{"tags": bson.M{"$elemMatch": bson.M{"$in": []interface{}{"a", "b"}}}},
		},
		{
			"combined with order field",
			[]model.Filter{{Field: "sets", Operator: model.OperatorGreaterThan, Value: 3}},
			&model.Order{Field: "date", Direction: model.Descending},
			bson.M{"$and": []bson.M{
				{"sets": bson.M{"$gt": 3}},
				{"date": bson.M{"$exists": true}},
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildFilter(tt.filters, tt.order))
		})
	}
}

func TestBuildFindOptions(t *testing.T) {
	opts := buildFindOptions(model.Constraints{
		Order: &model.Order{Field: "date", Direction: model.Descending},
		Limit: 10,
	})
	assert.Equal(t, int64(10), *opts.Limit)
	assert.Equal(t, bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: 1}}, opts.Sort)

	opts = buildFindOptions(model.Constraints{})
	assert.Nil(t, opts.Limit)
	assert.Equal(t, bson.D{{Key: "_id", Value: 1}}, opts.Sort)
}

func TestDocumentKey(t *testing.T) {
	_, isString := documentKey("not-an-object-id").(string)
	assert.True(t, isString)
	_, isString = documentKey("65f1c2a3b4d5e6f708192a3b").(string)
	assert.False(t, isString)
}
