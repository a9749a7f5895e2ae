package mongodb

import (
	"gym-assistant/internal/docstore/domain/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// buildFilter translates filters into one Mongo filter document. Inequality
// operators also require the field to exist, matching document-store
// semantics where a missing field never satisfies a filter.
func buildFilter(filters []model.Filter, order *model.Order) bson.M {
	var andFilters []bson.M
	for _, f := range filters {
		andFilters = append(andFilters, singleFilter(f))
	}
	if order != nil {
		andFilters = append(andFilters, bson.M{order.Field: bson.M{"$exists": true}})
	}

	if len(andFilters) == 0 {
		return bson.M{}
	}
	if len(andFilters) == 1 {
		return andFilters[0]
	}
	return bson.M{"$and": andFilters}
}

func singleFilter(f model.Filter) bson.M {
	switch f.Operator {
	case model.OperatorEqual:
		return bson.M{f.Field: f.Value}
	case model.OperatorNotEqual:
		return bson.M{f.Field: bson.M{"$ne": f.Value, "$exists": true}}
	case model.OperatorGreaterThan:
		return bson.M{f.Field: bson.M{"$gt": f.Value}}
	case model.OperatorGreaterThanOrEqual:
		return bson.M{f.Field: bson.M{"$gte": f.Value}}
	case model.OperatorLessThan:
		return bson.M{f.Field: bson.M{"$lt": f.Value}}
	case model.OperatorLessThanOrEqual:
		return bson.M{f.Field: bson.M{"$lte": f.Value}}
	case model.OperatorIn:
		return bson.M{f.Field: bson.M{"$in": f.Value}}
	case model.OperatorNotIn:
		return bson.M{f.Field: bson.M{"$nin": f.Value, "$exists": true}}
	case model.OperatorArrayContains:
		return bson.M{f.Field: bson.M{"$elemMatch": bson.M{"$eq": f.Value}}}
	case model.OperatorArrayContainsAny:
		return bson.M{f.Field: bson.M{"$elemMatch": bson.M{"$in": f.Value}}}
	default:
		return bson.M{f.Field: f.Value}
	}
}

// buildFindOptions applies order and limit. Ties are broken by _id so
// repeated reads return a stable sequence.
func buildFindOptions(c model.Constraints) *options.FindOptions {
	opts := options.Find()
	if c.Limit > 0 {
		opts.SetLimit(int64(c.Limit))
	}
	sort := bson.D{}
	if c.Order != nil {
		dir := 1
		if c.Order.Direction == model.Descending {
			dir = -1
		}
		sort = append(sort, bson.E{Key: c.Order.Field, Value: dir})
	}
	sort = append(sort, bson.E{Key: "_id", Value: 1})
	opts.SetSort(sort)
	return opts
}
