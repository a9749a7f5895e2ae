package collection

import (
	"fmt"

	"gym-assistant/internal/docstore/domain/model"
	apperrors "gym-assistant/internal/shared/errors"
)

// WhereClause is one conjunctive filter.
type WhereClause struct {
	Field    string         `json:"field"`
	Operator model.Operator `json:"operator"`
	Value    interface{}    `json:"value"`
}

// OrderBy is the single sort key of a query.
type OrderBy struct {
	Field     string `json:"field"`
	Direction string `json:"direction,omitempty"` // "asc" (default) or "desc"
}

// QueryOptions composes filters, an optional order and an optional limit.
// A nil or empty QueryOptions selects the whole collection.
type QueryOptions struct {
	Where   []WhereClause `json:"where,omitempty"`
	OrderBy *OrderBy      `json:"orderBy,omitempty"`
	Limit   int           `json:"limit,omitempty"`
}

// Query starts an empty QueryOptions for chaining.
func Query() *QueryOptions {
	return &QueryOptions{}
}

// Filter appends a where clause.
func (q *QueryOptions) Filter(field string, op model.Operator, value interface{}) *QueryOptions {
	q.Where = append(q.Where, WhereClause{Field: field, Operator: op, Value: value})
	return q
}

// Sort sets the order.
func (q *QueryOptions) Sort(field, direction string) *QueryOptions {
	q.OrderBy = &OrderBy{Field: field, Direction: direction}
	return q
}

// WithLimit caps the number of results.
func (q *QueryOptions) WithLimit(n int) *QueryOptions {
	q.Limit = n
	return q
}

// BuildConstraints turns options into provider constraints. GetAll and
// Subscribe both go through it, so equal options select equal sets.
// Filter values are canonicalised through the record codec so typed values
// (enums, slices, times) compare like the stored fields they target.
func BuildConstraints(opts *QueryOptions) (model.Constraints, error) {
	var c model.Constraints
	if opts == nil {
		return c, nil
	}

	for _, w := range opts.Where {
		value, err := canonicalValue(w.Value)
		if err != nil {
			return model.Constraints{}, fmt.Errorf("%w: value for %q: %v", apperrors.ErrInvalidQuery, w.Field, err)
		}
		c.Filters = append(c.Filters, model.Filter{Field: w.Field, Operator: w.Operator, Value: value})
	}

	if opts.OrderBy != nil {
		direction := opts.OrderBy.Direction
		if direction == "" {
			direction = model.Ascending
		}
		c.Order = &model.Order{Field: opts.OrderBy.Field, Direction: direction}
	}
	c.Limit = opts.Limit

	if err := c.Validate(); err != nil {
		return model.Constraints{}, err
	}
	return c, nil
}
