package model

import (
	"fmt"

	apperrors "gym-assistant/internal/shared/errors"
)

// Filter represents a single where clause.
type Filter struct {
	Field    string      // Document field to filter
	Operator Operator    // Comparison operator
	Value    interface{} // Value to compare against
}

// Order represents the single ordering of a query.
type Order struct {
	Field     string
	Direction string // "asc" or "desc"
}

// Constraints is the provider-level query: filters, optional order, optional limit.
type Constraints struct {
	Filters []Filter
	Order   *Order
	Limit   int // 0 means unlimited
}

const (
	Ascending  = "asc"
	Descending = "desc"
)

// Operator is a filter comparison operator.
type Operator string

const (
	OperatorEqual              Operator = "=="
	OperatorNotEqual           Operator = "!="
	OperatorLessThan           Operator = "<"
	OperatorLessThanOrEqual    Operator = "<="
	OperatorGreaterThan        Operator = ">"
	OperatorGreaterThanOrEqual Operator = ">="
	OperatorIn                 Operator = "in"
	OperatorNotIn              Operator = "not-in"
	OperatorArrayContains      Operator = "array-contains"
	OperatorArrayContainsAny   Operator = "array-contains-any"
)

// Operators lists every supported operator.
var Operators = []Operator{
	OperatorEqual, OperatorNotEqual,
	OperatorLessThan, OperatorLessThanOrEqual,
	OperatorGreaterThan, OperatorGreaterThanOrEqual,
	OperatorIn, OperatorNotIn,
	OperatorArrayContains, OperatorArrayContainsAny,
}

// Valid reports whether op is a supported operator.
func (op Operator) Valid() bool {
	for _, o := range Operators {
		if o == op {
			return true
		}
	}
	return false
}

// TakesList reports whether the operator's value must be a list.
func (op Operator) TakesList() bool {
	return op == OperatorIn || op == OperatorNotIn || op == OperatorArrayContainsAny
}

// Validate checks the constraints before they reach a provider.
func (c Constraints) Validate() error {
	for i, f := range c.Filters {
		if f.Field == "" {
			return fmt.Errorf("%w: filter %d has no field", apperrors.ErrInvalidQuery, i)
		}
		if !f.Operator.Valid() {
			return fmt.Errorf("%w: unsupported operator %q", apperrors.ErrInvalidQuery, f.Operator)
		}
		if f.Operator.TakesList() {
			if _, ok := f.Value.([]interface{}); !ok {
				return fmt.Errorf("%w: operator %q requires a list value", apperrors.ErrInvalidQuery, f.Operator)
			}
		}
	}
	if c.Order != nil {
		if c.Order.Field == "" {
			return fmt.Errorf("%w: order has no field", apperrors.ErrInvalidQuery)
		}
		if c.Order.Direction != Ascending && c.Order.Direction != Descending {
			return fmt.Errorf("%w: invalid order direction %q", apperrors.ErrInvalidQuery, c.Order.Direction)
		}
	}
	if c.Limit < 0 {
		return fmt.Errorf("%w: negative limit", apperrors.ErrInvalidQuery)
	}
	return nil
}
