package memory

import (
	"fmt"
	"strings"
	"time"

	"gym-assistant/internal/docstore/domain/model"

	"github.com/google/cel-go/cel"
)

// operatorExpressions maps each filter operator to a CEL expression over
// x (the document's field value) and v (the filter value).
var operatorExpressions = map[model.Operator]string{
	model.OperatorEqual:              "x == v",
	model.OperatorNotEqual:           "x != v",
	model.OperatorLessThan:           "x < v",
	model.OperatorLessThanOrEqual:    "x <= v",
	model.OperatorGreaterThan:        "x > v",
	model.OperatorGreaterThanOrEqual: "x >= v",
	model.OperatorIn:                 "x in v",
	model.OperatorNotIn:              "!(x in v)",
	model.OperatorArrayContains:      "type(x) == list && v in x",
	model.OperatorArrayContainsAny:   "type(x) == list && x.exists(e, e in v)",
}

// matcher evaluates filters with one precompiled CEL program per operator.
type matcher struct {
	programs map[model.Operator]cel.Program
}

func newMatcher() (*matcher, error) {
	env, err := cel.NewEnv(
		cel.Variable("x", cel.DynType),
		cel.Variable("v", cel.DynType),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	m := &matcher{programs: make(map[model.Operator]cel.Program, len(operatorExpressions))}
	for op, expr := range operatorExpressions {
		ast, issues := env.Compile(expr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("CEL compilation error for %q: %w", op, issues.Err())
		}
		program, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("failed to create CEL program for %q: %w", op, err)
		}
		m.programs[op] = program
	}
	return m, nil
}

// matches reports whether doc satisfies every filter. A missing field, or
// a comparison CEL cannot evaluate (mismatched types), does not match.
func (m *matcher) matches(doc model.Fields, filters []model.Filter) bool {
	for _, f := range filters {
		x, ok := lookup(doc, f.Field)
		if !ok {
			return false
		}
		program, ok := m.programs[f.Operator]
		if !ok {
			return false
		}
		out, _, err := program.Eval(map[string]interface{}{
			"x": celValue(x),
			"v": celValue(f.Value),
		})
		if err != nil {
			return false
		}
		if matched, ok := out.Value().(bool); !ok || !matched {
			return false
		}
	}
	return true
}

// lookup resolves a dotted field path.
func lookup(doc map[string]interface{}, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var current interface{} = doc
	for _, p := range parts {
		m, ok := asMap(current)
		if !ok {
			return nil, false
		}
		current, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case model.Fields:
		return m, true
	default:
		return nil, false
	}
}

// celValue converts stored values into types the CEL adapter understands.
func celValue(v interface{}) interface{} {
	switch val := v.(type) {
	case model.Timestamp:
		return val.Time()
	case time.Time:
		return val.UTC()
	case int:
		return int64(val)
	case model.Fields:
		return celValue(map[string]interface{}(val))
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = celValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = celValue(item)
		}
		return out
	default:
		return v
	}
}
