package memory

import (
	"sort"
	"strings"
	"time"

	"gym-assistant/internal/docstore/domain/model"
)

// type ranks for cross-type ordering: null < bool < number < timestamp < string < other
const (
	rankNull = iota
	rankBool
	rankNumber
	rankTime
	rankString
	rankOther
)

func rankOf(v interface{}) (int, interface{}) {
	switch val := v.(type) {
	case nil:
		return rankNull, nil
	case bool:
		return rankBool, val
	case int:
		return rankNumber, float64(val)
	case int32:
		return rankNumber, float64(val)
	case int64:
		return rankNumber, float64(val)
	case float32:
		return rankNumber, float64(val)
	case float64:
		return rankNumber, val
	case model.Timestamp:
		return rankTime, val.Time()
	case time.Time:
		return rankTime, val
	case string:
		return rankString, val
	default:
		return rankOther, nil
	}
}

// compareValues returns -1, 0 or 1.
func compareValues(a, b interface{}) int {
	ra, va := rankOf(a)
	rb, vb := rankOf(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case rankBool:
		x, y := va.(bool), vb.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	case rankNumber:
		x, y := va.(float64), vb.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	case rankTime:
		return va.(time.Time).Compare(vb.(time.Time))
	case rankString:
		return strings.Compare(va.(string), vb.(string))
	default:
		return 0
	}
}

// applyOrderAndLimit orders docs by the constraint's order field, dropping
// documents that lack it, then truncates to the limit.
func applyOrderAndLimit(docs []model.Snapshot, c model.Constraints) []model.Snapshot {
	if c.Order != nil {
		kept := docs[:0]
		for _, d := range docs {
			if _, ok := lookup(d.Fields, c.Order.Field); ok {
				kept = append(kept, d)
			}
		}
		docs = kept
		desc := c.Order.Direction == model.Descending
		sort.SliceStable(docs, func(i, j int) bool {
			a, _ := lookup(docs[i].Fields, c.Order.Field)
			b, _ := lookup(docs[j].Fields, c.Order.Field)
			cmp := compareValues(a, b)
			if desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}
	if c.Limit > 0 && len(docs) > c.Limit {
		docs = docs[:c.Limit]
	}
	return docs
}
