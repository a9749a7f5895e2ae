package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	apperrors "gym-assistant/internal/shared/errors"
)

// Reserved field names maintained by the client.
const (
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// Fields is a document's field map, excluding its id.
type Fields map[string]interface{}

// Snapshot is one document as read from a provider.
type Snapshot struct {
	ID     string
	Fields Fields
}

type serverTimestamp struct{}

// ServerTimestamp is a write sentinel a provider replaces with its own clock.
// All sentinels in one write resolve to the same instant.
var ServerTimestamp interface{} = serverTimestamp{}

// IsServerTimestamp reports whether v is the ServerTimestamp sentinel.
func IsServerTimestamp(v interface{}) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// ResolveServerTimestamps returns a copy of data with every sentinel,
// including nested ones, replaced by convert(now).
func ResolveServerTimestamps(data Fields, now time.Time, convert func(time.Time) interface{}) Fields {
	out := make(Fields, len(data))
	for k, v := range data {
		out[k] = resolveValue(v, now, convert)
	}
	return out
}

func resolveValue(v interface{}, now time.Time, convert func(time.Time) interface{}) interface{} {
	switch val := v.(type) {
	case serverTimestamp:
		return convert(now)
	case map[string]interface{}:
		return map[string]interface{}(ResolveServerTimestamps(val, now, convert))
	case Fields:
		return ResolveServerTimestamps(val, now, convert)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = resolveValue(item, now, convert)
		}
		return out
	default:
		return v
	}
}

// Timestamp is the native timestamp representation of the in-memory provider.
type Timestamp struct {
	Seconds int64
	Nanos   int32
}

// NewTimestamp converts t into a Timestamp.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Seconds: t.Unix(), Nanos: int32(t.Nanosecond())}
}

// Time returns the timestamp as UTC time.
func (t Timestamp) Time() time.Time {
	return time.Unix(t.Seconds, int64(t.Nanos)).UTC()
}

var collectionNamePattern = regexp.MustCompile(`^[A-Za-z0-9_\-]{1,128}$`)

// ValidateCollection checks a collection name.
func ValidateCollection(name string) error {
	if !collectionNamePattern.MatchString(name) || strings.HasPrefix(name, "__") {
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidCollection, name)
	}
	return nil
}

// ValidateDocumentID checks a document id.
func ValidateDocumentID(id string) error {
	if id == "" || id == "." || id == ".." || strings.Contains(id, "/") || len(id) > 1500 {
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidDocumentID, id)
	}
	return nil
}
