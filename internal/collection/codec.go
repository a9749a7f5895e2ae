package collection

import (
	"fmt"
	"time"

	"gym-assistant/internal/docstore/domain/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Records are mapped to and from field maps with the BSON codec, so struct
// tags are `bson:"..."` and every provider sees the same value shapes.

// encode converts a record (or any document-shaped value) into fields.
func encode(v interface{}) (model.Fields, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return normalizeFields(m), nil
}

// decode fills a new record from a snapshot.
func decode[T any, PT recordPtr[T]](snap model.Snapshot) (T, error) {
	var out T
	raw, err := bson.Marshal(map[string]interface{}(normalizeFields(snap.Fields)))
	if err != nil {
		return out, fmt.Errorf("decode %s: %w", snap.ID, err)
	}
	if err := bson.Unmarshal(raw, PT(&out)); err != nil {
		return out, fmt.Errorf("decode %s: %w", snap.ID, err)
	}
	PT(&out).SetID(snap.ID)
	return out, nil
}

func decodeAll[T any, PT recordPtr[T]](snaps []model.Snapshot) ([]T, error) {
	out := make([]T, 0, len(snaps))
	for _, s := range snaps {
		rec, err := decode[T, PT](s)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// canonicalValue passes a single value through the codec.
func canonicalValue(v interface{}) (interface{}, error) {
	fields, err := encode(bson.M{"v": v})
	if err != nil {
		return nil, err
	}
	return fields["v"], nil
}

func normalizeFields(in map[string]interface{}) model.Fields {
	out := make(model.Fields, len(in))
	for k, v := range in {
		out[k] = normalizeValue(v)
	}
	return out
}

// normalizeValue converts provider-native timestamps to time.Time and
// provider container types to plain maps and slices, at any depth.
func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return val.UTC()
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.Timestamp:
		return time.Unix(int64(val.T), 0).UTC()
	case *timestamppb.Timestamp:
		return val.AsTime()
	case model.Timestamp:
		return val.Time()
	case primitive.A:
		return normalizeSlice(val)
	case []interface{}:
		return normalizeSlice(val)
	case primitive.M:
		return map[string]interface{}(normalizeFields(val))
	case model.Fields:
		return map[string]interface{}(normalizeFields(val))
	case map[string]interface{}:
		return map[string]interface{}(normalizeFields(val))
	case primitive.D:
		return map[string]interface{}(normalizeFields(val.Map()))
	case interface{ AsTime() time.Time }:
		return val.AsTime().UTC()
	case interface{ Time() time.Time }:
		return val.Time().UTC()
	default:
		return v
	}
}

func normalizeSlice(in []interface{}) []interface{} {
	out := make([]interface{}, len(in))
	for i, item := range in {
		out[i] = normalizeValue(item)
	}
	return out
}
