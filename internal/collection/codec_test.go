package collection

import (
	"testing"
	"time"

	"gym-assistant/internal/docstore/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"google.golang.org/protobuf/types/known/timestamppb"
)

type session struct {
	Base    `bson:",inline"`
	Title   string    `bson:"title"`
	Started time.Time `bson:"started"`
	Sets    []setLog  `bson:"sets"`
	Meta    struct {
		ReviewedAt time.Time `bson:"reviewedAt"`
	} `bson:"meta"`
}

type setLog struct {
	Reps        int       `bson:"reps"`
	CompletedAt time.Time `bson:"completedAt"`
}

var when = time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want interface{}
	}{
		{"bson datetime", primitive.NewDateTimeFromTime(when), when},
		{"bson timestamp", primitive.Timestamp{T: uint32(when.Unix())}, when},
		{"protobuf timestamp", timestamppb.New(when), when},
		{"memory timestamp", model.NewTimestamp(when), when},
		{"local time to utc", when.In(time.FixedZone("x", 3600)), when},
		{"bson array", primitive.A{primitive.NewDateTimeFromTime(when), "a"}, []interface{}{when, "a"}},
		{"bson document", primitive.M{"at": model.NewTimestamp(when)}, map[string]interface{}{"at": when}},
		{"ordered document", primitive.D{{Key: "at", Value: timestamppb.New(when)}}, map[string]interface{}{"at": when}},
		{"plain value", "squat", "squat"},
		{"nil", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeValue(tt.in)
			if wantTime, ok := tt.want.(time.Time); ok {
				gotTime, isTime := got.(time.Time)
				require.True(t, isTime, "got %T", got)
				assert.True(t, wantTime.Equal(gotTime))
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeNormalizesNestedTimestamps(t *testing.T) {
	snap := model.Snapshot{
		ID: "s1",
		Fields: model.Fields{
			"title":     "Morning",
			"started":   model.NewTimestamp(when),
			"createdAt": primitive.NewDateTimeFromTime(when),
			"sets": []interface{}{
				map[string]interface{}{"reps": int32(8), "completedAt": timestamppb.New(when)},
			},
			"meta": map[string]interface{}{"reviewedAt": model.NewTimestamp(when)},
		},
	}

	got, err := decode[session](snap)
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
	assert.True(t, when.Equal(got.Started))
	assert.True(t, when.Equal(got.CreatedAt))
	require.Len(t, got.Sets, 1)
	assert.Equal(t, 8, got.Sets[0].Reps)
	assert.True(t, when.Equal(got.Sets[0].CompletedAt))
	assert.True(t, when.Equal(got.Meta.ReviewedAt))
}

func TestEncodeSkipsIDAndZeroTimestamps(t *testing.T) {
	s := session{Title: "Evening"}
	s.ID = "ignored"
	fields, err := encode(&s)
	require.NoError(t, err)

	assert.Equal(t, "Evening", fields["title"])
	assert.NotContains(t, fields, "id")
	assert.NotContains(t, fields, model.FieldCreatedAt)
	assert.NotContains(t, fields, model.FieldUpdatedAt)
}

type status string

func TestBuildConstraints(t *testing.T) {
	c, err := BuildConstraints(nil)
	require.NoError(t, err)
	assert.Equal(t, model.Constraints{}, c)

	c, err = BuildConstraints(Query().
		Filter("status", model.OperatorEqual, status("planned")).
		Filter("day", model.OperatorIn, []string{"mon", "tue"}).
		Sort("date", "").
		WithLimit(3))
	require.NoError(t, err)
	require.Len(t, c.Filters, 2)
	assert.Equal(t, "planned", c.Filters[0].Value)
	assert.Equal(t, []interface{}{"mon", "tue"}, c.Filters[1].Value)
	assert.Equal(t, &model.Order{Field: "date", Direction: model.Ascending}, c.Order)
	assert.Equal(t, 3, c.Limit)

	_, err = BuildConstraints(Query().Sort("date", "sideways"))
	assert.Error(t, err)
}
