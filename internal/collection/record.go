package collection

import "time"

// Record is the capability set every mirrored type provides: a
// provider-assigned id and the two server timestamps.
type Record interface {
	GetID() string
	SetID(id string)
	GetCreatedAt() time.Time
	GetUpdatedAt() time.Time
}

// recordPtr binds a struct type T to a pointer that implements Record.
type recordPtr[T any] interface {
	*T
	Record
}

// Base carries the id and timestamps. Embed it inline:
//
//	type Workout struct {
//		collection.Base `bson:",inline"`
//		Name string `bson:"name" json:"name"`
//	}
type Base struct {
	ID        string    `bson:"-" json:"id"`
	CreatedAt time.Time `bson:"createdAt,omitempty" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt,omitempty" json:"updatedAt"`
}

func (b Base) GetID() string           { return b.ID }
func (b *Base) SetID(id string)        { b.ID = id }
func (b Base) GetCreatedAt() time.Time { return b.CreatedAt }
func (b Base) GetUpdatedAt() time.Time { return b.UpdatedAt }
