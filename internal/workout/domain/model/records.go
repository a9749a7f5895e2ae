package model

import (
	"time"

	"gym-assistant/internal/collection"
)

// Collection names.
const (
	CollectionWorkouts  = "workouts"
	CollectionUsers     = "users"
	CollectionExercises = "exercises"
	CollectionWeekPlans = "week_plans"
	CollectionProgress  = "progress"
)

// FieldUserID is the owner field of user-scoped records.
const FieldUserID = "userId"

// ExerciseCategory is the muscle group an exercise trains.
type ExerciseCategory string

const (
	CategoryChest     ExerciseCategory = "Chest"
	CategoryBack      ExerciseCategory = "Back"
	CategoryShoulders ExerciseCategory = "Shoulders"
	CategoryBiceps    ExerciseCategory = "Biceps"
	CategoryTriceps   ExerciseCategory = "Triceps"
	CategoryLegs      ExerciseCategory = "Legs"
	CategoryAbs       ExerciseCategory = "Abs"
	CategoryCardio    ExerciseCategory = "Cardio"
)

// ExerciseType is the equipment an exercise needs.
type ExerciseType string

const (
	TypeFreeWeights  ExerciseType = "Free weights"
	TypeMachines     ExerciseType = "Machines"
	TypeCableMachine ExerciseType = "Cable Machine"
	TypeNoEquipment  ExerciseType = "No Equipment"
)

// WorkoutStatus tracks a workout through the day.
type WorkoutStatus string

const (
	StatusPlanned   WorkoutStatus = "Planned"
	StatusOngoing   WorkoutStatus = "Ongoing"
	StatusCompleted WorkoutStatus = "Completed"
)

// Exercise is an entry of the shared exercise catalog.
type Exercise struct {
	collection.Base  `bson:",inline"`
	Name             string           `bson:"name" json:"name"`
	Description      string           `bson:"description,omitempty" json:"description,omitempty"`
	Picture          string           `bson:"picture,omitempty" json:"picture,omitempty"`
	VideoURL         string           `bson:"videoUrl,omitempty" json:"videoUrl,omitempty"`
	Category         ExerciseCategory `bson:"category" json:"category"`
	Type             ExerciseType     `bson:"type" json:"type"`
	ExtID            string           `bson:"extId,omitempty" json:"extId,omitempty"`
	HowTo            []string         `bson:"howTo,omitempty" json:"howTo,omitempty"`
	PrimaryMuscles   []string         `bson:"primaryMuscles,omitempty" json:"primaryMuscles,omitempty"`
	SecondaryMuscles []string         `bson:"secondaryMuscles,omitempty" json:"secondaryMuscles,omitempty"`
	Tips             []string         `bson:"tips,omitempty" json:"tips,omitempty"`
	Similar          []string         `bson:"similar,omitempty" json:"similar,omitempty"`
}

// ExerciseSet is one set of an exercise within a workout.
type ExerciseSet struct {
	Weight      float64 `bson:"weight" json:"weight"`
	Reps        int     `bson:"reps" json:"reps"`
	IsCompleted bool    `bson:"isCompleted" json:"isCompleted"`
}

// WorkoutExercise is an exercise performed in a workout.
type WorkoutExercise struct {
	Date       string        `bson:"date" json:"date"`
	ExerciseID string        `bson:"exerciseId" json:"exerciseId"`
	Sets       []ExerciseSet `bson:"sets" json:"sets"`
	Order      int           `bson:"order,omitempty" json:"order,omitempty"`
}

// Workout is a user's training session.
type Workout struct {
	collection.Base `bson:",inline"`
	UserID          string            `bson:"userId" json:"userId"`
	Exercises       []WorkoutExercise `bson:"exercises" json:"exercises"`
	Status          WorkoutStatus     `bson:"status" json:"status"`
	StartTime       string            `bson:"startTime,omitempty" json:"startTime,omitempty"`
	EndTime         string            `bson:"endTime,omitempty" json:"endTime,omitempty"`
	Date            time.Time         `bson:"date" json:"date"`
}

// WeekPlan assigns exercises to the week starting WeekStart.
type WeekPlan struct {
	collection.Base     `bson:",inline"`
	UserID              string   `bson:"userId" json:"userId"`
	WeekStart           string   `bson:"weekStart" json:"weekStart"` // ISO date of the Monday
	Exercises           []string `bson:"exercises" json:"exercises"`
	Completed           []string `bson:"completed,omitempty" json:"completed,omitempty"`
	ExercisesPerWorkout int      `bson:"exercisesPerWorkout,omitempty" json:"exercisesPerWorkout,omitempty"`
}

// UserProfile is the profile document of a user.
type UserProfile struct {
	collection.Base `bson:",inline"`
	UserID          string                 `bson:"userId" json:"userId"`
	DisplayName     string                 `bson:"displayName" json:"displayName"`
	Email           string                 `bson:"email" json:"email"`
	PhotoURL        string                 `bson:"photoURL,omitempty" json:"photoURL,omitempty"`
	Goals           []string               `bson:"goals,omitempty" json:"goals,omitempty"`
	Preferences     map[string]interface{} `bson:"preferences,omitempty" json:"preferences,omitempty"`
}

// Progress records the weight lifted for an exercise on a date.
type Progress struct {
	collection.Base `bson:",inline"`
	UserID          string    `bson:"userId" json:"userId"`
	ExerciseID      string    `bson:"exerciseId" json:"exerciseId"`
	ExerciseRef     string    `bson:"exerciseRef" json:"exerciseRef"` // "exercises/<id>"
	Date            time.Time `bson:"date" json:"date"`
	Weight          float64   `bson:"weight" json:"weight"`
}

// ExerciseRefFor returns the document path of an exercise.
func ExerciseRefFor(exerciseID string) string {
	return CollectionExercises + "/" + exerciseID
}

// Owned is implemented by records that belong to one user.
type Owned interface {
	GetUserID() string
	SetUserID(uid string)
}

func (w Workout) GetUserID() string         { return w.UserID }
func (w *Workout) SetUserID(uid string)     { w.UserID = uid }
func (p WeekPlan) GetUserID() string        { return p.UserID }
func (p *WeekPlan) SetUserID(uid string)    { p.UserID = uid }
func (u UserProfile) GetUserID() string     { return u.UserID }
func (u *UserProfile) SetUserID(uid string) { u.UserID = uid }
func (p Progress) GetUserID() string        { return p.UserID }
func (p *Progress) SetUserID(uid string)    { p.UserID = uid }
