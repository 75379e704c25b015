package workouts

import (
	"context"
	"errors"
)

var ErrWorkoutNotFound = errors.New("workout not found")

type ListParams struct {
	UserID int
	// Exercise filters to workouts having at least one set of this
	// exercise, matched case-insensitively. Empty means all.
	Exercise string
}

type SetParams struct {
	UserID   int
	Exercise string
	// FromDate / ToDate bound the workout date (inclusive), YYYY-MM-DD.
	// Empty means unbounded.
	FromDate string
	ToDate   string
}

//go:generate mockgen -source=$GOFILE -destination=store_mocks_test.go -package=workouts_test

// Store is the persistence contract for workouts and their sets.
// Two implementations exist: Repo (hosted Postgres) and LiteStore
// (embedded single-file sqlite).
type Store interface {
	// CreateWorkout inserts the workout and all its sets as a single
	// atomic unit and returns the new workout id. No partial rows are
	// ever visible.
	CreateWorkout(ctx context.Context, workout Workout, sets []Set) (int, error)
	// GetWorkout returns ErrWorkoutNotFound when no such workout exists
	// for the user.
	GetWorkout(ctx context.Context, userID, workoutID int) (*Workout, error)
	// Sets returns the workout sets ascending by insertion id.
	Sets(ctx context.Context, workoutID int) ([]Set, error)
	// DeleteWorkout removes the workout and, via cascade, all its sets.
	// Deleting a nonexistent id is a no-op, not an error.
	DeleteWorkout(ctx context.Context, userID, workoutID int) error
	// ListWorkouts returns workouts ordered by date descending, then id
	// descending (most recently created first among same-date workouts).
	ListWorkouts(ctx context.Context, params ListParams) ([]Workout, error)
	// ListSets returns the exercise sets joined with their workout
	// dates, ordered by date ascending then set id ascending.
	ListSets(ctx context.Context, params SetParams) ([]WorkoutSet, error)
	// TruncateAll wipes both tables and resets the id counters.
	// Development safety rail; the service layer guards it.
	TruncateAll(ctx context.Context) error
}
