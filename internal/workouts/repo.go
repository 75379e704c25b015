package workouts

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/liftstats/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

// Repo is the hosted-store implementation of Store, backed by Postgres.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) CreateWorkout(ctx context.Context, workout Workout, sets []Set) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var workoutID int
	if err = tx.QueryRow(
		ctx,
		`INSERT INTO workouts (user_id, date, note) VALUES ($1, $2, $3) RETURNING id;`,
		workout.UserID, workout.Date, workout.Note,
	).Scan(&workoutID); err != nil {
		return 0, fmt.Errorf("insert workout: %w", err)
	}

	for _, s := range sets {
		if _, err = tx.Exec(
			ctx,
			`INSERT INTO sets (workout_id, exercise, weight_kg, reps, distance, seconds, is_top_set)
				VALUES ($1, $2, $3, $4, $5, $6, $7);`,
			workoutID, s.Exercise, s.WeightKg, s.Reps, s.Distance, s.Seconds, s.IsTopSet,
		); err != nil {
			return 0, fmt.Errorf("insert set: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	span.SetAttributes(attribute.Int("workout.id", workoutID))
	return workoutID, nil
}

func (r *Repo) GetWorkout(ctx context.Context, userID, workoutID int) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", workoutID))

	var w Workout
	err = r.db.QueryRow(
		ctx,
		`SELECT id, user_id, date, COALESCE(note, ''), created_at
			FROM workouts
			WHERE id = $1 AND user_id = $2;`,
		workoutID, userID,
	).Scan(&w.ID, &w.UserID, &w.Date, &w.Note, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWorkoutNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query workout: %w", err)
	}

	return &w, nil
}

func (r *Repo) Sets(ctx context.Context, workoutID int) (_ []Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.sets")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("workout.id", workoutID))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, workout_id, exercise, weight_kg, reps, distance, seconds, is_top_set
			FROM sets
			WHERE workout_id = $1
			ORDER BY id;`,
		workoutID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	return rows2sets(rows)
}

func (r *Repo) DeleteWorkout(ctx context.Context, userID, workoutID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", workoutID))

	// idempotent on purpose: deleting a missing (or foreign) id is a no-op
	if _, err := r.db.Exec(
		ctx,
		`DELETE FROM workouts WHERE id = $1 AND user_id = $2;`,
		workoutID, userID,
	); err != nil {
		return fmt.Errorf("delete workout: %w", err)
	}
	return nil
}

func (r *Repo) ListWorkouts(ctx context.Context, params ListParams) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise", params.Exercise))

	rows, err := r.db.Query(
		ctx,
		`SELECT w.id, w.user_id, w.date, COALESCE(w.note, ''), w.created_at
			FROM workouts w
			WHERE w.user_id = $1
			AND ($2::text = '' OR EXISTS (
				SELECT 1 FROM sets s
					WHERE s.workout_id = w.id AND LOWER(s.exercise) = LOWER($2)
			))
			ORDER BY w.date DESC, w.id DESC;`,
		params.UserID, params.Exercise,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var workouts []Workout
	for rows.Next() {
		var w Workout
		if err := rows.Scan(&w.ID, &w.UserID, &w.Date, &w.Note, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		workouts = append(workouts, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	if workouts == nil {
		workouts = make([]Workout, 0)
	}
	return workouts, nil
}

func (r *Repo) ListSets(ctx context.Context, params SetParams) (_ []WorkoutSet, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.listsets")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise", params.Exercise))

	rows, err := r.db.Query(
		ctx,
		`SELECT s.id, s.workout_id, s.exercise, s.weight_kg, s.reps, s.distance, s.seconds, s.is_top_set, w.date
			FROM sets s
			JOIN workouts w ON w.id = s.workout_id
			WHERE w.user_id = $1
			AND LOWER(s.exercise) = LOWER($2)
			AND ($3::text = '' OR w.date >= $3)
			AND ($4::text = '' OR w.date <= $4)
			ORDER BY w.date ASC, s.id ASC;`,
		params.UserID, params.Exercise, params.FromDate, params.ToDate,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var workoutSets []WorkoutSet
	for rows.Next() {
		var ws WorkoutSet
		if err := rows.Scan(
			&ws.ID, &ws.WorkoutID, &ws.Exercise,
			&ws.WeightKg, &ws.Reps, &ws.Distance, &ws.Seconds,
			&ws.IsTopSet, &ws.WorkoutDate,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		workoutSets = append(workoutSets, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	if workoutSets == nil {
		workoutSets = make([]WorkoutSet, 0)
	}
	return workoutSets, nil
}

func (r *Repo) TruncateAll(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.truncateall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if _, err := r.db.Exec(ctx, `TRUNCATE sets, workouts RESTART IDENTITY CASCADE;`); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}
	return nil
}

func rows2sets(rows pgx.Rows) ([]Set, error) {
	var sets []Set
	for rows.Next() {
		var s Set
		if err := rows.Scan(
			&s.ID, &s.WorkoutID, &s.Exercise,
			&s.WeightKg, &s.Reps, &s.Distance, &s.Seconds, &s.IsTopSet,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		sets = append(sets, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	if sets == nil {
		sets = make([]Set, 0)
	}
	return sets, nil
}
