package workouts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/liftstats/internal/telemetry/tracing"

	_ "modernc.org/sqlite"
)

// liteSchema mirrors the Postgres migrations for the embedded store.
// Bootstrap is idempotent and runs on every startup.
const liteSchema = `
	CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS workouts (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		date       TEXT NOT NULL,
		note       TEXT,
		created_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS sets (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		workout_id INTEGER NOT NULL REFERENCES workouts (id) ON DELETE CASCADE,
		exercise   TEXT NOT NULL,
		weight_kg  REAL,
		reps       INTEGER,
		distance   REAL,
		seconds    REAL,
		is_top_set INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_sets_workout ON sets (workout_id);
	CREATE INDEX IF NOT EXISTS idx_workouts_user_date ON workouts (user_id, date DESC);
`

// LiteStore is the embedded-store implementation of Store: a single
// sqlite file via the pure-Go modernc driver. It owns the whole
// embedded schema (users included), so the auth repo can share the
// same handle.
type LiteStore struct {
	db *sql.DB
}

// OpenLite opens (or creates) the embedded database and bootstraps the
// schema. Foreign keys are forced ON for the connection; a single
// logical connection serializes all operations.
func OpenLite(path string) (*sql.DB, error) {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path == ":memory:" {
		dsn = "file::memory:?cache=shared&_pragma=foreign_keys(1)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec(liteSchema); err != nil {
		return nil, fmt.Errorf("bootstrap sqlite schema: %w", err)
	}

	return sqlDB, nil
}

func NewLiteStore(db *sql.DB) *LiteStore {
	return &LiteStore{
		db: db,
	}
}

func (ls *LiteStore) CreateWorkout(ctx context.Context, workout Workout, sets []Set) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "litestore.workouts.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tx, err := ls.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(
		ctx,
		`INSERT INTO workouts (user_id, date, note, created_at) VALUES (?, ?, ?, ?);`,
		workout.UserID, workout.Date, workout.Note, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert workout: %w", err)
	}
	workoutID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	for _, s := range sets {
		if _, err = tx.ExecContext(
			ctx,
			`INSERT INTO sets (workout_id, exercise, weight_kg, reps, distance, seconds, is_top_set)
				VALUES (?, ?, ?, ?, ?, ?, ?);`,
			workoutID, s.Exercise, s.WeightKg, s.Reps, s.Distance, s.Seconds, s.IsTopSet,
		); err != nil {
			return 0, fmt.Errorf("insert set: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return int(workoutID), nil
}

func (ls *LiteStore) GetWorkout(ctx context.Context, userID, workoutID int) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "litestore.workouts.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var w Workout
	var createdAt string
	err = ls.db.QueryRowContext(
		ctx,
		`SELECT id, user_id, date, COALESCE(note, ''), created_at
			FROM workouts
			WHERE id = ? AND user_id = ?;`,
		workoutID, userID,
	).Scan(&w.ID, &w.UserID, &w.Date, &w.Note, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWorkoutNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query workout: %w", err)
	}

	w.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &w, nil
}

func (ls *LiteStore) Sets(ctx context.Context, workoutID int) (_ []Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "litestore.workouts.sets")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := ls.db.QueryContext(
		ctx,
		`SELECT id, workout_id, exercise, weight_kg, reps, distance, seconds, is_top_set
			FROM sets
			WHERE workout_id = ?
			ORDER BY id;`,
		workoutID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sets := make([]Set, 0)
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

	return sets, nil
}

func (ls *LiteStore) DeleteWorkout(ctx context.Context, userID, workoutID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "litestore.workouts.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	// idempotent on purpose: deleting a missing (or foreign) id is a no-op
	if _, err := ls.db.ExecContext(
		ctx,
		`DELETE FROM workouts WHERE id = ? AND user_id = ?;`,
		workoutID, userID,
	); err != nil {
		return fmt.Errorf("delete workout: %w", err)
	}
	return nil
}

func (ls *LiteStore) ListWorkouts(ctx context.Context, params ListParams) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "litestore.workouts.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := ls.db.QueryContext(
		ctx,
		`SELECT w.id, w.user_id, w.date, COALESCE(w.note, ''), w.created_at
			FROM workouts w
			WHERE w.user_id = ?
			AND (? = '' OR EXISTS (
				SELECT 1 FROM sets s
					WHERE s.workout_id = w.id AND s.exercise = ? COLLATE NOCASE
			))
			ORDER BY w.date DESC, w.id DESC;`,
		params.UserID, params.Exercise, params.Exercise,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	workouts := make([]Workout, 0)
	for rows.Next() {
		var w Workout
		var createdAt string
		if err := rows.Scan(&w.ID, &w.UserID, &w.Date, &w.Note, &createdAt); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		w.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		workouts = append(workouts, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return workouts, nil
}

func (ls *LiteStore) ListSets(ctx context.Context, params SetParams) (_ []WorkoutSet, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "litestore.workouts.listsets")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := ls.db.QueryContext(
		ctx,
		`SELECT s.id, s.workout_id, s.exercise, s.weight_kg, s.reps, s.distance, s.seconds, s.is_top_set, w.date
			FROM sets s
			JOIN workouts w ON w.id = s.workout_id
			WHERE w.user_id = ?
			AND s.exercise = ? COLLATE NOCASE
			AND (? = '' OR w.date >= ?)
			AND (? = '' OR w.date <= ?)
			ORDER BY w.date ASC, s.id ASC;`,
		params.UserID, params.Exercise,
		params.FromDate, params.FromDate,
		params.ToDate, params.ToDate,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	workoutSets := make([]WorkoutSet, 0)
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

	return workoutSets, nil
}

func (ls *LiteStore) TruncateAll(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "litestore.workouts.truncateall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tx, err := ls.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range []string{
		`DELETE FROM sets;`,
		`DELETE FROM workouts;`,
		`DELETE FROM sqlite_sequence WHERE name IN ('sets', 'workouts');`,
	} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("wipe: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
