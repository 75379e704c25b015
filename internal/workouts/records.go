package workouts

import (
	"context"
	"fmt"
	"math"

	"github.com/2beens/liftstats/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

type Metric string

const (
	MetricWeight   Metric = "weight"
	MetricReps     Metric = "reps"
	MetricDistance Metric = "distance"
	MetricSeconds  Metric = "seconds"
)

func (m Metric) Valid() bool {
	switch m {
	case MetricWeight, MetricReps, MetricDistance, MetricSeconds:
		return true
	}
	return false
}

type Direction string

const (
	DirectionMax Direction = "max"
	DirectionMin Direction = "min"
)

func (d Direction) Valid() bool {
	return d == DirectionMax || d == DirectionMin
}

// PersonalRecord is never stored; it is a computed-on-read view of the
// extremal value of a metric, with the date it was achieved.
type PersonalRecord struct {
	Value float64 `json:"value"`
	Date  string  `json:"date"`
}

type analyzerStore interface {
	ListSets(ctx context.Context, params SetParams) ([]WorkoutSet, error)
	ListWorkouts(ctx context.Context, params ListParams) ([]Workout, error)
	Sets(ctx context.Context, workoutID int) ([]Set, error)
}

// Analyzer answers record, history and comparison queries over the
// stored sets. All computation happens in memory; the collections are
// tens to hundreds of rows.
type Analyzer struct {
	store analyzerStore
}

func NewAnalyzer(store analyzerStore) *Analyzer {
	return &Analyzer{
		store: store,
	}
}

// PersonalRecord returns the best (max or min) value of the metric
// across all of the user's sets for the exercise, or nil when no set
// qualifies. Nil is a valid, common result, not an error.
func (a *Analyzer) PersonalRecord(
	ctx context.Context,
	userID int,
	exercise string,
	metric Metric,
	direction Direction,
) (_ *PersonalRecord, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.workouts.personalrecord")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise", exercise))
	span.SetAttributes(attribute.String("metric", string(metric)))

	if !metric.Valid() {
		return nil, fmt.Errorf("invalid metric: %s", metric)
	}
	if !direction.Valid() {
		return nil, fmt.Errorf("invalid direction: %s", direction)
	}

	sets, err := a.store.ListSets(ctx, SetParams{UserID: userID, Exercise: exercise})
	if err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}

	var record *PersonalRecord
	for _, ws := range sets {
		value := metricValue(ws.Set, metric)
		if value == nil {
			continue
		}
		if record == nil || better(*value, record.Value, direction) {
			record = &PersonalRecord{Value: *value, Date: ws.WorkoutDate}
		}
	}
	return record, nil
}

// MaxWeightForReps returns the heaviest weight ever lifted for exactly
// targetReps reps. A non-positive target yields no result for every
// exercise, without error, mirroring "nothing matches".
func (a *Analyzer) MaxWeightForReps(
	ctx context.Context,
	userID int,
	exercise string,
	targetReps int,
) (_ *PersonalRecord, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.workouts.maxweightforreps")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise", exercise))
	span.SetAttributes(attribute.Int("target_reps", targetReps))

	if targetReps <= 0 {
		return nil, nil
	}

	sets, err := a.store.ListSets(ctx, SetParams{UserID: userID, Exercise: exercise})
	if err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}

	var record *PersonalRecord
	for _, ws := range sets {
		if ws.Reps == nil || *ws.Reps != targetReps || ws.WeightKg == nil {
			continue
		}
		if record == nil || better(*ws.WeightKg, record.Value, DirectionMax) {
			record = &PersonalRecord{Value: *ws.WeightKg, Date: ws.WorkoutDate}
		}
	}
	return record, nil
}

// MaxRepsForWeight is the mirror of MaxWeightForReps: most reps ever
// done at exactly targetKg. A non-finite or non-positive target yields
// no result, without error.
func (a *Analyzer) MaxRepsForWeight(
	ctx context.Context,
	userID int,
	exercise string,
	targetKg float64,
) (_ *PersonalRecord, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.workouts.maxrepsforweight")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise", exercise))
	span.SetAttributes(attribute.Float64("target_kg", targetKg))

	if math.IsNaN(targetKg) || math.IsInf(targetKg, 0) || targetKg <= 0 {
		return nil, nil
	}

	sets, err := a.store.ListSets(ctx, SetParams{UserID: userID, Exercise: exercise})
	if err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}

	var record *PersonalRecord
	for _, ws := range sets {
		if ws.WeightKg == nil || *ws.WeightKg != targetKg || ws.Reps == nil {
			continue
		}
		if record == nil || better(float64(*ws.Reps), record.Value, DirectionMax) {
			record = &PersonalRecord{Value: float64(*ws.Reps), Date: ws.WorkoutDate}
		}
	}
	return record, nil
}

func metricValue(s Set, metric Metric) *float64 {
	switch metric {
	case MetricWeight:
		return s.WeightKg
	case MetricReps:
		if s.Reps == nil {
			return nil
		}
		v := float64(*s.Reps)
		return &v
	case MetricDistance:
		return s.Distance
	case MetricSeconds:
		return s.Seconds
	}
	return nil
}

// better reports whether candidate beats (or equals) current for the
// given direction. Sets arrive ordered by date ascending, so accepting
// equal values resolves ties in favour of the most recent date.
func better(candidate, current float64, direction Direction) bool {
	if direction == DirectionMin {
		return candidate <= current
	}
	return candidate >= current
}
