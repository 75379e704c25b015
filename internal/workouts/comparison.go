package workouts

import (
	"context"
	"fmt"
	"strings"

	"github.com/2beens/liftstats/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// ComparisonRow compares one metric of the previous top set against
// today's. Delta is nil unless both sides are present; a partial
// difference is never computed.
type ComparisonRow struct {
	Metric   string   `json:"metric"`
	Previous *float64 `json:"previous"`
	Current  *float64 `json:"current"`
	Delta    *float64 `json:"delta"`
}

type Comparison struct {
	Exercise     string `json:"exercise"`
	PreviousDate string `json:"previousDate,omitempty"`
	TodayDate    string `json:"todayDate,omitempty"`

	PreviousTopSet *Set `json:"previousTopSet,omitempty"`
	TodayTopSet    *Set `json:"todayTopSet,omitempty"`

	Rows []ComparisonRow `json:"rows"`

	// NewTopSetWeightPR is set when today's top-set weight strictly
	// beats the previous one; the client shows a toast for it.
	NewTopSetWeightPR bool `json:"newTopSetWeightPR"`
}

// Compare builds the previous-vs-today table for an exercise. "Today"
// is the current calendar day in the configured zone, passed in as
// today; "previous" is the most recent workout strictly before it.
// When several workouts share the exercise and date, the most recently
// created one wins.
func (a *Analyzer) Compare(
	ctx context.Context,
	userID int,
	exercise string,
	today string,
) (_ *Comparison, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.workouts.compare")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise", exercise))
	span.SetAttributes(attribute.String("today", today))

	workouts, err := a.store.ListWorkouts(ctx, ListParams{UserID: userID, Exercise: exercise})
	if err != nil {
		return nil, fmt.Errorf("list workouts: %w", err)
	}

	// workouts are ordered date desc, id desc: the first match wins
	var todayWorkout, previousWorkout *Workout
	for i := range workouts {
		switch {
		case todayWorkout == nil && workouts[i].Date == today:
			todayWorkout = &workouts[i]
		case previousWorkout == nil && workouts[i].Date < today:
			previousWorkout = &workouts[i]
		}
		if todayWorkout != nil && previousWorkout != nil {
			break
		}
	}

	comparison := &Comparison{
		Exercise: exercise,
	}

	if todayWorkout != nil {
		comparison.TodayDate = todayWorkout.Date
		comparison.TodayTopSet, err = a.topSetOf(ctx, todayWorkout.ID, exercise)
		if err != nil {
			return nil, err
		}
	}
	if previousWorkout != nil {
		comparison.PreviousDate = previousWorkout.Date
		comparison.PreviousTopSet, err = a.topSetOf(ctx, previousWorkout.ID, exercise)
		if err != nil {
			return nil, err
		}
	}

	comparison.Rows = BuildComparisonRows(comparison.PreviousTopSet, comparison.TodayTopSet)
	comparison.NewTopSetWeightPR = isNewTopSetWeightPR(comparison.PreviousTopSet, comparison.TodayTopSet)

	return comparison, nil
}

func (a *Analyzer) topSetOf(ctx context.Context, workoutID int, exercise string) (*Set, error) {
	sets, err := a.store.Sets(ctx, workoutID)
	if err != nil {
		return nil, fmt.Errorf("workout sets: %w", err)
	}

	matching := make([]Set, 0, len(sets))
	for _, s := range sets {
		if strings.EqualFold(s.Exercise, exercise) {
			matching = append(matching, s)
		}
	}
	return TopSet(matching), nil
}

// BuildComparisonRows produces the weight / reps / volume rows. A row
// where both sides are absent is omitted entirely, not shown blank.
func BuildComparisonRows(previous, current *Set) []ComparisonRow {
	weight := func(s *Set) *float64 {
		if s == nil {
			return nil
		}
		return s.WeightKg
	}
	reps := func(s *Set) *float64 {
		if s == nil || s.Reps == nil {
			return nil
		}
		v := float64(*s.Reps)
		return &v
	}
	volume := func(s *Set) *float64 {
		if s == nil || s.WeightKg == nil || s.Reps == nil {
			return nil
		}
		v := *s.WeightKg * float64(*s.Reps)
		return &v
	}

	rows := make([]ComparisonRow, 0, 3)
	for _, row := range []struct {
		metric string
		prev   *float64
		cur    *float64
	}{
		{"weight", weight(previous), weight(current)},
		{"reps", reps(previous), reps(current)},
		{"volume", volume(previous), volume(current)},
	} {
		if row.prev == nil && row.cur == nil {
			continue
		}
		var delta *float64
		if row.prev != nil && row.cur != nil {
			d := *row.cur - *row.prev
			delta = &d
		}
		rows = append(rows, ComparisonRow{
			Metric:   row.metric,
			Previous: row.prev,
			Current:  row.cur,
			Delta:    delta,
		})
	}

	return rows
}

func isNewTopSetWeightPR(previous, current *Set) bool {
	if previous == nil || current == nil {
		return false
	}
	var prevWeight, curWeight float64
	if previous.WeightKg != nil {
		prevWeight = *previous.WeightKg
	}
	if current.WeightKg != nil {
		curWeight = *current.WeightKg
	}
	return curWeight > prevWeight
}
