package workouts

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/2beens/liftstats/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// DayStats is one point of the training-load time series: total volume
// for the day, the heaviest weight moved, and the reps recorded on the
// set that achieved it.
type DayStats struct {
	Date      string  `json:"date"`
	Volume    float64 `json:"volume"`
	TopWeight float64 `json:"topWeight"`
	Reps      int     `json:"reps"`
}

// TrendPoint is a charted point of the estimated one-rep-max trend,
// either per day or per calendar month.
type TrendPoint struct {
	Date   string `json:"date"`
	Est1RM int    `json:"est1RM"`
}

// History produces the per-day series for an exercise over the
// inclusive date range. Days come back ordered ascending; a range with
// zero matching rows yields an empty series, never an error.
//
// A null weight or null reps contributes 0 to that set's volume
// product; the set itself is not excluded. Reps come from the
// earliest-inserted set at the day's top weight.
func (a *Analyzer) History(
	ctx context.Context,
	userID int,
	exercise string,
	fromDate, toDate string,
) (_ []DayStats, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.workouts.history")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise", exercise))
	span.SetAttributes(attribute.String("from", fromDate))
	span.SetAttributes(attribute.String("to", toDate))

	sets, err := a.store.ListSets(ctx, SetParams{
		UserID:   userID,
		Exercise: exercise,
		FromDate: fromDate,
		ToDate:   toDate,
	})
	if err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}

	series := make([]DayStats, 0)
	dayIdx := make(map[string]int)

	for _, ws := range sets {
		i, ok := dayIdx[ws.WorkoutDate]
		if !ok {
			// sets arrive date-ascending, so days are appended in order
			series = append(series, DayStats{Date: ws.WorkoutDate})
			i = len(series) - 1
			dayIdx[ws.WorkoutDate] = i
		}

		var weight, reps float64
		if ws.WeightKg != nil {
			weight = *ws.WeightKg
		}
		if ws.Reps != nil {
			reps = float64(*ws.Reps)
		}
		series[i].Volume += weight * reps

		// strictly-greater keeps the earliest-inserted set on ties
		if ws.WeightKg != nil && weight > series[i].TopWeight {
			series[i].TopWeight = weight
			if ws.Reps != nil {
				series[i].Reps = *ws.Reps
			} else {
				series[i].Reps = 0
			}
		}
	}

	return series, nil
}

// EstimatedOneRepMax approximates maximal single-rep strength from a
// multi-rep set: round(weight * (1 + reps/30)).
func EstimatedOneRepMax(topWeight float64, reps int) int {
	return int(math.Round(topWeight * (1 + float64(reps)/30)))
}

// DailyTrend maps the day series to estimated-1RM chart points.
func DailyTrend(series []DayStats) []TrendPoint {
	points := make([]TrendPoint, 0, len(series))
	for _, day := range series {
		points = append(points, TrendPoint{
			Date:   day.Date,
			Est1RM: EstimatedOneRepMax(day.TopWeight, day.Reps),
		})
	}
	return points
}

// MonthlyBuckets collapses the day series to one point per calendar
// month, averaging the estimated one-rep-max across the month's days.
// Pure post-processing; charts use it for ranges over 30 days.
func MonthlyBuckets(series []DayStats) []TrendPoint {
	points := make([]TrendPoint, 0)
	var sum, count int
	var month string

	flush := func() {
		if count == 0 {
			return
		}
		points = append(points, TrendPoint{
			Date:   month + "-01",
			Est1RM: int(math.Round(float64(sum) / float64(count))),
		})
		sum, count = 0, 0
	}

	for _, day := range series {
		if len(day.Date) < 7 {
			continue
		}
		m := day.Date[:7] // YYYY-MM
		if m != month {
			flush()
			month = m
		}
		sum += EstimatedOneRepMax(day.TopWeight, day.Reps)
		count++
	}
	flush()

	return points
}

// RangeExceedsMonth reports whether the inclusive date range spans more
// than 30 days, the threshold at which charts switch to monthly buckets.
func RangeExceedsMonth(fromDate, toDate string) bool {
	from, err := time.Parse(DateLayout, fromDate)
	if err != nil {
		return false
	}
	to, err := time.Parse(DateLayout, toDate)
	if err != nil {
		return false
	}
	return to.Sub(from) > 30*24*time.Hour
}
