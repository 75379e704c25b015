package workouts

import (
	"strings"
	"time"
)

// DateLayout is the fixed calendar-day format used across the whole
// service. Comparisons on it are string-lexicographic, which is valid
// because the format is fixed-width and zero-padded.
const DateLayout = "2006-01-02"

type Workout struct {
	ID        int       `json:"id"`
	UserID    int       `json:"-"`
	Date      string    `json:"date"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Set struct {
	ID        int      `json:"id"`
	WorkoutID int      `json:"workout_id"`
	Exercise  string   `json:"exercise"`
	WeightKg  *float64 `json:"weight_kg"`
	Reps      *int     `json:"reps"`
	Distance  *float64 `json:"distance,omitempty"`
	Seconds   *float64 `json:"seconds,omitempty"`
	IsTopSet  bool     `json:"is_top_set"`
}

// Empty reports whether the set carries no information at all;
// such sets are pointless for logging and get rejected on save.
func (s Set) Empty() bool {
	return s.WeightKg == nil && s.Reps == nil && s.Distance == nil && s.Seconds == nil
}

// WorkoutSet is a set joined with its parent workout date,
// the shape all record / history queries work on.
type WorkoutSet struct {
	Set
	WorkoutDate string `json:"workout_date"`
}

type WorkoutWithSets struct {
	Workout
	Sets []Set `json:"sets"`
}

// Catalog is the closed list of exercises; not user-editable at runtime.
var Catalog = []string{
	// upper body
	"Bench Press",
	"Incline Bench Press",
	"Overhead Press",
	"Pull-Up",
	"Bent-Over Row",
	"Biceps Curl",
	"Triceps Dip",

	// lower body
	"Squat",
	"Front Squat",
	"Deadlift",
	"Romanian Deadlift",
	"Lunge",

	// core & full-body
	"Plank",
	"Burpee",
	"Kettlebell Swing",
}

// KnownExercise matches against the catalog, case-insensitively.
func KnownExercise(name string) bool {
	for _, ex := range Catalog {
		if strings.EqualFold(ex, name) {
			return true
		}
	}
	return false
}

// ValidDate checks the YYYY-MM-DD form.
func ValidDate(date string) bool {
	_, err := time.Parse(DateLayout, date)
	return err == nil
}

// Today returns the current calendar day in the given zone. All
// "today vs previous" logic must go through this, never through
// server-local time.
func Today(loc *time.Location) string {
	return time.Now().In(loc).Format(DateLayout)
}

// LoadScore is the estimated-load heuristic used to pick the dominant
// set of a workout: weight * (1 + reps/30), with missing values as 0.
func LoadScore(s Set) float64 {
	var weight, reps float64
	if s.WeightKg != nil {
		weight = *s.WeightKg
	}
	if s.Reps != nil {
		reps = float64(*s.Reps)
	}
	return weight * (1 + reps/30)
}

// TopSet picks the set with the highest load score. A missing set
// scores -inf, so a workout with zero qualifying sets never out-ranks
// a real one. Ties keep the earlier set.
func TopSet(sets []Set) *Set {
	var top *Set
	for i := range sets {
		if top == nil || LoadScore(sets[i]) > LoadScore(*top) {
			top = &sets[i]
		}
	}
	return top
}

// MarkTopSets recomputes the is_top_set flag per exercise. The flag
// sent by clients is a denormalized hint, never trusted.
func MarkTopSets(sets []Set) {
	topPerExercise := make(map[string]int)
	for i := range sets {
		sets[i].IsTopSet = false
		key := strings.ToLower(sets[i].Exercise)
		topIdx, ok := topPerExercise[key]
		if !ok || LoadScore(sets[i]) > LoadScore(sets[topIdx]) {
			topPerExercise[key] = i
		}
	}
	for _, i := range topPerExercise {
		sets[i].IsTopSet = true
	}
}
