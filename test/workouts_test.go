package test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/2beens/liftstats/internal/workouts"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func (s *IntegrationTestSuite) createWorkout(
	ctx context.Context,
	t *testing.T,
	token string,
	req workouts.NewWorkoutRequest,
) workouts.NewWorkoutResponse {
	t.Helper()
	resp := s.doRequest(ctx, t, "POST", "/workouts", token, req)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeBody[workouts.NewWorkoutResponse](t, resp)
}

func (s *IntegrationTestSuite) TestWorkouts() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token := s.signupAndLogin(ctx, t, gofakeit.Email(), "super-secret-pass")
	s.wipeData(ctx, t, token)

	today := time.Now().UTC().Format("2006-01-02")

	t.Run("exercise catalog is public", func(t *testing.T) {
		resp := s.doRequest(ctx, t, "GET", "/exercises", "", nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		catalog := decodeBody[[]string](t, resp)
		assert.Contains(t, catalog, "Squat")
		assert.Contains(t, catalog, "Bench Press")
	})

	var firstWorkoutID int
	t.Run("log and fetch a workout", func(t *testing.T) {
		created := s.createWorkout(ctx, t, token, workouts.NewWorkoutRequest{
			Date: "2026-08-10",
			Note: gofakeit.Sentence(5),
			Sets: []workouts.Set{
				{Exercise: "Squat", WeightKg: fptr(100), Reps: iptr(5)},
				{Exercise: "Squat", WeightKg: fptr(110), Reps: iptr(3)},
				{Exercise: "Bench Press", WeightKg: fptr(80), Reps: iptr(5)},
			},
		})
		firstWorkoutID = created.ID
		require.Positive(t, firstWorkoutID)
		require.Len(t, created.Sets, 3)

		resp := s.doRequest(ctx, t, "GET", fmt.Sprintf("/workouts/%d", created.ID), token, nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		workout := decodeBody[workouts.WorkoutWithSets](t, resp)
		assert.Equal(t, "2026-08-10", workout.Date)
		require.Len(t, workout.Sets, 3)

		// the 110x3 squat carries more load than the 100x5 one
		assert.False(t, workout.Sets[0].IsTopSet)
		assert.True(t, workout.Sets[1].IsTopSet)
		assert.True(t, workout.Sets[2].IsTopSet, "only bench set is the bench top set")
	})

	t.Run("workout of another user is invisible", func(t *testing.T) {
		otherToken := s.signupAndLogin(ctx, t, gofakeit.Email(), "other-secret-pass")
		resp := s.doRequest(ctx, t, "GET", fmt.Sprintf("/workouts/%d", firstWorkoutID), otherToken, nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("reject nonsense workouts", func(t *testing.T) {
		for name, req := range map[string]workouts.NewWorkoutRequest{
			"bad date": {
				Date: "10.08.2026",
				Sets: []workouts.Set{{Exercise: "Squat", WeightKg: fptr(100), Reps: iptr(5)}},
			},
			"no sets": {
				Date: "2026-08-10",
			},
			"unknown exercise": {
				Date: "2026-08-10",
				Sets: []workouts.Set{{Exercise: "Wand Waving", WeightKg: fptr(100), Reps: iptr(5)}},
			},
			"empty set": {
				Date: "2026-08-10",
				Sets: []workouts.Set{{Exercise: "Squat"}},
			},
		} {
			t.Run(name, func(t *testing.T) {
				resp := s.doRequest(ctx, t, "POST", "/workouts", token, req)
				defer resp.Body.Close()
				assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			})
		}
	})

	t.Run("list workouts", func(t *testing.T) {
		s.createWorkout(ctx, t, token, workouts.NewWorkoutRequest{
			Date: "2026-08-12",
			Sets: []workouts.Set{
				{Exercise: "Deadlift", WeightKg: fptr(140), Reps: iptr(3)},
			},
		})

		resp := s.doRequest(ctx, t, "GET", "/workouts", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		list := decodeBody[workouts.ListWorkoutsResponse](t, resp)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, 2, list.Total)
		// newest first
		assert.Equal(t, "2026-08-12", list.Workouts[0].Date)

		resp = s.doRequest(ctx, t, "GET", "/workouts?exercise=deadlift", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		list = decodeBody[workouts.ListWorkoutsResponse](t, resp)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, 1, list.Total)
	})

	t.Run("personal records", func(t *testing.T) {
		resp := s.doRequest(ctx, t, "GET", "/records/squat", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		record := decodeBody[workouts.PersonalRecord](t, resp)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, float64(110), record.Value)
		assert.Equal(t, "2026-08-10", record.Date)

		resp = s.doRequest(ctx, t, "GET", "/records/squat?metric=reps", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		record = decodeBody[workouts.PersonalRecord](t, resp)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, float64(5), record.Value)

		resp = s.doRequest(ctx, t, "GET", "/records/squat/weight-for-reps/5", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		record = decodeBody[workouts.PersonalRecord](t, resp)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, float64(100), record.Value)

		resp = s.doRequest(ctx, t, "GET", "/records/squat/reps-for-weight/110", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		record = decodeBody[workouts.PersonalRecord](t, resp)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, float64(3), record.Value)

		// nothing logged for lunges yet
		resp = s.doRequest(ctx, t, "GET", "/records/lunge", token, nil)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = s.doRequest(ctx, t, "GET", "/records/squat?metric=nonsense", token, nil)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("history", func(t *testing.T) {
		resp := s.doRequest(ctx, t, "GET", "/history/squat", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		history := decodeBody[workouts.HistoryResponse](t, resp)
		require.NoError(t, resp.Body.Close())

		assert.Equal(t, "squat", history.Exercise)
		require.Len(t, history.Days, 1)
		assert.Equal(t, "2026-08-10", history.Days[0].Date)
		// 100*5 + 110*3 = 830
		assert.Equal(t, float64(830), history.Days[0].Volume)
		assert.Equal(t, float64(110), history.Days[0].TopWeight)
		assert.Equal(t, "daily", history.Bucketing)
		require.Len(t, history.Trend, 1)
		// 110 * (1 + 3/30) = 121
		assert.Equal(t, 121, history.Trend[0].Est1RM)

		resp = s.doRequest(ctx, t, "GET", "/history/squat?buckets=monthly", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		history = decodeBody[workouts.HistoryResponse](t, resp)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, "monthly", history.Bucketing)
		require.Len(t, history.Trend, 1)
		assert.Equal(t, "2026-08-01", history.Trend[0].Date)

		resp = s.doRequest(ctx, t, "GET", "/history/squat?from=bad-date", token, nil)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("comparison against the previous session", func(t *testing.T) {
		s.createWorkout(ctx, t, token, workouts.NewWorkoutRequest{
			Date: today,
			Sets: []workouts.Set{
				{Exercise: "Squat", WeightKg: fptr(115), Reps: iptr(3)},
			},
		})

		resp := s.doRequest(ctx, t, "GET", "/comparison/squat", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		comparison := decodeBody[workouts.Comparison](t, resp)
		require.NoError(t, resp.Body.Close())

		assert.Equal(t, today, comparison.TodayDate)
		assert.Equal(t, "2026-08-10", comparison.PreviousDate)
		require.NotNil(t, comparison.TodayTopSet)
		assert.Equal(t, float64(115), *comparison.TodayTopSet.WeightKg)
		assert.True(t, comparison.NewTopSetWeightPR)
		require.Len(t, comparison.Rows, 3)
	})

	t.Run("delete workout is idempotent", func(t *testing.T) {
		resp := s.doRequest(ctx, t, "DELETE", fmt.Sprintf("/workouts/%d", firstWorkoutID), token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		deleted := decodeBody[workouts.DeleteWorkoutResponse](t, resp)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, firstWorkoutID, deleted.DeletedID)

		// gone, but deleting again is still fine
		resp = s.doRequest(ctx, t, "DELETE", fmt.Sprintf("/workouts/%d", firstWorkoutID), token, nil)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp = s.doRequest(ctx, t, "GET", fmt.Sprintf("/workouts/%d", firstWorkoutID), token, nil)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
