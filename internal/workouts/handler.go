package workouts

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/liftstats/internal/auth"
	"github.com/2beens/liftstats/internal/instrumentation"
	"github.com/2beens/liftstats/internal/telemetry/tracing"
	"github.com/2beens/liftstats/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type NewWorkoutRequest struct {
	Date string `json:"date"`
	Note string `json:"note"`
	Sets []Set  `json:"sets"`
}

type NewWorkoutResponse struct {
	Workout
	Sets []Set `json:"sets"`
}

type DeleteWorkoutResponse struct {
	DeletedID int `json:"deletedId"`
}

type ListWorkoutsResponse struct {
	Workouts []Workout `json:"workouts"`
	Total    int       `json:"total"`
}

type HistoryResponse struct {
	Exercise  string       `json:"exercise"`
	Days      []DayStats   `json:"days"`
	Trend     []TrendPoint `json:"trend"`
	Bucketing string       `json:"bucketing"`
}

type Handler struct {
	store    Store
	analyzer *Analyzer
	cache    *RecordsCache
	instr    *instrumentation.Instrumentation
	location *time.Location
}

func NewHandler(
	store Store,
	cache *RecordsCache,
	instr *instrumentation.Instrumentation,
	location *time.Location,
) *Handler {
	return &Handler{
		store:    store,
		analyzer: NewAnalyzer(store),
		cache:    cache,
		instr:    instr,
		location: location,
	}
}

func (handler *Handler) HandleNewWorkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.new")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	var req NewWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("new workout, unmarshal json params: %s", err)
		http.Error(w, "add workout failed", http.StatusBadRequest)
		return
	}

	if req.Date == "" {
		req.Date = Today(handler.location)
	}
	if !ValidDate(req.Date) {
		http.Error(w, "error, invalid date", http.StatusBadRequest)
		return
	}
	if len(req.Sets) == 0 {
		http.Error(w, "error, no sets given", http.StatusBadRequest)
		return
	}
	for _, s := range req.Sets {
		if !KnownExercise(s.Exercise) {
			http.Error(w, "error, unknown exercise: "+s.Exercise, http.StatusBadRequest)
			return
		}
		if s.Empty() {
			http.Error(w, "error, set without any measurement", http.StatusBadRequest)
			return
		}
	}

	// top sets are recomputed here, never trusted from the client
	MarkTopSets(req.Sets)

	workout := Workout{
		UserID: userID,
		Date:   req.Date,
		Note:   req.Note,
	}
	workoutID, err := handler.store.CreateWorkout(ctx, workout, req.Sets)
	if err != nil {
		log.Errorf("failed to add new workout [%s]: %s", req.Date, err)
		http.Error(w, "error, failed to add new workout", http.StatusInternalServerError)
		return
	}

	handler.cache.Clear()
	handler.instr.CounterWorkoutsCreated.Inc()

	created, err := handler.store.GetWorkout(ctx, userID, workoutID)
	if err != nil {
		log.Errorf("failed to get created workout %d: %s", workoutID, err)
		http.Error(w, "error, failed to add new workout", http.StatusInternalServerError)
		return
	}
	createdSets, err := handler.store.Sets(ctx, workoutID)
	if err != nil {
		log.Errorf("failed to get sets of created workout %d: %s", workoutID, err)
		http.Error(w, "error, failed to add new workout", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(NewWorkoutResponse{
		Workout: *created,
		Sets:    createdSets,
	})
	if err != nil {
		log.Errorf("failed to marshal new workout: %s", err)
		http.Error(w, "error, failed to add new workout", http.StatusInternalServerError)
		return
	}

	log.Debugf("new workout added: %d [%s]", workoutID, created.Date)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusCreated)
}

func (handler *Handler) HandleGetWorkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.get")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	workout, err := handler.store.GetWorkout(ctx, userID, id)
	if errors.Is(err, ErrWorkoutNotFound) {
		http.Error(w, "workout not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Errorf("failed to get workout %d: %s", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	sets, err := handler.store.Sets(ctx, id)
	if err != nil {
		log.Errorf("failed to get sets of workout %d: %s", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(WorkoutWithSets{
		Workout: *workout,
		Sets:    sets,
	})
	if err != nil {
		log.Errorf("failed to marshal workout: %s", err)
		http.Error(w, "failed to marshal workout", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}

func (handler *Handler) HandleListWorkouts(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.list")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	workouts, err := handler.store.ListWorkouts(ctx, ListParams{
		UserID:   userID,
		Exercise: r.URL.Query().Get("exercise"),
	})
	if err != nil {
		log.Errorf("list workouts error: %s", err)
		http.Error(w, "failed to get workouts", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(ListWorkoutsResponse{
		Workouts: workouts,
		Total:    len(workouts),
	})
	if err != nil {
		log.Errorf("marshal workouts error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}

func (handler *Handler) HandleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.delete")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	// delete is idempotent, a missing id is not an error
	if err := handler.store.DeleteWorkout(ctx, userID, id); err != nil {
		log.Errorf("failed to delete workout %d: %s", id, err)
		http.Error(w, "workout not deleted", http.StatusInternalServerError)
		return
	}

	handler.cache.Clear()
	handler.instr.CounterWorkoutsDeleted.Inc()

	respJson, err := json.Marshal(DeleteWorkoutResponse{
		DeletedID: id,
	})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "failed to marshal delete response", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(respJson))
}

func (handler *Handler) HandleExercises(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.exercises")
	defer span.End()

	respJson, err := json.Marshal(Catalog)
	if err != nil {
		log.Errorf("failed to marshal exercise catalog: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}

func (handler *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.record")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	exercise := mux.Vars(r)["exercise"]
	metric := Metric(r.URL.Query().Get("metric"))
	if metric == "" {
		metric = MetricWeight
	}
	direction := Direction(r.URL.Query().Get("direction"))
	if direction == "" {
		direction = DirectionMax
	}
	if !metric.Valid() || !direction.Valid() {
		http.Error(w, "error, invalid metric or direction", http.StatusBadRequest)
		return
	}

	cacheQuery := "record::" + string(metric) + "::" + string(direction)
	if cached, ok := handler.cache.Get(userID, exercise, cacheQuery); ok {
		pkg.WriteResponseBytes(w, pkg.ContentType.JSON, cached, http.StatusOK)
		return
	}

	record, err := handler.analyzer.PersonalRecord(ctx, userID, exercise, metric, direction)
	if err != nil {
		log.Errorf("failed to get record [%s] [%s]: %s", exercise, metric, err)
		http.Error(w, "failed to get record", http.StatusInternalServerError)
		return
	}
	if record == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	respJson, err := json.Marshal(record)
	if err != nil {
		log.Errorf("failed to marshal record response: %s", err)
		http.Error(w, "failed to marshal record response", http.StatusInternalServerError)
		return
	}

	handler.cache.Set(userID, exercise, cacheQuery, respJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}

func (handler *Handler) HandleMaxWeightForReps(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.max-weight-for-reps")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	exercise := mux.Vars(r)["exercise"]
	reps, err := strconv.Atoi(mux.Vars(r)["reps"])
	if err != nil {
		http.Error(w, "error, reps NaN", http.StatusBadRequest)
		return
	}

	cacheQuery := "weight-for-reps::" + strconv.Itoa(reps)
	if cached, ok := handler.cache.Get(userID, exercise, cacheQuery); ok {
		pkg.WriteResponseBytes(w, pkg.ContentType.JSON, cached, http.StatusOK)
		return
	}

	record, err := handler.analyzer.MaxWeightForReps(ctx, userID, exercise, reps)
	if err != nil {
		log.Errorf("failed to get max weight for %d reps [%s]: %s", reps, exercise, err)
		http.Error(w, "failed to get record", http.StatusInternalServerError)
		return
	}
	if record == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	respJson, err := json.Marshal(record)
	if err != nil {
		log.Errorf("failed to marshal record response: %s", err)
		http.Error(w, "failed to marshal record response", http.StatusInternalServerError)
		return
	}

	handler.cache.Set(userID, exercise, cacheQuery, respJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}

func (handler *Handler) HandleMaxRepsForWeight(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.max-reps-for-weight")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	exercise := mux.Vars(r)["exercise"]
	weight, err := strconv.ParseFloat(mux.Vars(r)["weight"], 64)
	if err != nil {
		http.Error(w, "error, weight NaN", http.StatusBadRequest)
		return
	}

	cacheQuery := "reps-for-weight::" + mux.Vars(r)["weight"]
	if cached, ok := handler.cache.Get(userID, exercise, cacheQuery); ok {
		pkg.WriteResponseBytes(w, pkg.ContentType.JSON, cached, http.StatusOK)
		return
	}

	record, err := handler.analyzer.MaxRepsForWeight(ctx, userID, exercise, weight)
	if err != nil {
		log.Errorf("failed to get max reps at %.2f kg [%s]: %s", weight, exercise, err)
		http.Error(w, "failed to get record", http.StatusInternalServerError)
		return
	}
	if record == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	respJson, err := json.Marshal(record)
	if err != nil {
		log.Errorf("failed to marshal record response: %s", err)
		http.Error(w, "failed to marshal record response", http.StatusInternalServerError)
		return
	}

	handler.cache.Set(userID, exercise, cacheQuery, respJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}

func (handler *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.history")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	exercise := mux.Vars(r)["exercise"]
	fromDate := r.URL.Query().Get("from")
	toDate := r.URL.Query().Get("to")
	if fromDate != "" && !ValidDate(fromDate) {
		http.Error(w, "error, invalid from date", http.StatusBadRequest)
		return
	}
	if toDate != "" && !ValidDate(toDate) {
		http.Error(w, "error, invalid to date", http.StatusBadRequest)
		return
	}

	days, err := handler.analyzer.History(ctx, userID, exercise, fromDate, toDate)
	if err != nil {
		log.Errorf("failed to get history [%s]: %s", exercise, err)
		http.Error(w, "failed to get history", http.StatusInternalServerError)
		return
	}

	bucketing := "daily"
	trend := DailyTrend(days)
	if r.URL.Query().Get("buckets") == "monthly" || RangeExceedsMonth(fromDate, toDate) {
		bucketing = "monthly"
		trend = MonthlyBuckets(days)
	}

	respJson, err := json.Marshal(HistoryResponse{
		Exercise:  exercise,
		Days:      days,
		Trend:     trend,
		Bucketing: bucketing,
	})
	if err != nil {
		log.Errorf("failed to marshal history response: %s", err)
		http.Error(w, "failed to marshal history response", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}

func (handler *Handler) HandleComparison(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.comparison")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	exercise := mux.Vars(r)["exercise"]
	comparison, err := handler.analyzer.Compare(ctx, userID, exercise, Today(handler.location))
	if err != nil {
		log.Errorf("failed to get comparison [%s]: %s", exercise, err)
		http.Error(w, "failed to get comparison", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(comparison)
	if err != nil {
		log.Errorf("failed to marshal comparison response: %s", err)
		http.Error(w, "failed to marshal comparison response", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}

// HandleWipe drops all workouts and sets and resets the id sequences.
// The route is registered in development only.
func (handler *Handler) HandleWipe(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.wipe")
	defer span.End()

	if err := handler.store.TruncateAll(ctx); err != nil {
		log.Errorf("failed to wipe workouts: %s", err)
		http.Error(w, "wipe failed", http.StatusInternalServerError)
		return
	}

	handler.cache.Clear()

	log.Warnln("all workouts and sets wiped")
	pkg.WriteJSONResponseOK(w, `{"wiped":true}`)
}
