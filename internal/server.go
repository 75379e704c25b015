package internal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/liftstats/internal/auth"
	"github.com/2beens/liftstats/internal/config"
	"github.com/2beens/liftstats/internal/db"
	"github.com/2beens/liftstats/internal/instrumentation"
	"github.com/2beens/liftstats/internal/middleware"
	"github.com/2beens/liftstats/internal/telemetry/tracing"
	"github.com/2beens/liftstats/internal/workouts"
	"github.com/2beens/liftstats/pkg"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/multierr"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config   *config.Config
	location *time.Location

	dbPool   *pgxpool.Pool // hosted store, nil when running on sqlite
	sqliteDB *sql.DB       // embedded store, nil when running on postgres
	store    workouts.Store

	recordsCache *workouts.RecordsCache

	redisClient *redis.Client
	authService *auth.Service

	// telemetry
	instr        *instrumentation.Instrumentation
	promRegistry *prometheus.Registry
	otelShutdown func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	RedisPassword           string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config

	location, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", cfg.TimeZone, err)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	instr := instrumentation.NewInstrumentationWithRegisterer("liftstats", "backend", promRegistry)
	instr.GaugeLifeSignal.Set(0) // will be set to 1 when all is set and ran

	s := &Server{
		config:       cfg,
		location:     location,
		versionInfo:  params.VersionInfo,
		recordsCache: workouts.NewRecordsCache(cfg.RecordsCacheMegabytes),
		instr:        instr,
		promRegistry: promRegistry,
	}

	var usersRepo interface {
		CreateUser(ctx context.Context, email, passwordHash string) (*auth.User, error)
		GetUserByEmail(ctx context.Context, email string) (*auth.User, error)
	}

	switch cfg.StorageDriver {
	case "sqlite":
		sqliteDB, err := workouts.OpenLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		s.sqliteDB = sqliteDB
		s.store = workouts.NewLiteStore(sqliteDB)
		usersRepo = auth.NewLiteUsersRepo(sqliteDB)
		log.Debugf("using embedded sqlite store: %s", cfg.SQLitePath)
	case "postgres":
		poolParams := db.NewDBPoolParams{
			DBHost:         cfg.PostgresHost,
			DBPort:         cfg.PostgresPort,
			DBName:         cfg.PostgresDBName,
			TracingEnabled: params.HoneycombTracingEnabled,
		}

		if err := db.Migrate(poolParams.ConnString()); err != nil {
			return nil, fmt.Errorf("migrate db: %w", err)
		}

		dbPool, err := db.NewDBPool(ctx, poolParams)
		if err != nil {
			return nil, fmt.Errorf("new db pool: %w", err)
		}
		if err := dbPool.Ping(ctx); err != nil {
			log.Warnf("failed to ping db: %s", err)
		}

		promRegistry.MustRegister(pgxpoolprometheus.NewCollector(
			dbPool,
			map[string]string{"db_name": cfg.PostgresDBName},
		))

		s.dbPool = dbPool
		s.store = workouts.NewRepo(dbPool)
		usersRepo = auth.NewUsersRepo(dbPool)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.StorageDriver)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})
	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	s.redisClient = rdb
	s.authService = auth.NewService(usersRepo, rdb, auth.DefaultTTL)

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "liftstats-backend")
	if err != nil {
		return nil, err
	}
	s.otelShutdown = otelShutdown

	return s, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	r.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		pkg.WriteTextResponseOK(w, "I'm OK, thanks ;)")
	}).Methods("GET", "OPTIONS").Name("root")
	r.HandleFunc("/version", func(w http.ResponseWriter, _ *http.Request) {
		pkg.WriteTextResponseOK(w, s.versionInfo)
	}).Methods("GET").Name("version")

	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)
	authHandler := auth.NewHandler(s.authService, s.instr)
	authSubrouter := r.PathPrefix("/auth").Subrouter()
	authSubrouter.HandleFunc("/signup", authHandler.HandleSignup).Methods("POST", "OPTIONS").Name("signup")
	authSubrouter.HandleFunc("/login", authHandler.HandleLogin).Methods("POST", "OPTIONS").Name("login")
	authSubrouter.HandleFunc("/logout", authHandler.HandleLogout).Methods("POST", "OPTIONS").Name("logout")
	// rate limit the auth endpoints to prevent credential abuse
	authSubrouter.Use(middleware.RateLimit(reqRateLimiter, "auth", s.config.LoginRateLimitAllowedPerMin))

	workoutsHandler := workouts.NewHandler(s.store, s.recordsCache, s.instr, s.location)
	r.HandleFunc("/exercises", workoutsHandler.HandleExercises).Methods("GET", "OPTIONS").Name("list-exercises")
	r.HandleFunc("/workouts", workoutsHandler.HandleNewWorkout).Methods("POST", "OPTIONS").Name("new-workout")
	r.HandleFunc("/workouts", workoutsHandler.HandleListWorkouts).Methods("GET", "OPTIONS").Name("list-workouts")
	r.HandleFunc("/workouts/{id}", workoutsHandler.HandleGetWorkout).Methods("GET", "OPTIONS").Name("get-workout")
	r.HandleFunc("/workouts/{id}", workoutsHandler.HandleDeleteWorkout).Methods("DELETE", "OPTIONS").Name("delete-workout")
	r.HandleFunc("/records/{exercise}", workoutsHandler.HandleRecord).Methods("GET", "OPTIONS").Name("get-record")
	r.HandleFunc("/records/{exercise}/weight-for-reps/{reps}", workoutsHandler.HandleMaxWeightForReps).Methods("GET", "OPTIONS").Name("get-record-weight-for-reps")
	r.HandleFunc("/records/{exercise}/reps-for-weight/{weight}", workoutsHandler.HandleMaxRepsForWeight).Methods("GET", "OPTIONS").Name("get-record-reps-for-weight")
	r.HandleFunc("/history/{exercise}", workoutsHandler.HandleHistory).Methods("GET", "OPTIONS").Name("get-history")
	r.HandleFunc("/comparison/{exercise}", workoutsHandler.HandleComparison).Methods("GET", "OPTIONS").Name("get-comparison")

	if s.config.IsDevelopment() {
		r.HandleFunc("/dev/wipe", workoutsHandler.HandleWipe).Methods("POST", "OPTIONS").Name("dev-wipe")
	}

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.authService)

	r.Use(middleware.PanicRecovery(s.instr))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.instr))
	r.Use(middleware.Cors())
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) Serve(host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      otelhttp.NewHandler(router, "liftstats-backend"),
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.instr.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() error {
	log.Debug("graceful shutdown initiated ...")

	s.instr.GaugeLifeSignal.Set(0)

	var shutdownErr error

	if s.otelShutdown != nil {
		s.otelShutdown()
		log.Trace("otel shut down ...")
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
			shutdownErr = multierr.Append(shutdownErr, err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if s.sqliteDB != nil {
		if err := s.sqliteDB.Close(); err != nil {
			log.Errorf("failed to close sqlite db: %s", err)
			shutdownErr = multierr.Append(shutdownErr, err)
		}
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown http server")
		shutdownErr = multierr.Append(shutdownErr, err)
	}
	log.Warnln("server shut down")

	if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown metrics http server")
		shutdownErr = multierr.Append(shutdownErr, err)
	}
	log.Warnln("metrics server shut down")

	return shutdownErr
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.instr.GaugeRequests.Add(1)
	case http.StateClosed:
		s.instr.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
