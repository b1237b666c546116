package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/michaellevy/lift-tracker/internal/auth"
	"github.com/michaellevy/lift-tracker/internal/catalog"
	"github.com/michaellevy/lift-tracker/internal/config"
	"github.com/michaellevy/lift-tracker/internal/db"
	"github.com/michaellevy/lift-tracker/internal/logbook/autofill"
	"github.com/michaellevy/lift-tracker/internal/logbook/entries"
	"github.com/michaellevy/lift-tracker/internal/logbook/overview"
	"github.com/michaellevy/lift-tracker/internal/logbook/rotation"
	"github.com/michaellevy/lift-tracker/internal/logbook/syncstore"
	"github.com/michaellevy/lift-tracker/internal/middleware"
	"github.com/michaellevy/lift-tracker/internal/misc"
	"github.com/michaellevy/lift-tracker/internal/telemetry/metrics"
	"github.com/michaellevy/lift-tracker/internal/telemetry/tracing"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config   *config.Config
	dbPool   *pgxpool.Pool
	catalog  *catalog.Catalog
	location *time.Location

	syncStore *syncstore.Store

	redisClient  *redis.Client
	loginChecker *auth.LoginChecker
	authService  *auth.Service

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
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
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         params.Config.PostgresHost,
		DBPort:         params.Config.PostgresPort,
		DBName:         params.Config.PostgresDBName,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		// the sync store rides out db outages, no reason to bail here
		log.Warnf("failed to ping db: %s", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": params.Config.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("lifttracker", "service", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(params.Config.RedisHost, params.Config.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	authService := auth.NewService(auth.NewUsersRepo(dbPool), auth.DefaultTTL, rdb)
	go func() {
		for range time.Tick(time.Hour * 8) {
			authService.ScanAndClean(ctx)
		}
	}()

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "lift-tracker-backend", rdb)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Load(params.Config.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	log.Debugf("catalog loaded: %d exercises, %d sessions", len(cat.Exercises), cat.Len())

	location := time.Local
	if params.Config.Timezone != "" {
		location, err = time.LoadLocation(params.Config.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %s: %w", params.Config.Timezone, err)
		}
	}

	return &Server{
		config:      params.Config,
		dbPool:      dbPool,
		catalog:     cat,
		location:    location,
		versionInfo: params.VersionInfo,

		syncStore: syncstore.New(entries.NewRepo(dbPool), metricsManager),

		redisClient:  rdb,
		authService:  authService,
		loginChecker: auth.NewLoginChecker(auth.DefaultTTL, rdb),

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("lift-tracker-router"))

	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)
	miscHandler := misc.NewHandler(s.versionInfo, s.authService)
	miscHandler.SetupRoutes(r, reqRateLimiter, s.metricsManager, s.config.LoginRateLimitAllowedPerMin)

	entriesHandler := entries.NewHandler(s.syncStore, s.metricsManager)
	r.HandleFunc("/logbook/entries", entriesHandler.HandleAdd).Methods("POST", "OPTIONS").Name("new-entry")
	r.HandleFunc("/logbook/entries/recent", entriesHandler.HandleRecent).Methods("GET", "OPTIONS").Name("recent-entries")
	r.HandleFunc("/logbook/entries/range", entriesHandler.HandleRange).Methods("GET", "OPTIONS").Name("entries-range")
	r.HandleFunc("/logbook/entries/{id}", entriesHandler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-entry")

	rotator := rotation.New(s.syncStore, s.catalog, s.location)
	overviewService := overview.NewService(s.syncStore, rotator, s.catalog, s.location)
	autofillEngine := autofill.New(s.syncStore)
	overviewHandler := overview.NewHandler(overviewService, autofillEngine, s.catalog, s.syncStore, s.location)
	r.HandleFunc("/logbook/catalog", overviewHandler.HandleCatalog).Methods("GET", "OPTIONS").Name("catalog")
	r.HandleFunc("/logbook/overview", overviewHandler.HandleOverview).Methods("GET", "OPTIONS").Name("overview")
	r.HandleFunc("/logbook/sessions/recent", overviewHandler.HandleRecentSessions).Methods("GET", "OPTIONS").Name("recent-sessions")
	r.HandleFunc("/logbook/sessions/{sid}/slots/{idx}/autofill", overviewHandler.HandleAutofill).Methods("GET", "OPTIONS").Name("slot-autofill")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	r.Use(middleware.AuthMiddleware(s.loginChecker))
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) Serve(host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
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
			log.Fatalf("lifts service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.syncStore != nil {
		s.syncStore.Close()
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown http server")
	}
	log.Warnln("server shut down")

	if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown metrics http server")
	}
	log.Warnln("metrics server shut down")
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
