package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/michaelsproul/website/internal/config"
	"github.com/michaelsproul/website/internal/db"
	"github.com/michaelsproul/website/internal/sessions"
	"github.com/michaelsproul/website/internal/store"
	"github.com/michaelsproul/website/internal/telemetry/metrics"
	"github.com/michaelsproul/website/internal/times"
	"github.com/michaelsproul/website/internal/users"
)

const (
	sessionSweepInterval = 30 * time.Minute
	lifeSignalInterval   = time.Minute
)

// Server owns the long-lived pieces of the serving process: the data
// store gateway, the user and timesheet services, the in-memory session
// table and the telemetry plumbing. The HTTP surface on top of it lives
// elsewhere, the server only hands out its services and runs their
// housekeeping.
type Server struct {
	config   *config.Config
	store    store.DataStore
	users    *users.Service
	times    *times.Service
	sessions *sessions.Manager
	metrics  *metrics.Manager

	metricsHttpServer *http.Server
	done              chan struct{}
}

func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	dataStore, err := NewDataStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	registry := metrics.NewRegistry()
	metricsManager := metrics.NewManager("website", "backend", registry)

	var metricsHttpServer *http.Server
	if cfg.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsHttpServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
			Handler: mux,
		}
	}

	sessionTTL := time.Duration(cfg.SessionTTLHours) * time.Hour

	return &Server{
		config:            cfg,
		store:             dataStore,
		users:             users.NewService(dataStore),
		times:             times.NewService(dataStore),
		sessions:          sessions.NewManager(sessionTTL),
		metrics:           metricsManager,
		metricsHttpServer: metricsHttpServer,
		done:              make(chan struct{}),
	}, nil
}

// NewDataStore builds the backend named by the config. The call sites
// only ever see the DataStore interface, switching engines is a config
// change.
func NewDataStore(ctx context.Context, cfg *config.Config) (store.DataStore, error) {
	switch cfg.StoreBackend {
	case "", "memory":
		log.Warnln("using in-memory store, data will not survive a restart")
		return store.NewMemStore(
			store.WithUniqueIndex(users.Collection, "name"),
			store.WithUniqueIndex(users.Collection, "uuid"),
		), nil
	case "mongo":
		mongoDB, err := db.NewMongoDatabase(ctx, db.NewMongoParams{
			URL:      cfg.MongoURL,
			Database: cfg.MongoDatabase,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to mongo: %w", err)
		}
		mongoStore := store.NewMongoStore(mongoDB)
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return mongoStore, nil
	case "postgres":
		dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
			DBHost:         cfg.DBHost,
			DBPort:         cfg.DBPort,
			DBName:         cfg.DBName,
			DBUser:         cfg.DBUser,
			DBPassword:     os.Getenv("WEBSITE_DB_PASSWORD"),
			TracingEnabled: cfg.TracingEnabled,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		return store.NewPostgresStore(dbPool), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.StoreBackend)
	}
}

func (s *Server) Users() *users.Service       { return s.users }
func (s *Server) Times() *times.Service       { return s.times }
func (s *Server) Sessions() *sessions.Manager { return s.sessions }
func (s *Server) Store() store.DataStore      { return s.store }

// Serve starts the housekeeping goroutines and, when configured, the
// metrics endpoint. It returns immediately, the caller decides when to
// shut down.
func (s *Server) Serve() {
	go s.housekeeping()

	if s.metricsHttpServer != nil {
		go func() {
			log.Infof("metrics server listening on %s", s.metricsHttpServer.Addr)
			if err := s.metricsHttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("metrics server: %s", err)
			}
		}()
	}
}

func (s *Server) housekeeping() {
	sweep := time.NewTicker(sessionSweepInterval)
	defer sweep.Stop()
	lifeSignal := time.NewTicker(lifeSignalInterval)
	defer lifeSignal.Stop()

	for {
		select {
		case <-sweep.C:
			s.sessions.ScanAndClean()
			s.metrics.GaugeActiveSessions.Set(float64(s.sessions.Count()))
		case <-lifeSignal.C:
			s.metrics.GaugeLifeSignal.Inc()
		case <-s.done:
			return
		}
	}
}

func (s *Server) GracefulShutdown() {
	log.Debugln("graceful shutdown initiated ...")

	close(s.done)

	if s.metricsHttpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Errorf("shutdown metrics server: %s", err)
		}
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.store.Close(closeCtx); err != nil {
		log.Errorf("close data store: %s", err)
	}

	sentry.Flush(2 * time.Second)

	log.Debugln("graceful shutdown done")
}
