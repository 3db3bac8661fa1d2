// Package app wires configuration, storage and services into one graph shared
// by the server and the operator CLI.
package app

import (
	"alcyxob/coaching-programmes/internal/api"
	"alcyxob/coaching-programmes/internal/config"
	"alcyxob/coaching-programmes/internal/jobs"
	"alcyxob/coaching-programmes/internal/platform/logger"
	"alcyxob/coaching-programmes/internal/repository"
	"alcyxob/coaching-programmes/internal/repository/mongo"
	"alcyxob/coaching-programmes/internal/service"
	"alcyxob/coaching-programmes/internal/sessions"
	"alcyxob/coaching-programmes/internal/storage"
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	driver "go.mongodb.org/mongo-driver/mongo"
)

// App is the wired service graph.
type App struct {
	Config   config.Config
	Log      *logger.Logger
	Services api.Services
	Sweeper  service.Sweeper
	EventLog repository.EventRepository
	Archive  storage.ArchiveStore // nil unless archiving is enabled
	Locker   jobs.Locker
	Registry *prometheus.Registry

	db    *driver.Client
	redis goredis.UniversalClient
}

// New connects to MongoDB (and Redis/S3 when configured) and builds every service.
func New(ctx context.Context, cfg config.Config, log *logger.Logger) (*App, error) {
	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	appDB := dbClient.Database(cfg.Database.Name)
	log.Info("Database connection established", "database", cfg.Database.Name)

	// --- Ensure Indexes ---
	indexCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := mongo.EnsureIndexes(indexCtx, appDB); err != nil {
		_ = mongo.DisconnectDB(dbClient)
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	a := &App{Config: cfg, Log: log, db: dbClient, Locker: jobs.NoopLocker{}}

	// --- Initialize Storage ---
	var archive service.ArchiveWriter
	if cfg.Archive.Enabled {
		store, err := storage.NewS3Storage(ctx, cfg.S3, log)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init archive storage: %w", err)
		}
		a.Archive = store
		archive = store
	}

	// --- Sweep Lease ---
	if cfg.Redis.Addr != "" {
		a.redis = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		a.Locker = jobs.NewRedisLocker(a.redis, "")
	}

	// --- Initialize Repositories ---
	tx := mongo.NewTransactor(dbClient)
	userRepo := mongo.NewMongoUserRepository(appDB)
	exerciseRepo := mongo.NewMongoExerciseRepository(appDB)
	blueprintRepo := mongo.NewMongoBlueprintRepository(appDB)
	versionRepo := mongo.NewMongoVersionRepository(appDB)
	entryRepo := mongo.NewMongoEntryRepository(appDB)
	assignmentRepo := mongo.NewMongoAssignmentRepository(appDB)
	sessionRepo := mongo.NewMongoSessionRepository(appDB)
	eventRepo := mongo.NewMongoEventRepository(appDB)

	// --- Initialize Services ---
	exercises := service.NewExerciseService(exerciseRepo)
	deriver := sessions.NewDeriver()
	recorder := service.NewEventRecorder(eventRepo, log)
	materializer := service.NewSessionMaterializer(entryRepo, sessionRepo, exercises, deriver)
	a.Sweeper = service.NewSweeper(assignmentRepo, eventRepo, recorder, archive, service.SweeperConfig{
		PendingExpiry:     cfg.Negotiation.PendingExpiry,
		RejectedRetention: cfg.Sweep.RejectedRetention,
		ArchivePrefix:     cfg.Archive.Prefix,
	}, log)

	assignments := service.NewAssignmentService(service.AssignmentDeps{
		Tx:            tx,
		Assignments:   assignmentRepo,
		Versions:      versionRepo,
		Blueprints:    blueprintRepo,
		Events:        eventRepo,
		Relationships: service.NewUserRelationshipVerifier(userRepo),
		Materializer:  materializer,
		Recorder:      recorder,
		Sweeper:       a.Sweeper,
		SweepOnRead:   cfg.Sweep.OnRead,
		Log:           log,
	})
	a.EventLog = eventRepo
	a.Services = api.Services{
		Exercises:   exercises,
		Programmes:  service.NewProgrammeService(tx, blueprintRepo, versionRepo, entryRepo, log),
		Sets:        service.NewExerciseSetService(tx, blueprintRepo, versionRepo, entryRepo, exercises, deriver, log),
		Assignments: assignments,
		Negotiation: service.NewNegotiationService(tx, assignmentRepo, versionRepo, materializer, recorder, log),
	}

	// --- Metrics ---
	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return a, nil
}

// SweepJob builds the periodic sweep job, registering its metrics.
func (a *App) SweepJob() *jobs.SweepJob {
	return jobs.NewSweepJob(a.Sweeper, a.Locker, jobs.NewMetrics(a.Registry), jobs.SweepJobConfig{
		Interval: a.Config.Sweep.Interval,
		LeaseTTL: a.Config.Sweep.LeaseTTL,
	}, a.Log)
}

// Close releases the database and redis connections.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Log.Warn("Failed to close redis", "error", err)
		}
	}
	if a.db != nil {
		if err := mongo.DisconnectDB(a.db); err != nil {
			a.Log.Error("Failed to disconnect MongoDB", "error", err)
		}
	}
}
