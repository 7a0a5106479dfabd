// Package main - точка входа HTTP-сервиса Taskmaster.
//
// Сервис ведёт реестр студентов группы и их посещаемость:
// - Domain: реестр, журнал посещаемости и правила идентичности
// - Application: команды и запросы над живым реестром (roster.Holder)
// - Infrastructure: PostgreSQL или память, Redis-кеш и шина событий, метрики
// - Interface: JSON API поверх net/http
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alem-hub/taskmaster/config"
	"github.com/alem-hub/taskmaster/internal/application/command"
	"github.com/alem-hub/taskmaster/internal/application/eventhandler"
	"github.com/alem-hub/taskmaster/internal/application/query"
	"github.com/alem-hub/taskmaster/internal/application/roster"
	"github.com/alem-hub/taskmaster/internal/domain/shared"
	"github.com/alem-hub/taskmaster/internal/domain/taskmaster"
	"github.com/alem-hub/taskmaster/internal/infrastructure/messaging"
	"github.com/alem-hub/taskmaster/internal/infrastructure/metrics"
	"github.com/alem-hub/taskmaster/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/taskmaster/internal/infrastructure/persistence/postgres"
	"github.com/alem-hub/taskmaster/internal/infrastructure/persistence/redis"
	"github.com/alem-hub/taskmaster/internal/infrastructure/scheduler"
	"github.com/alem-hub/taskmaster/internal/infrastructure/scheduler/jobs"
	httpserver "github.com/alem-hub/taskmaster/internal/interface/http"
	"github.com/alem-hub/taskmaster/internal/interface/http/handlers"
	"github.com/alem-hub/taskmaster/pkg/logger"
	"github.com/alem-hub/taskmaster/pkg/retry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

// closer is released in reverse order on shutdown.
type closer struct {
	name string
	fn   func() error
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. КОНФИГУРАЦИЯ И ЛОГИРОВАНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.Observability.LogCaller,
	}).With(
		logger.String("app", cfg.App.Name),
		logger.String("version", cfg.App.Version),
	)
	slogger := log.Slog()
	slog.SetDefault(slogger)

	log.Info("starting taskmaster",
		logger.String("env", string(cfg.App.Environment)),
		logger.Bool("debug", cfg.App.Debug),
	)

	var closers []closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].fn(); err != nil {
				log.Warn("close failed", logger.String("resource", closers[i].name), logger.Err(err))
			}
		}
	}()

	var m *metrics.Metrics
	if cfg.Observability.MetricsEnabled {
		m = metrics.New()
	}

	health := handlers.NewHealth(cfg.App.Version)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. ХРАНИЛИЩЕ
	// ─────────────────────────────────────────────────────────────────────────
	var (
		repo   taskmaster.Repository
		pgRepo *postgres.RosterRepository
	)

	if cfg.Database.URL != "" {
		conn, err := connectDatabase(ctx, cfg.Database, log)
		if err != nil {
			return err
		}
		closers = append(closers, closer{"postgres", func() error { conn.Close(); return nil }})
		health.Require("database", handlers.Ping(conn))
		pgRepo = postgres.NewRosterRepository(conn)
		repo = pgRepo
	} else {
		log.Warn("DATABASE_URL is not set, roster is kept in memory only")
		repo = memory.NewRosterRepository()
	}

	var cache *redis.Cache
	if cfg.Redis.Enabled() {
		cache, err = redis.NewCache(ctx, redisConfig(cfg.Redis))
		if err != nil {
			// Кеш опционален: без него сервис работает напрямую с хранилищем.
			log.Warn("redis unavailable, continuing without cache", logger.Err(err))
		} else {
			closers = append(closers, closer{"redis", cache.Close})

			cached := redis.NewCachedRepository(repo, redis.NewRosterCache(cache, cfg.Redis.SnapshotTTL), slogger)
			health.Optional("cache", handlers.Ping(cache))
			health.Optional("cache_breaker", handlers.BreakerClosed(cached.Breaker()))
			repo = cached
			log.Info("redis snapshot cache enabled", logger.Duration("ttl", cfg.Redis.SnapshotTTL))
		}
	}

	repo = metrics.NewInstrumentedRepository(repo, m)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ШИНА СОБЫТИЙ
	// ─────────────────────────────────────────────────────────────────────────
	localBus := messaging.InMemoryEventBusConfig{
		AsyncMode:      cfg.Roster.AsyncEvents,
		WorkerPoolSize: cfg.Roster.EventWorkers,
		Logger:         slogger,
	}
	if m != nil {
		localBus.OnHandled = func(t shared.EventType, took time.Duration, err error) {
			m.ObserveEventHandler(string(t), took, err)
		}
	}

	var bus interface {
		shared.EventBus
		Close() error
	}
	if cache != nil && cfg.Redis.EventsEnabled {
		redisBus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         redis.NewPubSub(cache.Client()),
			ChannelName:    cfg.Redis.EventsChannel,
			LocalBusConfig: localBus,
			Logger:         slogger,
		})
		if err != nil {
			return fmt.Errorf("failed to start redis event bus: %w", err)
		}
		bus = redisBus
		log.Info("roster events are shared over redis", logger.String("channel", cfg.Redis.EventsChannel))
	} else {
		bus = messaging.NewInMemoryEventBus(localBus)
	}
	closers = append(closers, closer{"event bus", bus.Close})

	if err := eventhandler.NewAuditLogger(slogger).Register(bus); err != nil {
		return fmt.Errorf("failed to register audit logger: %w", err)
	}
	if m != nil {
		if err := m.Register(bus); err != nil {
			return fmt.Errorf("failed to register metrics recorder: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. РЕЕСТР
	// ─────────────────────────────────────────────────────────────────────────
	holder := roster.NewHolder(repo, roster.WithAutosave(cfg.Roster.Autosave))
	if err := holder.Restore(ctx); err != nil {
		return fmt.Errorf("failed to restore roster: %w", err)
	}
	logRestored(ctx, holder, pgRepo, log)

	resetRoster := command.NewResetRosterHandler(holder, bus)
	if err := seedRoster(ctx, holder, resetRoster, cfg.Roster.SeedFile, log); err != nil {
		return err
	}

	// Последняя попытка сохранить реестр, даже если автосохранение выключено.
	closers = append(closers, closer{"roster", func() error {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		return holder.Flush(flushCtx)
	}})

	// ─────────────────────────────────────────────────────────────────────────
	// 5. HTTP
	// ─────────────────────────────────────────────────────────────────────────
	httpCfg := httpserver.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	httpCfg.MaxBodyBytes = cfg.HTTP.MaxBodyBytes
	httpCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpCfg.EnableMetrics = m != nil
	httpCfg.Version = cfg.App.Version

	server := httpserver.NewServer(httpCfg, httpserver.Dependencies{
		AddStudent:        command.NewAddStudentHandler(holder, bus),
		EditStudent:       command.NewEditStudentHandler(holder, bus),
		DeleteStudent:     command.NewDeleteStudentHandler(holder, bus),
		MarkAttendance:    command.NewMarkAttendanceHandler(holder, bus),
		MarkAllAttendance: command.NewMarkAllAttendanceHandler(holder, bus),
		ClearAttendance:   command.NewClearAttendanceHandler(holder, bus),
		UpdateAttendances: command.NewUpdateAttendancesHandler(holder, bus),
		ResetRoster:       resetRoster,

		ListStudents:        query.NewListStudentsHandler(holder),
		GetStudentName:      query.NewGetStudentNameHandler(holder),
		ListAttendance:      query.NewListAttendanceHandler(holder),
		ListNamedAttendance: query.NewListNamedAttendanceHandler(holder),
		GetRosterSummary:    query.NewGetRosterSummaryHandler(holder),

		Logger:        log,
		HealthChecker: health,
		Metrics:       m,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ФОНОВЫЕ ЗАДАЧИ
	// ─────────────────────────────────────────────────────────────────────────
	sched, err := newScheduler(cfg.Roster, holder, m, slogger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	if sched != nil {
		g.Go(func() error { return sched.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("starting graceful shutdown", logger.Duration("timeout", cfg.App.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("taskmaster stopped")
	return nil
}

// logRestored reports what Restore brought back and, with Postgres, when it
// was last saved.
func logRestored(ctx context.Context, holder *roster.Holder, pg *postgres.RosterRepository, log *logger.Logger) {
	snap := holder.Snapshot()
	fields := []logger.Field{
		logger.StudentCount(len(snap.StudentList)),
		logger.Int("attendance_records", len(snap.AttendanceList)),
	}
	if pg != nil {
		savedAt, err := pg.SavedAt(ctx)
		switch {
		case err == nil:
			fields = append(fields, logger.Time("saved_at", savedAt))
		case !errors.Is(err, shared.ErrRosterNotFound):
			log.Warn("failed to read roster save time", logger.Err(err))
		}
	}
	log.Info("roster restored", fields...)
}

// connectDatabase opens the pool with retries and applies pending migrations.
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*postgres.Connection, error) {
	pool := postgres.DefaultPoolOptions()
	pool.MaxConns = int32(cfg.MaxConns)
	pool.MinConns = int32(cfg.MinConns)
	pool.MaxConnLifetime = cfg.ConnMaxLifetime
	pool.MaxConnIdleTime = cfg.ConnMaxIdleTime

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	log.Info("connecting to database...")

	var conn *postgres.Connection
	err := retry.DatabaseRetrier(retry.WithRetryIf(postgres.IsTransient)).Do(connectCtx, func(ctx context.Context) error {
		c, err := postgres.Open(ctx, cfg.URL, pool)
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("database connection established")

	if !cfg.AutoMigrate {
		return conn, nil
	}

	migrator := postgres.NewMigrator(conn)
	if err := migrator.Migrate(connectCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	status, err := migrator.Status(connectCtx)
	if err != nil {
		log.Warn("failed to get migration status", logger.Err(err))
		return conn, nil
	}
	applied := 0
	for _, mg := range status {
		if mg.Applied {
			applied++
		}
	}
	log.Info("migrations completed", logger.Int("applied", applied), logger.Int("total", len(status)))

	return conn, nil
}

// newScheduler returns nil when no background flush is configured.
func newScheduler(cfg config.RosterConfig, holder *roster.Holder, m *metrics.Metrics, log *slog.Logger) (*scheduler.Scheduler, error) {
	if cfg.FlushSchedule == "" {
		return nil, nil
	}

	schedule, err := scheduler.ParseSchedule(cfg.FlushSchedule)
	if err != nil {
		return nil, fmt.Errorf("invalid ROSTER_FLUSH_SCHEDULE: %w", err)
	}

	sched := scheduler.New(scheduler.Config{
		Logger: log,
		OnResult: func(r scheduler.JobResult) {
			m.ObserveJob(r.Job, r.Err)
		},
	})
	if err := sched.Register(jobs.NewFlushRosterJob(holder, cfg.FlushTimeout), schedule); err != nil {
		return nil, err
	}
	return sched, nil
}

func redisConfig(cfg config.RedisConfig) redis.Config {
	return redis.Config{
		URL:          cfg.URL,
		Host:         cfg.Host,
		Port:         cfg.Port,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// seedFile has the same shape as the body of POST /api/v1/roster/reset.
type seedFile struct {
	Students []struct {
		Name       string `json:"name"`
		NationalID string `json:"national_id"`
	} `json:"students"`
}

// seedRoster loads the seed file into an empty roster. A restored roster is
// never overwritten.
func seedRoster(ctx context.Context, holder *roster.Holder, reset *command.ResetRosterHandler, path string, log *logger.Logger) error {
	if path == "" {
		return nil
	}

	var empty bool
	_ = holder.Read(func(r roster.Reader) error {
		empty = r.Students().IsEmpty()
		return nil
	})
	if !empty {
		log.Info("roster restored, seed file ignored", logger.String("path", path))
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	if seed.Students == nil {
		return fmt.Errorf("seed file %s: %w", path, errors.New(`missing "students"`))
	}

	inputs := make([]command.StudentInput, len(seed.Students))
	for i, s := range seed.Students {
		inputs[i] = command.StudentInput{Name: s.Name, NationalID: s.NationalID}
	}

	result, err := reset.Handle(ctx, command.ResetRosterCommand{Students: inputs, CorrelationID: "seed"})
	if err != nil {
		return fmt.Errorf("failed to seed roster from %s: %w", path, err)
	}

	log.Info("roster seeded", logger.String("path", path), logger.Int("students", len(result.Students)))
	return nil
}
