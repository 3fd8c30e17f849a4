// Package main is the entry point of the natibo study server.
//
// The server exposes the course API over HTTP and runs the background job that
// prepares the next study day of every course whose current day is completed.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/natibo/natibo/config"
	"github.com/natibo/natibo/internal/application/command"
	"github.com/natibo/natibo/internal/application/eventhandler"
	"github.com/natibo/natibo/internal/application/query"
	"github.com/natibo/natibo/internal/domain/content"
	"github.com/natibo/natibo/internal/domain/course"
	"github.com/natibo/natibo/internal/domain/shared"
	"github.com/natibo/natibo/internal/infrastructure/messaging"
	"github.com/natibo/natibo/internal/infrastructure/persistence/memory"
	"github.com/natibo/natibo/internal/infrastructure/persistence/postgres"
	"github.com/natibo/natibo/internal/infrastructure/persistence/projections"
	"github.com/natibo/natibo/internal/infrastructure/persistence/redis"
	"github.com/natibo/natibo/internal/infrastructure/scheduler"
	"github.com/natibo/natibo/internal/infrastructure/scheduler/jobs"
	httpserver "github.com/natibo/natibo/internal/interface/http"
	"github.com/natibo/natibo/internal/interface/http/handlers"
	"github.com/natibo/natibo/pkg/circuitbreaker"
	"github.com/natibo/natibo/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

// eventBus is what the server needs from either bus implementation.
type eventBus interface {
	shared.EventPublisher
	shared.EventSubscriber
	Close() error
}

// storage bundles the repositories of the selected backend.
type storage struct {
	courses course.Repository
	content content.Repository
	close   func()
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION & LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Log.Level),
		AddSource: cfg.Log.AddSource,
	})
	log.Info("starting natibo server",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("timezone", cfg.App.Timezone),
	)

	health := handlers.NewCompositeHealthChecker(cfg.App.Version)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. STORAGE
	// ─────────────────────────────────────────────────────────────────────────
	store, err := openStorage(ctx, cfg, log, health)
	if err != nil {
		return err
	}
	defer store.close()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. REDIS (cache, course locks, event relay) OR IN-PROCESS FALLBACKS
	// ─────────────────────────────────────────────────────────────────────────
	var (
		cache  course.Cache
		locker command.Locker = memory.NewLocker()
		bus    eventBus
	)

	localBusConfig := messaging.InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 4,
		Logger:         log.Slog(),
	}

	if cfg.Redis.Disabled {
		log.Info("redis disabled, using in-process locks and events")
		bus = messaging.NewInMemoryEventBus(localBusConfig)
		if cfg.UsesDatabase() {
			cache = memory.NewCourseCache()
		}
	} else {
		client, err := redis.NewClient(ctx, redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   redis.DefaultConfig().MaxRetries,
			ClientName:   cfg.App.Name,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer client.Close()

		redisCache := redis.NewCache(client)
		health.AddOptionalCheck("redis", handlers.NewPingCheck(redisCache))
		breaker := redis.NewCourseCacheBreaker(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state changed",
				logger.Component(name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		})
		cache = redis.NewCourseCache(redisCache, redis.WithBreaker(breaker))
		locker = redis.NewLocker(client, redis.WithLockTTL(cfg.Redis.LockTTL))

		bus, err = messaging.NewRedisEventBus(ctx, messaging.RedisEventBusConfig{
			Client:         client,
			Channel:        cfg.Redis.EventsChannel,
			InstanceID:     uuid.NewString(),
			LocalBusConfig: localBusConfig,
			Logger:         log.Slog(),
		})
		if err != nil {
			return fmt.Errorf("failed to start event relay: %w", err)
		}
		log.Info("redis connected", logger.String("channel", cfg.Redis.EventsChannel))
	}
	defer func() {
		if err := bus.Close(); err != nil {
			log.Warn("event bus close failed", logger.Err(err))
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. READ MODELS
	// ─────────────────────────────────────────────────────────────────────────
	activity := projections.NewCourseActivityView()
	if err := eventhandler.NewOnCourseEventHandler(activity, log.Slog()).Register(bus); err != nil {
		return fmt.Errorf("failed to register event handlers: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	deps := command.Deps{
		Courses:  store.courses,
		Content:  store.content,
		Cache:    cache,
		Locker:   locker,
		Events:   bus,
		Logger:   log,
		CacheTTL: cfg.Redis.CacheTTL,
	}
	defaults := command.Defaults{
		SentencesPerDay: cfg.Study.SentencesPerDay,
		ReviewPattern:   cfg.Study.ReviewPattern,
		Pause:           cfg.Study.Pause,
	}

	prepareNextDay := command.NewPrepareNextDayHandler(deps)
	getCourse := query.NewGetCourseHandler(store.courses, cache, cfg.Redis.CacheTTL, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	serverConfig := httpserver.DefaultConfig()
	serverConfig.Host = cfg.HTTP.Host
	serverConfig.Port = cfg.HTTP.Port
	serverConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	serverConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	serverConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	serverConfig.MaxBodyBytes = cfg.HTTP.MaxBodyBytes
	serverConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	serverConfig.RateLimitPerSecond = cfg.HTTP.RateLimitPerSecond
	serverConfig.RateLimitBurst = cfg.HTTP.RateLimitBurst
	serverConfig.APIKeyHashes = cfg.HTTP.APIKeyHashes
	serverConfig.Version = cfg.App.Version

	server := httpserver.NewServer(serverConfig, httpserver.Dependencies{
		CreateCourse:        command.NewCreateCourseHandler(deps, defaults),
		PrepareNextDay:      prepareNextDay,
		RecordReviews:       command.NewRecordReviewsHandler(deps),
		CompleteDay:         command.NewCompleteDayHandler(deps),
		AddReps:             command.NewAddRepsHandler(deps),
		SetStartingSentence: command.NewSetStartingSentenceHandler(deps),
		SetPause:            command.NewSetPauseHandler(deps),
		DeleteCourse:        command.NewDeleteCourseHandler(deps),
		SavePack:            command.NewSavePackHandler(store.content, log),
		GetCourse:           getCourse,
		GetCurrentDay:       query.NewGetCurrentDayHandler(getCourse),
		GetProgress:         query.NewGetProgressHandler(getCourse),
		ListCourses:         query.NewListCoursesHandler(store.courses),
		ListLanguages:       query.NewListLanguagesHandler(store.content),
		Activity:            activity,
		HealthChecker:       health,
		Logger:              log,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 7. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.New(scheduler.Config{
		Logger:   log.Slog(),
		Timezone: cfg.App.Location,
	})

	if cfg.Scheduler.Enabled {
		schedule, err := scheduler.ParseSchedule(cfg.Scheduler.AdvanceSchedule)
		if err != nil {
			return fmt.Errorf("invalid advance schedule: %w", err)
		}

		advance := func(ctx context.Context, courseID string) (bool, error) {
			res, err := prepareNextDay.Handle(ctx, command.PrepareNextDayCommand{
				CourseID:        courseID,
				OnlyIfCompleted: true,
			})
			if err != nil {
				return false, err
			}
			return !res.Skipped, nil
		}

		job := jobs.NewAdvanceCoursesJob(store.courses, advance, log.Slog(), jobs.AdvanceCoursesConfig{
			BatchSize:   cfg.Scheduler.AdvanceBatchSize,
			Concurrency: cfg.Scheduler.AdvanceConcurrency,
			Timeout:     cfg.Scheduler.JobTimeout,
		})
		if err := sched.Register(job, schedule); err != nil {
			return fmt.Errorf("failed to register %s: %w", job.Name(), err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. RUN UNTIL SIGNALLED
	// ─────────────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	g.Go(server.Start)

	if cfg.Scheduler.Enabled {
		if err := sched.Start(gctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()

		var errs []error
		if cfg.Scheduler.Enabled {
			if err := sched.Stop(); err != nil && !errors.Is(err, scheduler.ErrSchedulerNotRunning) {
				errs = append(errs, err)
			}
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

// openStorage connects to PostgreSQL when a database URL is configured and
// falls back to in-memory repositories otherwise.
func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger, health *handlers.CompositeHealthChecker) (*storage, error) {
	if !cfg.UsesDatabase() {
		log.Warn("DATABASE_URL is empty, courses are kept in memory only")
		return &storage{
			courses: memory.NewCourseRepository(),
			content: memory.NewContentRepository(nil),
			close:   func() {},
		}, nil
	}

	pgConfig := postgres.DefaultConfig()
	pgConfig.URL = cfg.Database.URL
	pgConfig.MaxConns = int32(cfg.Database.MaxConns)
	pgConfig.MinConns = int32(cfg.Database.MinConns)
	pgConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pgConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
	pgConfig.ConnectTimeout = cfg.Database.ConnectTimeout

	start := time.Now()
	conn, err := postgres.NewConnection(ctx, pgConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("database connected", logger.Latency(time.Since(start)))

	if cfg.Database.AutoMigrate {
		if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	health.AddCheck("postgres", handlers.NewPingCheck(conn))

	return &storage{
		courses: postgres.NewCourseRepository(conn),
		content: postgres.NewContentRepository(conn),
		close: func() {
			log.Info("closing database connection")
			conn.Close()
		},
	}, nil
}
